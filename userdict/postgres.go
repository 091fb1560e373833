package userdict

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const createTable = `CREATE TABLE IF NOT EXISTS user_dictionary (
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	pos   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (key, value, pos)
)`

// PostgresStore keeps entries in the user_dictionary table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and checks the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresStore creates the table when it is missing.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("create user_dictionary: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Add(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_dictionary (key, value, pos) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		e.Key, e.Value, e.POS)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_dictionary WHERE key = $1 AND value = $2 AND pos = $3`,
		e.Key, e.Value, e.POS)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, pos FROM user_dictionary ORDER BY key, value, pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.POS); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
