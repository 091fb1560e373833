package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "henkan.json", `{
		"dictionary": {"image": "/srv/henkan.dic"},
		"server": {"port": 9090}
	}`)
	cfg, err := LoadJSON(p)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if cfg.Dictionary.Image != "/srv/henkan.dic" || cfg.Server.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
	// untouched sections keep their defaults
	if cfg.Server.Sessions != Defaults().Server.Sessions || !cfg.Converter.LatticeCache {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, "henkan.json", `{"server": {"prot": 1}}`)
	if _, err := LoadJSON(p); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HENKAN_PORT", "7000")
	t.Setenv("HENKAN_LATTICE_CACHE", "off")
	t.Setenv("HENKAN_USERDICT_BACKEND", "redis")
	t.Setenv("HENKAN_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HENKAN_SESSIONS", "many")

	cfg := Defaults()
	cfg.ApplyEnv()
	if cfg.Server.Port != 7000 || cfg.Converter.LatticeCache {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Server.Sessions != Defaults().Server.Sessions {
		t.Errorf("unparsable int should keep the default, got %d", cfg.Server.Sessions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Userdict.Backend = BackendPostgres
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"postgres_dsn", "invalid port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("%q missing from %v", want, err)
		}
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("HENKAN_TEST_KEPT", "env")
	os.Unsetenv("HENKAN_TEST_SET")
	t.Cleanup(func() { os.Unsetenv("HENKAN_TEST_SET") })

	err := parseEnv("# comment\n\nHENKAN_TEST_SET = \"file\"\nHENKAN_TEST_KEPT=file\n")
	if err != nil {
		t.Fatalf("parseEnv: %v", err)
	}
	if got := os.Getenv("HENKAN_TEST_SET"); got != "file" {
		t.Errorf("HENKAN_TEST_SET = %q", got)
	}
	if got := os.Getenv("HENKAN_TEST_KEPT"); got != "env" {
		t.Errorf("existing variable overwritten: %q", got)
	}
	if err := parseEnv("NOEQUALS"); err == nil {
		t.Errorf("line without '=' accepted")
	}
}
