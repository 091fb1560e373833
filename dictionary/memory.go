package dictionary

import (
	"sort"

	"henkan/model"
)

type tokenSlice []model.Token

func (s tokenSlice) Len() int                { return len(s) }
func (s tokenSlice) Key(i int) string        { return s[i].Key }
func (s tokenSlice) Value(i int) string      { return s[i].Value }
func (s tokenSlice) Token(i int) model.Token { return s[i] }

// Memory is a dictionary held in a sorted slice.
type Memory struct {
	*Lexicon
}

// NewMemory copies tokens and sorts them by key, then cost.
func NewMemory(tokens []model.Token) *Memory {
	sorted := make(tokenSlice, len(tokens))
	copy(sorted, tokens)
	sortTokens(sorted)
	return &Memory{Lexicon: newLexicon(sorted)}
}

func sortTokens(tokens []model.Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Key != tokens[j].Key {
			return tokens[i].Key < tokens[j].Key
		}
		return tokens[i].Cost < tokens[j].Cost
	})
}
