package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFrench(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases",
			in:   "AMSTERDAM",
			want: "amsterdam",
		},
		{
			name: "strips accents",
			in:   "Né à Bruxelles, l'été",
			want: "ne a bruxelles l'ete",
		},
		{
			name: "cedilla",
			in:   "Ça va",
			want: "ca va",
		},
		{
			name: "typographic apostrophe",
			in:   "l’amour",
			want: "l'amour",
		},
		{
			name: "drops punctuation except apostrophes",
			in:   "Ne me quitte pas! (bis)",
			want: "ne me quitte pas bis",
		},
		{
			name: "collapses whitespace",
			in:   "  du   vent \n des mots  ",
			want: "du vent des mots",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeFrench(tc.in))
		})
	}
}

func TestNormalizeFrenchIdempotent(t *testing.T) {
	inputs := []string{
		"Ne me quitte pas",
		"Ça m'étonnerait, qu'il pleuve…",
		"L'ÉTÉ INDIEN (remix)",
		"",
	}

	for _, in := range inputs {
		once := normalizeFrench(in)
		assert.Equal(t, once, normalizeFrench(once), "normalize must be idempotent for %q", in)
	}
}

func TestWordsMatch(t *testing.T) {
	tests := []struct {
		guess  string
		answer string
		want   bool
	}{
		{"Ça", "ca", true},
		{"l'amour", "L'AMOUR", true},
		{"l’amour", "l'amour", true},
		{"chat", "chats", false},
		{"éte", "été", true},
		{"bateau", "gâteau", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, wordsMatch(tc.guess, tc.answer), "%q vs %q", tc.guess, tc.answer)
	}
}

func TestExtractWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "keeps internal apostrophes",
			in:   "l'amour et qu'il pleuve",
			want: []string{"l'amour", "et", "qu'il", "pleuve"},
		},
		{
			name: "splits on punctuation",
			in:   "Madeleine, c'est fini!",
			want: []string{"Madeleine", "c'est", "fini"},
		},
		{
			name: "empty",
			in:   "  \n ",
			want: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractWords(tc.in))
		})
	}
}

func TestSplitIntoChunks(t *testing.T) {
	text := "un deux trois quatre cinq six sept huit"

	chunks := splitIntoChunks(text, 3)
	assert.Equal(t, []string{"un deux trois", "quatre cinq six", "sept huit"}, chunks)

	assert.Nil(t, splitIntoChunks("", 3))
	assert.Nil(t, splitIntoChunks(text, 0))
}

func TestIsStopword(t *testing.T) {
	for _, word := range []string{"le", "Le", "LA", "été", "Être", "dans", "qu"} {
		if word == "qu" {
			assert.False(t, isStopword(word))
			continue
		}
		assert.True(t, isStopword(word), "%q should be a stopword", word)
	}

	for _, word := range []string{"amour", "bateau", "Amsterdam"} {
		assert.False(t, isStopword(word), "%q should not be a stopword", word)
	}
}
