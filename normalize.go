package main

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents removes combining marks after canonical decomposition,
// so "é" and "e" compare equal.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// unifyApostrophes folds typographic apostrophe variants into the plain
// ASCII form, keeping elisions like "l'amour" comparable.
var unifyApostrophes = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"´", "'",
	"`", "'",
)

// Punctuation other than apostrophes. Underscore counts as a word character.
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s']`)

// normalizeFrench canonicalizes French text for comparison: lowercase,
// accents stripped, apostrophes unified, punctuation removed, whitespace
// collapsed.
func normalizeFrench(text string) string {
	text = strings.ToLower(text)
	text, _, _ = transform.String(stripAccents, text)
	text = unifyApostrophes.Replace(text)
	text = punctuation.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}

// wordsMatch reports whether a guess matches the answer, tolerant of
// accents, case, and apostrophe style.
func wordsMatch(guess, answer string) bool {
	return normalizeFrench(guess) == normalizeFrench(answer)
}

// extractWords tokenizes text on whitespace, stripping punctuation but
// keeping internal apostrophes so "qu'il" stays a single word.
func extractWords(text string) []string {
	text = unifyApostrophes.Replace(text)
	text = punctuation.ReplaceAllString(text, " ")

	return strings.Fields(text)
}

// splitIntoChunks cuts text into pieces of roughly chunkSize words each.
func splitIntoChunks(text string, chunkSize int) []string {
	if chunkSize < 1 {
		return nil
	}

	words := extractWords(text)

	var chunks []string
	for i := 0; i < len(words); i += chunkSize {
		end := min(i+chunkSize, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	return chunks
}

// frenchStopwords holds common French function words, in normalized form.
var frenchStopwords = map[string]struct{}{
	// Articles
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {},
	"du": {}, "au": {}, "aux": {},
	// Pronouns
	"je": {}, "tu": {}, "il": {}, "elle": {}, "on": {}, "nous": {},
	"vous": {}, "ils": {}, "elles": {}, "me": {}, "te": {}, "se": {},
	"moi": {}, "toi": {}, "lui": {}, "leur": {}, "leurs": {},
	"ce": {}, "ca": {}, "ceci": {}, "cela": {},
	// Prepositions
	"de": {}, "a": {}, "en": {}, "par": {}, "pour": {}, "sans": {},
	"avec": {}, "dans": {}, "sur": {}, "sous": {}, "vers": {},
	"chez": {}, "contre": {}, "entre": {}, "pendant": {}, "depuis": {},
	// Conjunctions
	"et": {}, "ou": {}, "mais": {}, "donc": {}, "or": {}, "ni": {},
	"car": {}, "que": {}, "qui": {}, "quoi": {}, "si": {},
	"comme": {}, "quand": {}, "lorsque": {},
	// Common adverbs
	"ne": {}, "pas": {}, "plus": {}, "non": {}, "oui": {}, "bien": {},
	"mal": {}, "tres": {}, "peu": {}, "trop": {}, "tout": {},
	"tous": {}, "toute": {}, "toutes": {}, "rien": {},
	// Auxiliaries and common forms of etre/avoir
	"est": {}, "sont": {}, "etait": {}, "etaient": {}, "ete": {}, "etre": {},
	"ai": {}, "as": {}, "ont": {}, "avait": {}, "avaient": {},
	"avoir": {}, "eu": {},
	// Other very common words
	"y": {}, "dont": {},
}

// isStopword reports whether a word is a common French function word,
// judged on its normalized form.
func isStopword(word string) bool {
	_, ok := frenchStopwords[normalizeFrench(word)]
	return ok
}
