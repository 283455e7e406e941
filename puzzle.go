package main

import (
	"math/rand/v2"
	"slices"
	"strings"
)

// puzzleKind identifies which word of the excerpt is hidden.
type puzzleKind string

const (
	kindNext     puzzleKind = "next"     // guess the trailing word
	kindPrevious puzzleKind = "previous" // guess the leading word
	kindMissing  puzzleKind = "missing"  // guess an interior word
)

// blankMarker is the placeholder shown in place of the hidden word.
const blankMarker = "___"

const (
	puzzleAttempts = 10
	maxPhraseWords = 12
)

type wordPuzzle struct {
	song   *Song
	phrase string
	answer string
	kind   puzzleKind
}

var puzzleKinds = []puzzleKind{kindNext, kindPrevious, kindMissing}

// generateWordPuzzle searches for an excerpt whose hidden word is
// unambiguous: the visible context around the blank must occur exactly once
// in the whole song. Gives up after a bounded number of attempts and
// returns nil; callers decide whether starting or advancing a game fails.
// difficulty 0 draws from the whole catalog.
func generateWordPuzzle(lib *Library, minVisibleWords, difficulty int) *wordPuzzle {
	minTotalWords := minVisibleWords + 1

	for attempt := 0; attempt < puzzleAttempts; attempt++ {
		var (
			song  *Song
			words []string
		)

		if difficulty > 0 {
			song, _, words = lib.randomPhraseForDifficulty(difficulty, minTotalWords, maxPhraseWords)
		} else {
			song, _, words = lib.randomPhrase(minTotalWords, maxPhraseWords)
		}

		if song == nil || len(words) < minTotalWords {
			continue
		}

		kind := puzzleKinds[rand.IntN(len(puzzleKinds))]

		var answer, phrase string

		switch kind {
		case kindNext:
			answer = words[len(words)-1]
			visible := words[:len(words)-1]
			if len(visible) < minVisibleWords {
				continue
			}
			phrase = strings.Join(visible, " ") + " " + blankMarker

		case kindPrevious:
			answer = words[0]
			visible := words[1:]
			if len(visible) < minVisibleWords {
				continue
			}
			phrase = blankMarker + " " + strings.Join(visible, " ")

		case kindMissing:
			if len(words) < 3 {
				continue
			}
			// Interior word only, so context surrounds the blank.
			blankIndex := 1 + rand.IntN(len(words)-2)
			answer = words[blankIndex]
			masked := slices.Clone(words)
			masked[blankIndex] = blankMarker
			phrase = strings.Join(masked, " ")
		}

		if answerUniqueInSong(song, words) {
			return &wordPuzzle{
				song:   song,
				phrase: phrase,
				answer: answer,
				kind:   kind,
			}
		}
	}

	return nil
}

// answerUniqueInSong slides the normalized excerpt across the song's
// normalized word sequence and accepts only a single exact match, which
// guarantees the visible context determines the hidden word.
func answerUniqueInSong(song *Song, contextWords []string) bool {
	allWords := extractWords(song.FullText)

	normalizedAll := make([]string, len(allWords))
	for i, word := range allWords {
		normalizedAll[i] = normalizeFrench(word)
	}

	normalizedContext := make([]string, len(contextWords))
	for i, word := range contextWords {
		normalizedContext[i] = normalizeFrench(word)
	}

	window := len(normalizedContext)
	matches := 0

	for i := 0; i+window <= len(normalizedAll); i++ {
		if slices.Equal(normalizedAll[i:i+window], normalizedContext) {
			matches++
			if matches > 1 {
				return false
			}
		}
	}

	return matches == 1
}
