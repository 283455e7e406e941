package main

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Verse is one block of consecutive lyric lines.
type Verse struct {
	VerseNumber int      `json:"verse_number"`
	Lines       []string `json:"lines"`
}

// Song is a single catalog entry. Immutable once loaded.
type Song struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Album          string  `json:"album,omitempty"`
	Year           int     `json:"year,omitempty"`
	Lyrics         []Verse `json:"lyrics"`
	FullText       string  `json:"full_text"`
	PopularityRank int     `json:"popularity_rank,omitempty"` // 1 = most popular
}

// Artist is one entry of the artist index file.
type Artist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SongCount int    `json:"song_count"`
}

type catalogFile struct {
	Songs    []Song         `json:"songs"`
	Metadata map[string]any `json:"metadata"`
}

// minLyricsLength is the shortest full text, in characters, a song may have
// and still be playable.
const minLyricsLength = 50

// difficultyCeilings buckets songs by popularity rank: level 1 draws from
// the top 5 songs, level 5 from the whole catalog.
var difficultyCeilings = map[int]int{1: 5, 2: 10, 3: 20, 4: 30, 5: 0}

var collabBrackets = regexp.MustCompile(`\[[^\[\]]+ & [^\[\]]+\]`)

// isCollaboration flags multi-artist tracks that slipped into a
// single-artist catalog, by title marker or an in-text "[Name & Name]"
// credit block.
func isCollaboration(title, fullText string) bool {
	lower := strings.ToLower(title)
	for _, marker := range []string{"feat", "ft.", " & "} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return collabBrackets.MatchString(fullText)
}

// Library holds one artist's song catalog. Read-only after construction,
// safe to share across concurrent readers.
type Library struct {
	artistID string
	dataPath string
	songs    []Song
	metadata map[string]any
}

// newLibrary loads the catalog for an artist. A missing or unreadable file
// yields an empty library, never an error.
func newLibrary(cfg *Config, artistID string) *Library {
	l := &Library{
		artistID: artistID,
		dataPath: filepath.Join(cfg.dataDir, "artists", artistID+".json"),
		metadata: map[string]any{},
	}

	if _, err := os.Stat(l.dataPath); err != nil {
		// Legacy single-catalog layout.
		l.dataPath = filepath.Join(cfg.dataDir, "lyrics.json")
	}

	raw, err := os.ReadFile(l.dataPath)
	if err != nil {
		logf(cfg, "LYRICS: No catalog found at %s", l.dataPath)
		return l
	}

	var catalog catalogFile
	if err := json.Unmarshal(raw, &catalog); err != nil {
		logf(cfg, "LYRICS: Failed to parse %s: %v", l.dataPath, err)
		return l
	}

	for _, song := range catalog.Songs {
		if isCollaboration(song.Title, song.FullText) {
			continue
		}
		if utf8.RuneCountInString(song.FullText) <= minLyricsLength {
			continue
		}
		l.songs = append(l.songs, song)
	}

	l.reassignRanks()

	if catalog.Metadata != nil {
		l.metadata = catalog.Metadata
	}

	logf(cfg, "LYRICS: Loaded %d songs from %s", len(l.songs), l.dataPath)

	return l
}

// reassignRanks closes the gaps filtering left in the popularity ranking,
// so ranked songs end up numbered 1..K again.
func (l *Library) reassignRanks() {
	ranked := make([]int, 0, len(l.songs))
	for i := range l.songs {
		if l.songs[i].PopularityRank > 0 {
			ranked = append(ranked, i)
		}
	}

	sort.Slice(ranked, func(a, b int) bool {
		return l.songs[ranked[a]].PopularityRank < l.songs[ranked[b]].PopularityRank
	})

	for newRank, idx := range ranked {
		l.songs[idx].PopularityRank = newRank + 1
	}
}

func (l *Library) countSongs() int {
	return len(l.songs)
}

func (l *Library) allSongs() []Song {
	return l.songs
}

func (l *Library) randomSong() *Song {
	if len(l.songs) == 0 {
		return nil
	}

	return &l.songs[rand.IntN(len(l.songs))]
}

func (l *Library) songByID(id string) *Song {
	for i := range l.songs {
		if l.songs[i].ID == id {
			return &l.songs[i]
		}
	}

	return nil
}

// songsForDifficulty returns the songs within the level's popularity-rank
// ceiling. An empty tier falls back to the whole catalog rather than
// leaving the caller with nothing to play.
func (l *Library) songsForDifficulty(level int) []Song {
	ceiling, ok := difficultyCeilings[level]
	if !ok || ceiling == 0 {
		return l.songs
	}

	var filtered []Song
	for _, song := range l.songs {
		if song.PopularityRank > 0 && song.PopularityRank <= ceiling {
			filtered = append(filtered, song)
		}
	}

	if len(filtered) == 0 {
		return l.songs
	}

	return filtered
}

func (l *Library) randomSongForDifficulty(level int) *Song {
	pool := l.songsForDifficulty(level)
	if len(pool) == 0 {
		return nil
	}

	return &pool[rand.IntN(len(pool))]
}

// randomPhrase picks a line-aligned excerpt of a random song: whole lines
// are accumulated from a random starting line until the word count lands
// between minWords and maxWords. Returns a nil song when no acceptable
// excerpt was found.
func (l *Library) randomPhrase(minWords, maxWords int) (*Song, string, []string) {
	return phraseFromSong(l.randomSong(), minWords, maxWords)
}

// randomPhraseForDifficulty is randomPhrase drawing from a difficulty tier.
func (l *Library) randomPhraseForDifficulty(level, minWords, maxWords int) (*Song, string, []string) {
	return phraseFromSong(l.randomSongForDifficulty(level), minWords, maxWords)
}

const phraseAttempts = 20

func phraseFromSong(song *Song, minWords, maxWords int) (*Song, string, []string) {
	if song == nil {
		return nil, "", nil
	}

	var lineWords [][]string
	for _, line := range strings.Split(song.FullText, "\n") {
		words := extractWords(line)
		if len(words) > 0 {
			lineWords = append(lineWords, words)
		}
	}

	if len(lineWords) == 0 {
		return nil, "", nil
	}

	for attempt := 0; attempt < phraseAttempts; attempt++ {
		start := rand.IntN(len(lineWords))

		var phraseWords []string
		end := start

		for end < len(lineWords) && len(phraseWords) < maxWords {
			phraseWords = append(phraseWords, lineWords[end]...)
			end++

			if len(phraseWords) >= minWords {
				break
			}
		}

		if len(phraseWords) < minWords {
			continue
		}

		if len(phraseWords) > maxWords {
			// Rebuild from whole lines only, never cutting one mid-way.
			phraseWords = nil
			for i := start; i < end; i++ {
				if len(phraseWords)+len(lineWords[i]) > maxWords {
					break
				}
				phraseWords = append(phraseWords, lineWords[i]...)
			}
		}

		if len(phraseWords) >= minWords {
			return song, strings.Join(phraseWords, " "), phraseWords
		}
	}

	return nil, "", nil
}

// randomVerse returns a random verse of the given song, or of a random song
// when nil is passed.
func (l *Library) randomVerse(song *Song) (*Song, []string) {
	if song == nil {
		song = l.randomSong()
	}
	if song == nil || len(song.Lyrics) == 0 {
		return nil, nil
	}

	verse := song.Lyrics[rand.IntN(len(song.Lyrics))]

	return song, verse.Lines
}

// availableArtists reads the artist index file. A missing or malformed
// index degrades to a single default entry.
func availableArtists(cfg *Config) []Artist {
	fallback := []Artist{{ID: "jacques-brel", Name: "Jacques Brel", SongCount: 120}}

	raw, err := os.ReadFile(filepath.Join(cfg.dataDir, "artists.json"))
	if err != nil {
		return fallback
	}

	var index struct {
		Artists []Artist `json:"artists"`
	}
	if err := json.Unmarshal(raw, &index); err != nil {
		logf(cfg, "LYRICS: Failed to parse artist index: %v", err)
		return fallback
	}

	if len(index.Artists) == 0 {
		return fallback
	}

	return index.Artists
}
