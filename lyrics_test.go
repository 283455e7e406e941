package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniqueWordSong builds a song whose words are all distinct, so any excerpt
// identifies its hidden word unambiguously.
func uniqueWordSong() Song {
	lines := []string{
		"Je marche seul depuis toujours vers toi",
		"Sous un ciel orange brillent mille lumières",
		"Les oiseaux chantent doucement chaque matin clair",
		"Personne n'attend jamais vraiment celui qui part",
	}

	return Song{
		ID:             "chemin-des-ombres",
		Title:          "Chemin des Ombres",
		Album:          "Premières Traces",
		Year:           1964,
		Lyrics:         []Verse{{VerseNumber: 1, Lines: lines}},
		FullText:       strings.Join(lines, "\n"),
		PopularityRank: 1,
	}
}

func secondSong() Song {
	lines := []string{
		"Dimanche pluvieux devant notre vieille fenêtre grise",
		"Quelques souvenirs remontent lentement entre deux silences",
	}

	return Song{
		ID:             "fenetre-grise",
		Title:          "Fenêtre Grise",
		Lyrics:         []Verse{{VerseNumber: 1, Lines: lines}},
		FullText:       strings.Join(lines, "\n"),
		PopularityRank: 3,
	}
}

func writeCatalog(t *testing.T, dir, artistID string, songs []Song) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "artists"), 0755))

	raw, err := json.Marshal(catalogFile{Songs: songs})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "artists", artistID+".json"), raw, 0644))
}

func TestNewLibraryFiltersCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{artist: "test", dataDir: dir}

	long := strings.Repeat("la vie passe et repasse sans bruit ", 3)

	writeCatalog(t, dir, "test", []Song{
		uniqueWordSong(),
		secondSong(),
		{ID: "duo", Title: "Duo (feat. Quelqu'un)", FullText: long},
		{ID: "autre-duo", Title: "Autre Duo", FullText: "[Jacques & Barbara]\n" + long},
		{ID: "trop-court", Title: "Trop Court", FullText: "la la la"},
		// 100 bytes but only 50 characters: still under the length floor.
		{ID: "accents-courts", Title: "Accents Courts", FullText: strings.Repeat("é", minLyricsLength)},
	})

	lib := newLibrary(cfg, "test")

	assert.Equal(t, 2, lib.countSongs())
	assert.Len(t, lib.allSongs(), 2)
	assert.Nil(t, lib.songByID("duo"))
	assert.Nil(t, lib.songByID("autre-duo"))
	assert.Nil(t, lib.songByID("trop-court"))
	assert.Nil(t, lib.songByID("accents-courts"))

	// Filtering leaves a gap in the ranking (1, 3); ranks close back up.
	require.NotNil(t, lib.songByID("chemin-des-ombres"))
	require.NotNil(t, lib.songByID("fenetre-grise"))
	assert.Equal(t, 1, lib.songByID("chemin-des-ombres").PopularityRank)
	assert.Equal(t, 2, lib.songByID("fenetre-grise").PopularityRank)
}

func TestNewLibraryMissingCatalog(t *testing.T) {
	cfg := &Config{artist: "test", dataDir: t.TempDir()}

	lib := newLibrary(cfg, "nobody")

	assert.Equal(t, 0, lib.countSongs())
	assert.Nil(t, lib.randomSong())

	song, phrase, words := lib.randomPhrase(6, 12)
	assert.Nil(t, song)
	assert.Empty(t, phrase)
	assert.Nil(t, words)
}

func TestNewLibraryLegacyLayout(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{artist: "test", dataDir: dir}

	raw, err := json.Marshal(catalogFile{Songs: []Song{uniqueWordSong()}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lyrics.json"), raw, 0644))

	lib := newLibrary(cfg, "test")

	assert.Equal(t, 1, lib.countSongs())
}

func TestIsCollaboration(t *testing.T) {
	tests := []struct {
		title    string
		fullText string
		want     bool
	}{
		{"Ne me quitte pas", "des paroles", false},
		{"Duo (feat. Barbara)", "des paroles", true},
		{"Duo ft. Barbara", "des paroles", true},
		{"Jacques & Barbara", "des paroles", true},
		{"Chanson", "[Jacques & Barbara]\ndes paroles", true},
		{"Chanson", "[Refrain]\ndes paroles", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, isCollaboration(tc.title, tc.fullText), "%q", tc.title)
	}
}

func TestSongsForDifficulty(t *testing.T) {
	songs := make([]Song, 0, 8)
	for rank := 1; rank <= 8; rank++ {
		songs = append(songs, Song{ID: string(rune('a' + rank)), PopularityRank: rank})
	}
	songs = append(songs, Song{ID: "unranked"})

	lib := &Library{artistID: "test", songs: songs}

	assert.Len(t, lib.songsForDifficulty(1), 5)
	assert.Len(t, lib.songsForDifficulty(2), 8)
	assert.Len(t, lib.songsForDifficulty(5), 9)
	assert.Len(t, lib.songsForDifficulty(0), 9)

	for _, song := range lib.songsForDifficulty(1) {
		assert.LessOrEqual(t, song.PopularityRank, 5)
		assert.Greater(t, song.PopularityRank, 0)
	}

	// A tier with no ranked songs falls back to the whole catalog.
	unranked := &Library{artistID: "test", songs: []Song{{ID: "x"}, {ID: "y"}}}
	assert.Len(t, unranked.songsForDifficulty(1), 2)
}

func TestPhraseFromSong(t *testing.T) {
	song := uniqueWordSong()

	for i := 0; i < 25; i++ {
		got, phrase, words := phraseFromSong(&song, 6, 12)

		require.NotNil(t, got)
		assert.GreaterOrEqual(t, len(words), 6)
		assert.LessOrEqual(t, len(words), 12)
		assert.Equal(t, strings.Join(words, " "), phrase)
	}
}

func TestPhraseFromSongUnsatisfiable(t *testing.T) {
	song := uniqueWordSong()

	// More words than the whole song holds.
	got, phrase, words := phraseFromSong(&song, 100, 120)
	assert.Nil(t, got)
	assert.Empty(t, phrase)
	assert.Nil(t, words)

	got, _, _ = phraseFromSong(nil, 6, 12)
	assert.Nil(t, got)
}

func TestRandomVerse(t *testing.T) {
	song := uniqueWordSong()
	lib := &Library{artistID: "test", songs: []Song{song}}

	got, lines := lib.randomVerse(nil)
	require.NotNil(t, got)
	assert.Equal(t, song.Lyrics[0].Lines, lines)

	empty := &Library{artistID: "empty"}
	got, lines = empty.randomVerse(nil)
	assert.Nil(t, got)
	assert.Nil(t, lines)
}

func TestAvailableArtists(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{artist: "test", dataDir: dir}

	// No index file: single default entry.
	artists := availableArtists(cfg)
	require.Len(t, artists, 1)
	assert.Equal(t, "jacques-brel", artists[0].ID)

	raw, err := json.Marshal(map[string][]Artist{
		"artists": {
			{ID: "jacques-brel", Name: "Jacques Brel", SongCount: 120},
			{ID: "barbara", Name: "Barbara", SongCount: 85},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "artists.json"), raw, 0644))

	artists = availableArtists(cfg)
	require.Len(t, artists, 2)
	assert.Equal(t, "barbara", artists[1].ID)
}

func TestLibraryRegistry(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{artist: "test", dataDir: dir}
	writeCatalog(t, dir, "test", []Song{uniqueWordSong()})

	registry := newLibraryRegistry(cfg)

	lib := registry.get("test")
	require.NotNil(t, lib)
	assert.Equal(t, 1, lib.countSongs())

	// Cached: same instance on repeat lookups, and the empty ID selects the
	// configured default artist.
	assert.Same(t, lib, registry.get("test"))
	assert.Same(t, lib, registry.get(""))

	assert.Equal(t, 0, registry.get("unknown").countSongs())
}
