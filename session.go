package main

import (
	"crypto/rand"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	mathrand "math/rand/v2"
)

type gameMode string

const (
	modeWordGuessing gameMode = "word_guessing"
	modeSongName     gameMode = "song_name"
)

const (
	wordGameRounds    = 5
	songNameChunkSize = 6
	recapContextWords = 20

	revealCost = 3
	hintCost   = 2
)

// RoundResult records one concluded round for the end-of-game recap.
// Appended, never mutated.
type RoundResult struct {
	Round     int    `json:"round"`
	Answer    string `json:"answer"`
	SongTitle string `json:"song_title"`
	Context   string `json:"context"`
	Points    int    `json:"points"`
	Success   bool   `json:"success"`
}

// GameSession is one player's game. Mutated only through SessionStore
// operations, under the store lock.
type GameSession struct {
	id   string
	mode gameMode
	lib  *Library

	song   *Song
	answer string
	phrase string
	kind   puzzleKind // word-guessing mode only

	guessesRemaining int
	guessesMade      []string
	hintsRevealed    int
	allHints         []string

	currentRound    int
	totalRounds     int
	cumulativeScore int
	minVisibleWords int
	difficulty      int

	startTime      time.Time
	roundStartTime time.Time

	gameOver     bool
	correct      bool
	roundResults []RoundResult
}

// Outcome is the flat result of a session operation. Not every field is
// populated by every operation.
type Outcome struct {
	Correct          bool          `json:"correct"`
	GameOver         bool          `json:"game_over"`
	GuessesRemaining int           `json:"guesses_remaining"`
	Passed           bool          `json:"passed,omitempty"`
	Revealed         bool          `json:"revealed,omitempty"`
	RoundComplete    bool          `json:"round_complete,omitempty"`
	RoundFailed      bool          `json:"round_failed,omitempty"`
	CurrentRound     int           `json:"current_round,omitempty"`
	TotalRounds      int           `json:"total_rounds,omitempty"`
	RoundScore       int           `json:"round_score"`
	CumulativeScore  int           `json:"cumulative_score"`
	PointsEarned     int           `json:"points_earned,omitempty"`
	TimeSeconds      float64       `json:"time_seconds,omitempty"`
	CorrectAnswer    string        `json:"correct_answer,omitempty"`
	SongTitle        string        `json:"song_title,omitempty"`
	AnswerContext    string        `json:"answer_context,omitempty"`
	NewPhrase        string        `json:"new_phrase,omitempty"`
	NewWordType      string        `json:"new_word_type,omitempty"`
	Hint             string        `json:"hint,omitempty"`
	HintType         string        `json:"hint_type,omitempty"`
	Phrase           string        `json:"phrase,omitempty"`
	RoundResults     []RoundResult `json:"round_results,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// SessionState is the read-only view served by the session endpoint.
type SessionState struct {
	SessionID        string `json:"session_id"`
	Mode             string `json:"mode"`
	Phrase           string `json:"phrase"`
	WordType         string `json:"word_type,omitempty"`
	GuessesRemaining int    `json:"guesses_remaining"`
	GameOver         bool   `json:"game_over"`
}

// SessionSnapshot is pushed to websocket watchers after every mutation.
type SessionSnapshot struct {
	SessionID        string `json:"session_id"`
	Mode             string `json:"mode"`
	Phrase           string `json:"phrase"`
	CurrentRound     int    `json:"current_round"`
	TotalRounds      int    `json:"total_rounds"`
	GuessesRemaining int    `json:"guesses_remaining"`
	CumulativeScore  int    `json:"cumulative_score"`
	GameOver         bool   `json:"game_over"`
}

// SessionStore owns all active sessions. One store per process, handed to
// every handler.
type SessionStore struct {
	mu       sync.Mutex
	cfg      *Config
	registry *libraryRegistry
	sessions map[string]*GameSession
	watchers map[string]map[chan SessionSnapshot]struct{}
}

func newSessionStore(cfg *Config, registry *libraryRegistry) *SessionStore {
	return &SessionStore{
		cfg:      cfg,
		registry: registry,
		sessions: make(map[string]*GameSession),
		watchers: make(map[string]map[chan SessionSnapshot]struct{}),
	}
}

// newSessionID generates a crypto-random 8-char ID, retrying on the
// (unlikely) collision with a live session. Caller must hold s.mu.
func (s *SessionStore) newSessionID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := s.sessions[id]; !exists {
			return id
		}
	}
}

// startWordGame begins a five-round word-guessing game. difficulty 0 draws
// from the artist's whole catalog.
func (s *SessionStore) startWordGame(artistID string, minVisibleWords, difficulty int) (*GameSession, error) {
	lib := s.registry.get(artistID)

	puzzle := generateWordPuzzle(lib, minVisibleWords, difficulty)
	if puzzle == nil {
		return nil, errNoPuzzle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess := &GameSession{
		id:               s.newSessionID(),
		mode:             modeWordGuessing,
		lib:              lib,
		song:             puzzle.song,
		answer:           puzzle.answer,
		phrase:           puzzle.phrase,
		kind:             puzzle.kind,
		guessesRemaining: maxGuesses,
		currentRound:     1,
		totalRounds:      wordGameRounds,
		minVisibleWords:  minVisibleWords,
		difficulty:       difficulty,
		startTime:        now,
		roundStartTime:   now,
	}

	s.sessions[sess.id] = sess
	logf(s.cfg, "GAMES: Started word game %s (%s, round 1/%d)", sess.id, sess.song.Title, sess.totalRounds)

	return sess, nil
}

// startSongNameGame begins a single-round title-guessing game: lyric chunks
// are shuffled and revealed one at a time as hints.
func (s *SessionStore) startSongNameGame(artistID string) (*GameSession, error) {
	lib := s.registry.get(artistID)

	song := lib.randomSong()
	if song == nil {
		return nil, errNoPuzzle
	}

	chunks := splitIntoChunks(song.FullText, songNameChunkSize)
	if len(chunks) == 0 {
		return nil, errNoPuzzle
	}

	mathrand.Shuffle(len(chunks), func(i, j int) {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess := &GameSession{
		id:               s.newSessionID(),
		mode:             modeSongName,
		lib:              lib,
		song:             song,
		answer:           song.Title,
		phrase:           chunks[0],
		allHints:         chunks,
		hintsRevealed:    1,
		guessesRemaining: maxGuesses,
		currentRound:     1,
		totalRounds:      1,
		startTime:        now,
		roundStartTime:   now,
	}

	s.sessions[sess.id] = sess
	logf(s.cfg, "GAMES: Started song-name game %s (%s)", sess.id, song.Title)

	return sess, nil
}

// get returns the read-only state of a session.
func (s *SessionStore) get(sessionID string) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return SessionState{}, errSessionNotFound
	}

	return SessionState{
		SessionID:        sess.id,
		Mode:             string(sess.mode),
		Phrase:           sess.phrase,
		WordType:         string(sess.kind),
		GuessesRemaining: sess.guessesRemaining,
		GameOver:         sess.gameOver,
	}, nil
}

// guess submits an answer for the current round.
func (s *SessionStore) guess(sessionID, guess string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{Error: "session not found", GameOver: true}, errSessionNotFound
	}
	if sess.gameOver {
		return Outcome{
			Error:         "game already over",
			GameOver:      true,
			CorrectAnswer: sess.answer,
			SongTitle:     sess.song.Title,
		}, errGameOver
	}

	sess.guessesMade = append(sess.guessesMade, guess)
	sess.guessesRemaining--

	if wordsMatch(guess, sess.answer) {
		return s.concludeCorrectLocked(sess), nil
	}

	if sess.guessesRemaining <= 0 {
		o := s.concludeFailedLocked(sess)
		s.notifyWatchersLocked(sess)
		return o, nil
	}

	// Still alive: in song-name mode each miss reveals another lyric chunk.
	o := Outcome{
		Correct:          false,
		GameOver:         false,
		GuessesRemaining: sess.guessesRemaining,
		CurrentRound:     sess.currentRound,
		TotalRounds:      sess.totalRounds,
		Phrase:           sess.phrase,
	}

	if sess.mode == modeSongName && sess.hintsRevealed < len(sess.allHints) {
		sess.hintsRevealed++
		sess.phrase = strings.Join(sess.allHints[:sess.hintsRevealed], " / ")
		o.Hint = sess.phrase
		o.Phrase = sess.phrase
	}

	s.notifyWatchersLocked(sess)

	return o, nil
}

// concludeCorrectLocked scores a solved round, records it, and advances or
// finishes the game.
func (s *SessionStore) concludeCorrectLocked(sess *GameSession) Outcome {
	elapsed := time.Since(sess.startTime).Seconds()
	roundScore := calculateScore(true, len(sess.guessesMade), elapsed)
	sess.cumulativeScore += roundScore

	answer := sess.answer
	songTitle := sess.song.Title
	context := answerContext(sess.song, sess.answer, recapContextWords)

	sess.roundResults = append(sess.roundResults, RoundResult{
		Round:     sess.currentRound,
		Answer:    answer,
		SongTitle: songTitle,
		Context:   context,
		Points:    roundScore,
		Success:   true,
	})

	if s.advanceRoundLocked(sess) {
		o := Outcome{
			Correct:          true,
			RoundComplete:    true,
			GameOver:         false,
			CurrentRound:     sess.currentRound,
			TotalRounds:      sess.totalRounds,
			RoundScore:       roundScore,
			CumulativeScore:  sess.cumulativeScore,
			NewPhrase:        sess.phrase,
			NewWordType:      string(sess.kind),
			GuessesRemaining: sess.guessesRemaining,
			CorrectAnswer:    answer,
			SongTitle:        songTitle,
			AnswerContext:    context,
		}
		s.notifyWatchersLocked(sess)
		return o
	}

	sess.gameOver = true
	sess.correct = true

	o := Outcome{
		Correct:          true,
		GameOver:         true,
		RoundComplete:    true,
		GuessesRemaining: sess.guessesRemaining,
		PointsEarned:     sess.cumulativeScore,
		RoundScore:       roundScore,
		CumulativeScore:  sess.cumulativeScore,
		CorrectAnswer:    answer,
		SongTitle:        songTitle,
		AnswerContext:    context,
		TimeSeconds:      roundSeconds(sess.startTime),
		CurrentRound:     sess.currentRound,
		TotalRounds:      sess.totalRounds,
		RoundResults:     sess.roundResults,
	}
	s.notifyWatchersLocked(sess)
	return o
}

// concludeFailedLocked records a lost round (no guesses left) and advances
// or finishes the game.
func (s *SessionStore) concludeFailedLocked(sess *GameSession) Outcome {
	answer := sess.answer
	songTitle := sess.song.Title
	context := answerContext(sess.song, sess.answer, recapContextWords)

	sess.roundResults = append(sess.roundResults, RoundResult{
		Round:     sess.currentRound,
		Answer:    answer,
		SongTitle: songTitle,
		Context:   context,
		Points:    0,
		Success:   false,
	})

	if s.advanceRoundLocked(sess) {
		return Outcome{
			Correct:          false,
			RoundFailed:      true,
			GameOver:         false,
			CorrectAnswer:    answer,
			SongTitle:        songTitle,
			AnswerContext:    context,
			RoundScore:       0,
			CurrentRound:     sess.currentRound,
			TotalRounds:      sess.totalRounds,
			CumulativeScore:  sess.cumulativeScore,
			NewPhrase:        sess.phrase,
			NewWordType:      string(sess.kind),
			GuessesRemaining: sess.guessesRemaining,
		}
	}

	sess.gameOver = true

	return Outcome{
		Correct:          false,
		GameOver:         true,
		RoundFailed:      true,
		GuessesRemaining: 0,
		PointsEarned:     sess.cumulativeScore,
		CumulativeScore:  sess.cumulativeScore,
		CorrectAnswer:    answer,
		SongTitle:        songTitle,
		AnswerContext:    context,
		RoundScore:       0,
		TimeSeconds:      roundSeconds(sess.startTime),
		CurrentRound:     sess.currentRound,
		TotalRounds:      sess.totalRounds,
		RoundResults:     sess.roundResults,
	}
}

// advanceRoundLocked moves a word-guessing session to its next round with a
// fresh puzzle. Returns false when no rounds remain, or when puzzle
// generation came up empty, in which case the game finishes early rather
// than leaving the session stuck.
func (s *SessionStore) advanceRoundLocked(sess *GameSession) bool {
	if sess.mode != modeWordGuessing || sess.currentRound >= sess.totalRounds {
		return false
	}

	sess.currentRound++

	puzzle := generateWordPuzzle(sess.lib, sess.minVisibleWords, sess.difficulty)
	if puzzle == nil {
		logf(s.cfg, "GAMES: No puzzle for %s round %d, ending game early", sess.id, sess.currentRound)
		return false
	}

	sess.song = puzzle.song
	sess.answer = puzzle.answer
	sess.phrase = puzzle.phrase
	sess.kind = puzzle.kind
	sess.guessesRemaining = maxGuesses
	sess.guessesMade = nil
	sess.roundStartTime = time.Now()

	return true
}

// passRound gives up on the current round. Counts as a failure (0 points)
// but does not consume a guess.
func (s *SessionStore) passRound(sessionID string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{Error: "session not found", GameOver: true}, errSessionNotFound
	}
	if sess.gameOver {
		return Outcome{Error: "game already over", GameOver: true}, errGameOver
	}

	o := s.concludeFailedLocked(sess)
	o.RoundFailed = false
	o.Passed = true
	s.notifyWatchersLocked(sess)

	return o, nil
}

// revealSong shows the song title at a cost of three guesses. The round's
// answer is still owed; if the cost exhausts the guesses the game ends.
func (s *SessionStore) revealSong(sessionID string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{Error: "session not found", GameOver: true}, errSessionNotFound
	}
	if sess.gameOver {
		return Outcome{Error: "game already over", GameOver: true}, errGameOver
	}

	sess.guessesRemaining = max(0, sess.guessesRemaining-revealCost)

	o := Outcome{
		Revealed:         true,
		SongTitle:        sess.song.Title,
		GuessesRemaining: sess.guessesRemaining,
		CurrentRound:     sess.currentRound,
		TotalRounds:      sess.totalRounds,
	}

	if sess.guessesRemaining <= 0 {
		sess.gameOver = true
		o.GameOver = true
		o.PointsEarned = sess.cumulativeScore
		o.CumulativeScore = sess.cumulativeScore
		o.TimeSeconds = roundSeconds(sess.startTime)
	}

	s.notifyWatchersLocked(sess)

	return o, nil
}

type hintKind string

const (
	hintLetterCount hintKind = "letter_count"
	hintSongTitle   hintKind = "song_title"
	hintFirstLetter hintKind = "first_letter"
)

func (s *SessionStore) hintLetterCount(sessionID string) (Outcome, error) {
	return s.hint(sessionID, hintLetterCount)
}

func (s *SessionStore) hintSongTitle(sessionID string) (Outcome, error) {
	return s.hint(sessionID, hintSongTitle)
}

func (s *SessionStore) hintFirstLetter(sessionID string) (Outcome, error) {
	return s.hint(sessionID, hintFirstLetter)
}

// hint reveals a hint at a cost of two guesses. Exhausting the guesses this
// way fails the round and advances or finishes the game, like a missed
// final guess.
func (s *SessionStore) hint(sessionID string, kind hintKind) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{Error: "session not found", GameOver: true}, errSessionNotFound
	}
	if sess.gameOver {
		return Outcome{Error: "game already over", GameOver: true}, errGameOver
	}

	var payload string
	switch kind {
	case hintLetterCount:
		payload = strconv.Itoa(len([]rune(sess.answer)))
	case hintSongTitle:
		payload = sess.song.Title
	case hintFirstLetter:
		if sess.answer != "" {
			payload = strings.ToUpper(string([]rune(sess.answer)[0]))
		}
	}

	sess.guessesRemaining = max(0, sess.guessesRemaining-hintCost)

	if sess.guessesRemaining <= 0 {
		o := s.concludeFailedLocked(sess)
		o.Hint = payload
		o.HintType = string(kind)
		s.notifyWatchersLocked(sess)
		return o, nil
	}

	o := Outcome{
		Hint:             payload,
		HintType:         string(kind),
		GameOver:         false,
		GuessesRemaining: sess.guessesRemaining,
		CurrentRound:     sess.currentRound,
		TotalRounds:      sess.totalRounds,
	}
	if kind == hintSongTitle {
		o.SongTitle = payload
	}

	s.notifyWatchersLocked(sess)

	return o, nil
}

// cleanupOldSessions removes sessions older than maxAge, measured from
// session start. Returns the number removed.
func (s *SessionStore) cleanupOldSessions(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, sess := range s.sessions {
		if sess.startTime.Before(cutoff) {
			delete(s.sessions, id)
			s.dropWatchersLocked(id)
			removed++
		}
	}

	return removed
}

func (s *SessionStore) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// reaperLoop periodically sweeps out sessions past the configured age.
func (s *SessionStore) reaperLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	for range ticker.C {
		if n := s.cleanupOldSessions(maxAge); n > 0 {
			logf(s.cfg, "GAMES: Reaped %d stale sessions", n)
		}
	}
}

// answerContext extracts the lyric lines around the answer's first
// occurrence: contextWords/2 words before, the rest after, snapped outward
// to whole lines. Falls back to the song's opening lines when the answer
// cannot be located.
func answerContext(song *Song, answer string, contextWords int) string {
	lines := strings.Split(song.FullText, "\n")
	normalizedAnswer := normalizeFrench(answer)

	var (
		allWords []string
		wordLine []int
	)
	for lineNum, line := range lines {
		for _, word := range strings.Fields(line) {
			allWords = append(allWords, word)
			wordLine = append(wordLine, lineNum)
		}
	}

	answerIdx := -1
	for i, word := range allWords {
		if normalizeFrench(word) == normalizedAnswer {
			answerIdx = i
			break
		}
	}

	fallback := strings.Join(lines[:min(5, len(lines))], "\n")
	if answerIdx == -1 {
		return fallback
	}

	before := contextWords / 2
	after := contextWords - before

	start := max(0, answerIdx-before)
	end := min(len(allWords), answerIdx+after+1)
	if end <= start {
		return fallback
	}

	return strings.Join(lines[wordLine[start]:wordLine[end-1]+1], "\n")
}

func roundSeconds(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*10) / 10
}

// --- websocket watcher plumbing ---

// addWatcher registers a snapshot channel for a session and primes it with
// the current state. Returns false for unknown sessions.
func (s *SessionStore) addWatcher(sessionID string, ch chan SessionSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	if s.watchers[sessionID] == nil {
		s.watchers[sessionID] = make(map[chan SessionSnapshot]struct{})
	}
	s.watchers[sessionID][ch] = struct{}{}

	select {
	case ch <- snapshotLocked(sess):
	default:
	}

	return true
}

func (s *SessionStore) removeWatcher(sessionID string, ch chan SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.watchers[sessionID]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(s.watchers, sessionID)
		}
	}
}

func (s *SessionStore) dropWatchersLocked(sessionID string) {
	for ch := range s.watchers[sessionID] {
		close(ch)
	}
	delete(s.watchers, sessionID)
}

// notifyWatchersLocked pushes the session's current state to its watchers,
// dropping any watcher too slow to keep up.
func (s *SessionStore) notifyWatchersLocked(sess *GameSession) {
	set := s.watchers[sess.id]
	if len(set) == 0 {
		return
	}

	snap := snapshotLocked(sess)

	for ch := range set {
		select {
		case ch <- snap:
		default:
			delete(set, ch)
			close(ch)
		}
	}
}

func snapshotLocked(sess *GameSession) SessionSnapshot {
	return SessionSnapshot{
		SessionID:        sess.id,
		Mode:             string(sess.mode),
		Phrase:           sess.phrase,
		CurrentRound:     sess.currentRound,
		TotalRounds:      sess.totalRounds,
		GuessesRemaining: sess.guessesRemaining,
		CumulativeScore:  sess.cumulativeScore,
		GameOver:         sess.gameOver,
	}
}
