// Lyricbox game API
//
// Two game modes, both played against a single artist's catalog:
// - word_guessing: five rounds of fill-in-the-blank on a lyric excerpt.
//   The hidden word is validated to be unambiguous within its song.
// - song_name: guess the title from shuffled lyric chunks; every miss
//   reveals another chunk.
//
// Features:
// - Sessions keyed by 8-char crypto/rand IDs, swept by an age-based reaper
// - Guess/hint/pass/reveal lifecycle with per-round scoring and recaps
// - Hints cost guesses (2 for letter count, title, or first letter; 3 to
//   reveal the song), and can fail the round by exhausting them
// - Per-session WebSocket feed pushing state after every mutation
// - In-browser QR button to share a session URL, backed by go-qrcode

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type StartGameRequest struct {
	Mode            string `json:"mode"`
	ArtistID        string `json:"artist_id,omitempty"`
	MinVisibleWords int    `json:"min_visible_words,omitempty"`
	Difficulty      int    `json:"difficulty,omitempty"`
}

type StartGameResponse struct {
	SessionID    string `json:"session_id"`
	Mode         string `json:"mode"`
	Phrase       string `json:"phrase"`
	WordType     string `json:"word_type,omitempty"`
	MaxGuesses   int    `json:"max_guesses"`
	CurrentRound int    `json:"current_round"`
	TotalRounds  int    `json:"total_rounds"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
	Guess     string `json:"guess,omitempty"`
}

type StatsResponse struct {
	TotalSongs     int `json:"total_songs"`
	ActiveSessions int `json:"active_sessions"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serveStartGame(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req StartGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
			return
		}

		if req.MinVisibleWords < 1 {
			req.MinVisibleWords = 5
		}

		var (
			sess *GameSession
			err  error
		)

		if req.Mode == string(modeSongName) {
			sess, err = store.startSongNameGame(req.ArtistID)
		} else {
			sess, err = store.startWordGame(req.ArtistID, req.MinVisibleWords, req.Difficulty)
		}

		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Detail: "unable to create a game; check that lyrics are loaded",
			})
			return
		}

		writeJSON(w, http.StatusOK, StartGameResponse{
			SessionID:    sess.id,
			Mode:         string(sess.mode),
			Phrase:       sess.phrase,
			WordType:     string(sess.kind),
			MaxGuesses:   maxGuesses,
			CurrentRound: sess.currentRound,
			TotalRounds:  sess.totalRounds,
		})

		logf(cfg, "GAMES: Started %s session %s for %s in %s",
			sess.mode,
			sess.id,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// writeOutcome maps session-machine results onto HTTP: unknown sessions are
// 404s, everything else (including the benign game-already-over error) is a
// 200 carrying the outcome.
func writeOutcome(w http.ResponseWriter, o Outcome, err error) {
	if errors.Is(err, errSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "session not found"})
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func serveGuess(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
			return
		}

		o, err := store.guess(req.SessionID, req.Guess)
		writeOutcome(w, o, err)
	}
}

func serveRoundPass(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
			return
		}

		o, err := store.passRound(req.SessionID)
		writeOutcome(w, o, err)
	}
}

func serveReveal(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
			return
		}

		o, err := store.revealSong(req.SessionID)
		writeOutcome(w, o, err)
	}
}

func serveHint(cfg *Config, store *SessionStore, kind hintKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
			return
		}

		o, err := store.hint(req.SessionID, kind)
		writeOutcome(w, o, err)
	}
}

func serveSessionState(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		state, err := store.get(ps.ByName("sessionid"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: "session not found"})
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}

func serveStats(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, StatsResponse{
			TotalSongs:     store.registry.get("").countSongs(),
			ActiveSessions: store.activeSessions(),
		})
	}
}

func serveArtists(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string][]Artist{
			"artists": availableArtists(cfg),
		})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveSessionSocket streams state snapshots for one session over a
// websocket, so a second screen can follow along.
func serveSessionSocket(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("sessionid")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Websocket upgrade failed: %v", err)
			return
		}

		send := make(chan SessionSnapshot, 8)
		if !store.addWatcher(sessionID, send) {
			_ = conn.WriteJSON(errorResponse{Detail: "session not found"})
			_ = conn.Close()
			return
		}

		go func() {
			defer conn.Close()

			for snap := range send {
				if err := conn.WriteJSON(snap); err != nil {
					return
				}
			}
		}()

		// Inbound messages are ignored; the read loop only detects
		// disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		store.removeWatcher(sessionID, send)
		_ = conn.Close()
	}
}

// serveSessionQR renders a PNG QR code pointing back at this session, for
// moving a game to another device.
func serveSessionQR(cfg *Config, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("sessionid")
		if _, err := store.get(sessionID); err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: "session not found"})
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/?session=" + sessionID

		png, err := qrcode.Encode(url, qrcode.Medium, 320)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// registerGameAPI sets up the game routes and starts the session reaper.
func registerGameAPI(cfg *Config, store *SessionStore, mux *httprouter.Router) {
	base := strings.TrimSuffix(cfg.prefix, "/") + "/api/game"

	mux.POST(base+"/start", serveStartGame(cfg, store))
	mux.POST(base+"/guess", serveGuess(cfg, store))
	mux.POST(base+"/pass", serveRoundPass(cfg, store))
	mux.POST(base+"/reveal", serveReveal(cfg, store))
	mux.POST(base+"/hint/letter-count", serveHint(cfg, store, hintLetterCount))
	mux.POST(base+"/hint/song-title", serveHint(cfg, store, hintSongTitle))
	mux.POST(base+"/hint/first-letter", serveHint(cfg, store, hintFirstLetter))
	mux.GET(base+"/session/:sessionid", serveSessionState(cfg, store))
	mux.GET(base+"/session/:sessionid/ws", serveSessionSocket(cfg, store))
	mux.GET(base+"/session/:sessionid/qr", serveSessionQR(cfg, store))
	mux.GET(base+"/stats", serveStats(cfg, store))
	mux.GET(base+"/artists", serveArtists(cfg))

	if cfg.sessionTimeout > 0 {
		go store.reaperLoop(cfg.cleanupInterval, cfg.sessionTimeout)
	}
}
