// internal/httpserver/routes_game.go
//
// HTTP routes for playing a game. Every route except /game/new needs the
// session token issued by /game/new.
//   - POST /game/new     → start a session (closes the caller's previous one)
//   - GET  /game/state   → current snapshot
//   - POST /game/key     → apply one key: a letter, "Backspace"/"Delete", "Enter"
//   - POST /game/guess   → type and submit a whole word
//   - POST /game/length  → change word length (resets the round)
//   - POST /game/reset   → new round / retry after a failed fetch
//
// Disallowed input is not an error: the response reports accepted=false and
// the unchanged state.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/wordle/apps/wordgame/internal/game"
)

// mountGame registers all /game routes except the WebSocket.
func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/game/state", s.handleState)
		r.Post("/game/key", s.handleKey)
		r.Post("/game/guess", s.handleGuess)
		r.Post("/game/length", s.handleLength)
		r.Post("/game/reset", s.handleReset)
	})
}

// newGameReq is the optional body of POST /game/new.
type newGameReq struct {
	Length int `json:"length"`
}

// newGameRes is returned by POST /game/new.
type newGameRes struct {
	GameID    string        `json:"gameId"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	State     game.Snapshot `json:"state"`
}

// stateRes is returned by every session-scoped route.
type stateRes struct {
	GameID   string        `json:"gameId"`
	Accepted bool          `json:"accepted"`
	State    game.Snapshot `json:"state"`
}

type keyReq struct {
	Key string `json:"key"`
}

type guessReq struct {
	Word string `json:"word"`
}

type lengthReq struct {
	Length int `json:"length"`
}

// handleNewGame creates a session, starts its first fetch and issues the
// session token. An existing session of the caller is closed first.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	req := newGameReq{Length: s.cfg.DefaultLength}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json")
			return
		}
		if req.Length == 0 {
			req.Length = s.cfg.DefaultLength
		}
	}

	if tok := s.tokenFrom(r); tok != "" {
		if oldID, err := s.parseToken(tok); err == nil {
			_ = s.store.Delete(r.Context(), oldID)
		}
	}

	logger := hlog.FromRequest(r)
	sess := game.NewSession(s.base, s.provider, req.Length, game.WithLogger(*logger))
	if err := s.store.Save(r.Context(), sess); err != nil {
		logger.Error().Err(err).Msg("save session")
		sess.Close()
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	tok, exp, err := s.signToken(sess.ID)
	if err != nil {
		logger.Error().Err(err).Msg("sign session token")
		_ = s.store.Delete(r.Context(), sess.ID)
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	logger.Info().Str("gameId", sess.ID).Int("length", req.Length).Msg("game created")

	writeJSON(w, http.StatusOK, newGameRes{GameID: sess.ID, Token: tok, ExpiresAt: exp, State: sess.Snapshot()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, stateRes{GameID: sess.ID, Accepted: true, State: sess.Snapshot()})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess := sessionFrom(r)
	snap, ok := sess.Press(req.Key)
	writeJSON(w, http.StatusOK, stateRes{GameID: sess.ID, Accepted: ok, State: snap})
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess := sessionFrom(r)
	snap, ok := sess.Guess(req.Word)
	writeJSON(w, http.StatusOK, stateRes{GameID: sess.ID, Accepted: ok, State: snap})
}

func (s *Server) handleLength(w http.ResponseWriter, r *http.Request) {
	var req lengthReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess := sessionFrom(r)
	snap := sess.ChangeWordLength(req.Length)
	writeJSON(w, http.StatusOK, stateRes{GameID: sess.ID, Accepted: true, State: snap})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, stateRes{GameID: sess.ID, Accepted: true, State: sess.Reset()})
}
