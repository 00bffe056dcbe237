// internal/game/types.go
//
// Core type definitions for the game engine.
// Defines:
//   - Mark: per-letter feedback of a guess (exact/present/absent).
//   - Status: engine state (loading/playing/won/lost/errored).
//   - Snapshot/Row: read-only render view of an engine.

package game

import "errors"

// TotalAttempts is the number of guesses a round allows.
const TotalAttempts = 5

// DefaultWordLength is the word length a new game starts with.
const DefaultWordLength = 5

// Mark is the feedback for a single letter of a guess.
//   - "exact":   right letter, right position.
//   - "present": letter occurs somewhere in the target.
//   - "absent":  letter does not occur in the target.
type Mark string

const (
	MarkExact   Mark = "exact"
	MarkPresent Mark = "present"
	MarkAbsent  Mark = "absent"
)

// Status is the state of the engine's state machine.
type Status string

const (
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusErrored Status = "errored"
)

// Terminal reports whether the round is over (won or lost).
func (s Status) Terminal() bool { return s == StatusWon || s == StatusLost }

// ErrStaleFetch is returned by Engine.Resolve when the result belongs to a
// fetch that a later reset superseded. The result is discarded.
var ErrStaleFetch = errors.New("stale fetch ignored")

// ErrWordLength is recorded when a fetched word does not match the
// requested length.
var ErrWordLength = errors.New("fetched word has wrong length")

// FetchRequest identifies one word fetch: the length to fetch and the
// generation token the result must carry back to Engine.Resolve.
type FetchRequest struct {
	Token  uint64 `json:"token"`
	Length int    `json:"length"`
}

// Row is one submitted guess with its feedback.
type Row struct {
	Word  string `json:"word"`
	Marks []Mark `json:"marks"`
}

// Snapshot is what a front end needs to draw the board.
type Snapshot struct {
	Status            Status `json:"status"`
	WordLength        int    `json:"wordLength"`
	Rows              []Row  `json:"rows"`
	Current           string `json:"current"`
	ShowCurrent       bool   `json:"showCurrent"`
	BlankRows         int    `json:"blankRows"`
	AttemptsRemaining int    `json:"attemptsRemaining"`
	Message           string `json:"message,omitempty"`
	Answer            string `json:"answer,omitempty"` // set only once lost
	Error             string `json:"error,omitempty"`
	Token             uint64 `json:"token"`
}
