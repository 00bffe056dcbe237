// internal/game/engine.go
//
// State machine for a single player's game.
// Responsibilities:
//   - Accept letter/delete/submit commands while playing; ignore them otherwise.
//   - Enforce the attempt limit and detect won/lost.
//   - Compute per-letter feedback on demand.
//   - Reset rounds (explicitly or on word-length change) and hand out a
//     generation-tagged FetchRequest for the new target word.
//
// The engine never performs I/O. Whoever drives it runs the FetchRequest and
// reports the outcome through Resolve; results carrying an old token are
// discarded. Engine is not safe for concurrent use; see Session.
package game

import (
	"fmt"
	"strings"
)

// Engine holds all state of one game.
type Engine struct {
	wordLength int
	target     string
	guesses    []string
	current    []byte
	status     Status
	token      uint64
	errMsg     string
}

// NewEngine returns an engine in the loading state together with the
// request for its first word.
func NewEngine(wordLength int) (*Engine, FetchRequest) {
	e := &Engine{wordLength: wordLength}
	return e, e.Reset()
}

// Status returns the current state.
func (e *Engine) Status() Status { return e.status }

// WordLength returns the configured word length.
func (e *Engine) WordLength() int { return e.wordLength }

// Target returns the committed target word, empty while loading or errored.
func (e *Engine) Target() string { return e.target }

// Token returns the generation token of the latest fetch.
func (e *Engine) Token() uint64 { return e.token }

// Guesses returns a copy of the submitted guesses.
func (e *Engine) Guesses() []string { return append([]string(nil), e.guesses...) }

// Current returns the guess being typed.
func (e *Engine) Current() string { return string(e.current) }

// Reset discards the round and returns the request for a new word of the
// current length.
func (e *Engine) Reset() FetchRequest {
	e.token++
	e.guesses = nil
	e.current = e.current[:0]
	e.target = ""
	e.errMsg = ""
	e.status = StatusLoading
	return FetchRequest{Token: e.token, Length: e.wordLength}
}

// ChangeWordLength switches the word length. It is accepted in every state
// and always resets, discarding any progress in the current round.
func (e *Engine) ChangeWordLength(n int) FetchRequest {
	e.wordLength = n
	return e.Reset()
}

// Resolve applies the outcome of the fetch identified by token.
//
//   - A token other than the latest returns ErrStaleFetch and changes nothing.
//   - A fetch error moves the engine to errored.
//   - A word of the wrong length moves the engine to errored.
//   - Otherwise the word becomes the target and play starts.
func (e *Engine) Resolve(token uint64, word string, fetchErr error) error {
	if token != e.token || e.status != StatusLoading {
		return ErrStaleFetch
	}
	if fetchErr != nil {
		e.status = StatusErrored
		e.errMsg = fetchErr.Error()
		return nil
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if len(word) != e.wordLength || !isAlpha(word) {
		e.status = StatusErrored
		e.errMsg = fmt.Errorf("%w: %q for length %d", ErrWordLength, word, e.wordLength).Error()
		return nil
	}
	e.target = word
	e.status = StatusPlaying
	return nil
}

// AppendLetter adds ch to the current guess. Ignored unless playing, ch is an
// ASCII letter and the guess is not yet full.
func (e *Engine) AppendLetter(ch rune) bool {
	if e.status != StatusPlaying || len(e.current) >= e.wordLength {
		return false
	}
	switch {
	case ch >= 'a' && ch <= 'z':
	case ch >= 'A' && ch <= 'Z':
		ch += 'a' - 'A'
	default:
		return false
	}
	e.current = append(e.current, byte(ch))
	return true
}

// DeleteLastLetter removes the last letter of the current guess.
func (e *Engine) DeleteLastLetter() bool {
	if e.status != StatusPlaying || len(e.current) == 0 {
		return false
	}
	e.current = e.current[:len(e.current)-1]
	return true
}

// SubmitGuess commits the current guess when it is full. A guess equal to
// the target wins; the TotalAttempts-th non-matching guess loses.
func (e *Engine) SubmitGuess() bool {
	if e.status != StatusPlaying || len(e.current) != e.wordLength {
		return false
	}
	guess := string(e.current)
	e.guesses = append(e.guesses, guess)
	e.current = e.current[:0]

	switch {
	case guess == e.target:
		e.status = StatusWon
	case len(e.guesses) >= TotalAttempts:
		e.status = StatusLost
	}
	return true
}

// ApplyKey maps an abstract key name to a command: "Enter" submits,
// "Backspace"/"Delete" delete, a single letter is appended. Anything else
// is ignored.
func (e *Engine) ApplyKey(key string) bool {
	switch key {
	case "Enter":
		return e.SubmitGuess()
	case "Backspace", "Delete":
		return e.DeleteLastLetter()
	}
	if len(key) != 1 {
		return false
	}
	return e.AppendLetter(rune(key[0]))
}

// EvaluateLetter classifies letter at position against the target.
// Duplicates are not counted: every occurrence of a letter that appears
// anywhere in the target is present (or exact).
func (e *Engine) EvaluateLetter(letter byte, position int) Mark {
	return evaluateLetter(e.target, letter, position)
}

// Evaluate returns the marks of every letter of guess.
func (e *Engine) Evaluate(guess string) []Mark {
	marks := make([]Mark, len(guess))
	for i := 0; i < len(guess); i++ {
		marks[i] = evaluateLetter(e.target, guess[i], i)
	}
	return marks
}

func evaluateLetter(target string, letter byte, position int) Mark {
	if position >= 0 && position < len(target) && target[position] == letter {
		return MarkExact
	}
	if strings.IndexByte(target, letter) >= 0 {
		return MarkPresent
	}
	return MarkAbsent
}

// Snapshot builds the render view. Feedback is recomputed for every row.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Status:            e.status,
		WordLength:        e.wordLength,
		Rows:              make([]Row, 0, len(e.guesses)),
		Current:           string(e.current),
		AttemptsRemaining: TotalAttempts - len(e.guesses),
		Token:             e.token,
	}
	for _, g := range e.guesses {
		s.Rows = append(s.Rows, Row{Word: g, Marks: e.Evaluate(g)})
	}

	switch e.status {
	case StatusLoading, StatusPlaying:
		s.ShowCurrent = true
		s.BlankRows = TotalAttempts - len(e.guesses) - 1
	case StatusWon:
		n := len(e.guesses)
		noun := "attempts"
		if n == 1 {
			noun = "attempt"
		}
		s.Message = fmt.Sprintf("Congratulations! You won in %d %s!", n, noun)
	case StatusLost:
		s.Answer = e.target
		s.Message = "Game Over! The word was " + e.target
	case StatusErrored:
		s.Error = e.errMsg
		s.Message = "Failed to fetch word. Please try again."
	}
	return s
}

// isAlpha reports whether s consists only of lowercase a–z.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
