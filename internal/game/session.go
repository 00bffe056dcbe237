// internal/game/session.go
//
// Session drives one Engine asynchronously.
// Responsibilities:
//   - Run each FetchRequest on its own goroutine and feed the result back
//     through Engine.Resolve.
//   - Cancel the previous fetch when a reset issues a new one; a late result
//     is still discarded by its generation token.
//   - Serialise every engine access behind one mutex.
//   - Publish snapshots to subscribers (latest-wins, never blocking).
//   - Record metrics and structured logs for round/fetch lifecycle events.

package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/wordgame/internal/metrics"
)

// Fetcher supplies target words. words.Provider implements it.
type Fetcher interface {
	FetchWord(ctx context.Context, length int) (string, error)
}

// Session is safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	eng        *Engine
	fetcher    Fetcher
	ctx        context.Context
	stop       context.CancelFunc
	cancel     context.CancelFunc // cancels the in-flight fetch
	wg         sync.WaitGroup
	subs       map[int]chan Snapshot
	nextSub    int
	closed     bool
	lastActive time.Time
	log        zerolog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithID overrides the random session ID.
func WithID(id string) SessionOption {
	return func(s *Session) { s.ID = id }
}

// WithLogger sets the base logger; the session ID is added as a field.
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// NewSession creates a session for wordLength and starts the first fetch.
// Cancelling ctx cancels any fetch in flight.
func NewSession(ctx context.Context, f Fetcher, wordLength int, opts ...SessionOption) *Session {
	ctx, stop := context.WithCancel(ctx)
	s := &Session{
		ID:         randomID(),
		fetcher:    f,
		ctx:        ctx,
		stop:       stop,
		subs:       make(map[int]chan Snapshot),
		lastActive: time.Now(),
		log:        log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("session", s.ID).Logger()

	eng, req := NewEngine(wordLength)
	s.eng = eng
	metrics.SessionsActive.Inc()

	s.mu.Lock()
	s.startFetchLocked(req)
	s.mu.Unlock()
	return s
}

// Snapshot returns the current render view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Snapshot()
}

// Target returns the committed target word (empty unless a word arrived).
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Target()
}

// Touch marks the session active without changing it. Push connections call
// it on keepalives so a player who is only watching is not swept.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive reports when the session last handled a command, gained a
// subscriber or was touched.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Press applies an abstract key ("Enter", "Backspace", "Delete" or a
// letter). The bool reports whether the key changed anything.
func (s *Session) Press(key string) (Snapshot, bool) {
	return s.command(func(e *Engine) bool { return e.ApplyKey(key) })
}

// Guess replaces the current input with word and submits it. Nothing changes
// unless the engine is playing and word is a full-length run of letters.
func (s *Session) Guess(word string) (Snapshot, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	return s.command(func(e *Engine) bool {
		if e.Status() != StatusPlaying || len(word) != e.WordLength() || !isAlpha(word) {
			return false
		}
		for e.DeleteLastLetter() {
		}
		for i := 0; i < len(word); i++ {
			e.AppendLetter(rune(word[i]))
		}
		return e.SubmitGuess()
	})
}

// ChangeWordLength resets the round with a new word length. Any progress in
// the current round is dropped without confirmation.
func (s *Session) ChangeWordLength(n int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.eng.WordLength()
	req := s.eng.ChangeWordLength(n)
	s.log.Info().Int("from", from).Int("to", n).Uint64("token", req.Token).Msg("word length changed")
	return s.restartLocked(req)
}

// Reset starts a new round with the current word length. It is also the
// retry action after a failed fetch.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.eng.Reset()
	s.log.Info().Int("length", req.Length).Uint64("token", req.Token).Msg("round reset")
	return s.restartLocked(req)
}

// Subscribe returns a channel receiving every published snapshot. Slow
// readers only see the latest one. The returned func unsubscribes and
// closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.lastActive = time.Now()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Wait blocks until every fetch goroutine started so far has finished.
func (s *Session) Wait() { s.wg.Wait() }

// Close cancels any fetch in flight, closes subscriber channels and waits
// for fetch goroutines to exit. Calling it again is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stop()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.wg.Wait()
	metrics.SessionsActive.Dec()
	s.log.Debug().Msg("session closed")
}

// command runs fn under the lock, then records metrics and publishes when
// fn reports a change.
func (s *Session) command(fn func(*Engine) bool) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	before := len(s.eng.guesses)
	ok := fn(s.eng)
	snap := s.eng.Snapshot()
	if !ok {
		return snap, false
	}

	if len(s.eng.guesses) > before {
		metrics.GuessesTotal.Inc()
		if st := s.eng.Status(); st.Terminal() {
			metrics.RoundsFinished.WithLabelValues(metrics.Length(s.eng.WordLength()), string(st)).Inc()
			s.log.Info().
				Str("outcome", string(st)).
				Int("length", s.eng.WordLength()).
				Int("guesses", len(s.eng.guesses)).
				Msg("round finished")
		}
	}
	s.publishLocked(snap)
	return snap, true
}

func (s *Session) restartLocked(req FetchRequest) Snapshot {
	s.lastActive = time.Now()
	s.startFetchLocked(req)
	snap := s.eng.Snapshot()
	s.publishLocked(snap)
	return snap
}

func (s *Session) startFetchLocked(req FetchRequest) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.closed {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.fetch(ctx, req)
}

func (s *Session) fetch(ctx context.Context, req FetchRequest) {
	defer s.wg.Done()
	start := time.Now()
	word, err := s.fetcher.FetchWord(ctx, req.Length)
	elapsed := time.Since(start).Seconds()
	length := metrics.Length(req.Length)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if rerr := s.eng.Resolve(req.Token, word, err); errors.Is(rerr, ErrStaleFetch) {
		metrics.StaleFetches.Inc()
		metrics.FetchDuration.WithLabelValues(length, "stale").Observe(elapsed)
		s.log.Debug().Uint64("token", req.Token).Int("length", req.Length).Msg("stale fetch ignored")
		return
	}

	snap := s.eng.Snapshot()
	if snap.Status == StatusErrored {
		metrics.FetchDuration.WithLabelValues(length, "error").Observe(elapsed)
		s.log.Warn().Err(err).Int("length", req.Length).Str("detail", snap.Error).Msg("word fetch failed")
	} else {
		metrics.FetchDuration.WithLabelValues(length, "ok").Observe(elapsed)
		metrics.RoundsStarted.WithLabelValues(length).Inc()
		s.log.Info().Int("length", req.Length).Uint64("token", req.Token).Msg("round started")
	}
	s.publishLocked(snap)
}

// publishLocked hands snap to every subscriber, replacing an unread one.
func (s *Session) publishLocked(snap Snapshot) {
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
