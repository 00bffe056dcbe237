package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// fetchFunc adapts a function to Fetcher.
type fetchFunc func(ctx context.Context, length int) (string, error)

func (f fetchFunc) FetchWord(ctx context.Context, length int) (string, error) { return f(ctx, length) }

type fetchResult struct {
	word string
	err  error
}

type fetchCall struct {
	length int
	reply  chan fetchResult
}

// gatedFetcher parks every fetch until the test replies. It ignores
// cancellation so late results really do arrive late.
type gatedFetcher struct {
	calls chan fetchCall
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan fetchCall, 8)}
}

func (g *gatedFetcher) FetchWord(_ context.Context, length int) (string, error) {
	c := fetchCall{length: length, reply: make(chan fetchResult, 1)}
	g.calls <- c
	r := <-c.reply
	return r.word, r.err
}

func (g *gatedFetcher) next(t *testing.T) fetchCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch issued")
		return fetchCall{}
	}
}

func instant(word string) Fetcher {
	return fetchFunc(func(context.Context, int) (string, error) { return word, nil })
}

func TestSessionStartsPlayingAfterFetch(t *testing.T) {
	s := NewSession(context.Background(), instant("water"), 5)
	defer s.Close()
	s.Wait()

	snap := s.Snapshot()
	if snap.Status != StatusPlaying || snap.WordLength != 5 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if s.Target() != "water" {
		t.Errorf("target = %q", s.Target())
	}
}

func TestSessionRejectsInputWhileLoading(t *testing.T) {
	f := newGatedFetcher()
	s := NewSession(context.Background(), f, 5)
	defer s.Close()
	call := f.next(t)

	if _, ok := s.Press("a"); ok {
		t.Error("key accepted while loading")
	}
	if _, ok := s.Guess("water"); ok {
		t.Error("guess accepted while loading")
	}

	call.reply <- fetchResult{word: "water"}
	s.Wait()
	if snap, ok := s.Press("a"); !ok || snap.Current != "a" {
		t.Errorf("key after load: ok=%v current=%q", ok, snap.Current)
	}
}

func TestSessionDiscardsStaleFetch(t *testing.T) {
	f := newGatedFetcher()
	s := NewSession(context.Background(), f, 5)
	defer s.Close()

	five := f.next(t)
	if five.length != 5 {
		t.Fatalf("first fetch length = %d", five.length)
	}
	s.ChangeWordLength(6)
	six := f.next(t)
	if six.length != 6 {
		t.Fatalf("second fetch length = %d", six.length)
	}

	six.reply <- fetchResult{word: "people"}
	five.reply <- fetchResult{word: "water"}
	s.Wait()

	snap := s.Snapshot()
	if snap.Status != StatusPlaying || snap.WordLength != 6 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if s.Target() != "people" {
		t.Errorf("target = %q, want people", s.Target())
	}
}

func TestSessionStaleArrivesFirst(t *testing.T) {
	f := newGatedFetcher()
	s := NewSession(context.Background(), f, 5)
	defer s.Close()

	five := f.next(t)
	s.ChangeWordLength(6)
	six := f.next(t)

	five.reply <- fetchResult{word: "water"}
	// the stale reply must leave the session loading
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if st := s.Snapshot().Status; st != StatusLoading {
			t.Fatalf("status = %s after stale reply, want loading", st)
		}
		time.Sleep(5 * time.Millisecond)
	}

	six.reply <- fetchResult{word: "people"}
	s.Wait()
	if s.Target() != "people" {
		t.Errorf("target = %q, want people", s.Target())
	}
}

func TestSessionFetchFailureThenRetry(t *testing.T) {
	f := newGatedFetcher()
	s := NewSession(context.Background(), f, 5)
	defer s.Close()

	f.next(t).reply <- fetchResult{err: errors.New("invalid word length: 5")}
	s.Wait()
	if snap := s.Snapshot(); snap.Status != StatusErrored || snap.Error == "" {
		t.Fatalf("snapshot = %+v", snap)
	}

	s.Reset()
	f.next(t).reply <- fetchResult{word: "house"}
	s.Wait()
	if snap := s.Snapshot(); snap.Status != StatusPlaying {
		t.Errorf("status after retry = %s", snap.Status)
	}
}

func TestSessionCancelsSupersededFetch(t *testing.T) {
	cancelled := make(chan int, 2)
	f := fetchFunc(func(ctx context.Context, length int) (string, error) {
		if length == 6 {
			return "people", nil
		}
		<-ctx.Done()
		cancelled <- length
		return "", ctx.Err()
	})
	s := NewSession(context.Background(), f, 5)
	defer s.Close()
	s.ChangeWordLength(6)
	s.Wait()

	select {
	case l := <-cancelled:
		if l != 5 {
			t.Errorf("cancelled length = %d", l)
		}
	default:
		t.Fatal("superseded fetch was not cancelled")
	}
	if snap := s.Snapshot(); snap.Status != StatusPlaying || snap.WordLength != 6 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSessionGuessAndPublish(t *testing.T) {
	f := newGatedFetcher()
	s := NewSession(context.Background(), f, 5)
	defer s.Close()
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	f.next(t).reply <- fetchResult{word: "water"}
	select {
	case snap := <-updates:
		if snap.Status != StatusPlaying {
			t.Fatalf("published status = %s", snap.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published after fetch")
	}

	if _, ok := s.Guess("wat3r"); ok {
		t.Error("non-letter guess accepted")
	}
	if _, ok := s.Guess("stone"); !ok {
		t.Fatal("guess rejected")
	}
	snap, ok := s.Guess("WATER")
	if !ok || snap.Status != StatusWon || len(snap.Rows) != 2 {
		t.Fatalf("ok=%v snapshot=%+v", ok, snap)
	}

	select {
	case got := <-updates:
		if got.Status != StatusWon {
			t.Errorf("latest published status = %s, want won", got.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published after guess")
	}
}

func TestSessionGuessKeepsPartialInputOnReject(t *testing.T) {
	s := NewSession(context.Background(), instant("water"), 5)
	defer s.Close()
	s.Wait()
	s.Press("w")
	s.Press("a")
	if snap, ok := s.Guess("toolong"); ok || snap.Current != "wa" {
		t.Errorf("ok=%v current=%q", ok, snap.Current)
	}
	if snap, ok := s.Guess("water"); !ok || snap.Status != StatusWon {
		t.Errorf("ok=%v status=%s", ok, snap.Status)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	f := fetchFunc(func(ctx context.Context, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s := NewSession(context.Background(), f, 5)
	updates, _ := s.Subscribe()
	s.Close()
	s.Close()

	if _, open := <-updates; open {
		t.Error("subscriber channel still open after Close")
	}
	if st := s.Snapshot().Status; st != StatusLoading {
		t.Errorf("status = %s, want loading (cancelled fetch must not resolve)", st)
	}
}

// seriesCount returns how many label combinations the named family holds.
func seriesCount(t *testing.T, name string) int {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestSessionBogusLengthsKeepMetricsBounded(t *testing.T) {
	f := fetchFunc(func(_ context.Context, length int) (string, error) {
		return "", errors.New("no words of that length")
	})
	s := NewSession(context.Background(), f, 5)
	defer s.Close()
	s.Wait()

	before := seriesCount(t, "wordgame_fetch_duration_seconds")
	for n := 1000; n < 1200; n++ {
		s.ChangeWordLength(n)
		s.Wait()
	}
	if grown := seriesCount(t, "wordgame_fetch_duration_seconds") - before; grown > 1 {
		t.Errorf("200 bogus lengths added %d fetch series, want at most 1", grown)
	}

	// the length still reaches the engine
	if snap := s.Snapshot(); snap.Status != StatusErrored || snap.WordLength != 1199 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSessionActivity(t *testing.T) {
	s := NewSession(context.Background(), instant("water"), 5)
	defer s.Close()
	s.Wait()

	t0 := s.LastActive()
	time.Sleep(5 * time.Millisecond)
	_, unsubscribe := s.Subscribe()
	defer unsubscribe()
	t1 := s.LastActive()
	if !t1.After(t0) {
		t.Errorf("Subscribe did not mark activity: %v -> %v", t0, t1)
	}

	time.Sleep(5 * time.Millisecond)
	s.Touch()
	if t2 := s.LastActive(); !t2.After(t1) {
		t.Errorf("Touch did not mark activity: %v -> %v", t1, t2)
	}
}
