package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/wordle/apps/wordgame/internal/game"
)

type blockingFetcher struct{}

func (blockingFetcher) FetchWord(ctx context.Context, _ int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newSession(id string) *game.Session {
	return game.NewSession(context.Background(), blockingFetcher{}, 5, game.WithID(id))
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSession("abc")

	if err := st.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := st.Get(ctx, "abc")
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d", st.Len())
	}

	if err := st.Delete(ctx, "abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Get(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	// Delete closed the session: its fetch goroutine has exited.
	s.Wait()
	if err := st.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete unknown: %v", err)
	}
}

func TestSaveReplacesAndClosesOld(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	old := newSession("same")
	_ = st.Save(ctx, old)
	updates, _ := old.Subscribe()

	replacement := newSession("same")
	defer replacement.Close()
	_ = st.Save(ctx, replacement)

	if _, open := <-updates; open {
		t.Error("replaced session was not closed")
	}
	if got, _ := st.Get(ctx, "same"); got != replacement {
		t.Error("Get did not return the replacement")
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	a, b := newSession("a"), newSession("b")
	_ = st.Save(ctx, a)
	_ = st.Save(ctx, b)

	if n := st.Sweep(ctx, time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("swept %d fresh sessions", n)
	}
	if n := st.Sweep(ctx, time.Now().Add(time.Second)); n != 2 {
		t.Errorf("swept %d, want 2", n)
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d after sweep", st.Len())
	}
}
