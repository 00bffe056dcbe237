// internal/words/provider.go
//
// Asynchronous word provider used by game sessions.
//
// Responsibilities:
//   - Wait out a simulated network delay, honouring context cancellation.
//   - Pick a word of the requested length from the bank via an IndexSource.
//   - Fail unknown lengths with *InvalidLengthError (matches ErrInvalidLength).

package words

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultDelay is the simulated network latency of FetchWord.
const DefaultDelay = 2 * time.Second

// ErrInvalidLength matches any *InvalidLengthError via errors.Is.
var ErrInvalidLength = errors.New("invalid word length")

// InvalidLengthError reports a FetchWord call for a length the bank does
// not hold.
type InvalidLengthError struct {
	Length int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid word length: %d", e.Length)
}

func (e *InvalidLengthError) Is(target error) bool { return target == ErrInvalidLength }

// Provider hands out random target words from a fixed bank after a
// simulated delay. It holds no mutable state and is safe for concurrent use.
type Provider struct {
	bank  Bank
	delay time.Duration
	src   IndexSource
	after func(time.Duration) <-chan time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithDelay sets the simulated latency. Zero or negative disables it.
func WithDelay(d time.Duration) Option {
	return func(p *Provider) { p.delay = d }
}

// WithIndexSource replaces the random index source.
func WithIndexSource(src IndexSource) Option {
	return func(p *Provider) {
		if src != nil {
			p.src = src
		}
	}
}

// WithClock replaces time.After, mainly for tests.
func WithClock(after func(time.Duration) <-chan time.Time) Option {
	return func(p *Provider) {
		if after != nil {
			p.after = after
		}
	}
}

// NewProvider returns a Provider over bank. Defaults: DefaultDelay,
// CryptoSource, time.After.
func NewProvider(bank Bank, opts ...Option) *Provider {
	p := &Provider{
		bank:  bank,
		delay: DefaultDelay,
		src:   CryptoSource{},
		after: time.After,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FetchWord waits out the configured delay and returns a word of the given
// length chosen by the index source. Unknown lengths fail with
// *InvalidLengthError once the delay has elapsed. Cancelling ctx aborts the
// wait and returns ctx.Err().
func (p *Provider) FetchWord(ctx context.Context, length int) (string, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-p.after(p.delay):
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	list := p.bank[length]
	if len(list) == 0 {
		return "", &InvalidLengthError{Length: length}
	}
	i := p.src.Index(length, len(list))
	if i < 0 || i >= len(list) {
		i = ((i % len(list)) + len(list)) % len(list)
	}
	return strings.ToLower(list[i]), nil
}

// Bank returns the bank the provider draws from.
func (p *Provider) Bank() Bank { return p.bank }
