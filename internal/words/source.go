// internal/words/source.go
//
// Index sources deciding which bank entry FetchWord returns.
//
// Responsibilities:
//   - CryptoSource: uniform pick via crypto/rand (the default).
//   - DailySource: one stable pick per UTC day and length, keyed by HMAC.
//   - IndexFunc: fixed or scripted picks for tests.

package words

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"strconv"
	"time"
)

// IndexSource picks an index in [0, n) for a word of the given length.
type IndexSource interface {
	Index(length, n int) int
}

// IndexFunc adapts a function to IndexSource.
type IndexFunc func(length, n int) int

func (f IndexFunc) Index(length, n int) int { return f(length, n) }

// CryptoSource draws uniformly using crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Index(_, n int) int {
	if n <= 0 {
		return 0
	}
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}

// DailySource yields the same index for a given UTC day and word length:
// HMAC-SHA256(salt, "YYYY-MM-DD:length") mod n. Every player gets the same
// word per length per day.
type DailySource struct {
	Salt string
	Now  func() time.Time // defaults to time.Now
}

func (d DailySource) Index(length, n int) int {
	if n <= 0 {
		return 0
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	h := hmac.New(sha256.New, []byte(d.Salt))
	h.Write([]byte(DateKey(now()) + ":" + strconv.Itoa(length)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
