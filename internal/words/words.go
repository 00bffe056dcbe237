// internal/words/words.go
//
// Word bank management for the word provider.
//
// Responsibilities:
//   - Load the bank of candidate target words, grouped by word length.
//   - Normalise entries (trim, lowercase, a–z only, length must match key).
//   - Report per-length counts for diagnostics.
//
// Sources (see Load):
//  1. A SQLite database with a `words(length, word)` table (WORDS_DB).
//  2. A bank file (WORDS_BANK_FILE): YAML mapping length -> words, or a plain
//     text file with one word per line, grouped by the word's own length.
//  3. The embedded default bank (assets/bank.yaml).
//
// The bank is plain data handed to NewProvider; nothing here is global.
package words

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/wordle/apps/wordgame/assets"
)

// Supported word lengths.
const (
	MinLength = 4
	MaxLength = 6
)

// ErrEmptyBank is returned when a source yields no usable word for any
// supported length.
var ErrEmptyBank = errors.New("words: bank is empty")

// Bank maps a word length to its candidate target words (lowercase).
type Bank map[int][]string

// Load picks the bank source: db wins over file, file wins over the
// embedded default.
func Load(ctx context.Context, file string, db *sql.DB) (Bank, error) {
	switch {
	case db != nil:
		return LoadDB(ctx, db)
	case file != "":
		return LoadFile(file)
	default:
		return Default()
	}
}

// Default parses the embedded bank.
func Default() (Bank, error) {
	raw, err := assets.DefaultBank()
	if err != nil {
		return nil, fmt.Errorf("read embedded bank: %w", err)
	}
	return Parse(raw)
}

// LoadFile reads a bank file. .yaml/.yml files are parsed as a length->words
// mapping; anything else is read one word per line.
func LoadFile(path string) (Bank, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return Parse(raw)
	default:
		return readWordFile(path)
	}
}

// Parse decodes a YAML bank and normalises it.
func Parse(raw []byte) (Bank, error) {
	var m map[int][]string
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse bank: %w", err)
	}
	return Normalize(m)
}

// Normalize returns a cleaned copy of m: entries are trimmed and lowercased,
// anything that is not a–z or whose length differs from its key is dropped,
// duplicates are removed, and keys outside [MinLength, MaxLength] are
// ignored. Order of first appearance is kept.
func Normalize(m map[int][]string) (Bank, error) {
	out := make(Bank, len(m))
	for length, list := range m {
		if length < MinLength || length > MaxLength {
			continue
		}
		seen := make(map[string]struct{}, len(list))
		for _, w := range list {
			w = strings.TrimSpace(strings.ToLower(w))
			if len(w) != length || !isAlpha(w) {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out[length] = append(out[length], w)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyBank
	}
	return out, nil
}

// readWordFile loads one word per line, bucketing each by its length.
// Blank lines and lines starting with '#' are skipped.
func readWordFile(path string) (Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := make(map[int][]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		m[len(w)] = append(m[len(w)], w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return Normalize(m)
}

// Lengths returns the supported lengths in ascending order.
func (b Bank) Lengths() []int {
	out := make([]int, 0, len(b))
	for l, list := range b {
		if len(list) > 0 {
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// Contains reports whether w is a candidate for its own length.
func (b Bank) Contains(w string) bool {
	w = strings.ToLower(w)
	for _, c := range b[len(w)] {
		if c == w {
			return true
		}
	}
	return false
}

// Stats returns the number of words per length.
func (b Bank) Stats() map[int]int {
	out := make(map[int]int, len(b))
	for l, list := range b {
		out[l] = len(list)
	}
	return out
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
