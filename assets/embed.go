// Package assets holds the files compiled into the binary: the default word
// bank and the SQLite migrations for the word-bank database.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed bank.yaml sql/*.sql
var FS embed.FS

// DefaultBank returns the raw YAML of the embedded default word bank.
func DefaultBank() ([]byte, error) {
	return FS.ReadFile("bank.yaml")
}

// Migrations returns the embedded migration scripts rooted at sql/.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
