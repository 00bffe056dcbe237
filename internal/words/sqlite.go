// internal/words/sqlite.go
//
// SQLite persistence for the word bank.
//
// Responsibilities:
//   - LoadDB: read the `words(length, word)` table into a Bank.
//   - Import: insert a Bank into that table in one transaction, skipping
//     rows already present.

package words

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// LoadDB reads the bank from the `words(length, word)` table.
func LoadDB(ctx context.Context, db *sql.DB) (Bank, error) {
	rows, err := db.QueryContext(ctx, `SELECT length, word FROM words ORDER BY length, word`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	m := make(map[int][]string)
	for rows.Next() {
		var (
			length int
			word   string
		)
		if err := rows.Scan(&length, &word); err != nil {
			return nil, err
		}
		m[length] = append(m[length], word)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return Normalize(m)
}

// Import writes every word of b into the words table inside one
// transaction. Existing rows are left alone; the number of new rows is
// returned.
func Import(ctx context.Context, db *sql.DB, b Bank) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO words (length, word) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	lengths := make([]int, 0, len(b))
	for l := range b {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)

	inserted := 0
	for _, l := range lengths {
		for _, w := range b[l] {
			res, err := stmt.ExecContext(ctx, l, w)
			if err != nil {
				return 0, fmt.Errorf("insert %q: %w", w, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
