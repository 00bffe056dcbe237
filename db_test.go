package main

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/robalobadob/wordle/apps/wordgame/internal/words"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := openDB(filepath.Join(t.TempDir(), "nested", "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	migrations := fstest.MapFS{
		"001_a.sql": {Data: []byte(`CREATE TABLE a (id INTEGER PRIMARY KEY);`)},
		"002_b.sql": {Data: []byte(`CREATE TABLE b (id INTEGER PRIMARY KEY); INSERT INTO b (id) VALUES (1);`)},
		"README.md": {Data: []byte(`not a migration`)},
	}
	for i := 0; i < 2; i++ {
		if err := migrate(ctx, db, migrations); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var applied, rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM b`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if applied != 2 || rows != 1 {
		t.Errorf("applied %d migrations, b has %d rows", applied, rows)
	}
}

func TestMigrateRollsBackFailedScript(t *testing.T) {
	ctx := context.Background()
	db, err := openDB(filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	bad := fstest.MapFS{"001_bad.sql": {Data: []byte(`CREATE TABLE ok (id INTEGER); NOT SQL;`)}}
	if err := migrate(ctx, db, bad); err == nil {
		t.Fatal("broken migration applied")
	}
	var n int
	_ = db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n)
	if n != 0 {
		t.Errorf("failed migration recorded")
	}
}

func TestOpenWordsDBAndSeed(t *testing.T) {
	ctx := context.Background()
	db, err := openWordsDB(ctx, filepath.Join(t.TempDir(), "words.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := seedIfEmpty(ctx, db); err != nil {
		t.Fatal(err)
	}
	b, err := words.LoadDB(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Stats(); got[4] != 20 || got[5] != 20 || got[6] != 20 {
		t.Errorf("seeded stats = %v", got)
	}

	// seeding again leaves the table alone
	if err := seedIfEmpty(ctx, db); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM words`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 60 {
		t.Errorf("words rows = %d, want 60", n)
	}
}
