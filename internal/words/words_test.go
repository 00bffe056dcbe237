package words

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/wordle/apps/wordgame/assets"
)

func TestDefaultBank(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if got := b.Lengths(); len(got) != 3 || got[0] != 4 || got[2] != 6 {
		t.Fatalf("lengths = %v, want [4 5 6]", got)
	}
	for l, list := range b {
		if len(list) != 20 {
			t.Errorf("len(bank[%d]) = %d, want 20", l, len(list))
		}
		for _, w := range list {
			if len(w) != l || !isAlpha(w) {
				t.Errorf("bank[%d] holds %q", l, w)
			}
		}
	}
	if !b.Contains("water") || !b.Contains("ECHO") || b.Contains("student") {
		t.Error("Contains mismatch")
	}
}

func TestNormalize(t *testing.T) {
	b, err := Normalize(map[int][]string{
		3: {"cat"},
		4: {" Echo ", "echo", "ec1o", "house"},
		6: {"people", "student"},
		7: {"student"},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := b[4]; len(got) != 1 || got[0] != "echo" {
		t.Errorf("bank[4] = %v, want [echo]", got)
	}
	if got := b[6]; len(got) != 1 || got[0] != "people" {
		t.Errorf("bank[6] = %v, want [people]", got)
	}
	if _, ok := b[3]; ok {
		t.Error("length 3 kept")
	}
	if _, ok := b[7]; ok {
		t.Error("length 7 kept")
	}
	stats := b.Stats()
	if stats[4] != 1 || stats[6] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if _, err := Normalize(map[int][]string{5: {"toolong", "1234"}}); !errors.Is(err, ErrEmptyBank) {
		t.Errorf("err = %v, want ErrEmptyBank", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	content := "4:\n  - zoom\n  - ZONE\n5:\n  - water\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(b[4]) != 2 || b[4][1] != "zone" || len(b[5]) != 1 {
		t.Errorf("bank = %v", b)
	}
}

func TestLoadFileLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	content := "# comment\nwater\n\necho\nPeople\nxylophone\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := b.Lengths(); len(got) != 3 {
		t.Errorf("lengths = %v, want 3 entries", got)
	}
	if !b.Contains("people") {
		t.Error("people missing")
	}
}

func TestLoadPrefersDBOverFile(t *testing.T) {
	db := openTestDB(t)
	if _, err := Import(context.Background(), db, Bank{5: {"water"}}); err != nil {
		t.Fatal(err)
	}
	b, err := Load(context.Background(), "/does/not/exist.yaml", db)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b[5]) != 1 || b[5][0] != "water" {
		t.Errorf("bank = %v", b)
	}
}

func TestImportAndLoadDB(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	def, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	n, err := Import(ctx, db, def)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 60 {
		t.Errorf("inserted = %d, want 60", n)
	}
	if n, err = Import(ctx, db, def); err != nil || n != 0 {
		t.Errorf("re-import inserted %d (err %v), want 0", n, err)
	}

	b, err := LoadDB(ctx, db)
	if err != nil {
		t.Fatalf("LoadDB: %v", err)
	}
	for l, c := range b.Stats() {
		if c != 20 {
			t.Errorf("db bank[%d] = %d words, want 20", l, c)
		}
	}
}

func TestLoadDBEmpty(t *testing.T) {
	if _, err := LoadDB(context.Background(), openTestDB(t)); !errors.Is(err, ErrEmptyBank) {
		t.Errorf("err = %v, want ErrEmptyBank", err)
	}
}

// openTestDB opens a scratch SQLite file with the embedded schema applied.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "words.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	schema, err := assets.FS.ReadFile("sql/001_words.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}
