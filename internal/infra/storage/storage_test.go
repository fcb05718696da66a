package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"challenge_reminder_bot/internal/domain/reminder"
)

func TestFileDocumentsMissingKey(t *testing.T) {
	t.Parallel()
	docs, err := OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	_, ok, err := docs.Get(context.Background(), "events")
	if err != nil || ok {
		t.Fatalf("Get on empty dir = ok:%v err:%v", ok, err)
	}
}

func TestFileDocumentsPutReplaces(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	docs, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	ctx := context.Background()
	if err := docs.Put(ctx, "challenges", []byte(`[1]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := docs.Put(ctx, "challenges", []byte(`[2]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := docs.Get(ctx, "challenges")
	if err != nil || !ok || string(got) != `[2]` {
		t.Fatalf("Get = %q ok:%v err:%v", got, ok, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "challenges.json" {
		t.Fatalf("unexpected files left behind: %v", entries)
	}
}

func TestFileDocumentsRejectsPathKeys(t *testing.T) {
	t.Parallel()
	docs, _ := OpenFile(t.TempDir())
	if err := docs.Put(context.Background(), "../escape", []byte(`[]`)); err == nil {
		t.Fatal("expected error for key with path separator")
	}
}

func TestRecordStoreRoundTrip(t *testing.T) {
	t.Parallel()
	docs, _ := OpenFile(t.TempDir())
	store := NewRecordStore[reminder.Challenge](docs, KeyChallenges)
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load absent: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("Load absent = %v, want empty", loaded)
	}

	at, _ := reminder.ParseTimeSpec("9:00 PM America/St_Johns")
	rule, _ := reminder.BuildRule("weekly", at, "monday")
	in := []reminder.Challenge{{
		Reminder: reminder.Reminder{
			Name:     "read",
			TimeText: "9:00 PM America/St_Johns",
			Rule:     rule,
			Target:   reminder.Target{ChatID: 5},
			Message:  "read 10 pages",
		},
		Creator:     1,
		Description: "reading",
		Members:     []int64{1, 2},
	}}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].Name != "read" || out[0].Rule != rule || len(out[0].Members) != 2 {
		t.Fatalf("Load = %+v", out)
	}
}

func TestRecordStoreCorruptDocument(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "events.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	docs, _ := OpenFile(dir)
	_, err := NewRecordStore[reminder.Event](docs, KeyEvents).Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load corrupt error = %v, want ErrCorrupt", err)
	}
}

func TestSQLiteDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docs, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer docs.Close()
	exerciseDocuments(t, docs)
}

func TestPostgresDocuments(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres document store test")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	docs, err := NewPostgresDocuments(ctx, db)
	if err != nil {
		t.Fatalf("NewPostgresDocuments: %v", err)
	}
	_, _ = db.ExecContext(ctx, `DELETE FROM reminder_documents WHERE key = 'test_docs'`)
	exerciseDocuments(t, docs)
}

func exerciseDocuments(t *testing.T, docs Documents) {
	t.Helper()
	ctx := context.Background()
	if _, ok, err := docs.Get(ctx, "test_docs"); err != nil || ok {
		t.Fatalf("Get missing = ok:%v err:%v", ok, err)
	}
	if err := docs.Put(ctx, "test_docs", []byte(`[{"a":1}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := docs.Put(ctx, "test_docs", []byte(`[{"a":2}]`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	body, ok, err := docs.Get(ctx, "test_docs")
	if err != nil || !ok {
		t.Fatalf("Get = ok:%v err:%v", ok, err)
	}
	var v []map[string]int
	store := NewRecordStore[map[string]int](docs, "test_docs")
	v, err = store.Load(ctx)
	if err != nil || len(v) != 1 || v[0]["a"] != 2 {
		t.Fatalf("Load = %v err:%v (raw %s)", v, err, body)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{Driver: "mongo"}, nil)
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open error = %v, want ErrUnknownDriver", err)
	}
}
