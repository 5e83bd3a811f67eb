package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gosuda/vbjson/jsonv"
)

func TestDigestIgnoresFormatting(t *testing.T) {
	a := jsonv.MustParse(`{"a": [1, 2], "b": "x"}`)
	b := jsonv.MustParse("{\n  \"a\":[1,2],\n  \"b\":\"x\"\n}")
	c := jsonv.MustParse(`{"b": "x", "a": [1, 2]}`)
	if Digest(a) != Digest(b) {
		t.Fatalf("same document should hash the same")
	}
	if Digest(a) == Digest(c) {
		t.Fatalf("key order is part of the document")
	}
	if len(Digest(a)) != 64 {
		t.Fatalf("unexpected digest length %d", len(Digest(a)))
	}
}

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("", filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("open file store failed: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected FileStore, got %T", s)
	}
	s.Close()

	s, err = Open("SQLite", filepath.Join(dir, "snap.db"))
	if err != nil {
		t.Fatalf("open sql store failed: %v", err)
	}
	if _, ok := s.(*SQLStore); !ok {
		t.Fatalf("expected SQLStore, got %T", s)
	}
	s.Close()

	if _, err := Open("redis", dir); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestFileStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}
	clock := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	s.now = func() time.Time { return clock }

	if _, err := s.Load(ctx, "AppData"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first := jsonv.MustParse(`{"ledger":{"postings":[]},"meta":{"n":1}}`)
	if err := s.Save(ctx, "AppData", first); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	clock = clock.Add(90 * time.Second)
	second := jsonv.MustParse(`{"ledger":{"postings":[1]},"meta":{"n":2}}`)
	if err := s.Save(ctx, "AppData", second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.Load(ctx, "AppData")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !got.Equal(second) {
		t.Fatalf("unexpected document: %s", got)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "AppData.json"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.HasPrefix(string(raw), "{\n  \"ledger\": {\n    \"postings\": [1]") {
		t.Fatalf("expected two-space indentation, got %q", raw)
	}
	if _, err := os.Stat(filepath.Join(dir, "AppData.2024.03.01.09.31.30.json")); err != nil {
		t.Fatalf("missing backup: %v", err)
	}

	hist, err := s.History(ctx, "AppData")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(hist) != 2 || hist[0].Digest != Digest(first) || hist[1].Digest != Digest(second) {
		t.Fatalf("unexpected history: %+v", hist)
	}
	if !hist[0].CreatedAt.Before(hist[1].CreatedAt) || hist[1].ID != 2 {
		t.Fatalf("history not ordered: %+v", hist)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := s.Save(ctx, name, jsonv.NewObject()); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("%q: expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestSQLStoreVersions(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQL(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Load(ctx, "AppData"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	docs := []string{`{"n":1}`, `{"n":1}`, `{"n":2}`, `{"n":3}`}
	for _, d := range docs {
		if err := s.Save(ctx, "AppData", jsonv.MustParse(d)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := s.Save(ctx, "Other", jsonv.MustParse(`[true]`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	hist, err := s.History(ctx, "AppData")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("unchanged save should be skipped, got %d versions", len(hist))
	}
	if hist[2].Digest != Digest(jsonv.MustParse(`{"n":3}`)) || hist[0].Size != len(`{"n":1}`) {
		t.Fatalf("unexpected history: %+v", hist)
	}

	got, err := s.Load(ctx, "AppData")
	if err != nil || got.String() != `{"n":3}` {
		t.Fatalf("unexpected latest %v %v", got, err)
	}

	pruned, err := s.Prune(ctx, "AppData", 1)
	if err != nil || pruned != 2 {
		t.Fatalf("unexpected prune result %d %v", pruned, err)
	}
	hist, _ = s.History(ctx, "AppData")
	if len(hist) != 1 || hist[0].Digest != Digest(got) {
		t.Fatalf("unexpected history after prune: %+v", hist)
	}
	var total int64
	if err := s.db.Unscoped().Model(&snapshotRow{}).Where("name = ?", "AppData").Count(&total).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("prune should soft-delete, rows left %d", total)
	}

	other, err := s.Load(ctx, "Other")
	if err != nil || other.String() != "[true]" {
		t.Fatalf("names must not interfere: %v %v", other, err)
	}
}
