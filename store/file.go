package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gosuda/vbjson/jsonv"
)

const backupLayout = "2006.01.02.15.04.05"

// FileStore writes <dir>/<name>.json and keeps a timestamped backup
// <dir>/<name>.YYYY.MM.DD.HH.MM.SS.json of every save.
type FileStore struct {
	dir string
	now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(".", ".vbjson_saves")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Load(ctx context.Context, name string) (*jsonv.Value, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	v, err := jsonv.Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path(name), err)
	}
	return v, nil
}

// Save replaces the current file atomically and then writes the backup.
func (s *FileStore) Save(ctx context.Context, name string, value *jsonv.Value) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body := []byte(value.Indent() + "\n")
	if err := writeAtomic(s.path(name), body); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	backup := filepath.Join(s.dir, name+"."+s.now().Format(backupLayout)+".json")
	if err := os.WriteFile(backup, body, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

func writeAtomic(path string, body []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// History lists the backups of name, oldest first.
func (s *FileStore) History(ctx context.Context, name string) ([]Snapshot, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Snapshot
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stamp, ok := backupStamp(e.Name(), name)
		if !ok || e.IsDir() {
			continue
		}
		at, err := time.ParseInLocation(backupLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		v, err := jsonv.Parse(string(b))
		if err != nil {
			continue
		}
		out = append(out, Snapshot{Name: name, Digest: Digest(v), Size: len(b), CreatedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	for i := range out {
		out[i].ID = int64(i + 1)
	}
	return out, nil
}

func backupStamp(file, name string) (string, bool) {
	rest, ok := strings.CutPrefix(file, name+".")
	if !ok {
		return "", false
	}
	stamp, ok := strings.CutSuffix(rest, ".json")
	if !ok || len(stamp) != len(backupLayout) {
		return "", false
	}
	return stamp, true
}

func (s *FileStore) Close() error {
	return nil
}
