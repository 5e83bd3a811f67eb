// Package store persists named JSON documents between runs.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/gosuda/vbjson/jsonv"
)

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Snapshot describes one saved version of a document.
type Snapshot struct {
	ID        int64
	Name      string
	Digest    string
	Size      int
	CreatedAt time.Time
}

type Store interface {
	// Load returns the latest saved version of name, or ErrNotFound.
	Load(ctx context.Context, name string) (*jsonv.Value, error)
	Save(ctx context.Context, name string, value *jsonv.Value) error
	// History lists saved versions, oldest first.
	History(ctx context.Context, name string) ([]Snapshot, error)
	Close() error
}

// Open picks a backend: "file" (the default) keeps one JSON file per name
// under path, "sqlite" keeps every version in the database at path.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "file":
		return NewFileStore(path)
	case "sqlite", "sql":
		return OpenSQL(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q (use file|sqlite)", driver)
	}
}

// Digest is the hex BLAKE3 hash of the compact form of v.
func Digest(v *jsonv.Value) string {
	h := blake3.New()
	_, _ = io.WriteString(h, v.String())
	return hex.EncodeToString(h.Sum(nil))
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
