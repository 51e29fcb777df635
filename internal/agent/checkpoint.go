package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrCheckpointCorrupt means the persisted checkpoint exists but could not
// be parsed. This should never happen with atomic writes; it indicates
// outside interference with the checkpoint file.
var ErrCheckpointCorrupt = errors.New("corrupt checkpoint")

// Checkpoint persists the timestamp of the last successfully scanned source
// record across process restarts. Read reports ok=false when no checkpoint
// has ever been written, which means "scan everything from the beginning".
type Checkpoint interface {
	Read(ctx context.Context) (ts time.Time, ok bool, err error)
	Write(ctx context.Context, ts time.Time) error
}

// FileCheckpoint stores the checkpoint as an RFC 3339 timestamp in a single
// file. Writes go through a temp file followed by an atomic rename, so a
// crash mid-write leaves either the old value or the new value on disk,
// never a torn one.
type FileCheckpoint struct {
	path string
}

// NewFileCheckpoint creates a FileCheckpoint at the given path. The file is
// created on the first Write.
func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

// Read returns the stored timestamp, or ok=false when the file is absent.
func (c *FileCheckpoint) Read(_ context.Context) (time.Time, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return time.Time{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrCheckpointCorrupt, err)
	}
	return ts, true, nil
}

// Write atomically replaces the stored timestamp.
func (c *FileCheckpoint) Write(_ context.Context, ts time.Time) error {
	tmp := c.path + ".tmp"
	value := ts.UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}
