// Package runlog stores per-run request logs (prompts, document, responses)
// in a timestamped directory, optionally mirrored to object storage.
package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// dirLayout is the timestamp format of run directories.
const dirLayout = "2006_01_02_15_04_05"

// Mirror receives a copy of every file written to a run.
type Mirror interface {
	Put(ctx context.Context, run, name string, data []byte) error
}

// Store creates run directories under a base directory.
type Store struct {
	baseDir string
	mirror  Mirror
	now     func() time.Time
}

// NewStore creates a Store. mirror may be nil.
func NewStore(baseDir string, mirror Mirror) *Store {
	return &Store{baseDir: baseDir, mirror: mirror, now: time.Now}
}

// NewRun creates <base>/<timestamp>_<id8>, creating the base directory if needed.
func (s *Store) NewRun(ctx context.Context) (*Run, error) {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s", s.now().Format(dirLayout), uuid.NewString()[:8])
	dir := filepath.Join(s.baseDir, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run dir: %w", err)
	}

	slog.DebugContext(ctx, "run log created", "dir", dir)
	return &Run{name: name, dir: dir, mirror: s.mirror}, nil
}

// Run is a single run's log directory.
type Run struct {
	name   string
	dir    string
	mirror Mirror
}

// Dir returns the local directory path.
func (r *Run) Dir() string {
	return r.dir
}

// Write stores text as <dir>/<name> and mirrors it when a mirror is configured.
func (r *Run) Write(ctx context.Context, name, text string) error {
	data := []byte(text)
	if err := os.WriteFile(filepath.Join(r.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run log %s: %w", name, err)
	}
	if r.mirror == nil {
		return nil
	}
	if err := r.mirror.Put(ctx, r.name, name, data); err != nil {
		return fmt.Errorf("failed to mirror run log %s: %w", name, err)
	}
	return nil
}
