package workspaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"rollcall/internal/logging"
	"rollcall/internal/review"
	"rollcall/internal/services"
)

const (
	fileSuffix     = ".json"
	lockSuffix     = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// ErrLocked is returned when another process holds the workspace lock past
// the context deadline.
var ErrLocked = errors.New("workspace is locked by another process")

// Entry summarizes a stored workspace.
type Entry struct {
	ID         string
	TrainingID string
	FileName   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Ready      bool
}

// Store reads and writes workspace documents under one directory.
type Store struct {
	dir    string
	logger *slog.Logger
	opts   []review.Option
}

// NewStore creates a store rooted at dir. Options are applied to every
// workspace the store loads.
func NewStore(dir string, logger *slog.Logger, opts ...review.Option) *Store {
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "workspaces"),
		opts:   opts,
	}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", services.Wrap(services.ErrValidation, "workspaces", "resolve", fmt.Sprintf("invalid workspace id %q", id), nil)
	}
	return filepath.Join(s.dir, id+fileSuffix), nil
}

// Save writes ws atomically, replacing any previous version.
func (s *Store) Save(ws *review.Workspace) error {
	path, err := s.path(ws.ID())
	if err != nil {
		return err
	}
	return s.write(path, ws)
}

func (s *Store) write(path string, ws *review.Workspace) error {
	data, err := json.MarshalIndent(ws.Snapshot(), "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "workspaces", "encode", "marshal workspace", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return services.Wrap(services.ErrPersistence, "workspaces", "save", "create workspace directory", err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "workspaces", "save", "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrPersistence, "workspaces", "save", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrPersistence, "workspaces", "save", "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrPersistence, "workspaces", "save", "rename temp file", err)
	}

	s.logger.Debug("saved workspace",
		logging.String(logging.FieldRunID, ws.ID()),
		logging.String("path", path))
	return nil
}

// Load reads the workspace for id. A missing document is reported with
// services.ErrNotFound.
func (s *Store) Load(id string) (*review.Workspace, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return s.read(path, id)
}

func (s *Store) read(path, id string) (*review.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "workspaces", "load", fmt.Sprintf("workspace %q not found", id), nil)
		}
		return nil, services.Wrap(services.ErrPersistence, "workspaces", "load", "read workspace", err)
	}
	var snap review.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "workspaces", "load", "parse workspace", err)
	}
	ws, err := review.FromSnapshot(snap, s.opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedInput, "workspaces", "load", "rebuild workspace", err)
	}
	return ws, nil
}

// Update loads id under an exclusive lock, applies fn, and saves the result
// when fn succeeds. The lock wait is bounded by ctx.
func (s *Store) Update(ctx context.Context, id string, fn func(*review.Workspace) error) (*review.Workspace, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "workspaces", "update", "create workspace directory", err)
	}

	lock := flock.New(path + lockSuffix)
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocked, ctxErr)
		}
		return nil, services.Wrap(services.ErrPersistence, "workspaces", "update", "acquire lock", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(s.logger, "failed to release workspace lock", "workspace_unlock_failed",
				logging.Error(err),
				logging.String("lock", lock.Path()),
				logging.String(logging.FieldImpact, "later commands may wait for the lock"))
		}
	}()

	ws, err := s.read(path, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ws); err != nil {
		return nil, err
	}
	if err := s.write(path, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// List summarizes every stored workspace, newest first.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrPersistence, "workspaces", "list", "read workspace directory", err)
	}
	var out []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, fileSuffix)
		ws, err := s.read(filepath.Join(s.dir, name), id)
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping unreadable workspace", "workspace_unreadable",
				logging.Error(err),
				logging.String("file", name),
				logging.String(logging.FieldImpact, "run hidden from listings"))
			continue
		}
		out = append(out, Entry{
			ID:         ws.ID(),
			TrainingID: ws.TrainingID(),
			FileName:   ws.Source().FileName,
			CreatedAt:  ws.CreatedAt(),
			UpdatedAt:  ws.UpdatedAt(),
			Ready:      ws.ReadyForConfirmation(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes the workspace for id.
func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "workspaces", "delete", fmt.Sprintf("workspace %q not found", id), nil)
		}
		return services.Wrap(services.ErrPersistence, "workspaces", "delete", "remove workspace", err)
	}
	_ = os.Remove(path + lockSuffix)
	return nil
}
