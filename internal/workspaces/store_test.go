package workspaces_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"rollcall/internal/attendance"
	"rollcall/internal/logging"
	"rollcall/internal/matching"
	"rollcall/internal/review"
	"rollcall/internal/services"
	"rollcall/internal/sessionlog"
	"rollcall/internal/workspaces"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newWorkspace(t *testing.T, id string, now time.Time) *review.Workspace {
	t.Helper()
	records := []sessionlog.Record{
		{Name: "John Doe", JoinTime: at(10, 0), LeaveTime: at(11, 30), Duration: 90},
		{Name: "Ana", JoinTime: at(10, 30), LeaveTime: at(11, 0), Duration: 30},
	}
	candidates := []matching.Candidate{
		{ID: "r1", Name: "John Doe", Email: "john@example.com"},
		{ID: "r2", Name: "Ana Lima"},
	}
	participants := attendance.Consolidate(records, nil)
	analyzer, err := attendance.NewAnalyzer(attendance.WindowConfig{
		TrainingID:    "t-1",
		LiveStart:     at(10, 0),
		LiveEnd:       at(11, 30),
		WindowStart:   at(10, 30),
		WindowEnd:     at(11, 30),
		MinMinutes:    attendance.DefaultMinMinutes,
		MinPercentage: attendance.DefaultMinPercentage,
	})
	if err != nil {
		t.Fatalf("NewAnalyzer returned error: %v", err)
	}

	subjects := make([]matching.Subject, 0, len(participants))
	for _, p := range participants {
		subjects = append(subjects, matching.Subject{Name: p.Name, Email: p.Email})
	}
	ws, err := review.New(analyzer, review.Seed{
		ID:           id,
		Source:       review.SourceInfo{FileName: "export.csv", DataRows: 2, Records: 2},
		Participants: participants,
		Candidates:   candidates,
		Assignments:  matching.ResolveBatch(subjects, candidates),
	}, review.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("review.New returned error: %v", err)
	}
	return ws
}

func mustSave(t *testing.T, store *workspaces.Store, ws *review.Workspace) {
	t.Helper()
	if err := store.Save(ws); err != nil {
		t.Fatalf("Save(%s) returned error: %v", ws.ID(), err)
	}
}

func mustLoad(t *testing.T, store *workspaces.Store, id string) *review.Workspace {
	t.Helper()
	ws, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load(%s) returned error: %v", id, err)
	}
	return ws
}

func assocStatus(t *testing.T, ws *review.Workspace, name string) review.Status {
	t.Helper()
	a, ok := ws.Association(name)
	if !ok {
		t.Fatalf("no association for %q", name)
	}
	return a.Status()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := workspaces.NewStore(dir, logging.NewNop())

	ws := newWorkspace(t, "run-1", at(12, 0))
	if _, err := ws.Select("Ana", "r2"); err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	mustSave(t, store, ws)

	loaded := mustLoad(t, store, "run-1")
	if loaded.TrainingID() != "t-1" {
		t.Fatalf("training id = %q, want t-1", loaded.TrainingID())
	}
	if loaded.Source().FileName != "export.csv" {
		t.Fatalf("file name = %q, want export.csv", loaded.Source().FileName)
	}

	a, ok := loaded.Association("Ana")
	if !ok || a.Status() != review.StatusConfirmed {
		t.Fatalf("Ana association = %#v, want confirmed", a)
	}
	claimed, ok := review.ClaimedCandidate(a)
	if !ok || claimed.ID != "r2" {
		t.Fatalf("Ana claims %q, want r2", claimed.ID)
	}
	if got := assocStatus(t, loaded, "John Doe"); got != review.StatusAutoMatched {
		t.Fatalf("John Doe status = %s, want auto_matched", got)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temporary files left behind: %v", matches)
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	store := workspaces.NewStore(dir, logging.NewNop())

	if _, err := store.Load("nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := store.Load("bad"); !errors.Is(err, services.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestInvalidIDsAreRejected(t *testing.T) {
	store := workspaces.NewStore(t.TempDir(), logging.NewNop())

	for _, id := range []string{"", "../escape", ".hidden", "a/b"} {
		if _, err := store.Load(id); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Load(%q): expected ErrValidation, got %v", id, err)
		}
	}
}

func TestUpdateAppliesAndPersists(t *testing.T) {
	store := workspaces.NewStore(t.TempDir(), logging.NewNop())
	mustSave(t, store, newWorkspace(t, "run-1", at(12, 0)))

	_, err := store.Update(context.Background(), "run-1", func(ws *review.Workspace) error {
		return ws.Confirm("John Doe")
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	loaded := mustLoad(t, store, "run-1")
	if got := assocStatus(t, loaded, "John Doe"); got != review.StatusConfirmed {
		t.Fatalf("John Doe status = %s, want confirmed", got)
	}
}

func TestUpdateDiscardsFailedMutation(t *testing.T) {
	store := workspaces.NewStore(t.TempDir(), logging.NewNop())
	mustSave(t, store, newWorkspace(t, "run-1", at(12, 0)))

	boom := errors.New("boom")
	_, err := store.Update(context.Background(), "run-1", func(ws *review.Workspace) error {
		if err := ws.Confirm("John Doe"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	loaded := mustLoad(t, store, "run-1")
	if got := assocStatus(t, loaded, "John Doe"); got != review.StatusAutoMatched {
		t.Fatalf("failed mutation persisted: status = %s", got)
	}
}

func TestUpdateTimesOutWhileLocked(t *testing.T) {
	dir := t.TempDir()
	store := workspaces.NewStore(dir, logging.NewNop())
	mustSave(t, store, newWorkspace(t, "run-1", at(12, 0)))

	held := flock.New(filepath.Join(dir, "run-1.json.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = store.Update(ctx, "run-1", func(*review.Workspace) error { return nil })
	if !errors.Is(err, workspaces.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestListNewestFirstAndSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := workspaces.NewStore(dir, logging.NewNop())

	mustSave(t, store, newWorkspace(t, "older", at(12, 0)))
	mustSave(t, store, newWorkspace(t, "newer", at(13, 0)))
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("[]x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "newer" || entries[1].ID != "older" {
		t.Fatalf("order = %s, %s", entries[0].ID, entries[1].ID)
	}
	first := entries[0]
	if first.TrainingID != "t-1" || first.FileName != "export.csv" || first.Ready {
		t.Fatalf("unexpected entry: %+v", first)
	}
}

func TestListMissingDirectory(t *testing.T) {
	store := workspaces.NewStore(filepath.Join(t.TempDir(), "absent"), logging.NewNop())
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestDelete(t *testing.T) {
	store := workspaces.NewStore(t.TempDir(), logging.NewNop())
	mustSave(t, store, newWorkspace(t, "run-1", at(12, 0)))

	if err := store.Delete("run-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Load("run-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("run-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
