package registry_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rollcall/internal/registry"
	"rollcall/internal/services"
	"rollcall/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	reg := testsupport.AddRegistration(t, store, registry.Registration{TrainingID: "t1", Name: "John Doe"})
	if reg.ID == "" {
		t.Fatal("expected registration ID to be generated")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.Registration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("Registration after reopen: %v", err)
	}
	if fetched.Name != "John Doe" || fetched.TrainingID != "t1" {
		t.Fatalf("unexpected registration %#v", fetched)
	}
	if fetched.Attendance != nil {
		t.Fatalf("expected no attendance yet, got %#v", fetched.Attendance)
	}
}

func TestAddRegistrationValidates(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := store.AddRegistration(context.Background(), registry.Registration{TrainingID: "t1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRegistrationRejectsDuplicateID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	testsupport.AddRegistration(t, store, registry.Registration{ID: "r1", TrainingID: "t1", Name: "A"})
	_, err := store.AddRegistration(context.Background(), registry.Registration{ID: "r1", TrainingID: "t1", Name: "B"})
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestRegistrationNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := store.Registration(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCandidatesForTrainingFiltersByTraining(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	testsupport.AddRegistration(t, store, registry.Registration{
		ID: "r1", TrainingID: "t1", Name: "John Doe", Email: "john@example.com", City: "Recife", CreatedAt: base,
	})
	testsupport.AddRegistration(t, store, registry.Registration{
		ID: "r2", TrainingID: "t1", Name: "Maria Souza", Phone: "+55 11 9999", CreatedAt: base.Add(time.Minute),
	})
	testsupport.AddRegistration(t, store, registry.Registration{
		ID: "r3", TrainingID: "t2", Name: "Pedro Alves", CreatedAt: base,
	})

	got, err := store.CandidatesForTraining(context.Background(), "t1")
	if err != nil {
		t.Fatalf("CandidatesForTraining: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != "r1" || got[0].Email != "john@example.com" || got[0].City != "Recife" {
		t.Fatalf("unexpected first candidate %#v", got[0])
	}
	if got[1].ID != "r2" || got[1].Phone != "+55 11 9999" {
		t.Fatalf("unexpected second candidate %#v", got[1])
	}

	if _, err := store.CandidatesForTraining(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank training, got %v", err)
	}

	all, err := store.ListRegistrations(context.Background(), "")
	if err != nil {
		t.Fatalf("ListRegistrations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(all))
	}
}

func TestUpsertAttendanceOverwrites(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.AddRegistration(t, store, registry.Registration{ID: "r1", TrainingID: "t1", Name: "John Doe"})

	validatedAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	first := registry.AttendanceOutcome{
		RegistrationID:  "r1",
		ParticipantName: "John Doe",
		Approved:        false,
		TotalMinutes:    40,
		WindowMinutes:   40,
		WindowPercent:   66,
		RunID:           "run-1",
		ValidatedAt:     validatedAt,
	}
	if err := store.UpsertAttendance(ctx, first); err != nil {
		t.Fatalf("UpsertAttendance: %v", err)
	}

	second := first
	second.Approved = true
	second.ManualOverride = true
	second.RunID = "run-2"
	if err := store.UpsertAttendance(ctx, second); err != nil {
		t.Fatalf("UpsertAttendance overwrite: %v", err)
	}

	reg, err := store.Registration(ctx, "r1")
	if err != nil {
		t.Fatalf("Registration: %v", err)
	}
	att := reg.Attendance
	if att == nil {
		t.Fatal("expected attendance to be stored")
	}
	if !att.Validated || !att.Approved || !att.ManualOverride {
		t.Fatalf("unexpected flags %#v", att)
	}
	if att.TotalMinutes != 40 || att.WindowMinutes != 40 || att.WindowPercent != 66 {
		t.Fatalf("unexpected minutes %#v", att)
	}
	if att.RunID != "run-2" || att.ParticipantName != "John Doe" {
		t.Fatalf("unexpected attribution %#v", att)
	}
	if !att.ValidatedAt.Equal(validatedAt) {
		t.Fatalf("validated at = %v, want %v", att.ValidatedAt, validatedAt)
	}
}

func TestUpsertAttendanceUnknownRegistration(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	err := store.UpsertAttendance(context.Background(), registry.AttendanceOutcome{RegistrationID: "ghost", ParticipantName: "X"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.UpsertAttendance(context.Background(), registry.AttendanceOutcome{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestUnresolvedLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	notFound := registry.UnresolvedRecord{
		RunID:           "run-1",
		TrainingID:      "t1",
		ParticipantName: "iPhone de Ana",
		Status:          registry.UnresolvedNotFound,
	}
	if err := store.RecordUnresolved(ctx, notFound); err != nil {
		t.Fatalf("RecordUnresolved: %v", err)
	}
	doubt := registry.UnresolvedRecord{
		RunID:             "run-1",
		TrainingID:        "t1",
		ParticipantName:   "J. Silva",
		Email:             "js@example.com",
		Status:            registry.UnresolvedDoubt,
		FirstCandidateID:  "r1",
		SecondCandidateID: "r2",
	}
	if err := store.RecordUnresolved(ctx, doubt); err != nil {
		t.Fatalf("RecordUnresolved doubt: %v", err)
	}

	// Re-recording the same participant replaces the entry.
	notFound.RunID = "run-2"
	if err := store.RecordUnresolved(ctx, notFound); err != nil {
		t.Fatalf("RecordUnresolved replace: %v", err)
	}

	all, err := store.ListUnresolved(ctx, registry.UnresolvedFilter{TrainingID: "t1"})
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 unresolved, got %d", len(all))
	}
	if all[0].ParticipantName != "J. Silva" || all[0].FirstCandidateID != "r1" || all[0].SecondCandidateID != "r2" {
		t.Fatalf("unexpected doubt record %#v", all[0])
	}
	if all[1].RunID != "run-2" {
		t.Fatalf("expected replaced run id, got %q", all[1].RunID)
	}
	if all[1].MarkedAt.IsZero() || all[1].UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be stamped, got %#v", all[1])
	}

	doubts, err := store.ListUnresolved(ctx, registry.UnresolvedFilter{Status: registry.UnresolvedDoubt})
	if err != nil {
		t.Fatalf("ListUnresolved by status: %v", err)
	}
	if len(doubts) != 1 || doubts[0].Email != "js@example.com" {
		t.Fatalf("unexpected doubt filter result %#v", doubts)
	}

	if err := store.ClearUnresolved(ctx, "t1", "J. Silva"); err != nil {
		t.Fatalf("ClearUnresolved: %v", err)
	}
	remaining, err := store.ListUnresolved(ctx, registry.UnresolvedFilter{})
	if err != nil {
		t.Fatalf("ListUnresolved after clear: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ParticipantName != "iPhone de Ana" {
		t.Fatalf("unexpected remaining %#v", remaining)
	}
}

func TestRecordUnresolvedValidatesShape(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	cases := []registry.UnresolvedRecord{
		{TrainingID: "t1", ParticipantName: "A", Status: registry.UnresolvedDoubt, FirstCandidateID: "r1"},
		{TrainingID: "t1", ParticipantName: "A", Status: registry.UnresolvedDoubt, FirstCandidateID: "r1", SecondCandidateID: "r1"},
		{TrainingID: "t1", ParticipantName: "A", Status: registry.UnresolvedNotFound, FirstCandidateID: "r1"},
		{TrainingID: "t1", ParticipantName: "A", Status: "confirmed"},
		{ParticipantName: "A", Status: registry.UnresolvedNotFound},
	}
	for i, rec := range cases {
		if err := store.RecordUnresolved(ctx, rec); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestParseUnresolvedStatus(t *testing.T) {
	if s, ok := registry.ParseUnresolvedStatus(" DOUBT "); !ok || s != registry.UnresolvedDoubt {
		t.Fatalf("unexpected parse result %q %v", s, ok)
	}
	if _, ok := registry.ParseUnresolvedStatus("pending"); ok {
		t.Fatal("expected pending to be rejected")
	}
}

func TestOpenDispatchesOnDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.SQLitePath = filepath.Join(testsupport.BaseDir(cfg), "nested", "db.sqlite")

	store, err := registry.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*registry.SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}

	cfg.Store.Driver = "oracle"
	if _, err := registry.Open(context.Background(), cfg); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
