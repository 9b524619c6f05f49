package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"rollcall/internal/matching"
	"rollcall/internal/services"
)

// SQLiteStore manages registration persistence backed by SQLite.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	now         func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultBusyTimeout      = 5 * time.Second
)

// SQLiteOption customizes a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithBusyTimeout bounds how long writes retry while the database is locked.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy reruns op with exponential backoff while SQLite reports
// SQLITE_BUSY. Any other error stops the retry immediately.
func (s *SQLiteStore) retryOnBusy(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = busyRetryInitialBackoff
	policy.MaxInterval = busyRetryMaxBackoff
	policy.MaxElapsedTime = s.busyTimeout

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isSQLiteBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := s.retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// OpenSQLite initializes or connects to the registration database at path.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db, path: path, busyTimeout: defaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", store.busyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddRegistration inserts a registration. A missing ID is generated.
func (s *SQLiteStore) AddRegistration(ctx context.Context, r Registration) (*Registration, error) {
	r, err := prepareRegistration(r, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO registrations (id, training_id, name, phone, city, email, recruiter_code, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.TrainingID,
		r.Name,
		nullableString(r.Phone),
		nullableString(r.City),
		nullableString(r.Email),
		nullableString(r.RecruiterCode),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "add registration", "insert registration", err)
	}
	return &r, nil
}

// Registration fetches one registration with its attendance, if any.
func (s *SQLiteStore) Registration(ctx context.Context, id string) (*Registration, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+registrationColumns+" FROM registrations r LEFT JOIN attendance a ON a.registration_id = r.id WHERE r.id = ?",
		strings.TrimSpace(id),
	)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "lookup", "scan registration", err)
	}
	return reg, nil
}

// ListRegistrations returns registrations for a training in insertion order.
// An empty trainingID lists every registration.
func (s *SQLiteStore) ListRegistrations(ctx context.Context, trainingID string) ([]Registration, error) {
	query := "SELECT " + registrationColumns + " FROM registrations r LEFT JOIN attendance a ON a.registration_id = r.id"
	var args []any
	if trainingID = strings.TrimSpace(trainingID); trainingID != "" {
		query += " WHERE r.training_id = ?"
		args = append(args, trainingID)
	}
	query += " ORDER BY r.created_at, r.rowid"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list registrations", "query", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "registry", "list registrations", "scan", err)
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list registrations", "iterate", err)
	}
	return out, nil
}

// CandidatesForTraining lists the matching projection of every registration
// in the training.
func (s *SQLiteStore) CandidatesForTraining(ctx context.Context, trainingID string) ([]matching.Candidate, error) {
	if strings.TrimSpace(trainingID) == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "candidates", "training id is required", nil)
	}
	regs, err := s.ListRegistrations(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	return candidates(regs), nil
}

// UpsertAttendance writes the attendance outcome for one registration,
// overwriting any earlier outcome.
func (s *SQLiteStore) UpsertAttendance(ctx context.Context, outcome AttendanceOutcome) error {
	outcome, err := prepareOutcome(outcome, s.now().UTC())
	if err != nil {
		return err
	}
	var exists int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT COUNT(1) FROM registrations WHERE id = ?", outcome.RegistrationID,
	).Scan(&exists); err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "upsert attendance", "check registration", err)
	}
	if exists == 0 {
		return notFound(outcome.RegistrationID)
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO attendance (
            registration_id, validated, approved, manual_override, participant_name,
            total_minutes, window_minutes, window_percent, run_id, validated_at
        ) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(registration_id) DO UPDATE SET
            validated = 1,
            approved = excluded.approved,
            manual_override = excluded.manual_override,
            participant_name = excluded.participant_name,
            total_minutes = excluded.total_minutes,
            window_minutes = excluded.window_minutes,
            window_percent = excluded.window_percent,
            run_id = excluded.run_id,
            validated_at = excluded.validated_at`,
		outcome.RegistrationID,
		boolToInt(outcome.Approved),
		boolToInt(outcome.ManualOverride),
		outcome.ParticipantName,
		outcome.TotalMinutes,
		outcome.WindowMinutes,
		outcome.WindowPercent,
		nullableString(outcome.RunID),
		formatTime(outcome.ValidatedAt),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "upsert attendance", "write attendance", err)
	}
	return nil
}

// RecordUnresolved stores or replaces the unresolved entry for a participant
// within a training.
func (s *SQLiteStore) RecordUnresolved(ctx context.Context, record UnresolvedRecord) error {
	if err := record.validate(); err != nil {
		return services.Wrap(services.ErrValidation, "registry", "record unresolved", err.Error(), nil)
	}
	now := s.now().UTC()
	if record.MarkedAt.IsZero() {
		record.MarkedAt = now
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO unresolved (
            run_id, training_id, participant_name, email, status,
            first_candidate_id, second_candidate_id, marked_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(training_id, participant_name) DO UPDATE SET
            run_id = excluded.run_id,
            email = excluded.email,
            status = excluded.status,
            first_candidate_id = excluded.first_candidate_id,
            second_candidate_id = excluded.second_candidate_id,
            marked_at = excluded.marked_at,
            updated_at = excluded.updated_at`,
		nullableString(record.RunID),
		record.TrainingID,
		record.ParticipantName,
		nullableString(record.Email),
		string(record.Status),
		nullableString(record.FirstCandidateID),
		nullableString(record.SecondCandidateID),
		formatTime(record.MarkedAt),
		formatTime(now),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "record unresolved", "write unresolved", err)
	}
	return nil
}

// ListUnresolved returns unresolved entries ordered by training and name.
func (s *SQLiteStore) ListUnresolved(ctx context.Context, filter UnresolvedFilter) ([]UnresolvedRecord, error) {
	query := "SELECT " + unresolvedColumns + " FROM unresolved"
	var (
		clauses []string
		args    []any
	)
	if t := strings.TrimSpace(filter.TrainingID); t != "" {
		clauses = append(clauses, "training_id = ?")
		args = append(args, t)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY training_id, participant_name"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list unresolved", "query", err)
	}
	defer rows.Close()

	var out []UnresolvedRecord
	for rows.Next() {
		rec, err := scanUnresolved(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "registry", "list unresolved", "scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list unresolved", "iterate", err)
	}
	return out, nil
}

// ClearUnresolved removes the unresolved entry for a participant, if any.
func (s *SQLiteStore) ClearUnresolved(ctx context.Context, trainingID, participantName string) error {
	_, err := s.execWithRetry(ctx,
		"DELETE FROM unresolved WHERE training_id = ? AND participant_name = ?",
		strings.TrimSpace(trainingID), participantName,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "clear unresolved", "delete", err)
	}
	return nil
}
