package registry

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rollcall/internal/matching"
	"rollcall/internal/services"
)

//go:embed postgres_schema.sql
var postgresSchemaSQL string

const (
	defaultPostgresMaxConns = 4
	postgresPingTimeout     = 5 * time.Second
)

// PostgresStore is the shared registration backend for multi-operator setups.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to the database at dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	ctx = ensureContext(ctx)
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = defaultPostgresMaxConns
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// AddRegistration inserts a registration. A missing ID is generated.
func (s *PostgresStore) AddRegistration(ctx context.Context, r Registration) (*Registration, error) {
	r, err := prepareRegistration(r, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ensureContext(ctx),
		`INSERT INTO registrations (id, training_id, name, phone, city, email, recruiter_code, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.TrainingID, r.Name,
		nullableString(r.Phone), nullableString(r.City), nullableString(r.Email), nullableString(r.RecruiterCode),
		r.CreatedAt,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "add registration", "insert registration", err)
	}
	return &r, nil
}

const pgRegistrationSelect = `SELECT r.id, r.training_id, r.name, r.phone, r.city, r.email, r.recruiter_code, r.created_at,
    a.approved, a.manual_override, a.participant_name, a.total_minutes, a.window_minutes,
    a.window_percent, a.run_id, a.validated_at
FROM registrations r LEFT JOIN attendance a ON a.registration_id = r.id`

func scanPgRegistration(row pgx.Row) (*Registration, error) {
	var (
		reg                          Registration
		phone, city, email, recruit  *string
		approved, manual             *bool
		participantName, runID       *string
		total, windowMinutes, window *int
		validatedAt                  *time.Time
	)
	if err := row.Scan(
		&reg.ID, &reg.TrainingID, &reg.Name, &phone, &city, &email, &recruit, &reg.CreatedAt,
		&approved, &manual, &participantName, &total, &windowMinutes, &window, &runID, &validatedAt,
	); err != nil {
		return nil, err
	}
	reg.Phone = deref(phone)
	reg.City = deref(city)
	reg.Email = deref(email)
	reg.RecruiterCode = deref(recruit)
	if approved != nil {
		reg.Attendance = &Attendance{
			Validated:       true,
			Approved:        *approved,
			ManualOverride:  manual != nil && *manual,
			ParticipantName: deref(participantName),
			RunID:           deref(runID),
		}
		if total != nil {
			reg.Attendance.TotalMinutes = *total
		}
		if windowMinutes != nil {
			reg.Attendance.WindowMinutes = *windowMinutes
		}
		if window != nil {
			reg.Attendance.WindowPercent = *window
		}
		if validatedAt != nil {
			reg.Attendance.ValidatedAt = validatedAt.UTC()
		}
	}
	return &reg, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Registration fetches one registration with its attendance, if any.
func (s *PostgresStore) Registration(ctx context.Context, id string) (*Registration, error) {
	row := s.pool.QueryRow(ensureContext(ctx), pgRegistrationSelect+" WHERE r.id = $1", strings.TrimSpace(id))
	reg, err := scanPgRegistration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "lookup", "scan registration", err)
	}
	return reg, nil
}

// ListRegistrations returns registrations for a training in insertion order.
func (s *PostgresStore) ListRegistrations(ctx context.Context, trainingID string) ([]Registration, error) {
	query := pgRegistrationSelect
	var args []any
	if trainingID = strings.TrimSpace(trainingID); trainingID != "" {
		query += " WHERE r.training_id = $1"
		args = append(args, trainingID)
	}
	query += " ORDER BY r.created_at, r.id"

	rows, err := s.pool.Query(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list registrations", "query", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		reg, err := scanPgRegistration(rows)
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
func (s *PostgresStore) CandidatesForTraining(ctx context.Context, trainingID string) ([]matching.Candidate, error) {
	if strings.TrimSpace(trainingID) == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "candidates", "training id is required", nil)
	}
	regs, err := s.ListRegistrations(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	return candidates(regs), nil
}

// UpsertAttendance writes the attendance outcome for one registration.
func (s *PostgresStore) UpsertAttendance(ctx context.Context, outcome AttendanceOutcome) error {
	outcome, err := prepareOutcome(outcome, s.now().UTC())
	if err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)", outcome.RegistrationID,
	).Scan(&exists); err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "upsert attendance", "check registration", err)
	}
	if !exists {
		return notFound(outcome.RegistrationID)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO attendance (
            registration_id, validated, approved, manual_override, participant_name,
            total_minutes, window_minutes, window_percent, run_id, validated_at
        ) VALUES ($1, TRUE, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (registration_id) DO UPDATE SET
            validated = TRUE,
            approved = EXCLUDED.approved,
            manual_override = EXCLUDED.manual_override,
            participant_name = EXCLUDED.participant_name,
            total_minutes = EXCLUDED.total_minutes,
            window_minutes = EXCLUDED.window_minutes,
            window_percent = EXCLUDED.window_percent,
            run_id = EXCLUDED.run_id,
            validated_at = EXCLUDED.validated_at`,
		outcome.RegistrationID,
		outcome.Approved,
		outcome.ManualOverride,
		outcome.ParticipantName,
		outcome.TotalMinutes,
		outcome.WindowMinutes,
		outcome.WindowPercent,
		nullableString(outcome.RunID),
		outcome.ValidatedAt,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "upsert attendance", "write attendance", err)
	}
	return nil
}

// RecordUnresolved stores or replaces the unresolved entry for a participant.
func (s *PostgresStore) RecordUnresolved(ctx context.Context, record UnresolvedRecord) error {
	if err := record.validate(); err != nil {
		return services.Wrap(services.ErrValidation, "registry", "record unresolved", err.Error(), nil)
	}
	now := s.now().UTC()
	if record.MarkedAt.IsZero() {
		record.MarkedAt = now
	}
	_, err := s.pool.Exec(ensureContext(ctx),
		`INSERT INTO unresolved (
            run_id, training_id, participant_name, email, status,
            first_candidate_id, second_candidate_id, marked_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (training_id, participant_name) DO UPDATE SET
            run_id = EXCLUDED.run_id,
            email = EXCLUDED.email,
            status = EXCLUDED.status,
            first_candidate_id = EXCLUDED.first_candidate_id,
            second_candidate_id = EXCLUDED.second_candidate_id,
            marked_at = EXCLUDED.marked_at,
            updated_at = EXCLUDED.updated_at`,
		nullableString(record.RunID),
		record.TrainingID,
		record.ParticipantName,
		nullableString(record.Email),
		string(record.Status),
		nullableString(record.FirstCandidateID),
		nullableString(record.SecondCandidateID),
		record.MarkedAt,
		now,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "record unresolved", "write unresolved", err)
	}
	return nil
}

// ListUnresolved returns unresolved entries ordered by training and name.
func (s *PostgresStore) ListUnresolved(ctx context.Context, filter UnresolvedFilter) ([]UnresolvedRecord, error) {
	query := "SELECT " + unresolvedColumns + " FROM unresolved"
	var (
		clauses []string
		args    []any
	)
	if t := strings.TrimSpace(filter.TrainingID); t != "" {
		args = append(args, t)
		clauses = append(clauses, fmt.Sprintf("training_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY training_id, participant_name"

	rows, err := s.pool.Query(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list unresolved", "query", err)
	}
	defer rows.Close()

	var out []UnresolvedRecord
	for rows.Next() {
		var (
			rec                 UnresolvedRecord
			runID, email        *string
			first, second       *string
			status              string
			markedAt, updatedAt time.Time
		)
		if err := rows.Scan(&rec.ID, &runID, &rec.TrainingID, &rec.ParticipantName, &email, &status,
			&first, &second, &markedAt, &updatedAt); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "registry", "list unresolved", "scan", err)
		}
		rec.RunID = deref(runID)
		rec.Email = deref(email)
		rec.Status = UnresolvedStatus(status)
		rec.FirstCandidateID = deref(first)
		rec.SecondCandidateID = deref(second)
		rec.MarkedAt = markedAt.UTC()
		rec.UpdatedAt = updatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list unresolved", "iterate", err)
	}
	return out, nil
}

// ClearUnresolved removes the unresolved entry for a participant, if any.
func (s *PostgresStore) ClearUnresolved(ctx context.Context, trainingID, participantName string) error {
	_, err := s.pool.Exec(ensureContext(ctx),
		"DELETE FROM unresolved WHERE training_id = $1 AND participant_name = $2",
		strings.TrimSpace(trainingID), participantName,
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "registry", "clear unresolved", "delete", err)
	}
	return nil
}
