package registry

import (
	"database/sql"
	"errors"
	"time"
)

const registrationColumns = "r.id, r.training_id, r.name, r.phone, r.city, r.email, r.recruiter_code, r.created_at, " +
	"a.registration_id, a.validated, a.approved, a.manual_override, a.participant_name, " +
	"a.total_minutes, a.window_minutes, a.window_percent, a.run_id, a.validated_at"

const unresolvedColumns = "id, run_id, training_id, participant_name, email, status, " +
	"first_candidate_id, second_candidate_id, marked_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row scanner) (*Registration, error) {
	var (
		id, trainingID, name         string
		phone, city, email, recruit  sql.NullString
		createdRaw                   string
		attendanceID                 sql.NullString
		validated, approved, manual  sql.NullInt64
		participantName              sql.NullString
		total, windowMinutes, window sql.NullInt64
		runID, validatedRaw          sql.NullString
	)
	if err := row.Scan(
		&id, &trainingID, &name, &phone, &city, &email, &recruit, &createdRaw,
		&attendanceID, &validated, &approved, &manual, &participantName,
		&total, &windowMinutes, &window, &runID, &validatedRaw,
	); err != nil {
		return nil, err
	}

	reg := &Registration{
		ID:            id,
		TrainingID:    trainingID,
		Name:          name,
		Phone:         phone.String,
		City:          city.String,
		Email:         email.String,
		RecruiterCode: recruit.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		reg.CreatedAt = created
	}
	if attendanceID.Valid {
		a := &Attendance{
			Validated:       validated.Int64 != 0,
			Approved:        approved.Int64 != 0,
			ManualOverride:  manual.Int64 != 0,
			ParticipantName: participantName.String,
			TotalMinutes:    int(total.Int64),
			WindowMinutes:   int(windowMinutes.Int64),
			WindowPercent:   int(window.Int64),
			RunID:           runID.String,
		}
		if ts, err := parseTimeString(validatedRaw.String); err == nil {
			a.ValidatedAt = ts
		}
		reg.Attendance = a
	}
	return reg, nil
}

func scanUnresolved(row scanner) (UnresolvedRecord, error) {
	var (
		rec                   UnresolvedRecord
		runID, email          sql.NullString
		status                string
		first, second         sql.NullString
		markedRaw, updatedRaw string
	)
	if err := row.Scan(
		&rec.ID, &runID, &rec.TrainingID, &rec.ParticipantName, &email, &status,
		&first, &second, &markedRaw, &updatedRaw,
	); err != nil {
		return rec, err
	}
	rec.RunID = runID.String
	rec.Email = email.String
	rec.Status = UnresolvedStatus(status)
	rec.FirstCandidateID = first.String
	rec.SecondCandidateID = second.String
	if ts, err := parseTimeString(markedRaw); err == nil {
		rec.MarkedAt = ts
	}
	if ts, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
