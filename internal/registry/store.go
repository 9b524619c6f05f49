package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/matching"
	"rollcall/internal/services"
)

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store is the registration store contract shared by every backend.
type Store interface {
	AddRegistration(ctx context.Context, r Registration) (*Registration, error)
	Registration(ctx context.Context, id string) (*Registration, error)
	ListRegistrations(ctx context.Context, trainingID string) ([]Registration, error)
	CandidatesForTraining(ctx context.Context, trainingID string) ([]matching.Candidate, error)
	UpsertAttendance(ctx context.Context, outcome AttendanceOutcome) error
	RecordUnresolved(ctx context.Context, record UnresolvedRecord) error
	ListUnresolved(ctx context.Context, filter UnresolvedFilter) ([]UnresolvedRecord, error)
	ClearUnresolved(ctx context.Context, trainingID, participantName string) error
	Close() error
}

func prepareRegistration(r Registration, now time.Time) (Registration, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.TrainingID = strings.TrimSpace(r.TrainingID)
	r.Name = strings.TrimSpace(r.Name)
	if r.TrainingID == "" || r.Name == "" {
		return r, services.Wrap(services.ErrValidation, "registry", "add registration", "training id and name are required", nil)
	}
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.City = strings.TrimSpace(r.City)
	r.RecruiterCode = strings.TrimSpace(r.RecruiterCode)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.Attendance = nil
	return r, nil
}

func prepareOutcome(o AttendanceOutcome, now time.Time) (AttendanceOutcome, error) {
	o.RegistrationID = strings.TrimSpace(o.RegistrationID)
	if o.RegistrationID == "" {
		return o, services.Wrap(services.ErrValidation, "registry", "upsert attendance", "registration id is required", nil)
	}
	if o.ValidatedAt.IsZero() {
		o.ValidatedAt = now
	}
	return o, nil
}

func notFound(id string) error {
	return services.Wrap(services.ErrNotFound, "registry", "lookup", fmt.Sprintf("registration %q not found", id), nil)
}

func candidates(regs []Registration) []matching.Candidate {
	out := make([]matching.Candidate, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Candidate())
	}
	return out
}
