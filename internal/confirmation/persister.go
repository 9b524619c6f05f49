package confirmation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rollcall/internal/logging"
	"rollcall/internal/registry"
	"rollcall/internal/review"
	"rollcall/internal/services"
)

const stageName = "confirmation"

// ErrNotReady is returned when participants still await a decision.
var ErrNotReady = fmt.Errorf("%w: workspace has participants awaiting review", services.ErrValidation)

// Kind distinguishes the two write paths of a commit.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindUnresolved Kind = "unresolved"
)

// Failure describes one record that could not be written.
type Failure struct {
	Kind            Kind
	ParticipantName string
	RegistrationID  string
	Err             error
}

// Report aggregates the result of a commit.
type Report struct {
	RunID      string
	TrainingID string
	Persisted  int
	Unresolved int
	Failures   []Failure
}

// Failed returns the number of records that were not written.
func (r Report) Failed() int { return len(r.Failures) }

// OK reports whether every record was written.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Persister commits workspaces to a registration store.
type Persister struct {
	store  registry.Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes a Persister.
type Option func(*Persister)

// WithClock overrides the validation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Persister) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a Persister writing to store.
func New(store registry.Store, logger *slog.Logger, opts ...Option) *Persister {
	p := &Persister{
		store:  store,
		logger: logging.NewComponentLogger(logger, stageName),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Persister) lockFor(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[id]
	if !ok {
		m = &sync.Mutex{}
		p.locks[id] = m
	}
	return m
}

// Commit writes the reviewed outcomes of ws. It fails without writing
// anything when the workspace is not ready for confirmation; otherwise
// per-record failures are collected in the report and err is nil.
func (p *Persister) Commit(ctx context.Context, ws *review.Workspace) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := Report{RunID: ws.ID(), TrainingID: ws.TrainingID()}
	if blocking := ws.Blocking(); len(blocking) > 0 {
		return report, services.Wrap(ErrNotReady, stageName, "commit",
			fmt.Sprintf("%d participant(s) awaiting review: %s", len(blocking), strings.Join(blocking, ", ")), nil)
	}

	ctx = services.WithStage(services.WithTrainingID(services.WithRunID(ctx, ws.ID()), ws.TrainingID()), stageName)
	logger := logging.WithContext(ctx, p.logger)
	validatedAt := p.now().UTC()

	for _, outcome := range ws.Outcomes() {
		if err := p.persistOutcome(ctx, ws, outcome, validatedAt); err != nil {
			report.Failures = append(report.Failures, Failure{
				Kind:            KindAttendance,
				ParticipantName: outcome.ParticipantName,
				RegistrationID:  outcome.RegistrationID,
				Err:             err,
			})
			logging.WarnWithContext(logger, "attendance write failed", "attendance_write_failed",
				logging.Participant(outcome.ParticipantName),
				logging.Registration(outcome.RegistrationID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun commit for this run once the store is reachable"),
				logging.String(logging.FieldImpact, "participant stays confirmed but unpersisted"))
			continue
		}
		report.Persisted++
	}

	for _, u := range ws.UnresolvedParticipants() {
		if err := p.store.RecordUnresolved(ctx, unresolvedRecord(ws, u)); err != nil {
			report.Failures = append(report.Failures, Failure{
				Kind:            KindUnresolved,
				ParticipantName: u.ParticipantName,
				Err:             err,
			})
			logging.WarnWithContext(logger, "unresolved record write failed", "unresolved_write_failed",
				logging.Participant(u.ParticipantName),
				logging.String("status", string(u.Status)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun commit for this run once the store is reachable"),
				logging.String(logging.FieldImpact, "participant missing from the pending queue"))
			continue
		}
		report.Unresolved++
	}

	logger.Info("commit finished",
		logging.String(logging.FieldEventType, "commit_finished"),
		logging.Int("persisted", report.Persisted),
		logging.Int("unresolved", report.Unresolved),
		logging.Int("failed", report.Failed()))
	return report, nil
}

func (p *Persister) persistOutcome(ctx context.Context, ws *review.Workspace, o review.Outcome, validatedAt time.Time) error {
	lock := p.lockFor(o.RegistrationID)
	lock.Lock()
	defer lock.Unlock()

	err := p.store.UpsertAttendance(ctx, registry.AttendanceOutcome{
		RegistrationID:  o.RegistrationID,
		ParticipantName: o.ParticipantName,
		Approved:        o.Approved,
		ManualOverride:  o.ManualOverride,
		TotalMinutes:    o.TotalMinutes,
		WindowMinutes:   o.WindowMinutes,
		WindowPercent:   o.WindowPercent,
		RunID:           ws.ID(),
		ValidatedAt:     validatedAt,
	})
	if err != nil {
		return err
	}
	if err := p.store.ClearUnresolved(ctx, ws.TrainingID(), o.ParticipantName); err != nil {
		logging.WarnWithContext(p.logger, "stale unresolved entry kept", "unresolved_clear_failed",
			logging.Participant(o.ParticipantName),
			logging.Error(err),
			logging.String(logging.FieldImpact, "pending queue still lists a confirmed participant"))
	}
	return nil
}

func unresolvedRecord(ws *review.Workspace, u review.Unresolved) registry.UnresolvedRecord {
	rec := registry.UnresolvedRecord{
		RunID:           ws.ID(),
		TrainingID:      ws.TrainingID(),
		ParticipantName: u.ParticipantName,
		Email:           u.Email,
		MarkedAt:        u.MarkedAt,
	}
	switch u.Status {
	case review.StatusDoubt:
		rec.Status = registry.UnresolvedDoubt
	default:
		rec.Status = registry.UnresolvedNotFound
	}
	if u.First != nil {
		rec.FirstCandidateID = u.First.ID
	}
	if u.Second != nil {
		rec.SecondCandidateID = u.Second.ID
	}
	return rec
}

// Pending lists the unresolved queue, optionally narrowed to one training
// and status.
func (p *Persister) Pending(ctx context.Context, trainingID string, status registry.UnresolvedStatus) ([]registry.UnresolvedRecord, error) {
	return p.store.ListUnresolved(ctx, registry.UnresolvedFilter{TrainingID: trainingID, Status: status})
}
