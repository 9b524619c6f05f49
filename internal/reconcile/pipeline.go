package reconcile

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/attendance"
	"rollcall/internal/logging"
	"rollcall/internal/matching"
	"rollcall/internal/review"
	"rollcall/internal/services"
	"rollcall/internal/sessionlog"
)

// CandidateSource lists the registrations a training's participants can be
// matched against.
type CandidateSource interface {
	CandidatesForTraining(ctx context.Context, trainingID string) ([]matching.Candidate, error)
}

// Input describes one upload.
type Input struct {
	Source     io.Reader
	FileName   string
	Window     attendance.WindowConfig
	Exclusions []string
	// Location interprets timestamps without an explicit offset.
	Location *time.Location
	// RunID is generated when empty.
	RunID string
}

// Pipeline builds review workspaces from session exports.
type Pipeline struct {
	candidates CandidateSource
	logger     *slog.Logger
	opts       []review.Option
	newID      func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithWorkspaceOptions forwards options to every workspace the pipeline builds.
func WithWorkspaceOptions(opts ...review.Option) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, opts...)
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New constructs a pipeline reading candidates from source.
func New(source CandidateSource, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		candidates: source,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline for in and returns the resulting workspace.
func (p *Pipeline) Run(ctx context.Context, in Input) (*review.Workspace, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if in.Source == nil {
		return nil, services.Wrap(services.ErrEmptyInput, "reconcile", "run", "no input file", nil)
	}
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		runID = p.newID()
	}
	ctx = services.WithTrainingID(services.WithRunID(ctx, runID), in.Window.TrainingID)

	analyzer, err := attendance.NewAnalyzer(in.Window)
	if err != nil {
		return nil, err
	}

	parseCtx := services.WithStage(ctx, "parse")
	parsed, err := sessionlog.Parse(in.Source, sessionlog.Options{Location: in.Location})
	if err != nil {
		return nil, err
	}
	logging.WithContext(parseCtx, p.logger).Info("session log parsed",
		logging.String(logging.FieldEventType, "parse_complete"),
		logging.String("file", in.FileName),
		logging.Int("data_rows", parsed.DataRows),
		logging.Int("records", len(parsed.Records)),
		logging.Int("dropped", parsed.Dropped),
		logging.Int("derived_durations", parsed.DerivedDurations))

	consolidateCtx := services.WithStage(ctx, "consolidate")
	participants := attendance.Consolidate(parsed.Records, in.Exclusions)
	subjects := make([]matching.Subject, 0, len(participants))
	excluded := 0
	for _, part := range participants {
		if !part.Active() {
			excluded++
			continue
		}
		subjects = append(subjects, matching.Subject{Name: part.Name, Email: part.Email})
	}
	logging.WithContext(consolidateCtx, p.logger).Info("participants consolidated",
		logging.String(logging.FieldEventType, "consolidate_complete"),
		logging.Int("participants", len(participants)),
		logging.Int("excluded", excluded))

	matchCtx := services.WithStage(ctx, "match")
	candidates, err := p.candidates.CandidatesForTraining(matchCtx, in.Window.TrainingID)
	if err != nil {
		return nil, err
	}
	assignments := matching.ResolveBatch(subjects, candidates)

	ws, err := review.New(analyzer, review.Seed{
		ID: runID,
		Source: review.SourceInfo{
			FileName:         in.FileName,
			DataRows:         parsed.DataRows,
			Records:          len(parsed.Records),
			Dropped:          parsed.Dropped,
			DerivedDurations: parsed.DerivedDurations,
		},
		Exclusions:   in.Exclusions,
		Participants: participants,
		Candidates:   candidates,
		Assignments:  assignments,
	}, p.opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "reconcile", "build workspace", "", err)
	}

	summary := ws.Summary()
	logging.WithContext(matchCtx, p.logger).Info("participants matched",
		logging.String(logging.FieldEventType, "match_complete"),
		logging.Int("candidates", len(candidates)),
		logging.Int("auto_matched", summary.AutoMatched),
		logging.Int("suggested", summary.Suggested),
		logging.Int("pending", summary.Pending),
		logging.Int("approved", summary.Approved),
		logging.Int("rejected", summary.Rejected))
	return ws, nil
}
