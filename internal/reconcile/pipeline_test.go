package reconcile_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/logging"
	"rollcall/internal/matching"
	"rollcall/internal/reconcile"
	"rollcall/internal/review"
	"rollcall/internal/services"
	"rollcall/internal/testsupport"
)

type fakeSource struct {
	candidates []matching.Candidate
	err        error
	calls      int
}

func (f *fakeSource) CandidatesForTraining(_ context.Context, trainingID string) ([]matching.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

const export = testsupport.SessionLogHeader + `
John Doe,john@example.com,15/03/2024 10:00:00 AM,15/03/2024 10:40:00 AM,40,No,No
John Doe,john@example.com,15/03/2024 10:45:00 AM,15/03/2024 11:30:00 AM,45,No,No
Maria Souza,,15/03/2024 10:30:00 AM,15/03/2024 11:30:00 AM,,No,No
Host Bot,,15/03/2024 09:55:00 AM,15/03/2024 11:35:00 AM,100,No,No
Ghost,,not a date,15/03/2024 11:00:00 AM,10,No,No
`

func window(loc *time.Location) attendance.WindowConfig {
	at := func(h, m int) time.Time { return time.Date(2024, 3, 15, h, m, 0, 0, loc) }
	return attendance.WindowConfig{
		TrainingID:    "t-1",
		LiveStart:     at(10, 0),
		LiveEnd:       at(11, 30),
		WindowStart:   at(10, 30),
		WindowEnd:     at(11, 30),
		MinMinutes:    attendance.DefaultMinMinutes,
		MinPercentage: attendance.DefaultMinPercentage,
	}
}

func newPipeline(src *fakeSource) *reconcile.Pipeline {
	return reconcile.New(src, logging.NewNop(),
		reconcile.WithIDGenerator(func() string { return "run-fixed" }))
}

func TestRunBuildsWorkspace(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	src := &fakeSource{candidates: []matching.Candidate{
		{ID: "r1", Name: "Johnny Doe", Email: "JOHN@example.com"},
		{ID: "r2", Name: "Maria Souza"},
	}}

	ws, err := newPipeline(src).Run(context.Background(), reconcile.Input{
		Source:     strings.NewReader(export),
		FileName:   "export.csv",
		Window:     window(loc),
		Exclusions: []string{"bot"},
		Location:   loc,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if ws.ID() != "run-fixed" || ws.TrainingID() != "t-1" {
		t.Fatalf("identity = %s/%s", ws.ID(), ws.TrainingID())
	}

	source := ws.Source()
	if source.FileName != "export.csv" || source.DataRows != 5 || source.Records != 4 {
		t.Fatalf("unexpected source info: %+v", source)
	}
	if source.Dropped != 1 || source.DerivedDurations != 1 {
		t.Fatalf("dropped=%d derived=%d, want 1 and 1", source.Dropped, source.DerivedDurations)
	}

	john, ok := ws.Analysis("John Doe")
	if !ok {
		t.Fatal("missing analysis for John Doe")
	}
	if john.TotalMinutes != 85 || john.WindowMinutes != 55 || john.WindowPercent != 92 || !john.Approved {
		t.Fatalf("unexpected analysis: %+v", john)
	}

	a, ok := ws.Association("John Doe")
	if !ok || a.Status() != review.StatusAutoMatched {
		t.Fatalf("John Doe association = %#v, want auto_matched", a)
	}
	m, ok := review.ProposedMatch(a)
	if !ok || m.Candidate.ID != "r1" || m.Reason != matching.ReasonSameEmail {
		t.Fatalf("unexpected proposal: %+v", m)
	}

	summary := ws.Summary()
	if summary.Participants != 3 || summary.Excluded != 1 || summary.AutoMatched != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if src.calls != 1 {
		t.Fatalf("candidate source called %d times, want 1", src.calls)
	}
}

func TestRunFatalErrorsStopBeforeMatching(t *testing.T) {
	cases := []struct {
		name   string
		input  reconcile.Input
		marker error
	}{
		{
			name:   "empty file",
			input:  reconcile.Input{Source: strings.NewReader(""), Window: window(time.UTC)},
			marker: services.ErrEmptyInput,
		},
		{
			name:   "header only",
			input:  reconcile.Input{Source: strings.NewReader(testsupport.SessionLogHeader + "\n"), Window: window(time.UTC)},
			marker: services.ErrEmptyInput,
		},
		{
			name:   "missing name column",
			input:  reconcile.Input{Source: strings.NewReader("foo,bar\n1,2\n"), Window: window(time.UTC)},
			marker: services.ErrMalformedInput,
		},
		{
			name:   "unterminated quote",
			input:  reconcile.Input{Source: strings.NewReader(testsupport.SessionLogHeader + "\n\"Ana,,15/03/2024 10:00:00 AM,15/03/2024 10:40:00 AM,40,No,No\n"), Window: window(time.UTC)},
			marker: services.ErrMalformedInput,
		},
		{
			name:   "missing window bounds",
			input:  reconcile.Input{Source: strings.NewReader(export), Window: attendance.WindowConfig{TrainingID: "t-1"}},
			marker: services.ErrInvalidConfiguration,
		},
		{
			name:   "no source",
			input:  reconcile.Input{Window: window(time.UTC)},
			marker: services.ErrEmptyInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{}
			ws, err := newPipeline(src).Run(context.Background(), tc.input)
			if ws != nil {
				t.Fatalf("expected no workspace, got %s", ws.ID())
			}
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
			if !services.IsFatal(err) {
				t.Fatalf("expected fatal error, got %v", err)
			}
			if src.calls != 0 {
				t.Fatalf("candidate source called %d times", src.calls)
			}
		})
	}
}

func TestRunPropagatesCandidateFailure(t *testing.T) {
	boom := services.Wrap(services.ErrPersistence, "registry", "candidates", "", errors.New("connection refused"))
	ws, err := newPipeline(&fakeSource{err: boom}).Run(context.Background(), reconcile.Input{
		Source: strings.NewReader(export),
		Window: window(time.UTC),
	})
	if ws != nil {
		t.Fatalf("expected no workspace, got %s", ws.ID())
	}
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestRunGeneratesRunIDWhenUnset(t *testing.T) {
	ws, err := reconcile.New(&fakeSource{}, logging.NewNop()).Run(context.Background(), reconcile.Input{
		Source: strings.NewReader(export),
		Window: window(time.UTC),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(ws.ID()) != 36 {
		t.Fatalf("run id %q is not a uuid", ws.ID())
	}

	pending := slices.Clone(ws.ParticipantsByStatus()[review.StatusPending])
	slices.Sort(pending)
	if want := []string{"Host Bot", "John Doe", "Maria Souza"}; !slices.Equal(pending, want) {
		t.Fatalf("pending = %v, want %v", pending, want)
	}
}
