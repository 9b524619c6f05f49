package review_test

import (
	"encoding/json"
	"errors"
	"maps"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/matching"
	"rollcall/internal/review"
	"rollcall/internal/sessionlog"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func record(name string, join, leave time.Time) sessionlog.Record {
	return sessionlog.Record{Name: name, JoinTime: join, LeaveTime: leave, Duration: int(leave.Sub(join).Minutes())}
}

var candidates = []matching.Candidate{
	{ID: "r1", Name: "John Doe", City: "Recife", Email: "john@example.com"},
	{ID: "r2", Name: "Maria Souza", City: "Sao Paulo", Phone: "+55 11 99999-0000"},
	{ID: "r3", Name: "Pedro Alves", City: "Curitiba", RecruiterCode: "REC-77"},
}

// newWorkspace lists participants in the order John Doe, Maria Souza, Ana,
// iPhone de Ana. John and Maria start auto-matched to r1 and r2.
func newWorkspace(t *testing.T) *review.Workspace {
	t.Helper()
	records := []sessionlog.Record{
		record("John Doe", at(10, 0), at(10, 40)),
		record("John Doe", at(10, 45), at(11, 30)),
		record("Maria Souza", at(10, 30), at(11, 30)),
		record("Ana", at(10, 30), at(11, 0)),
		record("iPhone de Ana", at(11, 0), at(11, 20)),
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
	clock := func() time.Time { return at(12, 0) }
	ws, err := review.New(analyzer, review.Seed{
		ID:           "run-1",
		Participants: participants,
		Candidates:   candidates,
		Assignments:  matching.ResolveBatch(subjects, candidates),
	}, review.WithClock(clock))
	if err != nil {
		t.Fatalf("review.New returned error: %v", err)
	}
	return ws
}

func status(t *testing.T, ws *review.Workspace, name string) review.Status {
	t.Helper()
	a, ok := ws.Association(name)
	if !ok {
		t.Fatalf("no association for %q", name)
	}
	return a.Status()
}

func requireStatus(t *testing.T, ws *review.Workspace, name string, want review.Status) {
	t.Helper()
	if got := status(t, ws, name); got != want {
		t.Fatalf("%s status = %s, want %s", name, got, want)
	}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func mustSelect(t *testing.T, ws *review.Workspace, name, id string) string {
	t.Helper()
	conflict, err := ws.Select(name, id)
	if err != nil {
		t.Fatalf("Select(%q, %q) returned error: %v", name, id, err)
	}
	return conflict
}

func mustRematch(t *testing.T, ws *review.Workspace, name string) review.Association {
	t.Helper()
	a, err := ws.Rematch(name)
	if err != nil {
		t.Fatalf("Rematch(%q) returned error: %v", name, err)
	}
	return a
}

func TestNewSeedsAssociationsFromBatch(t *testing.T) {
	ws := newWorkspace(t)

	requireStatus(t, ws, "John Doe", review.StatusAutoMatched)
	requireStatus(t, ws, "Maria Souza", review.StatusAutoMatched)
	requireStatus(t, ws, "Ana", review.StatusPending)
	requireStatus(t, ws, "iPhone de Ana", review.StatusPending)

	john, ok := ws.Analysis("John Doe")
	if !ok {
		t.Fatal("missing analysis for John Doe")
	}
	if john.TotalMinutes != 85 || john.WindowMinutes != 55 || john.WindowPercent != 92 || !john.Approved {
		t.Fatalf("unexpected analysis: %+v", john)
	}

	wantClaims := map[string]string{"r1": "John Doe", "r2": "Maria Souza"}
	if got := ws.ClaimedRegistrations(); !maps.Equal(got, wantClaims) {
		t.Fatalf("claims = %v, want %v", got, wantClaims)
	}

	sum := ws.Summary()
	if sum.Participants != 4 || sum.Active != 4 || sum.Approved != 2 || sum.Rejected != 2 {
		t.Fatalf("unexpected participant counts: %+v", sum)
	}
	if sum.AutoMatched != 2 || sum.Pending != 2 || sum.Ready {
		t.Fatalf("unexpected association counts: %+v", sum)
	}
	if len(sum.Candidates) != 3 {
		t.Fatalf("expected 3 candidates in summary, got %d", len(sum.Candidates))
	}
}

func TestConfirmationGate(t *testing.T) {
	ws := newWorkspace(t)
	if ws.ReadyForConfirmation() {
		t.Fatal("fresh run must not be ready")
	}
	if got := ws.Blocking(); !slices.Equal(got, []string{"John Doe", "Maria Souza", "Ana", "iPhone de Ana"}) {
		t.Fatalf("blocking = %v", got)
	}

	if n := ws.ConfirmAllAutoMatched(); n != 2 {
		t.Fatalf("ConfirmAllAutoMatched = %d, want 2", n)
	}
	if got := ws.Blocking(); !slices.Equal(got, []string{"Ana", "iPhone de Ana"}) {
		t.Fatalf("blocking after confirm-all = %v", got)
	}

	mustDo(t, ws.MarkNotFound("Ana"))
	mustDo(t, ws.MarkDoubt("iPhone de Ana", "r2", "r3"))
	if !ws.ReadyForConfirmation() {
		t.Fatal("not-found and doubt must not block")
	}

	sum := ws.Summary()
	if sum.Confirmed != 2 || sum.NotFound != 1 || sum.Doubt != 1 || !sum.Ready {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	outcomes := ws.Outcomes()
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	want := review.Outcome{
		RegistrationID:  "r1",
		ParticipantName: "John Doe",
		Approved:        true,
		TotalMinutes:    85,
		WindowMinutes:   55,
		WindowPercent:   92,
	}
	if outcomes[0] != want {
		t.Fatalf("outcome = %+v, want %+v", outcomes[0], want)
	}

	unresolved := ws.UnresolvedParticipants()
	if len(unresolved) != 2 {
		t.Fatalf("expected 2 unresolved, got %d", len(unresolved))
	}
	nf := unresolved[0]
	if nf.Status != review.StatusNotFound || nf.First != nil || !nf.MarkedAt.Equal(at(12, 0)) {
		t.Fatalf("unexpected not-found entry: %+v", nf)
	}
	doubt := unresolved[1]
	if doubt.Status != review.StatusDoubt || doubt.First == nil || doubt.Second == nil {
		t.Fatalf("unexpected doubt entry: %+v", doubt)
	}
	if doubt.First.ID != "r2" || doubt.Second.ID != "r3" {
		t.Fatalf("doubt candidates = %s, %s", doubt.First.ID, doubt.Second.ID)
	}
}

func TestConfirmedIsTerminal(t *testing.T) {
	ws := newWorkspace(t)
	mustDo(t, ws.Confirm("John Doe"))

	requireErrorIs(t, ws.Reset("John Doe"), review.ErrInvalidTransition)
	requireErrorIs(t, ws.MarkNotFound("John Doe"), review.ErrInvalidTransition)
	requireErrorIs(t, ws.MarkDoubt("John Doe", "r2", "r3"), review.ErrInvalidTransition)
	_, err := ws.Select("John Doe", "r3")
	requireErrorIs(t, err, review.ErrInvalidTransition)
	_, err = ws.Rematch("John Doe")
	requireErrorIs(t, err, review.ErrInvalidTransition)
	requireStatus(t, ws, "John Doe", review.StatusConfirmed)
}

func TestSelectReportsConflictButProceeds(t *testing.T) {
	ws := newWorkspace(t)

	if conflict := mustSelect(t, ws, "Ana", "r1"); conflict != "John Doe" {
		t.Fatalf("conflict = %q, want John Doe", conflict)
	}
	a, _ := ws.Association("Ana")
	confirmed, ok := a.(review.Confirmed)
	if !ok || confirmed.Candidate.ID != "r1" || !confirmed.Manual {
		t.Fatalf("expected a manual confirmation on r1, got %#v", a)
	}

	if conflict := mustSelect(t, ws, "Maria Souza", "r2"); conflict != "" {
		t.Fatalf("unexpected conflict %q for Maria's own proposal", conflict)
	}
	a, _ = ws.Association("Maria Souza")
	if a.(review.Confirmed).Manual {
		t.Fatal("selecting the proposal is not a manual pick")
	}
}

func TestSelectConflictIgnoresListOrder(t *testing.T) {
	// Ana is listed after Maria, who holds r2 through her proposal.
	ws := newWorkspace(t)
	if conflict := mustSelect(t, ws, "Ana", "r2"); conflict != "Maria Souza" {
		t.Fatalf("later selector: conflict = %q, want Maria Souza", conflict)
	}
	// Maria comes first in the list but Ana now holds r2 as well.
	if conflict := mustSelect(t, ws, "Maria Souza", "r2"); conflict != "Ana" {
		t.Fatalf("earlier selector: conflict = %q, want Ana", conflict)
	}

	// Same check when the earlier participant has no proposal of its own.
	ws = newWorkspace(t)
	mustDo(t, ws.MarkNotFound("John Doe"))
	mustSelect(t, ws, "iPhone de Ana", "r1")
	if conflict := mustSelect(t, ws, "John Doe", "r1"); conflict != "iPhone de Ana" {
		t.Fatalf("conflict = %q, want iPhone de Ana", conflict)
	}
}

func TestRematchSkipsRegistrationsHeldByLaterParticipants(t *testing.T) {
	// Maria is listed first and still holds her r2 proposal when Ana confirms it.
	ws := newWorkspace(t)
	if conflict := mustSelect(t, ws, "Ana", "r2"); conflict != "Maria Souza" {
		t.Fatalf("conflict = %q, want Maria Souza", conflict)
	}

	got := mustRematch(t, ws, "Maria Souza")
	if got.Status() != review.StatusPending {
		t.Fatalf("rematch proposed %#v although Ana confirmed r2", got)
	}
	if _, ok := review.ProposedMatch(got); ok {
		t.Fatalf("pending rematch must not carry a proposal: %#v", got)
	}

	wantClaims := map[string]string{"r1": "John Doe", "r2": "Ana"}
	if claims := ws.ClaimedRegistrations(); !maps.Equal(claims, wantClaims) {
		t.Fatalf("claims = %v, want %v", claims, wantClaims)
	}
}

func TestResetAndRematch(t *testing.T) {
	ws := newWorkspace(t)
	mustDo(t, ws.MarkNotFound("Maria Souza"))
	if _, held := ws.ClaimedRegistrations()["r2"]; held {
		t.Fatal("not-found participants must release their proposal")
	}

	mustDo(t, ws.Reset("Maria Souza"))
	requireStatus(t, ws, "Maria Souza", review.StatusPending)

	if got := mustRematch(t, ws, "Maria Souza"); got.Status() != review.StatusAutoMatched {
		t.Fatalf("rematch = %s, want auto_matched", got.Status())
	}

	// Once another participant holds r2 the rematch cannot reach it.
	mustSelect(t, ws, "Ana", "r2")
	mustDo(t, ws.Exclude("Ana"))
	if got := mustRematch(t, ws, "Maria Souza"); got.Status() != review.StatusAutoMatched {
		t.Fatalf("excluded participants release their claims, got %s", got.Status())
	}

	mustDo(t, ws.Restore("Ana"))
	if got := mustRematch(t, ws, "Maria Souza"); got.Status() != review.StatusPending {
		t.Fatalf("rematch after restore = %s, want pending", got.Status())
	}
}

func TestMergeRecomputesPrimary(t *testing.T) {
	ws := newWorkspace(t)

	primary, err := ws.Merge("iPhone de Ana", "Ana")
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if primary.Name != "Ana" || primary.TotalMinutes != 50 {
		t.Fatalf("unexpected primary: %s %d", primary.Name, primary.TotalMinutes)
	}

	a, _ := ws.Analysis("Ana")
	if a.TotalMinutes != 50 || a.WindowMinutes != 50 || a.WindowPercent != 83 || a.Approved {
		t.Fatalf("analysis not recomputed: %+v", a)
	}

	secondary, _ := ws.Participant("iPhone de Ana")
	if !secondary.Removed || secondary.MergedInto != "Ana" {
		t.Fatalf("secondary not flagged: %+v", secondary)
	}
	if ws.Summary().Removed != 1 {
		t.Fatalf("removed count = %d, want 1", ws.Summary().Removed)
	}
	requireErrorIs(t, ws.Confirm("iPhone de Ana"), review.ErrInactiveParticipant)

	mustDo(t, ws.Restore("iPhone de Ana"))
	restored, _ := ws.Participant("iPhone de Ana")
	if !restored.Active() {
		t.Fatal("restore should reactivate the secondary")
	}
	merged, _ := ws.Participant("Ana")
	if merged.TotalMinutes != 50 {
		t.Fatalf("merge itself is not undone, total=%d", merged.TotalMinutes)
	}
}

func TestForceApproveKeepsComputedFlags(t *testing.T) {
	ws := newWorkspace(t)
	mustDo(t, ws.ForceApprove("Ana"))

	a, _ := ws.Analysis("Ana")
	if !a.Approved || !a.ManualOverride || a.MeetsMinimum {
		t.Fatalf("unexpected flags: %+v", a)
	}

	sum := ws.Summary()
	if sum.Approved != 3 || sum.ManualOverrides != 1 {
		t.Fatalf("approved=%d overrides=%d, want 3 and 1", sum.Approved, sum.ManualOverrides)
	}
}

func TestExcludedParticipantsLeaveGateAndCounts(t *testing.T) {
	ws := newWorkspace(t)
	ws.ConfirmAllAutoMatched()
	mustDo(t, ws.Exclude("Ana"))
	mustDo(t, ws.Exclude("iPhone de Ana"))

	if !ws.ReadyForConfirmation() {
		t.Fatal("excluded participants must not block")
	}
	sum := ws.Summary()
	if sum.Excluded != 2 || sum.Active != 2 || sum.Pending != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestUnknownNamesAndRegistrations(t *testing.T) {
	ws := newWorkspace(t)
	requireErrorIs(t, ws.Confirm("Nobody"), review.ErrUnknownParticipant)
	_, err := ws.Select("Ana", "r99")
	requireErrorIs(t, err, review.ErrUnknownCandidate)
	requireErrorIs(t, ws.MarkDoubt("Ana", "r2", "r2"), review.ErrDoubtCandidates)
	// Nothing is proposed for Ana yet.
	requireErrorIs(t, ws.Confirm("Ana"), review.ErrInvalidTransition)
}

func TestSearchCandidates(t *testing.T) {
	ws := newWorkspace(t)

	got := ws.SearchCandidates("curitiba")
	if got[0].Candidate.ID != "r3" || got[0].Reason != matching.ReasonFieldMatch {
		t.Fatalf("city search = %+v", got[0])
	}

	if got = ws.SearchCandidates("souza"); got[0].Candidate.ID != "r2" {
		t.Fatalf("name search = %+v", got[0])
	}

	got = ws.SearchCandidates("Pedro")
	if got[0].Candidate.ID != "r3" || len(got) != 3 {
		t.Fatalf("first-name search = %+v", got)
	}

	if n := len(ws.SearchCandidates("")); n != 3 {
		t.Fatalf("empty query returned %d candidates, want 3", n)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ws := newWorkspace(t)
	mustDo(t, ws.Confirm("John Doe"))
	mustDo(t, ws.MarkDoubt("Ana", "r2", "r3"))
	mustDo(t, ws.ForceApprove("iPhone de Ana"))
	mustDo(t, ws.Exclude("iPhone de Ana"))

	raw, err := json.Marshal(ws.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	for _, want := range []string{`"status":"doubt"`, `"second":{"id":"r3"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("snapshot %s missing %s", raw, want)
		}
	}

	var snap review.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	restored, err := review.FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot returned error: %v", err)
	}

	if !reflect.DeepEqual(ws.Summary(), restored.Summary()) {
		t.Fatalf("summary changed across snapshot:\n%+v\n%+v", ws.Summary(), restored.Summary())
	}
	if restored.ID() != "run-1" || restored.TrainingID() != "t-1" {
		t.Fatalf("identity lost: %s %s", restored.ID(), restored.TrainingID())
	}

	a, _ := restored.Association("Ana")
	doubt, ok := a.(review.Doubt)
	if !ok || doubt.First.ID != "r2" || doubt.Second.ID != "r3" {
		t.Fatalf("doubt not restored: %#v", a)
	}

	an, _ := restored.Analysis("iPhone de Ana")
	if !an.ManualOverride {
		t.Fatal("manual override not restored")
	}
	p, _ := restored.Participant("iPhone de Ana")
	if !p.Excluded {
		t.Fatal("exclusion not restored")
	}
}

func TestDecodeAssociationRejectsInvalidShapes(t *testing.T) {
	c := matching.Candidate{ID: "r1"}
	cases := []review.AssociationRecord{
		{Status: review.StatusPending, Candidate: &c},
		{Status: review.StatusConfirmed},
		{Status: review.StatusNotFound, Second: &c},
		{Status: review.StatusDoubt, Candidate: &c, Second: &c},
		{Status: review.StatusAutoMatched, Candidate: &c, Second: &c},
		{Status: "linked"},
	}
	for _, rec := range cases {
		if _, err := review.DecodeAssociation(rec); err == nil {
			t.Errorf("DecodeAssociation accepted %+v", rec)
		}
	}
}
