package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Slynchy/webp-conv/internal/domain"
	"github.com/Slynchy/webp-conv/internal/gate"
)

// fakeRunner records how many invocations overlap and returns canned outcomes.
type fakeRunner struct {
	delay   time.Duration
	outcome func(item domain.WorkItem) domain.Outcome

	active int64
	peak   int64
	runs   int64
}

func (f *fakeRunner) Run(_ context.Context, item domain.WorkItem) domain.Outcome {
	atomic.AddInt64(&f.runs, 1)
	n := atomic.AddInt64(&f.active, 1)
	for {
		p := atomic.LoadInt64(&f.peak)
		if n <= p || atomic.CompareAndSwapInt64(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	atomic.AddInt64(&f.active, -1)

	if f.outcome != nil {
		return f.outcome(item)
	}
	return domain.Outcome{Item: item, Status: domain.StatusSuccess}
}

func makeItems(n int) []domain.WorkItem {
	items := make([]domain.WorkItem, n)
	for i := range items {
		name := string(rune('a'+i)) + ".png"
		items[i] = domain.WorkItem{
			Name:       name,
			SourcePath: "/in/" + name,
			DestPath:   "/out/" + name + ".webp",
		}
	}
	return items
}

func newGate(t *testing.T, max int64) *gate.Gate {
	t.Helper()
	g, err := gate.New(max)
	if err != nil {
		t.Fatalf("gate.New(%d) failed: %v", max, err)
	}
	return g
}

func TestRun_BoundedConcurrency(t *testing.T) {
	fake := &fakeRunner{delay: 20 * time.Millisecond}
	c := &Coordinator{Gate: newGate(t, 2), Runner: fake}

	report := c.Run(context.Background(), "/in", "/out", makeItems(5), false)

	if report.Total() != 5 {
		t.Fatalf("got %d outcomes, want 5", report.Total())
	}
	if report.Succeeded != 5 {
		t.Errorf("got %d succeeded, want 5", report.Succeeded)
	}
	if peak := atomic.LoadInt64(&fake.peak); peak > 2 {
		t.Errorf("observed %d concurrent runs, gate allows 2", peak)
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Error("report finished before it started")
	}
}

func TestRun_FailuresDoNotAbortTheBatch(t *testing.T) {
	fake := &fakeRunner{
		outcome: func(item domain.WorkItem) domain.Outcome {
			if item.Name == "b.png" {
				return domain.Outcome{
					Item:     item,
					Status:   domain.StatusFailed,
					Failure:  domain.FailureExitCode,
					ExitCode: 1,
				}
			}
			return domain.Outcome{Item: item, Status: domain.StatusSuccess}
		},
	}
	g := newGate(t, 2)
	c := &Coordinator{Gate: g, Runner: fake}

	report := c.Run(context.Background(), "/in", "/out", makeItems(4), false)

	if report.Total() != 4 {
		t.Fatalf("got %d outcomes, want 4", report.Total())
	}
	if report.Failed != 1 || report.Succeeded != 3 {
		t.Errorf("got failed=%d succeeded=%d, want 1 and 3", report.Failed, report.Succeeded)
	}
	if g.InUse() != 0 {
		t.Errorf("%d gate slots still held after the batch resolved", g.InUse())
	}
}

func TestRun_EmptyBatchResolves(t *testing.T) {
	c := &Coordinator{Gate: newGate(t, 3), Runner: &fakeRunner{}}

	report := c.Run(context.Background(), "/in", "/out", nil, false)

	if report.Total() != 0 {
		t.Errorf("got %d outcomes, want 0", report.Total())
	}
	if report.ID == "" {
		t.Error("report has no batch id")
	}
}

func TestRun_SkipExisting(t *testing.T) {
	dir := t.TempDir()
	items := []domain.WorkItem{
		{Name: "a.png", SourcePath: filepath.Join(dir, "a.png"), DestPath: filepath.Join(dir, "a.png.webp")},
		{Name: "b.png", SourcePath: filepath.Join(dir, "b.png"), DestPath: filepath.Join(dir, "b.png.webp")},
	}
	if err := os.WriteFile(items[0].DestPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakeRunner{}
	c := &Coordinator{Gate: newGate(t, 2), Runner: fake, SkipExisting: true}
	report := c.Run(context.Background(), dir, dir, items, false)

	if report.Skipped != 1 || report.Succeeded != 1 {
		t.Errorf("got skipped=%d succeeded=%d, want 1 and 1", report.Skipped, report.Succeeded)
	}
	if runs := atomic.LoadInt64(&fake.runs); runs != 1 {
		t.Errorf("runner invoked %d times, want 1", runs)
	}
}

func TestRun_CancelledContextAbortsWaitingItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeRunner{}
	g := newGate(t, 1)
	// Hold the only slot so every item is stuck waiting on admission.
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer g.Release()

	c := &Coordinator{Gate: g, Runner: fake}
	report := c.Run(ctx, "/in", "/out", makeItems(3), false)

	if report.Total() != 3 {
		t.Fatalf("got %d outcomes, want 3", report.Total())
	}
	if report.Failed != 3 {
		t.Errorf("got %d failed, want 3", report.Failed)
	}
	for _, o := range report.Outcomes {
		if o.Failure != domain.FailureAborted {
			t.Errorf("%s: got failure=%s, want aborted", o.Item.Name, o.Failure)
		}
	}
	if runs := atomic.LoadInt64(&fake.runs); runs != 0 {
		t.Errorf("runner invoked %d times after cancellation, want 0", runs)
	}
}

// recordingObserver asserts the callback contract: monotonically increasing
// done counts and a final report.
type recordingObserver struct {
	mu     sync.Mutex
	starts []int
	dones  []int
	report *domain.BatchReport
}

func (r *recordingObserver) OnBatchStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, total)
}

func (r *recordingObserver) OnItemDone(done, _ int, _ domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dones = append(r.dones, done)
}

func (r *recordingObserver) OnBatchDone(report *domain.BatchReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = report
}

func TestRun_ObserverCallbacks(t *testing.T) {
	obs := &recordingObserver{}
	c := &Coordinator{Gate: newGate(t, 2), Runner: &fakeRunner{}, Observer: obs}

	c.Run(context.Background(), "/in", "/out", makeItems(4), false)

	if len(obs.starts) != 1 || obs.starts[0] != 4 {
		t.Errorf("got starts=%v, want one start with total 4", obs.starts)
	}
	if len(obs.dones) != 4 {
		t.Fatalf("got %d item callbacks, want 4", len(obs.dones))
	}
	seen := make(map[int]bool)
	for _, d := range obs.dones {
		if d < 1 || d > 4 || seen[d] {
			t.Errorf("done counts %v are not a permutation of 1..4", obs.dones)
			break
		}
		seen[d] = true
	}
	if obs.report == nil {
		t.Fatal("OnBatchDone never called")
	}
	if obs.report.Succeeded != 4 {
		t.Errorf("final report has %d succeeded, want 4", obs.report.Succeeded)
	}
}

// overlapObserver counts OnItemDone invocations that run concurrently with
// another one.
type overlapObserver struct {
	active   int64
	overlaps int64
}

func (o *overlapObserver) OnBatchStart(int) {}

func (o *overlapObserver) OnItemDone(int, int, domain.Outcome) {
	if atomic.AddInt64(&o.active, 1) > 1 {
		atomic.AddInt64(&o.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt64(&o.active, -1)
}

func (o *overlapObserver) OnBatchDone(*domain.BatchReport) {}

func TestRun_ObserverCallbacksNeverOverlap(t *testing.T) {
	obs := &overlapObserver{}
	c := &Coordinator{Gate: newGate(t, 8), Runner: &fakeRunner{}, Observer: obs}

	c.Run(context.Background(), "/in", "/out", makeItems(16), false)

	if n := atomic.LoadInt64(&obs.overlaps); n != 0 {
		t.Errorf("OnItemDone overlapped %d times, callbacks must be serialized", n)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	r := &domain.BatchReport{
		StartedAt:  now,
		FinishedAt: now.Add(1200 * time.Millisecond),
		Outcomes: []domain.Outcome{
			{Item: domain.WorkItem{Name: "a.png"}, Status: domain.StatusSuccess, InputBytes: 2048, OutputBytes: 1024},
			{Item: domain.WorkItem{Name: "b.png"}, Status: domain.StatusFailed, Failure: domain.FailureDiagnostic, Detail: "Error: bad file"},
			{Item: domain.WorkItem{Name: "c.png"}, Status: domain.StatusSkipped},
		},
	}
	r.Finalize()

	got := Summarize(r)
	for _, want := range []string{
		"converted 1 of 3 files",
		"1 skipped",
		"1 failed",
		"b.png: Error: bad file",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummarize_DryRun(t *testing.T) {
	r := &domain.BatchReport{
		DryRun: true,
		Outcomes: []domain.Outcome{
			{Item: domain.WorkItem{Name: "a.png"}, Status: domain.StatusSuccess},
		},
	}
	r.Finalize()

	got := Summarize(r)
	if !strings.Contains(got, "dry run") {
		t.Errorf("summary does not mark the dry run:\n%s", got)
	}
	if strings.Contains(got, "saved") {
		t.Errorf("dry-run summary reports space savings:\n%s", got)
	}
}
