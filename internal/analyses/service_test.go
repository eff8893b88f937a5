package analyses

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-critic/internal/events"
	"resume-critic/internal/llm"
	"resume-critic/internal/resumes"
	localstore "resume-critic/internal/shared/storage/object/local"
)

type fakeLLM struct {
	mu        sync.Mutex
	response  string
	err       error
	lastInput []llm.Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastInput = messages
	return f.response, f.err
}

func newTestService(t *testing.T, client llm.Client) (*Service, *resumes.Service, string) {
	t.Helper()
	store := localstore.New(t.TempDir())
	resumeSvc := &resumes.Service{Repo: resumes.NewMemoryRepo(), Store: store}
	svc := &Service{
		Repo:    NewMemoryRepo(),
		Resumes: resumeSvc,
		LLM:     client,
		Bus:     events.NewBus(),
	}

	resume, err := resumeSvc.Upload(context.Background(), "user-1", resumes.UploadInput{
		FileName: "resume.txt",
	}, strings.NewReader("Jane Doe. Senior engineer with ten years of experience building distributed systems."))
	if err != nil {
		t.Fatalf("upload resume: %v", err)
	}
	return svc, resumeSvc, resume.ID
}

func waitForTerminal(t *testing.T, svc *Service, analysisID string) Analysis {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		analysis, err := svc.Repo.GetByID(context.Background(), analysisID)
		if err != nil {
			t.Fatalf("get analysis: %v", err)
		}
		if analysis.Status == StatusCompleted || analysis.Status == StatusFailed {
			return analysis
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("analysis %s never reached a terminal status", analysisID)
	return Analysis{}
}

func TestCreateCompletesAnalysis(t *testing.T) {
	client := &fakeLLM{response: `{"executiveSummary": "Solid resume.", "scores": {"overall": 0.85, "content": 80}}`}
	svc, _, resumeID := newTestService(t, client)

	created, err := svc.Create(context.Background(), "user-1", resumeID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != StatusPending {
		t.Fatalf("initial status = %q, want pending", created.Status)
	}

	final := waitForTerminal(t, svc, created.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q (%s), want completed", final.Status, final.ErrorMessage)
	}
	if final.Result == nil {
		t.Fatalf("completed analysis has no result")
	}
	if final.Result.Scores.Overall != 85 {
		t.Errorf("overall = %d, want 85", final.Result.Scores.Overall)
	}
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Errorf("timestamps missing: started=%v completed=%v", final.StartedAt, final.CompletedAt)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.lastInput) == 0 {
		t.Fatalf("llm never called")
	}
	joined := ""
	for _, m := range client.lastInput {
		joined += m.Content
	}
	if !strings.Contains(joined, "Jane Doe") {
		t.Errorf("prompt does not contain extracted resume text")
	}
}

func TestCreateRejectsForeignResume(t *testing.T) {
	client := &fakeLLM{response: "{}"}
	svc, _, resumeID := newTestService(t, client)

	_, err := svc.Create(context.Background(), "someone-else", resumeID)
	if !errors.Is(err, resumes.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	_, err = svc.Create(context.Background(), "user-1", "missing")
	if !errors.Is(err, resumes.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLLMErrorFailsAnalysis(t *testing.T) {
	client := &fakeLLM{err: llm.ErrRateLimited}
	svc, _, resumeID := newTestService(t, client)

	created, err := svc.Create(context.Background(), "user-1", resumeID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	final := waitForTerminal(t, svc, created.ID)
	if final.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if final.ErrorMessage == "" {
		t.Fatalf("failed analysis has no error message")
	}
}

func TestMaskedFailureRecordsFailedWithResult(t *testing.T) {
	client := &fakeLLM{response: `{"executiveSummary": "I could not extract any text from this file.", "scores": {"overall": 50}}`}
	svc, _, resumeID := newTestService(t, client)

	created, err := svc.Create(context.Background(), "user-1", resumeID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	final := waitForTerminal(t, svc, created.ID)
	if final.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if final.Result == nil {
		t.Fatalf("masked failure should keep the returned result")
	}
}

func TestShortExtractedTextFailsAnalysis(t *testing.T) {
	client := &fakeLLM{response: "{}"}
	store := localstore.New(t.TempDir())
	resumeSvc := &resumes.Service{Repo: resumes.NewMemoryRepo(), Store: store}
	svc := &Service{Repo: NewMemoryRepo(), Resumes: resumeSvc, LLM: client}

	resume, err := resumeSvc.Upload(context.Background(), "user-1", resumes.UploadInput{FileName: "tiny.txt"}, strings.NewReader("short"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	created, err := svc.Create(context.Background(), "user-1", resume.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	final := waitForTerminal(t, svc, created.ID)
	if final.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "extraction failed") {
		t.Errorf("error message = %q", final.ErrorMessage)
	}
}

func TestLatestPrefersNewestAndFiltersCompleted(t *testing.T) {
	repo := NewMemoryRepo()

	base := time.Now().UTC().Add(-time.Hour)
	mk := func(id string, offset time.Duration, status string) {
		a := Analysis{ID: id, ResumeID: "r1", UserID: "user-1", CreatedAt: base.Add(offset)}
		if err := repo.Create(context.Background(), a); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if status == StatusPending {
			return
		}
		if err := repo.MarkProcessing(context.Background(), id, base.Add(offset)); err != nil {
			t.Fatalf("processing %s: %v", id, err)
		}
		switch status {
		case StatusCompleted:
			if err := repo.Complete(context.Background(), id, Result{Scores: defaultScores()}, base.Add(offset+time.Minute)); err != nil {
				t.Fatalf("complete %s: %v", id, err)
			}
		case StatusFailed:
			if err := repo.Fail(context.Background(), id, "boom", nil, base.Add(offset+time.Minute)); err != nil {
				t.Fatalf("fail %s: %v", id, err)
			}
		}
	}
	mk("a-old", 0, StatusCompleted)
	mk("a-mid", 10*time.Minute, StatusFailed)
	mk("a-new", 20*time.Minute, StatusPending)

	latest, err := repo.LatestByResume(context.Background(), "r1", false)
	if err != nil {
		t.Fatalf("LatestByResume any: %v", err)
	}
	if latest.ID != "a-new" {
		t.Fatalf("latest any = %s, want a-new", latest.ID)
	}

	completed, err := repo.LatestByResume(context.Background(), "r1", true)
	if err != nil {
		t.Fatalf("LatestByResume completed: %v", err)
	}
	if completed.ID != "a-old" {
		t.Fatalf("latest completed = %s, want a-old", completed.ID)
	}
}

func TestReconcileStaleFailsOrphanedRuns(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	if err := repo.Create(ctx, Analysis{ID: "stale", ResumeID: "r1", UserID: "u1", CreatedAt: old}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkProcessing(ctx, "stale", old); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if err := repo.Create(ctx, Analysis{ID: "fresh", ResumeID: "r1", UserID: "u1", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkProcessing(ctx, "fresh", time.Now().UTC()); err != nil {
		t.Fatalf("processing: %v", err)
	}

	count, err := repo.ReconcileStale(ctx, time.Now().UTC().Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("ReconcileStale: %v", err)
	}
	if count != 1 {
		t.Fatalf("reconciled = %d, want 1", count)
	}
	stale, _ := repo.GetByID(ctx, "stale")
	if stale.Status != StatusFailed {
		t.Fatalf("stale status = %q, want failed", stale.Status)
	}
	fresh, _ := repo.GetByID(ctx, "fresh")
	if fresh.Status != StatusProcessing {
		t.Fatalf("fresh status = %q, want processing", fresh.Status)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo}
	ctx := context.Background()

	if err := repo.Create(ctx, Analysis{ID: "a1", ResumeID: "r1", UserID: "owner", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "owner", "a1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(ctx, "intruder", "a1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(ctx, "owner", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTerminalStatusCannotRegress(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, Analysis{ID: "a1", ResumeID: "r1", UserID: "u1", CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkProcessing(ctx, "a1", now); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if err := repo.Complete(ctx, "a1", Result{Scores: defaultScores()}, now); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := repo.MarkProcessing(ctx, "a1", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reprocess err = %v, want ErrInvalidTransition", err)
	}
	if err := repo.Fail(ctx, "a1", "late", nil, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("late fail err = %v, want ErrInvalidTransition", err)
	}
}
