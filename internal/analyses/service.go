package analyses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"resume-critic/internal/events"
	"resume-critic/internal/extract"
	"resume-critic/internal/llm"
	"resume-critic/internal/resumes"
	"resume-critic/internal/shared/metrics"
	"resume-critic/internal/shared/telemetry"
)

// Service contains business logic for analyses. Create records a
// pending run and completes it on a background goroutine; every run
// ends in completed or failed.
type Service struct {
	Repo    Repo
	Resumes *resumes.Service
	LLM     llm.Client
	Bus     *events.Bus
}

// Create starts a new analysis for a resume the user owns.
func (s *Service) Create(ctx context.Context, userID, resumeID string) (Analysis, error) {
	if resumeID == "" || userID == "" {
		return Analysis{}, errors.New("resumeID and userID are required")
	}
	if _, err := s.Resumes.Get(ctx, userID, resumeID); err != nil {
		return Analysis{}, err
	}

	analysis := Analysis{
		ID:        uuid.NewString(),
		ResumeID:  resumeID,
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	analysis.UpdatedAt = analysis.CreatedAt
	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	metrics.IncAnalysisStarted()
	s.publish(events.TypeAnalysisStarted, analysis, "")
	go s.completeAsync(context.WithoutCancel(ctx), analysis.ID)

	return analysis, nil
}

// Get returns an analysis the user owns.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if analysis.UserID != userID {
		return Analysis{}, ErrForbidden
	}
	return analysis, nil
}

// Latest returns the newest analysis for a resume the user owns. With
// completedOnly set, runs still in flight or failed are skipped.
func (s *Service) Latest(ctx context.Context, userID, resumeID string, completedOnly bool) (Analysis, error) {
	if _, err := s.Resumes.Get(ctx, userID, resumeID); err != nil {
		return Analysis{}, err
	}
	return s.Repo.LatestByResume(ctx, resumeID, completedOnly)
}

// ListForResume lists analyses for a resume the user owns, newest first.
func (s *Service) ListForResume(ctx context.Context, userID, resumeID string) ([]Analysis, error) {
	if _, err := s.Resumes.Get(ctx, userID, resumeID); err != nil {
		return nil, err
	}
	return s.Repo.ListByResume(ctx, resumeID)
}

// ReviewForResume derives the per-section review from the latest
// completed analysis of a resume the user owns.
func (s *Service) ReviewForResume(ctx context.Context, userID, resumeID string) (Review, error) {
	resume, err := s.Resumes.Get(ctx, userID, resumeID)
	if err != nil {
		return Review{}, err
	}
	analysis, err := s.Repo.LatestByResume(ctx, resumeID, true)
	if err != nil {
		return Review{}, err
	}
	titles := make([]string, 0, len(resume.Sections))
	for _, section := range resume.Sections {
		titles = append(titles, section.Title)
	}
	return BuildReview(analysis, titles), nil
}

func (s *Service) completeAsync(ctx context.Context, analysisID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failAnalysis(ctx, analysisID, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, analysisID, startedAt); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set processing: %w", err), nil)
		return
	}

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("analysis lookup: %w", err), nil)
		return
	}
	telemetry.Info("analysis.status", map[string]any{
		"analysisId":       analysis.ID,
		"resumeId":         analysis.ResumeID,
		"userId":           analysis.UserID,
		"status":           StatusProcessing,
		"statusTransition": "pending->processing",
	})

	if s.LLM == nil {
		s.failAnalysis(ctx, analysisID, errors.New("missing llm client"), nil)
		return
	}

	resume, data, err := s.Resumes.ReadFileBytes(ctx, analysis.ResumeID)
	if err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("resume %s: %w", analysis.ResumeID, err), nil)
		return
	}

	extracted, err := extract.FromBytes(data)
	if err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("resume %s type %s: %w", resume.ID, resume.FileType, err), nil)
		return
	}

	raw, err := s.LLM.Complete(ctx, llm.BuildAnalysisPrompt(extracted.Text, resume.FileName, resume.ProfileSummary))
	if err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("llm complete: %w", err), nil)
		return
	}

	result := NormalizeResult(raw)
	completedAt := time.Now().UTC()
	if IsMaskedFailure(result) {
		s.failAnalysis(ctx, analysisID, errors.New("model reported unreadable input"), &result)
		return
	}

	if err := s.Repo.Complete(ctx, analysisID, result, completedAt); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("store result: %w", err), nil)
		return
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(completedAt.Sub(startedAt).Milliseconds()))
	s.publish(events.TypeAnalysisCompleted, analysis, "")
	telemetry.Info("analysis.status", map[string]any{
		"analysisId":       analysis.ID,
		"resumeId":         analysis.ResumeID,
		"userId":           analysis.UserID,
		"status":           StatusCompleted,
		"statusTransition": "processing->completed",
		"durationMs":       completedAt.Sub(startedAt).Milliseconds(),
		"overallScore":     result.Scores.Overall,
	})
}

// failAnalysis records a terminal failure. It never leaves the run in a
// non-terminal status, even when the failure write itself errors.
func (s *Service) failAnalysis(ctx context.Context, analysisID string, cause error, result *Result) {
	now := time.Now().UTC()
	message := "analysis failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := s.Repo.Fail(ctx, analysisID, message, result, now); err != nil {
		telemetry.Error("analysis.fail_write", map[string]any{
			"analysisId": analysisID,
			"cause":      message,
			"error":      err.Error(),
		})
		return
	}
	metrics.IncAnalysisFailed()
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err == nil {
		s.publish(events.TypeAnalysisFailed, analysis, message)
	}
	telemetry.Error("analysis.failed", map[string]any{
		"analysisId": analysisID,
		"error":      message,
	})
}

func (s *Service) publish(eventType string, analysis Analysis, message string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.Event{
		Type:       eventType,
		UserID:     analysis.UserID,
		ResumeID:   analysis.ResumeID,
		AnalysisID: analysis.ID,
		Message:    message,
		At:         time.Now().UTC(),
	})
}

// StartReconciler sweeps processing rows that have outlived maxAge,
// marking them failed. A maxAge of zero disables the sweep. The loop
// stops when ctx is done.
func (s *Service) StartReconciler(ctx context.Context, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	interval := maxAge / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := s.Repo.ReconcileStale(ctx, time.Now().UTC().Add(-maxAge))
				if err != nil {
					telemetry.Error("analysis.reconcile", map[string]any{"error": err.Error()})
					continue
				}
				if count > 0 {
					metrics.IncAnalysisFailed()
					telemetry.Info("analysis.reconciled", map[string]any{"count": count})
				}
			}
		}
	}()
}
