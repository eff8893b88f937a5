package analyses

import "time"

// Analysis statuses. Every analysis ends in completed or failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis represents one analysis run over a resume.
type Analysis struct {
	ID           string     `json:"id"`
	ResumeID     string     `json:"resumeId"`
	UserID       string     `json:"userId"`
	Status       string     `json:"status"`
	Result       *Result    `json:"result,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Result is the normalized analysis document stored for completed runs.
type Result struct {
	ExecutiveSummary       string                  `json:"executiveSummary"`
	Overview               string                  `json:"overview,omitempty"`
	ContentQuality         string                  `json:"contentQuality,omitempty"`
	ATSCompatibility       string                  `json:"atsCompatibility,omitempty"`
	IndustryFit            string                  `json:"industryFit,omitempty"`
	FormattingReview       string                  `json:"formattingReview,omitempty"`
	SkillsAnalysis         string                  `json:"skillsAnalysis,omitempty"`
	CareerTrajectory       string                  `json:"careerTrajectory,omitempty"`
	ImprovementSuggestions string                  `json:"improvementSuggestions,omitempty"`
	Scores                 Scores                  `json:"scores"`
	PositionedSuggestions  []PositionedSuggestion  `json:"positionedSuggestions"`
	ReplacementContent     map[string]string       `json:"replacementContent,omitempty"`
}

// Scores holds the normalized 0-100 dimension scores.
type Scores struct {
	Overall    int `json:"overall"`
	Content    int `json:"content"`
	ATS        int `json:"atsOptimization"`
	Formatting int `json:"formatting"`
	Industry   int `json:"industryAlignment"`
	Skills     int `json:"skills"`
	Grammar    int `json:"grammar"`
	Clarity    int `json:"clarity"`
}

// PositionedSuggestion is one located issue with a proposed fix.
type PositionedSuggestion struct {
	Issue      string   `json:"issue"`
	Suggestion string   `json:"suggestion"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Severity   string   `json:"severity"`
	Category   string   `json:"category"`
	Location   Location `json:"location"`
}

// Location points a suggestion at a spot in the resume.
type Location struct {
	Section string `json:"section,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}
