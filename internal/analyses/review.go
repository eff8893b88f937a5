package analyses

import (
	"math"
	"strings"
	"time"
)

// Canonical section keys used by the per-section review.
const (
	SectionHeader     = "header"
	SectionSummary    = "summary"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
)

var canonicalSections = []string{
	SectionHeader,
	SectionSummary,
	SectionExperience,
	SectionEducation,
	SectionSkills,
}

// sectionKeywords maps free-form section titles onto canonical keys.
// Order matters: the first matching keyword wins.
var sectionKeywords = []struct {
	key      string
	keywords []string
}{
	{SectionHeader, []string{"contact", "header", "personal", "info"}},
	{SectionSummary, []string{"summary", "objective", "profile", "about"}},
	{SectionExperience, []string{"experience", "employment", "work", "history", "career"}},
	{SectionEducation, []string{"education", "academic", "degree", "qualification"}},
	{SectionSkills, []string{"skill", "technolog", "competenc", "tool", "language"}},
}

// Review is the derived per-section view of a completed analysis.
// Issues groups every positioned suggestion by its normalized category
// (grammar, format, ats, content), independent of section placement.
type Review struct {
	ResumeID    string                            `json:"resumeId"`
	AnalysisID  string                            `json:"analysisId"`
	Overall     int                               `json:"overall"`
	Sections    []SectionReview                   `json:"sections"`
	Issues      map[string][]PositionedSuggestion `json:"issues"`
	GeneratedAt time.Time                         `json:"generatedAt"`
}

// SectionReview scores one resume section and carries the suggestions
// located in it.
type SectionReview struct {
	Title       string                 `json:"title"`
	Key         string                 `json:"key"`
	Score       int                    `json:"score"`
	Suggestions []PositionedSuggestion `json:"suggestions,omitempty"`
}

// ClassifySection maps a section title onto its canonical key, or ""
// when no keyword matches.
func ClassifySection(title string) string {
	lowered := strings.ToLower(title)
	for _, entry := range sectionKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.key
			}
		}
	}
	return ""
}

// SectionScore derives a canonical section's score from the dimension
// scores of an analysis.
func SectionScore(key string, s Scores) int {
	switch key {
	case SectionHeader:
		return blend(0.5, s.Formatting, 0.5, s.ATS, 0, 0)
	case SectionSummary:
		return blend(0.5, s.Content, 0.5, s.Clarity, 0, 0)
	case SectionExperience:
		return blend(0.4, s.Content, 0.3, s.ATS, 0.3, s.Industry)
	case SectionEducation:
		return blend(0.5, s.Content, 0.5, s.Formatting, 0, 0)
	case SectionSkills:
		return blend(0.6, s.Skills, 0.4, s.Industry, 0, 0)
	default:
		return s.Overall
	}
}

// blend rounds and clamps a weighted combination of already-normalized
// scores. The fraction scaling in NormalizeScore applies to raw model
// values only, never to derived blends.
func blend(w1 float64, v1 int, w2 float64, v2 int, w3 float64, v3 int) int {
	sum := w1*float64(v1) + w2*float64(v2) + w3*float64(v3)
	rounded := int(math.Round(sum))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func displayTitle(key string) string {
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// BuildReview computes the per-section review for a completed analysis.
// sectionTitles are the resume's stored section titles in order; when a
// resume has none, the five canonical sections stand in.
func BuildReview(analysis Analysis, sectionTitles []string) Review {
	result := Result{Scores: defaultScores()}
	if analysis.Result != nil {
		result = *analysis.Result
	}

	type entry struct {
		title string
		key   string
	}
	var entries []entry
	seen := make(map[string]bool)
	for _, title := range sectionTitles {
		key := ClassifySection(title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, entry{title: title, key: key})
	}
	if len(entries) == 0 {
		for _, key := range canonicalSections {
			entries = append(entries, entry{title: displayTitle(key), key: key})
		}
	}

	byKey := make(map[string][]PositionedSuggestion)
	byCategory := make(map[string][]PositionedSuggestion)
	for _, s := range result.PositionedSuggestions {
		category := NormalizeCategory(s.Category)
		byCategory[category] = append(byCategory[category], s)
		key := ClassifySection(s.Location.Section)
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], s)
	}

	review := Review{
		ResumeID:    analysis.ResumeID,
		AnalysisID:  analysis.ID,
		Overall:     result.Scores.Overall,
		Issues:      byCategory,
		GeneratedAt: time.Now().UTC(),
	}
	for _, e := range entries {
		review.Sections = append(review.Sections, SectionReview{
			Title:       e.title,
			Key:         e.key,
			Score:       SectionScore(e.key, result.Scores),
			Suggestions: byKey[e.key],
		})
	}
	return review
}
