package analyses

import (
	"encoding/json"
	"math"
	"strings"
)

// defaultScore is stored when the model omits a dimension entirely.
const defaultScore = 50

// maskedFailurePhrases are model apologies that indicate the input was
// never actually analyzed. A completed-looking result containing one of
// these in its executive summary is recorded as a failure.
var maskedFailurePhrases = []string{
	"could not extract",
	"extraction failed",
	"could not process",
	"could not analyze",
	"corrupted",
}

// Fallback text stored when the model omits or nulls a narrative field.
// Nothing downstream should ever read an empty analysis field.
const (
	fallbackExecutiveSummary = "No executive summary available."
	fallbackOverview         = "No overview analysis available."
	fallbackContentQuality   = "No content quality analysis available."
	fallbackATSCompatibility = "No ATS compatibility analysis available."
	fallbackIndustryFit      = "No industry fit analysis available."
	fallbackFormatting       = "No formatting review available."
	fallbackSkillsAnalysis   = "No skills analysis available."
	fallbackCareerTrajectory = "No career trajectory analysis available."
	fallbackImprovements     = "No improvement suggestions available."
)

// NormalizeResult converts raw model output into a Result. Output that
// is not JSON at all still produces a usable Result: the text becomes
// the executive summary, every other narrative field takes its fallback
// text, and every score takes the default.
func NormalizeResult(raw string) Result {
	payload := stripCodeFences(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &top); err != nil {
		return applyTextFallbacks(Result{
			ExecutiveSummary: strings.TrimSpace(raw),
			Scores:           defaultScores(),
		})
	}

	out := Result{
		ExecutiveSummary:       firstString(top, "executiveSummary", "executive_summary", "summary"),
		Overview:               firstString(top, "overview"),
		ContentQuality:         firstString(top, "contentQuality", "content_quality"),
		ATSCompatibility:       firstString(top, "atsCompatibility", "ats_compatibility", "atsReview"),
		IndustryFit:            firstString(top, "industryFit", "industry_fit"),
		FormattingReview:       firstString(top, "formattingReview", "formatting_review", "formatting"),
		SkillsAnalysis:         firstString(top, "skillsAnalysis", "skills_analysis"),
		CareerTrajectory:       firstString(top, "careerTrajectory", "career_trajectory"),
		ImprovementSuggestions: firstString(top, "improvementSuggestions", "improvement_suggestions", "suggestions"),
		Scores:                 normalizeScores(top["scores"]),
		PositionedSuggestions:  ExtractIssues(top["positionedSuggestions"]),
		ReplacementContent:     normalizeReplacements(top["replacementContent"]),
	}
	if out.ExecutiveSummary == "" {
		out.ExecutiveSummary = strings.TrimSpace(raw)
	}
	return applyTextFallbacks(out)
}

func applyTextFallbacks(out Result) Result {
	fill := func(target *string, fallback string) {
		if strings.TrimSpace(*target) == "" {
			*target = fallback
		}
	}
	fill(&out.ExecutiveSummary, fallbackExecutiveSummary)
	fill(&out.Overview, fallbackOverview)
	fill(&out.ContentQuality, fallbackContentQuality)
	fill(&out.ATSCompatibility, fallbackATSCompatibility)
	fill(&out.IndustryFit, fallbackIndustryFit)
	fill(&out.FormattingReview, fallbackFormatting)
	fill(&out.SkillsAnalysis, fallbackSkillsAnalysis)
	fill(&out.CareerTrajectory, fallbackCareerTrajectory)
	fill(&out.ImprovementSuggestions, fallbackImprovements)
	return out
}

// IsMaskedFailure reports whether a result's executive summary admits
// the resume was never analyzed.
func IsMaskedFailure(result Result) bool {
	summary := strings.ToLower(result.ExecutiveSummary)
	for _, phrase := range maskedFailurePhrases {
		if strings.Contains(summary, phrase) {
			return true
		}
	}
	return false
}

func defaultScores() Scores {
	return Scores{
		Overall:    defaultScore,
		Content:    defaultScore,
		ATS:        defaultScore,
		Formatting: defaultScore,
		Industry:   defaultScore,
		Skills:     defaultScore,
		Grammar:    defaultScore,
		Clarity:    defaultScore,
	}
}

func normalizeScores(raw json.RawMessage) Scores {
	scores := defaultScores()
	if len(raw) == 0 {
		return scores
	}
	var values map[string]json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return scores
	}

	pick := func(target *int, keys ...string) {
		for _, key := range keys {
			if num, ok := values[key]; ok {
				if f, err := num.Float64(); err == nil {
					*target = NormalizeScore(f)
					return
				}
			}
		}
	}
	pick(&scores.Overall, "overall", "overallScore")
	pick(&scores.Content, "content", "contentQuality")
	pick(&scores.ATS, "atsOptimization", "ats", "atsCompatibility")
	pick(&scores.Formatting, "formatting")
	pick(&scores.Industry, "industryAlignment", "industryFit", "industry")
	pick(&scores.Skills, "skills")
	pick(&scores.Grammar, "grammar")
	pick(&scores.Clarity, "clarity")
	return scores
}

// NormalizeScore maps a model score onto the 0-100 integer scale.
// Values within (0, 1] are treated as fractions and scaled by 100;
// everything else is rounded and clamped.
func NormalizeScore(value float64) int {
	if value > 0 && value <= 1 {
		value *= 100
	}
	scaled := int(math.Round(value))
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}

// ExtractIssues parses positioned suggestions from any of the shapes
// models produce for them: a JSON array, a JSON string wrapping an
// array, or a single object.
func ExtractIssues(raw json.RawMessage) []PositionedSuggestion {
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var nested string
		if err := json.Unmarshal(raw, &nested); err == nil {
			return ExtractIssues(json.RawMessage(nested))
		}
		// A single object becomes a one-item list.
		items = []json.RawMessage{raw}
	}

	var out []PositionedSuggestion
	for _, item := range items {
		var s PositionedSuggestion
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s.Issue == "" && s.Suggestion == "" {
			continue
		}
		s.Severity = normalizeSeverity(s.Severity)
		s.Category = NormalizeCategory(s.Category)
		out = append(out, s)
	}
	return out
}

func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical":
		return "critical"
	case "high":
		return "high"
	case "low":
		return "low"
	default:
		return "medium"
	}
}

// NormalizeCategory folds free-form issue categories into the four
// canonical buckets: grammar, format, ats, content.
func NormalizeCategory(category string) string {
	lowered := strings.ToLower(category)
	switch {
	case strings.Contains(lowered, "grammar"), strings.Contains(lowered, "spelling"):
		return "grammar"
	case strings.Contains(lowered, "format"), strings.Contains(lowered, "layout"):
		return "format"
	case strings.Contains(lowered, "ats"), strings.Contains(lowered, "keyword"):
		return "ats"
	default:
		return "content"
	}
}

func normalizeReplacements(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		if text, ok := value.(string); ok && text != "" {
			out[key] = text
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstString(top map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := top[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop a language tag like "json" on the opening fence.
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 10 && !strings.Contains(first, "{") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
