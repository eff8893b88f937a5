package analyses

import "testing"

func TestClassifySection(t *testing.T) {
	cases := map[string]string{
		"Contact Information":    "header",
		"Personal Details":       "header",
		"Professional Summary":   "summary",
		"Career Objective":       "summary",
		"About Me":               "summary",
		"Work Experience":        "experience",
		"Employment History":     "experience",
		"Education":              "education",
		"Academic Background":    "education",
		"Technical Skills":       "skills",
		"Technologies":           "skills",
		"Core Competencies":      "skills",
		"Languages":              "skills",
		"Hobbies and Interests":  "",
	}
	for title, want := range cases {
		if got := ClassifySection(title); got != want {
			t.Errorf("ClassifySection(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestSectionScoreWeights(t *testing.T) {
	scores := Scores{
		Overall:    70,
		Content:    80,
		ATS:        60,
		Formatting: 90,
		Industry:   50,
		Skills:     100,
		Grammar:    40,
		Clarity:    70,
	}
	cases := map[string]int{
		SectionHeader:     75, // 0.5*90 + 0.5*60
		SectionSummary:    75, // 0.5*80 + 0.5*70
		SectionExperience: 65, // 0.4*80 + 0.3*60 + 0.3*50
		SectionEducation:  85, // 0.5*80 + 0.5*90
		SectionSkills:     80, // 0.6*100 + 0.4*50
		"unknown":         70, // falls back to overall
	}
	for key, want := range cases {
		if got := SectionScore(key, scores); got != want {
			t.Errorf("SectionScore(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestSectionScoreBlendNotTreatedAsFraction(t *testing.T) {
	// A blend landing in (0,1] must round, not scale by 100.
	if got := SectionScore(SectionExperience, Scores{Content: 1, ATS: 1, Industry: 0}); got != 1 {
		t.Fatalf("experience score = %d, want 1", got)
	}
	if got := SectionScore(SectionSkills, Scores{Skills: 1, Industry: 1}); got != 1 {
		t.Fatalf("skills score = %d, want 1", got)
	}
	if got := SectionScore(SectionHeader, Scores{Formatting: 0, ATS: 0}); got != 0 {
		t.Fatalf("header score = %d, want 0", got)
	}
}

func TestBuildReviewWithStoredSections(t *testing.T) {
	analysis := Analysis{
		ID:       "a1",
		ResumeID: "r1",
		Status:   StatusCompleted,
		Result: &Result{
			Scores: Scores{Overall: 70, Content: 80, ATS: 60, Formatting: 90, Industry: 50, Skills: 100, Clarity: 70},
			PositionedSuggestions: []PositionedSuggestion{
				{Issue: "weak verbs", Suggestion: "quantify impact", Severity: "medium", Category: "content", Location: Location{Section: "Work Experience"}},
				{Issue: "missing keywords", Suggestion: "add keywords", Severity: "high", Category: "ats", Location: Location{Section: "Skills"}},
			},
		},
	}
	review := BuildReview(analysis, []string{"Contact Info", "Work Experience", "Education", "Skills"})

	if review.AnalysisID != "a1" || review.ResumeID != "r1" {
		t.Fatalf("review ids = %q %q", review.AnalysisID, review.ResumeID)
	}
	if review.Overall != 70 {
		t.Fatalf("overall = %d, want 70", review.Overall)
	}
	if len(review.Sections) != 4 {
		t.Fatalf("sections = %d, want 4", len(review.Sections))
	}
	byKey := map[string]SectionReview{}
	for _, s := range review.Sections {
		byKey[s.Key] = s
	}
	if got := byKey["experience"]; len(got.Suggestions) != 1 || got.Suggestions[0].Issue != "weak verbs" {
		t.Errorf("experience suggestions = %+v", got.Suggestions)
	}
	if got := byKey["skills"]; len(got.Suggestions) != 1 {
		t.Errorf("skills suggestions = %+v", got.Suggestions)
	}
	if byKey["header"].Score != 75 {
		t.Errorf("header score = %d, want 75", byKey["header"].Score)
	}
	if got := review.Issues["content"]; len(got) != 1 || got[0].Issue != "weak verbs" {
		t.Errorf("content issues = %+v", got)
	}
	if got := review.Issues["ats"]; len(got) != 1 || got[0].Issue != "missing keywords" {
		t.Errorf("ats issues = %+v", got)
	}
}

func TestBuildReviewKeepsUnplacedSuggestionsInIssues(t *testing.T) {
	analysis := Analysis{
		Status: StatusCompleted,
		Result: &Result{
			Scores: defaultScores(),
			PositionedSuggestions: []PositionedSuggestion{
				{Issue: "typo in date", Suggestion: "fix it", Category: "Grammar & Spelling", Location: Location{Section: "Hobbies"}},
				{Issue: "dense layout", Suggestion: "add whitespace", Category: "layout"},
			},
		},
	}
	review := BuildReview(analysis, nil)

	// Neither location maps to a canonical section, so no section
	// carries them; the category listing still must.
	for _, s := range review.Sections {
		if len(s.Suggestions) != 0 {
			t.Fatalf("section %q unexpectedly has suggestions: %+v", s.Key, s.Suggestions)
		}
	}
	if got := review.Issues["grammar"]; len(got) != 1 || got[0].Issue != "typo in date" {
		t.Errorf("grammar issues = %+v", got)
	}
	if got := review.Issues["format"]; len(got) != 1 || got[0].Issue != "dense layout" {
		t.Errorf("format issues = %+v", got)
	}
}

func TestBuildReviewWithoutSectionsUsesCanonical(t *testing.T) {
	analysis := Analysis{ID: "a1", ResumeID: "r1", Status: StatusCompleted, Result: &Result{Scores: defaultScores()}}
	review := BuildReview(analysis, nil)
	if len(review.Sections) != 5 {
		t.Fatalf("sections = %d, want 5", len(review.Sections))
	}
	wantKeys := []string{"header", "summary", "experience", "education", "skills"}
	for i, key := range wantKeys {
		if review.Sections[i].Key != key {
			t.Errorf("section %d key = %q, want %q", i, review.Sections[i].Key, key)
		}
	}
}

func TestBuildReviewDeduplicatesSectionKeys(t *testing.T) {
	analysis := Analysis{Result: &Result{Scores: defaultScores()}}
	review := BuildReview(analysis, []string{"Work Experience", "Prior Employment", "Skills"})
	if len(review.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(review.Sections))
	}
}
