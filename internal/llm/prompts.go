package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert resume reviewer and career coach.
Evaluate the resume below and respond with ONLY a JSON object with these fields:
"executiveSummary", "overview", "contentQuality", "atsCompatibility",
"industryFit", "formattingReview", "skillsAnalysis", "careerTrajectory",
"improvementSuggestions" (all strings);
"scores": {"overall","content","atsOptimization","formatting",
"industryAlignment","skills","grammar","clarity"} (numbers 0-100);
"positionedSuggestions": an array of {"issue","suggestion","reasoning",
"severity" (critical|high|medium|low),"category",
"location": {"section","snippet"}};
"replacementContent": an object mapping section names to rewritten text.`

const maxResumeChars = 24000

// BuildAnalysisPrompt assembles the message list for one critique request.
func BuildAnalysisPrompt(resumeText, fileName, profileSummary string) []Message {
	text := resumeText
	if len(text) > maxResumeChars {
		text = text[:maxResumeChars]
	}

	var user strings.Builder
	if fileName != "" {
		fmt.Fprintf(&user, "Resume file: %s\n", fileName)
	}
	if strings.TrimSpace(profileSummary) != "" {
		fmt.Fprintf(&user, "Candidate profile: %s\n", profileSummary)
	}
	user.WriteString("\nResume text:\n")
	user.WriteString(text)

	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user.String()},
	}
}
