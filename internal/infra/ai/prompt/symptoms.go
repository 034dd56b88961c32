package prompt

import (
	"fmt"
	"strings"
)

// Personas used by the two-step pipeline. The direct pipeline uses Assistant.
const (
	Assistant   = "VaidyaMitra, a professional medical assistant"
	Researcher  = "a senior medical researcher who lists differential diagnoses"
	TriageNurse = "an experienced triage nurse who decides how urgently care is needed"
)

// Disclaimer must appear in every report.
const Disclaimer = "This is AI-generated information, not a medical diagnosis. Please consult a qualified doctor."

// UrgencyLevels is the vocabulary the model is asked to use.
var UrgencyLevels = []string{"LOW", "MEDIUM", "CRITICAL"}

// Guidelines frame the direct single-call analysis. When lang is set the
// model answers in English and lang.
func Guidelines(lang string) string {
	var b strings.Builder
	b.WriteString("Analyze the user's symptoms.")
	if lang = strings.TrimSpace(lang); lang != "" {
		fmt.Fprintf(&b, " Provide the response in both %s and English.", lang)
	}
	b.WriteString(`

Structure the response with:
1. Potential Causes: exactly three candidate conditions.
2. Urgency Level: one of ` + strings.Join(UrgencyLevels, ", ") + `.
3. Suggested Next Steps.

Always finish with this disclaimer: "` + Disclaimer + `"`)
	return b.String()
}

// UserPrompt embeds the symptom description.
func UserPrompt(symptoms string) string {
	return fmt.Sprintf("Patient symptoms: %s", strings.TrimSpace(symptoms))
}

// ResearchPrompt asks for exactly three candidate conditions.
func ResearchPrompt(symptoms string) string {
	return fmt.Sprintf(`Analyze these symptoms: %s

List exactly 3 possible medical conditions, each with a brief justification.
Do not give an urgency level.`, strings.TrimSpace(symptoms))
}

// TriagePrompt receives the research output explicitly and asks for the final
// urgency classification and next steps.
func TriagePrompt(symptoms, research string) string {
	return fmt.Sprintf(`Patient symptoms: %s

Research findings:
%s

Based on the findings, give a final urgency classification using one of %s,
then the recommended next steps. Finish with: "%s"`,
		strings.TrimSpace(symptoms), strings.TrimSpace(research), strings.Join(UrgencyLevels, ", "), Disclaimer)
}

// SystemMessage turns a persona and optional guidelines into a system message.
func SystemMessage(persona, guidelines string) string {
	msg := fmt.Sprintf("You are %s.", persona)
	if guidelines = strings.TrimSpace(guidelines); guidelines != "" {
		msg += " " + guidelines
	}
	return msg
}
