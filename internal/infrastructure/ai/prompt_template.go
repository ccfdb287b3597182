package ai

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/doeshing/triage-go/assets"
)

// SystemPrompt is sent as the system message of every analysis request.
const SystemPrompt = "You are a safety-conscious medical AI assistant. Provide accurate, helpful, and safe medical information. " +
	"Always prioritize patient safety and recommend professional medical consultation when appropriate."

var analysisPrompt = template.Must(template.New("analysis").Parse(assets.AnalysisPromptTemplate))

type promptData struct {
	Symptoms string
}

// BuildPrompt renders the analysis instructions for symptoms. The symptoms
// are embedded verbatim; the result is deterministic for a given input.
func BuildPrompt(symptoms string) string {
	var buf bytes.Buffer
	if err := analysisPrompt.Execute(&buf, promptData{Symptoms: symptoms}); err != nil {
		return substitutePrompt(symptoms)
	}
	return buf.String()
}

// substitutePrompt renders the template text by plain replacement of the
// symptoms placeholder.
func substitutePrompt(symptoms string) string {
	return strings.Replace(assets.AnalysisPromptTemplate, "{{.Symptoms}}", symptoms, 1)
}
