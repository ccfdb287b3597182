package ai

import (
	"strings"
	"testing"
)

func TestBuildPromptEmbedsSymptomsAndSchema(t *testing.T) {
	symptoms := "Fever of 39C, stiff neck & sensitivity to light <since yesterday>"
	prompt := BuildPrompt(symptoms)

	if !strings.Contains(prompt, symptoms) {
		t.Fatalf("prompt does not embed symptoms verbatim:\n%s", prompt)
	}
	for _, fragment := range []string{
		`"riskLevel"`, `"probableCauses"`, `"precautions"`, `"homeRemedies"`,
		`"recommendedSpecialist"`, `"urgency"`,
		"low", "moderate", "high",
		"general", "cardiology", "neurology", "dermatology", "pediatrics", "orthopedics",
		"immediate", "within_24_hours", "within_week", "routine",
		"3-5",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	if BuildPrompt("chest tightness when climbing stairs") != BuildPrompt("chest tightness when climbing stairs") {
		t.Fatal("expected identical prompts for identical input")
	}
	if BuildPrompt("") == "" {
		t.Fatal("expected a prompt even for empty input")
	}
}

func TestSubstitutePromptMatchesTemplate(t *testing.T) {
	symptoms := "sudden chest pain radiating to the left arm"
	if got, want := substitutePrompt(symptoms), BuildPrompt(symptoms); got != want {
		t.Fatalf("substituted prompt differs from template rendering:\n%s\n---\n%s", got, want)
	}
}
