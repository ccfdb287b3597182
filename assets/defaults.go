package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// AnalysisPromptTemplate is the text/template used to build the symptom
// analysis prompt. It receives a struct with a Symptoms field.
//
//go:embed defaults/analysis_prompt.tmpl
var AnalysisPromptTemplate string
