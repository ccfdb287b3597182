// Package domain defines core business entities and value objects for triage.
//
// This file contains the symptom analysis request and result types. The
// result mirrors the JSON schema the upstream model is asked to produce, so
// persisted results keep the upstream field names.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MinSymptomsLength is the minimum number of characters (after trimming)
// accepted for an analysis request.
const MinSymptomsLength = 10

// RiskLevel is the coarse severity assigned to a set of symptoms.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// DefaultRiskLevel is substituted whenever the upstream risk level is absent
// or unrecognized.
const DefaultRiskLevel = RiskModerate

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	default:
		return false
	}
}

// Description is the one-line guidance shown next to the risk level.
func (r RiskLevel) Description() string {
	switch r {
	case RiskHigh:
		return "Requires immediate medical attention"
	case RiskModerate:
		return "Medical consultation recommended"
	case RiskLow:
		return "Can be managed with home care"
	default:
		return "Medical assessment advised"
	}
}

// ParseRiskLevel matches value case-insensitively against the known levels.
func ParseRiskLevel(value string) (RiskLevel, bool) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(value)))
	return level, level.Valid()
}

// Specialist is the department the patient is pointed to. Unrecognized
// upstream values are kept verbatim.
type Specialist string

const (
	SpecialistGeneral     Specialist = "general"
	SpecialistCardiology  Specialist = "cardiology"
	SpecialistNeurology   Specialist = "neurology"
	SpecialistDermatology Specialist = "dermatology"
	SpecialistPediatrics  Specialist = "pediatrics"
	SpecialistOrthopedics Specialist = "orthopedics"
)

var specialistDepartments = map[Specialist]string{
	SpecialistGeneral:     "General Medicine",
	SpecialistCardiology:  "Cardiology",
	SpecialistNeurology:   "Neurology",
	SpecialistDermatology: "Dermatology",
	SpecialistPediatrics:  "Pediatrics",
	SpecialistOrthopedics: "Orthopedics",
}

// Known reports whether s is one of the enumerated specialists.
func (s Specialist) Known() bool {
	_, ok := specialistDepartments[s]
	return ok
}

// Department returns the booking department name for s. Unknown values are
// returned as-is.
func (s Specialist) Department() string {
	if name, ok := specialistDepartments[s]; ok {
		return name
	}
	return string(s)
}

// ParseSpecialist normalizes value to a known specialist when possible and
// otherwise returns the trimmed original string.
func ParseSpecialist(value string) Specialist {
	trimmed := strings.TrimSpace(value)
	candidate := Specialist(strings.ToLower(trimmed))
	if candidate.Known() {
		return candidate
	}
	return Specialist(trimmed)
}

// Urgency is the recommended timeframe to seek care.
type Urgency string

const (
	UrgencyImmediate     Urgency = "immediate"
	UrgencyWithin24Hours Urgency = "within_24_hours"
	UrgencyWithinWeek    Urgency = "within_week"
	UrgencyRoutine       Urgency = "routine"
)

// Valid reports whether u is one of the known urgency values.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyImmediate, UrgencyWithin24Hours, UrgencyWithinWeek, UrgencyRoutine:
		return true
	default:
		return false
	}
}

// Advice returns the care timeframe in plain words, empty for unknown values.
func (u Urgency) Advice() string {
	switch u {
	case UrgencyImmediate:
		return "Seek immediate care"
	case UrgencyWithin24Hours:
		return "See doctor within 24 hours"
	case UrgencyWithinWeek:
		return "Schedule appointment this week"
	case UrgencyRoutine:
		return "Routine check-up recommended"
	default:
		return ""
	}
}

// ParseUrgency matches value case-insensitively against the known values.
func ParseUrgency(value string) (Urgency, bool) {
	urgency := Urgency(strings.ToLower(strings.TrimSpace(value)))
	return urgency, urgency.Valid()
}

// Item is a normalized list entry (cause, precaution or remedy).
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AnalysisRequest is the caller's input to the pipeline.
type AnalysisRequest struct {
	Symptoms string
}

// Trimmed returns the symptoms without surrounding whitespace.
func (r AnalysisRequest) Trimmed() string {
	return strings.TrimSpace(r.Symptoms)
}

// Validate rejects requests whose trimmed symptoms are shorter than
// MinSymptomsLength characters.
func (r AnalysisRequest) Validate() error {
	if utf8.RuneCountInString(r.Trimmed()) < MinSymptomsLength {
		return &Error{
			Kind:   ErrValidation,
			Op:     "validate symptoms",
			Detail: "please provide more detailed symptoms (at least 10 characters)",
		}
	}
	return nil
}

// AnalysisResult is the normalized outcome of a single analysis.
type AnalysisResult struct {
	RiskLevel             RiskLevel  `json:"riskLevel"`
	ProbableCauses        []Item     `json:"probableCauses"`
	Precautions           []Item     `json:"precautions"`
	HomeRemedies          []Item     `json:"homeRemedies"`
	RecommendedSpecialist Specialist `json:"recommendedSpecialist,omitempty"`
	Urgency               Urgency    `json:"urgency,omitempty"`
	Timestamp             time.Time  `json:"timestamp"`
	Symptoms              string     `json:"symptoms"`

	// RiskLevelDefaulted is set when DefaultRiskLevel replaced an absent or
	// unrecognized upstream value.
	RiskLevelDefaulted bool `json:"riskLevelDefaulted,omitempty"`
	// WrappedFields lists the list fields that arrived as a scalar.
	WrappedFields []string `json:"wrappedFields,omitempty"`
}

// IsEmergency reports whether the result calls for immediate care.
func (r AnalysisResult) IsEmergency() bool {
	return r.RiskLevel == RiskHigh && r.Urgency == UrgencyImmediate
}

// RawResponse is the undecoded provider envelope returned by a transport.
type RawResponse struct {
	StatusCode int
	Body       []byte
}
