package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

// Required payload fields, checked in this order.
const (
	fieldRiskLevel      = "riskLevel"
	fieldProbableCauses = "probableCauses"
	fieldPrecautions    = "precautions"
	fieldHomeRemedies   = "homeRemedies"
	fieldSpecialist     = "recommendedSpecialist"
	fieldUrgency        = "urgency"
)

var requiredFields = []string{fieldRiskLevel, fieldProbableCauses, fieldPrecautions, fieldHomeRemedies}

// Normalizer converts provider envelopes into analysis results.
type Normalizer struct {
	clock  ports.Clock
	logger ports.Logger
}

// NewNormalizer builds a normalizer stamping results with clock.
func NewNormalizer(clock ports.Clock, logger ports.Logger) *Normalizer {
	return &Normalizer{clock: clock, logger: logger}
}

// Normalize either returns a fully shaped result or an ErrParse failure
// naming the step that rejected the response.
func (n *Normalizer) Normalize(raw domain.RawResponse, symptoms string) (domain.AnalysisResult, error) {
	content, err := envelopeContent(raw.Body)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	object, ok := ExtractJSONObject(content)
	if !ok {
		return domain.AnalysisResult{}, domain.NewParseError(domain.StepNoJSON, summarizePayloadSnippet(content), nil)
	}

	payload, err := decodeObject(object)
	if err != nil {
		return domain.AnalysisResult{}, domain.NewParseError(domain.StepMalformed, "", err)
	}

	for _, field := range requiredFields {
		if missing(payload, field) {
			return domain.AnalysisResult{}, domain.NewParseError(domain.StepMissingField, field, nil)
		}
	}

	result := domain.AnalysisResult{
		Symptoms:  strings.TrimSpace(symptoms),
		Timestamp: n.clock.Now().UTC(),
	}

	rawLevel := stringify(payload[fieldRiskLevel])
	if level, ok := domain.ParseRiskLevel(rawLevel); ok {
		result.RiskLevel = level
	} else {
		result.RiskLevel = domain.DefaultRiskLevel
		result.RiskLevelDefaulted = true
		n.logger.Warn("risk level defaulted", map[string]interface{}{
			"received": rawLevel,
			"default":  string(domain.DefaultRiskLevel),
		})
	}

	lists := []struct {
		name string
		dest *[]domain.Item
	}{
		{fieldProbableCauses, &result.ProbableCauses},
		{fieldPrecautions, &result.Precautions},
		{fieldHomeRemedies, &result.HomeRemedies},
	}
	for _, list := range lists {
		items, wrapped := coerceItems(payload[list.name])
		*list.dest = items
		if wrapped {
			result.WrappedFields = append(result.WrappedFields, list.name)
			n.logger.Warn("list field wrapped", map[string]interface{}{"field": list.name})
		}
	}

	if value, ok := payload[fieldSpecialist].(string); ok && strings.TrimSpace(value) != "" {
		result.RecommendedSpecialist = domain.ParseSpecialist(value)
	}

	if value, ok := payload[fieldUrgency]; ok && value != nil {
		if urgency, valid := domain.ParseUrgency(stringify(value)); valid {
			result.Urgency = urgency
		} else {
			n.logger.Warn("unknown urgency dropped", map[string]interface{}{"received": stringify(value)})
		}
	}

	return result, nil
}

// envelopeContent pulls the assistant text out of a chat-completion or flat
// content envelope.
func envelopeContent(body []byte) (string, error) {
	var envelope providerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", domain.NewParseError(domain.StepEnvelope, summarizePayloadSnippet(string(body)), err)
	}
	if len(envelope.Choices) > 0 && envelope.Choices[0].Message != nil {
		if text, ok := rawString(envelope.Choices[0].Message.Content); ok {
			return text, nil
		}
	}
	if text, ok := rawString(envelope.Content); ok {
		return text, nil
	}
	return "", domain.NewParseError(domain.StepEnvelope, "expected choices[0].message.content or content", nil)
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

func decodeObject(object string) (map[string]any, error) {
	decoder := json.NewDecoder(strings.NewReader(object))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	if payload == nil {
		return nil, fmt.Errorf("payload is not an object")
	}
	return payload, nil
}

func missing(payload map[string]any, field string) bool {
	value, ok := payload[field]
	if !ok || value == nil {
		return true
	}
	if text, isText := value.(string); isText && strings.TrimSpace(text) == "" {
		return true
	}
	return false
}

// coerceItems materializes a list field. The second return reports whether
// a scalar was wrapped into a one-element list.
func coerceItems(value any) ([]domain.Item, bool) {
	elements, isList := value.([]any)
	wrapped := false
	if !isList {
		elements = []any{value}
		wrapped = true
	}
	items := make([]domain.Item, 0, len(elements))
	for _, element := range elements {
		items = append(items, coerceItem(element))
	}
	return items, wrapped
}

func coerceItem(element any) domain.Item {
	switch v := element.(type) {
	case string:
		return domain.Item{Title: v}
	case map[string]any:
		if title, ok := v["title"]; ok {
			item := domain.Item{Title: stringify(title)}
			if description, ok := v["description"]; ok && description != nil {
				item.Description = stringify(description)
			}
			return item
		}
	}
	return domain.Item{Title: stringify(element)}
}

var _ ports.ResponseNormalizer = (*Normalizer)(nil)
