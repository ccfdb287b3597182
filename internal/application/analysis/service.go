// Package analysis orchestrates the symptom-analysis pipeline:
// validate, check credential, build prompt, send with retry, normalize.
package analysis

import (
	"context"
	"errors"

	configapp "github.com/doeshing/triage-go/internal/application/config"
	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/infrastructure/ai"
	"github.com/doeshing/triage-go/internal/ports"
)

// Service runs one analysis per Analyze call. It holds only immutable
// collaborators, so concurrent calls are independent.
type Service struct {
	Transport  ports.Transport
	Normalizer ports.ResponseNormalizer
	Credential string
	Model      string
	Logger     ports.Logger
}

// Analyze runs the pipeline for symptoms. Steps run strictly in order and
// validation or credential failures happen before any network call.
func (s *Service) Analyze(ctx context.Context, symptoms string) (domain.AnalysisResult, error) {
	if s.Transport == nil || s.Normalizer == nil || s.Logger == nil {
		return domain.AnalysisResult{}, errors.New("analysis.Service dependencies not satisfied")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := domain.AnalysisRequest{Symptoms: symptoms}
	if err := req.Validate(); err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := configapp.CheckCredential(s.Credential); err != nil {
		return domain.AnalysisResult{}, err
	}

	trimmed := req.Trimmed()
	s.Logger.Info("analyzing symptoms", map[string]interface{}{
		"model":  s.Model,
		"length": len([]rune(trimmed)),
	})

	raw, err := s.Transport.Send(ctx, ai.BuildPrompt(trimmed))
	if err != nil {
		s.Logger.Error("analysis request failed", err, map[string]interface{}{
			"kind": string(domain.KindOf(err)),
		})
		return domain.AnalysisResult{}, err
	}

	result, err := s.Normalizer.Normalize(raw, trimmed)
	if err != nil {
		s.Logger.Error("analysis response rejected", err, nil)
		return domain.AnalysisResult{}, err
	}

	s.Logger.Info("analysis completed", map[string]interface{}{
		"risk_level": string(result.RiskLevel),
		"urgency":    string(result.Urgency),
	})
	return result, nil
}
