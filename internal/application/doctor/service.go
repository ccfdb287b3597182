package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	configapp "github.com/doeshing/triage-go/internal/application/config"
	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

// CheckerFactory builds a health checker once the credential is known.
type CheckerFactory func(cfg domain.Config, credential string) ports.HealthChecker

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	History        ports.HistoryRepository
	NewChecker     CheckerFactory
	Getenv         func(string) string
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("loaded format %s", cfg.ConfigFormatVersion)))

	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Config values", err.Error()))
	} else {
		checks = append(checks, ok("Config values", "valid"))
	}

	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	credential := configapp.ResolveCredential(cfg.API, getenv)
	if !credential.Present() {
		checks = append(checks, fail("API key", fmt.Sprintf("not configured (set %s or api.api_key)", envName(cfg.API))))
		checks = append(checks, historyCheck(ctx, cfg, s.History))
		return domain.HealthReport{Checks: checks}, nil
	}
	checks = append(checks, ok("API key", "found in "+credential.Source))

	if s.NewChecker != nil {
		checker := s.NewChecker(cfg, credential.Value)
		checks = append(checks, connectionCheck(ctx, cfg, checker))
		checks = append(checks, usageCheck(ctx, checker))
	}

	checks = append(checks, historyCheck(ctx, cfg, s.History))
	return domain.HealthReport{Checks: checks}, nil
}

func connectionCheck(ctx context.Context, cfg domain.Config, checker ports.HealthChecker) domain.HealthCheck {
	pingCtx, cancel := context.WithTimeout(ctx, domain.DefaultHealthCheckTimeout)
	defer cancel()
	if err := checker.Ping(pingCtx); err != nil {
		return fail("Connection", fmt.Sprintf("%s: %s", domain.KindOf(err), cfg.Messages.Message(err)))
	}
	return ok("Connection", fmt.Sprintf("%s reachable", cfg.API.Model))
}

func usageCheck(ctx context.Context, checker ports.HealthChecker) domain.HealthCheck {
	usageCtx, cancel := context.WithTimeout(ctx, domain.DefaultHealthCheckTimeout)
	defer cancel()
	stats, err := checker.Usage(usageCtx)
	if err != nil {
		return warn("Usage", fmt.Sprintf("unavailable: %v", err))
	}
	if !stats.Available {
		return warn("Usage", "not reported by provider")
	}
	details := fmt.Sprintf("%s used", humanize.CommafWithDigits(stats.Usage, 4))
	if stats.Limit != nil {
		details += fmt.Sprintf(" of %s", humanize.CommafWithDigits(*stats.Limit, 4))
	}
	if stats.FreeTier {
		details += " (free tier)"
	}
	return ok("Usage", details)
}

func historyCheck(ctx context.Context, cfg domain.Config, history ports.HistoryRepository) domain.HealthCheck {
	if !cfg.History.HistoryEnabled() {
		return warn("History", "disabled")
	}
	if history == nil {
		return warn("History", "store not initialized")
	}
	records, err := history.Records(ctx, 0, "")
	if err != nil {
		return fail("History", err.Error())
	}
	return ok("History", fmt.Sprintf("%s (%d records)", history.Path(), len(records)))
}

func envName(api domain.APISettings) string {
	if api.APIKeyEnv != "" {
		return api.APIKeyEnv
	}
	return domain.DefaultAPIKeyEnv
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
