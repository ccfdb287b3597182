package doctor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

type stubConfigProvider struct {
	cfg domain.Config
	err error
}

func (s stubConfigProvider) Load(context.Context) (domain.Config, error) {
	return s.cfg, s.err
}

type stubChecker struct {
	pingErr  error
	stats    domain.UsageStats
	usageErr error
}

func (s stubChecker) Ping(context.Context) error { return s.pingErr }
func (s stubChecker) Usage(context.Context) (domain.UsageStats, error) {
	return s.stats, s.usageErr
}

func baseConfig() domain.Config {
	disabled := false
	return domain.Config{
		ConfigFormatVersion: "1",
		API: domain.APISettings{
			Endpoint:    domain.DefaultEndpoint,
			Model:       domain.DefaultModel,
			APIKeyEnv:   "TEST_KEY",
			TimeoutMS:   1000,
			MaxTokens:   500,
			Temperature: 0.3,
		},
		Retry:   domain.RetrySettings{MaxRetries: 3, BaseDelayMS: 1000, MaxDelayMS: 5000},
		History: domain.HistorySettings{Enabled: &disabled},
	}
}

func statusOf(report domain.HealthReport, name string) (domain.HealthCheck, bool) {
	for _, check := range report.Checks {
		if check.Name == name {
			return check, true
		}
	}
	return domain.HealthCheck{}, false
}

func TestDoctorHealthy(t *testing.T) {
	limit := 10.0
	svc := &Service{
		ConfigProvider: stubConfigProvider{cfg: baseConfig()},
		Getenv:         func(string) string { return "sk-real" },
		NewChecker: func(domain.Config, string) ports.HealthChecker {
			return stubChecker{stats: domain.UsageStats{Available: true, Usage: 1234.5, Limit: &limit}}
		},
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !report.Healthy() {
		t.Fatalf("expected healthy report, got %+v", report.Checks)
	}
	usage, found := statusOf(report, "Usage")
	if !found || !strings.Contains(usage.Details, "1,234.5 used of 10") {
		t.Fatalf("unexpected usage check: %+v", usage)
	}
	if key, _ := statusOf(report, "API key"); key.Details != "found in env:TEST_KEY" {
		t.Fatalf("unexpected key check: %+v", key)
	}
}

func TestDoctorMissingCredentialSkipsNetwork(t *testing.T) {
	called := false
	svc := &Service{
		ConfigProvider: stubConfigProvider{cfg: baseConfig()},
		Getenv:         func(string) string { return "" },
		NewChecker: func(domain.Config, string) ports.HealthChecker {
			called = true
			return stubChecker{}
		},
	}
	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if called {
		t.Fatal("checker should not be built without a credential")
	}
	if report.Healthy() {
		t.Fatal("expected unhealthy report")
	}
	if check, _ := statusOf(report, "API key"); !strings.Contains(check.Details, "TEST_KEY") {
		t.Fatalf("expected env name in details, got %q", check.Details)
	}
}

func TestDoctorConnectionFailure(t *testing.T) {
	svc := &Service{
		ConfigProvider: stubConfigProvider{cfg: baseConfig()},
		Getenv:         func(string) string { return "sk-real" },
		NewChecker: func(domain.Config, string) ports.HealthChecker {
			return stubChecker{pingErr: &domain.Error{Kind: domain.ErrAuth, Status: 401}, usageErr: errors.New("nope")}
		},
	}
	report, _ := svc.Run(context.Background())
	conn, _ := statusOf(report, "Connection")
	if conn.Status != domain.HealthError || !strings.HasPrefix(conn.Details, "auth") {
		t.Fatalf("unexpected connection check: %+v", conn)
	}
	if usage, _ := statusOf(report, "Usage"); usage.Status != domain.HealthWarn {
		t.Fatalf("usage failure should warn, got %+v", usage)
	}
}

func TestDoctorConfigLoadFailure(t *testing.T) {
	svc := &Service{ConfigProvider: stubConfigProvider{err: errors.New("bad yaml")}}
	report, err := svc.Run(context.Background())
	if err == nil || len(report.Checks) != 1 || report.Checks[0].Status != domain.HealthError {
		t.Fatalf("unexpected result: %+v %v", report, err)
	}
}

type stubHistory struct {
	ports.HistoryRepository
	records []domain.HistoryRecord
}

func (s stubHistory) Records(context.Context, int, string) ([]domain.HistoryRecord, error) {
	return s.records, nil
}

func (s stubHistory) Path() string { return "/tmp/history.db" }

func TestDoctorHistoryCheck(t *testing.T) {
	cfg := baseConfig()
	cfg.History = domain.HistorySettings{Path: "/tmp/history.db"}
	svc := &Service{
		ConfigProvider: stubConfigProvider{cfg: cfg},
		Getenv:         func(string) string { return "" },
		History:        stubHistory{records: []domain.HistoryRecord{{ID: "a", CreatedAt: time.Now()}}},
	}
	report, _ := svc.Run(context.Background())
	check, found := statusOf(report, "History")
	if !found || check.Status != domain.HealthOK || !strings.Contains(check.Details, "1 records") {
		t.Fatalf("unexpected history check: %+v", check)
	}
}

func TestDoctorConnectionUsesConfiguredMessages(t *testing.T) {
	cfg := baseConfig()
	cfg.Messages = domain.MessageCatalog{string(domain.ErrAuth): "Key rejected by provider."}
	svc := &Service{
		ConfigProvider: stubConfigProvider{cfg: cfg},
		Getenv:         func(string) string { return "sk-real" },
		NewChecker: func(domain.Config, string) ports.HealthChecker {
			return stubChecker{pingErr: &domain.Error{Kind: domain.ErrAuth, Status: 401}}
		},
	}
	report, _ := svc.Run(context.Background())
	conn, _ := statusOf(report, "Connection")
	if conn.Details != "auth: Key rejected by provider." {
		t.Fatalf("unexpected connection details %q", conn.Details)
	}
}
