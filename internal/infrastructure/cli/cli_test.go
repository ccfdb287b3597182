package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/doeshing/triage-go/internal/app"
	"github.com/doeshing/triage-go/internal/application/analysis"
	"github.com/doeshing/triage-go/internal/application/doctor"
	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/infrastructure/ai"
	"github.com/doeshing/triage-go/internal/infrastructure/history"
	"github.com/doeshing/triage-go/internal/pkg/clock"
	"github.com/doeshing/triage-go/internal/pkg/logger"
	"github.com/doeshing/triage-go/internal/ports"
)

var fixedNow = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

const analysisJSON = `{
  "riskLevel": "moderate",
  "probableCauses": [{"title": "Migraine", "description": "Recurring headache with nausea"}],
  "precautions": ["Avoid bright light"],
  "homeRemedies": [{"title": "Rest in a dark room"}],
  "recommendedSpecialist": "neurology",
  "urgency": "within_24_hours"
}`

type cannedTransport struct {
	calls int
	err   error
}

func (c *cannedTransport) Send(context.Context, string) (domain.RawResponse, error) {
	c.calls++
	if c.err != nil {
		return domain.RawResponse{}, c.err
	}
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"content": analysisJSON}},
		},
	})
	return domain.RawResponse{StatusCode: 200, Body: body}, nil
}

type testEnv struct {
	transport *cannedTransport
	container *app.Container
	store     *history.SQLiteStore
}

func newTestEnv(t *testing.T, withHistory bool) *testEnv {
	t.Helper()
	clk := clock.NewManaged(fixedNow)
	log := logger.Nop()
	transport := &cannedTransport{}
	container := &app.Container{
		Config: domain.Config{API: domain.APISettings{Model: domain.DefaultModel}},
		Logger: log,
		Clock:  clk,
		AnalysisService: &analysis.Service{
			Transport:  transport,
			Normalizer: ai.NewNormalizer(clk, log),
			Credential: "sk-test-key",
			Model:      domain.DefaultModel,
			Logger:     log,
		},
	}
	env := &testEnv{transport: transport, container: container}
	if withHistory {
		store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore error: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		env.store = store
		container.HistoryStore = store
	}
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, *Session, error) {
	t.Helper()
	root, session := NewRootCmd(Options{Build: func(context.Context, app.Options) (*app.Container, error) {
		return e.container, nil
	}})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), session, err
}

func TestAnalyzeJSONSavesHistory(t *testing.T) {
	env := newTestEnv(t, true)
	stdout, stderr, _, err := env.run(t, "", "analyze", "--json", "throbbing headache and nausea since morning")
	if err != nil {
		t.Fatalf("analyze error: %v", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if result.RiskLevel != domain.RiskModerate || result.RecommendedSpecialist != domain.SpecialistNeurology {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(stderr, "Saved as") {
		t.Fatalf("expected save note on stderr, got %q", stderr)
	}

	records, err := env.store.Records(context.Background(), 0, "")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one stored record, got %d (%v)", len(records), err)
	}
	if records[0].Model != domain.DefaultModel || !records[0].CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestAnalyzePlainNoSave(t *testing.T) {
	env := newTestEnv(t, true)
	stdout, _, _, err := env.run(t, "", "analyze", "--plain", "--no-save", "throbbing", "headache", "since", "morning")
	if err != nil {
		t.Fatalf("analyze error: %v", err)
	}
	for _, want := range []string{"Risk Level: MODERATE", "Recommended Specialist: Neurology", "1. Migraine - Recurring headache with nausea", "1. Avoid bright light"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("plain output missing %q:\n%s", want, stdout)
		}
	}
	if records, _ := env.store.Records(context.Background(), 0, ""); len(records) != 0 {
		t.Fatalf("--no-save stored %d records", len(records))
	}
}

func TestAnalyzeReadsStdinFromRoot(t *testing.T) {
	env := newTestEnv(t, false)
	stdout, _, _, err := env.run(t, "sharp chest pain when breathing deeply\n", "analyze")
	if err != nil {
		t.Fatalf("analyze error: %v", err)
	}
	if env.transport.calls != 1 || !strings.Contains(stdout, "Risk level:") {
		t.Fatalf("unexpected run: calls=%d output=%q", env.transport.calls, stdout)
	}
}

func TestAnalyzeFailureUsesCatalogMessage(t *testing.T) {
	env := newTestEnv(t, false)
	_, _, session, err := env.run(t, "", "analyze", "ouch")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.transport.calls != 0 {
		t.Fatal("short input must not reach the transport")
	}
	if got := session.Describe(err); got != domain.DefaultMessages()[string(domain.ErrValidation)] {
		t.Fatalf("Describe = %q", got)
	}

	env.transport.err = &domain.Error{Kind: domain.ErrRateLimit, Status: 429}
	_, _, session, err = env.run(t, "", "analyze", "persistent dry cough for a week")
	if got := session.Describe(err); got != "API rate limit exceeded. Please wait a moment and try again." {
		t.Fatalf("Describe = %q", got)
	}
}

func TestAnalyzeRejectsConflictingFormats(t *testing.T) {
	env := newTestEnv(t, false)
	if _, _, _, err := env.run(t, "", "analyze", "--json", "--plain", "persistent dry cough"); err == nil {
		t.Fatal("expected error for --json with --plain")
	}
}

func TestHistoryCommands(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	saved := domain.HistoryRecord{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		CreatedAt: fixedNow.Add(-2 * time.Hour),
		Model:     domain.DefaultModel,
		Result: domain.AnalysisResult{
			RiskLevel:      domain.RiskLow,
			ProbableCauses: []domain.Item{{Title: "Contact dermatitis"}},
			Precautions:    []domain.Item{},
			HomeRemedies:   []domain.Item{},
			Symptoms:       "itchy rash on both forearms",
		},
	}
	if err := env.store.Save(ctx, saved); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	stdout, _, _, err := env.run(t, "", "history", "list")
	if err != nil {
		t.Fatalf("history list error: %v", err)
	}
	for _, want := range []string{"0f8fad5b", "2 hours ago", "Low", "itchy rash"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("list output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, _, err = env.run(t, "", "history", "show", "--json", "0f8f")
	if err != nil {
		t.Fatalf("history show error: %v", err)
	}
	var shown domain.HistoryRecord
	if err := json.Unmarshal([]byte(stdout), &shown); err != nil || shown.ID != saved.ID {
		t.Fatalf("unexpected show output %q (%v)", stdout, err)
	}

	stdout, _, _, _ = env.run(t, "", "history", "search", "nothing-like-this")
	if !strings.Contains(stdout, msgNoMatches) {
		t.Fatalf("unexpected search output %q", stdout)
	}

	stdout, _, _, err = env.run(t, "", "history", "prune", "--days", "1")
	if err != nil || !strings.Contains(stdout, "Removed 0 records") {
		t.Fatalf("prune: %q %v", stdout, err)
	}

	stdout, _, _, err = env.run(t, "", "history", "clear")
	if err != nil || !strings.Contains(stdout, msgCancelled) {
		t.Fatalf("unconfirmed clear: %q %v", stdout, err)
	}
	if records, _ := env.store.Records(ctx, 0, ""); len(records) != 1 {
		t.Fatal("unconfirmed clear removed records")
	}
	if _, _, _, err := env.run(t, "yes\n", "history", "clear"); err != nil {
		t.Fatalf("history clear error: %v", err)
	}
	stdout, _, _, _ = env.run(t, "", "history", "last")
	if !strings.Contains(stdout, msgNoHistoryRecorded) {
		t.Fatalf("unexpected last output %q", stdout)
	}

	if _, _, _, err := env.run(t, "", "history", "show", "missing"); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	if _, _, _, err := env.run(t, "", "history", "list"); !errors.Is(err, errHistoryDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

type fixedConfig struct{ cfg domain.Config }

func (f fixedConfig) Load(context.Context) (domain.Config, error) { return f.cfg, nil }

func TestDoctorReportsFailures(t *testing.T) {
	env := newTestEnv(t, false)
	env.container.DoctorService = &doctor.Service{
		ConfigProvider: fixedConfig{cfg: env.container.Config},
		Getenv:         func(string) string { return "" },
		NewChecker: func(domain.Config, string) ports.HealthChecker {
			t.Fatal("checker built without credential")
			return nil
		},
	}
	stdout, _, _, err := env.run(t, "", "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail without a credential")
	}
	if !strings.Contains(stdout, "API key:") || !strings.Contains(stdout, "[ERROR]") {
		t.Fatalf("unexpected doctor output:\n%s", stdout)
	}
}

func TestConfigPathInitValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	run := func(args ...string) (string, error) {
		root, _ := NewRootCmd(Options{Build: func(context.Context, app.Options) (*app.Container, error) {
			return nil, errors.New("container must not be built")
		}})
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--config", path}, args...))
		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}

	if out, err := run("config", "path"); err != nil || strings.TrimSpace(out) != path {
		t.Fatalf("config path = %q (%v)", out, err)
	}
	if out, err := run("config", "init"); err != nil || !strings.Contains(out, path) {
		t.Fatalf("config init = %q (%v)", out, err)
	}
	if _, err := run("config", "init"); err == nil {
		t.Fatal("second init without --force should fail")
	}
	if out, err := run("config", "validate"); err != nil || !strings.Contains(out, msgConfigurationValid) {
		t.Fatalf("config validate = %q (%v)", out, err)
	}
	if out, err := run("config", "show", "--format", "toml"); err != nil || !strings.Contains(out, "[api]") {
		t.Fatalf("config show = %q (%v)", out, err)
	}
}

func TestFormatSummaryEmptySections(t *testing.T) {
	summary := FormatSummary(domain.AnalysisResult{
		RiskLevel: domain.RiskHigh,
		Urgency:   domain.UrgencyImmediate,
		Timestamp: fixedNow,
		Symptoms:  "crushing chest pain radiating to left arm",
	})
	for _, want := range []string{
		"Date: 2024-05-10 14:00 UTC",
		"Risk Level: HIGH",
		"Requires immediate medical attention",
		"Urgency: Seek immediate care",
		"Home Remedies:\n  (none)",
		disclaimer,
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "Recommended Specialist") {
		t.Error("specialist line should be omitted when absent")
	}
}

func TestRenderResultEmergencyBanner(t *testing.T) {
	var out bytes.Buffer
	RenderResult(&out, domain.AnalysisResult{RiskLevel: domain.RiskHigh, Urgency: domain.UrgencyImmediate}, false)
	if !strings.HasPrefix(out.String(), "!! Seek emergency care now") {
		t.Fatalf("missing emergency banner:\n%s", out.String())
	}
	if strings.Contains(out.String(), ansiReset) {
		t.Fatal("colour codes written to a non-terminal")
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"short":             "*****",
		"sk-or-v1-abcdef12": "*************ef12",
	}
	for input, want := range cases {
		if got := maskSecret(input); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPrompterConfirm(t *testing.T) {
	cases := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "": false, "yes": true}
	for input, want := range cases {
		var out bytes.Buffer
		got, err := NewPrompter(strings.NewReader(input), &out).Confirm("Proceed?")
		if err != nil {
			t.Fatalf("Confirm(%q) error: %v", input, err)
		}
		if got != want {
			t.Errorf("Confirm(%q) = %v, want %v", input, got, want)
		}
		if out.String() != "Proceed? [y/N]: " {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

func TestSpinnerStopIdempotent(t *testing.T) {
	var out safeBuffer
	spinner := NewSpinner(&out, "Working")
	spinner.Start()
	spinner.Stop()
	spinner.Stop()
	if !strings.Contains(out.String(), "Working") {
		t.Fatalf("spinner never drew its label: %q", out.String())
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRootAnalyzesBareArguments(t *testing.T) {
	env := newTestEnv(t, false)
	stdout, _, _, err := env.run(t, "", "dizzy", "after", "standing", "up", "quickly")
	if err != nil {
		t.Fatalf("root analyze error: %v", err)
	}
	if env.transport.calls != 1 || !strings.Contains(stdout, "Specialist: Neurology") {
		t.Fatalf("unexpected run: calls=%d output=%q", env.transport.calls, stdout)
	}
}

func TestAnalyzeInvalidConfigFailsBeforeTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api:\n  endpoint: localhost:8080/v1/chat/completions\n  api_key_env: TEST_KEY\nhistory:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root, session := NewRootCmd(Options{})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"--config", path, "analyze", "persistent dry cough for a week"})
	err := root.ExecuteContext(context.Background())
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if got := session.Describe(err); !strings.Contains(got, "api.endpoint must use http or https") {
		t.Fatalf("Describe = %q, want the validation detail", got)
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}
