package app

import (
	"context"
	"os"

	"github.com/doeshing/triage-go/internal/application/analysis"
	configapp "github.com/doeshing/triage-go/internal/application/config"
	"github.com/doeshing/triage-go/internal/application/doctor"
	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/infrastructure/ai"
	"github.com/doeshing/triage-go/internal/infrastructure/config"
	"github.com/doeshing/triage-go/internal/infrastructure/history"
	"github.com/doeshing/triage-go/internal/pkg/clock"
	"github.com/doeshing/triage-go/internal/pkg/logger"
	"github.com/doeshing/triage-go/internal/ports"
)

// Options controls how the container is assembled.
type Options struct {
	ConfigPath string
	Verbose    bool
	// DotEnvFiles are loaded before the credential is resolved.
	DotEnvFiles []string
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config          domain.Config
	ConfigProvider  ports.ConfigProvider
	ConfigLoader    *config.FileLoader
	Logger          *logger.ZapLogger
	Clock           ports.Clock
	AnalysisService *analysis.Service
	DoctorService   *doctor.Service
	// HistoryStore is nil when history is disabled or could not be opened.
	HistoryStore ports.HistoryRepository

	historyDB *history.SQLiteStore
}

// BuildContainer constructs the dependency graph. An invalid config fails
// with ErrConfig before any adapter is built.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	dotenv := opts.DotEnvFiles
	if dotenv == nil {
		dotenv = []string{".env"}
	}
	cfgLoader := config.NewFileLoader(opts.ConfigPath, config.WithDotEnv(dotenv...))
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := configapp.Validate(cfg); err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	factory := ai.NewFactory(log, clk)
	credential := configapp.ResolveCredential(cfg.API, os.Getenv)

	container := &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Clock:          clk,
	}

	if cfg.History.HistoryEnabled() {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			log.Warn("history unavailable", map[string]interface{}{
				"path":  cfg.History.Path,
				"error": err.Error(),
			})
		} else {
			container.historyDB = store
			container.HistoryStore = store
		}
	}

	container.AnalysisService = &analysis.Service{
		Transport:  factory.Transport(cfg, credential.Value),
		Normalizer: factory.Normalizer(),
		Credential: credential.Value,
		Model:      cfg.API.Model,
		Logger:     log,
	}

	container.DoctorService = &doctor.Service{
		ConfigProvider: cfgLoader,
		History:        container.HistoryStore,
		NewChecker: func(cfg domain.Config, credential string) ports.HealthChecker {
			return factory.HealthChecker(cfg, credential)
		},
		Getenv: os.Getenv,
	}

	log.Debug("container ready", map[string]interface{}{
		"config":   cfgLoader.Path(),
		"model":    cfg.API.Model,
		"provider": string(ai.InferProviderKind(cfg.API.Endpoint)),
		"history":  container.HistoryStore != nil,
	})
	return container, nil
}

// Close releases the history database and flushes the logger.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.historyDB != nil {
		err = c.historyDB.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	return err
}
