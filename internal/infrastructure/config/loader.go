package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/triage-go/assets"
	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/pkg/filesystem"
	"github.com/doeshing/triage-go/internal/ports"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "TRIAGE_CONFIG"

// FileLoader loads YAML or TOML configuration from ~/.triage/config.yaml
// (overridable via TRIAGE_CONFIG).
type FileLoader struct {
	overridePath string
	dotenvFiles  []string
}

// LoaderOption customizes the loader.
type LoaderOption func(*FileLoader)

// WithDotEnv loads the given .env files into the process environment before
// the config is read. Missing files are skipped and existing variables win.
func WithDotEnv(paths ...string) LoaderOption {
	return func(l *FileLoader) {
		l.dotenvFiles = append(l.dotenvFiles, paths...)
	}
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string, opts ...LoaderOption) *FileLoader {
	loader := &FileLoader{overridePath: path}
	for _, opt := range opts {
		opt(loader)
	}
	return loader
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded default.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return domain.Config{}, err
	}

	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefault(path); err != nil {
			return domain.Config{}, err
		}
		return DefaultConfig()
	}

	cfg, err := decode(path, data)
	if err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

// Path returns the resolved config location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.AppDir(), "config.yaml")
}

// Init writes the default config. Existing files are kept unless force is set.
func (l *FileLoader) Init(force bool) (string, error) {
	path := l.Path()
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	return path, writeDefault(path)
}

// Save persists cfg in the format implied by the path extension.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.Path()
	raw, err := encode(path, cfg)
	if err != nil {
		return err
	}
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// DefaultConfig decodes the embedded default configuration.
func DefaultConfig() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse embedded config: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

// Marshal renders cfg as YAML, or TOML when format is "toml".
func Marshal(cfg domain.Config, format string) ([]byte, error) {
	if strings.EqualFold(format, "toml") {
		return toml.Marshal(cfg)
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *FileLoader) loadDotEnv() error {
	for _, path := range l.dotenvFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// decode seeds max_retries before unmarshalling so an explicit 0 survives;
// hydrateDefaults cannot tell it apart from an absent key.
func decode(path string, data []byte) (domain.Config, error) {
	cfg := domain.Config{Retry: domain.RetrySettings{MaxRetries: domain.DefaultMaxRetries}}
	if isTOML(path) {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, &domain.Error{Kind: domain.ErrConfig, Op: "parse config", Detail: path, Err: err}
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, &domain.Error{Kind: domain.ErrConfig, Op: "parse config", Detail: path, Err: err}
	}
	return cfg, nil
}

func encode(path string, cfg domain.Config) ([]byte, error) {
	if isTOML(path) {
		return Marshal(cfg, "toml")
	}
	return Marshal(cfg, "yaml")
}

func writeDefault(path string) error {
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	raw := assets.DefaultConfigYAML
	if isTOML(path) {
		cfg, err := DefaultConfig()
		if err != nil {
			return err
		}
		if raw, err = toml.Marshal(cfg); err != nil {
			return fmt.Errorf("encode default config: %w", err)
		}
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = domain.DefaultEndpoint
	}
	if cfg.API.Model == "" {
		cfg.API.Model = domain.DefaultModel
	}
	if cfg.API.APIKeyEnv == "" {
		cfg.API.APIKeyEnv = domain.DefaultAPIKeyEnv
	}
	if cfg.API.TimeoutMS == 0 {
		cfg.API.TimeoutMS = int(domain.DefaultRequestTimeout.Milliseconds())
	}
	if cfg.API.MaxTokens == 0 {
		cfg.API.MaxTokens = domain.DefaultMaxTokens
	}
	if cfg.API.Temperature == 0 {
		cfg.API.Temperature = domain.DefaultTemperature
	}
	if cfg.Retry.BaseDelayMS == 0 {
		cfg.Retry.BaseDelayMS = int(domain.DefaultRetryBaseDelay.Milliseconds())
	}
	if cfg.Retry.MaxDelayMS == 0 {
		cfg.Retry.MaxDelayMS = int(domain.DefaultRetryMaxDelay.Milliseconds())
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(filesystem.AppDir(), "history.db")
	}
	cfg.History.Path = filesystem.ExpandPath(cfg.History.Path)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
