package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/doeshing/triage-go/internal/app"
	"github.com/doeshing/triage-go/internal/domain"
	configinfra "github.com/doeshing/triage-go/internal/infrastructure/config"
)

// BuildFunc assembles the container once global flags are parsed.
type BuildFunc func(ctx context.Context, opts app.Options) (*app.Container, error)

// Session builds the container lazily so commands such as `config path`
// work even when the config file cannot be loaded.
type Session struct {
	ConfigPath string
	Verbose    bool

	build     BuildFunc
	container *app.Container
}

// NewSession returns a session using build, or app.BuildContainer when nil.
func NewSession(build BuildFunc, verbose bool) *Session {
	if build == nil {
		build = app.BuildContainer
	}
	return &Session{build: build, Verbose: verbose}
}

// Container builds the container on first use.
func (s *Session) Container(ctx context.Context) (*app.Container, error) {
	if s.container != nil {
		return s.container, nil
	}
	container, err := s.build(ctx, app.Options{ConfigPath: s.ConfigPath, Verbose: s.Verbose})
	if err != nil {
		return nil, err
	}
	s.container = container
	return container, nil
}

// Loader returns a config loader honouring --config without loading it.
func (s *Session) Loader() *configinfra.FileLoader {
	if s.container != nil && s.container.ConfigLoader != nil {
		return s.container.ConfigLoader
	}
	return configinfra.NewFileLoader(s.ConfigPath)
}

// Describe turns err into the message shown to the user. Taxonomy errors map
// to the configured catalog. Verbose sessions and config failures with a
// cause append the underlying error.
func (s *Session) Describe(err error) string {
	if err == nil {
		return ""
	}
	catalog := domain.DefaultMessages()
	if s.container != nil && len(s.container.Config.Messages) > 0 {
		catalog = s.container.Config.Messages
	}
	msg := catalog.Message(err)
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) || msg == err.Error() {
		return msg
	}
	if s.Verbose || (domainErr.Kind == domain.ErrConfig && domainErr.Err != nil) {
		return fmt.Sprintf("%s (%v)", msg, err)
	}
	return msg
}

// Close releases container resources.
func (s *Session) Close() error {
	if s.container == nil {
		return nil
	}
	return s.container.Close()
}
