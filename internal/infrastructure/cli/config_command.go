package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	configapp "github.com/doeshing/triage-go/internal/application/config"
	configinfra "github.com/doeshing/triage-go/internal/infrastructure/config"
)

const msgConfigurationValid = "Configuration valid"

// newConfigCommand creates the config command with all subcommands
func newConfigCommand(session *Session) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect triage configuration",
	}

	configCmd.AddCommand(
		newConfigShowCommand(session),
		newConfigPathCommand(session),
		newConfigValidateCommand(session),
		newConfigInitCommand(session),
	)
	return configCmd
}

func newConfigShowCommand(session *Session) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := session.Loader().Load(cmd.Context())
			if err != nil {
				return err
			}
			cfg.API.APIKey = maskSecret(cfg.API.APIKey)
			raw, err := configinfra.Marshal(cfg, format)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml|toml)")
	return cmd
}

func newConfigPathCommand(session *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), session.Loader().Path())
			return nil
		},
	}
}

func newConfigValidateCommand(session *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := session.Loader().Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			if err := configapp.Validate(cfg); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msgConfigurationValid)
			return nil
		},
	}
}

func newConfigInitCommand(session *Session) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := session.Loader().Init(force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

// maskSecret keeps the last four characters of a secret.
func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
