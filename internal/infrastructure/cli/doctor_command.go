package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/triage-go/internal/domain"
)

func newDoctorCommand(session *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, credential and upstream connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := session.Container(cmd.Context())
			if err != nil {
				return err
			}
			if container.DoctorService == nil {
				return errors.New("doctor service unavailable")
			}

			out := cmd.OutOrStdout()
			report, err := container.DoctorService.Run(cmd.Context())

			// Display report even if there were errors
			displayDoctorReport(out, report, shouldColorize(out))

			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if !report.Healthy() {
				return errors.New("diagnostics reported failures")
			}
			return nil
		},
	}
}

func displayDoctorReport(out io.Writer, report domain.HealthReport, colorize bool) {
	for _, check := range report.Checks {
		fmt.Fprintln(out, renderStatusLine(check, colorize))
	}
}
