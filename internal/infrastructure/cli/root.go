package cli

import (
	"github.com/spf13/cobra"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	// Build overrides container construction, mainly for tests.
	Build BuildFunc
}

// NewRootCmd wires the cobra root command. The returned session owns the
// container and must be closed after execution.
func NewRootCmd(opts Options) (*cobra.Command, *Session) {
	session := NewSession(opts.Build, opts.Verbose)

	analyzeCmd := newAnalyzeCommand(session)

	root := &cobra.Command{
		Use:   "triage [symptoms]",
		Args:  cobra.ArbitraryArgs,
		Short: "Triage - symptom analysis assistant",
		Long: "Triage sends a free-text symptom description to an LLM chat-completion endpoint " +
			"and prints a structured risk assessment. It is not a medical diagnosis.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runAnalyze(cmd, session, args, analyzeFlags{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&session.ConfigPath, "config", "", "Config file (default ~/.triage/config.yaml, env TRIAGE_CONFIG)")
	root.PersistentFlags().BoolVarP(&session.Verbose, "verbose", "v", session.Verbose, "Enable debug logging")

	root.AddCommand(analyzeCmd)
	root.AddCommand(newHistoryCommand(session))
	root.AddCommand(newConfigCommand(session))
	root.AddCommand(newDoctorCommand(session))
	root.AddCommand(newVersionCommand())
	return root, session
}
