package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/doeshing/triage-go/internal/app"
	"github.com/doeshing/triage-go/internal/domain"
)

type analyzeFlags struct {
	jsonOutput bool
	plain      bool
	noSave     bool
	timeout    time.Duration
}

func newAnalyzeCommand(session *Session) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [symptoms...]",
		Short: "Analyze a symptom description",
		Long:  "Analyze a symptom description. Symptoms are read from stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, session, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "Print a plain-text report")
	cmd.Flags().BoolVar(&flags.noSave, "no-save", false, "Do not store the result in history")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Overall deadline including retries (0 = none)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, session *Session, args []string, flags analyzeFlags) error {
	if flags.jsonOutput && flags.plain {
		return errors.New("--json and --plain are mutually exclusive")
	}

	symptoms, err := readSymptoms(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	container, err := session.Container(ctx)
	if err != nil {
		return err
	}
	if container.AnalysisService == nil {
		return errors.New("analysis service unavailable")
	}

	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	spinner := NewSpinner(cmd.ErrOrStderr(), "Analyzing symptoms...")
	if !flags.jsonOutput && shouldColorize(cmd.ErrOrStderr()) {
		spinner.Start()
	}
	result, err := container.AnalysisService.Analyze(ctx, symptoms)
	spinner.Stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case flags.jsonOutput:
		if err := RenderJSON(out, result); err != nil {
			return err
		}
	case flags.plain:
		fmt.Fprint(out, FormatSummary(result))
	default:
		RenderResult(out, result, shouldColorize(out))
	}

	if !flags.noSave {
		saveResult(ctx, cmd.ErrOrStderr(), container, result)
	}
	return nil
}

// saveResult stores result and applies the retention window. Failures are
// logged and never fail the analysis.
func saveResult(ctx context.Context, errOut io.Writer, container *app.Container, result domain.AnalysisResult) {
	store := container.HistoryStore
	if store == nil {
		return
	}
	record := domain.HistoryRecord{
		ID:        uuid.NewString(),
		CreatedAt: result.Timestamp,
		Model:     container.Config.API.Model,
		Result:    result,
	}
	if err := store.Save(ctx, record); err != nil {
		container.Logger.Warn("history save failed", map[string]interface{}{"error": err.Error()})
		return
	}
	fmt.Fprintf(errOut, "Saved as %s\n", shortID(record.ID))

	if retention := container.Config.History.Retention(); retention > 0 {
		cutoff := container.Clock.Now().Add(-retention)
		removed, err := store.Prune(ctx, cutoff)
		if err != nil {
			container.Logger.Warn("history prune failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if removed > 0 {
			container.Logger.Debug("history pruned", map[string]interface{}{"removed": removed})
		}
	}
}

// readSymptoms joins args, or reads in when args are empty and in is not an
// interactive terminal.
func readSymptoms(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file, ok := in.(*os.File); ok && (isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) {
		return "", errors.New("describe your symptoms as arguments or pipe them on stdin")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read symptoms: %w", err)
	}
	return string(data), nil
}
