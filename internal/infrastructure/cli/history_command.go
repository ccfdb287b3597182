package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/triage-go/internal/app"
	"github.com/doeshing/triage-go/internal/domain"
	"github.com/doeshing/triage-go/internal/ports"
)

const (
	msgNoHistoryRecorded = "No history recorded yet."
	msgNoMatches         = "No matching records."
	msgCancelled         = "Cancelled."
)

var errHistoryDisabled = errors.New("history is disabled (set history.enabled: true)")

// newHistoryCommand creates the history command with all subcommands
func newHistoryCommand(session *Session) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored analyses",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(session),
		newHistoryShowCommand(session),
		newHistoryLastCommand(session),
		newHistorySearchCommand(session),
		newHistoryExportCommand(session),
		newHistoryPruneCommand(session),
		newHistoryClearCommand(session),
	)
	return historyCmd
}

func newHistoryListCommand(session *Session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			records, err := store.Records(cmd.Context(), limit, "")
			if err != nil {
				return fmt.Errorf("failed to retrieve history records: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), container, records, msgNoHistoryRecorded)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	return cmd
}

func newHistorySearchCommand(session *Session) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search stored symptoms and results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			records, err := store.Records(cmd.Context(), limit, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("failed to search history: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), container, records, msgNoMatches)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

type recordViewFlags struct {
	jsonOutput bool
	plain      bool
}

func (f *recordViewFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print the record as JSON")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print a plain-text report")
}

func newHistoryShowCommand(session *Session) *cobra.Command {
	var view recordViewFlags

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored analysis (full id or unique prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			record, err := resolveRecord(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), record, view)
		},
	}

	view.register(cmd)
	return cmd
}

func newHistoryLastCommand(session *Session) *cobra.Command {
	var view recordViewFlags

	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the most recent analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			record, err := store.Latest(cmd.Context())
			if errors.Is(err, domain.ErrHistoryNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), msgNoHistoryRecorded)
				return nil
			}
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), record, view)
		},
	}

	view.register(cmd)
	return cmd
}

func newHistoryExportCommand(session *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to a JSON (or .jsonl) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			if err := store.ExportJSON(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to export history to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported history to %s\n", args[0])
			return nil
		},
	}
}

func newHistoryPruneCommand(session *Session) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete analyses older than N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be > 0")
			}
			container, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			cutoff := container.Clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records older than %d days.\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", domain.DefaultHistoryRetainDays, "Days of history to keep")
	return cmd
}

func newHistoryClearCommand(session *Session) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := historyStore(cmd, session)
			if err != nil {
				return err
			}
			if !yes {
				confirmed, err := NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm("Delete all stored analyses?")
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), msgCancelled)
					return nil
				}
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func historyStore(cmd *cobra.Command, session *Session) (*app.Container, ports.HistoryRepository, error) {
	container, err := session.Container(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	if container.HistoryStore == nil {
		return nil, nil, errHistoryDisabled
	}
	return container, container.HistoryStore, nil
}

// resolveRecord looks id up exactly, then as a unique prefix.
func resolveRecord(ctx context.Context, store ports.HistoryRepository, id string) (domain.HistoryRecord, error) {
	record, err := store.Get(ctx, id)
	if err == nil || !errors.Is(err, domain.ErrHistoryNotFound) {
		return record, err
	}

	records, listErr := store.Records(ctx, 0, "")
	if listErr != nil {
		return domain.HistoryRecord{}, listErr
	}
	var matches []domain.HistoryRecord
	for _, rec := range records {
		if strings.HasPrefix(rec.ID, id) {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return domain.HistoryRecord{}, err
	case 1:
		return matches[0], nil
	default:
		return domain.HistoryRecord{}, fmt.Errorf("id prefix %q matches %d records", id, len(matches))
	}
}

func printRecords(out io.Writer, container *app.Container, records []domain.HistoryRecord, empty string) error {
	if len(records) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	fmt.Fprintln(out, renderHistoryTable(records, container.Clock.Now()))
	return nil
}

func printRecord(out io.Writer, record domain.HistoryRecord, view recordViewFlags) error {
	switch {
	case view.jsonOutput:
		return RenderJSON(out, record)
	case view.plain:
		fmt.Fprint(out, FormatSummary(record.Result))
	default:
		fmt.Fprintf(out, "Record %s (%s, %s)\n\n", record.ID, record.Model, record.CreatedAt.Local().Format(time.RFC1123))
		RenderResult(out, record.Result, shouldColorize(out))
	}
	return nil
}
