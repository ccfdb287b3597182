package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/doeshing/triage-go/internal/domain"
)

const disclaimer = "This analysis is for informational purposes only and is not a medical diagnosis. Consult a healthcare professional."

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	symptomsColumn   = 48
	shortIDLength    = 8
)

var titleCaser = cases.Title(language.Und)

// FormatSummary renders result as a plain-text report suitable for sharing
// or printing.
func FormatSummary(result domain.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("Medical Analysis Results\n")
	if !result.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", result.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	}
	if result.Symptoms != "" {
		fmt.Fprintf(&b, "Symptoms: %s\n", result.Symptoms)
	}
	fmt.Fprintf(&b, "Risk Level: %s\n", strings.ToUpper(string(result.RiskLevel)))
	fmt.Fprintf(&b, "%s\n", result.RiskLevel.Description())
	if advice := result.Urgency.Advice(); advice != "" {
		fmt.Fprintf(&b, "Urgency: %s\n", advice)
	}
	if result.RecommendedSpecialist != "" {
		fmt.Fprintf(&b, "Recommended Specialist: %s\n", result.RecommendedSpecialist.Department())
	}

	writeSection(&b, "Probable Causes", result.ProbableCauses)
	writeSection(&b, "Precautions", result.Precautions)
	writeSection(&b, "Home Remedies", result.HomeRemedies)

	b.WriteString("\n")
	b.WriteString(disclaimer)
	b.WriteString("\n")
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []domain.Item) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for i, item := range items {
		if item.Description != "" {
			fmt.Fprintf(b, "  %d. %s - %s\n", i+1, item.Title, item.Description)
		} else {
			fmt.Fprintf(b, "  %d. %s\n", i+1, item.Title)
		}
	}
}

// RenderResult prints result with tables, coloured when the writer is a
// terminal.
func RenderResult(out io.Writer, result domain.AnalysisResult, colorize bool) {
	if result.IsEmergency() {
		fmt.Fprintln(out, paint("!! Seek emergency care now. Call your local emergency number.", ansiRed, colorize))
		fmt.Fprintln(out)
	}

	risk := titleCaser.String(string(result.RiskLevel))
	fmt.Fprintf(out, "%s %s (%s)\n",
		paint("Risk level:", ansiBlue, colorize),
		paint(risk, riskColor(result.RiskLevel), colorize),
		result.RiskLevel.Description())
	if advice := result.Urgency.Advice(); advice != "" {
		fmt.Fprintf(out, "%s %s\n", paint("Urgency:", ansiBlue, colorize), advice)
	}
	if result.RecommendedSpecialist != "" {
		fmt.Fprintf(out, "%s %s\n", paint("Specialist:", ansiBlue, colorize), result.RecommendedSpecialist.Department())
	}

	for _, section := range []struct {
		title string
		items []domain.Item
	}{
		{"Probable causes", result.ProbableCauses},
		{"Precautions", result.Precautions},
		{"Home remedies", result.HomeRemedies},
	} {
		fmt.Fprintln(out)
		fmt.Fprintln(out, paint("== "+section.title+" ==", ansiBlue, colorize))
		if len(section.items) == 0 {
			fmt.Fprintln(out, "  (none)")
			continue
		}
		fmt.Fprintln(out, renderItemsTable(section.items))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, disclaimer)
}

// RenderJSON writes result as indented JSON.
func RenderJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func renderItemsTable(items []domain.Item) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), item.Title, item.Description})
	}
	return renderTable([]string{"#", "Title", "Details"}, rows, []text.Align{text.AlignRight, text.AlignLeft, text.AlignLeft})
}

func renderHistoryTable(records []domain.HistoryRecord, now time.Time) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			shortID(rec.ID),
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			titleCaser.String(string(rec.Result.RiskLevel)),
			truncate(rec.Result.Symptoms, symptomsColumn),
		})
	}
	return renderTable([]string{"ID", "When", "Risk", "Symptoms"}, rows, nil)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func renderStatusLine(check domain.HealthCheck, colorize bool) string {
	label := strings.ToUpper(string(check.Status))
	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, check.Name+":", label, check.Details)
	return paint(line, statusColor(check.Status), colorize)
}

func statusColor(status domain.HealthStatus) string {
	switch status {
	case domain.HealthOK:
		return ansiGreen
	case domain.HealthWarn:
		return ansiYellow
	case domain.HealthError:
		return ansiRed
	default:
		return ""
	}
}

func riskColor(level domain.RiskLevel) string {
	switch level {
	case domain.RiskHigh:
		return ansiRed
	case domain.RiskModerate:
		return ansiYellow
	case domain.RiskLow:
		return ansiGreen
	default:
		return ""
	}
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}
