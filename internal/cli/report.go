package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/service"
	"github.com/daylog/time-tracker/internal/pkg/timecalc"
)

var (
	reportUser   string
	reportDays   int
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print per-category totals for a user's recent days",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportUser, "user", "", "User name to report on")
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "Number of days, today included")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md (Markdown tables), json")
	_ = reportCmd.MarkFlagRequired("user")
}

func runReport(cmd *cobra.Command, _ []string) error {
	if reportFormat != "md" && reportFormat != "json" {
		return fmt.Errorf("unknown format %q (want md or json)", reportFormat)
	}

	ctx := cmd.Context()
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer b.close(log)

	user, err := b.users.FindByName(ctx, reportUser)
	if err != nil {
		return fmt.Errorf("report: %s: %w", reportUser, err)
	}

	categories, _ := cfg.Tracker.CategorySet()
	loc, _ := cfg.Tracker.Location()
	summary := service.NewSummaryService(b.entries, service.SummaryOptions{
		Categories:     categories,
		Location:       loc,
		MaxHistoryDays: cfg.Tracker.MaxHistoryDays,
	})

	history, err := summary.History(ctx, user.ID, reportDays)
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), reportFormat, user.Name, categories.List(), history)
}

type reportCategory struct {
	Category string `json:"category"`
	Seconds  int64  `json:"seconds"`
	Duration string `json:"duration"`
}

type reportDay struct {
	Date         string           `json:"date"`
	Categories   []reportCategory `json:"categories"`
	TotalSeconds int64            `json:"total_seconds"`
}

type reportDoc struct {
	User         string           `json:"user"`
	Days         []reportDay      `json:"days"`
	Totals       []reportCategory `json:"totals"`
	TotalSeconds int64            `json:"total_seconds"`
}

// writeReport renders history in the given format. Categories appear in
// configured order; days keep the newest-first order of history.
func writeReport(w io.Writer, format, user string, categories []domain.Category, history []domain.DailySummary) error {
	doc := buildReport(user, categories, history)

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Report for %s\n", doc.User)
	for _, d := range doc.Days {
		fmt.Fprintf(&sb, "\n## %s\n\n", d.Date)
		writeReportTable(&sb, d.Categories, d.TotalSeconds)
	}
	fmt.Fprint(&sb, "\n## Overall\n\n")
	writeReportTable(&sb, doc.Totals, doc.TotalSeconds)

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeReportTable(sb *strings.Builder, rows []reportCategory, total int64) {
	fmt.Fprintln(sb, "| Category | Duration | HH:MM:SS |")
	fmt.Fprintln(sb, "|---|---:|---:|")
	for _, c := range rows {
		writeReportRow(sb, escapeCell(c.Category), c.Seconds)
	}
	writeReportRow(sb, "**Total**", total)
}

func writeReportRow(sb *strings.Builder, label string, seconds int64) {
	fmt.Fprintf(sb, "| %s | %s | %s |\n", label, timecalc.FormatDuration(seconds), timecalc.FormatHHMMSS(seconds))
}

// escapeCell keeps a configured category name from splitting a table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func buildReport(user string, categories []domain.Category, history []domain.DailySummary) reportDoc {
	doc := reportDoc{User: user, Days: make([]reportDay, 0, len(history))}
	overall := make(domain.CategoryTotals, len(categories))

	for _, d := range history {
		day := reportDay{Date: d.Date, TotalSeconds: d.TotalSeconds}
		for _, c := range categories {
			sec := d.Totals[c]
			if sec == 0 {
				continue
			}
			overall[c] += sec
			day.Categories = append(day.Categories, toReportCategory(c, sec))
		}
		doc.Days = append(doc.Days, day)
	}

	for _, c := range categories {
		if sec := overall[c]; sec > 0 {
			doc.Totals = append(doc.Totals, toReportCategory(c, sec))
		}
	}
	doc.TotalSeconds = overall.Sum()
	return doc
}

func toReportCategory(c domain.Category, seconds int64) reportCategory {
	return reportCategory{Category: string(c), Seconds: seconds, Duration: timecalc.FormatDuration(seconds)}
}
