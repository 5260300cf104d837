package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteTicketResults outputs resolved tickets, dispatching on the configured output format.
func WriteTicketResults(report schema.TicketReport, cfg *contract.Config) error {
	fmtFloat := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTicketJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTicketCSV(w, report)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTicketTable(w, report, cfg, fmtFloat)
		}, "Wrote table")
	}
}

type ticketRow struct {
	Key      string `json:"key"`
	Injected string `json:"injected"`
	Opening  string `json:"opening"`
	Fixed    string `json:"fixed"`
	Adjusted bool   `json:"adjusted"`
	Commits  int    `json:"commits"`
	Last     string `json:"last_commit"`
}

func ticketRows(report schema.TicketReport) []ticketRow {
	rows := make([]ticketRow, len(report.Tickets))
	for i, t := range report.Tickets {
		last := ""
		if t.LastCommit != nil {
			last = t.LastCommit.ID
		}
		rows[i] = ticketRow{
			Key:      t.Key,
			Injected: report.ReleaseName(t.InjectedIndex()),
			Opening:  report.ReleaseName(t.Opening),
			Fixed:    report.ReleaseName(t.Fixed),
			Adjusted: t.Adjusted,
			Commits:  len(t.Commits),
			Last:     last,
		}
	}
	return rows
}

func writeTicketJSON(w io.Writer, report schema.TicketReport) error {
	return writeJSON(w, struct {
		Project          string                       `json:"project"`
		Tickets          []ticketRow                  `json:"tickets"`
		Adjusted         int                          `json:"adjusted"`
		Discarded        map[schema.DiscardReason]int `json:"discarded"`
		Proportion       float64                      `json:"proportion"`
		ProportionSource string                       `json:"proportion_source"`
	}{report.Project, ticketRows(report), report.Adjusted, report.Discarded, report.Proportion, report.ProportionSource})
}

func writeTicketCSV(w io.Writer, report schema.TicketReport) error {
	header := []string{"key", "injected", "opening", "fixed", "adjusted", "commits", "last_commit"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range ticketRows(report) {
			rec := []string{r.Key, r.Injected, r.Opening, r.Fixed, strconv.FormatBool(r.Adjusted), strconv.Itoa(r.Commits), r.Last}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeTicketTable(w io.Writer, report schema.TicketReport, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Key", "Injected", "Opening", "Fixed", "Adjusted", "Commits"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range ticketRows(report) {
		adjusted := ""
		if r.Adjusted {
			adjusted = "✓"
		}
		data = append(data, []string{r.Key, r.Injected, r.Opening, r.Fixed, adjusted, strconv.Itoa(r.Commits)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Resolved %d tickets (%d adjusted), proportion %s from %s\n",
		len(report.Tickets), report.Adjusted, fmtFloat(report.Proportion), sourceLabel(report.ProportionSource)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Discarded: %s\n", formatDiscarded(report.Discarded, cfg.UseColors))
	return err
}

func sourceLabel(source string) string {
	if source == "" {
		return "no estimate"
	}
	return strings.ReplaceAll(source, "_", " ")
}

// formatDiscarded renders discard counts in a stable reason order.
func formatDiscarded(discarded map[schema.DiscardReason]int, useColors bool) string {
	parts := make([]string, 0, len(schema.AllDiscardReasons))
	total := 0
	for _, reason := range schema.AllDiscardReasons {
		n := discarded[reason]
		total += n
		parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
	}
	out := fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
	if useColors && total > 0 {
		return contract.DiscardColor.Sprint(out)
	}
	return out
}
