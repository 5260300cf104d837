package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteBuildResults outputs a dataset build summary, dispatching on the configured output format.
func WriteBuildResults(summary schema.BuildSummary, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBuildCSV(w, summary, fmtFloat)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBuildTable(w, summary, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

func buggyPercent(r schema.ReleaseSummary) float64 {
	if r.Files == 0 {
		return 0
	}
	return float64(r.BuggyFiles) / float64(r.Files) * 100
}

func writeBuildCSV(w io.Writer, summary schema.BuildSummary, fmtFloat func(float64) string) error {
	header := []string{"index", "name", "commits", "files", "buggy_files", "buggy_percent", "retained"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range summary.PerRelease {
			rec := []string{
				strconv.Itoa(r.Index),
				r.Name,
				strconv.Itoa(r.Commits),
				strconv.Itoa(r.Files),
				strconv.Itoa(r.BuggyFiles),
				fmtFloat(buggyPercent(r)),
				strconv.FormatBool(r.Retained),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeBuildTable(w io.Writer, summary schema.BuildSummary, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Index", "Release", "Commits", "Files", "Buggy", "Buggy %"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range summary.PerRelease {
		data = append(data, []string{
			strconv.Itoa(r.Index),
			r.Name,
			humanize.Comma(int64(r.Commits)),
			humanize.Comma(int64(r.Files)),
			humanize.Comma(int64(r.BuggyFiles)),
			fmtFloat(buggyPercent(r)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	lines := []string{
		fmt.Sprintf("%s: %d releases, %d retained, %d walk-forward iterations",
			summary.Project, summary.Releases, summary.RetainedReleases, summary.Iterations),
		fmt.Sprintf("Tickets: %d resolved, %d adjusted, discarded %s",
			summary.Tickets, summary.AdjustedTickets, formatDiscarded(summary.Discarded, cfg.UseColors)),
		fmt.Sprintf("Proportion: %s from %s", fmtFloat(summary.Proportion), sourceLabel(summary.ProportionSource)),
	}
	if summary.Evaluations > 0 {
		lines = append(lines, fmt.Sprintf("Evaluation records: %d", summary.Evaluations))
	}
	if len(summary.Files) > 0 {
		lines = append(lines, "Dataset files:")
	}
	width := getMaxTextWidth(cfg, len("  - "))
	for _, f := range summary.Files {
		lines = append(lines, "  - "+contract.TruncatePath(f, width))
	}
	lines = append(lines, fmt.Sprintf("Build completed in %v with %d workers. Cache backend: %s",
		duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend))

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
