package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteReleaseResults outputs the release catalog, dispatching on the configured output format.
func WriteReleaseResults(project string, releases []schema.Release, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Project  string           `json:"project"`
				Releases []schema.Release `json:"releases"`
			}{project, releases})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReleaseCSV(w, releases)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReleaseTable(w, project, releases)
		}, "Wrote table")
	}
}

func writeReleaseCSV(w io.Writer, releases []schema.Release) error {
	header := []string{"index", "id", "name", "date"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range releases {
			if err := cw.Write([]string{strconv.Itoa(r.Index), r.ID, r.Name, r.Date.Format(contract.DateFormat)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeReleaseTable(w io.Writer, project string, releases []schema.Release) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Index", "Name", "ID", "Date"})

	var data [][]string
	for _, r := range releases {
		data = append(data, []string{strconv.Itoa(r.Index), r.Name, r.ID, r.Date.Format(contract.DateFormat)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s has %d dated releases\n", project, len(releases))
	return err
}
