package contract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/defectset/schema"
)

// ParseCommitLog parses output produced with commitLogFormat.
func ParseCommitLog(out []byte) ([]schema.Commit, error) {
	var commits []schema.Commit
	for record := range strings.SplitSeq(string(out), recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed commit record %q", truncateRecord(record))
		}
		when, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid date for commit %s: %w", fields[0], err)
		}
		commits = append(commits, schema.Commit{
			ID:        strings.TrimSpace(fields[0]),
			Author:    fields[1],
			Time:      when,
			ParentIDs: strings.Fields(fields[3]),
			Message:   strings.TrimSpace(fields[4]),
		})
	}
	return commits, nil
}

// ParseNumstat parses `git diff --numstat` output.
// Binary files report "-" for both counts, which is read as zero.
func ParseNumstat(out []byte) ([]schema.FileChange, error) {
	var changes []schema.FileChange
	for line := range strings.SplitSeq(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed numstat line %q", line)
		}
		added, err := parseChurnValue(parts[0])
		if err != nil {
			return nil, err
		}
		deleted, err := parseChurnValue(parts[1])
		if err != nil {
			return nil, err
		}
		changes = append(changes, schema.FileChange{Path: parts[2], Added: added, Deleted: deleted})
	}
	return changes, nil
}

func parseChurnValue(s string) (int, error) {
	if s == "-" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid line count %q: %w", s, err)
	}
	return v, nil
}

func truncateRecord(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
