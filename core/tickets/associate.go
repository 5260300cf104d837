package tickets

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/defectset/core/catalog"
	"github.com/huangsam/defectset/schema"
)

// KeyPattern returns the pattern matching a ticket key in a commit message.
func KeyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(key) + `\b`)
}

// Associate links every ticket to the commits whose message mentions its key.
// With window set, only commits dated between the injected and fixed releases are kept.
// Tickets without commits are dropped and counted in res.
func Associate(res *Resolution, commits []schema.Commit, cat *catalog.Catalog, window bool) {
	sorted := make([]schema.Commit, len(commits))
	copy(sorted, commits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	kept := res.Tickets[:0]
	for _, t := range res.Tickets {
		t.Commits = matchCommits(t, sorted, cat, window)
		if len(t.Commits) == 0 {
			t.LastCommit = nil
			res.Discard(schema.DiscardNoCommits)
			continue
		}
		last := t.Commits[len(t.Commits)-1]
		t.LastCommit = &last
		kept = append(kept, t)
	}
	res.Tickets = kept
}

func matchCommits(t *schema.Ticket, sorted []schema.Commit, cat *catalog.Catalog, window bool) []schema.Commit {
	pattern := KeyPattern(t.Key)
	lo, hi, bounded := windowOf(t, cat)

	var out []schema.Commit
	for _, c := range sorted {
		if !strings.Contains(c.Message, t.Key) || !pattern.MatchString(c.Message) {
			continue
		}
		if window && bounded {
			d := catalog.DayOf(c.Time)
			if d.Before(lo) || d.After(hi) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// windowOf returns the dates of the injected and fixed releases of t.
func windowOf(t *schema.Ticket, cat *catalog.Catalog) (lo, hi time.Time, ok bool) {
	if t.Injected == nil {
		return time.Time{}, time.Time{}, false
	}
	iv, okIV := cat.ReleaseByIndex(*t.Injected)
	fv, okFV := cat.ReleaseByIndex(t.Fixed)
	return iv.Date, fv.Date, okIV && okFV
}
