package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urizennnn/gh-activity/activity"
)

const barWidth = 30

// Render prints the report as aligned plain-text tables.
func Render(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Records\t%d\n", r.Total)
	if !r.First.IsZero() {
		fmt.Fprintf(tw, "Span\t%s → %s\n", r.First.Format(activity.DateLayout), r.Last.Format(activity.DateLayout))
	}
	fmt.Fprintf(tw, "Active days\t%d\n", r.ActiveDays)
	fmt.Fprintf(tw, "Current streak\t%d\n", r.CurrentStreak)
	fmt.Fprintf(tw, "Longest streak\t%d\n", r.LongestStreak)
	if r.Undated > 0 {
		fmt.Fprintf(tw, "Undated\t%d\n", r.Undated)
	}

	section(tw, "By kind", r.ByKind, false)
	section(tw, "By organization", r.ByOrg, false)
	section(tw, "Top repositories", r.TopRepos, false)
	section(tw, "By month", r.ByMonth, true)

	return tw.Flush()
}

func section(w io.Writer, title string, rows []Count, bars bool) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\t\n", title)

	peak := 0
	for _, c := range rows {
		if c.N > peak {
			peak = c.N
		}
	}
	for _, c := range rows {
		if bars && peak > 0 {
			fmt.Fprintf(w, "  %s\t%d\t%s\n", c.Name, c.N, strings.Repeat("█", c.N*barWidth/peak))
			continue
		}
		fmt.Fprintf(w, "  %s\t%d\n", c.Name, c.N)
	}
}
