package report

import (
	"sort"
	"time"

	"github.com/urizennnn/gh-activity/activity"
)

const defaultTopRepos = 10

type Count struct {
	Name string
	N    int
}

type Report struct {
	Total   int
	Undated int

	ByKind   []Count
	ByOrg    []Count
	TopRepos []Count
	ByMonth  []Count

	First, Last   time.Time
	ActiveDays    int
	CurrentStreak int
	LongestStreak int
}

type Options struct {
	// Range, when set, drops records whose timestamp falls outside it.
	// Either bound may be zero to leave that side open.
	Range *activity.Range
	// AsOf anchors the current streak. Defaults to Range.To, then to today.
	AsOf     time.Time
	TopRepos int
}

func Build(records []activity.Record, opts Options) Report {
	if opts.TopRepos <= 0 {
		opts.TopRepos = defaultTopRepos
	}
	asOf := opts.AsOf
	if asOf.IsZero() && opts.Range != nil {
		asOf = opts.Range.To
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	kinds := make(map[activity.Kind]int)
	orgs := make(map[string]int)
	repos := make(map[string]int)
	months := make(map[string]int)
	perDay := make(map[time.Time]int)

	var rep Report
	for _, rec := range records {
		ts := rec.Timestamp()
		if opts.Range != nil && (ts.IsZero() || !opts.Range.Contains(ts)) {
			continue
		}

		rep.Total++
		kinds[rec.Kind]++
		orgs[rec.Org]++
		if rec.Repo != "" {
			repos[rec.Repo]++
		}

		if ts.IsZero() {
			rep.Undated++
			continue
		}
		months[ts.UTC().Format("2006-01")]++
		perDay[activity.Day(ts)]++
		if rep.First.IsZero() || ts.Before(rep.First) {
			rep.First = ts
		}
		if ts.After(rep.Last) {
			rep.Last = ts
		}
	}

	for _, k := range activity.Kinds {
		rep.ByKind = append(rep.ByKind, Count{Name: string(k), N: kinds[k]})
	}
	rep.ByOrg = ranked(orgs, 0)
	rep.TopRepos = ranked(repos, opts.TopRepos)

	for m, n := range months {
		rep.ByMonth = append(rep.ByMonth, Count{Name: m, N: n})
	}
	sort.Slice(rep.ByMonth, func(i, j int) bool { return rep.ByMonth[i].Name < rep.ByMonth[j].Name })

	rep.ActiveDays = len(perDay)
	rep.CurrentStreak, rep.LongestStreak = ComputeStreaks(perDay, asOf)
	return rep
}

// ranked sorts by count descending, then name. limit <= 0 keeps all.
func ranked(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ComputeStreaks returns the run of active days ending at asOf and the
// longest run anywhere.
func ComputeStreaks(contribs map[time.Time]int, asOf time.Time) (int, int) {
	if len(contribs) == 0 {
		return 0, 0
	}

	normalized := make(map[time.Time]int, len(contribs))
	for t, c := range contribs {
		normalized[activity.Day(t)] += c
	}

	var dates []time.Time
	for d := range normalized {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	current := 0
	for d := activity.Day(asOf); normalized[d] > 0; d = d.AddDate(0, 0, -1) {
		current++
	}

	longest := 0
	for _, d := range dates {
		if normalized[d] <= 0 {
			continue
		}
		// only start counting at the first day of a run
		if normalized[d.AddDate(0, 0, -1)] > 0 {
			continue
		}
		length := 0
		for cur := d; normalized[cur] > 0; cur = cur.AddDate(0, 0, 1) {
			length++
		}
		if length > longest {
			longest = length
		}
	}

	return current, longest
}
