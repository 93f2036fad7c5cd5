package github

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/gh-activity/activity"
	"golang.org/x/sync/errgroup"
)

const (
	// searchCap is the most results the Search API returns for one query.
	searchCap = 1000
	maxPages  = searchCap / perPage
)

// Searcher is the subset of Client the Exporter needs.
type Searcher interface {
	SearchIssues(ctx context.Context, q string, page int) (IssuePage, error)
	SearchCommits(ctx context.Context, q string, page int) (CommitPage, error)
}

// ProgressFunc is called after each query finishes. done counts finished
// queries across all orgs.
type ProgressFunc func(org string, kind activity.Kind, done, total int)

type Exporter struct {
	search      Searcher
	concurrency int
	progress    ProgressFunc
	log         *logrus.Entry

	mu   sync.Mutex
	done int
}

func NewExporter(s Searcher, concurrency int, progress ProgressFunc) *Exporter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Exporter{
		search:      s,
		concurrency: concurrency,
		progress:    progress,
		log:         logrus.WithField("component", "exporter"),
	}
}

// Run collects every query for every org. Orgs are fetched in parallel but
// the result keeps org order, then query order, then API order, with
// duplicates removed.
func (e *Exporter) Run(ctx context.Context, login string, orgs []string, r activity.Range) ([]activity.Record, error) {
	perOrg := make([][]activity.Record, len(orgs))
	total := len(orgs) * len(Queries)

	e.mu.Lock()
	e.done = 0
	e.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, org := range orgs {
		g.Go(func() error {
			for _, q := range Queries {
				recs, err := e.collect(ctx, org, login, q, r)
				if err != nil {
					return err
				}
				perOrg[i] = append(perOrg[i], recs...)
				e.advance(org, q.Kind, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := activity.NewCollector()
	for _, recs := range perOrg {
		c.AddAll(recs)
	}
	return c.Records(), nil
}

func (e *Exporter) advance(org string, kind activity.Kind, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.done++
	if e.progress != nil {
		e.progress(org, kind, e.done, total)
	}
}

// collect pages through one query over r. When the query matches more than
// the search cap, r is halved and each half is collected on its own.
func (e *Exporter) collect(ctx context.Context, org, login string, q Query, r activity.Range) ([]activity.Record, error) {
	query := q.Build(org, login, r)
	log := e.log.WithFields(logrus.Fields{"org": org, "kind": q.Kind, "window": r.String()})

	recs, total, next, err := e.page(ctx, org, q, query, 1)
	if err != nil {
		return nil, err
	}

	if total > searchCap {
		left, right, err := r.Split()
		if err == nil {
			log.WithField("total", total).Debug("window over search cap, splitting")
			a, err := e.collect(ctx, org, login, q, left)
			if err != nil {
				return nil, err
			}
			b, err := e.collect(ctx, org, login, q, right)
			if err != nil {
				return nil, err
			}
			return append(a, b...), nil
		}
		if !errors.Is(err, activity.ErrSingleDay) {
			return nil, err
		}
		log.WithField("total", total).Warnf("more than %d results in a single day, output is truncated", searchCap)
	}

	for page := 2; next != 0 && page <= maxPages; page++ {
		log.WithField("page", next).Debug("fetching next page")
		more, _, n, err := e.page(ctx, org, q, query, next)
		if err != nil {
			return nil, err
		}
		recs = append(recs, more...)
		next = n
	}
	return recs, nil
}

func (e *Exporter) page(ctx context.Context, org string, q Query, query string, page int) ([]activity.Record, int, int, error) {
	if q.endpoint == searchCommits {
		p, err := e.search.SearchCommits(ctx, query, page)
		if err != nil {
			return nil, 0, 0, err
		}
		recs := make([]activity.Record, 0, len(p.Items))
		for _, it := range p.Items {
			recs = append(recs, CommitRecord(org, it))
		}
		return recs, p.Total, p.NextPage, nil
	}

	p, err := e.search.SearchIssues(ctx, query, page)
	if err != nil {
		return nil, 0, 0, err
	}
	recs := make([]activity.Record, 0, len(p.Items))
	for _, it := range p.Items {
		recs = append(recs, IssueRecord(q.Kind, org, it))
	}
	return recs, p.Total, p.NextPage, nil
}

func IssueRecord(kind activity.Kind, org string, it *github.Issue) activity.Record {
	return activity.Record{
		Kind:      kind,
		Org:       org,
		Repo:      RepoFromURL(it.GetRepositoryURL()),
		Number:    it.GetNumber(),
		Title:     it.GetTitle(),
		State:     it.GetState(),
		URL:       it.GetHTMLURL(),
		CreatedAt: activity.TimePtr(it.GetCreatedAt().Time),
		UpdatedAt: activity.TimePtr(it.GetUpdatedAt().Time),
		ClosedAt:  activity.TimePtr(it.GetClosedAt().Time),
	}
}

func CommitRecord(org string, it *github.CommitResult) activity.Record {
	commit := it.GetCommit()
	return activity.Record{
		Kind:       activity.KindCommits,
		Org:        org,
		Repo:       it.GetRepository().GetFullName(),
		SHA:        it.GetSHA(),
		Message:    activity.FirstLine(commit.GetMessage()),
		URL:        it.GetHTMLURL(),
		AuthorDate: activity.TimePtr(commit.GetAuthor().GetDate().Time),
	}
}

// RepoFromURL turns https://api.github.com/repos/OWNER/REPO into OWNER/REPO.
// Anything else is returned as is.
func RepoFromURL(repositoryURL string) string {
	parts := strings.Split(strings.TrimRight(repositoryURL, "/"), "/repos/")
	if len(parts) == 2 {
		return parts[1]
	}
	return repositoryURL
}

// SelectOrgs keeps the memberships named in wanted, in membership order.
// An empty wanted keeps everything.
func SelectOrgs(memberships, wanted []string) []string {
	if len(wanted) == 0 {
		return memberships
	}
	set := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		set[strings.ToLower(w)] = struct{}{}
	}
	var out []string
	for _, m := range memberships {
		if _, ok := set[strings.ToLower(m)]; ok {
			out = append(out, m)
		}
	}
	return out
}
