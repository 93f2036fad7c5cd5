package github

import (
	"fmt"

	"github.com/urizennnn/gh-activity/activity"
)

type endpoint int

const (
	searchIssues endpoint = iota
	searchCommits
)

// Query is one search run per organization.
type Query struct {
	Kind     activity.Kind
	endpoint endpoint
	format   string
}

// Queries are issued in this order for every organization. Each format takes
// org, login and the date range. "updated" stands in for reviewed_at and
// commented_at, which search does not expose.
var Queries = []Query{
	{Kind: activity.KindPRsOpened, endpoint: searchIssues, format: "org:%s type:pr author:%s created:%s"},
	{Kind: activity.KindPRsMerged, endpoint: searchIssues, format: "org:%s type:pr author:%s is:merged merged:%s"},
	{Kind: activity.KindPRsReviewed, endpoint: searchIssues, format: "org:%s type:pr reviewed-by:%s updated:%s"},
	{Kind: activity.KindPRsCommented, endpoint: searchIssues, format: "org:%s type:pr commenter:%s updated:%s"},
	{Kind: activity.KindIssuesOpened, endpoint: searchIssues, format: "org:%s type:issue author:%s created:%s"},
	{Kind: activity.KindInvolvesMe, endpoint: searchIssues, format: "org:%s involves:%s updated:%s"},
	{Kind: activity.KindCommits, endpoint: searchCommits, format: "org:%s author:%s committer-date:%s"},
}

func (q Query) Build(org, login string, r activity.Range) string {
	return fmt.Sprintf(q.format, org, login, r.String())
}
