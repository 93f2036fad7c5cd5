package activity

import "time"

type Kind string

const (
	KindPRsOpened    Kind = "prs_opened"
	KindPRsMerged    Kind = "prs_merged"
	KindPRsReviewed  Kind = "prs_reviewed"
	KindPRsCommented Kind = "prs_commented"
	KindIssuesOpened Kind = "issues_opened"
	KindInvolvesMe   Kind = "involves_me"
	KindCommits      Kind = "commits"
)

// Kinds lists every kind in query order.
var Kinds = []Kind{
	KindPRsOpened,
	KindPRsMerged,
	KindPRsReviewed,
	KindPRsCommented,
	KindIssuesOpened,
	KindInvolvesMe,
	KindCommits,
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Record is one exported activity row. Issue and PR kinds fill Number through
// ClosedAt; commits fill SHA, Message and AuthorDate.
type Record struct {
	Kind       Kind       `json:"kind"`
	Org        string     `json:"org"`
	Repo       string     `json:"repo"`
	Number     int        `json:"number,omitempty"`
	Title      string     `json:"title,omitempty"`
	State      string     `json:"state,omitempty"`
	URL        string     `json:"url,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	SHA        string     `json:"sha,omitempty"`
	Message    string     `json:"message,omitempty"`
	AuthorDate *time.Time `json:"author_date,omitempty"`
}

// Fields is the column order shared by every tabular export.
var Fields = []string{
	"kind",
	"org",
	"repo",
	"number",
	"title",
	"state",
	"url",
	"created_at",
	"updated_at",
	"closed_at",
	"sha",
	"message",
	"author_date",
}
