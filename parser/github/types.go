package github

import (
	"context"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/gh-activity/cache"
	"github.com/urizennnn/gh-activity/ratelimit"
)

type Client struct {
	gh      *github.Client
	limiter *ratelimit.Limiter
	cache   *cache.Cache[any]
	opts    Options
	log     *logrus.Entry

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

type Options struct {
	// BaseURL points at the REST API root, with a trailing slash. Empty
	// means api.github.com.
	BaseURL string
	Timeout time.Duration

	Limiter *ratelimit.Limiter
	Cache   *cache.Cache[any]

	BackoffMin time.Duration
	BackoffMax time.Duration
	MaxRetries int
}

// IssuePage is one page of /search/issues.
type IssuePage struct {
	Items      []*github.Issue
	Total      int
	Incomplete bool
	NextPage   int
}

// CommitPage is one page of /search/commits.
type CommitPage struct {
	Items      []*github.CommitResult
	Total      int
	Incomplete bool
	NextPage   int
}

type bucket int

const (
	bucketCore bucket = iota
	bucketSearch
)
