package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/jferrl/go-githubauth"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/gh-activity/ratelimit"
	"golang.org/x/oauth2"
)

const (
	userAgent = "gh-activity-exporter"
	perPage   = 100

	// resetSlack is added on top of X-RateLimit-Reset before retrying.
	resetSlack = 5 * time.Second
	// secondaryWait is used when a secondary limit comes without Retry-After.
	secondaryWait = 60 * time.Second
)

// NewTokenClient authenticates with a personal access token.
func NewTokenClient(ctx context.Context, token string, opts Options) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return New(oauth2.NewClient(ctx, ts), opts)
}

// NewAppClient authenticates as a GitHub App installation.
func NewAppClient(ctx context.Context, privateKey []byte, clientID string, installationID int64, opts Options) (*Client, error) {
	appTokenSource, err := githubauth.NewApplicationTokenSource(clientID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("github app token source: %w", err)
	}
	installationTokenSource := githubauth.NewInstallationTokenSource(installationID, appTokenSource)
	return New(oauth2.NewClient(ctx, installationTokenSource), opts)
}

func New(hc *http.Client, opts Options) (*Client, error) {
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = opts.BackoffMin
	}

	gh := github.NewClient(hc)
	gh.UserAgent = userAgent
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:      gh,
		limiter: opts.Limiter,
		cache:   opts.Cache,
		opts:    opts,
		log:     logrus.WithField("component", "github"),
		sleep:   sleepCtx,
		now:     time.Now,
	}, nil
}

// Me returns the login of the authenticated user.
func (c *Client) Me(ctx context.Context) (string, error) {
	if v, ok := c.cached("me"); ok {
		return v.(string), nil
	}
	user, _, err := call(ctx, c, bucketCore, "GET /user", func(ctx context.Context) (*github.User, *github.Response, error) {
		return c.gh.Users.Get(ctx, "")
	})
	if err != nil {
		return "", err
	}
	login := user.GetLogin()
	if login == "" {
		return "", errors.New("GET /user: response has no login")
	}
	c.store("me", login)
	return login, nil
}

// Orgs lists the logins of organizations the user is an active member of.
func (c *Client) Orgs(ctx context.Context) ([]string, error) {
	if v, ok := c.cached("orgs"); ok {
		return v.([]string), nil
	}

	opts := &github.ListOrgMembershipsOptions{
		State:       "active",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var orgs []string
	for {
		memberships, resp, err := call(ctx, c, bucketCore, "GET /user/memberships/orgs", func(ctx context.Context) ([]*github.Membership, *github.Response, error) {
			return c.gh.Organizations.ListOrgMemberships(ctx, opts)
		})
		if err != nil {
			return nil, err
		}
		for _, m := range memberships {
			if login := m.GetOrganization().GetLogin(); login != "" {
				orgs = append(orgs, login)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.store("orgs", orgs)
	return orgs, nil
}

func (c *Client) SearchIssues(ctx context.Context, q string, page int) (IssuePage, error) {
	key := "issues|" + q + "|" + strconv.Itoa(page)
	if v, ok := c.cached(key); ok {
		return v.(IssuePage), nil
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: perPage, Page: page}}
	res, resp, err := call(ctx, c, bucketSearch, "GET /search/issues", func(ctx context.Context) (*github.IssuesSearchResult, *github.Response, error) {
		return c.gh.Search.Issues(ctx, q, opts)
	})
	if err != nil {
		return IssuePage{}, err
	}

	out := IssuePage{
		Items:      res.Issues,
		Total:      res.GetTotal(),
		Incomplete: res.GetIncompleteResults(),
		NextPage:   nextPage(resp),
	}
	c.store(key, out)
	return out, nil
}

func (c *Client) SearchCommits(ctx context.Context, q string, page int) (CommitPage, error) {
	key := "commits|" + q + "|" + strconv.Itoa(page)
	if v, ok := c.cached(key); ok {
		return v.(CommitPage), nil
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: perPage, Page: page}}
	res, resp, err := call(ctx, c, bucketSearch, "GET /search/commits", func(ctx context.Context) (*github.CommitsSearchResult, *github.Response, error) {
		return c.gh.Search.Commits(ctx, q, opts)
	})
	if err != nil {
		return CommitPage{}, err
	}

	out := CommitPage{
		Items:      res.Commits,
		Total:      res.GetTotal(),
		Incomplete: res.GetIncompleteResults(),
		NextPage:   nextPage(resp),
	}
	c.store(key, out)
	return out, nil
}

// call runs fn until it succeeds, sleeping through rate limits and retrying
// network failures up to MaxRetries times. Other API errors are classified
// and returned at once.
func call[T any](ctx context.Context, c *Client, b bucket, endpoint string, fn func(context.Context) (T, *github.Response, error)) (T, *github.Response, error) {
	var zero T
	backoff := c.opts.BackoffMin
	failures := 0

	for {
		if err := c.wait(ctx, b); err != nil {
			return zero, nil, err
		}

		v, resp, err := fn(ctx)
		if err == nil {
			return v, resp, nil
		}
		if ctx.Err() != nil {
			return zero, resp, ctx.Err()
		}

		var rle *github.RateLimitError
		var abuse *github.AbuseRateLimitError
		switch {
		case errors.As(err, &rle):
			d := rle.Rate.Reset.Sub(c.now())
			if d < 0 {
				d = 0
			}
			d += resetSlack
			c.log.WithFields(logrus.Fields{"endpoint": endpoint, "sleep": d.Round(time.Second)}).
				Warn("rate limit hit, waiting for reset")
			if err := c.sleep(ctx, d); err != nil {
				return zero, resp, err
			}
			continue
		case errors.As(err, &abuse):
			d := abuse.GetRetryAfter()
			if d <= 0 {
				d = secondaryWait
			}
			c.log.WithFields(logrus.Fields{"endpoint": endpoint, "sleep": d.Round(time.Second)}).
				Warn("secondary rate limit hit, backing off")
			if err := c.sleep(ctx, d); err != nil {
				return zero, resp, err
			}
			continue
		}
		if d, ok := tooManyRequests(err, c.now()); ok {
			c.log.WithFields(logrus.Fields{"endpoint": endpoint, "sleep": d.Round(time.Second)}).
				Warn("too many requests, backing off")
			if err := c.sleep(ctx, d); err != nil {
				return zero, resp, err
			}
			continue
		}

		if !transient(err) {
			return zero, resp, classify(endpoint, err)
		}
		failures++
		if failures > c.opts.MaxRetries {
			return zero, resp, fmt.Errorf("%s: giving up after %d attempts: %w", endpoint, failures, err)
		}
		c.log.WithFields(logrus.Fields{"endpoint": endpoint, "sleep": backoff, "attempt": failures}).
			Warnf("request failed, retrying: %v", err)
		if err := c.sleep(ctx, backoff); err != nil {
			return zero, resp, err
		}
		backoff *= 2
		if backoff > c.opts.BackoffMax {
			backoff = c.opts.BackoffMax
		}
	}
}

func (c *Client) wait(ctx context.Context, b bucket) error {
	if b == bucketSearch {
		return c.limiter.WaitSearch(ctx)
	}
	return c.limiter.WaitCore(ctx)
}

func (c *Client) cached(key string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) store(key string, v any) {
	if c.cache != nil {
		c.cache.Set(key, v)
	}
}

func nextPage(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.NextPage
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
