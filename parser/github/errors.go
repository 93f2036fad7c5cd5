package github

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/go-github/v74/github"
)

var (
	ErrUnauthorized = errors.New("bad credentials, check GITHUB_TOKEN")
	ErrForbidden    = errors.New("access forbidden, the token may lack the repo or read:org scope")
	ErrNotFound     = errors.New("not found, check the organization name and token access")
	ErrValidation   = errors.New("request rejected by GitHub")
)

// classify maps a go-github error onto one of the sentinels above. Errors
// that do not carry a known status are returned wrapped but unchanged.
func classify(endpoint string, err error) error {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	var sentinel error
	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusUnprocessableEntity:
		sentinel = ErrValidation
	default:
		return fmt.Errorf("%s: unexpected status %d: %w", endpoint, ghErr.Response.StatusCode, err)
	}
	if ghErr.Message != "" {
		return fmt.Errorf("%s: %w (%s)", endpoint, sentinel, ghErr.Message)
	}
	return fmt.Errorf("%s: %w", endpoint, sentinel)
}

// transient reports whether err is worth retrying: network failures and 5xx.
func transient(err error) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response != nil && ghErr.Response.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// tooManyRequests reports how long to wait after a 429, which go-github
// leaves as a plain ErrorResponse. Retry-After wins, then X-RateLimit-Reset
// when the quota is spent, then secondaryWait.
func tooManyRequests(err error, now time.Time) (time.Duration, bool) {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	h := ghErr.Response.Header
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	if h.Get("X-RateLimit-Remaining") == "0" {
		if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil && reset > 0 {
			d := time.Unix(reset, 0).Sub(now)
			if d < 0 {
				d = 0
			}
			return d + resetSlack, true
		}
	}
	return secondaryWait, true
}
