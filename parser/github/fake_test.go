package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGitHub serves canned search results. Handlers are keyed by path and
// can fail the first N calls to exercise the retry loop.
type fakeGitHub struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	handlers map[string]http.HandlerFunc
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{t: t, handlers: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		h, ok := f.handlers[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitHub) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeGitHub) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, r := range f.requests {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeGitHub) queries(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		if r.URL.Path == path {
			out = append(out, r.URL.Query().Get("q"))
		}
	}
	return out
}

// client returns a Client pointed at the fake with sleeps recorded instead
// of taken.
func (f *fakeGitHub) client(opts Options) (*Client, *[]time.Duration) {
	opts.BaseURL = f.srv.URL + "/"
	c, err := New(f.srv.Client(), opts)
	require.NoError(f.t, err)

	var slept []time.Duration
	var mu sync.Mutex
	c.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

// link writes a Link header pointing at page next of the same request.
func (f *fakeGitHub) link(w http.ResponseWriter, r *http.Request, next int) {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(next))
	w.Header().Set("Link", fmt.Sprintf(`<%s%s?%s>; rel="next"`, f.srv.URL, r.URL.Path, q.Encode()))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

type searchIssue struct {
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	State         string  `json:"state"`
	HTMLURL       string  `json:"html_url"`
	RepositoryURL string  `json:"repository_url"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	ClosedAt      *string `json:"closed_at"`
}

func issue(repo string, n int) searchIssue {
	return searchIssue{
		Number:        n,
		Title:         fmt.Sprintf("change %d", n),
		State:         "open",
		HTMLURL:       fmt.Sprintf("https://github.com/%s/pull/%d", repo, n),
		RepositoryURL: "https://api.github.com/repos/" + repo,
		CreatedAt:     "2024-02-01T10:00:00Z",
		UpdatedAt:     "2024-02-02T10:00:00Z",
	}
}

func issueResults(total int, items ...searchIssue) map[string]any {
	if items == nil {
		items = []searchIssue{}
	}
	return map[string]any{"total_count": total, "incomplete_results": false, "items": items}
}
