package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urizennnn/gh-activity/activity"
)

func testRange() activity.Range {
	return activity.Range{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func testRecords() []activity.Record {
	return []activity.Record{
		{Kind: activity.KindCommits, Org: "acme", Repo: "acme/web", SHA: "1", Message: "fix: header"},
		{Kind: activity.KindPRsMerged, Org: "acme", Repo: "acme/api", Number: 4, Title: "Add export"},
		{Kind: activity.KindPRsReviewed, Org: "acme", Repo: "acme/api", Number: 5},
		{Kind: activity.KindIssuesOpened, Org: "acme", Repo: "acme/api", Number: 6, Title: "Slow search"},
		{Kind: activity.KindCommits, Org: "acme", Repo: "acme/api", SHA: "2", Message: "feat: csv"},
	}
}

func TestBuildJob(t *testing.T) {
	job := BuildJob("octocat", testRange(), testRecords())

	assert.Equal(t, "octocat", job.Handle)
	assert.Equal(t, 2, job.Counts["commits"])
	assert.Equal(t, 1, job.Counts["prs_merged"])

	require.Len(t, job.Repos, 2)
	api := job.Repos[0]
	assert.Equal(t, "acme/api", api.Repo)
	assert.Equal(t, []string{"feat: csv"}, api.Commits)
	assert.Equal(t, []string{"#4 Add export (prs_merged)"}, api.PRs)
	assert.Equal(t, []string{"#6 Slow search"}, api.Issues)
	assert.Equal(t, 1, api.Reviews)
	assert.Equal(t, "acme/web", job.Repos[1].Repo)
}

func TestBuildJobCapsItems(t *testing.T) {
	var recs []activity.Record
	for i := 0; i < maxItemsPerRepo+20; i++ {
		recs = append(recs, activity.Record{Kind: activity.KindCommits, Repo: "acme/api", Message: "wip"})
	}
	job := BuildJob("octocat", testRange(), recs)
	assert.Len(t, job.Repos[0].Commits, maxItemsPerRepo)
	assert.Equal(t, maxItemsPerRepo+20, job.Counts["commits"])
}

func chatServer(t *testing.T, arguments string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"role":    "assistant",
					"content": nil,
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      toolName,
							"arguments": arguments,
						},
					}},
				},
			}},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarize(t *testing.T) {
	args := `{"headline":"Shipped CSV export","highlights":["csv export"],"per_repo":[{"repo":"acme/api","commits":1,"prs":1,"issues":1,"notes":"export work"}]}`
	srv := chatServer(t, args)

	s := NewSummarizer("sk-test", "gpt-4o", nil, option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	res, err := s.Summarize(context.Background(), BuildJob("octocat", testRange(), testRecords()))
	require.NoError(t, err)

	assert.Equal(t, "Shipped CSV export", res.Summary.Headline)
	require.Len(t, res.Summary.PerRepo, 1)
	assert.Equal(t, "acme/api", res.Summary.PerRepo[0].Repo)
	assert.EqualValues(t, 120, res.Details.TotalTokens)
	assert.Equal(t, "gpt-4o", res.Details.Model)
}

func TestSummarizeRejectsEmpty(t *testing.T) {
	srv := chatServer(t, `{"headline":"","highlights":[],"per_repo":[]}`)
	s := NewSummarizer("sk-test", "gpt-4o", nil, option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	_, err := s.Summarize(context.Background(), SummarizeJob{Handle: "octocat"})
	assert.Error(t, err)
}
