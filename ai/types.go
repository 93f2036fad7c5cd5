package ai

import "time"

// RepoActivity is the per-repository digest sent to the model.
type RepoActivity struct {
	Repo    string   `json:"repo"`
	Org     string   `json:"org"`
	Commits []string `json:"commits,omitempty"`
	PRs     []string `json:"prs,omitempty"`
	Issues  []string `json:"issues,omitempty"`
	Reviews int      `json:"reviews"`
}

type SummarizeJob struct {
	Handle string         `json:"handle"`
	Since  time.Time      `json:"since"`
	Until  time.Time      `json:"until"`
	Counts map[string]int `json:"counts"`
	Repos  []RepoActivity `json:"repos"`
}

type RepoSummary struct {
	Repo    string `json:"repo"`
	Commits int    `json:"commits"`
	PRs     int    `json:"prs"`
	Issues  int    `json:"issues"`
	Notes   string `json:"notes"`
}

type Summary struct {
	Headline   string        `json:"headline"`
	Highlights []string      `json:"highlights"`
	PerRepo    []RepoSummary `json:"per_repo"`
}

type UsageDetails struct {
	Model            string `json:"model"`
	PromptTokens     int64  `json:"promptTokens"`
	CompletionTokens int64  `json:"completionTokens"`
	TotalTokens      int64  `json:"totalTokens"`
}

type SummarizeResult struct {
	Summary Summary      `json:"summary"`
	Details UsageDetails `json:"details"`
}
