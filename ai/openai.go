package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/gh-activity/activity"
	"github.com/urizennnn/gh-activity/ratelimit"
)

const (
	toolName = "emit_activity_summary"

	// maxItemsPerRepo bounds the prompt for very busy repositories.
	maxItemsPerRepo = 50
)

type Summarizer struct {
	client  openai.Client
	model   string
	limiter *ratelimit.Limiter
}

func NewSummarizer(apiKey, model string, limiter *ratelimit.Limiter, opts ...option.RequestOption) *Summarizer {
	if limiter == nil {
		limiter = ratelimit.Unlimited()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Summarizer{
		client:  openai.NewClient(opts...),
		model:   model,
		limiter: limiter,
	}
}

// BuildJob groups records per repository. Repos are ordered by name.
func BuildJob(handle string, r activity.Range, records []activity.Record) SummarizeJob {
	job := SummarizeJob{
		Handle: handle,
		Since:  r.From,
		Until:  r.To,
		Counts: make(map[string]int, len(activity.Kinds)),
	}

	byRepo := make(map[string]*RepoActivity)
	for _, rec := range records {
		job.Counts[string(rec.Kind)]++

		ra, ok := byRepo[rec.Repo]
		if !ok {
			ra = &RepoActivity{Repo: rec.Repo, Org: rec.Org}
			byRepo[rec.Repo] = ra
		}
		switch rec.Kind {
		case activity.KindCommits:
			ra.Commits = appendCapped(ra.Commits, rec.Message)
		case activity.KindPRsOpened, activity.KindPRsMerged:
			ra.PRs = appendCapped(ra.PRs, fmt.Sprintf("#%d %s (%s)", rec.Number, rec.Title, rec.Kind))
		case activity.KindIssuesOpened:
			ra.Issues = appendCapped(ra.Issues, fmt.Sprintf("#%d %s", rec.Number, rec.Title))
		case activity.KindPRsReviewed, activity.KindPRsCommented:
			ra.Reviews++
		}
	}

	for _, ra := range byRepo {
		job.Repos = append(job.Repos, *ra)
	}
	sort.Slice(job.Repos, func(i, j int) bool { return job.Repos[i].Repo < job.Repos[j].Repo })
	return job
}

func appendCapped(list []string, s string) []string {
	if len(list) >= maxItemsPerRepo {
		return list
	}
	return append(list, s)
}

func (s *Summarizer) Summarize(ctx context.Context, job SummarizeJob) (SummarizeResult, error) {
	if err := s.limiter.WaitOpenAI(ctx); err != nil {
		return SummarizeResult{}, err
	}

	sys := `You summarize a developer's GitHub activity. Output ONE function call "emit_activity_summary" with JSON that matches the provided schema.
headline: one sentence covering the whole period. highlights: 3-7 bullets on the most significant work, de-duplicated and aggregated.
per_repo: one entry per repository with counts taken from the payload and a short note on what changed. Stay truthful to the payload.`

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("encode job: %w", err)
	}

	tool := openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
		Name:        toolName,
		Description: openai.String("Return the activity summary in the exact structure the exporter expects."),
		Parameters: openai.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"headline": map[string]any{"type": "string"},
				"highlights": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"per_repo": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"repo":    map[string]any{"type": "string"},
							"commits": map[string]any{"type": "integer"},
							"prs":     map[string]any{"type": "integer"},
							"issues":  map[string]any{"type": "integer"},
							"notes":   map[string]any{"type": "string"},
						},
						"required": []string{"repo", "commits", "prs", "issues", "notes"},
					},
				},
			},
			"required": []string{"headline", "highlights", "per_repo"},
		},
	})

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Seed:  openai.Int(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sys),
			openai.UserMessage(fmt.Sprintf(`{"instruction":"Summarize this activity into the exact structure","payload":%s}`, string(jobJSON))),
		},
		Tools: []openai.ChatCompletionToolUnionParam{tool},
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return SummarizeResult{}, fmt.Errorf("model did not return tool call")
	}

	var out Summary
	var found bool
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name == toolName {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &out); err != nil {
				return SummarizeResult{}, fmt.Errorf("bad tool args: %w", err)
			}
			found = true
			break
		}
	}
	if !found || out.Headline == "" {
		return SummarizeResult{}, fmt.Errorf("empty summary")
	}

	logrus.WithFields(logrus.Fields{
		"handle":     job.Handle,
		"repos":      len(out.PerRepo),
		"highlights": len(out.Highlights),
		"tokens":     resp.Usage.TotalTokens,
	}).Info("summarizer: activity summary ready")

	return SummarizeResult{
		Summary: out,
		Details: UsageDetails{
			Model:            resp.Model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
