package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/urizennnn/gh-activity/activity"
	"github.com/urizennnn/gh-activity/ai"
	"github.com/urizennnn/gh-activity/cache"
	"github.com/urizennnn/gh-activity/config"
	"github.com/urizennnn/gh-activity/export"
	"github.com/urizennnn/gh-activity/parser/github"
	"github.com/urizennnn/gh-activity/ratelimit"
	"github.com/urizennnn/gh-activity/redis"
)

type exportFlags struct {
	from, to  string
	orgs      []string
	out       string
	user      string
	xlsx      bool
	summarize bool
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch commits, PRs and issues and write them to JSON and CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.from, "from", "", "start date (YYYY-MM-DD), default: rolling last 365 days")
	fl.StringVar(&f.to, "to", "", "end date (YYYY-MM-DD), default: today")
	fl.StringArrayVar(&f.orgs, "org", nil, "restrict to specific org(s), can be repeated")
	fl.StringVar(&f.out, "out", "github_activity", "output file prefix")
	fl.StringVar(&f.user, "user", "", "login to search for, default: the authenticated user")
	fl.BoolVar(&f.xlsx, "xlsx", false, "also write an .xlsx workbook")
	fl.BoolVar(&f.summarize, "summarize", false, "write an AI summary next to the export (needs APP_OPENAI_API_KEY)")
	return cmd
}

func (a *app) runExport(ctx context.Context, f exportFlags) error {
	cfg := a.cfg
	if err := cfg.CheckCredentials(); err != nil {
		return &ExitError{Code: 2, Err: errors.New("set GITHUB_TOKEN in your environment.")}
	}
	if f.summarize && cfg.OpenaiApiKey == "" {
		return &ExitError{Code: 2, Err: errors.New("--summarize needs APP_OPENAI_API_KEY in your environment.")}
	}

	r, err := activity.ParseRange(f.from, f.to, time.Now())
	if err != nil {
		return err
	}

	limiter := ratelimit.New(cfg.GithubRateLimit, cfg.GithubCoreRateLimit, cfg.OpenaiRateLimit)
	gh, err := newGithubClient(ctx, cfg, limiter)
	if err != nil {
		return err
	}

	login, orgs, err := resolveScope(ctx, gh, cfg, f)
	if err != nil {
		return err
	}

	printHeader(a.stdout, login, r, orgs)
	if len(orgs) == 0 {
		logrus.Warn("No organizations to process.")
		return nil
	}

	exporter := github.NewExporter(gh, cfg.GithubConcurrency, func(org string, kind activity.Kind, done, total int) {
		logrus.WithFields(logrus.Fields{"org": org, "kind": kind}).Infof("fetched %d/%d", done, total)
	})
	records, err := exporter.Run(ctx, login, orgs, r)
	if err != nil {
		return err
	}

	paths := export.Paths(f.out, r)
	if dir := filepath.Dir(paths.JSON); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := export.WriteFile(paths.JSON, records, export.WriteJSON); err != nil {
		return err
	}
	if err := export.WriteFile(paths.CSV, records, export.WriteCSV); err != nil {
		return err
	}
	written := []string{paths.JSON, paths.CSV}

	if f.xlsx {
		if err := export.WriteXLSX(paths.XLSX, records); err != nil {
			return err
		}
		written = append(written, paths.XLSX)
	}

	if cfg.RedisURL != "" {
		if err := publish(ctx, cfg, records); err != nil {
			return err
		}
	}

	if f.summarize {
		s := ai.NewSummarizer(cfg.OpenaiApiKey, cfg.OpenaiModel, limiter)
		res, err := s.Summarize(ctx, ai.BuildJob(login, r, records))
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		logrus.WithFields(logrus.Fields{"model": res.Details.Model, "tokens": res.Details.TotalTokens}).
			Debug("summary generated")
		if err := writeSummary(paths.Summary, res.Summary); err != nil {
			return err
		}
		written = append(written, paths.Summary)
	}

	fmt.Fprintf(a.stdout, "\n✓ Wrote %d records\n", len(records))
	for _, p := range written {
		fmt.Fprintf(a.stdout, "  • %s\n", p)
	}
	return nil
}

func newGithubClient(ctx context.Context, cfg config.Config, limiter *ratelimit.Limiter) (*github.Client, error) {
	memo, err := cache.New[any](cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	opts := github.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.HTTPClientTimeout,
		Limiter:    limiter,
		Cache:      memo,
		BackoffMin: cfg.BackoffMin,
		BackoffMax: cfg.BackoffMax,
		MaxRetries: cfg.MaxRetries,
	}

	if cfg.GithubToken != "" {
		return github.NewTokenClient(ctx, cfg.GithubToken, opts)
	}
	key, err := cfg.PrivateKey()
	if err != nil {
		return nil, err
	}
	return github.NewAppClient(ctx, key, cfg.GithubAppClientID, cfg.GithubAppInstallationID, opts)
}

// resolveScope settles whose activity to fetch and in which orgs. App
// installations cannot call /user, so they need both values spelled out.
func resolveScope(ctx context.Context, gh *github.Client, cfg config.Config, f exportFlags) (string, []string, error) {
	if cfg.GithubToken == "" {
		if f.user == "" || len(f.orgs) == 0 {
			return "", nil, errors.New("GitHub App auth needs --user and at least one --org")
		}
		return f.user, f.orgs, nil
	}

	login := f.user
	if login == "" {
		me, err := gh.Me(ctx)
		if err != nil {
			return "", nil, err
		}
		login = me
	}

	memberships, err := gh.Orgs(ctx)
	if err != nil {
		return "", nil, err
	}
	orgs := github.SelectOrgs(memberships, f.orgs)
	if len(f.orgs) > 0 && len(orgs) < len(f.orgs) {
		logrus.WithField("requested", strings.Join(f.orgs, ",")).
			Warn("some requested orgs are not among your active memberships")
	}
	return login, orgs, nil
}

func publish(ctx context.Context, cfg config.Config, records []activity.Record) error {
	rdb, err := redis.ConnectToRedisURL(cfg.RedisURL, cfg.RedisConnTimeout)
	if err != nil {
		return err
	}
	defer rdb.Close()

	_, err = redis.NewSink(rdb, cfg.RedisStream, cfg.RedisStreamMaxLen).Publish(ctx, records)
	return err
}

func writeSummary(path string, s ai.Summary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func printHeader(w io.Writer, login string, r activity.Range, orgs []string) {
	orgList := "None found"
	if len(orgs) > 0 {
		orgList = strings.Join(orgs, ", ")
	}
	fmt.Fprintln(w, "GitHub Activity Export")
	fmt.Fprintf(w, "  User:          %s\n", login)
	fmt.Fprintf(w, "  Date range:    %s → %s\n", r.FromString(), r.ToString())
	fmt.Fprintf(w, "  Organizations: %s\n", orgList)
}
