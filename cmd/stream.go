package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/urizennnn/gh-activity/activity"
	"github.com/urizennnn/gh-activity/redis"
)

func newStreamCmd(a *app) *cobra.Command {
	var group, consumer string
	var block time.Duration

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Follow records published to the Redis stream by export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cfg.RedisURL == "" {
				return &ExitError{Code: 2, Err: errors.New("set APP_REDIS_URL in your environment.")}
			}
			ctx := cmd.Context()

			rdb, err := redis.ConnectToRedisURL(cfg.RedisURL, cfg.RedisConnTimeout)
			if err != nil {
				return err
			}
			defer rdb.Close()

			if err := redis.EnsureGroup(ctx, rdb, cfg.RedisStream, group); err != nil {
				return err
			}
			err = redis.WatchStreams(ctx, rdb, cfg.RedisStream, group, consumer, block, func(r activity.Record) error {
				title := r.Title
				if r.Kind == activity.KindCommits {
					title = r.Message
				}
				_, err := fmt.Fprintf(a.stdout, "%s\t%s\t%s\t%s\n", r.Kind, r.Repo, title, r.URL)
				return err
			})
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("watch %s: %w", cfg.RedisStream, err)
			}
			return nil
		},
	}

	host, _ := os.Hostname()
	cmd.Flags().StringVar(&group, "group", "gh-activity", "consumer group name")
	cmd.Flags().StringVar(&consumer, "consumer", fmt.Sprintf("%s-%d", host, os.Getpid()), "consumer name within the group")
	cmd.Flags().DurationVar(&block, "block", 5*time.Second, "how long each read blocks")
	return cmd
}
