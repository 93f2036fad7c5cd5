package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/gh-activity/activity"
)

func ConnectToRedisURL(rawURL string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Sink appends exported records to a capped stream.
type Sink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewSink(rdb *redis.Client, stream string, maxLen int64) *Sink {
	return &Sink{rdb: rdb, stream: stream, maxLen: maxLen}
}

// Publish writes every record in one pipeline and returns how many were sent.
func (s *Sink) Publish(ctx context.Context, records []activity.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	pipe := s.rdb.Pipeline()
	for _, r := range records {
		body, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode record: %w", err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]any{
				"kind":   string(r.Kind),
				"org":    r.Org,
				"repo":   r.Repo,
				"url":    r.URL,
				"key":    r.Key(),
				"record": string(body),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("xadd %s: %w", s.stream, err)
	}

	logrus.WithFields(logrus.Fields{"stream": s.stream, "records": len(records)}).Info("published to redis")
	return len(records), nil
}

// EnsureGroup creates the consumer group, tolerating one that already exists.
func EnsureGroup(ctx context.Context, rdb *redis.Client, stream, group string) error {
	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s/%s: %w", stream, group, err)
	}
	return nil
}

// WatchStreams reads the stream through a consumer group and hands each
// decoded record to handle. Messages are acked only after handle succeeds.
// It returns when ctx is done.
func WatchStreams(ctx context.Context, rdb *redis.Client, stream, group, consumer string, block time.Duration, handle func(activity.Record) error) error {
	backoff := 100 * time.Millisecond
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    int64(10),
			Block:    block,
			NoAck:    false,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.Warnf("Error reading from stream: %v", err)
			select {
			case <-time.After(backoff):
				if backoff < 3*time.Second {
					backoff *= 2
				}
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			backoff = 100 * time.Millisecond
		}
		for _, incomingStream := range res {
			for _, msg := range incomingStream.Messages {
				if err := handleMessage(msg, handle); err != nil {
					logrus.Warnf("Error handling message %s: %v", msg.ID, err)
					continue
				}
				if err := rdb.XAck(ctx, stream, group, msg.ID).Err(); err != nil {
					logrus.Warnf("Error acknowledging message %s: %v", msg.ID, err)
				}
			}
		}
	}
}

func handleMessage(msg redis.XMessage, handle func(activity.Record) error) error {
	raw, ok := msg.Values["record"].(string)
	if !ok {
		return fmt.Errorf("message %s has no record field", msg.ID)
	}
	var rec activity.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return handle(rec)
}
