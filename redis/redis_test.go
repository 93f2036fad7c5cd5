package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urizennnn/gh-activity/activity"
)

func setup(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	rdb, err := ConnectToRedisURL("redis://"+mr.Addr()+"/0", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func records() []activity.Record {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []activity.Record{
		{Kind: activity.KindPRsOpened, Org: "acme", Repo: "acme/api", Number: 1, URL: "https://github.com/acme/api/pull/1", CreatedAt: &at},
		{Kind: activity.KindCommits, Org: "acme", Repo: "acme/api", SHA: "f00", AuthorDate: &at},
	}
}

func TestPublish(t *testing.T) {
	rdb := setup(t)
	ctx := context.Background()

	n, err := NewSink(rdb, "activity:records", 100).Publish(ctx, records())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs, err := rdb.XRange(ctx, "activity:records", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "prs_opened", msgs[0].Values["kind"])
	assert.Equal(t, "commits|f00", msgs[1].Values["key"])

	var rec activity.Record
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["record"].(string)), &rec))
	assert.Equal(t, records()[0], rec)
}

func TestPublishEmpty(t *testing.T) {
	rdb := setup(t)
	n, err := NewSink(rdb, "s", 10).Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConnectFails(t *testing.T) {
	_, err := ConnectToRedisURL("redis://127.0.0.1:1/0", 200*time.Millisecond)
	assert.Error(t, err)

	_, err = ConnectToRedisURL("::not a url", time.Second)
	assert.Error(t, err)
}

func TestWatchStreamsDeliversAndAcks(t *testing.T) {
	rdb := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, EnsureGroup(ctx, rdb, "activity:records", "readers"))
	require.NoError(t, EnsureGroup(ctx, rdb, "activity:records", "readers"), "existing group is fine")

	_, err := NewSink(rdb, "activity:records", 100).Publish(ctx, records())
	require.NoError(t, err)

	var mu sync.Mutex
	var got []activity.Record
	done := make(chan error, 1)
	go func() {
		done <- WatchStreams(ctx, rdb, "activity:records", "readers", "t1", 50*time.Millisecond, func(r activity.Record) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, r)
			if len(got) == 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, activity.KindCommits, got[1].Kind)
}
