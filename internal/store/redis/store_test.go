package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

func setupTestStore(t *testing.T, historyLimit int) (*miniredis.Miniredis, *Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewStore(client, historyLimit)
}

// tickingClock returns increasing arrival times so member order is deterministic.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Millisecond)
		return cur
	}
}

func indicatorOf(m domain.Metric) string {
	s, _ := m.Payload.Indicator()
	return s
}

func TestStore_GetLatest_Missing(t *testing.T) {
	_, store := setupTestStore(t, 0)

	_, found, err := store.GetLatest(context.Background(), "unknown")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_GetLatest_ByTimestampNotArrival(t *testing.T) {
	_, store := setupTestStore(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store.now = tickingClock(now)

	require.NoError(t, store.PutMetric(ctx, "srv", now.Add(-time.Minute), []byte(`{"status":"ok"}`)))
	// Delivered late but collected earlier: must not become latest.
	require.NoError(t, store.PutMetric(ctx, "srv", now.Add(-10*time.Minute), []byte(`{"status":"down"}`)))

	latest, found, err := store.GetLatest(ctx, "srv")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "srv", latest.ServerID)
	assert.True(t, latest.CollectedAt.Equal(now.Add(-time.Minute)))
	assert.Equal(t, "ok", indicatorOf(latest))
}

func TestStore_GetLatest_EqualTimestampLaterWriteWins(t *testing.T) {
	_, store := setupTestStore(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store.now = tickingClock(now)

	require.NoError(t, store.PutMetric(ctx, "srv", now, []byte(`{"status":"ok"}`)))
	require.NoError(t, store.PutMetric(ctx, "srv", now, []byte(`{"status":"critical"}`)))

	latest, found, err := store.GetLatest(ctx, "srv")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "critical", indicatorOf(latest))
}

func TestStore_GetLatest_SubMicrosecondOrder(t *testing.T) {
	_, store := setupTestStore(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store.now = tickingClock(base)

	// Same microsecond score, collected later but delivered first.
	require.NoError(t, store.PutMetric(ctx, "srv", base.Add(500*time.Nanosecond), []byte(`{"status":"ok"}`)))
	require.NoError(t, store.PutMetric(ctx, "srv", base.Add(100*time.Nanosecond), []byte(`{"status":"down"}`)))

	latest, found, err := store.GetLatest(ctx, "srv")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, latest.CollectedAt.Equal(base.Add(500*time.Nanosecond)))
	assert.Equal(t, "ok", indicatorOf(latest))

	recent, err := store.Recent(ctx, "srv", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[1].CollectedAt.Equal(base.Add(100*time.Nanosecond)))
}

func TestStore_PayloadPassThrough(t *testing.T) {
	_, store := setupTestStore(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	raw := []byte(`{"status":"ok","load":{"1m":0.5},"note":"a:b:c"}`)
	require.NoError(t, store.PutMetric(ctx, "srv", now, raw))

	latest, _, err := store.GetLatest(ctx, "srv")
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(latest.Payload.Raw()))

	require.NoError(t, store.PutMetric(ctx, "broken", now, []byte("not json")))
	broken, found, err := store.GetLatest(ctx, "broken")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, broken.Payload.Valid())
}

func TestStore_Recent_TrimsHistory(t *testing.T) {
	_, store := setupTestStore(t, 3)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store.now = tickingClock(now)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.PutMetric(ctx, "srv", now.Add(time.Duration(i)*time.Minute), []byte(`{}`)))
	}

	recent, err := store.Recent(ctx, "srv", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].CollectedAt.Equal(now.Add(4*time.Minute)))
	assert.True(t, recent[2].CollectedAt.Equal(now.Add(2*time.Minute)))

	none, err := store.Recent(ctx, "srv", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_PruneBefore_KeepsNewest(t *testing.T) {
	_, store := setupTestStore(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store.now = tickingClock(now)

	// "fresh" has two old and one recent metric, "idle" only old ones.
	require.NoError(t, store.PutMetric(ctx, "fresh", now.Add(-48*time.Hour), []byte(`{}`)))
	require.NoError(t, store.PutMetric(ctx, "fresh", now.Add(-36*time.Hour), []byte(`{}`)))
	require.NoError(t, store.PutMetric(ctx, "fresh", now.Add(-time.Hour), []byte(`{}`)))
	require.NoError(t, store.PutMetric(ctx, "idle", now.Add(-72*time.Hour), []byte(`{}`)))
	require.NoError(t, store.PutMetric(ctx, "idle", now.Add(-48*time.Hour), []byte(`{"status":"ok"}`)))

	removed, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	fresh, err := store.Recent(ctx, "fresh", 10)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.True(t, fresh[0].CollectedAt.Equal(now.Add(-time.Hour)))

	idle, found, err := store.GetLatest(ctx, "idle")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ok", indicatorOf(idle))
}

func TestStore_Unavailable(t *testing.T) {
	mr, store := setupTestStore(t, 0)
	mr.Close()

	_, _, err := store.GetLatest(context.Background(), "srv")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	err = store.PutMetric(context.Background(), "srv", time.Now(), []byte(`{}`))
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	assert.Error(t, store.Ping(context.Background()))
}

func TestExtractServerID(t *testing.T) {
	id, ok := ExtractServerID(MetricsKey("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = ExtractServerID(KeyPrefixMetrics)
	assert.False(t, ok)
	_, ok = ExtractServerID(SummaryKey("abc"))
	assert.False(t, ok)
}
