// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// mockLookup is a programmable collaborator double.
type mockLookup struct {
	mu      sync.Mutex
	calls   map[string]int
	counts  map[string]int64
	failing map[string]bool
}

func newMockLookup(counts map[string]int64, failing ...string) *mockLookup {
	m := &mockLookup{
		calls:   make(map[string]int),
		counts:  counts,
		failing: make(map[string]bool),
	}
	for _, tag := range failing {
		m.failing[tag] = true
	}
	return m
}

func (m *mockLookup) Name() string { return "mock" }

func (m *mockLookup) Lookup(_ context.Context, tag string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[tag]++
	if m.failing[tag] {
		return 0, errors.New("collaborator unavailable")
	}
	return m.counts[tag], nil
}

func (m *mockLookup) callCount(tag string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[tag]
}

func testCfg() types.EvidenceConfig {
	return types.EvidenceConfig{
		Concurrency:    4,
		MaxRetries:     1,
		LookupTimeout:  time.Second,
		RetryBaseDelay: time.Millisecond,
	}
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := OpenCache(filepath.Join(t.TempDir(), "evidence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestResolveAndCache(t *testing.T) {
	lookup := newMockLookup(map[string]int64{"fatigue": 12, "pain": 0})
	cache := openTestCache(t)

	var w bytes.Buffer
	xref := NewCrossReferencer(lookup, cache, testCfg())
	records, summary, err := xref.Resolve(context.Background(), []string{"fatigue", "pain"}, &w)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Resolved)
	assert.Equal(t, 0, summary.Cached)
	assert.Equal(t, 0, summary.Failed)

	require.True(t, records["fatigue"].Known())
	assert.Equal(t, int64(12), *records["fatigue"].IndependentCount)

	// Zero hits is a real result, not unknown.
	require.True(t, records["pain"].Known())
	assert.Equal(t, int64(0), *records["pain"].IndependentCount)

	// Second run is served entirely from the cache.
	records, summary, err = xref.Resolve(context.Background(), []string{"fatigue", "pain"}, &w)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Cached)
	assert.Equal(t, 0, summary.Resolved)
	assert.Equal(t, 1, lookup.callCount("fatigue"))
	assert.Equal(t, 1, lookup.callCount("pain"))
	assert.Len(t, records, 2)
}

func TestResolveDeduplicatesTags(t *testing.T) {
	lookup := newMockLookup(map[string]int64{"fatigue": 5})
	cache := openTestCache(t)

	var w bytes.Buffer
	xref := NewCrossReferencer(lookup, cache, testCfg())
	records, _, err := xref.Resolve(context.Background(), []string{"fatigue", "fatigue", ""}, &w)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, lookup.callCount("fatigue"))
}

func TestResolveExhaustedLookupRecordsUnknown(t *testing.T) {
	lookup := newMockLookup(map[string]int64{"fatigue": 5}, "cursed")
	cache := openTestCache(t)

	var w bytes.Buffer
	xref := NewCrossReferencer(lookup, cache, testCfg())
	records, summary, err := xref.Resolve(context.Background(), []string{"fatigue", "cursed"}, &w)
	require.NoError(t, err, "lookup failures must not abort the run")

	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, 1, summary.Failed)

	rec, ok := records["cursed"]
	require.True(t, ok)
	assert.False(t, rec.Known(), "failed lookup must record unknown, not zero")
	// 1 initial + 1 retry with MaxRetries=1.
	assert.Equal(t, 2, lookup.callCount("cursed"))
	assert.Contains(t, w.String(), "lookup failed for cursed")
}

func TestResolveBoundedConcurrency(t *testing.T) {
	var inFlight, peak int64
	slow := &funcLookup{fn: func(ctx context.Context, tag string) (int64, error) {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return 1, nil
	}}

	cfg := testCfg()
	cfg.Concurrency = 2
	cache := openTestCache(t)

	var w bytes.Buffer
	xref := NewCrossReferencer(slow, cache, cfg)
	tags := []string{"a", "b", "c", "d", "e", "f"}
	_, summary, err := xref.Resolve(context.Background(), tags, &w)
	require.NoError(t, err)
	assert.Equal(t, len(tags), summary.Resolved)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

// funcLookup adapts a function to the Lookup interface.
type funcLookup struct {
	fn func(ctx context.Context, tag string) (int64, error)
}

func (f *funcLookup) Name() string { return "func" }
func (f *funcLookup) Lookup(ctx context.Context, tag string) (int64, error) {
	return f.fn(ctx, tag)
}

func TestResolveLookupTimeout(t *testing.T) {
	hang := &funcLookup{fn: func(ctx context.Context, tag string) (int64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}

	cfg := testCfg()
	cfg.LookupTimeout = 5 * time.Millisecond
	cfg.MaxRetries = 1
	cache := openTestCache(t)

	var w bytes.Buffer
	xref := NewCrossReferencer(hang, cache, cfg)
	records, summary, err := xref.Resolve(context.Background(), []string{"slow"}, &w)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, records["slow"].Known())
}

func TestCacheAppendOnly(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	first := int64(7)
	require.NoError(t, cache.Put(ctx, types.EvidenceRecord{
		Tag: "fatigue", IndependentCount: &first, QueryTimestamp: time.Now(),
	}))

	second := int64(99)
	require.NoError(t, cache.Put(ctx, types.EvidenceRecord{
		Tag: "fatigue", IndependentCount: &second, QueryTimestamp: time.Now(),
	}))

	rec, ok, err := cache.Get(ctx, "fatigue")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rec.Known())
	assert.Equal(t, int64(7), *rec.IndependentCount, "first write wins")
}

func TestCacheNullCountRoundTrip(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, types.EvidenceRecord{
		Tag: "unknown-tag", QueryTimestamp: time.Now(),
	}))

	rec, ok, err := cache.Get(ctx, "unknown-tag")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, rec.Known())

	all, err := cache.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Known())
}

func TestCacheMiss(t *testing.T) {
	cache := openTestCache(t)
	_, ok, err := cache.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fatigue: 42\npain: 0\n"), 0o644))

	lookup, err := NewFileLookup(path)
	require.NoError(t, err)

	n, err := lookup.Lookup(context.Background(), "fatigue")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// Absent tags resolve to zero: the curated snapshot is complete.
	n, err = lookup.Lookup(context.Background(), "never-heard-of-it")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestFileLookupMissingFile(t *testing.T) {
	_, err := NewFileLookup(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
