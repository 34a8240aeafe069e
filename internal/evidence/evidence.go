// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence cross-references discovered tags against an
// independent literature count supplied by an external collaborator.
package evidence

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/symptom-engine/pkg/types"
)

// Lookup obtains an independent "how well studied is this" count for a
// tag. Implementations are black boxes to the engine; only this
// contract matters. A returned error is retryable.
type Lookup interface {
	Name() string
	Lookup(ctx context.Context, tag string) (int64, error)
}

// Summary holds counts from a cross-referencing run.
type Summary struct {
	Resolved int
	Cached   int
	Failed   int
}

// Total returns the number of tags processed.
func (s Summary) Total() int {
	return s.Resolved + s.Cached + s.Failed
}

// CrossReferencer resolves evidence counts for tags through a bounded
// worker pool, with a shared rate limiter, per-lookup timeouts, and
// retry with exponential backoff. Results are cached so a tag is never
// queried twice.
type CrossReferencer struct {
	lookup  Lookup
	cache   *Cache
	cfg     types.EvidenceConfig
	limiter *rate.Limiter
	retrier Retrier
}

// NewCrossReferencer wires a lookup collaborator and cache together
// under cfg.
func NewCrossReferencer(lookup Lookup, cache *Cache, cfg types.EvidenceConfig) *CrossReferencer {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinLookupInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinLookupInterval), 1)
	}
	return &CrossReferencer{
		lookup:  lookup,
		cache:   cache,
		cfg:     cfg,
		limiter: limiter,
		retrier: Retrier{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay},
	}
}

// Resolve returns an evidence record for every distinct tag. Cached
// tags are served without a lookup; the rest fan out to at most
// cfg.Concurrency workers. A lookup that fails every retry is recorded
// with an unknown (nil) count and counted in the summary — it never
// aborts the run. Only context cancellation is returned as an error.
func (x *CrossReferencer) Resolve(ctx context.Context, tags []string, w io.Writer) (map[string]types.EvidenceRecord, Summary, error) {
	distinct := dedupe(tags)

	records := make(map[string]types.EvidenceRecord, len(distinct))
	var summary Summary

	var pending []string
	for _, tag := range distinct {
		rec, ok, err := x.cache.Get(ctx, tag)
		if err != nil {
			return nil, summary, err
		}
		if ok {
			records[tag] = rec
			summary.Cached++
			continue
		}
		pending = append(pending, tag)
	}

	if len(pending) == 0 {
		fmt.Fprintf(w, "evidence: %d cached, 0 looked up\n", summary.Cached)
		return records, summary, nil
	}

	type result struct {
		rec    types.EvidenceRecord
		failed bool
	}

	ch := make(chan result, len(pending))
	sem := make(chan struct{}, x.cfg.Concurrency)

	for _, tag := range pending {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return records, summary, ctx.Err()
		}
		go func(tag string) {
			defer func() { <-sem }()
			rec, failed := x.resolveOne(ctx, tag, w)
			ch <- result{rec: rec, failed: failed}
		}(tag)
	}

	// Merge results on this goroutine only; workers never touch the map.
	for range pending {
		select {
		case r := <-ch:
			if err := x.cache.Put(ctx, r.rec); err != nil {
				fmt.Fprintf(w, "warning: caching %s: %v\n", r.rec.Tag, err)
			}
			records[r.rec.Tag] = r.rec
			if r.failed {
				summary.Failed++
			} else {
				summary.Resolved++
			}
		case <-ctx.Done():
			return records, summary, ctx.Err()
		}
	}

	fmt.Fprintf(w, "evidence: %d cached, %d resolved, %d failed (%s)\n",
		summary.Cached, summary.Resolved, summary.Failed, x.lookup.Name())
	return records, summary, nil
}

// resolveOne performs the rate-limited, retried lookup for one tag.
func (x *CrossReferencer) resolveOne(ctx context.Context, tag string, w io.Writer) (types.EvidenceRecord, bool) {
	var count int64
	err := x.retrier.Do(ctx, func(ctx context.Context) error {
		if err := x.limiter.Wait(ctx); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, x.cfg.LookupTimeout)
		defer cancel()
		n, err := x.lookup.Lookup(attemptCtx, tag)
		if err != nil {
			return err
		}
		count = n
		return nil
	})

	rec := types.EvidenceRecord{Tag: tag, QueryTimestamp: time.Now().UTC()}
	if err != nil {
		fmt.Fprintf(w, "lookup failed for %s: %v\n", tag, err)
		return rec, true
	}
	rec.IndependentCount = &count
	return rec, false
}

// dedupe returns the distinct tags sorted ascending.
func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
