package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apex/log"
)

// DefaultTTL bounds every cache entry as a safety net against missed
// invalidations. Explicit invalidation on writes is the consistency
// mechanism, not this TTL.
const DefaultTTL = 6 * time.Hour

const (
	keyReportList          = "potholeReportList"
	keyReportListWithQuery = "potholeReportListWithQuery"
	keyReportPrefix        = "potholeReport:"
)

// ReportCache is the read-through/write-invalidate layer in front of the
// report store. Every operation is best-effort: a backend failure is logged
// and reported as a miss (or ignored on writes), never surfaced to callers.
type ReportCache struct {
	backend Backend
	ttl     time.Duration
}

func NewReportCache(backend Backend) *ReportCache {
	return &ReportCache{backend: backend, ttl: DefaultTTL}
}

// SingleReportKey derives the cache key for one report.
func SingleReportKey(reportID string) string {
	return keyReportPrefix + reportID
}

// ListQueryKey derives the cache key for a filtered list query. The scope
// is its own key segment, supplied from the caller's auth context rather
// than the query map, so no caller-controlled parameter can land a result
// under another scope's entries. The flat query map is serialized with
// sorted keys, so equivalent queries expressed with parameters in a
// different order share one entry.
func ListQueryKey(scope string, query map[string]string) string {
	// json.Marshal sorts map keys, which is exactly the canonical form needed.
	normalized, err := json.Marshal(query)
	if err != nil {
		normalized = []byte("{}")
	}
	return keyReportListWithQuery + ":" + scope + ":" + string(normalized)
}

// GetSingleReport loads the cached report into out. False means cold or
// backend failure, the caller falls through to the store either way.
func (c *ReportCache) GetSingleReport(ctx context.Context, reportID string, out interface{}) bool {
	return c.get(ctx, SingleReportKey(reportID), out)
}

func (c *ReportCache) SetSingleReport(ctx context.Context, reportID string, v interface{}) {
	c.set(ctx, SingleReportKey(reportID), v)
}

// GetListWithQuery loads the cached list result for a canonicalized query
// within one scope.
func (c *ReportCache) GetListWithQuery(ctx context.Context, scope string, query map[string]string, out interface{}) bool {
	return c.get(ctx, ListQueryKey(scope, query), out)
}

func (c *ReportCache) SetListWithQuery(ctx context.Context, scope string, query map[string]string, v interface{}) {
	c.set(ctx, ListQueryKey(scope, query), v)
}

// InvalidateReport evicts the single-report entry, the unfiltered list entry
// and every query-keyed list entry. List caches cannot be patched in place:
// any field change may move a report in or out of a filtered view, so the
// whole family goes.
func (c *ReportCache) InvalidateReport(ctx context.Context, reportID string) {
	if err := c.backend.Delete(ctx, SingleReportKey(reportID), keyReportList); err != nil {
		log.WithError(err).WithField("report", reportID).Warn("cache delete failed")
	}
	if err := c.backend.DeleteByPrefix(ctx, keyReportListWithQuery+":"); err != nil {
		log.WithError(err).Warn("cache query-list eviction failed")
	}
}

func (c *ReportCache) get(ctx context.Context, key string, out interface{}) bool {
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache entry corrupt, dropping")
		_ = c.backend.Delete(ctx, key)
		return false
	}
	return true
}

func (c *ReportCache) set(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache marshal failed")
		return
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
