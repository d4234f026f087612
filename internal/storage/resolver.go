package storage

import (
	"context"
	"log/slog"

	"postboard/internal/cache"
	"postboard/internal/middleware"
)

// Resolver turns file ids into temporary URLs, consulting the URL cache first.
// Failures never surface to callers: unresolved ids are simply absent from the
// returned map.
type Resolver struct {
	store ObjectStore
	cache *cache.URLCache
}

// NewResolver creates a resolver over store. urlCache may be nil.
func NewResolver(store ObjectStore, urlCache *cache.URLCache) *Resolver {
	return &Resolver{store: store, cache: urlCache}
}

// Resolve returns a temporary URL for every resolvable file id among ids.
func (r *Resolver) Resolve(ctx context.Context, ids []string) map[string]string {
	pending := uniqueFileIDs(ids)
	urls := make(map[string]string, len(pending))
	if len(pending) == 0 || r == nil || r.store == nil {
		return urls
	}

	cached, err := r.cache.GetMany(ctx, pending)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "URL cache lookup failed", slog.String("error", err.Error()))
	}
	misses := pending[:0:0]
	for _, id := range pending {
		if u, ok := cached[id]; ok {
			urls[id] = u
			continue
		}
		misses = append(misses, id)
	}
	if n := len(pending) - len(misses); n > 0 {
		middleware.URLResolutions.WithLabelValues("cache_hit").Add(float64(n))
	}

	fresh := make(map[string]string, len(misses))
	for start := 0; start < len(misses); start += MaxTempURLBatch {
		end := min(start+MaxTempURLBatch, len(misses))
		r.resolveBatch(ctx, misses[start:end], fresh)
	}

	if len(fresh) > 0 {
		if err := r.cache.SetMany(ctx, fresh); err != nil {
			middleware.Logger.WarnContext(ctx, "URL cache write failed", slog.String("error", err.Error()))
		}
	}
	for id, u := range fresh {
		urls[id] = u
	}
	return urls
}

func (r *Resolver) resolveBatch(ctx context.Context, batch []string, into map[string]string) {
	results, err := r.store.TempURLs(ctx, batch)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Temporary URL batch failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
		middleware.URLResolutions.WithLabelValues("failed").Add(float64(len(batch)))
		return
	}

	for _, res := range results {
		if res.Status != 0 || res.TempURL == "" {
			middleware.Logger.WarnContext(ctx, "Temporary URL not issued",
				slog.String("file_id", res.FileID),
				slog.String("error", res.ErrMsg),
			)
			middleware.URLResolutions.WithLabelValues("failed").Inc()
			continue
		}
		into[res.FileID] = res.TempURL
		middleware.URLResolutions.WithLabelValues("resolved").Inc()
	}
}

// Apply returns the URL for v when one was resolved, else v unchanged.
func Apply(urls map[string]string, v string) string {
	if u, ok := urls[v]; ok {
		return u
	}
	return v
}

// ApplyList maps Apply over vs into a new slice.
func ApplyList(urls map[string]string, vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = Apply(urls, v)
	}
	return out
}

func uniqueFileIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !IsFileID(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
