package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"flex_reviews/internal/domain"
)

const feedCacheKey = "reviews:feed"

// ReviewFeed produces the normalized review set for the whole service.
// Upstream failures degrade to the fixture records instead of surfacing:
// Reviews never fails and never returns an empty set as long as fixtures
// exist. Returned reviews carry no approval flags; those are stamped at
// query time.
type ReviewFeed struct {
	upstream domain.UpstreamClient // may be nil when no credentials are configured
	places   domain.PlacesClient   // optional
	placeIDs []string
	fixtures []map[string]any
	cache    domain.Cache
	ttl      time.Duration
	workers  int64
}

func NewReviewFeed(
	upstream domain.UpstreamClient,
	places domain.PlacesClient,
	placeIDs []string,
	fixtures []map[string]any,
	cache domain.Cache,
	ttl time.Duration,
	workers int,
) *ReviewFeed {
	if workers <= 0 {
		workers = 4
	}
	return &ReviewFeed{
		upstream: upstream,
		places:   places,
		placeIDs: placeIDs,
		fixtures: fixtures,
		cache:    cache,
		ttl:      ttl,
		workers:  int64(workers),
	}
}

// Reviews returns the current normalized review set, serving from cache
// when fresh. Callers own the returned slice.
func (f *ReviewFeed) Reviews(ctx context.Context) []domain.Review {
	if f.cache != nil {
		var cached []domain.Review
		if ok, _ := f.cache.Get(ctx, feedCacheKey, &cached); ok {
			return cached
		}
	}

	reviews := f.fetchUpstream(ctx)
	reviews = append(reviews, f.fetchPlaces(ctx)...)

	if f.cache != nil {
		_ = f.cache.Set(ctx, feedCacheKey, reviews, int(f.ttl.Seconds()))
	}
	return reviews
}

// Known reports whether the id belongs to the current review set.
func (f *ReviewFeed) Known(ctx context.Context, id string) bool {
	for _, rv := range f.Reviews(ctx) {
		if rv.ID == id {
			return true
		}
	}
	return false
}

// Invalidate drops the cached set so the next read refetches.
func (f *ReviewFeed) Invalidate(ctx context.Context) {
	if f.cache != nil {
		_ = f.cache.Del(ctx, feedCacheKey)
	}
}

// fetchUpstream pulls the primary review source, falling back to the fixture
// set tagged with the demo channel on any failure or an empty payload.
func (f *ReviewFeed) fetchUpstream(ctx context.Context) []domain.Review {
	if f.upstream != nil {
		raw, err := f.upstream.ListReviews(ctx)
		if err == nil && len(raw) > 0 {
			return NormalizeReviews(raw, domain.ChannelHostaway)
		}
		if err != nil {
			log.Warn().Err(err).Msg("upstream reviews unavailable, serving fixtures")
		} else {
			log.Info().Msg("upstream returned no reviews, serving fixtures")
		}
	}
	return NormalizeReviews(f.fixtures, domain.ChannelDemo)
}

// fetchPlaces collects per-place reviews concurrently, bounded by a weighted
// semaphore. Best effort: a failing place is logged and skipped.
func (f *ReviewFeed) fetchPlaces(ctx context.Context) []domain.Review {
	if f.places == nil || len(f.placeIDs) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(f.workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	var out []domain.Review

	for _, placeID := range f.placeIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("place fetch canceled")
			break
		}
		wg.Add(1)
		go func(placeID string) {
			defer wg.Done()
			defer sem.Release(1)

			raw, err := f.places.PlaceReviews(ctx, placeID)
			if err != nil {
				log.Warn().Str("place_id", placeID).Err(err).Msg("place reviews fetch failed")
				return
			}
			rs := NormalizeReviews(raw, domain.ChannelGoogle)
			mu.Lock()
			out = append(out, rs...)
			mu.Unlock()
		}(placeID)
	}

	wg.Wait()
	return out
}
