package app_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/memory"
)

type countingUpstream struct {
	fakeUpstream
	calls int32
}

func (c *countingUpstream) ListReviews(ctx context.Context) ([]map[string]any, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.raw, c.err
}

type fakePlaces struct {
	byPlace map[string][]map[string]any
}

func (f *fakePlaces) PlaceReviews(ctx context.Context, placeID string) ([]map[string]any, error) {
	return f.byPlace[placeID], nil
}

func TestReviewFeed_EmptyUpstreamFallsBackToFixtures(t *testing.T) {
	fixtures := []map[string]any{
		rec("d1", "A", nil),
		rec("d2", "B", nil),
	}
	feed := app.NewReviewFeed(&fakeUpstream{raw: nil}, nil, nil, fixtures, nil, 0, 0)

	got := feed.Reviews(context.Background())
	if len(got) != 2 {
		t.Fatalf("fallback must return the full fixture set, got %d", len(got))
	}
	for _, rv := range got {
		if rv.Channel != domain.ChannelDemo {
			t.Fatalf("fixture review missing demo channel: %+v", rv)
		}
	}
}

func TestReviewFeed_NilUpstreamServesFixtures(t *testing.T) {
	fixtures := []map[string]any{rec("d1", "A", nil)}
	feed := app.NewReviewFeed(nil, nil, nil, fixtures, nil, 0, 0)
	if got := feed.Reviews(context.Background()); len(got) != 1 || got[0].Channel != domain.ChannelDemo {
		t.Fatalf("unexpected reviews: %+v", got)
	}
}

func TestReviewFeed_CachesNormalizedSet(t *testing.T) {
	up := &countingUpstream{fakeUpstream: fakeUpstream{raw: sampleRaw}}
	feed := app.NewReviewFeed(up, nil, nil, nil, memory.NewCache(), time.Minute, 0)
	ctx := context.Background()

	first := feed.Reviews(ctx)
	second := feed.Reviews(ctx)
	if atomic.LoadInt32(&up.calls) != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", up.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached set differs: %d vs %d", len(first), len(second))
	}
	for _, rv := range second {
		if rv.Approved {
			t.Fatalf("cached reviews must never carry approval flags")
		}
	}

	feed.Invalidate(ctx)
	_ = feed.Reviews(ctx)
	if atomic.LoadInt32(&up.calls) != 2 {
		t.Fatalf("invalidate should force a refetch, got %d calls", up.calls)
	}
}

func TestReviewFeed_MergesPlaceReviews(t *testing.T) {
	places := &fakePlaces{byPlace: map[string][]map[string]any{
		"p1": {rec("google_p1_1", "p1", map[string]any{"rating": float64(8)})},
		"p2": {rec("google_p2_1", "p2", nil)},
	}}
	feed := app.NewReviewFeed(&fakeUpstream{raw: sampleRaw}, places, []string{"p1", "p2"}, nil, nil, 0, 2)

	got := feed.Reviews(context.Background())
	if len(got) != len(sampleRaw)+2 {
		t.Fatalf("expected upstream + place reviews, got %d", len(got))
	}
	var googleCount int
	for _, rv := range got {
		if rv.Channel == domain.ChannelGoogle {
			googleCount++
		}
	}
	if googleCount != 2 {
		t.Fatalf("expected 2 google reviews, got %d", googleCount)
	}
}

func TestReviewFeed_Known(t *testing.T) {
	feed := app.NewReviewFeed(&fakeUpstream{raw: sampleRaw}, nil, nil, nil, nil, 0, 0)
	ctx := context.Background()
	if !feed.Known(ctx, "1") {
		t.Fatalf("id 1 should be known")
	}
	if feed.Known(ctx, "999") {
		t.Fatalf("id 999 should be unknown")
	}
}
