package domain

import "context"

// UpstreamClient fetches raw review payloads from the property-management API.
// Records come back untyped; validation happens at the normalizer boundary.
type UpstreamClient interface {
	ListReviews(ctx context.Context) ([]map[string]any, error)
}

// PlacesClient fetches raw reviews for one place from a places API,
// already rescaled to the 0..10 rating scale.
type PlacesClient interface {
	PlaceReviews(ctx context.Context, placeID string) ([]map[string]any, error)
}

// ApprovalStore is a flat review-id -> approved mapping.
// Get returns false for unknown ids and never fails on a plain miss.
// Reset clears every entry and reports how many were cleared.
// Snapshot returns a copy, never a live reference.
type ApprovalStore interface {
	Set(ctx context.Context, id string, approved bool) error
	Get(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (map[string]bool, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
