package domain

import (
	"errors"
	"time"
)

// Channel labels. ChannelDemo marks fixture records served when the
// upstream is unavailable, so callers can tell demo data from authentic data.
const (
	ChannelHostaway = "hostaway"
	ChannelGoogle   = "google"
	ChannelDemo     = "demo"
)

var (
	ErrUnknownReview = errors.New("unknown review id")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Review is the canonical normalized record. Rating is nil when the upstream
// omitted it (0 is a valid low rating, so absence is never coerced to 0).
// Date is nil when the upstream date was missing or unparseable.
// Approved is stamped from the approval store at read time, never persisted here.
type Review struct {
	ID          string           `json:"id"`
	ListingID   string           `json:"listing_id"`
	ListingName string           `json:"listing_name"`
	GuestName   string           `json:"guest_name"`
	Rating      *float64         `json:"overall_rating"` // 0..10
	Categories  []CategoryRating `json:"category_ratings"`
	Text        string           `json:"review_text"`
	Date        *time.Time       `json:"date"`
	Channel     string           `json:"channel"`
	Approved    bool             `json:"approved"`
}

// CategoryRating is one sub-score; Category is always the canonical
// lowercase snake_case name.
type CategoryRating struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// ReviewPage is an ordered query result. DemoData reports whether any
// returned review carries the fixture channel.
type ReviewPage struct {
	Items    []Review `json:"reviews"`
	DemoData bool     `json:"demo_data"`
}

// PropertySummary aggregates one listing's moderation state.
// ApprovedCount never exceeds TotalCount.
type PropertySummary struct {
	ListingID     string `json:"listing_id"`
	ListingName   string `json:"listing_name"`
	TotalCount    int    `json:"total_count"`
	ApprovedCount int    `json:"approved_count"`
}
