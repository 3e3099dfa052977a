package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

// QueryService is the aggregate read side: it merges the normalized review
// set with the approval store on every call, so approval flags are never
// stale across requests.
type QueryService struct {
	feed      *ReviewFeed
	approvals domain.ApprovalStore
}

func NewQueryService(feed *ReviewFeed, approvals domain.ApprovalStore) *QueryService {
	return &QueryService{feed: feed, approvals: approvals}
}

// Query returns reviews matching the filter, ordered by the requested sort.
// Invalid sort or order values are rejected with ErrInvalidFilter.
func (s *QueryService) Query(ctx context.Context, q domain.ReviewQuery) (domain.ReviewPage, error) {
	if err := q.Validate(); err != nil {
		return domain.ReviewPage{}, fmt.Errorf("%w: %s", domain.ErrInvalidFilter, err)
	}

	all := s.stamped(ctx)
	demo := hasDemo(all)

	out := filterReviews(all, q.Filter)
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = domain.SortDate
	}
	order := q.Order
	if order == "" {
		order = domain.OrderDesc
	}
	sortReviews(out, sortBy, order == domain.OrderDesc)

	return domain.ReviewPage{Items: out, DemoData: demo}, nil
}

// PropertySummaries reports per-listing totals and approved counts,
// ordered by listing id.
func (s *QueryService) PropertySummaries(ctx context.Context) []domain.PropertySummary {
	byListing := map[string]*domain.PropertySummary{}
	for _, rv := range s.stamped(ctx) {
		sum, ok := byListing[rv.ListingID]
		if !ok {
			sum = &domain.PropertySummary{ListingID: rv.ListingID, ListingName: rv.ListingName}
			byListing[rv.ListingID] = sum
		}
		sum.TotalCount++
		if rv.Approved {
			sum.ApprovedCount++
		}
	}

	out := make([]domain.PropertySummary, 0, len(byListing))
	for _, sum := range byListing {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListingID < out[j].ListingID })
	return out
}

// PropertyReviews is the public-page read: only approved reviews for the
// listing, newest first. The approved-only rule lives here so no caller can
// leak unapproved content.
func (s *QueryService) PropertyReviews(ctx context.Context, listingID string) []domain.Review {
	out := make([]domain.Review, 0)
	for _, rv := range s.stamped(ctx) {
		if rv.ListingID == listingID && rv.Approved {
			out = append(out, rv)
		}
	}
	sortReviews(out, domain.SortDate, true)
	return out
}

// ListingName resolves the display name for a listing from any of its
// reviews, approved or not, so a page with nothing approved yet still
// shows which property it belongs to.
func (s *QueryService) ListingName(ctx context.Context, listingID string) string {
	for _, rv := range s.feed.Reviews(ctx) {
		if rv.ListingID == listingID {
			return rv.ListingName
		}
	}
	return ""
}

// stamped returns the current review set with approval flags computed from
// a store snapshot taken for this call.
func (s *QueryService) stamped(ctx context.Context) []domain.Review {
	reviews := s.feed.Reviews(ctx)
	snap, err := s.approvals.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("approval snapshot failed, treating all as unapproved")
		snap = map[string]bool{}
	}
	out := make([]domain.Review, len(reviews))
	for i, rv := range reviews {
		rv.Approved = snap[rv.ID]
		out[i] = rv
	}
	return out
}

func hasDemo(rs []domain.Review) bool {
	for _, rv := range rs {
		if rv.Channel == domain.ChannelDemo {
			return true
		}
	}
	return false
}

/********** filtering **********/

func filterReviews(rs []domain.Review, f domain.ReviewFilter) []domain.Review {
	category := canonicalCategory(f.Category)
	dateBounded := f.From != nil || f.To != nil

	out := make([]domain.Review, 0, len(rs))
	for _, rv := range rs {
		if f.MinRating != nil && (rv.Rating == nil || *rv.Rating < *f.MinRating) {
			continue
		}
		if category != "" && !hasCategory(rv, category) {
			continue
		}
		if f.Channel != "" && rv.Channel != f.Channel {
			continue
		}
		if dateBounded {
			// Unknown dates cannot be placed in a range.
			if rv.Date == nil {
				continue
			}
			if f.From != nil && rv.Date.Before(*f.From) {
				continue
			}
			if f.To != nil && rv.Date.After(*f.To) {
				continue
			}
		}
		out = append(out, rv)
	}
	return out
}

func hasCategory(rv domain.Review, canonical string) bool {
	for _, c := range rv.Categories {
		if c.Category == canonical {
			return true
		}
	}
	return false
}

/********** sorting **********/

// sortReviews orders rs by the given column. Ties fall back to id ascending
// so the ordering is total and byte-reproducible. Unknown dates go last
// regardless of direction; an absent rating sorts as the lowest value.
func sortReviews(rs []domain.Review, sortBy string, desc bool) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if c := compareReviews(a, b, sortBy, desc); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func compareReviews(a, b domain.Review, sortBy string, desc bool) int {
	var c int
	switch sortBy {
	case domain.SortDate:
		// nil dates sink to the end before direction applies
		switch {
		case a.Date == nil && b.Date == nil:
			return 0
		case a.Date == nil:
			return 1
		case b.Date == nil:
			return -1
		case a.Date.Before(*b.Date):
			c = -1
		case a.Date.After(*b.Date):
			c = 1
		}
	case domain.SortRating:
		c = compareFloat(ratingValue(a), ratingValue(b))
	case domain.SortGuestName:
		c = strings.Compare(strings.ToLower(a.GuestName), strings.ToLower(b.GuestName))
	case domain.SortListingName:
		c = strings.Compare(strings.ToLower(a.ListingName), strings.ToLower(b.ListingName))
	}
	if desc {
		c = -c
	}
	return c
}

// ratingValue maps an absent rating below every real one (scale is 0..10).
func ratingValue(rv domain.Review) float64 {
	if rv.Rating == nil {
		return -1
	}
	return *rv.Rating
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
