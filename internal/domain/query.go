package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Sort columns accepted by the aggregator.
const (
	SortDate        = "date"
	SortRating      = "overall_rating"
	SortGuestName   = "guest_name"
	SortListingName = "listing_name"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ReviewFilter narrows a query; zero-value fields are ignored.
// All set fields are combined with AND semantics. Reviews with an unknown
// date are excluded whenever From or To is set.
type ReviewFilter struct {
	MinRating *float64
	Category  string
	Channel   string
	From      *time.Time
	To        *time.Time
}

// ReviewQuery selects and orders reviews. Empty SortBy defaults to date,
// empty Order to descending.
type ReviewQuery struct {
	Filter ReviewFilter
	SortBy string
	Order  string
}

func (q ReviewQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.SortBy,
			validation.In(SortDate, SortRating, SortGuestName, SortListingName).
				Error("sort must be one of date, overall_rating, guest_name, listing_name"),
		),
		validation.Field(&q.Order,
			validation.In(OrderAsc, OrderDesc).Error("order must be asc or desc"),
		),
	)
}
