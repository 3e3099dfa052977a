package app

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

/********** alias registries (single source of truth) **********/

var reviewAliases = map[string][]string{
	"id":           {"id", "review_id", "reviewId"},
	"listing_id":   {"listingId", "listing_id", "propertyId", "property_id"},
	"listing_name": {"listingName", "listing_name", "propertyName", "property_name"},
	"guest":        {"guestName", "guest_name", "author", "author_name", "reviewer"},
	"text":         {"publicReview", "public_review", "review_text", "text", "comment"},
	"rating":       {"rating", "overallRating", "overall_rating", "scores.overall"},
	"categories":   {"reviewCategory", "review_categories", "categoryRatings", "category_ratings", "categories"},
	"date":         {"submittedAt", "submitted_at", "date", "createdAt", "created_at"},
}

// Layouts accepted for upstream dates, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstString: first non-empty string-ish value (string or JSON number)
// across the alias set. Numbers render without a decimal tail, so an id
// arriving as 7453 becomes "7453".
func firstString(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// canonicalCategory unifies category naming: camelCase is split on word
// boundaries, spaces and hyphens become underscores, everything lowercased.
// "Respect House Rules", "respectHouseRules" and "respect_house_rules" all
// map to "respect_house_rules".
func canonicalCategory(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '_' })
	return strings.ToLower(strings.Join(parts, "_"))
}

// parseDate tries the accepted layouts; nil marks an unknown date.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

/********** category mapper **********/

// mapCategories reads the first alias that yields a list and keeps entries
// that carry both a label and a rating; incomplete entries are dropped
// individually without failing the record.
func mapCategories(m map[string]any) []domain.CategoryRating {
	for _, path := range reviewAliases["categories"] {
		raw, ok := lookupAny(m, path).([]any)
		if !ok {
			continue
		}
		out := make([]domain.CategoryRating, 0, len(raw))
		for _, it := range raw {
			entry, ok := it.(map[string]any)
			if !ok {
				continue
			}
			name := firstString(entry, map[string][]string{"name": {"category", "name"}}, "name")
			rating := getFloatFlexible(entry, "rating", "value")
			if name == "" || rating == nil {
				continue
			}
			out = append(out, domain.CategoryRating{
				Category: canonicalCategory(name),
				Rating:   *rating,
			})
		}
		return out
	}
	return nil
}

/********** review mapper **********/

// NormalizeReviews maps heterogeneous raw records into canonical Reviews.
// Records missing an id or a listing id are dropped with a warning; the rest
// of the batch is unaffected. The channel label is stamped by the caller,
// never trusted from the payload.
func NormalizeReviews(in []map[string]any, channel string) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		rv, ok := normalizeReview(r, channel)
		if !ok {
			continue
		}
		out = append(out, rv)
	}
	return out
}

func normalizeReview(r map[string]any, channel string) (domain.Review, bool) {
	id := firstString(r, reviewAliases, "id")
	listingID := firstString(r, reviewAliases, "listing_id")
	if id == "" || listingID == "" {
		log.Warn().
			Str("channel", channel).
			Bool("has_id", id != "").
			Bool("has_listing_id", listingID != "").
			Msg("dropping malformed review record")
		return domain.Review{}, false
	}

	rv := domain.Review{
		ID:          id,
		ListingID:   listingID,
		ListingName: firstString(r, reviewAliases, "listing_name"),
		GuestName:   firstString(r, reviewAliases, "guest"),
		Text:        firstString(r, reviewAliases, "text"),
		Rating:      getFloatFlexible(r, reviewAliases["rating"]...),
		Categories:  mapCategories(r),
		Channel:     channel,
	}
	if rv.ListingName == "" {
		rv.ListingName = "Unknown Property"
	}
	if rv.GuestName == "" {
		rv.GuestName = "Anonymous"
	}

	if s := firstString(r, reviewAliases, "date"); s != "" {
		rv.Date = parseDate(s)
	}
	return rv, true
}
