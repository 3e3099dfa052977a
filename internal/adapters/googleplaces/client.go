// Package googleplaces pulls guest reviews for configured place IDs from the
// Google Places details API and reshapes them into raw records the normalizer
// understands. Google rates 1..5, so ratings are doubled to the 0..10 scale
// here before anything downstream sees them.
package googleplaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"flex_reviews/internal/adapters/observability"
)

var ErrPlacesStatus = errors.New("places: non-OK status")

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type detailsEnvelope struct {
	Status string `json:"status"`
	Result struct {
		Name    string `json:"name"`
		Reviews []struct {
			AuthorName string  `json:"author_name"`
			Rating     float64 `json:"rating"`
			Text       string  `json:"text"`
			Time       int64   `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
}

// PlaceReviews fetches the place's reviews as raw records. IDs are synthesized
// from the place ID and position since Google does not expose review IDs.
func (c *Client) PlaceReviews(ctx context.Context, placeID string) ([]map[string]any, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{
		"place_id": {placeID},
		"fields":   {"name,rating,reviews"},
		"key":      {c.key},
	}
	u := fmt.Sprintf("%s/place/details/json?%s", c.base, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("places", "details", 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("places", "details", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var env detailsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if env.Status != "OK" {
		return nil, fmt.Errorf("%w: %s", ErrPlacesStatus, env.Status)
	}

	name := env.Result.Name
	if name == "" {
		name = "Google Property"
	}
	out := make([]map[string]any, 0, len(env.Result.Reviews))
	for i, rv := range env.Result.Reviews {
		out = append(out, map[string]any{
			"id":           fmt.Sprintf("google_%s_%d", placeID, i+1),
			"listing_id":   placeID,
			"listing_name": name,
			"guest_name":   rv.AuthorName,
			"review_text":  rv.Text,
			"rating":       rv.Rating * 2, // 1..5 -> 0..10
			"date":         time.Unix(rv.Time, 0).UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}
