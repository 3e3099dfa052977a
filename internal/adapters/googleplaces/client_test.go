package googleplaces_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"flex_reviews/internal/adapters/googleplaces"
)

func TestClient_PlaceReviews_RescalesRatings(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("place_id"); got != "p-1" {
			t.Errorf("place_id = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"name": "Riverside Lofts",
				"reviews": []map[string]any{
					{"author_name": "Luc", "rating": 4, "text": "très bien", "time": 1700000000},
				},
			},
		})
	}))
	defer ts.Close()

	cl, err := googleplaces.New(ts.URL, "key", 100)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := cl.PlaceReviews(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 review, got %d", len(got))
	}
	r := got[0]
	if r["id"] != "google_p-1_1" || r["listing_id"] != "p-1" || r["listing_name"] != "Riverside Lofts" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r["rating"] != 8.0 { // 4 of 5 -> 8 of 10
		t.Fatalf("rating not rescaled: %v", r["rating"])
	}
	if r["guest_name"] != "Luc" || r["review_text"] != "très bien" {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestClient_PlaceReviews_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "REQUEST_DENIED"})
	}))
	defer ts.Close()

	cl, _ := googleplaces.New(ts.URL, "key", 100)
	_, err := cl.PlaceReviews(context.Background(), "p-1")
	if !errors.Is(err, googleplaces.ErrPlacesStatus) {
		t.Fatalf("expected ErrPlacesStatus, got %v", err)
	}
}

func TestClient_RequiresKey(t *testing.T) {
	if _, err := googleplaces.New("http://x", "", 5); err == nil {
		t.Fatalf("missing key must be rejected")
	}
}
