//go:build integration || !unit

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"flex_reviews/internal/adapters/hostaway"
	httpserver "flex_reviews/internal/adapters/http_server"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/app"
)

// fake upstream: token endpoint + reviews endpoint with two listings
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/accessTokens", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/reviews", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"result": []map[string]any{
				{
					"id": 1.0, "listingId": "A", "listingName": "Shoreditch Heights",
					"guestName": "Shane", "publicReview": "great", "rating": 9.0,
					"submittedAt": "2023-01-10 10:00:00",
				},
				{
					"id": 2.0, "listingId": "A", "listingName": "Shoreditch Heights",
					"guestName": "Maria", "publicReview": "ok", "rating": 7.0,
					"submittedAt": "2023-02-11 11:00:00",
				},
				{
					"id": 3.0, "listingId": "B", "listingName": "Camden Lock",
					"guestName": "Tom", "publicReview": "fine", "rating": 8.0,
					"submittedAt": "2023-03-12 12:00:00",
				},
			},
		})
	})
	return httptest.NewServer(mux)
}

func newAPI(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redisad.NewClient(mr.Addr(), "", 0)
	approvals := redisad.NewApprovalStore(rc)
	cache := redisad.NewCache(rc)

	client, err := hostaway.New(upstreamURL, "acct", "key", 100)
	if err != nil {
		t.Fatalf("hostaway client: %v", err)
	}
	feed := app.NewReviewFeed(client, nil, nil, hostaway.Fixtures(), cache, time.Minute, 2)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Q: app.NewQueryService(feed, approvals),
		M: app.NewModerationService(feed, approvals),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil && res.StatusCode == http.StatusOK {
		t.Fatalf("decode %s: %v", url, err)
	}
	return res.StatusCode
}

func postJSON(t *testing.T, url string, body any, dst any) int {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()
	if dst != nil {
		_ = json.NewDecoder(res.Body).Decode(dst)
	}
	return res.StatusCode
}

func TestHTTP_EndToEnd_ModerationFlow(t *testing.T) {
	up := newUpstream(t)
	defer up.Close()
	api := newAPI(t, up.URL)

	// 1) dashboard sees authentic upstream data
	var list struct {
		Status   string `json:"status"`
		Total    int    `json:"total"`
		DemoData bool   `json:"demo_data"`
		Reviews  []struct {
			ID       string `json:"id"`
			Channel  string `json:"channel"`
			Approved bool   `json:"approved"`
		} `json:"reviews"`
	}
	if code := getJSON(t, api.URL+"/api/reviews", &list); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if list.Total != 3 || list.DemoData {
		t.Fatalf("unexpected list: %+v", list)
	}
	for _, rv := range list.Reviews {
		if rv.Channel != "hostaway" || rv.Approved {
			t.Fatalf("unexpected review: %+v", rv)
		}
	}

	// 2) public page is empty before approval
	var page struct {
		Total   int `json:"total"`
		Reviews []struct {
			ID string `json:"id"`
		} `json:"reviews"`
	}
	getJSON(t, api.URL+"/api/properties/A/reviews", &page)
	if page.Total != 0 {
		t.Fatalf("unapproved reviews leaked to public page: %+v", page)
	}

	// 3) approve one review on listing A
	if code := postJSON(t, api.URL+"/api/reviews/approve",
		map[string]any{"review_id": "1", "approved": true}, nil); code != http.StatusOK {
		t.Fatalf("approve status %d", code)
	}

	getJSON(t, api.URL+"/api/properties/A/reviews", &page)
	if page.Total != 1 || page.Reviews[0].ID != "1" {
		t.Fatalf("public page should show exactly the approved review: %+v", page)
	}

	// 4) summary counts both listings
	var sums struct {
		Properties []struct {
			ListingID     string `json:"listing_id"`
			TotalCount    int    `json:"total_count"`
			ApprovedCount int    `json:"approved_count"`
		} `json:"properties"`
	}
	getJSON(t, api.URL+"/api/reviews/summary", &sums)
	if len(sums.Properties) != 2 {
		t.Fatalf("expected 2 listings: %+v", sums)
	}
	if a := sums.Properties[0]; a.ListingID != "A" || a.TotalCount != 2 || a.ApprovedCount != 1 {
		t.Fatalf("listing A summary: %+v", a)
	}

	// 5) unknown id is rejected without state change
	if code := postJSON(t, api.URL+"/api/reviews/approve",
		map[string]any{"review_id": "999", "approved": true}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d", code)
	}

	// 6) reset clears everything
	var reset struct {
		Reset int `json:"reset"`
	}
	if code := postJSON(t, api.URL+"/api/reviews/reset", map[string]any{}, &reset); code != http.StatusOK {
		t.Fatalf("reset status %d", code)
	}
	if reset.Reset != 1 {
		t.Fatalf("expected 1 cleared approval, got %d", reset.Reset)
	}
	getJSON(t, api.URL+"/api/properties/A/reviews", &page)
	if page.Total != 0 {
		t.Fatalf("reset must unpublish everything: %+v", page)
	}

	// 7) invalid sort rejected with a problem response
	if code := getJSON(t, api.URL+"/api/reviews?sort=review_text", &struct{}{}); code != http.StatusBadRequest {
		t.Fatalf("invalid sort: status %d", code)
	}
}

func TestHTTP_EndToEnd_FixtureFallback(t *testing.T) {
	// upstream that always fails
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer up.Close()
	api := newAPI(t, up.URL)

	var list struct {
		Total    int  `json:"total"`
		DemoData bool `json:"demo_data"`
		Reviews  []struct {
			Channel string `json:"channel"`
		} `json:"reviews"`
	}
	if code := getJSON(t, api.URL+"/api/reviews", &list); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if list.Total == 0 || !list.DemoData {
		t.Fatalf("fixture fallback must serve a non-empty demo set: %+v", list)
	}
	for i, rv := range list.Reviews {
		if rv.Channel != "demo" {
			t.Fatalf("review %d missing demo channel: %+v", i, rv)
		}
	}
}

func TestHTTP_ETagRoundTrip(t *testing.T) {
	up := newUpstream(t)
	defer up.Close()
	api := newAPI(t, up.URL)

	res, err := http.Get(api.URL + "/api/reviews")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req, _ := http.NewRequest(http.MethodGet, api.URL+"/api/reviews", nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional GET: %v", err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res2.StatusCode)
	}
}
