package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	M *app.ModerationService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/reviews", h.listReviews)
	s.mux.Get("/api/reviews/summary", h.propertySummaries)
	s.mux.Get("/api/reviews/status", h.approvalStatus)
	s.mux.Post("/api/reviews/approve", h.approveReview)
	s.mux.Post("/api/reviews/reset", h.resetApprovals)
	s.mux.Get("/api/properties/{listingID}/reviews", h.propertyReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

/********** dashboard query **********/

// Date params accept a plain date or a full timestamp.
var paramDateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDateParam(s string) (*time.Time, error) {
	for _, layout := range paramDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, errors.New("expected YYYY-MM-DD or RFC3339")
}

func queryFromRequest(r *http.Request) (domain.ReviewQuery, error) {
	q := domain.ReviewQuery{
		SortBy: r.URL.Query().Get("sort"),
		Order:  r.URL.Query().Get("order"),
	}
	q.Filter.Category = r.URL.Query().Get("category")
	q.Filter.Channel = r.URL.Query().Get("channel")

	if v := r.URL.Query().Get("minRating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, errors.New("minRating must be a number")
		}
		q.Filter.MinRating = &f
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := parseDateParam(v)
		if err != nil {
			return q, errors.New("from: " + err.Error())
		}
		q.Filter.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := parseDateParam(v)
		if err != nil {
			return q, errors.New("to: " + err.Error())
		}
		// inclusive day bound when only a date was given
		if len(v) == len("2006-01-02") {
			end := t.Add(24*time.Hour - time.Nanosecond)
			t = &end
		}
		q.Filter.To = t
	}
	return q, nil
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}

	page, err := h.Q.Query(r.Context(), q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) {
			writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Query failed", err.Error())
		return
	}

	writeWithETag(w, r, struct {
		Status   string          `json:"status"`
		Total    int             `json:"total"`
		DemoData bool            `json:"demo_data"`
		Reviews  []domain.Review `json:"reviews"`
	}{"success", len(page.Items), page.DemoData, page.Items})
}

func (h *Handlers) propertySummaries(w http.ResponseWriter, r *http.Request) {
	sums := h.Q.PropertySummaries(r.Context())
	writeWithETag(w, r, struct {
		Status     string                   `json:"status"`
		Properties []domain.PropertySummary `json:"properties"`
	}{"success", sums})
}

/********** public property page **********/

func (h *Handlers) propertyReviews(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	reviews := h.Q.PropertyReviews(r.Context(), listingID)

	name := h.Q.ListingName(r.Context(), listingID)

	writeWithETag(w, r, struct {
		Status        string          `json:"status"`
		ListingID     string          `json:"listing_id"`
		ListingName   string          `json:"listing_name"`
		AverageRating float64         `json:"average_rating"`
		Total         int             `json:"total"`
		Reviews       []domain.Review `json:"reviews"`
	}{"success", listingID, name, averageRating(reviews), len(reviews), reviews})
}

// averageRating is the mean of present ratings, rounded to one decimal.
func averageRating(rs []domain.Review) float64 {
	var sum float64
	var n int
	for _, rv := range rs {
		if rv.Rating != nil {
			sum += *rv.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*10) / 10
}

/********** moderation **********/

func (h *Handlers) approveReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReviewID string `json:"review_id"`
		Approved bool   `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ReviewID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {review_id, approved}")
		return
	}

	if err := h.M.Approve(r.Context(), body.ReviewID, body.Approved); err != nil {
		if errors.Is(err, domain.ErrUnknownReview) {
			observability.ObserveApproval("set", "rejected")
			writeProblem(w, http.StatusNotFound, "Unknown review", err.Error())
			return
		}
		observability.ObserveApproval("set", "error")
		writeProblem(w, http.StatusInternalServerError, "Approval failed", err.Error())
		return
	}
	observability.ObserveApproval("set", "ok")

	writeJSON(w, http.StatusOK, struct {
		Status   string `json:"status"`
		ReviewID string `json:"review_id"`
		Approved bool   `json:"approved"`
	}{"success", body.ReviewID, body.Approved})
}

func (h *Handlers) resetApprovals(w http.ResponseWriter, r *http.Request) {
	n, err := h.M.ResetAll(r.Context())
	if err != nil {
		observability.ObserveApproval("reset", "error")
		writeProblem(w, http.StatusInternalServerError, "Reset failed", err.Error())
		return
	}
	observability.ObserveApproval("reset", "ok")

	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Reset  int    `json:"reset"`
	}{"success", n})
}

func (h *Handlers) approvalStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.M.Snapshot(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Status failed", err.Error())
		return
	}
	total := 0
	for _, v := range snap {
		if v {
			total++
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Status         string          `json:"status"`
		ApprovalStatus map[string]bool `json:"approval_status"`
		TotalApproved  int             `json:"total_approved"`
	}{"success", snap, total})
}
