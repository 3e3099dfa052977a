package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

// ModerationService owns approval-state mutations. Ids are validated against
// the current review set before the store is touched, so a rejected mutation
// leaves no partial state.
type ModerationService struct {
	feed      *ReviewFeed
	approvals domain.ApprovalStore
}

func NewModerationService(feed *ReviewFeed, approvals domain.ApprovalStore) *ModerationService {
	return &ModerationService{feed: feed, approvals: approvals}
}

// Approve sets one review's approval flag. Idempotent; unknown ids are
// rejected with ErrUnknownReview.
func (s *ModerationService) Approve(ctx context.Context, id string, approved bool) error {
	if !s.feed.Known(ctx, id) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownReview, id)
	}
	if err := s.approvals.Set(ctx, id, approved); err != nil {
		return err
	}
	log.Info().Str("review_id", id).Bool("approved", approved).Msg("approval updated")
	return nil
}

// ResetAll clears every approval and reports how many entries were cleared.
func (s *ModerationService) ResetAll(ctx context.Context) (int, error) {
	n, err := s.approvals.Reset(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int("cleared", n).Msg("approvals reset")
	return n, nil
}

// Snapshot exposes the store's current state for status inspection.
func (s *ModerationService) Snapshot(ctx context.Context) (map[string]bool, error) {
	return s.approvals.Snapshot(ctx)
}
