package redisad

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const approvalsKey = "reviews:approvals"

// ApprovalStore keeps the approval map in a redis hash so it survives
// process restarts. Field values are "1"/"0"; a missing field reads as
// not approved.
type ApprovalStore struct{ c *redis.Client }

func NewApprovalStore(c *redis.Client) *ApprovalStore { return &ApprovalStore{c: c} }

func (s *ApprovalStore) Set(ctx context.Context, id string, approved bool) error {
	v := "0"
	if approved {
		v = "1"
	}
	return s.c.HSet(ctx, approvalsKey, id, v).Err()
}

func (s *ApprovalStore) Get(ctx context.Context, id string) (bool, error) {
	v, err := s.c.HGet(ctx, approvalsKey, id).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *ApprovalStore) Reset(ctx context.Context) (int, error) {
	n, err := s.c.HLen(ctx, approvalsKey).Result()
	if err != nil {
		return 0, err
	}
	if err := s.c.Del(ctx, approvalsKey).Err(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *ApprovalStore) Snapshot(ctx context.Context) (map[string]bool, error) {
	m, err := s.c.HGetAll(ctx, approvalsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(m))
	for id, v := range m {
		out[id] = v == "1"
	}
	return out, nil
}
