// Package memory holds the default in-process implementations of the
// approval store and cache ports. Both are safe for concurrent use.
package memory

import (
	"context"
	"sync"
)

// ApprovalStore is a process-lifetime review-id -> approved map.
// A missing key reads as not approved.
type ApprovalStore struct {
	mu sync.RWMutex
	m  map[string]bool
}

func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{m: make(map[string]bool)}
}

func (s *ApprovalStore) Set(ctx context.Context, id string, approved bool) error {
	s.mu.Lock()
	s.m[id] = approved
	s.mu.Unlock()
	return nil
}

func (s *ApprovalStore) Get(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	v := s.m[id]
	s.mu.RUnlock()
	return v, nil
}

func (s *ApprovalStore) Reset(ctx context.Context) (int, error) {
	s.mu.Lock()
	n := len(s.m)
	s.m = make(map[string]bool)
	s.mu.Unlock()
	return n, nil
}

func (s *ApprovalStore) Snapshot(ctx context.Context) (map[string]bool, error) {
	s.mu.RLock()
	out := make(map[string]bool, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	s.mu.RUnlock()
	return out, nil
}
