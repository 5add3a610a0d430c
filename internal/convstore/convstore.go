// Package convstore caches the active conversation id per business and
// visitor. Last write wins; there is at most one cached id per pair.
package convstore

import (
	"context"
	"fmt"

	"github.com/wolfman30/raven-widget/internal/storage"
)

const keyPrefix = "raven_convo_"

// Store wraps a storage backend with conversation-scoped keys.
type Store struct {
	backend storage.Store
}

// New builds a Store over backend.
func New(backend storage.Store) *Store {
	if backend == nil {
		panic("convstore: backend required")
	}
	return &Store{backend: backend}
}

// Key returns the storage key for a (business, visitor) pair.
func Key(businessID, visitorID string) string {
	return keyPrefix + businessID + "_" + visitorID
}

// Get returns the cached conversation id, if any.
func (s *Store) Get(ctx context.Context, businessID, visitorID string) (string, bool, error) {
	id, ok, err := s.backend.Get(ctx, Key(businessID, visitorID))
	if err != nil {
		return "", false, fmt.Errorf("convstore: get: %w", err)
	}
	if !ok || id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// Set caches conversationID, replacing any previous value.
func (s *Store) Set(ctx context.Context, businessID, visitorID, conversationID string) error {
	if err := s.backend.Set(ctx, Key(businessID, visitorID), conversationID); err != nil {
		return fmt.Errorf("convstore: set: %w", err)
	}
	return nil
}

// Clear evicts the cached conversation id.
func (s *Store) Clear(ctx context.Context, businessID, visitorID string) error {
	if err := s.backend.Delete(ctx, Key(businessID, visitorID)); err != nil {
		return fmt.Errorf("convstore: clear: %w", err)
	}
	return nil
}
