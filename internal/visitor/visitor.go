// Package visitor resolves the anonymous visitor identifier a business sees
// for this device profile.
package visitor

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/raven-widget/internal/storage"
)

const keyPrefix = "raven_visitor_"

// suffixLen is the length of the random base36 tail of a visitor id.
const suffixLen = 9

// Resolver reads and writes visitor ids through a storage backend.
type Resolver struct {
	store storage.Store
	now   func() time.Time
}

// NewResolver builds a resolver over store.
func NewResolver(store storage.Store) *Resolver {
	if store == nil {
		panic("visitor: store required")
	}
	return &Resolver{store: store, now: time.Now}
}

// Key returns the storage key that holds the visitor id for a business.
func Key(businessID string) string {
	return keyPrefix + businessID
}

// GetOrCreateVisitorID returns the persisted id for businessID, creating and
// storing one on first use. An id, once stored, is never regenerated.
func (r *Resolver) GetOrCreateVisitorID(ctx context.Context, businessID string) (string, error) {
	key := Key(businessID)
	existing, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("visitor: read id: %w", err)
	}
	if ok && existing != "" {
		return existing, nil
	}

	id := NewID(r.now())
	if err := r.store.Set(ctx, key, id); err != nil {
		return "", fmt.Errorf("visitor: write id: %w", err)
	}
	return id, nil
}

// NewID formats an identifier as v_<unix millis>_<random base36>.
func NewID(now time.Time) string {
	return fmt.Sprintf("v_%d_%s", now.UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(36)
	if len(s) < suffixLen {
		s = strings.Repeat("0", suffixLen-len(s)) + s
	}
	return s[len(s)-suffixLen:]
}
