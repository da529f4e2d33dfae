/*
availability.go - The CONFIRMED-overlap query

PURPOSE:
  Decides whether a window on a property is open. A booking B conflicts
  with [start, end] iff B is CONFIRMED and B.Start <= end && B.End >= start.

POLICY:
  Only CONFIRMED bookings block. PENDING bookings never block: multiple
  competing manual-payment submissions are allowed to coexist until an
  admin picks a winner at approval time. This is deliberate, not an
  oversight.

No side effects; safe to call repeatedly. Approve performs the same check
through the store inside its own transaction, so this read-only path is
advisory for Create and for the HTTP surface.
*/
package booking

import (
	"context"
	"fmt"
)

// Availability answers window queries over the store.
type Availability struct {
	Store Store
}

// IsAvailable reports whether no CONFIRMED booking overlaps [start, end]
// on the property. Returns ErrInvalidInput for an inverted window and
// ErrNotFound if the property does not exist.
func (a *Availability) IsAvailable(ctx context.Context, id PropertyID, w Window) (bool, error) {
	if !w.Valid() {
		return false, fmt.Errorf("window start after end: %w", ErrInvalidInput)
	}
	if _, err := a.Store.GetProperty(ctx, id); err != nil {
		return false, err
	}

	winner, err := a.Store.FindConfirmedOverlap(ctx, id, w)
	if err != nil {
		return false, fmt.Errorf("overlap query: %w", err)
	}
	return winner == nil, nil
}
