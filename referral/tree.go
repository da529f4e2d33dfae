/*
tree.go - Referral tree traversal and dealer registration

PURPOSE:
  Read/traversal abstraction over the dealer parent-link graph:
  - Validate:      referral code → approved dealer
  - WalkAncestors: bounded iterative walk up the parent chain
  - Register:      dealer signup with code generation and parent linking
  - SubtreeStats:  downline aggregation for dashboards

WALK SEMANTICS:
  Level 1 is the dealer itself; each hop up the parent link increments the
  level. The walk stops at the first missing parent or at maxLevels,
  whichever comes first. A visited set guards against cycles even though
  the fixed-at-creation parent link should make them impossible.
*/
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
)

// Tree exposes the referral hierarchy.
type Tree struct {
	Store Store
	Clock booking.Clock
}

func NewTree(store Store) *Tree {
	return &Tree{Store: store, Clock: booking.SystemClock{}}
}

// =============================================================================
// CODE VALIDATION
// =============================================================================

// Validate resolves a referral code to a dealer ID. Only APPROVED dealers
// are valid attribution targets; pending or rejected codes behave as
// unknown. Implements booking.DealerCodeValidator.
func (t *Tree) Validate(ctx context.Context, code string) (booking.DealerID, error) {
	dealer, err := t.Store.GetDealerByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if dealer.Status != DealerApproved {
		return "", fmt.Errorf("dealer for code %q is %s: %w", code, dealer.Status, booking.ErrNotFound)
	}
	return dealer.ID, nil
}

// =============================================================================
// ANCESTOR WALK
// =============================================================================

// WalkAncestors returns the dealer and its ancestors in level order,
// starting at level 1 (the dealer itself). A dealer with no parent yields
// a single-element result. The walk is iterative and doubly bounded: by
// maxLevels and by a visited set.
func (t *Tree) WalkAncestors(ctx context.Context, id booking.DealerID, maxLevels int) ([]Ancestor, error) {
	if maxLevels < 1 {
		return nil, fmt.Errorf("maxLevels must be positive, got %d: %w", maxLevels, booking.ErrInvalidInput)
	}

	var chain []Ancestor
	visited := make(map[booking.DealerID]bool)

	current := &id
	for level := 1; level <= maxLevels && current != nil; level++ {
		if visited[*current] {
			// Should be unreachable with a set-once parent link.
			return chain, fmt.Errorf("referral cycle detected at dealer %s", *current)
		}
		visited[*current] = true

		dealer, err := t.Store.GetDealer(ctx, *current)
		if err != nil {
			if level == 1 {
				return nil, fmt.Errorf("dealer %s: %w", *current, err)
			}
			// A dangling parent pointer truncates the chain rather than
			// failing the whole payout.
			break
		}

		chain = append(chain, Ancestor{Dealer: *dealer, Level: level})
		current = dealer.ParentID
	}

	return chain, nil
}

// =============================================================================
// REGISTRATION AND APPROVAL
// =============================================================================

// codeAttempts bounds retries when a generated code collides.
const codeAttempts = 5

// Register creates a dealer application. The parent link is resolved from
// parentCode when supplied and is immutable afterwards; the dealer starts
// PENDING and earns nothing until an admin approves it.
func (t *Tree) Register(ctx context.Context, userID booking.UserID, parentCode string) (*Dealer, error) {
	var parentID *booking.DealerID
	if parentCode != "" {
		id, err := t.Validate(ctx, parentCode)
		if err != nil {
			return nil, fmt.Errorf("parent code %q: %w", parentCode, err)
		}
		parentID = &id
	}

	now := t.Clock.Now()
	dealer := &Dealer{
		ID:         booking.DealerID(uuid.NewString()),
		UserID:     userID,
		Status:     DealerPending,
		ParentID:   parentID,
		Commission: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Codes are short and human-sharable, so collisions are possible;
	// retry with a fresh one on a unique-constraint conflict.
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		dealer.ReferralCode = NewReferralCode()
		err = t.Store.CreateDealer(ctx, dealer)
		if err == nil {
			return dealer, nil
		}
		if !errors.Is(err, booking.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not allocate a unique referral code: %w", err)
}

// NewReferralCode generates a short uppercase token, e.g. "RS-9F2C41D7".
func NewReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RS-" + strings.ToUpper(raw[:8])
}

// SetStatus moves a dealer through the admin approval flow.
func (t *Tree) SetStatus(ctx context.Context, id booking.DealerID, status DealerStatus) error {
	switch status {
	case DealerApproved, DealerRejected, DealerPending:
	default:
		return fmt.Errorf("unknown dealer status %q: %w", status, booking.ErrInvalidInput)
	}
	return t.Store.UpdateDealerStatus(ctx, id, status)
}

// =============================================================================
// SUBTREE AGGREGATION
// =============================================================================

// subtreeDepthLimit bounds the downline traversal the same way maxLevels
// bounds the upward walk.
const subtreeDepthLimit = 32

// SubtreeStats walks the dealer's downline breadth-first and aggregates
// descendant count and commission totals.
func (t *Tree) SubtreeStats(ctx context.Context, id booking.DealerID) (SubtreeStats, error) {
	root, err := t.Store.GetDealer(ctx, id)
	if err != nil {
		return SubtreeStats{}, fmt.Errorf("dealer %s: %w", id, err)
	}

	stats := SubtreeStats{DealerID: id, TotalCommission: root.Commission}
	visited := map[booking.DealerID]bool{id: true}
	frontier := []booking.DealerID{id}

	for depth := 0; depth < subtreeDepthLimit && len(frontier) > 0; depth++ {
		var next []booking.DealerID
		for _, parent := range frontier {
			children, err := t.Store.ListChildren(ctx, parent)
			if err != nil {
				return SubtreeStats{}, fmt.Errorf("children of %s: %w", parent, err)
			}
			for _, child := range children {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				stats.Descendants++
				stats.TotalCommission = stats.TotalCommission.Add(child.Commission)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}

	return stats, nil
}
