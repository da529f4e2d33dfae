package referral_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestTree(t *testing.T) (*referral.Tree, referral.TxStore) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dealers := store.Dealers()
	return referral.NewTree(dealers), dealers
}

// approvedDealer registers and immediately approves a dealer.
func approvedDealer(t *testing.T, tree *referral.Tree, userID booking.UserID, parentCode string) *referral.Dealer {
	t.Helper()
	ctx := context.Background()

	dealer, err := tree.Register(ctx, userID, parentCode)
	require.NoError(t, err)
	require.NoError(t, tree.SetStatus(ctx, dealer.ID, referral.DealerApproved))
	dealer.Status = referral.DealerApproved
	return dealer
}

// dealerChain builds root <- mid <- leaf and returns them leaf-first.
func dealerChain(t *testing.T, tree *referral.Tree) (leaf, mid, root *referral.Dealer) {
	t.Helper()
	root = approvedDealer(t, tree, "user-root", "")
	mid = approvedDealer(t, tree, "user-mid", root.ReferralCode)
	leaf = approvedDealer(t, tree, "user-leaf", mid.ReferralCode)
	return leaf, mid, root
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestRegister_RootDealer_PendingWithCode(t *testing.T) {
	// GIVEN: No existing dealers
	// WHEN: A user registers without a parent code
	// THEN: A PENDING root dealer with a fresh RS- code is created

	ctx := context.Background()
	tree, dealers := newTestTree(t)

	dealer, err := tree.Register(ctx, "user-1", "")
	require.NoError(t, err)

	assert.Equal(t, referral.DealerPending, dealer.Status)
	assert.Nil(t, dealer.ParentID)
	assert.True(t, strings.HasPrefix(dealer.ReferralCode, "RS-"))
	assert.True(t, dealer.Commission.IsZero())

	stored, err := dealers.GetDealerByCode(ctx, dealer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, dealer.ID, stored.ID)
}

func TestRegister_WithParentCode_LinksParent(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	parent := approvedDealer(t, tree, "user-parent", "")

	child, err := tree.Register(ctx, "user-child", parent.ReferralCode)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
}

func TestRegister_PendingParentCode_Rejected(t *testing.T) {
	// A code only works as a parent link once its dealer is approved.

	ctx := context.Background()
	tree, _ := newTestTree(t)

	parent, err := tree.Register(ctx, "user-parent", "")
	require.NoError(t, err)

	_, err = tree.Register(ctx, "user-child", parent.ReferralCode)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestRegister_UnknownParentCode_NotFound(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	_, err := tree.Register(ctx, "user-1", "RS-DOESNOTEXIST")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

// =============================================================================
// CODE VALIDATION
// =============================================================================

func TestValidate_ApprovedDealer_ReturnsID(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	dealer := approvedDealer(t, tree, "user-1", "")

	id, err := tree.Validate(ctx, dealer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, dealer.ID, id)
}

func TestValidate_RejectedDealer_NotFound(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	dealer := approvedDealer(t, tree, "user-1", "")
	require.NoError(t, tree.SetStatus(ctx, dealer.ID, referral.DealerRejected))

	_, err := tree.Validate(ctx, dealer.ReferralCode)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestSetStatus_UnknownStatus_InvalidInput(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	dealer := approvedDealer(t, tree, "user-1", "")

	err := tree.SetStatus(ctx, dealer.ID, "frozen")
	assert.ErrorIs(t, err, booking.ErrInvalidInput)
}

// =============================================================================
// ANCESTOR WALK
// =============================================================================

func TestWalkAncestors_Chain_LevelOrder(t *testing.T) {
	// GIVEN: root <- mid <- leaf
	// WHEN: Walking from the leaf
	// THEN: Levels 1..3 are leaf, mid, root

	ctx := context.Background()
	tree, _ := newTestTree(t)
	leaf, mid, root := dealerChain(t, tree)

	chain, err := tree.WalkAncestors(ctx, leaf.ID, 5)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	assert.Equal(t, leaf.ID, chain[0].Dealer.ID)
	assert.Equal(t, 1, chain[0].Level)
	assert.Equal(t, mid.ID, chain[1].Dealer.ID)
	assert.Equal(t, 2, chain[1].Level)
	assert.Equal(t, root.ID, chain[2].Dealer.ID)
	assert.Equal(t, 3, chain[2].Level)
}

func TestWalkAncestors_MaxLevelsTruncates(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)
	leaf, _, _ := dealerChain(t, tree)

	chain, err := tree.WalkAncestors(ctx, leaf.ID, 2)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestWalkAncestors_NoParent_SingleElement(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	dealer := approvedDealer(t, tree, "user-1", "")

	chain, err := tree.WalkAncestors(ctx, dealer.ID, 5)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, dealer.ID, chain[0].Dealer.ID)
}

func TestWalkAncestors_UnknownDealer_NotFound(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	_, err := tree.WalkAncestors(ctx, "ghost", 3)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestWalkAncestors_ZeroMaxLevels_InvalidInput(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)

	_, err := tree.WalkAncestors(ctx, "any", 0)
	assert.ErrorIs(t, err, booking.ErrInvalidInput)
}

// =============================================================================
// SUBTREE AGGREGATION
// =============================================================================

func TestSubtreeStats_CountsAllDepths(t *testing.T) {
	// GIVEN: root with one child and one grandchild
	// WHEN: Aggregating from the root
	// THEN: 2 descendants, commission totals summed over all three

	ctx := context.Background()
	tree, dealers := newTestTree(t)
	leaf, mid, root := dealerChain(t, tree)

	require.NoError(t, dealers.AddDealerCommission(ctx, root.ID, decimal.NewFromInt(100)))
	require.NoError(t, dealers.AddDealerCommission(ctx, mid.ID, decimal.NewFromInt(50)))
	require.NoError(t, dealers.AddDealerCommission(ctx, leaf.ID, decimal.NewFromInt(25)))

	stats, err := tree.SubtreeStats(ctx, root.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Descendants)
	assert.True(t, stats.TotalCommission.Equal(decimal.NewFromInt(175)),
		"expected 175, got %s", stats.TotalCommission)
}

func TestSubtreeStats_LeafDealer_NoDescendants(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestTree(t)
	leaf, _, _ := dealerChain(t, tree)

	stats, err := tree.SubtreeStats(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Descendants)
}
