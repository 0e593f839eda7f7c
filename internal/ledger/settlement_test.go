package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedDebts puts the group into an alice=+55 / bob=-55 state via one equal
// and one custom bill, and returns a token bank where bob can cover his debt.
func seedDebts(t *testing.T, g *Group) *memToken {
	t.Helper()
	_, err := g.AddBill(alice, "Dinner", 100, []common.Address{alice, bob})
	require.NoError(t, err)
	_, err = g.AddCustomBill(alice, "Taxi", 20, []common.Address{alice, bob}, []int64{15, 5})
	require.NoError(t, err)
	return newMemToken(map[common.Address]int64{bob: 100})
}

func TestTriggerSettlementPartition(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	seedDebts(t, g)

	s, err := g.TriggerSettlement(bob)
	require.NoError(t, err)
	require.Len(t, s.Creditors, 1)
	require.Len(t, s.Debtors, 1)
	assert.Equal(t, alice, s.Creditors[0].Member)
	assert.Equal(t, int64(55), s.Creditors[0].Amount)
	assert.Equal(t, bob, s.Debtors[0].Member)
	assert.Equal(t, int64(55), s.Debtors[0].Amount)
	assert.Equal(t, PhaseTriggered, s.Phase)
	assert.Len(t, s.BillSeqs, 2)
	assert.True(t, g.SettlementActive())
}

func TestTriggerSettlementPreconditions(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	_, err := g.TriggerSettlement(mallory)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	_, err = g.TriggerSettlement(alice)
	var nerr *NoDebtsError
	require.ErrorAs(t, err, &nerr, "all balances zero")

	seedDebts(t, g)
	_, err = g.TriggerSettlement(alice)
	require.NoError(t, err)

	_, err = g.TriggerSettlement(bob)
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr, "one settlement at a time")
}

func TestSettlementFullRound(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	token := seedDebts(t, g)
	_, err := g.TriggerSettlement(alice)
	require.NoError(t, err)

	distributed, err := g.ApproveSettlement(alice, token)
	require.NoError(t, err)
	assert.False(t, distributed)
	assert.Equal(t, PhaseFunding, g.Settlement.Phase)
	assert.True(t, g.HasApproved(alice))

	distributed, err = g.FundSettlement(bob, token)
	require.NoError(t, err)
	assert.True(t, distributed)

	// Distribution zeroed the balances, paid Alice out of escrow, stamped
	// the bills and bumped the counter.
	assert.False(t, g.SettlementActive())
	assert.Zero(t, g.Balances[alice])
	assert.Zero(t, g.Balances[bob])
	sumBalances(t, g)
	assert.Equal(t, uint64(1), g.SettlementCounter)
	assert.Empty(t, g.UnsettledBills())
	assert.Len(t, g.BillsBySettlement(1), 2)
	assert.Equal(t, int64(55), token.balances[alice])
	assert.Equal(t, int64(45), token.balances[bob])
	assert.Zero(t, token.balances[g.EscrowAddress()])
}

func TestFundBeforeApproveDistributesOnLastApproval(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	token := seedDebts(t, g)
	_, err := g.TriggerSettlement(alice)
	require.NoError(t, err)

	distributed, err := g.FundSettlement(bob, token)
	require.NoError(t, err)
	assert.False(t, distributed, "funding alone must not distribute")
	assert.True(t, g.HasFunded(bob))
	assert.Equal(t, int64(55), token.balances[g.EscrowAddress()])

	distributed, err = g.ApproveSettlement(alice, token)
	require.NoError(t, err)
	assert.True(t, distributed)
	assert.Equal(t, int64(55), token.balances[alice])
}

func TestApproveSettlementIdempotent(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	token := seedDebts(t, g)
	_, err := g.TriggerSettlement(alice)
	require.NoError(t, err)

	_, err = g.ApproveSettlement(alice, token)
	require.NoError(t, err)
	before := *g.Settlement.Creditors[0]

	distributed, err := g.ApproveSettlement(alice, token)
	require.NoError(t, err)
	assert.False(t, distributed)
	assert.Equal(t, before, *g.Settlement.Creditors[0])
}

func TestSettlementRoleChecks(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	token := seedDebts(t, g)

	var serr *InvalidStateError
	_, err := g.ApproveSettlement(alice, token)
	require.ErrorAs(t, err, &serr, "no settlement active")
	_, err = g.FundSettlement(bob, token)
	require.ErrorAs(t, err, &serr, "no settlement active")

	_, err = g.TriggerSettlement(alice)
	require.NoError(t, err)

	var aerr *AuthorizationError
	_, err = g.ApproveSettlement(bob, token)
	require.ErrorAs(t, err, &aerr, "debtor cannot approve")
	_, err = g.FundSettlement(alice, token)
	require.ErrorAs(t, err, &aerr, "creditor cannot fund")

	_, err = g.FundSettlement(bob, token)
	require.NoError(t, err)
	_, err = g.FundSettlement(bob, token)
	require.ErrorAs(t, err, &serr, "double funding")
}

func TestFundSettlementInsufficientFunds(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	seedDebts(t, g)
	broke := newMemToken(map[common.Address]int64{bob: 10})
	_, err := g.TriggerSettlement(alice)
	require.NoError(t, err)

	_, err = g.FundSettlement(bob, broke)
	var ferr *InsufficientFundsError
	require.ErrorAs(t, err, &ferr)

	// The round is untouched: Bob is still unfunded and can retry.
	assert.False(t, g.HasFunded(bob))
	assert.Equal(t, int64(10), broke.balances[bob])
}

func TestCancelSettlementRefundsFundedDebtors(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	token := seedDebts(t, g)
	_, err := g.TriggerSettlement(alice)
	require.NoError(t, err)
	_, err = g.FundSettlement(bob, token)
	require.NoError(t, err)
	require.Equal(t, int64(45), token.balances[bob])

	require.NoError(t, g.CancelSettlement(alice, token))
	assert.False(t, g.SettlementActive())
	assert.Equal(t, int64(100), token.balances[bob], "escrow refunded")
	assert.Zero(t, token.balances[g.EscrowAddress()])

	// Balances were never zeroed, so a fresh round can be triggered.
	_, err = g.TriggerSettlement(bob)
	require.NoError(t, err)
}

func TestBillsAddedMidRoundStayOutOfSnapshot(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	token := seedDebts(t, g)
	_, err := g.TriggerSettlement(alice)
	require.NoError(t, err)

	// A bill arriving after the trigger is not part of this round.
	_, err = g.AddBill(bob, "Late snack", 10, []common.Address{alice, bob})
	require.NoError(t, err)

	_, err = g.ApproveSettlement(alice, token)
	require.NoError(t, err)
	distributed, err := g.FundSettlement(bob, token)
	require.NoError(t, err)
	require.True(t, distributed)

	unsettled := g.UnsettledBills()
	require.Len(t, unsettled, 1)
	assert.Equal(t, "Late snack", unsettled[0].Description)
	// Only the snapshotted amounts were cleared; the late bill's delta
	// (Bob paid 10, Alice owes 5) carries into the next round.
	assert.Equal(t, int64(-5), g.Balances[alice])
	assert.Equal(t, int64(5), g.Balances[bob])
	sumBalances(t, g)
}

func TestMutualExclusionWithGamble(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	seedDebts(t, g)

	_, err := g.ProposeGamble(alice)
	require.NoError(t, err)

	_, err = g.TriggerSettlement(bob)
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr, "settlement blocked while gamble active")
}
