package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedEntropy(t *testing.T, v int64) {
	t.Helper()
	old := entropySource
	entropySource = func() int64 { return v }
	t.Cleanup(func() { entropySource = old })
}

func TestProposeGamblePreconditions(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	_, err := g.ProposeGamble(mallory)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	_, err = g.ProposeGamble(alice)
	var nerr *NoDebtsError
	require.ErrorAs(t, err, &nerr, "no unsettled bills")

	seedDebts(t, g)
	_, err = g.TriggerSettlement(alice)
	require.NoError(t, err)
	_, err = g.ProposeGamble(alice)
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr, "gamble blocked while settlement active")
}

func TestProposeGambleCountsProposerVote(t *testing.T) {
	g := newTestGroup(t, alice, bob, carol)
	_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
	require.NoError(t, err)

	result, err := g.ProposeGamble(alice)
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Equal(t, 1, result.VoteCount)

	status := g.GambleStatusForUser(alice)
	assert.True(t, status.Active)
	assert.Equal(t, alice, status.Proposer)
	assert.Equal(t, 3, status.RequiredVotes)
	assert.True(t, status.HasVoted)
	assert.False(t, g.GambleStatusForUser(bob).HasVoted)

	_, err = g.ProposeGamble(bob)
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr, "one proposal at a time")
}

func TestGambleNeedsUnanimity(t *testing.T) {
	g := newTestGroup(t, alice, bob, carol)
	_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
	require.NoError(t, err)

	_, err = g.ProposeGamble(alice)
	require.NoError(t, err)

	result, err := g.VoteOnGamble(bob, true)
	require.NoError(t, err)
	assert.False(t, result.Executed, "2 of 3 votes must not execute")
	assert.Equal(t, 2, result.VoteCount)
	assert.True(t, g.GambleActive())
	assert.Len(t, g.UnsettledBills(), 1)

	result, err = g.VoteOnGamble(carol, true)
	require.NoError(t, err)
	assert.True(t, result.Executed)
	assert.False(t, g.GambleActive())
}

func TestGambleNoVoteCancelsProposal(t *testing.T) {
	g := newTestGroup(t, alice, bob, carol)
	_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
	require.NoError(t, err)

	_, err = g.ProposeGamble(alice)
	require.NoError(t, err)

	result, err := g.VoteOnGamble(bob, false)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.False(t, g.GambleActive())

	// The debts are untouched and a new proposal can go up.
	assert.Len(t, g.UnsettledBills(), 1)
	sumBalances(t, g)
	_, err = g.ProposeGamble(carol)
	require.NoError(t, err)
}

func TestGambleVoteChecks(t *testing.T) {
	g := newTestGroup(t, alice, bob, carol)
	_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
	require.NoError(t, err)

	var serr *InvalidStateError
	_, err = g.VoteOnGamble(bob, true)
	require.ErrorAs(t, err, &serr, "no proposal active")

	_, err = g.ProposeGamble(alice)
	require.NoError(t, err)

	var aerr *AuthorizationError
	_, err = g.VoteOnGamble(mallory, true)
	require.ErrorAs(t, err, &aerr)

	_, err = g.VoteOnGamble(alice, true)
	require.ErrorAs(t, err, &serr, "proposer already voted")

	_, err = g.VoteOnGamble(bob, true)
	require.NoError(t, err)
	_, err = g.VoteOnGamble(bob, true)
	require.ErrorAs(t, err, &serr, "double vote")
}

func TestGambleExecutionCollapsesDebtOntoLoser(t *testing.T) {
	fixedEntropy(t, 424242)
	g := newTestGroup(t, alice, bob, carol)

	_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
	require.NoError(t, err)
	_, err = g.AddCustomBill(bob, "Taxi", 30, []common.Address{bob, carol}, []int64{10, 20})
	require.NoError(t, err)
	before := g.AllBalances()
	sumBalances(t, g)

	_, err = g.ProposeGamble(alice)
	require.NoError(t, err)
	_, err = g.VoteOnGamble(bob, true)
	require.NoError(t, err)
	result, err := g.VoteOnGamble(carol, true)
	require.NoError(t, err)
	require.True(t, result.Executed)

	loser := result.Loser
	assert.True(t, g.IsMember(loser))
	assert.Equal(t, int64(120), result.Collapsed, "gross sum of unsettled totals")

	// Every participant got their share handed back and the loser absorbed
	// the gross total of both bills.
	shareOf := map[common.Address]int64{alice: 30, bob: 30 + 10, carol: 30 + 20}
	for _, m := range g.Members {
		want := before[m] + shareOf[m]
		if m == loser {
			want -= 120
		}
		assert.Equal(t, want, g.Balances[m], "balance of %s", m.Hex())
	}
	sumBalances(t, g)

	// Bills are settled under the freshly incremented settlement id.
	assert.Empty(t, g.UnsettledBills())
	assert.Equal(t, uint64(1), g.SettlementCounter)
	assert.Equal(t, uint64(1), result.SettlementID)
	assert.Len(t, g.BillsBySettlement(1), 2)

	// If residual debts remain, the normal settlement protocol still works.
	if g.TotalOwed() > 0 {
		_, err := g.TriggerSettlement(alice)
		require.NoError(t, err)
	}
}

func TestGambleDrawIsDeterministicForFixedEntropy(t *testing.T) {
	run := func() common.Address {
		fixedEntropy(t, 7)
		g := newTestGroup(t, alice, bob, carol)
		_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
		require.NoError(t, err)
		_, err = g.ProposeGamble(alice)
		require.NoError(t, err)
		_, err = g.VoteOnGamble(bob, true)
		require.NoError(t, err)
		result, err := g.VoteOnGamble(carol, true)
		require.NoError(t, err)
		require.True(t, result.Executed)
		return result.Loser
	}
	assert.Equal(t, run(), run())
}

func TestSingleMemberGambleExecutesOnProposal(t *testing.T) {
	g := newTestGroup(t, alice)
	_, err := g.AddBill(alice, "Solo dinner", 50, []common.Address{alice})
	require.NoError(t, err)
	require.Len(t, g.UnsettledBills(), 1)

	result, err := g.ProposeGamble(alice)
	require.NoError(t, err)
	assert.True(t, result.Executed)
	assert.Equal(t, alice, result.Loser)
	assert.False(t, g.GambleActive())
	assert.Zero(t, g.Balances[alice])
	assert.Empty(t, g.UnsettledBills())
}
