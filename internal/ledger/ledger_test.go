package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol = common.HexToAddress("0x3333333333333333333333333333333333333333")
	mallory = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

func newTestGroup(t *testing.T, members ...common.Address) *Group {
	t.Helper()
	g, err := NewGroup("trip", members)
	require.NoError(t, err)
	return g
}

// sumBalances asserts the zero-sum invariant.
func sumBalances(t *testing.T, g *Group) {
	t.Helper()
	var sum int64
	for _, v := range g.Balances {
		sum += v
	}
	require.Zero(t, sum, "balances must sum to zero")
}

// memToken is an in-memory settlement currency for tests.
type memToken struct {
	balances map[common.Address]int64
}

func newMemToken(funded map[common.Address]int64) *memToken {
	b := make(map[common.Address]int64)
	for k, v := range funded {
		b[k] = v
	}
	return &memToken{balances: b}
}

func (m *memToken) Transfer(from, to common.Address, amount int64) error {
	if m.balances[from] < amount {
		return &InsufficientFundsError{Message: "insufficient wallet balance"}
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

func TestNewGroupValidation(t *testing.T) {
	tests := []struct {
		name    string
		gname   string
		members []common.Address
	}{
		{"empty name", "", []common.Address{alice}},
		{"no members", "trip", nil},
		{"duplicate member", "trip", []common.Address{alice, bob, alice}},
		{"zero address", "trip", []common.Address{alice, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGroup(tt.gname, tt.members)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestAddBillEqualSplit(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	bill, err := g.AddBill(alice, "Dinner", 100, []common.Address{alice, bob})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), bill.Seq)
	assert.Equal(t, int64(50), bill.Shares[0].Amount)
	assert.Equal(t, int64(50), bill.Shares[1].Amount)
	assert.Equal(t, int64(50), g.Balances[alice])
	assert.Equal(t, int64(-50), g.Balances[bob])
	sumBalances(t, g)
}

func TestAddBillRemainderGoesToFirstParticipants(t *testing.T) {
	g := newTestGroup(t, alice, bob, carol)

	bill, err := g.AddBill(alice, "Drinks", 100, []common.Address{alice, bob, carol})
	require.NoError(t, err)

	// 100 / 3 = 33 remainder 1; the extra micro-unit lands on the first
	// participant so the shares still sum exactly to the total.
	assert.Equal(t, int64(34), bill.Shares[0].Amount)
	assert.Equal(t, int64(33), bill.Shares[1].Amount)
	assert.Equal(t, int64(33), bill.Shares[2].Amount)

	var shareSum int64
	for _, s := range bill.Shares {
		shareSum += s.Amount
	}
	assert.Equal(t, bill.TotalAmount, shareSum)
	sumBalances(t, g)
}

func TestAddBillValidation(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	_, err := g.AddBill(mallory, "Sneaky", 10, []common.Address{alice})
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	var verr *ValidationError
	_, err = g.AddBill(alice, "Free lunch", 0, []common.Address{alice})
	require.ErrorAs(t, err, &verr)

	_, err = g.AddBill(alice, "Nobody", 10, nil)
	require.ErrorAs(t, err, &verr)

	_, err = g.AddBill(alice, "Outsider", 10, []common.Address{alice, mallory})
	require.ErrorAs(t, err, &verr)

	_, err = g.AddBill(alice, "Twice", 10, []common.Address{bob, bob})
	require.ErrorAs(t, err, &verr)

	// Nothing was appended and balances stayed untouched.
	assert.Zero(t, g.BillCount())
	assert.Zero(t, g.Balances[alice])
	sumBalances(t, g)
}

func TestAddCustomBill(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	_, err := g.AddCustomBill(alice, "Taxi", 20, []common.Address{alice, bob}, []int64{15, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), g.Balances[alice]) // +20 payer credit, -15 own share
	assert.Equal(t, int64(-5), g.Balances[bob])
	sumBalances(t, g)
}

func TestAddCustomBillValidation(t *testing.T) {
	g := newTestGroup(t, alice, bob)
	var verr *ValidationError

	_, err := g.AddCustomBill(alice, "Mismatch", 20, []common.Address{alice, bob}, []int64{15, 4})
	require.ErrorAs(t, err, &verr)

	_, err = g.AddCustomBill(alice, "Short", 20, []common.Address{alice, bob}, []int64{20})
	require.ErrorAs(t, err, &verr)

	_, err = g.AddCustomBill(alice, "Negative", 20, []common.Address{alice, bob}, []int64{25, -5})
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, g.BillCount())
}

// TestTwoBillLedger walks a two-bill ledger: Dinner 100 split evenly, then a
// custom Taxi 20 paid by alice with shares 15/5.
func TestTwoBillLedger(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	_, err := g.AddBill(alice, "Dinner", 100, []common.Address{alice, bob})
	require.NoError(t, err)
	assert.Equal(t, int64(50), g.Balances[alice])
	assert.Equal(t, int64(-50), g.Balances[bob])

	_, err = g.AddCustomBill(alice, "Taxi", 20, []common.Address{alice, bob}, []int64{15, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(55), g.Balances[alice])
	assert.Equal(t, int64(-55), g.Balances[bob])
	sumBalances(t, g)

	assert.Equal(t, int64(55), g.TotalOwed())
}

func TestBillViews(t *testing.T) {
	g := newTestGroup(t, alice, bob, carol)

	_, err := g.AddBill(alice, "Dinner", 90, []common.Address{alice, bob, carol})
	require.NoError(t, err)
	_, err = g.AddBill(bob, "Taxi", 30, []common.Address{alice, bob, carol})
	require.NoError(t, err)

	assert.Len(t, g.UnsettledBills(), 2)
	assert.Len(t, g.BillsByPayer(alice), 1)
	assert.Len(t, g.BillsByPayer(carol), 0)
	assert.Empty(t, g.BillsBySettlement(1))
	assert.Equal(t, 2, g.BillCount())
}

func TestBalanceReads(t *testing.T) {
	g := newTestGroup(t, alice, bob)

	_, err := g.Balance(mallory)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	b, err := g.Balance(alice)
	require.NoError(t, err)
	assert.Zero(t, b)

	all := g.AllBalances()
	all[alice] = 42
	assert.Zero(t, g.Balances[alice], "AllBalances must return a copy")
}

func TestEscrowAddressIsStablePerGroup(t *testing.T) {
	a := &Group{ID: 1}
	b := &Group{ID: 2}
	assert.Equal(t, a.EscrowAddress(), (&Group{ID: 1}).EscrowAddress())
	assert.NotEqual(t, a.EscrowAddress(), b.EscrowAddress())
}
