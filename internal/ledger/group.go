// Package ledger implements the per-group bill ledger: member balances, the
// append-only bill journal, the creditor-approval settlement protocol and the
// unanimous-vote gamble protocol.
//
// A Group is an aggregate root. All mutation goes through its methods, one
// caller at a time (the store serializes writers per group with a row lock),
// and every successful mutation preserves the zero-sum invariant: the signed
// balances of all members always add up to exactly zero.
package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Token moves settlement currency between wallet addresses. Settlement
// funding, distribution and cancel refunds go through it; the production
// implementation debits/credits wallet rows inside the same database
// transaction as the ledger mutation, so a failed transfer aborts the whole
// operation.
type Token interface {
	Transfer(from, to common.Address, amount int64) error
}

// Group holds the full ledger state of one bill-splitting group.
//
// Fields are exported for persistence, but handlers and stores must never
// mutate them directly; use the operation methods so the invariants hold.
type Group struct {
	ID      int64
	Name    string
	Members []common.Address

	// Balances maps member address to signed micro-units. Positive means
	// the member is owed money, negative means they owe.
	Balances map[common.Address]int64

	Bills   []*Bill
	BillSeq uint64

	Settlement *Settlement
	Gamble     *Gamble

	// SettlementCounter increments each time a settlement round resolves,
	// whether through distribution or a gamble execution.
	SettlementCounter uint64
}

// NewGroup validates the member list and returns a fresh group with all
// balances at zero. This is the factory's entry point.
func NewGroup(name string, members []common.Address) (*Group, error) {
	if name == "" {
		return nil, validationErrorf("group name is required")
	}
	if len(members) == 0 {
		return nil, validationErrorf("group must have at least one member")
	}
	seen := make(map[common.Address]bool, len(members))
	for _, m := range members {
		if m == (common.Address{}) {
			return nil, validationErrorf("zero address cannot be a member")
		}
		if seen[m] {
			return nil, validationErrorf("duplicate member %s", m.Hex())
		}
		seen[m] = true
	}
	balances := make(map[common.Address]int64, len(members))
	for _, m := range members {
		balances[m] = 0
	}
	return &Group{
		Name:     name,
		Members:  append([]common.Address(nil), members...),
		Balances: balances,
	}, nil
}

// IsMember reports whether addr belongs to this group.
func (g *Group) IsMember(addr common.Address) bool {
	for _, m := range g.Members {
		if m == addr {
			return true
		}
	}
	return false
}

// MemberCount returns the number of members.
func (g *Group) MemberCount() int { return len(g.Members) }

// Balance returns the signed balance of a member in micro-units.
func (g *Group) Balance(addr common.Address) (int64, error) {
	if !g.IsMember(addr) {
		return 0, authErrorf("%s is not a member of group %q", addr.Hex(), g.Name)
	}
	return g.Balances[addr], nil
}

// AllBalances returns a copy of the balance map.
func (g *Group) AllBalances() map[common.Address]int64 {
	out := make(map[common.Address]int64, len(g.Balances))
	for k, v := range g.Balances {
		out[k] = v
	}
	return out
}

// TotalOwed returns the sum of all positive balances, i.e. the amount that
// would change hands if the group settled right now.
func (g *Group) TotalOwed() int64 {
	var total int64
	for _, v := range g.Balances {
		if v > 0 {
			total += v
		}
	}
	return total
}

// SettlementActive reports whether a settlement round is in flight.
func (g *Group) SettlementActive() bool { return g.Settlement != nil }

// GambleActive reports whether a gamble proposal is in flight.
func (g *Group) GambleActive() bool { return g.Gamble != nil }

// EscrowAddress derives the pseudo-address that holds funded settlement
// amounts for this group until distribution.
func (g *Group) EscrowAddress() common.Address {
	h := crypto.Keccak256([]byte("chainsplit/escrow"), common.LeftPadBytes(big64(g.ID), 8))
	return common.BytesToAddress(h[12:])
}

func big64(v int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// now is swapped out in tests.
var now = time.Now
