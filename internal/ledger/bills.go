package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// Share is one participant's slice of a bill.
type Share struct {
	Participant common.Address `json:"participant"`
	Amount      int64          `json:"amount"`
}

// Bill is an immutable journal record of a shared expense. Once appended it
// is never edited except to flip Settled and stamp the SettlementID when a
// settlement round or gamble resolves it.
type Bill struct {
	// ID is the database key, zero until the bill is first persisted.
	ID int64 `json:"id"`
	// Seq is the monotonic per-group sequence number.
	Seq          uint64         `json:"seq"`
	Description  string         `json:"description"`
	TotalAmount  int64          `json:"total_amount"`
	Payer        common.Address `json:"payer"`
	Shares       []Share        `json:"shares"`
	CreatedAt    int64          `json:"created_at"`
	Settled      bool           `json:"settled"`
	SettlementID uint64         `json:"settlement_id,omitempty"`

	// dirty marks a persisted bill whose settled flag changed in memory.
	dirty bool
}

// Dirty reports whether a persisted bill needs its settled flag rewritten.
// Used by the store; cleared after a successful save.
func (b *Bill) Dirty() bool  { return b.dirty }
func (b *Bill) ClearDirty()  { b.dirty = false }
func (b *Bill) markSettled(settlementID uint64) {
	b.Settled = true
	b.SettlementID = settlementID
	if b.ID != 0 {
		b.dirty = true
	}
}

// AddBill appends an equal-split bill. The total is divided evenly across
// the participants; the remainder micro-units go to the first participants
// in list order so the shares always sum exactly to the total.
func (g *Group) AddBill(caller common.Address, description string, totalAmount int64, participants []common.Address) (*Bill, error) {
	if err := g.validateBill(caller, totalAmount, participants); err != nil {
		return nil, err
	}
	n := int64(len(participants))
	base := totalAmount / n
	remainder := totalAmount % n
	shares := make([]Share, len(participants))
	for i, p := range participants {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		shares[i] = Share{Participant: p, Amount: amount}
	}
	return g.appendBill(description, totalAmount, caller, shares), nil
}

// AddCustomBill appends a bill with explicit per-participant amounts. The
// amounts must line up with the participants and sum exactly to totalAmount.
func (g *Group) AddCustomBill(caller common.Address, description string, totalAmount int64, participants []common.Address, amounts []int64) (*Bill, error) {
	if err := g.validateBill(caller, totalAmount, participants); err != nil {
		return nil, err
	}
	if len(amounts) != len(participants) {
		return nil, validationErrorf("got %d amounts for %d participants", len(amounts), len(participants))
	}
	var sum int64
	shares := make([]Share, len(participants))
	for i, amount := range amounts {
		if amount <= 0 {
			return nil, validationErrorf("share for %s must be greater than 0", participants[i].Hex())
		}
		sum += amount
		shares[i] = Share{Participant: participants[i], Amount: amount}
	}
	if sum != totalAmount {
		return nil, validationErrorf("shares sum to %s but total is %s", FormatAmount(sum), FormatAmount(totalAmount))
	}
	return g.appendBill(description, totalAmount, caller, shares), nil
}

func (g *Group) validateBill(caller common.Address, totalAmount int64, participants []common.Address) error {
	if !g.IsMember(caller) {
		return authErrorf("%s is not a member of group %q", caller.Hex(), g.Name)
	}
	if totalAmount <= 0 {
		return validationErrorf("total amount must be greater than 0")
	}
	if len(participants) == 0 {
		return validationErrorf("bill needs at least one participant")
	}
	seen := make(map[common.Address]bool, len(participants))
	for _, p := range participants {
		if !g.IsMember(p) {
			return validationErrorf("participant %s is not a member of group %q", p.Hex(), g.Name)
		}
		if seen[p] {
			return validationErrorf("duplicate participant %s", p.Hex())
		}
		seen[p] = true
	}
	return nil
}

// appendBill writes the journal record and applies the balance delta: the
// payer is credited the full total, each participant is debited their share.
// The payer's own share nets out against their credit.
func (g *Group) appendBill(description string, totalAmount int64, payer common.Address, shares []Share) *Bill {
	g.BillSeq++
	bill := &Bill{
		Seq:         g.BillSeq,
		Description: description,
		TotalAmount: totalAmount,
		Payer:       payer,
		Shares:      shares,
		CreatedAt:   now().Unix(),
	}
	g.Bills = append(g.Bills, bill)
	g.Balances[payer] += totalAmount
	for _, s := range shares {
		g.Balances[s.Participant] -= s.Amount
	}
	return bill
}

// UnsettledBills returns the bills not yet covered by a settlement round.
func (g *Group) UnsettledBills() []*Bill {
	var out []*Bill
	for _, b := range g.Bills {
		if !b.Settled {
			out = append(out, b)
		}
	}
	return out
}

// BillsByPayer returns the bills paid by one member.
func (g *Group) BillsByPayer(payer common.Address) []*Bill {
	var out []*Bill
	for _, b := range g.Bills {
		if b.Payer == payer {
			out = append(out, b)
		}
	}
	return out
}

// BillsBySettlement returns the bills resolved under one settlement id.
func (g *Group) BillsBySettlement(settlementID uint64) []*Bill {
	var out []*Bill
	for _, b := range g.Bills {
		if b.Settled && b.SettlementID == settlementID {
			out = append(out, b)
		}
	}
	return out
}

// BillCount returns the journal length.
func (g *Group) BillCount() int { return len(g.Bills) }
