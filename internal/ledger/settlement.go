package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// Settlement phases. A settlement is created in PhaseTriggered, moves to
// PhaseFunding once every creditor has approved, and disappears when it
// distributes or is cancelled. Debtors may fund in either phase; the round
// only distributes when all approvals and all fundings are in.
const (
	PhaseTriggered = "triggered"
	PhaseFunding   = "funding"
)

// Party is one side of a settlement round: a creditor waiting to be paid or
// a debtor expected to fund their owed amount.
type Party struct {
	Member   common.Address `json:"member"`
	Amount   int64          `json:"amount"`
	Approved bool           `json:"approved"`
	Funded   bool           `json:"funded"`
}

// Settlement is a snapshot of the group's debts at trigger time. Bills added
// after the trigger do not participate in this round.
type Settlement struct {
	Phase     string         `json:"phase"`
	CreatedBy common.Address `json:"created_by"`
	CreatedAt int64          `json:"created_at"`
	Creditors []*Party       `json:"creditors"`
	Debtors   []*Party       `json:"debtors"`
	// BillSeqs are the sequence numbers of the unsettled bills captured at
	// trigger time; they get the settlement id when the round distributes.
	BillSeqs []uint64 `json:"bill_seqs"`
}

func (s *Settlement) creditor(addr common.Address) *Party {
	for _, p := range s.Creditors {
		if p.Member == addr {
			return p
		}
	}
	return nil
}

func (s *Settlement) debtor(addr common.Address) *Party {
	for _, p := range s.Debtors {
		if p.Member == addr {
			return p
		}
	}
	return nil
}

func (s *Settlement) allApproved() bool {
	for _, p := range s.Creditors {
		if !p.Approved {
			return false
		}
	}
	return true
}

func (s *Settlement) allFunded() bool {
	for _, p := range s.Debtors {
		if !p.Funded {
			return false
		}
	}
	return true
}

// HasApproved reports whether addr has approved the active settlement.
func (g *Group) HasApproved(addr common.Address) bool {
	if g.Settlement == nil {
		return false
	}
	p := g.Settlement.creditor(addr)
	return p != nil && p.Approved
}

// HasFunded reports whether addr has funded the active settlement.
func (g *Group) HasFunded(addr common.Address) bool {
	if g.Settlement == nil {
		return false
	}
	p := g.Settlement.debtor(addr)
	return p != nil && p.Funded
}

// TriggerSettlement partitions the current balances into creditors and
// debtors and opens a settlement round. Exactly one settlement may be active
// at a time, and never while a gamble proposal is open. A new round cannot
// be triggered to refresh amounts while one is pending; cancel it first.
func (g *Group) TriggerSettlement(caller common.Address) (*Settlement, error) {
	if !g.IsMember(caller) {
		return nil, authErrorf("%s is not a member of group %q", caller.Hex(), g.Name)
	}
	if g.Settlement != nil {
		return nil, stateErrorf("a settlement is already active")
	}
	if g.Gamble != nil {
		return nil, stateErrorf("a gamble proposal is active; settle or resolve it first")
	}

	s := &Settlement{
		Phase:     PhaseTriggered,
		CreatedBy: caller,
		CreatedAt: now().Unix(),
	}
	// Iterate the member list, not the map, so party order is deterministic.
	for _, m := range g.Members {
		switch balance := g.Balances[m]; {
		case balance > 0:
			s.Creditors = append(s.Creditors, &Party{Member: m, Amount: balance})
		case balance < 0:
			s.Debtors = append(s.Debtors, &Party{Member: m, Amount: -balance})
		}
	}
	if len(s.Creditors) == 0 {
		return nil, noDebtsErrorf("all balances are settled")
	}
	for _, b := range g.Bills {
		if !b.Settled {
			s.BillSeqs = append(s.BillSeqs, b.Seq)
		}
	}
	g.Settlement = s
	return s, nil
}

// ApproveSettlement records a creditor's consent. Approving twice is a
// no-op. Once every creditor has approved the round moves to the funding
// phase; if the debtors have already funded by then, it distributes.
func (g *Group) ApproveSettlement(caller common.Address, token Token) (distributed bool, err error) {
	s := g.Settlement
	if s == nil {
		return false, stateErrorf("no settlement is active")
	}
	p := s.creditor(caller)
	if p == nil {
		return false, authErrorf("%s is not a creditor in this settlement", caller.Hex())
	}
	if p.Approved {
		return false, nil
	}
	p.Approved = true
	if s.allApproved() {
		s.Phase = PhaseFunding
		if s.allFunded() {
			return true, g.distribute(token)
		}
	}
	return false, nil
}

// FundSettlement moves the caller's owed amount from their wallet into the
// group escrow. Each debtor funds independently; a failed transfer leaves
// the round exactly as it was (the caller's wallet is only debited inside
// the surrounding transaction). When the last funding lands and all
// creditors have approved, the round distributes atomically.
func (g *Group) FundSettlement(caller common.Address, token Token) (distributed bool, err error) {
	s := g.Settlement
	if s == nil {
		return false, stateErrorf("no settlement is active")
	}
	p := s.debtor(caller)
	if p == nil {
		return false, authErrorf("%s is not a debtor in this settlement", caller.Hex())
	}
	if p.Funded {
		return false, stateErrorf("%s has already funded this settlement", caller.Hex())
	}
	if err := token.Transfer(caller, g.EscrowAddress(), p.Amount); err != nil {
		return false, err
	}
	p.Funded = true
	if s.allFunded() && s.allApproved() {
		return true, g.distribute(token)
	}
	return false, nil
}

// CancelSettlement abandons the active round and refunds any debtors who
// already funded. Any member may cancel; this is the only way to refresh
// amounts after new bills arrive mid-round.
func (g *Group) CancelSettlement(caller common.Address, token Token) error {
	if !g.IsMember(caller) {
		return authErrorf("%s is not a member of group %q", caller.Hex(), g.Name)
	}
	s := g.Settlement
	if s == nil {
		return stateErrorf("no settlement is active")
	}
	escrow := g.EscrowAddress()
	for _, p := range s.Debtors {
		if p.Funded {
			if err := token.Transfer(escrow, p.Member, p.Amount); err != nil {
				return err
			}
		}
	}
	g.Settlement = nil
	return nil
}

// distribute pays every creditor out of escrow, zeroes the involved
// balances, stamps the captured bills with the new settlement id and closes
// the round. Runs inside the caller's transaction, so a failed transfer
// aborts the whole operation.
func (g *Group) distribute(token Token) error {
	s := g.Settlement
	escrow := g.EscrowAddress()
	for _, p := range s.Creditors {
		if err := token.Transfer(escrow, p.Member, p.Amount); err != nil {
			return err
		}
	}
	// Subtract the snapshotted amounts rather than hard-zeroing: for the
	// usual case the result is zero, and deltas from bills added after the
	// trigger survive into the next round.
	for _, p := range s.Creditors {
		g.Balances[p.Member] -= p.Amount
	}
	for _, p := range s.Debtors {
		g.Balances[p.Member] += p.Amount
	}
	g.SettlementCounter++
	g.settleBills(s.BillSeqs, g.SettlementCounter)
	g.Settlement = nil
	return nil
}

func (g *Group) settleBills(seqs []uint64, settlementID uint64) {
	want := make(map[uint64]bool, len(seqs))
	for _, seq := range seqs {
		want[seq] = true
	}
	for _, b := range g.Bills {
		if want[b.Seq] && !b.Settled {
			b.markSettled(settlementID)
		}
	}
}
