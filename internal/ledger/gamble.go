package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Gamble is a proposal to randomly pick one member who absorbs every
// currently-unsettled debt. It only executes once every member has voted
// yes; a single no vote cancels it immediately, so nobody can be gambled
// against involuntarily.
type Gamble struct {
	Proposer      common.Address `json:"proposer"`
	RequiredVotes int            `json:"required_votes"`
	// Voters holds the members who voted yes, proposer included.
	Voters    []common.Address `json:"voters"`
	CreatedAt int64            `json:"created_at"`
}

// HasVoted reports whether addr already cast a yes vote this round.
func (gb *Gamble) HasVoted(addr common.Address) bool {
	for _, v := range gb.Voters {
		if v == addr {
			return true
		}
	}
	return false
}

// GambleResult describes what a vote did to the proposal.
type GambleResult struct {
	Executed  bool           `json:"executed"`
	Cancelled bool           `json:"cancelled"`
	VoteCount int            `json:"vote_count"`
	Loser     common.Address `json:"loser,omitempty"`
	// Collapsed is the gross sum of the bill totals pushed onto the loser.
	Collapsed    int64  `json:"collapsed,omitempty"`
	SettlementID uint64 `json:"settlement_id,omitempty"`
}

// GambleStatus is the per-user view returned by the status read.
type GambleStatus struct {
	Active        bool           `json:"active"`
	Proposer      common.Address `json:"proposer,omitempty"`
	VoteCount     int            `json:"vote_count"`
	RequiredVotes int            `json:"required_votes"`
	HasVoted      bool           `json:"has_voted"`
}

// GambleStatusForUser returns the gamble view for one member.
func (g *Group) GambleStatusForUser(addr common.Address) GambleStatus {
	if g.Gamble == nil {
		return GambleStatus{}
	}
	return GambleStatus{
		Active:        true,
		Proposer:      g.Gamble.Proposer,
		VoteCount:     len(g.Gamble.Voters),
		RequiredVotes: g.Gamble.RequiredVotes,
		HasVoted:      g.Gamble.HasVoted(addr),
	}
}

// ProposeGamble opens a gamble proposal with the proposer's implicit yes
// vote. Requires unsettled bills and mutual exclusion with settlements. In a
// single-member group the proposal is already unanimous and executes on the
// spot.
func (g *Group) ProposeGamble(caller common.Address) (*GambleResult, error) {
	if !g.IsMember(caller) {
		return nil, authErrorf("%s is not a member of group %q", caller.Hex(), g.Name)
	}
	if g.Gamble != nil {
		return nil, stateErrorf("a gamble proposal is already active")
	}
	if g.Settlement != nil {
		return nil, stateErrorf("a settlement is active; resolve or cancel it first")
	}
	if len(g.UnsettledBills()) == 0 {
		return nil, noDebtsErrorf("no unsettled bills to gamble on")
	}
	gb := &Gamble{
		Proposer:      caller,
		RequiredVotes: len(g.Members),
		Voters:        []common.Address{caller},
		CreatedAt:     now().Unix(),
	}
	g.Gamble = gb
	if len(gb.Voters) == gb.RequiredVotes {
		return g.executeGamble()
	}
	return &GambleResult{VoteCount: 1}, nil
}

// VoteOnGamble records the caller's vote. The final yes vote executes the
// gamble; any no vote cancels the proposal outright. Voting twice fails.
func (g *Group) VoteOnGamble(caller common.Address, yes bool) (*GambleResult, error) {
	gb := g.Gamble
	if gb == nil {
		return nil, stateErrorf("no gamble proposal is active")
	}
	if !g.IsMember(caller) {
		return nil, authErrorf("%s is not a member of group %q", caller.Hex(), g.Name)
	}
	if gb.HasVoted(caller) {
		return nil, stateErrorf("%s has already voted on this proposal", caller.Hex())
	}
	if !yes {
		g.Gamble = nil
		return &GambleResult{Cancelled: true, VoteCount: len(gb.Voters)}, nil
	}
	gb.Voters = append(gb.Voters, caller)
	if len(gb.Voters) < gb.RequiredVotes {
		return &GambleResult{VoteCount: len(gb.Voters)}, nil
	}
	return g.executeGamble()
}

// entropySource feeds the loser draw; swapped out in tests.
var entropySource = func() int64 { return now().UnixNano() }

// executeGamble picks the loser and collapses all unsettled debt onto them:
// every participant's share is handed back (their debt clears, original
// payers keep their full credit) and the loser is debited the gross total of
// every unsettled bill. The bills are then stamped settled under a fresh
// settlement id. If the loser had pre-existing credit the balances can stay
// nonzero, in which case a normal settlement round can follow.
//
// The draw seeds Keccak256 with wall-clock entropy and group state. The
// entropy is weak; the unanimous vote is what protects members, not the
// quality of the randomness.
func (g *Group) executeGamble() (*GambleResult, error) {
	unsettled := g.UnsettledBills()
	if len(unsettled) == 0 {
		g.Gamble = nil
		return nil, noDebtsErrorf("no unsettled bills to gamble on")
	}

	seed := make([]byte, 0, 8+8+common.AddressLength*(len(g.Members)+1))
	seed = binary.BigEndian.AppendUint64(seed, uint64(entropySource()))
	seed = binary.BigEndian.AppendUint64(seed, g.SettlementCounter)
	seed = append(seed, g.Gamble.Proposer.Bytes()...)
	for _, m := range g.Members {
		seed = append(seed, m.Bytes()...)
	}
	h := crypto.Keccak256(seed)
	loser := g.Members[binary.BigEndian.Uint64(h[:8])%uint64(len(g.Members))]

	var collapsed int64
	var seqs []uint64
	for _, b := range unsettled {
		for _, s := range b.Shares {
			g.Balances[s.Participant] += s.Amount
		}
		g.Balances[loser] -= b.TotalAmount
		collapsed += b.TotalAmount
		seqs = append(seqs, b.Seq)
	}

	g.SettlementCounter++
	g.settleBills(seqs, g.SettlementCounter)
	voteCount := len(g.Gamble.Voters)
	g.Gamble = nil

	return &GambleResult{
		Executed:     true,
		VoteCount:    voteCount,
		Loser:        loser,
		Collapsed:    collapsed,
		SettlementID: g.SettlementCounter,
	}, nil
}
