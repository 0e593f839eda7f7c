// Package groupstore persists ledger.Group aggregates. Load takes the group
// row lock (SELECT ... FOR UPDATE), so concurrent writers on the same group
// serialize exactly like the on-chain transaction log this service mirrors.
package groupstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"chainsplit/internal/ledger"
)

var ErrNotFound = errors.New("group not found")

// Create inserts a fresh group with its members, zeroed balances and the
// registry rows (membership doubles as the address→groups registry index).
// Sets g.ID on success.
func Create(ctx context.Context, tx *sql.Tx, g *ledger.Group, createdBy common.Address) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO groups (name, created_by, settlement_counter, bill_seq) VALUES (?, ?, 0, 0)",
		g.Name, createdBy.Hex())
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get group id: %w", err)
	}
	g.ID = id

	memberStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO group_members (group_id, address, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare member statement: %w", err)
	}
	defer memberStmt.Close()

	balanceStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO balances (group_id, address, balance) VALUES (?, ?, 0)")
	if err != nil {
		return fmt.Errorf("failed to prepare balance statement: %w", err)
	}
	defer balanceStmt.Close()

	for i, m := range g.Members {
		if _, err := memberStmt.ExecContext(ctx, g.ID, m.Hex(), i); err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		if _, err := balanceStmt.ExecContext(ctx, g.ID, m.Hex()); err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
	}
	return nil
}

// Load hydrates the full aggregate under the group row lock.
func Load(ctx context.Context, tx *sql.Tx, groupID int64) (*ledger.Group, error) {
	g := &ledger.Group{ID: groupID, Balances: make(map[common.Address]int64)}

	err := tx.QueryRowContext(ctx,
		"SELECT name, settlement_counter, bill_seq FROM groups WHERE id = ? FOR UPDATE",
		groupID,
	).Scan(&g.Name, &g.SettlementCounter, &g.BillSeq)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}

	if err := loadMembers(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := loadBalances(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := loadBills(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := loadSettlement(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := loadGamble(ctx, tx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func loadMembers(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT address FROM group_members WHERE group_id = ? ORDER BY position", g.ID)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		g.Members = append(g.Members, common.HexToAddress(addr))
	}
	return rows.Err()
}

func loadBalances(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT address, balance FROM balances WHERE group_id = ?", g.ID)
	if err != nil {
		return fmt.Errorf("failed to load balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr string
		var balance int64
		if err := rows.Scan(&addr, &balance); err != nil {
			return fmt.Errorf("failed to scan balance: %w", err)
		}
		g.Balances[common.HexToAddress(addr)] = balance
	}
	return rows.Err()
}

func loadBills(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, seq, description, total_amount, payer, settled, settlement_id, created_at
		FROM bills WHERE group_id = ? ORDER BY seq`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to load bills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b := &ledger.Bill{}
		var payer string
		var settlementID sql.NullInt64
		if err := rows.Scan(&b.ID, &b.Seq, &b.Description, &b.TotalAmount, &payer, &b.Settled, &settlementID, &b.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan bill: %w", err)
		}
		b.Payer = common.HexToAddress(payer)
		if settlementID.Valid {
			b.SettlementID = uint64(settlementID.Int64)
		}
		g.Bills = append(g.Bills, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, b := range g.Bills {
		shareRows, err := tx.QueryContext(ctx,
			"SELECT participant, amount FROM bill_shares WHERE bill_id = ? ORDER BY position", b.ID)
		if err != nil {
			return fmt.Errorf("failed to load bill shares: %w", err)
		}
		for shareRows.Next() {
			var participant string
			var amount int64
			if err := shareRows.Scan(&participant, &amount); err != nil {
				shareRows.Close()
				return fmt.Errorf("failed to scan bill share: %w", err)
			}
			b.Shares = append(b.Shares, ledger.Share{Participant: common.HexToAddress(participant), Amount: amount})
		}
		shareRows.Close()
		if err := shareRows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func loadSettlement(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	s := &ledger.Settlement{}
	var createdBy string
	err := tx.QueryRowContext(ctx,
		"SELECT phase, created_by, created_at FROM settlements WHERE group_id = ?", g.ID,
	).Scan(&s.Phase, &createdBy, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settlement: %w", err)
	}
	s.CreatedBy = common.HexToAddress(createdBy)

	rows, err := tx.QueryContext(ctx, `
		SELECT member, role, amount, approved, funded
		FROM settlement_parties WHERE group_id = ? ORDER BY position`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to load settlement parties: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := &ledger.Party{}
		var member, role string
		if err := rows.Scan(&member, &role, &p.Amount, &p.Approved, &p.Funded); err != nil {
			return fmt.Errorf("failed to scan settlement party: %w", err)
		}
		p.Member = common.HexToAddress(member)
		if role == "creditor" {
			s.Creditors = append(s.Creditors, p)
		} else {
			s.Debtors = append(s.Debtors, p)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	billRows, err := tx.QueryContext(ctx,
		"SELECT bill_seq FROM settlement_bills WHERE group_id = ? ORDER BY bill_seq", g.ID)
	if err != nil {
		return fmt.Errorf("failed to load settlement bills: %w", err)
	}
	defer billRows.Close()
	for billRows.Next() {
		var seq uint64
		if err := billRows.Scan(&seq); err != nil {
			return fmt.Errorf("failed to scan settlement bill: %w", err)
		}
		s.BillSeqs = append(s.BillSeqs, seq)
	}
	if err := billRows.Err(); err != nil {
		return err
	}

	g.Settlement = s
	return nil
}

func loadGamble(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	gb := &ledger.Gamble{}
	var proposer string
	err := tx.QueryRowContext(ctx,
		"SELECT proposer, required_votes, created_at FROM gambles WHERE group_id = ?", g.ID,
	).Scan(&proposer, &gb.RequiredVotes, &gb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load gamble: %w", err)
	}
	gb.Proposer = common.HexToAddress(proposer)

	rows, err := tx.QueryContext(ctx,
		"SELECT voter FROM gamble_votes WHERE group_id = ? ORDER BY position", g.ID)
	if err != nil {
		return fmt.Errorf("failed to load gamble votes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var voter string
		if err := rows.Scan(&voter); err != nil {
			return fmt.Errorf("failed to scan gamble vote: %w", err)
		}
		gb.Voters = append(gb.Voters, common.HexToAddress(voter))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	g.Gamble = gb
	return nil
}

// Save writes the aggregate's mutable state back: counters, balances, newly
// appended bills, settled flags, and the settlement/gamble rows. Must run in
// the same transaction that loaded the group.
func Save(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE groups SET settlement_counter = ?, bill_seq = ? WHERE id = ?",
		g.SettlementCounter, g.BillSeq, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update group counters: %w", err)
	}

	for addr, balance := range g.Balances {
		_, err := tx.ExecContext(ctx,
			"UPDATE balances SET balance = ? WHERE group_id = ? AND address = ?",
			balance, g.ID, addr.Hex())
		if err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
	}

	if err := saveBills(ctx, tx, g); err != nil {
		return err
	}
	if err := saveSettlement(ctx, tx, g); err != nil {
		return err
	}
	return saveGamble(ctx, tx, g)
}

func saveBills(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	for _, b := range g.Bills {
		if b.ID == 0 {
			var settlementID any
			if b.Settled {
				settlementID = b.SettlementID
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO bills (group_id, seq, description, total_amount, payer, settled, settlement_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				g.ID, b.Seq, b.Description, b.TotalAmount, b.Payer.Hex(), b.Settled, settlementID, b.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert bill: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get bill id: %w", err)
			}
			b.ID = id
			for i, s := range b.Shares {
				_, err := tx.ExecContext(ctx,
					"INSERT INTO bill_shares (bill_id, participant, amount, position) VALUES (?, ?, ?, ?)",
					b.ID, s.Participant.Hex(), s.Amount, i)
				if err != nil {
					return fmt.Errorf("failed to insert bill share: %w", err)
				}
			}
			continue
		}
		if b.Dirty() {
			_, err := tx.ExecContext(ctx,
				"UPDATE bills SET settled = ?, settlement_id = ? WHERE id = ?",
				b.Settled, b.SettlementID, b.ID)
			if err != nil {
				return fmt.Errorf("failed to update bill: %w", err)
			}
			b.ClearDirty()
		}
	}
	return nil
}

// saveSettlement rewrites the settlement rows wholesale; the row count per
// group is tiny and this keeps the store oblivious to which fields changed.
func saveSettlement(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	for _, stmt := range []string{
		"DELETE FROM settlement_parties WHERE group_id = ?",
		"DELETE FROM settlement_bills WHERE group_id = ?",
		"DELETE FROM settlements WHERE group_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, g.ID); err != nil {
			return fmt.Errorf("failed to clear settlement rows: %w", err)
		}
	}
	s := g.Settlement
	if s == nil {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		"INSERT INTO settlements (group_id, phase, created_by, created_at) VALUES (?, ?, ?, ?)",
		g.ID, s.Phase, s.CreatedBy.Hex(), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	position := 0
	insertParty := func(p *ledger.Party, role string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settlement_parties (group_id, member, role, amount, approved, funded, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, p.Member.Hex(), role, p.Amount, p.Approved, p.Funded, position)
		position++
		return err
	}
	for _, p := range s.Creditors {
		if err := insertParty(p, "creditor"); err != nil {
			return fmt.Errorf("failed to insert creditor: %w", err)
		}
	}
	for _, p := range s.Debtors {
		if err := insertParty(p, "debtor"); err != nil {
			return fmt.Errorf("failed to insert debtor: %w", err)
		}
	}

	for _, seq := range s.BillSeqs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO settlement_bills (group_id, bill_seq) VALUES (?, ?)", g.ID, seq)
		if err != nil {
			return fmt.Errorf("failed to insert settlement bill: %w", err)
		}
	}
	return nil
}

func saveGamble(ctx context.Context, tx *sql.Tx, g *ledger.Group) error {
	for _, stmt := range []string{
		"DELETE FROM gamble_votes WHERE group_id = ?",
		"DELETE FROM gambles WHERE group_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, g.ID); err != nil {
			return fmt.Errorf("failed to clear gamble rows: %w", err)
		}
	}
	gb := g.Gamble
	if gb == nil {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		"INSERT INTO gambles (group_id, proposer, required_votes, created_at) VALUES (?, ?, ?, ?)",
		g.ID, gb.Proposer.Hex(), gb.RequiredVotes, gb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert gamble: %w", err)
	}
	for i, v := range gb.Voters {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO gamble_votes (group_id, voter, position) VALUES (?, ?, ?)",
			g.ID, v.Hex(), i)
		if err != nil {
			return fmt.Errorf("failed to insert gamble vote: %w", err)
		}
	}
	return nil
}

// GroupSummary is one row of the registry's address→groups index.
type GroupSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroupsForAddress is the registry read: every group the address belongs to,
// in joining order.
func GroupsForAddress(ctx context.Context, db *sql.DB, addr common.Address) ([]GroupSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT g.id, g.name
		FROM group_members m
		JOIN groups g ON g.id = m.group_id
		WHERE m.address = ?
		ORDER BY g.id`, addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to query registry: %w", err)
	}
	defer rows.Close()

	var out []GroupSummary
	for rows.Next() {
		var s GroupSummary
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan registry row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
