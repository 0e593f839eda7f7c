// Package walletbank is the settlement currency. It implements ledger.Token
// over wallet rows, journaling every movement into the transactions table.
// A Bank is bound to one database transaction, so token transfers commit or
// roll back together with the ledger mutation that caused them.
package walletbank

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"chainsplit/internal/ledger"
	"chainsplit/internal/services"
)

type Bank struct {
	ctx context.Context
	tx  *sql.Tx
	// category tags the journal rows, e.g. "settlement" or "fund".
	category string
}

func New(ctx context.Context, tx *sql.Tx, category string) *Bank {
	return &Bank{ctx: ctx, tx: tx, category: category}
}

// Transfer debits from and credits to, guarding against overdrafts at the
// SQL level. Escrow accounts are created on first credit.
func (b *Bank) Transfer(from, to common.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}

	res, err := b.tx.ExecContext(b.ctx,
		"UPDATE wallets SET balance = balance - ? WHERE address = ? AND balance >= ?",
		amount, from.Hex(), amount)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check debit: %w", err)
	}
	if affected == 0 {
		return &ledger.InsufficientFundsError{
			Message: fmt.Sprintf("wallet %s cannot cover %s", from.Hex(), ledger.FormatAmount(amount)),
		}
	}

	_, err = b.tx.ExecContext(b.ctx, `
		INSERT INTO wallets (address, balance) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance)`,
		to.Hex(), amount)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	reference := services.GenerateReference("TRF")
	description := fmt.Sprintf("transfer to %s", to.Hex())
	if err := b.journal(from, "debit", amount, reference, description); err != nil {
		return err
	}
	return b.journal(to, "credit", amount, reference, fmt.Sprintf("transfer from %s", from.Hex()))
}

// Deposit credits a wallet out of thin air. Development stand-in for the
// fiat on-ramp, which is outside this service.
func (b *Bank) Deposit(addr common.Address, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}
	_, err := b.tx.ExecContext(b.ctx,
		"UPDATE wallets SET balance = balance + ?, last_funded_at = ? WHERE address = ?",
		amount, time.Now().Format("2006-01-02 15:04:05"), addr.Hex())
	if err != nil {
		return fmt.Errorf("failed to fund wallet: %w", err)
	}
	return b.journal(addr, "credit", amount, services.GenerateReference("DEP"), "wallet deposit")
}

func (b *Bank) journal(addr common.Address, transactionType string, amount int64, reference, description string) error {
	_, err := b.tx.ExecContext(b.ctx, `
		INSERT INTO transactions (address, transaction_type, category, amount, status, reference, description)
		VALUES (?, ?, ?, ?, 'success', ?, ?)`,
		addr.Hex(), transactionType, b.category, amount, reference, description)
	if err != nil {
		return fmt.Errorf("failed to journal transaction: %w", err)
	}
	return nil
}

// CreateWallet inserts the wallet row for a new user.
func CreateWallet(ctx context.Context, tx *sql.Tx, addr common.Address, userID int64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO wallets (address, user_id, balance) VALUES (?, ?, 0)",
		addr.Hex(), userID)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// Balance reads a wallet balance in micro-units.
func Balance(ctx context.Context, db *sql.DB, addr common.Address) (int64, error) {
	var balance int64
	err := db.QueryRowContext(ctx,
		"SELECT balance FROM wallets WHERE address = ?", addr.Hex()).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("wallet not found: %s", addr.Hex())
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read wallet: %w", err)
	}
	return balance, nil
}
