package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/ledger"
	"chainsplit/internal/models"
	"chainsplit/internal/repositories/sqlconnect"
	"chainsplit/internal/repositories/walletbank"
	"chainsplit/pkg/utils"
)

// FUNC TO DEPOSIT INTO THE CALLER'S WALLET
// Development on-ramp; credits the wallet directly and journals the deposit.
func DepositHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		Amount string `json:"amount"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "enter amount", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		utils.Logger.Errorf("failed to start transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	bank := walletbank.New(ctx, tx, "fund")
	if err := bank.Deposit(caller, amount); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to deposit into %s: %v", caller.Hex(), err)
		utils.WriteError(w, "failed to fund wallet", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to commit transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	balance, err := walletbank.Balance(ctx, db, caller)
	if err != nil {
		utils.Logger.Errorf("failed to read wallet %s: %v", caller.Hex(), err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "wallet funded",
		"data": map[string]string{
			"address": caller.Hex(),
			"balance": ledger.FormatAmount(balance),
		},
	})
}

// FUNC TO GET THE CALLER'S WALLET
func GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var wlt models.Wallet
	err := db.QueryRowContext(ctx,
		"SELECT address, balance, last_funded_at, created_at FROM wallets WHERE address = ?",
		caller.Hex()).Scan(&wlt.Address, &wlt.Balance, &wlt.LastFundedAt, &wlt.CreatedAt)
	if err != nil {
		utils.WriteError(w, "wallet not found", http.StatusNotFound)
		return
	}

	data := map[string]interface{}{
		"address": wlt.Address,
		"balance": ledger.FormatAmount(wlt.Balance),
	}
	if wlt.LastFundedAt.Valid {
		data["last_funded_at"] = wlt.LastFundedAt.String
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}
