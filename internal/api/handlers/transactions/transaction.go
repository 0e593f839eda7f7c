package transactions

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/models"
	"chainsplit/internal/repositories/sqlconnect"
	"chainsplit/pkg/utils"
)

// FUNC TO GET ALL TRANSACTIONS FOR A USER
func GetAllUserTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
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

	page, limit := utils.GetPaginationParams(r)
	offset := (page - 1) * limit

	query := `
		SELECT id, transaction_type, category, amount, status, reference, description, created_at
		FROM transactions
		WHERE address = ?
	`
	query = utils.AddSorting(r, query)
	query += " LIMIT ? OFFSET ?"

	rows, err := db.QueryContext(ctx, query, caller.Hex(), limit, offset)
	if err != nil {
		utils.Logger.Errorf("error fetching transactions: %v", err)
		utils.WriteError(w, "error fetching transactions", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var transaction models.Transaction
		err = rows.Scan(&transaction.ID, &transaction.TransactionType, &transaction.Category, &transaction.Amount, &transaction.Status, &transaction.Reference, &transaction.Description, &transaction.CreatedAt)
		if err != nil {
			utils.Logger.Errorf("error fetching data: %v", err)
			utils.WriteError(w, "error fetching transaction", http.StatusInternalServerError)
			return
		}
		transaction.Address = caller.Hex()
		transactions = append(transactions, transaction)
	}

	if len(transactions) == 0 {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]interface{}{
			"status":  "success",
			"message": "no transaction found for this wallet",
			"data":    []models.Transaction{},
		}
		json.NewEncoder(w).Encode(response)
		return
	}

	response := struct {
		Status   string               `json:"status"`
		Count    int                  `json:"count"`
		Page     int                  `json:"page"`
		PageSize int                  `json:"page_size"`
		Data     []models.Transaction `json:"data"`
	}{
		Status:   "success",
		Count:    len(transactions),
		Page:     page,
		PageSize: limit,
		Data:     transactions,
	}

	utils.WriteJSON(w, response)
}

// FUNC TO GET ONE TRANSACTION BY ID
func GetTransactionById(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := r.PathValue("id")
	transactionID, err := strconv.Atoi(idStr)
	if err != nil {
		utils.WriteError(w, "invalid transaction ID", http.StatusBadRequest)
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

	var transaction models.Transaction
	err = db.QueryRowContext(ctx, "SELECT transaction_type, category, amount, status, reference, description, created_at FROM transactions WHERE id = ? AND address = ?", transactionID, caller.Hex()).Scan(&transaction.TransactionType, &transaction.Category, &transaction.Amount, &transaction.Status, &transaction.Reference, &transaction.Description, &transaction.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "no transaction found", http.StatusNotFound)
			return
		}
		utils.Logger.Errorf("error fetching data: %v", err)
		utils.WriteError(w, "error fetching transaction", http.StatusInternalServerError)
		return
	}
	transaction.ID = transactionID
	transaction.Address = caller.Hex()

	response := struct {
		Status string             `json:"status"`
		Data   models.Transaction `json:"data"`
	}{
		Status: "success",
		Data:   transaction,
	}

	utils.WriteJSON(w, response)
}
