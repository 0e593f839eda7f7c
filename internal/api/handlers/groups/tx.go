package groups

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/ledger"
	"chainsplit/internal/repositories/groupstore"
	"chainsplit/internal/repositories/sqlconnect"
	"chainsplit/pkg/utils"
)

// groupFn runs against a group loaded under a row lock and returns the
// response payload for the success envelope.
type groupFn func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error)

// mutateGroup is the write path every ledger operation goes through: one
// database transaction, the group row locked for the duration, the mutation
// applied in memory and persisted before commit. The row lock serialises
// writers per group, so operations land in a single well defined order.
func mutateGroup(w http.ResponseWriter, r *http.Request, message string, fn groupFn) {
	runGroupTx(w, r, message, true, fn)
}

// loadGroup is the read path: same locking discipline, nothing persisted.
func loadGroup(w http.ResponseWriter, r *http.Request, fn groupFn) {
	runGroupTx(w, r, "", false, fn)
}

func runGroupTx(w http.ResponseWriter, r *http.Request, message string, save bool, fn groupFn) {
	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	groupID, err := handlers.GroupIDFromPath(r)
	if err != nil {
		utils.WriteError(w, "invalid group ID", http.StatusBadRequest)
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

	g, err := groupstore.Load(ctx, tx, groupID)
	if err != nil {
		tx.Rollback()
		if err == groupstore.ErrNotFound {
			utils.WriteError(w, "group not found", http.StatusNotFound)
			return
		}
		utils.Logger.Errorf("failed to load group %d: %v", groupID, err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data, err := fn(ctx, tx, g)
	if err != nil {
		tx.Rollback()
		handlers.WriteLedgerError(w, err)
		return
	}

	if !save {
		tx.Rollback()
		utils.WriteJSON(w, map[string]interface{}{
			"status": "success",
			"data":   data,
		})
		return
	}

	if err := groupstore.Save(ctx, tx, g); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to save group %d: %v", groupID, err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to commit transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}
