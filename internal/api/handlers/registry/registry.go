package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/repositories/groupstore"
	"chainsplit/internal/repositories/sqlconnect"
	"chainsplit/pkg/utils"
)

// The registry is a single-row config: which factory build is authorised to
// create groups, plus the address→groups index served from group_members.

// FUNC TO UPDATE THE FACTORY POINTER (ADMIN ONLY)
func UpdateFactoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	db := sqlconnect.DB
	if db == nil {
		utils.Logger.Error("DB is not initialized")
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	role, _ := r.Context().Value(utils.ContextKey("role")).(string)
	if role != "admin" {
		utils.WriteError(w, "only an admin can update the factory", http.StatusForbidden)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		Factory string `json:"factory"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	req.Factory = strings.TrimSpace(req.Factory)
	if req.Factory == "" {
		utils.WriteError(w, "factory is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO registry_config (id, factory, updated_by) VALUES (1, ?, ?)
		ON DUPLICATE KEY UPDATE factory = VALUES(factory), updated_by = VALUES(updated_by)`,
		req.Factory, caller.Hex())
	if err != nil {
		utils.Logger.Errorf("failed to update factory: %v", err)
		utils.WriteError(w, "failed to update factory", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "factory updated",
		"data": map[string]string{
			"factory":    req.Factory,
			"updated_by": caller.Hex(),
		},
	})
}

// FUNC TO READ THE FACTORY POINTER
func GetFactoryHandler(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var factory, updatedBy string
	err := db.QueryRowContext(ctx, "SELECT factory, updated_by FROM registry_config WHERE id = 1").Scan(&factory, &updatedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.WriteError(w, "no factory configured", http.StatusNotFound)
			return
		}
		utils.Logger.Errorf("failed to read factory: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"data": map[string]string{
			"factory":    factory,
			"updated_by": updatedBy,
		},
	})
}

// FUNC TO LIST THE GROUPS AN ADDRESS BELONGS TO
func GetGroupsForAddressHandler(w http.ResponseWriter, r *http.Request) {
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

	addrStr := r.PathValue("address")
	if !common.IsHexAddress(addrStr) {
		utils.WriteError(w, "invalid address", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	groups, err := groupstore.GroupsForAddress(ctx, db, common.HexToAddress(addrStr))
	if err != nil {
		utils.Logger.Errorf("failed to fetch groups: %v", err)
		utils.WriteError(w, "error fetching groups", http.StatusInternalServerError)
		return
	}
	if groups == nil {
		groups = []groupstore.GroupSummary{}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"status": "success",
		"count":  len(groups),
		"data":   groups,
	})
}
