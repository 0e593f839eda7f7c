package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/ledger"
	"chainsplit/internal/repositories/groupstore"
	"chainsplit/internal/repositories/sqlconnect"
	"chainsplit/pkg/utils"
)

// FUNC TO CREATE A GROUP
func CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	type request struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteError(w, "group name is required", http.StatusBadRequest)
		return
	}
	if len(req.Name) > 100 {
		utils.WriteError(w, "group name too long", http.StatusBadRequest)
		return
	}

	members := make([]common.Address, 0, len(req.Members)+1)
	for _, m := range req.Members {
		if !common.IsHexAddress(m) {
			utils.WriteError(w, "invalid member address: "+m, http.StatusBadRequest)
			return
		}
		members = append(members, common.HexToAddress(m))
	}

	// The creator always joins their own group.
	callerIncluded := false
	for _, m := range members {
		if m == caller {
			callerIncluded = true
			break
		}
	}
	if !callerIncluded {
		members = append([]common.Address{caller}, members...)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Every member must be a registered user; the ledger only tracks
	// wallets this service controls.
	for _, m := range members {
		var exists int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE wallet_address = ?", m.Hex()).Scan(&exists)
		if err != nil {
			utils.Logger.Errorf("failed to look up member %s: %v", m.Hex(), err)
			utils.WriteError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if exists == 0 {
			utils.WriteError(w, "member is not a registered user: "+m.Hex(), http.StatusBadRequest)
			return
		}
	}

	g, err := ledger.NewGroup(req.Name, members)
	if handlers.WriteLedgerError(w, err) {
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		utils.Logger.Errorf("failed to start transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := groupstore.Create(ctx, tx, g, caller); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to create group: %v", err)
		utils.WriteError(w, "failed to create group, try again later!", http.StatusInternalServerError)
		return
	}

	if err = tx.Commit(); err != nil {
		tx.Rollback()
		utils.Logger.Errorf("failed to commit transaction: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	memberHexes := make([]string, len(g.Members))
	for i, m := range g.Members {
		memberHexes[i] = m.Hex()
	}

	response := map[string]interface{}{
		"status":  "success",
		"message": "Group created successfully",
		"data": map[string]interface{}{
			"group_id":   g.ID,
			"group_name": g.Name,
			"members":    memberHexes,
			"escrow":     g.EscrowAddress().Hex(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// FUNC TO LIST THE CALLER'S GROUPS
func GetMyGroupsHandler(w http.ResponseWriter, r *http.Request) {
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

	groups, err := groupstore.GroupsForAddress(ctx, db, caller)
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

// FUNC TO GET GROUP DETAILS
func GetGroupByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	loadGroup(w, r, func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		if !g.IsMember(caller) {
			return nil, &ledger.AuthorizationError{Message: "caller is not a member of this group"}
		}

		members := make([]string, len(g.Members))
		for i, m := range g.Members {
			members[i] = m.Hex()
		}

		balances := map[string]string{}
		for addr, bal := range g.AllBalances() {
			balances[addr.Hex()] = ledger.FormatAmount(bal)
		}

		return map[string]interface{}{
			"id":                 g.ID,
			"name":               g.Name,
			"members":            members,
			"balances":           balances,
			"total_owed":         ledger.FormatAmount(g.TotalOwed()),
			"bill_count":         g.BillCount(),
			"settlement_active":  g.SettlementActive(),
			"gamble_active":      g.GambleActive(),
			"settlement_counter": g.SettlementCounter,
			"escrow":             g.EscrowAddress().Hex(),
			"token": map[string]string{
				"address": os.Getenv("TOKEN_ADDRESS"),
				"symbol":  tokenSymbol(),
			},
		}, nil
	})
}

func tokenSymbol() string {
	if s := os.Getenv("TOKEN_SYMBOL"); s != "" {
		return s
	}
	return "USDC"
}
