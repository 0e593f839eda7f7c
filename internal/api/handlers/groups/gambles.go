package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/ledger"
	"chainsplit/pkg/utils"
)

func gambleResultView(res *ledger.GambleResult) map[string]interface{} {
	view := map[string]interface{}{
		"executed":   res.Executed,
		"cancelled":  res.Cancelled,
		"vote_count": res.VoteCount,
	}
	if res.Executed {
		view["loser"] = res.Loser.Hex()
		view["collapsed"] = ledger.FormatAmount(res.Collapsed)
		view["settlement_id"] = res.SettlementID
	}
	return view
}

// FUNC TO PROPOSE A GAMBLE
func ProposeGambleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	mutateGroup(w, r, "gamble proposed", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		res, err := g.ProposeGamble(caller)
		if err != nil {
			return nil, err
		}
		return gambleResultView(res), nil
	})
}

// FUNC TO VOTE ON THE ACTIVE GAMBLE
func VoteOnGambleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	type request struct {
		Vote bool `json:"vote"`
	}

	var req request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	mutateGroup(w, r, "vote recorded", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		res, err := g.VoteOnGamble(caller, req.Vote)
		if err != nil {
			return nil, err
		}
		return gambleResultView(res), nil
	})
}

// FUNC TO VIEW THE ACTIVE GAMBLE
func GetGambleStatusHandler(w http.ResponseWriter, r *http.Request) {
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
		status := g.GambleStatusForUser(caller)
		view := map[string]interface{}{
			"active":         status.Active,
			"vote_count":     status.VoteCount,
			"required_votes": status.RequiredVotes,
			"has_voted":      status.HasVoted,
		}
		if status.Active {
			view["proposer"] = status.Proposer.Hex()
		}
		return view, nil
	})
}
