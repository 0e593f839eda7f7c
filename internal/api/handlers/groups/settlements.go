package groups

import (
	"context"
	"database/sql"
	"net/http"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/ledger"
	"chainsplit/internal/repositories/walletbank"
	"chainsplit/pkg/utils"
)

func partyViews(parties []*ledger.Party) []map[string]interface{} {
	views := make([]map[string]interface{}, len(parties))
	for i, p := range parties {
		views[i] = map[string]interface{}{
			"member":   p.Member.Hex(),
			"amount":   ledger.FormatAmount(p.Amount),
			"approved": p.Approved,
			"funded":   p.Funded,
		}
	}
	return views
}

func settlementView(s *ledger.Settlement) map[string]interface{} {
	return map[string]interface{}{
		"phase":      s.Phase,
		"created_by": s.CreatedBy.Hex(),
		"created_at": s.CreatedAt,
		"creditors":  partyViews(s.Creditors),
		"debtors":    partyViews(s.Debtors),
		"bill_seqs":  s.BillSeqs,
	}
}

// FUNC TO TRIGGER A SETTLEMENT ROUND
func TriggerSettlementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	mutateGroup(w, r, "settlement triggered", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		s, err := g.TriggerSettlement(caller)
		if err != nil {
			return nil, err
		}
		return settlementView(s), nil
	})
}

// FUNC FOR A CREDITOR TO APPROVE THE ROUND
func ApproveSettlementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	mutateGroup(w, r, "settlement approved", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		token := walletbank.New(ctx, tx, "settlement")
		distributed, err := g.ApproveSettlement(caller, token)
		if err != nil {
			return nil, err
		}
		return settlementOutcome(g, distributed), nil
	})
}

// FUNC FOR A DEBTOR TO FUND THEIR OWED AMOUNT
func FundSettlementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	mutateGroup(w, r, "settlement funded", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		token := walletbank.New(ctx, tx, "settlement")
		distributed, err := g.FundSettlement(caller, token)
		if err != nil {
			return nil, err
		}
		return settlementOutcome(g, distributed), nil
	})
}

// FUNC TO CANCEL THE ACTIVE ROUND
// Any member may cancel; funded debtors are refunded from escrow.
func CancelSettlementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	mutateGroup(w, r, "settlement cancelled", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		token := walletbank.New(ctx, tx, "settlement")
		if err := g.CancelSettlement(caller, token); err != nil {
			return nil, err
		}
		return map[string]interface{}{"cancelled": true}, nil
	})
}

// FUNC TO VIEW THE ACTIVE ROUND
func GetSettlementHandler(w http.ResponseWriter, r *http.Request) {
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
		if g.Settlement == nil {
			return nil, &ledger.InvalidStateError{Message: "no settlement is active"}
		}
		return settlementView(g.Settlement), nil
	})
}

// settlementOutcome reports where the round stands after an approve or fund
// call. When the last precondition lands the round distributes in the same
// request and the settlement is gone by the time we render the response.
func settlementOutcome(g *ledger.Group, distributed bool) map[string]interface{} {
	if distributed {
		return map[string]interface{}{
			"distributed":   true,
			"settlement_id": g.SettlementCounter,
		}
	}
	return map[string]interface{}{
		"distributed": false,
		"settlement":  settlementView(g.Settlement),
	}
}
