package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"chainsplit/internal/api/handlers"
	"chainsplit/internal/ledger"
	"chainsplit/pkg/utils"
)

type billRequest struct {
	Description  string   `json:"description"`
	Amount       string   `json:"amount"`
	Participants []string `json:"participants"`
	// Amounts is only used by the custom split endpoint; it must line up
	// with Participants one to one.
	Amounts []string `json:"amounts,omitempty"`
}

func decodeBillRequest(w http.ResponseWriter, r *http.Request) (*billRequest, bool) {
	var req billRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	defer r.Body.Close()

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		utils.WriteError(w, "bill description is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func parseParticipants(w http.ResponseWriter, raw []string) ([]common.Address, bool) {
	participants := make([]common.Address, 0, len(raw))
	for _, p := range raw {
		if !common.IsHexAddress(p) {
			utils.WriteError(w, "invalid participant address: "+p, http.StatusBadRequest)
			return nil, false
		}
		participants = append(participants, common.HexToAddress(p))
	}
	return participants, true
}

func billView(b *ledger.Bill) map[string]interface{} {
	shares := make([]map[string]string, len(b.Shares))
	for i, s := range b.Shares {
		shares[i] = map[string]string{
			"participant": s.Participant.Hex(),
			"amount":      ledger.FormatAmount(s.Amount),
		}
	}

	view := map[string]interface{}{
		"seq":         b.Seq,
		"description": b.Description,
		"amount":      ledger.FormatAmount(b.TotalAmount),
		"payer":       b.Payer.Hex(),
		"shares":      shares,
		"created_at":  b.CreatedAt,
		"settled":     b.Settled,
	}
	if b.Settled {
		view["settlement_id"] = b.SettlementID
	}
	return view
}

// FUNC TO ADD AN EQUAL-SPLIT BILL
func AddBillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	req, ok := decodeBillRequest(w, r)
	if !ok {
		return
	}

	total, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	participants, ok := parseParticipants(w, req.Participants)
	if !ok {
		return
	}

	mutateGroup(w, r, "bill added", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		bill, err := g.AddBill(caller, req.Description, total, participants)
		if err != nil {
			return nil, err
		}
		return billView(bill), nil
	})
}

// FUNC TO ADD A CUSTOM-SPLIT BILL
func AddCustomBillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	req, ok := decodeBillRequest(w, r)
	if !ok {
		return
	}

	total, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	participants, ok := parseParticipants(w, req.Participants)
	if !ok {
		return
	}

	amounts := make([]int64, 0, len(req.Amounts))
	for _, a := range req.Amounts {
		v, err := ledger.ParseAmount(a)
		if err != nil {
			utils.WriteError(w, err.Error(), http.StatusBadRequest)
			return
		}
		amounts = append(amounts, v)
	}

	mutateGroup(w, r, "bill added", func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		bill, err := g.AddCustomBill(caller, req.Description, total, participants, amounts)
		if err != nil {
			return nil, err
		}
		return billView(bill), nil
	})
}

// FUNC TO LIST A GROUP'S BILLS
// Supports ?filter=unsettled, ?payer=0x... and ?settlement=N.
func GetBillsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	caller, ok := handlers.CallerAddress(r)
	if !ok {
		utils.WriteError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := r.URL.Query().Get("filter")
	payerStr := r.URL.Query().Get("payer")
	settlementStr := r.URL.Query().Get("settlement")

	loadGroup(w, r, func(ctx context.Context, tx *sql.Tx, g *ledger.Group) (interface{}, error) {
		if !g.IsMember(caller) {
			return nil, &ledger.AuthorizationError{Message: "caller is not a member of this group"}
		}

		var bills []*ledger.Bill
		switch {
		case filter == "unsettled":
			bills = g.UnsettledBills()
		case payerStr != "":
			if !common.IsHexAddress(payerStr) {
				return nil, &ledger.ValidationError{Message: "invalid payer address"}
			}
			bills = g.BillsByPayer(common.HexToAddress(payerStr))
		case settlementStr != "":
			id, err := strconv.ParseUint(settlementStr, 10, 64)
			if err != nil {
				return nil, &ledger.ValidationError{Message: "invalid settlement id"}
			}
			bills = g.BillsBySettlement(id)
		default:
			bills = g.Bills
		}

		views := make([]map[string]interface{}, len(bills))
		for i, b := range bills {
			views[i] = billView(b)
		}
		return views, nil
	})
}
