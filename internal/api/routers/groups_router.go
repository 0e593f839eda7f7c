package routers

import (
	"net/http"

	"chainsplit/internal/api/handlers/groups"
)

func groupsRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/groups/create", groups.CreateGroupHandler)

	mux.HandleFunc("/groups/", groups.GetMyGroupsHandler)

	mux.HandleFunc("/groups/{id}", groups.GetGroupByIDHandler)

	mux.HandleFunc("/groups/{id}/bills", groups.AddBillHandler)

	mux.HandleFunc("/groups/{id}/bills/custom", groups.AddCustomBillHandler)

	mux.HandleFunc("/groups/{id}/bills/list", groups.GetBillsHandler)

	mux.HandleFunc("/groups/{id}/settlement", groups.GetSettlementHandler)

	mux.HandleFunc("/groups/{id}/settlement/trigger", groups.TriggerSettlementHandler)

	mux.HandleFunc("/groups/{id}/settlement/approve", groups.ApproveSettlementHandler)

	mux.HandleFunc("/groups/{id}/settlement/fund", groups.FundSettlementHandler)

	mux.HandleFunc("/groups/{id}/settlement/cancel", groups.CancelSettlementHandler)

	mux.HandleFunc("/groups/{id}/gamble", groups.GetGambleStatusHandler)

	mux.HandleFunc("/groups/{id}/gamble/propose", groups.ProposeGambleHandler)

	mux.HandleFunc("/groups/{id}/gamble/vote", groups.VoteOnGambleHandler)

	return mux
}
