package routers

import (
	"net/http"

	"chainsplit/internal/api/handlers/wallet"
)

func walletRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/wallet/deposit", wallet.DepositHandler)

	mux.HandleFunc("/wallet/", wallet.GetWalletHandler)

	return mux
}
