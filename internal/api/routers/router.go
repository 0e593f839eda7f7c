package routers

import (
	"net/http"
)

func MainRouter() *http.ServeMux {

	mux := http.NewServeMux()

	uRouter := usersRouter()
	mux.Handle("/users/", uRouter)

	gRouter := groupsRouter()
	mux.Handle("/groups/", gRouter)

	wRouter := walletRouter()
	mux.Handle("/wallet/", wRouter)

	tRouter := transactionsRouter()
	mux.Handle("/transactions/", tRouter)

	rRouter := registryRouter()
	mux.Handle("/registry/", rRouter)

	return mux
}
