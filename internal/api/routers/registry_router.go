package routers

import (
	"net/http"

	"chainsplit/internal/api/handlers/registry"
)

func registryRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/registry/factory", registry.GetFactoryHandler)

	mux.HandleFunc("/registry/factory/update", registry.UpdateFactoryHandler)

	mux.HandleFunc("/registry/{address}/groups", registry.GetGroupsForAddressHandler)

	return mux
}
