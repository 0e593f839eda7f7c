package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"chainsplit/internal/ledger"
	"chainsplit/pkg/utils"
)

func CheckBlankFields(value interface{}) error {
	val := reflect.ValueOf(value)
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if field.Kind() == reflect.String && field.String() == "" {
			return utils.ErrorHandler(errors.New("all fields are required"), "all fields are required")
		}
	}
	return nil
}

// CallerAddress returns the wallet address the JWT middleware put in the
// request context.
func CallerAddress(r *http.Request) (common.Address, bool) {
	addr, ok := r.Context().Value(utils.ContextKey("addr")).(string)
	if !ok || !common.IsHexAddress(addr) {
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

func GroupIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// WriteLedgerError maps the ledger failure taxonomy to HTTP statuses and
// reports whether err was non-nil, so handlers can bail out with one line.
func WriteLedgerError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	var authErr *ledger.AuthorizationError
	var valErr *ledger.ValidationError
	var stateErr *ledger.InvalidStateError
	var noDebtsErr *ledger.NoDebtsError
	var fundsErr *ledger.InsufficientFundsError

	switch {
	case errors.As(err, &authErr):
		utils.WriteError(w, authErr.Message, http.StatusForbidden)
	case errors.As(err, &valErr):
		utils.WriteError(w, valErr.Message, http.StatusBadRequest)
	case errors.As(err, &stateErr):
		utils.WriteError(w, stateErr.Message, http.StatusConflict)
	case errors.As(err, &noDebtsErr):
		utils.WriteError(w, noDebtsErr.Message, http.StatusConflict)
	case errors.As(err, &fundsErr):
		utils.WriteError(w, fundsErr.Message, http.StatusPaymentRequired)
	default:
		utils.Logger.Errorf("unexpected ledger error: %v", err)
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
	return true
}
