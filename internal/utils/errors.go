package utils

import (
	"errors"
	"net/http"

	"github.com/fanvault/ledger/internal/ledger"
	"github.com/fanvault/ledger/internal/rules"
)

// StatusFor maps engine errors onto HTTP statuses so every handler speaks
// the same taxonomy.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidIntent):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrContention):
		return http.StatusConflict
	case errors.Is(err, rules.ErrConfigMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
