package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"trivia/internal/credits"
	"trivia/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the engine's typed errors onto HTTP statuses;
// anything unrecognized is a storage-level failure and surfaces as 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var insufficient *credits.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "insufficient_balance",
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	case errors.Is(err, credits.ErrUnknownMode),
		errors.Is(err, credits.ErrInvalidSessionSize),
		errors.Is(err, credits.ErrInvalidCreditAmount),
		errors.Is(err, services.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input")
	case errors.Is(err, services.ErrUnknownPackage):
		respondError(w, http.StatusBadRequest, "unknown_package")
	case errors.Is(err, services.ErrBalanceNotFound):
		respondError(w, http.StatusNotFound, "balance not found")
	case errors.Is(err, services.ErrPurchaseNotFound):
		respondError(w, http.StatusNotFound, "purchase not found")
	case errors.Is(err, services.ErrConcurrencyConflict):
		respondError(w, http.StatusConflict, "concurrent_update_conflict")
	case errors.Is(err, services.ErrPaymentNotCompleted):
		respondError(w, http.StatusBadRequest, "payment_not_completed")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
