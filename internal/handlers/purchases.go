package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"trivia/internal/middleware"
	"trivia/internal/services"
	"trivia/internal/validator"
)

type purchaseRequest struct {
	PackageID string `json:"package_id"`
}

type confirmRequest struct {
	UserID    string `json:"user_id"`
	Reference string `json:"reference"`
	Credits   int64  `json:"credits"`
}

func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, services.Packages())
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	outcome, err := h.service.Purchase(r.Context(), userID, req.PackageID)
	if err != nil {
		// A pending or failed gateway result still reports its status;
		// the balance is untouched either way.
		if errors.Is(err, services.ErrPaymentNotCompleted) {
			respondJSON(w, http.StatusAccepted, outcome)
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// ConfirmPurchase is the gateway confirmation callback. Replays of the same
// reference return the current balance without crediting twice.
func (h *Handler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateUserID(req.UserID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	balance, err := h.service.ConfirmPurchase(r.Context(), req.UserID, req.Reference, req.Credits)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balance":       balance,
		"total_credits": balance.TotalCredits(),
	})
}
