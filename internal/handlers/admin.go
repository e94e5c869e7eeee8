package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"trivia/internal/models"
	"trivia/internal/validator"
)

type adjustRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	h.applyAdminChange(w, r, h.service.Adjust)
}

func (h *Handler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	h.applyAdminChange(w, r, h.service.GrantBonus)
}

func (h *Handler) applyAdminChange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error)) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateUserID(req.UserID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	if err := validator.ValidateReason(req.Reason); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	balance, err := apply(r.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balance":       balance,
		"total_credits": balance.TotalCredits(),
	})
}

func (h *Handler) RunDailyReset(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.RunDailyReset(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users_reset": count})
}
