package handlers

import (
	"encoding/json"
	"net/http"

	"trivia/internal/middleware"
)

type playRequest struct {
	SessionSize   int64  `json:"session_size"`
	Mode          string `json:"mode"`
	Reason        string `json:"reason"`
	PrimaryPlayer *bool  `json:"primary_player"`
}

func (h *Handler) CanPlay(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	size, mode, err := parsePlayRequest(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	result, err := h.service.CanPlay(r.Context(), userID, size, mode)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Deduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	size, mode, err := parsePlayRequest(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	primary := true
	if req.PrimaryPlayer != nil {
		primary = *req.PrimaryPlayer
	}
	balance, breakdown, err := h.service.Deduct(r.Context(), userID, size, mode, req.Reason, primary)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balance":       balance,
		"total_credits": balance.TotalCredits(),
		"breakdown":     breakdown,
	})
}
