package handlers

import (
	"trivia/internal/credits"
	"trivia/internal/validator"
)

// parsePlayRequest normalizes the wire DTO into engine values: the unlimited
// sentinel becomes a tagged session size and the mode string is checked
// before anything touches storage.
func parsePlayRequest(req playRequest) (credits.SessionSize, credits.GameMode, error) {
	size, err := credits.ParseSessionSize(req.SessionSize)
	if err != nil {
		return credits.SessionSize{}, "", err
	}
	mode := credits.GameMode(req.Mode)
	if !credits.ValidMode(mode) {
		return credits.SessionSize{}, "", credits.ErrUnknownMode
	}
	if err := validator.ValidateReason(req.Reason); err != nil {
		return credits.SessionSize{}, "", err
	}
	return size, mode, nil
}
