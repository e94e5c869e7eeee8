package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidReason = errors.New("invalid reason")
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func ValidateUserID(userID string) error {
	if !userIDRegex.MatchString(userID) {
		return ErrInvalidUserID
	}
	return nil
}

func ValidateReason(reason string) error {
	if len(reason) > 200 {
		return ErrInvalidReason
	}
	return nil
}
