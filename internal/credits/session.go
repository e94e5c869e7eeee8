package credits

import "errors"

// UnlimitedSessionSize is the wire sentinel for a request with no question
// limit. It stays negative (not Infinity) so request payloads remain plain
// JSON integers. Boundary code converts it to a SessionSize immediately;
// nothing past the DTO layer branches on the raw constant.
const UnlimitedSessionSize = -1

var ErrInvalidSessionSize = errors.New("invalid session size")

type SessionSize struct {
	questions int64
	unlimited bool
}

func Bounded(questions int64) SessionSize {
	return SessionSize{questions: questions}
}

func Unlimited() SessionSize {
	return SessionSize{unlimited: true}
}

// ParseSessionSize normalizes a wire value into a tagged session size.
func ParseSessionSize(raw int64) (SessionSize, error) {
	if raw == UnlimitedSessionSize {
		return Unlimited(), nil
	}
	if raw <= 0 {
		return SessionSize{}, ErrInvalidSessionSize
	}
	return Bounded(raw), nil
}

func (s SessionSize) IsUnlimited() bool {
	return s.unlimited
}

// Raw returns the wire representation, with the unlimited sentinel restored.
func (s SessionSize) Raw() int64 {
	if s.unlimited {
		return UnlimitedSessionSize
	}
	return s.questions
}

// Questions caps an unlimited session at the configured per-request maximum
// so "unlimited" never produces an unbounded credit requirement. A bounded
// size passes through as-is: the cost formula prices what was asked for,
// never a silently reduced amount.
func (s SessionSize) Questions(maxPerRequest int64) int64 {
	if s.unlimited {
		return maxPerRequest
	}
	return s.questions
}
