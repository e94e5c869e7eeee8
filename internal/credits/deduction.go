package credits

import (
	"errors"
	"fmt"

	"trivia/internal/models"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCreditAmount = errors.New("invalid credit amount")
	ErrUnknownSource       = errors.New("unknown credit source")
)

// InsufficientBalanceError carries the computed requirement so callers can
// tell the player how many credits the session would have needed.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d credits, have %d", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Breakdown records how much of a deduction each source covered.
type Breakdown struct {
	FreeQuestionsUsed    int64 `json:"free_questions_used"`
	PurchasedCreditsUsed int64 `json:"purchased_credits_used"`
	CreditsUsed          int64 `json:"credits_used"`
}

func (b Breakdown) Total() int64 {
	return b.FreeQuestionsUsed + b.PurchasedCreditsUsed + b.CreditsUsed
}

// ApplyDeduction draws the session cost from the balance in the fixed order
// free questions, then purchased credits, then general credits. The order is
// a product decision (the expiring source is spent first) and must not
// change. All-or-nothing: if the three sources together cannot cover the
// cost, the input balance is returned untouched.
//
// Role checks (unrestricted accounts) belong to the caller; this stays a
// pure, role-agnostic primitive.
func ApplyDeduction(balance models.Balance, size SessionSize, mode GameMode, maxPerRequest int64) (models.Balance, Breakdown, error) {
	required, err := RequiredCredits(size, mode, maxPerRequest)
	if err != nil {
		return balance, Breakdown{}, err
	}
	if required > balance.TotalCredits() {
		return balance, Breakdown{}, &InsufficientBalanceError{
			Required:  required,
			Available: balance.TotalCredits(),
		}
	}

	var breakdown Breakdown
	remaining := required

	breakdown.FreeQuestionsUsed = minInt64(remaining, balance.FreeQuestions)
	remaining -= breakdown.FreeQuestionsUsed

	breakdown.PurchasedCreditsUsed = minInt64(remaining, balance.PurchasedCredits)
	remaining -= breakdown.PurchasedCreditsUsed

	breakdown.CreditsUsed = minInt64(remaining, balance.Credits)
	remaining -= breakdown.CreditsUsed

	if remaining > 0 {
		return balance, Breakdown{}, &InsufficientBalanceError{
			Required:  required,
			Available: balance.TotalCredits(),
		}
	}

	next := balance
	next.FreeQuestions = clampNonNegative(balance.FreeQuestions - breakdown.FreeQuestionsUsed)
	next.PurchasedCredits = clampNonNegative(balance.PurchasedCredits - breakdown.PurchasedCreditsUsed)
	next.Credits = clampNonNegative(balance.Credits - breakdown.CreditsUsed)
	return next, breakdown, nil
}

// ApplyCredit adds to a single source. Purchases land on purchased credits,
// bonuses and adjustments on general credits, daily grants on free questions.
func ApplyCredit(balance models.Balance, amount int64, source string) (models.Balance, error) {
	if amount <= 0 {
		return balance, ErrInvalidCreditAmount
	}
	next := balance
	switch source {
	case models.SourcePurchased:
		next.PurchasedCredits += amount
	case models.SourceBonus, models.SourceCredits:
		next.Credits += amount
	case models.SourceFreeDaily:
		next.FreeQuestions += amount
	default:
		return balance, ErrUnknownSource
	}
	return next, nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func clampNonNegative(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
