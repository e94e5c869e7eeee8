package models

import "time"

const (
	LedgerTypeDeduction       = "deduction"
	LedgerTypePurchase        = "purchase"
	LedgerTypeBonus           = "bonus"
	LedgerTypeDailyReset      = "daily_reset"
	LedgerTypeAdminAdjustment = "admin_adjustment"
)

const (
	SourceFreeDaily = "free_daily"
	SourcePurchased = "purchased"
	SourceCredits   = "credits"
	SourceBonus     = "bonus"
)

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
)

type Balance struct {
	UserID           string     `db:"user_id" json:"user_id"`
	Credits          int64      `db:"credits" json:"credits"`
	PurchasedCredits int64      `db:"purchased_credits" json:"purchased_credits"`
	FreeQuestions    int64      `db:"free_questions" json:"free_questions"`
	DailyLimit       int64      `db:"daily_limit" json:"daily_limit"`
	LastResetAt      *time.Time `db:"last_reset_at" json:"last_reset_at,omitempty"`
	Version          int64      `db:"version" json:"-"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// TotalCredits is always derived from the three sources, never stored.
func (b Balance) TotalCredits() int64 {
	return b.Credits + b.PurchasedCredits + b.FreeQuestions
}

type LedgerEntry struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	Type             string    `db:"type" json:"type"`
	Source           *string   `db:"source" json:"source,omitempty"`
	Amount           int64     `db:"amount" json:"amount"`
	BalanceCredits   int64     `db:"balance_credits" json:"balance_credits"`
	BalancePurchased int64     `db:"balance_purchased" json:"balance_purchased"`
	BalanceFree      int64     `db:"balance_free" json:"balance_free"`
	Metadata         string    `db:"metadata" json:"metadata"`
	TransactionDate  time.Time `db:"transaction_date" json:"transaction_date"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type Purchase struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	PackageID        string     `db:"package_id" json:"package_id"`
	Credits          int64      `db:"credits" json:"credits"`
	AmountMinor      int64      `db:"amount_minor" json:"amount_minor"`
	Currency         string     `db:"currency" json:"currency"`
	Status           string     `db:"status" json:"status"`
	GatewayReference string     `db:"gateway_reference" json:"gateway_reference"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
