package handlers

import (
	"context"

	"trivia/internal/credits"
	"trivia/internal/models"
	"trivia/internal/services"
)

type CreditService interface {
	CanPlay(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode) (services.CanPlayResult, error)
	Balance(ctx context.Context, userID string) (models.Balance, error)
	Deduct(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode, reason string, primaryPlayer bool) (models.Balance, credits.Breakdown, error)
	Purchase(ctx context.Context, userID, packageID string) (services.PurchaseOutcome, error)
	ConfirmPurchase(ctx context.Context, userID, reference string, creditAmount int64) (models.Balance, error)
	Adjust(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error)
	GrantBonus(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error)
	History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	VerifyLedger(ctx context.Context, userID string) (services.LedgerCheck, error)
	RunDailyReset(ctx context.Context) (int, error)
}
