package cache

import (
	"context"

	"trivia/internal/models"
)

// BalanceCache fronts the balance store for reads. Every successful balance
// mutation must call Invalidate before returning so no read after the
// mutation can observe a stale value.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (models.Balance, bool, error)
	Set(ctx context.Context, userID string, balance models.Balance) error
	Invalidate(ctx context.Context, userID string) error
}
