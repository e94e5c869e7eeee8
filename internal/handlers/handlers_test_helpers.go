package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia/internal/auth"
	"trivia/internal/config"
	"trivia/internal/credits"
	"trivia/internal/middleware"
	"trivia/internal/models"
	"trivia/internal/services"
)

type stubService struct {
	canPlayFn         func(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode) (services.CanPlayResult, error)
	balanceFn         func(ctx context.Context, userID string) (models.Balance, error)
	deductFn          func(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode, reason string, primaryPlayer bool) (models.Balance, credits.Breakdown, error)
	purchaseFn        func(ctx context.Context, userID, packageID string) (services.PurchaseOutcome, error)
	confirmPurchaseFn func(ctx context.Context, userID, reference string, creditAmount int64) (models.Balance, error)
	adjustFn          func(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error)
	grantBonusFn      func(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error)
	historyFn         func(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	verifyLedgerFn    func(ctx context.Context, userID string) (services.LedgerCheck, error)
	runDailyResetFn   func(ctx context.Context) (int, error)
}

func (s stubService) CanPlay(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode) (services.CanPlayResult, error) {
	if s.canPlayFn == nil {
		return services.CanPlayResult{}, nil
	}
	return s.canPlayFn(ctx, userID, size, mode)
}

func (s stubService) Balance(ctx context.Context, userID string) (models.Balance, error) {
	if s.balanceFn == nil {
		return models.Balance{UserID: userID}, nil
	}
	return s.balanceFn(ctx, userID)
}

func (s stubService) Deduct(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode, reason string, primaryPlayer bool) (models.Balance, credits.Breakdown, error) {
	if s.deductFn == nil {
		return models.Balance{UserID: userID}, credits.Breakdown{}, nil
	}
	return s.deductFn(ctx, userID, size, mode, reason, primaryPlayer)
}

func (s stubService) Purchase(ctx context.Context, userID, packageID string) (services.PurchaseOutcome, error) {
	if s.purchaseFn == nil {
		return services.PurchaseOutcome{}, nil
	}
	return s.purchaseFn(ctx, userID, packageID)
}

func (s stubService) ConfirmPurchase(ctx context.Context, userID, reference string, creditAmount int64) (models.Balance, error) {
	if s.confirmPurchaseFn == nil {
		return models.Balance{UserID: userID}, nil
	}
	return s.confirmPurchaseFn(ctx, userID, reference, creditAmount)
}

func (s stubService) Adjust(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error) {
	if s.adjustFn == nil {
		return models.Balance{UserID: userID}, nil
	}
	return s.adjustFn(ctx, userID, amount, reason)
}

func (s stubService) GrantBonus(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error) {
	if s.grantBonusFn == nil {
		return models.Balance{UserID: userID}, nil
	}
	return s.grantBonusFn(ctx, userID, amount, reason)
}

func (s stubService) History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, userID, limit)
}

func (s stubService) VerifyLedger(ctx context.Context, userID string) (services.LedgerCheck, error) {
	if s.verifyLedgerFn == nil {
		return services.LedgerCheck{}, nil
	}
	return s.verifyLedgerFn(ctx, userID)
}

func (s stubService) RunDailyReset(ctx context.Context) (int, error) {
	if s.runDailyResetFn == nil {
		return 0, nil
	}
	return s.runDailyResetFn(ctx)
}

func newTestHandler(service CreditService) *Handler {
	return New(config.Config{JWTSecret: "secret"}, service, nil)
}

func serveAuthed(t *testing.T, handlerFn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", "user-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handlerFn).ServeHTTP(rr, req)
	return rr
}
