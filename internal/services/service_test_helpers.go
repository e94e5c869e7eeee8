package services

import (
	"context"
	"sync"
	"time"

	"trivia/internal/models"
	"trivia/internal/store"
	"trivia/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// lockingTxRunner serializes transactions the way the database would
// serialize row-locked updates for one user.
type lockingTxRunner struct {
	mu sync.Mutex
}

func (l *lockingTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(nil)
}

type stubBalanceStore struct {
	getFn           func(ctx context.Context, userID string) (models.Balance, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, userID string) (models.Balance, error)
	updateSourcesFn func(ctx context.Context, tx store.Execer, balance models.Balance, expectedVersion int64) (int64, error)
	listResetFn     func(ctx context.Context, dayStart time.Time) ([]string, error)
}

func (s stubBalanceStore) Get(ctx context.Context, userID string) (models.Balance, error) {
	if s.getFn == nil {
		return models.Balance{UserID: userID}, nil
	}
	return s.getFn(ctx, userID)
}

func (s stubBalanceStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Balance, error) {
	if s.getForUpdateFn == nil {
		return models.Balance{UserID: userID}, nil
	}
	return s.getForUpdateFn(ctx, tx, userID)
}

func (s stubBalanceStore) UpdateSources(ctx context.Context, tx store.Execer, balance models.Balance, expectedVersion int64) (int64, error) {
	if s.updateSourcesFn == nil {
		return 1, nil
	}
	return s.updateSourcesFn(ctx, tx, balance, expectedVersion)
}

func (s stubBalanceStore) ListUsersNeedingReset(ctx context.Context, dayStart time.Time) ([]string, error) {
	if s.listResetFn == nil {
		return nil, nil
	}
	return s.listResetFn(ctx, dayStart)
}

type stubLedgerStore struct {
	insertFn  func(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	historyFn func(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	sumFn     func(ctx context.Context, userID string) (int64, error)
}

func (s stubLedgerStore) InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entries)
}

func (s stubLedgerStore) History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, userID, limit)
}

func (s stubLedgerStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	if s.sumFn == nil {
		return 0, nil
	}
	return s.sumFn(ctx, userID)
}

type stubPurchaseStore struct {
	createFn        func(ctx context.Context, tx store.Execer, input store.PurchaseInput) error
	getByRefFn      func(ctx context.Context, tx store.Getter, reference string) (models.Purchase, error)
	markCompletedFn func(ctx context.Context, tx store.Execer, purchaseID string, completedAt time.Time) (int64, error)
	markFailedFn    func(ctx context.Context, tx store.Execer, purchaseID string) (int64, error)
}

func (s stubPurchaseStore) Create(ctx context.Context, tx store.Execer, input store.PurchaseInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubPurchaseStore) GetByReferenceForUpdate(ctx context.Context, tx store.Getter, reference string) (models.Purchase, error) {
	if s.getByRefFn == nil {
		return models.Purchase{}, nil
	}
	return s.getByRefFn(ctx, tx, reference)
}

func (s stubPurchaseStore) MarkCompleted(ctx context.Context, tx store.Execer, purchaseID string, completedAt time.Time) (int64, error) {
	if s.markCompletedFn == nil {
		return 1, nil
	}
	return s.markCompletedFn(ctx, tx, purchaseID, completedAt)
}

func (s stubPurchaseStore) MarkFailed(ctx context.Context, tx store.Execer, purchaseID string) (int64, error) {
	if s.markFailedFn == nil {
		return 1, nil
	}
	return s.markFailedFn(ctx, tx, purchaseID)
}

type stubGateway struct {
	processFn func(ctx context.Context, userID string, amount decimal.Decimal, currency string) (PaymentResult, error)
}

func (s stubGateway) ProcessPayment(ctx context.Context, userID string, amount decimal.Decimal, currency string) (PaymentResult, error) {
	if s.processFn == nil {
		return PaymentResult{Status: PaymentCompleted, Reference: "ref-test"}, nil
	}
	return s.processFn(ctx, userID, amount, currency)
}

type stubDirectory struct {
	unrestricted map[string]bool
}

func (s stubDirectory) IsUnrestricted(ctx context.Context, userID string) (bool, error) {
	return s.unrestricted[userID], nil
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.mu.Lock()
	s.calls = append(s.calls, update)
	s.mu.Unlock()
}
