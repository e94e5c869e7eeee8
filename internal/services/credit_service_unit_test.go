package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trivia/internal/cache"
	"trivia/internal/credits"
	"trivia/internal/db"
	"trivia/internal/models"
	"trivia/internal/store"

	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T, txRunner db.TxRunner, balances BalanceStore, ledger LedgerStore, purchases PurchaseStore, gateway PaymentGateway, directory AccountDirectory, hub *stubHub, opts Options) (*CreditService, *cache.MemoryCache) {
	t.Helper()
	memory := cache.NewMemoryCache(time.Minute)
	if hub == nil {
		hub = &stubHub{}
	}
	if gateway == nil {
		gateway = stubGateway{}
	}
	if directory == nil {
		directory = stubDirectory{}
	}
	return NewCreditService(txRunner, balances, ledger, purchases, memory, gateway, directory, hub, opts), memory
}

func TestCanPlayAllowed(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getFn: func(_ context.Context, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, FreeQuestions: 2, PurchasedCredits: 1, Credits: 2}, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	result, err := service.CanPlay(context.Background(), "user-1", credits.Bounded(5), credits.ModeClassic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed || result.Required != 5 || result.Available != 5 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestCanPlayRejectsPartialFreeCoverage(t *testing.T) {
	// One free question left must not let a five-question session through.
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getFn: func(_ context.Context, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, FreeQuestions: 1}, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	result, err := service.CanPlay(context.Background(), "user-1", credits.Bounded(5), credits.ModeClassic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected rejection, got %#v", result)
	}
	if !strings.Contains(result.Reason, "need 5") {
		t.Fatalf("reason should state the required amount: %q", result.Reason)
	}
}

func TestCanPlayUnrestricted(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getFn: func(_ context.Context, userID string) (models.Balance, error) {
			t.Fatalf("unexpected balance read for unrestricted account")
			return models.Balance{}, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{}, nil, stubDirectory{unrestricted: map[string]bool{"admin-1": true}}, nil, Options{})
	result, err := service.CanPlay(context.Background(), "admin-1", credits.Bounded(500), credits.ModeClassic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed || result.Required != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestDeductWritesOrderedLedgerEntries(t *testing.T) {
	var saved models.Balance
	var savedVersion int64
	var entries []store.LedgerEntryInput
	hub := &stubHub{}
	service, memory := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, FreeQuestions: 3, PurchasedCredits: 2, Credits: 5, Version: 7}, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, balance models.Balance, expectedVersion int64) (int64, error) {
			saved = balance
			savedVersion = expectedVersion
			return 1, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, inputs []store.LedgerEntryInput) error {
			entries = inputs
			return nil
		},
	}, stubPurchaseStore{}, nil, nil, hub, Options{})

	_ = memory.Set(context.Background(), "user-1", models.Balance{UserID: "user-1", Credits: 99})

	balance, breakdown, err := service.Deduct(context.Background(), "user-1", credits.Bounded(6), credits.ModeClassic, "session start", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.FreeQuestionsUsed != 3 || breakdown.PurchasedCreditsUsed != 2 || breakdown.CreditsUsed != 1 {
		t.Fatalf("unexpected breakdown: %#v", breakdown)
	}
	if balance.TotalCredits() != 4 || saved.TotalCredits() != 4 || savedVersion != 7 {
		t.Fatalf("unexpected persisted balance: %#v version %d", saved, savedVersion)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}
	wantSources := []string{models.SourceFreeDaily, models.SourcePurchased, models.SourceCredits}
	wantAmounts := []int64{-3, -2, -1}
	for i, entry := range entries {
		if entry.Source == nil || *entry.Source != wantSources[i] || entry.Amount != wantAmounts[i] {
			t.Fatalf("entry %d out of order: %#v", i, entry)
		}
		if entry.Type != models.LedgerTypeDeduction {
			t.Fatalf("unexpected entry type: %s", entry.Type)
		}
	}
	last := entries[len(entries)-1]
	if last.BalanceCredits+last.BalancePurchased+last.BalanceFree != balance.TotalCredits() {
		t.Fatalf("final snapshot does not match balance: %#v", last)
	}
	if _, ok, _ := memory.Get(context.Background(), "user-1"); ok {
		t.Fatalf("cache entry should be invalidated after deduction")
	}
	if len(hub.calls) != 1 || hub.calls[0].TotalCredits != 4 {
		t.Fatalf("unexpected broadcasts: %#v", hub.calls)
	}
}

func TestDeductInsufficientNoMutation(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, FreeQuestions: 1}, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, _ models.Balance, _ int64) (int64, error) {
			t.Fatalf("balance must not be written on insufficiency")
			return 0, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, _ []store.LedgerEntryInput) error {
			t.Fatalf("ledger must not be written on insufficiency")
			return nil
		},
	}, stubPurchaseStore{}, nil, nil, nil, Options{})
	_, _, err := service.Deduct(context.Background(), "user-1", credits.Bounded(5), credits.ModeClassic, "", true)
	if !errors.Is(err, credits.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestDeductUnrestrictedBypass(t *testing.T) {
	ledgerWrites := 0
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getFn: func(_ context.Context, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 3}, nil
		},
		getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.Balance, error) {
			t.Fatalf("unexpected locked read for unrestricted account")
			return models.Balance{}, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, _ []store.LedgerEntryInput) error {
			ledgerWrites++
			return nil
		},
	}, stubPurchaseStore{}, nil, stubDirectory{unrestricted: map[string]bool{"admin-1": true}}, nil, Options{})
	balance, breakdown, err := service.Deduct(context.Background(), "admin-1", credits.Bounded(1000), credits.ModeClassic, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Credits != 3 || breakdown.Total() != 0 || ledgerWrites != 0 {
		t.Fatalf("bypass must not touch balance or ledger: %#v %#v", balance, breakdown)
	}
}

func TestDeductSecondaryDuelPlayerPaysNothing(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getFn: func(_ context.Context, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 5}, nil
		},
		getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.Balance, error) {
			t.Fatalf("secondary player must not lock the balance")
			return models.Balance{}, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	_, breakdown, err := service.Deduct(context.Background(), "user-2", credits.Bounded(10), credits.ModeDuel, "", false)
	if err != nil || breakdown.Total() != 0 {
		t.Fatalf("expected free ride for secondary player: %#v %v", breakdown, err)
	}
}

func TestDeductMapsRetryExhaustionToConflict(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{err: db.ErrTxRetryLimit}, stubBalanceStore{}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	_, _, err := service.Deduct(context.Background(), "user-1", credits.Bounded(1), credits.ModeClassic, "", true)
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestDeductVersionCheckFailureIsConflict(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 10}, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, _ models.Balance, _ int64) (int64, error) {
			return 0, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	_, _, err := service.Deduct(context.Background(), "user-1", credits.Bounded(1), credits.ModeClassic, "", true)
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestConcurrentDeductsSingleSuccess(t *testing.T) {
	// A shared balance that can satisfy only one of two simultaneous
	// six-credit deductions. The locking runner stands in for the
	// database's row lock.
	var mu sync.Mutex
	state := models.Balance{UserID: "user-1", Credits: 6}
	runner := &lockingTxRunner{}
	balances := stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.Balance, error) {
			mu.Lock()
			defer mu.Unlock()
			return state, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, balance models.Balance, expectedVersion int64) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			if state.Version != expectedVersion {
				return 0, nil
			}
			balance.Version = expectedVersion + 1
			state = balance
			return 1, nil
		},
	}
	service, _ := newTestService(t, runner, balances, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _, err := service.Deduct(context.Background(), "user-1", credits.Bounded(6), credits.ModeClassic, "", true)
			results <- err
		}()
	}
	var successes, insufficiencies int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, credits.ErrInsufficientBalance), errors.Is(err, ErrConcurrencyConflict):
			insufficiencies++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || insufficiencies != 1 {
		t.Fatalf("expected exactly one success, got %d successes %d failures", successes, insufficiencies)
	}
	mu.Lock()
	defer mu.Unlock()
	if state.TotalCredits() != 0 {
		t.Fatalf("account overdrawn or underdrawn: %#v", state)
	}
}

func TestPurchaseUnknownPackage(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	_, err := service.Purchase(context.Background(), "user-1", "nonexistent")
	if !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestPurchasePendingGateway(t *testing.T) {
	var created store.PurchaseInput
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.Balance, error) {
			t.Fatalf("pending payment must not touch the balance")
			return models.Balance{}, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{
		createFn: func(_ context.Context, _ store.Execer, input store.PurchaseInput) error {
			created = input
			return nil
		},
	}, stubGateway{
		processFn: func(_ context.Context, _ string, _ decimal.Decimal, _ string) (PaymentResult, error) {
			return PaymentResult{Status: PaymentPending, Reference: "pay_abc"}, nil
		},
	}, nil, nil, Options{})
	outcome, err := service.Purchase(context.Background(), "user-1", "starter")
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
	if outcome.Status != PaymentPending || outcome.Reference != "pay_abc" {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if created.Status != models.PurchaseStatusPending || created.GatewayReference != "pay_abc" {
		t.Fatalf("unexpected stored purchase: %#v", created)
	}
}

func TestPurchaseFailedGateway(t *testing.T) {
	var created store.PurchaseInput
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{}, stubLedgerStore{}, stubPurchaseStore{
		createFn: func(_ context.Context, _ store.Execer, input store.PurchaseInput) error {
			created = input
			return nil
		},
	}, stubGateway{
		processFn: func(_ context.Context, _ string, _ decimal.Decimal, _ string) (PaymentResult, error) {
			return PaymentResult{Status: PaymentFailed, Reference: "pay_bad"}, nil
		},
	}, nil, nil, Options{})
	outcome, err := service.Purchase(context.Background(), "user-1", "starter")
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
	if outcome.Status != PaymentFailed || created.Status != models.PurchaseStatusFailed {
		t.Fatalf("unexpected outcome %#v purchase %#v", outcome, created)
	}
}

func TestPurchaseCompletedCreditsBalance(t *testing.T) {
	var saved models.Balance
	var entries []store.LedgerEntryInput
	marked := 0
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 2}, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, balance models.Balance, _ int64) (int64, error) {
			saved = balance
			return 1, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, inputs []store.LedgerEntryInput) error {
			entries = inputs
			return nil
		},
	}, stubPurchaseStore{
		markCompletedFn: func(_ context.Context, _ store.Execer, _ string, _ time.Time) (int64, error) {
			marked++
			return 1, nil
		},
	}, stubGateway{}, nil, nil, Options{})
	outcome, err := service.Purchase(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != PaymentCompleted || outcome.Balance == nil {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if marked != 1 || saved.PurchasedCredits != 50 {
		t.Fatalf("expected starter pack credited to purchased source: %#v", saved)
	}
	if len(entries) != 1 || entries[0].Type != models.LedgerTypePurchase || entries[0].Amount != 50 {
		t.Fatalf("unexpected ledger entries: %#v", entries)
	}
}

func TestConfirmPurchaseCreditsOnce(t *testing.T) {
	// First confirmation credits, second is a successful no-op. The store
	// flips status on the first MarkCompleted, mirroring the conditional
	// UPDATE in Postgres.
	status := models.PurchaseStatusPending
	balance := models.Balance{UserID: "user-1", PurchasedCredits: 0}
	ledgerWrites := 0
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.Balance, error) {
			return balance, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, next models.Balance, _ int64) (int64, error) {
			balance = next
			return 1, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, _ []store.LedgerEntryInput) error {
			ledgerWrites++
			return nil
		},
	}, stubPurchaseStore{
		getByRefFn: func(_ context.Context, _ store.Getter, reference string) (models.Purchase, error) {
			return models.Purchase{ID: "p1", UserID: "user-1", Credits: 120, Status: status, GatewayReference: reference}, nil
		},
		markCompletedFn: func(_ context.Context, _ store.Execer, _ string, _ time.Time) (int64, error) {
			if status != models.PurchaseStatusPending {
				return 0, nil
			}
			status = models.PurchaseStatusCompleted
			return 1, nil
		},
	}, nil, nil, nil, Options{})

	first, err := service.ConfirmPurchase(context.Background(), "user-1", "pay_abc", 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PurchasedCredits != 120 || ledgerWrites != 1 {
		t.Fatalf("first confirmation should credit once: %#v writes %d", first, ledgerWrites)
	}
	second, err := service.ConfirmPurchase(context.Background(), "user-1", "pay_abc", 120)
	if err != nil {
		t.Fatalf("duplicate confirmation must succeed: %v", err)
	}
	if second.PurchasedCredits != 120 || ledgerWrites != 1 {
		t.Fatalf("duplicate confirmation must not credit again: %#v writes %d", second, ledgerWrites)
	}
}

func TestConfirmPurchaseWrongUser(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{}, stubLedgerStore{}, stubPurchaseStore{
		getByRefFn: func(_ context.Context, _ store.Getter, _ string) (models.Purchase, error) {
			return models.Purchase{ID: "p1", UserID: "someone-else", Credits: 120, Status: models.PurchaseStatusPending}, nil
		},
	}, nil, nil, nil, Options{})
	_, err := service.ConfirmPurchase(context.Background(), "user-1", "pay_abc", 120)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConfirmPurchaseFailedPayment(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{}, stubLedgerStore{}, stubPurchaseStore{
		getByRefFn: func(_ context.Context, _ store.Getter, _ string) (models.Purchase, error) {
			return models.Purchase{ID: "p1", UserID: "user-1", Credits: 120, Status: models.PurchaseStatusFailed}, nil
		},
	}, nil, nil, nil, Options{})
	_, err := service.ConfirmPurchase(context.Background(), "user-1", "pay_abc", 120)
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
}

func TestAdjustBelowZeroRejected(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 3, PurchasedCredits: 50}, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, _ models.Balance, _ int64) (int64, error) {
			t.Fatalf("balance must not be written when the adjustment overdraws")
			return 0, nil
		},
	}, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{})
	// Purchased credits cannot soak up an admin debit of general credits.
	_, err := service.Adjust(context.Background(), "user-1", -5, "correction")
	if !errors.Is(err, credits.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestGrantBonusGoesToGeneralCredits(t *testing.T) {
	var saved models.Balance
	var entries []store.LedgerEntryInput
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 2}, nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, balance models.Balance, _ int64) (int64, error) {
			saved = balance
			return 1, nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, inputs []store.LedgerEntryInput) error {
			entries = inputs
			return nil
		},
	}, stubPurchaseStore{}, nil, nil, nil, Options{})
	balance, err := service.GrantBonus(context.Background(), "user-1", 10, "streak reward")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Credits != 12 || saved.Credits != 12 {
		t.Fatalf("bonus should land in general credits: %#v", saved)
	}
	if len(entries) != 1 || entries[0].Type != models.LedgerTypeBonus {
		t.Fatalf("unexpected ledger entries: %#v", entries)
	}
}

func TestRunDailyResetIdempotent(t *testing.T) {
	fixed := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	state := map[string]models.Balance{
		"user-1": {UserID: "user-1", FreeQuestions: 1, DailyLimit: 3},
		"user-2": {UserID: "user-2", FreeQuestions: 0, DailyLimit: 5},
	}
	var mu sync.Mutex
	balances := stubBalanceStore{
		listResetFn: func(_ context.Context, dayStart time.Time) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			var ids []string
			for id, b := range state {
				if b.LastResetAt == nil || b.LastResetAt.Before(dayStart) {
					ids = append(ids, id)
				}
			}
			return ids, nil
		},
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.Balance, error) {
			mu.Lock()
			defer mu.Unlock()
			return state[userID], nil
		},
		updateSourcesFn: func(_ context.Context, _ store.Execer, balance models.Balance, _ int64) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			state[balance.UserID] = balance
			return 1, nil
		},
	}
	service, _ := newTestService(t, fakeTxRunner{}, balances, stubLedgerStore{}, stubPurchaseStore{}, nil, nil, nil, Options{
		Now: func() time.Time { return fixed },
	})

	count, err := service.RunDailyReset(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 users reset, got %d", count)
	}
	if state["user-1"].FreeQuestions != 3 || state["user-2"].FreeQuestions != 5 {
		t.Fatalf("allotments not restored: %#v", state)
	}

	// Same day again, nothing to do.
	count, err = service.RunDailyReset(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("rerun should reset nobody, got %d", count)
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	var askedLimits []int
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{}, stubLedgerStore{
		historyFn: func(_ context.Context, _ string, limit int) ([]models.LedgerEntry, error) {
			askedLimits = append(askedLimits, limit)
			return nil, nil
		},
	}, stubPurchaseStore{}, nil, nil, nil, Options{})
	for _, limit := range []int{0, -5, 20, 500} {
		if _, err := service.History(context.Background(), "user-1", limit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := []int{50, 50, 20, 100}
	for i, got := range askedLimits {
		if got != want[i] {
			t.Fatalf("limit %d: got %d, want %d", i, got, want[i])
		}
	}
}

func TestVerifyLedger(t *testing.T) {
	service, _ := newTestService(t, fakeTxRunner{}, stubBalanceStore{
		getFn: func(_ context.Context, userID string) (models.Balance, error) {
			return models.Balance{UserID: userID, Credits: 7, PurchasedCredits: 3}, nil
		},
	}, stubLedgerStore{
		sumFn: func(_ context.Context, _ string) (int64, error) {
			return 9, nil
		},
	}, stubPurchaseStore{}, nil, nil, nil, Options{})
	check, err := service.VerifyLedger(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.StoredTotal != 10 || check.LedgerSum != 9 || check.Difference != 1 {
		t.Fatalf("unexpected check: %#v", check)
	}
}
