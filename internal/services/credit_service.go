package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"trivia/internal/cache"
	"trivia/internal/credits"
	"trivia/internal/db"
	"trivia/internal/models"
	"trivia/internal/money"
	"trivia/internal/store"
	"trivia/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrConcurrencyConflict = errors.New("concurrent balance update conflict")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrUnknownPackage      = errors.New("unknown credit package")
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrPurchaseNotFound    = errors.New("purchase not found")
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentResult struct {
	Status    PaymentStatus
	Reference string
}

// PaymentGateway is the external payment collaborator. The engine never
// assumes a specific provider.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, userID string, amount decimal.Decimal, currency string) (PaymentResult, error)
}

// AccountDirectory answers role questions owned by the account system.
type AccountDirectory interface {
	IsUnrestricted(ctx context.Context, userID string) (bool, error)
}

type BalanceStore interface {
	Get(ctx context.Context, userID string) (models.Balance, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Balance, error)
	UpdateSources(ctx context.Context, tx store.Execer, balance models.Balance, expectedVersion int64) (int64, error)
	ListUsersNeedingReset(ctx context.Context, dayStart time.Time) ([]string, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	SumByUser(ctx context.Context, userID string) (int64, error)
}

type PurchaseStore interface {
	Create(ctx context.Context, tx store.Execer, input store.PurchaseInput) error
	GetByReferenceForUpdate(ctx context.Context, tx store.Getter, reference string) (models.Purchase, error)
	MarkCompleted(ctx context.Context, tx store.Execer, purchaseID string, completedAt time.Time) (int64, error)
	MarkFailed(ctx context.Context, tx store.Execer, purchaseID string) (int64, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type Options struct {
	Now                    func() time.Time
	MaxQuestionsPerRequest int64
	ResetLocation          *time.Location
}

type CreditService struct {
	txRunner     db.TxRunner
	balances     BalanceStore
	ledger       LedgerStore
	purchases    PurchaseStore
	cache        cache.BalanceCache
	gateway      PaymentGateway
	accounts     AccountDirectory
	hub          BalanceHub
	now          func() time.Time
	maxQuestions int64
	resetLoc     *time.Location
}

func NewCreditService(txRunner db.TxRunner, balances BalanceStore, ledger LedgerStore, purchases PurchaseStore, balanceCache cache.BalanceCache, gateway PaymentGateway, accounts AccountDirectory, hub BalanceHub, opts Options) *CreditService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxQuestions := opts.MaxQuestionsPerRequest
	if maxQuestions <= 0 {
		maxQuestions = 50
	}
	resetLoc := opts.ResetLocation
	if resetLoc == nil {
		resetLoc = time.UTC
	}
	return &CreditService{
		txRunner:     txRunner,
		balances:     balances,
		ledger:       ledger,
		purchases:    purchases,
		cache:        balanceCache,
		gateway:      gateway,
		accounts:     accounts,
		hub:          hub,
		now:          now,
		maxQuestions: maxQuestions,
		resetLoc:     resetLoc,
	}
}

type CanPlayResult struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Required  int64  `json:"required"`
	Available int64  `json:"available"`
}

// CanPlay is the read-only pre-flight check. It compares the full computed
// cost against the derived total across all three sources; having a free
// question left is not enough on its own.
func (s *CreditService) CanPlay(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode) (CanPlayResult, error) {
	required, err := credits.RequiredCredits(size, mode, s.maxQuestions)
	if err != nil {
		return CanPlayResult{}, err
	}
	unrestricted, err := s.accounts.IsUnrestricted(ctx, userID)
	if err != nil {
		return CanPlayResult{}, err
	}
	if unrestricted {
		return CanPlayResult{Allowed: true, Required: 0}, nil
	}
	balance, err := s.readBalance(ctx, userID)
	if err != nil {
		return CanPlayResult{}, err
	}
	result := CanPlayResult{Required: required, Available: balance.TotalCredits()}
	if required <= balance.TotalCredits() {
		result.Allowed = true
		return result, nil
	}
	result.Reason = (&credits.InsufficientBalanceError{Required: required, Available: balance.TotalCredits()}).Error()
	return result, nil
}

func (s *CreditService) Balance(ctx context.Context, userID string) (models.Balance, error) {
	return s.readBalance(ctx, userID)
}

// Deduct charges a session against the user's balance inside one
// serializable transaction: locked read, pure deduction, guarded write,
// ledger append. The cache entry is invalidated after commit and before
// returning.
func (s *CreditService) Deduct(ctx context.Context, userID string, size credits.SessionSize, mode credits.GameMode, reason string, primaryPlayer bool) (models.Balance, credits.Breakdown, error) {
	policy, err := credits.PolicyFor(mode)
	if err != nil {
		return models.Balance{}, credits.Breakdown{}, err
	}
	unrestricted, err := s.accounts.IsUnrestricted(ctx, userID)
	if err != nil {
		return models.Balance{}, credits.Breakdown{}, err
	}
	if unrestricted || (policy.OnlyPrimaryPlayerPays && !primaryPlayer) {
		// Zero breakdown, no mutation, no ledger entry.
		balance, err := s.readBalance(ctx, userID)
		return balance, credits.Breakdown{}, err
	}

	var newBalance models.Balance
	var breakdown credits.Breakdown
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.balances.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return mapNoRows(err, ErrBalanceNotFound)
		}
		next, used, err := credits.ApplyDeduction(balance, size, mode, s.maxQuestions)
		if err != nil {
			return err
		}
		if used.Total() == 0 {
			newBalance = balance
			breakdown = used
			return nil
		}
		rows, err := s.balances.UpdateSources(ctx, tx, next, balance.Version)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrConcurrencyConflict
		}
		metadata := metadataJSON(map[string]any{
			"mode":         string(mode),
			"session_size": size.Raw(),
			"reason":       reason,
		})
		entries := s.deductionEntries(userID, balance, used, metadata)
		if err := ensureSnapshotChain(balance, entries); err != nil {
			return err
		}
		if err := s.ledger.InsertEntries(ctx, tx, entries); err != nil {
			return err
		}
		newBalance = next
		breakdown = used
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrTxRetryLimit) {
			return models.Balance{}, credits.Breakdown{}, ErrConcurrencyConflict
		}
		return models.Balance{}, credits.Breakdown{}, err
	}
	if breakdown.Total() > 0 {
		s.invalidateAndBroadcast(ctx, userID, newBalance)
	}
	return newBalance, breakdown, nil
}

type PurchaseOutcome struct {
	Status    PaymentStatus   `json:"status"`
	Reference string          `json:"reference,omitempty"`
	Balance   *models.Balance `json:"balance,omitempty"`
}

// Purchase runs the external payment collaborator and records the purchase.
// A Completed result credits the balance immediately; Pending waits for the
// gateway confirmation callback; Failed leaves the balance untouched.
func (s *CreditService) Purchase(ctx context.Context, userID, packageID string) (PurchaseOutcome, error) {
	pkg, ok := PackageByID(packageID)
	if !ok {
		return PurchaseOutcome{}, ErrUnknownPackage
	}
	if _, err := s.balances.Get(ctx, userID); err != nil {
		return PurchaseOutcome{}, mapNoRows(err, ErrBalanceNotFound)
	}
	result, err := s.gateway.ProcessPayment(ctx, userID, money.MinorToDecimal(pkg.PriceMinor), pkg.Currency)
	if err != nil {
		return PurchaseOutcome{}, err
	}

	input := store.PurchaseInput{
		ID:               uuid.NewString(),
		UserID:           userID,
		PackageID:        pkg.ID,
		Credits:          pkg.Credits,
		AmountMinor:      pkg.PriceMinor,
		Currency:         pkg.Currency,
		Status:           models.PurchaseStatusPending,
		GatewayReference: result.Reference,
	}

	switch result.Status {
	case PaymentFailed:
		input.Status = models.PurchaseStatusFailed
		if err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			return s.purchases.Create(ctx, tx, input)
		}); err != nil {
			return PurchaseOutcome{}, err
		}
		return PurchaseOutcome{Status: PaymentFailed, Reference: result.Reference}, ErrPaymentNotCompleted
	case PaymentPending:
		if err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			return s.purchases.Create(ctx, tx, input)
		}); err != nil {
			return PurchaseOutcome{}, err
		}
		return PurchaseOutcome{Status: PaymentPending, Reference: result.Reference}, ErrPaymentNotCompleted
	case PaymentCompleted:
		var balance models.Balance
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.purchases.Create(ctx, tx, input); err != nil {
				return err
			}
			rows, err := s.purchases.MarkCompleted(ctx, tx, input.ID, s.now())
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrConcurrencyConflict
			}
			credited, err := s.creditPurchase(ctx, tx, userID, pkg.ID, pkg.Credits, result.Reference)
			if err != nil {
				return err
			}
			balance = credited
			return nil
		})
		if err != nil {
			if errors.Is(err, db.ErrTxRetryLimit) {
				return PurchaseOutcome{}, ErrConcurrencyConflict
			}
			return PurchaseOutcome{}, err
		}
		s.invalidateAndBroadcast(ctx, userID, balance)
		return PurchaseOutcome{Status: PaymentCompleted, Reference: result.Reference, Balance: &balance}, nil
	default:
		return PurchaseOutcome{}, ErrInvalidInput
	}
}

// ConfirmPurchase applies the credit for a gateway reference exactly once.
// A duplicate confirmation is a successful no-op returning the current
// balance, never a double credit.
func (s *CreditService) ConfirmPurchase(ctx context.Context, userID, reference string, creditAmount int64) (models.Balance, error) {
	if reference == "" {
		return models.Balance{}, ErrInvalidInput
	}
	var balance models.Balance
	var credited bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		purchase, err := s.purchases.GetByReferenceForUpdate(ctx, tx, reference)
		if err != nil {
			return mapNoRows(err, ErrPurchaseNotFound)
		}
		if purchase.UserID != userID {
			return ErrInvalidInput
		}
		if creditAmount > 0 && creditAmount != purchase.Credits {
			return ErrInvalidInput
		}
		switch purchase.Status {
		case models.PurchaseStatusCompleted:
			current, err := s.balances.GetForUpdate(ctx, tx, userID)
			if err != nil {
				return mapNoRows(err, ErrBalanceNotFound)
			}
			balance = current
			return nil
		case models.PurchaseStatusFailed:
			return ErrPaymentNotCompleted
		}
		rows, err := s.purchases.MarkCompleted(ctx, tx, purchase.ID, s.now())
		if err != nil {
			return err
		}
		if rows == 0 {
			current, err := s.balances.GetForUpdate(ctx, tx, userID)
			if err != nil {
				return mapNoRows(err, ErrBalanceNotFound)
			}
			balance = current
			return nil
		}
		next, err := s.creditPurchase(ctx, tx, userID, purchase.PackageID, purchase.Credits, reference)
		if err != nil {
			return err
		}
		balance = next
		credited = true
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrTxRetryLimit) {
			return models.Balance{}, ErrConcurrencyConflict
		}
		return models.Balance{}, err
	}
	if credited {
		s.invalidateAndBroadcast(ctx, userID, balance)
	}
	return balance, nil
}

// creditPurchase applies the top-up and ledger entry inside the caller's
// transaction. The purchase row must already be completed (or being
// completed) in the same transaction.
func (s *CreditService) creditPurchase(ctx context.Context, tx *sqlx.Tx, userID, packageID string, amount int64, reference string) (models.Balance, error) {
	balance, err := s.balances.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return models.Balance{}, mapNoRows(err, ErrBalanceNotFound)
	}
	next, err := credits.ApplyCredit(balance, amount, models.SourcePurchased)
	if err != nil {
		return models.Balance{}, err
	}
	rows, err := s.balances.UpdateSources(ctx, tx, next, balance.Version)
	if err != nil {
		return models.Balance{}, err
	}
	if rows == 0 {
		return models.Balance{}, ErrConcurrencyConflict
	}
	source := models.SourcePurchased
	entry := store.LedgerEntryInput{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   models.LedgerTypePurchase,
		Source: &source,
		Amount: amount,
		Metadata: metadataJSON(map[string]any{
			"package_id":        packageID,
			"payment_reference": reference,
		}),
		TransactionDate: s.now(),
	}
	entry.BalanceCredits = next.Credits
	entry.BalancePurchased = next.PurchasedCredits
	entry.BalanceFree = next.FreeQuestions
	if err := ensureSnapshotChain(balance, []store.LedgerEntryInput{entry}); err != nil {
		return models.Balance{}, err
	}
	if err := s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{entry}); err != nil {
		return models.Balance{}, err
	}
	return next, nil
}

// Adjust applies a signed administrative correction to general credits.
func (s *CreditService) Adjust(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error) {
	if amount == 0 {
		return models.Balance{}, ErrInvalidInput
	}
	return s.applySingleSourceChange(ctx, userID, amount, models.LedgerTypeAdminAdjustment, models.SourceCredits, reason)
}

// GrantBonus credits general credits with a bonus ledger entry.
func (s *CreditService) GrantBonus(ctx context.Context, userID string, amount int64, reason string) (models.Balance, error) {
	if amount <= 0 {
		return models.Balance{}, ErrInvalidInput
	}
	return s.applySingleSourceChange(ctx, userID, amount, models.LedgerTypeBonus, models.SourceBonus, reason)
}

func (s *CreditService) applySingleSourceChange(ctx context.Context, userID string, amount int64, entryType, source, reason string) (models.Balance, error) {
	var balance models.Balance
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.balances.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return mapNoRows(err, ErrBalanceNotFound)
		}
		var next models.Balance
		if amount > 0 {
			next, err = credits.ApplyCredit(current, amount, source)
			if err != nil {
				return err
			}
		} else {
			next = current
			next.Credits += amount
			if next.Credits < 0 {
				return &credits.InsufficientBalanceError{Required: -amount, Available: current.Credits}
			}
		}
		rows, err := s.balances.UpdateSources(ctx, tx, next, current.Version)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrConcurrencyConflict
		}
		src := source
		entry := store.LedgerEntryInput{
			ID:               uuid.NewString(),
			UserID:           userID,
			Type:             entryType,
			Source:           &src,
			Amount:           amount,
			BalanceCredits:   next.Credits,
			BalancePurchased: next.PurchasedCredits,
			BalanceFree:      next.FreeQuestions,
			Metadata:         metadataJSON(map[string]any{"reason": reason}),
			TransactionDate:  s.now(),
		}
		if err := ensureSnapshotChain(current, []store.LedgerEntryInput{entry}); err != nil {
			return err
		}
		if err := s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{entry}); err != nil {
			return err
		}
		balance = next
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrTxRetryLimit) {
			return models.Balance{}, ErrConcurrencyConflict
		}
		return models.Balance{}, err
	}
	s.invalidateAndBroadcast(ctx, userID, balance)
	return balance, nil
}

func (s *CreditService) History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.ledger.History(ctx, userID, limit)
}

type LedgerCheck struct {
	StoredTotal int64 `json:"stored_total"`
	LedgerSum   int64 `json:"ledger_sum"`
	Difference  int64 `json:"difference"`
}

// VerifyLedger reconciles the stored balance against the signed ledger sum.
func (s *CreditService) VerifyLedger(ctx context.Context, userID string) (LedgerCheck, error) {
	balance, err := s.readBalance(ctx, userID)
	if err != nil {
		return LedgerCheck{}, err
	}
	sum, err := s.ledger.SumByUser(ctx, userID)
	if err != nil {
		return LedgerCheck{}, err
	}
	return LedgerCheck{
		StoredTotal: balance.TotalCredits(),
		LedgerSum:   sum,
		Difference:  balance.TotalCredits() - sum,
	}, nil
}

// RunDailyReset restores the free-question allotment for every user whose
// last reset predates today in the configured zone. Each user is its own
// transaction, so a rerun or a race with a deduction settles per user, not
// globally. Returns how many users were reset.
func (s *CreditService) RunDailyReset(ctx context.Context) (int, error) {
	now := s.now().In(s.resetLoc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.resetLoc)
	userIDs, err := s.balances.ListUsersNeedingReset(ctx, dayStart)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, userID := range userIDs {
		reset, balance, err := s.resetUser(ctx, userID, now, dayStart)
		if err != nil {
			log.Printf("daily reset failed for user %s: %v", userID, err)
			continue
		}
		if reset {
			s.invalidateAndBroadcast(ctx, userID, balance)
			count++
		}
	}
	return count, nil
}

func (s *CreditService) resetUser(ctx context.Context, userID string, now, dayStart time.Time) (bool, models.Balance, error) {
	var balance models.Balance
	var reset bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.balances.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return mapNoRows(err, ErrBalanceNotFound)
		}
		if current.LastResetAt != nil && !current.LastResetAt.Before(dayStart) {
			// Already reset today, likely by a concurrent run.
			return nil
		}
		delta := current.DailyLimit - current.FreeQuestions
		next := current
		next.FreeQuestions = current.DailyLimit
		resetAt := now
		next.LastResetAt = &resetAt
		rows, err := s.balances.UpdateSources(ctx, tx, next, current.Version)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrConcurrencyConflict
		}
		if delta != 0 {
			source := models.SourceFreeDaily
			entry := store.LedgerEntryInput{
				ID:               uuid.NewString(),
				UserID:           userID,
				Type:             models.LedgerTypeDailyReset,
				Source:           &source,
				Amount:           delta,
				BalanceCredits:   next.Credits,
				BalancePurchased: next.PurchasedCredits,
				BalanceFree:      next.FreeQuestions,
				Metadata:         metadataJSON(map[string]any{"daily_limit": current.DailyLimit}),
				TransactionDate:  now,
			}
			if err := ensureSnapshotChain(current, []store.LedgerEntryInput{entry}); err != nil {
				return err
			}
			if err := s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{entry}); err != nil {
				return err
			}
		}
		balance = next
		reset = true
		return nil
	})
	return reset, balance, err
}

func (s *CreditService) readBalance(ctx context.Context, userID string) (models.Balance, error) {
	if cached, ok, err := s.cache.Get(ctx, userID); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("balance cache read failed for user %s: %v", userID, err)
	}
	balance, err := s.balances.Get(ctx, userID)
	if err != nil {
		return models.Balance{}, mapNoRows(err, ErrBalanceNotFound)
	}
	if err := s.cache.Set(ctx, userID, balance); err != nil {
		log.Printf("balance cache write failed for user %s: %v", userID, err)
	}
	return balance, nil
}

func (s *CreditService) invalidateAndBroadcast(ctx context.Context, userID string, balance models.Balance) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Printf("balance cache invalidation failed for user %s: %v", userID, err)
	}
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		Credits:          balance.Credits,
		PurchasedCredits: balance.PurchasedCredits,
		FreeQuestions:    balance.FreeQuestions,
		TotalCredits:     balance.TotalCredits(),
	})
}

// deductionEntries builds one ledger row per source actually drawn, in
// deduction order, with incremental post-mutation snapshots so each row's
// amount chains from the previous snapshot.
func (s *CreditService) deductionEntries(userID string, before models.Balance, breakdown credits.Breakdown, metadata string) []store.LedgerEntryInput {
	now := s.now()
	running := before
	var entries []store.LedgerEntryInput
	appendEntry := func(source string, used int64) {
		if used == 0 {
			return
		}
		switch source {
		case models.SourceFreeDaily:
			running.FreeQuestions -= used
		case models.SourcePurchased:
			running.PurchasedCredits -= used
		case models.SourceCredits:
			running.Credits -= used
		}
		src := source
		entries = append(entries, store.LedgerEntryInput{
			ID:               uuid.NewString(),
			UserID:           userID,
			Type:             models.LedgerTypeDeduction,
			Source:           &src,
			Amount:           -used,
			BalanceCredits:   running.Credits,
			BalancePurchased: running.PurchasedCredits,
			BalanceFree:      running.FreeQuestions,
			Metadata:         metadata,
			TransactionDate:  now,
		})
	}
	appendEntry(models.SourceFreeDaily, breakdown.FreeQuestionsUsed)
	appendEntry(models.SourcePurchased, breakdown.PurchasedCreditsUsed)
	appendEntry(models.SourceCredits, breakdown.CreditsUsed)
	return entries
}

// ensureSnapshotChain verifies each entry's signed amount plus the prior
// snapshot total equals its own snapshot total.
func ensureSnapshotChain(before models.Balance, entries []store.LedgerEntryInput) error {
	total := before.TotalCredits()
	for _, entry := range entries {
		snapshot := entry.BalanceCredits + entry.BalancePurchased + entry.BalanceFree
		if total+entry.Amount != snapshot {
			return errors.New("ledger snapshots do not chain")
		}
		total = snapshot
	}
	return nil
}

func metadataJSON(fields map[string]any) string {
	data, _ := json.Marshal(fields)
	return string(data)
}

func mapNoRows(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}
