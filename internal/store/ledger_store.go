package store

import (
	"context"
	"time"

	"trivia/internal/models"
)

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID               string
	UserID           string
	Type             string
	Source           *string
	Amount           int64
	BalanceCredits   int64
	BalancePurchased int64
	BalanceFree      int64
	Metadata         string
	TransactionDate  time.Time
}

// InsertEntries appends rows to the ledger. Entries are never updated or
// deleted afterwards; the table is the audit trail.
func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, type, source, amount, balance_credits, balance_purchased, balance_free, metadata, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			entry.ID, entry.UserID, entry.Type, entry.Source, entry.Amount,
			entry.BalanceCredits, entry.BalancePurchased, entry.BalanceFree,
			entry.Metadata, entry.TransactionDate,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, source, amount, balance_credits, balance_purchased, balance_free, metadata, transaction_date, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`, userID)
	return sum, err
}
