package store

import (
	"context"
	"time"

	"trivia/internal/models"
)

type BalanceStore struct {
	db DB
}

func NewBalanceStore(db DB) *BalanceStore {
	return &BalanceStore{db: db}
}

func (s *BalanceStore) Get(ctx context.Context, userID string) (models.Balance, error) {
	var row models.Balance
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, credits, purchased_credits, free_questions, daily_limit, last_reset_at, version, updated_at
		FROM balances
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return models.Balance{}, err
	}
	return row, nil
}

func (s *BalanceStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.Balance, error) {
	var row models.Balance
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, credits, purchased_credits, free_questions, daily_limit, last_reset_at, version, updated_at
		FROM balances
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return models.Balance{}, err
	}
	return row, nil
}

func (s *BalanceStore) Create(ctx context.Context, tx Execer, userID string, dailyLimit int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, credits, purchased_credits, free_questions, daily_limit)
		VALUES ($1, 0, 0, $2, $2)
	`, userID, dailyLimit)
	return err
}

// UpdateSources writes all three sources in one guarded statement. The
// version check turns a lost read-modify-write race into zero affected rows
// instead of a silent overwrite.
func (s *BalanceStore) UpdateSources(ctx context.Context, tx Execer, balance models.Balance, expectedVersion int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET credits = $1,
		    purchased_credits = $2,
		    free_questions = $3,
		    last_reset_at = $4,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $5 AND version = $6
	`, balance.Credits, balance.PurchasedCredits, balance.FreeQuestions, balance.LastResetAt, balance.UserID, expectedVersion)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListUsersNeedingReset returns users whose last reset predates the given
// day start. Plain read, no lock; each reset is its own transaction.
func (s *BalanceStore) ListUsersNeedingReset(ctx context.Context, dayStart time.Time) ([]string, error) {
	var userIDs []string
	err := s.db.SelectContext(ctx, &userIDs, `
		SELECT user_id
		FROM balances
		WHERE last_reset_at IS NULL OR last_reset_at < $1
		ORDER BY user_id
	`, dayStart)
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
