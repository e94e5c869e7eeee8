package store

import (
	"context"
	"time"

	"trivia/internal/models"
)

type PurchaseStore struct {
	db DB
}

func NewPurchaseStore(db DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

type PurchaseInput struct {
	ID               string
	UserID           string
	PackageID        string
	Credits          int64
	AmountMinor      int64
	Currency         string
	Status           string
	GatewayReference string
}

func (s *PurchaseStore) Create(ctx context.Context, tx Execer, input PurchaseInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, package_id, credits, amount_minor, currency, status, gateway_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.UserID, input.PackageID, input.Credits, input.AmountMinor, input.Currency, input.Status, input.GatewayReference)
	return err
}

func (s *PurchaseStore) GetByReference(ctx context.Context, reference string) (models.Purchase, error) {
	var row models.Purchase
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, package_id, credits, amount_minor, currency, status, gateway_reference, created_at, completed_at
		FROM purchases
		WHERE gateway_reference = $1
	`, reference)
	if err != nil {
		return models.Purchase{}, err
	}
	return row, nil
}

func (s *PurchaseStore) GetByReferenceForUpdate(ctx context.Context, tx Getter, reference string) (models.Purchase, error) {
	var row models.Purchase
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, package_id, credits, amount_minor, currency, status, gateway_reference, created_at, completed_at
		FROM purchases
		WHERE gateway_reference = $1
		FOR UPDATE
	`, reference)
	if err != nil {
		return models.Purchase{}, err
	}
	return row, nil
}

// MarkCompleted is the idempotency gate: only a pending row transitions, so
// a duplicate confirmation affects zero rows.
func (s *PurchaseStore) MarkCompleted(ctx context.Context, tx Execer, purchaseID string, completedAt time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`, models.PurchaseStatusCompleted, completedAt, purchaseID, models.PurchaseStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PurchaseStore) MarkFailed(ctx context.Context, tx Execer, purchaseID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE purchases
		SET status = $1
		WHERE id = $2 AND status = $3
	`, models.PurchaseStatusFailed, purchaseID, models.PurchaseStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
