package store

import (
	"context"
	"errors"
	"time"

	"github.com/punchamoorthee/mxledger/internal/domain"
)

// GetTransferByID returns ErrNotFound when no transfer has the given id.
func (s *Store) GetTransferByID(ctx context.Context, id int64) (*domain.Transfer, error) {
	var t domain.Transfer
	err := s.Db.QueryRow(ctx,
		"SELECT id, payment_account_id, amount, currency, method, submitted_at, deleted_at, created_at FROM transfers WHERE id = $1",
		id).Scan(&t.ID, &t.PaymentAccountID, &t.Amount, &t.Currency, &t.Method, &t.SubmittedAt, &t.DeletedAt, &t.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// GetLatestStripeTransferByTransferID returns the most recently created submission, or nil, nil if none exists.
func (s *Store) GetLatestStripeTransferByTransferID(ctx context.Context, transferID int64) (*domain.StripeTransfer, error) {
	var st domain.StripeTransfer
	err := s.Db.QueryRow(ctx,
		"SELECT id, transfer_id, stripe_id, stripe_status, created_at FROM stripe_transfers WHERE transfer_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1",
		transferID).Scan(&st.ID, &st.TransferID, &st.StripeID, &st.StripeStatus, &st.CreatedAt)
	if err != nil {
		if err = translate(err); errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) CountTransfers(ctx context.Context) (int, error) {
	var n int
	if err := s.Db.QueryRow(ctx, "SELECT COUNT(*) FROM transfers").Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// InsertTransfer is used by the seeder; payout scheduling owns transfers in production.
func (s *Store) InsertTransfer(ctx context.Context, t *domain.Transfer) error {
	return translate(s.Db.QueryRow(ctx,
		"INSERT INTO transfers (payment_account_id, amount, currency, method, submitted_at, deleted_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		t.PaymentAccountID, t.Amount, t.Currency, t.Method, t.SubmittedAt, t.DeletedAt,
	).Scan(&t.ID, &t.CreatedAt))
}

func (s *Store) InsertStripeTransfer(ctx context.Context, st *domain.StripeTransfer) error {
	createdAt := st.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return translate(s.Db.QueryRow(ctx,
		"INSERT INTO stripe_transfers (transfer_id, stripe_id, stripe_status, created_at) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		st.TransferID, st.StripeID, st.StripeStatus, createdAt,
	).Scan(&st.ID, &st.CreatedAt))
}
