package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/mxledger/internal/domain"
)

// ErrLedgerNotOpen is returned when a transaction is attached to a ledger that was closed concurrently.
var ErrLedgerNotOpen = fmt.Errorf("%w: mx_ledger is not open", ErrNotFound)

const ledgerColumns = "id, payment_account_id, type, currency, state, balance, created_at, updated_at"

const scheduledLedgerColumns = "s.id, s.payment_account_id, s.ledger_id, s.interval_type, s.start_time, s.end_time, s.closed_at, s.created_at"

func scanLedger(row pgx.Row) (*domain.MxLedger, error) {
	var l domain.MxLedger
	err := row.Scan(&l.ID, &l.PaymentAccountID, &l.Type, &l.Currency, &l.State, &l.Balance, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func scanScheduledLedger(row pgx.Row) (*domain.MxScheduledLedger, error) {
	var s domain.MxScheduledLedger
	err := row.Scan(&s.ID, &s.PaymentAccountID, &s.LedgerID, &s.IntervalType, &s.StartTime, &s.EndTime, &s.ClosedAt, &s.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// GetLedgerByID returns ErrNotFound when no ledger has the given id.
func (s *Store) GetLedgerByID(ctx context.Context, id uuid.UUID) (*domain.MxLedger, error) {
	return scanLedger(s.Db.QueryRow(ctx, "SELECT "+ledgerColumns+" FROM mx_ledgers WHERE id = $1", id))
}

// GetOpenLedgerForPaymentAccount returns nil, nil when the account has no open ledger.
func (s *Store) GetOpenLedgerForPaymentAccount(ctx context.Context, paymentAccountID string) (*domain.MxLedger, error) {
	l, err := scanLedger(s.Db.QueryRow(ctx,
		"SELECT "+ledgerColumns+" FROM mx_ledgers WHERE payment_account_id = $1 AND state = 'open' ORDER BY created_at DESC LIMIT 1",
		paymentAccountID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return l, err
}

// GetScheduledLedgerByID returns ErrNotFound when no scheduled ledger has the given id.
func (s *Store) GetScheduledLedgerByID(ctx context.Context, id uuid.UUID) (*domain.MxScheduledLedger, error) {
	return scanScheduledLedger(s.Db.QueryRow(ctx,
		"SELECT "+scheduledLedgerColumns+" FROM mx_scheduled_ledgers s WHERE s.id = $1", id))
}

// GetOpenScheduledLedgerForPeriod finds the scheduled ledger whose window covers routingKey and
// whose ledger is still open. Returns nil, nil when there is none.
// closed_at IS NULL and l.state = 'open' agree: the mx_ledgers_close_scheduled trigger sets
// closed_at whenever a ledger leaves 'open'.
func (s *Store) GetOpenScheduledLedgerForPeriod(ctx context.Context, paymentAccountID string, routingKey time.Time, interval domain.MxScheduledLedgerIntervalType) (*domain.MxScheduledLedger, error) {
	sl, err := scanScheduledLedger(s.Db.QueryRow(ctx, `
		SELECT `+scheduledLedgerColumns+`
		FROM mx_scheduled_ledgers s
		JOIN mx_ledgers l ON l.id = s.ledger_id
		WHERE s.payment_account_id = $1
		  AND s.interval_type = $2
		  AND s.start_time <= $3 AND s.end_time > $3
		  AND s.closed_at IS NULL
		  AND l.state = 'open'
		ORDER BY s.start_time DESC
		LIMIT 1`,
		paymentAccountID, interval, routingKey))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sl, err
}

// CreateLedgerAndInsertTransaction creates the ledger, its scheduled ledger and the first
// transaction in one database transaction. The ledger balance starts at the transaction amount.
// A concurrent creator for the same account or period surfaces as ErrUniqueViolation.
func (s *Store) CreateLedgerAndInsertTransaction(ctx context.Context, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error) {
	start, end, err := domain.PeriodWindow(in.RoutingKey, in.IntervalType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	ledgerID := uuid.New()
	var txn *domain.MxTransaction
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO mx_ledgers (id, payment_account_id, type, currency, state, balance) VALUES ($1, $2, $3, $4, 'open', $5)",
			ledgerID, in.PaymentAccountID, in.LedgerType, in.Currency, in.Amount)
		if err != nil {
			return fmt.Errorf("mx_ledger insert failed: %w", translate(err))
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO mx_scheduled_ledgers (id, payment_account_id, ledger_id, interval_type, start_time, end_time) VALUES ($1, $2, $3, $4, $5, $6)",
			uuid.New(), in.PaymentAccountID, ledgerID, in.IntervalType, start, end)
		if err != nil {
			return fmt.Errorf("mx_scheduled_ledger insert failed: %w", translate(err))
		}

		txn, err = insertTransaction(ctx, tx, ledgerID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// InsertTransactionAndUpdateLedger attaches a transaction to an open ledger and increments the
// ledger balance by its amount, both in one database transaction.
func (s *Store) InsertTransactionAndUpdateLedger(ctx context.Context, ledgerID uuid.UUID, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error) {
	var txn *domain.MxTransaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		txn, err = insertTransaction(ctx, tx, ledgerID, in)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			"UPDATE mx_ledgers SET balance = balance + $1, updated_at = now() WHERE id = $2 AND state = 'open'",
			in.Amount, ledgerID)
		if err != nil {
			return fmt.Errorf("mx_ledger balance update failed: %w", translate(err))
		}
		if tag.RowsAffected() == 0 {
			return ErrLedgerNotOpen
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactionsForLedger returns the ledger's transactions, oldest first.
func (s *Store) ListTransactionsForLedger(ctx context.Context, ledgerID uuid.UUID) ([]domain.MxTransaction, error) {
	rows, err := s.Db.Query(ctx, `
		SELECT id, payment_account_id, ledger_id, amount, currency, target_type, target_id,
		       idempotency_key, routing_key, legacy_transaction_id, context, metadata, created_at
		FROM mx_transactions WHERE ledger_id = $1 ORDER BY created_at ASC`, ledgerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var txns []domain.MxTransaction
	for rows.Next() {
		var t domain.MxTransaction
		if err := rows.Scan(&t.ID, &t.PaymentAccountID, &t.LedgerID, &t.Amount, &t.Currency, &t.TargetType, &t.TargetID,
			&t.IdempotencyKey, &t.RoutingKey, &t.LegacyTransactionID, &t.Context, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, translate(err)
		}
		txns = append(txns, t)
	}
	return txns, translate(rows.Err())
}

func insertTransaction(ctx context.Context, tx pgx.Tx, ledgerID uuid.UUID, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error) {
	t := &domain.MxTransaction{
		ID:                  uuid.New(),
		PaymentAccountID:    in.PaymentAccountID,
		LedgerID:            ledgerID,
		Amount:              in.Amount,
		Currency:            in.Currency,
		TargetType:          in.TargetType,
		TargetID:            in.TargetID,
		IdempotencyKey:      in.IdempotencyKey,
		RoutingKey:          in.RoutingKey,
		LegacyTransactionID: in.LegacyTransactionID,
		Context:             in.Context,
		Metadata:            in.Metadata,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO mx_transactions (id, payment_account_id, ledger_id, amount, currency, target_type, target_id,
		                             idempotency_key, routing_key, legacy_transaction_id, context, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		t.ID, t.PaymentAccountID, t.LedgerID, t.Amount, t.Currency, t.TargetType, t.TargetID,
		t.IdempotencyKey, t.RoutingKey, t.LegacyTransactionID, nullJSON(t.Context), nullJSON(t.Metadata),
	).Scan(&t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("mx_txn insert failed: %w", translate(err))
	}
	return t, nil
}

// nullJSON keeps empty payloads as SQL NULL instead of an invalid empty jsonb.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
