package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/mxledger/internal/domain"
	"github.com/punchamoorthee/mxledger/internal/events"
	"github.com/punchamoorthee/mxledger/internal/store"
)

var mxTxnRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_mx_txn_recorded_total",
	Help: "mx transactions processed, labeled by outcome",
}, []string{"outcome"})

type LedgerRepository interface {
	GetLedgerByID(ctx context.Context, id uuid.UUID) (*domain.MxLedger, error)
	// GetOpenLedgerForPaymentAccount returns nil, nil when the account has no open ledger.
	GetOpenLedgerForPaymentAccount(ctx context.Context, paymentAccountID string) (*domain.MxLedger, error)
	// CreateLedgerAndInsertTransaction creates ledger, scheduled ledger and transaction atomically.
	CreateLedgerAndInsertTransaction(ctx context.Context, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error)
	// InsertTransactionAndUpdateLedger inserts the transaction and increments the balance atomically.
	InsertTransactionAndUpdateLedger(ctx context.Context, ledgerID uuid.UUID, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error)
}

type ScheduledLedgerRepository interface {
	GetScheduledLedgerByID(ctx context.Context, id uuid.UUID) (*domain.MxScheduledLedger, error)
	// GetOpenScheduledLedgerForPeriod returns nil, nil when no open scheduled ledger covers routingKey.
	GetOpenScheduledLedgerForPeriod(ctx context.Context, paymentAccountID string, routingKey time.Time, interval domain.MxScheduledLedgerIntervalType) (*domain.MxScheduledLedger, error)
}

type EventPublisher interface {
	PublishMxTransactionCreated(ctx context.Context, event events.MxTransactionCreated) error
}

// Outcome says which path RecordTransaction took.
type Outcome string

const (
	OutcomeAttachedScheduled Outcome = "attached_scheduled"
	OutcomeAttachedOpen      Outcome = "attached_open"
	OutcomeCreatedLedger     Outcome = "created_ledger"
	// OutcomeConflict means a concurrent request created the period's ledger first.
	// The accompanying error is retryable; calling again attaches to the winner's ledger.
	OutcomeConflict Outcome = "conflict"
)

type RecordResult struct {
	Transaction *domain.MxTransaction
	Outcome     Outcome
}

type RecordTransactionInput struct {
	PaymentAccountID    string
	TargetType          domain.MxTransactionType
	Amount              int64
	Currency            string
	IdempotencyKey      string
	RoutingKey          time.Time
	IntervalType        domain.MxScheduledLedgerIntervalType
	TargetID            *string
	Context             json.RawMessage
	Metadata            json.RawMessage
	LegacyTransactionID *string
}

func (in RecordTransactionInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.PaymentAccountID) == "" {
		problems = append(problems, "payment_account_id is required")
	}
	if !in.TargetType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown target_type %q", in.TargetType))
	}
	if len(in.Currency) != 3 {
		problems = append(problems, "currency must be a 3-letter code")
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		problems = append(problems, "idempotency_key is required")
	}
	if in.RoutingKey.IsZero() {
		problems = append(problems, "routing_key is required")
	}
	if !in.IntervalType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown interval_type %q", in.IntervalType))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (in RecordTransactionInput) insertInput() domain.InsertMxTransactionInput {
	return domain.InsertMxTransactionInput{
		PaymentAccountID:    in.PaymentAccountID,
		Amount:              in.Amount,
		Currency:            strings.ToUpper(in.Currency),
		LedgerType:          domain.MxLedgerTypeScheduled,
		IntervalType:        in.IntervalType,
		RoutingKey:          in.RoutingKey,
		IdempotencyKey:      in.IdempotencyKey,
		TargetType:          in.TargetType,
		TargetID:            in.TargetID,
		LegacyTransactionID: in.LegacyTransactionID,
		Context:             in.Context,
		Metadata:            in.Metadata,
	}
}

// MxTransactionService records merchant transactions against rolling ledger periods.
type MxTransactionService struct {
	ledgers          LedgerRepository
	scheduledLedgers ScheduledLedgerRepository
	publisher        EventPublisher
	logger           *zap.Logger
}

func NewMxTransactionService(ledgers LedgerRepository, scheduledLedgers ScheduledLedgerRepository, publisher EventPublisher, logger *zap.Logger) *MxTransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MxTransactionService{
		ledgers:          ledgers,
		scheduledLedgers: scheduledLedgers,
		publisher:        publisher,
		logger:           logger,
	}
}

// RecordTransaction gets or creates the scheduled ledger and ledger for the routing period,
// then inserts the transaction and updates the ledger balance in one storage transaction.
//
// Losing a concurrent first-of-period race returns OutcomeConflict together with a retryable
// ledger_2 LedgerError. No retry is attempted here.
func (s *MxTransactionService) RecordTransaction(ctx context.Context, in RecordTransactionInput) (RecordResult, error) {
	if err := in.validate(); err != nil {
		return RecordResult{}, err
	}

	log := s.logger.With(
		zap.String("payment_account_id", in.PaymentAccountID),
		zap.String("target_type", string(in.TargetType)),
	)
	log.Info("[RecordTransaction] recording mx transaction")

	insert := in.insertInput()

	scheduled, err := s.scheduledLedgers.GetOpenScheduledLedgerForPeriod(ctx, in.PaymentAccountID, in.RoutingKey, in.IntervalType)
	if err != nil {
		log.Error("[GetOpenScheduledLedgerForPeriod] lookup failed", zap.Error(err))
		return RecordResult{}, err
	}
	if scheduled != nil {
		return s.attach(ctx, log, scheduled.LedgerID, insert, OutcomeAttachedScheduled)
	}

	ledger, err := s.ledgers.GetOpenLedgerForPaymentAccount(ctx, in.PaymentAccountID)
	if err != nil {
		log.Error("[GetOpenLedgerForPaymentAccount] lookup failed", zap.Error(err))
		return RecordResult{}, err
	}
	if ledger != nil {
		return s.attach(ctx, log, ledger.ID, insert, OutcomeAttachedOpen)
	}

	txn, err := s.ledgers.CreateLedgerAndInsertTransaction(ctx, insert)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidData):
			log.Error("[CreateLedgerAndInsertTransaction] invalid input data while inserting mx transaction and creating ledger", zap.Error(err))
			return s.done(RecordResult{}, domain.NewLedgerError(domain.MxTxnCreateError, true, err))
		case errors.Is(err, store.ErrUniqueViolation):
			log.Error("[CreateLedgerAndInsertTransaction] unique constraint violated while inserting mx_ledger", zap.Error(err))
			return s.done(RecordResult{Outcome: OutcomeConflict}, domain.NewLedgerError(domain.MxLedgerCreateUniqueViolationError, true, err))
		default:
			log.Error("[CreateLedgerAndInsertTransaction] failed to insert mx transaction and create ledger", zap.Error(err))
			return s.done(RecordResult{}, err)
		}
	}

	return s.succeed(ctx, log, RecordResult{Transaction: txn, Outcome: OutcomeCreatedLedger})
}

func (s *MxTransactionService) attach(ctx context.Context, log *zap.Logger, ledgerID uuid.UUID, insert domain.InsertMxTransactionInput, outcome Outcome) (RecordResult, error) {
	log = log.With(zap.String("ledger_id", ledgerID.String()))

	txn, err := s.ledgers.InsertTransactionAndUpdateLedger(ctx, ledgerID, insert)
	if err != nil {
		if errors.Is(err, store.ErrInvalidData) {
			log.Error("[InsertTransactionAndUpdateLedger] invalid input data while inserting mx transaction and updating ledger", zap.Error(err))
			return s.done(RecordResult{}, domain.NewLedgerError(domain.MxTxnCreateError, true, err))
		}
		log.Error("[InsertTransactionAndUpdateLedger] failed to insert mx transaction and update ledger", zap.Error(err))
		return s.done(RecordResult{}, err)
	}

	return s.succeed(ctx, log, RecordResult{Transaction: txn, Outcome: outcome})
}

func (s *MxTransactionService) succeed(ctx context.Context, log *zap.Logger, res RecordResult) (RecordResult, error) {
	if s.publisher != nil {
		if err := s.publisher.PublishMxTransactionCreated(ctx, events.NewMxTransactionCreated(res.Transaction, string(res.Outcome))); err != nil {
			log.Warn("[PublishMxTransactionCreated] event publish failed", zap.Error(err))
		}
	}
	return s.done(res, nil)
}

func (s *MxTransactionService) done(res RecordResult, err error) (RecordResult, error) {
	label := string(res.Outcome)
	if err != nil && res.Outcome == "" {
		label = "error"
	}
	mxTxnRecorded.WithLabelValues(label).Inc()
	return res, err
}

// GetLedger returns a retryable=false ledger_1 LedgerError when the ledger does not exist.
func (s *MxTransactionService) GetLedger(ctx context.Context, id uuid.UUID) (*domain.MxLedger, error) {
	l, err := s.ledgers.GetLedgerByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewLedgerError(domain.MxLedgerNotFound, false, err)
		}
		s.logger.Error("[GetLedgerByID] lookup failed", zap.String("ledger_id", id.String()), zap.Error(err))
		return nil, err
	}
	return l, nil
}

// GetScheduledLedger returns a retryable=false ledger_10 LedgerError when the scheduled ledger does not exist.
func (s *MxTransactionService) GetScheduledLedger(ctx context.Context, id uuid.UUID) (*domain.MxScheduledLedger, error) {
	sl, err := s.scheduledLedgers.GetScheduledLedgerByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewLedgerError(domain.MxScheduledLedgerNotFound, false, err)
		}
		s.logger.Error("[GetScheduledLedgerByID] lookup failed", zap.String("scheduled_ledger_id", id.String()), zap.Error(err))
		return nil, err
	}
	return sl, nil
}
