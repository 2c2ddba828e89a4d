package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MxLedgerType classifies how a ledger was opened.
type MxLedgerType string

const (
	MxLedgerTypeScheduled    MxLedgerType = "scheduled"
	MxLedgerTypeManual       MxLedgerType = "manual"
	MxLedgerTypeMicroDeposit MxLedgerType = "micro_deposit"
)

// MxLedgerState is the lifecycle state of a ledger. Only open ledgers accept transactions.
type MxLedgerState string

const (
	MxLedgerStateOpen       MxLedgerState = "open"
	MxLedgerStateProcessing MxLedgerState = "processing"
	MxLedgerStatePaid       MxLedgerState = "paid"
	MxLedgerStateFailed     MxLedgerState = "failed"
)

// MxScheduledLedgerIntervalType is the length of a routing period.
type MxScheduledLedgerIntervalType string

const (
	IntervalDaily  MxScheduledLedgerIntervalType = "daily"
	IntervalWeekly MxScheduledLedgerIntervalType = "weekly"
)

func (t MxScheduledLedgerIntervalType) Valid() bool {
	return t == IntervalDaily || t == IntervalWeekly
}

// MxTransactionType is what a transaction is recorded for.
type MxTransactionType string

const (
	MxTxnMerchantDelivery   MxTransactionType = "merchant_delivery"
	MxTxnStorePayment       MxTransactionType = "store_payment"
	MxTxnDeliveryError      MxTransactionType = "delivery_error"
	MxTxnDeliveryGift       MxTransactionType = "delivery_gift"
	MxTxnDeliveryReceipt    MxTransactionType = "delivery_receipt"
	MxTxnMerchantAdjustment MxTransactionType = "merchant_adjustment"
	MxTxnMicroDeposit       MxTransactionType = "micro_deposit"
	MxTxnPayout             MxTransactionType = "payout"
)

var validMxTransactionTypes = map[MxTransactionType]struct{}{
	MxTxnMerchantDelivery:   {},
	MxTxnStorePayment:       {},
	MxTxnDeliveryError:      {},
	MxTxnDeliveryGift:       {},
	MxTxnDeliveryReceipt:    {},
	MxTxnMerchantAdjustment: {},
	MxTxnMicroDeposit:       {},
	MxTxnPayout:             {},
}

func (t MxTransactionType) Valid() bool {
	_, ok := validMxTransactionTypes[t]
	return ok
}

// MxLedger accumulates the running balance of one payment account.
// At most one ledger per payment account is open at a time.
type MxLedger struct {
	ID               uuid.UUID     `json:"id"`
	PaymentAccountID string        `json:"payment_account_id"`
	Type             MxLedgerType  `json:"type"`
	Currency         string        `json:"currency"`
	State            MxLedgerState `json:"state"`
	Balance          int64         `json:"balance"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// MxScheduledLedger binds a ledger to one routing period of a payment account.
type MxScheduledLedger struct {
	ID               uuid.UUID                     `json:"id"`
	PaymentAccountID string                        `json:"payment_account_id"`
	LedgerID         uuid.UUID                     `json:"ledger_id"`
	IntervalType     MxScheduledLedgerIntervalType `json:"interval_type"`
	StartTime        time.Time                     `json:"start_time"`
	EndTime          time.Time                     `json:"end_time"`
	ClosedAt         *time.Time                    `json:"closed_at,omitempty"`
	CreatedAt        time.Time                     `json:"created_at"`
}

// MxTransaction is one immutable monetary movement attached to a ledger.
type MxTransaction struct {
	ID                  uuid.UUID         `json:"id"`
	PaymentAccountID    string            `json:"payment_account_id"`
	LedgerID            uuid.UUID         `json:"ledger_id"`
	Amount              int64             `json:"amount"`
	Currency            string            `json:"currency"`
	TargetType          MxTransactionType `json:"target_type"`
	TargetID            *string           `json:"target_id,omitempty"`
	IdempotencyKey      string            `json:"idempotency_key"`
	RoutingKey          time.Time         `json:"routing_key"`
	LegacyTransactionID *string           `json:"legacy_transaction_id,omitempty"`
	Context             json.RawMessage   `json:"context,omitempty"`
	Metadata            json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// InsertMxTransactionInput carries everything the store needs to insert a transaction,
// and, on the create path, the ledger and scheduled ledger that will hold it.
type InsertMxTransactionInput struct {
	PaymentAccountID    string
	Amount              int64
	Currency            string
	LedgerType          MxLedgerType
	IntervalType        MxScheduledLedgerIntervalType
	RoutingKey          time.Time
	IdempotencyKey      string
	TargetType          MxTransactionType
	TargetID            *string
	LegacyTransactionID *string
	Context             json.RawMessage
	Metadata            json.RawMessage
}
