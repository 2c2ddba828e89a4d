package models

import (
	"encoding/json"
	"time"

	"github.com/punchamoorthee/mxledger/internal/domain"
)

// CreateMxTransactionRequest is the payload from the client.
type CreateMxTransactionRequest struct {
	PaymentAccountID    string          `json:"payment_account_id"`
	TargetType          string          `json:"target_type"`
	TargetID            *string         `json:"target_id,omitempty"`
	Amount              int64           `json:"amount"`
	Currency            string          `json:"currency"`
	IdempotencyKey      string          `json:"idempotency_key"`
	RoutingKey          time.Time       `json:"routing_key"`
	IntervalType        string          `json:"interval_type"`
	LegacyTransactionID *string         `json:"legacy_transaction_id,omitempty"`
	Context             json.RawMessage `json:"context,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

// CreateMxTransactionResponse is the canonical response for a recorded transaction.
type CreateMxTransactionResponse struct {
	Transaction domain.MxTransaction `json:"transaction"`
	Outcome     string               `json:"outcome"`
}

// TransferStatusResponse reports the derived status of a payout transfer.
// Status is null when the latest submission status is not recognized.
type TransferStatusResponse struct {
	TransferID int64   `json:"transfer_id"`
	Status     *string `json:"status"`
	Resolved   bool    `json:"resolved"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Retryable    bool   `json:"retryable"`
}
