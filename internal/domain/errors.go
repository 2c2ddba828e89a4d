package domain

import (
	"errors"
	"fmt"
)

// LedgerErrorCode is the client-facing code of a ledger failure.
// mx_ledger uses ledger_1..9, mx_scheduled_ledger ledger_10..19, mx_txn ledger_20..29.
type LedgerErrorCode string

const (
	MxLedgerNotFound                   LedgerErrorCode = "ledger_1"
	MxLedgerCreateUniqueViolationError LedgerErrorCode = "ledger_2"
	MxScheduledLedgerNotFound          LedgerErrorCode = "ledger_10"
	MxTxnCreateError                   LedgerErrorCode = "ledger_20"
)

var ledgerErrorMessages = map[LedgerErrorCode]string{
	MxLedgerNotFound:                   "Cannot found mx_ledger with given id, please verify your input.",
	MxLedgerCreateUniqueViolationError: "Cannot insert mx_ledger due to unique constraint violation, please verify your input.",
	MxScheduledLedgerNotFound:          "Cannot found mx_scheduled_ledger with given id, please verify your input.",
	MxTxnCreateError:                   "Error encountered while inserting mx_txn, please verify your input.",
}

// LedgerError is a classified failure. Retryable tells the caller whether
// re-invoking the same logical operation may succeed.
type LedgerError struct {
	Code      LedgerErrorCode
	Message   string
	Retryable bool
	Err       error
}

func NewLedgerError(code LedgerErrorCode, retryable bool, cause error) *LedgerError {
	return &LedgerError{
		Code:      code,
		Message:   ledgerErrorMessages[code],
		Retryable: retryable,
		Err:       cause,
	}
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// Is matches another *LedgerError by code, so errors.Is(err, &LedgerError{Code: ...}) works.
func (e *LedgerError) Is(target error) bool {
	var t *LedgerError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrInvalidInput is returned for requests rejected before touching storage.
var ErrInvalidInput = errors.New("invalid input")

// IsRetryable reports whether err is a LedgerError flagged retryable.
func IsRetryable(err error) bool {
	var le *LedgerError
	return errors.As(err, &le) && le.Retryable
}
