package domain

import "time"

// TransferMethod is the payout rail a transfer is sent through.
type TransferMethod string

const (
	TransferMethodUnset       TransferMethod = ""
	TransferMethodStripe      TransferMethod = "stripe"
	TransferMethodDoorDashPay TransferMethod = "doordash_pay"
	TransferMethodCheck       TransferMethod = "check"
)

// External reports whether the method pays out through a third-party rail,
// in which case status comes from the latest submission.
func (m TransferMethod) External() bool {
	return m == TransferMethodStripe
}

// TransferStatus is derived on demand and never persisted here.
// The zero value means no status could be determined.
type TransferStatus string

const (
	TransferStatusUnresolved TransferStatus = ""
	TransferStatusDeleted    TransferStatus = "deleted"
	TransferStatusNew        TransferStatus = "new"
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusPaid       TransferStatus = "paid"
)

func (s TransferStatus) Resolved() bool {
	return s != TransferStatusUnresolved
}

// Transfer is a scheduled payout to a payee. Read-only to this service.
type Transfer struct {
	ID               int64          `json:"id"`
	PaymentAccountID string         `json:"payment_account_id"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Method           TransferMethod `json:"method"`
	SubmittedAt      *time.Time     `json:"submitted_at,omitempty"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// StripeTransfer is one attempt to submit a transfer to stripe.
// StripeStatus is whatever stripe reported; the vocabulary is open.
type StripeTransfer struct {
	ID           int64     `json:"id"`
	TransferID   int64     `json:"transfer_id"`
	StripeID     string    `json:"stripe_id"`
	StripeStatus string    `json:"stripe_status"`
	CreatedAt    time.Time `json:"created_at"`
}
