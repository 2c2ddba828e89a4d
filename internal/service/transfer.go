package service

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/mxledger/internal/domain"
)

// StripeTransferReader reads submission records for a transfer.
type StripeTransferReader interface {
	// GetLatestStripeTransferByTransferID returns nil, nil when the transfer was never submitted.
	GetLatestStripeTransferByTransferID(ctx context.Context, transferID int64) (*domain.StripeTransfer, error)
}

type TransferReader interface {
	GetTransferByID(ctx context.Context, id int64) (*domain.Transfer, error)
}

// transferStatusRule is one row of the decision table. Rules are evaluated in order, first match wins.
type transferStatusRule struct {
	name   string
	match  func(t *domain.Transfer) bool
	status domain.TransferStatus
}

var transferStatusRules = []transferStatusRule{
	{
		name:   "deleted",
		match:  func(t *domain.Transfer) bool { return t.DeletedAt != nil },
		status: domain.TransferStatusDeleted,
	},
	{
		name:   "method_unset",
		match:  func(t *domain.Transfer) bool { return t.Method == domain.TransferMethodUnset },
		status: domain.TransferStatusNew,
	},
	{
		// internal payouts settle as soon as they exist
		name:   "internal_payout",
		match:  func(t *domain.Transfer) bool { return t.Method == domain.TransferMethodDoorDashPay },
		status: domain.TransferStatusPaid,
	},
	{
		name:   "zero_amount",
		match:  func(t *domain.Transfer) bool { return t.Amount == 0 },
		status: domain.TransferStatusPaid,
	},
	{
		name:   "offline_submitted",
		match:  func(t *domain.Transfer) bool { return !t.Method.External() && t.SubmittedAt != nil },
		status: domain.TransferStatusPaid,
	},
	{
		name:   "offline_not_submitted",
		match:  func(t *domain.Transfer) bool { return !t.Method.External() && t.SubmittedAt == nil },
		status: domain.TransferStatusNew,
	},
}

// stripeStatuses maps the stripe vocabulary we understand. Anything else is unresolved.
var stripeStatuses = map[string]domain.TransferStatus{
	"pending":    domain.TransferStatusPending,
	"in_transit": domain.TransferStatusPending,
	"paid":       domain.TransferStatusPaid,
}

// TransferStatusResolver derives a transfer's status from its own fields and,
// for stripe payouts, its latest submission. It never writes.
type TransferStatusResolver struct {
	transfers       TransferReader
	stripeTransfers StripeTransferReader
}

func NewTransferStatusResolver(transfers TransferReader, stripeTransfers StripeTransferReader) *TransferStatusResolver {
	return &TransferStatusResolver{transfers: transfers, stripeTransfers: stripeTransfers}
}

// Resolve returns domain.TransferStatusUnresolved, nil when the latest stripe status is not recognized.
func (r *TransferStatusResolver) Resolve(ctx context.Context, t *domain.Transfer) (domain.TransferStatus, error) {
	for _, rule := range transferStatusRules {
		if rule.match(t) {
			return rule.status, nil
		}
	}

	latest, err := r.stripeTransfers.GetLatestStripeTransferByTransferID(ctx, t.ID)
	if err != nil {
		return domain.TransferStatusUnresolved, fmt.Errorf("get latest stripe transfer for transfer %d: %w", t.ID, err)
	}
	if latest == nil {
		return domain.TransferStatusNew, nil
	}
	return StripeStatusToTransferStatus(latest.StripeStatus), nil
}

// ResolveByID loads the transfer and resolves it.
func (r *TransferStatusResolver) ResolveByID(ctx context.Context, transferID int64) (*domain.Transfer, domain.TransferStatus, error) {
	t, err := r.transfers.GetTransferByID(ctx, transferID)
	if err != nil {
		return nil, domain.TransferStatusUnresolved, err
	}
	status, err := r.Resolve(ctx, t)
	return t, status, err
}

func StripeStatusToTransferStatus(stripeStatus string) domain.TransferStatus {
	return stripeStatuses[stripeStatus]
}
