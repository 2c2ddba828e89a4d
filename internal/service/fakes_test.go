package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/punchamoorthee/mxledger/internal/domain"
	"github.com/punchamoorthee/mxledger/internal/events"
	"github.com/punchamoorthee/mxledger/internal/store"
)

// memLedgerStore mimics the postgres store: unique open ledger per account, unique open
// scheduled ledger per period, and all-or-nothing writes.
type memLedgerStore struct {
	mu        sync.Mutex
	ledgers   map[uuid.UUID]*domain.MxLedger
	scheduled map[uuid.UUID]*domain.MxScheduledLedger
	txns      []domain.MxTransaction

	// onOpenLedgerLookup runs after the open-ledger lookup computed its result and before it returns.
	onOpenLedgerLookup func()
	// failAfterInsert aborts InsertTransactionAndUpdateLedger between the insert and the balance update.
	failAfterInsert error
	createErr       error
	attachErr       error
	lookupErr       error
	creates         int
}

func newMemLedgerStore() *memLedgerStore {
	return &memLedgerStore{
		ledgers:   map[uuid.UUID]*domain.MxLedger{},
		scheduled: map[uuid.UUID]*domain.MxScheduledLedger{},
	}
}

func (m *memLedgerStore) GetLedgerByID(ctx context.Context, id uuid.UUID) (*domain.MxLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLedgerStore) GetOpenLedgerForPaymentAccount(ctx context.Context, paymentAccountID string) (*domain.MxLedger, error) {
	m.mu.Lock()
	var found *domain.MxLedger
	for _, l := range m.ledgers {
		if l.PaymentAccountID == paymentAccountID && l.State == domain.MxLedgerStateOpen {
			cp := *l
			found = &cp
		}
	}
	hook := m.onOpenLedgerLookup
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return found, nil
}

func (m *memLedgerStore) GetScheduledLedgerByID(ctx context.Context, id uuid.UUID) (*domain.MxScheduledLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.scheduled[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sl
	return &cp, nil
}

func (m *memLedgerStore) GetOpenScheduledLedgerForPeriod(ctx context.Context, paymentAccountID string, routingKey time.Time, interval domain.MxScheduledLedgerIntervalType) (*domain.MxScheduledLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, sl := range m.scheduled {
		if sl.PaymentAccountID != paymentAccountID || sl.IntervalType != interval || sl.ClosedAt != nil {
			continue
		}
		if routingKey.Before(sl.StartTime) || !routingKey.Before(sl.EndTime) {
			continue
		}
		if m.ledgers[sl.LedgerID].State != domain.MxLedgerStateOpen {
			continue
		}
		cp := *sl
		return &cp, nil
	}
	return nil, nil
}

func (m *memLedgerStore) CreateLedgerAndInsertTransaction(ctx context.Context, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}

	start, end, err := domain.PeriodWindow(in.RoutingKey, in.IntervalType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidData, err)
	}
	for _, l := range m.ledgers {
		if l.PaymentAccountID == in.PaymentAccountID && l.State == domain.MxLedgerStateOpen {
			return nil, fmt.Errorf("%w (mx_ledgers_one_open_per_account)", store.ErrUniqueViolation)
		}
	}
	for _, sl := range m.scheduled {
		if sl.PaymentAccountID == in.PaymentAccountID && sl.IntervalType == in.IntervalType && sl.StartTime.Equal(start) && sl.ClosedAt == nil {
			return nil, fmt.Errorf("%w (mx_scheduled_ledgers_one_open_per_period)", store.ErrUniqueViolation)
		}
	}

	m.creates++
	ledger := &domain.MxLedger{
		ID:               uuid.New(),
		PaymentAccountID: in.PaymentAccountID,
		Type:             in.LedgerType,
		Currency:         in.Currency,
		State:            domain.MxLedgerStateOpen,
		Balance:          in.Amount,
	}
	m.ledgers[ledger.ID] = ledger
	sl := &domain.MxScheduledLedger{
		ID:               uuid.New(),
		PaymentAccountID: in.PaymentAccountID,
		LedgerID:         ledger.ID,
		IntervalType:     in.IntervalType,
		StartTime:        start,
		EndTime:          end,
	}
	m.scheduled[sl.ID] = sl

	txn := newMemTxn(ledger.ID, in)
	m.txns = append(m.txns, txn)
	return &txn, nil
}

func (m *memLedgerStore) InsertTransactionAndUpdateLedger(ctx context.Context, ledgerID uuid.UUID, in domain.InsertMxTransactionInput) (*domain.MxTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attachErr != nil {
		return nil, m.attachErr
	}

	ledger, ok := m.ledgers[ledgerID]
	if !ok || ledger.State != domain.MxLedgerStateOpen {
		return nil, store.ErrLedgerNotOpen
	}

	// stage, then apply both writes or neither
	staged := newMemTxn(ledgerID, in)
	if m.failAfterInsert != nil {
		return nil, m.failAfterInsert
	}
	m.txns = append(m.txns, staged)
	ledger.Balance += in.Amount
	return &staged, nil
}

func (m *memLedgerStore) closeLedger(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[id].State = domain.MxLedgerStatePaid
	now := time.Now()
	for _, sl := range m.scheduled {
		if sl.LedgerID == id {
			sl.ClosedAt = &now
		}
	}
}

func (m *memLedgerStore) sumForLedger(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.txns {
		if t.LedgerID == id {
			sum += t.Amount
		}
	}
	return sum
}

func (m *memLedgerStore) txnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns)
}

func newMemTxn(ledgerID uuid.UUID, in domain.InsertMxTransactionInput) domain.MxTransaction {
	return domain.MxTransaction{
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
		CreatedAt:           time.Now(),
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MxTransactionCreated
	err    error
}

func (p *recordingPublisher) PublishMxTransactionCreated(ctx context.Context, event events.MxTransactionCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeStripeTransfers struct {
	latest map[int64]*domain.StripeTransfer
	err    error
	calls  int
}

func (f *fakeStripeTransfers) GetLatestStripeTransferByTransferID(ctx context.Context, transferID int64) (*domain.StripeTransfer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.latest[transferID], nil
}

type fakeTransfers struct {
	byID map[int64]*domain.Transfer
}

func (f *fakeTransfers) GetTransferByID(ctx context.Context, id int64) (*domain.Transfer, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}
