// Package events publishes ledger events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/punchamoorthee/mxledger/internal/domain"
)

const RoutingKeyMxTransactionCreated = "ledger.mx_txn.created"

// MxTransactionCreated is the payload published after a transaction is recorded.
type MxTransactionCreated struct {
	TransactionID    uuid.UUID                `json:"transaction_id"`
	LedgerID         uuid.UUID                `json:"ledger_id"`
	PaymentAccountID string                   `json:"payment_account_id"`
	Amount           int64                    `json:"amount"`
	Currency         string                   `json:"currency"`
	TargetType       domain.MxTransactionType `json:"target_type"`
	Outcome          string                   `json:"outcome"`
	Timestamp        time.Time                `json:"timestamp"`
}

func NewMxTransactionCreated(txn *domain.MxTransaction, outcome string) MxTransactionCreated {
	return MxTransactionCreated{
		TransactionID:    txn.ID,
		LedgerID:         txn.LedgerID,
		PaymentAccountID: txn.PaymentAccountID,
		Amount:           txn.Amount,
		Currency:         txn.Currency,
		TargetType:       txn.TargetType,
		Outcome:          outcome,
		Timestamp:        time.Now().UTC(),
	}
}

// Publisher is implemented by RabbitMQ and the fallback publisher.
type Publisher interface {
	PublishMxTransactionCreated(ctx context.Context, event MxTransactionCreated) error
	Close()
}

// FallbackPublisher drops events. Used when RabbitMQ is not configured or unreachable at startup.
type FallbackPublisher struct {
	Logger *zap.Logger
}

func (p *FallbackPublisher) PublishMxTransactionCreated(ctx context.Context, event MxTransactionCreated) error {
	if p.Logger != nil {
		p.Logger.Debug("[events] publish skipped",
			zap.String("routing_key", RoutingKeyMxTransactionCreated),
			zap.String("transaction_id", event.TransactionID.String()))
	}
	return nil
}

func (p *FallbackPublisher) Close() {}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewRabbitPublisher(amqpURL, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp091.DialConfig(amqpURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishMxTransactionCreated(ctx context.Context, event MxTransactionCreated) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyMxTransactionCreated, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.TransactionID.String(),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
