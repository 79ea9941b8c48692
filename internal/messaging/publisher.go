package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"tableside/internal/logger"
)

// Publisher publishes order status events to the status fanout exchange
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new status event publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishStatusEvent publishes a status change event to all subscribers
func (p *Publisher) PublishStatusEvent(ctx context.Context, event interface{}) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(
		ctx,
		StatusExchange, // exchange
		"",             // routing key (fanout)
		false,          // mandatory
		false,          // immediate
		publishing,
	)
	if err != nil {
		p.logger.Error("event_publish_failed", "",
			fmt.Sprintf("Failed to publish event to exchange %s", StatusExchange),
			err, nil)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event_published", "",
		fmt.Sprintf("Published event to exchange %s", StatusExchange),
		map[string]any{
			"exchange":     StatusExchange,
			"message_size": len(body),
		})

	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.conn.Close()
}
