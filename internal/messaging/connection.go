package messaging

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"tableside/internal/config"
	"tableside/internal/logger"
)

// StatusExchange is the fanout exchange that carries order status events.
const StatusExchange = "order_status_fanout"

// NotificationQueue is the durable queue the notification subscriber reads.
const NotificationQueue = "order_notifications"

// Connection wraps a RabbitMQ connection with reconnection logic
type Connection struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New creates a new RabbitMQ connection and declares the status topology
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}

	if err := conn.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

func (c *Connection) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := c.setupTopology(); setupErr != nil {
					c.logger.Error("rabbitmq_setup_failed", "startup", "Failed to set up topology", setupErr, nil)
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed", "startup",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime), err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		StatusExchange, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", StatusExchange, err)
	}

	_, err = c.channel.QueueDeclare(
		NotificationQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		amqp091.Table{
			"x-message-ttl": 300000, // 5 minutes
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", NotificationQueue, err)
	}

	err = c.channel.QueueBind(NotificationQueue, "", StatusExchange, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", NotificationQueue, err)
	}

	return nil
}

// Channel returns the active AMQP channel
func (c *Connection) Channel() *amqp091.Channel {
	return c.channel
}

// IsClosed reports whether the underlying connection is closed
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect re-establishes the connection and topology
func (c *Connection) Reconnect() error {
	c.close()
	return c.connect()
}

// Close closes the channel and connection
func (c *Connection) Close() error {
	c.close()
	return nil
}

func (c *Connection) close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
