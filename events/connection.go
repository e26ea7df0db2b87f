package events

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Channel is the subset of *amqp.Channel the publisher and subscribers use.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connector opens logical channels on one shared broker connection.
type Connector interface {
	Channel() (Channel, error)
}

type DialConfig struct {
	Username   string
	Password   string
	Host       string
	Port       string
	Attempts   int
	RetryDelay time.Duration
}

func (c DialConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/",
	}
	return u.String()
}

// Connection is the process-wide broker connection. It is dialled once at
// startup and never re-established; a dropped connection is only logged.
type Connection struct {
	conn   *amqp.Connection
	logger *logrus.Logger
}

func Dial(cfg DialConfig, logger *logrus.Logger) (*Connection, error) {
	conn, err := dialWithRetry(cfg, logger, amqp.Dial)
	if err != nil {
		return nil, err
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		for closeErr := range closed {
			logger.WithError(closeErr).Error("Broker connection closed, events will no longer flow")
		}
	}()

	return &Connection{conn: conn, logger: logger}, nil
}

func dialWithRetry(cfg DialConfig, logger *logrus.Logger, dial func(string) (*amqp.Connection, error)) (*amqp.Connection, error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := dial(cfg.URL())
		if err == nil {
			logger.WithField("host", cfg.Host).Info("Connected to broker")
			return conn, nil
		}
		lastErr = err
		if i < attempts-1 {
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt":      i + 1,
				"max_attempts": attempts,
				"retry_delay":  cfg.RetryDelay,
			}).Warn("Failed to connect to broker, retrying...")
			time.Sleep(cfg.RetryDelay)
		}
	}
	return nil, fmt.Errorf("broker dial after %d attempts: %w", attempts, lastErr)
}

func (c *Connection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
