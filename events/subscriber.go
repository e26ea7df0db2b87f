package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devops-ftn-2024/accommodations/domain"
)

// Handler applies one decoded message body. Returned errors are logged and the
// message is dropped.
type Handler func(ctx context.Context, body []byte) error

type SubscriberOptions struct {
	Workers        int
	QueueSize      int
	HandlerTimeout time.Duration
}

type Subscriber struct {
	conn    Connector
	ledger  domain.MessageLedger
	options SubscriberOptions
	tracer  trace.Tracer
	logger  *logrus.Logger

	mu       sync.Mutex
	channels []Channel
	wg       sync.WaitGroup
}

// NewSubscriber builds a subscriber; ledger may be nil, in which case
// duplicate deliveries are simply applied again.
func NewSubscriber(conn Connector, ledger domain.MessageLedger, options SubscriberOptions, tracer trace.Tracer, logger *logrus.Logger) *Subscriber {
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.QueueSize < 1 {
		options.QueueSize = 1
	}
	if options.HandlerTimeout <= 0 {
		options.HandlerTimeout = 30 * time.Second
	}
	return &Subscriber{
		conn:    conn,
		ledger:  ledger,
		options: options,
		tracer:  tracer,
		logger:  logger,
	}
}

// Subscribe binds a private, exclusive, auto-deleted queue to the durable fanout
// exchange and starts consuming it without acknowledgements. Deliveries are
// handed to a bounded work queue so handlers never run on the consume loop.
func (s *Subscriber) Subscribe(ctx context.Context, exchange string, handler Handler) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel for %s: %w", exchange, err)
	}

	deliveries, queue, err := bind(ch, exchange)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("subscribe to %s: %w", exchange, err)
	}

	s.mu.Lock()
	s.channels = append(s.channels, ch)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"exchange": exchange, "queue": queue}).Info("Waiting for messages")
	s.start(ctx, exchange, deliveries, handler)
	return nil
}

func bind(ch Channel, exchange string) (<-chan amqp.Delivery, string, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, "", err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, "", err
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return nil, "", err
	}

	deliveries, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return nil, "", err
	}
	return deliveries, q.Name, nil
}

func (s *Subscriber) start(ctx context.Context, exchange string, deliveries <-chan amqp.Delivery, handler Handler) {
	work := make(chan amqp.Delivery, s.options.QueueSize)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(work)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case work <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// queued messages are still applied after ctx is cancelled
	workCtx := context.WithoutCancel(ctx)
	for i := 0; i < s.options.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for d := range work {
				s.handle(workCtx, exchange, d, handler)
			}
		}()
	}
}

func (s *Subscriber) handle(ctx context.Context, exchange string, d amqp.Delivery, handler Handler) {
	ctx, span := s.tracer.Start(ctx, "Subscriber.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.source", exchange),
		attribute.String("messaging.message_id", d.MessageId),
	)

	entry := s.logger.WithFields(logrus.Fields{"exchange": exchange, "message_id": d.MessageId})

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "handler panic")
			entry.Errorf("Handler panicked: %v", r)
		}
	}()

	if s.ledger != nil && d.MessageId != "" {
		first, err := s.ledger.MarkProcessed(ctx, d.MessageId)
		if err != nil {
			entry.WithError(err).Warn("Message ledger unavailable, handling without dedupe")
		} else if !first {
			entry.Info("Skipping already handled message")
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.options.HandlerTimeout)
	defer cancel()

	if err := handler(ctx, d.Body); err != nil {
		span.SetStatus(codes.Error, err.Error())
		entry.WithError(err).WithField("body", string(d.Body)).Error("Failed to handle message, dropping it")
	}
}

// Close stops consuming and waits for queued deliveries to be handled.
func (s *Subscriber) Close() {
	s.mu.Lock()
	channels := s.channels
	s.channels = nil
	s.mu.Unlock()

	for _, ch := range channels {
		if err := ch.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close subscriber channel")
		}
	}
	s.wg.Wait()
}
