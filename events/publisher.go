package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Publisher struct {
	conn   Connector
	cb     *gobreaker.CircuitBreaker
	tracer trace.Tracer
	logger *logrus.Logger
}

func NewPublisher(conn Connector, tracer trace.Tracer, logger *logrus.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		cb:     CircuitBreaker("eventPublisher", logger),
		tracer: tracer,
		logger: logger,
	}
}

// Publish sends payload once, as JSON, to the non-durable queue named destination.
// No confirmation is awaited and nothing is retried.
func (p *Publisher) Publish(ctx context.Context, payload interface{}, destination string) error {
	ctx, span := p.tracer.Start(ctx, "Publisher.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("messaging.destination", destination))

	body, err := json.Marshal(payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("encode %s payload: %w", destination, err)
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.send(ctx, body, destination)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.logger.WithError(err).WithField("destination", destination).Error("Failed to publish event")
		return fmt.Errorf("publish to %s: %w", destination, err)
	}

	p.logger.WithField("destination", destination).Info("Published event")
	return nil
}

func (p *Publisher) send(ctx context.Context, body []byte, destination string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(destination, false, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", destination, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
		Body:        body,
	})
}

func CircuitBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warnf("Circuit Breaker '%s' changed from '%s' to '%s'", name, from, to)
			},
		},
	)
}
