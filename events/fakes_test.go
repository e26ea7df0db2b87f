package events

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"

	"github.com/devops-ftn-2024/accommodations/domain"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Channel() (Channel, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Channel), args.Error(1)
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	a := m.Called(name, durable, autoDelete, exclusive, noWait)
	return a.Get(0).(amqp.Queue), a.Error(1)
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	a := m.Called(name, kind, durable, autoDelete, internal, noWait)
	return a.Error(0)
}

func (m *mockChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	a := m.Called(name, key, exchange, noWait)
	return a.Error(0)
}

func (m *mockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	a := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait)
	if a.Get(0) == nil {
		return nil, a.Error(1)
	}
	return a.Get(0).(chan amqp.Delivery), a.Error(1)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	a := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return a.Error(0)
}

func (m *mockChannel) Close() error {
	a := m.Called()
	return a.Error(0)
}

// fakeChannel is a consume-side channel whose deliveries are fed by the test.
type fakeChannel struct {
	mu sync.Mutex

	exchange        string
	exchangeKind    string
	exchangeDurable bool

	queueName       string
	queueDurable    bool
	queueAutoDelete bool
	queueExclusive  bool

	boundQueue    string
	boundKey      string
	boundExchange string

	autoAck bool

	exchangeErr error

	deliveries chan amqp.Delivery
	closeOnce  sync.Once
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery)}
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueName = name
	f.queueDurable = durable
	f.queueAutoDelete = autoDelete
	f.queueExclusive = exclusive
	return amqp.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange = name
	f.exchangeKind = kind
	f.exchangeDurable = durable
	return f.exchangeErr
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundQueue = name
	f.boundKey = key
	f.boundExchange = exchange
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoAck = autoAck
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return nil
}

func (f *fakeChannel) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.deliveries)
	})
	return nil
}

type fakeConnector struct {
	ch Channel
}

func (f *fakeConnector) Channel() (Channel, error) {
	return f.ch, nil
}

type memoryLedger struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{seen: make(map[string]bool)}
}

func (l *memoryLedger) MarkProcessed(_ context.Context, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen[messageID] {
		return false, nil
	}
	l.seen[messageID] = true
	return true, nil
}

var _ domain.MessageLedger = (*memoryLedger)(nil)

type mockApplier struct {
	mock.Mock
}

func (m *mockApplier) ApplyRename(ctx context.Context, change domain.UsernameChange) (int64, error) {
	args := m.Called(ctx, change)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockApplier) ApplyDeletion(ctx context.Context, ownerUsername string) (int64, error) {
	args := m.Called(ctx, ownerUsername)
	return args.Get(0).(int64), args.Error(1)
}
