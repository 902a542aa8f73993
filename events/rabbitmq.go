package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "order_events"

var ErrNack = errors.New("publish NACK from broker")

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	GetNextPublishSeqNo() uint64
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// confirmBuffer lets the broker run ahead of slow publishers without
// blocking the connection's reader.
const confirmBuffer = 64

// RabbitPublisher sends order events to a durable fanout exchange and waits
// for the broker to confirm each one. Confirmations are matched to their
// publish by delivery tag, so a publish that gave up waiting never consumes
// the confirmation meant for the next one.
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   channel

	// mu keeps sequence numbers in step with publishes.
	mu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan bool
	closed    chan struct{}
}

func DialRabbit(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))

	p, err := newRabbitPublisher(ch, acks)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch channel, acks <-chan amqp.Confirmation) (*RabbitPublisher, error) {
	if err := ch.ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", Exchange, err)
	}
	p := &RabbitPublisher{
		ch:      ch,
		pending: make(map[uint64]chan bool),
		closed:  make(chan struct{}),
	}
	go p.dispatch(acks)
	return p, nil
}

// dispatch hands every confirmation to the publish waiting on its tag and
// drops the ones nobody waits for any more. It returns when the channel
// closes.
func (p *RabbitPublisher) dispatch(acks <-chan amqp.Confirmation) {
	defer close(p.closed)
	for conf := range acks {
		p.pendingMu.Lock()
		waiter, ok := p.pending[conf.DeliveryTag]
		delete(p.pending, conf.DeliveryTag)
		p.pendingMu.Unlock()
		if ok {
			waiter <- conf.Ack
		}
	}
}

func (p *RabbitPublisher) expect(tag uint64) chan bool {
	waiter := make(chan bool, 1)
	p.pendingMu.Lock()
	p.pending[tag] = waiter
	p.pendingMu.Unlock()
	return waiter
}

func (p *RabbitPublisher) forget(tag uint64) {
	p.pendingMu.Lock()
	delete(p.pending, tag)
	p.pendingMu.Unlock()
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	tag := p.ch.GetNextPublishSeqNo()
	waiter := p.expect(tag)
	err = p.ch.PublishWithContext(ctx, Exchange, string(e.Type), false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     e.OrderID.String() + ":" + string(e.NewStatus),
		CorrelationId: e.OrderID.String(),
		Timestamp:     e.At,
		Type:          string(e.Type),
		Body:          body,
	})
	p.mu.Unlock()
	if err != nil {
		p.forget(tag)
		return err
	}

	select {
	case ack := <-waiter:
		if ack {
			return nil
		}
		return ErrNack
	case <-p.closed:
		return amqp.ErrClosed
	case <-ctx.Done():
		p.forget(tag)
		return ctx.Err()
	}
}

func (p *RabbitPublisher) Close() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cErr := p.conn.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}
