// Package service holds side integrations that run after a request's
// database work has committed.
//
// Activity events are handed to a buffered outbox and sent to RabbitMQ by
// one background worker. A request only pays for a channel send: a slow
// or unreachable broker delays the worker, never the response, and
// requests never wait on each other for the broker connection. When the
// outbox is full new events are dropped and reported to the caller.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/fitness-tracker/internal/queue"
)

var (
	// ErrOutboxFull is returned when the worker has fallen behind.
	ErrOutboxFull = errors.New("rabbitmq: outbox full, event dropped")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("rabbitmq: publisher closed")
)

const (
	defaultOutboxSize    = 256
	defaultDialTimeout   = 5 * time.Second
	defaultSendTimeout   = 5 * time.Second
	defaultRedialBackoff = 10 * time.Second
)

// EventPublisher sends activity events. Publish must return promptly; a
// publish never undoes a committed write.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
	Close() error
}

// NoopPublisher is used when RABBITMQ_URL is empty.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, queue.ActivityEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }

// NewEventPublisher returns an AMQP publisher for url, or a no-op one when
// url is empty.
func NewEventPublisher(url string) EventPublisher {
	if url == "" {
		return NoopPublisher{}
	}
	return NewAMQPPublisher(url, PublisherOptions{})
}

// PublisherOptions tunes an AMQPPublisher. Zero values take the defaults.
type PublisherOptions struct {
	OutboxSize    int           // events buffered before Publish drops
	DialTimeout   time.Duration // bound on TCP connect plus AMQP handshake
	SendTimeout   time.Duration // bound on one publish once connected
	RedialBackoff time.Duration // pause after a failed dial; events arriving meanwhile are dropped
}

// AMQPPublisher keeps one connection and channel, owned by its worker
// goroutine, and redials lazily after the broker drops them.
type AMQPPublisher struct {
	url  string
	opts PublisherOptions

	outbox chan amqp.Publishing
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	// touched only by the worker
	conn       *amqp.Connection
	ch         *amqp.Channel
	nextDialAt time.Time
}

// NewAMQPPublisher starts the worker. Close must be called to stop it.
func NewAMQPPublisher(url string, opts PublisherOptions) *AMQPPublisher {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = defaultOutboxSize
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.RedialBackoff <= 0 {
		opts.RedialBackoff = defaultRedialBackoff
	}
	p := &AMQPPublisher{
		url:    url,
		opts:   opts,
		outbox: make(chan amqp.Publishing, opts.OutboxSize),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish queues ev as a persistent JSON message for the activity queue.
// It never waits for the broker.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.outbox <- msg:
		return nil
	case <-p.done:
		return ErrPublisherClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrOutboxFull
	}
}

// Close stops the worker and drops any events still queued. It waits at
// most one in-flight dial or send.
func (p *AMQPPublisher) Close() error {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
	if n := len(p.outbox); n > 0 {
		log.Warnf("rabbitmq: dropping %d queued events on close", n)
	}
	return nil
}

func (p *AMQPPublisher) run() {
	defer p.wg.Done()
	defer p.reset()
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.outbox:
			if err := p.send(msg); err != nil {
				log.Warnf("publish %s: %v", msg.Type, err)
			}
		}
	}
}

func (p *AMQPPublisher) send(msg amqp.Publishing) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.SendTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		"",                  // default exchange
		queue.ActivityQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		msg)
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.nextDialAt) {
		return nil, errors.New("rabbitmq: broker unavailable, waiting to redial")
	}
	// DefaultDial bounds the TCP connect and the AMQP handshake
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.opts.DialTimeout),
	})
	if err != nil {
		p.nextDialAt = time.Now().Add(p.opts.RedialBackoff)
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.nextDialAt = time.Now().Add(p.opts.RedialBackoff)
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue.ActivityQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}
