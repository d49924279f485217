package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout   = 2 * time.Second
	defaultRedialBackoff = 5 * time.Second
)

// Publish errors that never reached the broker.
var (
	ErrPublisherClosed   = errors.New("publisher closed")
	ErrBrokerUnavailable = errors.New("rabbitmq unavailable")
)

// Publisher keeps one connection and channel open and re-dials lazily
// when the broker dropped them.  It is safe for concurrent use.
//
// Only one caller dials at a time and no lock is held while it does; other
// callers fail fast with ErrBrokerUnavailable instead of queueing behind it.
// After a failed dial the broker is left alone for the redial backoff.
type Publisher struct {
	url           string
	log           *zap.Logger
	dialTimeout   time.Duration
	redialBackoff time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	dialing bool
	retryAt time.Time
	closed  bool
}

// NewPublisher returns a publisher for url.  A broker that is down at
// startup is logged, not fatal: a later publish dials again.  dialTimeout
// caps the TCP connect plus AMQP handshake; zero means two seconds.
func NewPublisher(url string, log *zap.Logger, dialTimeout time.Duration) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	p := &Publisher{
		url:           url,
		log:           log.Named("publisher"),
		dialTimeout:   dialTimeout,
		redialBackoff: defaultRedialBackoff,
	}
	if _, err := p.channel(context.Background()); err != nil {
		p.log.Warn("rabbitmq unavailable at startup", zap.Error(err))
	}
	return p
}

func (p *Publisher) connectedLocked() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed()
}

// channel returns the open channel, dialing once if there is none.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return nil, ErrPublisherClosed
	case p.connectedLocked():
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	case p.dialing, time.Now().Before(p.retryAt):
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.dialing = true
	p.resetLocked()
	p.mu.Unlock()

	conn, ch, err := p.dial(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		p.retryAt = time.Now().Add(p.redialBackoff)
		return nil, err
	}
	if p.closed {
		_ = ch.Close()
		_ = conn.Close()
		return nil, ErrPublisherClosed
	}
	p.conn, p.ch, p.retryAt = conn, ch, time.Time{}
	return ch, nil
}

// dial opens a connection whose handshake is bounded by the dial timeout
// or the context deadline, whichever comes first.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", context.DeadlineExceeded)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	return conn, ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// PublishBookingConfirmed sends ev as a persistent JSON message.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",                    // default exchange
		BookingConfirmedQueue, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    ev.BookingID,
			Body:         body,
		},
	)
	if err != nil {
		p.mu.Lock()
		if p.ch == ch {
			p.resetLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", BookingConfirmedQueue, err)
	}
	return nil
}

// Close shuts the channel and connection; later publishes fail with
// ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	return err
}
