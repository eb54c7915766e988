package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const exchangeTypeTopic = "topic"

// ErrNotConnected is returned while the broker connection is down.
var ErrNotConnected = errors.New("amqp publisher not connected")

// AMQPPublisher publishes events to a topic exchange, routed by event
// type. It reconnects with exponential backoff when the broker drops
// the connection.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	done    chan struct{}
}

func NewAMQPPublisher(url, exchange string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:      url,
		exchange: exchange,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start connects, retrying until ctx is done.
func (a *AMQPPublisher) Start(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(a.connect, b); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	go a.notifyWhenClosed()
	a.logger.Info("AMQP publisher connected", zap.String("exchange", a.exchange))
	return nil
}

// Stop closes the connection.
func (a *AMQPPublisher) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	select {
	case <-a.done:
		return
	default:
		close(a.done)
	}

	if a.channel != nil {
		_ = a.channel.Close()
	}
	if a.conn != nil && !a.conn.IsClosed() {
		_ = a.conn.Close()
	}
}

// Publish implements Sink.
func (a *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding JSON message: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel == nil {
		return ErrNotConnected
	}

	err = a.channel.Publish(
		a.exchange,
		string(ev.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: ev.DeploymentID,
			Timestamp:     ev.Timestamp,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("error publishing message in channel: %w", err)
	}
	return nil
}

func (a *AMQPPublisher) notifyWhenClosed() {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()

	errReason := <-conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-a.done:
		return
	default:
	}
	if errReason == nil {
		return
	}

	a.logger.Warn("AMQP connection closed, reconnecting", zap.String("reason", errReason.Error()))

	a.mu.Lock()
	a.channel = nil
	a.mu.Unlock()

	b := backoff.WithContext(backoff.NewExponentialBackOff(), doneContext(a.done))
	if err := backoff.Retry(a.connect, b); err != nil {
		a.logger.Error("AMQP reconnect failed", zap.Error(err))
		return
	}

	go a.notifyWhenClosed()
}

func (a *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		a.logger.Debug("AMQP dial failed", zap.Error(err))
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	err = channel.ExchangeDeclare(
		a.exchange,
		exchangeTypeTopic,
		true,  // durable
		false, // delete when complete
		false, // internal
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return backoff.Permanent(fmt.Errorf("error declaring exchange: %w", err))
	}

	a.mu.Lock()
	a.conn = conn
	a.channel = channel
	a.mu.Unlock()

	return nil
}

func doneContext(done <-chan struct{}) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		cancel()
	}()
	return ctx
}
