package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	gobreaker "github.com/sony/gobreaker/v2"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/metrics"
	"bakery-pos/internal/models"
)

// ErrBreakerOpen is returned while the broker is considered unavailable
var ErrBreakerOpen = errors.New("messaging: circuit breaker open")

type publishFunc func(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error

// Publisher publishes order events through a circuit breaker. Three
// consecutive failures open it for 30s.
type Publisher struct {
	publish publishFunc
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *logger.Logger
}

// NewPublisher creates a publisher on conn
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return newPublisher(func(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
		return ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}, log)
}

func newPublisher(fn publishFunc, log *logger.Logger) *Publisher {
	settings := gobreaker.Settings{
		Name:        "order-events",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_breaker_state", fmt.Sprintf("Circuit breaker %s: %s -> %s", name, from, to), "", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &Publisher{
		publish: fn,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  log,
	}
}

// PublishOrderPaid publishes msg to the events exchange keyed by channel
func (p *Publisher) PublishOrderPaid(ctx context.Context, msg *models.OrderPaidMessage) error {
	return p.publishMessage(ctx, EventsExchange, models.OrderPaidRoutingKey(msg.OrderType), msg)
}

func (p *Publisher) publishMessage(ctx context.Context, exchange, routingKey string, message interface{}) error {
	requestID := logger.RequestIDFromContext(ctx)

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp091.Persistent,
		Timestamp:     time.Now(),
		CorrelationId: requestID,
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return struct{}{}, p.publish(pubCtx, exchange, routingKey, publishing)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.EventsPublished.WithLabelValues("breaker_open").Inc()
		return ErrBreakerOpen
	}
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			requestID, err, map[string]interface{}{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.EventsPublished.WithLabelValues("ok").Inc()
	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		requestID, map[string]interface{}{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(body),
		})

	return nil
}
