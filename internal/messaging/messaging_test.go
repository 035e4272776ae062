package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
)

func paidMessage() *models.OrderPaidMessage {
	return &models.OrderPaidMessage{
		OrderID:       3,
		OrderType:     models.OrderTypeEatIn,
		PaymentMethod: models.PaymentCard,
		Total:         decimal.RequireFromString("8.84"),
		Items:         []models.TicketLine{{Name: "Croissant", Quantity: 2}},
	}
}

func TestPublishOrderPaidRoutesByChannel(t *testing.T) {
	var gotExchange, gotKey string
	var gotBody []byte
	p := newPublisher(func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
		gotExchange, gotKey, gotBody = exchange, key, msg.Body
		if msg.DeliveryMode != amqp091.Persistent {
			t.Errorf("delivery mode = %d, want persistent", msg.DeliveryMode)
		}
		return nil
	}, logger.Nop())

	if err := p.PublishOrderPaid(context.Background(), paidMessage()); err != nil {
		t.Fatalf("PublishOrderPaid: %v", err)
	}
	if gotExchange != EventsExchange || gotKey != "order.paid.eat_in" {
		t.Fatalf("published to %s/%s", gotExchange, gotKey)
	}

	var decoded models.OrderPaidMessage
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.OrderID != 3 || !decoded.Total.Equal(decimal.RequireFromString("8.84")) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestPublisherBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	p := newPublisher(func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
		calls++
		return errors.New("connection refused")
	}, logger.Nop())

	for i := 0; i < 3; i++ {
		if err := p.PublishOrderPaid(context.Background(), paidMessage()); err == nil || errors.Is(err, ErrBreakerOpen) {
			t.Fatalf("attempt %d: err = %v, want publish failure", i, err)
		}
	}

	err := p.PublishOrderPaid(context.Background(), paidMessage())
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("err = %v, want ErrBreakerOpen", err)
	}
	if calls != 3 {
		t.Fatalf("broker called %d times, want 3", calls)
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestSettle(t *testing.T) {
	c := &Consumer{logger: logger.Nop(), queueName: KitchenTicketsQueue}

	tests := []struct {
		name        string
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"success acks", nil, true, false},
		{"transient failure requeues", errors.New("printer busy"), false, true},
		{"poison message dropped", ErrPoison, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			c.settle(context.Background(), ack, []byte(`{}`), "order.paid.takeaway", "req-1",
				func(ctx context.Context, body []byte) error {
					if logger.RequestIDFromContext(ctx) != "req-1" {
						t.Error("request id not propagated")
					}
					return tt.handlerErr
				})
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && (!ack.nacked || ack.requeued != tt.wantRequeue) {
				t.Errorf("nack requeue = %v (nacked %v), want %v", ack.requeued, ack.nacked, tt.wantRequeue)
			}
		})
	}
}

func TestParseMessagePoison(t *testing.T) {
	var msg models.OrderPaidMessage
	if err := ParseMessage([]byte("not json"), &msg); !errors.Is(err, ErrPoison) {
		t.Fatalf("err = %v, want ErrPoison", err)
	}
}
