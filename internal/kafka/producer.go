package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokersSTR, topic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Async:                  false,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// PublishStatusChanged keys messages by order id so events of one order stay
// on one partition and are consumed in order.
func (p *Producer) PublishStatusChanged(ctx context.Context, ev domain.StatusChanged) error {
	msg, err := encodeStatusChanged(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

func encodeStatusChanged(ev domain.StatusChanged) (kafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte("OrderStatusChanged")},
		},
	}, nil
}
