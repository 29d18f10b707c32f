package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/segmentio/kafka-go"
)

// handleAttempts bounds how often one event is handed to the handler before it
// is given up and committed.
const handleAttempts = 5

type ConsumerConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

type StatusHandler interface {
	Handle(ctx context.Context, ev domain.StatusChanged) error
}

// messageReader is the part of *kafka.Reader the consume loop uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func StartConsumer(ctx context.Context, h StatusHandler, cfg ConsumerConfig) (*kafka.Reader, error) {
	brokers := strings.Split(cfg.Brokers, ",")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})

	logger.Info("kafka consumer starting", "brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID)

	go consume(ctx, r, h, 300*time.Millisecond, handleAttempts)
	return r, nil
}

// consume commits a message once the handler succeeded or after attempts
// failed tries, so one undeliverable event cannot stall its partition.
// Malformed payloads are committed and skipped.
func consume(ctx context.Context, r messageReader, h StatusHandler, backoff time.Duration, attempts int) {
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka fetch error", "err", err)
			sleep(ctx, backoff)
			continue
		}

		var ev domain.StatusChanged
		if err = json.Unmarshal(m.Value, &ev); err != nil || ev.OrderID == "" {
			logger.Warn("kafka invalid status event. skip and commit", "err", err, "offset", m.Offset)
			_ = r.CommitMessages(ctx, m)
			continue
		}

		for try := 1; ; try++ {
			if err = h.Handle(ctx, ev); err == nil {
				break
			}
			if try >= attempts {
				logger.Error("status event dropped after retries", "err", err, "order_id", ev.OrderID,
					"status", ev.Status, "offset", m.Offset, "attempts", try)
				break
			}
			logger.Warn("status event handling failed, will retry", "err", err, "order_id", ev.OrderID, "attempt", try)
			if !sleep(ctx, backoff*time.Duration(try)) {
				return
			}
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			logger.Warn("[kafka] commit failed", "err", err)
		} else {
			logger.Info("[kafka] committed", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "order_id", ev.OrderID)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
