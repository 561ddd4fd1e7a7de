package repository

import (
	"context"

	"fxpull/internal/domain/models"
	pkgkafka "fxpull/pkg/kafka"
)

// KafkaBarPublisher mirrors cleaned bars to a Kafka topic, keyed by the
// normalized instrument so one series always lands on one partition.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) *KafkaBarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) PublishBatch(ctx context.Context, instrument string, tf models.Timeframe, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	key := []byte(models.NormalizeInstrument(instrument))
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{
			Key: key,
			Value: map[string]interface{}{
				"instrument": instrument,
				"timeframe":  string(tf),
				"date":       b.Date.UTC(),
				"bidopen":    b.BidOpen,
				"bidhigh":    b.BidHigh,
				"bidlow":     b.BidLow,
				"bidclose":   b.BidClose,
				"askopen":    b.AskOpen,
				"askhigh":    b.AskHigh,
				"asklow":     b.AskLow,
				"askclose":   b.AskClose,
				"volume":     b.Volume,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
