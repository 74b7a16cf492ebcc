package services

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	kafkautils "github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/kafka"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/configs"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/observability"
	"go.uber.org/zap"
)

// PaymentEventPublisher announces confirmations to downstream systems. Publishing is best
// effort: the audit table stays the record of truth.
type PaymentEventPublisher interface {
	PublishConfirmed(event views.PaymentConfirmedEvent) error
	Close()
}

type KafkaPaymentEventPublisher struct {
	logger     *zap.Logger
	producer   *kafka.Producer
	topic      string
	partitions int
}

// NewPaymentEventPublisher returns a Kafka publisher, or a no-op one when no brokers are configured.
func NewPaymentEventPublisher(ctx context.Context, logger *zap.Logger, cnf *configs.Config) (PaymentEventPublisher, error) {
	if cnf.KafkaBrokers == "" {
		logger.Info("kafka_disabled_payment_events_not_published")
		return NoopPaymentEventPublisher{}, nil
	}

	err := kafkautils.InitKafkaTopics(ctx, logger, kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{{
			Topic:             cnf.KafkaPaymentTopic,
			NumPartitions:     cnf.KafkaPaymentPartition,
			ReplicationFactor: 1,
			RetentionMs:       cnf.KafkaPaymentRetention.Milliseconds(),
		}},
	})
	if err != nil {
		return nil, err
	}
	p, err := kafkautils.NewIdempotentProducer(logger, cnf.KafkaBrokers)
	if err != nil {
		return nil, err
	}
	logger.Info("kafka_producer_created", zap.String("brokers", cnf.KafkaBrokers), zap.String("topic", cnf.KafkaPaymentTopic))
	return &KafkaPaymentEventPublisher{
		logger:     logger,
		producer:   p,
		topic:      cnf.KafkaPaymentTopic,
		partitions: cnf.KafkaPaymentPartition,
	}, nil
}

func (k *KafkaPaymentEventPublisher) PublishConfirmed(event views.PaymentConfirmedEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.topic,
			Partition: partitionFor(event.OrderReference, k.partitions),
		},
		Key:   []byte(event.OrderReference),
		Value: msg,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}, nil)
	if err != nil {
		observability.EventsPublished.WithLabelValues("error").Inc()
		return err
	}
	observability.EventsPublished.WithLabelValues("queued").Inc()
	return nil
}

func (k *KafkaPaymentEventPublisher) Close() {
	if remaining := k.producer.Flush(int((5 * time.Second).Milliseconds())); remaining > 0 {
		k.logger.Warn("kafka_unflushed_messages", zap.Int("remaining", remaining))
	}
	k.producer.Close()
}

// partitionFor keeps every event of one order on the same partition.
func partitionFor(reference string, partitions int) int32 {
	if partitions <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(reference))
	return int32(h.Sum32() % uint32(partitions))
}

type NoopPaymentEventPublisher struct{}

func (NoopPaymentEventPublisher) PublishConfirmed(views.PaymentConfirmedEvent) error { return nil }
func (NoopPaymentEventPublisher) Close()                                             {}
