package producer

import (
	"context"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// KafkaProducer is a Producer implementation for sending events through a Kafka topic. Messages are keyed by dataset
// ID, with the same balancer as the Java clients, so every update for a dataset lands in the same partition
type KafkaProducer struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaProducer checks that at least one of the brokers can be reached and creates a Kafka producer
func NewKafkaProducer(conf Config) (*KafkaProducer, error) {
	if _, err := reachable(conf.Addresses, conf.Timeout); err != nil {
		return nil, err
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(conf.Addresses...),
		Topic:        conf.Topic,
		Balancer:     &kafka.Murmur2Balancer{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: conf.Timeout,
	}
	return &KafkaProducer{writer: writer, timeout: conf.Timeout}, nil
}

// Close flushes pending messages and shuts down the underlying Kafka writer
func (kp *KafkaProducer) Close() {
	kp.writer.Close()
}

// Send writes the given event to the configured Kafka topic, waiting for the leader to acknowledge it
func (kp *KafkaProducer) Send(datasetID string, event []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), kp.timeout)
	defer cancel()
	return kp.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(datasetID),
		Value: event,
	})
}
