package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates a producer that waits for all in-sync replicas.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return newProducer(producer, topic), nil
}

func newProducer(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
	}
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// SendOutcome publishes one outcome event keyed by its unique id.
func (p *Producer) SendOutcome(ev models.OutcomeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.UniqueID),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err = p.producer.SendMessage(kafkaMsg); err != nil {
		return fmt.Errorf("send outcome %s: %w", ev.UniqueID, err)
	}
	return nil
}

// Record implements triage.Sink.
func (p *Producer) Record(_ context.Context, ev models.OutcomeEvent) error {
	return p.SendOutcome(ev)
}
