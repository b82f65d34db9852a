package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Consumer wraps a sarama ConsumerGroup and exposes deliveries on a channel.
type Consumer struct {
	group     sarama.ConsumerGroup
	topic     string
	messages  chan Message
	closed    chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// Message is a single delivery. Ack marks it consumed in the group.
type Message struct {
	Value   []byte
	Key     []byte
	session sarama.ConsumerGroupSession
	message *sarama.ConsumerMessage
}

func (m Message) Ack() {
	if m.session != nil && m.message != nil {
		m.session.MarkMessage(m.message, "")
	}
}

// NewConsumer creates a group consumer. prefetch bounds how many deliveries
// sarama buffers ahead of the worker.
func NewConsumer(brokers []string, groupID, topic string, prefetch int, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	if prefetch > 0 {
		config.ChannelBufferSize = prefetch
	}

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:    group,
		topic:    topic,
		messages: make(chan Message),
		closed:   make(chan struct{}),
		logger:   logger,
	}, nil
}

// StartListening consumes in the background until ctx is done or Close is
// called, then closes the Messages channel.
func (c *Consumer) StartListening(ctx context.Context) {
	handler := &consumerGroupHandler{
		messages: c.messages,
		closed:   c.closed,
	}

	go func() {
		defer close(c.messages)

		retryDelay := time.Second * 5
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer: context cancelled, stopping")
				return
			case <-c.closed:
				c.logger.Info("consumer: received close signal, stopping")
				return
			default:
				c.logger.Debug("consumer: starting consumption cycle", zap.String("topic", c.topic))
				err := c.group.Consume(ctx, []string{c.topic}, handler)
				if err != nil {
					c.logger.Warn("consume error, retrying", zap.Error(err), zap.Duration("delay", retryDelay))
					select {
					case <-ctx.Done():
						return
					case <-c.closed:
						return
					case <-time.After(retryDelay):
					}
					continue
				}

				if ctx.Err() != nil {
					return
				}
			}
		}
	}()
}

// Close stops the consumer and releases the group.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.group.Close()
}

// Messages returns the delivery channel.
func (c *Consumer) Messages() <-chan Message {
	return c.messages
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	messages chan<- Message
	closed   <-chan struct{}
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case h.messages <- Message{
				Value:   msg.Value,
				Key:     msg.Key,
				session: sess,
				message: msg,
			}:
			case <-sess.Context().Done():
				return nil
			case <-h.closed:
				return nil
			}
		case <-sess.Context().Done():
			return nil
		case <-h.closed:
			return nil
		}
	}
}
