package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"go.viam.com/test"

	"github.com/Capitan-Parrot/detect-people/internal/models"
)

func TestSendOutcome(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	ev := models.OutcomeEvent{
		UniqueID:  "abc",
		Source:    "/in/a.jpg",
		Outcome:   models.OutcomeKept,
		Verdict:   models.VerdictPersonPresent,
		TimeStamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "outcomes" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "abc" {
			return errors.New("wrong key " + string(key))
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got models.OutcomeEvent
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.Outcome != models.OutcomeKept || got.Source != "/in/a.jpg" {
			return errors.New("unexpected payload " + string(value))
		}
		return nil
	})

	p := newProducer(sp, "outcomes")
	test.That(t, p.Record(context.Background(), ev), test.ShouldBeNil)
}

func TestSendOutcomeFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := newProducer(sp, "outcomes").SendOutcome(models.OutcomeEvent{UniqueID: "x"})
	test.That(t, errors.Is(err, sarama.ErrOutOfBrokers), test.ShouldBeTrue)
}

func TestMessageAckWithoutSession(t *testing.T) {
	// deliveries built outside a consumer session are safe to ack
	Message{Value: []byte("{}")}.Ack()
}
