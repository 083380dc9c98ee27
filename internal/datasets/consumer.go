package datasets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	kafka "github.com/segmentio/kafka-go"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/datasets/samplestores"
	"github.com/qvantel/synapse/internal/logger"
)

// ErrFailLimit is returned by the consumer when too many messages in a row couldn't be processed
var ErrFailLimit = errors.New("reached consecutive processing failure limit")

// Reader is the part of *kafka.Reader the consumer needs
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer ingests samples updates from Kafka until the context is cancelled, the reader fails or failLimit messages
// in a row couldn't be processed. Messages are only committed once their samples are stored, the ones that can't be
// processed are skipped without committing them
func Consumer(
	ctx context.Context,
	r Reader,
	ss samplestores.SampleStore,
	tServ chan types.TrainRequest,
	failLimit int,
) (e error) {
	defer func() {
		if r := recover(); r != nil {
			switch x := r.(type) {
			case string:
				e = errors.New(x)
			case error:
				e = x
			default:
				e = errors.New("unknown panic")
			}
		}
	}()

	failures := 0
	logger.Info("Consumer initialized")
	for failures < failLimit {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Consumer stopped")
				return nil
			}
			logger.Error("Consumer failed to fetch new message", err)
			return err
		}

		logger.Tracef(
			"Message received at topic/partition/offset %v/%v/%v: %s = %s",
			m.Topic,
			m.Partition,
			m.Offset,
			string(m.Key),
			string(m.Value),
		)

		event := cloudevents.NewEvent()
		err = json.Unmarshal(m.Value, &event)
		if err != nil {
			logger.Warning("Consumer failed to unmarshal message (" + err.Error() + ")")
			failures++
			continue
		}

		err = ProcessUpdate(event, ss, tServ)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to process message at offset %d", m.Offset), err)
			failures++
			continue
		}
		failures = 0

		if err := r.CommitMessages(ctx, m); err != nil {
			logger.Error("Consumer failed to commit messages", err)
			return err
		}
	}

	return ErrFailLimit
}
