// Package datasets contains the logic that manages the samples used for training nets
package datasets

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/datasets/samplestores"
	"github.com/qvantel/synapse/internal/logger"
)

// SamplesEventType is the type of the cloud events that carry a types.SamplesUpdate
const SamplesEventType = "com.qvantel.synapse.samples"

// Stores that only make writes visible to reads after a while (like Elasticsearch) implement this
type refresher interface {
	Refresh(dataset string) error
}

// ProcessUpdate serves to separate the cloud event processing logic from that which is Kafka specific, that way
// allowing for training data to be ingested into the system through other channels
func ProcessUpdate(event event.Event, ss samplestores.SampleStore, tServ chan types.TrainRequest) error {
	switch event.Type() {
	case SamplesEventType:
		var su types.SamplesUpdate
		err := json.Unmarshal(event.Data(), &su)
		if err != nil {
			return err
		}
		if err = su.Validate(); err != nil {
			return err
		}

		// Samples without a timestamp take the one of the event
		ts := event.Time()
		if ts.IsZero() {
			ts = time.Now()
		}
		for _, s := range su.Samples {
			sample := samplestores.Sample{Inputs: s.Inputs, Targets: s.Targets, TimeStamp: s.TimeStamp}
			if sample.TimeStamp == 0 {
				sample.TimeStamp = ts.Unix()
			}
			err = ss.AddSample(su.DatasetID, sample)
			if err != nil {
				logger.Error("Error encountered while persisting sample to store", err)
				return err
			}
		}
		logger.Trace(fmt.Sprintf("Stored %d samples for dataset %s", len(su.Samples), su.DatasetID))

		if su.Train == nil {
			return nil
		}
		if r, ok := ss.(refresher); ok {
			// Otherwise the training service might not see the samples that were just added
			if err = r.Refresh(su.DatasetID); err != nil {
				return err
			}
		}
		req := *su.Train
		req.DatasetID = su.DatasetID
		tServ <- req
		return nil
	default:
		logger.Warning("Received cloud event with unsupported type (" + event.Type() + ") from " + event.Source())
		return errors.New("unsupported event type")
	}
}
