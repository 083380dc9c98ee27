// Package training runs the service that trains stored nets with the samples of stored datasets
package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/config"
	"github.com/qvantel/synapse/internal/datasets/samplestores"
	"github.com/qvantel/synapse/internal/logger"
	"github.com/qvantel/synapse/internal/nets"
	"github.com/qvantel/synapse/internal/nets/paramstores"
)

// ErrNotFound is returned when the net or dataset of a request doesn't exist
var ErrNotFound = errors.New("not found")

// Service listens for requests to train nets until the context is cancelled, which also aborts the training in progress
func Service(ctx context.Context, c <-chan types.TrainRequest, conf config.Config) error {
	// Set up net param store
	nps, err := paramstores.New(conf)
	if err != nil {
		logger.Error("Failed to initialize net param store for the training service", err)
		return err
	}
	// Set up sample store
	ss, err := samplestores.New(conf)
	if err != nil {
		logger.Error("Failed to initialize sample store for the training service", err)
		return err
	}
	logger.Info("Training service initialized")
	for {
		var tr types.TrainRequest
		select {
		case <-ctx.Done():
			logger.Info("Training service stopped")
			return nil
		case tr = <-c:
		}
		logger.Info("Training net " + tr.NetID + " with dataset " + tr.DatasetID)
		start := time.Now()
		lastErr, err := Run(ctx, tr, nps, ss, conf.ML)
		if err != nil {
			logger.Error("Error training net "+tr.NetID+" with dataset "+tr.DatasetID, err)
			continue // We can't kill the whole service every time training fails
		}
		logger.Info(fmt.Sprintf("Training of net %s completed in %s with an error of %g", tr.NetID, time.Since(start), lastErr))
	}
}

// Options parses the options of a request and fills in what they leave out with the configured defaults
func Options(raw map[string]interface{}, conf config.MLParams) (*nets.Options, error) {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	opts, err := nets.ParseOptions(raw)
	if err != nil {
		return nil, err
	}
	if opts.Epochs == 0 && opts.ErrorThreshold == nil && opts.DeltaThreshold == nil {
		th := conf.ErrorThreshold
		opts.ErrorThreshold = &th
	}
	if opts.Epochs == 0 {
		opts.Epochs = conf.DefaultEpochs
	}
	if opts.LogFreq == 0 {
		opts.LogFreq = conf.LogFreq
	}
	return opts, nil
}

// Run handles a single training request: the net is rebuilt from the store, trained with every sample of the dataset
// (oldest first) and saved back. It returns the error of the last epoch
func Run(
	ctx context.Context,
	tr types.TrainRequest,
	nps paramstores.NetParamStore,
	ss samplestores.SampleStore,
	conf config.MLParams,
) (float64, error) {
	opts, err := Options(tr.Options, conf)
	if err != nil {
		return 0, err
	}

	var np nets.Params
	found, err := nps.Load(tr.NetID, &np)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: net %s", ErrNotFound, tr.NetID)
	}

	samples, err := ss.GetAll(tr.DatasetID)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: dataset %s has no samples", ErrNotFound, tr.DatasetID)
	}
	dataset := make([]nets.Sample, len(samples))
	for i, s := range samples {
		dataset[i] = nets.Sample{Inputs: s.Inputs, Targets: s.Targets}
	}

	np.Config.Timeout = conf.UnitTimeout
	net, err := nets.FromParams(np)
	if err != nil {
		return 0, err
	}
	defer net.Close()

	_, lastErr, err := nets.Train(ctx, net, dataset, opts)
	if err != nil {
		return 0, err
	}
	params, err := net.Params()
	if err != nil {
		return 0, err
	}
	return lastErr, nps.Save(tr.NetID, &params)
}
