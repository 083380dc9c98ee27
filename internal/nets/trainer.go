package nets

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/qvantel/synapse/internal/logger"
)

// Stopping policy used when the options don't set any
const (
	DefaultEpochs         = 10000
	DefaultErrorThreshold = 0.001
)

// Sample is a training pair
type Sample struct {
	Inputs  []float64 `json:"inputs"`
	Targets []float64 `json:"targets"`
}

// Options control when training stops. Epochs is always enforced (DefaultEpochs when 0) so training terminates even
// when the thresholds are never met
type Options struct {
	Epochs         int      `json:"epochs,omitempty"`
	ErrorThreshold *float64 `json:"error_threshold,omitempty"`
	DeltaThreshold *float64 `json:"delta_threshold,omitempty"`
	LogFreq        int      `json:"log_freq,omitempty"`
}

func (o Options) validate() error {
	switch {
	case o.Epochs < 0:
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrArgument, o.Epochs)
	case o.ErrorThreshold != nil && (*o.ErrorThreshold < 0 || math.IsNaN(*o.ErrorThreshold)):
		return fmt.Errorf("%w: error_threshold can't be negative", ErrArgument)
	case o.DeltaThreshold != nil && (*o.DeltaThreshold < 0 || math.IsNaN(*o.DeltaThreshold)):
		return fmt.Errorf("%w: delta_threshold can't be negative", ErrArgument)
	case o.LogFreq < 0:
		return fmt.Errorf("%w: log_freq must be positive, got %d", ErrArgument, o.LogFreq)
	}
	return nil
}

func toFloat(key string, v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrArgument, key, v)
	}
}

func toInt(key string, v interface{}) (int, error) {
	f, err := toFloat(key, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrArgument, key, v)
	}
	return int(f), nil
}

// ParseOptions reads training options from a generic map (as decoded from JSON). Only epochs, error_threshold,
// delta_threshold and log_freq are accepted
func ParseOptions(raw map[string]interface{}) (*Options, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: missing options", ErrArgument)
	}
	opts := &Options{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	unknown := []string{}
	for _, k := range keys {
		var err error
		switch k {
		case "epochs":
			opts.Epochs, err = toInt(k, raw[k])
		case "log_freq":
			opts.LogFreq, err = toInt(k, raw[k])
		case "error_threshold":
			var f float64
			f, err = toFloat(k, raw[k])
			opts.ErrorThreshold = &f
		case "delta_threshold":
			var f float64
			f, err = toFloat(k, raw[k])
			opts.DeltaThreshold = &f
		default:
			unknown = append(unknown, k)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown options %s", ErrArgument, strings.Join(unknown, ", "))
	}
	return opts, opts.validate()
}

func checkDataset(net *Network, dataset []Sample) error {
	if len(dataset) == 0 {
		return fmt.Errorf("%w: empty dataset", ErrArgument)
	}
	p, err := net.Params()
	if err != nil {
		return err
	}
	in, out := p.Config.InputLayer, p.Config.OutputLayer.Size
	for i, s := range dataset {
		if len(s.Inputs) != in || len(s.Targets) != out {
			return fmt.Errorf(
				"%w: sample %d has %d inputs and %d targets, the net takes %d and %d",
				ErrArgument,
				i,
				len(s.Inputs),
				len(s.Targets),
				in,
				out,
			)
		}
	}
	return nil
}

// Train feeds the dataset to the net, in order, once per epoch until one of the stopping conditions is met. After each
// epoch they are checked in this order: epoch cap, error threshold and delta threshold (the latter needs at least
// two epochs). The net is trained in place and returned together with the error of the last epoch (the mean of the
// losses of its samples)
func Train(ctx context.Context, net *Network, dataset []Sample, opts *Options) (*Network, float64, error) {
	if err := net.alive(); err != nil {
		return nil, 0, err
	}
	if dataset == nil {
		return net, 0, fmt.Errorf("%w: missing dataset", ErrArgument)
	}
	if opts == nil {
		return net, 0, fmt.Errorf("%w: missing options", ErrArgument)
	}
	if err := opts.validate(); err != nil {
		return net, 0, err
	}
	if err := checkDataset(net, dataset); err != nil {
		return net, 0, err
	}

	maxEpochs, errTh, deltaTh := opts.Epochs, opts.ErrorThreshold, opts.DeltaThreshold
	if maxEpochs == 0 && errTh == nil && deltaTh == nil {
		th := DefaultErrorThreshold
		errTh = &th
	}
	if maxEpochs == 0 {
		maxEpochs = DefaultEpochs
	}

	var (
		current  float64
		previous float64
		epoch    int
	)
	for epoch = 1; ; epoch++ {
		sum := 0.0
		for _, s := range dataset {
			if err := ctx.Err(); err != nil {
				return net, current, err
			}
			if _, err := net.Forward(s.Inputs); err != nil {
				return net, current, err
			}
			loss, err := net.Backward(s.Targets)
			if err != nil {
				return net, current, err
			}
			sum += loss
		}
		current = sum / float64(len(dataset))
		if opts.LogFreq > 0 && epoch%opts.LogFreq == 0 {
			logger.Debugf("Epoch %d finished with an error of %g", epoch, current)
		}
		if epoch >= maxEpochs {
			break
		}
		if errTh != nil && current <= *errTh {
			break
		}
		if deltaTh != nil && epoch > 1 && math.Abs(current-previous) <= *deltaTh {
			break
		}
		previous = current
	}
	logger.Debugf("Training finished after %d epochs with an error of %g", epoch, current)
	return net, current, net.record(current, epoch)
}
