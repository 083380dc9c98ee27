package nets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Linearly separable, the target is the first input
var fixture = []Sample{
	{Inputs: []float64{0, 0, 1}, Targets: []float64{0}},
	{Inputs: []float64{0, 1, 1}, Targets: []float64{0}},
	{Inputs: []float64{1, 0, 1}, Targets: []float64{1}},
	{Inputs: []float64{1, 1, 1}, Targets: []float64{1}},
}

func float(f float64) *float64 {
	return &f
}

func TestTrainArguments(t *testing.T) {
	ctx := context.Background()

	_, _, err := Train(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, ErrHandle)
	_, _, err = Train(ctx, nil, []Sample{}, nil)
	assert.ErrorIs(t, err, ErrHandle)

	net, err := Build(Config{InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}})
	require.NoError(t, err)
	defer net.Close()

	_, _, err = Train(ctx, net, nil, nil)
	assert.ErrorIs(t, err, ErrArgument)
	_, _, err = Train(ctx, net, []Sample{}, nil)
	assert.ErrorIs(t, err, ErrArgument)
	_, _, err = Train(ctx, net, []Sample{}, &Options{})
	assert.ErrorIs(t, err, ErrArgument)
	_, _, err = Train(ctx, net, fixture, &Options{Epochs: -1})
	assert.ErrorIs(t, err, ErrArgument)
	_, _, err = Train(ctx, net, fixture, &Options{ErrorThreshold: float(-0.1)})
	assert.ErrorIs(t, err, ErrArgument)
	_, _, err = Train(ctx, net, []Sample{{Inputs: []float64{1}, Targets: []float64{1}}}, &Options{})
	assert.ErrorIs(t, err, ErrArgument)

	// None of the above should have trained the net
	p, err := net.Params()
	require.NoError(t, err)
	assert.Zero(t, p.Epochs)

	require.NoError(t, net.Close())
	_, _, err = Train(ctx, net, fixture, &Options{})
	assert.ErrorIs(t, err, ErrHandle)
}

func TestTrainCancel(t *testing.T) {
	net, err := Build(Config{InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}})
	require.NoError(t, err)
	defer net.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Train(ctx, net, fixture, &Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainEpochs(t *testing.T) {
	net, err := Build(Config{InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}, Seed: 1})
	require.NoError(t, err)
	defer net.Close()

	trained, last, err := Train(context.Background(), net, fixture, &Options{Epochs: 5, LogFreq: 1})
	require.NoError(t, err)
	assert.Same(t, net, trained)

	p, err := net.Params()
	require.NoError(t, err)
	assert.Equal(t, 5, p.Epochs)
	assert.Equal(t, last, p.Error)
}

func TestTrainDefaults(t *testing.T) {
	net, err := Build(Config{InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}, Seed: 1})
	require.NoError(t, err)
	defer net.Close()

	_, last, err := Train(context.Background(), net, fixture, &Options{})
	require.NoError(t, err)
	assert.Less(t, last, 0.01)

	for _, s := range fixture {
		out, err := net.Forward(s.Inputs)
		require.NoError(t, err)
		assert.InDelta(t, s.Targets[0], out[0], 0.2)
	}
}

func TestTrainHidden(t *testing.T) {
	tests := map[string]Options{
		"epochs":          {Epochs: 5000},
		"error threshold": {ErrorThreshold: float(0.005)},
		"both":            {Epochs: 3000, ErrorThreshold: float(0.005)},
		"delta threshold": {DeltaThreshold: float(1e-7)},
	}
	for name, opts := range tests {
		opts := opts
		t.Run(name, func(t *testing.T) {
			net, err := Build(Config{
				InputLayer:    3,
				HiddenLayers:  []LayerConfig{{Size: 2}},
				OutputLayer:   &LayerConfig{Size: 1},
				OptimFunction: &OptimConfig{LearningRate: float(0.5)},
				Seed:          1,
			})
			require.NoError(t, err)
			defer net.Close()

			_, last, err := Train(context.Background(), net, fixture, &opts)
			require.NoError(t, err)
			assert.Less(t, last, 0.01)
		})
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(map[string]interface{}{
		"epochs":          100.0,
		"error_threshold": 0.01,
		"delta_threshold": 1,
		"log_freq":        10,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, opts.Epochs)
	assert.Equal(t, 0.01, *opts.ErrorThreshold)
	assert.Equal(t, 1.0, *opts.DeltaThreshold)
	assert.Equal(t, 10, opts.LogFreq)

	opts, err = ParseOptions(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, &Options{}, opts)

	bad := []map[string]interface{}{
		nil,
		{"epochs": 1.5},
		{"epochs": 0},
		{"epochs": "ten"},
		{"error_threshold": -1.0},
		{"momentum": 0.9},
	}
	for _, raw := range bad {
		_, err := ParseOptions(raw)
		assert.ErrorIs(t, err, ErrArgument, "%v should have been rejected", raw)
	}
}
