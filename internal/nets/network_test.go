package nets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvantel/synapse/internal/functions"
)

func linearParams(weights [][][]float64, hidden ...int) Params {
	conf := Config{
		InputLayer:  len(weights[0][0]) - 1,
		OutputLayer: &LayerConfig{Size: len(weights[len(weights)-1]), Activation: functions.Identity},
	}
	if len(hidden) > 0 {
		conf.InputLayer = hidden[0]
		for _, size := range hidden[1:] {
			conf.HiddenLayers = append(conf.HiddenLayers, LayerConfig{Size: size, Activation: functions.Identity})
		}
	}
	return Params{Config: conf, Weights: weights}
}

func TestForwardBackward(t *testing.T) {
	net, err := FromParams(linearParams([][][]float64{{{0.5, 0.25, 0.1}}}))
	require.NoError(t, err)
	defer net.Close()

	out, err := net.Forward([]float64{2, 4})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 2.1, out[0], 1e-12)

	loss, err := net.Backward([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 1.21, loss, 1e-12)

	p, err := net.Params()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.28, -0.19, -0.01}, p.Weights[0][0], 1e-12)
}

// The hidden neuron must see the output weight from before the output neuron updated it
func TestBackwardUsesPreUpdateWeights(t *testing.T) {
	// x -> h = 0.5x -> y = 2h
	net, err := FromParams(linearParams([][][]float64{{{0.5, 0}}, {{2, 0}}}, 1, 1))
	require.NoError(t, err)
	defer net.Close()

	out, err := net.Forward([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-12)

	loss, err := net.Backward([]float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, loss, 1e-12)

	p, err := net.Params()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.3, -0.2}, p.Weights[0][0], 1e-12)
	assert.InDeltaSlice(t, []float64{1.95, -0.1}, p.Weights[1][0], 1e-12)
}

func TestForwardIsDeterministic(t *testing.T) {
	net, err := Build(Config{
		InputLayer:   3,
		HiddenLayers: []LayerConfig{{Size: 4}, {Size: 3, Activation: functions.Tanh}},
		OutputLayer:  &LayerConfig{Size: 2},
	})
	require.NoError(t, err)
	defer net.Close()

	in := []float64{0.3, -1.2, 7}
	first, err := net.Forward(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := net.Forward(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSequencing(t *testing.T) {
	net, err := Build(Config{InputLayer: 2, OutputLayer: &LayerConfig{Size: 1}})
	require.NoError(t, err)
	defer net.Close()

	_, err = net.Backward([]float64{1})
	assert.ErrorIs(t, err, ErrSequencing)

	_, err = net.Forward([]float64{1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = net.Forward([]float64{1, 0})
	require.NoError(t, err)
	_, err = net.Backward([]float64{1, 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = net.Backward([]float64{1})
	require.NoError(t, err)
	_, err = net.Backward([]float64{1})
	assert.ErrorIs(t, err, ErrSequencing, "every backward needs its own forward")
}

func TestTransforms(t *testing.T) {
	scale := func(v []float64) []float64 {
		res := make([]float64, len(v))
		for i := range v {
			res[i] = v[i] * 10
		}
		return res
	}
	p := linearParams([][][]float64{{{1, 1}}})
	p.Config.OutputLayer.Prefix = []Transform{scale}
	p.Config.OutputLayer.Suffix = []Transform{scale}
	net, err := FromParams(p)
	require.NoError(t, err)
	defer net.Close()

	// (2*10 + 1*10) * 10
	out, err := net.Forward([]float64{2})
	require.NoError(t, err)
	assert.InDelta(t, 300.0, out[0], 1e-9)
}

func TestClosedHandle(t *testing.T) {
	net, err := Build(Config{InputLayer: 2, OutputLayer: &LayerConfig{Size: 1}})
	require.NoError(t, err)
	require.NoError(t, net.Close())
	require.NoError(t, net.Close())

	_, err = net.Forward([]float64{1, 0})
	assert.ErrorIs(t, err, ErrHandle)
	_, err = net.Get()
	assert.ErrorIs(t, err, ErrHandle)

	var missing *Network
	_, err = missing.Forward([]float64{1, 0})
	assert.ErrorIs(t, err, ErrHandle)
	_, err = missing.Params()
	assert.ErrorIs(t, err, ErrHandle)
	assert.ErrorIs(t, missing.Close(), ErrHandle)
}

func TestGet(t *testing.T) {
	net, err := Build(Config{
		InputLayer:    2,
		OutputLayer:   &LayerConfig{Size: 1},
		LossFunction:  &LossConfig{Type: functions.SSE},
		OptimFunction: &OptimConfig{Type: functions.Adam},
	})
	require.NoError(t, err)
	defer net.Close()

	state, err := net.Get()
	require.NoError(t, err)
	assert.Equal(t, functions.SSE, state.Loss)
	assert.Equal(t, functions.Adam, state.Optimizer)
	assert.Equal(t, functions.Adam, state.Output.Optimizer)
	assert.Empty(t, state.Hidden)
	for _, n := range state.Input.Neurons {
		assert.Nil(t, n.LastOutput)
	}
}

func TestFailedForwardClearsPending(t *testing.T) {
	// Drops an input whenever the first one is set so the hidden neuron gets the wrong number of values
	drop := func(v []float64) []float64 {
		if v[0] == 1 {
			return v[:len(v)-1]
		}
		return v
	}
	net, err := Build(Config{
		InputLayer:   2,
		HiddenLayers: []LayerConfig{{Size: 1, Prefix: []Transform{drop}}},
		OutputLayer:  &LayerConfig{Size: 1},
		Seed:         1,
	})
	require.NoError(t, err)
	defer net.Close()

	_, err = net.Forward([]float64{0, 0})
	require.NoError(t, err)
	_, err = net.Forward([]float64{1, 1})
	require.ErrorIs(t, err, ErrValidation)

	before, err := net.Params()
	require.NoError(t, err)
	_, err = net.Backward([]float64{1})
	assert.ErrorIs(t, err, ErrSequencing, "the prediction of an earlier sample must not be trained on")
	after, err := net.Params()
	require.NoError(t, err)
	assert.Equal(t, before.Weights, after.Weights)
}

func TestSuffixKeepsBias(t *testing.T) {
	scale := func(v []float64) []float64 {
		res := make([]float64, len(v))
		for i := range v {
			res[i] = v[i] * 10
		}
		return res
	}
	// x -> h = x -> y = h + bias
	p := linearParams([][][]float64{{{1, 0}}, {{1, 1}}}, 1, 1)
	p.Config.HiddenLayers[0].Suffix = []Transform{scale}
	net, err := FromParams(p)
	require.NoError(t, err)
	defer net.Close()

	// 2*10 + 1, the bias of the hidden layer is not scaled
	out, err := net.Forward([]float64{2})
	require.NoError(t, err)
	assert.InDelta(t, 21.0, out[0], 1e-9)
}
