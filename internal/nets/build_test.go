package nets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvantel/synapse/internal/functions"
)

func TestBuildShape(t *testing.T) {
	net, err := Build(Config{
		InputLayer:   3,
		HiddenLayers: []LayerConfig{{Size: 4}, {Size: 2, Activation: functions.ReLU}},
		OutputLayer:  &LayerConfig{Size: 1},
		Seed:         42,
	})
	require.NoError(t, err)
	defer net.Close()

	state, err := net.Get()
	require.NoError(t, err)
	require.Len(t, state.Hidden, 2)
	assert.Len(t, state.Input.Neurons, 4)
	assert.Len(t, state.Hidden[0].Neurons, 5)
	assert.Len(t, state.Hidden[1].Neurons, 3)
	assert.Len(t, state.Output.Neurons, 1)

	for _, n := range state.Input.Neurons {
		assert.Empty(t, n.Activation, "input neurons have no activation")
	}
	for i, l := range state.Hidden {
		last := len(l.Neurons) - 1
		assert.True(t, l.Neurons[last].Bias, "hidden layer %d should end with its bias", i)
		assert.Empty(t, l.Neurons[last].Activation)
		for _, n := range l.Neurons[:last] {
			assert.False(t, n.Bias)
		}
	}
	assert.Equal(t, functions.Sigmoid, state.Hidden[0].Neurons[0].Activation)
	assert.Equal(t, functions.ReLU, state.Hidden[1].Neurons[0].Activation)
	assert.Equal(t, functions.Sigmoid, state.Output.Neurons[0].Activation)
	assert.False(t, state.Output.Neurons[0].Bias, "the output layer has no bias")

	// Fully connected, bias included
	assert.Len(t, state.Hidden[0].Neurons[0].Weights, 4)
	assert.Len(t, state.Hidden[1].Neurons[0].Weights, 5)
	assert.Len(t, state.Output.Neurons[0].Weights, 3)
	for _, w := range state.Hidden[0].Neurons[0].Weights {
		assert.True(t, w >= -0.5 && w < 0.5, "initial weight %f out of range", w)
	}
}

func TestBuildSeed(t *testing.T) {
	conf := Config{InputLayer: 2, HiddenLayers: []LayerConfig{{Size: 3}}, OutputLayer: &LayerConfig{Size: 1}, Seed: 7}
	a, err := Build(conf)
	require.NoError(t, err)
	defer a.Close()
	b, err := Build(conf)
	require.NoError(t, err)
	defer b.Close()

	pa, err := a.Params()
	require.NoError(t, err)
	pb, err := b.Params()
	require.NoError(t, err)
	assert.Equal(t, pa.Weights, pb.Weights)
}

func TestBuildInvalid(t *testing.T) {
	neg := -1.0
	zero := 0.0
	tests := map[string]Config{
		"no inputs":             {InputLayer: 0, OutputLayer: &LayerConfig{Size: 1}},
		"negative inputs":       {InputLayer: -2, OutputLayer: &LayerConfig{Size: 1}},
		"missing output":        {InputLayer: 3},
		"empty output":          {InputLayer: 3, OutputLayer: &LayerConfig{Size: 0}},
		"empty hidden":          {InputLayer: 3, HiddenLayers: []LayerConfig{{Size: 2}, {}}, OutputLayer: &LayerConfig{Size: 1}},
		"negative rate":         {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}, OptimFunction: &OptimConfig{LearningRate: &neg}},
		"zero rate":             {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}, OptimFunction: &OptimConfig{LearningRate: &zero}},
		"unknown optimizer":     {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}, OptimFunction: &OptimConfig{Type: "nope"}},
		"unknown loss":          {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1}, LossFunction: &LossConfig{Type: "nope"}},
		"unknown activation":    {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1, Activation: "nope"}},
		"layer negative rate":   {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1, Optimizer: &OptimConfig{LearningRate: &neg}}},
		"layer unknown optim":   {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1, Optimizer: &OptimConfig{Type: "nope"}}},
		"incomplete activation": {InputLayer: 3, OutputLayer: &LayerConfig{Size: 1, Custom: &functions.Activation{Name: "half"}}},
	}
	for name, conf := range tests {
		t.Run(name, func(t *testing.T) {
			net, err := Build(conf)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, net)
		})
	}
}

func TestBuildActivationPrecedence(t *testing.T) {
	double := &functions.Activation{
		Name:       "double",
		F:          func(x float64) float64 { return 2 * x },
		Derivative: func(float64) float64 { return 2 },
	}
	net, err := Build(Config{
		InputLayer:  1,
		OutputLayer: &LayerConfig{Size: 1, Activation: functions.Tanh, Custom: double},
	})
	require.NoError(t, err)
	defer net.Close()

	state, err := net.Get()
	require.NoError(t, err)
	assert.Equal(t, "double", state.Output.Activation)
	assert.Equal(t, "double", state.Output.Neurons[0].Activation)
}

func TestBuildLayerOptimizer(t *testing.T) {
	lr := 0.3
	net, err := Build(Config{
		InputLayer:    2,
		HiddenLayers:  []LayerConfig{{Size: 2, Optimizer: &OptimConfig{Type: functions.Momentum, LearningRate: &lr}}},
		OutputLayer:   &LayerConfig{Size: 1},
		OptimFunction: &OptimConfig{Type: functions.RMSprop},
	})
	require.NoError(t, err)
	defer net.Close()

	state, err := net.Get()
	require.NoError(t, err)
	assert.Equal(t, functions.Momentum, state.Hidden[0].Neurons[0].Optimizer)
	assert.Equal(t, 0.3, state.Hidden[0].Neurons[0].LearningRate)
	assert.Equal(t, functions.RMSprop, state.Output.Neurons[0].Optimizer)
	assert.Equal(t, DefaultLearningRate, state.Output.Neurons[0].LearningRate)
}

func TestFromParams(t *testing.T) {
	conf := Config{InputLayer: 2, HiddenLayers: []LayerConfig{{Size: 2}}, OutputLayer: &LayerConfig{Size: 1}, Seed: 3}
	net, err := Build(conf)
	require.NoError(t, err)
	defer net.Close()
	p, err := net.Params()
	require.NoError(t, err)

	data, err := p.Marshal()
	require.NoError(t, err)
	var loaded Params
	require.NoError(t, loaded.Unmarshal(data))

	copied, err := FromParams(loaded)
	require.NoError(t, err)
	defer copied.Close()

	in := []float64{0.2, 0.9}
	want, err := net.Forward(in)
	require.NoError(t, err)
	got, err := copied.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	loaded.Weights[0][1] = loaded.Weights[0][1][:2]
	_, err = FromParams(loaded)
	assert.ErrorIs(t, err, ErrValidation)

	loaded.Weights = loaded.Weights[:1]
	_, err = FromParams(loaded)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBrief(t *testing.T) {
	p := Params{
		Config: Config{
			InputLayer:    3,
			HiddenLayers:  []LayerConfig{{Size: 4}, {Size: 2}},
			OutputLayer:   &LayerConfig{Size: 1},
			OptimFunction: &OptimConfig{Type: functions.Adam},
		},
		Epochs: 12,
		Error:  0.5,
	}
	brief := p.Brief()
	assert.Equal(t, 3, brief.Inputs)
	assert.Equal(t, 1, brief.Outputs)
	assert.Equal(t, []int{4, 2}, brief.HiddenLayers)
	assert.Equal(t, functions.MSE, brief.Loss)
	assert.Equal(t, functions.Adam, brief.Optimizer)
	assert.Equal(t, 12, brief.Epochs)
}
