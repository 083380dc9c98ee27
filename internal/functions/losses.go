package functions

import (
	"math"
	"sort"
)

// LossFunc measures how far a prediction is from its target. Loss works on the whole output vector of a sample while
// Derivative is evaluated by each output neuron on its own component
type LossFunc struct {
	Name       string
	Loss       func(targets, outputs []float64) float64
	Derivative func(target, output float64) float64
}

// Loss function names
const (
	MSE          = "mse"
	SSE          = "sse"
	MAE          = "mae"
	CrossEntropy = "cross-entropy"
)

// Keeps cross entropy away from log(0)
const epsilon = 1e-12

var losses = map[string]LossFunc{
	MSE: {
		Name: MSE,
		Loss: func(targets, outputs []float64) float64 {
			sum := 0.0
			for i := range targets {
				sum += (targets[i] - outputs[i]) * (targets[i] - outputs[i])
			}
			return sum / float64(len(targets))
		},
		// The 2/n factor of the true derivative is left to the learning rate
		Derivative: func(target, output float64) float64 { return output - target },
	},
	SSE: {
		Name: SSE,
		Loss: func(targets, outputs []float64) float64 {
			sum := 0.0
			for i := range targets {
				sum += (targets[i] - outputs[i]) * (targets[i] - outputs[i])
			}
			return sum / 2
		},
		Derivative: func(target, output float64) float64 { return output - target },
	},
	MAE: {
		Name: MAE,
		Loss: func(targets, outputs []float64) float64 {
			sum := 0.0
			for i := range targets {
				sum += math.Abs(targets[i] - outputs[i])
			}
			return sum / float64(len(targets))
		},
		Derivative: func(target, output float64) float64 {
			switch {
			case output > target:
				return 1
			case output < target:
				return -1
			default:
				return 0
			}
		},
	},
	CrossEntropy: {
		Name: CrossEntropy,
		Loss: func(targets, outputs []float64) float64 {
			sum := 0.0
			for i := range targets {
				o := clip(outputs[i])
				sum -= targets[i]*math.Log(o) + (1-targets[i])*math.Log(1-o)
			}
			return sum / float64(len(targets))
		},
		Derivative: func(target, output float64) float64 {
			o := clip(output)
			return (o - target) / (o * (1 - o))
		},
	},
}

func clip(x float64) float64 {
	return math.Min(math.Max(x, epsilon), 1-epsilon)
}

// Loss returns the loss function registered under name or nil if there isn't one
func Loss(name string) *LossFunc {
	l, ok := losses[name]
	if !ok {
		return nil
	}
	return &l
}

// Losses returns the names of all the registered loss functions
func Losses() []string {
	return names(losses)
}

func names[V any](registry map[string]V) []string {
	res := make([]string, 0, len(registry))
	for name := range registry {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
