// Package functions holds the registries of activation, loss and optimizer functions that nets can be built with.
// Every entry is a pure numeric function looked up by name, unknown names resolve to nil
package functions

import "math"

// Activation pairs an activation function with its derivative. The derivative receives the activation's OUTPUT
// (not its input) because that's what a neuron has cached when it goes backwards
type Activation struct {
	Name       string
	F          func(x float64) float64
	Derivative func(y float64) float64
}

// Activation names
const (
	Sigmoid        = "sigmoid"
	BipolarSigmoid = "bipolar-sigmoid"
	Tanh           = "tanh"
	ReLU           = "relu"
	LeakyReLU      = "leaky-relu"
	Identity       = "identity"
	Softplus       = "softplus"
)

const leak = 0.01

var activators = map[string]Activation{
	Sigmoid: {
		Name:       Sigmoid,
		F:          func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		Derivative: func(y float64) float64 { return y * (1 - y) },
	},
	BipolarSigmoid: {
		Name:       BipolarSigmoid,
		F:          func(x float64) float64 { return 2/(1+math.Exp(-x)) - 1 },
		Derivative: func(y float64) float64 { return 0.5 * (1 + y) * (1 - y) },
	},
	Tanh: {
		Name:       Tanh,
		F:          math.Tanh,
		Derivative: func(y float64) float64 { return 1 - y*y },
	},
	ReLU: {
		Name: ReLU,
		F:    func(x float64) float64 { return math.Max(x, 0) },
		Derivative: func(y float64) float64 {
			if y > 0 {
				return 1
			}
			return 0
		},
	},
	LeakyReLU: {
		Name: LeakyReLU,
		F: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return leak * x
		},
		Derivative: func(y float64) float64 {
			if y > 0 {
				return 1
			}
			return leak
		},
	},
	Identity: {
		Name:       Identity,
		F:          func(x float64) float64 { return x },
		Derivative: func(y float64) float64 { return 1 },
	},
	Softplus: {
		Name:       Softplus,
		F:          func(x float64) float64 { return math.Log1p(math.Exp(x)) },
		Derivative: func(y float64) float64 { return 1 - math.Exp(-y) },
	},
}

// Activator returns the activation registered under name or nil if there isn't one
func Activator(name string) *Activation {
	a, ok := activators[name]
	if !ok {
		return nil
	}
	return &a
}

// Activators returns the names of all the registered activation functions
func Activators() []string {
	return names(activators)
}
