package functions

import "math"

// Optimizer turns the gradients of a weight vector into its updated values. Implementations may keep state between
// steps (momentum, running averages...) so every neuron gets its own instance
type Optimizer interface {
	Name() string
	// Step returns the new weights, the slices it receives are never modified
	Step(weights, grads []float64, lr float64) []float64
}

// OptimizerFactory creates a fresh optimizer instance
type OptimizerFactory func() Optimizer

// Optimizer names
const (
	SGD      = "sgd"
	Momentum = "momentum"
	Adagrad  = "adagrad"
	RMSprop  = "rmsprop"
	Adam     = "adam"
)

var optimizers = map[string]OptimizerFactory{
	SGD:      func() Optimizer { return sgd{} },
	Momentum: func() Optimizer { return &momentum{beta: 0.9} },
	Adagrad:  func() Optimizer { return &adagrad{} },
	RMSprop:  func() Optimizer { return &rmsprop{rho: 0.9} },
	Adam:     func() Optimizer { return &adam{beta1: 0.9, beta2: 0.999} },
}

// Optimizers returns the factory registered under name or nil if there isn't one
func Optimizers(name string) OptimizerFactory {
	return optimizers[name]
}

// OptimizerNames returns the names of all the registered optimizers
func OptimizerNames() []string {
	return names(optimizers)
}

const stability = 1e-8

// grow makes sure a state vector matches the number of weights
func grow(state []float64, n int) []float64 {
	if len(state) == n {
		return state
	}
	return make([]float64, n)
}

// sgd is plain gradient descent: w - lr*g
type sgd struct{}

func (sgd) Name() string { return SGD }

func (sgd) Step(weights, grads []float64, lr float64) []float64 {
	res := make([]float64, len(weights))
	for i := range weights {
		res[i] = weights[i] - lr*grads[i]
	}
	return res
}

type momentum struct {
	beta     float64
	velocity []float64
}

func (m *momentum) Name() string { return Momentum }

func (m *momentum) Step(weights, grads []float64, lr float64) []float64 {
	m.velocity = grow(m.velocity, len(weights))
	res := make([]float64, len(weights))
	for i := range weights {
		m.velocity[i] = m.beta*m.velocity[i] + grads[i]
		res[i] = weights[i] - lr*m.velocity[i]
	}
	return res
}

type adagrad struct {
	sum []float64
}

func (a *adagrad) Name() string { return Adagrad }

func (a *adagrad) Step(weights, grads []float64, lr float64) []float64 {
	a.sum = grow(a.sum, len(weights))
	res := make([]float64, len(weights))
	for i := range weights {
		a.sum[i] += grads[i] * grads[i]
		res[i] = weights[i] - lr*grads[i]/(math.Sqrt(a.sum[i])+stability)
	}
	return res
}

type rmsprop struct {
	rho float64
	avg []float64
}

func (r *rmsprop) Name() string { return RMSprop }

func (r *rmsprop) Step(weights, grads []float64, lr float64) []float64 {
	r.avg = grow(r.avg, len(weights))
	res := make([]float64, len(weights))
	for i := range weights {
		r.avg[i] = r.rho*r.avg[i] + (1-r.rho)*grads[i]*grads[i]
		res[i] = weights[i] - lr*grads[i]/(math.Sqrt(r.avg[i])+stability)
	}
	return res
}

type adam struct {
	beta1, beta2 float64
	m, v         []float64
	t            int
}

func (a *adam) Name() string { return Adam }

func (a *adam) Step(weights, grads []float64, lr float64) []float64 {
	a.m = grow(a.m, len(weights))
	a.v = grow(a.v, len(weights))
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	res := make([]float64, len(weights))
	for i := range weights {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*grads[i]
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*grads[i]*grads[i]
		res[i] = weights[i] - lr*(a.m[i]/c1)/(math.Sqrt(a.v[i]/c2)+stability)
	}
	return res
}
