package nets

import (
	"fmt"
	"time"

	"github.com/qvantel/synapse/internal/functions"
)

// DefaultLearningRate is used by neurons that aren't given one
const DefaultLearningRate = 0.1

// Signal is what a downstream neuron tells an upstream one during backpropagation: its delta and the weight it
// holds for the connection coming from the upstream neuron
type Signal struct {
	Delta  float64
	Weight float64
}

// Gradient is a neuron's answer to a backward request: its delta plus a copy of the weights it had BEFORE applying
// the update, which is what the previous layer needs to compute its own deltas
type Gradient struct {
	Delta   float64
	Weights []float64
}

// NeuronState is a read only snapshot of a neuron
type NeuronState struct {
	Activation   string    `json:"activation,omitempty"`
	Bias         bool      `json:"bias"`
	LastOutput   *float64  `json:"lastOutput,omitempty"`
	LearningRate float64   `json:"learningRate"`
	Optimizer    string    `json:"optimizer"`
	Weights      []float64 `json:"weights"`
}

type neuronOp int

const (
	neuronForward neuronOp = iota
	neuronBackward
	neuronGet
)

type neuronMsg struct {
	op      neuronOp
	inputs  []float64
	output  bool // backward in output mode, driven by target instead of signals
	target  float64
	signals []Signal
	reply   chan neuronReply
}

type neuronReply struct {
	value float64
	grad  Gradient
	state NeuronState
	err   error
}

// neuronConfig is everything a neuron needs to be started
type neuronConfig struct {
	activation   *functions.Activation
	bias         bool
	input        bool
	learningRate float64
	loss         *functions.LossFunc // only output neurons get one
	optimizer    functions.Optimizer
	weights      []float64
}

// Neuron is the handle of the smallest unit of a net. Its state lives in its own goroutine and can only be reached
// through the methods below
type Neuron struct {
	mb mailbox[neuronMsg]
}

// neuron holds the state owned by the goroutine of a Neuron
type neuron struct {
	neuronConfig
	id        string
	inputs    []float64 // last forward inputs
	output    float64   // last forward output
	cached    bool      // there is a forward that hasn't been gone back from yet
	evaluated bool      // at least one forward happened
}

func newNeuron(id string, conf neuronConfig, timeout time.Duration) *Neuron {
	if conf.learningRate <= 0 {
		conf.learningRate = DefaultLearningRate
	}
	if conf.optimizer == nil {
		conf.optimizer = functions.Optimizers(functions.SGD)()
	}
	n := &Neuron{mb: newMailbox[neuronMsg]("neuron "+id, timeout)}
	u := &neuron{neuronConfig: conf, id: id}
	go u.run(&n.mb)
	return n
}

func (u *neuron) run(mb *mailbox[neuronMsg]) {
	for {
		select {
		case <-mb.stopped:
			return
		case msg := <-mb.inbox:
			var res neuronReply
			switch msg.op {
			case neuronForward:
				res.value, res.err = u.forward(msg.inputs)
			case neuronBackward:
				res.grad, res.err = u.backward(msg)
			case neuronGet:
				res.state = u.get()
			}
			msg.reply <- res
		}
	}
}

func (u *neuron) forward(inputs []float64) (float64, error) {
	switch {
	case u.bias:
		u.output, u.evaluated = 1, true
		return 1, nil
	case u.input:
		if len(inputs) != 1 {
			return 0, fmt.Errorf("%w: input neuron %s takes 1 value, got %d", ErrValidation, u.id, len(inputs))
		}
		u.output, u.evaluated = inputs[0], true
		if u.activation != nil {
			u.output = u.activation.F(inputs[0])
		}
		return u.output, nil
	}
	if len(inputs) != len(u.weights) {
		return 0, fmt.Errorf(
			"%w: neuron %s has %d weights but got %d inputs",
			ErrValidation,
			u.id,
			len(u.weights),
			len(inputs),
		)
	}
	sum := 0.0
	for i, w := range u.weights {
		sum += w * inputs[i]
	}
	if u.activation != nil {
		sum = u.activation.F(sum)
	}
	u.inputs = append(u.inputs[:0], inputs...)
	u.output = sum
	u.cached, u.evaluated = true, true
	return sum, nil
}

func (u *neuron) derivative() float64 {
	if u.activation == nil {
		return 1
	}
	return u.activation.Derivative(u.output)
}

// backward computes the delta, captures the current weights for the reply and only then commits the update, so
// whoever reads the reply sees the pre-update values
func (u *neuron) backward(msg neuronMsg) (Gradient, error) {
	// Bias and input neurons have no incoming connections to train
	if u.bias || u.input {
		return Gradient{}, nil
	}
	if !u.cached {
		return Gradient{}, fmt.Errorf("%w: neuron %s has no forward pass to go back from", ErrSequencing, u.id)
	}
	var delta float64
	if msg.output {
		if u.loss == nil {
			return Gradient{}, fmt.Errorf("%w: neuron %s is not an output neuron", ErrValidation, u.id)
		}
		delta = u.loss.Derivative(msg.target, u.output)
	} else {
		for _, s := range msg.signals {
			delta += s.Delta * s.Weight
		}
	}
	delta *= u.derivative()

	grad := Gradient{Delta: delta, Weights: make([]float64, len(u.weights))}
	copy(grad.Weights, u.weights)

	grads := make([]float64, len(u.weights))
	for i, in := range u.inputs {
		grads[i] = delta * in
	}
	u.weights = u.optimizer.Step(u.weights, grads, u.learningRate)
	u.cached = false
	return grad, nil
}

func (u *neuron) get() NeuronState {
	state := NeuronState{
		Bias:         u.bias,
		LearningRate: u.learningRate,
		Optimizer:    u.optimizer.Name(),
		Weights:      make([]float64, len(u.weights)),
	}
	copy(state.Weights, u.weights)
	if u.activation != nil {
		state.Activation = u.activation.Name
	}
	if u.evaluated {
		out := u.output
		state.LastOutput = &out
	}
	return state
}

func (n *Neuron) call(msg neuronMsg) (neuronReply, error) {
	if n == nil {
		return neuronReply{}, fmt.Errorf("%w: nil neuron", ErrHandle)
	}
	msg.reply = make(chan neuronReply, 1)
	res, err := ask(&n.mb, msg, msg.reply, n.mb.timeout)
	if err != nil {
		return res, err
	}
	return res, res.err
}

// Forward evaluates the neuron for the given inputs
func (n *Neuron) Forward(inputs []float64) (float64, error) {
	res, err := n.call(neuronMsg{op: neuronForward, inputs: inputs})
	return res.value, err
}

// BackwardOutput runs the backward step of an output neuron towards the given target
func (n *Neuron) BackwardOutput(target float64) (Gradient, error) {
	res, err := n.call(neuronMsg{op: neuronBackward, output: true, target: target})
	return res.grad, err
}

// Backward runs the backward step of a hidden neuron with the signals of every neuron downstream of it
func (n *Neuron) Backward(signals []Signal) (Gradient, error) {
	res, err := n.call(neuronMsg{op: neuronBackward, signals: signals})
	return res.grad, err
}

// Get returns a snapshot of the neuron
func (n *Neuron) Get() (NeuronState, error) {
	res, err := n.call(neuronMsg{op: neuronGet})
	return res.state, err
}

// Stop terminates the neuron's goroutine, it's safe to call more than once
func (n *Neuron) Stop() {
	if n != nil {
		n.mb.stop()
	}
}
