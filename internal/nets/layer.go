package nets

import (
	"fmt"
	"time"
)

// Transform is a user supplied function applied to a whole vector, layers use them as prefix (on their inputs,
// before the neurons see them) and suffix (on the outputs of their non-bias neurons, the bias value is appended
// after them untouched) functions. They only take part in the forward pass
type Transform func([]float64) []float64

// LayerKind tells apart the three positions a layer can have in a net
type LayerKind int

// Layer kinds
const (
	InputLayer LayerKind = iota
	HiddenLayer
	OutputLayer
)

func (k LayerKind) String() string {
	switch k {
	case InputLayer:
		return "input"
	case HiddenLayer:
		return "hidden"
	case OutputLayer:
		return "output"
	default:
		return "unknown"
	}
}

// LayerState is a read only snapshot of a layer
type LayerState struct {
	Activation string        `json:"activation,omitempty"`
	Neurons    []NeuronState `json:"neurons"`
	Optimizer  string        `json:"optimizer"`
}

type layerOp int

const (
	layerForward layerOp = iota
	layerBackward
	layerGet
)

type layerMsg struct {
	op         layerOp
	inputs     []float64  // forward inputs or, for the output layer, backward targets
	downstream []Gradient // gradients of the next layer's non-bias neurons
	reply      chan layerReply
}

type layerReply struct {
	values []float64
	grads  []Gradient
	state  LayerState
	err    error
}

// Layer is the handle of an ordered group of neurons. When it has a bias neuron, it's always the last one
type Layer struct {
	mb mailbox[layerMsg]
	// Stop needs to reach the neurons, these never change after the layer is created
	neurons []*Neuron
}

type layer struct {
	kind       LayerKind
	id         string
	neurons    []*Neuron
	bias       bool
	activation string
	optimizer  string
	prefix     []Transform
	suffix     []Transform
}

func newLayer(l *layer, timeout time.Duration) *Layer {
	h := &Layer{mb: newMailbox[layerMsg](l.kind.String()+" layer "+l.id, timeout), neurons: l.neurons}
	go l.run(&h.mb)
	return h
}

func (l *layer) run(mb *mailbox[layerMsg]) {
	for {
		select {
		case <-mb.stopped:
			return
		case msg := <-mb.inbox:
			var res layerReply
			switch msg.op {
			case layerForward:
				res.values, res.err = l.forward(msg.inputs)
			case layerBackward:
				res.grads, res.err = l.backward(msg)
			case layerGet:
				res.state, res.err = l.get()
			}
			msg.reply <- res
		}
	}
}

// size returns the number of neurons without counting the bias
func (l *layer) size() int {
	if l.bias {
		return len(l.neurons) - 1
	}
	return len(l.neurons)
}

func (l *layer) forward(inputs []float64) ([]float64, error) {
	for _, f := range l.prefix {
		inputs = f(inputs)
	}
	if l.kind == InputLayer && len(inputs) != l.size() {
		return nil, fmt.Errorf("%w: %d inputs for %d input neurons", ErrValidation, len(inputs), l.size())
	}
	outputs := make([]float64, len(l.neurons))
	err := fanOut(len(l.neurons), func(i int) error {
		in := inputs
		if l.kind == InputLayer && i < l.size() {
			in = inputs[i : i+1 : i+1]
		}
		var err error
		outputs[i], err = l.neurons[i].Forward(in)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(l.suffix) == 0 {
		return outputs, nil
	}
	values := append([]float64(nil), outputs[:l.size()]...)
	for _, f := range l.suffix {
		values = f(values)
	}
	if l.bias {
		values = append(values, outputs[len(outputs)-1])
	}
	return values, nil
}

// backward returns the gradients of the layer's non-bias neurons, in order
func (l *layer) backward(msg layerMsg) ([]Gradient, error) {
	switch l.kind {
	case InputLayer:
		// Nothing upstream to inform and no weights to train
		return nil, nil
	case OutputLayer:
		if len(msg.inputs) != l.size() {
			return nil, fmt.Errorf("%w: %d targets for %d output neurons", ErrValidation, len(msg.inputs), l.size())
		}
	}
	grads := make([]Gradient, l.size())
	err := fanOut(l.size(), func(j int) error {
		var err error
		if l.kind == OutputLayer {
			grads[j], err = l.neurons[j].BackwardOutput(msg.inputs[j])
			return err
		}
		signals := make([]Signal, len(msg.downstream))
		for k, g := range msg.downstream {
			if len(g.Weights) != len(l.neurons) {
				return fmt.Errorf(
					"%w: downstream neuron %d has %d weights but layer %s has %d neurons",
					ErrValidation,
					k,
					len(g.Weights),
					l.id,
					len(l.neurons),
				)
			}
			signals[k] = Signal{Delta: g.Delta, Weight: g.Weights[j]}
		}
		grads[j], err = l.neurons[j].Backward(signals)
		return err
	})
	if err != nil {
		return nil, err
	}
	return grads, nil
}

func (l *layer) get() (LayerState, error) {
	state := LayerState{
		Activation: l.activation,
		Neurons:    make([]NeuronState, len(l.neurons)),
		Optimizer:  l.optimizer,
	}
	err := fanOut(len(l.neurons), func(i int) error {
		var err error
		state.Neurons[i], err = l.neurons[i].Get()
		return err
	})
	return state, err
}

func (h *Layer) call(msg layerMsg) (layerReply, error) {
	if h == nil {
		return layerReply{}, fmt.Errorf("%w: nil layer", ErrHandle)
	}
	msg.reply = make(chan layerReply, 1)
	// The layer waits up to one timeout on its neurons, leave room for that
	res, err := ask(&h.mb, msg, msg.reply, 2*h.mb.timeout)
	if err != nil {
		return res, err
	}
	return res, res.err
}

// Forward feeds the inputs to every neuron of the layer and returns their outputs once all of them have answered
func (h *Layer) Forward(inputs []float64) ([]float64, error) {
	res, err := h.call(layerMsg{op: layerForward, inputs: inputs})
	return res.values, err
}

// BackwardOutput runs the backward step of an output layer
func (h *Layer) BackwardOutput(targets []float64) ([]Gradient, error) {
	res, err := h.call(layerMsg{op: layerBackward, inputs: targets})
	return res.grads, err
}

// Backward runs the backward step of a hidden (or input) layer given the gradients of the next one
func (h *Layer) Backward(downstream []Gradient) ([]Gradient, error) {
	res, err := h.call(layerMsg{op: layerBackward, downstream: downstream})
	return res.grads, err
}

// Get returns a snapshot of the layer and its neurons
func (h *Layer) Get() (LayerState, error) {
	res, err := h.call(layerMsg{op: layerGet})
	return res.state, err
}

// Stop terminates the layer and all its neurons
func (h *Layer) Stop() {
	if h == nil {
		return
	}
	h.mb.stop()
	for _, n := range h.neurons {
		n.Stop()
	}
}
