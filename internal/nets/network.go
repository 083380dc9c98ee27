package nets

import (
	"fmt"
	"time"

	"github.com/qvantel/synapse/internal/functions"
)

// State is a read only snapshot of a whole network
type State struct {
	Input     LayerState   `json:"input"`
	Hidden    []LayerState `json:"hidden"`
	Output    LayerState   `json:"output"`
	Loss      string       `json:"loss"`
	Optimizer string       `json:"optimizer"`
}

type netOp int

const (
	netForward netOp = iota
	netBackward
	netGet
	netParams
	netRecord
)

type netMsg struct {
	op     netOp
	values []float64
	epochs int
	reply  chan netReply
}

type netReply struct {
	values []float64
	loss   float64
	state  State
	params Params
	err    error
}

// Network is the handle of a built net. It's safe to share between goroutines, calls are processed one at a time in
// the order they arrive
type Network struct {
	mb     mailbox[netMsg]
	layers []*Layer
}

// network holds the state owned by the goroutine of a Network
type network struct {
	conf      Config
	input     *Layer
	hidden    []*Layer
	output    *Layer
	loss      *functions.LossFunc
	optimizer string
	inSize    int
	pending   []float64 // prediction of the last forward that hasn't been gone back from yet
	lastErr   float64
	epochs    int
}

func newNetwork(n *network, timeout time.Duration) *Network {
	h := &Network{mb: newMailbox[netMsg]("network", timeout)}
	h.layers = append(h.layers, n.input)
	h.layers = append(h.layers, n.hidden...)
	h.layers = append(h.layers, n.output)
	go n.run(&h.mb)
	return h
}

func (n *network) run(mb *mailbox[netMsg]) {
	for {
		select {
		case <-mb.stopped:
			return
		case msg := <-mb.inbox:
			var res netReply
			switch msg.op {
			case netForward:
				res.values, res.err = n.forward(msg.values)
			case netBackward:
				res.loss, res.err = n.backward(msg.values)
			case netGet:
				res.state, res.err = n.get()
			case netParams:
				res.params, res.err = n.params()
			case netRecord:
				n.lastErr, n.epochs = msg.values[0], n.epochs+msg.epochs
			}
			msg.reply <- res
		}
	}
}

func (n *network) forward(inputs []float64) ([]float64, error) {
	// A failed forward leaves some neurons with the new sample, nothing can be gone back from until the next success
	n.pending = nil
	if len(inputs) != n.inSize {
		return nil, fmt.Errorf("%w: got %d inputs but the net takes %d", ErrValidation, len(inputs), n.inSize)
	}
	values, err := n.input.Forward(inputs)
	if err != nil {
		return nil, err
	}
	for _, l := range n.hidden {
		if values, err = l.Forward(values); err != nil {
			return nil, err
		}
	}
	if values, err = n.output.Forward(values); err != nil {
		return nil, err
	}
	n.pending = values
	outputs := make([]float64, len(values))
	copy(outputs, values)
	return outputs, nil
}

func (n *network) backward(targets []float64) (float64, error) {
	if n.pending == nil {
		return 0, fmt.Errorf("%w: backward called without a pending forward", ErrSequencing)
	}
	if len(targets) != len(n.pending) {
		return 0, fmt.Errorf("%w: got %d targets but the net has %d outputs", ErrValidation, len(targets), len(n.pending))
	}
	loss := n.loss.Loss(targets, n.pending)
	n.pending = nil
	grads, err := n.output.BackwardOutput(targets)
	if err != nil {
		return 0, err
	}
	for i := len(n.hidden) - 1; i >= 0; i-- {
		if grads, err = n.hidden[i].Backward(grads); err != nil {
			return 0, err
		}
	}
	if _, err = n.input.Backward(grads); err != nil {
		return 0, err
	}
	return loss, nil
}

func (n *network) get() (State, error) {
	var (
		state = State{Hidden: make([]LayerState, len(n.hidden)), Loss: n.loss.Name, Optimizer: n.optimizer}
		err   error
	)
	if state.Input, err = n.input.Get(); err != nil {
		return State{}, err
	}
	for i, l := range n.hidden {
		if state.Hidden[i], err = l.Get(); err != nil {
			return State{}, err
		}
	}
	if state.Output, err = n.output.Get(); err != nil {
		return State{}, err
	}
	return state, nil
}

func (n *network) params() (Params, error) {
	state, err := n.get()
	if err != nil {
		return Params{}, err
	}
	p := Params{Config: n.conf, Error: n.lastErr, Epochs: n.epochs}
	for _, l := range append(state.Hidden, state.Output) {
		layer := [][]float64{}
		for _, neuron := range l.Neurons {
			if neuron.Bias {
				continue
			}
			layer = append(layer, neuron.Weights)
		}
		p.Weights = append(p.Weights, layer)
	}
	return p, nil
}

func (h *Network) call(msg netMsg) (netReply, error) {
	if h == nil {
		return netReply{}, fmt.Errorf("%w: nil network", ErrHandle)
	}
	msg.reply = make(chan netReply, 1)
	// Layers are visited one after the other and each may take up to twice the unit timeout
	res, err := ask(&h.mb, msg, msg.reply, 2*h.mb.timeout*time.Duration(len(h.layers)+1))
	if err != nil {
		return res, err
	}
	return res, res.err
}

// Forward pushes the inputs through every layer and returns the values of the output layer
func (h *Network) Forward(inputs []float64) ([]float64, error) {
	in := make([]float64, len(inputs))
	copy(in, inputs)
	res, err := h.call(netMsg{op: netForward, values: in})
	return res.values, err
}

// Backward trains the net for the targets of the sample fed by the last call to Forward and returns the loss for that
// sample
func (h *Network) Backward(targets []float64) (float64, error) {
	t := make([]float64, len(targets))
	copy(t, targets)
	res, err := h.call(netMsg{op: netBackward, values: t})
	return res.loss, err
}

// Get returns a snapshot of every layer of the net
func (h *Network) Get() (State, error) {
	res, err := h.call(netMsg{op: netGet})
	return res.state, err
}

// Params returns what's needed to rebuild the net as it is now
func (h *Network) Params() (Params, error) {
	res, err := h.call(netMsg{op: netParams})
	return res.params, err
}

// record stores the outcome of a training run so it ends up in the params
func (h *Network) record(lastErr float64, epochs int) error {
	_, err := h.call(netMsg{op: netRecord, values: []float64{lastErr}, epochs: epochs})
	return err
}

// alive checks the handle without bothering the net's goroutine
func (h *Network) alive() error {
	if h == nil {
		return fmt.Errorf("%w: nil network", ErrHandle)
	}
	return h.mb.alive()
}

// Close stops the net and every one of its units, any later call on the handle will fail
func (h *Network) Close() error {
	if h == nil {
		return fmt.Errorf("%w: nil network", ErrHandle)
	}
	h.mb.stop()
	for _, l := range h.layers {
		l.Stop()
	}
	return nil
}
