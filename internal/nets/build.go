package nets

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/qvantel/synapse/internal/functions"
)

// Config describes the topology and functions of a net
type Config struct {
	InputLayer    int           `json:"input_layer"`
	OutputLayer   *LayerConfig  `json:"output_layer"`
	HiddenLayers  []LayerConfig `json:"hidden_layers,omitempty"`
	LossFunction  *LossConfig   `json:"loss_function,omitempty"`
	OptimFunction *OptimConfig  `json:"optim_function,omitempty"`
	// Seed for the initial weights, 0 means a time based one
	Seed int64 `json:"seed,omitempty"`
	// Timeout bounds every wait on a unit of the net, 0 means DefaultTimeout
	Timeout time.Duration `json:"-"`
}

// LayerConfig describes a hidden or output layer. Custom, when set, takes precedence over Activation
type LayerConfig struct {
	Size       int                   `json:"size"`
	Activation string                `json:"activation,omitempty"`
	Custom     *functions.Activation `json:"-"`
	Prefix     []Transform           `json:"-"`
	Suffix     []Transform           `json:"-"`
	Optimizer  *OptimConfig          `json:"optim_function,omitempty"`
}

// LossConfig selects the loss function of the net
type LossConfig struct {
	Type string `json:"type"`
}

// OptimConfig selects the optimizer and learning rate of the net or, when given for a layer, of that layer only
type OptimConfig struct {
	Type         string   `json:"type,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
}

// Defaults applied by Build when the config leaves them out
const (
	DefaultActivation = functions.Sigmoid
	DefaultLoss       = functions.MSE
	DefaultOptimizer  = functions.SGD
)

// layerPlan is a validated LayerConfig with every name resolved
type layerPlan struct {
	size       int
	activation *functions.Activation
	optimizer  functions.OptimizerFactory
	optimName  string
	lr         float64
	prefix     []Transform
	suffix     []Transform
}

type plan struct {
	input  int
	layers []layerPlan // hidden layers followed by the output one
	loss   *functions.LossFunc
	optim  string
}

func resolveOptim(conf *OptimConfig, parent OptimConfig, where string) (OptimConfig, error) {
	res := parent
	if conf == nil {
		return res, nil
	}
	if conf.Type != "" {
		if functions.Optimizers(conf.Type) == nil {
			return res, fmt.Errorf("%w: unknown optimizer %q for %s", ErrValidation, conf.Type, where)
		}
		res.Type = conf.Type
	}
	if conf.LearningRate != nil {
		if *conf.LearningRate <= 0 {
			return res, fmt.Errorf("%w: learning rate for %s must be positive", ErrValidation, where)
		}
		lr := *conf.LearningRate
		res.LearningRate = &lr
	}
	return res, nil
}

func resolveLayer(conf LayerConfig, optim OptimConfig, where string) (layerPlan, error) {
	if conf.Size <= 0 {
		return layerPlan{}, fmt.Errorf("%w: %s size must be positive, got %d", ErrValidation, where, conf.Size)
	}
	p := layerPlan{size: conf.Size, prefix: conf.Prefix, suffix: conf.Suffix}
	switch {
	case conf.Custom != nil:
		if conf.Custom.F == nil || conf.Custom.Derivative == nil {
			return layerPlan{}, fmt.Errorf("%w: custom activation for %s is incomplete", ErrValidation, where)
		}
		p.activation = conf.Custom
	case conf.Activation != "":
		if p.activation = functions.Activator(conf.Activation); p.activation == nil {
			return layerPlan{}, fmt.Errorf("%w: unknown activation %q for %s", ErrValidation, conf.Activation, where)
		}
	default:
		p.activation = functions.Activator(DefaultActivation)
	}
	o, err := resolveOptim(conf.Optimizer, optim, where)
	if err != nil {
		return layerPlan{}, err
	}
	p.optimName, p.optimizer, p.lr = o.Type, functions.Optimizers(o.Type), *o.LearningRate
	return p, nil
}

// validate checks the config and resolves every name in it, nothing gets started
func validate(conf Config) (*plan, error) {
	if conf.InputLayer <= 0 {
		return nil, fmt.Errorf("%w: input layer size must be positive, got %d", ErrValidation, conf.InputLayer)
	}
	if conf.OutputLayer == nil {
		return nil, fmt.Errorf("%w: missing output layer", ErrValidation)
	}
	p := &plan{input: conf.InputLayer}

	lossName := DefaultLoss
	if conf.LossFunction != nil && conf.LossFunction.Type != "" {
		lossName = conf.LossFunction.Type
	}
	if p.loss = functions.Loss(lossName); p.loss == nil {
		return nil, fmt.Errorf("%w: unknown loss function %q", ErrValidation, lossName)
	}

	lr := DefaultLearningRate
	optim, err := resolveOptim(conf.OptimFunction, OptimConfig{Type: DefaultOptimizer, LearningRate: &lr}, "the net")
	if err != nil {
		return nil, err
	}
	p.optim = optim.Type

	for i, lc := range conf.HiddenLayers {
		lp, err := resolveLayer(lc, optim, "hidden layer "+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		p.layers = append(p.layers, lp)
	}
	lp, err := resolveLayer(*conf.OutputLayer, optim, "output layer")
	if err != nil {
		return nil, err
	}
	p.layers = append(p.layers, lp)
	return p, nil
}

// start creates every unit of the net. weights, when not nil, must already match the plan
func start(conf Config, p *plan, weights [][][]float64) *Network {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	// Input layer: pass-through neurons plus the bias
	in := &layer{kind: InputLayer, id: "0", bias: true, optimizer: p.optim}
	for j := 0; j <= p.input; j++ {
		nc := neuronConfig{input: j < p.input, bias: j == p.input}
		in.neurons = append(in.neurons, newNeuron("0."+strconv.Itoa(j), nc, timeout))
	}
	n := &network{conf: conf, input: newLayer(in, timeout), loss: p.loss, optimizer: p.optim, inSize: p.input}

	prev := p.input + 1
	for i, lp := range p.layers {
		id := strconv.Itoa(i + 1)
		l := &layer{
			kind:       HiddenLayer,
			id:         id,
			bias:       true,
			activation: lp.activation.Name,
			optimizer:  lp.optimName,
			prefix:     lp.prefix,
			suffix:     lp.suffix,
		}
		output := i == len(p.layers)-1
		if output {
			l.kind, l.bias = OutputLayer, false
		}
		for j := 0; j < lp.size; j++ {
			nc := neuronConfig{
				activation:   lp.activation,
				learningRate: lp.lr,
				optimizer:    lp.optimizer(),
				weights:      make([]float64, prev),
			}
			if weights != nil {
				copy(nc.weights, weights[i][j])
			} else {
				for k := range nc.weights {
					nc.weights[k] = rnd.Float64() - 0.5
				}
			}
			if output {
				nc.loss = p.loss
			}
			l.neurons = append(l.neurons, newNeuron(id+"."+strconv.Itoa(j), nc, timeout))
		}
		if l.bias {
			l.neurons = append(l.neurons, newNeuron(id+"."+strconv.Itoa(lp.size), neuronConfig{bias: true}, timeout))
		}
		if output {
			n.output = newLayer(l, timeout)
		} else {
			n.hidden = append(n.hidden, newLayer(l, timeout))
		}
		prev = lp.size + 1
	}
	return newNetwork(n, timeout)
}

// Build validates the config and starts a new net with random weights in [-0.5, 0.5)
func Build(conf Config) (*Network, error) {
	p, err := validate(conf)
	if err != nil {
		return nil, err
	}
	return start(conf, p, nil), nil
}

// FromParams starts a net with the topology and weights stored in the given params
func FromParams(np Params) (*Network, error) {
	p, err := validate(np.Config)
	if err != nil {
		return nil, err
	}
	if len(np.Weights) != len(p.layers) {
		return nil, fmt.Errorf("%w: got weights for %d layers, expected %d", ErrValidation, len(np.Weights), len(p.layers))
	}
	prev := p.input + 1
	for i, lp := range p.layers {
		if len(np.Weights[i]) != lp.size {
			return nil, fmt.Errorf(
				"%w: layer %d has weights for %d neurons, expected %d",
				ErrValidation,
				i+1,
				len(np.Weights[i]),
				lp.size,
			)
		}
		for j, w := range np.Weights[i] {
			if len(w) != prev {
				return nil, fmt.Errorf(
					"%w: neuron %d.%d has %d weights, expected %d",
					ErrValidation,
					i+1,
					j,
					len(w),
					prev,
				)
			}
		}
		prev = lp.size + 1
	}
	net := start(np.Config, p, np.Weights)
	if np.Epochs > 0 {
		if err := net.record(np.Error, np.Epochs); err != nil {
			net.Close()
			return nil, err
		}
	}
	return net, nil
}
