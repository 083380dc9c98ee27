package nets

import (
	"encoding/json"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/functions"
	"github.com/qvantel/synapse/internal/logger"
)

// Params holds the minimum information required to rebuild the net from scratch plus some metadata about its training
type Params struct {
	Config Config `json:"config"`
	// Weights of every non-bias neuron of the hidden and output layers (layer -> neuron -> weight), the last weight of
	// each neuron is the one for the bias of the previous layer
	Weights [][][]float64 `json:"weights"`
	Error   float64       `json:"error"`
	Epochs  int           `json:"epochs"`
}

// Brief returns a standard summarized version of the net's params (not enough to rebuild it but enough to compare it)
func (np Params) Brief() *types.BriefNet {
	brief := &types.BriefNet{
		Epochs:    np.Epochs,
		Error:     np.Error,
		Inputs:    np.Config.InputLayer,
		Loss:      DefaultLoss,
		Optimizer: DefaultOptimizer,
	}
	if np.Config.OutputLayer != nil {
		brief.Outputs = np.Config.OutputLayer.Size
	}
	for _, hl := range np.Config.HiddenLayers {
		brief.HiddenLayers = append(brief.HiddenLayers, hl.Size)
	}
	if np.Config.LossFunction != nil && np.Config.LossFunction.Type != "" {
		brief.Loss = np.Config.LossFunction.Type
	}
	if np.Config.OptimFunction != nil && np.Config.OptimFunction.Type != "" {
		brief.Optimizer = np.Config.OptimFunction.Type
	}
	return brief
}

// Unmarshal is used to tell the param store how to read the params of a net
func (np *Params) Unmarshal(b []byte) error {
	return json.Unmarshal(b, np)
}

// Marshal is used to tell the param store how to write the params of a net
func (np *Params) Marshal() ([]byte, error) {
	return json.Marshal(np)
}

func (np Params) String() string {
	data, err := np.Marshal()
	if err != nil {
		logger.Error("There was an error marshalling the net params", err)
		return ""
	}
	return string(data)
}

// Describe lists the names accepted in a Config for each kind of function
func Describe() map[string][]string {
	return map[string][]string{
		"activation":     functions.Activators(),
		"loss_function":  functions.Losses(),
		"optim_function": functions.OptimizerNames(),
	}
}
