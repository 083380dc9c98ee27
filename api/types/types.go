// Package types contains most of the objects that the API reads or writes
package types

import (
	"errors"
	"fmt"
)

// PagedRes is a wrapper for a paged response where next can be provided as offset for the subsequent request and last
// can be used to determine when there is nothing left to read
type PagedRes struct {
	Last    bool        `json:"last"`
	Next    int         `json:"next"`
	Results interface{} `json:"results"`
}

// SimpleRes is used for errors and those cases where the response code would be sufficient but a JSON response helps
// consistency and user friendliness
type SimpleRes struct {
	Result string `json:"result"` // Possible values are "error" and "ok"
	Msg    string `json:"message"`
}

// NewOkRes is a shortcut for building a SimpleRes for a successful result
func NewOkRes(msg string) *SimpleRes {
	return &SimpleRes{Result: "ok", Msg: msg}
}

// NewErrorRes is a shortcut for building a SimpleRes for a failed result
func NewErrorRes(msg string) *SimpleRes {
	return &SimpleRes{Result: "error", Msg: msg}
}

// BriefNet is a lightweight and standardized representation for neural network parameters
type BriefNet struct {
	Epochs       int     `json:"epochs"` // Epochs the net has been trained for
	Error        float64 `json:"error"`  // Error of the last training epoch
	HiddenLayers []int   `json:"hiddenLayers"`
	ID           string  `json:"id"`
	Inputs       int     `json:"inputs"`
	Loss         string  `json:"loss"`
	Optimizer    string  `json:"optimizer"`
	Outputs      int     `json:"outputs"`
}

// CreatedRes is returned when a new net is built
type CreatedRes struct {
	ID string `json:"id"`
}

// EvaluateRequest holds the inputs that should be fed to a net
type EvaluateRequest struct {
	Inputs []float64 `json:"inputs" binding:"required"`
}

// EvaluateRes holds what a net produced for the given inputs
type EvaluateRes struct {
	Outputs []float64 `json:"outputs"`
}

// TrainRequest as its name implies, is used to ask the training service to train an existing net with the samples of
// a dataset
type TrainRequest struct {
	DatasetID string                 `json:"datasetID"`
	NetID     string                 `json:"netID"`
	Options   map[string]interface{} `json:"options"` // epochs, error_threshold, delta_threshold and/or log_freq
}

// BriefDataset is a lightweight representation of a dataset
type BriefDataset struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Sample is a training pair as producers send it
type Sample struct {
	Inputs    []float64 `json:"inputs"`
	Targets   []float64 `json:"targets"`
	TimeStamp int64     `json:"timestamp"`
}

// SamplesUpdate bundles new samples for a dataset. When Train is set, the net it points to will be trained with the
// whole dataset once the samples are stored
type SamplesUpdate struct {
	DatasetID string        `json:"datasetID"`
	Samples   []Sample      `json:"samples"`
	Train     *TrainRequest `json:"train,omitempty"`
}

// Validate checks that the update names its dataset and that all of its samples have the same, non-empty, shape
func (su SamplesUpdate) Validate() error {
	if su.DatasetID == "" {
		return errors.New("the dataset ID of a samples update can't be empty")
	}
	if len(su.Samples) == 0 {
		return errors.New("a samples update must contain at least one sample")
	}
	in, out := len(su.Samples[0].Inputs), len(su.Samples[0].Targets)
	if in == 0 || out == 0 {
		return errors.New("samples must have at least one input and one target")
	}
	for i, s := range su.Samples[1:] {
		if len(s.Inputs) != in || len(s.Targets) != out {
			return fmt.Errorf(
				"sample %d has %d inputs and %d targets but the first one has %d and %d",
				i+1,
				len(s.Inputs),
				len(s.Targets),
				in,
				out,
			)
		}
	}
	if su.Train != nil && su.Train.NetID == "" {
		return errors.New("a training request must name the net to train")
	}
	return nil
}
