// Package samplestores contains the implementation of all the supported storage adapters for the datasets
package samplestores

import (
	"errors"
	"strings"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/config"
)

const prefix string = "synapse-"

// SampleStore is an abstraction over the storage service that will be used to keep the samples nets are trained with
type SampleStore interface {
	// Adds a sample to a dataset, should create it if it doesn't exist (calling AddDataset). Adding the same sample
	// twice has no effect
	AddSample(dataset string, s Sample) error
	// Create a new dataset
	AddDataset(dataset string) error
	// Delete a dataset and all of its samples
	DeleteDataset(dataset string) error
	Exists(dataset string) (bool, error)
	GetCount(dataset string) (int, error)
	// Gets every sample of the dataset, oldest first
	GetAll(dataset string) ([]Sample, error)
	// Gets the n most recent samples of the dataset, newest first
	GetLastN(dataset string, n int) ([]Sample, error)
	// Get list of available datasets
	ListDatasets() ([]types.BriefDataset, error)
}

// New returns an initialized sample store of the type specified in the configuration
func New(conf config.Config) (SampleStore, error) {
	switch conf.Datasets.StoreType {
	case config.FileDatasetStore:
		return NewFileAdapter(conf.Datasets.StoreParams)
	case config.ElasticsearchDatasetStore:
		return NewElasticAdapter(conf.Datasets)
	default:
		return nil, errors.New(conf.Datasets.StoreType + " is not a valid sample store type")
	}
}

// clean turns a dataset name into something that can be used as an index or directory name
func clean(name string) string {
	res := strings.ToLower(name)
	res = strings.ReplaceAll(res, ":", "_")
	return strings.ReplaceAll(res, "/", "_")
}
