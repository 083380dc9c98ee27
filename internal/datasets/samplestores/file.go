package samplestores

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/qvantel/synapse/api/types"
)

// FileAdapter is a sample store implementation that uses the filesystem (one directory per dataset and one file per
// sample). Its main purpose is to facilitate testing, given its low performance it is strongly discouraged for
// production use
type FileAdapter struct {
	Path string
}

// NewFileAdapter returns an initialized file sample store object
func NewFileAdapter(conf map[string]interface{}) (*FileAdapter, error) {
	path, ok := conf["Path"].(string)
	if !ok || path == "" {
		return nil, errors.New("the file sample store requires a Path")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &FileAdapter{Path: path}, nil
}

func (fa FileAdapter) dir(dataset string) string {
	return filepath.Join(fa.Path, prefix+clean(dataset))
}

// AddSample creates a new file with the JSON representation of the sample in the directory of the given dataset
func (fa FileAdapter) AddSample(dataset string, s Sample) error {
	dir := fa.dir(dataset)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err = fa.AddDataset(dataset); err != nil {
			return err
		}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, s.ID()+".json"))
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// AddDataset creates a directory to hold a dataset
func (fa FileAdapter) AddDataset(dataset string) error {
	err := os.Mkdir(fa.dir(dataset), 0o755)
	if os.IsExist(err) {
		return nil
	}
	return err
}

// DeleteDataset removes the directory used to store a dataset
func (fa FileAdapter) DeleteDataset(dataset string) error {
	return os.RemoveAll(fa.dir(dataset))
}

// Exists returns true if a directory is present for the specified dataset, false if not or in case of error
func (fa FileAdapter) Exists(dataset string) (bool, error) {
	_, err := os.Stat(fa.dir(dataset))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetCount retrieves the number of samples recorded for the given dataset (returns 0 if the dataset doesn't exist)
func (fa FileAdapter) GetCount(dataset string) (int, error) {
	entries, err := os.ReadDir(fa.dir(dataset))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (fa FileAdapter) readAll(dataset string) ([]Sample, error) {
	dir := fa.dir(dataset)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	samples := make([]Sample, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var s Sample
		if err = json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// GetAll returns every sample of the dataset, oldest first
func (fa FileAdapter) GetAll(dataset string) ([]Sample, error) {
	samples, err := fa.readAll(dataset)
	if err != nil {
		return nil, err
	}
	sortSamples(samples, false)
	return samples, nil
}

// GetLastN returns the n most recent samples of the dataset, newest first
func (fa FileAdapter) GetLastN(dataset string, n int) ([]Sample, error) {
	samples, err := fa.readAll(dataset)
	if err != nil {
		return nil, err
	}
	sortSamples(samples, true)
	if len(samples) > n {
		samples = samples[:n]
	}
	return samples, nil
}

// ListDatasets returns a list of all the available datasets in the configured directory
func (fa FileAdapter) ListDatasets() ([]types.BriefDataset, error) {
	entries, err := os.ReadDir(fa.Path)
	if err != nil {
		return nil, err
	}
	datasets := []types.BriefDataset{}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		name := strings.TrimPrefix(entry.Name(), prefix)
		count, err := fa.GetCount(name)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, types.BriefDataset{Name: name, Count: count})
	}
	return datasets, nil
}
