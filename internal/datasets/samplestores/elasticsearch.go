package samplestores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	elastic "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/config"
	"github.com/qvantel/synapse/internal/logger"
)

// Largest page Elasticsearch will return with default index settings (index.max_result_window)
const maxResults = 10000

// ElasticAdapter is a sample store implementation for Elasticsearch
type ElasticAdapter struct {
	client *elastic.Client
}

// QResponse is used to facilitate parsing elasticsearch sample query responses
type QResponse struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
			S     Sample `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// NewElasticAdapter returns an initialized Elasticsearch sample store
func NewElasticAdapter(dp config.DatasetParams) (*ElasticAdapter, error) {
	urls, ok := dp.StoreParams["URLs"].(string)
	if !ok || urls == "" {
		return nil, errors.New("the Elasticsearch sample store requires URLs")
	}
	cfg := elastic.Config{
		Addresses: strings.Split(urls, ","),
		Username:  dp.StoreUser,
		Password:  dp.StorePass,
	}
	client, err := elastic.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticAdapter{client}, nil
}

type mappingProps struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
	Index  bool   `json:"index"`
}

// AddSample upserts a sample into the index of a given dataset
func (ea ElasticAdapter) AddSample(dataset string, s Sample) error {
	index := prefix + clean(dataset)
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: s.ID(),
		Body:       strings.NewReader(string(data)),
	}
	logger.Trace("Indexing document with this content: " + string(data))

	res, err := req.Do(context.Background(), ea.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode == 404 {
			err = ea.AddDataset(dataset)
			if err != nil {
				return err
			}
			return ea.AddSample(dataset, s)
		}
		return esToErr("indexing document", res.Status())
	}
	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return err
	}
	logger.Trace(fmt.Sprintf("[%s] %s; version=%v", res.Status(), r["result"], r["_version"]))

	return nil
}

// AddDataset creates and configures a new index in Elasticsearch to hold a dataset
func (ea ElasticAdapter) AddDataset(dataset string) error {
	index := prefix + clean(dataset)
	props := map[string]mappingProps{
		"@timestamp": {Type: "date", Format: "epoch_second", Index: true},
		"inputs":     {Type: "double", Index: false},
		"targets":    {Type: "double", Index: false},
	}
	jProps, err := json.Marshal(props)
	if err != nil {
		return err
	}
	mapping := `{"mappings":{"date_detection": false, "properties":` + string(jProps) + "}}"
	logger.Info("Creating new index for dataset " + dataset + " with this mapping: " + mapping)
	res, err := ea.client.Indices.Create(index, ea.client.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return esToErr("creating index", res.Status())
	}
	return nil
}

// DeleteDataset removes the index used to store a dataset
func (ea ElasticAdapter) DeleteDataset(dataset string) error {
	index := prefix + clean(dataset)
	res, err := ea.client.Indices.Delete([]string{index})
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return esToErr("deleting index", res.Status())
	}
	return nil
}

// Exists returns true if an index for the specified dataset is present in elasticsearch, false if not or in case of
// error (make sure to check if error is nil before looking at the boolean)
func (ea ElasticAdapter) Exists(dataset string) (bool, error) {
	index := prefix + clean(dataset)
	req := esapi.IndicesExistsRequest{
		Index: []string{index},
	}
	res, err := req.Do(context.Background(), ea.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode == 404 {
			return false, nil
		}
		return false, esToErr("checking if index exists", res.Status())
	}
	return true, nil
}

// GetCount retrieves the number of samples recorded for the given dataset (returns 0 if the dataset doesn't exist)
func (ea ElasticAdapter) GetCount(dataset string) (int, error) {
	index := prefix + clean(dataset)
	res, err := ea.client.Count(
		ea.client.Count.WithContext(context.Background()),
		ea.client.Count.WithIndex(index),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode == 404 {
			return 0, nil
		}
		buf := new(strings.Builder)
		_, err = io.Copy(buf, res.Body)
		if err != nil {
			return 0, err
		}
		return 0, esToErr("performing count query", buf.String())
	}
	var r struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, err
	}

	return r.Count, nil
}

// GetAll retrieves every sample of the dataset, oldest first (up to the max result window of the index)
func (ea ElasticAdapter) GetAll(dataset string) ([]Sample, error) {
	return ea.sorted(dataset, "asc", maxResults)
}

// GetLastN retrieves the last N samples of the given dataset, newest first
func (ea ElasticAdapter) GetLastN(dataset string, n int) ([]Sample, error) {
	if n > maxResults {
		n = maxResults
	}
	return ea.sorted(dataset, "desc", n)
}

func (ea ElasticAdapter) sorted(dataset, order string, n int) ([]Sample, error) {
	index := prefix + clean(dataset)
	stmt := `{"sort": [{"@timestamp": {"order": "` + order + `"}}],"size": ` + strconv.Itoa(n) + `}`
	res, err := ea.query(index, stmt)
	if err != nil {
		return nil, err
	}
	samples := make([]Sample, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		samples = append(samples, hit.S)
	}
	// Elasticsearch gives no order to samples sharing a timestamp
	sortSamples(samples, order == "desc")
	return samples, nil
}

// ListDatasets as its name implies, returns a list of all the datasets that are available in elasticsearch
func (ea ElasticAdapter) ListDatasets() ([]types.BriefDataset, error) {
	req := esapi.CatIndicesRequest{
		Index:  []string{prefix + "*"},
		Format: "json",
		H:      []string{"index", "docs.count"},
	}
	res, err := req.Do(context.Background(), ea.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, esToErr("listing indices", res.Status())
	}
	var r []map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}
	datasets := []types.BriefDataset{}
	for _, d := range r {
		count := 0
		if raw, ok := d["docs.count"].(string); ok {
			count, err = strconv.Atoi(raw)
			if err != nil {
				return nil, err
			}
		}
		name, _ := d["index"].(string)
		datasets = append(datasets, types.BriefDataset{Name: strings.TrimPrefix(name, prefix), Count: count})
	}

	return datasets, nil
}

// Refresh makes every sample indexed so far visible to searches (not part of the standard SampleStore interface)
func (ea ElasticAdapter) Refresh(dataset string) error {
	res, err := ea.client.Indices.Refresh(ea.client.Indices.Refresh.WithIndex(prefix + clean(dataset)))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return esToErr("refreshing index", res.Status())
	}
	return nil
}

func esToErr(context, err string) error {
	return errors.New("Error encountered while " + context + ": " + err)
}

func (ea ElasticAdapter) query(index, stmt string) (QResponse, error) {
	logger.Trace("Executing query " + stmt + " for index " + index)
	res, err := ea.client.Search(
		ea.client.Search.WithContext(context.Background()),
		ea.client.Search.WithIndex(index),
		ea.client.Search.WithBody(strings.NewReader(stmt)),
		ea.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return QResponse{}, err
	}
	defer res.Body.Close()
	if res.IsError() {
		buf := new(strings.Builder)
		_, err = io.Copy(buf, res.Body)
		if err != nil {
			return QResponse{}, err
		}
		return QResponse{}, esToErr("performing this ("+stmt+") query", buf.String())
	}

	var r QResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return QResponse{}, err
	}
	logger.Trace(fmt.Sprintf("Response from elasticsearch, status: %d hits: %d", res.StatusCode, len(r.Hits.Hits)))

	return r, nil
}
