package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/config"
	"github.com/qvantel/synapse/internal/datasets"
	"github.com/qvantel/synapse/internal/functions"
	"github.com/qvantel/synapse/internal/nets"
)

const base = "/api/v1"

func newTestAPI(t *testing.T) *Handler {
	gin.SetMode(gin.TestMode)
	conf := config.Config{
		ML: config.MLParams{
			DefaultEpochs:  100,
			ErrorThreshold: 0.001,
			StoreType:      config.FileParamStore,
			StoreParams:    map[string]interface{}{"Path": t.TempDir()},
		},
		Datasets: config.DatasetParams{
			StoreType:   config.FileDatasetStore,
			StoreParams: map[string]interface{}{"Path": t.TempDir()},
		},
	}
	api, err := New(make(chan types.TrainRequest, 1), conf)
	if err != nil {
		t.Fatalf("Failed to initialize API (%s)", err.Error())
	}
	return api
}

func do(api *Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b)
	}
	req := httptest.NewRequest(method, base+path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	api.Router.ServeHTTP(w, req)
	return w
}

// saveKnownNet stores a net with 2 inputs and 1 linear output whose weights are known
func saveKnownNet(t *testing.T, api *Handler, id string) {
	params := nets.Params{
		Config: nets.Config{
			InputLayer:  2,
			OutputLayer: &nets.LayerConfig{Size: 1, Activation: functions.Identity},
		},
		Weights: [][][]float64{{{0.5, 0.25, 0.1}}},
	}
	if err := api.NPS.Save(id, &params); err != nil {
		t.Fatalf("Failed to save test net (%s)", err.Error())
	}
}

func TestEvaluate(t *testing.T) {
	api := newTestAPI(t)
	saveKnownNet(t, api, "known")

	w := do(api, http.MethodPost, "/nets/known/evaluate", types.EvaluateRequest{Inputs: []float64{2, 4}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res types.EvaluateRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Outputs, 1)
	assert.InDelta(t, 2.1, res.Outputs[0], 1e-12)

	w = do(api, http.MethodPost, "/nets/known/evaluate", types.EvaluateRequest{Inputs: []float64{2}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "wrong number of inputs")
	w = do(api, http.MethodPost, "/nets/known/evaluate", `{"inputs": "two"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed body")
	w = do(api, http.MethodPost, "/nets/unknown/evaluate", types.EvaluateRequest{Inputs: []float64{2, 4}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNet(t *testing.T) {
	api := newTestAPI(t)

	w := do(api, http.MethodPost, "/nets", `{
		"input_layer": 3,
		"hidden_layers": [{"size": 2, "activation": "tanh"}],
		"output_layer": {"size": 1},
		"optim_function": {"type": "adam", "learning_rate": 0.01}
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created types.CreatedRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = do(api, http.MethodGet, "/nets/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var params nets.Params
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, 3, params.Config.InputLayer)
	require.Len(t, params.Weights, 2)
	assert.Len(t, params.Weights[0], 2)
	assert.Len(t, params.Weights[0][0], 4)

	w = do(api, http.MethodGet, "/nets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Last    bool             `json:"last"`
		Results []types.BriefNet `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.True(t, page.Last)
	require.Len(t, page.Results, 1)
	assert.Equal(t, created.ID, page.Results[0].ID)
	assert.Equal(t, []int{2}, page.Results[0].HiddenLayers)
	assert.Equal(t, functions.Adam, page.Results[0].Optimizer)

	w = do(api, http.MethodDelete, "/nets/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(api, http.MethodGet, "/nets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNetInvalid(t *testing.T) {
	api := newTestAPI(t)

	for _, body := range []string{
		`{"input_layer": 0, "output_layer": {"size": 1}}`,
		`{"input_layer": 3, "output_layer": {"size": 0}}`,
		`{"input_layer": 3, "output_layer": {"size": 1}, "optim_function": {"learning_rate": -1}}`,
		`{"input_layer": 3, "output_layer": {"size": 1, "activation": "nope"}}`,
		`{"input_layer": "three"}`,
	} {
		w := do(api, http.MethodPost, "/nets", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestTrain(t *testing.T) {
	api := newTestAPI(t)
	saveKnownNet(t, api, "known")

	w := do(api, http.MethodPost, "/nets/known/train", types.TrainRequest{DatasetID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	event := map[string]interface{}{
		"specversion":     "1.0",
		"id":              "1",
		"source":          "api-test",
		"type":            datasets.SamplesEventType,
		"datacontenttype": "application/json",
		"data": types.SamplesUpdate{
			DatasetID: "linear",
			Samples: []types.Sample{
				{Inputs: []float64{1, 0}, Targets: []float64{1}, TimeStamp: 1},
				{Inputs: []float64{0, 1}, Targets: []float64{0}, TimeStamp: 2},
			},
		},
	}
	w = do(api, http.MethodPost, "/datasets/process", event)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = do(api, http.MethodPost, "/nets/unknown/train", types.TrainRequest{DatasetID: "linear"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(api, http.MethodPost, "/nets/known/train", types.TrainRequest{
		DatasetID: "linear",
		Options:   map[string]interface{}{"learning_rate": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown options should be rejected")

	w = do(api, http.MethodPost, "/nets/known/train", types.TrainRequest{
		DatasetID: "linear",
		Options:   map[string]interface{}{"epochs": 10},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	tr := <-api.TServ
	assert.Equal(t, "known", tr.NetID)
	assert.Equal(t, "linear", tr.DatasetID)
}

func TestFunctions(t *testing.T) {
	api := newTestAPI(t)

	w := do(api, http.MethodGet, "/functions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res["activation"], functions.Sigmoid)
	assert.Contains(t, res["loss_function"], functions.MSE)
	assert.Contains(t, res["optim_function"], functions.SGD)
}

func TestStartupCheck(t *testing.T) {
	api := newTestAPI(t)

	w := do(api, http.MethodGet, "/health/startup", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", w.Body.String())
}

func TestReadinessCheck(t *testing.T) {
	api := newTestAPI(t)

	w := do(api, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "READY", w.Body.String())
}
