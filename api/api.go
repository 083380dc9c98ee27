// Package api contains the REST interface of the service
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/config"
	"github.com/qvantel/synapse/internal/datasets/samplestores"
	"github.com/qvantel/synapse/internal/logger"
	"github.com/qvantel/synapse/internal/nets/paramstores"
)

// Handler holds the API's state
type Handler struct {
	Conf   config.Config
	NPS    paramstores.NetParamStore
	SS     samplestores.SampleStore
	Router *gin.Engine
	TServ  chan types.TrainRequest
}

// @title Synapse
// @version 1.0
// @description Synapse builds and trains feed-forward neural nets as a service.

// @host localhost:5400
// @BasePath /api/v1

// New initializes the Gin rest api and returns a handler
func New(tServ chan types.TrainRequest, conf config.Config) (*Handler, error) {
	// Set up net param store
	nps, err := paramstores.New(conf)
	if err != nil {
		logger.Error("Failed to initialize net param store for the API", err)
		return nil, err
	}

	// Set up sample store
	ss, err := samplestores.New(conf)
	if err != nil {
		logger.Error("Failed to initialize sample store for the API", err)
		return nil, err
	}

	h := NewHandler(tServ, nps, ss, conf)
	logger.Info("API initialized")
	return h, nil
}

// NewHandler sets up the routes of the API on top of the given stores
func NewHandler(
	tServ chan types.TrainRequest,
	nps paramstores.NetParamStore,
	ss samplestores.SampleStore,
	conf config.Config,
) *Handler {
	router := gin.New()

	h := Handler{
		Conf:   conf,
		NPS:    nps,
		SS:     ss,
		Router: router,
		TServ:  tServ,
	}

	// Global middleware
	router.Use(gin.LoggerWithFormatter(logger.GinFormatter))
	router.Use(gin.Recovery())

	// Routes
	v1 := router.Group("/api/v1")
	{
		health := v1.Group("/health")
		{
			health.GET("/startup", StartupCheck)
			health.GET("/ready", h.ReadinessCheck)
		}
		v1.GET("/functions", ListFunctions)
		nets := v1.Group("/nets")
		{
			nets.GET("", h.ListNets)
			nets.POST("", h.CreateNet)
			nets.GET("/:id", h.GetNet)
			nets.DELETE("/:id", h.DeleteNet)
			nets.POST("/:id/evaluate", h.Evaluate)
			nets.POST("/:id/train", h.Train)
		}
		datasets := v1.Group("/datasets")
		{
			datasets.GET("", h.ListDatasets)
			datasets.DELETE("/:id", h.DeleteDataset)
			datasets.GET("/:id/samples", h.ListSamples)
			datasets.POST("/process", h.AddSamples)
		}
	}

	return &h
}
