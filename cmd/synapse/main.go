package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/segmentio/kafka-go"

	"github.com/qvantel/synapse/api"
	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/config"
	"github.com/qvantel/synapse/internal/datasets"
	"github.com/qvantel/synapse/internal/datasets/samplestores"
	"github.com/qvantel/synapse/internal/logger"
	"github.com/qvantel/synapse/internal/training"
)

func main() {
	// Get config
	conf, err := config.New()
	// Initialize logger (even if the previous statement returns an error, the logging part should be filled in)
	logger.Init(*conf)
	logger.Info("Initializing component")
	if err != nil {
		logger.Error("Error encountered while loading configuration", err)
		return
	}

	var g run.Group

	// Stop everything on SIGINT/SIGTERM
	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	// Initialize training service
	tServ := make(chan types.TrainRequest, 10)
	tCtx, tCancel := context.WithCancel(context.Background())
	g.Add(func() error { return training.Service(tCtx, tServ, *conf) }, func(error) { tCancel() })

	// Initialize consumer
	ss, err := samplestores.New(*conf)
	if err != nil {
		logger.Error("Error encountered initializing the sample store for the consumer", err)
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  conf.Datasets.Source.Brokers,
		GroupID:  conf.Datasets.Source.GroupID,
		Topic:    conf.Datasets.Source.Topic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	cCtx, cCancel := context.WithCancel(context.Background())
	g.Add(func() error {
		logger.Info("Reading samples from topic " + conf.Datasets.Source.Topic)
		return datasets.Consumer(cCtx, reader, ss, tServ, conf.Datasets.FailLimit)
	}, func(error) {
		cCancel()
		reader.Close()
	})

	// Initialize API
	api, err := api.New(tServ, *conf)
	if err != nil {
		logger.Error("Error encountered initializing API", err)
		return
	}
	srv := &http.Server{
		Addr:    ":5400",
		Handler: api.Router,
	}
	g.Add(func() error {
		return srv.ListenAndServe()
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", err)
			os.Exit(1)
		}
	})

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		logger.Info("Received " + sig.Signal.String() + ", exiting")
	} else if err != nil {
		logger.Error("Critical error encountered, exiting", err)
	}
}
