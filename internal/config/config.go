// Package config centralizes the parsing of application configuration
package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported store types
const (
	FileParamStore            = "file"
	RedisParamStore           = "redis"
	FileDatasetStore          = "file"
	ElasticsearchDatasetStore = "elasticsearch"
)

// Kafka holds the necessary configuration to set up the connection to a Kafka cluster
type Kafka struct {
	Brokers []string
	GroupID string
	Topic   string
}

// LoggerParams holds the necessary configuration to initialize the logger
type LoggerParams struct {
	ArtifactID  string
	Level       string
	ServiceName string
}

// MLParams holds the parameters that determine how nets are trained and where their params are stored
type MLParams struct {
	DefaultEpochs  int
	ErrorThreshold float64
	LogFreq        int
	StoreType      string
	StoreParams    map[string]interface{}
	UnitTimeout    time.Duration
}

// DatasetParams holds the parameters that determine how training samples are ingested and stored
type DatasetParams struct {
	FailLimit   int
	Source      Kafka
	StoreType   string
	StoreParams map[string]interface{}
	StorePass   string
	StoreUser   string
}

// Config holds all the configuration for the app
type Config struct {
	AppVersion string
	Datasets   DatasetParams
	Logger     LoggerParams
	ML         MLParams
}

// New generates a Config object populated with values from the environment (and the optional env file)
func New() (*Config, error) {
	conf := Config{}

	// A missing env file is fine, everything can come from the real environment
	envFile := Getenv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return &conf, err
	}

	// Take care of logging params first in case the app has to report a config related error
	conf.AppVersion = Getenv("VERSION", "unknown")
	conf.Logger.Level = Getenv("LOG_LEVEL", "INFO")
	conf.Logger.ArtifactID = Getenv("ARTIFACT_ID", "qvantel/synapse:"+conf.AppVersion+"?")
	conf.Logger.ServiceName = Getenv("SERVICE_NAME", "synapse")

	// ML params
	var err error
	conf.ML.DefaultEpochs, err = strconv.Atoi(Getenv("ML_MAX_EPOCH", "10000"))
	if err != nil {
		return &conf, err
	}
	if conf.ML.DefaultEpochs <= 0 {
		return &conf, errors.New("ML_MAX_EPOCH must be a positive integer")
	}
	conf.ML.ErrorThreshold, err = strconv.ParseFloat(Getenv("ML_ERROR_THRESHOLD", "0.001"), 64)
	if err != nil {
		return &conf, err
	}
	if conf.ML.ErrorThreshold < 0 {
		return &conf, errors.New("ML_ERROR_THRESHOLD can't be negative")
	}
	conf.ML.LogFreq, err = strconv.Atoi(Getenv("ML_LOG_FREQ", "0"))
	if err != nil {
		return &conf, err
	}
	conf.ML.UnitTimeout, err = time.ParseDuration(Getenv("ML_UNIT_TIMEOUT", "5s"))
	if err != nil {
		return &conf, err
	}
	conf.ML.StoreType = Getenv("ML_STORE_TYPE", FileParamStore)
	defMLStoreParams := `{"Path": "."}`
	redis := os.Getenv("SD_REDIS")
	if redis != "" {
		defMLStoreParams = `{"URL": "` + redis + `"}`
	}
	err = json.Unmarshal([]byte(Getenv("ML_STORE_PARAMS", defMLStoreParams)), &conf.ML.StoreParams)
	if err != nil {
		return &conf, err
	}

	// Dataset params
	conf.Datasets.FailLimit, err = strconv.Atoi(Getenv("DATASETS_FAIL_LIMIT", "5"))
	if err != nil {
		return &conf, err
	}
	brokers := os.Getenv("SD_KAFKA")
	if brokers == "" {
		return &conf, errors.New("no value found for required variable SD_KAFKA")
	}
	conf.Datasets.Source = Kafka{
		Brokers: strings.Split(brokers, ","),
		GroupID: Getenv("DATASETS_KAFKA_GROUP", "synapse"),
		Topic:   Getenv("DATASETS_KAFKA_TOPIC", "synapse-samples"),
	}
	conf.Datasets.StoreType = Getenv("DATASETS_STORE_TYPE", FileDatasetStore)
	defDatasetStoreParams := `{"Path": "."}`
	esNodes := os.Getenv("SD_ELASTICSEARCH")
	if esNodes != "" {
		defDatasetStoreParams = `{"URLs": "` + esNodes + `"}`
	}
	err = json.Unmarshal([]byte(Getenv("DATASETS_STORE_PARAMS", defDatasetStoreParams)), &conf.Datasets.StoreParams)
	if err != nil {
		return &conf, err
	}
	conf.Datasets.StorePass = os.Getenv("DATASETS_STORE_PASS")
	conf.Datasets.StoreUser = os.Getenv("DATASETS_STORE_USER")

	return &conf, nil
}

// Getenv is useful for retrieving the value of an env var with a default
func Getenv(env, fallback string) string {
	value := os.Getenv(env)
	if value == "" {
		return fallback
	}
	return value
}
