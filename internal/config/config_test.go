package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newValidConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.DBName = "moldex"
	cfg.Database.MaxConns = 25
	cfg.Redis.Addr = "localhost:6379"
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.GroupID = "moldex-group"
	cfg.Milvus.Addr = "localhost:19530"
	cfg.AIEngine.URL = "http://localhost:8100"
	cfg.AIEngine.MaxBatchSize = 64
	cfg.Ingestion.MaxCSVSizeMB = 100
	cfg.Ingestion.MaxRows = 500000
	cfg.Ingestion.LargeFileThreshold = 10000
	cfg.Worker.Concurrency = 10
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

func TestConfigValidateValidConfig(t *testing.T) {
	assert.NoError(t, newValidConfig().Validate())
}

func TestConfigValidateMissingDatabaseHost(t *testing.T) {
	cfg := newValidConfig()
	cfg.Database.Host = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateInvalidPort(t *testing.T) {
	cfg := newValidConfig()
	cfg.Database.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateEmptyKafkaBrokers(t *testing.T) {
	cfg := newValidConfig()
	cfg.Kafka.Brokers = nil
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateInvalidLogLevel(t *testing.T) {
	cfg := newValidConfig()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateMissingAIEngineURL(t *testing.T) {
	cfg := newValidConfig()
	cfg.AIEngine.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateLargeFileThresholdExceedsMaxRows(t *testing.T) {
	cfg := newValidConfig()
	cfg.Ingestion.LargeFileThreshold = cfg.Ingestion.MaxRows + 1
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateZeroWorkerConcurrency(t *testing.T) {
	cfg := newValidConfig()
	cfg.Worker.Concurrency = 0
	assert.Error(t, cfg.Validate())
}
