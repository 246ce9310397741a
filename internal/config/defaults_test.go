package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsEmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
	assert.Equal(t, DefaultDBMaxConns, cfg.Database.MaxConns)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, "moldex:", cfg.Redis.KeyPrefix)

	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaGroupID, cfg.Kafka.GroupID)
	assert.Equal(t, "earliest", cfg.Kafka.AutoOffsetReset)

	assert.Equal(t, []string{DefaultOpenSearchAddr}, cfg.OpenSearch.Addresses)

	assert.Equal(t, DefaultMilvusAddr, cfg.Milvus.Addr)
	assert.Equal(t, 50, cfg.Milvus.DefaultTopK)
	assert.Equal(t, 5000, cfg.Milvus.ANNThreshold)

	assert.Equal(t, DefaultMinIOEndpoint, cfg.MinIO.Endpoint)
	assert.Equal(t, "moldex-uploads", cfg.MinIO.Bucket)

	assert.Equal(t, DefaultAIEngineURL, cfg.AIEngine.URL)
	assert.Equal(t, 3, cfg.AIEngine.MaxRetries)
	assert.Equal(t, 5, cfg.AIEngine.CircuitThreshold)
	assert.Equal(t, 64, cfg.AIEngine.MaxBatchSize)

	assert.Equal(t, DefaultMaxCSVSizeMB, cfg.Ingestion.MaxCSVSizeMB)
	assert.Equal(t, DefaultMaxRows, cfg.Ingestion.MaxRows)
	assert.Equal(t, DefaultLargeFileThreshold, cfg.Ingestion.LargeFileThreshold)

	assert.Equal(t, 30*time.Second, cfg.Orchestrator.PollIntervalS)
	assert.Equal(t, 300*time.Second, cfg.Orchestrator.MaxWaitS)

	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
	assert.Equal(t, 3, cfg.Worker.MaxRetries)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestApplyDefaultsPreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Port = 9999
	cfg.Database.Host = "custom-host"

	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Database.Port)
	assert.Equal(t, "custom-host", cfg.Database.Host)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
}

func TestApplyDefaultsPreserveSliceValues(t *testing.T) {
	cfg := &Config{}
	brokers := []string{"kafka-1:9092", "kafka-2:9092"}
	cfg.Kafka.Brokers = brokers

	ApplyDefaults(cfg)

	assert.Equal(t, brokers, cfg.Kafka.Brokers)
}

func TestApplyDefaultsPreserveDurationValues(t *testing.T) {
	cfg := &Config{}
	timeout := 5 * time.Minute
	cfg.AIEngine.TimeoutS = timeout

	ApplyDefaults(cfg)

	assert.Equal(t, timeout, cfg.AIEngine.TimeoutS)
}

func TestApplyDefaultsThenValidatePasses(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.NoError(t, cfg.Validate())
}
