// Package config provides configuration loading, defaults, and validation
// for moldex.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "moldex"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "moldex-group"

	DefaultMilvusAddr = "localhost:19530"

	DefaultOpenSearchAddr = "http://localhost:9200"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultAIEngineURL = "http://localhost:8100"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 10

	DefaultMaxCSVSizeMB       = 100
	DefaultMaxRows            = 500000
	DefaultLargeFileThreshold = 10000
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "moldex:"
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 10 * time.Minute
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddr}
	}
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = "moldex"
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = 50
	}
	if cfg.Milvus.ANNThreshold == 0 {
		cfg.Milvus.ANNThreshold = 5000
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = "moldex"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "moldex-uploads"
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = 15 * time.Minute
	}

	// ── AIEngine ──────────────────────────────────────────────────────────────
	if cfg.AIEngine.URL == "" {
		cfg.AIEngine.URL = DefaultAIEngineURL
	}
	if cfg.AIEngine.TimeoutS == 0 {
		cfg.AIEngine.TimeoutS = 30 * time.Second
	}
	if cfg.AIEngine.HealthTimeoutS == 0 {
		cfg.AIEngine.HealthTimeoutS = 5 * time.Second
	}
	if cfg.AIEngine.MaxRetries == 0 {
		cfg.AIEngine.MaxRetries = 3
	}
	if cfg.AIEngine.RetryBackoff == 0 {
		cfg.AIEngine.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.AIEngine.CircuitThreshold == 0 {
		cfg.AIEngine.CircuitThreshold = 5
	}
	if cfg.AIEngine.CircuitResetS == 0 {
		cfg.AIEngine.CircuitResetS = 60 * time.Second
	}
	if cfg.AIEngine.MaxBatchSize == 0 {
		cfg.AIEngine.MaxBatchSize = 64
	}

	// ── Ingestion ─────────────────────────────────────────────────────────────
	if cfg.Ingestion.MaxCSVSizeMB == 0 {
		cfg.Ingestion.MaxCSVSizeMB = DefaultMaxCSVSizeMB
	}
	if cfg.Ingestion.MaxRows == 0 {
		cfg.Ingestion.MaxRows = DefaultMaxRows
	}
	if cfg.Ingestion.DefaultChunkSize == 0 {
		cfg.Ingestion.DefaultChunkSize = 10000
	}
	if cfg.Ingestion.BatchInsertSize == 0 {
		cfg.Ingestion.BatchInsertSize = 1000
	}
	if cfg.Ingestion.LargeFileThreshold == 0 {
		cfg.Ingestion.LargeFileThreshold = DefaultLargeFileThreshold
	}
	if cfg.Ingestion.PreviewRowCount == 0 {
		cfg.Ingestion.PreviewRowCount = 10
	}
	if cfg.Ingestion.MaxRowErrorsReported == 0 {
		cfg.Ingestion.MaxRowErrorsReported = 100
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	if cfg.Orchestrator.PollIntervalS == 0 {
		cfg.Orchestrator.PollIntervalS = 30 * time.Second
	}
	if cfg.Orchestrator.MaxWaitS == 0 {
		cfg.Orchestrator.MaxWaitS = 300 * time.Second
	}
	if cfg.Orchestrator.MaxRetries == 0 {
		cfg.Orchestrator.MaxRetries = 3
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryDelay == 0 {
		cfg.Worker.RetryDelay = 2 * time.Second
	}
	if cfg.Worker.HeartbeatInterval == 0 {
		cfg.Worker.HeartbeatInterval = 10 * time.Second
	}
	if cfg.Worker.QueueDepth == 0 {
		cfg.Worker.QueueDepth = 100
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
