// Package config defines all configuration structures for moldex. No I/O or
// parsing logic lives here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig holds PostgreSQL connection parameters for the Molecule
// Store (C2) and its siblings (library, fingerprint, prediction, job).
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters, backing the read-through
// cache in front of the Molecule Store's Get-by-id lookups.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer and topic parameters.
// The Task Runtime (C7) does not use Kafka: it claims work from the
// Postgres task table.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	GroupID           string   `mapstructure:"group_id"`
	AutoOffsetReset   string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	TimeoutMS         int      `mapstructure:"timeout_ms"`
	ProducerRetries   int      `mapstructure:"producer_retries"`
	BatchSize         int      `mapstructure:"batch_size"`
	AutoCreateTopics  bool     `mapstructure:"auto_create_topics"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	NumPartitions     int      `mapstructure:"num_partitions"`
}

// OpenSearchConfig holds OpenSearch cluster connection parameters backing
// the molecule text index that molecule writes are published to. Filter's
// smiles_contains / formula_contains predicates are answered by the
// Postgres repository, not by this index.
type OpenSearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	BulkBatchSize      int      `mapstructure:"bulk_batch_size"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
}

// MilvusConfig holds Milvus vector-store connection parameters backing the
// Fingerprint Index's (C3) ANN acceleration path.
type MilvusConfig struct {
	Addr             string `mapstructure:"addr"`
	DBName           string `mapstructure:"db_name"`
	EmbeddingDim     int    `mapstructure:"embedding_dim"`
	IndexType        string `mapstructure:"index_type"`
	DefaultTopK      int    `mapstructure:"default_top_k"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
	// ANNThreshold is the minimum candidate-set size above which
	// similarity_search delegates to Milvus instead of the in-process scan.
	ANNThreshold int `mapstructure:"ann_threshold"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters used by
// the Ingestion Pipeline's (C4) accept phase to persist raw CSV uploads.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// AIEngineConfig holds connection and resilience parameters for the
// external AI prediction service client (C5).
type AIEngineConfig struct {
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api_key"`
	TimeoutS         time.Duration `mapstructure:"timeout_s"`
	HealthTimeoutS   time.Duration `mapstructure:"health_timeout_s"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	CircuitThreshold int           `mapstructure:"circuit_threshold"`
	CircuitResetS    time.Duration `mapstructure:"circuit_reset_s"`
	MaxBatchSize     int           `mapstructure:"max_batch_size"`
}

// IngestionConfig holds the Ingestion Pipeline's (C4) size settings. Only
// PreviewRowCount is read (by the CLI); the pipeline's chunk, batch-insert
// and row-error limits are constants in internal/domain/ingestion, and the
// other fields here are validated but not read.
type IngestionConfig struct {
	MaxCSVSizeMB         int `mapstructure:"max_csv_size_mb"`
	MaxRows              int `mapstructure:"max_rows"`
	DefaultChunkSize     int `mapstructure:"default_chunk_size"`
	BatchInsertSize      int `mapstructure:"batch_insert_size"`
	LargeFileThreshold   int `mapstructure:"large_file_threshold"`
	PreviewRowCount      int `mapstructure:"preview_row_count"`
	MaxRowErrorsReported int `mapstructure:"max_row_errors_reported"`
}

// OrchestratorConfig holds the Prediction Orchestrator's (C6) polling
// parameters. These fields are not read: polling uses the PollInterval
// and MaxPollRetries constants in internal/domain/prediction.
type OrchestratorConfig struct {
	PollIntervalS time.Duration `mapstructure:"poll_interval_s"`
	MaxWaitS      time.Duration `mapstructure:"max_wait_s"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// WorkerConfig holds Task Runtime (C7) execution parameters.
type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	QueueDepth        int           `mapstructure:"queue_depth"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level        string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format       string `mapstructure:"format"` // "json" | "text"
	EnableCaller bool   `mapstructure:"enable_caller"`
	SamplingRate int    `mapstructure:"sampling_rate"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure. Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	OpenSearch   OpenSearchConfig   `mapstructure:"opensearch"`
	Milvus       MilvusConfig       `mapstructure:"milvus"`
	MinIO        MinIOConfig        `mapstructure:"minio"`
	AIEngine     AIEngineConfig     `mapstructure:"ai_engine"`
	Ingestion    IngestionConfig    `mapstructure:"ingestion"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Log          LogConfig          `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	if c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required")
	}

	if c.AIEngine.URL == "" {
		return fmt.Errorf("config: ai_engine.url is required")
	}
	if c.AIEngine.MaxBatchSize < 1 {
		return fmt.Errorf("config: ai_engine.max_batch_size must be >= 1, got %d", c.AIEngine.MaxBatchSize)
	}

	if c.Ingestion.MaxCSVSizeMB < 1 {
		return fmt.Errorf("config: ingestion.max_csv_size_mb must be >= 1, got %d", c.Ingestion.MaxCSVSizeMB)
	}
	if c.Ingestion.MaxRows < 1 {
		return fmt.Errorf("config: ingestion.max_rows must be >= 1, got %d", c.Ingestion.MaxRows)
	}
	if c.Ingestion.LargeFileThreshold > c.Ingestion.MaxRows {
		return fmt.Errorf("config: ingestion.large_file_threshold must be <= max_rows")
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
