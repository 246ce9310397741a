// Package bootstrap wires moldex's infrastructure adapters and application
// services from a loaded config.Config, shared by cmd/moldex (CLI) and
// cmd/worker (background task runtime) so the two entrypoints never
// duplicate construction order or defaults.
package bootstrap

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	appFingerprint "github.com/moldex-io/moldex/internal/application/fingerprint"
	appIngestion "github.com/moldex-io/moldex/internal/application/ingestion"
	appLibrary "github.com/moldex-io/moldex/internal/application/library"
	appMolecule "github.com/moldex-io/moldex/internal/application/molecule"
	appPrediction "github.com/moldex-io/moldex/internal/application/prediction"
	appTask "github.com/moldex-io/moldex/internal/application/task"

	"github.com/moldex-io/moldex/internal/config"
	domainFingerprint "github.com/moldex-io/moldex/internal/domain/fingerprint"
	domainIngestion "github.com/moldex-io/moldex/internal/domain/ingestion"
	domainLibrary "github.com/moldex-io/moldex/internal/domain/library"
	domainMolecule "github.com/moldex-io/moldex/internal/domain/molecule"
	domainPrediction "github.com/moldex-io/moldex/internal/domain/prediction"
	domainTask "github.com/moldex-io/moldex/internal/domain/task"

	"github.com/moldex-io/moldex/internal/infrastructure/aiengine"
	"github.com/moldex-io/moldex/internal/infrastructure/database/postgres"
	"github.com/moldex-io/moldex/internal/infrastructure/database/postgres/repositories"
	"github.com/moldex-io/moldex/internal/infrastructure/database/redis"
	"github.com/moldex-io/moldex/internal/infrastructure/messaging/kafka"
	"github.com/moldex-io/moldex/internal/infrastructure/search/milvus"
	"github.com/moldex-io/moldex/internal/infrastructure/search/opensearch"
	"github.com/moldex-io/moldex/internal/infrastructure/storage/minio"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/internal/platform/metrics"
	commontypes "github.com/moldex-io/moldex/pkg/types/common"
)

// Infra holds every infrastructure adapter constructed from config, before
// any application-layer wiring. Fields are exported so a caller that only
// needs a subset (e.g. a CLI subcommand touching just Postgres) can ignore
// the rest.
type Infra struct {
	Pool *pgxpool.Pool

	Redis       *redis.Client
	Cache       redis.Cache
	LockFactory redis.LockFactory

	KafkaProducer *kafka.Producer
	TopicManager  *kafka.TopicManager

	MilvusClient     *milvus.Client
	MilvusCollection *milvus.CollectionManager
	MilvusSearcher   *milvus.Searcher
	FingerprintIndex *milvus.FingerprintIndex

	OpenSearchClient  *opensearch.Client
	OpenSearchSearch  *opensearch.Searcher
	OpenSearchIndexer *opensearch.Indexer

	MinIOClient *minio.MinIOClient
	ObjectRepo  minio.ObjectRepository
	BlobStore   *minio.IngestionBlobStore

	AIEngine *aiengine.Client
	Metrics  metrics.Collector
}

// Close releases every pooled connection Infra holds. Safe to call on a
// partially-constructed Infra (nil fields are skipped).
func (i *Infra) Close() {
	if i.Pool != nil {
		postgres.Close(i.Pool)
	}
	if i.KafkaProducer != nil {
		i.KafkaProducer.Close()
	}
	if i.TopicManager != nil {
		i.TopicManager.Close()
	}
	if i.Redis != nil {
		i.Redis.Close()
	}
}

// NewInfra connects to every backing store named in cfg.
func NewInfra(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Infra, error) {
	pool, err := postgres.NewConnectionPool(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := redis.NewClient(toRedisConfig(cfg.Redis), logger)
	if err != nil {
		return nil, err
	}
	cache := redis.NewRedisCache(redisClient, logger,
		redis.WithPrefix(withDefault(cfg.Redis.KeyPrefix, "moldex:")),
		redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
	lockFactory := redis.NewLockFactory(redisClient, logger)

	producer, err := kafka.NewProducer(toProducerConfig(cfg.Kafka), logger)
	if err != nil {
		return nil, err
	}
	topicMgr, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Kafka.AutoCreateTopics {
		if err := topicMgr.EnsureDefaultTopics(ctx); err != nil {
			logger.Warn("failed to ensure default task topics", logging.Err(err))
		}
	}

	milvusClient, err := milvus.NewClient(milvus.ClientConfig{
		Address: cfg.Milvus.Addr,
		DBName:  cfg.Milvus.DBName,
	}, logger)
	if err != nil {
		return nil, err
	}
	collMgr := milvus.NewCollectionManager(milvusClient, milvus.CollectionConfig{}, logger)
	milvusSearcher := milvus.NewSearcher(milvusClient, collMgr, milvus.SearcherConfig{DefaultTopK: cfg.Milvus.DefaultTopK}, logger)
	dim := cfg.Milvus.EmbeddingDim
	if dim == 0 {
		dim = 2048
	}
	indexConfigs := []commontypes.IndexConfig{{FieldName: "vector", IndexType: withDefault(cfg.Milvus.IndexType, "IVF_FLAT"), MetricType: "IP"}}
	if err := collMgr.EnsureCollection(ctx, milvus.MoleculeFingerprintSchema(dim), indexConfigs); err != nil {
		logger.Warn("failed to ensure molecule_fingerprints collection", logging.Err(err))
	}
	fpIndex := milvus.NewFingerprintIndex(milvusSearcher)

	osClient, err := opensearch.NewClient(opensearch.ClientConfig{
		Addresses: cfg.OpenSearch.Addresses,
		Username:  cfg.OpenSearch.User,
		Password:  cfg.OpenSearch.Password,
	}, logger)
	if err != nil {
		return nil, err
	}
	osSearcher := opensearch.NewSearcher(osClient, opensearch.SearcherConfig{}, logger)
	osIndexer := opensearch.NewIndexer(osClient, opensearch.IndexerConfig{BulkBatchSize: cfg.OpenSearch.BulkBatchSize}, logger)
	moleculeIndex := moleculeSearchIndexName(cfg)
	exists, err := osIndexer.IndexExists(ctx, moleculeIndex)
	if err != nil {
		logger.Warn("failed to check molecule search index", logging.Err(err))
	} else if !exists {
		if err := osIndexer.CreateIndex(ctx, moleculeIndex, opensearch.MoleculeIndexMapping()); err != nil {
			logger.Warn("failed to create molecule search index", logging.Err(err))
		}
	}

	minioClient, err := minio.NewMinIOClient(&minio.MinIOConfig{
		Endpoint:        cfg.MinIO.Endpoint,
		AccessKeyID:     cfg.MinIO.AccessKey,
		SecretAccessKey: cfg.MinIO.SecretKey,
		UseSSL:          cfg.MinIO.UseSSL,
		DefaultBucket:   cfg.MinIO.Bucket,
		PresignExpiry:   cfg.MinIO.PresignExpiry,
	}, logger)
	if err != nil {
		return nil, err
	}
	objectRepo := minio.NewMinIORepository(minioClient, logger)
	blobStore := minio.NewIngestionBlobStore(minioClient, objectRepo, logger)

	aiClient, err := aiengine.NewClient(cfg.AIEngine.URL, logger,
		aiengine.WithTimeout(cfg.AIEngine.TimeoutS),
		aiengine.WithRetryMax(cfg.AIEngine.MaxRetries),
		aiengine.WithRetryWait(cfg.AIEngine.RetryBackoff, cfg.AIEngine.RetryBackoff*4),
		aiengine.WithCircuitBreaker(cfg.AIEngine.CircuitThreshold, cfg.AIEngine.CircuitResetS),
		aiengine.WithAPIKey(cfg.AIEngine.APIKey),
	)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(metrics.CollectorConfig{Namespace: "moldex"}, logger)
	if err != nil {
		return nil, err
	}

	return &Infra{
		Pool:              pool,
		Redis:             redisClient,
		Cache:             cache,
		LockFactory:       lockFactory,
		KafkaProducer:     producer,
		TopicManager:      topicMgr,
		MilvusClient:      milvusClient,
		MilvusCollection:  collMgr,
		MilvusSearcher:    milvusSearcher,
		FingerprintIndex:  fpIndex,
		OpenSearchClient:  osClient,
		OpenSearchSearch:  osSearcher,
		OpenSearchIndexer: osIndexer,
		MinIOClient:       minioClient,
		ObjectRepo:        objectRepo,
		BlobStore:         blobStore,
		AIEngine:          aiClient,
		Metrics:           collector,
	}, nil
}

func moleculeSearchIndexName(cfg *config.Config) string {
	return cfg.OpenSearch.IndexPrefix + "molecules"
}

func withDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func toRedisConfig(cfg config.RedisConfig) *redis.RedisConfig {
	return &redis.RedisConfig{
		Mode:         "standalone",
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func toProducerConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:    cfg.Brokers,
		MaxRetries: cfg.ProducerRetries,
		BatchSize:  cfg.BatchSize,
	}
}

// Services holds every domain and application service, wired against Infra
// and the Task Runtime.
type Services struct {
	Runtime *domainTask.Runtime

	Molecule    *appMolecule.Service
	Library     *appLibrary.Service
	Fingerprint *appFingerprint.Service
	Prediction  *appPrediction.Service
	Ingestion   *appIngestion.Service
	Task        *appTask.Service

	Enrichment *appTask.EnrichmentSubmitter
}

// schedulerHandle breaks the construction cycle between domain/prediction
// (which needs a PollScheduler at NewService time) and application/task
// (whose Service, the real scheduler, needs the constructed prediction
// service to register its handlers). bind is called once, immediately
// after appTask.NewService returns.
type schedulerHandle struct {
	target domainPrediction.PollScheduler
}

func (h *schedulerHandle) SchedulePoll(ctx context.Context, batchID commontypes.ID, delaySeconds int) error {
	return h.target.SchedulePoll(ctx, batchID, delaySeconds)
}

func (h *schedulerHandle) bind(target domainPrediction.PollScheduler) {
	h.target = target
}

// NewServices constructs every domain/application service from infra and
// registers the Task Runtime's handlers (prediction polling, sharded
// submission, stale-batch cleanup, ingestion job execution).
func NewServices(cfg *config.Config, infra *Infra, logger logging.Logger) *Services {
	moleculeRepo := repositories.NewMoleculeRepo(infra.Pool, logger)
	libraryRepo := repositories.NewLibraryRepo(infra.Pool, logger)
	fingerprintRepo := repositories.NewFingerprintRepo(infra.Pool, logger)
	predictionRepo := repositories.NewPredictionRepo(infra.Pool, logger)
	ingestionRepo := repositories.NewIngestionRepo(infra.Pool, logger)
	taskRepo := repositories.NewTaskRepo(infra.Pool, logger)

	domainMoleculeSvc := domainMolecule.NewService(moleculeRepo, logger)
	domainMoleculeSvc.UseSearchIndex(opensearch.NewMoleculeIndex(infra.OpenSearchIndexer, moleculeSearchIndexName(cfg)))
	if infra.Cache != nil {
		domainMoleculeSvc.UseCache(infra.Cache, cfg.Redis.DefaultTTL)
	}
	domainLibrarySvc := domainLibrary.NewService(libraryRepo, logger)

	moleculeSvc := appMolecule.NewService(domainMoleculeSvc, logger)
	librarySvc := appLibrary.NewService(domainLibrarySvc, logger)

	smilesLookup := appPrediction.NewMoleculeSMILESLookup(domainMoleculeSvc)
	propertyLookup := appPrediction.NewPredictablePropertyLookup(domainMoleculeSvc)
	propertyRecorder := appPrediction.NewPropertyRecorder(domainMoleculeSvc)

	runtime := domainTask.NewRuntime(taskRepo, int(cfg.Worker.RetryDelay.Seconds()), logger)

	domainFingerprintSvc := domainFingerprint.NewService(fingerprintRepo, smilesLookup, logger)
	domainFingerprintSvc.UseIndex(infra.FingerprintIndex, cfg.Milvus.ANNThreshold)
	fingerprintSvc := appFingerprint.NewService(domainFingerprintSvc, logger)

	scheduler := &schedulerHandle{}
	domainPredictionSvc := domainPrediction.NewService(predictionRepo, infra.AIEngine, smilesLookup, propertyLookup, propertyRecorder, scheduler, logger)
	predictionSvc := appPrediction.NewService(domainPredictionSvc, domainMoleculeSvc, logger)

	taskSvc := appTask.NewService(runtime, domainPredictionSvc, predictionRepo, logger)
	scheduler.bind(taskSvc)
	predictionSvc.UseSharder(taskSvc)

	enrichment := appTask.NewEnrichmentSubmitter(domainPredictionSvc, propertyLookup, runtime, "default", "latest")

	domainIngestionSvc := domainIngestion.NewService(ingestionRepo, infra.BlobStore, logger)
	ingestionSvc := appIngestion.NewService(domainIngestionSvc, domainMoleculeSvc, domainFingerprintSvc, logger)
	ingestionSvc.RegisterRunHandler(runtime, enrichment)

	return &Services{
		Runtime:     runtime,
		Molecule:    moleculeSvc,
		Library:     librarySvc,
		Fingerprint: fingerprintSvc,
		Prediction:  predictionSvc,
		Ingestion:   ingestionSvc,
		Task:        taskSvc,
		Enrichment:  enrichment,
	}
}
