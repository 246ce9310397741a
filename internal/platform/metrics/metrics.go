package metrics

import (
	"time"
)

// AppMetrics holds every metric emitted across moldex's seven components.
type AppMetrics struct {
	// Structure Engine (C1)
	StructureParseTotal       CounterVec
	StructureParseDuration    HistogramVec
	FingerprintComputeTotal   CounterVec
	FingerprintComputeDuration HistogramVec

	// Molecule Store (C2)
	MoleculeCreateTotal    CounterVec
	MoleculeCreateDuration HistogramVec
	MoleculeStoreSize      GaugeVec
	MoleculeFilterDuration HistogramVec

	// Fingerprint Index (C3)
	SimilaritySearchTotal    CounterVec
	SimilaritySearchDuration HistogramVec
	SubstructureSearchTotal  CounterVec
	ANNDelegationTotal       CounterVec

	// Ingestion Pipeline (C4)
	IngestionJobsTotal      CounterVec
	IngestionJobDuration    HistogramVec
	IngestionRowsProcessed  CounterVec
	IngestionRowErrors      CounterVec
	IngestionActiveJobs     GaugeVec

	// Prediction Client (C5)
	PredictionRequestsTotal   CounterVec
	PredictionRequestDuration HistogramVec
	CircuitBreakerState       GaugeVec
	CircuitBreakerTrips       CounterVec

	// Prediction Orchestrator (C6)
	PredictionBatchTotal    CounterVec
	PredictionBatchDuration HistogramVec
	PredictionRetries       CounterVec

	// Task Runtime (C7)
	TaskEnqueuedTotal    CounterVec
	TaskProcessedTotal   CounterVec
	TaskProcessDuration  HistogramVec
	TaskQueueDepth       GaugeVec
	TaskDeadLettered     CounterVec
	WorkerActiveCount    GaugeVec

	// Infrastructure
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	ErrorsTotal            CounterVec
}

// Default Buckets
var (
	DefaultFastDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultJobDurationBuckets   = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}
	DefaultPredictionBuckets    = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultRowCountBuckets      = []float64{0, 10, 100, 1000, 10000, 100000, 500000}
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers every moldex metric against collector and returns
// the populated AppMetrics struct.
func NewAppMetrics(collector Collector) *AppMetrics {
	m := &AppMetrics{}

	// Structure Engine
	m.StructureParseTotal = collector.RegisterCounter("structure_parse_total", "SMILES parse attempts", "status")
	m.StructureParseDuration = collector.RegisterHistogram("structure_parse_duration_seconds", "SMILES parse duration", DefaultFastDurationBuckets)
	m.FingerprintComputeTotal = collector.RegisterCounter("fingerprint_compute_total", "Fingerprint computations", "type")
	m.FingerprintComputeDuration = collector.RegisterHistogram("fingerprint_compute_duration_seconds", "Fingerprint computation duration", DefaultFastDurationBuckets, "type")

	// Molecule Store
	m.MoleculeCreateTotal = collector.RegisterCounter("molecule_create_total", "Molecule creations", "status")
	m.MoleculeCreateDuration = collector.RegisterHistogram("molecule_create_duration_seconds", "Molecule create_from_smiles duration", DefaultFastDurationBuckets)
	m.MoleculeStoreSize = collector.RegisterGauge("molecule_store_size", "Total molecules in the store")
	m.MoleculeFilterDuration = collector.RegisterHistogram("molecule_filter_duration_seconds", "filter() query duration", DefaultDBDurationBuckets)

	// Fingerprint Index
	m.SimilaritySearchTotal = collector.RegisterCounter("similarity_search_total", "similarity_search invocations", "backend")
	m.SimilaritySearchDuration = collector.RegisterHistogram("similarity_search_duration_seconds", "similarity_search duration", DefaultFastDurationBuckets, "backend")
	m.SubstructureSearchTotal = collector.RegisterCounter("substructure_search_total", "has_substructure invocations", "status")
	m.ANNDelegationTotal = collector.RegisterCounter("ann_delegation_total", "Searches delegated to the Milvus ANN backend")

	// Ingestion Pipeline
	m.IngestionJobsTotal = collector.RegisterCounter("ingestion_jobs_total", "CSV ingestion jobs", "status")
	m.IngestionJobDuration = collector.RegisterHistogram("ingestion_job_duration_seconds", "Ingestion job end-to-end duration", DefaultJobDurationBuckets)
	m.IngestionRowsProcessed = collector.RegisterCounter("ingestion_rows_processed_total", "CSV rows processed", "status")
	m.IngestionRowErrors = collector.RegisterCounter("ingestion_row_errors_total", "CSV rows rejected", "reason")
	m.IngestionActiveJobs = collector.RegisterGauge("ingestion_active_jobs", "Ingestion jobs currently running")

	// Prediction Client
	m.PredictionRequestsTotal = collector.RegisterCounter("prediction_requests_total", "AI engine prediction requests", "status")
	m.PredictionRequestDuration = collector.RegisterHistogram("prediction_request_duration_seconds", "AI engine round-trip duration", DefaultPredictionBuckets)
	m.CircuitBreakerState = collector.RegisterGauge("circuit_breaker_state", "Circuit breaker state (0=closed,1=half_open,2=open)", "target")
	m.CircuitBreakerTrips = collector.RegisterCounter("circuit_breaker_trips_total", "Circuit breaker open transitions", "target")

	// Prediction Orchestrator
	m.PredictionBatchTotal = collector.RegisterCounter("prediction_batch_total", "Prediction batches submitted", "status")
	m.PredictionBatchDuration = collector.RegisterHistogram("prediction_batch_duration_seconds", "Prediction batch wall-clock duration", DefaultJobDurationBuckets)
	m.PredictionRetries = collector.RegisterCounter("prediction_retries_total", "Prediction batch retry attempts", "reason")

	// Task Runtime
	m.TaskEnqueuedTotal = collector.RegisterCounter("task_enqueued_total", "Tasks enqueued", "queue")
	m.TaskProcessedTotal = collector.RegisterCounter("task_processed_total", "Tasks processed", "queue", "status")
	m.TaskProcessDuration = collector.RegisterHistogram("task_process_duration_seconds", "Task handler duration", DefaultFastDurationBuckets, "queue")
	m.TaskQueueDepth = collector.RegisterGauge("task_queue_depth", "Observed queue depth", "queue")
	m.TaskDeadLettered = collector.RegisterCounter("task_dead_lettered_total", "Tasks routed to the dead-letter topic", "queue")
	m.WorkerActiveCount = collector.RegisterGauge("worker_active_count", "Active worker goroutines")

	// Infrastructure
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// RecordStructureParse records a single SMILES parse attempt.
func RecordStructureParse(m *AppMetrics, ok bool, duration time.Duration) {
	status := "ok"
	if !ok {
		status = "invalid"
	}
	m.StructureParseTotal.WithLabelValues(status).Inc()
	m.StructureParseDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordIngestionJob records the terminal outcome of a single ingestion job.
func RecordIngestionJob(m *AppMetrics, status string, duration time.Duration, rowsOK, rowsFailed int) {
	m.IngestionJobsTotal.WithLabelValues(status).Inc()
	m.IngestionJobDuration.WithLabelValues().Observe(duration.Seconds())
	m.IngestionRowsProcessed.WithLabelValues("accepted").Add(float64(rowsOK))
	m.IngestionRowsProcessed.WithLabelValues("rejected").Add(float64(rowsFailed))
}

// RecordPredictionRequest records a single AI engine round trip.
func RecordPredictionRequest(m *AppMetrics, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.PredictionRequestsTotal.WithLabelValues(status).Inc()
	m.PredictionRequestDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordDBQuery records a single database operation.
func RecordDBQuery(m *AppMetrics, operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues("database", "query_error").Inc()
	}
}

// RecordCacheAccess records a single cache lookup.
func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordError increments the generic error counter.
func RecordError(m *AppMetrics, component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
