package common

// CollectionSchema describes a vector collection to create. Fields holds
// engine-native field descriptors (e.g. *entity.Field for Milvus) as
// interface{} so this package stays free of a Milvus SDK import.
type CollectionSchema struct {
	Name               string
	Description        string
	Fields             []interface{}
	EnableDynamicField bool
}

// IndexConfig describes a single-field index to build on a collection.
type IndexConfig struct {
	FieldName  string
	IndexType  string
	MetricType string
}

// InsertRequest is a batch of rows to insert or upsert into a collection.
// Each row is a column-name-keyed map; vector columns carry []float32 (or
// []interface{} of float64, for callers that built the row from JSON).
type InsertRequest struct {
	CollectionName string
	Data           []map[string]interface{}
}

// InsertResult reports the outcome of an Insert/Upsert call.
type InsertResult struct {
	InsertedCount int64
	IDs           []int64
}

// VectorSearchRequest is a (possibly batched) nearest-neighbor query.
type VectorSearchRequest struct {
	CollectionName      string
	VectorFieldName     string
	Vectors             [][]float32
	TopK                int
	SearchParams        map[string]interface{}
	Filters             string
	OutputFields        []string
	MetricType          string
	GuaranteeTimestamp  uint64
}

// VectorSearchResult holds one hit-list per query vector in the request.
type VectorSearchResult struct {
	TookMs  int64
	Results [][]VectorHit
}

// VectorHit is a single match from a vector search.
type VectorHit struct {
	ID     int64
	Score  float32
	Fields map[string]interface{}
}

// IndexMapping describes a text-search index's settings and field mappings.
type IndexMapping struct {
	Settings map[string]interface{}
	Mappings map[string]interface{}
}

// BulkResult reports the outcome of a bulk document-index call.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

// BulkItemError is one failed document within a bulk index call.
type BulkItemError struct {
	DocID     string
	ErrorType string
	Reason    string
}
