// Package prediction implements the Prediction Client (C5) and Prediction
// Orchestrator (C6): submitting molecule/property batches to an external AI
// engine, tracking the resulting PredictionBatch and per-molecule Prediction
// rows through their state machines, and exposing a bounded-retry polling
// contract for the Task Runtime (C7) to drive.
package prediction

import (
	"strings"
	"time"

	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// MaxBatchSize is the largest molecule/property cross-product a single
// upstream submission may carry; larger requests are sharded across
// multiple PredictionBatch rows.
const MaxBatchSize = 100

// PollInterval is how long the Task Runtime waits between status polls of a
// PROCESSING batch.
const PollInterval = 30 // seconds, kept as an int to avoid importing time in task payloads

// MaxPollRetries bounds the number of consecutive transient polling errors
// tolerated before a batch is forced to FAILED.
const MaxPollRetries = 5

// BatchStatus is a PredictionBatch's lifecycle state, per spec §4.6.
type BatchStatus string

const (
	BatchPending    BatchStatus = "PENDING"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchCompleted  BatchStatus = "COMPLETED"
	BatchFailed     BatchStatus = "FAILED"
)

// PredictionStatus is a single Prediction row's lifecycle state.
type PredictionStatus string

const (
	PredictionPending    PredictionStatus = "PENDING"
	PredictionProcessing PredictionStatus = "PROCESSING"
	PredictionCompleted  PredictionStatus = "COMPLETED"
	PredictionFailed     PredictionStatus = "FAILED"
)

// ValueKind tags which field of a Value is populated. Prediction values are
// not uniformly numeric (a model may return a class label or a flag), so the
// wire and persisted representation is a tagged union rather than a single
// float64, narrowed to a concrete Go type only at the MoleculeProperty
// persistence boundary (application/prediction).
type ValueKind string

const (
	ValueKindFloat  ValueKind = "float"
	ValueKindInt    ValueKind = "int"
	ValueKindString ValueKind = "string"
	ValueKindBool   ValueKind = "bool"
)

// Value is a tagged-union prediction result value.
type Value struct {
	Kind   ValueKind
	Float  float64
	Int    int64
	String string
	Bool   bool
}

// FloatValue constructs a float-kind Value.
func FloatValue(v float64) Value { return Value{Kind: ValueKindFloat, Float: v} }

// IntValue constructs an int-kind Value.
func IntValue(v int64) Value { return Value{Kind: ValueKindInt, Int: v} }

// StringValue constructs a string-kind Value.
func StringValue(v string) Value { return Value{Kind: ValueKindString, String: v} }

// BoolValue constructs a bool-kind Value.
func BoolValue(v bool) Value { return Value{Kind: ValueKindBool, Bool: v} }

// Raw unwraps v to the bare Go value matching its Kind, for callers (e.g. the
// MoleculeProperty persistence boundary) that need an `any`.
func (v Value) Raw() any {
	switch v.Kind {
	case ValueKindFloat:
		return v.Float
	case ValueKindInt:
		return v.Int
	case ValueKindBool:
		return v.Bool
	default:
		return v.String
	}
}

// PredictionBatch is the C6 aggregate tracking one submission of molecules x
// properties to the external AI engine, per spec §3.
type PredictionBatch struct {
	ID             common.ID
	MoleculeIDs    []common.ID
	Properties     []string
	ModelName      string
	ModelVersion   string
	Status         BatchStatus
	ExternalJobID  string
	TotalCount     int
	CompletedCount int
	FailedCount    int
	ErrorMessage   string
	PollAttempts   int
	CreatedBy      common.ID
	CreatedAt      common.Timestamp
	UpdatedAt      common.Timestamp
}

// NewBatch validates and constructs a PredictionBatch in the PENDING state.
// Callers are responsible for sharding moleculeIDs to at most MaxBatchSize
// entries before calling NewBatch (see Service.Submit).
func NewBatch(moleculeIDs []common.ID, properties []string, modelName, modelVersion string, createdBy common.ID) (*PredictionBatch, error) {
	if len(moleculeIDs) == 0 {
		return nil, errors.InvalidParam("prediction batch requires at least one molecule")
	}
	if len(properties) == 0 {
		return nil, errors.InvalidParam("prediction batch requires at least one property")
	}
	if len(moleculeIDs) > MaxBatchSize {
		return nil, errors.InvalidParam("prediction batch exceeds the maximum molecule count")
	}
	now := time.Now()
	return &PredictionBatch{
		ID:           common.NewID(),
		MoleculeIDs:  moleculeIDs,
		Properties:   properties,
		ModelName:    modelName,
		ModelVersion: modelVersion,
		Status:       BatchPending,
		TotalCount:   len(moleculeIDs) * len(properties),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// MarkSubmitted transitions PENDING -> PROCESSING once the upstream engine
// has accepted the batch and returned externalJobID.
func (b *PredictionBatch) MarkSubmitted(externalJobID string) error {
	if b.Status != BatchPending {
		return errors.InvalidParam("only a PENDING batch can be marked submitted")
	}
	b.ExternalJobID = externalJobID
	b.Status = BatchProcessing
	b.UpdatedAt = time.Now()
	return nil
}

// RecordProgress folds in newly completed/failed counts as results stream in
// during polling, and transitions to COMPLETED once every item has
// resolved and at least one succeeded, per spec §4.6.
func (b *PredictionBatch) RecordProgress(completed, failed int) {
	b.CompletedCount = completed
	b.FailedCount = failed
	b.UpdatedAt = time.Now()
	if completed+failed >= b.TotalCount {
		if completed > 0 {
			b.Status = BatchCompleted
		} else {
			b.Status = BatchFailed
			b.ErrorMessage = "all predictions failed upstream"
		}
	}
}

// Fail transitions the batch to its terminal failure state with message.
func (b *PredictionBatch) Fail(message string) {
	b.Status = BatchFailed
	b.ErrorMessage = message
	b.UpdatedAt = time.Now()
}

// Cancel force-fails a PENDING or PROCESSING batch, per spec §4.6's
// cancellation contract: stored results so far remain untouched.
func (b *PredictionBatch) Cancel() error {
	if b.Status != BatchPending && b.Status != BatchProcessing {
		return errors.InvalidParam("only a PENDING or PROCESSING batch can be cancelled")
	}
	b.Status = BatchFailed
	b.ErrorMessage = "cancelled by user"
	b.UpdatedAt = time.Now()
	return nil
}

// RetryFromFailed resets a FAILED batch back to PENDING for resubmission.
// Already-completed per-molecule predictions are not recomputed; only the
// outstanding (failed or never-attempted) portion is resubmitted by the
// caller.
func (b *PredictionBatch) RetryFromFailed() error {
	if b.Status != BatchFailed {
		return errors.InvalidParam("only a FAILED batch can be retried")
	}
	b.Status = BatchPending
	b.ExternalJobID = ""
	b.ErrorMessage = ""
	b.PollAttempts = 0
	b.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether b has reached COMPLETED or FAILED.
func (b *PredictionBatch) IsTerminal() bool {
	return b.Status == BatchCompleted || b.Status == BatchFailed
}

// Prediction is one (molecule, property) result owned by a PredictionBatch,
// persisted as a specialized MoleculeProperty with Source=PREDICTED at the
// application boundary.
type Prediction struct {
	ID           common.ID
	BatchID      common.ID
	MoleculeID   common.ID
	PropertyName string
	Value        Value
	Confidence   float64
	Units        string
	ModelName    string
	ModelVersion string
	Status       PredictionStatus
	ErrorMessage string
	CreatedAt    common.Timestamp
	UpdatedAt    common.Timestamp
}

// NewPendingPrediction starts one (molecule, property) slot in PENDING,
// owned by batchID.
func NewPendingPrediction(batchID, moleculeID common.ID, propertyName string) *Prediction {
	now := time.Now()
	return &Prediction{
		ID:           common.NewID(),
		BatchID:      batchID,
		MoleculeID:   moleculeID,
		PropertyName: propertyName,
		Status:       PredictionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Complete fills in a successful upstream result.
func (p *Prediction) Complete(value Value, confidence float64, units, modelName, modelVersion string) error {
	if confidence < 0 || confidence > 1 {
		return errors.InvalidParam("prediction confidence must be within [0, 1]")
	}
	p.Value = value
	p.Confidence = confidence
	p.Units = units
	p.ModelName = modelName
	p.ModelVersion = modelVersion
	p.Status = PredictionCompleted
	p.UpdatedAt = time.Now()
	return nil
}

// Fail records an upstream failure for this single prediction.
func (p *Prediction) Fail(message string) {
	p.Status = PredictionFailed
	p.ErrorMessage = message
	p.UpdatedAt = time.Now()
}

// IsCustomProperty mirrors domain/molecule's rule locally: a property name
// starting with "custom_" has no PropertyDefinition and is never eligible
// for prediction (the predictable set is always a subset of declared,
// non-custom properties).
func IsCustomProperty(name string) bool {
	return strings.HasPrefix(name, "custom_")
}
