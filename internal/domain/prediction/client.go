package prediction

import (
	"context"

	"github.com/moldex-io/moldex/pkg/errors"
)

// SubmitRequest is the wire payload for Client.Submit, per spec §4.5's
// /predictions POST contract.
type SubmitRequest struct {
	MoleculeSMILES []string
	Properties     []string
	ModelName      string
	ModelVersion   string
}

// SubmitResponse carries the upstream job id assigned to an accepted batch.
type SubmitResponse struct {
	ExternalJobID string
}

// JobState mirrors the upstream engine's own status vocabulary for a
// submitted job, distinct from BatchStatus (our local state machine).
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// StatusResponse is the result of Client.GetStatus.
type StatusResponse struct {
	State          JobState
	CompletedCount int
	FailedCount    int
	ErrorMessage   string
}

// ResultItem is one (molecule, property) outcome within a ResultsResponse.
type ResultItem struct {
	MoleculeSMILES string
	PropertyName   string
	Value          Value
	Confidence     float64
	Units          string
	ErrorMessage   string
}

// ResultsResponse is the result of Client.GetResults.
type ResultsResponse struct {
	Items []ResultItem
}

// ModelInfo describes one model the upstream engine exposes, per the
// /models endpoint.
type ModelInfo struct {
	Name              string
	Version           string
	SupportedProperties []string
}

// Client is the C5 Prediction Client contract: a thin, side-effect-aware
// wrapper over the external AI engine's HTTP API. A wired implementation
// (internal/infrastructure/aiengine) adds timeouts, retries, and a circuit
// breaker; Client itself only describes the operations, per spec §4.5.
type Client interface {
	// Submit posts a new prediction job for req's molecules/properties and
	// returns the upstream job id.
	Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error)

	// GetStatus polls a previously submitted job's progress.
	GetStatus(ctx context.Context, externalJobID string) (StatusResponse, error)

	// GetResults fetches the per-(molecule,property) results of a completed
	// job.
	GetResults(ctx context.Context, externalJobID string) (ResultsResponse, error)

	// Cancel requests upstream cancellation of a job. A wired
	// implementation treats a 404 (job already finished) as success.
	Cancel(ctx context.Context, externalJobID string) error

	// ListModels returns the models the engine currently serves.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Health checks upstream reachability, used by the circuit breaker and
	// readiness probes.
	Health(ctx context.Context) error
}

// MapHTTPError translates an upstream HTTP status code (and, for network
// failures, a sentinel below) into the matching AppError code, per spec
// §4.5's error mapping table.
func MapHTTPError(statusCode int, body string) *errors.AppError {
	switch statusCode {
	case 400:
		return errors.New(errors.CodeInvalidPredictionParameters, "upstream rejected prediction parameters").WithDetail("body", body)
	case 404:
		return errors.New(errors.CodePredictionJobNotFound, "upstream prediction job not found")
	case 429:
		return errors.New(errors.CodeRateLimited, "upstream rate limit exceeded")
	case 503:
		return errors.New(errors.CodeServiceUnavailable, "upstream prediction service unavailable")
	default:
		return errors.New(errors.CodeUpstreamError, "upstream prediction error").
			WithDetail("status", statusCode).WithDetail("body", body)
	}
}

// ErrTimeout and ErrConnectionFailed are returned by a wired Client
// implementation for request timeouts and transport-level connection
// failures respectively, ahead of any HTTP status code being available.
func ErrTimeout(cause error) *errors.AppError {
	return errors.New(errors.CodeTimeout, "prediction request timed out").WithCause(cause)
}

func ErrConnectionFailed(cause error) *errors.AppError {
	return errors.New(errors.CodeConnectionFailed, "failed to reach prediction service").WithCause(cause)
}
