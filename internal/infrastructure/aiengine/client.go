// Package aiengine implements domain/prediction.Client against the external
// AI inference engine's HTTP API: JSON request/response, retry with
// exponential backoff and jitter, and an optional circuit breaker, grounded
// on the teacher SDK's pkg/client package.
package aiengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moldex-io/moldex/internal/domain/prediction"
	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/errors"
)

// Client implements prediction.Client over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logging.Logger

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	breaker *circuitBreaker
}

var _ prediction.Client = (*Client)(nil)

// NewClient builds a Client against baseURL ("http://host:port"), applying
// opts in order over the defaults.
func NewClient(baseURL string, logger logging.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.CodeValidation, "baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.New(errors.CodeValidation, "baseURL must be a valid http(s) URL")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		logger:       logger,
		retryMax:     DefaultRetryMax,
		retryWaitMin: DefaultRetryWaitMin,
		retryWaitMax: DefaultRetryWaitMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type submitRequestBody struct {
	Smiles       []string `json:"smiles"`
	Properties   []string `json:"properties"`
	ModelName    string   `json:"model_name,omitempty"`
	ModelVersion string   `json:"model_version,omitempty"`
}

type submitResponseBody struct {
	JobID string `json:"job_id"`
}

// Submit implements prediction.Client.
func (c *Client) Submit(ctx context.Context, req prediction.SubmitRequest) (prediction.SubmitResponse, error) {
	body := submitRequestBody{
		Smiles:       req.MoleculeSMILES,
		Properties:   req.Properties,
		ModelName:    req.ModelName,
		ModelVersion: req.ModelVersion,
	}
	var resp submitResponseBody
	if err := c.do(ctx, http.MethodPost, "/v1/predictions", body, &resp); err != nil {
		return prediction.SubmitResponse{}, err
	}
	return prediction.SubmitResponse{ExternalJobID: resp.JobID}, nil
}

type statusResponseBody struct {
	State          string `json:"state"`
	CompletedCount int    `json:"completed_count"`
	FailedCount    int    `json:"failed_count"`
	ErrorMessage   string `json:"error_message"`
}

// GetStatus implements prediction.Client.
func (c *Client) GetStatus(ctx context.Context, externalJobID string) (prediction.StatusResponse, error) {
	var resp statusResponseBody
	path := fmt.Sprintf("/v1/predictions/%s/status", externalJobID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return prediction.StatusResponse{}, err
	}
	return prediction.StatusResponse{
		State:          prediction.JobState(resp.State),
		CompletedCount: resp.CompletedCount,
		FailedCount:    resp.FailedCount,
		ErrorMessage:   resp.ErrorMessage,
	}, nil
}

type resultItemBody struct {
	Smiles       string      `json:"smiles"`
	Property     string      `json:"property"`
	Value        interface{} `json:"value"`
	Confidence   float64     `json:"confidence"`
	Units        string      `json:"units"`
	ErrorMessage string      `json:"error_message"`
}

type resultsResponseBody struct {
	Items []resultItemBody `json:"items"`
}

// GetResults implements prediction.Client.
func (c *Client) GetResults(ctx context.Context, externalJobID string) (prediction.ResultsResponse, error) {
	var resp resultsResponseBody
	path := fmt.Sprintf("/v1/predictions/%s/results", externalJobID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return prediction.ResultsResponse{}, err
	}

	items := make([]prediction.ResultItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		items = append(items, prediction.ResultItem{
			MoleculeSMILES: item.Smiles,
			PropertyName:   item.Property,
			Value:          decodeValue(item.Value),
			Confidence:     item.Confidence,
			Units:          item.Units,
			ErrorMessage:   item.ErrorMessage,
		})
	}
	return prediction.ResultsResponse{Items: items}, nil
}

// decodeValue maps a JSON-decoded interface{} onto prediction's tagged-union
// Value, using the Go type json.Unmarshal produced for untyped interfaces.
func decodeValue(v interface{}) prediction.Value {
	switch val := v.(type) {
	case float64:
		return prediction.FloatValue(val)
	case bool:
		return prediction.BoolValue(val)
	case string:
		return prediction.StringValue(val)
	default:
		return prediction.StringValue(fmt.Sprintf("%v", val))
	}
}

// Cancel implements prediction.Client, treating an upstream 404 (job already
// finished) as success.
func (c *Client) Cancel(ctx context.Context, externalJobID string) error {
	path := fmt.Sprintf("/v1/predictions/%s", externalJobID)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.IsCode(err, errors.CodePredictionJobNotFound) {
		return nil
	}
	return err
}

type modelInfoBody struct {
	Name                string   `json:"name"`
	Version             string   `json:"version"`
	SupportedProperties []string `json:"supported_properties"`
}

// ListModels implements prediction.Client.
func (c *Client) ListModels(ctx context.Context) ([]prediction.ModelInfo, error) {
	var resp []modelInfoBody
	if err := c.do(ctx, http.MethodGet, "/v1/models", nil, &resp); err != nil {
		return nil, err
	}
	models := make([]prediction.ModelInfo, 0, len(resp))
	for _, m := range resp {
		models = append(models, prediction.ModelInfo{
			Name:                m.Name,
			Version:             m.Version,
			SupportedProperties: m.SupportedProperties,
		})
	}
	return models, nil
}

// Health implements prediction.Client.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// do performs a JSON HTTP request with circuit-breaker gating and
// exponential-backoff retry on network errors and 5xx responses.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	if c.breaker != nil && !c.breaker.allow() {
		return errors.New(errors.CodeServiceUnavailable, "prediction engine circuit breaker open")
	}

	var bodyBytes []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CodeSerializationError, "failed to marshal request body")
		}
		bodyBytes = encoded
	}

	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return prediction.ErrTimeout(ctx.Err())
			}
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return errors.Wrap(err, errors.CodeUnexpectedError, "failed to build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", uuid.New().String())
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = prediction.ErrConnectionFailed(err)
			c.breaker.recordFailure()
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return errors.Wrap(readErr, errors.CodeUnexpectedError, "failed to read response body")
		}

		if resp.StatusCode >= 500 {
			lastErr = prediction.MapHTTPError(resp.StatusCode, string(respBody))
			c.breaker.recordFailure()
			continue
		}
		if resp.StatusCode >= 400 {
			c.breaker.recordSuccess()
			return prediction.MapHTTPError(resp.StatusCode, string(respBody))
		}

		c.breaker.recordSuccess()
		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return errors.Wrap(err, errors.CodeSerializationError, "failed to decode response body")
			}
		}
		return nil
	}

	return lastErr
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(int64(1)<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))
	return backoff + jitter
}
