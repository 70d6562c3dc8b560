// Package client is the HTTP implementation of portal.EvidenceAPI. It
// speaks the backend's JSON envelope and maps error responses to Go
// errors carrying the backend's error code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chagok-backend/models"
	"chagok-backend/portal"

	"github.com/google/uuid"
)

// Client calls the evidence backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ portal.EvidenceAPI = (*Client)(nil)

// Option is a functional option for Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the backend at baseURL, e.g. "http://localhost:8080"
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a backend-reported failure, preserving the machine
// readable code alongside the message
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// envelope is the backend's uniform response shape
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues one request and decodes the envelope. out may be nil when
// the caller does not need the data payload.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: "request failed"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// FetchEvidenceStates returns the state of every evidence record in the
// case in one batch
func (c *Client) FetchEvidenceStates(ctx context.Context, caseID uuid.UUID) ([]*models.Evidence, error) {
	var states []*models.Evidence
	path := fmt.Sprintf("/api/cases/%s/evidence/states", caseID)
	if err := c.do(ctx, http.MethodGet, path, nil, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// RetryEvidence re-queues a failed evidence item
func (c *Client) RetryEvidence(ctx context.Context, evidenceID uuid.UUID) (models.EvidenceStatus, error) {
	var data struct {
		Status models.EvidenceStatus `json:"status"`
	}
	path := fmt.Sprintf("/api/evidence/%s/retry", evidenceID)
	if err := c.do(ctx, http.MethodPost, path, nil, &data); err != nil {
		return "", err
	}
	return data.Status, nil
}

// GenerateDraft requests a new draft citing the selected evidence. The
// call blocks until generation finishes.
func (c *Client) GenerateDraft(ctx context.Context, caseID uuid.UUID, evidenceIDs []uuid.UUID) (*models.DraftState, error) {
	ids := make([]string, len(evidenceIDs))
	for i, id := range evidenceIDs {
		ids[i] = id.String()
	}

	var draft models.DraftState
	path := fmt.Sprintf("/api/cases/%s/draft", caseID)
	body := map[string]interface{}{"evidence_ids": ids}
	if err := c.do(ctx, http.MethodPost, path, body, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// DeleteEvidence removes an evidence record and its artifact
func (c *Client) DeleteEvidence(ctx context.Context, evidenceID uuid.UUID) error {
	path := fmt.Sprintf("/api/evidence/%s", evidenceID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
