// Package calendar mirrors task due windows to an external calendar
// service. Sync intents are recorded in an outbox inside the task
// transaction and dispatched after commit; a calendar failure never
// fails or rolls back the task write.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EventMetadata ties an external event back to the task it mirrors.
type EventMetadata struct {
	TaskID       int64  `json:"task_id"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// Event is the payload sent to the external calendar. EndAt is always
// StartAt plus the fixed event length from policy.
type Event struct {
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	StartAt        time.Time     `json:"start_at"`
	EndAt          time.Time     `json:"end_at"`
	RecurrenceRule *string       `json:"recurrence_rule,omitempty"`
	Metadata       EventMetadata `json:"metadata"`
}

// Adapter is the external calendar contract. The calendar owns its own
// event ID space.
type Adapter interface {
	Create(ctx context.Context, event Event) (string, error)
	Update(ctx context.Context, externalID string, event Event) error
	Delete(ctx context.Context, externalID string) error
}

// HTTPAdapter talks JSON to a calendar service.
type HTTPAdapter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAdapter creates an adapter for the given base URL.
func NewHTTPAdapter(baseURL string) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *HTTPAdapter) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal event: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("calendar responded %d for %s %s", resp.StatusCode, method, path)
	}
	return resp, nil
}

// Create registers a new event and returns the calendar's ID for it.
func (a *HTTPAdapter) Create(ctx context.Context, event Event) (string, error) {
	resp, err := a.do(ctx, http.MethodPost, "/events", event)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("calendar returned empty event id")
	}
	return created.ID, nil
}

// Update replaces an existing event's fields.
func (a *HTTPAdapter) Update(ctx context.Context, externalID string, event Event) error {
	resp, err := a.do(ctx, http.MethodPut, "/events/"+externalID, event)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Delete removes an event.
func (a *HTTPAdapter) Delete(ctx context.Context, externalID string) error {
	resp, err := a.do(ctx, http.MethodDelete, "/events/"+externalID, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
