// Package suggest talks to the external scheduling service and merges its
// proposed start times into the task collection.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
)

var (
	// ErrDisabled is returned when no endpoint is configured.
	ErrDisabled = errors.New("scheduling suggestions are not configured")
	// ErrBusy is returned while another optimization is in flight.
	ErrBusy = errors.New("an optimization is already running")
	// ErrNoSuggestions means the service answered with nothing usable.
	ErrNoSuggestions = errors.New("no usable suggestions returned")
)

const defaultTimeout = 30 * time.Second

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// DigestItem is what the service learns about each task.
type DigestItem struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Priority model.Priority `json:"priority"`
}

type request struct {
	Date  model.Date   `json:"date"`
	Tasks []DigestItem `json:"tasks"`
}

// Digest reduces tasks to the fields sent to the service.
func Digest(tasks []model.Task) []DigestItem {
	out := make([]DigestItem, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, DigestItem{ID: t.ID, Title: t.Title, Priority: t.Priority})
	}
	return out
}

// Client posts a task digest to a JSON endpoint and decodes the proposed
// start times.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a Client. An empty endpoint yields a client whose
// Suggest always returns ErrDisabled. timeout <= 0 selects 30s.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Suggest sends the digest of tasks together with the reference date.
//
// The response is either a JSON array of suggestions or an object with a
// "suggestions" array.
func (c *Client) Suggest(ctx context.Context, date model.Date, tasks []model.Task) ([]model.Suggestion, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, err := json.Marshal(request{Date: date, Tasks: Digest(tasks)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	appLog.Info("suggest request start", "tasks", len(tasks), "date", date.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggest request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("suggest read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest service: %s", resp.Status)
	}

	suggestions, err := decodeSuggestions(data)
	if err != nil {
		return nil, fmt.Errorf("suggest decode: %w", err)
	}

	appLog.Info("suggest request done",
		"status", resp.StatusCode,
		"suggestions", len(suggestions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return suggestions, nil
}

func decodeSuggestions(data []byte) ([]model.Suggestion, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '{' {
		var wrapped struct {
			Suggestions []model.Suggestion `json:"suggestions"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Suggestions, nil
	}
	var list []model.Suggestion
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
