package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const captureTimeout = 3 * time.Second

var _ Tracker = (*CaptureClient)(nil)

// CaptureClient posts events to a PostHog-style /capture endpoint.
type CaptureClient struct {
	host   string
	apiKey string
	client *http.Client
}

func NewCaptureClient(host, apiKey string) *CaptureClient {
	return &CaptureClient{
		host:   host,
		apiKey: apiKey,
		client: &http.Client{Timeout: captureTimeout},
	}
}

type captureRequest struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

func (c *CaptureClient) Track(ctx context.Context, distinctID, event string, properties map[string]any) error {
	payload, err := json.Marshal(captureRequest{
		APIKey:     c.apiKey,
		Event:      event,
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "[CaptureClient.Track] encode")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/capture", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "[CaptureClient.Track] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[CaptureClient.Track] request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("[CaptureClient.Track] status %d", resp.StatusCode)
	}
	return nil
}
