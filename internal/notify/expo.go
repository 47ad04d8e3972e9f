// Package notify holds the outbound delivery transports: the Expo push API and SMTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultExpoEndpoint is Expo's public push API.
const DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

// MaxBatchSize is the largest message list Expo accepts per request.
const MaxBatchSize = 100

// PushMessage is one device-addressed push.
type PushMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Sound string         `json:"sound,omitempty"`
	Data  map[string]any `json:"data"`
}

// PushResult is the per-message outcome, index-aligned with the request.
type PushResult struct {
	OK      bool
	Status  string
	Message string
	Error   string
}

// DeviceGone reports whether the token should no longer be used.
func (r PushResult) DeviceGone() bool {
	if r.Error == "DeviceNotRegistered" {
		return true
	}
	msg := strings.ToLower(r.Message)
	return strings.Contains(msg, "devicenotregistered") || strings.Contains(msg, "device not registered")
}

// PushSender delivers batches of push messages.
type PushSender interface {
	SendBatch(ctx context.Context, messages []PushMessage) ([]PushResult, error)
}

// ExpoClient posts messages to the Expo push API.
type ExpoClient struct {
	endpoint    string
	accessToken string
	http        *http.Client
}

// NewExpoClient builds a client. An empty endpoint uses DefaultExpoEndpoint.
func NewExpoClient(endpoint, accessToken string, timeout time.Duration) *ExpoClient {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultExpoEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoClient{
		endpoint:    endpoint,
		accessToken: strings.TrimSpace(accessToken),
		http:        &http.Client{Timeout: timeout},
	}
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data   []expoTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// SendBatch sends up to MaxBatchSize messages in one request. Larger lists are split.
func (c *ExpoClient) SendBatch(ctx context.Context, messages []PushMessage) ([]PushResult, error) {
	results := make([]PushResult, 0, len(messages))
	for start := 0; start < len(messages); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(messages))
		chunk, err := c.send(ctx, messages[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (c *ExpoClient) send(ctx context.Context, messages []PushMessage) ([]PushResult, error) {
	payload := make([]PushMessage, len(messages))
	for i, m := range messages {
		if m.Sound == "" {
			m.Sound = "default"
		}
		if m.Data == nil {
			m.Data = map[string]any{}
		}
		payload[i] = m
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("expo push returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded expoResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode expo response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("expo push rejected request: %s", decoded.Errors[0].Message)
	}

	results := make([]PushResult, len(messages))
	for i := range results {
		if i >= len(decoded.Data) {
			results[i] = PushResult{Status: "error", Message: "missing ticket in response"}
			continue
		}
		ticket := decoded.Data[i]
		results[i] = PushResult{
			OK:      strings.EqualFold(ticket.Status, "ok"),
			Status:  ticket.Status,
			Message: ticket.Message,
			Error:   ticket.Details.Error,
		}
	}
	return results, nil
}

// NoopPushSender accepts every message without sending it.
type NoopPushSender struct{}

func (NoopPushSender) SendBatch(_ context.Context, messages []PushMessage) ([]PushResult, error) {
	results := make([]PushResult, len(messages))
	for i := range results {
		results[i] = PushResult{OK: true, Status: "ok"}
	}
	return results, nil
}
