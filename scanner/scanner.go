// Package scanner calls the external image attribute extraction API: given
// a photo of a packaged cut, it returns a best-effort guess of the item
// name, category and printed expiry date. Best-effort means exactly that —
// callers treat failures as retryable and nothing here touches store state.
package scanner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable marks transient upstream failures the user may retry.
var ErrUnavailable = errors.New("scan service unavailable")

// ScanResult is the extracted attribute shape. ExpiryDate is YYYY-MM-DD when
// a date was visible on the label, empty otherwise.
type ScanResult struct {
	ItemName   string `json:"itemName"`
	Category   string `json:"category"`
	ExpiryDate string `json:"expiryDate,omitempty"`
}

type scanRequest struct {
	PhotoDataURI string `json:"photoDataUri"`
}

type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	log        *zap.Logger
}

func NewClient(endpoint, apiKey string, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
		log:        log,
	}
}

// Classify sends the image and decodes the extracted attributes. There is no
// retry here; the caller retries manually if at all.
func (c *Client) Classify(ctx context.Context, image []byte, contentType string) (*ScanResult, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))
	body, err := json.Marshal(scanRequest{PhotoDataURI: dataURI})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("scan service rejected request", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scan response: %w", err)
	}
	if result.ItemName == "" {
		return nil, fmt.Errorf("%w: empty extraction result", ErrUnavailable)
	}
	return &result, nil
}

// ParseExpiry converts the extracted YYYY-MM-DD string to a local-midnight
// time, mirroring how a manually entered expiry date is interpreted.
func ParseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date %q: %w", s, err)
	}
	return &t, nil
}
