package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const extractPath = "/v1/extract"

// Client calls the external vision extraction API over HTTP
type Client struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
	logger *zap.Logger
}

// ClientConfig holds vision client settings
type ClientConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a new vision extraction client
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

type extractRequest struct {
	Model     string `json:"model"`
	MeterType string `json:"meter_type"`
	Image     string `json:"image"`
}

type extractResponse struct {
	Value *json.Number `json:"value"`
	ID    string       `json:"id"`
}

// Extract sends the image to the vision API and parses the reading.
// The response is expected to be a small JSON object with a numeric
// value field and an optional id.
func (c *Client) Extract(ctx context.Context, image []byte, measureType db.MeasureType) (Extraction, error) {
	payload := extractRequest{
		Model:     c.model,
		MeterType: string(measureType),
		Image:     base64.StdEncoding.EncodeToString(image),
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return Extraction{}, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+extractPath, &buf)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("vision API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Extraction{}, fmt.Errorf("vision API status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Extraction{}, fmt.Errorf("failed to decode vision API response: %w", err)
	}

	if out.Value == nil {
		return Extraction{}, fmt.Errorf("vision API response missing value field")
	}

	value, err := decimal.NewFromString(out.Value.String())
	if err != nil {
		return Extraction{}, fmt.Errorf("vision API returned non-numeric value '%s': %w", out.Value.String(), err)
	}

	c.logger.Debug("vision extraction completed",
		zap.String("meter_type", string(measureType)),
		zap.String("value", value.String()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return Extraction{Value: value, ID: out.ID}, nil
}
