package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

const (
	forecastPath    = "/api/http_trigger"
	chartBundlePath = "/api/data_pull_http_trigger"

	// The remote function app cold-starts; timeouts are deliberately generous.
	connectTimeout = 15 * time.Second
	readTimeout    = 45 * time.Second
)

// RemoteClient is the typed HTTP interface to the prediction/aggregation
// service. It performs no retries; retry policy belongs to callers.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRemoteClient builds a client over the fixed base URL.
func NewRemoteClient(baseURL string, logger *zap.Logger) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		logger: logger,
	}
}

// FetchForecast requests a forecast covering the given number of days.
func (r *RemoteClient) FetchForecast(ctx context.Context, days float64) (*models.ForecastBundle, error) {
	body, err := json.Marshal(map[string]float64{"days": days})
	if err != nil {
		return nil, fmt.Errorf("marshal forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+forecastPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var bundle models.ForecastBundle
	if err := r.do(req, &bundle); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	return &bundle, nil
}

// FetchChartBundle requests the current historical/predictive sample bundle.
func (r *RemoteClient) FetchChartBundle(ctx context.Context) (*models.ChartBundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+chartBundlePath, nil)
	if err != nil {
		return nil, fmt.Errorf("create chart request: %w", err)
	}

	var bundle models.ChartBundle
	if err := r.do(req, &bundle); err != nil {
		return nil, fmt.Errorf("fetch chart bundle: %w", err)
	}
	return &bundle, nil
}

func (r *RemoteClient) do(req *http.Request, out interface{}) error {
	r.logger.Debug("Remote request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote service returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	return decodeMaybeWrapped(data, out)
}

// decodeMaybeWrapped accepts both response shapes the service emits: a bare
// payload object, or a 2-element array whose second element is the payload.
func decodeMaybeWrapped(data []byte, out interface{}) error {
	var direct json.RawMessage
	if err := json.Unmarshal(data, &direct); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	trimmed := bytes.TrimSpace(direct)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return fmt.Errorf("decode wrapped response: %w", err)
		}
		if len(parts) != 2 {
			return fmt.Errorf("wrapped response has %d elements, want 2", len(parts))
		}
		if err := json.Unmarshal(parts[1], out); err != nil {
			return fmt.Errorf("decode wrapped payload: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
