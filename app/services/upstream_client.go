// Package services provides external service integrations such as the upstream price API client
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"go.uber.org/zap"
)

// DefaultUpstreamURL is the monthly price endpoint of the Badan Pangan panel
const DefaultUpstreamURL = "https://api-panelhargav2.badanpangan.go.id/api/front/harga-pangan-bulanan-v2"

// DefaultUpstreamOrigin is sent as Origin and Referer; the API rejects requests without them
const DefaultUpstreamOrigin = "https://panelharga.badanpangan.go.id"

const (
	defaultUpstreamTimeout = 20 * time.Second
	browserUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	maxErrorBodyBytes      = 512
)

// Upstream errors
var (
	ErrUpstreamUnavailable = errors.New("upstream endpoint is not accessible")
	ErrInvalidPayload      = errors.New("unexpected upstream response type, expected a JSON object")
)

// UpstreamStatusError is returned for HTTP responses with status >= 400. It is never retried.
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Payload is the decoded top-level JSON object returned by the upstream API
type Payload map[string]json.RawMessage

// UpstreamClient fetches monthly price payloads
type UpstreamClient interface {
	Fetch(ctx context.Context, params models.FetchParams) (Payload, error)
	TestConnection(ctx context.Context) bool
}

// UpstreamClientImpl implements UpstreamClient over HTTP
type UpstreamClientImpl struct {
	config *config.UpstreamConfig
	client *http.Client
	retry  *RetryPolicy
	logger *zap.Logger
}

// NewUpstreamClient creates an HTTP upstream client. A zero BaseURL or Origin falls back to the public endpoint.
func NewUpstreamClient(cfg *config.UpstreamConfig, logger *zap.Logger) *UpstreamClientImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := *cfg
	if c.BaseURL == "" {
		c.BaseURL = DefaultUpstreamURL
	}
	if c.Origin == "" {
		c.Origin = DefaultUpstreamOrigin
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultUpstreamTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = len(DefaultBackoffs)
	}

	logger = logger.Named("upstream")
	return &UpstreamClientImpl{
		config: &c,
		client: &http.Client{
			Timeout: c.Timeout,
		},
		retry:  NewRetryPolicy(c.MaxAttempts, c.Backoffs, isRetryableUpstreamError, logger),
		logger: logger,
	}
}

// NewUpstreamClientFromConfig returns the mock client when cfg.UseMock is set
func NewUpstreamClientFromConfig(cfg *config.UpstreamConfig, logger *zap.Logger) UpstreamClient {
	if cfg.UseMock {
		return NewMockUpstreamClient(logger)
	}
	return NewUpstreamClient(cfg, logger)
}

// WithSleep replaces the wait between attempts
func (c *UpstreamClientImpl) WithSleep(sleep SleepFunc) *UpstreamClientImpl {
	c.retry.Sleep = sleep
	return c
}

// WithHTTPClient replaces the underlying HTTP client
func (c *UpstreamClientImpl) WithHTTPClient(client *http.Client) *UpstreamClientImpl {
	c.client = client
	return c
}

// TestConnection probes the endpoint with a fixed query known to work; any status below 400 counts as up
func (c *UpstreamClientImpl) TestConnection(ctx context.Context) bool {
	probe := url.Values{}
	probe.Set("start_year", "2023")
	probe.Set("end_year", "2025")
	probe.Set("period_date", "02/09/2025 - 02/09/2025")
	probe.Set("province_id", "")
	probe.Set("level_harga_id", "3")

	resp, err := c.get(ctx, probe)
	if err != nil {
		c.logger.Warn("Upstream connection test failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < http.StatusBadRequest
}

// Fetch downloads one payload. The connection test runs first and does not use up attempts.
func (c *UpstreamClientImpl) Fetch(ctx context.Context, params models.FetchParams) (Payload, error) {
	if params.StartYear > params.EndYear {
		return nil, fmt.Errorf("start_year %d is after end_year %d", params.StartYear, params.EndYear)
	}
	if params.PeriodStart.After(params.PeriodEnd) {
		return nil, fmt.Errorf("period_start %s is after period_end %s",
			params.PeriodStart.Format(utils.DateLayout), params.PeriodEnd.Format(utils.DateLayout))
	}

	if !c.TestConnection(ctx) {
		return nil, ErrUpstreamUnavailable
	}

	query := BuildUpstreamQuery(params)
	var payload Payload
	err := c.retry.Do(ctx, "upstream fetch", func(ctx context.Context) error {
		p, err := c.fetchOnce(ctx, query)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		var exhausted *RetriesExhaustedError
		if errors.As(err, &exhausted) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	c.logger.Info("Fetched upstream payload",
		zap.Int("start_year", params.StartYear),
		zap.Int("end_year", params.EndYear),
		zap.Int("level_harga_id", params.LevelHargaID),
		zap.String("province_id", params.ProvinceID))
	return payload, nil
}

func (c *UpstreamClientImpl) fetchOnce(ctx context.Context, query url.Values) (Payload, error) {
	resp, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidPayload
	}

	var payload Payload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}
	if payload == nil {
		return nil, ErrInvalidPayload
	}
	return payload, nil
}

func (c *UpstreamClientImpl) get(ctx context.Context, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	setBrowserHeaders(req, c.config.Origin)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}

func setBrowserHeaders(req *http.Request, origin string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-site")
	req.Header.Set("User-Agent", browserUserAgent)
}

// BuildUpstreamQuery renders params as the upstream query string. The national aggregate is an empty province_id.
func BuildUpstreamQuery(params models.FetchParams) url.Values {
	q := url.Values{}
	q.Set("start_year", strconv.Itoa(params.StartYear))
	q.Set("end_year", strconv.Itoa(params.EndYear))
	q.Set("period_date", FormatPeriodDate(params.PeriodStart, params.PeriodEnd))
	q.Set("level_harga_id", strconv.Itoa(params.LevelHargaID))
	if params.IsNational() {
		q.Set("province_id", "")
	} else {
		q.Set("province_id", params.ProvinceID)
	}
	return q
}

// FormatPeriodDate renders a window as DD/MM/YYYY - DD/MM/YYYY
func FormatPeriodDate(start, end time.Time) string {
	return start.Format("02/01/2006") + " - " + end.Format("02/01/2006")
}

// isRetryableUpstreamError retries transport and decode failures only
func isRetryableUpstreamError(err error) bool {
	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		return false
	}
	if errors.Is(err, ErrInvalidPayload) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
