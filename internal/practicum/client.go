package practicum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	appErr "github.com/samims/hwbot/internal/errors"
	"github.com/samims/hwbot/internal/metrics"
	"github.com/samims/hwbot/pkg/tracing"
)

// maxBodySize caps how much of a response is read; the real payload is a
// few kilobytes.
const maxBodySize = 1 << 20

// Client fetches homework statuses from the Practicum review API.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     *tracing.Tracer
}

func NewClient(endpoint, token string, httpClient *http.Client, logger *slog.Logger, tracer *tracing.Tracer) *Client {
	return &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: httpClient,
		logger:     logger.With("component", "practicum"),
		tracer:     tracer,
	}
}

// Fetch requests every homework whose status changed since fromDate and
// returns the decoded body without assuming its shape. Transport failures
// and non-200 answers come back as ErrServerUnavailable. A 200 whose body is
// not a single JSON value is reported as a type mismatch, and one larger than
// maxBodySize as ErrBodyTooLarge.
func (c *Client) Fetch(ctx context.Context, fromDate int64) (interface{}, error) {
	ctx, span := c.tracer.StartClientSpan(ctx, "practicum.fetch")
	defer span.End()

	payload, status, err := c.do(ctx, fromDate)
	c.tracer.AddRequestAttributes(span, http.MethodGet, c.endpoint, status)
	if err != nil {
		c.tracer.RecordError(span, err)
		return nil, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, fromDate int64) (interface{}, int, error) {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, 0, appErr.NewServerUnavailable("invalid endpoint %q: %w", c.endpoint, err)
	}
	q := target.Query()
	q.Set("from_date", strconv.FormatInt(fromDate, 10))
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, 0, appErr.NewServerUnavailable("build request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")
	tracing.InjectHeaders(ctx, req.Header)

	c.logger.InfoContext(ctx, "Requesting homework statuses",
		slog.String("endpoint", c.endpoint),
		slog.Int64("from_date", fromDate))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.FetchDuration.WithLabelValues("error").Observe(duration)
		return nil, 0, appErr.NewServerUnavailable("GET %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		metrics.FetchDuration.WithLabelValues("error").Observe(duration)
		return nil, resp.StatusCode, appErr.NewServerUnavailable("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.FetchDuration.WithLabelValues("bad_status").Observe(duration)
		return nil, resp.StatusCode, appErr.NewServerUnavailable("GET %s: unexpected status %d: %s",
			c.endpoint, resp.StatusCode, truncate(body, 200))
	}
	if len(body) > maxBodySize {
		metrics.FetchDuration.WithLabelValues("too_large").Observe(duration)
		return nil, resp.StatusCode, appErr.NewBodyTooLarge(maxBodySize)
	}
	metrics.FetchDuration.WithLabelValues("ok").Observe(duration)

	c.logger.DebugContext(ctx, "Homework statuses received",
		slog.Int("status_code", resp.StatusCode),
		slog.String("body", string(body)))

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, resp.StatusCode, appErr.NewTypeMismatch("response body is not JSON: %v", err)
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, resp.StatusCode, appErr.NewTypeMismatch("response body has data after the JSON value")
	}
	return payload, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
