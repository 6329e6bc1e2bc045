package swapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/shaibs3/holovote/internal/apperr"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public SWAPI mirror used when nothing is configured
const DefaultBaseURL = "https://swapi.info/api"

// maxBodySize caps how much of a response is read (8MB)
const maxBodySize = 8 << 20

// Config controls how the client reaches the external catalog
type Config struct {
	BaseURL  string
	Timeout  time.Duration // per attempt
	Attempts uint
	Delay    time.Duration // first backoff, doubled per attempt
	MaxDelay time.Duration
}

// DefaultConfig returns the production retry schedule: 3 attempts, 2s base, 10s cap
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  10 * time.Second,
		Attempts: 3,
		Delay:    2 * time.Second,
		MaxDelay: 10 * time.Second,
	}
}

// Session is a scoped connection to the external catalog.
// Close must be called when the caller is done, on every exit path.
type Session interface {
	FetchCollection(ctx context.Context, resource Resource) ([]json.RawMessage, error)
	Search(ctx context.Context, resource Resource, query string) ([]json.RawMessage, error)
	Close()
}

// Client holds configuration and the circuit breaker shared by its sessions
type Client struct {
	cfg      Config
	logger   *zap.Logger
	cb       *gobreaker.CircuitBreaker
	requests metric.Int64Counter
}

func NewClient(cfg Config, logger *zap.Logger, meter metric.Meter) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid SWAPI base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("swapi")
	}

	requests, err := meter.Int64Counter("swapi_requests_total",
		metric.WithDescription("Requests made to the external catalog by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create swapi request counter: %w", err)
	}

	swLogger := logger.Named("swapi")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SWAPI",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			// a 4xx means the catalog answered; it is not an outage
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < 500 && se.code != http.StatusTooManyRequests)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			swLogger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	swLogger.Info("SWAPI client initialized", zap.String("base_url", cfg.BaseURL))
	return &Client{
		cfg:      cfg,
		logger:   swLogger,
		cb:       cb,
		requests: requests,
	}, nil
}

// Open acquires a new session with its own connection pool
func (c *Client) Open() Session {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &session{
		client:    c,
		transport: transport,
		http: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

type session struct {
	client    *Client
	http      *http.Client
	transport *http.Transport
	closed    atomic.Bool
}

// Close releases the session's idle connections. Safe to call twice.
func (s *session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.transport.CloseIdleConnections()
	}
}

// FetchCollection returns every record of a resource
func (s *session) FetchCollection(ctx context.Context, resource Resource) ([]json.RawMessage, error) {
	return s.getList(ctx, resource, nil)
}

// Search asks the catalog for records of a resource matching query
func (s *session) Search(ctx context.Context, resource Resource, query string) ([]json.RawMessage, error) {
	return s.getList(ctx, resource, url.Values{"search": []string{query}})
}

func (s *session) getList(ctx context.Context, resource Resource, params url.Values) ([]json.RawMessage, error) {
	body, err := s.getResource(ctx, resource, params)
	if err != nil {
		return nil, err
	}
	records, err := decodeList(body)
	if err != nil {
		s.client.logger.Error("malformed response from external API",
			zap.String("resource", resource.String()), zap.Error(err))
		return nil, apperr.Unavailable("Malformed response from external API", err)
	}
	return records, nil
}

// getResource performs the GET with circuit breaker and retry, normalizing
// every failure into an unavailable error
func (s *session) getResource(ctx context.Context, resource Resource, params url.Values) ([]byte, error) {
	if s.closed.Load() {
		return nil, apperr.Unavailable("Failed to communicate with external API", errors.New("session closed"))
	}

	endpoint := strings.TrimRight(s.client.cfg.BaseURL, "/") + "/" + resource.String()
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	cfg := s.client.cfg
	var body []byte
	var lastErr error
	err := retry.Do(
		func() error {
			res, err := s.client.cb.Execute(func() (interface{}, error) {
				return s.attempt(ctx, endpoint)
			})
			if err != nil {
				lastErr = err
				return err
			}
			body = res.([]byte)
			return nil
		},
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			s.client.logger.Warn("retrying SWAPI request",
				zap.String("endpoint", endpoint),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err == nil && body != nil {
		s.record(ctx, resource, "ok")
		return body, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}

	s.record(ctx, resource, "error")
	s.client.logger.Error("external API error",
		zap.String("endpoint", endpoint), zap.Error(lastErr))
	return nil, apperr.Unavailable("Failed to communicate with external API", lastErr)
}

func (s *session) attempt(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.client.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "holovote-mirror/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *session) record(ctx context.Context, resource Resource, outcome string) {
	s.client.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource.String()),
		attribute.String("outcome", outcome),
	))
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// isTransient reports whether another attempt could succeed
func isTransient(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// decodeList accepts either a bare JSON array or a {"results": [...]} envelope
func decodeList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode resource list: %w", err)
		}
		return records, nil
	}

	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode resource envelope: %w", err)
	}
	if envelope.Results == nil {
		return nil, errors.New("expected list of resources")
	}
	return envelope.Results, nil
}
