package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MostafaGamal7/parking-realtime/internal/config"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

type (
	// Client fetches the initial state that live updates are applied to
	Client interface {
		GetGates(ctx context.Context) ([]api.Gate, error)
		GetZones(ctx context.Context, gateID string) ([]api.Zone, error)
		GetTicket(ctx context.Context, id string) (*api.Ticket, error)
	}

	// TokenProvider supplies the bearer token sent with every request
	TokenProvider interface {
		Token() (string, error)
	}

	// HTTPClient is the REST implementation of Client. All requests pass
	// through a circuit breaker that opens after repeated server failures
	HTTPClient struct {
		httpClient *http.Client
		baseURL    string
		tokens     TokenProvider
		breaker    *gobreaker.CircuitBreaker
	}

	// StatusError is returned for non-2xx responses
	StatusError struct {
		Message string
		Code    int
	}
)

const (
	userAgent       = "gatewatch/1.0"
	breakerTimeout  = 30 * time.Second
	breakerFailures = 5
	maxBodySize     = 1 << 20
)

var (
	ErrHTTPError   = errors.New("API returned HTTP error")
	ErrNotFound    = errors.New("resource not found")
	ErrUnavailable = errors.New("API unavailable")
)

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a REST client for the configured API. tokens may be
// nil for anonymous access
func NewHTTPClient(cfg *config.Config, tokens TokenProvider) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		baseURL: cfg.APIURL,
		tokens:  tokens,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "parking-api",
			MaxRequests: 1,
			Timeout:     breakerTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= breakerFailures
			},
			IsSuccessful: isSuccessful,
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}
}

// GetGates lists every gate
func (c *HTTPClient) GetGates(ctx context.Context) ([]api.Gate, error) {
	var res []api.Gate
	if err := c.get(ctx, "/master/gates", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetZones lists the zones served by a gate
func (c *HTTPClient) GetZones(
	ctx context.Context, gateID string,
) ([]api.Zone, error) {
	q := url.Values{}
	q.Set("gateId", gateID)
	var res []api.Zone
	if err := c.get(ctx, "/master/zones", q, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetTicket fetches a ticket by id
func (c *HTTPClient) GetTicket(
	ctx context.Context, id string,
) (*api.Ticket, error) {
	var res api.Ticket
	if err := c.get(ctx, "/tickets/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) get(
	ctx context.Context, path string, query url.Values, out any,
) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, path, query, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (c *HTTPClient) do(
	ctx context.Context, path string, query url.Values, out any,
) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.tokens != nil {
		if tkn, err := c.tokens.Token(); err == nil && tkn != "" {
			req.Header.Set("Authorization", "Bearer "+tkn)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("HTTP request failed",
			slog.String("path", path),
			slog.Duration("duration", time.Since(start)),
			log.Error(err))
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{
			Code:    resp.StatusCode,
			Message: errorMessage(resp.StatusCode, body),
		}
		slog.Error("HTTP error",
			slog.String("path", path),
			slog.Int("status_code", se.Code),
			slog.String("message", se.Message))
		return se
	}

	if err := json.Unmarshal(body, out); err != nil {
		slog.Error("Failed to unmarshal response",
			slog.String("path", path),
			log.Error(err))
		return err
	}
	return nil
}

func errorMessage(code int, body []byte) string {
	var res api.ErrorResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Message != "" {
		return res.Message
	}
	return http.StatusText(code)
}

// isSuccessful keeps client errors and cancellations from tripping the
// breaker; only transport failures and 5xx responses count
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < http.StatusInternalServerError
	}
	return false
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", ErrHTTPError, e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrHTTPError:
		return true
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	default:
		return false
	}
}
