package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/pws-history/internal/weather"
)

const (
	DefaultHistoryURL = "https://api.weather.com/v2/pws/history/all"
	DefaultCurrentURL = "https://api.weather.com/v2/pws/observations/current"
	DefaultUnits      = "m"
)

// ErrMissingAPIKey is returned by every call when no API key is configured.
var ErrMissingAPIKey = errors.New("wunderground api key is not configured")

// WundergroundClient implements weather.Gateway for the Weather.com PWS API.
type WundergroundClient struct {
	name       string
	apiKey     string
	historyURL string
	currentURL string
	units      string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// WundergroundOption customizes a WundergroundClient.
type WundergroundOption func(*WundergroundClient)

// WithEndpoints overrides the history and current observation URLs.
func WithEndpoints(historyURL, currentURL string) WundergroundOption {
	return func(c *WundergroundClient) {
		if historyURL != "" {
			c.historyURL = historyURL
		}
		if currentURL != "" {
			c.currentURL = currentURL
		}
	}
}

// WithUnits sets the provider units code ("m", "e", "h" or "s").
func WithUnits(units string) WundergroundOption {
	return func(c *WundergroundClient) {
		if units != "" {
			c.units = units
		}
	}
}

// WithBackoff replaces the default retry schedule.
func WithBackoff(b BackoffConfig) WundergroundOption {
	return func(c *WundergroundClient) { c.httpCfg.Backoff = b }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) WundergroundOption {
	return func(c *WundergroundClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewWundergroundClient creates a client that authenticates with apiKey.
func NewWundergroundClient(client *http.Client, apiKey string, opts ...WundergroundOption) *WundergroundClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "wunderground",
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: breakerSuccess,
	})

	c := &WundergroundClient{
		name:       "wunderground",
		apiKey:     apiKey,
		historyURL: DefaultHistoryURL,
		currentURL: DefaultCurrentURL,
		units:      DefaultUnits,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History fetches /v2/pws/history/all for one station and day (YYYYMMDD).
func (c *WundergroundClient) History(ctx context.Context, stationID, date string) ([]byte, error) {
	if len(date) != 8 || strings.Trim(date, "0123456789") != "" {
		return nil, fmt.Errorf("%w: date must be YYYYMMDD, got %q", weather.ErrValidation, date)
	}
	values, err := c.baseQuery(stationID)
	if err != nil {
		return nil, err
	}
	values.Set("date", date)
	return c.get(ctx, "history", c.historyURL, values)
}

// Current fetches /v2/pws/observations/current for one station.
func (c *WundergroundClient) Current(ctx context.Context, stationID string) ([]byte, error) {
	values, err := c.baseQuery(stationID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "current", c.currentURL, values)
}

func (c *WundergroundClient) baseQuery(stationID string) (url.Values, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return nil, fmt.Errorf("%w: station id is required", weather.ErrValidation)
	}

	values := url.Values{}
	values.Set("stationId", stationID)
	values.Set("format", "json")
	values.Set("units", c.units)
	values.Set("apiKey", c.apiKey)
	return values, nil
}

func (c *WundergroundClient) get(ctx context.Context, leg, base string, values url.Values) ([]byte, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", base, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	start := time.Now()
	body, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		c.logger.Debug("upstream call failed",
			zap.String("provider", c.name),
			zap.String("leg", leg),
			zap.String("station_id", values.Get("stationId")),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("upstream call completed",
		zap.String("provider", c.name),
		zap.String("leg", leg),
		zap.String("station_id", values.Get("stationId")),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
