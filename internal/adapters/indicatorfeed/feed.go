// Package indicatorfeed polls an HTTP endpoint that publishes the latest
// value of a macroeconomic indicator as a JSON number.
package indicatorfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"macroNewsBot/internal/ports"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxBodyBytes          = 1 << 20 // Responses larger than this are not indicator values
)

// Client fetches indicator values over HTTP, optionally through a proxy.
// It implements ports.IndicatorSource.
type Client struct {
	url     string
	timeout time.Duration
	logger  ports.Logger
}

// Config holds configuration for the indicator feed client.
type Config struct {
	URL     string
	Timeout time.Duration
	Logger  ports.Logger
}

// NewClient creates an indicator feed client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for indicator feed")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: indicator feed URL must be set", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{url: cfg.URL, timeout: timeout, logger: cfg.Logger}, nil
}

// Fetch retrieves the current indicator value. A nil value with a nil error
// means the value is not yet published or could not be parsed; a non-nil
// error is a transport failure and the caller retries on the next tick.
func (c *Client) Fetch(ctx context.Context, proxy *ports.Proxy) (*float64, error) {
	client, err := c.httpClient(proxy)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building indicator request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching indicator value: %v", ports.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: indicator feed returned status %d", ports.ErrExchangeUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading indicator response: %w", err)
	}

	value, ok := parseValue(body)
	if !ok {
		// Unparsable bodies mean "not published yet", the same as an
		// empty cell on the source page.
		c.logger.Debug(ctx, "Indicator value not yet available", map[string]interface{}{"bodyBytes": len(body)})
		return nil, nil
	}
	return &value, nil
}

func (c *Client) httpClient(proxy *ports.Proxy) (*http.Client, error) {
	if proxy == nil {
		return &http.Client{Timeout: c.timeout}, nil
	}
	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", proxy.Address, proxy.Port),
	}
	if proxy.Username != "" {
		proxyURL.User = url.UserPassword(proxy.Username, proxy.Password)
	}
	return &http.Client{
		Timeout:   c.timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}, nil
}

// valueEnvelope is the JSON object form of the feed response.
type valueEnvelope struct {
	Value *json.Number `json:"value"`
}

// parseValue accepts either a bare number ("3.5"), a quoted number, or an
// object with a "value" field; anything else means "no value yet".
func parseValue(body []byte) (float64, bool) {
	text := strings.TrimSpace(string(body))
	if text == "" || text == "null" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(strings.Trim(text, `"`), 64); err == nil {
		return v, true
	}
	var envelope valueEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Value == nil {
		return 0, false
	}
	v, err := envelope.Value.Float64()
	if err != nil {
		return 0, false
	}
	return v, true
}
