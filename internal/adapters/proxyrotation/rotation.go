// Package proxyrotation supplies the indicator poller with a rotating set of
// outbound HTTP proxies fetched from a proxy-listing API.
package proxyrotation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"macroNewsBot/internal/ports"
)

const defaultRequestTimeout = 10 * time.Second

// Source fetches the proxy list over HTTP. It implements ports.ProxySource.
type Source struct {
	url    string
	client *http.Client
	logger ports.Logger
}

// Config holds configuration for the proxy-list source.
type Config struct {
	URL     string
	Timeout time.Duration
	Logger  ports.Logger
}

// NewSource creates a proxy-list source.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for proxy source")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: proxy list URL must be set", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Source{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logger: cfg.Logger,
	}, nil
}

// proxyRecord is one entry of the proxy-listing API response.
type proxyRecord struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ListProxies fetches the current proxy list. An empty list is a valid
// response and means proxyless operation.
func (s *Source) ListProxies(ctx context.Context) ([]ports.Proxy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building proxy list request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching proxy list: %v", ports.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: proxy list API returned status %d", ports.ErrExchangeUnavailable, resp.StatusCode)
	}

	var records []proxyRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding proxy list response: %w", err)
	}

	proxies := make([]ports.Proxy, 0, len(records))
	for _, rec := range records {
		if rec.Address == "" || rec.Port == 0 {
			s.logger.Warn(ctx, "Skipping malformed proxy record", map[string]interface{}{"address": rec.Address, "port": rec.Port})
			continue
		}
		proxies = append(proxies, ports.Proxy{
			Address:  rec.Address,
			Port:     rec.Port,
			Username: rec.Username,
			Password: rec.Password,
		})
	}
	s.logger.Info(ctx, "Proxy list loaded", map[string]interface{}{"count": len(proxies)})
	return proxies, nil
}

// Rotation hands out proxies round-robin, wrapping around indefinitely. An
// empty rotation always returns nil, which callers interpret as proxyless.
type Rotation struct {
	mu      sync.Mutex
	proxies []ports.Proxy
	next    int
}

// NewRotation creates a rotation over a fixed proxy set.
func NewRotation(proxies []ports.Proxy) *Rotation {
	return &Rotation{proxies: proxies}
}

// Next returns the next proxy in the rotation, or nil when the set is empty.
func (r *Rotation) Next() *ports.Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return nil
	}
	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return &p
}

// Len returns the number of proxies in the rotation.
func (r *Rotation) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}
