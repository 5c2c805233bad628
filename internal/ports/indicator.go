package ports

import "context"

// Proxy is one entry from the proxy rotation used for indicator fetches.
type Proxy struct {
	Address  string // Host or IP
	Port     int
	Username string // Empty when the proxy is unauthenticated
	Password string
}

// IndicatorSource fetches the published value of a macroeconomic indicator.
// A nil value with a nil error means "not yet available" (or unparsable,
// which is treated identically); a non-nil error is a transport failure and
// drives proxy rotation rather than abort.
type IndicatorSource interface {
	Fetch(ctx context.Context, proxy *Proxy) (*float64, error)
}

// ProxySource lists the proxies available for rotation. An empty list means
// proxyless operation.
type ProxySource interface {
	ListProxies(ctx context.Context) ([]Proxy, error)
}

// ProxyRotation hands out proxies for successive fetch attempts. Next returns
// nil when no proxies are configured (proxyless operation); otherwise the
// rotation wraps around indefinitely.
type ProxyRotation interface {
	Next() *Proxy
}
