package indicatorfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macroNewsBot/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{URL: "http://example.com", Logger: nil})
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "", Logger: mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
		ok   bool
	}{
		{"bare number", "3.5", 3.5, true},
		{"negative", "-0.3", -0.3, true},
		{"quoted number", `"204.0"`, 204.0, true},
		{"envelope", `{"value": 3.5}`, 3.5, true},
		{"envelope string number", `{"value": "1.2"}`, 0, false},
		{"empty body", "", 0, false},
		{"whitespace", "  \n ", 0, false},
		{"null", "null", 0, false},
		{"envelope without value", `{"status": "pending"}`, 0, false},
		{"html error page", "<html>busy</html>", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseValue([]byte(tc.body))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestFetch_PublishedValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("3.5"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Logger: mockLogger{}})
	require.NoError(t, err)

	value, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, 3.5, *value)
}

func TestFetch_NotYetPublished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(""))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Logger: mockLogger{}})
	require.NoError(t, err)

	value, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, value, "empty body means the value is not out yet")
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Logger: mockLogger{}})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, ports.ErrExchangeUnavailable)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Logger: mockLogger{}})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}
