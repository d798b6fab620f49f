package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manbo/internal/adapters/config"
	"manbo/pkg/errors"
)

func TestCompanyNewsDegradesWithoutKey(t *testing.T) {
	client := NewClient(config.NewsConfig{Endpoint: "https://example.invalid"}, time.Second)
	tool := NewCompanyNewsTool(client)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "AAPL")
}

func TestCompanyNewsFetchesArticles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{"articles":[
			{"title":"Apple ships new device","description":"Strong demand expected","publishedAt":"2026-08-28","source":{"name":"Newswire"}},
			{"title":"Supply chain update","description":"","publishedAt":"2026-08-27","source":{"name":"Daily"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(config.NewsConfig{Endpoint: server.URL, APIKey: "secret"}, time.Second)

	out, err := client.CompanyNews(context.Background(), "AAPL", 7)
	require.NoError(t, err)
	assert.Contains(t, out, "Apple ships new device")
	assert.Contains(t, out, "Strong demand expected")
	assert.Contains(t, out, "Newswire")
}

func TestCompanyNewsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"articles":[]}`))
	}))
	defer server.Close()

	client := NewClient(config.NewsConfig{Endpoint: server.URL, APIKey: "secret"}, time.Second)

	out, err := client.CompanyNews(context.Background(), "AAPL", 7)
	require.NoError(t, err)
	assert.Contains(t, out, "No recent news")
}

func TestCompanyNewsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(config.NewsConfig{Endpoint: server.URL, APIKey: "secret"}, time.Second)

	_, err := client.CompanyNews(context.Background(), "AAPL", 7)
	assert.ErrorIs(t, err, errors.ErrExternal)
}

func TestCompanyNewsToolRequiresSymbol(t *testing.T) {
	client := NewClient(config.NewsConfig{}, time.Second)
	tool := NewCompanyNewsTool(client)

	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
