package finnhub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizintel/internal/domain"
)

// rewriteTransport redirects all requests to a fixed base URL (test server).
type rewriteTransport struct {
	base  string
	inner http.RoundTripper
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	parsed, _ := http.NewRequest("GET", rt.base, nil)
	req2.URL.Host = parsed.URL.Host
	req2.URL.Scheme = parsed.URL.Scheme
	return rt.inner.RoundTrip(req2)
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	httpClient := &http.Client{Transport: &rewriteTransport{base: srv.URL, inner: http.DefaultTransport}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New("test-token", httpClient, logger)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestFetchArticles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/news", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "general", r.URL.Query().Get("category"))
		assert.Equal(t, "test-token", r.Header.Get("X-Finnhub-Token"))
		writeJSON(w, []map[string]any{
			{"id": 1, "headline": "Fed holds rates", "summary": "Markets steady.", "url": "https://example.com/fed", "datetime": 1746093600, "source": "Reuters"},
			{"id": 2, "headline": "AI stocks rally", "summary": "Chipmakers lead gains.", "url": "https://example.com/ai", "datetime": 1746090000, "source": "CNBC"},
			{"id": 3, "headline": "Oil slips", "summary": "Demand for AI datacenters weighs on power.", "url": "https://example.com/oil", "datetime": 1746086400, "source": "Bloomberg"},
		})
	})

	articles, err := newTestClient(t, mux).FetchArticles(context.Background(), "AI", 5)

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, domain.Article{
		Title:       "AI stocks rally",
		Description: "Chipmakers lead gains.",
		URL:         "https://example.com/ai",
		Source:      domain.SourceFinnhub,
		PublishedAt: "2025-05-01T09:00:00Z",
	}, articles[0])
	assert.Equal(t, "https://example.com/oil", articles[1].URL)
}

func TestFetchArticles_CapsAtCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/news", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"headline": "one", "url": "https://example.com/1"},
			{"headline": "two", "url": "https://example.com/2"},
			{"headline": "three", "url": "https://example.com/3"},
		})
	})

	articles, err := newTestClient(t, mux).FetchArticles(context.Background(), "", 2)

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Empty(t, articles[0].PublishedAt)
}

func TestFetchArticles_Error(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/news", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := newTestClient(t, mux).FetchArticles(context.Background(), "AI", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "market news")
}

func TestQuote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		writeJSON(w, map[string]any{"c": 190.5, "d": 2.5, "dp": 1.25, "h": 191, "l": 187, "o": 188, "pc": 188})
	})

	q, err := newTestClient(t, mux).Quote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.InDelta(t, 190.5, q.Current, 0.001)
	assert.InDelta(t, 1.25, q.PercentChange, 0.001)
	assert.InDelta(t, 188, q.PreviousClose, 0.001)
}

func TestQuote_UnknownSymbol(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"c": 0, "d": nil, "dp": nil, "h": 0, "l": 0, "o": 0, "pc": 0})
	})

	_, err := newTestClient(t, mux).Quote(context.Background(), "NOPE")

	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestCompanyProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":                 "Apple Inc",
			"finnhubIndustry":      "Technology",
			"country":              "US",
			"exchange":             "NASDAQ NMS - GLOBAL MARKET",
			"marketCapitalization": 3000000,
			"weburl":               "https://www.apple.com/",
		})
	})

	p, err := newTestClient(t, mux).CompanyProfile(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", p.Name)
	assert.Equal(t, "Technology", p.Industry)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.InDelta(t, 3000000, p.MarketCap, 1)
}

func TestPeers_ExcludesSelf(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/stock/peers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"AAPL", "DELL", "HPQ", ""})
	})

	peers, err := newTestClient(t, mux).Peers(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, []string{"DELL", "HPQ"}, peers)
}
