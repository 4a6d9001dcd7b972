package testutils

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PxPatel/auction-engine/internal/api/handlers"
	"github.com/PxPatel/auction-engine/internal/api/routes"
	"github.com/PxPatel/auction-engine/internal/matching"
	"github.com/PxPatel/auction-engine/internal/storage"
	"github.com/PxPatel/auction-engine/internal/storage/memory"
	"github.com/PxPatel/auction-engine/internal/types"
)

// TestServer wraps a test HTTP server with the matching engine
type TestServer struct {
	Server       *httptest.Server
	Engine       *matching.Engine
	Store        *memory.InMemoryBookStore
	TradeLogPath string
	t            testing.TB
}

// NewTestServer creates a new test server with a fresh in-memory engine and
// the given assets bootstrapped next to DefaultAsset
func NewTestServer(t testing.TB, assets ...*types.Asset) *TestServer {
	// Create temporary trade log file
	tmpDir := t.TempDir()
	tradeLogPath := filepath.Join(tmpDir, "test_trades.log")

	store := memory.NewInMemoryBookStore(2 * time.Second)
	assets = append([]*types.Asset{{ID: DefaultAsset, Name: "Test asset"}}, assets...)
	for _, asset := range assets {
		require.NoError(t, store.EnsureAsset(context.Background(), asset))
	}

	feed, err := storage.NewFileTradeFeed(tradeLogPath)
	require.NoError(t, err, "Failed to open trade log")

	engine := matching.NewEngine(store, matching.WithTradeFeed(feed))

	// Create handler and server
	engineHolder := handlers.NewEngineHolder(engine, handlers.DefaultLimits(), "memory")
	handler := routes.SetupRoutes(engineHolder, routes.Options{MetricsPath: "/metrics"})
	server := httptest.NewServer(handler)

	return &TestServer{
		Server:       server,
		Engine:       engine,
		Store:        store,
		TradeLogPath: tradeLogPath,
		t:            t,
	}
}

// Close cleans up the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Engine.Close()
	// Cleanup is automatic via t.TempDir()
}

// URL returns the base URL for the test server
func (ts *TestServer) URL() string {
	return ts.Server.URL
}

// Get makes a GET request to the test server
func (ts *TestServer) Get(path string) *http.Response {
	resp, err := http.Get(ts.URL() + path)
	require.NoError(ts.t, err, "GET request failed")
	return resp
}

// Post makes a POST request with JSON body
func (ts *TestServer) Post(path string, body interface{}) *http.Response {
	return ts.send(http.MethodPost, path, body)
}

// Patch makes a PATCH request with JSON body
func (ts *TestServer) Patch(path string, body interface{}) *http.Response {
	return ts.send(http.MethodPatch, path, body)
}

// Delete makes a DELETE request
func (ts *TestServer) Delete(path string) *http.Response {
	return ts.send(http.MethodDelete, path, nil)
}

func (ts *TestServer) send(method, path string, body interface{}) *http.Response {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(ts.t, err, "Failed to marshal request body")
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, ts.URL()+path, reader)
	require.NoError(ts.t, err, "Failed to create %s request", method)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err, "%s request failed", method)
	return resp
}

// DecodeJSON decodes JSON response into target
func DecodeJSON(t testing.TB, resp *http.Response, target interface{}) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")

	err = json.Unmarshal(body, target)
	require.NoError(t, err, "Failed to decode JSON response: %s", string(body))
}

// ReadTradeLog reads the trade log file and returns trades
func (ts *TestServer) ReadTradeLog() []types.Trade {
	file, err := os.Open(ts.TradeLogPath)
	if err != nil {
		return []types.Trade{}
	}
	defer file.Close()

	var trades []types.Trade
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var trade types.Trade
		if err := json.Unmarshal(scanner.Bytes(), &trade); err != nil {
			ts.t.Fatalf("Failed to decode trade: %v", err)
		}
		trades = append(trades, trade)
	}
	return trades
}

// GetOrderBookDepth returns the number of price levels per side of an asset
func (ts *TestServer) GetOrderBookDepth(assetID string) (bidLevels, askLevels int) {
	orders, err := ts.Engine.OpenOrders(context.Background(), assetID)
	require.NoError(ts.t, err)

	depth := matching.BuildDepth(orders, 0)
	return len(depth.Bids), len(depth.Asks)
}

// GetOpenOrderCount returns the number of open orders of an asset
func (ts *TestServer) GetOpenOrderCount(assetID string) int {
	orders, err := ts.Engine.OpenOrders(context.Background(), assetID)
	require.NoError(ts.t, err)
	return len(orders)
}
