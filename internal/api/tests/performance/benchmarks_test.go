package performance

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/api/tests/testutils"
	"github.com/PxPatel/auction-engine/internal/types"
)

// assetIDs returns n asset ids for servers that spread load across books
func assetIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("BENCH-%d", i)
	}
	return ids
}

func newMultiAssetServer(tb testing.TB, ids []string) *testutils.TestServer {
	assets := make([]*types.Asset, len(ids))
	for i, id := range ids {
		assets[i] = &types.Asset{ID: id, Name: id}
	}
	return testutils.NewTestServer(tb, assets...)
}

// submitResult posts an order and returns the status code and the decoded
// result when the pass committed
func submitResult(tb testing.TB, ts *testutils.TestServer, order models.SubmitOrderRequest) (int, *models.MatchResultResponse) {
	resp := ts.Post("/api/v1/orders", order)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return resp.StatusCode, nil
	}
	var result models.MatchResultResponse
	testutils.DecodeJSON(tb, resp, &result)
	return resp.StatusCode, &result
}

// crossingPair returns a sell and a buy that trade against each other
func crossingPair(assetID string, i int) (models.SubmitOrderRequest, models.SubmitOrderRequest) {
	price := float64(100 + i%5)
	sell := testutils.NewOrder(assetID, fmt.Sprintf("maker-%d", i%3), "sell", price, 3)
	buy := testutils.NewOrder(assetID, fmt.Sprintf("taker-%d", i%3), "buy", price, 3)
	return sell, buy
}

// benchmarkCrossingPasses submits crossing pairs from parallel clients.
// pick chooses the asset a client works on.
func benchmarkCrossingPasses(b *testing.B, ids []string, pick func(client int64) string) {
	ts := newMultiAssetServer(b, ids)
	defer ts.Close()

	var (
		clients   atomic.Int64
		contended atomic.Int64
		failed    atomic.Int64
	)

	b.SetParallelism(4)
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		client := clients.Add(1)
		assetID := pick(client)
		i := 0
		for pb.Next() {
			sell, buy := crossingPair(assetID, i)
			for _, order := range []models.SubmitOrderRequest{sell, buy} {
				switch status, _ := submitResult(b, ts, order); status {
				case http.StatusOK:
				case http.StatusConflict:
					contended.Add(1)
				default:
					failed.Add(1)
				}
			}
			i++
		}
	})

	b.StopTimer()
	b.ReportMetric(float64(2*b.N)/b.Elapsed().Seconds(), "passes/sec")
	b.ReportMetric(float64(contended.Load()), "contended")
	require.Zero(b, failed.Load(), "unexpected non-contention failures")
}

// BenchmarkCrossingPassesOneAsset serializes every pass on a single book
func BenchmarkCrossingPassesOneAsset(b *testing.B) {
	ids := assetIDs(1)
	benchmarkCrossingPasses(b, ids, func(int64) string { return ids[0] })
}

// BenchmarkCrossingPassesAcrossAssets gives each client its own book, so
// passes only share the store, never an exclusive scope
func BenchmarkCrossingPassesAcrossAssets(b *testing.B) {
	ids := assetIDs(16)
	benchmarkCrossingPasses(b, ids, func(client int64) string { return ids[int(client)%len(ids)] })
}

// BenchmarkAmendRematch rests a bid below the ask and amends its price
// into the cross, so each iteration is a priority reset plus a fill
func BenchmarkAmendRematch(b *testing.B) {
	ts := testutils.NewTestServer(b)
	defer ts.Close()

	status, _ := submitResult(b, ts, testutils.NewSellOrder("maker", 100, int64(b.N)+1))
	require.Equal(b, http.StatusOK, status)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		status, bid := submitResult(b, ts, testutils.NewBuyOrder("taker", 90, 1))
		require.Equal(b, http.StatusOK, status)
		require.Empty(b, bid.Trades)

		resp := ts.Patch("/api/v1/orders/"+bid.Order.OrderID, map[string]interface{}{"price": "100"})
		require.Equal(b, http.StatusOK, resp.StatusCode)
		var amended models.MatchResultResponse
		testutils.DecodeJSON(b, resp, &amended)
		require.Len(b, amended.Trades, 1)
	}

	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "amend-fills/sec")
}

// BenchmarkSizeAmendAndMatch grows a resting bid (keeping its priority) and
// reruns a pass for it against a book it does not cross
func BenchmarkSizeAmendAndMatch(b *testing.B) {
	ts := testutils.NewTestServer(b)
	defer ts.Close()

	for i := range 50 {
		ts.Post("/api/v1/orders", testutils.NewSellOrder("maker", float64(101+i), 10)).Body.Close()
	}
	status, bid := submitResult(b, ts, testutils.NewBuyOrder("taker", 100, 1))
	require.Equal(b, http.StatusOK, status)
	id := bid.Order.OrderID

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		resp := ts.Patch("/api/v1/orders/"+id, map[string]interface{}{"size": int64(2 + i%10)})
		require.Equal(b, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = ts.Post("/api/v1/orders/"+id+"/match", nil)
		require.Equal(b, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

// BenchmarkOrderBookUnderWriter reads aggregated depth while another
// client keeps adding non-crossing orders to the same asset
func BenchmarkOrderBookUnderWriter(b *testing.B) {
	ts := testutils.NewTestServer(b)
	defer ts.Close()

	for i := range 50 {
		ts.Post("/api/v1/orders", testutils.NewBuyOrder("bidder", float64(50+i), 10)).Body.Close()
		ts.Post("/api/v1/orders", testutils.NewSellOrder("asker", float64(150+i), 10)).Body.Close()
	}

	stop := make(chan struct{})
	var (
		writes atomic.Int64
		wg     sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			ts.Post("/api/v1/orders", testutils.NewBuyOrder("writer", float64(60+i%40), 1)).Body.Close()
			writes.Add(1)
		}
	}()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		resp := ts.Get("/api/v1/assets/" + testutils.DefaultAsset + "/orderbook?depth=20")
		require.Equal(b, http.StatusOK, resp.StatusCode)
		var book models.OrderBookResponse
		testutils.DecodeJSON(b, resp, &book)
	}

	b.StopTimer()
	close(stop)
	wg.Wait()
	b.ReportMetric(float64(writes.Load())/b.Elapsed().Seconds(), "concurrent-writes/sec")
}

// TestContendedLoadKeepsFeedInSequence drives crossing flow on a few assets
// from many clients and checks the trade log against the store afterwards
func TestContendedLoadKeepsFeedInSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	ids := assetIDs(3)
	ts := newMultiAssetServer(t, ids)
	defer ts.Close()

	const workers, pairsPerWorker = 12, 40
	var (
		wg        sync.WaitGroup
		committed atomic.Int64
		contended atomic.Int64
		failed    atomic.Int64
	)

	start := time.Now()
	for w := range workers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			assetID := ids[worker%len(ids)]
			for i := range pairsPerWorker {
				sell, buy := crossingPair(assetID, worker+i)
				for _, order := range []models.SubmitOrderRequest{sell, buy} {
					switch status, _ := submitResult(t, ts, order); status {
					case http.StatusOK:
						committed.Add(1)
					case http.StatusConflict:
						contended.Add(1)
					default:
						failed.Add(1)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	t.Logf("Contended load: %d committed, %d contended in %v (%.0f passes/sec)",
		committed.Load(), contended.Load(), elapsed, float64(committed.Load())/elapsed.Seconds())
	require.Zero(t, failed.Load())
	require.Positive(t, committed.Load())

	logged := ts.ReadTradeLog()
	lastSeq := make(map[string]int64)
	lastTrade := make(map[string]types.Trade)
	for _, trade := range logged {
		assert.Greater(t, trade.Sequence, lastSeq[trade.AssetID], "trade %s logged out of sequence", trade.ID)
		lastSeq[trade.AssetID] = trade.Sequence
		lastTrade[trade.AssetID] = trade
	}

	ctx := context.Background()
	total := 0
	for _, id := range ids {
		stored, err := ts.Engine.RecentTrades(ctx, id, 100000)
		require.NoError(t, err)
		total += len(stored)
		if len(stored) == 0 {
			continue
		}

		asset, err := ts.Engine.Asset(ctx, id)
		require.NoError(t, err)
		require.True(t, asset.LastPrice.Valid)
		assert.True(t, asset.LastPrice.Decimal.Equal(lastTrade[id].Price), "last price of %s", id)
	}
	assert.Equal(t, total, len(logged), "every committed trade is logged once")
}

// TestOperationLatency measures end-to-end latency per engine operation
func TestOperationLatency(t *testing.T) {
	ts := testutils.NewTestServer(t)
	defer ts.Close()

	for i := range 50 {
		ts.Post("/api/v1/orders", testutils.NewSellOrder("maker", float64(100+i), 10)).Body.Close()
	}

	const rounds = 200
	latencies := map[string][]time.Duration{}
	measure := func(op string, fn func()) {
		started := time.Now()
		fn()
		latencies[op] = append(latencies[op], time.Since(started))
	}

	for i := range rounds {
		var bid *models.MatchResultResponse
		measure("submit", func() {
			var status int
			status, bid = submitResult(t, ts, testutils.NewBuyOrder("taker", 90, 2))
			require.Equal(t, http.StatusOK, status)
		})
		id := bid.Order.OrderID

		measure("amend", func() {
			resp := ts.Patch("/api/v1/orders/"+id, map[string]interface{}{"price": fmt.Sprintf("%d", 91+i%5)})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		})
		measure("cancel", func() {
			resp := ts.Delete("/api/v1/orders/" + id)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		})
		measure("orderbook", func() {
			resp := ts.Get("/api/v1/assets/" + testutils.DefaultAsset + "/orderbook")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		})
	}

	for _, op := range []string{"submit", "amend", "cancel", "orderbook"} {
		sorted := slices.Clone(latencies[op])
		slices.Sort(sorted)
		p50 := sorted[len(sorted)/2]
		p99 := sorted[len(sorted)*99/100]
		t.Logf("%-9s p50=%v p99=%v max=%v", op, p50, p99, sorted[len(sorted)-1])

		assert.Less(t, p99, 200*time.Millisecond, "%s p99", op)
	}

	// every bid was cancelled, only the asks remain
	assert.Equal(t, 50, ts.GetOpenOrderCount(testutils.DefaultAsset))
}
