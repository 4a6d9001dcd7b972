package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/auction-engine/internal/storage"
	"github.com/PxPatel/auction-engine/internal/types"
)

// newTestStore connects to TEST_DATABASE_URL and creates a fresh asset.
// Tests are skipped when no database is configured.
func newTestStore(t *testing.T) (*PostgresBookStore, string) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgresBookStore(ctx, PostgresConfig{URL: url}, 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assetID := "test-" + uuid.NewString()
	require.NoError(t, store.EnsureAsset(ctx, &types.Asset{ID: assetID, Name: "Test Asset"}))
	return store, assetID
}

func testOrder(assetID, owner string, side types.SideType, price string, size int64) *types.Order {
	return types.NewOrder(types.OrderRequest{
		AssetID: assetID,
		OwnerID: owner,
		Side:    side,
		Price:   decimal.RequireFromString(price),
		Size:    size,
	}, time.Now().UTC().Truncate(time.Microsecond))
}

func TestPostgresScopeCommits(t *testing.T) {
	store, assetID := newTestStore(t)
	ctx := context.Background()

	order := testOrder(assetID, "alice", types.Sell, "10.50", 5)
	err := store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		require.Equal(t, assetID, tx.Asset().ID)
		return tx.InsertOrder(ctx, order)
	})
	require.NoError(t, err)

	got, err := store.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, order.Price.Equal(got.Price))
	assert.Equal(t, types.Sell, got.Side)
	assert.Equal(t, types.StatusOpen, got.Status)
	assert.True(t, order.PriorityAt.Equal(got.PriorityAt))

	open, err := store.OpenOrders(ctx, assetID)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestPostgresScopeRollsBack(t *testing.T) {
	store, assetID := newTestStore(t)
	ctx := context.Background()

	order := testOrder(assetID, "alice", types.Buy, "3", 1)
	err := store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		require.NoError(t, tx.InsertOrder(ctx, order))
		require.NoError(t, tx.SetLastPrice(ctx, decimal.NewFromInt(3)))
		return &types.InvariantError{Message: "boom"}
	})
	require.ErrorIs(t, err, types.ErrInvariant)

	_, err = store.Order(ctx, order.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	asset, err := store.Asset(ctx, assetID)
	require.NoError(t, err)
	assert.False(t, asset.LastPrice.Valid)
}

func TestPostgresTradeSequenceAndLastPrice(t *testing.T) {
	store, assetID := newTestStore(t)
	ctx := context.Background()

	sell := testOrder(assetID, "alice", types.Sell, "10", 4)
	buy := testOrder(assetID, "bob", types.Buy, "10", 4)

	err := store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		require.NoError(t, tx.InsertOrder(ctx, sell))
		require.NoError(t, tx.InsertOrder(ctx, buy))

		for _, size := range []int64{1, 3} {
			trade := types.NewTrade(assetID, types.Fill{
				Size: size, Price: decimal.NewFromInt(10),
				BuyerID: "bob", SellerID: "alice",
				BuyOrderID: buy.ID, SellOrderID: sell.ID,
			}, time.Now().UTC())
			require.NoError(t, tx.InsertTrade(ctx, trade))
			assert.NotZero(t, trade.Sequence)
		}
		return tx.SetLastPrice(ctx, decimal.NewFromInt(10))
	})
	require.NoError(t, err)

	trades, err := store.RecentTrades(ctx, assetID, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Greater(t, trades[0].Sequence, trades[1].Sequence)
	assert.Equal(t, int64(3), trades[0].Size)

	asset, err := store.Asset(ctx, assetID)
	require.NoError(t, err)
	require.True(t, asset.LastPrice.Valid)
	assert.True(t, decimal.NewFromInt(10).Equal(asset.LastPrice.Decimal))
}

func TestPostgresScopeContention(t *testing.T) {
	store, assetID := newTestStore(t)
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	err := store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		return nil
	})
	close(release)
	wg.Wait()

	assert.ErrorIs(t, err, types.ErrContention)
}

func TestPostgresScopeFailsFastWhenPoolIsExhausted(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := NewPostgresBookStore(ctx, PostgresConfig{URL: url, MaxConns: 1}, 100*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assetID := "test-" + uuid.NewString()
	require.NoError(t, store.EnsureAsset(ctx, &types.Asset{ID: assetID}))

	conn, err := store.pool.Acquire(ctx)
	require.NoError(t, err)

	started := time.Now()
	called := false
	err = store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		called = true
		return nil
	})
	conn.Release()

	assert.ErrorIs(t, err, types.ErrContention)
	assert.False(t, called)
	assert.Less(t, time.Since(started), 2*time.Second)

	// the pool is usable again once the connection is back
	require.NoError(t, store.WithinAssetScope(ctx, assetID, func(ctx context.Context, tx storage.BookTx) error {
		return nil
	}))
}

func TestPostgresUnknownAsset(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.WithinAssetScope(ctx, "missing-"+uuid.NewString(), func(ctx context.Context, tx storage.BookTx) error {
		return nil
	})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = store.RecentTrades(ctx, "missing", 5)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
