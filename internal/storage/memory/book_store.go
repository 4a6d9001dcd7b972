package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/PxPatel/auction-engine/internal/storage"
	"github.com/PxPatel/auction-engine/internal/types"
)

// assetBook is the committed state of one asset
type assetBook struct {
	asset  types.Asset
	orders *btree.Map[string, types.Order] // every order of the asset, by ID
	trades []types.Trade                   // append-only, execution order
	scope  chan struct{}                   // exclusive scope, capacity 1
}

// InMemoryBookStore implements BookStore in process memory.
//
// Each asset has its own exclusive scope, so passes on different assets
// never wait on each other. A scope works on a copy-on-write copy of the
// asset's btree; commit swaps the copy in under the store lock, which is
// also what readers take, so a half-applied pass is never visible.
type InMemoryBookStore struct {
	books       map[string]*assetBook
	orderAssets map[string]string // order ID -> asset ID
	mutex       sync.RWMutex

	tradeSeq    atomic.Int64
	lockTimeout time.Duration
}

// NewInMemoryBookStore creates an empty store. lockTimeout bounds how long a
// pass waits for an asset's exclusive scope.
func NewInMemoryBookStore(lockTimeout time.Duration) *InMemoryBookStore {
	return &InMemoryBookStore{
		books:       make(map[string]*assetBook),
		orderAssets: make(map[string]string),
		lockTimeout: lockTimeout,
	}
}

func (s *InMemoryBookStore) WithinAssetScope(ctx context.Context, assetID string, fn func(ctx context.Context, tx storage.BookTx) error) error {
	s.mutex.RLock()
	book, ok := s.books[assetID]
	s.mutex.RUnlock()
	if !ok {
		return &types.NotFoundError{Kind: "asset", ID: assetID}
	}

	if err := s.acquire(ctx, book); err != nil {
		return err
	}
	defer func() { <-book.scope }()

	// Copy marks the source tree shared, which is a write
	s.mutex.Lock()
	tx := &memTx{
		store:  s,
		asset:  book.asset,
		orders: book.orders.Copy(),
	}
	s.mutex.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	book.asset = tx.asset
	book.orders = tx.orders
	book.trades = append(book.trades, tx.trades...)
	for _, id := range tx.inserted {
		s.orderAssets[id] = assetID
	}
	return nil
}

func (s *InMemoryBookStore) acquire(ctx context.Context, book *assetBook) error {
	select {
	case book.scope <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case book.scope <- struct{}{}:
		return nil
	case <-timer.C:
		return &types.ContentionError{AssetID: book.asset.ID, Err: fmt.Errorf("waited %s", s.lockTimeout)}
	case <-ctx.Done():
		return &types.ContentionError{AssetID: book.asset.ID, Err: ctx.Err()}
	}
}

func (s *InMemoryBookStore) Order(ctx context.Context, orderID string) (*types.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	assetID, ok := s.orderAssets[orderID]
	if !ok {
		return nil, &types.NotFoundError{Kind: "order", ID: orderID}
	}
	order, ok := s.books[assetID].orders.Get(orderID)
	if !ok {
		return nil, &types.NotFoundError{Kind: "order", ID: orderID}
	}
	return &order, nil
}

func (s *InMemoryBookStore) OpenOrders(ctx context.Context, assetID string) ([]*types.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	book, ok := s.books[assetID]
	if !ok {
		return nil, &types.NotFoundError{Kind: "asset", ID: assetID}
	}
	return openOrders(book.orders), nil
}

func (s *InMemoryBookStore) RecentTrades(ctx context.Context, assetID string, limit int) ([]*types.Trade, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	book, ok := s.books[assetID]
	if !ok {
		return nil, &types.NotFoundError{Kind: "asset", ID: assetID}
	}

	// Clamp limit to actual size
	if limit <= 0 || limit > len(book.trades) {
		limit = len(book.trades)
	}

	trades := make([]*types.Trade, 0, limit)
	for i := len(book.trades) - 1; i >= len(book.trades)-limit; i-- {
		trade := book.trades[i]
		trades = append(trades, &trade)
	}
	return trades, nil
}

func (s *InMemoryBookStore) Asset(ctx context.Context, assetID string) (*types.Asset, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	book, ok := s.books[assetID]
	if !ok {
		return nil, &types.NotFoundError{Kind: "asset", ID: assetID}
	}
	asset := book.asset
	return &asset, nil
}

func (s *InMemoryBookStore) EnsureAsset(ctx context.Context, asset *types.Asset) error {
	if asset.ID == "" {
		return &types.ValidationError{Field: "asset_id", Message: "cannot be empty"}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.books[asset.ID]; exists {
		return nil
	}

	a := *asset
	if a.Status == "" {
		a.Status = types.AssetTrading
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	s.books[a.ID] = &assetBook{
		asset:  a,
		orders: new(btree.Map[string, types.Order]),
		scope:  make(chan struct{}, 1),
	}
	return nil
}

func (s *InMemoryBookStore) Close() error {
	// No cleanup needed for in-memory store
	return nil
}

func openOrders(orders *btree.Map[string, types.Order]) []*types.Order {
	var open []*types.Order
	orders.Scan(func(_ string, order types.Order) bool {
		if order.IsOpen() {
			o := order
			open = append(open, &o)
		}
		return true
	})
	return open
}

// memTx stages the writes of one scope on a private copy of the book
type memTx struct {
	store    *InMemoryBookStore
	asset    types.Asset
	orders   *btree.Map[string, types.Order]
	trades   []types.Trade
	inserted []string
}

func (tx *memTx) Asset() *types.Asset {
	asset := tx.asset
	return &asset
}

func (tx *memTx) Order(ctx context.Context, orderID string) (*types.Order, error) {
	order, ok := tx.orders.Get(orderID)
	if !ok {
		return nil, &types.NotFoundError{Kind: "order", ID: orderID}
	}
	return &order, nil
}

func (tx *memTx) OpenOrders(ctx context.Context) ([]*types.Order, error) {
	return openOrders(tx.orders), nil
}

func (tx *memTx) InsertOrder(ctx context.Context, order *types.Order) error {
	if order.AssetID != tx.asset.ID {
		return fmt.Errorf("order %s belongs to asset %s, scope is %s", order.ID, order.AssetID, tx.asset.ID)
	}
	if _, exists := tx.orders.Get(order.ID); exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	if err := order.CheckInvariants(); err != nil {
		return err
	}

	tx.orders.Set(order.ID, *order)
	tx.inserted = append(tx.inserted, order.ID)
	return nil
}

func (tx *memTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	if _, exists := tx.orders.Get(order.ID); !exists {
		return &types.NotFoundError{Kind: "order", ID: order.ID}
	}
	if err := order.CheckInvariants(); err != nil {
		return err
	}

	tx.orders.Set(order.ID, *order)
	return nil
}

func (tx *memTx) InsertTrade(ctx context.Context, trade *types.Trade) error {
	if trade.Size <= 0 {
		return &types.InvariantError{Message: fmt.Sprintf("trade %s: non-positive size %d", trade.ID, trade.Size)}
	}
	if trade.BuyerID == trade.SellerID {
		return &types.InvariantError{Message: fmt.Sprintf("trade %s: buyer and seller are both %s", trade.ID, trade.BuyerID)}
	}

	trade.Sequence = tx.store.tradeSeq.Add(1)
	tx.trades = append(tx.trades, *trade)
	return nil
}

func (tx *memTx) SetLastPrice(ctx context.Context, price decimal.Decimal) error {
	tx.asset.LastPrice = decimal.NewNullDecimal(price)
	return nil
}
