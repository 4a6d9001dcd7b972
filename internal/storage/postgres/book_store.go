package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/storage"
	"github.com/PxPatel/auction-engine/internal/types"
)

const orderColumns = `id, asset_id, owner_id, side, price, size, remaining_size, status, priority_at, created_at, updated_at`

const tradeColumns = `seq, id, asset_id, buy_order_id, sell_order_id, buyer_id, seller_id, price, size, executed_at`

// PostgresBookStore implements BookStore using PostgreSQL.
//
// The exclusive scope of an asset is its row lock: every scope starts with
// SELECT ... FOR UPDATE on the asset, bounded by lock_timeout. Waiting for a
// pooled connection is bounded by the same timeout. Commit and rollback are
// the database's.
type PostgresBookStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresBookStore connects, migrates and returns a store
func NewPostgresBookStore(ctx context.Context, cfg PostgresConfig, lockTimeout time.Duration) (*PostgresBookStore, error) {
	pool, err := NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return NewPostgresBookStoreFromPool(pool, lockTimeout), nil
}

// NewPostgresBookStoreFromPool wraps an existing, migrated pool. Close closes the pool.
func NewPostgresBookStoreFromPool(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresBookStore {
	return &PostgresBookStore{pool: pool, lockTimeout: lockTimeout}
}

func (s *PostgresBookStore) WithinAssetScope(ctx context.Context, assetID string, fn func(ctx context.Context, tx storage.BookTx) error) (err error) {
	dbTx, err := s.begin(ctx)
	if err != nil {
		return wrapError(assetID, fmt.Errorf("begin: %w", err))
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	// SET does not take bind parameters
	timeoutMs := max(s.lockTimeout.Milliseconds(), 1)
	if _, err = dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMs)); err != nil {
		return wrapError(assetID, err)
	}

	asset, err := scanAsset(dbTx.QueryRow(ctx, `
		SELECT id, name, status, last_price, created_at
		FROM assets
		WHERE id = $1
		FOR UPDATE
	`, assetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return &types.NotFoundError{Kind: "asset", ID: assetID}
	}
	if err != nil {
		return wrapError(assetID, err)
	}

	tx := &pgTx{tx: dbTx, asset: asset}
	if err = fn(ctx, tx); err != nil {
		return wrapError(assetID, err)
	}

	if err = dbTx.Commit(ctx); err != nil {
		return wrapError(assetID, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// begin starts a transaction, giving up once lockTimeout passes without a
// free connection. The deadline only covers acquiring the connection and
// BEGIN; the transaction itself runs on ctx.
func (s *PostgresBookStore) begin(ctx context.Context) (pgx.Tx, error) {
	beginCtx, cancel := context.WithTimeout(ctx, max(s.lockTimeout, time.Millisecond))
	defer cancel()
	return s.pool.BeginTx(beginCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

func (s *PostgresBookStore) Order(ctx context.Context, orderID string) (*types.Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &types.NotFoundError{Kind: "order", ID: orderID}
	}
	return order, err
}

func (s *PostgresBookStore) OpenOrders(ctx context.Context, assetID string) ([]*types.Order, error) {
	if _, err := s.Asset(ctx, assetID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE asset_id = $1 AND status = 'open'
		ORDER BY priority_at, id
	`, assetID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *PostgresBookStore) RecentTrades(ctx context.Context, assetID string, limit int) ([]*types.Trade, error) {
	if _, err := s.Asset(ctx, assetID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE asset_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*types.Trade
	for rows.Next() {
		var trade types.Trade
		err := rows.Scan(
			&trade.Sequence, &trade.ID, &trade.AssetID, &trade.BuyOrderID, &trade.SellOrderID,
			&trade.BuyerID, &trade.SellerID, &trade.Price, &trade.Size, &trade.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, &trade)
	}
	return trades, rows.Err()
}

func (s *PostgresBookStore) Asset(ctx context.Context, assetID string) (*types.Asset, error) {
	asset, err := scanAsset(s.pool.QueryRow(ctx, `
		SELECT id, name, status, last_price, created_at
		FROM assets
		WHERE id = $1
	`, assetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &types.NotFoundError{Kind: "asset", ID: assetID}
	}
	return asset, err
}

func (s *PostgresBookStore) EnsureAsset(ctx context.Context, asset *types.Asset) error {
	if asset.ID == "" {
		return &types.ValidationError{Field: "asset_id", Message: "cannot be empty"}
	}

	status := asset.Status
	if status == "" {
		status = types.AssetTrading
	}
	createdAt := asset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO assets (id, name, status, last_price, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, asset.ID, asset.Name, string(status), asset.LastPrice, createdAt)
	return err
}

func (s *PostgresBookStore) Close() error {
	s.pool.Close()
	return nil
}

// pgTx is the BookTx of one database transaction
type pgTx struct {
	tx    pgx.Tx
	asset *types.Asset
}

func (t *pgTx) Asset() *types.Asset {
	asset := *t.asset
	return &asset
}

func (t *pgTx) Order(ctx context.Context, orderID string) (*types.Order, error) {
	order, err := scanOrder(t.tx.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND asset_id = $2
		FOR UPDATE
	`, orderID, t.asset.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &types.NotFoundError{Kind: "order", ID: orderID}
	}
	return order, err
}

func (t *pgTx) OpenOrders(ctx context.Context) ([]*types.Order, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE asset_id = $1 AND status = 'open'
		FOR UPDATE
	`, t.asset.ID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (t *pgTx) InsertOrder(ctx context.Context, order *types.Order) error {
	if order.AssetID != t.asset.ID {
		return fmt.Errorf("order %s belongs to asset %s, scope is %s", order.ID, order.AssetID, t.asset.ID)
	}
	if err := order.CheckInvariants(); err != nil {
		return err
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		order.ID, order.AssetID, order.OwnerID, string(order.Side), order.Price,
		order.Size, order.RemainingSize, string(order.Status),
		order.PriorityAt, order.CreatedAt, order.UpdatedAt,
	)
	return err
}

func (t *pgTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	if err := order.CheckInvariants(); err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET side = $3, price = $4, size = $5, remaining_size = $6, status = $7,
		    priority_at = $8, updated_at = $9
		WHERE id = $1 AND asset_id = $2
	`,
		order.ID, t.asset.ID, string(order.Side), order.Price, order.Size,
		order.RemainingSize, string(order.Status), order.PriorityAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &types.NotFoundError{Kind: "order", ID: order.ID}
	}
	return nil
}

func (t *pgTx) InsertTrade(ctx context.Context, trade *types.Trade) error {
	if trade.Size <= 0 {
		return &types.InvariantError{Message: fmt.Sprintf("trade %s: non-positive size %d", trade.ID, trade.Size)}
	}
	if trade.BuyerID == trade.SellerID {
		return &types.InvariantError{Message: fmt.Sprintf("trade %s: buyer and seller are both %s", trade.ID, trade.BuyerID)}
	}

	return t.tx.QueryRow(ctx, `
		INSERT INTO trades (id, asset_id, buy_order_id, sell_order_id, buyer_id, seller_id, price, size, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`,
		trade.ID, trade.AssetID, trade.BuyOrderID, trade.SellOrderID,
		trade.BuyerID, trade.SellerID, trade.Price, trade.Size, trade.ExecutedAt,
	).Scan(&trade.Sequence)
}

func (t *pgTx) SetLastPrice(ctx context.Context, price decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE assets SET last_price = $2 WHERE id = $1`, t.asset.ID, price)
	if err != nil {
		return err
	}
	t.asset.LastPrice = decimal.NewNullDecimal(price)
	return nil
}

func scanAsset(row pgx.Row) (*types.Asset, error) {
	var (
		asset  types.Asset
		status string
	)
	if err := row.Scan(&asset.ID, &asset.Name, &status, &asset.LastPrice, &asset.CreatedAt); err != nil {
		return nil, err
	}
	asset.Status = types.AssetStatus(status)
	return &asset, nil
}

func scanOrder(row pgx.Row) (*types.Order, error) {
	var (
		order        types.Order
		side, status string
	)
	err := row.Scan(
		&order.ID, &order.AssetID, &order.OwnerID, &side, &order.Price,
		&order.Size, &order.RemainingSize, &status,
		&order.PriorityAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Side = types.SideType(side)
	order.Status = types.OrderStatus(status)
	order.PriorityAt = order.PriorityAt.UTC()
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]*types.Order, error) {
	defer rows.Close()

	var orders []*types.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
