package models

import (
	"time"

	"github.com/PxPatel/auction-engine/internal/matching"
	"github.com/PxPatel/auction-engine/internal/types"
)

// BaseResponse is the base structure for all API responses
type BaseResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// OK builds a successful envelope
func OK(message string) BaseResponse {
	return BaseResponse{
		Success:   true,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

// OrderDTO represents an order in API responses. Prices are decimal strings.
type OrderDTO struct {
	OrderID       string    `json:"order_id"`
	AssetID       string    `json:"asset_id"`
	OwnerID       string    `json:"owner_id"`
	Side          string    `json:"side"`
	Price         string    `json:"price"`
	Size          int64     `json:"size"`
	FilledSize    int64     `json:"filled_size"`
	RemainingSize int64     `json:"remaining_size"`
	Status        string    `json:"status"`
	PriorityAt    time.Time `json:"priority_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewOrderDTO converts an order
func NewOrderDTO(o *types.Order) OrderDTO {
	return OrderDTO{
		OrderID:       o.ID,
		AssetID:       o.AssetID,
		OwnerID:       o.OwnerID,
		Side:          string(o.Side),
		Price:         o.Price.String(),
		Size:          o.Size,
		FilledSize:    o.FilledSize(),
		RemainingSize: o.RemainingSize,
		Status:        string(o.Status),
		PriorityAt:    o.PriorityAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// TradeDTO represents a trade in API responses
type TradeDTO struct {
	TradeID     string    `json:"trade_id"`
	Sequence    int64     `json:"sequence"`
	AssetID     string    `json:"asset_id"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	Price       string    `json:"price"`
	Size        int64     `json:"size"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// NewTradeDTO converts a trade
func NewTradeDTO(t *types.Trade) TradeDTO {
	return TradeDTO{
		TradeID:     t.ID,
		Sequence:    t.Sequence,
		AssetID:     t.AssetID,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		BuyerID:     t.BuyerID,
		SellerID:    t.SellerID,
		Price:       t.Price.String(),
		Size:        t.Size,
		ExecutedAt:  t.ExecutedAt,
	}
}

// FillDTO is one fill computed by a simulation
type FillDTO struct {
	RestingOrderID string `json:"resting_order_id"`
	Size           int64  `json:"fill_size"`
	Price          string `json:"trade_price"`
	BuyerID        string `json:"buyer_id"`
	SellerID       string `json:"seller_id"`
	BuyOrderID     string `json:"buy_order_id"`
	SellOrderID    string `json:"sell_order_id"`
}

// NewFillDTO converts a fill
func NewFillDTO(f types.Fill) FillDTO {
	return FillDTO{
		RestingOrderID: f.RestingOrderID,
		Size:           f.Size,
		Price:          f.Price.String(),
		BuyerID:        f.BuyerID,
		SellerID:       f.SellerID,
		BuyOrderID:     f.BuyOrderID,
		SellOrderID:    f.SellOrderID,
	}
}

// MatchResultResponse is returned by every operation that runs a matching pass
type MatchResultResponse struct {
	BaseResponse
	Order         OrderDTO   `json:"order"`
	Trades        []TradeDTO `json:"trades"`
	UpdatedOrders []OrderDTO `json:"updated_orders"`
	RemainingSize int64      `json:"remaining_size"`
}

// NewMatchResultResponse converts an engine result
func NewMatchResultResponse(message string, r *matching.MatchResult) MatchResultResponse {
	resp := MatchResultResponse{
		BaseResponse:  OK(message),
		Order:         NewOrderDTO(&r.Order),
		Trades:        make([]TradeDTO, 0, len(r.Trades)),
		UpdatedOrders: make([]OrderDTO, 0, len(r.UpdatedOrders)),
		RemainingSize: r.RemainingSize,
	}
	for i := range r.Trades {
		resp.Trades = append(resp.Trades, NewTradeDTO(&r.Trades[i]))
	}
	for i := range r.UpdatedOrders {
		resp.UpdatedOrders = append(resp.UpdatedOrders, NewOrderDTO(&r.UpdatedOrders[i]))
	}
	return resp
}

// BatchOrderResult represents a single order result in batch submission
type BatchOrderResult struct {
	Index         int        `json:"index"`
	Success       bool       `json:"success"`
	OrderID       string     `json:"order_id,omitempty"`
	RemainingSize int64      `json:"remaining_size,omitempty"`
	Trades        []TradeDTO `json:"trades,omitempty"`
	Error         *APIError  `json:"error,omitempty"`
}

// BatchOrderSummary provides summary statistics for batch submission
type BatchOrderSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Trades     int `json:"trades"`
}

// BatchOrderResponse represents the response for batch order submission
type BatchOrderResponse struct {
	BaseResponse
	Results []BatchOrderResult `json:"results"`
	Summary BatchOrderSummary  `json:"summary"`
}

// GetOrderResponse represents the response for getting or cancelling a single order
type GetOrderResponse struct {
	BaseResponse
	Order *OrderDTO `json:"order,omitempty"`
}

// AssetDTO represents an asset in API responses
type AssetDTO struct {
	AssetID   string    `json:"asset_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	LastPrice *string   `json:"last_price"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAssetDTO converts an asset; LastPrice is null until the first trade
func NewAssetDTO(a *types.Asset) AssetDTO {
	dto := AssetDTO{
		AssetID:   a.ID,
		Name:      a.Name,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
	if a.LastPrice.Valid {
		price := a.LastPrice.Decimal.String()
		dto.LastPrice = &price
	}
	return dto
}

// GetAssetResponse represents the response for getting an asset
type GetAssetResponse struct {
	BaseResponse
	Asset AssetDTO `json:"asset"`
}

// PriceLevel represents a price level in the order book
type PriceLevel struct {
	Price      string `json:"price"`
	Size       int64  `json:"size"`
	OrderCount int    `json:"order_count"`
}

// OrderBookResponse represents the aggregated book of an asset
type OrderBookResponse struct {
	BaseResponse
	AssetID   string       `json:"asset_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Spread    *string      `json:"spread,omitempty"`
	LastPrice *string      `json:"last_price,omitempty"`
}

// NewOrderBookResponse converts a depth view
func NewOrderBookResponse(asset *types.Asset, depth matching.Depth) OrderBookResponse {
	resp := OrderBookResponse{
		BaseResponse: OK(""),
		AssetID:      asset.ID,
		Bids:         convertLevels(depth.Bids),
		Asks:         convertLevels(depth.Asks),
		LastPrice:    NewAssetDTO(asset).LastPrice,
	}
	if spread, ok := depth.Spread(); ok {
		s := spread.String()
		resp.Spread = &s
	}
	return resp
}

func convertLevels(levels []matching.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(levels))
	for _, level := range levels {
		out = append(out, PriceLevel{
			Price:      level.Price.String(),
			Size:       level.Size,
			OrderCount: level.OrderCount,
		})
	}
	return out
}

// GetTradesResponse represents the response for getting trades
type GetTradesResponse struct {
	BaseResponse
	AssetID string     `json:"asset_id"`
	Trades  []TradeDTO `json:"trades"`
	Count   int        `json:"count"`
}

// SimulateResponse lists the fills the incoming order would produce
type SimulateResponse struct {
	BaseResponse
	Fills         []FillDTO `json:"fills"`
	FilledSize    int64     `json:"filled_size"`
	RemainingSize int64     `json:"remaining_size"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Version       string    `json:"version"`
	Store         string    `json:"store"`
}
