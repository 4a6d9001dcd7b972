package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SideType is the direction of an order
type SideType string

const (
	Buy  SideType = "buy"
	Sell SideType = "sell"
)

// ParseSide converts a user supplied side ("buy", " SELL ") into a SideType
func ParseSide(s string) (SideType, error) {
	switch SideType(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", &ValidationError{Field: "side", Message: fmt.Sprintf("must be 'buy' or 'sell', got %q", s)}
	}
}

func (s SideType) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the side an order of this side trades against
func (s SideType) Opposite() SideType {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
)

// Order is one resting or incoming instruction to trade a fixed quantity of
// one asset at a limit price.
//
// PriorityAt is the matching-priority timestamp used to break ties inside a
// price level. It starts equal to CreatedAt and is reset when the price or
// side of the order is amended.
type Order struct {
	ID            string          `json:"id"`
	AssetID       string          `json:"asset_id"`
	OwnerID       string          `json:"owner_id"`
	Side          SideType        `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Size          int64           `json:"size"`
	RemainingSize int64           `json:"remaining_size"`
	Status        OrderStatus     `json:"status"`
	PriorityAt    time.Time       `json:"priority_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderRequest carries the caller supplied fields of a new order
type OrderRequest struct {
	AssetID string
	OwnerID string
	Side    SideType
	Price   decimal.Decimal
	Size    int64
}

// Validate rejects malformed requests before any matching attempt
func (r OrderRequest) Validate() error {
	if strings.TrimSpace(r.AssetID) == "" {
		return &ValidationError{Field: "asset_id", Message: "cannot be empty"}
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return &ValidationError{Field: "owner_id", Message: "cannot be empty"}
	}
	if !r.Side.Valid() {
		return &ValidationError{Field: "side", Message: fmt.Sprintf("must be 'buy' or 'sell', got %q", r.Side)}
	}
	if err := ValidatePrice(r.Price); err != nil {
		return err
	}
	if r.Size <= 0 {
		return &ValidationError{Field: "size", Message: "must be greater than 0"}
	}
	return nil
}

// NewOrder creates an open order from a validated request
func NewOrder(req OrderRequest, now time.Time) *Order {
	return &Order{
		ID:            uuid.NewString(),
		AssetID:       req.AssetID,
		OwnerID:       req.OwnerID,
		Side:          req.Side,
		Price:         req.Price,
		Size:          req.Size,
		RemainingSize: req.Size,
		Status:        StatusOpen,
		PriorityAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsOpen reports whether the order can take part in matching
func (o *Order) IsOpen() bool {
	return o.Status == StatusOpen && o.RemainingSize > 0
}

// FilledSize is the quantity already executed
func (o *Order) FilledSize() int64 {
	return o.Size - o.RemainingSize
}

// ApplyFill decrements the remaining size and closes the order once nothing is left
func (o *Order) ApplyFill(size int64, now time.Time) error {
	if size <= 0 {
		return &InvariantError{Message: fmt.Sprintf("order %s: non-positive fill size %d", o.ID, size)}
	}
	if !o.IsOpen() {
		return &InvariantError{Message: fmt.Sprintf("order %s: fill against %s order", o.ID, o.Status)}
	}
	if size > o.RemainingSize {
		return &InvariantError{Message: fmt.Sprintf("order %s: fill size %d exceeds remaining %d", o.ID, size, o.RemainingSize)}
	}

	o.RemainingSize -= size
	if o.RemainingSize == 0 {
		o.Status = StatusFilled
	}
	o.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the size/status relationship and the price of a
// persisted order
func (o *Order) CheckInvariants() error {
	switch {
	case ValidatePrice(o.Price) != nil:
		return &InvariantError{Message: fmt.Sprintf("order %s: price %s off the price grid", o.ID, o.Price)}
	case o.RemainingSize < 0 || o.RemainingSize > o.Size:
		return &InvariantError{Message: fmt.Sprintf("order %s: remaining %d outside [0, %d]", o.ID, o.RemainingSize, o.Size)}
	case o.Status == StatusOpen && o.RemainingSize == 0:
		return &InvariantError{Message: fmt.Sprintf("order %s: open with nothing remaining", o.ID)}
	case o.Status == StatusFilled && o.RemainingSize != 0:
		return &InvariantError{Message: fmt.Sprintf("order %s: filled with %d remaining", o.ID, o.RemainingSize)}
	}
	return nil
}
