package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/PxPatel/auction-engine/internal/matching"
	"github.com/PxPatel/auction-engine/internal/types"
)

var validate = newValidator()

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of req and converts the first
// failures into a 400 response
func validateStruct(req interface{}) *HTTPError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrBadRequest(err.Error(), nil)
	}

	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	first := fieldErrs[0]
	return ErrValidation(
		fmt.Sprintf("%s failed on '%s'", first.Field(), first.Tag()),
		map[string]interface{}{"fields": fields},
	)
}

// SubmitOrderRequest represents a single order submission.
// Price accepts a JSON number or a decimal string.
type SubmitOrderRequest struct {
	AssetID string          `json:"asset_id" validate:"required"`
	OwnerID string          `json:"owner_id" validate:"required"`
	Side    string          `json:"side" validate:"required"`
	Price   decimal.Decimal `json:"price"`
	Size    int64           `json:"size" validate:"gt=0"`
}

// Validate validates the order request
func (r *SubmitOrderRequest) Validate() *HTTPError {
	return validateStruct(r)
}

// ToOrderRequest converts the request; side and price are checked here and
// again by the engine
func (r *SubmitOrderRequest) ToOrderRequest() (types.OrderRequest, error) {
	side, err := types.ParseSide(r.Side)
	if err != nil {
		return types.OrderRequest{}, err
	}
	if err := types.ValidatePrice(r.Price); err != nil {
		return types.OrderRequest{}, err
	}
	return types.OrderRequest{
		AssetID: strings.TrimSpace(r.AssetID),
		OwnerID: strings.TrimSpace(r.OwnerID),
		Side:    side,
		Price:   r.Price,
		Size:    r.Size,
	}, nil
}

// BatchOrderRequest represents a batch order submission
type BatchOrderRequest struct {
	Orders []SubmitOrderRequest `json:"orders"`
}

// Validate validates the batch request
func (r *BatchOrderRequest) Validate(maxSize int) *HTTPError {
	if len(r.Orders) == 0 {
		return ErrBadRequest("orders array cannot be empty", map[string]interface{}{"field": "orders"})
	}

	if len(r.Orders) > maxSize {
		return ErrBadRequest(fmt.Sprintf("batch size cannot exceed %d orders", maxSize),
			map[string]interface{}{"field": "orders", "max_size": maxSize, "provided_size": len(r.Orders)})
	}

	return nil
}

// AmendOrderRequest changes price, side or size of a resting order.
// Omitted fields are left as they are.
type AmendOrderRequest struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	Side  *string          `json:"side,omitempty" validate:"omitempty,min=1"`
	Size  *int64           `json:"size,omitempty" validate:"omitempty,gt=0"`
}

// Validate validates the amendment request
func (r *AmendOrderRequest) Validate() *HTTPError {
	if r.Price == nil && r.Side == nil && r.Size == nil {
		return ErrValidation("amendment must change price, side or size", nil)
	}
	return validateStruct(r)
}

// ToAmendment converts the request into an engine amendment
func (r *AmendOrderRequest) ToAmendment() (matching.Amendment, error) {
	a := matching.Amendment{Price: r.Price, Size: r.Size}
	if r.Side != nil {
		side, err := types.ParseSide(*r.Side)
		if err != nil {
			return matching.Amendment{}, err
		}
		a.Side = &side
	}
	return a, nil
}

// SimulationOrder is an order of a caller supplied book snapshot
type SimulationOrder struct {
	ID            string          `json:"id" validate:"required"`
	AssetID       string          `json:"asset_id" validate:"required"`
	OwnerID       string          `json:"owner_id" validate:"required"`
	Side          string          `json:"side" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	RemainingSize int64           `json:"remaining_size" validate:"gte=0"`
	Status        string          `json:"status,omitempty" validate:"omitempty,oneof=open filled cancelled"`
	PriorityAt    time.Time       `json:"priority_at"`
}

// ToOrder converts the snapshot order; a missing status means open
func (o *SimulationOrder) ToOrder() (*types.Order, error) {
	side, err := types.ParseSide(o.Side)
	if err != nil {
		return nil, err
	}
	if err := types.ValidatePrice(o.Price); err != nil {
		return nil, err
	}
	status := types.OrderStatus(o.Status)
	if status == "" {
		status = types.StatusOpen
	}
	return &types.Order{
		ID:            o.ID,
		AssetID:       o.AssetID,
		OwnerID:       o.OwnerID,
		Side:          side,
		Price:         o.Price,
		Size:          o.RemainingSize,
		RemainingSize: o.RemainingSize,
		Status:        status,
		PriorityAt:    o.PriorityAt,
		CreatedAt:     o.PriorityAt,
		UpdatedAt:     o.PriorityAt,
	}, nil
}

// SimulateRequest asks for the fills an incoming order would produce
// against a book snapshot, without touching any stored state
type SimulateRequest struct {
	Incoming   SimulationOrder   `json:"incoming" validate:"required"`
	Candidates []SimulationOrder `json:"candidates" validate:"dive"`
}

// Validate validates the simulation request
func (r *SimulateRequest) Validate() *HTTPError {
	return validateStruct(r)
}
