package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Prices are stored as NUMERIC(PricePrecision, PriceScale); see
// internal/storage/postgres/001_initial_schema.sql. Every store must hold a
// price exactly as the matcher compared it, so anything the column would
// round or overflow is rejected up front.
const (
	PricePrecision = 20
	PriceScale     = 8
)

// MaxPrice is the first price with too many integer digits for the column
var MaxPrice = decimal.New(1, PricePrecision-PriceScale)

// ValidatePrice checks that p is positive, has at most PriceScale decimal
// places and fits below MaxPrice.
func ValidatePrice(p decimal.Decimal) error {
	switch {
	case !p.IsPositive():
		return &ValidationError{Field: "price", Message: "must be greater than 0"}
	case !p.Truncate(PriceScale).Equal(p):
		return &ValidationError{Field: "price", Message: fmt.Sprintf("must have at most %d decimal places, got %s", PriceScale, p)}
	case p.GreaterThanOrEqual(MaxPrice):
		return &ValidationError{Field: "price", Message: fmt.Sprintf("must be less than %s, got %s", MaxPrice, p)}
	}
	return nil
}
