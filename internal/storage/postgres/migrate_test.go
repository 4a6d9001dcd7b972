package postgres

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PxPatel/auction-engine/internal/types"
)

// Validation only accepts prices the price columns hold without rounding
func TestSchemaPriceColumnsMatchPriceGrid(t *testing.T) {
	numeric := fmt.Sprintf("NUMERIC(%d, %d)", types.PricePrecision, types.PriceScale)
	assert.Equal(t, 3, strings.Count(initialSchema, numeric), "last_price, orders.price and trades.price")
	assert.Equal(t, 3, strings.Count(initialSchema, "NUMERIC("))
}
