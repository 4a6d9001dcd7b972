package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		price string
		ok    bool
	}{
		{"50", true},
		{"0.00000001", true},
		{"50.12345678", true},
		{"50.10000000000", true}, // trailing zeros are not extra places
		{"999999999999.99999999", true},
		{"0", false},
		{"-1", false},
		{"50.000000001", false},
		{"0.000000001", false},
		{"1000000000000", false},
		{"10000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := ValidatePrice(decimal.RequireFromString(tt.price))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestMaxPriceMatchesColumnWidth(t *testing.T) {
	assert.Equal(t, "1000000000000", MaxPrice.String())
}
