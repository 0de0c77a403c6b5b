package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zgpcy/aws-cost-api/internal/provider"
)

// AmountPlaces is the number of fractional digits kept in reported amounts
const AmountPlaces = 2

// Money is a rounded amount in a currency
type Money struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// NewMoney rounds a billing amount to AmountPlaces, half away from zero.
// Rounding is done on the decimal string so that "3.005" becomes 3.01.
func NewMoney(a provider.Amount) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(a.Value))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", a.Value, err)
	}

	return Money{
		Amount: d.Round(AmountPlaces).InexactFloat64(),
		Unit:   a.Unit,
	}, nil
}
