package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a type that represents a monetary amount in satoshis for Bitcoin.
type Money uint64

// MilliSats is an amount in millisatoshis, the unit LNURL-pay negotiates in.
type MilliSats uint64

const msatPerSat = 1000

// ErrNegativeAmount is returned when trying to create a Money with a negative amount.
var ErrNegativeAmount = errors.New("amount cannot be negative")

// ErrFractionalSats is returned when a millisatoshi amount does not map to whole satoshis.
var ErrFractionalSats = errors.New("amount is not a whole number of satoshis")

func NewFromBtc(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}

	return Money(amount.Mul(decimal.NewFromInt(1e8)).IntPart()), nil // nolint:gosec
}

func NewFromMilliSats(amount MilliSats) (Money, error) {
	if amount%msatPerSat != 0 {
		return 0, fmt.Errorf("%d msat: %w", amount, ErrFractionalSats)
	}

	return Money(amount / msatPerSat), nil
}

func (m Money) ToBtc() decimal.Decimal {
	return decimal.NewFromUint64(uint64(m)).Div(decimal.NewFromInt(1e8))
}

func (m Money) ToMilliSats() MilliSats {
	return MilliSats(m) * msatPerSat
}

// String renders the amount the way the faucet pages show it, e.g. "100 sats".
func (m Money) String() string {
	return fmt.Sprintf("%d sats", uint64(m))
}

func (m MilliSats) String() string {
	return fmt.Sprintf("%dmsat", uint64(m))
}
