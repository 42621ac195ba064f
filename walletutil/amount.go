// Copyright (c) 2013, 2014 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletutil

import (
	"errors"
	"math"
	"strconv"
)

// AmountUnit describes a method of converting an Amount to a floating
// point value representing a decimal multiple of satoshis.
type AmountUnit int

// These constants define the amount units this package understands.
const (
	AmountMegaBTC  AmountUnit = 6
	AmountKiloBTC  AmountUnit = 3
	AmountBTC      AmountUnit = 0
	AmountMilliBTC AmountUnit = -3
	AmountMicroBTC AmountUnit = -6
	AmountSatoshi  AmountUnit = -8
)

// String returns the unit as a string, e.g. "BTC" or "mBTC".
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaBTC:
		return "MBTC"
	case AmountKiloBTC:
		return "kBTC"
	case AmountBTC:
		return "BTC"
	case AmountMilliBTC:
		return "mBTC"
	case AmountMicroBTC:
		return "μBTC"
	case AmountSatoshi:
		return "Satoshi"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " BTC"
	}
}

// SatoshiPerBitcoin is the number of satoshis in one whole unit.
const SatoshiPerBitcoin = 1e8

// maxSatoshi is the maximum transaction amount allowed, in satoshis,
// matching Bitcoin's 21 million coin supply cap.
const maxSatoshi = 21e6 * SatoshiPerBitcoin

// ErrAmountRange is returned when a value can't be represented, in
// satoshis, within the range of an Amount type.
var ErrAmountRange = errors.New("amount out of valid range")

// Amount represents a quantity of satoshis, the smallest representable
// unit, as a signed integer to match the sign of an on-chain value or a
// fee delta such as those used during RBF bumping.
type Amount int64

// round converts a floating point number, which was expected to be
// produced by multiplying a floating point number of Bitcoin by
// SatoshiPerBitcoin, to an Amount.
func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

// NewAmount creates an Amount from a floating point value representing
// whole bitcoin, erroring for a value outside what 21 million coins at
// 8 decimal places can represent.
func NewAmount(f float64) (Amount, error) {
	switch {
	case math.IsNaN(f), math.IsInf(f, 1), math.IsInf(f, -1):
		return 0, ErrAmountRange
	}
	amount := round(f * SatoshiPerBitcoin)
	if amount < -maxSatoshi || amount > maxSatoshi {
		return 0, ErrAmountRange
	}
	return amount, nil
}

// ToUnit converts a monetary amount counted in satoshis to a floating
// point value representing an amount of the given unit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return float64(a) / math.Pow10(int(u+8))
}

// ToBTC is a convenience function equivalent to calling ToUnit with
// AmountBTC.
func (a Amount) ToBTC() float64 {
	return a.ToUnit(AmountBTC)
}

// Format formats a monetary amount counted in satoshis as a string for
// a given unit, with trailing zeros trimmed and the unit appended.
func (a Amount) Format(u AmountUnit) string {
	units := " " + u.String()
	formatted := strconv.FormatFloat(a.ToUnit(u), 'f', -int(u+8), 64)
	return formatted + units
}

// String is the equivalent of calling Format with AmountBTC.
func (a Amount) String() string {
	return a.Format(AmountBTC)
}

// MulF64 multiplies an Amount by a floating point value, rounding to
// the nearest satoshi, primarily for fee-rate arithmetic (satoshis per
// weight unit times a weight).
func (a Amount) MulF64(f float64) Amount {
	return round(float64(a) * f)
}
