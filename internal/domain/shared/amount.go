package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxAmountLength = 40

	// decimal rescales to the operand exponent, so the window bounds every later comparison
	MinAmountExponent = -18
	MaxAmountExponent = 18
)

// Amount is a transfer amount as the caller sent it, either a JSON number or a string.
// Decoding never fails, so a malformed amount only rejects its own transfer.
type Amount struct {
	raw string
}

// AmountOf wraps an already parsed value
func AmountOf(d decimal.Decimal) Amount {
	return Amount{raw: d.String()}
}

// AmountFromString keeps s unparsed until Decimal is called
func AmountFromString(s string) Amount {
	return Amount{raw: s}
}

func (a Amount) String() string {
	return a.raw
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.raw = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.raw = s
		return nil
	}
	a.raw = string(data)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// Decimal parses the amount. Oversized text and exponents outside
// [MinAmountExponent, MaxAmountExponent] are refused before any arithmetic.
func (a Amount) Decimal() (decimal.Decimal, error) {
	raw := strings.TrimSpace(a.raw)
	switch {
	case raw == "":
		return decimal.Zero, ErrInvalidArgument{Field: "amount", Reason: "is required"}
	case len(raw) > maxAmountLength:
		return decimal.Zero, ErrInvalidArgument{Field: "amount", Reason: fmt.Sprintf("must be at most %d characters", maxAmountLength)}
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidArgument{Field: "amount", Reason: "must be a decimal number"}
	}
	if exp := d.Exponent(); exp < MinAmountExponent || exp > MaxAmountExponent {
		return decimal.Zero, ErrInvalidArgument{Field: "amount", Reason: "is out of range"}
	}
	return d, nil
}
