package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase contracts.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell contracts.
	SideSell
)

// String returns the wire form used by the v2 API ("buy" or "sell").
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// Title returns the capitalised form used by the legacy API ("Buy" or "Sell").
func (s OrderSide) Title() string {
	return [...]string{"Buy", "Sell"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// Matching is case-insensitive.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	side, err := ParseOrderSide(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// ParseOrderSide converts "buy" or "sell" in any case to an OrderSide.
func ParseOrderSide(s string) (OrderSide, error) {
	switch strings.ToLower(s) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	}
	return SideBuy, fmt.Errorf("unknown order side %q", s)
}

// OrderType represents the type of order to place.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeLimit rests on the book at a limit price.
	TypeLimit OrderType = iota
	// TypeStop triggers a limit order once the stop price trades.
	TypeStop
)

// String returns the wire form of the order type ("lmt" or "stp").
func (t OrderType) String() string {
	return [...]string{"lmt", "stp"}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	ot, err := ParseOrderType(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*t = ot
	return nil
}

// ParseOrderType accepts the short wire names and their long forms.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(s) {
	case "lmt", "limit":
		return TypeLimit, nil
	case "stp", "stop":
		return TypeStop, nil
	}
	return TypeLimit, fmt.Errorf("unknown order type %q", s)
}

// BookLevel is one price level of an order book or cumulative book.
type BookLevel struct {
	Price apd.Decimal `json:"price"`
	Size  apd.Decimal `json:"size"`
}

// TimeLayout is the round-trip timestamp format accepted by time filters.
const TimeLayout = "2006-01-02T15:04:05.0000000Z07:00"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses the timestamps returned by the exchange. Both RFC 3339
// with any fractional precision and the bare date-time form are accepted.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
