package core

import "strings"

// MarketType classifies the instruments listed by the exchange.
type MarketType int

// Market type constants define the instrument categories.
const (
	// MarketTypeUnknown is returned for categories this client does not know.
	MarketTypeUnknown MarketType = iota
	// MarketTypeFutures indicates a tradeable futures contract.
	MarketTypeFutures
	// MarketTypeSpotIndex indicates a reference spot index such as the CF-BPI.
	MarketTypeSpotIndex
	// MarketTypeVolatilityIndex indicates an implied volatility index.
	MarketTypeVolatilityIndex
)

// String returns the string representation of the market type.
func (m MarketType) String() string {
	return [...]string{
		"unknown",
		"futures",
		"spot index",
		"volatility index",
	}[m]
}

// Tradeable reports whether orders can be placed on instruments of this type.
func (m MarketType) Tradeable() bool {
	return m == MarketTypeFutures
}

// ParseMarketType maps an instrument type string to a MarketType.
// Variants such as "futures_inverse" map to MarketTypeFutures.
func ParseMarketType(s string) MarketType {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	switch {
	case strings.HasPrefix(s, "futures"):
		return MarketTypeFutures
	case s == "spot index":
		return MarketTypeSpotIndex
	case s == "volatility index":
		return MarketTypeVolatilityIndex
	}
	return MarketTypeUnknown
}
