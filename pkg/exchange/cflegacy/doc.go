// Package cflegacy implements the original /api/ endpoints of the Crypto
// Facilities derivatives exchange. Instruments are addressed by a
// tradeable and a unit rather than by symbol.
//
// New code should prefer package cryptofacilities. This package is kept for
// accounts and tooling that still depend on the legacy surface.
package cflegacy
