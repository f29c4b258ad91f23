// Package cryptofacilities implements the v2 REST endpoints of the Crypto
// Facilities derivatives exchange on top of an exchange.Querier.
//
// Market data calls (instruments, tickers, order book, history) are public.
// Account, order and transfer calls are signed by the session.
//
// API Documentation: https://www.cryptofacilities.com/resources/hc/en-us/categories/115000132213-API
package cryptofacilities
