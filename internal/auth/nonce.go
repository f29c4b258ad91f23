// Package auth derives the authentication headers of signed requests.
package auth

import (
	"strconv"
	"time"
)

// NonceSource yields the nonce attached to each signed request.
type NonceSource interface {
	Next() int64
}

// NonceFunc adapts a plain function to NonceSource.
type NonceFunc func() int64

// Next calls f.
func (f NonceFunc) Next() int64 {
	return f()
}

// ClockNonce returns the milliseconds elapsed since the Unix epoch in UTC.
// Two calls within the same millisecond return the same value.
type ClockNonce struct {
	now func() time.Time
}

// NewClockNonce returns a ClockNonce reading the wall clock.
func NewClockNonce() *ClockNonce {
	return &ClockNonce{now: time.Now}
}

// Next returns the current Unix time in milliseconds.
func (c *ClockNonce) Next() int64 {
	now := time.Now
	if c != nil && c.now != nil {
		now = c.now
	}
	return now().UTC().UnixMilli()
}

// FormatNonce renders a nonce the way it appears in the preimage and header.
func FormatNonce(n int64) string {
	return strconv.FormatInt(n, 10)
}
