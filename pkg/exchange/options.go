package exchange

import "time"

type Option func(*Options)

type Options struct {
	// LastTime restricts history-style endpoints to entries after this instant.
	LastTime time.Time
	// Number caps the entries returned by endpoints that accept a count.
	Number int
}

func WithLastTime(t time.Time) Option {
	return func(o *Options) {
		o.LastTime = t
	}
}

func WithNumber(n int) Option {
	return func(o *Options) {
		o.Number = n
	}
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
