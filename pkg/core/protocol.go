package core

import "time"

const (
	ProductionURL = "https://www.cryptofacilities.com/derivatives"
	SandboxURL    = "https://conformance.cryptofacilities.com/derivatives"

	// FormContentType is sent with every request body.
	FormContentType = "application/x-www-form-urlencoded"

	// DefaultMinInterval is the default spacing between two requests.
	DefaultMinInterval = 500 * time.Millisecond
)
