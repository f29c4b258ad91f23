package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Credentials holds API authentication credentials for an account.
type Credentials struct {
	// APIKey is the public API key, sent verbatim in the APIKey header.
	APIKey string `json:"api_key" validate:"required"`
	// APISecret is the base64-encoded private key used for signing requests.
	APISecret string `json:"api_secret" validate:"required"`
}

// String masks the key and omits the secret so credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{APIKey:%s}", MaskKey(c.APIKey))
}

// Config contains all configuration options for a client session.
type Config struct {
	BaseURL     string       `json:"base_url" validate:"required,url"`
	SandboxURL  string       `json:"sandbox_url" validate:"omitempty,url"`
	Sandbox     bool         `json:"sandbox"`
	Credentials *Credentials `json:"credentials,omitempty"`
	// Keys are further key pairs of the same account. Authenticated
	// requests rotate across Credentials and Keys as KeyRotation says.
	Keys        []*Credentials `json:"keys,omitempty" validate:"dive,required"`
	KeyRotation string         `json:"key_rotation" validate:"omitempty,oneof=on_rate_limit round_robin on_error"`

	// Timeout is the maximum duration for one HTTP exchange.
	Timeout time.Duration `json:"timeout" validate:"min=1ms"`

	// MinInterval is the minimum spacing between two dispatched requests.
	MinInterval time.Duration `json:"min_interval" validate:"min=0"`
	// BudgetRequests and BudgetPeriod add an optional allowance of requests
	// per period on top of MinInterval. Zero disables the budget.
	BudgetRequests int           `json:"budget_requests" validate:"min=0"`
	BudgetPeriod   time.Duration `json:"budget_period" validate:"min=0"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=trace debug info warn error disabled"`
}

// Key rotation strategies.
const (
	// RotateOnRateLimit moves to the next key when the server answers
	// apiLimitExceeded.
	RotateOnRateLimit = "on_rate_limit"
	// RotateRoundRobin moves to the next key after every request.
	RotateRoundRobin = "round_robin"
	// RotateOnError moves to the next key after any failed request.
	RotateOnError = "on_error"
)

// DefaultConfig returns a Config with production URLs, a 10s timeout,
// 500ms request spacing and the circuit breaker disabled.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     ProductionURL,
		SandboxURL:  SandboxURL,
		Sandbox:     false,
		Timeout:     10 * time.Second,
		MinInterval: DefaultMinInterval,

		CircuitBreakerEnabled:          false,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		KeyRotation: RotateOnRateLimit,

		LogLevel: "info",
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Sandbox && c.SandboxURL == "" {
		return errors.New("SandboxURL is required when Sandbox is enabled")
	}
	if c.BudgetRequests > 0 && c.BudgetPeriod <= 0 {
		return errors.New("BudgetPeriod must be positive when BudgetRequests is set")
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return errors.New("CircuitBreakerFailThreshold must be positive when enabled")
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return errors.New("CircuitBreakerSuccessThreshold must be positive when enabled")
		}
		if c.CircuitBreakerTimeout <= 0 {
			return errors.New("CircuitBreakerTimeout must be positive when enabled")
		}
	}
	return nil
}

// Endpoint returns the base URL requests are sent to.
func (c *Config) Endpoint() string {
	if c.Sandbox {
		return c.SandboxURL
	}
	return c.BaseURL
}

// WithCredentials sets the API credentials and returns the config for chaining.
func (c *Config) WithCredentials(creds *Credentials) *Config {
	c.Credentials = creds
	return c
}

// WithKeys adds further key pairs rotated with the given strategy and
// returns the config for chaining.
func (c *Config) WithKeys(rotation string, keys ...*Credentials) *Config {
	c.KeyRotation = rotation
	c.Keys = append(c.Keys, keys...)
	return c
}

// WithSandbox enables or disables sandbox mode and returns the config for chaining.
func (c *Config) WithSandbox(sandbox bool) *Config {
	c.Sandbox = sandbox
	return c
}

// WithBaseURL overrides the production base URL and returns the config for chaining.
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithMinInterval sets the minimum spacing between requests and returns the config for chaining.
func (c *Config) WithMinInterval(interval time.Duration) *Config {
	c.MinInterval = interval
	return c
}

// WithBudget sets the optional per-period request allowance and returns the config for chaining.
func (c *Config) WithBudget(requests int, period time.Duration) *Config {
	c.BudgetRequests = requests
	c.BudgetPeriod = period
	return c
}

// WithCircuitBreaker enables the breaker with the given thresholds and returns the config for chaining.
func (c *Config) WithCircuitBreaker(failThreshold, successThreshold int, timeout time.Duration) *Config {
	c.CircuitBreakerEnabled = true
	c.CircuitBreakerFailThreshold = failThreshold
	c.CircuitBreakerSuccessThreshold = successThreshold
	c.CircuitBreakerTimeout = timeout
	return c
}

// MaskKey shortens a key to its first and last four characters.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
