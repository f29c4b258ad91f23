package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cfkit/internal/auth"
	"cfkit/internal/circuitbreaker"
	"cfkit/internal/keyring"
	"cfkit/internal/ratelimit"
	"cfkit/internal/transport"
	"cfkit/pkg/core"
)

// State represents the lifecycle state of a Session.
type State int

const (
	// StateNew indicates a session that is still being constructed.
	StateNew State = iota
	// StateActive indicates a session that is ready to process requests.
	StateActive
	// StateClosed indicates a session that has been shut down and can no longer be used.
	StateClosed
)

// String returns the string representation of the State.
func (s State) String() string {
	return [...]string{"NEW", "ACTIVE", "CLOSED"}[s]
}

// Session is the request pipeline for one account. Every call goes through
// the same limiter, so dispatches from all goroutines sharing a Session are
// spaced by at least the configured interval. Sessions are safe for
// concurrent use.
type Session struct {
	mu        sync.RWMutex
	config    *core.Config
	transport *transport.Client
	limiter   *ratelimit.Limiter
	breaker   *circuitbreaker.Breaker
	keys      *keyring.KeyRing
	nonces    auth.NonceSource
	logger    zerolog.Logger
	state     State
	createdAt time.Time
	lastUsed  time.Time
}

// Response is the raw outcome of one exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// Option customises a Session at construction.
type Option func(*Session)

// WithLogger sets the session logger. The level is taken from Config.LogLevel.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithLimiter injects a limiter, for example to share one between sessions
// that use the same account.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Session) {
		s.limiter = l
	}
}

// WithNonceSource replaces the wall-clock nonce source.
func WithNonceSource(n auth.NonceSource) Option {
	return func(s *Session) {
		s.nonces = n
	}
}

// New creates a Session from config. The configuration is validated and
// the API secret decoded before the session is returned, so a malformed
// secret fails here as a configuration error.
func New(config *core.Config, opts ...Option) (*Session, error) {
	if config == nil {
		return nil, core.NewConfigurationError("session.New", "config is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, core.NewConfigurationError("session.New", err.Error(), err)
	}

	s := &Session{
		config:    config,
		logger:    zerolog.Nop(),
		state:     StateNew,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.LogLevel != "" {
		if level, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			s.logger = s.logger.Level(level)
		}
	}

	keys, err := keyring.FromConfig(config)
	if err != nil {
		return nil, err
	}
	keys.SetLogger(s.logger)
	s.keys = keys

	if s.nonces == nil {
		s.nonces = auth.NewClockNonce()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(config.MinInterval, ratelimit.WithBudget(config.BudgetRequests, config.BudgetPeriod))
	}
	s.breaker = circuitbreaker.FromConfig(config)

	client, err := transport.NewClient(transport.ConfigFrom(config), s.logger)
	if err != nil {
		return nil, err
	}
	s.transport = client
	s.state = StateActive
	s.lastUsed = s.createdAt

	s.logger.Debug().Int("keys", keys.Len()).Str("rotation", config.KeyRotation).Msg("session ready")
	return s, nil
}

// Query sends one request and returns the raw response body whatever the
// HTTP status. Interpreting the envelope is left to the caller.
func (s *Session) Query(ctx context.Context, path string, params core.Params, requireAuth bool) ([]byte, error) {
	resp, err := s.Exchange(ctx, &core.Request{Path: path, Params: params, RequireAuth: requireAuth})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SignedQuery is Query with authentication.
func (s *Session) SignedQuery(ctx context.Context, path string, params core.Params) ([]byte, error) {
	return s.Query(ctx, path, params, true)
}

// Do runs a prepared request and returns the raw response body.
func (s *Session) Do(ctx context.Context, req *core.Request) ([]byte, error) {
	resp, err := s.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Exchange runs the full pipeline for req. The limiter is passed before
// anything touches the network. The parameters are encoded once and that
// string is both signed and sent. The nonce is drawn after the limiter so
// nonces reach the server in dispatch order.
func (s *Session) Exchange(ctx context.Context, req *core.Request) (*Response, error) {
	op := req.Path

	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil, core.NewTransportError(op, core.ErrClientClosed)
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()

	var key *keyring.APIKey
	if req.RequireAuth {
		key = s.keys.Next()
		if key == nil {
			return nil, core.NewConfigurationError(op, "authenticated request without an api key", core.ErrNoCredentials)
		}
	}

	if s.breaker != nil {
		if err := s.breaker.Allow(); err != nil {
			return nil, core.NewTransportError(op, err)
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, core.NewTransportError(op, err)
	}

	encoded := req.Params.Encode()

	var headers map[string]string
	if key != nil {
		signed := key.Signer().Sign(req.Path, encoded, s.nonces.Next())
		headers = signed.Headers()
	}

	s.logger.Debug().
		Str("path", req.Path).
		Bool("auth", req.RequireAuth).
		Int("params", len(req.Params)).
		Msg("dispatch")

	resp, err := s.transport.Post(ctx, req.Path, encoded, headers)
	if s.breaker != nil {
		s.breaker.RecordError(err)
	}
	if err != nil {
		if key != nil {
			s.keys.OnError(err)
		}
		return nil, err
	}

	if resp.IsError() {
		s.logger.Warn().Str("path", req.Path).Int("status", resp.StatusCode).Msg("http error status")
	}

	if key != nil {
		if _, envErr := core.CheckEnvelope(op, resp.Body); core.IsDomainError(envErr) {
			s.keys.OnError(envErr)
			if core.IsErrorCode(envErr, core.ErrCodeAuthenticationError) && s.keys.Len() > 1 {
				s.keys.Disable(key.ID)
			}
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Headers:    resp.Headers,
	}, nil
}

// Close shuts down the session and releases idle connections.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	return s.transport.Close()
}

// State returns the current lifecycle state of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Config returns the configuration used to create the session.
func (s *Session) Config() *core.Config {
	return s.config
}

// CreatedAt returns the timestamp when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastUsed returns the timestamp of the last request executed by the session.
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// HasCredentials reports whether an enabled API key is available.
func (s *Session) HasCredentials() bool {
	return s.keys.Current() != nil
}

// LimiterMetrics returns a snapshot of the request limiter statistics.
func (s *Session) LimiterMetrics() ratelimit.MetricsSnapshot {
	return s.limiter.Metrics()
}

// KeyInfo describes one API key of the session. Key is masked.
type KeyInfo struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Disabled   bool      `json:"disabled"`
	ErrorCount int       `json:"error_count"`
	LastUsed   time.Time `json:"last_used"`
}

// Keys lists the session's API keys in rotation order.
func (s *Session) Keys() []KeyInfo {
	keys := s.keys.Keys()
	out := make([]KeyInfo, len(keys))
	for i, k := range keys {
		out[i] = KeyInfo{
			ID:         k.ID,
			Key:        core.MaskKey(k.Key),
			Disabled:   k.Disabled,
			ErrorCount: k.ErrorCount,
			LastUsed:   k.LastUsed,
		}
	}
	return out
}

// BreakerMetrics returns a snapshot of the circuit breaker statistics. The
// snapshot is empty with a CLOSED state when the breaker is disabled.
func (s *Session) BreakerMetrics() circuitbreaker.MetricsSnapshot {
	if s.breaker == nil {
		return circuitbreaker.MetricsSnapshot{CurrentState: circuitbreaker.StateClosed.String()}
	}
	return s.breaker.Metrics()
}

// BreakerState returns the circuit breaker state, or StateClosed when the
// breaker is disabled.
func (s *Session) BreakerState() circuitbreaker.State {
	if s.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return s.breaker.State()
}
