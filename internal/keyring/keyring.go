// Package keyring holds the API keys a session signs with.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cfkit/internal/auth"
	"cfkit/pkg/core"
)

// KeyRing rotates the API keys of one account. It is safe for concurrent
// use.
type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
	logger   zerolog.Logger
}

// APIKey is one key pair. The secret lives only inside the decoded signer.
type APIKey struct {
	ID         string
	Key        string
	Disabled   bool
	LastUsed   time.Time
	ErrorCount int

	signer *auth.Signer
}

// RotationStrategy decides when the ring moves to the next key.
type RotationStrategy int

const (
	// RotationRoundRobin advances to the next key after every use.
	RotationRoundRobin RotationStrategy = iota
	// RotationOnError advances after any failed call.
	RotationOnError
	// RotationOnRateLimit advances only when the server reports apiLimitExceeded.
	RotationOnRateLimit
)

// NewAPIKey decodes secret and returns a key ready for signing.
func NewAPIKey(id, key, secret string) (*APIKey, error) {
	signer, err := auth.NewSigner(key, secret)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = core.MaskKey(key)
	}
	return &APIKey{ID: id, Key: key, signer: signer}, nil
}

// ParseRotation maps a configured rotation name to a strategy. An empty
// name selects RotationOnRateLimit.
func ParseRotation(name string) (RotationStrategy, error) {
	switch name {
	case "", core.RotateOnRateLimit:
		return RotationOnRateLimit, nil
	case core.RotateRoundRobin:
		return RotationRoundRobin, nil
	case core.RotateOnError:
		return RotationOnError, nil
	}
	return 0, core.NewConfigurationError("keyring", fmt.Sprintf("unknown key rotation %q", name), nil)
}

// FromConfig builds a ring holding cfg.Credentials followed by cfg.Keys.
// A pair repeated in the config is kept once. The ring is empty when no
// credentials are configured.
func FromConfig(cfg *core.Config) (*KeyRing, error) {
	strategy, err := ParseRotation(cfg.KeyRotation)
	if err != nil {
		return nil, err
	}

	ring := NewKeyRing(nil, strategy)
	for _, creds := range append([]*core.Credentials{cfg.Credentials}, cfg.Keys...) {
		if creds == nil {
			continue
		}
		key, err := NewAPIKey("", creds.APIKey, creds.APISecret)
		if err != nil {
			return nil, err
		}
		ring.Add(key)
	}
	return ring, nil
}

// Signer returns the signer bound to the key.
func (k *APIKey) Signer() *auth.Signer {
	return k.signer
}

func NewKeyRing(keys []*APIKey, strategy RotationStrategy) *KeyRing {
	keysCopy := make([]*APIKey, 0, len(keys))
	for _, k := range keys {
		if k == nil {
			continue
		}
		cp := *k
		keysCopy = append(keysCopy, &cp)
	}

	return &KeyRing{
		keys:     keysCopy,
		strategy: strategy,
		logger:   zerolog.Nop(),
	}
}

// SetLogger replaces the ring's logger.
func (k *KeyRing) SetLogger(logger zerolog.Logger) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = logger
}

// Len returns the number of keys, enabled or not.
func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// Current returns a copy of the active key, or nil when every key is disabled.
func (k *KeyRing) Current() *APIKey {
	k.mu.RLock()
	defer k.mu.RUnlock()

	idx := k.activeLocked()
	if idx < 0 {
		return nil
	}
	cp := *k.keys[idx]
	return &cp
}

func (k *KeyRing) activeLocked() int {
	for i := 0; i < len(k.keys); i++ {
		idx := (k.current + i) % len(k.keys)
		if !k.keys[idx].Disabled {
			return idx
		}
	}
	return -1
}

func (k *KeyRing) rotateLocked() {
	if len(k.keys) == 0 {
		return
	}

	start := k.current
	for {
		k.current = (k.current + 1) % len(k.keys)
		if !k.keys[k.current].Disabled || k.current == start {
			break
		}
	}
	k.logger.Debug().Str("key_id", k.keys[k.current].ID).Msg("api key rotated")
}

// OnError records a failed call against the active key and rotates
// according to the strategy.
func (k *KeyRing) OnError(err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	idx := k.activeLocked()
	if idx < 0 {
		return
	}
	k.current = idx
	k.keys[idx].ErrorCount++

	switch k.strategy {
	case RotationOnError:
		k.rotateLocked()
	case RotationOnRateLimit:
		if core.IsErrorCode(err, core.ErrCodeAPILimitExceeded) {
			k.rotateLocked()
		}
	}
}

// Next returns a copy of the active key, stamps it as used and advances
// under round robin. It returns nil when no key is enabled.
func (k *KeyRing) Next() *APIKey {
	k.mu.Lock()
	defer k.mu.Unlock()

	idx := k.activeLocked()
	if idx < 0 {
		return nil
	}
	k.current = idx
	k.keys[idx].LastUsed = time.Now()
	cp := *k.keys[idx]

	if k.strategy == RotationRoundRobin {
		k.rotateLocked()
	}
	return &cp
}

// Disable takes the key with the given id out of rotation.
func (k *KeyRing) Disable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, key := range k.keys {
		if key.ID == id && !key.Disabled {
			key.Disabled = true
			k.logger.Warn().Str("key_id", id).Msg("api key disabled")
			return
		}
	}
}

// Add appends key unless the same public key is already in the ring.
func (k *KeyRing) Add(key *APIKey) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, existing := range k.keys {
		if existing.Key == key.Key {
			return
		}
	}

	k.keys = append(k.keys, &APIKey{
		ID:     key.ID,
		Key:    key.Key,
		signer: key.signer,
	})
}

// Keys returns copies of every key in ring order.
func (k *KeyRing) Keys() []APIKey {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]APIKey, len(k.keys))
	for i, key := range k.keys {
		out[i] = *key
	}
	return out
}

func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", k.ID, core.MaskKey(k.Key))
}
