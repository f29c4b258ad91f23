package exchange

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Container is a thread-safe registry of request pipelines keyed by
// account name. Each account keeps its own limiter and keys.
type Container struct {
	mu       sync.RWMutex
	accounts map[string]Querier
}

// NewContainer creates and returns a new empty container.
func NewContainer() *Container {
	return &Container{
		accounts: make(map[string]Querier),
	}
}

// Register adds a querier under name, replacing any previous entry.
func (c *Container) Register(name string, q Querier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[name] = q
}

// Get retrieves a querier by account name.
func (c *Container) Get(name string) (Querier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, exists := c.accounts[name]
	if !exists {
		return nil, fmt.Errorf("account %q not found", name)
	}
	return q, nil
}

// Names returns the registered account names in sorted order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.accounts))
	for name := range c.accounts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Unregister removes an account from the container by name.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, name)
}

// Exists checks whether an account with the given name is registered.
func (c *Container) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.accounts[name]
	return exists
}

// Close closes every registered querier that implements io.Closer and
// empties the container.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, q := range c.accounts {
		if closer, ok := q.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	c.accounts = make(map[string]Querier)
	return errors.Join(errs...)
}
