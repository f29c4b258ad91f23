// Package aggregator combines account data from several accounts queried
// concurrently. Each account has its own session and limiter, so the
// fan-out runs in parallel while calls on one account stay spaced.
package aggregator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"cfkit/pkg/exchange"
	"cfkit/pkg/exchange/cryptofacilities"
)

// Aggregator runs v2 calls against every account of a container.
type Aggregator struct {
	mu         sync.RWMutex
	accounts   *exchange.Container
	logger     zerolog.Logger
	lastUpdate time.Time
}

// NewAggregator creates an aggregator over the accounts in container.
func NewAggregator(container *exchange.Container) *Aggregator {
	return NewAggregatorWithLogger(container, zerolog.Nop())
}

// NewAggregatorWithLogger creates an aggregator with a custom logger.
func NewAggregatorWithLogger(container *exchange.Container, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		accounts: container,
		logger:   logger,
	}
}

// Result holds the value or error returned by a single account.
type Result[T any] struct {
	// Account is the name the querier is registered under.
	Account string `json:"account"`
	// Value is the decoded response, or the zero value if Error is set.
	Value T `json:"value,omitempty"`
	// Error contains any error that occurred for this account.
	Error error `json:"error,omitempty"`
}

// fanOut calls fn once per account concurrently. Results are sorted by
// account name.
func fanOut[T any](ctx context.Context, a *Aggregator, fn func(context.Context, *cryptofacilities.Client) (T, error)) []Result[T] {
	names := a.accounts.Names()
	resultChan := make(chan Result[T], len(names))
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(account string) {
			defer wg.Done()

			result := Result[T]{Account: account}

			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				resultChan <- result
				return
			default:
			}

			q, err := a.accounts.Get(account)
			if err != nil {
				result.Error = err
				resultChan <- result
				return
			}

			value, err := fn(ctx, cryptofacilities.New(q, cryptofacilities.WithLogger(a.logger)))
			if err != nil {
				a.logger.Debug().Err(err).Str("account", account).Msg("account call failed")
				result.Error = err
				resultChan <- result
				return
			}

			result.Value = value
			resultChan <- result
		}(name)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result[T], 0, len(names))
	for r := range resultChan {
		results = append(results, r)
	}
	slices.SortFunc(results, func(x, y Result[T]) int {
		return strings.Compare(x.Account, y.Account)
	})

	a.mu.Lock()
	a.lastUpdate = time.Now()
	a.mu.Unlock()

	return results
}

// Accounts fetches the account block of every account.
func (a *Aggregator) Accounts(ctx context.Context) []Result[*cryptofacilities.Account] {
	return fanOut(ctx, a, func(ctx context.Context, c *cryptofacilities.Client) (*cryptofacilities.Account, error) {
		return c.Account(ctx)
	})
}

// OpenPositions fetches the open positions of every account.
func (a *Aggregator) OpenPositions(ctx context.Context) []Result[[]cryptofacilities.Position] {
	return fanOut(ctx, a, func(ctx context.Context, c *cryptofacilities.Client) ([]cryptofacilities.Position, error) {
		return c.OpenPositions(ctx)
	})
}

// OpenOrders fetches the open orders of every account.
func (a *Aggregator) OpenOrders(ctx context.Context) []Result[[]cryptofacilities.Order] {
	return fanOut(ctx, a, func(ctx context.Context, c *cryptofacilities.Client) ([]cryptofacilities.Order, error) {
		return c.OpenOrders(ctx)
	})
}

// Totals is the sum of the balances of all accounts that answered.
type Totals struct {
	// Balances maps each currency or contract to its summed amount.
	Balances map[string]*apd.Decimal `json:"balances"`
	// Accounts lists the accounts included in the sum.
	Accounts []string `json:"accounts"`
	// Failed maps each account left out of the sum to its error.
	Failed map[string]error `json:"failed,omitempty"`
}

// TotalBalances sums balances per key across accounts. Accounts that fail
// are reported in Failed; the call only errors when none succeeded.
func (a *Aggregator) TotalBalances(ctx context.Context) (*Totals, error) {
	results := a.Accounts(ctx)

	totals := &Totals{
		Balances: make(map[string]*apd.Decimal),
		Failed:   make(map[string]error),
	}
	for _, r := range results {
		if r.Error != nil || r.Value == nil {
			totals.Failed[r.Account] = r.Error
			continue
		}
		for key, amount := range r.Value.Balances {
			sum, ok := totals.Balances[key]
			if !ok {
				sum = new(apd.Decimal)
				totals.Balances[key] = sum
			}
			if _, err := apd.BaseContext.Add(sum, sum, amount); err != nil {
				return nil, fmt.Errorf("sum %s: %w", key, err)
			}
		}
		totals.Accounts = append(totals.Accounts, r.Account)
	}

	if len(totals.Accounts) == 0 && len(results) > 0 {
		return nil, fmt.Errorf("no account balances available: %d accounts failed", len(totals.Failed))
	}
	return totals, nil
}

// NetPosition is the combined exposure to one contract across accounts.
type NetPosition struct {
	Symbol string `json:"symbol"`
	// Size is positive for a net long and negative for a net short.
	Size apd.Decimal `json:"size"`
	// Accounts lists the accounts holding a position in Symbol.
	Accounts []string `json:"accounts"`
}

// NetPositions nets long and short positions per symbol across accounts,
// sorted by symbol.
func (a *Aggregator) NetPositions(ctx context.Context) ([]NetPosition, error) {
	results := a.OpenPositions(ctx)

	bySymbol := make(map[string]*NetPosition)
	answered := 0
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		answered++
		for _, p := range r.Value {
			net, ok := bySymbol[p.Symbol]
			if !ok {
				net = &NetPosition{Symbol: p.Symbol}
				bySymbol[p.Symbol] = net
			}

			var signed apd.Decimal
			signed.Set(&p.Size)
			if p.Side == "short" {
				signed.Neg(&signed)
			}
			if _, err := apd.BaseContext.Add(&net.Size, &net.Size, &signed); err != nil {
				return nil, fmt.Errorf("net %s: %w", p.Symbol, err)
			}
			if !slices.Contains(net.Accounts, r.Account) {
				net.Accounts = append(net.Accounts, r.Account)
			}
		}
	}

	if answered == 0 && len(results) > 0 {
		return nil, fmt.Errorf("no account positions available: %d accounts failed", len(results))
	}

	out := make([]NetPosition, 0, len(bySymbol))
	for _, net := range bySymbol {
		out = append(out, *net)
	}
	slices.SortFunc(out, func(x, y NetPosition) int {
		return strings.Compare(x.Symbol, y.Symbol)
	})
	return out, nil
}

// AggregateStats contains statistics about the aggregator.
type AggregateStats struct {
	// TotalAccounts is the count of registered accounts.
	TotalAccounts int `json:"total_accounts"`
	// LastUpdate is the timestamp of the most recent fan-out.
	LastUpdate time.Time `json:"last_update"`
}

// GetStats returns statistics about the aggregator's current state.
func (a *Aggregator) GetStats() *AggregateStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return &AggregateStats{
		TotalAccounts: len(a.accounts.Names()),
		LastUpdate:    a.lastUpdate,
	}
}
