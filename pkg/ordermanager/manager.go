// Package ordermanager tracks orders placed through the v2 API and keeps
// their state in step with the exchange by polling the open orders list.
package ordermanager

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
	"cfkit/pkg/exchange/cryptofacilities"
)

// Trader is the part of the v2 client the manager drives.
// *cryptofacilities.Client implements it.
type Trader interface {
	SendOrder(ctx context.Context, req *exchange.OrderRequest) (*cryptofacilities.SendStatus, error)
	CancelOrder(ctx context.Context, orderID string) (*cryptofacilities.CancelStatus, error)
	OpenOrders(ctx context.Context) ([]cryptofacilities.Order, error)
}

// Status is the locally tracked state of an order.
type Status int

const (
	// StatusPlaced means the exchange acknowledged the order.
	StatusPlaced Status = iota + 1
	// StatusPartiallyFilled means the order is open with some size filled.
	StatusPartiallyFilled
	// StatusCanceling means a cancel was sent and not yet confirmed.
	StatusCanceling
	// StatusCanceled means the exchange confirmed the cancel.
	StatusCanceled
	// StatusFilled means the order was fully filled.
	StatusFilled
	// StatusClosed means the order left the open orders list for an
	// unknown reason, usually a fill.
	StatusClosed
	// StatusRejected means the exchange refused the order.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPlaced:
		return "PLACED"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusCanceling:
		return "CANCELING"
	case StatusCanceled:
		return "CANCELED"
	case StatusFilled:
		return "FILLED"
	case StatusClosed:
		return "CLOSED"
	case StatusRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusFilled, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// Order is a tracked order.
type Order struct {
	// ID is the exchange order id. Orders refused before an id was
	// assigned are keyed by LocalID instead.
	ID      string
	LocalID string
	Request exchange.OrderRequest
	Status  Status
	// Reason holds the exchange status string when the order was refused.
	Reason    string
	Filled    apd.Decimal
	Unfilled  apd.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time

	trackedAt time.Time
}

// ManagerConfig holds configuration options for the order manager.
type ManagerConfig struct {
	// MaxOrders caps the number of tracked orders. Terminal orders are
	// evicted oldest first once the cap is reached. Defaults to 10000.
	MaxOrders int `json:"max_orders"`
}

type orderSubscriber struct {
	orderCh chan Order
}

// Manager coordinates the order lifecycle for one account. It is safe for
// concurrent use.
type Manager struct {
	trader        Trader
	config        ManagerConfig
	logger        zerolog.Logger
	mu            sync.RWMutex
	orders        map[string]*Order
	subscribers   []orderSubscriber
	subscribersMu sync.RWMutex
}

// NewManager creates a new order manager driving trader.
func NewManager(trader Trader, config ManagerConfig) *Manager {
	if config.MaxOrders <= 0 {
		config.MaxOrders = 10000
	}
	return &Manager{
		trader: trader,
		config: config,
		logger: zerolog.Nop(),
		orders: make(map[string]*Order),
	}
}

// SetLogger replaces the manager logger.
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// PlaceOrder sends req and starts tracking the result. An order the
// exchange refuses is returned with StatusRejected and no error; only
// transport, decode and envelope failures are errors.
func (m *Manager) PlaceOrder(ctx context.Context, req *exchange.OrderRequest) (Order, error) {
	if req == nil {
		return Order{}, core.NewConfigurationError("order", "order is required", nil)
	}

	ack, err := m.trader.SendOrder(ctx, req)
	if err != nil {
		return Order{}, fmt.Errorf("place order: %w", err)
	}

	now := time.Now()
	order := &Order{
		ID:        ack.OrderID,
		LocalID:   uuid.NewString(),
		Request:   *req,
		Status:    StatusPlaced,
		CreatedAt: now,
		UpdatedAt: now,
		trackedAt: now,
	}
	order.Unfilled.Set(&req.Size)

	if ack.Status != "placed" || ack.OrderID == "" {
		order.Status = StatusRejected
		order.Reason = ack.Status
		m.logger.Warn().Str("symbol", req.Symbol).Str("status", ack.Status).Msg("order rejected")
	}

	snapshot, added := m.store(order)
	if added {
		m.notify(&snapshot)
	}
	return snapshot, nil
}

// CancelOrder requests cancellation of a tracked order.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) error {
	order, ok := m.GetOrder(orderID)
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if order.Status.IsTerminal() {
		return fmt.Errorf("cannot cancel order in terminal state: %s", order.Status)
	}

	ack, err := m.trader.CancelOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	next := StatusCanceling
	switch ack.Status {
	case "cancelled":
		next = StatusCanceled
	case "filled":
		next = StatusFilled
	case "notFound":
		next = StatusClosed
	}
	return m.transition(orderID, next, nil)
}

// CancelAllOrders cancels every non-terminal order, optionally limited to
// one symbol. Failures are logged and the remaining orders still tried;
// the first failure is returned.
func (m *Manager) CancelAllOrders(ctx context.Context, symbol string) error {
	var first error
	for _, order := range m.GetOrders(OrderFilter{Symbol: symbol}) {
		if order.Status.IsTerminal() || order.Status == StatusCanceling {
			continue
		}
		if err := m.CancelOrder(ctx, order.ID); err != nil {
			m.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to cancel order")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Sync reconciles tracked orders with the exchange's open orders. Open
// orders that are not yet tracked, for example ones placed from another
// process, are adopted. Tracked orders missing from the list are closed,
// unless they were placed after the list was requested.
func (m *Manager) Sync(ctx context.Context) error {
	started := time.Now()
	open, err := m.trader.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("sync orders: %w", err)
	}

	seen := make(map[string]struct{}, len(open))
	for i := range open {
		remote := &open[i]
		seen[remote.OrderID] = struct{}{}

		if _, ok := m.GetOrder(remote.OrderID); !ok {
			m.adopt(remote)
			continue
		}

		next := StatusPlaced
		if remote.FilledSize.Sign() > 0 {
			next = StatusPartiallyFilled
		}
		if err := m.transition(remote.OrderID, next, remote); err != nil {
			m.logger.Debug().Err(err).Str("order_id", remote.OrderID).Msg("sync transition skipped")
		}
	}

	for _, order := range m.GetOpenOrders() {
		if _, ok := seen[order.ID]; ok || !order.trackedAt.Before(started) {
			continue
		}
		next := StatusClosed
		if order.Status == StatusCanceling {
			next = StatusCanceled
		}
		if err := m.transition(order.ID, next, nil); err != nil {
			m.logger.Debug().Err(err).Str("order_id", order.ID).Msg("sync transition skipped")
		}
	}
	return nil
}

func (m *Manager) adopt(remote *cryptofacilities.Order) {
	now := time.Now()
	order := &Order{
		ID:      remote.OrderID,
		LocalID: uuid.NewString(),
		Request: exchange.OrderRequest{
			Symbol:    remote.Symbol,
			Side:      remote.Side,
			Type:      remote.Type,
			StopPrice: remote.StopPrice,
		},
		Status:    StatusPlaced,
		CreatedAt: remote.ReceivedTime,
		UpdatedAt: now,
		trackedAt: now,
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.Request.LimitPrice.Set(&remote.LimitPrice)
	apd.BaseContext.Add(&order.Request.Size, &remote.FilledSize, &remote.UnfilledSize) // nolint:errcheck // unlimited precision add
	order.Filled.Set(&remote.FilledSize)
	order.Unfilled.Set(&remote.UnfilledSize)
	if remote.FilledSize.Sign() > 0 {
		order.Status = StatusPartiallyFilled
	}

	if snapshot, added := m.store(order); added {
		m.notify(&snapshot)
	}
}

// transition moves a tracked order to status and copies fill sizes from
// remote when given.
func (m *Manager) transition(orderID string, status Status, remote *cryptofacilities.Order) error {
	m.mu.Lock()
	order, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("order not found: %s", orderID)
	}
	if !isValidTransition(order.Status, status) {
		from := order.Status
		m.mu.Unlock()
		return fmt.Errorf("invalid status transition: %s -> %s", from, status)
	}

	changed := order.Status != status
	if remote != nil && (order.Filled.Cmp(&remote.FilledSize) != 0 || order.Unfilled.Cmp(&remote.UnfilledSize) != 0) {
		order.Filled.Set(&remote.FilledSize)
		order.Unfilled.Set(&remote.UnfilledSize)
		changed = true
	}
	order.Status = status
	if changed {
		order.UpdatedAt = time.Now()
	}
	snapshot := *order
	m.mu.Unlock()

	if changed {
		m.notify(&snapshot)
	}
	return nil
}

// store starts tracking order and returns a copy taken under the lock.
// An order already tracked under the same key, adopted by a concurrent
// Sync for example, is kept and its copy returned with added false.
func (m *Manager) store(order *Order) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := order.key()
	if existing, ok := m.orders[key]; ok {
		return *existing, false
	}
	if len(m.orders) >= m.config.MaxOrders {
		m.evictLocked()
	}
	m.orders[key] = order
	return *order, true
}

func (o *Order) key() string {
	if o.ID != "" {
		return o.ID
	}
	return o.LocalID
}

// evictLocked drops the oldest terminal order.
func (m *Manager) evictLocked() {
	var oldest *Order
	for _, o := range m.orders {
		if !o.Status.IsTerminal() {
			continue
		}
		if oldest == nil || o.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = o
		}
	}
	if oldest != nil {
		delete(m.orders, oldest.key())
	}
}

// GetOrder returns a copy of a tracked order by exchange id, or by local
// id for orders the exchange refused.
func (m *Manager) GetOrder(orderID string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// GetOrders returns copies of the tracked orders matching filter, oldest
// first.
func (m *Manager) GetOrders(filter OrderFilter) []Order {
	m.mu.RLock()
	result := make([]Order, 0, len(m.orders))
	for _, order := range m.orders {
		if filter.Matches(order) {
			result = append(result, *order)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result
}

// GetOpenOrders returns the tracked orders that are not in a terminal state.
func (m *Manager) GetOpenOrders() []Order {
	all := m.GetOrders(OrderFilter{})
	return slices.DeleteFunc(all, func(o Order) bool {
		return o.Status.IsTerminal()
	})
}

// SubscribeOrders returns a channel receiving a copy of every order update.
// The channel is closed when ctx is cancelled.
func (m *Manager) SubscribeOrders(ctx context.Context) <-chan Order {
	sub := orderSubscriber{orderCh: make(chan Order, 100)}

	m.subscribersMu.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.subscribersMu.Unlock()

	go func() {
		<-ctx.Done()
		m.removeSubscriber(sub)
	}()

	return sub.orderCh
}

func (m *Manager) removeSubscriber(sub orderSubscriber) {
	m.subscribersMu.Lock()
	defer m.subscribersMu.Unlock()

	for i, s := range m.subscribers {
		if s.orderCh == sub.orderCh {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(sub.orderCh)
			return
		}
	}
}

func (m *Manager) notify(order *Order) {
	m.subscribersMu.RLock()
	defer m.subscribersMu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub.orderCh <- *order:
		default:
			m.logger.Warn().Str("order_id", order.ID).Msg("order subscriber channel full, message dropped")
		}
	}
}

// OrderFilter defines criteria for filtering orders in queries. Zero
// values match everything.
type OrderFilter struct {
	Symbol string
	Side   *core.OrderSide
	Status Status
}

// Matches returns true if the order satisfies all set criteria.
func (f *OrderFilter) Matches(order *Order) bool {
	if f.Symbol != "" && order.Request.Symbol != f.Symbol {
		return false
	}
	if f.Side != nil && order.Request.Side != *f.Side {
		return false
	}
	if f.Status != 0 && order.Status != f.Status {
		return false
	}
	return true
}

func isValidTransition(from, to Status) bool {
	if from == to {
		return true
	}

	validTransitions := map[Status][]Status{
		StatusPlaced: {
			StatusPartiallyFilled,
			StatusFilled,
			StatusCanceling,
			StatusCanceled,
			StatusClosed,
		},
		StatusPartiallyFilled: {
			StatusFilled,
			StatusCanceling,
			StatusCanceled,
			StatusClosed,
		},
		StatusCanceling: {
			StatusCanceled,
			StatusFilled,
			StatusClosed,
		},
	}

	return slices.Contains(validTransitions[from], to)
}
