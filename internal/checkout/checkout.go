// Package checkout turns the cart into an order. Only one submission runs at
// a time, and the ordered lines leave the cart only after the API confirms
// the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/naveenspark/hogwarts/internal/cart"
	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

// DefaultMaxBooks is the per-order unit limit.
const DefaultMaxBooks = 50

var (
	ErrEmptyCart         = errors.New("your cart is empty")
	ErrAlreadySubmitting = errors.New("an order is already being placed")
	ErrTooManyBooks      = errors.New("too many books in one order")
)

// State of the submitter.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// API places orders.
type API interface {
	CreateTransaction(ctx context.Context, order domain.OrderRequest) (*domain.Transaction, error)
}

// Cart is what the submitter needs from the cart.
type Cart interface {
	Items() []cart.Item
	Settle(ctx context.Context, ordered []cart.Item) error
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithMaxBooks sets the per-order unit limit. n <= 0 disables it.
func WithMaxBooks(n int) Option {
	return func(s *Submitter) { s.maxBooks = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// Submitter places the cart as an order.
type Submitter struct {
	api      API
	cart     Cart
	maxBooks int
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	busy    bool
	subs    map[int]func(State)
	nextSub int
}

// New returns an idle Submitter.
func New(api API, c Cart, opts ...Option) *Submitter {
	s := &Submitter{
		api:      api,
		cart:     c,
		maxBooks: DefaultMaxBooks,
		logger:   zap.NewNop(),
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state transition and returns a function
// that removes it.
func (s *Submitter) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Submit places the current cart as one order and returns the created
// transaction. On failure the cart is left untouched and the API error is
// returned as is.
func (s *Submitter) Submit(ctx context.Context) (*domain.Transaction, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitting
	}
	items := s.cart.Items()
	if len(items) == 0 {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}
	order, units, err := buildOrder(items)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.maxBooks > 0 && units > s.maxBooks {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d books, limit is %d", ErrTooManyBooks, units, s.maxBooks)
	}
	s.busy = true
	s.setLocked(Submitting)

	tx, err := s.api.CreateTransaction(ctx, order)
	if err != nil {
		s.logger.Info("order failed", zap.Int("books", units), zap.Error(err))
		s.finish(Failed)
		return nil, err
	}

	// The order exists even if the caller has gone away. Only the ordered
	// quantities leave the cart.
	if cerr := s.cart.Settle(context.WithoutCancel(ctx), items); cerr != nil {
		s.logger.Error("settle cart after order", zap.String("order_id", tx.ID.String()), zap.Error(cerr))
	}
	s.logger.Info("order placed", zap.String("order_id", tx.ID.String()), zap.Int("books", units))
	s.finish(Succeeded)
	return tx, nil
}

// finish reports the outcome, then returns to Idle. A new submission is
// refused until Idle is reached.
func (s *Submitter) finish(outcome State) {
	s.mu.Lock()
	s.setLocked(outcome)
	s.mu.Lock()
	s.busy = false
	s.setLocked(Idle)
}

func buildOrder(items []cart.Item) (domain.OrderRequest, int, error) {
	order := domain.OrderRequest{Items: make([]domain.OrderLine, 0, len(items))}
	units := 0
	for _, it := range items {
		if err := validate.OrderLine(it.BookID, it.Quantity); err != nil {
			return domain.OrderRequest{}, 0, err
		}
		order.Items = append(order.Items, domain.OrderLine{BookID: it.BookID, Quantity: it.Quantity})
		units += it.Quantity
	}
	return order, units, nil
}

// setLocked records the new state and notifies subscribers. It releases mu.
func (s *Submitter) setLocked(st State) {
	s.state = st
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
