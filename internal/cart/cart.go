// Package cart keeps the shopping cart: an ordered set of line items keyed by
// book id, persisted after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/naveenspark/hogwarts/internal/store"
)

// MaxLines caps the number of distinct books in the cart.
const MaxLines = 100

var (
	ErrOutOfStock    = errors.New("this book is out of stock")
	ErrStockExceeded = errors.New("cannot add more than the available stock")
	ErrInvalidItem   = errors.New("invalid cart item")
	ErrCartFull      = fmt.Errorf("cart cannot hold more than %d different books", MaxLines)
	ErrNotInCart     = errors.New("book is not in the cart")
)

// Item is one line of the cart. The JSON names are the persisted format.
type Item struct {
	BookID   string  `json:"bookId"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Subtotal is Price * Quantity.
func (i Item) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Totals summarizes the cart.
type Totals struct {
	Items int
	Price float64
}

// Snapshot is the cart as published to subscribers.
type Snapshot struct {
	Items  []Item
	Totals Totals
}

// Cart is safe for concurrent use. Each mutation computes the next state,
// persists it, and only then makes it visible; if persisting fails the
// previous state stays.
type Cart struct {
	store  store.Store
	logger *zap.Logger

	mu    sync.Mutex
	items []Item

	// pubMu orders deliveries; it is taken before mu is released so
	// subscribers see changes in the order they were made.
	pubMu   sync.Mutex
	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New returns an empty cart backed by st. Call Load to restore a persisted one.
func New(st store.Store, logger *zap.Logger) *Cart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cart{store: st, logger: logger, subs: make(map[int]func(Snapshot))}
}

// Load replaces the in-memory cart with the persisted one. A missing or
// corrupt record yields an empty cart; Load never fails.
func (c *Cart) Load(ctx context.Context) {
	items := c.read(ctx)
	c.mu.Lock()
	c.items = items
	c.publishLocked()
}

func (c *Cart) read(ctx context.Context) []Item {
	data, err := c.store.Get(ctx, store.KeyCart)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("read persisted cart", zap.Error(err))
		}
		return nil
	}
	items, err := decode(data)
	if err != nil {
		c.logger.Warn("discarding corrupt persisted cart", zap.Error(err))
		return nil
	}
	return items
}

func decode(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		switch {
		case it.BookID == "":
			return nil, errors.New("line without book id")
		case seen[it.BookID]:
			return nil, fmt.Errorf("duplicate line for book %s", it.BookID)
		case it.Quantity < 1:
			return nil, fmt.Errorf("book %s: quantity %d", it.BookID, it.Quantity)
		case !validPrice(it.Price):
			return nil, fmt.Errorf("book %s: price %v", it.BookID, it.Price)
		}
		seen[it.BookID] = true
	}
	if len(items) > MaxLines {
		return nil, fmt.Errorf("%d lines exceeds limit", len(items))
	}
	return items, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// AddItem adds one copy of a book. A book already in the cart is incremented
// unless that would exceed availableStock.
func (c *Cart) AddItem(ctx context.Context, bookID, title string, unitPrice float64, availableStock int) error {
	if bookID == "" || !validPrice(unitPrice) {
		return ErrInvalidItem
	}

	c.mu.Lock()
	next := c.cloneLocked()
	if i := indexOf(next, bookID); i >= 0 {
		if next[i].Quantity+1 > availableStock {
			c.mu.Unlock()
			return ErrStockExceeded
		}
		next[i].Quantity++
	} else {
		if availableStock <= 0 {
			c.mu.Unlock()
			return ErrOutOfStock
		}
		if len(next) >= MaxLines {
			c.mu.Unlock()
			return ErrCartFull
		}
		next = append(next, Item{BookID: bookID, Title: title, Price: unitPrice, Quantity: 1})
	}
	return c.commitLocked(ctx, next, "cart.AddItem")
}

// SetQuantity replaces a line's quantity. A quantity below 1 removes the
// line. Stock is not checked; the API does that when the order is placed.
func (c *Cart) SetQuantity(ctx context.Context, bookID string, quantity int) error {
	if quantity < 1 {
		return c.RemoveItem(ctx, bookID)
	}
	c.mu.Lock()
	next := c.cloneLocked()
	i := indexOf(next, bookID)
	if i < 0 {
		c.mu.Unlock()
		return ErrNotInCart
	}
	if next[i].Quantity == quantity {
		c.mu.Unlock()
		return nil
	}
	next[i].Quantity = quantity
	return c.commitLocked(ctx, next, "cart.SetQuantity")
}

// RemoveItem drops a line. Removing a book that is not in the cart is a no-op.
func (c *Cart) RemoveItem(ctx context.Context, bookID string) error {
	c.mu.Lock()
	i := indexOf(c.items, bookID)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	next := make([]Item, 0, len(c.items)-1)
	next = append(next, c.items[:i]...)
	next = append(next, c.items[i+1:]...)
	return c.commitLocked(ctx, next, "cart.RemoveItem")
}

// Clear empties the cart in memory and in storage. Memory is emptied even
// when the storage delete fails; that error is still returned.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	err := c.store.Delete(ctx, store.KeyCart)
	c.items = nil
	c.publishLocked()
	if err != nil {
		return fmt.Errorf("cart.Clear: %w", err)
	}
	return nil
}

// Settle removes the ordered quantities after an order is confirmed. Lines
// added or increased since the order was built keep the difference. When
// nothing is left the stored cart is deleted, as with Clear. Memory is
// updated even if storage fails; that error is still returned.
func (c *Cart) Settle(ctx context.Context, ordered []Item) error {
	c.mu.Lock()
	next := c.cloneLocked()
	for _, o := range ordered {
		i := indexOf(next, o.BookID)
		if i < 0 {
			continue
		}
		if next[i].Quantity > o.Quantity {
			next[i].Quantity -= o.Quantity
			continue
		}
		next = append(next[:i], next[i+1:]...)
	}

	var err error
	if len(next) == 0 {
		next = nil
		err = c.store.Delete(ctx, store.KeyCart)
	} else {
		data, merr := json.Marshal(next)
		if merr != nil {
			err = merr
		} else {
			err = c.store.Set(ctx, store.KeyCart, data)
		}
	}
	c.items = next
	c.publishLocked()
	if err != nil {
		return fmt.Errorf("cart.Settle: %w", err)
	}
	return nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cloneLocked()
}

// Get returns the line for bookID.
func (c *Cart) Get(bookID string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.items, bookID); i >= 0 {
		return c.items[i], true
	}
	return Item{}, false
}

// Len returns the number of distinct books.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Totals sums quantities and prices.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sum(c.items)
}

// Subscribe registers fn for every change and returns a function that
// removes it. fn may read the cart but must not modify it.
func (c *Cart) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func sum(items []Item) Totals {
	var t Totals
	for _, it := range items {
		t.Items += it.Quantity
		t.Price += it.Subtotal()
	}
	return t
}

func indexOf(items []Item, bookID string) int {
	for i, it := range items {
		if it.BookID == bookID {
			return i
		}
	}
	return -1
}

func (c *Cart) cloneLocked() []Item {
	if len(c.items) == 0 {
		return nil
	}
	return append([]Item(nil), c.items...)
}

// commitLocked persists next, swaps it in and publishes. It releases mu.
func (c *Cart) commitLocked(ctx context.Context, next []Item, op string) error {
	if next == nil {
		next = []Item{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	if err := c.store.Set(ctx, store.KeyCart, data); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	c.items = next
	c.publishLocked()
	return nil
}

// publishLocked delivers the current state to subscribers. It releases mu.
func (c *Cart) publishLocked() {
	snap := Snapshot{Items: c.cloneLocked(), Totals: sum(c.items)}
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	c.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
