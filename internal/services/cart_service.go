package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/money"
	"golang-storefront-backend/internal/repositories"
	"golang-storefront-backend/pkg/cache"

	"gorm.io/gorm"
)

const cartCacheTTL = 10 * time.Minute

// CartSnapshot is an immutable copy of a cart with derived totals. Checkout
// reads a snapshot once and never observes later cart mutations.
type CartSnapshot struct {
	Lines    []models.CartLine `json:"lines"`
	Subtotal money.Amount      `json:"subtotal"`
	Tax      money.Amount      `json:"tax"`
	Total    money.Amount      `json:"total"`
}

// CartListener is notified after a mutation has been committed and persisted.
type CartListener func(ownerKey string, snap CartSnapshot)

// CartService owns the local cart for each owner key (user id or guest device
// key). Mutations for one owner are linearized: each call merges, persists and
// commits before the next is processed, so rapid quantity clicks cannot lose
// updates.
type CartService struct {
	cartRepo repositories.CartRepository
	cache    *cache.RedisCache
	taxBps   int

	mu    sync.Mutex
	carts map[string]*cartEntry

	subMu     sync.RWMutex
	listeners []CartListener
}

type cartEntry struct {
	mu     sync.Mutex
	loaded bool
	lines  []models.CartLine
}

func NewCartService(cartRepo repositories.CartRepository, redisCache *cache.RedisCache, taxBps int) *CartService {
	return &CartService{
		cartRepo: cartRepo,
		cache:    redisCache,
		taxBps:   taxBps,
		carts:    make(map[string]*cartEntry),
	}
}

// Subscribe registers a listener for committed cart changes.
func (s *CartService) Subscribe(listener CartListener) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Add merges the product into the cart. An existing line for the same product
// id gains quantity by addition; a non-positive quantity is clamped to 1.
func (s *CartService) Add(ctx context.Context, ownerKey string, line models.CartLine) (*CartSnapshot, error) {
	if line.ProductID == "" {
		return nil, faults.New(faults.Validation, "product id is required")
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}

	entry, err := s.entry(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	lines := copyLines(entry.lines)
	merged := false
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, copyLine(line))
	}

	snap, err := s.commit(ctx, ownerKey, entry, lines)
	entry.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ownerKey, *snap)
	return snap, nil
}

// Remove deletes the line for productID. Removing an absent id is a no-op.
func (s *CartService) Remove(ctx context.Context, ownerKey, productID string) (*CartSnapshot, error) {
	entry, err := s.entry(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	lines := copyLines(entry.lines)
	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines = append(lines[:i], lines[i+1:]...)
			found = true
			break
		}
	}

	if !found {
		snap := s.snapshotLocked(entry.lines)
		entry.mu.Unlock()
		return snap, nil
	}

	snap, err := s.commit(ctx, ownerKey, entry, lines)
	entry.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ownerKey, *snap)
	return snap, nil
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero or
// less removes the line. Unknown product ids are a no-op: SetQuantity never
// creates lines.
func (s *CartService) SetQuantity(ctx context.Context, ownerKey, productID string, quantity int) (*CartSnapshot, error) {
	if quantity <= 0 {
		return s.Remove(ctx, ownerKey, productID)
	}

	entry, err := s.entry(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	lines := copyLines(entry.lines)
	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			found = true
			break
		}
	}

	if !found {
		snap := s.snapshotLocked(entry.lines)
		entry.mu.Unlock()
		return snap, nil
	}

	snap, err := s.commit(ctx, ownerKey, entry, lines)
	entry.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ownerKey, *snap)
	return snap, nil
}

// Clear empties the cart. Checkout calls this exactly once, after success.
func (s *CartService) Clear(ctx context.Context, ownerKey string) error {
	entry, err := s.entry(ctx, ownerKey)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	snap, err := s.commit(ctx, ownerKey, entry, nil)
	entry.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(ownerKey, *snap)
	return nil
}

// Snapshot returns an immutable copy of the cart with derived totals.
func (s *CartService) Snapshot(ctx context.Context, ownerKey string) (*CartSnapshot, error) {
	entry, err := s.entry(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.snapshotLocked(entry.lines), nil
}

func (s *CartService) entry(ctx context.Context, ownerKey string) (*cartEntry, error) {
	if ownerKey == "" {
		return nil, faults.New(faults.Validation, "cart owner key is required")
	}

	s.mu.Lock()
	entry, ok := s.carts[ownerKey]
	if !ok {
		entry = &cartEntry{}
		s.carts[ownerKey] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.loaded {
		return entry, nil
	}

	if s.cache != nil {
		var cached []models.CartLine
		if err := s.cache.Get(ctx, cartCacheKey(ownerKey), &cached); err == nil {
			entry.lines = cached
			entry.loaded = true
			return entry, nil
		}
	}

	record, err := s.cartRepo.Get(ctx, ownerKey)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		record = nil
	}
	if record != nil {
		entry.lines = []models.CartLine(record.Lines)
	}
	entry.loaded = true
	return entry, nil
}

// commit persists the new line set and only then swaps it in. Caller holds
// entry.mu.
func (s *CartService) commit(ctx context.Context, ownerKey string, entry *cartEntry, lines []models.CartLine) (*CartSnapshot, error) {
	if err := s.cartRepo.Save(ctx, ownerKey, lines); err != nil {
		return nil, err
	}

	entry.lines = lines
	entry.loaded = true

	if s.cache != nil {
		s.cache.Set(ctx, cartCacheKey(ownerKey), lines, cartCacheTTL)
	}

	return s.snapshotLocked(lines), nil
}

func (s *CartService) snapshotLocked(lines []models.CartLine) *CartSnapshot {
	copied := copyLines(lines)
	var subtotal money.Amount
	for _, line := range copied {
		subtotal += money.Line(line.UnitPrice, line.Quantity)
	}
	return &CartSnapshot{
		Lines:    copied,
		Subtotal: subtotal,
		Tax:      money.TaxAt(subtotal, s.taxBps),
		Total:    money.TotalWithTax(subtotal, s.taxBps),
	}
}

func (s *CartService) notify(ownerKey string, snap CartSnapshot) {
	s.subMu.RLock()
	listeners := make([]CartListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.subMu.RUnlock()

	for _, listener := range listeners {
		listener(ownerKey, snap)
	}
}

func cartCacheKey(ownerKey string) string {
	return "cart:" + ownerKey
}

func copyLine(line models.CartLine) models.CartLine {
	if line.Attributes != nil {
		attrs := make(map[string]string, len(line.Attributes))
		for k, v := range line.Attributes {
			attrs[k] = v
		}
		line.Attributes = attrs
	}
	return line
}

func copyLines(lines []models.CartLine) []models.CartLine {
	copied := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		copied = append(copied, copyLine(line))
	}
	return copied
}
