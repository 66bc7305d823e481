package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/repositories"

	"gorm.io/gorm"
)

// WishlistBackend is the server-side wishlist API, authoritative once a user
// is authenticated.
type WishlistBackend interface {
	Members(ctx context.Context, userID, token string) ([]string, error)
	Add(ctx context.Context, userID, token, productID string) error
	Remove(ctx context.Context, userID, token, productID string) error
}

// WishlistService keeps a de-duplicated set of wished product ids per owner,
// spanning the guest and authenticated regimes. Guest mutations persist to the
// local guest store synchronously; authenticated mutations are committed only
// after the backend confirms, and are serialized per product id so a fast
// add-then-remove cannot reorder on the wire.
type WishlistService struct {
	guestRepo repositories.GuestWishlistRepository
	backend   WishlistBackend

	mu       sync.Mutex
	sessions map[string]*wishlistSession
}

type wishlistSession struct {
	mu     sync.Mutex
	loaded bool
	userID string // empty while guest
	token  string

	members      map[string]struct{}
	productLocks map[string]*sync.Mutex
}

func NewWishlistService(guestRepo repositories.GuestWishlistRepository, backend WishlistBackend) *WishlistService {
	return &WishlistService{
		guestRepo: guestRepo,
		backend:   backend,
		sessions:  make(map[string]*wishlistSession),
	}
}

// Add puts productID into the wishlist. Returns false with no error when the
// product is already a member.
func (s *WishlistService) Add(ctx context.Context, ownerKey, productID string) (bool, error) {
	if productID == "" {
		return false, faults.New(faults.Validation, "product id is required")
	}

	sess, err := s.session(ctx, ownerKey)
	if err != nil {
		return false, err
	}

	sess.mu.Lock()
	if _, ok := sess.members[productID]; ok {
		sess.mu.Unlock()
		return false, nil
	}

	if sess.userID == "" {
		// Guest: local set is the store; persist before acknowledging.
		sess.members[productID] = struct{}{}
		if err := s.guestRepo.Save(ctx, ownerKey, memberList(sess.members)); err != nil {
			delete(sess.members, productID)
			sess.mu.Unlock()
			return false, err
		}
		sess.mu.Unlock()
		return true, nil
	}

	userID, token := sess.userID, sess.token
	sess.mu.Unlock()

	unlock := sess.lockProduct(productID)
	defer unlock()

	// Re-check under the product lock: a serialized predecessor may have
	// already added it.
	sess.mu.Lock()
	_, present := sess.members[productID]
	sess.mu.Unlock()
	if present {
		return false, nil
	}

	if err := s.backend.Add(ctx, userID, token, productID); err != nil {
		// No optimistic mutation survives a backend failure.
		return false, err
	}

	sess.mu.Lock()
	sess.members[productID] = struct{}{}
	sess.mu.Unlock()
	return true, nil
}

// Remove deletes productID from the wishlist. Returns false with no error when
// the product was not a member.
func (s *WishlistService) Remove(ctx context.Context, ownerKey, productID string) (bool, error) {
	if productID == "" {
		return false, faults.New(faults.Validation, "product id is required")
	}

	sess, err := s.session(ctx, ownerKey)
	if err != nil {
		return false, err
	}

	sess.mu.Lock()
	if _, ok := sess.members[productID]; !ok {
		sess.mu.Unlock()
		return false, nil
	}

	if sess.userID == "" {
		delete(sess.members, productID)
		if err := s.guestRepo.Save(ctx, ownerKey, memberList(sess.members)); err != nil {
			sess.members[productID] = struct{}{}
			sess.mu.Unlock()
			return false, err
		}
		sess.mu.Unlock()
		return true, nil
	}

	userID, token := sess.userID, sess.token
	sess.mu.Unlock()

	unlock := sess.lockProduct(productID)
	defer unlock()

	sess.mu.Lock()
	_, present := sess.members[productID]
	sess.mu.Unlock()
	if !present {
		return false, nil
	}

	if err := s.backend.Remove(ctx, userID, token, productID); err != nil {
		return false, err
	}

	sess.mu.Lock()
	delete(sess.members, productID)
	sess.mu.Unlock()
	return true, nil
}

// Toggle adds the product when absent and removes it when present, returning
// the resulting membership.
func (s *WishlistService) Toggle(ctx context.Context, ownerKey, productID string) (bool, error) {
	if s.IsMember(ctx, ownerKey, productID) {
		if _, err := s.Remove(ctx, ownerKey, productID); err != nil {
			return true, err
		}
		return false, nil
	}

	if _, err := s.Add(ctx, ownerKey, productID); err != nil {
		return false, err
	}
	return true, nil
}

// IsMember reports membership against the in-memory set. No side effects
// beyond the first lazy load of the owner's session.
func (s *WishlistService) IsMember(ctx context.Context, ownerKey, productID string) bool {
	sess, err := s.session(ctx, ownerKey)
	if err != nil {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	_, ok := sess.members[productID]
	return ok
}

// Members returns the current membership list, sorted for stable output.
func (s *WishlistService) Members(ctx context.Context, ownerKey string) ([]string, error) {
	sess, err := s.session(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return memberList(sess.members), nil
}

// Login transitions the owner to the authenticated regime and runs the single
// reconciliation pass: the server set replaces in-memory membership. Guest
// entries are not merged upstream here; that is MigrateGuest, an explicit call.
// Calling Login again for the same user is a no-op.
func (s *WishlistService) Login(ctx context.Context, ownerKey, userID, token string) error {
	if userID == "" || token == "" {
		return faults.New(faults.Validation, "user id and token are required")
	}

	sess, err := s.session(ctx, ownerKey)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.userID == userID {
		sess.token = token
		sess.mu.Unlock()
		return nil
	}
	sess.mu.Unlock()

	serverSet, err := s.backend.Members(ctx, userID, token)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.userID = userID
	sess.token = token
	sess.members = make(map[string]struct{}, len(serverSet))
	for _, id := range serverSet {
		sess.members[id] = struct{}{}
	}
	sess.mu.Unlock()
	return nil
}

// MigrateGuest uploads the persisted guest set into the authenticated server
// set, once, on explicit request. Entries already present server-side are
// skipped; the guest residue is deleted only after every entry is accepted.
func (s *WishlistService) MigrateGuest(ctx context.Context, ownerKey, guestKey string) error {
	sess, err := s.session(ctx, ownerKey)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.userID == "" {
		sess.mu.Unlock()
		return faults.New(faults.Validation, "migration requires an authenticated session")
	}
	userID, token := sess.userID, sess.token
	sess.mu.Unlock()

	record, err := s.guestRepo.Get(ctx, guestKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	for _, productID := range record.ProductIDs {
		if s.IsMember(ctx, ownerKey, productID) {
			continue
		}
		if err := s.backend.Add(ctx, userID, token, productID); err != nil {
			return err
		}
		sess.mu.Lock()
		sess.members[productID] = struct{}{}
		sess.mu.Unlock()
	}

	return s.guestRepo.Delete(ctx, guestKey)
}

// Logout discards the authenticated set; the next operation reloads the guest
// set from local storage.
func (s *WishlistService) Logout(ownerKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ownerKey)
}

func (s *WishlistService) session(ctx context.Context, ownerKey string) (*wishlistSession, error) {
	if ownerKey == "" {
		return nil, faults.New(faults.Validation, "wishlist owner key is required")
	}

	s.mu.Lock()
	sess, ok := s.sessions[ownerKey]
	if !ok {
		sess = &wishlistSession{
			members:      make(map[string]struct{}),
			productLocks: make(map[string]*sync.Mutex),
		}
		s.sessions[ownerKey] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.loaded {
		return sess, nil
	}

	record, err := s.guestRepo.Get(ctx, ownerKey)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if record != nil {
		for _, id := range record.ProductIDs {
			sess.members[id] = struct{}{}
		}
	}
	sess.loaded = true
	return sess, nil
}

// lockProduct serializes backend mutations for one product id. Must not be
// called while holding sess.mu; the returned func releases the product lock.
func (sess *wishlistSession) lockProduct(productID string) func() {
	sess.mu.Lock()
	lock, ok := sess.productLocks[productID]
	if !ok {
		lock = &sync.Mutex{}
		sess.productLocks[productID] = lock
	}
	sess.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func memberList(members map[string]struct{}) []string {
	list := make([]string, 0, len(members))
	for id := range members {
		list = append(list, id)
	}
	sort.Strings(list)
	return list
}
