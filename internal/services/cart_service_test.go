package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang-storefront-backend/internal/faults"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockCartRepo struct {
	mu        sync.Mutex
	records   map[string][]models.CartLine
	saveCount int
	saveErr   error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{records: make(map[string][]models.CartLine)}
}

func (m *mockCartRepo) Get(_ context.Context, ownerKey string) (*models.CartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.records[ownerKey]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.CartRecord{OwnerKey: ownerKey, Lines: models.CartLineArray(lines)}, nil
}

func (m *mockCartRepo) Save(_ context.Context, ownerKey string, lines []models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saveCount++
	m.records[ownerKey] = lines
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, ownerKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, ownerKey)
	return nil
}

func newTestCartService(repo *mockCartRepo) *CartService {
	return NewCartService(repo, nil, 500)
}

func shirt(qty int) models.CartLine {
	return models.CartLine{
		ProductID: "p-shirt",
		Name:      "Linen Shirt",
		UnitPrice: 129900,
		Quantity:  qty,
		Attributes: map[string]string{
			"size": "M",
		},
	}
}

func TestCartAddMergesByAddition(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(2))
	require.NoError(t, err)
	snap, err := svc.Add(ctx, "u1", shirt(3))
	require.NoError(t, err)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 5, snap.Lines[0].Quantity)
	assert.Equal(t, money.Amount(129900*5), snap.Subtotal)
}

func TestCartAddClampsNonPositiveQuantity(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())

	snap, err := svc.Add(context.Background(), "u1", shirt(0))
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 1, snap.Lines[0].Quantity)
}

func TestCartRemoveAbsentIsNoOp(t *testing.T) {
	repo := newMockCartRepo()
	svc := newTestCartService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(1))
	require.NoError(t, err)
	savesBefore := repo.saveCount

	snap, err := svc.Remove(ctx, "u1", "p-missing")
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 1)
	assert.Equal(t, savesBefore, repo.saveCount, "removing an absent line must not persist")
}

func TestCartSetQuantityZeroRemovesLine(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(2))
	require.NoError(t, err)

	snap, err := svc.SetQuantity(ctx, "u1", "p-shirt", 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestCartSetQuantityUnknownProductIsNoOp(t *testing.T) {
	repo := newMockCartRepo()
	svc := newTestCartService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(2))
	require.NoError(t, err)
	savesBefore := repo.saveCount

	snap, err := svc.SetQuantity(ctx, "u1", "p-missing", 4)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, savesBefore, repo.saveCount)
}

func TestCartTotalsInvariant(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(2))
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", models.CartLine{ProductID: "p-belt", Name: "Belt", UnitPrice: 49900, Quantity: 1})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)

	var subtotal money.Amount
	for _, line := range snap.Lines {
		subtotal += money.Line(line.UnitPrice, line.Quantity)
	}
	assert.Equal(t, subtotal, snap.Subtotal)
	assert.Equal(t, money.TaxAt(subtotal, 500), snap.Tax)
	assert.Equal(t, snap.Subtotal+snap.Tax, snap.Total)
}

func TestCartSnapshotIsImmutable(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(2))
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	snap.Lines[0].Quantity = 99
	snap.Lines[0].Attributes["size"] = "XL"

	fresh, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Lines[0].Quantity)
	assert.Equal(t, "M", fresh.Lines[0].Attributes["size"])
}

func TestCartMutationPersistsBeforeAck(t *testing.T) {
	repo := newMockCartRepo()
	svc := newTestCartService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", shirt(2))
	require.NoError(t, err)

	repo.saveErr = errors.New("postgres down")
	_, err = svc.Add(ctx, "u1", shirt(1))
	require.Error(t, err)

	// Failed persist leaves the in-memory cart untouched.
	repo.saveErr = nil
	snap, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
}

func TestCartSurvivesReload(t *testing.T) {
	repo := newMockCartRepo()
	ctx := context.Background()

	first := newTestCartService(repo)
	_, err := first.Add(ctx, "u1", shirt(3))
	require.NoError(t, err)

	// A fresh service over the same repo sees the persisted cart.
	second := newTestCartService(repo)
	snap, err := second.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 3, snap.Lines[0].Quantity)
}

func TestCartNotifiesListenersAfterCommit(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())

	var got []CartSnapshot
	svc.Subscribe(func(ownerKey string, snap CartSnapshot) {
		assert.Equal(t, "u1", ownerKey)
		got = append(got, snap)
	})

	_, err := svc.Add(context.Background(), "u1", shirt(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, money.Amount(129900), got[0].Subtotal)
}

func TestCartRequiresOwnerKey(t *testing.T) {
	svc := newTestCartService(newMockCartRepo())

	_, err := svc.Add(context.Background(), "", shirt(1))
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.KindOf(err))
}
