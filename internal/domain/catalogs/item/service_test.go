package item

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
	"rentory/internal/core/numerator"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger/ledgertest"
	"rentory/pkg/logger"
)

type fakeRepo struct {
	mu    sync.Mutex
	items map[id.ID]*Item
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[id.ID]*Item)}
}

func copyItem(it *Item) *Item {
	cp := *it
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = copyItem(it)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[itemID]; ok {
		return copyItem(it), nil
	}
	return nil, apperror.NewNotFound("item", itemID.String())
}

func (r *fakeRepo) GetByCode(ctx context.Context, code string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Code == code {
			return copyItem(it), nil
		}
	}
	return nil, apperror.NewNotFound("item", code)
}

func (r *fakeRepo) Update(ctx context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		return apperror.NewNotFound("item", it.ID.String())
	}
	r.items[it.ID] = copyItem(it)
	return nil
}

func (r *fakeRepo) SetDeletionMark(ctx context.Context, itemID id.ID, marked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[itemID]
	if !ok {
		return apperror.NewNotFound("item", itemID.String())
	}
	it.DeletionMark = marked
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Item], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*Item]{}
	for _, it := range r.items {
		if it.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		result.Items = append(result.Items, copyItem(it))
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) Exists(ctx context.Context, itemID id.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[itemID]
	return ok, nil
}

func (r *fakeRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) FindBySKU(ctx context.Context, sku string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.SKU != nil && *it.SKU == sku {
			return copyItem(it), nil
		}
	}
	return nil, apperror.NewNotFound("item", sku)
}

func (r *fakeRepo) FindByBarcode(ctx context.Context, barcode string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Barcode != nil && *it.Barcode == barcode {
			return copyItem(it), nil
		}
	}
	return nil, apperror.NewNotFound("item", barcode)
}

func (r *fakeRepo) GetMany(ctx context.Context, ids []id.ID) ([]*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Item
	for _, itemID := range ids {
		if it, ok := r.items[itemID]; ok {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

func newService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	return NewService(repo, ledgertest.TxManager{}, &numerator.MockGenerator{}, log), repo
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("code generated when empty", func(t *testing.T) {
		svc, _ := newService(t)
		it := NewItem("", "Pressure washer", true, false)

		require.NoError(t, svc.Create(ctx, it))
		assert.NotEmpty(t, it.Code)
	})

	t.Run("explicit code kept", func(t *testing.T) {
		svc, _ := newService(t)
		it := NewItem("IT-0042", "Pressure washer", true, false)

		require.NoError(t, svc.Create(ctx, it))
		assert.Equal(t, "IT-0042", it.Code)
	})

	t.Run("duplicate sku refused", func(t *testing.T) {
		svc, _ := newService(t)
		first := NewItem("", "Pressure washer", true, false)
		first.SKU = strPtr("PW-100")
		require.NoError(t, svc.Create(ctx, first))

		second := NewItem("", "Another washer", true, false)
		second.SKU = strPtr("PW-100")
		err := svc.Create(ctx, second)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
	})

	t.Run("item must be rentable or sellable", func(t *testing.T) {
		svc, _ := newService(t)
		it := NewItem("", "Shelf ornament", false, false)

		err := svc.Create(ctx, it)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("sale-only items cannot be serial-tracked", func(t *testing.T) {
		svc, _ := newService(t)
		it := NewItem("", "Extension cord", false, true)
		it.TrackSerial = true

		err := svc.Create(ctx, it)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestGetMany(t *testing.T) {
	ctx := context.Background()

	svc, repo := newService(t)
	kept := NewItem("", "Pressure washer", true, false)
	require.NoError(t, svc.Create(ctx, kept))
	deleted := NewItem("", "Old generator", true, false)
	require.NoError(t, svc.Create(ctx, deleted))
	require.NoError(t, repo.SetDeletionMark(ctx, deleted.ID, true))

	infos, err := svc.GetMany(ctx, []id.ID{kept.ID, deleted.ID, id.New()})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	info, ok := infos[kept.ID]
	require.True(t, ok)
	assert.Equal(t, "Pressure washer", info.Name)
	assert.True(t, info.Rentable)
	assert.False(t, info.Sellable)
}
