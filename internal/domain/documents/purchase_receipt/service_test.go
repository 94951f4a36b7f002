package purchase_receipt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/numerator"
	"rentory/internal/core/types"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger/ledgertest"
	"rentory/pkg/logger"
)

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

type fakeRepo struct {
	mu    sync.Mutex
	docs  map[id.ID]*PurchaseReceipt
	lines map[id.ID][]Line
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[id.ID]*PurchaseReceipt),
		lines: make(map[id.ID][]Line),
	}
}

func copyDoc(doc *PurchaseReceipt) *PurchaseReceipt {
	cp := *doc
	cp.Lines = nil
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, doc *PurchaseReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = copyDoc(doc)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*PurchaseReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[docID]; ok {
		return copyDoc(doc), nil
	}
	return nil, apperror.NewNotFound("purchase receipt", docID.String())
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*PurchaseReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Number == number {
			return copyDoc(doc), nil
		}
	}
	return nil, apperror.NewNotFound("purchase receipt", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *PurchaseReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("purchase receipt", doc.ID.String())
	}
	r.docs[doc.ID] = copyDoc(doc)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return apperror.NewNotFound("purchase receipt", docID.String())
	}
	doc.DeletionMark = true
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseReceipt], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*PurchaseReceipt]{}
	for _, doc := range r.docs {
		result.Items = append(result.Items, copyDoc(doc))
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

type fixture struct {
	service *Service
	repo    *fakeRepo
	ledger  *ledgertest.Fixture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lf := ledgertest.NewFixture(t)
	repo := newFakeRepo()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	return &fixture{
		service: NewService(repo, lf.Engine, &numerator.MockGenerator{}, ledgertest.TxManager{}, log),
		repo:    repo,
		ledger:  lf,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("number and totals are assigned", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.AddLine(itemID, qty(4), types.NewMoneyFromInt(25))

		require.NoError(t, f.service.Create(ctx, doc))
		assert.NotEmpty(t, doc.Number)
		assert.Equal(t, qty(4), doc.TotalQuantity)
		assert.True(t, doc.TotalAmount.Equal(types.NewMoneyFromInt(100)))
	})

	t.Run("explicit number kept", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.Number = "PR-IMPORT-7"
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))

		require.NoError(t, f.service.Create(ctx, doc))
		assert.Equal(t, "PR-IMPORT-7", doc.Number)
	})

	t.Run("receipt without lines rejected", func(t *testing.T) {
		f := newFixture(t)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)

		err := f.service.Create(ctx, doc)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestPost(t *testing.T) {
	ctx := context.Background()

	t.Run("posting brings stock in", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.AddLine(itemID, qty(12), types.NewMoneyFromInt(3))
		require.NoError(t, f.service.Create(ctx, doc))

		require.NoError(t, f.service.Post(ctx, doc.ID))

		stored, err := f.service.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, stored.Posted)

		level, err := f.ledger.Levels.Get(ctx, itemID, f.ledger.Location)
		require.NoError(t, err)
		assert.Equal(t, qty(12), level.QuantityOnHand)
		assert.Equal(t, qty(12), level.QuantityAvailable)

		trail, err := f.ledger.Movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementInitialStock, trail[0].MovementType)
		assert.Equal(t, doc.ID.String(), trail[0].ReferenceID)
	})

	t.Run("unknown item fails the whole posting", func(t *testing.T) {
		f := newFixture(t)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.AddLine(id.New(), qty(1), types.NewMoneyFromInt(1))
		require.NoError(t, f.service.Create(ctx, doc))

		err := f.service.Post(ctx, doc.ID)
		require.Error(t, err)

		stored, _ := f.service.GetByID(ctx, doc.ID)
		assert.False(t, stored.Posted)
	})

	t.Run("double post refused", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))
		require.NoError(t, f.service.Create(ctx, doc))
		require.NoError(t, f.service.Post(ctx, doc.ID))

		err := f.service.Post(ctx, doc.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDocumentPosted, appErr.Code)
	})
}

func TestUnpost(t *testing.T) {
	f := newFixture(t)

	err := f.service.Unpost(context.Background(), id.New())
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("posted receipt cannot change", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))
		require.NoError(t, f.service.Create(ctx, doc))
		require.NoError(t, f.service.Post(ctx, doc.ID))

		stored, _ := f.service.GetByID(ctx, doc.ID)
		stored.SupplierName = "Another Supplier"
		err := f.service.Update(ctx, stored)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDocumentPosted, appErr.Code)
	})

	t.Run("draft line replacement persists", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		doc := NewPurchaseReceipt("Supplier GmbH", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))
		require.NoError(t, f.service.Create(ctx, doc))

		doc.Lines = doc.Lines[:0]
		doc.AddLine(itemID, qty(7), types.NewMoneyFromInt(2))
		require.NoError(t, f.service.Update(ctx, doc))

		stored, err := f.service.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, stored.Lines, 1)
		assert.Equal(t, qty(7), stored.Lines[0].Quantity)
	})
}
