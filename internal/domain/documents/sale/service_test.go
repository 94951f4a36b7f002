package sale

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
	docs  map[id.ID]*SaleInvoice
	lines map[id.ID][]Line
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[id.ID]*SaleInvoice),
		lines: make(map[id.ID][]Line),
	}
}

func copyDoc(doc *SaleInvoice) *SaleInvoice {
	cp := *doc
	cp.Lines = nil
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, doc *SaleInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = copyDoc(doc)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*SaleInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[docID]; ok {
		return copyDoc(doc), nil
	}
	return nil, apperror.NewNotFound("sale invoice", docID.String())
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*SaleInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Number == number {
			return copyDoc(doc), nil
		}
	}
	return nil, apperror.NewNotFound("sale invoice", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *SaleInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("sale invoice", doc.ID.String())
	}
	r.docs[doc.ID] = copyDoc(doc)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return apperror.NewNotFound("sale invoice", docID.String())
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

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleInvoice], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*SaleInvoice]{}
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
		itemID := f.ledger.AddItem(false, true)
		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(2), types.NewMoneyFromInt(30))
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(5))

		require.NoError(t, f.service.Create(ctx, doc))
		assert.NotEmpty(t, doc.Number)
		assert.Equal(t, qty(3), doc.TotalQuantity)
		assert.True(t, doc.TotalAmount.Equal(types.NewMoneyFromInt(65)))
	})

	t.Run("customer is required", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		doc := NewSaleInvoice("", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))

		err := f.service.Create(ctx, doc)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("invoice without lines rejected", func(t *testing.T) {
		f := newFixture(t)
		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)

		err := f.service.Create(ctx, doc)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestPost(t *testing.T) {
	ctx := context.Background()

	t.Run("posting removes stock permanently", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		f.ledger.SeedLevel(itemID, 10, 10, 0)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(4), types.NewMoneyFromInt(20))
		require.NoError(t, f.service.Create(ctx, doc))

		require.NoError(t, f.service.Post(ctx, doc.ID))

		stored, err := f.service.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, stored.Posted)

		level, err := f.ledger.Levels.Get(ctx, itemID, f.ledger.Location)
		require.NoError(t, err)
		assert.Equal(t, qty(6), level.QuantityOnHand)
		assert.Equal(t, qty(6), level.QuantityAvailable)
		assert.True(t, level.QuantityOnRent.IsZero())

		trail, err := f.ledger.Movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementSale, trail[0].MovementType)
	})

	t.Run("stock on rent is not sellable", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, true)
		f.ledger.SeedLevel(itemID, 10, 4, 6)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(5), types.NewMoneyFromInt(20))
		require.NoError(t, f.service.Create(ctx, doc))

		err := f.service.Post(ctx, doc.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

		stored, _ := f.service.GetByID(ctx, doc.ID)
		assert.False(t, stored.Posted)
	})

	t.Run("non-sellable item refused", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		f.ledger.SeedLevel(itemID, 10, 10, 0)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(20))
		require.NoError(t, f.service.Create(ctx, doc))

		err := f.service.Post(ctx, doc.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("all shortages reported at once", func(t *testing.T) {
		f := newFixture(t)
		itemA := f.ledger.AddItem(false, true)
		itemB := f.ledger.AddItem(false, true)
		f.ledger.SeedLevel(itemA, 1, 1, 0)
		f.ledger.SeedLevel(itemB, 2, 2, 0)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemA, qty(3), types.NewMoneyFromInt(20))
		doc.AddLine(itemB, qty(5), types.NewMoneyFromInt(20))
		require.NoError(t, f.service.Create(ctx, doc))

		err := f.service.Post(ctx, doc.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Contains(t, appErr.Message, "2 line(s)")
		assert.Contains(t, appErr.Details, "lines")

		levelA, err := f.ledger.Levels.Get(ctx, itemA, f.ledger.Location)
		require.NoError(t, err)
		assert.Equal(t, qty(1), levelA.QuantityAvailable)
	})

	t.Run("double post refused", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		f.ledger.SeedLevel(itemID, 10, 10, 0)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(20))
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

func TestValidateAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("enough stock passes", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		f.ledger.SeedLevel(itemID, 5, 5, 0)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(5), types.NewMoneyFromInt(20))
		require.NoError(t, f.service.Create(ctx, doc))

		assert.NoError(t, f.service.ValidateAvailability(ctx, doc.ID))
	})

	t.Run("shortage detected without posting", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		f.ledger.SeedLevel(itemID, 5, 2, 3)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(3), types.NewMoneyFromInt(20))
		require.NoError(t, f.service.Create(ctx, doc))

		err := f.service.ValidateAvailability(ctx, doc.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("draft can be deleted", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))
		require.NoError(t, f.service.Create(ctx, doc))

		require.NoError(t, f.service.Delete(ctx, doc.ID))
	})

	t.Run("posted invoice cannot be deleted", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		f.ledger.SeedLevel(itemID, 5, 5, 0)

		doc := NewSaleInvoice("Retail Customer", f.ledger.Location)
		doc.AddLine(itemID, qty(1), types.NewMoneyFromInt(1))
		require.NoError(t, f.service.Create(ctx, doc))
		require.NoError(t, f.service.Post(ctx, doc.ID))

		err := f.service.Delete(ctx, doc.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDocumentPosted, appErr.Code)
	})
}
