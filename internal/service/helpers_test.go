package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/service/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGenerator(t *testing.T) {
	gen := newCodeGenerator("VEN")
	gen.now = func() time.Time { return time.UnixMilli(1700000000000) }

	assert.Equal(t, "VEN-1700000000000-0001", gen.Next())
	assert.Equal(t, "VEN-1700000000000-0002", gen.Next())

	seen := make(map[string]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := gen.Next()
			mu.Lock()
			seen[code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 100)
}

func TestKeyedLocker(t *testing.T) {
	locker := newKeyedLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sale:1")
	require.NoError(t, err)

	// другой ключ не блокируется
	otherUnlock, err := locker.Lock(ctx, "sale:2")
	require.NoError(t, err)
	otherUnlock()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "sale:1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := locker.Lock(ctx, "sale:1")
	require.NoError(t, err)
	unlock2()

	locker.mu.Lock()
	assert.Empty(t, locker.slots)
	locker.mu.Unlock()
}

func TestBuildReceipt(t *testing.T) {
	longName := strings.Repeat("ñ", 45)
	sale := &domain.Sale{
		ID:        uuid.New(),
		Folio:     "VEN-1-0001",
		CreatedAt: time.Now(),
		Lines: domain.SaleLines{Records: []domain.SaleLine{
			{Name: longName, Quantity: 2, LineTotal: decimal.RequireFromString("10")},
			{Name: "Tea", Quantity: 1, LineTotal: decimal.RequireFromString("3.5")},
		}},
		Total:  decimal.RequireFromString("13.5"),
		Status: domain.SaleStatusPending,
	}

	receipt := buildReceipt("Shop", sale, receiptParty{Customer: "Ann", Employee: "Bob"})

	var items []domain.ReceiptLine
	var total *domain.ReceiptLine
	for i, line := range receipt.Lines {
		switch line.Kind {
		case domain.ReceiptItem:
			items = append(items, line)
		case domain.ReceiptTotal:
			total = &receipt.Lines[i]
		}
	}
	require.Len(t, items, 2)
	assert.Equal(t, "2 x "+strings.Repeat("ñ", 40), items[0].Text)
	assert.Equal(t, "10.00", items[0].Value)
	assert.Equal(t, "1 x Tea"+strings.Repeat(" ", 37), items[1].Text)
	require.NotNil(t, total)
	assert.Equal(t, "13.50", total.Value)
	assert.Equal(t, "Pending", receipt.Lines[len(receipt.Lines)-1].Text)
}

func TestStorageErr(t *testing.T) {
	assert.NoError(t, storageErr("op", nil))

	typed := domain.NewConflictError(domain.EntitySale, "x")
	assert.Same(t, typed, storageErr("op", typed))

	var pErr *domain.PersistenceError
	require.ErrorAs(t, storageErr("op", context.DeadlineExceeded), &pErr)
	assert.Equal(t, "op", pErr.Op)

	var nfErr *domain.NotFoundError
	require.ErrorAs(t, lookupErr("op", domain.ErrRecordNotFound, domain.EntitySale, 7), &nfErr)
	assert.Equal(t, "7", nfErr.Ref)
}

func TestFindSaleCustomerLocksWhenSpendingPoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	parties := mocks.NewMockPartyRepository(ctrl)
	ctx := context.Background()
	customer := &domain.Customer{ID: 7, Ref: "ana", Points: decimal.NewFromInt(30)}

	parties.EXPECT().FindCustomerByRefForUpdate(gomock.Any(), "ana").Return(customer, nil)
	got, err := findSaleCustomer(ctx, parties, "ana", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, customer, got)

	parties.EXPECT().FindCustomerByRef(gomock.Any(), "ana").Return(customer, nil)
	_, err = findSaleCustomer(ctx, parties, "ana", decimal.Zero)
	require.NoError(t, err)

	parties.EXPECT().FindCustomerByRef(gomock.Any(), domain.WalkInCustomerRef).Return(nil, domain.ErrRecordNotFound)
	_, err = findSaleCustomer(ctx, parties, "", decimal.Zero)
	var nfErr *domain.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}
