package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	db := setupServiceTestDB(t)
	sales := createStaff(t, db, "mint", models.RoleSales)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 12, "eyebrow")
	lip := createProduct(t, db, "LIP", "4200", 0, "lip")

	svc := NewOrderService(db, time.UTC)
	svc.now = fixedClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	custom := dec("3999.50")
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		SalesID:    &sales.ID,
		Items: []ItemInput{
			{ProductID: brow.ID},
			{ProductID: lip.ID, Price: &custom, IsUpsell: true},
		},
		Deposit:       dec("1000"),
		PaymentMethod: strPtr("transfer"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-10-18", order.OrderDate, "order date defaults to today")
	assert.Equal(t, models.OrderStatusBooking, order.OrderStatus)
	assert.True(t, order.TotalIncome.Equal(dec("7499.50")), "total was %s", order.TotalIncome)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].ItemPrice.Equal(dec("3500")), "price defaults to list price")
	assert.True(t, order.Items[1].IsUpsell)
	assert.Equal(t, models.ItemStatusPending, order.Items[0].ItemStatus)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "Ploy", order.Customer.FullName)
	require.NotNil(t, order.Sales)
	assert.Equal(t, "mint", order.Sales.StaffName)
}

func TestCreateOrder_DefaultDateUsesStudioTimezone(t *testing.T) {
	db := setupServiceTestDB(t)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 0, "")

	svc := NewOrderService(db, bangkok)
	// 00:30 on the 26th in the studio opens a new cycle; UTC is still on the 25th
	svc.now = fixedClock(time.Date(2026, 10, 25, 17, 30, 0, 0, time.UTC))

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []ItemInput{{ProductID: brow.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-26", order.OrderDate)
}

func TestCreateOrder_Rejections(t *testing.T) {
	db := setupServiceTestDB(t)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 0, "")
	svc := NewOrderService(db, time.UTC)
	ctx := context.Background()

	negative := dec("-1")
	subCent := dec("3500.005")
	tests := []struct {
		name     string
		input    CreateOrderInput
		wantKind error
		wantCode string
	}{
		{"duplicate product", CreateOrderInput{CustomerID: customer.ID, Items: []ItemInput{{ProductID: brow.ID}, {ProductID: brow.ID}}}, ErrConflict, CodeDuplicateProduct},
		{"no items", CreateOrderInput{CustomerID: customer.ID}, ErrValidation, CodeInvalidInput},
		{"bad date", CreateOrderInput{CustomerID: customer.ID, OrderDate: "2026/10/18", Items: []ItemInput{{ProductID: brow.ID}}}, ErrValidation, CodeInvalidDate},
		{"negative deposit", CreateOrderInput{CustomerID: customer.ID, Deposit: dec("-5"), Items: []ItemInput{{ProductID: brow.ID}}}, ErrValidation, CodeInvalidAmount},
		{"negative price", CreateOrderInput{CustomerID: customer.ID, Items: []ItemInput{{ProductID: brow.ID, Price: &negative}}}, ErrValidation, CodeInvalidAmount},
		{"deposit finer than a cent", CreateOrderInput{CustomerID: customer.ID, Deposit: dec("0.004"), Items: []ItemInput{{ProductID: brow.ID}}}, ErrValidation, CodeInvalidAmount},
		{"price finer than a cent", CreateOrderInput{CustomerID: customer.ID, Items: []ItemInput{{ProductID: brow.ID, Price: &subCent}}}, ErrValidation, CodeInvalidAmount},
		{"unknown customer", CreateOrderInput{CustomerID: 999, Items: []ItemInput{{ProductID: brow.ID}}}, ErrNotFound, CodeCustomerNotFound},
		{"unknown product", CreateOrderInput{CustomerID: customer.ID, Items: []ItemInput{{ProductID: 999}}}, ErrNotFound, CodeProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "unexpected error kind: %v", err)
			serviceErr, ok := AsServiceError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, serviceErr.Code)
		})
	}

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(0), count, "failed bookings must not leave orders behind")
}

func TestOrderTotalInvariant_AddUpdateRemove(t *testing.T) {
	db := setupServiceTestDB(t)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 0, "")
	lip := createProduct(t, db, "LIP", "4200", 0, "")
	liner := createProduct(t, db, "LINER", "2500", 0, "")
	svc := NewOrderService(db, time.UTC)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{CustomerID: customer.ID, OrderDate: "2026-10-01", Items: []ItemInput{{ProductID: brow.ID}}})
	require.NoError(t, err)

	assertTotalMatchesItems := func() {
		t.Helper()
		stored := reloadOrder(t, db, order.ID)
		assert.True(t, stored.TotalIncome.Equal(models.SumItemPrices(itemsOf(t, db, order.ID))),
			"total %s does not match items", stored.TotalIncome)
	}

	lipItem, err := svc.AddItem(ctx, order.ID, ItemInput{ProductID: lip.ID})
	require.NoError(t, err)
	assertTotalMatchesItems()

	_, err = svc.AddItem(ctx, order.ID, ItemInput{ProductID: lip.ID})
	serviceErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, CodeDuplicateProduct, serviceErr.Code)

	linerPrice := dec("1999.99")
	linerItem, err := svc.AddItem(ctx, order.ID, ItemInput{ProductID: liner.ID, Price: &linerPrice})
	require.NoError(t, err)
	assertTotalMatchesItems()

	newPrice := dec("3800")
	upsell := true
	updated, err := svc.UpdateItem(ctx, order.ID, lipItem.ID, UpdateItemInput{Price: &newPrice, IsUpsell: &upsell})
	require.NoError(t, err)
	assert.True(t, updated.ItemPrice.Equal(newPrice))
	assert.True(t, updated.IsUpsell)
	assertTotalMatchesItems()

	require.NoError(t, svc.RemoveItem(ctx, order.ID, linerItem.ID))
	assertTotalMatchesItems()
	assert.True(t, reloadOrder(t, db, order.ID).TotalIncome.Equal(dec("7300")))

	err = svc.RemoveItem(ctx, order.ID, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoveItem_RefusedOnceOrderHasPayments(t *testing.T) {
	db := setupServiceTestDB(t)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 0, "")
	order := createOrder(t, db, customer.ID, nil, "2026-10-01", models.OrderStatusBooking, map[uint]string{brow.ID: "3500"})
	item := itemsOf(t, db, order.ID)[0]

	_, err := NewLedgerService(db, DefaultCardFeePercent, time.UTC).RecordPayment(context.Background(), RecordPaymentInput{OrderID: order.ID, Amount: dec("500")})
	require.NoError(t, err)

	err = NewOrderService(db, time.UTC).RemoveItem(context.Background(), order.ID, item.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	serviceErr, _ := AsServiceError(err)
	assert.Equal(t, CodeOrderHasPayments, serviceErr.Code)
	assert.Len(t, itemsOf(t, db, order.ID), 1)
}

func TestRecalculateTotal_RepairsDrift(t *testing.T) {
	db := setupServiceTestDB(t)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 0, "")
	order := createOrder(t, db, customer.ID, nil, "2026-10-01", models.OrderStatusBooking, map[uint]string{brow.ID: "3500"})
	require.NoError(t, db.Model(&order).Update("total_income", decimal.NewFromInt(1)).Error)

	total, err := NewOrderService(db, time.UTC).RecalculateTotal(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("3500")))
	assert.True(t, reloadOrder(t, db, order.ID).TotalIncome.Equal(dec("3500")))

	_, err = NewOrderService(db, time.UTC).RecalculateTotal(context.Background(), 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSetOrderStatus(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		wantErr error
	}{
		{models.OrderStatusBooking, models.OrderStatusPaid, nil},
		{models.OrderStatusPaid, models.OrderStatusDone, nil},
		{models.OrderStatusBooking, models.OrderStatusCancelled, nil},
		{models.OrderStatusPaid, models.OrderStatusCancelled, nil},
		{models.OrderStatusBooking, models.OrderStatusBooking, nil},
		{models.OrderStatusBooking, models.OrderStatusDone, ErrInvalidTransition},
		{models.OrderStatusDone, models.OrderStatusCancelled, ErrInvalidTransition},
		{models.OrderStatusCancelled, models.OrderStatusBooking, ErrInvalidTransition},
		{models.OrderStatusBooking, "archived", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			db := setupServiceTestDB(t)
			customer := createCustomer(t, db, "Ploy")
			order := createOrder(t, db, customer.ID, nil, "2026-10-01", tt.from, nil)

			updated, err := NewOrderService(db, time.UTC).SetOrderStatus(context.Background(), order.ID, tt.to)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "unexpected error: %v", err)
				assert.Equal(t, tt.from, reloadOrder(t, db, order.ID).OrderStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.OrderStatus)
		})
	}
}

func TestListOrders(t *testing.T) {
	db := setupServiceTestDB(t)
	sales := createStaff(t, db, "mint", models.RoleSales)
	customer := createCustomer(t, db, "Ploy")
	for _, day := range []string{"2026-10-01", "2026-10-02", "2026-10-03", "2026-10-04", "2026-10-05"} {
		createOrder(t, db, customer.ID, &sales.ID, day, models.OrderStatusBooking, nil)
	}
	createOrder(t, db, customer.ID, nil, "2026-10-06", models.OrderStatusPaid, nil)
	svc := NewOrderService(db, time.UTC)
	ctx := context.Background()

	orders, total, err := svc.ListOrders(ctx, OrderFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, orders, 2)
	assert.Equal(t, "2026-10-06", orders[0].OrderDate)

	orders, total, err = svc.ListOrders(ctx, OrderFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, orders, 2)
	assert.Equal(t, "2026-10-01", orders[1].OrderDate)

	orders, total, err = svc.ListOrders(ctx, OrderFilter{SalesID: &sales.ID, From: "2026-10-02", To: "2026-10-04"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 3)

	_, total, err = svc.ListOrders(ctx, OrderFilter{Status: models.OrderStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = svc.ListOrders(ctx, OrderFilter{Status: "shipped"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGetOrder_NotFound(t *testing.T) {
	db := setupServiceTestDB(t)
	_, err := NewOrderService(db, time.UTC).GetOrder(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateItem_RejectsPriceFinerThanACent(t *testing.T) {
	db := setupServiceTestDB(t)
	customer := createCustomer(t, db, "Ploy")
	brow := createProduct(t, db, "BROW", "3500", 0, "")
	order := createOrder(t, db, customer.ID, nil, "2026-10-18", models.OrderStatusBooking, map[uint]string{brow.ID: "3500"})
	item := itemsOf(t, db, order.ID)[0]

	price := dec("3499.999")
	_, err := NewOrderService(db, time.UTC).UpdateItem(context.Background(), order.ID, item.ID, UpdateItemInput{Price: &price})
	require.Error(t, err)
	serviceErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidAmount, serviceErr.Code)
	assert.True(t, reloadOrder(t, db, order.ID).TotalIncome.Equal(dec("3500")))
}
