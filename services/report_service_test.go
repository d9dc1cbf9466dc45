package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var bangkok = time.FixedZone("ICT", 7*60*60)

type reportFixture struct {
	db    *gorm.DB
	mint  models.Staff
	nan   models.Staff
	ploy  models.Customer
	nok   models.Customer
	brow  models.Product
	lip   models.Product
	combo models.Product
}

func setupReportFixture(t *testing.T) reportFixture {
	db := setupServiceTestDB(t)
	return reportFixture{
		db:    db,
		mint:  createStaff(t, db, "mint", models.RoleSales),
		nan:   createStaff(t, db, "nan", models.RoleSales),
		ploy:  createCustomer(t, db, "Ploy"),
		nok:   createCustomer(t, db, "Nok"),
		brow:  createProduct(t, db, "BROW", "3500", 12, "eyebrow"),
		lip:   createProduct(t, db, "LIP", "4200", 0, "lip"),
		combo: createProduct(t, db, "MASTER", "25000", 0, "eyebrow"),
	}
}

func setCreatedAt(t *testing.T, db *gorm.DB, order models.Order, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", at.UTC()).Error)
}

func TestBuildDailyReport(t *testing.T) {
	f := setupReportFixture(t)
	db := f.db
	ledger := NewLedgerService(db, DefaultCardFeePercent, time.UTC)
	ctx := context.Background()

	booked := createOrder(t, db, f.ploy.ID, &f.mint.ID, "2026-10-18", models.OrderStatusBooking,
		map[uint]string{f.brow.ID: "3500", f.lip.ID: "4000"})
	require.NoError(t, db.Model(&booked).Update("deposit", dec("1000")).Error)
	setCreatedAt(t, db, booked, time.Date(2026, 10, 18, 10, 0, 0, 0, bangkok))

	done := createOrder(t, db, f.nok.ID, &f.mint.ID, "2026-10-10", models.OrderStatusDone,
		map[uint]string{f.combo.ID: "24000"})
	require.NoError(t, db.Model(&done).Update("deposit", dec("5000")).Error)
	setCreatedAt(t, db, done, time.Date(2026, 10, 10, 10, 0, 0, 0, bangkok))

	paid := createOrder(t, db, f.nok.ID, &f.nan.ID, "2026-10-17", models.OrderStatusPaid,
		map[uint]string{f.lip.ID: "4200"})
	// Created just after midnight local time, which is still the previous UTC day
	setCreatedAt(t, db, paid, time.Date(2026, 10, 17, 0, 30, 0, 0, bangkok))

	unassigned := createOrder(t, db, f.ploy.ID, nil, "2026-10-16", models.OrderStatusBooking,
		map[uint]string{f.lip.ID: "4200"})
	setCreatedAt(t, db, unassigned, time.Date(2026, 9, 1, 10, 0, 0, 0, bangkok))

	cancelled := createOrder(t, db, f.ploy.ID, &f.nan.ID, "2026-10-16", models.OrderStatusCancelled,
		map[uint]string{f.lip.ID: "4200"})
	require.NoError(t, db.Model(&cancelled).Update("deposit", dec("999")).Error)

	outside := createOrder(t, db, f.ploy.ID, &f.nan.ID, "2026-09-20", models.OrderStatusDone,
		map[uint]string{f.lip.ID: "4200"})
	setCreatedAt(t, db, outside, time.Date(2026, 9, 20, 10, 0, 0, 0, bangkok))

	for _, p := range []RecordPaymentInput{
		{OrderID: paid.ID, Amount: dec("4200"), PaymentDate: "2026-10-17"},
		{OrderID: done.ID, Amount: dec("24000"), PaymentDate: "2026-10-12"},
		{OrderID: done.ID, Amount: dec("-1000"), PaymentDate: "2026-10-13"},
		{OrderID: outside.ID, Amount: dec("4200"), PaymentDate: "2026-09-20"},
	} {
		_, err := ledger.RecordPayment(ctx, p)
		require.NoError(t, err)
	}

	svc := NewReportService(db, bangkok)
	report, err := svc.BuildDailyReport(ctx, "2026-09-26", "2026-10-18")
	require.NoError(t, err)

	rows := map[string]SalesReportRow{}
	for _, row := range report.Sales {
		rows[row.SalesName] = row
	}
	require.Contains(t, rows, "mint")
	require.Contains(t, rows, "nan")
	require.Contains(t, rows, UnassignedSalesName)

	mint := rows["mint"]
	assert.Equal(t, 2, mint.OrderCount)
	assert.Equal(t, 1, mint.DoneCount)
	assert.True(t, mint.BookingAmount.Equal(dec("7500")))
	assert.True(t, mint.DoneAmount.Equal(dec("24000")))
	assert.True(t, mint.PaidAmount.IsZero())
	assert.True(t, mint.BookedIncome.Equal(dec("6000")), "booked income was %s", mint.BookedIncome)
	assert.True(t, mint.ReceivedIncome.Equal(dec("23000")), "received income was %s", mint.ReceivedIncome)

	nan := rows["nan"]
	assert.Equal(t, 1, nan.OrderCount, "cancelled orders are excluded")
	assert.True(t, nan.PaidAmount.Equal(dec("4200")))
	assert.True(t, nan.ReceivedIncome.Equal(dec("4200")))

	assert.Equal(t, 1, rows[UnassignedSalesName].OrderCount)
	assert.True(t, rows[UnassignedSalesName].BookedIncome.IsZero(), "created outside the period")

	assert.Equal(t, 4, report.Totals.OrderCount)
	assert.True(t, report.BookedIncome.Equal(dec("6000")))
	assert.True(t, report.ReceivedIncome.Equal(dec("27200")))
	assert.True(t, report.Totals.ReceivedIncome.Equal(report.ReceivedIncome))

	services := map[string]CategorySales{}
	for _, entry := range report.Services {
		services[entry.Category] = entry
	}
	assert.Equal(t, 3, services["lip"].Count)
	assert.True(t, services["lip"].ListPriceTotal.Equal(dec("12600")))
	assert.Equal(t, 2, services["eyebrow"].Count)
	assert.True(t, services["eyebrow"].ListPriceTotal.Equal(dec("28500")))

	assert.Equal(t, 1, report.MasterBookingCount)
	assert.True(t, report.MasterBookingAmount.Equal(dec("25000")))
	assert.Equal(t, 1, report.ReducedTierCustomers)

	text := FormatDailyReport(report)
	assert.Contains(t, text, "Daily report 2026-09-26 to 2026-10-18")
	assert.Contains(t, text, "Received income: 27200.00")
	assert.Contains(t, text, "Master bookings: 1 (25000.00)")

	_, err = json.Marshal(report)
	assert.NoError(t, err)
}

func TestBuildDailyReport_InvalidRange(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewReportService(db, bangkok)

	_, err := svc.BuildDailyReport(context.Background(), "2026-10-18", "2026-10-01")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.BuildDailyReport(context.Background(), "yesterday", "2026-10-01")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestBuildDailyReport_Empty(t *testing.T) {
	db := setupServiceTestDB(t)
	createStaff(t, db, "mint", models.RoleSales)

	report, err := NewReportService(db, bangkok).BuildDailyReport(context.Background(), "2026-10-01", "2026-10-18")
	require.NoError(t, err)
	require.Len(t, report.Sales, 1, "active sales staff appear even without orders")
	assert.Equal(t, 0, report.Totals.OrderCount)
	assert.True(t, report.ReceivedIncome.IsZero())
	assert.Empty(t, report.Services)
}

func TestReportService_CurrentPeriod(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewReportService(db, bangkok)
	svc.now = fixedClock(time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC))

	from, to := svc.CurrentPeriod()
	assert.Equal(t, "2026-09-26", from)
	assert.Equal(t, "2026-10-18", to)
}
