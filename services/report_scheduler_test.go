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
)

func TestReportScheduler_RunDelivers(t *testing.T) {
	db := setupServiceTestDB(t)
	sales := createStaff(t, db, "mint", models.RoleSales)
	customer := createCustomer(t, db, "Ploy")
	product := createProduct(t, db, "LIP", "4200", 0, "lip")
	createOrder(t, db, customer.ID, &sales.ID, "2026-10-18", models.OrderStatusBooking, map[uint]string{product.ID: "4200"})

	notifier := NewMockNotifier()
	scheduler := NewReportScheduler(db, notifier, bangkok)
	scheduler.reports.now = fixedClock(time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC))

	entry, err := scheduler.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.True(t, entry.Delivered)
	assert.Nil(t, entry.Error)
	assert.Equal(t, "2026-09-26", entry.PeriodStart)
	assert.Equal(t, "2026-10-18", entry.PeriodEnd)
	assert.Equal(t, TriggerManual, entry.Trigger)

	messages := notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "mint")

	var stored models.DailyReportLog
	require.NoError(t, db.First(&stored, entry.ID).Error)
	var payload DailyReport
	require.NoError(t, json.Unmarshal(stored.Payload, &payload))
	assert.Equal(t, 1, payload.Totals.OrderCount)
}

func TestReportScheduler_RecordsFailedPush(t *testing.T) {
	db := setupServiceTestDB(t)
	notifier := NewMockNotifier()
	notifier.FailWith(errors.New("LINE push endpoint returned status 401"))
	scheduler := NewReportScheduler(db, notifier, bangkok)

	entry, err := scheduler.Run(context.Background(), TriggerCron)
	require.NoError(t, err, "a failed push is recorded, not returned")
	assert.False(t, entry.Delivered)
	require.NotNil(t, entry.Error)
	assert.Contains(t, *entry.Error, "401")

	var count int64
	db.Model(&models.DailyReportLog{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReportScheduler_WithoutNotifier(t *testing.T) {
	db := setupServiceTestDB(t)
	scheduler := NewReportScheduler(db, nil, bangkok)

	entry, err := scheduler.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, entry.Delivered)
	require.NotNil(t, entry.Error)
	assert.Equal(t, ErrNotifierDisabled.Error(), *entry.Error)
}

func TestReportScheduler_StartRejectsBadSpec(t *testing.T) {
	db := setupServiceTestDB(t)
	scheduler := NewReportScheduler(db, NewMockNotifier(), bangkok)

	assert.Error(t, scheduler.Start("every evening"))

	require.NoError(t, scheduler.Start("0 21 * * *"))
	scheduler.Stop()
}
