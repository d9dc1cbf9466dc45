package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// apiResponse mirrors the JSON envelope every handler writes
type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"totalPages"`
	} `json:"pagination"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	config.SetConfig(&config.Config{
		Ledger: config.LedgerConfig{CardFeePercent: 3},
		Report: config.ReportConfig{Timezone: "Asia/Bangkok", CronSecret: "cron-secret"},
	})
	services.SetCommissionCache(nil)
	services.SetReceiptService(nil)
	services.SetNotifier(nil)
	t.Cleanup(func() { config.SetConfig(nil) })

	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates EnsureValidToken followed by RequireStaff
func mockAuthMiddleware(staff models.Staff) gin.HandlerFunc {
	return func(c *gin.Context) {
		if staff.Auth0ID != nil {
			c.Set("user_id", *staff.Auth0ID)
		}
		c.Set("access_token", "mock-token")
		c.Set("staff", staff)
		c.Next()
	}
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w, response
}

func decodeData(t *testing.T, response apiResponse, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(response.Data, into))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createStaff(t *testing.T, db *gorm.DB, name, role string) models.Staff {
	t.Helper()
	auth0ID := "auth0|" + name
	staff := models.Staff{
		Auth0ID:   &auth0ID,
		StaffName: name,
		Email:     name + "@studio.test",
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(&staff).Error; err != nil {
		t.Fatalf("Failed to create staff: %v", err)
	}
	return staff
}

func createCustomer(t *testing.T, db *gorm.DB, name string) models.Customer {
	t.Helper()
	customer := models.Customer{FullName: name}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customer
}

func createProduct(t *testing.T, db *gorm.DB, code, price string, validityMonths int) models.Product {
	t.Helper()
	product := models.Product{
		ProductCode:    code,
		ProductName:    "Service " + code,
		ListPrice:      dec(price),
		ValidityMonths: validityMonths,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

// createBookedOrder books an order through the service with one item per product
func createBookedOrder(t *testing.T, db *gorm.DB, customerID uint, salesID *uint, orderDate string, products ...models.Product) *models.Order {
	t.Helper()
	items := make([]services.ItemInput, 0, len(products))
	for _, p := range products {
		items = append(items, services.ItemInput{ProductID: p.ID})
	}
	order, err := services.NewOrderService(db, time.UTC).CreateOrder(context.Background(), services.CreateOrderInput{
		CustomerID: customerID,
		SalesID:    salesID,
		OrderDate:  orderDate,
		Items:      items,
	})
	require.NoError(t, err)
	return order
}
