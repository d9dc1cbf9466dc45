package services

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceTestDB opens a migrated in-memory database. A single connection
// keeps every query, including those inside transactions, on the same database.
func setupServiceTestDB(t *testing.T) *gorm.DB {
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

	SetCommissionCache(nil)
	return db
}

// captureLog redirects the standard logger into a buffer for the rest of the test
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func uintPtr(u uint) *uint {
	return &u
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

func createProduct(t *testing.T, db *gorm.DB, code, price string, validityMonths int, category string) models.Product {
	t.Helper()
	product := models.Product{
		ProductCode:    code,
		ProductName:    "Service " + code,
		ListPrice:      dec(price),
		ValidityMonths: validityMonths,
	}
	if category != "" {
		product.Category = &category
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

// createOrder inserts an order and its items directly, keeping total_income in sync
func createOrder(t *testing.T, db *gorm.DB, customerID uint, salesID *uint, orderDate, status string, prices map[uint]string) models.Order {
	t.Helper()
	order := models.Order{
		CustomerID:  customerID,
		SalesID:     salesID,
		OrderDate:   orderDate,
		OrderStatus: status,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("Failed to create order: %v", err)
	}

	total := decimal.Zero
	for productID, price := range prices {
		item := models.OrderItem{
			OrderID:    order.ID,
			ProductID:  productID,
			ItemPrice:  dec(price),
			ItemStatus: models.ItemStatusPending,
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("Failed to create order item: %v", err)
		}
		total = total.Add(item.ItemPrice)
	}
	if err := db.Model(&order).Update("total_income", total).Error; err != nil {
		t.Fatalf("Failed to set order total: %v", err)
	}
	order.TotalIncome = total
	return order
}

func itemsOf(t *testing.T, db *gorm.DB, orderID uint) []models.OrderItem {
	t.Helper()
	var items []models.OrderItem
	if err := db.Preload("Product").Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		t.Fatalf("Failed to load items: %v", err)
	}
	return items
}

func reloadOrder(t *testing.T, db *gorm.DB, orderID uint) models.Order {
	t.Helper()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		t.Fatalf("Failed to reload order: %v", err)
	}
	return order
}
