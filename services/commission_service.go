package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/kendall-kelly/studio-ledger-api/metrics"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Commission tiers
const (
	TierNormal  = "normal"
	TierReduced = "reduced"
)

// UncategorizedLabel groups products without a category
const UncategorizedLabel = "Other"

var hundred = decimal.NewFromInt(100)

// CommissionRuleInput sets both tiers for an artist
type CommissionRuleInput struct {
	CommissionNormalPercent decimal.Decimal `json:"commission_normal_percent"`
	Commission50Percent     decimal.Decimal `json:"commission_50_percent"`
}

// CommissionByDate buckets booking and commission value by order date
type CommissionByDate struct {
	Date       string          `json:"date"`
	Booking    decimal.Decimal `json:"booking"`
	Commission decimal.Decimal `json:"commission"`
}

// CommissionLine is one item's contribution to a commission summary
type CommissionLine struct {
	ItemID      uint            `json:"item_id"`
	OrderID     uint            `json:"order_id"`
	OrderDate   string          `json:"order_date"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Tier        string          `json:"tier"`
	Rate        decimal.Decimal `json:"rate"`
	Eligible    bool            `json:"eligible"`
	Commission  decimal.Decimal `json:"commission"`
}

// CommissionSummary is the commission owed to one artist over a date range
type CommissionSummary struct {
	ArtistID            uint               `json:"artist_id"`
	From                string             `json:"from"`
	To                  string             `json:"to"`
	NormalPercent       decimal.Decimal    `json:"normal_percent"`
	ReducedPercent      decimal.Decimal    `json:"reduced_percent"`
	TotalCustomers      int                `json:"total_customers"`
	CompletedServices   int                `json:"completed_services"`
	TotalBooking        decimal.Decimal    `json:"total_booking"`
	TotalCommission     decimal.Decimal    `json:"total_commission"`
	ByDate              []CommissionByDate `json:"by_date"`
	Lines               []CommissionLine   `json:"lines"`
	CustomersByCategory map[string]int     `json:"customers_by_category"`
}

// CommissionService manages commission rules and computes commission from completed items
type CommissionService struct {
	db    *gorm.DB
	cache CommissionCache
}

// NewCommissionService creates a commission service using the process-wide cache
func NewCommissionService(db *gorm.DB) *CommissionService {
	return &CommissionService{db: db, cache: GetCommissionCache()}
}

// UpsertRule creates or replaces the artist's commission rule
func (s *CommissionService) UpsertRule(ctx context.Context, artistID uint, in CommissionRuleInput) (*models.CommissionSetting, error) {
	for _, pct := range []decimal.Decimal{in.CommissionNormalPercent, in.Commission50Percent} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, validationError(CodeInvalidPercent, "commission percentages must be between 0 and 100")
		}
	}

	var artist models.Staff
	err := s.db.WithContext(ctx).Where("id = ? AND role = ?", artistID, models.RoleArtist).First(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeArtistNotFound, "artist %d not found", artistID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artist: %w", err)
	}

	setting := models.CommissionSetting{
		ArtistID:                artistID,
		CommissionNormalPercent: in.CommissionNormalPercent,
		Commission50Percent:     in.Commission50Percent,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artist_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"commission_normal_percent", "commission_50_percent", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save commission rule: %w", err)
	}

	s.cache.InvalidateArtist(ctx, artistID)
	log.Printf("[commission] rule for artist %d set to %s%% / %s%%", artistID, in.CommissionNormalPercent, in.Commission50Percent)
	return s.GetRule(ctx, artistID)
}

// GetRule returns the artist's rule; an artist without one gets 0% on both tiers
func (s *CommissionService) GetRule(ctx context.Context, artistID uint) (*models.CommissionSetting, error) {
	var setting models.CommissionSetting
	err := s.db.WithContext(ctx).Where("artist_id = ?", artistID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CommissionSetting{
			ArtistID:                artistID,
			CommissionNormalPercent: decimal.Zero,
			Commission50Percent:     decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load commission rule: %w", err)
	}
	return &setting, nil
}

// ListRules returns every stored rule with its artist
func (s *CommissionService) ListRules(ctx context.Context) ([]models.CommissionSetting, error) {
	var settings []models.CommissionSetting
	if err := s.db.WithContext(ctx).Preload("Artist").Order("artist_id ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list commission rules: %w", err)
	}
	return settings, nil
}

// ComputeCommission totals the artist's commission for orders dated within [from, to]
func (s *CommissionService) ComputeCommission(ctx context.Context, artistID uint, from, to string) (*CommissionSummary, error) {
	if !utils.IsValidDate(from) || !utils.IsValidDate(to) {
		return nil, validationError(CodeInvalidDate, "from and to must be YYYY-MM-DD")
	}
	if from > to {
		return nil, validationError(CodeInvalidDate, "from must not be after to")
	}

	if cached, ok := s.cache.Get(ctx, artistID, from, to); ok {
		metrics.CommissionComputations.WithLabelValues("hit").Inc()
		return cached, nil
	}

	rule, err := s.GetRule(ctx, artistID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var items []models.OrderItem
	err = db.Preload("Order").Preload("Product").
		Where("artist_id = ?", artistID).
		Where("order_id IN (?)", db.Model(&models.Order{}).Select("id").Where("order_date BETWEEN ? AND ?", from, to)).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load items for commission: %w", err)
	}

	summary := summarizeCommission(*rule, items)
	summary.From, summary.To = from, to

	s.cache.Set(ctx, summary)
	metrics.CommissionComputations.WithLabelValues("miss").Inc()
	return summary, nil
}

// summarizeCommission applies rule to items. Booking value counts every item,
// commission only items both roles have confirmed.
func summarizeCommission(rule models.CommissionSetting, items []models.OrderItem) *CommissionSummary {
	summary := &CommissionSummary{
		ArtistID:            rule.ArtistID,
		NormalPercent:       rule.CommissionNormalPercent,
		ReducedPercent:      rule.Commission50Percent,
		TotalBooking:        decimal.Zero,
		ByDate:              []CommissionByDate{},
		Lines:               make([]CommissionLine, 0, len(items)),
		CustomersByCategory: map[string]int{},
	}

	orders := map[uint]bool{}
	byDate := map[string]*CommissionByDate{}
	customers := map[string]map[uint]bool{}
	rawTotal := decimal.Zero

	for _, item := range items {
		var product models.Product
		if item.Product != nil {
			product = *item.Product
		}
		var orderDate string
		var customerID uint
		if item.Order != nil {
			orderDate = item.Order.OrderDate
			customerID = item.Order.CustomerID
		}

		orders[item.OrderID] = true

		category := product.CategoryOr(UncategorizedLabel)
		if customers[category] == nil {
			customers[category] = map[uint]bool{}
		}
		customers[category][customerID] = true

		bucket, ok := byDate[orderDate]
		if !ok {
			bucket = &CommissionByDate{Date: orderDate, Booking: decimal.Zero, Commission: decimal.Zero}
			byDate[orderDate] = bucket
		}
		bucket.Booking = bucket.Booking.Add(item.ItemPrice)
		summary.TotalBooking = summary.TotalBooking.Add(item.ItemPrice)

		tier := TierNormal
		if product.UsesReducedTier() {
			tier = TierReduced
		}
		rate := rule.RateFor(product)
		line := CommissionLine{
			ItemID:      item.ID,
			OrderID:     item.OrderID,
			OrderDate:   orderDate,
			ProductCode: product.ProductCode,
			ProductName: product.ProductName,
			Category:    category,
			Price:       item.ItemPrice,
			Tier:        tier,
			Rate:        rate,
			Eligible:    item.IsCommissionEligible(),
			Commission:  decimal.Zero,
		}

		if line.Eligible {
			commission := item.ItemPrice.Mul(rate).Div(hundred)
			line.Commission = commission.Round(2)
			bucket.Commission = bucket.Commission.Add(commission)
			rawTotal = rawTotal.Add(commission)
			summary.CompletedServices++
		}
		summary.Lines = append(summary.Lines, line)
	}

	summary.TotalCustomers = len(orders)
	summary.TotalCommission = rawTotal.Round(0)

	for _, bucket := range byDate {
		bucket.Commission = bucket.Commission.Round(2)
		summary.ByDate = append(summary.ByDate, *bucket)
	}
	sort.Slice(summary.ByDate, func(i, j int) bool {
		return summary.ByDate[i].Date < summary.ByDate[j].Date
	})

	for category, ids := range customers {
		summary.CustomersByCategory[category] = len(ids)
	}

	return summary
}
