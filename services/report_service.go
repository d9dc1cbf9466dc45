package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnassignedSalesName labels orders without sales staff in reports
const UnassignedSalesName = "Unassigned"

// SalesReportRow aggregates one sales staff member's orders over the report period
type SalesReportRow struct {
	SalesID        *uint           `json:"sales_id"`
	SalesName      string          `json:"sales_name"`
	OrderCount     int             `json:"order_count"`
	DoneCount      int             `json:"done_count"`
	BookingAmount  decimal.Decimal `json:"booking_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	DoneAmount     decimal.Decimal `json:"done_amount"`
	BookedIncome   decimal.Decimal `json:"booked_income"`
	ReceivedIncome decimal.Decimal `json:"received_income"`
}

// CategorySales counts services sold in one product category
type CategorySales struct {
	Category       string          `json:"category"`
	Count          int             `json:"count"`
	ListPriceTotal decimal.Decimal `json:"list_price_total"`
}

// DailyReport is the studio-wide aggregate pushed to LINE every evening.
// BookedIncome is deposits taken on orders created in the period;
// ReceivedIncome is ledger entries dated in the period.
type DailyReport struct {
	PeriodStart          string           `json:"period_start"`
	PeriodEnd            string           `json:"period_end"`
	GeneratedAt          time.Time        `json:"generated_at"`
	Sales                []SalesReportRow `json:"sales"`
	Totals               SalesReportRow   `json:"totals"`
	Services             []CategorySales  `json:"services"`
	MasterBookingCount   int              `json:"master_booking_count"`
	MasterBookingAmount  decimal.Decimal  `json:"master_booking_amount"`
	ReducedTierCustomers int              `json:"reduced_tier_customers"`
	BookedIncome         decimal.Decimal  `json:"booked_income"`
	ReceivedIncome       decimal.Decimal  `json:"received_income"`
}

// ReportService builds reconciliation reports across all sales staff
type ReportService struct {
	db  *gorm.DB
	loc *time.Location
	now Clock
}

// NewReportService creates a report service that evaluates dates in loc
func NewReportService(db *gorm.DB, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{db: db, loc: loc, now: time.Now}
}

// CurrentPeriod returns the running cycle (26th of the previous cycle to today)
func (s *ReportService) CurrentPeriod() (string, string) {
	return utils.CyclePeriod(s.now(), s.loc)
}

// BuildDailyReport aggregates orders dated in [from, to] per sales staff member
func (s *ReportService) BuildDailyReport(ctx context.Context, from, to string) (*DailyReport, error) {
	start, err := utils.ParseDate(from)
	if err != nil {
		return nil, validationError(CodeInvalidDate, "from must be YYYY-MM-DD")
	}
	end, err := utils.ParseDate(to)
	if err != nil {
		return nil, validationError(CodeInvalidDate, "to must be YYYY-MM-DD")
	}
	if start.After(end) {
		return nil, validationError(CodeInvalidDate, "from must not be after to")
	}

	db := s.db.WithContext(ctx)

	var staff []models.Staff
	if err := db.Where("role = ? AND is_active = ?", models.RoleSales, true).Order("staff_name ASC").Find(&staff).Error; err != nil {
		return nil, fmt.Errorf("failed to load sales staff: %w", err)
	}

	var orders []models.Order
	if err := db.Preload("Items", "item_status <> ?", models.ItemStatusCancelled).Preload("Items.Product").
		Where("order_date BETWEEN ? AND ? AND order_status <> ?", from, to, models.OrderStatusCancelled).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	// created_at is stored in UTC; the calendar range is a report-local day range
	createdFrom := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc).UTC()
	createdTo := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1).UTC()
	var created []models.Order
	if err := db.Select("id", "sales_id", "deposit").
		Where("created_at >= ? AND created_at < ? AND order_status <> ?", createdFrom, createdTo, models.OrderStatusCancelled).
		Find(&created).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders created in period: %w", err)
	}

	var payments []models.Payment
	if err := db.Preload("Order").Where("payment_date BETWEEN ? AND ?", from, to).Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	report := &DailyReport{
		PeriodStart:         from,
		PeriodEnd:           to,
		GeneratedAt:         s.now().In(s.loc),
		Sales:               []SalesReportRow{},
		Services:            []CategorySales{},
		MasterBookingAmount: decimal.Zero,
		BookedIncome:        decimal.Zero,
		ReceivedIncome:      decimal.Zero,
	}

	rows := newSalesRows(staff)
	categories := map[string]*CategorySales{}
	reducedCustomers := map[uint]bool{}

	for _, order := range orders {
		row := rows.forSales(order.SalesID)
		row.OrderCount++
		switch order.OrderStatus {
		case models.OrderStatusBooking:
			row.BookingAmount = row.BookingAmount.Add(order.TotalIncome)
		case models.OrderStatusPaid:
			row.PaidAmount = row.PaidAmount.Add(order.TotalIncome)
		case models.OrderStatusDone:
			row.DoneCount++
			row.DoneAmount = row.DoneAmount.Add(order.TotalIncome)
		}

		for _, item := range order.Items {
			if item.Product == nil {
				continue
			}
			category := item.Product.CategoryOr(UncategorizedLabel)
			entry, ok := categories[category]
			if !ok {
				entry = &CategorySales{Category: category, ListPriceTotal: decimal.Zero}
				categories[category] = entry
			}
			entry.Count++
			entry.ListPriceTotal = entry.ListPriceTotal.Add(item.Product.ListPrice)

			if item.Product.ListPrice.GreaterThanOrEqual(models.MasterBookingListPrice) {
				report.MasterBookingCount++
				report.MasterBookingAmount = report.MasterBookingAmount.Add(item.Product.ListPrice)
			}
			if item.Product.UsesReducedTier() {
				reducedCustomers[order.CustomerID] = true
			}
		}
	}

	for _, order := range created {
		row := rows.forSales(order.SalesID)
		row.BookedIncome = row.BookedIncome.Add(order.Deposit)
		report.BookedIncome = report.BookedIncome.Add(order.Deposit)
	}

	for _, payment := range payments {
		var salesID *uint
		if payment.Order != nil {
			salesID = payment.Order.SalesID
		}
		row := rows.forSales(salesID)
		row.ReceivedIncome = row.ReceivedIncome.Add(payment.Amount)
		report.ReceivedIncome = report.ReceivedIncome.Add(payment.Amount)
	}

	report.Sales = rows.list()
	report.Totals = totalRow(report.Sales)
	for _, entry := range categories {
		report.Services = append(report.Services, *entry)
	}
	sort.Slice(report.Services, func(i, j int) bool {
		if report.Services[i].Count != report.Services[j].Count {
			return report.Services[i].Count > report.Services[j].Count
		}
		return report.Services[i].Category < report.Services[j].Category
	})
	report.ReducedTierCustomers = len(reducedCustomers)

	return report, nil
}

// salesRows keeps one row per sales staff member in first-seen order
type salesRows struct {
	order []string
	rows  map[string]*SalesReportRow
	names map[uint]string
}

func newSalesRows(staff []models.Staff) *salesRows {
	r := &salesRows{rows: map[string]*SalesReportRow{}, names: map[uint]string{}}
	for _, member := range staff {
		id := member.ID
		r.names[id] = member.StaffName
		r.forSales(&id)
	}
	return r
}

func (r *salesRows) forSales(salesID *uint) *SalesReportRow {
	key := "-"
	name := UnassignedSalesName
	if salesID != nil {
		key = fmt.Sprint(*salesID)
		if n, ok := r.names[*salesID]; ok {
			name = n
		} else {
			name = fmt.Sprintf("Staff #%d", *salesID)
		}
	}

	row, ok := r.rows[key]
	if !ok {
		row = &SalesReportRow{
			SalesID:        salesID,
			SalesName:      name,
			BookingAmount:  decimal.Zero,
			PaidAmount:     decimal.Zero,
			DoneAmount:     decimal.Zero,
			BookedIncome:   decimal.Zero,
			ReceivedIncome: decimal.Zero,
		}
		r.rows[key] = row
		r.order = append(r.order, key)
	}
	return row
}

func (r *salesRows) list() []SalesReportRow {
	out := make([]SalesReportRow, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.rows[key])
	}
	return out
}

func totalRow(rows []SalesReportRow) SalesReportRow {
	total := SalesReportRow{
		SalesName:      "Total",
		BookingAmount:  decimal.Zero,
		PaidAmount:     decimal.Zero,
		DoneAmount:     decimal.Zero,
		BookedIncome:   decimal.Zero,
		ReceivedIncome: decimal.Zero,
	}
	for _, row := range rows {
		total.OrderCount += row.OrderCount
		total.DoneCount += row.DoneCount
		total.BookingAmount = total.BookingAmount.Add(row.BookingAmount)
		total.PaidAmount = total.PaidAmount.Add(row.PaidAmount)
		total.DoneAmount = total.DoneAmount.Add(row.DoneAmount)
		total.BookedIncome = total.BookedIncome.Add(row.BookedIncome)
		total.ReceivedIncome = total.ReceivedIncome.Add(row.ReceivedIncome)
	}
	return total
}

// FormatDailyReport renders the report as a LINE text message
func FormatDailyReport(r *DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s to %s\n", r.PeriodStart, r.PeriodEnd)

	for _, row := range r.Sales {
		fmt.Fprintf(&b, "\n%s\n", row.SalesName)
		fmt.Fprintf(&b, "  Orders: %d (done %d)\n", row.OrderCount, row.DoneCount)
		fmt.Fprintf(&b, "  Booking: %s | Paid: %s | Done: %s\n",
			money(row.BookingAmount), money(row.PaidAmount), money(row.DoneAmount))
		fmt.Fprintf(&b, "  Booked income: %s | Received: %s\n", money(row.BookedIncome), money(row.ReceivedIncome))
	}

	fmt.Fprintf(&b, "\nTotal orders: %d (done %d)\n", r.Totals.OrderCount, r.Totals.DoneCount)
	fmt.Fprintf(&b, "Booked income: %s\n", money(r.BookedIncome))
	fmt.Fprintf(&b, "Received income: %s\n", money(r.ReceivedIncome))

	if len(r.Services) > 0 {
		b.WriteString("\nServices\n")
		for _, svc := range r.Services {
			fmt.Fprintf(&b, "  %s: %d (%s)\n", svc.Category, svc.Count, money(svc.ListPriceTotal))
		}
	}
	fmt.Fprintf(&b, "\nMaster bookings: %d (%s)\n", r.MasterBookingCount, money(r.MasterBookingAmount))
	fmt.Fprintf(&b, "Reduced-tier customers: %d", r.ReducedTierCustomers)

	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
