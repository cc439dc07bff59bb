package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lmedina/inventario/internal/models"
)

// ReportsService answers the dashboard and statistics queries. Read-only:
// every method reads committed state without touching stock.
type ReportsService struct {
	DB *gorm.DB
}

func NewReportsService(db *gorm.DB) *ReportsService { return &ReportsService{DB: db} }

type DashboardStats struct {
	SalesToday      int64
	TotalToday      decimal.Decimal
	SalesThisMonth  int64
	TotalThisMonth  decimal.Decimal
	ProductCount    int64
	CustomerCount   int64
	LowStockTop     []models.Product
	RecentSales     []models.Sale
}

// Dashboard collects the headline numbers for the landing page: today's and
// this month's sales, catalog counts, the five most urgent low-stock
// products and the five most recent sales.
func (s *ReportsService) Dashboard() (*DashboardStats, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := &DashboardStats{TotalToday: decimal.Zero, TotalThisMonth: decimal.Zero}
	if err := s.sumSalesSince(dayStart, &stats.SalesToday, &stats.TotalToday); err != nil {
		return nil, err
	}
	if err := s.sumSalesSince(monthStart, &stats.SalesThisMonth, &stats.TotalThisMonth); err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Product{}).Count(&stats.ProductCount).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Customer{}).Count(&stats.CustomerCount).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Where("quantity <= min_quantity").
		Order("quantity asc, id asc").Limit(5).Find(&stats.LowStockTop).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Preload("Customer").Order("created_at desc, id desc").
		Limit(5).Find(&stats.RecentSales).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *ReportsService) sumSalesSince(since time.Time, count *int64, total *decimal.Decimal) error {
	var row struct {
		N     int64
		Total decimal.Decimal
	}
	err := s.DB.Model(&models.Sale{}).
		Select("COUNT(*) AS n, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ?", since).
		Scan(&row).Error
	if err != nil {
		return err
	}
	*count = row.N
	*total = row.Total
	return nil
}

type DailySales struct {
	Day   string          `json:"day"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type TopProduct struct {
	Name    string          `json:"name"`
	Units   int64           `json:"units"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TopCustomer struct {
	Name      string          `json:"name"`
	LastName  string          `json:"last_name"`
	Purchases int64           `json:"purchases"`
	Spend     decimal.Decimal `json:"spend"`
}

type SalesStats struct {
	Days         int             `json:"days"`
	PerDay       []DailySales    `json:"per_day"`
	TopProducts  []TopProduct    `json:"top_products"`
	TopCustomers []TopCustomer   `json:"top_customers"`
	SaleCount    int64           `json:"sale_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AverageSale  decimal.Decimal `json:"average_sale"`
}

// SalesStats aggregates the last N days of sales: per-day totals, the ten
// best-selling products by units, the ten top customers by spend, and
// overall totals. DATE() keeps the grouping portable between sqlite and
// postgres.
func (s *ReportsService) SalesStats(days int) (*SalesStats, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	stats := &SalesStats{Days: days, TotalRevenue: decimal.Zero, AverageSale: decimal.Zero}

	if err := s.DB.Model(&models.Sale{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("day").
		Scan(&stats.PerDay).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Table("sale_lines").
		Select("products.name AS name, COALESCE(SUM(sale_lines.quantity), 0) AS units, COALESCE(SUM(sale_lines.subtotal), 0) AS revenue").
		Joins("JOIN products ON products.id = sale_lines.product_id").
		Joins("JOIN sales ON sales.id = sale_lines.sale_id").
		Where("sales.created_at >= ?", since).
		Group("products.id, products.name").
		Order("units desc").
		Limit(10).
		Scan(&stats.TopProducts).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Table("sales").
		Select("customers.name AS name, customers.last_name AS last_name, COUNT(*) AS purchases, COALESCE(SUM(sales.total), 0) AS spend").
		Joins("JOIN customers ON customers.id = sales.customer_id").
		Where("sales.created_at >= ?", since).
		Group("customers.id, customers.name, customers.last_name").
		Order("spend desc").
		Limit(10).
		Scan(&stats.TopCustomers).Error; err != nil {
		return nil, err
	}

	var overall struct {
		N     int64
		Total decimal.Decimal
	}
	if err := s.DB.Model(&models.Sale{}).
		Select("COUNT(*) AS n, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ?", since).
		Scan(&overall).Error; err != nil {
		return nil, err
	}
	stats.SaleCount = overall.N
	stats.TotalRevenue = overall.Total
	if overall.N > 0 {
		stats.AverageSale = overall.Total.Div(decimal.NewFromInt(overall.N)).Round(2)
	}
	return stats, nil
}
