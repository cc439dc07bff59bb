package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lmedina/inventario/internal/models"
)

// ConnectAndMigrate opens the database named by DATABASE_DSN (postgres in
// production, a sqlite file for local runs) and brings the schema up to
// date. With MIGRATIONS=1 the SQL migrations in ./migrations run via
// golang-migrate; otherwise AutoMigrate keeps dev setups working.
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	if IsPostgres(dsn) {
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Println("retrying DB connection...", err)
			time.Sleep(2 * time.Second)
		}
	} else {
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Println("[DB] using DSN:", MaskDSN(dsn))

	if enabled(os.Getenv("MIGRATIONS")) && IsPostgres(dsn) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range []interface{}{
			&models.User{}, &models.Product{}, &models.StockMovement{},
			&models.Customer{}, &models.Sale{}, &models.SaleLine{},
		} {
			if migErr := conn.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"users", "products", "sales"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}

	if enabled(os.Getenv("DB_SEED")) {
		seed(conn)
	}
	return conn, nil
}

func enabled(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// seed inserts a small demo catalog, idempotently keyed by product code and
// customer email.
func seed(conn *gorm.DB) {
	products := []models.Product{
		{Code: "TEC-001", Name: "Teclado mecánico", UnitPrice: decimal.RequireFromString("45.90"), Quantity: 25, MinQuantity: 5},
		{Code: "MON-001", Name: "Monitor 24\"", UnitPrice: decimal.RequireFromString("139.00"), Quantity: 8, MinQuantity: 3},
		{Code: "MOU-001", Name: "Mouse inalámbrico", UnitPrice: decimal.RequireFromString("19.50"), Quantity: 40, MinQuantity: 10},
	}
	for _, p := range products {
		var existing models.Product
		if err := conn.Where("code = ?", p.Code).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			conn.Create(&p)
		}
	}
	customers := []models.Customer{
		{Name: "María", LastName: "Pérez", Email: "maria@example.com", Phone: "555-0101"},
		{Name: "Jorge", LastName: "Salas", Email: "jorge@example.com", Phone: "555-0102"},
	}
	for _, c := range customers {
		var existing models.Customer
		if err := conn.Where("email = ?", c.Email).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			conn.Create(&c)
		}
	}
}

// runSQLMigrations applies the migrations in ./migrations (postgres only).
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
