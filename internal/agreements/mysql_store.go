package agreements

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/markethub/geocurrency/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// agreementModel is the GORM model for the agreements table
type agreementModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	UserID       string    `gorm:"column:user_id;index"`
	Currency     string    `gorm:"column:currency"`
	Gateway      string    `gorm:"column:gateway"`
	TotalAmount  float64   `gorm:"column:total_amount"`
	NativeAmount *float64  `gorm:"column:native_amount"`
	ExchangeRate *float64  `gorm:"column:exchange_rate"`
	Status       string    `gorm:"column:status"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName overrides GORM's pluralized default
func (agreementModel) TableName() string {
	return "agreements"
}

// MySQLStore implements Store using MySQL with GORM
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore creates a new MySQL store
//
// dsn format: user:password@tcp(host:port)/dbname?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// NewMySQLStoreWithConn creates a store over an existing connection
// Used by tests to plug in sqlmock
func NewMySQLStoreWithConn(conn *sql.DB) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM over connection: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// ListByUser implements Store
func (s *MySQLStore) ListByUser(ctx context.Context, userID string) ([]models.MonetaryRecord, error) {
	var rows []agreementModel

	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("database query failed: %w", result.Error)
	}

	records := make([]models.MonetaryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

// Save implements Store
func (s *MySQLStore) Save(ctx context.Context, rec models.MonetaryRecord) error {
	row := agreementModel{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Currency:     rec.Currency,
		Gateway:      rec.Gateway,
		TotalAmount:  rec.TotalAmount,
		NativeAmount: rec.NativeAmount,
		ExchangeRate: rec.ExchangeRate,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
	}

	if result := s.db.WithContext(ctx).Save(&row); result.Error != nil {
		return fmt.Errorf("database save failed: %w", result.Error)
	}
	return nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// toRecord converts a GORM row to the domain model
func toRecord(row agreementModel) models.MonetaryRecord {
	return models.MonetaryRecord{
		ID:           row.ID,
		UserID:       row.UserID,
		Currency:     row.Currency,
		Gateway:      row.Gateway,
		TotalAmount:  row.TotalAmount,
		NativeAmount: row.NativeAmount,
		ExchangeRate: row.ExchangeRate,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt,
	}
}
