package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.Payment{}, &models.Service{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.PaymentID == "" {
		payment.PaymentID = uuid.NewString()
	}
	if payment.Direction == "" {
		payment.Direction = models.DirectionOutgoing
	}
	if err := db.Conn.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment record: %s", err)
	}

	return nil
}

func (db *PostgresDB) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Conn.WithContext(ctx).Where("payment_id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment record: %s", err)
	}

	return &payment, nil
}

func (db *PostgresDB) UpdatePayment(ctx context.Context, paymentID string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()

	result := db.Conn.WithContext(ctx).Model(&models.Payment{}).
		Where("payment_id = ?", paymentID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update payment record: %s", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// TransitionPayment moves a payment between statuses with a conditional
// UPDATE, so two concurrent submissions for the same payment cannot both
// claim it.
func (db *PostgresDB) TransitionPayment(ctx context.Context, paymentID, fromStatus, toStatus string) error {
	result := db.Conn.WithContext(ctx).Model(&models.Payment{}).
		Where("payment_id = ? AND status = ?", paymentID, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to transition payment status: %s", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := db.GetPayment(ctx, paymentID); err != nil {
			return err
		}
		return models.ErrStatusConflict
	}

	return nil
}

func (db *PostgresDB) ListPayments(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	if limit <= 0 {
		// gorm treats -1 as "no limit clause"
		limit = -1
	}
	var payments []*models.Payment
	if err := db.Conn.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %s", err)
	}

	return payments, nil
}

func (db *PostgresDB) CreateService(ctx context.Context, service *models.Service) error {
	if service.ServiceID == "" {
		service.ServiceID = uuid.NewString()
	}
	if err := db.Conn.WithContext(ctx).Create(service).Error; err != nil {
		return fmt.Errorf("failed to create service: %s", err)
	}

	return nil
}

func (db *PostgresDB) GetService(ctx context.Context, serviceID string) (*models.Service, error) {
	var service models.Service
	if err := db.Conn.WithContext(ctx).Where("service_id = ?", serviceID).First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service: %s", err)
	}

	return &service, nil
}

func (db *PostgresDB) ListServices(ctx context.Context, category string, limit, offset int) ([]*models.Service, error) {
	if limit <= 0 {
		limit = -1
	}
	query := db.Conn.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("service_category = ?", category)
	}

	var services []*models.Service
	if err := query.
		Order("total_calls DESC").
		Limit(limit).
		Offset(offset).
		Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %s", err)
	}

	return services, nil
}
