package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aabc-labs/solvo/internal/models"
)

// MemoryDB is an in-memory implementation of models.Repository.
// Used by tests and local development without Postgres. Transition semantics
// match the Postgres implementation, including compare-and-swap on status.
type MemoryDB struct {
	mu       sync.RWMutex
	payments map[string]*models.Payment
	services map[string]*models.Service
}

// NewMemoryDB creates a new in-memory repository.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		payments: make(map[string]*models.Payment),
		services: make(map[string]*models.Service),
	}
}

func (m *MemoryDB) CreatePayment(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment.PaymentID == "" {
		payment.PaymentID = uuid.NewString()
	}
	if payment.Direction == "" {
		payment.Direction = models.DirectionOutgoing
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	stored := *payment
	m.payments[payment.PaymentID] = &stored
	return nil
}

func (m *MemoryDB) GetPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return nil, models.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MemoryDB) UpdatePayment(_ context.Context, paymentID string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return models.ErrNotFound
	}
	applyPaymentFields(payment, fields)
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryDB) TransitionPayment(_ context.Context, paymentID, fromStatus, toStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return models.ErrNotFound
	}
	if payment.Status != fromStatus {
		return models.ErrStatusConflict
	}
	payment.Status = toStatus
	payment.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryDB) ListPayments(_ context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var payments []*models.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			copy := *p
			payments = append(payments, &copy)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})

	if offset >= len(payments) {
		return nil, nil
	}
	payments = payments[offset:]
	if limit > 0 && limit < len(payments) {
		payments = payments[:limit]
	}
	return payments, nil
}

func (m *MemoryDB) CreateService(_ context.Context, service *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if service.ServiceID == "" {
		service.ServiceID = uuid.NewString()
	}
	now := time.Now().UTC()
	service.CreatedAt = now
	service.UpdatedAt = now

	stored := *service
	m.services[service.ServiceID] = &stored
	return nil
}

func (m *MemoryDB) GetService(_ context.Context, serviceID string) (*models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	service, exists := m.services[serviceID]
	if !exists {
		return nil, models.ErrNotFound
	}
	copy := *service
	return &copy, nil
}

func (m *MemoryDB) ListServices(_ context.Context, category string, limit, offset int) ([]*models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var services []*models.Service
	for _, s := range m.services {
		if !s.IsActive {
			continue
		}
		if category != "" && s.ServiceCategory != category {
			continue
		}
		copy := *s
		services = append(services, &copy)
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].TotalCalls > services[j].TotalCalls
	})

	if offset >= len(services) {
		return nil, nil
	}
	services = services[offset:]
	if limit > 0 && limit < len(services) {
		services = services[:limit]
	}
	return services, nil
}

// applyPaymentFields mirrors the column-keyed partial updates accepted by
// the Postgres implementation.
func applyPaymentFields(payment *models.Payment, fields map[string]interface{}) {
	for column, value := range fields {
		switch column {
		case "status":
			payment.Status = value.(string)
		case "tx_signature":
			payment.TxSignature = value.(string)
		case "error_message":
			payment.ErrorMessage = value.(string)
		case "unsigned_transaction":
			payment.UnsignedTransaction = value.(string)
		case "expires_at":
			switch v := value.(type) {
			case *time.Time:
				payment.ExpiresAt = v
			case time.Time:
				payment.ExpiresAt = &v
			}
		case "verified_at":
			switch v := value.(type) {
			case *time.Time:
				payment.VerifiedAt = v
			case time.Time:
				payment.VerifiedAt = &v
			}
		case "amount":
			if v, ok := value.(decimal.Decimal); ok {
				payment.Amount = v
			}
		}
	}
}
