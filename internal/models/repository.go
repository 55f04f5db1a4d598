package models

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repository reads when no record exists.
var ErrNotFound = errors.New("record not found")

// ErrStatusConflict is returned by TransitionPayment when the record is not
// in the expected status. Closes the race between concurrent submissions
// for the same payment id.
var ErrStatusConflict = errors.New("payment status conflict")

type Repository interface {
	// CreatePayment persists a new payment record and assigns its PaymentID.
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	// UpdatePayment applies a partial update by column name.
	// updated_at is always refreshed.
	UpdatePayment(ctx context.Context, paymentID string, fields map[string]interface{}) error
	// TransitionPayment moves a payment from one status to another with
	// single-row compare-and-swap semantics.
	TransitionPayment(ctx context.Context, paymentID, fromStatus, toStatus string) error
	ListPayments(ctx context.Context, userID string, limit, offset int) ([]*Payment, error)

	CreateService(ctx context.Context, service *Service) error
	GetService(ctx context.Context, serviceID string) (*Service, error)
	ListServices(ctx context.Context, category string, limit, offset int) ([]*Service, error)
}
