package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aabc-labs/solvo/internal/models"
)

func newPayment(userID string) *models.Payment {
	return &models.Payment{
		UserID:     userID,
		Direction:  models.DirectionOutgoing,
		ServiceURL: "https://api.example.com/data",
		Amount:     decimal.RequireFromString("0.5"),
		Token:      "USDC",
		Status:     models.StatusPending,
	}
}

func TestPaymentLifecycle(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	payment := newPayment("user-1")
	require.NoError(t, db.CreatePayment(ctx, payment))
	require.NotEmpty(t, payment.PaymentID)

	loaded, err := db.GetPayment(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, loaded.Status)

	require.NoError(t, db.UpdatePayment(ctx, payment.PaymentID, map[string]interface{}{
		"status":       models.StatusConfirmed,
		"tx_signature": "sig-abc",
	}))

	loaded, err = db.GetPayment(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, loaded.Status)
	assert.Equal(t, "sig-abc", loaded.TxSignature)
	assert.True(t, loaded.UpdatedAt.After(loaded.CreatedAt) || loaded.UpdatedAt.Equal(loaded.CreatedAt))

	_, err = db.GetPayment(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, db.UpdatePayment(ctx, "missing", nil), models.ErrNotFound)
}

func TestTransitionPaymentCompareAndSwap(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	payment := newPayment("user-1")
	payment.Status = models.StatusPendingSignature
	require.NoError(t, db.CreatePayment(ctx, payment))

	require.NoError(t, db.TransitionPayment(ctx, payment.PaymentID, models.StatusPendingSignature, models.StatusProcessing))

	// The same claim cannot be won twice.
	err := db.TransitionPayment(ctx, payment.PaymentID, models.StatusPendingSignature, models.StatusProcessing)
	assert.ErrorIs(t, err, models.ErrStatusConflict)

	assert.ErrorIs(t, db.TransitionPayment(ctx, "missing", models.StatusPending, models.StatusProcessing), models.ErrNotFound)
}

func TestListPaymentsPagination(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, db.CreatePayment(ctx, newPayment("user-1")))
	}
	require.NoError(t, db.CreatePayment(ctx, newPayment("user-2")))

	// limit <= 0 means no cap; every store must honor this.
	all, err := db.ListPayments(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	all, err = db.ListPayments(ctx, "user-1", -1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := db.ListPayments(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	tail, err := db.ListPayments(ctx, "user-1", 10, 4)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	none, err := db.ListPayments(ctx, "user-1", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServiceListing(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	active := &models.Service{
		ProviderID:      "user-1",
		ServiceName:     "Weather API",
		ServiceURL:      "https://weather.example.com",
		Price:           decimal.RequireFromString("0.05"),
		PriceToken:      "USDC",
		PaymentAddress:  "Addr11111111111111111111111111111111111111",
		ServiceCategory: "data",
		TotalCalls:      10,
		IsActive:        true,
	}
	inactive := &models.Service{
		ProviderID:     "user-1",
		ServiceName:    "Old API",
		ServiceURL:     "https://old.example.com",
		Price:          decimal.RequireFromString("0.01"),
		PriceToken:     "USDC",
		PaymentAddress: "Addr11111111111111111111111111111111111111",
		IsActive:       false,
	}
	require.NoError(t, db.CreateService(ctx, active))
	require.NoError(t, db.CreateService(ctx, inactive))

	services, err := db.ListServices(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Weather API", services[0].ServiceName)

	byCategory, err := db.ListServices(ctx, "data", 10, 0)
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	miss, err := db.ListServices(ctx, "compute", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, miss)
}
