package notificator

import (
	"fmt"
	"runtime/debug"

	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/pkg/logger"
)

// Notificator fans payment lifecycle events out to the configured channels.
// Delivery is best effort: a failing or panicking channel never disturbs
// payment settlement.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif}
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorw("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// NotifyPayment implements models.NotificationService.
func (n *Notificator) NotifyPayment(notification *models.PaymentNotification) {
	if notification == nil {
		return
	}

	message := formatPayment(notification)

	if n.TelegramNotificator != nil {
		n.safeCall(func() { n.TelegramNotificator.SendNotification(message) }, "telegramNotification")
	}
}

func formatPayment(n *models.PaymentNotification) string {
	service := n.ServiceName
	if service == "" {
		service = n.ServiceURL
	}

	switch n.Status {
	case models.StatusConfirmed:
		return fmt.Sprintf("Payment confirmed: %s %s to %s (payment %s, user %s)",
			n.Amount, n.Token, service, n.PaymentID, n.UserID)
	case models.StatusFailed:
		return fmt.Sprintf("Payment FAILED: %s %s to %s (payment %s, user %s): %s",
			n.Amount, n.Token, service, n.PaymentID, n.UserID, n.Error)
	default:
		return fmt.Sprintf("Payment %s: %s %s to %s (payment %s)",
			n.Status, n.Amount, n.Token, service, n.PaymentID)
	}
}
