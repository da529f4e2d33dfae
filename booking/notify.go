package booking

import "log"

// =============================================================================
// COLLABORATORS - Provided by the surrounding application
// =============================================================================

// Notifier delivers the "new booking" alert to whoever reviews payments.
// Implementations are fire-and-forget: a delivery failure must never fail
// or roll back the booking that triggered it.
type Notifier interface {
	NotifyAdminOfNewBooking(b *Booking)
}

// Refunder triggers a refund for a manually-confirmed payment.
// Returns false when the refund could not be initiated; the caller logs
// and proceeds (the cancellation itself still stands).
type Refunder interface {
	RefundPayment(paymentRef string) bool
}

// LogNotifier is the default Notifier: it only logs. The real channels
// (email, WhatsApp, Telegram) live outside this core.
type LogNotifier struct{}

func (LogNotifier) NotifyAdminOfNewBooking(b *Booking) {
	log.Printf("[Notify] new booking %s on property %s (payment ref %q)", b.ID, b.PropertyID, b.PaymentRef)
}

// LogRefunder is the default Refunder: it logs and reports success.
type LogRefunder struct{}

func (LogRefunder) RefundPayment(paymentRef string) bool {
	log.Printf("[Refund] refund requested for payment ref %q", paymentRef)
	return true
}
