package queue

// Queue names. The wait queue has no consumers; messages sit there for the
// hold window and are dead-lettered into the expiry queue when the TTL fires.
const (
	ExpiryWaitQueue       = "booking.expiry.wait"
	ExpiryQueue           = "booking.expiry"
	PaymentCreatedQueue   = "payment.transaction.created"
	PaymentCompletedQueue = "payment.transaction.completed"
)

// attemptsHeader counts expiry processing attempts across redeliveries.
const attemptsHeader = "x-attempts"

type ExpiryCheckEvent struct {
	BookingID int64 `json:"booking_id"`
}

type PaymentCreatedEvent struct {
	BookingID int64 `json:"booking_id"`
}

type PaymentCompletedEvent struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}
