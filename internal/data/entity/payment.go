package entity

// PaymentOutcome is the status carried by a transaction completed event from
// the payment subsystem.
type PaymentOutcome string

const (
	PaymentOutcomePending PaymentOutcome = "PENDING"
	PaymentOutcomeSuccess PaymentOutcome = "SUCCESS"
	PaymentOutcomeCancel  PaymentOutcome = "CANCEL"
)
