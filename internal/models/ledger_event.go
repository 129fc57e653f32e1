package models

import "time"

const (
	LedgerRegistrationCreated = "registration.created"
	LedgerRegistrationPaid    = "registration.paid"
)

// LedgerEvent tells ledger viewers that an invoice changed.
type LedgerEvent struct {
	Type           string        `json:"type"`
	RegistrationID string        `json:"registrationId"`
	InvoiceNo      string        `json:"invoiceNo"`
	Status         PaymentStatus `json:"status"`
	Amount         Amount        `json:"amount"`
	OccurredAt     time.Time     `json:"occurredAt"`
}
