package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "Pending"
	StatusPaid    PaymentStatus = "Paid"
)

// BadgeClass is the CSS class for the status badge.
func (s PaymentStatus) BadgeClass() string {
	return strings.ToLower(string(s))
}

type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:rg"`

	ID            string        `bun:"id,pk" json:"id"`
	StudentID     string        `bun:"student_id,notnull" json:"studentId"`
	EventID       string        `bun:"event_id,notnull" json:"eventId"`
	TotalAmount   Amount        `bun:"total_amount,notnull" json:"totalAmount"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"paymentStatus"`
	InvoiceNo     string        `bun:"invoice_no,notnull" json:"invoiceNo"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"createdAt"`
}

func (r *Registration) DocumentID() string       { return r.ID }
func (r *Registration) SetDocumentID(id string)  { r.ID = id }
func (r *Registration) SetCreatedAt(t time.Time) { r.CreatedAt = t }

func (r Registration) IsPending() bool {
	return r.PaymentStatus == StatusPending
}

// RegistrationSegment snapshots a segment as it was when the registration was submitted.
type RegistrationSegment struct {
	bun.BaseModel `bun:"table:registration_segments,alias:rs"`

	ID             string `bun:"id,pk" json:"id"`
	RegistrationID string `bun:"registration_id,notnull" json:"registrationId"`
	SegmentID      string `bun:"segment_id,notnull" json:"segmentId"`
	SegmentName    string `bun:"segment_name,notnull" json:"segmentName"`
	Fee            Amount `bun:"fee,notnull" json:"fee"`
}

func (r *RegistrationSegment) DocumentID() string      { return r.ID }
func (r *RegistrationSegment) SetDocumentID(id string) { r.ID = id }
