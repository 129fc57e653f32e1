package models

import "time"

// InvoiceDateLayout matches the en-US locale date, e.g. 3/14/2025.
const InvoiceDateLayout = "1/2/2006"

// InvoiceRow is one line of the invoice ledger.
type InvoiceRow struct {
	RegistrationID string        `json:"registrationId"`
	InvoiceNo      string        `json:"invoiceNo"`
	StudentName    string        `json:"studentName"`
	EventName      string        `json:"eventName"`
	Amount         Amount        `json:"amount"`
	Status         PaymentStatus `json:"status"`
	CanMarkPaid    bool          `json:"canMarkPaid"`
}

type Ledger struct {
	Rows         []InvoiceRow `json:"rows"`
	TotalRevenue Amount       `json:"totalRevenue"`
}

type LineItem struct {
	Name string `json:"name"`
	Fee  Amount `json:"fee"`
}

// InvoiceDetail is the printable view of a single registration.
type InvoiceDetail struct {
	RegistrationID string        `json:"registrationId"`
	InvoiceNo      string        `json:"invoiceNo"`
	Date           string        `json:"date"`
	CreatedAt      time.Time     `json:"createdAt"`
	Status         PaymentStatus `json:"status"`
	StudentName    string        `json:"studentName"`
	StudentDetails string        `json:"studentDetails"`
	EventName      string        `json:"eventName"`
	EventDate      string        `json:"eventDate"`
	Items          []LineItem    `json:"items"`
	Total          Amount        `json:"total"`
}
