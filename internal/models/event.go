package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"event_name,notnull" json:"eventName"`
	Date        string    `bun:"event_date,notnull" json:"eventDate"`
	Description string    `bun:"description,notnull" json:"description"`
	IsActive    bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}

func (e *Event) DocumentID() string       { return e.ID }
func (e *Event) SetDocumentID(id string)  { e.ID = id }
func (e *Event) SetCreatedAt(t time.Time) { e.CreatedAt = t }

// OptionLabel renders "name (date)", suffixed with " [Inactive]" for inactive events.
func (e Event) OptionLabel() string {
	label := fmt.Sprintf("%s (%s)", e.Name, e.Date)
	if !e.IsActive {
		label += " [Inactive]"
	}
	return label
}
