package models

import "github.com/uptrace/bun"

// Segment is a fee-bearing sub-activity of an event.
type Segment struct {
	bun.BaseModel `bun:"table:segments,alias:sg"`

	ID      string `bun:"id,pk" json:"id"`
	EventID string `bun:"event_id,notnull" json:"eventId"`
	Name    string `bun:"segment_name,notnull" json:"segmentName"`
	Fee     Amount `bun:"fee,notnull" json:"fee"`
}

func (s *Segment) DocumentID() string      { return s.ID }
func (s *Segment) SetDocumentID(id string) { s.ID = id }
