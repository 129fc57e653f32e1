package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Student struct {
	bun.BaseModel `bun:"table:students,alias:st"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Class     string    `bun:"class,notnull" json:"class"`
	Section   string    `bun:"section,notnull" json:"section"`
	RollNo    string    `bun:"roll_no,notnull" json:"rollNo"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

func (s *Student) DocumentID() string       { return s.ID }
func (s *Student) SetDocumentID(id string)  { s.ID = id }
func (s *Student) SetCreatedAt(t time.Time) { s.CreatedAt = t }

// OptionLabel renders "name (class-section)".
func (s Student) OptionLabel() string {
	return fmt.Sprintf("%s (%s-%s)", s.Name, s.Class, s.Section)
}

// DetailLine renders "Class: c, Sec: s, Roll: r" with "-" for blanks.
func (s Student) DetailLine() string {
	return fmt.Sprintf("Class: %s, Sec: %s, Roll: %s", OrDash(s.Class), OrDash(s.Section), OrDash(s.RollNo))
}

func OrDash(s string) string {
	return OrDefault(s, "-")
}

func OrDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
