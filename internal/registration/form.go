package registration

import (
	"errors"
	"fmt"

	"ms-invoicing/internal/models"
)

type State int

const (
	StateIdle State = iota
	StateEventSelected
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEventSelected:
		return "event_selected"
	case StateSubmitted:
		return "submitted"
	default:
		return "idle"
	}
}

var (
	ErrNoEvent        = errors.New("no event selected")
	ErrUnknownSegment = errors.New("segment is not offered for the selected event")
)

// Form is the state of one registration form. It is not safe for concurrent use.
type Form struct {
	StudentID string
	EventID   string

	segments []models.Segment
	checked  map[string]bool
	state    State
}

func NewForm() *Form {
	return &Form{checked: make(map[string]bool)}
}

func (f *Form) State() State { return f.state }

func (f *Form) SelectStudent(studentID string) {
	f.StudentID = studentID
}

// SelectEvent switches the form to eventID with its offered segments and
// clears every checkbox. An empty id returns the form to Idle.
func (f *Form) SelectEvent(eventID string, segments []models.Segment) {
	f.checked = make(map[string]bool)
	if eventID == "" {
		f.EventID = ""
		f.segments = nil
		f.state = StateIdle
		return
	}
	f.EventID = eventID
	f.segments = append([]models.Segment(nil), segments...)
	f.state = StateEventSelected
}

// Toggle checks or unchecks one segment of the selected event.
func (f *Form) Toggle(segmentID string, on bool) error {
	if f.state != StateEventSelected {
		return ErrNoEvent
	}
	if !f.offers(segmentID) {
		return fmt.Errorf("%s: %w", segmentID, ErrUnknownSegment)
	}
	if on {
		f.checked[segmentID] = true
	} else {
		delete(f.checked, segmentID)
	}
	return nil
}

func (f *Form) IsChecked(segmentID string) bool {
	return f.checked[segmentID]
}

// Segments lists what the selected event offers, in store order.
func (f *Form) Segments() []models.Segment {
	return f.segments
}

// Checked lists the checked segments in offer order.
func (f *Form) Checked() []models.Segment {
	var out []models.Segment
	for _, s := range f.segments {
		if f.checked[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// Total is the sum of the checked segments' fees. It fails rather than
// wrap when the fees add up past models.MaxAmount.
func (f *Form) Total() (models.Amount, error) {
	checked := f.Checked()
	fees := make([]models.Amount, len(checked))
	for i, s := range checked {
		fees[i] = s.Fee
	}
	return models.Sum(fees...)
}

func (f *Form) MarkSubmitted() {
	f.state = StateSubmitted
}

// Reset returns the form to Idle with nothing selected.
func (f *Form) Reset() {
	f.StudentID = ""
	f.SelectEvent("", nil)
}

func (f *Form) offers(segmentID string) bool {
	for _, s := range f.segments {
		if s.ID == segmentID {
			return true
		}
	}
	return false
}
