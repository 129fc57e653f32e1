package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"
	"ms-invoicing/internal/utils"

	"golang.org/x/sync/errgroup"
)

const (
	StudentSelect = "reg-student-select"

	SelectionRequiredMessage = "Please select student and event."
	ZeroAmountPrompt         = "No segments selected. Continue with $0 amount?"
	TotalTooLargeMessage     = "Selected segment fees exceed the largest supported invoice total."
)

type LedgerPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt models.LedgerEvent) error
}

type SubmitRequest struct {
	StudentID  string   `json:"studentId"`
	EventID    string   `json:"eventId"`
	SegmentIDs []string `json:"segmentIds"`
	// Confirmed must be set to submit with no segments checked.
	Confirmed bool `json:"confirm"`
}

type Receipt struct {
	Registration models.Registration          `json:"registration"`
	Lines        []models.RegistrationSegment `json:"lines"`
}

func (r *Receipt) Message() string {
	return fmt.Sprintf("Registration successful! Invoice #%s generated.", r.Registration.InvoiceNo)
}

type Quote struct {
	EventID  string           `json:"eventId"`
	State    string           `json:"state"`
	Segments []models.Segment `json:"segments"`
	Checked  []string         `json:"checked"`
	Total    models.Amount    `json:"total"`
}

type Service struct {
	Students      store.Collection[models.Student]
	Segments      store.Collection[models.Segment]
	Registrations store.Collection[models.Registration]
	Lines         store.Collection[models.RegistrationSegment]
	Publisher     LedgerPublisher
	Cache         *cache.StatsCache
	Logger        *logger.Logger

	// InvoiceNumber is replaceable in tests.
	InvoiceNumber func() string
	Now           func() time.Time
}

func NewService(st *store.Store, publisher LedgerPublisher, statsCache *cache.StatsCache, log *logger.Logger, invoicePrefix string) *Service {
	return &Service{
		Students:      st.Students,
		Segments:      st.Segments,
		Registrations: st.Registrations,
		Lines:         st.RegistrationSegments,
		Publisher:     publisher,
		Cache:         statsCache,
		Logger:        log,
		InvoiceNumber: func() string { return utils.GenerateInvoiceNumber(invoicePrefix) },
		Now:           time.Now,
	}
}

// PrepareForm loads the event's segments from the store and applies the
// given selection.
func (s *Service) PrepareForm(ctx context.Context, studentID, eventID string, segmentIDs []string) (*Form, error) {
	form := NewForm()
	form.SelectStudent(studentID)
	if eventID == "" {
		return form, nil
	}

	segments, err := s.Segments.List(ctx, store.Where("event_id", eventID))
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	form.SelectEvent(eventID, segments)

	for _, id := range segmentIDs {
		if err := form.Toggle(id, true); err != nil {
			if errors.Is(err, ErrUnknownSegment) {
				return nil, alert.UserErrorf("Segment %s is not offered for this event.", id)
			}
			return nil, err
		}
	}
	return form, nil
}

// Quote prices a selection without writing anything.
func (s *Service) Quote(ctx context.Context, eventID string, segmentIDs []string) (*Quote, error) {
	form, err := s.PrepareForm(ctx, "", eventID, segmentIDs)
	if err != nil {
		return nil, err
	}

	total, err := form.Total()
	if err != nil {
		return nil, alert.UserErrorf(TotalTooLargeMessage)
	}

	q := &Quote{
		EventID:  form.EventID,
		State:    form.State().String(),
		Segments: form.Segments(),
		Checked:  []string{},
		Total:    total,
	}
	for _, seg := range form.Checked() {
		q.Checked = append(q.Checked, seg.ID)
	}
	return q, nil
}

// Submit writes the registration and then its segment lines concurrently.
// A failed line write is reported but earlier writes are not rolled back.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Receipt, error) {
	if req.StudentID == "" || req.EventID == "" {
		return nil, alert.UserErrorf(SelectionRequiredMessage)
	}

	form, err := s.PrepareForm(ctx, req.StudentID, req.EventID, req.SegmentIDs)
	if err != nil {
		return nil, err
	}

	checked := form.Checked()
	if len(checked) == 0 && !req.Confirmed {
		return nil, alert.NeedsConfirmation(ZeroAmountPrompt)
	}
	total, err := form.Total()
	if err != nil {
		s.Logger.Warn("REGISTRATION", fmt.Sprintf("Rejected selection for event %s: %v", req.EventID, err))
		return nil, alert.UserErrorf(TotalTooLargeMessage)
	}

	reg := &models.Registration{
		StudentID:     form.StudentID,
		EventID:       form.EventID,
		TotalAmount:   total,
		PaymentStatus: models.StatusPending,
		InvoiceNo:     s.InvoiceNumber(),
	}
	if _, err := s.Registrations.Insert(ctx, reg); err != nil {
		s.Logger.Error("REGISTRATION", fmt.Sprintf("Failed to save registration for %s: %v", req.StudentID, err))
		return nil, fmt.Errorf("save registration: %w", err)
	}

	lines := make([]models.RegistrationSegment, len(checked))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range checked {
		g.Go(func() error {
			line := models.RegistrationSegment{
				RegistrationID: reg.ID,
				SegmentID:      seg.ID,
				SegmentName:    seg.Name,
				Fee:            seg.Fee,
			}
			if _, err := s.Lines.Insert(gctx, &line); err != nil {
				return fmt.Errorf("save segment %s: %w", seg.ID, err)
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Logger.Error("REGISTRATION", fmt.Sprintf("Registration %s (%s) saved but segment lines are incomplete: %v", reg.ID, reg.InvoiceNo, err))
		s.invalidateRevenue(ctx)
		return nil, err
	}

	form.MarkSubmitted()
	s.Logger.LogRegistration("SUBMIT", reg.ID, fmt.Sprintf("%s total %s, %d segments", reg.InvoiceNo, reg.TotalAmount, len(lines)))

	s.invalidateRevenue(ctx)
	s.publish(ctx, models.LedgerEvent{
		Type:           models.LedgerRegistrationCreated,
		RegistrationID: reg.ID,
		InvoiceNo:      reg.InvoiceNo,
		Status:         reg.PaymentStatus,
		Amount:         reg.TotalAmount,
		OccurredAt:     s.Now().UTC(),
	})

	return &Receipt{Registration: *reg, Lines: lines}, nil
}

// ListStudentOptions rebuilds the student select, ordered by name.
func (s *Service) ListStudentOptions(ctx context.Context) (models.Dropdown, error) {
	list, err := s.Students.List(ctx, store.OrderBy("name", false))
	if err != nil {
		s.Logger.Error("REGISTRATION", fmt.Sprintf("Failed to load student options: %v", err))
		return models.Dropdown{}, fmt.Errorf("list students: %w", err)
	}

	opts := make([]models.Option, len(list))
	for i, st := range list {
		opts[i] = models.Option{Value: st.ID, Label: st.OptionLabel()}
	}
	return models.NewDropdown(StudentSelect, "-- Choose Student --").Replace(opts), nil
}

// publish failures never fail the write that triggered them.
// invalidateRevenue drops the cached dashboard revenue once a registration row exists.
func (s *Service) invalidateRevenue(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx, cache.RevenueKeys...); err != nil {
		s.Logger.Warn("REGISTRATION", err.Error())
	}
}

func (s *Service) publish(ctx context.Context, evt models.LedgerEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishLedgerEvent(ctx, evt); err != nil {
		s.Logger.Warn("REGISTRATION", fmt.Sprintf("Ledger event for %s not published: %v", evt.InvoiceNo, err))
	}
}
