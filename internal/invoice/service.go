package invoice

import (
	"context"
	"fmt"
	"time"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/config"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"
	"ms-invoicing/internal/utils"

	"golang.org/x/sync/errgroup"
)

const (
	UnknownStudent = "Unknown Student"
	UnknownEvent   = "Unknown Event"

	MarkPaidPrompt = "Mark this invoice as PAID?"
)

type LedgerPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt models.LedgerEvent) error
}

type Service struct {
	Students      store.Collection[models.Student]
	Events        store.Collection[models.Event]
	Registrations store.Collection[models.Registration]
	Lines         store.Collection[models.RegistrationSegment]
	Publisher     LedgerPublisher
	Cache         *cache.StatsCache
	Logger        *logger.Logger
	QR            *QRGenerator

	// FanOut bounds concurrent student/event lookups in ListInvoices.
	FanOut int
	// Location is used to render invoice dates; nil keeps UTC.
	Location *time.Location
	Now      func() time.Time
}

func NewService(st *store.Store, publisher LedgerPublisher, statsCache *cache.StatsCache, log *logger.Logger, cfg config.InvoiceConfig) *Service {
	fanOut := cfg.FanOut
	if fanOut <= 0 {
		fanOut = 8
	}
	return &Service{
		Students:      st.Students,
		Events:        st.Events,
		Registrations: st.Registrations,
		Lines:         st.RegistrationSegments,
		Publisher:     publisher,
		Cache:         statsCache,
		Logger:        log,
		QR:            NewQRGenerator(cfg.QRSecret, cfg.QRSize),
		FanOut:        fanOut,
		Location:      time.Local,
		Now:           time.Now,
	}
}

// ListInvoices joins every registration, newest first, with its student and
// event names. Rows keep registration order however the lookups interleave.
func (s *Service) ListInvoices(ctx context.Context) (*models.Ledger, error) {
	regs, err := s.Registrations.List(ctx, store.OrderBy("created_at", true))
	if err != nil {
		s.Logger.Error("INVOICE", fmt.Sprintf("Failed to list registrations: %v", err))
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	ledger := &models.Ledger{Rows: make([]models.InvoiceRow, len(regs))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.FanOut)
	for i, reg := range regs {
		ledger.TotalRevenue += reg.TotalAmount

		g.Go(func() error {
			student, event, err := store.Resolve(gctx,
				store.Ref[models.Student]{From: s.Students, ID: reg.StudentID, Placeholder: models.Student{Name: UnknownStudent}},
				store.Ref[models.Event]{From: s.Events, ID: reg.EventID, Placeholder: models.Event{Name: UnknownEvent}},
			)
			if err != nil {
				return fmt.Errorf("resolve invoice %s: %w", reg.InvoiceNo, err)
			}
			ledger.Rows[i] = models.InvoiceRow{
				RegistrationID: reg.ID,
				InvoiceNo:      reg.InvoiceNo,
				StudentName:    student.Name,
				EventName:      event.Name,
				Amount:         reg.TotalAmount,
				Status:         reg.PaymentStatus,
				CanMarkPaid:    reg.IsPending(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Logger.Error("INVOICE", err.Error())
		return nil, err
	}
	return ledger, nil
}

// MarkPaid flips a registration to Paid. Marking a paid invoice again is a no-op in effect.
func (s *Service) MarkPaid(ctx context.Context, registrationID string, confirmed bool) (*models.Registration, error) {
	if !confirmed {
		return nil, alert.NeedsConfirmation(MarkPaidPrompt)
	}

	err := s.Registrations.Update(ctx, registrationID, store.Fields{"payment_status": string(models.StatusPaid)})
	if err != nil {
		s.Logger.Error("INVOICE", fmt.Sprintf("Failed to mark %s paid: %v", registrationID, err))
		return nil, fmt.Errorf("mark paid: %w", err)
	}

	reg, err := s.Registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("reload registration: %w", err)
	}

	s.Logger.LogInvoice("MARK_PAID", reg.InvoiceNo, reg.TotalAmount.Currency())
	if err := s.Cache.Invalidate(ctx, cache.RevenueKeys...); err != nil {
		s.Logger.Warn("INVOICE", err.Error())
	}
	if s.Publisher != nil {
		evt := models.LedgerEvent{
			Type:           models.LedgerRegistrationPaid,
			RegistrationID: reg.ID,
			InvoiceNo:      reg.InvoiceNo,
			Status:         reg.PaymentStatus,
			Amount:         reg.TotalAmount,
			OccurredAt:     s.Now().UTC(),
		}
		if err := s.Publisher.PublishLedgerEvent(ctx, evt); err != nil {
			s.Logger.Warn("INVOICE", fmt.Sprintf("Ledger event for %s not published: %v", reg.InvoiceNo, err))
		}
	}
	return reg, nil
}

// OpenInvoice assembles the printable view of one registration.
func (s *Service) OpenInvoice(ctx context.Context, registrationID string) (*models.InvoiceDetail, error) {
	reg, err := s.Registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("open invoice: %w", err)
	}

	student, event, err := store.Resolve(ctx,
		store.Ref[models.Student]{From: s.Students, ID: reg.StudentID},
		store.Ref[models.Event]{From: s.Events, ID: reg.EventID},
	)
	if err != nil {
		return nil, fmt.Errorf("open invoice %s: %w", reg.InvoiceNo, err)
	}

	lines, err := s.Lines.List(ctx, store.Where("registration_id", reg.ID))
	if err != nil {
		return nil, fmt.Errorf("load invoice lines: %w", err)
	}

	detail := &models.InvoiceDetail{
		RegistrationID: reg.ID,
		InvoiceNo:      reg.InvoiceNo,
		Date:           utils.FormatLocaleDate(reg.CreatedAt, s.Location),
		CreatedAt:      reg.CreatedAt,
		Status:         reg.PaymentStatus,
		StudentName:    models.OrDefault(student.Name, "N/A"),
		StudentDetails: student.DetailLine(),
		EventName:      models.OrDefault(event.Name, "N/A"),
		EventDate:      models.OrDash(event.Date),
		Items:          make([]models.LineItem, len(lines)),
		Total:          reg.TotalAmount,
	}
	for i, line := range lines {
		detail.Items[i] = models.LineItem{Name: line.SegmentName, Fee: line.Fee}
	}
	return detail, nil
}

// QRCode renders the PNG QR code printed on the invoice.
func (s *Service) QRCode(ctx context.Context, registrationID string) ([]byte, error) {
	reg, err := s.Registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("invoice qr: %w", err)
	}
	return s.QR.GeneratePNG(*reg)
}
