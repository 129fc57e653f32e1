package analytics

import (
	"context"
	"fmt"

	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
)

// StudentCounter and EventCounter are satisfied by the students and catalog services.
type StudentCounter interface {
	CountStudents(ctx context.Context) (int, error)
}

type EventCounter interface {
	ActiveEventCount(ctx context.Context) (int, bool)
}

// Dashboard holds the overview tiles. A *Known flag is false when its
// figure could not be loaded; the tile then renders as unavailable.
type Dashboard struct {
	TotalStudents     int           `json:"totalStudents"`
	StudentsKnown     bool          `json:"studentsKnown"`
	ActiveEvents      int           `json:"activeEvents"`
	ActiveEventsKnown bool          `json:"activeEventsKnown"`
	TotalRevenue      models.Amount `json:"totalRevenue"`
	PaidRevenue       models.Amount `json:"paidRevenue"`
	PendingRevenue    models.Amount `json:"pendingRevenue"`
	Invoices          int           `json:"invoices"`
	RevenueKnown      bool          `json:"revenueKnown"`
}

type Service struct {
	db       *DB
	Students StudentCounter
	Events   EventCounter
	Cache    *cache.StatsCache
	Logger   *logger.Logger
}

func NewService(db *DB, students StudentCounter, events EventCounter, statsCache *cache.StatsCache, log *logger.Logger) *Service {
	return &Service{db: db, Students: students, Events: events, Cache: statsCache, Logger: log}
}

// Dashboard never fails; each tile that cannot be loaded is logged and left unknown.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	var d Dashboard

	if n, err := s.Students.CountStudents(ctx); err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to count students: %v", err))
	} else {
		d.TotalStudents, d.StudentsKnown = n, true
	}

	d.ActiveEvents, d.ActiveEventsKnown = s.Events.ActiveEventCount(ctx)

	if err := s.loadRevenue(ctx, &d); err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to load revenue: %v", err))
	} else {
		d.RevenueKnown = true
	}
	return d
}

func (s *Service) loadRevenue(ctx context.Context, d *Dashboard) error {
	total, okTotal, errTotal := s.Cache.Get(ctx, cache.KeyTotalRevenue)
	paid, okPaid, errPaid := s.Cache.Get(ctx, cache.KeyPaidRevenue)
	count, okCount, errCount := s.Cache.Get(ctx, cache.KeyInvoiceCount)
	if errTotal == nil && errPaid == nil && errCount == nil && okTotal && okPaid && okCount {
		d.TotalRevenue = models.Amount(total)
		d.PaidRevenue = models.Amount(paid)
		d.PendingRevenue = d.TotalRevenue - d.PaidRevenue
		d.Invoices = int(count)
		return nil
	}

	totals, err := s.db.RevenueByStatus(ctx)
	if err != nil {
		return err
	}
	for _, t := range totals {
		d.TotalRevenue += t.Revenue
		d.Invoices += t.Invoices
		if t.Status == models.StatusPaid {
			d.PaidRevenue += t.Revenue
		}
	}
	d.PendingRevenue = d.TotalRevenue - d.PaidRevenue

	for key, v := range map[string]int64{
		cache.KeyTotalRevenue: int64(d.TotalRevenue),
		cache.KeyPaidRevenue:  int64(d.PaidRevenue),
		cache.KeyInvoiceCount: int64(d.Invoices),
	} {
		if err := s.Cache.Set(ctx, key, v); err != nil {
			s.Logger.Warn("ANALYTICS", fmt.Sprintf("Failed to cache %s: %v", key, err))
		}
	}
	return nil
}
