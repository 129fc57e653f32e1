package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"
)

// Element ids of the event selects refreshed by ListEventOptions.
const (
	SegmentEventSelect      = "segment-event-select"
	RegistrationEventSelect = "reg-event-select"
)

// ErrNoEventSelected is returned by AddSegment when no event is chosen.
// Callers treat it as a silent no-op.
var ErrNoEventSelected = errors.New("no event selected")

type NewEvent struct {
	Name        string `json:"eventName"`
	Date        string `json:"eventDate"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

type NewSegment struct {
	EventID string        `json:"eventId"`
	Name    string        `json:"segmentName"`
	Fee     models.Amount `json:"fee"`
}

type Service struct {
	Events   store.Collection[models.Event]
	Segments store.Collection[models.Segment]
	Cache    *cache.StatsCache
	Logger   *logger.Logger

	mu        sync.RWMutex
	selectors []models.Dropdown
}

func NewService(events store.Collection[models.Event], segments store.Collection[models.Segment], statsCache *cache.StatsCache, log *logger.Logger) *Service {
	s := &Service{Events: events, Segments: segments, Cache: statsCache, Logger: log}
	s.RegisterEventSelect(SegmentEventSelect, "-- Select Event --")
	s.RegisterEventSelect(RegistrationEventSelect, "-- Choose Event --")
	return s
}

// RegisterEventSelect adds a select element to the set rebuilt by ListEventOptions.
// Registering the same element id again replaces its placeholder.
func (s *Service) RegisterEventSelect(elementID, placeholder string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.selectors {
		if d.ElementID == elementID {
			s.selectors[i] = models.NewDropdown(elementID, placeholder)
			return
		}
	}
	s.selectors = append(s.selectors, models.NewDropdown(elementID, placeholder))
}

func (s *Service) AddEvent(ctx context.Context, in NewEvent) (*models.Event, error) {
	event := &models.Event{
		Name:        strings.TrimSpace(in.Name),
		Date:        strings.TrimSpace(in.Date),
		Description: strings.TrimSpace(in.Description),
		IsActive:    in.IsActive,
	}

	id, err := s.Events.Insert(ctx, event)
	if err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to create event %q: %v", event.Name, err))
		return nil, fmt.Errorf("add event: %w", err)
	}

	if err := s.Cache.Invalidate(ctx, cache.KeyActiveEvents); err != nil {
		s.Logger.Warn("CATALOG", err.Error())
	}
	s.Logger.LogCatalog("ADD_EVENT", id, event.OptionLabel())
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.Events.List(ctx, store.OrderBy("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListEventOptions rebuilds every registered event select from a single
// fetch. Each keeps its placeholder as the first option.
func (s *Service) ListEventOptions(ctx context.Context) ([]models.Dropdown, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to load event options: %v", err))
		return nil, err
	}

	opts := make([]models.Option, len(events))
	for i, e := range events {
		opts[i] = models.Option{Value: e.ID, Label: e.OptionLabel()}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dropdowns := make([]models.Dropdown, len(s.selectors))
	for i, d := range s.selectors {
		dropdowns[i] = d.Replace(opts)
	}
	return dropdowns, nil
}

func (s *Service) AddSegment(ctx context.Context, in NewSegment) (*models.Segment, error) {
	if strings.TrimSpace(in.EventID) == "" {
		return nil, ErrNoEventSelected
	}
	if err := in.Fee.Validate(); err != nil {
		return nil, err
	}

	segment := &models.Segment{
		EventID: in.EventID,
		Name:    strings.TrimSpace(in.Name),
		Fee:     in.Fee,
	}

	id, err := s.Segments.Insert(ctx, segment)
	if err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to add segment %q to %s: %v", segment.Name, in.EventID, err))
		return nil, fmt.Errorf("add segment: %w", err)
	}

	s.Logger.LogCatalog("ADD_SEGMENT", id, fmt.Sprintf("%s %s for event %s", segment.Name, segment.Fee, segment.EventID))
	return segment, nil
}

// ListSegmentsForEvent returns the event's segments in store order.
func (s *Service) ListSegmentsForEvent(ctx context.Context, eventID string) ([]models.Segment, error) {
	segments, err := s.Segments.List(ctx, store.Where("event_id", eventID))
	if err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to load segments for %s: %v", eventID, err))
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return segments, nil
}

// ActiveEventCount reports the number of active events. Failures are logged
// and reported through ok=false only.
func (s *Service) ActiveEventCount(ctx context.Context) (count int, ok bool) {
	n, err := s.Cache.GetOrLoad(ctx, cache.KeyActiveEvents, func(ctx context.Context) (int64, error) {
		n, err := s.Events.Count(ctx, store.Filter{Field: "is_active", Value: true})
		return int64(n), err
	})
	if err != nil {
		s.Logger.Error("CATALOG", fmt.Sprintf("Failed to count active events: %v", err))
		return 0, false
	}
	return int(n), true
}
