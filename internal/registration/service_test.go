package registration

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"ms-invoicing/internal/alert"
	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"
	"ms-invoicing/internal/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLedgerEvent(ctx context.Context, evt models.LedgerEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}

type fixture struct {
	st      *store.Store
	svc     *Service
	pub     *MockPublisher
	student *models.Student
	event   *models.Event
	running *models.Segment
	jump    *models.Segment
}

func newFixture(t *testing.T, deny ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	// seed with full access, then apply the rules under test
	seed := storetest.New(t)
	f := &fixture{pub: new(MockPublisher)}

	f.student = &models.Student{Name: "A", Class: "5", Section: "B", RollNo: "12"}
	_, err := seed.Students.Insert(ctx, f.student)
	require.NoError(t, err)
	f.event = &models.Event{Name: "Sports Day", Date: "2025-03-14", IsActive: true}
	_, err = seed.Events.Insert(ctx, f.event)
	require.NoError(t, err)
	f.running = &models.Segment{EventID: f.event.ID, Name: "Running", Fee: 1000}
	_, err = seed.Segments.Insert(ctx, f.running)
	require.NoError(t, err)
	f.jump = &models.Segment{EventID: f.event.ID, Name: "Long Jump", Fee: 550}
	_, err = seed.Segments.Insert(ctx, f.jump)
	require.NoError(t, err)

	rules, err := store.ParseRules(deny)
	require.NoError(t, err)
	f.st = store.New(seed.DB, rules)

	f.svc = NewService(f.st, f.pub, nil, logger.Discard(), "INV-")
	return f
}

func TestSubmitSportsDayRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pub.On("PublishLedgerEvent", mock.MatchedBy(func(evt models.LedgerEvent) bool {
		return evt.Type == models.LedgerRegistrationCreated && evt.Amount == 1000
	})).Return(nil).Once()

	receipt, err := f.svc.Submit(ctx, SubmitRequest{
		StudentID:  f.student.ID,
		EventID:    f.event.ID,
		SegmentIDs: []string{f.running.ID},
	})
	require.NoError(t, err)

	reg := receipt.Registration
	assert.Equal(t, "10.00", reg.TotalAmount.String())
	assert.Equal(t, models.StatusPending, reg.PaymentStatus)
	assert.Regexp(t, regexp.MustCompile(`^INV-\d{6}\d{1,2}$`), reg.InvoiceNo)
	assert.Equal(t, "Registration successful! Invoice #"+reg.InvoiceNo+" generated.", receipt.Message())

	lines, err := f.st.RegistrationSegments.List(ctx, store.Where("registration_id", reg.ID))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Running", lines[0].SegmentName)
	assert.Equal(t, models.Amount(1000), lines[0].Fee)
	assert.Equal(t, f.running.ID, lines[0].SegmentID)

	f.pub.AssertExpectations(t)
}

func TestSubmitSnapshotsFees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pub.On("PublishLedgerEvent", mock.Anything).Return(nil)

	receipt, err := f.svc.Submit(ctx, SubmitRequest{
		StudentID:  f.student.ID,
		EventID:    f.event.ID,
		SegmentIDs: []string{f.running.ID, f.jump.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "15.50", receipt.Registration.TotalAmount.String())

	// later fee changes do not touch the stored total or lines
	require.NoError(t, f.st.Segments.Update(ctx, f.running.ID, store.Fields{"fee": int64(9900)}))

	stored, err := f.st.Registrations.Get(ctx, receipt.Registration.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Amount(1550), stored.TotalAmount)

	lines, err := f.st.RegistrationSegments.List(ctx, store.Where("registration_id", stored.ID).OrderBy("fee", true))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, models.Amount(1000), lines[0].Fee)
}

func TestSubmitRequiresStudentAndEvent(t *testing.T) {
	f := newFixture(t)

	for _, req := range []SubmitRequest{
		{EventID: f.event.ID, SegmentIDs: []string{f.running.ID}},
		{StudentID: f.student.ID},
	} {
		_, err := f.svc.Submit(context.Background(), req)
		var ue *alert.UserError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, SelectionRequiredMessage, ue.Message)
	}

	n, err := f.st.Registrations.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestZeroSegmentsNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitRequest{StudentID: f.student.ID, EventID: f.event.ID})
	var ce *alert.ConfirmationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ZeroAmountPrompt, ce.Prompt)

	n, err := f.st.Registrations.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "declined confirmation must not write")

	f.pub.On("PublishLedgerEvent", mock.Anything).Return(nil)
	receipt, err := f.svc.Submit(ctx, SubmitRequest{StudentID: f.student.ID, EventID: f.event.ID, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, "0.00", receipt.Registration.TotalAmount.String())
	assert.Equal(t, models.StatusPending, receipt.Registration.PaymentStatus)
	assert.Empty(t, receipt.Lines)
}

func TestSubmitRejectsForeignSegment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		StudentID:  f.student.ID,
		EventID:    f.event.ID,
		SegmentIDs: []string{"not-a-segment"},
	})
	var ue *alert.UserError
	assert.True(t, errors.As(err, &ue))
}

func TestPartialFailureIsNotRolledBack(t *testing.T) {
	f := newFixture(t, "registration_segments:write")
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitRequest{
		StudentID:  f.student.ID,
		EventID:    f.event.ID,
		SegmentIDs: []string{f.running.ID},
	})
	require.ErrorIs(t, err, store.ErrPermissionDenied)

	regs, err := f.st.Registrations.List(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, regs, 1, "registration stays after line failure")
	assert.Equal(t, models.Amount(1000), regs[0].TotalAmount)

	f.pub.AssertNotCalled(t, "PublishLedgerEvent", mock.Anything)
}

func TestLineFailureStillInvalidatesRevenue(t *testing.T) {
	f := newFixture(t, "registration_segments:write")
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	f.svc.Cache = cache.NewStatsCache(client, time.Minute)
	require.NoError(t, f.svc.Cache.Set(ctx, cache.KeyTotalRevenue, 0))

	_, err := f.svc.Submit(ctx, SubmitRequest{
		StudentID:  f.student.ID,
		EventID:    f.event.ID,
		SegmentIDs: []string{f.running.ID},
	})
	require.ErrorIs(t, err, store.ErrPermissionDenied)

	_, ok, err := f.svc.Cache.Get(ctx, cache.KeyTotalRevenue)
	require.NoError(t, err)
	assert.False(t, ok, "stale revenue must be dropped once the registration row exists")
}

func TestSubmitRejectsTotalPastMaxAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hall := &models.Segment{EventID: f.event.ID, Name: "Hall", Fee: models.MaxAmount}
	_, err := f.st.Segments.Insert(ctx, hall)
	require.NoError(t, err)
	band := &models.Segment{EventID: f.event.ID, Name: "Band", Fee: models.MaxAmount}
	_, err = f.st.Segments.Insert(ctx, band)
	require.NoError(t, err)

	req := SubmitRequest{StudentID: f.student.ID, EventID: f.event.ID, SegmentIDs: []string{hall.ID, band.ID}}
	_, err = f.svc.Submit(ctx, req)
	var ue *alert.UserError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, TotalTooLargeMessage, ue.Message)

	_, err = f.svc.Quote(ctx, f.event.ID, req.SegmentIDs)
	assert.True(t, errors.As(err, &ue))

	n, err := f.st.Registrations.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.pub.AssertNotCalled(t, "PublishLedgerEvent", mock.Anything)
}

func TestPublishFailureDoesNotFailSubmit(t *testing.T) {
	f := newFixture(t)
	f.pub.On("PublishLedgerEvent", mock.Anything).Return(errors.New("broker down"))

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		StudentID:  f.student.ID,
		EventID:    f.event.ID,
		SegmentIDs: []string{f.jump.ID},
	})
	assert.NoError(t, err)
}

func TestInvoiceNumberUsesInjectedGenerator(t *testing.T) {
	f := newFixture(t)
	f.svc.InvoiceNumber = func() string { return "INV-00000142" }
	f.svc.Now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	f.pub.On("PublishLedgerEvent", mock.MatchedBy(func(evt models.LedgerEvent) bool {
		return evt.InvoiceNo == "INV-00000142" && evt.OccurredAt.Year() == 2025
	})).Return(nil)

	receipt, err := f.svc.Submit(context.Background(), SubmitRequest{StudentID: f.student.ID, EventID: f.event.ID, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, "INV-00000142", receipt.Registration.InvoiceNo)
	f.pub.AssertExpectations(t)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Quote(context.Background(), f.event.ID, []string{f.running.ID, f.jump.ID})
	require.NoError(t, err)
	assert.Equal(t, "event_selected", q.State)
	assert.Len(t, q.Segments, 2)
	assert.ElementsMatch(t, []string{f.running.ID, f.jump.ID}, q.Checked)
	assert.Equal(t, "15.50", q.Total.String())

	idle, err := f.svc.Quote(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "idle", idle.State)
	assert.Equal(t, models.Amount(0), idle.Total)
}

func TestListStudentOptions(t *testing.T) {
	f := newFixture(t)
	_, err := f.st.Students.Insert(context.Background(), &models.Student{Name: "Aaron", Class: "6", Section: "A"})
	require.NoError(t, err)

	d, err := f.svc.ListStudentOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StudentSelect, d.ElementID)
	assert.Equal(t, "-- Choose Student --", d.Placeholder().Label)
	require.Len(t, d.Choices(), 2)
	assert.Equal(t, "A (5-B)", d.Choices()[0].Label)
	assert.Equal(t, "Aaron (6-A)", d.Choices()[1].Label)
}
