package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

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

type MockStudents struct {
	mock.Mock
}

func (m *MockStudents) CountStudents(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) ActiveEventCount(ctx context.Context) (int, bool) {
	args := m.Called()
	return args.Int(0), args.Bool(1)
}

func seedRegistrations(t *testing.T, st *store.Store) {
	t.Helper()
	for _, reg := range []*models.Registration{
		{StudentID: "s", EventID: "e", TotalAmount: 1000, PaymentStatus: models.StatusPaid, InvoiceNo: "INV-1"},
		{StudentID: "s", EventID: "e", TotalAmount: 550, PaymentStatus: models.StatusPending, InvoiceNo: "INV-2"},
		{StudentID: "s", EventID: "e", TotalAmount: 0, PaymentStatus: models.StatusPending, InvoiceNo: "INV-3"},
	} {
		_, err := st.Registrations.Insert(context.Background(), reg)
		require.NoError(t, err)
	}
}

func TestDashboard(t *testing.T) {
	st := storetest.New(t)
	seedRegistrations(t, st)

	students := new(MockStudents)
	students.On("CountStudents").Return(4, nil)
	events := new(MockEvents)
	events.On("ActiveEventCount").Return(2, true)

	svc := NewService(NewDB(st.DB, st.Rules), students, events, nil, logger.Discard())
	d := svc.Dashboard(context.Background())

	assert.Equal(t, 4, d.TotalStudents)
	assert.True(t, d.StudentsKnown)
	assert.Equal(t, 2, d.ActiveEvents)
	assert.True(t, d.RevenueKnown)
	assert.Equal(t, "$15.50", d.TotalRevenue.Currency())
	assert.Equal(t, models.Amount(1000), d.PaidRevenue)
	assert.Equal(t, models.Amount(550), d.PendingRevenue)
	assert.Equal(t, 3, d.Invoices)
}

func TestDashboardDegradesSilently(t *testing.T) {
	st := storetest.New(t, "registrations:read")

	students := new(MockStudents)
	students.On("CountStudents").Return(0, errors.New("boom"))
	events := new(MockEvents)
	events.On("ActiveEventCount").Return(0, false)

	svc := NewService(NewDB(st.DB, st.Rules), students, events, nil, logger.Discard())
	d := svc.Dashboard(context.Background())

	assert.False(t, d.StudentsKnown)
	assert.False(t, d.ActiveEventsKnown)
	assert.False(t, d.RevenueKnown)
	assert.Zero(t, d.TotalRevenue)
}

func TestDashboardRevenueIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	statsCache := cache.NewStatsCache(client, time.Minute)

	st := storetest.New(t)
	seedRegistrations(t, st)

	students := new(MockStudents)
	students.On("CountStudents").Return(1, nil)
	events := new(MockEvents)
	events.On("ActiveEventCount").Return(1, true)

	svc := NewService(NewDB(st.DB, st.Rules), students, events, statsCache, logger.Discard())
	first := svc.Dashboard(context.Background())
	assert.Equal(t, models.Amount(1550), first.TotalRevenue)

	// new rows stay invisible until the revenue keys are invalidated
	_, err := st.Registrations.Insert(context.Background(), &models.Registration{
		StudentID: "s", EventID: "e", TotalAmount: 200, PaymentStatus: models.StatusPending, InvoiceNo: "INV-4",
	})
	require.NoError(t, err)

	cached := svc.Dashboard(context.Background())
	assert.Equal(t, models.Amount(1550), cached.TotalRevenue)

	require.NoError(t, statsCache.Invalidate(context.Background(), cache.RevenueKeys...))
	fresh := svc.Dashboard(context.Background())
	assert.Equal(t, models.Amount(1750), fresh.TotalRevenue)
	assert.Equal(t, 4, fresh.Invoices)
}
