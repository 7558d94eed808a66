package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hwmix/backend/internal/domain/shared"
)

type fakeCompanyLister struct {
	companies []uuid.UUID
	err       error
}

func (f *fakeCompanyLister) CompaniesWithActivePlans(ctx context.Context) ([]uuid.UUID, error) {
	return f.companies, f.err
}

type fakeOverdueMarker struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	marked  int
	failFor uuid.UUID
}

func (f *fakeOverdueMarker) MarkOverdue(ctx context.Context, acting shared.ActingContext, asOf time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, acting.CompanyID)
	if acting.CompanyID == f.failFor {
		return 0, errors.New("sweep failed")
	}
	return f.marked, nil
}

func (f *fakeOverdueMarker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestOverdueScheduler_Sweep(t *testing.T) {
	t.Run("marks overdue installments for every company", func(t *testing.T) {
		lister := &fakeCompanyLister{companies: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}
		marker := &fakeOverdueMarker{marked: 2}
		s := NewOverdueScheduler(time.Hour, lister, marker, zap.NewNop())

		total := s.Sweep(context.Background(), time.Now())

		assert.Equal(t, 6, total)
		assert.Equal(t, 3, marker.callCount())
	})

	t.Run("one failing company does not block the rest", func(t *testing.T) {
		bad := uuid.New()
		lister := &fakeCompanyLister{companies: []uuid.UUID{bad, uuid.New()}}
		marker := &fakeOverdueMarker{marked: 1, failFor: bad}
		s := NewOverdueScheduler(time.Hour, lister, marker, zap.NewNop())

		total := s.Sweep(context.Background(), time.Now())

		assert.Equal(t, 1, total)
		assert.Equal(t, 2, marker.callCount())
	})

	t.Run("lister failure marks nothing", func(t *testing.T) {
		lister := &fakeCompanyLister{err: errors.New("db down")}
		marker := &fakeOverdueMarker{marked: 5}
		s := NewOverdueScheduler(time.Hour, lister, marker, zap.NewNop())

		total := s.Sweep(context.Background(), time.Now())

		assert.Zero(t, total)
		assert.Zero(t, marker.callCount())
	})

	t.Run("uses a valid acting context per company", func(t *testing.T) {
		companyID := uuid.New()
		lister := &fakeCompanyLister{companies: []uuid.UUID{companyID}}

		var captured shared.ActingContext
		marker := &capturingMarker{capture: func(acting shared.ActingContext) { captured = acting }}
		s := NewOverdueScheduler(time.Hour, lister, marker, zap.NewNop())

		s.Sweep(context.Background(), time.Now())

		assert.True(t, captured.IsValid())
		assert.Equal(t, companyID, captured.CompanyID)
		assert.True(t, captured.HasCapability(shared.CapabilitySuperAdmin))
	})
}

type capturingMarker struct {
	capture func(shared.ActingContext)
}

func (m *capturingMarker) MarkOverdue(ctx context.Context, acting shared.ActingContext, asOf time.Time) (int, error) {
	m.capture(acting)
	return 0, nil
}

func TestOverdueScheduler_Lifecycle(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		lister := &fakeCompanyLister{}
		marker := &fakeOverdueMarker{}
		s := NewOverdueScheduler(time.Hour, lister, marker, zap.NewNop())

		require.NoError(t, s.Start(context.Background()))

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(stopCtx))
	})

	t.Run("double start is a no-op", func(t *testing.T) {
		lister := &fakeCompanyLister{}
		marker := &fakeOverdueMarker{}
		s := NewOverdueScheduler(time.Hour, lister, marker, zap.NewNop())

		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Start(context.Background()))

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(stopCtx))
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		s := NewOverdueScheduler(time.Hour, &fakeCompanyLister{}, &fakeOverdueMarker{}, zap.NewNop())
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("ticker triggers sweeps", func(t *testing.T) {
		companyID := uuid.New()
		lister := &fakeCompanyLister{companies: []uuid.UUID{companyID}}
		marker := &fakeOverdueMarker{marked: 1}
		s := NewOverdueScheduler(10*time.Millisecond, lister, marker, zap.NewNop())

		require.NoError(t, s.Start(context.Background()))

		assert.Eventually(t, func() bool {
			return marker.callCount() >= 2
		}, time.Second, 5*time.Millisecond)

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(stopCtx))
	})
}
