package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hwmix/backend/internal/domain/shared"
)

// CompanyLister enumerates companies that hold active installment plans
type CompanyLister interface {
	CompaniesWithActivePlans(ctx context.Context) ([]uuid.UUID, error)
}

// OverdueMarker flags overdue installments for one company
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, acting shared.ActingContext, asOf time.Time) (int, error)
}

// OverdueScheduler periodically sweeps installment schedules and marks
// installments whose due date has passed without settlement. It runs per
// company so one company's failure does not block the rest.
type OverdueScheduler struct {
	interval   time.Duration
	lister     CompanyLister
	marker     OverdueMarker
	logger     *zap.Logger
	systemUser uuid.UUID

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueScheduler creates a new overdue sweep scheduler.
// systemUser identifies the sweeps in audit trails.
func NewOverdueScheduler(interval time.Duration, lister CompanyLister, marker OverdueMarker, logger *zap.Logger) *OverdueScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueScheduler{
		interval:   interval,
		lister:     lister,
		marker:     marker,
		logger:     logger,
		systemUser: uuid.New(),
	}
}

// Start begins the periodic sweep. Safe to call once.
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("overdue scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop gracefully stops the scheduler
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("overdue scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("overdue scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Sweep runs one overdue pass across all companies with active plans.
// Returns the total number of installments marked.
func (s *OverdueScheduler) Sweep(ctx context.Context, asOf time.Time) int {
	companies, err := s.lister.CompaniesWithActivePlans(ctx)
	if err != nil {
		s.logger.Error("failed to list companies for overdue sweep", zap.Error(err))
		return 0
	}

	total := 0
	for _, companyID := range companies {
		acting := shared.NewActingContext(s.systemUser, companyID, shared.CapabilitySuperAdmin)
		marked, err := s.marker.MarkOverdue(ctx, acting, asOf)
		if err != nil {
			s.logger.Error("overdue sweep failed for company",
				zap.String("company_id", companyID.String()),
				zap.Error(err),
			)
			continue
		}
		total += marked
		if marked > 0 {
			s.logger.Info("marked overdue installments",
				zap.String("company_id", companyID.String()),
				zap.Int("count", marked),
			)
		}
	}
	return total
}
