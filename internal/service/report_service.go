package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskhq/support-desk/internal/domain"
	"github.com/helpdeskhq/support-desk/internal/events"
	"github.com/helpdeskhq/support-desk/internal/policy"
	"github.com/helpdeskhq/support-desk/internal/repository"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

// ReportService aggregates ticket statistics for admins.
type ReportService struct {
	tickets repository.TicketRepository
	cache   repository.StatsCache
	policy  *policy.Policy
	logger  *zap.Logger
}

// ReportDependencies bundles collaborators for the report service. Cache is optional.
type ReportDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      repository.StatsCache
	Policy     *policy.Policy
	Logger     *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	svc := &ReportService{
		tickets: deps.TicketRepo,
		cache:   deps.Cache,
		policy:  deps.Policy,
		logger:  deps.Logger,
	}
	if svc.policy == nil {
		svc.policy = policy.New()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// ParseStatsPeriod parses a groupBy value. Empty selects day.
func ParseStatsPeriod(raw string) (domain.StatsPeriod, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return domain.StatsPeriodDay, nil
	}
	period := domain.StatsPeriod(raw)
	if !period.Valid() {
		return "", apperrors.NewValidationError("groupBy must be day, week or month", map[string]any{"groupBy": raw})
	}
	return period, nil
}

// Stats counts tickets per creation bucket, labels ascending. Admin only.
func (s *ReportService) Stats(ctx context.Context, identity domain.Identity, period domain.StatsPeriod) (*domain.TicketStats, error) {
	if !s.policy.CanTicket(identity, policy.ActionViewStats, nil) {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if period == "" {
		period = domain.StatsPeriodDay
	}
	if !period.Valid() {
		return nil, apperrors.NewValidationError("groupBy must be day, week or month", map[string]any{"groupBy": string(period)})
	}

	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, period)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.String("period", string(period)), zap.Error(err))
		} else if ok {
			return cached, nil
		}
		// Read before the snapshot; Set refuses the write if an invalidation lands in between.
		if generation, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("stats cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
		}
	}

	createdAt, err := s.tickets.ListCreatedAt(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	stats := BucketCounts(createdAt, period)

	if cacheable {
		err := s.cache.Set(ctx, period, generation, stats)
		switch {
		case errors.Is(err, repository.ErrStaleStats):
			s.logger.Debug("skipped caching stale stats", zap.String("period", string(period)))
		case err != nil:
			s.logger.Warn("stats cache write failed", zap.String("period", string(period)), zap.Error(err))
		}
	}
	return stats, nil
}

// RegisterInvalidation drops cached stats whenever the ticket population changes.
func (s *ReportService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		if err := s.cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate stats cache: %w", err)
		}
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, invalidate)
	dispatcher.Subscribe(events.EventTicketDeleted, invalidate)
}

// BucketCounts groups timestamps into UTC buckets of the given period.
func BucketCounts(timestamps []time.Time, period domain.StatsPeriod) *domain.TicketStats {
	counts := map[time.Time]int{}
	for _, ts := range timestamps {
		counts[BucketStart(ts, period)]++
	}

	starts := make([]time.Time, 0, len(counts))
	for start := range counts {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	stats := &domain.TicketStats{
		Labels: make([]string, 0, len(starts)),
		Data:   make([]int, 0, len(starts)),
	}
	for _, start := range starts {
		stats.Labels = append(stats.Labels, BucketLabel(start, period))
		stats.Data = append(stats.Data, counts[start])
	}
	return stats
}

// BucketStart truncates ts to the start of its UTC day, ISO week (Monday) or month.
func BucketStart(ts time.Time, period domain.StatsPeriod) time.Time {
	ts = ts.UTC()
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case domain.StatsPeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.StatsPeriodMonth:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// BucketLabel formats a bucket start for display.
func BucketLabel(start time.Time, period domain.StatsPeriod) string {
	switch period {
	case domain.StatsPeriodWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case domain.StatsPeriodMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}
