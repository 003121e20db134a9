package telemetry

import (
	"context"

	"github.com/pharmalink/settlement/internal/domain/settlement"
)

// RepositoryBacklogProvider answers backlog gauge queries from the
// settlement repositories.
type RepositoryBacklogProvider struct {
	schedules settlement.ScheduleRepository
	alerts    settlement.AlertRepository
}

// NewRepositoryBacklogProvider creates a backlog provider backed by the
// given repositories.
func NewRepositoryBacklogProvider(
	schedules settlement.ScheduleRepository,
	alerts settlement.AlertRepository,
) *RepositoryBacklogProvider {
	return &RepositoryBacklogProvider{schedules: schedules, alerts: alerts}
}

func (p *RepositoryBacklogProvider) GetOverdueScheduleCount(ctx context.Context) (int64, error) {
	overdue := settlement.ScheduleStatusOverdue
	return p.schedules.Count(ctx, settlement.ScheduleFilter{Status: &overdue})
}

func (p *RepositoryBacklogProvider) GetUnresolvedAlertCount(ctx context.Context) (int64, error) {
	resolved := false
	return p.alerts.Count(ctx, settlement.AlertFilter{IsResolved: &resolved})
}
