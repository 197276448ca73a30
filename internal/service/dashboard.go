package service

import (
	"context"
	"time"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/store"
)

const recentTaskLimit = 10

// Statistics are the headline counts of a dashboard.
type Statistics struct {
	TotalTasks       int64 `json:"totalTasks"`
	PendingTasks     int64 `json:"pendingTasks"`
	InProgressTasks  int64 `json:"inProgressTasks"`
	InReviewTasks    int64 `json:"inReviewTasks"`
	CompletedTasks   int64 `json:"completedTasks"`
	OverdueTasks     int64 `json:"overdueTasks"`
	HighPriorityOpen int64 `json:"highPriorityOpenTasks"`
}

type Charts struct {
	TaskDistribution   map[string]int64 `json:"taskDistribution"`
	TaskPriorityLevels map[string]int64 `json:"taskPriorityLevels"`
}

type Dashboard struct {
	Statistics  Statistics    `json:"statistics"`
	Charts      Charts        `json:"charts"`
	RecentTasks []models.Task `json:"recentTasks"`
}

type DashboardService struct {
	store *store.Store
	now   func() time.Time
}

func NewDashboardService(st *store.Store) *DashboardService {
	return &DashboardService{store: st, now: time.Now}
}

// Admin aggregates the tasks an org admin created, the same set the admin's
// task listing shows.
func (s *DashboardService) Admin(ctx context.Context, actor access.Actor, orgID string) (*Dashboard, error) {
	if err := access.RequireOrgContext(orgID); err != nil {
		return nil, err
	}
	if err := access.RequireOrgAdmin(actor, orgID); err != nil {
		return nil, err
	}
	scope, err := access.ListScope(actor, orgID, false)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, filterFor(scope))
}

// Member aggregates the tasks assigned to the actor in orgID.
func (s *DashboardService) Member(ctx context.Context, actor access.Actor, orgID string) (*Dashboard, error) {
	scope, err := access.ListScope(actor, orgID, true)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, filterFor(scope))
}

func (s *DashboardService) build(ctx context.Context, f store.TaskFilter) (*Dashboard, error) {
	byStatus, err := s.store.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.store.CountByPriority(ctx, f)
	if err != nil {
		return nil, err
	}
	overdue, err := s.store.CountOverdue(ctx, f, s.now().UTC())
	if err != nil {
		return nil, err
	}
	highOpen, err := s.store.CountHighPriorityOpen(ctx, f)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentTasks(ctx, f, recentTaskLimit)
	if err != nil {
		return nil, err
	}

	sum := summarize(byStatus)
	return &Dashboard{
		Statistics: Statistics{
			TotalTasks:       sum.All,
			PendingTasks:     sum.PendingTasks,
			InProgressTasks:  sum.InProgressTasks,
			InReviewTasks:    sum.InReviewTasks,
			CompletedTasks:   sum.CompletedTasks,
			OverdueTasks:     overdue,
			HighPriorityOpen: highOpen,
		},
		Charts: Charts{
			TaskDistribution: map[string]int64{
				"All":        sum.All,
				"Pending":    sum.PendingTasks,
				"InProgress": sum.InProgressTasks,
				"InReview":   sum.InReviewTasks,
				"Completed":  sum.CompletedTasks,
			},
			TaskPriorityLevels: map[string]int64{
				"Low":    byPriority[models.PriorityLow],
				"Medium": byPriority[models.PriorityMedium],
				"High":   byPriority[models.PriorityHigh],
			},
		},
		RecentTasks: recent,
	}, nil
}
