package store

import (
	"context"
	"time"

	"org-task-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskFilter selects tasks for listings and aggregations.
type TaskFilter struct {
	OrganizationID  string
	CreatedBy       string
	AssigneeID      string
	ExcludeChildren bool
	ExcludeMasters  bool
	Status          models.TaskStatus
	SortAsc         bool
}

func (s *Store) scoped(ctx context.Context, f TaskFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Task{})
	if f.OrganizationID != "" {
		q = q.Where("tasks.organization_id = ?", f.OrganizationID)
	}
	if f.CreatedBy != "" {
		q = q.Where("tasks.created_by = ?", f.CreatedBy)
	}
	if f.AssigneeID != "" {
		assigned := s.conn(ctx).Model(&models.TaskAssignee{}).Select("task_id").Where("user_id = ?", f.AssigneeID)
		q = q.Where("tasks.id IN (?)", assigned)
	}
	if f.ExcludeChildren {
		q = q.Where("tasks.parent_task IS NULL")
	}
	if f.ExcludeMasters {
		q = q.Where("NOT (tasks.assignment_type = ? AND tasks.parent_task IS NULL)", models.AssignmentIndividual)
	}
	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	return q
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("AssignedTo").
		Preload("TodoChecklist", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("TodoChecklist.CompletedBy")
}

func writeChildren(tx *gorm.DB, task *models.Task) error {
	if err := tx.Where("task_id = ?", task.ID).Delete(&models.ChecklistItem{}).Error; err != nil {
		return err
	}
	if len(task.TodoChecklist) > 0 {
		for i := range task.TodoChecklist {
			task.TodoChecklist[i].TaskID = task.ID
			task.TodoChecklist[i].Position = i
		}
		if err := tx.Omit(clause.Associations).Create(&task.TodoChecklist).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignee{}).Error; err != nil {
		return err
	}
	if len(task.AssignedTo) > 0 {
		rows := make([]models.TaskAssignee, 0, len(task.AssignedTo))
		for _, u := range task.AssignedTo {
			rows = append(rows, models.TaskAssignee{TaskID: task.ID, UserID: u.ID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateTask inserts a task with its checklist and assignees.
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		return writeChildren(tx, task)
	})
}

// SaveTask overwrites a task with its checklist and assignees.
func (s *Store) SaveTask(ctx context.Context, task *models.Task) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return err
		}
		return writeChildren(tx, task)
	})
}

// UpdateSharedFields writes only the fields a master task mirrors onto its children.
func (s *Store) UpdateSharedFields(ctx context.Context, task *models.Task) error {
	return s.conn(ctx).Model(&models.Task{ID: task.ID}).
		Select("title", "description", "due_date", "priority").
		Updates(map[string]any{
			"title":       task.Title,
			"description": task.Description,
			"due_date":    task.DueDate,
			"priority":    task.Priority,
		}).Error
}

// GetTask loads a task with assignees and checklist completers.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := withDetails(s.conn(ctx)).First(&task, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Task")
	}
	return &task, nil
}

// DeleteTask removes a task and its checklist and assignee rows.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.ChecklistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Task{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "Task")
		}
		return nil
	})
}

// ListChildren returns the generated children of a master task.
func (s *Store) ListChildren(ctx context.Context, masterID string) ([]models.Task, error) {
	var tasks []models.Task
	err := withDetails(s.conn(ctx)).
		Where("parent_task = ?", masterID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListTasks returns tasks matching f, newest first unless f.SortAsc.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	order := "tasks.created_at DESC"
	if f.SortAsc {
		order = "tasks.created_at ASC"
	}
	var tasks []models.Task
	err := withDetails(s.scoped(ctx, f)).Order(order).Find(&tasks).Error
	return tasks, err
}

// RecentTasks returns the latest limit tasks matching f without checklist details.
func (s *Store) RecentTasks(ctx context.Context, f TaskFilter, limit int) ([]models.Task, error) {
	var tasks []models.Task
	err := s.scoped(ctx, f).
		Select("tasks.id", "tasks.title", "tasks.status", "tasks.priority", "tasks.due_date", "tasks.created_at").
		Order("tasks.created_at DESC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// CountByStatus groups matching tasks by status.
func (s *Store) CountByStatus(ctx context.Context, f TaskFilter) (map[models.TaskStatus]int64, error) {
	type row struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []row
	if err := s.scoped(ctx, f).Select("tasks.status AS status, COUNT(*) AS count").Group("tasks.status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// CountByPriority groups matching tasks by priority.
func (s *Store) CountByPriority(ctx context.Context, f TaskFilter) (map[models.TaskPriority]int64, error) {
	type row struct {
		Priority models.TaskPriority
		Count    int64
	}
	var rows []row
	if err := s.scoped(ctx, f).Select("tasks.priority AS priority, COUNT(*) AS count").Group("tasks.priority").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.TaskPriority]int64, len(rows))
	for _, r := range rows {
		out[r.Priority] = r.Count
	}
	return out, nil
}

// CountOverdue counts matching open tasks due before now.
func (s *Store) CountOverdue(ctx context.Context, f TaskFilter, now time.Time) (int64, error) {
	var n int64
	err := s.scoped(ctx, f).
		Where("tasks.due_date IS NOT NULL AND tasks.due_date < ?", now).
		Where("tasks.status <> ?", models.StatusCompleted).
		Count(&n).Error
	return n, err
}

// CountHighPriorityOpen counts matching High priority tasks that are not completed.
func (s *Store) CountHighPriorityOpen(ctx context.Context, f TaskFilter) (int64, error) {
	var n int64
	err := s.scoped(ctx, f).
		Where("tasks.priority = ? AND tasks.status <> ?", models.PriorityHigh, models.StatusCompleted).
		Count(&n).Error
	return n, err
}
