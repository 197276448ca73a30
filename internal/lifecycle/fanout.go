package lifecycle

import (
	"time"

	"org-task-management-api/internal/models"
)

// SharedFields are the master task fields mirrored on every child.
type SharedFields struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    models.TaskPriority
}

// SharedFieldsOf extracts the shared fields from a master task.
func SharedFieldsOf(task *models.Task) SharedFields {
	return SharedFields{
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    task.Priority,
	}
}

// Apply copies the shared fields onto task and reports whether anything changed.
func (f SharedFields) Apply(task *models.Task) bool {
	changed := task.Title != f.Title ||
		task.Description != f.Description ||
		task.Priority != f.Priority ||
		!sameTime(task.DueDate, f.DueDate)
	task.Title = f.Title
	task.Description = f.Description
	task.Priority = f.Priority
	task.DueDate = copyTime(f.DueDate)
	return changed
}

// BuildChildTasks clones a master task into one child per assignee. Each child
// gets its own incomplete copy of the master's checklist.
func BuildChildTasks(master *models.Task, assigneeIDs []string) []models.Task {
	children := make([]models.Task, 0, len(assigneeIDs))
	for _, assigneeID := range assigneeIDs {
		parentID := master.ID
		child := models.Task{
			ID:             NewID(),
			OrganizationID: master.OrganizationID,
			CreatedByID:    master.CreatedByID,
			AssignedTo:     []models.User{{ID: assigneeID}},
			Attachments:    append(master.Attachments[:0:0], master.Attachments...),
			AssignmentType: models.AssignmentIndividual,
			ParentTaskID:   &parentID,
		}
		SharedFieldsOf(master).Apply(&child)

		texts := make([]string, 0, len(master.TodoChecklist))
		for _, item := range master.TodoChecklist {
			texts = append(texts, item.Text)
		}
		child.TodoChecklist = NewChecklist(child.ID, texts)
		Recompute(&child)
		children = append(children, child)
	}
	return children
}

// PropagateMasterEdit pushes the master's shared fields to its children and
// returns the children that changed.
func PropagateMasterEdit(master *models.Task, children []models.Task) []models.Task {
	fields := SharedFieldsOf(master)
	var changed []models.Task
	for i := range children {
		if fields.Apply(&children[i]) {
			changed = append(changed, children[i])
		}
	}
	return changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
