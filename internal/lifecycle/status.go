package lifecycle

import (
	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/models"
)

// ReviewAction is the admin decision on a task in review.
type ReviewAction string

const (
	ActionApprove ReviewAction = "APPROVE"
	ActionReject  ReviewAction = "REJECT"
)

// SetStatus stores an explicit status. Completed forces every checklist item
// complete and progress to 100, but does not record a completer for the
// items it closes. Other statuses leave checklist and progress untouched.
func SetStatus(task *models.Task, status models.TaskStatus) error {
	if !status.Valid() {
		return apperr.Invalidf("Invalid status %q", status)
	}
	task.Status = status
	if status == models.StatusCompleted {
		for i := range task.TodoChecklist {
			task.TodoChecklist[i].Completed = true
		}
		task.Progress = 100
	}
	return nil
}

// Review applies an admin decision. APPROVE completes the task and credits
// adminID for every item it force-closes; REJECT sends it back to In Progress.
func Review(task *models.Task, action ReviewAction, adminID string) error {
	switch action {
	case ActionApprove:
		for i := range task.TodoChecklist {
			item := &task.TodoChecklist[i]
			if item.Completed {
				continue
			}
			admin := adminID
			item.Completed = true
			item.CompletedByID = &admin
			item.CompletedBy = nil
		}
		task.Status = models.StatusCompleted
		task.Progress = 100
	case ActionReject:
		task.Status = models.StatusInProgress
	default:
		return apperr.Newf(apperr.InvalidAction, "Invalid review action %q, expected APPROVE or REJECT", action)
	}
	return nil
}
