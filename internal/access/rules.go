package access

import (
	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/models"
)

// Scope is the row filter a task listing or aggregation must apply.
type Scope struct {
	OrganizationID  string
	CreatedBy       string
	AssigneeID      string
	ExcludeChildren bool
	// ExcludeMasters hides master tasks; assignees work on their child copy.
	ExcludeMasters bool
}

// RequireOrgContext fails when the request carries no organization id.
func RequireOrgContext(orgID string) error {
	if orgID == "" {
		return apperr.New(apperr.MissingOrgContext, "Organization context (x-org-id) is required")
	}
	return nil
}

// ListScope decides which tasks the actor sees in orgID. Admins see what they
// created, minus generated children; members see what is assigned to them,
// with master tasks represented by their own child.
// assignedToMe forces the member view for admins too.
func ListScope(a Actor, orgID string, assignedToMe bool) (Scope, error) {
	if err := RequireOrgContext(orgID); err != nil {
		return Scope{}, err
	}
	if a.IsOrgAdmin(orgID) && !assignedToMe {
		return Scope{OrganizationID: orgID, CreatedBy: a.UserID, ExcludeChildren: true}, nil
	}
	return Scope{OrganizationID: orgID, AssigneeID: a.UserID, ExcludeMasters: true}, nil
}

// CanCreateTask checks the actor may create tasks in orgID.
func CanCreateTask(a Actor, orgID string) error {
	if err := RequireOrgContext(orgID); err != nil {
		return err
	}
	if !a.IsMember(orgID) {
		return apperr.Forbiddenf("You are not a member of this organization")
	}
	return nil
}

// CheckAssignees fails with CrossOrgAssignment unless every assignee is in members.
func CheckAssignees(assigneeIDs []string, members map[string]bool) error {
	for _, id := range assigneeIDs {
		if !members[id] {
			return apperr.Newf(apperr.CrossOrgAssignment, "User %s is not a member of this organization", id)
		}
	}
	return nil
}

func requireSameOrg(task *models.Task, orgID string) error {
	if err := RequireOrgContext(orgID); err != nil {
		return err
	}
	if task.OrganizationID != orgID {
		return apperr.New(apperr.WrongOrganization, "Task belongs to a different organization")
	}
	return nil
}

// CanEditTask allows only the creator, within the task's organization.
func CanEditTask(a Actor, task *models.Task, orgID string) error {
	if err := requireSameOrg(task, orgID); err != nil {
		return err
	}
	if task.CreatedByID != a.UserID {
		return apperr.Forbiddenf("Only the task creator can edit this task")
	}
	return nil
}

// CanDeleteTask allows only the creator, within the task's organization.
func CanDeleteTask(a Actor, task *models.Task, orgID string) error {
	if err := requireSameOrg(task, orgID); err != nil {
		return err
	}
	if task.CreatedByID != a.UserID {
		return apperr.Forbiddenf("Only the task creator can delete this task")
	}
	return nil
}

// CanReadTask allows the creator, assignees and task admins. A supplied org
// context must match the task's organization.
func CanReadTask(a Actor, task *models.Task, orgID string) error {
	if orgID != "" && task.OrganizationID != orgID {
		return apperr.New(apperr.WrongOrganization, "Task belongs to a different organization")
	}
	if task.CreatedByID == a.UserID || task.HasAssignee(a.UserID) || a.IsTaskAdmin(task.OrganizationID) {
		return nil
	}
	return apperr.Forbiddenf("You do not have access to this task")
}

// CanUpdateStatus allows the creator, any assignee, or a task admin.
func CanUpdateStatus(a Actor, task *models.Task) error {
	if task.CreatedByID == a.UserID || task.HasAssignee(a.UserID) || a.IsTaskAdmin(task.OrganizationID) {
		return nil
	}
	return apperr.Forbiddenf("Not authorized to update this task's status")
}

// CanUpdateChecklist allows any assignee or a task admin.
func CanUpdateChecklist(a Actor, task *models.Task) error {
	if task.HasAssignee(a.UserID) || a.IsTaskAdmin(task.OrganizationID) {
		return nil
	}
	return apperr.Forbiddenf("Not authorized to update this task's checklist")
}

// CanReview allows task admins of the task's organization.
func CanReview(a Actor, task *models.Task) error {
	if a.IsTaskAdmin(task.OrganizationID) {
		return nil
	}
	return apperr.Forbiddenf("Only admins can review tasks")
}

// RequireOrgAdmin demands the admin role inside orgID. Superusers get no bypass.
func RequireOrgAdmin(a Actor, orgID string) error {
	if !a.IsOrgAdmin(orgID) {
		return apperr.Forbiddenf("Admin role in this organization is required")
	}
	return nil
}

// RequireOrgMember demands any membership in orgID.
func RequireOrgMember(a Actor, orgID string) error {
	if !a.IsMember(orgID) {
		return apperr.Forbiddenf("You are not a member of this organization")
	}
	return nil
}

// CanRequestJoin rejects members and callers with a pending request.
func CanRequestJoin(a Actor, orgID string, pending bool) error {
	if a.IsMember(orgID) {
		return apperr.New(apperr.AlreadyMember, "You are already a member of this organization")
	}
	if pending {
		return apperr.New(apperr.DuplicateRequest, "You already have a pending request for this organization")
	}
	return nil
}
