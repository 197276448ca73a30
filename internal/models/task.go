package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusInReview   TaskStatus = "In Review"
	StatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusInReview, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// AssignmentType tells how a task was handed out.
type AssignmentType string

const (
	// AssignmentGroup is one task shared by every assignee.
	AssignmentGroup AssignmentType = "group"
	// AssignmentIndividual is a master task fanned out to one child per assignee.
	AssignmentIndividual AssignmentType = "individual"
	// AssignmentMe is a task the creator assigned to themselves.
	AssignmentMe AssignmentType = "me"
)

// AttachmentType is either a link or an uploaded file.
type AttachmentType string

const (
	AttachmentLink AttachmentType = "link"
	AttachmentFile AttachmentType = "file"
)

// Attachment is stored inline on the task as JSON.
type Attachment struct {
	Type AttachmentType `json:"type"`
	URL  string         `json:"url"`
	Name string         `json:"name"`
}

// ChecklistItem is one todo entry. Its completion drives the task's progress and status.
type ChecklistItem struct {
	ID            string  `json:"id" gorm:"primaryKey"`
	TaskID        string  `json:"-" gorm:"column:task_id;not null;index"`
	Position      int     `json:"-" gorm:"not null;default:0"`
	Text          string  `json:"text" gorm:"not null"`
	Completed     bool    `json:"completed" gorm:"not null;default:false"`
	CompletedByID *string `json:"-" gorm:"column:completed_by"`
	CompletedBy   *User   `json:"completedBy,omitempty" gorm:"foreignKey:CompletedByID"`
}

func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// Task represents a task in the system
type Task struct {
	ID             string                          `json:"id" gorm:"primaryKey"`
	Title          string                          `json:"title" gorm:"not null"`
	Description    string                          `json:"description"`
	Priority       TaskPriority                    `json:"priority" gorm:"not null;default:'Medium'"`
	Status         TaskStatus                      `json:"status" gorm:"not null;default:'Pending';index"`
	OrganizationID string                          `json:"organizationId" gorm:"column:organization_id;not null;index"`
	CreatedByID    string                          `json:"createdBy" gorm:"column:created_by;not null;index"`
	AssignedTo     []User                          `json:"assignedTo" gorm:"many2many:task_assignees;joinForeignKey:TaskID;joinReferences:UserID"`
	DueDate        *time.Time                      `json:"dueDate"`
	Progress       int                             `json:"progress" gorm:"not null;default:0"`
	TodoChecklist  []ChecklistItem                 `json:"todoChecklist" gorm:"foreignKey:TaskID"`
	Attachments    datatypes.JSONSlice[Attachment] `json:"attachments"`
	AssignmentType AssignmentType                  `json:"assignmentType" gorm:"column:assignment_type;not null;default:'group'"`
	ParentTaskID   *string                         `json:"parentTask" gorm:"column:parent_task;index"`
	CreatedAt      time.Time                       `json:"createdAt"`
	UpdatedAt      time.Time                       `json:"updatedAt"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// TaskAssignee is the join row behind Task.AssignedTo.
type TaskAssignee struct {
	TaskID string `gorm:"column:task_id;primaryKey"`
	UserID string `gorm:"column:user_id;primaryKey;index"`
}

func (TaskAssignee) TableName() string {
	return "task_assignees"
}

// IsMaster reports whether the task owns generated per-assignee children.
func (t *Task) IsMaster() bool {
	return t.AssignmentType == AssignmentIndividual && t.ParentTaskID == nil
}

// IsChild reports whether the task was generated from a master task.
func (t *Task) IsChild() bool {
	return t.ParentTaskID != nil
}

// AssigneeIDs returns the ids of the assigned users in order.
func (t *Task) AssigneeIDs() []string {
	ids := make([]string, 0, len(t.AssignedTo))
	for _, u := range t.AssignedTo {
		ids = append(ids, u.ID)
	}
	return ids
}

// HasAssignee reports whether userID is among the assignees.
func (t *Task) HasAssignee(userID string) bool {
	for _, u := range t.AssignedTo {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// CompletedTodoCount counts completed checklist items.
func (t *Task) CompletedTodoCount() int {
	n := 0
	for _, item := range t.TodoChecklist {
		if item.Completed {
			n++
		}
	}
	return n
}
