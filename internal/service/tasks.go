package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/lifecycle"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/realtime"
	"org-task-management-api/internal/saga"
	"org-task-management-api/internal/store"
)

type TaskService struct {
	store  *store.Store
	events realtime.Publisher
}

func NewTaskService(st *store.Store, events realtime.Publisher) *TaskService {
	return &TaskService{store: st, events: publisherOrNoop(events)}
}

// CreateTaskInput carries the fields of a new task.
type CreateTaskInput struct {
	Title          string
	Description    string
	Priority       models.TaskPriority
	DueDate        *time.Time
	AssignedTo     []string
	AssignmentType models.AssignmentType
	TodoChecklist  []string
	Attachments    []models.Attachment
}

// UpdateTaskInput holds the fields a creator may change. Nil means unchanged.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *models.TaskPriority
	DueDate       *time.Time
	AssignedTo    *[]string
	TodoChecklist *[]lifecycle.ChecklistInput
	Attachments   *[]models.Attachment
}

// ListOptions are the query parameters of a task listing.
type ListOptions struct {
	Status       models.TaskStatus
	SortAsc      bool
	AssignedToMe bool
}

// TaskView is a task as returned by listings.
type TaskView struct {
	models.Task
	CompletedTodoCount int `json:"completedTodoCount"`
}

// StatusSummary counts the listed scope by status.
type StatusSummary struct {
	All             int64 `json:"all"`
	PendingTasks    int64 `json:"pendingTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	InReviewTasks   int64 `json:"inReviewTasks"`
	CompletedTasks  int64 `json:"completedTasks"`
}

type TaskList struct {
	Tasks         []TaskView    `json:"tasks"`
	StatusSummary StatusSummary `json:"statusSummary"`
}

// MasterView is a master task with its generated children.
type MasterView struct {
	Master   *models.Task  `json:"master"`
	Children []models.Task `json:"children"`
}

func validPriority(p models.TaskPriority) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}

func validAttachments(list []models.Attachment) error {
	for _, a := range list {
		if a.Type != models.AttachmentLink && a.Type != models.AttachmentFile {
			return apperr.Invalidf("Invalid attachment type %q", a.Type)
		}
		if strings.TrimSpace(a.URL) == "" {
			return apperr.Invalidf("Attachment url is required")
		}
	}
	return nil
}

func (s *TaskService) checkAssignees(ctx context.Context, orgID string, ids []string) error {
	members, err := s.store.MemberSet(ctx, orgID, ids)
	if err != nil {
		return err
	}
	return access.CheckAssignees(ids, members)
}

// Create stores a new task in orgID. Individual assignment also creates one
// child task per assignee.
func (s *TaskService) Create(ctx context.Context, actor access.Actor, orgID string, in CreateTaskInput) (*models.Task, error) {
	if err := access.CanCreateTask(actor, orgID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Invalidf("Title is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !validPriority(in.Priority) {
		return nil, apperr.Invalidf("Invalid priority %q", in.Priority)
	}
	if err := validAttachments(in.Attachments); err != nil {
		return nil, err
	}

	assignees := dedupe(in.AssignedTo)
	switch in.AssignmentType {
	case models.AssignmentMe:
		assignees = []string{actor.UserID}
	case "":
		in.AssignmentType = models.AssignmentGroup
		if len(assignees) == 0 {
			in.AssignmentType = models.AssignmentMe
		}
	case models.AssignmentGroup, models.AssignmentIndividual:
	default:
		return nil, apperr.Invalidf("Invalid assignmentType %q", in.AssignmentType)
	}
	if len(assignees) == 0 {
		assignees = []string{actor.UserID}
	}
	if err := s.checkAssignees(ctx, orgID, assignees); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:             lifecycle.NewID(),
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Priority:       in.Priority,
		OrganizationID: orgID,
		CreatedByID:    actor.UserID,
		AssignedTo:     usersFromIDs(assignees),
		DueDate:        in.DueDate,
		Attachments:    in.Attachments,
		AssignmentType: in.AssignmentType,
	}
	task.TodoChecklist = lifecycle.NewChecklist(task.ID, in.TodoChecklist)
	lifecycle.Recompute(task)

	if task.IsMaster() {
		if err := s.createMaster(ctx, task, assignees); err != nil {
			return nil, err
		}
	} else if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	created, err := s.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(realtime.Event{Type: realtime.TaskCreated, TaskID: created.ID, OrganizationID: orgID, ActorID: actor.UserID}, audience(created)...)
	return created, nil
}

func (s *TaskService) createMaster(ctx context.Context, master *models.Task, assignees []string) error {
	sg := saga.New("create-individual-task", saga.Step{
		Name:       "create master " + master.ID,
		Do:         func(ctx context.Context) error { return s.store.CreateTask(ctx, master) },
		Compensate: func(ctx context.Context) error { return s.store.DeleteTask(ctx, master.ID) },
	})
	for _, child := range lifecycle.BuildChildTasks(master, assignees) {
		child := child
		sg.Add(saga.Step{
			Name:       "create child " + child.ID,
			Do:         func(ctx context.Context) error { return s.store.CreateTask(ctx, &child) },
			Compensate: func(ctx context.Context) error { return s.store.DeleteTask(ctx, child.ID) },
		})
	}
	return sg.Run(ctx)
}

// Get returns one task the actor may see.
func (s *TaskService) Get(ctx context.Context, actor access.Actor, orgID, id string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanReadTask(actor, task, orgID); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns the tasks visible to the actor in orgID with a status summary
// of the same scope.
func (s *TaskService) List(ctx context.Context, actor access.Actor, orgID string, opts ListOptions) (*TaskList, error) {
	scope, err := access.ListScope(actor, orgID, opts.AssignedToMe)
	if err != nil {
		return nil, err
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, apperr.Invalidf("Invalid status %q", opts.Status)
	}
	filter := filterFor(scope)

	counts, err := s.store.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}
	filter.Status = opts.Status
	filter.SortAsc = opts.SortAsc
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, CompletedTodoCount: t.CompletedTodoCount()})
	}
	return &TaskList{Tasks: views, StatusSummary: summarize(counts)}, nil
}

func filterFor(scope access.Scope) store.TaskFilter {
	return store.TaskFilter{
		OrganizationID:  scope.OrganizationID,
		CreatedBy:       scope.CreatedBy,
		AssigneeID:      scope.AssigneeID,
		ExcludeChildren: scope.ExcludeChildren,
		ExcludeMasters:  scope.ExcludeMasters,
	}
}

func summarize(counts map[models.TaskStatus]int64) StatusSummary {
	sum := StatusSummary{
		PendingTasks:    counts[models.StatusPending],
		InProgressTasks: counts[models.StatusInProgress],
		InReviewTasks:   counts[models.StatusInReview],
		CompletedTasks:  counts[models.StatusCompleted],
	}
	for _, n := range counts {
		sum.All += n
	}
	return sum
}

// Update applies a creator's full edit. Edits to a master task are pushed to
// its children and the children follow assignee changes.
func (s *TaskService) Update(ctx context.Context, actor access.Actor, orgID, id string, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanEditTask(actor, task, orgID); err != nil {
		return nil, err
	}
	previousAssignees := task.AssigneeIDs()

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, apperr.Invalidf("Title cannot be empty")
		}
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if !validPriority(*in.Priority) {
			return nil, apperr.Invalidf("Invalid priority %q", *in.Priority)
		}
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Attachments != nil {
		if err := validAttachments(*in.Attachments); err != nil {
			return nil, err
		}
		task.Attachments = *in.Attachments
	}
	if in.AssignedTo != nil {
		ids := dedupe(*in.AssignedTo)
		if len(ids) == 0 {
			return nil, apperr.Invalidf("A task needs at least one assignee")
		}
		if task.IsChild() && len(ids) != 1 {
			return nil, apperr.Invalidf("A child task has exactly one assignee")
		}
		if err := s.checkAssignees(ctx, task.OrganizationID, ids); err != nil {
			return nil, err
		}
		task.AssignedTo = usersFromIDs(ids)
	}
	if in.TodoChecklist != nil {
		lifecycle.ApplyChecklistUpdate(task, *in.TodoChecklist, actor.UserID)
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	if task.IsMaster() {
		if err := s.syncChildren(ctx, task, previousAssignees); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(realtime.Event{Type: realtime.TaskUpdated, TaskID: id, OrganizationID: updated.OrganizationID, ActorID: actor.UserID},
		append(audience(updated), previousAssignees...)...)
	return updated, nil
}

// syncChildren pushes shared fields to existing children, creates children for
// new assignees and deletes those of removed assignees. Each child write is
// independent; a failure stops the sequence and is reported without undoing
// the children already written.
func (s *TaskService) syncChildren(ctx context.Context, master *models.Task, previousAssignees []string) error {
	children, err := s.store.ListChildren(ctx, master.ID)
	if err != nil {
		return err
	}
	current := make(map[string]bool, len(master.AssignedTo))
	for _, id := range master.AssigneeIDs() {
		current[id] = true
	}

	sg := saga.New("propagate-master-edit")
	var kept []models.Task
	hasChild := make(map[string]bool, len(children))
	for _, child := range children {
		child := child
		ids := child.AssigneeIDs()
		if len(ids) == 1 && !current[ids[0]] {
			sg.Add(saga.Step{
				Name: "delete child " + child.ID,
				Do:   func(ctx context.Context) error { return s.store.DeleteTask(ctx, child.ID) },
			})
			continue
		}
		for _, id := range ids {
			hasChild[id] = true
		}
		kept = append(kept, child)
	}
	for _, child := range lifecycle.PropagateMasterEdit(master, kept) {
		child := child
		sg.Add(saga.Step{
			Name: "update child " + child.ID,
			Do:   func(ctx context.Context) error { return s.store.UpdateSharedFields(ctx, &child) },
		})
	}
	var added []string
	for _, id := range master.AssigneeIDs() {
		if !hasChild[id] {
			added = append(added, id)
		}
	}
	for _, child := range lifecycle.BuildChildTasks(master, added) {
		child := child
		sg.Add(saga.Step{
			Name: "create child " + child.ID,
			Do:   func(ctx context.Context) error { return s.store.CreateTask(ctx, &child) },
		})
	}
	if len(sg.Steps) == 0 {
		return nil
	}
	if err := sg.Run(ctx); err != nil {
		return fmt.Errorf("master task saved but children are out of sync: %w", err)
	}
	return nil
}

// Delete removes a task; deleting a master task also removes its children.
func (s *TaskService) Delete(ctx context.Context, actor access.Actor, orgID, id string) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanDeleteTask(actor, task, orgID); err != nil {
		return err
	}
	if task.IsMaster() {
		return s.cascadeDelete(ctx, actor, task)
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.events.Publish(realtime.Event{Type: realtime.TaskDeleted, TaskID: id, OrganizationID: task.OrganizationID, ActorID: actor.UserID}, audience(task)...)
	return nil
}

// cascadeDelete removes the children first and the master last, so a failure
// always leaves the master in place. Deleted children are recreated if a later
// step fails.
func (s *TaskService) cascadeDelete(ctx context.Context, actor access.Actor, master *models.Task) error {
	children, err := s.store.ListChildren(ctx, master.ID)
	if err != nil {
		return err
	}
	sg := saga.New("delete-master-task")
	for _, child := range children {
		child := child
		sg.Add(saga.Step{
			Name:       "delete child " + child.ID,
			Do:         func(ctx context.Context) error { return s.store.DeleteTask(ctx, child.ID) },
			Compensate: func(ctx context.Context) error { return s.store.CreateTask(ctx, &child) },
		})
	}
	sg.Add(saga.Step{
		Name: "delete master " + master.ID,
		Do:   func(ctx context.Context) error { return s.store.DeleteTask(ctx, master.ID) },
	})
	if err := sg.Run(ctx); err != nil {
		return err
	}
	log.Printf("deleted master task %s with %d children", master.ID, len(children))
	s.events.Publish(realtime.Event{Type: realtime.TaskDeleted, TaskID: master.ID, OrganizationID: master.OrganizationID, ActorID: actor.UserID}, audience(master)...)
	return nil
}

func (s *TaskService) loadMaster(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsMaster() {
		return nil, apperr.NotFoundf("Master task not found")
	}
	return task, nil
}

// GetMaster returns a master task with its children.
func (s *TaskService) GetMaster(ctx context.Context, actor access.Actor, orgID, id string) (*MasterView, error) {
	master, err := s.loadMaster(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanReadTask(actor, master, orgID); err != nil {
		return nil, err
	}
	children, err := s.store.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MasterView{Master: master, Children: children}, nil
}

// DeleteMaster removes a master task and all its children.
func (s *TaskService) DeleteMaster(ctx context.Context, actor access.Actor, orgID, id string) error {
	master, err := s.loadMaster(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanDeleteTask(actor, master, orgID); err != nil {
		return err
	}
	return s.cascadeDelete(ctx, actor, master)
}

// UpdateStatus applies a direct status override.
func (s *TaskService) UpdateStatus(ctx context.Context, actor access.Actor, id string, status models.TaskStatus) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanUpdateStatus(actor, task); err != nil {
		return nil, err
	}
	if err := lifecycle.SetStatus(task, status); err != nil {
		return nil, err
	}
	return s.saveAndPublish(ctx, actor, task, realtime.TaskStatusChanged)
}

// UpdateChecklist merges a full submitted checklist into the task.
func (s *TaskService) UpdateChecklist(ctx context.Context, actor access.Actor, id string, items []lifecycle.ChecklistInput) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanUpdateChecklist(actor, task); err != nil {
		return nil, err
	}
	lifecycle.ApplyChecklistUpdate(task, items, actor.UserID)
	return s.saveAndPublish(ctx, actor, task, realtime.TaskChecklistUpdated)
}

// Review records an admin's approve or reject decision.
func (s *TaskService) Review(ctx context.Context, actor access.Actor, id string, action lifecycle.ReviewAction) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanReview(actor, task); err != nil {
		return nil, err
	}
	if err := lifecycle.Review(task, action, actor.UserID); err != nil {
		return nil, err
	}
	return s.saveAndPublish(ctx, actor, task, realtime.TaskReviewed)
}

func (s *TaskService) saveAndPublish(ctx context.Context, actor access.Actor, task *models.Task, evt realtime.EventType) (*models.Task, error) {
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	saved, err := s.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(realtime.Event{Type: evt, TaskID: saved.ID, OrganizationID: saved.OrganizationID, ActorID: actor.UserID}, audience(saved)...)
	return saved, nil
}
