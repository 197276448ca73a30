package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/lifecycle"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/realtime"
	"org-task-management-api/internal/saga"
	"org-task-management-api/internal/store"
	"org-task-management-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
	to     [][]string
}

func (r *recorder) Publish(evt realtime.Event, userIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	r.to = append(r.to, userIDs)
}

func (r *recorder) types() []realtime.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	store  *store.Store
	tasks  *TaskService
	events *recorder
}

// newFixture seeds org1 (alice admin, bob and carol members) and org2 (dave admin).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	testutil.SeedOrg(t, db, "org1", "alice")
	testutil.SeedOrg(t, db, "org2", "dave")
	testutil.SeedUser(t, db, "alice", "Alice", map[string]models.OrgRole{"org1": models.RoleAdmin})
	testutil.SeedUser(t, db, "bob", "Bob", map[string]models.OrgRole{"org1": models.RoleMember})
	testutil.SeedUser(t, db, "carol", "Carol", map[string]models.OrgRole{"org1": models.RoleMember})
	testutil.SeedUser(t, db, "dave", "Dave", map[string]models.OrgRole{"org2": models.RoleAdmin})

	st := store.New(db)
	rec := &recorder{}
	return &fixture{db: db, store: st, tasks: NewTaskService(st, rec), events: rec}
}

func (f *fixture) actor(t *testing.T, id string) access.Actor {
	t.Helper()
	u, err := f.store.GetUserWithMemberships(context.Background(), id)
	require.NoError(t, err)
	return access.ActorFromUser(u)
}

// failWrites installs a trigger that aborts matching writes with "injected failure".
func (f *fixture) failWrites(t *testing.T, name, event, table, when string) {
	t.Helper()
	cond := ""
	if when != "" {
		cond = " WHEN " + when
	}
	stmt := fmt.Sprintf("CREATE TRIGGER %s BEFORE %s ON %s%s BEGIN SELECT RAISE(ABORT, 'injected failure'); END", name, event, table, cond)
	require.NoError(t, f.db.Exec(stmt).Error)
}

func (f *fixture) countTasks(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Task{}).Count(&n).Error)
	return n
}

func TestCreateTask_DefaultsToSelfAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.actor(t, "bob"), "org1", CreateTaskInput{Title: "Write notes"})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentMe, task.AssignmentType)
	assert.Equal(t, []string{"bob"}, task.AssigneeIDs())
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, []realtime.EventType{realtime.TaskCreated}, f.events.types())
}

func TestCreateTask_RejectsCrossOrgAssignee(t *testing.T) {
	f := newFixture(t)

	_, err := f.tasks.Create(context.Background(), f.actor(t, "alice"), "org1", CreateTaskInput{
		Title:      "Leak",
		AssignedTo: []string{"bob", "dave"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CrossOrgAssignment, apperr.KindOf(err))
	assert.Zero(t, f.countTasks(t))
	assert.Empty(t, f.events.types())
}

func TestCreateTask_RequiresMembershipAndOrgContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, f.actor(t, "dave"), "org1", CreateTaskInput{Title: "x"})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	_, err = f.tasks.Create(ctx, f.actor(t, "alice"), "", CreateTaskInput{Title: "x"})
	assert.Equal(t, apperr.MissingOrgContext, apperr.KindOf(err))
}

func TestCreateTask_IndividualFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := testutil.Day(3)

	master, err := f.tasks.Create(ctx, f.actor(t, "alice"), "org1", CreateTaskInput{
		Title:          "Quarterly report",
		Priority:       models.PriorityHigh,
		DueDate:        due,
		AssignedTo:     []string{"bob", "carol"},
		AssignmentType: models.AssignmentIndividual,
		TodoChecklist:  []string{"Draft", "Review"},
	})
	require.NoError(t, err)
	require.True(t, master.IsMaster())

	view, err := f.tasks.GetMaster(ctx, f.actor(t, "alice"), "org1", master.ID)
	require.NoError(t, err)
	require.Len(t, view.Children, 2)

	owners := map[string]bool{}
	for _, child := range view.Children {
		require.NotNil(t, child.ParentTaskID)
		assert.Equal(t, master.ID, *child.ParentTaskID)
		require.Len(t, child.AssignedTo, 1)
		owners[child.AssignedTo[0].ID] = true
		assert.Equal(t, "Quarterly report", child.Title)
		assert.Equal(t, models.PriorityHigh, child.Priority)
		assert.Len(t, child.TodoChecklist, 2)
		assert.Equal(t, "Draft", child.TodoChecklist[0].Text)
	}
	assert.Equal(t, map[string]bool{"bob": true, "carol": true}, owners)
}

func TestDeleteMaster_CascadesToChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, "alice")

	other, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{Title: "Unrelated", AssignedTo: []string{"bob"}})
	require.NoError(t, err)
	master, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{
		Title:          "Fan out",
		AssignedTo:     []string{"bob", "carol", "alice"},
		AssignmentType: models.AssignmentIndividual,
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), f.countTasks(t))

	require.NoError(t, f.tasks.Delete(ctx, alice, "org1", master.ID))
	assert.Equal(t, int64(1), f.countTasks(t))

	_, err = f.store.GetTask(ctx, other.ID)
	assert.NoError(t, err)
	children, err := f.store.ListChildren(ctx, master.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDeleteMaster_RestoresChildrenWhenMasterDeleteFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, "alice")

	master, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{
		Title:          "Fan out",
		AssignedTo:     []string{"bob", "carol"},
		AssignmentType: models.AssignmentIndividual,
		TodoChecklist:  []string{"Draft", "Review"},
	})
	require.NoError(t, err)
	before, err := f.store.ListChildren(ctx, master.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)

	var bobChild models.Task
	for _, child := range before {
		if child.AssigneeIDs()[0] == "bob" {
			bobChild = child
		}
	}
	_, err = f.tasks.UpdateChecklist(ctx, f.actor(t, "bob"), bobChild.ID, []lifecycle.ChecklistInput{
		{ID: bobChild.TodoChecklist[0].ID, Text: "Draft", Completed: true},
		{ID: bobChild.TodoChecklist[1].ID, Text: "Review"},
	})
	require.NoError(t, err)

	f.failWrites(t, "keep_master", "DELETE", "tasks", fmt.Sprintf("OLD.id = '%s'", master.ID))
	recorded := len(f.events.types())

	err = f.tasks.Delete(ctx, alice, "org1", master.ID)
	var sagaErr *saga.Error
	require.True(t, errors.As(err, &sagaErr), "got %v", err)
	assert.Equal(t, "delete master "+master.ID, sagaErr.Step)
	assert.ElementsMatch(t, []string{"delete child " + before[0].ID, "delete child " + before[1].ID}, sagaErr.Compensated)
	assert.Empty(t, sagaErr.Applied)
	assert.Empty(t, sagaErr.CompensationErrs)
	assert.Len(t, f.events.types(), recorded)

	assert.Equal(t, int64(3), f.countTasks(t))
	restored, err := f.store.GetTask(ctx, bobChild.ID)
	require.NoError(t, err)
	require.NotNil(t, restored.ParentTaskID)
	assert.Equal(t, master.ID, *restored.ParentTaskID)
	assert.Equal(t, []string{"bob"}, restored.AssigneeIDs())
	assert.Equal(t, models.StatusInProgress, restored.Status)
	assert.Equal(t, 50, restored.Progress)
	require.Len(t, restored.TodoChecklist, 2)
	assert.True(t, restored.TodoChecklist[0].Completed)
	require.NotNil(t, restored.TodoChecklist[0].CompletedByID)
	assert.Equal(t, "bob", *restored.TodoChecklist[0].CompletedByID)
}

func TestDeleteMaster_RejectsPlainTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, "alice")

	task, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{Title: "Plain", AssignedTo: []string{"bob"}})
	require.NoError(t, err)

	err = f.tasks.DeleteMaster(ctx, alice, "org1", task.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestUpdate_OnlyCreatorInSameOrg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.actor(t, "alice"), "org1", CreateTaskInput{Title: "Mine", AssignedTo: []string{"bob"}})
	require.NoError(t, err)

	title := "Theirs"
	_, err = f.tasks.Update(ctx, f.actor(t, "bob"), "org1", task.ID, UpdateTaskInput{Title: &title})
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	_, err = f.tasks.Update(ctx, f.actor(t, "alice"), "org2", task.ID, UpdateTaskInput{Title: &title})
	assert.Equal(t, apperr.WrongOrganization, apperr.KindOf(err))

	err = f.tasks.Delete(ctx, f.actor(t, "alice"), "", task.ID)
	assert.Equal(t, apperr.MissingOrgContext, apperr.KindOf(err))
}

func TestUpdate_PropagatesMasterEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, "alice")

	master, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{
		Title:          "Original",
		AssignedTo:     []string{"bob", "carol"},
		AssignmentType: models.AssignmentIndividual,
	})
	require.NoError(t, err)

	title := "Renamed"
	high := models.PriorityHigh
	assignees := []string{"bob", "alice"}
	_, err = f.tasks.Update(ctx, alice, "org1", master.ID, UpdateTaskInput{
		Title:      &title,
		Priority:   &high,
		AssignedTo: &assignees,
	})
	require.NoError(t, err)

	children, err := f.store.ListChildren(ctx, master.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	owners := map[string]bool{}
	for _, child := range children {
		owners[child.AssignedTo[0].ID] = true
		assert.Equal(t, "Renamed", child.Title)
		assert.Equal(t, models.PriorityHigh, child.Priority)
	}
	assert.Equal(t, map[string]bool{"bob": true, "alice": true}, owners)
}

func TestUpdate_ReportsPartialChildPropagation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, "alice")

	master, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{
		Title:          "Original",
		AssignedTo:     []string{"bob", "carol"},
		AssignmentType: models.AssignmentIndividual,
	})
	require.NoError(t, err)
	children, err := f.store.ListChildren(ctx, master.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	first, last := children[0], children[1]
	f.failWrites(t, "freeze_child", "UPDATE", "tasks", fmt.Sprintf("OLD.id = '%s'", last.ID))

	title := "Renamed"
	_, err = f.tasks.Update(ctx, alice, "org1", master.ID, UpdateTaskInput{Title: &title})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "children are out of sync")
	var sagaErr *saga.Error
	require.True(t, errors.As(err, &sagaErr), "got %v", err)
	assert.Equal(t, "propagate-master-edit", sagaErr.Saga)
	assert.Equal(t, "update child "+last.ID, sagaErr.Step)
	assert.Equal(t, []string{"update child " + first.ID}, sagaErr.Applied)
	assert.Empty(t, sagaErr.Compensated)
	assert.True(t, sagaErr.Partial())

	saved, err := f.store.GetTask(ctx, master.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", saved.Title)
	updated, err := f.store.GetTask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	stale, err := f.store.GetTask(ctx, last.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", stale.Title)
}

func TestChecklistAndReviewFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.actor(t, "alice"), f.actor(t, "bob")

	task, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{
		Title:         "Ship feature",
		AssignedTo:    []string{"bob"},
		TodoChecklist: []string{"Design", "Build"},
	})
	require.NoError(t, err)
	design, build := task.TodoChecklist[0], task.TodoChecklist[1]

	task, err = f.tasks.UpdateChecklist(ctx, bob, task.ID, []lifecycle.ChecklistInput{
		{ID: design.ID, Text: "Design", Completed: true},
		{ID: build.ID, Text: "Build"},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, task.Progress)
	assert.Equal(t, models.StatusInProgress, task.Status)
	require.NotNil(t, task.TodoChecklist[0].CompletedBy)
	assert.Equal(t, "bob", task.TodoChecklist[0].CompletedBy.ID)

	task, err = f.tasks.UpdateChecklist(ctx, bob, task.ID, []lifecycle.ChecklistInput{
		{ID: design.ID, Text: "Design", Completed: true},
		{ID: build.ID, Text: "Build", Completed: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, models.StatusInReview, task.Status)

	_, err = f.tasks.Review(ctx, bob, task.ID, lifecycle.ActionApprove)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	task, err = f.tasks.Review(ctx, alice, task.ID, lifecycle.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, "bob", task.TodoChecklist[0].CompletedBy.ID)

	_, err = f.tasks.UpdateChecklist(ctx, f.actor(t, "carol"), task.ID, nil)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
}

func TestUpdateStatus_CompletedForcesChecklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.actor(t, "alice"), "org1", CreateTaskInput{
		Title:         "Force",
		AssignedTo:    []string{"bob"},
		TodoChecklist: []string{"One", "Two"},
	})
	require.NoError(t, err)

	task, err = f.tasks.UpdateStatus(ctx, f.actor(t, "bob"), task.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)
	for _, item := range task.TodoChecklist {
		assert.True(t, item.Completed)
		assert.Nil(t, item.CompletedBy)
	}

	_, err = f.tasks.UpdateStatus(ctx, f.actor(t, "bob"), task.ID, "Done")
	assert.Equal(t, apperr.ValidationError, apperr.KindOf(err))
}

func TestList_ScopesAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.actor(t, "alice"), f.actor(t, "bob")

	_, err := f.tasks.Create(ctx, alice, "org1", CreateTaskInput{Title: "Group", AssignedTo: []string{"bob", "carol"}})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, alice, "org1", CreateTaskInput{
		Title:          "Individual",
		AssignedTo:     []string{"bob", "carol"},
		AssignmentType: models.AssignmentIndividual,
	})
	require.NoError(t, err)
	mine, err := f.tasks.Create(ctx, bob, "org1", CreateTaskInput{Title: "Bob's own"})
	require.NoError(t, err)
	_, err = f.tasks.UpdateStatus(ctx, bob, mine.ID, models.StatusInReview)
	require.NoError(t, err)

	adminList, err := f.tasks.List(ctx, alice, "org1", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, adminList.Tasks, 2, "admin sees created tasks without children")
	assert.Equal(t, int64(2), adminList.StatusSummary.All)

	bobList, err := f.tasks.List(ctx, bob, "org1", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, bobList.Tasks, 3, "group task, own child and own task")
	assert.Equal(t, int64(1), bobList.StatusSummary.InReviewTasks)
	assert.Equal(t, int64(2), bobList.StatusSummary.PendingTasks)

	filtered, err := f.tasks.List(ctx, bob, "org1", ListOptions{Status: models.StatusInReview})
	require.NoError(t, err)
	require.Len(t, filtered.Tasks, 1)
	assert.Equal(t, int64(3), filtered.StatusSummary.All, "summary ignores the status filter")

	_, err = f.tasks.List(ctx, bob, "", ListOptions{})
	assert.Equal(t, apperr.MissingOrgContext, apperr.KindOf(err))
}

func TestGet_ReadAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.actor(t, "bob"), "org1", CreateTaskInput{Title: "Private"})
	require.NoError(t, err)

	_, err = f.tasks.Get(ctx, f.actor(t, "alice"), "org1", task.ID)
	assert.NoError(t, err, "org admin may read")
	_, err = f.tasks.Get(ctx, f.actor(t, "carol"), "org1", task.ID)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	_, err = f.tasks.Get(ctx, f.actor(t, "bob"), "org2", task.ID)
	assert.Equal(t, apperr.WrongOrganization, apperr.KindOf(err))
	_, err = f.tasks.Get(ctx, f.actor(t, "bob"), "org1", "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
