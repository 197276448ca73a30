package lifecycle

import (
	"fmt"
	"testing"

	"org-task-management-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// sequentialIDs makes NewID return id-1, id-2, ... for the rest of the test.
func sequentialIDs(t *testing.T) {
	t.Helper()
	orig := NewID
	n := 0
	NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { NewID = orig })
}

func items(completed ...bool) []models.ChecklistItem {
	out := make([]models.ChecklistItem, 0, len(completed))
	for i, c := range completed {
		out = append(out, models.ChecklistItem{ID: fmt.Sprintf("i-%d", i), Text: fmt.Sprintf("item %d", i), Completed: c})
	}
	return out
}

func TestProgressAndStatus_AllSizes(t *testing.T) {
	for n := 0; n <= 7; n++ {
		for k := 0; k <= n; k++ {
			flags := make([]bool, n)
			for i := 0; i < k; i++ {
				flags[i] = true
			}
			list := items(flags...)

			wantProgress := 0
			if n > 0 {
				wantProgress = int(float64(100*k)/float64(n) + 0.5)
			}
			require.Equal(t, wantProgress, Progress(list), "n=%d k=%d", n, k)

			var want models.TaskStatus
			switch {
			case k == 0:
				want = models.StatusPending
			case k < n:
				want = models.StatusInProgress
			default:
				want = models.StatusInReview
			}
			require.Equal(t, want, DeriveStatus(list), "n=%d k=%d", n, k)
		}
	}
}

func TestProgress_Rounding(t *testing.T) {
	assert.Equal(t, 33, Progress(items(true, false, false)))
	assert.Equal(t, 67, Progress(items(true, true, false)))
	assert.Equal(t, 0, Progress(nil))
}

func TestMergeChecklist_StampsNewlyCompleted(t *testing.T) {
	existing := items(false, false)
	incoming := []ChecklistInput{
		{ID: "i-0", Text: "item 0", Completed: true},
		{ID: "i-1", Text: "item 1", Completed: false},
	}

	merged, flips := MergeChecklist(existing, incoming, "u1")

	require.Len(t, merged, 2)
	require.NotNil(t, merged[0].CompletedByID)
	assert.Equal(t, "u1", *merged[0].CompletedByID)
	assert.Nil(t, merged[1].CompletedByID)
	require.Len(t, flips, 1)
	assert.Equal(t, Flip{ItemID: "i-0", Text: "item 0", Completed: true}, flips[0])
}

func TestMergeChecklist_PreservesOriginalCompleter(t *testing.T) {
	existing := items(true)
	existing[0].CompletedByID = strPtr("u1")

	merged, flips := MergeChecklist(existing, []ChecklistInput{{ID: "i-0", Text: "item 0", Completed: true}}, "u2")

	require.Equal(t, "u1", *merged[0].CompletedByID)
	assert.Empty(t, flips)
}

func TestMergeChecklist_UncompleteClearsCompleter(t *testing.T) {
	existing := items(true)
	existing[0].CompletedByID = strPtr("u1")

	merged, flips := MergeChecklist(existing, []ChecklistInput{{ID: "i-0", Text: "item 0", Completed: false}}, "u2")

	assert.False(t, merged[0].Completed)
	assert.Nil(t, merged[0].CompletedByID)
	require.Len(t, flips, 1)
	assert.False(t, flips[0].Completed)
}

func TestMergeChecklist_MatchesByTextWhenIDMissing(t *testing.T) {
	existing := items(true, false)
	existing[0].CompletedByID = strPtr("u1")

	merged, _ := MergeChecklist(existing, []ChecklistInput{
		{Text: "item 0", Completed: true},
		{Text: "item 1", Completed: false},
		{Text: "brand new", Completed: false},
	}, "u2")

	require.Len(t, merged, 3)
	assert.Equal(t, "i-0", merged[0].ID)
	assert.Equal(t, "u1", *merged[0].CompletedByID)
	assert.Equal(t, "i-1", merged[1].ID)
	assert.NotEmpty(t, merged[2].ID)
	assert.NotEqual(t, "i-0", merged[2].ID)
	assert.Equal(t, 2, merged[2].Position)
}

func TestMergeChecklist_IDClaimsBeforeTextFallback(t *testing.T) {
	sequentialIDs(t)
	existing := []models.ChecklistItem{{ID: "A", Text: "Design", Completed: true, CompletedByID: strPtr("u1")}}

	merged, flips := MergeChecklist(existing, []ChecklistInput{
		{Text: "Design", Completed: true},
		{ID: "A", Text: "Design", Completed: true},
	}, "u2")

	require.Len(t, merged, 2)
	assert.Equal(t, "id-1", merged[0].ID)
	assert.Equal(t, "u2", *merged[0].CompletedByID)
	assert.Equal(t, "A", merged[1].ID)
	assert.Equal(t, "u1", *merged[1].CompletedByID)
	assert.Equal(t, 1, merged[1].Position)
	require.Len(t, flips, 1)
	assert.Equal(t, Flip{ItemID: "id-1", Text: "Design", Completed: true}, flips[0])
}

func TestMergeChecklist_DropsOmittedItems(t *testing.T) {
	existing := items(false, true, false)

	merged, _ := MergeChecklist(existing, []ChecklistInput{{ID: "i-2", Text: "item 2"}}, "u1")

	require.Len(t, merged, 1)
	assert.Equal(t, "i-2", merged[0].ID)
	assert.Equal(t, 0, merged[0].Position)
}

func TestApplyChecklistUpdate_Idempotent(t *testing.T) {
	task := &models.Task{ID: "t1", TodoChecklist: items(false, false)}
	payload := []ChecklistInput{
		{ID: "i-0", Text: "item 0", Completed: true},
		{ID: "i-1", Text: "item 1", Completed: false},
	}

	ApplyChecklistUpdate(task, payload, "u1")
	first := *task.TodoChecklist[0].CompletedByID

	flips := ApplyChecklistUpdate(task, payload, "u2")

	assert.Empty(t, flips)
	assert.Equal(t, first, *task.TodoChecklist[0].CompletedByID)
	assert.Equal(t, 50, task.Progress)
	assert.Equal(t, models.StatusInProgress, task.Status)
}

func TestApplyChecklistUpdate_DesignBuildScenario(t *testing.T) {
	task := &models.Task{ID: "t1", Status: models.StatusPending}
	task.TodoChecklist = NewChecklist(task.ID, []string{"Design", "Build"})
	design, build := task.TodoChecklist[0].ID, task.TodoChecklist[1].ID

	ApplyChecklistUpdate(task, []ChecklistInput{
		{ID: design, Text: "Design", Completed: true},
		{ID: build, Text: "Build"},
	}, "u1")
	require.Equal(t, 50, task.Progress)
	require.Equal(t, models.StatusInProgress, task.Status)
	require.Equal(t, "u1", *task.TodoChecklist[0].CompletedByID)

	ApplyChecklistUpdate(task, []ChecklistInput{
		{ID: design, Text: "Design", Completed: true},
		{ID: build, Text: "Build", Completed: true},
	}, "u1")
	require.Equal(t, 100, task.Progress)
	require.Equal(t, models.StatusInReview, task.Status)

	require.NoError(t, Review(task, ActionApprove, "admin"))
	require.Equal(t, models.StatusCompleted, task.Status)
	require.Equal(t, 100, task.Progress)
	// Items were closed by u1, so the approval credits nobody else.
	require.Equal(t, "u1", *task.TodoChecklist[1].CompletedByID)
}

func TestApplyChecklistUpdate_UncompleteLeavesReview(t *testing.T) {
	task := &models.Task{ID: "t1", TodoChecklist: items(true, true), Status: models.StatusInReview, Progress: 100}

	ApplyChecklistUpdate(task, []ChecklistInput{
		{ID: "i-0", Text: "item 0", Completed: true},
		{ID: "i-1", Text: "item 1", Completed: false},
	}, "u1")

	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, 50, task.Progress)
}

func TestApplyChecklistUpdate_EmptyListIsPending(t *testing.T) {
	task := &models.Task{ID: "t1", TodoChecklist: items(true), Status: models.StatusInReview, Progress: 100}

	ApplyChecklistUpdate(task, nil, "u1")

	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Empty(t, task.TodoChecklist)
}
