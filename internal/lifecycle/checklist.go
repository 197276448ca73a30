// Package lifecycle owns every recomputation of a task's progress and status:
// checklist merges, direct status overrides, the admin review gate, and the
// master/child fan-out of individually assigned tasks.
package lifecycle

import (
	"math"

	"org-task-management-api/internal/models"

	"github.com/google/uuid"
)

// NewID generates ids for checklist items and child tasks. Tests swap it for a
// counter to get deterministic ids.
var NewID = uuid.NewString

// ChecklistInput is one entry of a submitted checklist. ID is empty for new items.
type ChecklistInput struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Flip records an item whose completed state changed during a merge.
type Flip struct {
	ItemID    string
	Text      string
	Completed bool
}

// MergeChecklist combines the stored items with a full submitted checklist.
//
// Incoming items carrying a known id claim their stored item first; the rest
// fall back to the first unclaimed stored item with the same text. An item
// that becomes completed is stamped with actorID; one that stays completed
// keeps its original completer; one that becomes incomplete loses it. Output
// order follows incoming.
func MergeChecklist(existing []models.ChecklistItem, incoming []ChecklistInput, actorID string) ([]models.ChecklistItem, []Flip) {
	byID := make(map[string]int, len(existing))
	for i, item := range existing {
		byID[item.ID] = i
	}
	used := make([]bool, len(existing))
	matched := make([]int, len(incoming))
	for pos, in := range incoming {
		matched[pos] = -1
		if in.ID == "" {
			continue
		}
		if i, ok := byID[in.ID]; ok && !used[i] {
			used[i] = true
			matched[pos] = i
		}
	}
	for pos, in := range incoming {
		if matched[pos] >= 0 {
			continue
		}
		for i, item := range existing {
			if !used[i] && item.Text == in.Text {
				used[i] = true
				matched[pos] = i
				break
			}
		}
	}

	merged := make([]models.ChecklistItem, 0, len(incoming))
	var flips []Flip
	for pos, in := range incoming {
		var prev models.ChecklistItem
		if matched[pos] >= 0 {
			prev = existing[matched[pos]]
		}
		item := models.ChecklistItem{
			ID:        prev.ID,
			TaskID:    prev.TaskID,
			Position:  pos,
			Text:      in.Text,
			Completed: in.Completed,
		}
		if matched[pos] < 0 {
			item.ID = NewID()
		}

		switch {
		case in.Completed && prev.Completed:
			item.CompletedByID = prev.CompletedByID
			item.CompletedBy = prev.CompletedBy
		case in.Completed:
			actor := actorID
			item.CompletedByID = &actor
			flips = append(flips, Flip{ItemID: item.ID, Text: item.Text, Completed: true})
		case prev.Completed:
			flips = append(flips, Flip{ItemID: item.ID, Text: item.Text, Completed: false})
		}
		merged = append(merged, item)
	}
	return merged, flips
}

// Progress is the rounded percentage of completed items, 0 for an empty list.
func Progress(items []models.ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	done := 0
	for _, item := range items {
		if item.Completed {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(items))))
}

// DeriveStatus maps checklist completion to a status. A full checklist means
// the task awaits review, never Completed.
func DeriveStatus(items []models.ChecklistItem) models.TaskStatus {
	done := 0
	for _, item := range items {
		if item.Completed {
			done++
		}
	}
	switch {
	case done == 0:
		return models.StatusPending
	case done < len(items):
		return models.StatusInProgress
	default:
		return models.StatusInReview
	}
}

// Recompute rederives progress and status from the task's checklist.
func Recompute(task *models.Task) {
	task.Progress = Progress(task.TodoChecklist)
	task.Status = DeriveStatus(task.TodoChecklist)
}

// ApplyChecklistUpdate merges incoming into the task's checklist on behalf of
// actorID and recomputes progress and status.
func ApplyChecklistUpdate(task *models.Task, incoming []ChecklistInput, actorID string) []Flip {
	merged, flips := MergeChecklist(task.TodoChecklist, incoming, actorID)
	for i := range merged {
		merged[i].TaskID = task.ID
	}
	task.TodoChecklist = merged
	Recompute(task)
	return flips
}

// NewChecklist builds fresh, incomplete items for a task being created.
func NewChecklist(taskID string, texts []string) []models.ChecklistItem {
	items := make([]models.ChecklistItem, 0, len(texts))
	for i, text := range texts {
		items = append(items, models.ChecklistItem{
			ID:       NewID(),
			TaskID:   taskID,
			Position: i,
			Text:     text,
		})
	}
	return items
}
