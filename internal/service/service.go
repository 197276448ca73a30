// Package service implements the API operations on top of the store, the
// lifecycle engine and the access rules. Handlers stay thin and only translate
// HTTP to these calls.
package service

import (
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/realtime"
)

type noopPublisher struct{}

func (noopPublisher) Publish(realtime.Event, ...string) {}

func publisherOrNoop(p realtime.Publisher) realtime.Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// audience is everyone who should hear about a change to task.
func audience(task *models.Task) []string {
	return append([]string{task.CreatedByID}, task.AssigneeIDs()...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func usersFromIDs(ids []string) []models.User {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, models.User{ID: id})
	}
	return users
}
