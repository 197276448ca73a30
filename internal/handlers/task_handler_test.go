package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/auth"
	"org-task-management-api/internal/middleware"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/service"
	"org-task-management-api/internal/store"
	"org-task-management-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaskRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)
	testutil.SeedOrg(t, db, "org-1", "u-1")
	testutil.SeedUser(t, db, "u-1", "alice", map[string]models.OrgRole{"org-1": models.RoleAdmin})
	testutil.SeedUser(t, db, "u-2", "bob", map[string]models.OrgRole{"org-1": models.RoleMember})
	testutil.SeedUser(t, db, "u-3", "eve", nil)

	st := store.New(db)
	h := NewTaskHandler(service.NewTaskService(st, nil), service.NewDashboardService(st))

	r := gin.New()
	r.Use(middleware.JWTAuthMiddleware(), middleware.LoadActor(access.NewResolver(st, 0)), middleware.OrgContext())
	r.POST("/api/tasks", h.CreateTask)
	r.GET("/api/tasks", h.GetTasks)
	r.PUT("/api/tasks/:id/status", h.UpdateTaskStatus)
	return r
}

func send(t *testing.T, r http.Handler, method, path, userID, orgID string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	token, err := auth.GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if orgID != "" {
		req.Header.Set(middleware.OrgHeader, orgID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTask_Success(t *testing.T) {
	r := newTaskRouter(t)

	w := send(t, r, http.MethodPost, "/api/tasks", "u-1", "org-1", map[string]any{
		"title":         "Test Task",
		"description":   "Desc",
		"dueDate":       "2025-01-03",
		"assignedTo":    "u-2",
		"todoChecklist": []map[string]string{{"text": "One"}, {"text": " "}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.AssignedTo, 1)
	assert.Equal(t, "bob", created.AssignedTo[0].Name)
	assert.Len(t, created.TodoChecklist, 1)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, 3, created.DueDate.Day())
}

func TestCreateTask_Errors(t *testing.T) {
	r := newTaskRouter(t)

	w := send(t, r, http.MethodPost, "/api/tasks", "u-1", "org-1", map[string]any{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(t, r, http.MethodPost, "/api/tasks", "u-1", "org-1", map[string]any{"title": "x", "assignedTo": []string{"u-3"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CrossOrgAssignment")

	w = send(t, r, http.MethodPost, "/api/tasks", "u-3", "org-1", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(t, r, http.MethodPost, "/api/tasks", "u-1", "org-1", map[string]any{"title": "x", "dueDate": "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(t, r, http.MethodPost, "/api/tasks", "ghost", "org-1", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTasks_StatusFilterAndSummary(t *testing.T) {
	r := newTaskRouter(t)

	for _, title := range []string{"first", "second"} {
		w := send(t, r, http.MethodPost, "/api/tasks", "u-1", "org-1", map[string]any{"title": title, "assignedTo": []string{"u-2"}})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := send(t, r, http.MethodGet, "/api/tasks?sort=asc", "u-2", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list service.TaskList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 2)
	assert.Equal(t, "first", list.Tasks[0].Title)

	w = send(t, r, http.MethodPut, "/api/tasks/"+list.Tasks[0].ID+"/status", "u-2", "", map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send(t, r, http.MethodGet, "/api/tasks?status=Completed", "u-2", "org-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = service.TaskList{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, int64(2), list.StatusSummary.All)
	assert.Equal(t, int64(1), list.StatusSummary.CompletedTasks)

	w = send(t, r, http.MethodGet, "/api/tasks?status=Done", "u-2", "org-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(t, r, http.MethodGet, "/api/tasks", "u-2", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MissingOrgContext")
}
