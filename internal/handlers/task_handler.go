package handlers

import (
	"net/http"
	"strings"

	"org-task-management-api/internal/lifecycle"
	"org-task-management-api/internal/middleware"
	"org-task-management-api/internal/models"
	"org-task-management-api/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks     *service.TaskService
	dashboard *service.DashboardService
}

func NewTaskHandler(tasks *service.TaskService, dashboard *service.DashboardService) *TaskHandler {
	return &TaskHandler{tasks: tasks, dashboard: dashboard}
}

// ChecklistEntry is one todo as submitted by clients.
type ChecklistEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title          string                `json:"title" binding:"required"`
	Description    string                `json:"description"`
	Priority       models.TaskPriority   `json:"priority"`
	DueDate        string                `json:"dueDate"`
	AssignedTo     IDList                `json:"assignedTo"`
	AssignmentType models.AssignmentType `json:"assignmentType"`
	TodoChecklist  []ChecklistEntry      `json:"todoChecklist"`
	Attachments    []models.Attachment   `json:"attachments"`
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title         *string              `json:"title"`
	Description   *string              `json:"description"`
	Priority      *models.TaskPriority `json:"priority"`
	DueDate       *string              `json:"dueDate"`
	AssignedTo    *IDList              `json:"assignedTo"`
	TodoChecklist *[]ChecklistEntry    `json:"todoChecklist"`
	Attachments   *[]models.Attachment `json:"attachments"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

type UpdateChecklistRequest struct {
	TodoChecklist []ChecklistEntry `json:"todoChecklist"`
}

type ReviewRequest struct {
	Action lifecycle.ReviewAction `json:"action" binding:"required"`
}

func checklistInputs(entries []ChecklistEntry) []lifecycle.ChecklistInput {
	out := make([]lifecycle.ChecklistInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, lifecycle.ChecklistInput{ID: e.ID, Text: e.Text, Completed: e.Completed})
	}
	return out
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	todos := make([]string, 0, len(req.TodoChecklist))
	for _, item := range req.TodoChecklist {
		if text := strings.TrimSpace(item.Text); text != "" {
			todos = append(todos, text)
		}
	}

	task, err := h.tasks.Create(c.Request.Context(), a, middleware.OrgID(c), service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		DueDate:        due,
		AssignedTo:     req.AssignedTo,
		AssignmentType: req.AssignmentType,
		TodoChecklist:  todos,
		Attachments:    req.Attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTasks handles GET /api/tasks
// Query params: status, sort (asc|desc on created_at, default desc), assignedTo=me.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	opts := service.ListOptions{
		Status:       models.TaskStatus(c.Query("status")),
		SortAsc:      strings.EqualFold(c.DefaultQuery("sort", "desc"), "asc"),
		AssignedToMe: c.Query("assignedTo") == "me",
	}
	list, err := h.tasks.List(c.Request.Context(), a, middleware.OrgID(c), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetTaskByID handles GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), a, middleware.OrgID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask handles PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Attachments: req.Attachments,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			respondError(c, err)
			return
		}
		in.DueDate = due
	}
	if req.AssignedTo != nil {
		ids := []string(*req.AssignedTo)
		in.AssignedTo = &ids
	}
	if req.TodoChecklist != nil {
		items := checklistInputs(*req.TodoChecklist)
		in.TodoChecklist = &items
	}

	task, err := h.tasks.Update(c.Request.Context(), a, middleware.OrgID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), a, middleware.OrgID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// UpdateTaskStatus handles PUT /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	task, err := h.tasks.UpdateStatus(c.Request.Context(), a, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task status updated", "task": task})
}

// UpdateTaskChecklist handles PUT /api/tasks/:id/todo
func (h *TaskHandler) UpdateTaskChecklist(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	task, err := h.tasks.UpdateChecklist(c.Request.Context(), a, c.Param("id"), checklistInputs(req.TodoChecklist))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task checklist updated", "task": task})
}

// ReviewTask handles PUT /api/tasks/:id/review
func (h *TaskHandler) ReviewTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required")
		return
	}
	task, err := h.tasks.Review(c.Request.Context(), a, c.Param("id"), lifecycle.ReviewAction(strings.ToUpper(string(req.Action))))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task reviewed", "task": task})
}

// GetMasterTask handles GET /api/tasks/master/:id
func (h *TaskHandler) GetMasterTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	view, err := h.tasks.GetMaster(c.Request.Context(), a, middleware.OrgID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteMasterTask handles DELETE /api/tasks/master/:id
func (h *TaskHandler) DeleteMasterTask(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.tasks.DeleteMaster(c.Request.Context(), a, middleware.OrgID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Master task and its children deleted"})
}

// GetDashboardData handles GET /api/tasks/dashboard-data
func (h *TaskHandler) GetDashboardData(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	dash, err := h.dashboard.Admin(c.Request.Context(), a, middleware.OrgID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// GetUserDashboardData handles GET /api/tasks/user-dashboard-data
func (h *TaskHandler) GetUserDashboardData(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	dash, err := h.dashboard.Member(c.Request.Context(), a, middleware.OrgID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
