package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/tasks"
)

const taskStatusTimeout = 5 * time.Second

// TasksController handles task queue management endpoints.
type TasksController struct {
	client *tasks.Client
	types  []tasks.TaskType
}

func NewTasksController(client *tasks.Client, types []tasks.TaskType) *TasksController {
	return &TasksController{
		client: client,
		types:  types,
	}
}

// ListTaskTypes handles GET /api/tasks/types.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": tc.types})
}

// GetTaskStatus handles GET /api/tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), taskStatusTimeout)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusName(status),
	})
}

// RunTask handles POST /api/tasks/:type/run.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")
	tt, ok := tasks.LookupTaskType(tc.types, taskType)
	if !ok {
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	ids, err := tc.client.Add(tt.New()).Ctx(c.Request.Context()).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	respondAccepted(c, "task enqueued", gin.H{
		"task_id": ids[0],
		"type":    taskType,
	})
}
