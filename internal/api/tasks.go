package api

import (
	"net/http"
	"time"

	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createTaskRequest struct {
	Name          string             `json:"name" binding:"required,max=255"`
	Description   string             `json:"description"`
	CadenceType   models.CadenceType `json:"cadence_type" binding:"required,cadence"`
	IntervalDays  *int               `json:"interval_days" binding:"omitempty,min=1"`
	IntervalHours *decimal.Decimal   `json:"interval_hours"`
	DueDate       *time.Time         `json:"due_date"`
	NextDueAt     *time.Time         `json:"next_due_at"`
	Critical      bool               `json:"critical"`
	IsActive      *bool              `json:"is_active"`
}

type updateTaskRequest struct {
	Name               *string             `json:"name" binding:"omitempty,min=1,max=255"`
	Description        *string             `json:"description"`
	CadenceType        *models.CadenceType `json:"cadence_type" binding:"omitempty,cadence"`
	IntervalDays       *int                `json:"interval_days" binding:"omitempty,min=1"`
	IntervalHours      *decimal.Decimal    `json:"interval_hours"`
	ClearIntervalHours bool                `json:"clear_interval_hours"`
	DueDate            *time.Time          `json:"due_date"`
	NextDueAt          *time.Time          `json:"next_due_at"`
	Critical           *bool               `json:"critical"`
	IsActive           *bool               `json:"is_active"`
}

type taskReorderRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,required"`
}

type completionRequest struct {
	PerformedAt *time.Time `json:"performed_at"`
	Notes       string     `json:"notes"`
}

// handleListTasks lists a vessel's tasks, each with its due state against
// the vessel's current total hours.
func handleListTasks(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		statuses, err := maintenance.EvaluateVessel(e.db, v.ID, time.Now())
		if err != nil {
			e.respondError(c, "handleListTasks", err)
			return
		}
		out := make([]taskView, 0, len(statuses))
		for i := range statuses {
			tv := viewTask(&statuses[i].Task)
			due := statuses[i].Due
			tv.Due = &due
			out = append(out, tv)
		}
		c.JSON(http.StatusOK, gin.H{"tasks": out, "counts": maintenance.Summarize(statuses)})
	}
}

func handleCreateTask(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		task, err := maintenance.Create(e.db, maintenance.CreateOpts{
			VesselID:      v.ID,
			Name:          req.Name,
			Description:   req.Description,
			CadenceType:   req.CadenceType,
			IntervalDays:  req.IntervalDays,
			IntervalHours: req.IntervalHours,
			DueDate:       req.DueDate,
			NextDueAt:     req.NextDueAt,
			Critical:      req.Critical,
			IsActive:      req.IsActive,
		})
		if err != nil {
			e.respondError(c, "handleCreateTask", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), v.ID)
		c.JSON(http.StatusCreated, viewTask(task))
	}
}

func handleReorderTasks(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req taskReorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if err := maintenance.Reorder(e.db, v.ID, req.IDs); err != nil {
			e.respondError(c, "handleReorderTasks", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// taskFor loads a task and checks its vessel is in the caller's
// organization.
func (e *env) taskFor(c *gin.Context, id string) (string, bool) {
	task, err := maintenance.Get(e.db, id)
	if err != nil {
		e.respondError(c, "taskFor", err)
		return "", false
	}
	return task.VesselID, e.scoped(c, task.VesselID, "task", id)
}

func handleUpdateTask(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.taskFor(c, id)
		if !ok {
			return
		}
		var req updateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		task, err := maintenance.Update(e.db, id, maintenance.UpdateOpts{
			Name:               req.Name,
			Description:        req.Description,
			CadenceType:        req.CadenceType,
			IntervalDays:       req.IntervalDays,
			IntervalHours:      req.IntervalHours,
			ClearIntervalHours: req.ClearIntervalHours,
			DueDate:            req.DueDate,
			NextDueAt:          req.NextDueAt,
			Critical:           req.Critical,
			IsActive:           req.IsActive,
		})
		if err != nil {
			e.respondError(c, "handleUpdateTask", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.JSON(http.StatusOK, viewTask(task))
	}
}

func handleDeleteTask(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.taskFor(c, id)
		if !ok {
			return
		}
		if err := maintenance.Delete(e.db, id); err != nil {
			e.respondError(c, "handleDeleteTask", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.Status(http.StatusNoContent)
	}
}

func handleListTaskLogs(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := e.taskFor(c, id); !ok {
			return
		}
		logs, err := maintenance.ListLogs(e.db, id)
		if err != nil {
			e.respondError(c, "handleListTaskLogs", err)
			return
		}
		out := make([]logView, 0, len(logs))
		for i := range logs {
			out = append(out, viewLog(&logs[i]))
		}
		c.JSON(http.StatusOK, gin.H{"logs": out})
	}
}

// handleLogCompletion records a completion by the caller. Any role may
// log one.
func handleLogCompletion(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.taskFor(c, id)
		if !ok {
			return
		}
		var req completionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondBindError(c, err)
				return
			}
		}
		opts := maintenance.LogOpts{
			PerformedBy: auth.FromContext(c).UserID(),
			Notes:       req.Notes,
		}
		if req.PerformedAt != nil {
			opts.PerformedAt = *req.PerformedAt
		}
		entry, err := maintenance.LogCompletion(e.db, id, opts)
		if err != nil {
			e.respondError(c, "handleLogCompletion", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.JSON(http.StatusCreated, viewLog(entry))
	}
}
