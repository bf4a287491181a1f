package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/check"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/gin-gonic/gin"
)

type createCheckRequest struct {
	PerformedAt *time.Time `json:"performed_at"`
	Notes       string     `json:"notes"`
}

type lineRequest struct {
	RequirementID  string               `json:"requirement_id" binding:"required"`
	ActualQuantity int                  `json:"actual_quantity" binding:"min=0"`
	Condition      models.LineCondition `json:"condition" binding:"omitempty,condition"`
	Notes          string               `json:"notes"`
}

type upsertLinesRequest struct {
	Lines []lineRequest `json:"lines" binding:"dive"`
}

func handleListChecks(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		checks, err := check.List(e.db, v.ID, queryLimit(c))
		if err != nil {
			e.respondError(c, "handleListChecks", err)
			return
		}
		out := make([]checkView, 0, len(checks))
		for i := range checks {
			out = append(out, viewCheck(&checks[i]))
		}
		c.JSON(http.StatusOK, gin.H{"checks": out})
	}
}

func handleCreateCheck(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req createCheckRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondBindError(c, err)
				return
			}
		}
		opts := check.CreateOpts{
			VesselID:    v.ID,
			PerformedBy: auth.FromContext(c).UserID(),
			Notes:       req.Notes,
		}
		if req.PerformedAt != nil {
			opts.PerformedAt = *req.PerformedAt
		}
		m, err := check.Create(e.db, opts)
		if err != nil {
			e.respondError(c, "handleCreateCheck", err)
			return
		}
		c.JSON(http.StatusCreated, viewCheck(m))
	}
}

// handleCurrentCheck returns the vessel's open check, or 204 when there is
// none.
func handleCurrentCheck(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		m, err := check.Current(e.db, v.ID)
		if err != nil {
			e.respondError(c, "handleCurrentCheck", err)
			return
		}
		if m == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, viewCheck(m))
	}
}

// checkFor loads a check and checks its vessel is in the caller's
// organization.
func (e *env) checkFor(c *gin.Context, id string) (*models.InventoryCheck, bool) {
	m, err := check.Get(e.db, id)
	if err != nil {
		e.respondError(c, "checkFor", err)
		return nil, false
	}
	return m, e.scoped(c, m.VesselID, "check", id)
}

func handleGetCheck(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := e.checkFor(c, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewCheck(m))
	}
}

func handleUpsertLines(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, ok := e.checkFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req upsertLinesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		lines := make([]check.LineInput, len(req.Lines))
		for i, l := range req.Lines {
			lines[i] = check.LineInput{
				RequirementID:  l.RequirementID,
				ActualQuantity: l.ActualQuantity,
				Condition:      l.Condition,
				Notes:          l.Notes,
			}
		}
		updated, err := check.UpsertLines(e.db, m.ID, lines)
		if err != nil {
			e.respondError(c, "handleUpsertLines", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), m.VesselID)
		c.JSON(http.StatusOK, viewCheck(updated))
	}
}

// handleSubmitCheck closes a check. A missing check is reported as a
// conflict, the same as one already submitted.
func handleSubmitCheck(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		m, err := check.Get(e.db, id)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			e.respondError(c, "handleSubmitCheck", err)
			return
		default:
			if !e.scoped(c, m.VesselID, "check", id) {
				return
			}
		}
		submitted, err := check.Submit(e.db, id)
		if err != nil {
			e.respondError(c, "handleSubmitCheck", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), submitted.VesselID)
		c.JSON(http.StatusOK, viewCheck(submitted))
	}
}
