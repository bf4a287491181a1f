package api

import (
	"net/http"
	"strconv"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/gin-gonic/gin"
)

type createVesselRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Make        string `json:"make" binding:"max=128"`
	Model       string `json:"model" binding:"max=128"`
	Year        *int   `json:"year" binding:"omitempty,min=1900,max=2100"`
	Description string `json:"description"`
	Location    string `json:"location" binding:"max=255"`
}

type updateVesselRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Make        *string `json:"make" binding:"omitempty,max=128"`
	Model       *string `json:"model" binding:"omitempty,max=128"`
	Year        *int    `json:"year" binding:"omitempty,min=1900,max=2100"`
	Description *string `json:"description"`
	Location    *string `json:"location" binding:"omitempty,max=255"`
}

type commentRequest struct {
	Body string `json:"body" binding:"required"`
}

func handleListVessels(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		vessels, err := vessel.List(e.db, vessel.ListFilters{
			OrgID:           auth.FromContext(c).OrgID,
			IncludeArchived: c.Query("archived") == "true",
		})
		if err != nil {
			e.respondError(c, "handleListVessels", err)
			return
		}
		out := make([]vesselView, 0, len(vessels))
		for i := range vessels {
			out = append(out, viewVessel(&vessels[i]))
		}
		c.JSON(http.StatusOK, gin.H{"vessels": out})
	}
}

func handleCreateVessel(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createVesselRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		v, err := vessel.Create(e.db, vessel.CreateOpts{
			OrgID:       auth.FromContext(c).OrgID,
			Name:        req.Name,
			Make:        req.Make,
			Model:       req.Model,
			Year:        req.Year,
			Description: req.Description,
			Location:    req.Location,
		})
		if err != nil {
			e.respondError(c, "handleCreateVessel", err)
			return
		}
		c.JSON(http.StatusCreated, viewVessel(v))
	}
}

func handleGetVessel(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewVessel(v))
	}
}

func handleUpdateVessel(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateVesselRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		v, err := vessel.Update(e.db, auth.FromContext(c).OrgID, c.Param("id"), vessel.UpdateOpts{
			Name:        req.Name,
			Make:        req.Make,
			Model:       req.Model,
			Year:        req.Year,
			Description: req.Description,
			Location:    req.Location,
		})
		if err != nil {
			e.respondError(c, "handleUpdateVessel", err)
			return
		}
		c.JSON(http.StatusOK, viewVessel(v))
	}
}

func handleArchiveVessel(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := vessel.Archive(e.db, auth.FromContext(c).OrgID, id); err != nil {
			e.respondError(c, "handleArchiveVessel", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), id)
		c.Status(http.StatusNoContent)
	}
}

// handleVesselStatus returns the dashboard summary: total hours, task
// counts by due state and inventory shortfall.
func handleVesselStatus(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		summary, err := e.cache.Get(c.Request.Context(), e.db, v.ID)
		if err != nil {
			e.respondError(c, "handleVesselStatus", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func handleListComments(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		comments, err := vessel.ListComments(e.db, v.ID)
		if err != nil {
			e.respondError(c, "handleListComments", err)
			return
		}
		out := make([]commentView, 0, len(comments))
		for i := range comments {
			out = append(out, viewComment(&comments[i]))
		}
		c.JSON(http.StatusOK, gin.H{"comments": out})
	}
}

func handleAddComment(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req commentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		m, err := vessel.AddComment(e.db, v.ID, auth.FromContext(c).UserID(), req.Body)
		if err != nil {
			e.respondError(c, "handleAddComment", err)
			return
		}
		c.JSON(http.StatusCreated, viewComment(m))
	}
}

func handleDeleteComment(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		cid, err := strconv.ParseUint(c.Param("cid"), 10, 64)
		if err != nil {
			e.respondError(c, "handleDeleteComment", apperr.Validation("invalid comment id: %s", c.Param("cid")))
			return
		}
		if err := vessel.DeleteComment(e.db, v.ID, uint(cid), auth.FromContext(c).UserID()); err != nil {
			e.respondError(c, "handleDeleteComment", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
