package api

import (
	"net/http"
	"time"

	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/trip"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type logTripRequest struct {
	Hours    decimal.Decimal `json:"hours"`
	LoggedAt *time.Time      `json:"logged_at"`
	Note     string          `json:"note"`
}

type updateTripRequest struct {
	Hours    *decimal.Decimal `json:"hours"`
	LoggedAt *time.Time       `json:"logged_at"`
	Note     *string          `json:"note"`
}

func handleListTrips(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		trips, err := trip.List(e.db, v.ID, queryLimit(c))
		if err != nil {
			e.respondError(c, "handleListTrips", err)
			return
		}
		total, err := trip.TotalHours(e.db, v.ID)
		if err != nil {
			e.respondError(c, "handleListTrips", err)
			return
		}
		out := make([]tripView, 0, len(trips))
		for i := range trips {
			out = append(out, viewTrip(&trips[i]))
		}
		c.JSON(http.StatusOK, gin.H{"total_hours": total, "trips": out})
	}
}

func handleLogTrip(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req logTripRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		opts := trip.LogOpts{
			VesselID:  v.ID,
			Hours:     req.Hours,
			Note:      req.Note,
			CreatedBy: auth.FromContext(c).UserID(),
		}
		if req.LoggedAt != nil {
			opts.LoggedAt = *req.LoggedAt
		}
		t, err := trip.Log(e.db, opts)
		if err != nil {
			e.respondError(c, "handleLogTrip", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), v.ID)
		c.JSON(http.StatusCreated, viewTrip(t))
	}
}

// tripFor loads a trip whose vessel is in the caller's organization.
func (e *env) tripFor(c *gin.Context, id string) (string, bool) {
	t, err := trip.Get(e.db, id)
	if err != nil {
		e.respondError(c, "tripFor", err)
		return "", false
	}
	if !e.scoped(c, t.VesselID, "trip", id) {
		return "", false
	}
	return t.VesselID, true
}

func handleUpdateTrip(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.tripFor(c, id)
		if !ok {
			return
		}
		var req updateTripRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		t, err := trip.Update(e.db, id, trip.UpdateOpts{
			Hours:    req.Hours,
			LoggedAt: req.LoggedAt,
			Note:     req.Note,
			Actor:    auth.FromContext(c).UserID(),
		})
		if err != nil {
			e.respondError(c, "handleUpdateTrip", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.JSON(http.StatusOK, viewTrip(t))
	}
}

func handleDeleteTrip(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.tripFor(c, id)
		if !ok {
			return
		}
		if err := trip.Delete(e.db, id, auth.FromContext(c).UserID()); err != nil {
			e.respondError(c, "handleDeleteTrip", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.Status(http.StatusNoContent)
	}
}
