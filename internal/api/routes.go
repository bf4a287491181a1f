package api

import (
	"net/http"

	"github.com/bosunhq/bosun/internal/auth"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, e *env, issuer *auth.Issuer) {
	router.GET("/healthz", handleHealth(e))

	v1 := router.Group("/api/v1", auth.Middleware(issuer))
	edit := auth.RequireRole(auth.RoleManager)

	// Vessels.
	v1.GET("/vessels", handleListVessels(e))
	v1.POST("/vessels", edit, handleCreateVessel(e))
	v1.GET("/vessels/:id", handleGetVessel(e))
	v1.PATCH("/vessels/:id", edit, handleUpdateVessel(e))
	v1.DELETE("/vessels/:id", edit, handleArchiveVessel(e))
	v1.GET("/vessels/:id/status", handleVesselStatus(e))
	v1.GET("/vessels/:id/comments", handleListComments(e))
	v1.POST("/vessels/:id/comments", handleAddComment(e))
	v1.DELETE("/vessels/:id/comments/:cid", handleDeleteComment(e))

	// Trips.
	v1.GET("/vessels/:id/trips", handleListTrips(e))
	v1.POST("/vessels/:id/trips", edit, handleLogTrip(e))
	v1.PATCH("/trips/:id", edit, handleUpdateTrip(e))
	v1.DELETE("/trips/:id", edit, handleDeleteTrip(e))

	// Inventory.
	v1.GET("/vessels/:id/groups", handleListGroups(e))
	v1.POST("/vessels/:id/groups", edit, handleCreateGroup(e))
	v1.PATCH("/groups/:id", edit, handleUpdateGroup(e))
	v1.DELETE("/groups/:id", edit, handleDeleteGroup(e))
	v1.GET("/vessels/:id/requirements", handleListRequirements(e))
	v1.POST("/vessels/:id/requirements", edit, handleCreateRequirement(e))
	v1.POST("/vessels/:id/requirements/reorder", edit, handleReorderRequirements(e))
	v1.PATCH("/requirements/:id", edit, handleUpdateRequirement(e))
	v1.DELETE("/requirements/:id", edit, handleDeleteRequirement(e))
	v1.GET("/requirements/:id/history", handleRequirementHistory(e))
	v1.GET("/requirements/:id/adjustments", handleRequirementAdjustments(e))

	// Inventory checks. Any role may run a check.
	v1.GET("/vessels/:id/checks", handleListChecks(e))
	v1.POST("/vessels/:id/checks", handleCreateCheck(e))
	v1.GET("/vessels/:id/checks/current", handleCurrentCheck(e))
	v1.GET("/checks/:id", handleGetCheck(e))
	v1.PUT("/checks/:id/lines", handleUpsertLines(e))
	v1.POST("/checks/:id/submit", handleSubmitCheck(e))

	// Maintenance.
	v1.GET("/vessels/:id/tasks", handleListTasks(e))
	v1.POST("/vessels/:id/tasks", edit, handleCreateTask(e))
	v1.POST("/vessels/:id/tasks/reorder", edit, handleReorderTasks(e))
	v1.PATCH("/tasks/:id", edit, handleUpdateTask(e))
	v1.DELETE("/tasks/:id", edit, handleDeleteTask(e))
	v1.GET("/tasks/:id/logs", handleListTaskLogs(e))
	v1.POST("/tasks/:id/logs", handleLogCompletion(e))
}

func handleHealth(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := e.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
