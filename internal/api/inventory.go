package api

import (
	"net/http"

	"github.com/bosunhq/bosun/internal/auth"
	"github.com/bosunhq/bosun/internal/consumption"
	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type groupRequest struct {
	Name        string `json:"name" binding:"max=255"`
	Description string `json:"description"`
}

type createRequirementRequest struct {
	ParentGroupID      *string          `json:"parent_group_id"`
	ItemName           string           `json:"item_name" binding:"required,max=255"`
	RequiredQuantity   *int             `json:"required_quantity" binding:"omitempty,min=0"`
	Category           string           `json:"category" binding:"max=64"`
	Critical           bool             `json:"critical"`
	Notes              string           `json:"notes"`
	AutoConsumeEnabled bool             `json:"auto_consume_enabled"`
	ConsumePerHour     *decimal.Decimal `json:"consume_per_hour"`
	CurrentQuantity    *decimal.Decimal `json:"current_quantity"`
}

type updateRequirementRequest struct {
	ItemName           *string          `json:"item_name" binding:"omitempty,min=1,max=255"`
	RequiredQuantity   *int             `json:"required_quantity" binding:"omitempty,min=0"`
	Category           *string          `json:"category" binding:"omitempty,max=64"`
	Critical           *bool            `json:"critical"`
	Notes              *string          `json:"notes"`
	AutoConsumeEnabled *bool            `json:"auto_consume_enabled"`
	ConsumePerHour     *decimal.Decimal `json:"consume_per_hour"`
	ClearConsumeRate   bool             `json:"clear_consume_rate"`
	CurrentQuantity    *decimal.Decimal `json:"current_quantity"`
	MoveToGroup        *string          `json:"move_to_group"`
}

type reorderRequest struct {
	GroupID *string  `json:"group_id"`
	IDs     []string `json:"ids" binding:"required,min=1,dive,required"`
}

func handleListGroups(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		groups, err := inventory.ListGroups(e.db, v.ID)
		if err != nil {
			e.respondError(c, "handleListGroups", err)
			return
		}
		out := make([]groupView, 0, len(groups))
		for i := range groups {
			out = append(out, viewGroup(&groups[i]))
		}
		c.JSON(http.StatusOK, gin.H{"groups": out})
	}
}

func handleCreateGroup(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req groupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		g, err := inventory.CreateGroup(e.db, v.ID, inventory.GroupOpts{Name: req.Name, Description: req.Description})
		if err != nil {
			e.respondError(c, "handleCreateGroup", err)
			return
		}
		c.JSON(http.StatusCreated, viewGroup(g))
	}
}

// groupFor loads a group and checks its vessel is in the caller's
// organization.
func (e *env) groupFor(c *gin.Context, id string) (string, bool) {
	g, err := inventory.GetGroup(e.db, id)
	if err != nil {
		e.respondError(c, "groupFor", err)
		return "", false
	}
	return g.VesselID, e.scoped(c, g.VesselID, "group", id)
}

func handleUpdateGroup(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := e.groupFor(c, id); !ok {
			return
		}
		var req groupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		g, err := inventory.UpdateGroup(e.db, id, inventory.GroupOpts{Name: req.Name, Description: req.Description})
		if err != nil {
			e.respondError(c, "handleUpdateGroup", err)
			return
		}
		c.JSON(http.StatusOK, viewGroup(g))
	}
}

func handleDeleteGroup(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := e.groupFor(c, id); !ok {
			return
		}
		if err := inventory.DeleteGroup(e.db, id); err != nil {
			e.respondError(c, "handleDeleteGroup", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleListRequirements lists a vessel's requirements with their
// resolved quantity, quantity source and gap.
func handleListRequirements(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		items, err := inventory.Evaluate(e.db, v.ID)
		if err != nil {
			e.respondError(c, "handleListRequirements", err)
			return
		}
		out := make([]requirementView, 0, len(items))
		for i := range items {
			out = append(out, viewItemStatus(&items[i]))
		}
		gaps := inventory.Gaps(items)
		c.JSON(http.StatusOK, gin.H{
			"requirements":     out,
			"missing_count":    inventory.MissingCount(gaps),
			"critical_missing": inventory.CriticalMissing(gaps),
		})
	}
}

func handleCreateRequirement(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req createRequirementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		r, err := inventory.Create(e.db, inventory.CreateOpts{
			VesselID:           v.ID,
			ParentGroupID:      req.ParentGroupID,
			ItemName:           req.ItemName,
			RequiredQuantity:   req.RequiredQuantity,
			Category:           req.Category,
			Critical:           req.Critical,
			Notes:              req.Notes,
			AutoConsumeEnabled: req.AutoConsumeEnabled,
			ConsumePerHour:     req.ConsumePerHour,
			CurrentQuantity:    req.CurrentQuantity,
			Actor:              auth.FromContext(c).UserID(),
		})
		if err != nil {
			e.respondError(c, "handleCreateRequirement", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), v.ID)
		c.JSON(http.StatusCreated, viewRequirement(r))
	}
}

func handleReorderRequirements(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := e.vesselFor(c, c.Param("id"))
		if !ok {
			return
		}
		var req reorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if err := inventory.Reorder(e.db, v.ID, req.GroupID, req.IDs); err != nil {
			e.respondError(c, "handleReorderRequirements", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// requirementFor loads a requirement and checks its vessel is in the
// caller's organization.
func (e *env) requirementFor(c *gin.Context, id string) (string, bool) {
	r, err := inventory.Get(e.db, id)
	if err != nil {
		e.respondError(c, "requirementFor", err)
		return "", false
	}
	return r.VesselID, e.scoped(c, r.VesselID, "requirement", id)
}

func handleUpdateRequirement(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.requirementFor(c, id)
		if !ok {
			return
		}
		var req updateRequirementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		r, err := inventory.Update(e.db, id, inventory.UpdateOpts{
			ItemName:           req.ItemName,
			RequiredQuantity:   req.RequiredQuantity,
			Category:           req.Category,
			Critical:           req.Critical,
			Notes:              req.Notes,
			AutoConsumeEnabled: req.AutoConsumeEnabled,
			ConsumePerHour:     req.ConsumePerHour,
			ClearConsumeRate:   req.ClearConsumeRate,
			CurrentQuantity:    req.CurrentQuantity,
			MoveToGroup:        req.MoveToGroup,
			Actor:              auth.FromContext(c).UserID(),
		})
		if err != nil {
			e.respondError(c, "handleUpdateRequirement", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.JSON(http.StatusOK, viewRequirement(r))
	}
}

func handleDeleteRequirement(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		vesselID, ok := e.requirementFor(c, id)
		if !ok {
			return
		}
		if err := inventory.Delete(e.db, id); err != nil {
			e.respondError(c, "handleDeleteRequirement", err)
			return
		}
		e.cache.Invalidate(c.Request.Context(), vesselID)
		c.Status(http.StatusNoContent)
	}
}

func handleRequirementHistory(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := e.requirementFor(c, id); !ok {
			return
		}
		entries, err := inventory.History(e.db, id, queryLimit(c))
		if err != nil {
			e.respondError(c, "handleRequirementHistory", err)
			return
		}
		if entries == nil {
			entries = []inventory.HistoryEntry{}
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}

func handleRequirementAdjustments(e *env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := e.requirementFor(c, id); !ok {
			return
		}
		adjs, err := consumption.ListAdjustments(e.db, id, queryLimit(c))
		if err != nil {
			e.respondError(c, "handleRequirementAdjustments", err)
			return
		}
		out := make([]adjustmentView, 0, len(adjs))
		for i := range adjs {
			out = append(out, viewAdjustment(&adjs[i]))
		}
		c.JSON(http.StatusOK, gin.H{"adjustments": out})
	}
}
