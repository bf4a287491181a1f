package api

import (
	"time"

	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/shopspring/decimal"
)

type vesselView struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"organization_id"`
	Name        string     `json:"name"`
	Make        string     `json:"make"`
	Model       string     `json:"model"`
	Year        *int       `json:"year"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	ArchivedAt  *time.Time `json:"archived_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func viewVessel(v *models.Vessel) vesselView {
	return vesselView{
		ID: v.ID, OrgID: v.OrgID, Name: v.Name, Make: v.Make, Model: v.Model, Year: v.Year,
		Description: v.Description, Location: v.Location, ArchivedAt: v.ArchivedAt,
		CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
	}
}

type commentView struct {
	ID        uint      `json:"id"`
	VesselID  string    `json:"vessel_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func viewComment(m *models.VesselComment) commentView {
	return commentView{ID: m.ID, VesselID: m.VesselID, AuthorID: m.AuthorID, Body: m.Body, CreatedAt: m.CreatedAt}
}

type tripView struct {
	ID        string          `json:"id"`
	VesselID  string          `json:"vessel_id"`
	LoggedAt  time.Time       `json:"logged_at"`
	Hours     decimal.Decimal `json:"hours"`
	Note      string          `json:"note"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

func viewTrip(t *models.Trip) tripView {
	return tripView{
		ID: t.ID, VesselID: t.VesselID, LoggedAt: t.LoggedAt, Hours: t.Hours,
		Note: t.Note, CreatedBy: t.CreatedBy, CreatedAt: t.CreatedAt,
	}
}

type groupView struct {
	ID          string `json:"id"`
	VesselID    string `json:"vessel_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func viewGroup(g *models.InventoryGroup) groupView {
	return groupView{ID: g.ID, VesselID: g.VesselID, Name: g.Name, Description: g.Description, SortOrder: g.SortOrder}
}

type requirementView struct {
	ID                 string              `json:"id"`
	VesselID           string               `json:"vessel_id"`
	ParentGroupID      *string              `json:"parent_group_id"`
	ItemName           string               `json:"item_name"`
	RequiredQuantity   int                  `json:"required_quantity"`
	Category           string               `json:"category"`
	Critical           bool                 `json:"critical"`
	CurrentQuantity    decimal.Decimal      `json:"current_quantity"`
	AutoConsumeEnabled bool                 `json:"auto_consume_enabled"`
	ConsumePerHour     *decimal.Decimal     `json:"consume_per_hour"`
	Notes              string               `json:"notes"`
	SortOrder          int                  `json:"sort_order"`
	Gap                *requirementGapView `json:"gap,omitempty"`
}

type requirementGapView struct {
	Current   decimal.Decimal    `json:"current"`
	Source    string             `json:"source"`
	Missing   decimal.Decimal    `json:"missing"`
	IsMissing bool               `json:"is_missing"`
	Severity  inventory.Severity `json:"severity"`
}

func viewRequirement(r *models.InventoryRequirement) requirementView {
	v := requirementView{
		ID: r.ID, VesselID: r.VesselID, ParentGroupID: r.ParentGroupID, ItemName: r.ItemName,
		RequiredQuantity: r.RequiredQuantity, Category: r.Category, Critical: r.Critical,
		CurrentQuantity: r.CurrentQuantity, AutoConsumeEnabled: r.AutoConsumeEnabled,
		Notes: r.Notes, SortOrder: r.SortOrder,
	}
	if r.ConsumePerHour.Valid {
		rate := r.ConsumePerHour.Decimal
		v.ConsumePerHour = &rate
	}
	return v
}

func viewItemStatus(st *inventory.ItemStatus) requirementView {
	v := viewRequirement(&st.Requirement)
	v.Gap = &requirementGapView{
		Current:   st.Current,
		Source:    st.Source,
		Missing:   st.Gap.Missing,
		IsMissing: st.Gap.IsMissing,
		Severity:  st.Gap.Severity(),
	}
	return v
}

type adjustmentView struct {
	ID              uint            `json:"id"`
	RequirementID   string          `json:"requirement_id"`
	Reason          string          `json:"reason"`
	ReferenceTripID *string         `json:"reference_trip_id"`
	Delta           decimal.Decimal `json:"delta"`
	Before          decimal.Decimal `json:"before"`
	After           decimal.Decimal `json:"after"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

func viewAdjustment(a *models.InventoryAdjustment) adjustmentView {
	return adjustmentView{
		ID: a.ID, RequirementID: a.RequirementID, Reason: a.Reason, ReferenceTripID: a.ReferenceTripID,
		Delta: a.Delta, Before: a.BeforeQty, After: a.AfterQty, CreatedBy: a.CreatedBy, CreatedAt: a.CreatedAt,
	}
}

type checkLineView struct {
	RequirementID  string               `json:"requirement_id"`
	ActualQuantity int                  `json:"actual_quantity"`
	Condition      models.LineCondition `json:"condition"`
	Notes          string               `json:"notes"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type checkView struct {
	ID          string             `json:"id"`
	VesselID    string             `json:"vessel_id"`
	Status      models.CheckStatus `json:"status"`
	PerformedBy string             `json:"performed_by"`
	PerformedAt time.Time          `json:"performed_at"`
	SubmittedAt *time.Time         `json:"submitted_at"`
	Notes       string             `json:"notes"`
	Lines       []checkLineView    `json:"lines,omitempty"`
}

func viewCheck(m *models.InventoryCheck) checkView {
	v := checkView{
		ID: m.ID, VesselID: m.VesselID, Status: m.Status, PerformedBy: m.PerformedBy,
		PerformedAt: m.PerformedAt, SubmittedAt: m.SubmittedAt, Notes: m.Notes,
	}
	for _, l := range m.Lines {
		v.Lines = append(v.Lines, checkLineView{
			RequirementID: l.RequirementID, ActualQuantity: l.ActualQuantity,
			Condition: l.Condition, Notes: l.Notes, UpdatedAt: l.UpdatedAt,
		})
	}
	return v
}

type taskView struct {
	ID                      string                 `json:"id"`
	VesselID                string                 `json:"vessel_id"`
	Name                    string                 `json:"name"`
	Description             string                 `json:"description"`
	CadenceType             models.CadenceType     `json:"cadence_type"`
	IntervalDays            *int                   `json:"interval_days"`
	IntervalHours           *decimal.Decimal       `json:"interval_hours"`
	DueDate                 *time.Time             `json:"due_date"`
	NextDueAt               *time.Time             `json:"next_due_at"`
	Critical                bool                   `json:"critical"`
	IsActive                bool                   `json:"is_active"`
	SortOrder               int                    `json:"sort_order"`
	LastCompletedAt         *time.Time             `json:"last_completed_at"`
	LastCompletedTotalHours *decimal.Decimal       `json:"last_completed_total_hours"`
	Due                     *maintenance.DueStatus `json:"due,omitempty"`
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func viewTask(t *models.MaintenanceTask) taskView {
	return taskView{
		ID: t.ID, VesselID: t.VesselID, Name: t.Name, Description: t.Description,
		CadenceType: t.CadenceType, IntervalDays: t.IntervalDays, IntervalHours: nullable(t.IntervalHours),
		DueDate: t.DueDate, NextDueAt: t.NextDueAt, Critical: t.Critical, IsActive: t.IsActive,
		SortOrder: t.SortOrder, LastCompletedAt: t.LastCompletedAt,
		LastCompletedTotalHours: nullable(t.LastCompletedTotalHours),
	}
}

type logView struct {
	ID          uint             `json:"id"`
	TaskID      string           `json:"task_id"`
	PerformedBy string           `json:"performed_by"`
	PerformedAt time.Time        `json:"performed_at"`
	Notes       string           `json:"notes"`
	TotalHours  *decimal.Decimal `json:"total_hours"`
}

func viewLog(l *models.MaintenanceLog) logView {
	return logView{
		ID: l.ID, TaskID: l.TaskID, PerformedBy: l.PerformedBy, PerformedAt: l.PerformedAt,
		Notes: l.Notes, TotalHours: nullable(l.TotalHours),
	}
}
