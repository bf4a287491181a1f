package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/db"
	"github.com/bosunhq/bosun/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gdb
}

func seedVessel(t *testing.T, db *gorm.DB) string {
	t.Helper()
	v := models.Vessel{OrgID: "org-1", Name: "Kestrel"}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("seed vessel: %v", err)
	}
	return v.ID
}

func intp(n int) *int { return &n }

func adjustmentsFor(t *testing.T, db *gorm.DB, requirementID string) []models.InventoryAdjustment {
	t.Helper()
	var adjs []models.InventoryAdjustment
	if err := db.Where("requirement_id = ?", requirementID).Order("id DESC").Find(&adjs).Error; err != nil {
		t.Fatalf("load adjustments: %v", err)
	}
	return adjs
}

func TestCreate_Defaults(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)

	r, err := Create(db, CreateOpts{VesselID: vid, ItemName: "  Flares  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.RequiredQuantity != 1 {
		t.Errorf("RequiredQuantity = %d, want 1", r.RequiredQuantity)
	}
	if r.ItemName != "Flares" {
		t.Errorf("ItemName = %q, want trimmed", r.ItemName)
	}
	if !r.CurrentQuantity.IsZero() {
		t.Errorf("CurrentQuantity = %s, want 0", r.CurrentQuantity)
	}

	zero, err := Create(db, CreateOpts{VesselID: vid, ItemName: "Spare prop", RequiredQuantity: intp(0)})
	if err != nil {
		t.Fatalf("Create zero: %v", err)
	}
	got, _ := Get(db, zero.ID)
	if got.RequiredQuantity != 0 {
		t.Errorf("stored RequiredQuantity = %d, want 0", got.RequiredQuantity)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	neg := dec("-1")

	tests := []struct {
		name string
		opts CreateOpts
		kind error
	}{
		{"no name", CreateOpts{VesselID: vid}, apperr.ErrValidation},
		{"negative required", CreateOpts{VesselID: vid, ItemName: "x", RequiredQuantity: intp(-1)}, apperr.ErrValidation},
		{"negative rate", CreateOpts{VesselID: vid, ItemName: "x", ConsumePerHour: &neg}, apperr.ErrValidation},
		{"negative current", CreateOpts{VesselID: vid, ItemName: "x", CurrentQuantity: &neg}, apperr.ErrValidation},
		{"unknown vessel", CreateOpts{VesselID: "nope", ItemName: "x"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Create(db, tt.opts); !errors.Is(err, tt.kind) {
				t.Errorf("err = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestCreate_GroupMustBelongToVessel(t *testing.T) {
	db := testDB(t)
	a := seedVessel(t, db)
	b := seedVessel(t, db)
	g, err := CreateGroup(db, b, GroupOpts{Name: "Safety"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	_, err = Create(db, CreateOpts{VesselID: a, ItemName: "Vest", ParentGroupID: &g.ID})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestCreate_SortOrderPerGroup(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	g, _ := CreateGroup(db, vid, GroupOpts{Name: "Engine"})

	r1, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "a"})
	r2, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "b"})
	r3, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "c", ParentGroupID: &g.ID})

	if r1.SortOrder != 0 || r2.SortOrder != 1 {
		t.Errorf("ungrouped orders = %d, %d; want 0, 1", r1.SortOrder, r2.SortOrder)
	}
	if r3.SortOrder != 0 {
		t.Errorf("grouped order = %d, want 0", r3.SortOrder)
	}
}

func TestCreate_InitialQuantityIsLedgered(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	q := dec("12")

	r, err := Create(db, CreateOpts{VesselID: vid, ItemName: "Oil", AutoConsumeEnabled: true, CurrentQuantity: &q, Actor: "u-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	adjs := adjustmentsFor(t, db, r.ID)
	if len(adjs) != 1 || adjs[0].Reason != models.AdjustmentManual || !adjs[0].Delta.Equal(q) {
		t.Errorf("adjustments = %+v, want one manual +12", adjs)
	}
}

func TestUpdate(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	g, _ := CreateGroup(db, vid, GroupOpts{Name: "Galley"})
	r, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "Water (L)", AutoConsumeEnabled: true})

	name := "Fresh water (L)"
	crit := true
	q := dec("40")
	rate := dec("1.5")
	updated, err := Update(db, r.ID, UpdateOpts{
		ItemName:        &name,
		Critical:        &crit,
		CurrentQuantity: &q,
		ConsumePerHour:  &rate,
		MoveToGroup:     &g.ID,
		Actor:           "u-2",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ItemName != name || !updated.Critical {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.CurrentQuantity.Equal(q) {
		t.Errorf("CurrentQuantity = %s, want 40", updated.CurrentQuantity)
	}
	if !updated.ConsumePerHour.Valid || !updated.ConsumePerHour.Decimal.Equal(rate) {
		t.Errorf("ConsumePerHour = %+v, want 1.5", updated.ConsumePerHour)
	}
	if updated.ParentGroupID == nil || *updated.ParentGroupID != g.ID {
		t.Errorf("ParentGroupID = %v, want %s", updated.ParentGroupID, g.ID)
	}

	adjs := adjustmentsFor(t, db, r.ID)
	if len(adjs) != 1 || adjs[0].CreatedBy != "u-2" {
		t.Errorf("adjustments = %+v, want one manual entry by u-2", adjs)
	}

	ungroup := ""
	updated, err = Update(db, r.ID, UpdateOpts{MoveToGroup: &ungroup, ClearConsumeRate: true})
	if err != nil {
		t.Fatalf("Update ungroup: %v", err)
	}
	if updated.ParentGroupID != nil {
		t.Errorf("ParentGroupID = %v, want nil", *updated.ParentGroupID)
	}
	if updated.ConsumePerHour.Valid {
		t.Error("ConsumePerHour should be cleared")
	}

	bad := -2
	if _, err := Update(db, r.ID, UpdateOpts{RequiredQuantity: &bad}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("negative required err = %v, want validation", err)
	}
	if _, err := Update(db, "missing", UpdateOpts{Critical: &crit}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want not found", err)
	}
}

func TestReorder(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	a, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "a"})
	b, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "b"})
	c, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "c"})

	if err := Reorder(db, vid, nil, []string{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	reqs, _ := List(db, vid)
	var names []string
	for _, r := range reqs {
		names = append(names, r.ItemName)
	}
	if len(names) != 3 || names[0] != "c" || names[1] != "a" || names[2] != "b" {
		t.Errorf("order = %v, want [c a b]", names)
	}

	g, _ := CreateGroup(db, vid, GroupOpts{Name: "G"})
	if err := Reorder(db, vid, &g.ID, []string{a.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("wrong group err = %v, want validation", err)
	}
	if err := Reorder(db, vid, nil, []string{a.ID, a.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("duplicate err = %v, want validation", err)
	}
}

func TestDelete_RemovesCheckLines(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	r, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "Rope"})
	chk := models.InventoryCheck{VesselID: vid, Status: models.CheckSubmitted}
	db.Create(&chk)
	db.Create(&models.InventoryCheckLine{CheckID: chk.ID, RequirementID: r.ID, ActualQuantity: 1, Condition: models.ConditionOK})

	if err := Delete(db, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var n int64
	db.Model(&models.InventoryCheckLine{}).Where("requirement_id = ?", r.ID).Count(&n)
	if n != 0 {
		t.Errorf("check lines left = %d, want 0", n)
	}
	if err := Delete(db, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	r, _ := Create(db, CreateOpts{VesselID: vid, ItemName: "Fire extinguisher"})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, qty := range []int{3, 2} {
		chk := models.InventoryCheck{VesselID: vid, Status: models.CheckSubmitted, PerformedBy: "crew"}
		db.Create(&chk)
		line := models.InventoryCheckLine{CheckID: chk.ID, RequirementID: r.ID, ActualQuantity: qty, Condition: models.ConditionOK}
		db.Create(&line)
		db.Model(&line).UpdateColumn("updated_at", base.Add(time.Duration(i)*time.Hour))
	}

	hist, err := History(db, r.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("len = %d, want 2", len(hist))
	}
	if hist[0].ActualQuantity != 2 || hist[1].ActualQuantity != 3 {
		t.Errorf("history = %+v, want newest (2) first", hist)
	}
	if hist[0].CheckStatus != models.CheckSubmitted {
		t.Errorf("CheckStatus = %q", hist[0].CheckStatus)
	}
}
