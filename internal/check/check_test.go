package check

import (
	"errors"
	"sync"
	"testing"

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
	v := models.Vessel{OrgID: "org-1", Name: "Petrel"}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("seed vessel: %v", err)
	}
	return v.ID
}

func seedRequirement(t *testing.T, db *gorm.DB, vesselID, name string) string {
	t.Helper()
	r := models.InventoryRequirement{VesselID: vesselID, ItemName: name, RequiredQuantity: 2}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("seed requirement: %v", err)
	}
	return r.ID
}

func TestValidTransitions(t *testing.T) {
	if !canTransition(models.CheckInProgress, models.CheckSubmitted) {
		t.Error("in_progress -> submitted should be allowed")
	}
	if canTransition(models.CheckSubmitted, models.CheckInProgress) {
		t.Error("submitted -> in_progress should not be allowed")
	}
	if canTransition(models.CheckSubmitted, models.CheckSubmitted) {
		t.Error("submitted -> submitted should not be allowed")
	}
}

func TestCreate(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)

	c, err := Create(db, CreateOpts{VesselID: vid, PerformedBy: "u-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != models.CheckInProgress {
		t.Errorf("Status = %q, want in_progress", c.Status)
	}
	if c.InProgressVesselID == nil || *c.InProgressVesselID != vid {
		t.Errorf("InProgressVesselID = %v, want %s", c.InProgressVesselID, vid)
	}

	cur, err := Current(db, vid)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur == nil || cur.ID != c.ID {
		t.Errorf("Current = %+v, want %s", cur, c.ID)
	}
}

func TestCreate_Errors(t *testing.T) {
	db := testDB(t)
	if _, err := Create(db, CreateOpts{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("no vessel err = %v, want validation", err)
	}
	if _, err := Create(db, CreateOpts{VesselID: "nope"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown vessel err = %v, want not found", err)
	}
}

func TestCreate_SecondOpenCheckConflicts(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	first, err := Create(db, CreateOpts{VesselID: vid})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := Create(db, CreateOpts{VesselID: vid}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second Create err = %v, want conflict", err)
	}

	if _, err := Submit(db, first.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := Create(db, CreateOpts{VesselID: vid}); err != nil {
		t.Errorf("Create after submit: %v", err)
	}
}

func TestCreate_GuardIndexRejectsDuplicate(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	if _, err := Create(db, CreateOpts{VesselID: vid}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := models.InventoryCheck{VesselID: vid, InProgressVesselID: &vid, Status: models.CheckInProgress}
	err := db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("direct insert err = %v, want duplicated key", err)
	}
}

func TestCreate_ConcurrentExactlyOneWins(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Create(db, CreateOpts{VesselID: vid})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected err: %v", err)
		}
	}
	if wins != 1 || conflicts != n-1 {
		t.Errorf("wins = %d, conflicts = %d; want 1, %d", wins, conflicts, n-1)
	}
}

func TestUpsertLines_Idempotent(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	r1 := seedRequirement(t, db, vid, "Flares")
	r2 := seedRequirement(t, db, vid, "Vests")
	c, _ := Create(db, CreateOpts{VesselID: vid})

	lines := []LineInput{
		{RequirementID: r1, ActualQuantity: 3},
		{RequirementID: r2, ActualQuantity: 0, Condition: models.ConditionMissing, Notes: "not aboard"},
	}
	first, err := UpsertLines(db, c.ID, lines)
	if err != nil {
		t.Fatalf("UpsertLines: %v", err)
	}
	second, err := UpsertLines(db, c.ID, lines)
	if err != nil {
		t.Fatalf("UpsertLines again: %v", err)
	}

	if len(first.Lines) != 2 || len(second.Lines) != 2 {
		t.Fatalf("line counts = %d, %d; want 2, 2", len(first.Lines), len(second.Lines))
	}
	for i := range first.Lines {
		a, b := first.Lines[i], second.Lines[i]
		if a.ID != b.ID || a.RequirementID != b.RequirementID || a.ActualQuantity != b.ActualQuantity ||
			a.Condition != b.Condition || a.Notes != b.Notes {
			t.Errorf("line %d changed: %+v -> %+v", i, a, b)
		}
	}
	if second.Lines[0].Condition != models.ConditionOK {
		t.Errorf("default condition = %q, want ok", second.Lines[0].Condition)
	}
}

func TestUpsertLines_Overwrites(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	r1 := seedRequirement(t, db, vid, "Flares")
	c, _ := Create(db, CreateOpts{VesselID: vid})

	UpsertLines(db, c.ID, []LineInput{{RequirementID: r1, ActualQuantity: 1}})
	got, err := UpsertLines(db, c.ID, []LineInput{{RequirementID: r1, ActualQuantity: 4, Condition: models.ConditionNeedsReplacement}})
	if err != nil {
		t.Fatalf("UpsertLines: %v", err)
	}
	if len(got.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(got.Lines))
	}
	if got.Lines[0].ActualQuantity != 4 || got.Lines[0].Condition != models.ConditionNeedsReplacement {
		t.Errorf("line = %+v, want qty 4 needs_replacement", got.Lines[0])
	}
}

func TestUpsertLines_Validation(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	other := seedVessel(t, db)
	r1 := seedRequirement(t, db, vid, "Flares")
	foreign := seedRequirement(t, db, other, "Anchor")
	c, _ := Create(db, CreateOpts{VesselID: vid})

	tests := []struct {
		name  string
		lines []LineInput
	}{
		{"negative quantity", []LineInput{{RequirementID: r1, ActualQuantity: -1}}},
		{"bad condition", []LineInput{{RequirementID: r1, Condition: "lost"}}},
		{"duplicate requirement", []LineInput{{RequirementID: r1}, {RequirementID: r1}}},
		{"other vessel", []LineInput{{RequirementID: r1, ActualQuantity: 2}, {RequirementID: foreign}}},
		{"unknown requirement", []LineInput{{RequirementID: "nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UpsertLines(db, c.ID, tt.lines); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}

	got, _ := Get(db, c.ID)
	if len(got.Lines) != 0 {
		t.Errorf("lines stored after failed batches = %d, want 0", len(got.Lines))
	}

	if _, err := UpsertLines(db, "missing", []LineInput{{RequirementID: r1}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing check err = %v, want not found", err)
	}
}

func TestUpsertLines_RejectsAutoConsumedItems(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	counted := seedRequirement(t, db, vid, "Flares")
	auto := models.InventoryRequirement{VesselID: vid, ItemName: "Oil filter", RequiredQuantity: 2, AutoConsumeEnabled: true}
	if err := db.Create(&auto).Error; err != nil {
		t.Fatalf("seed requirement: %v", err)
	}
	c, _ := Create(db, CreateOpts{VesselID: vid})

	_, err := UpsertLines(db, c.ID, []LineInput{
		{RequirementID: counted, ActualQuantity: 2},
		{RequirementID: auto.ID, ActualQuantity: 9},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	got, _ := Get(db, c.ID)
	if len(got.Lines) != 0 {
		t.Errorf("lines stored = %d, want 0", len(got.Lines))
	}
}

func TestSubmit_IsTerminal(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	r1 := seedRequirement(t, db, vid, "Flares")
	c, _ := Create(db, CreateOpts{VesselID: vid})
	UpsertLines(db, c.ID, []LineInput{{RequirementID: r1, ActualQuantity: 2}})

	submitted, err := Submit(db, c.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Status != models.CheckSubmitted || submitted.SubmittedAt == nil {
		t.Errorf("submitted = %+v", submitted)
	}
	if submitted.InProgressVesselID != nil {
		t.Errorf("guard = %v, want nil", *submitted.InProgressVesselID)
	}

	if _, err := UpsertLines(db, c.ID, []LineInput{{RequirementID: r1, ActualQuantity: 9}}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("upsert after submit err = %v, want conflict", err)
	}
	if _, err := Submit(db, c.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second submit err = %v, want conflict", err)
	}
	after, _ := Get(db, c.ID)
	if len(after.Lines) != 1 || after.Lines[0].ActualQuantity != 2 {
		t.Errorf("lines changed after failed calls: %+v", after.Lines)
	}

	cur, _ := Current(db, vid)
	if cur != nil {
		t.Errorf("Current = %+v, want nil", cur)
	}
}

func TestSubmit_Missing(t *testing.T) {
	db := testDB(t)
	if _, err := Submit(db, "missing"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestList(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	a, _ := Create(db, CreateOpts{VesselID: vid})
	Submit(db, a.ID)
	b, _ := Create(db, CreateOpts{VesselID: vid})

	checks, err := List(db, vid, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("len = %d, want 2", len(checks))
	}
	if checks[0].ID != b.ID {
		t.Errorf("first = %s, want newest %s", checks[0].ID, b.ID)
	}
}
