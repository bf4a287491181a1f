package maintenance

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
	v := models.Vessel{OrgID: "org-1", Name: "Tern"}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("seed vessel: %v", err)
	}
	return v.ID
}

func intp(n int) *int { return &n }

func boolp(b bool) *bool { return &b }

func TestCreate_Validation(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	zero := dec("0")
	due := now

	tests := []struct {
		name string
		opts CreateOpts
		kind error
	}{
		{"no name", CreateOpts{VesselID: vid, CadenceType: models.CadenceInterval, IntervalDays: intp(30)}, apperr.ErrValidation},
		{"bad cadence", CreateOpts{VesselID: vid, Name: "x", CadenceType: "weekly"}, apperr.ErrValidation},
		{"interval without days", CreateOpts{VesselID: vid, Name: "x", CadenceType: models.CadenceInterval}, apperr.ErrValidation},
		{"interval zero days", CreateOpts{VesselID: vid, Name: "x", CadenceType: models.CadenceInterval, IntervalDays: intp(0)}, apperr.ErrValidation},
		{"date without due", CreateOpts{VesselID: vid, Name: "x", CadenceType: models.CadenceSpecificDate}, apperr.ErrValidation},
		{"zero hours", CreateOpts{VesselID: vid, Name: "x", CadenceType: models.CadenceSpecificDate, DueDate: &due, IntervalHours: &zero}, apperr.ErrValidation},
		{"unknown vessel", CreateOpts{VesselID: "nope", Name: "x", CadenceType: models.CadenceInterval, IntervalDays: intp(1)}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Create(db, tt.opts); !errors.Is(err, tt.kind) {
				t.Errorf("err = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestCreate_DerivesNextDue(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)

	before := time.Now()
	interval, err := Create(db, CreateOpts{VesselID: vid, Name: "Impeller", CadenceType: models.CadenceInterval, IntervalDays: intp(90)})
	if err != nil {
		t.Fatalf("Create interval: %v", err)
	}
	if interval.NextDueAt == nil {
		t.Fatal("NextDueAt not derived")
	}
	low, high := before.AddDate(0, 0, 90), time.Now().AddDate(0, 0, 90)
	if interval.NextDueAt.Before(low.Add(-time.Second)) || interval.NextDueAt.After(high.Add(time.Second)) {
		t.Errorf("NextDueAt = %v, want about now + 90d", interval.NextDueAt)
	}
	if !interval.IsActive {
		t.Error("IsActive should default to true")
	}

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	oneShot, err := Create(db, CreateOpts{VesselID: vid, Name: "Survey", CadenceType: models.CadenceSpecificDate, DueDate: &due, IsActive: boolp(false)})
	if err != nil {
		t.Fatalf("Create specific_date: %v", err)
	}
	if oneShot.NextDueAt == nil || !oneShot.NextDueAt.Equal(due) {
		t.Errorf("NextDueAt = %v, want %v", oneShot.NextDueAt, due)
	}
	if oneShot.SortOrder != interval.SortOrder+1 {
		t.Errorf("SortOrder = %d, want %d", oneShot.SortOrder, interval.SortOrder+1)
	}

	got, _ := Get(db, oneShot.ID)
	if got.IsActive {
		t.Error("explicit IsActive=false was not stored")
	}
}

func TestUpdate_CadenceChange(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	task, _ := Create(db, CreateOpts{VesselID: vid, Name: "Survey", CadenceType: models.CadenceSpecificDate, DueDate: &due})

	interval := models.CadenceInterval
	if _, err := Update(db, task.ID, UpdateOpts{CadenceType: &interval}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("switch without days err = %v, want validation", err)
	}

	updated, err := Update(db, task.ID, UpdateOpts{CadenceType: &interval, IntervalDays: intp(10)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.CadenceType != models.CadenceInterval {
		t.Errorf("CadenceType = %q", updated.CadenceType)
	}
	if updated.NextDueAt == nil || updated.NextDueAt.Sub(time.Now()) < 9*24*time.Hour {
		t.Errorf("NextDueAt = %v, want about now + 10d", updated.NextDueAt)
	}

	pinned := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err = Update(db, task.ID, UpdateOpts{IntervalDays: intp(20), NextDueAt: &pinned})
	if err != nil {
		t.Fatalf("Update pinned: %v", err)
	}
	if !updated.NextDueAt.Equal(pinned) {
		t.Errorf("NextDueAt = %v, want explicit %v", updated.NextDueAt, pinned)
	}

	h := dec("250")
	updated, _ = Update(db, task.ID, UpdateOpts{IntervalHours: &h})
	if !updated.IntervalHours.Valid || !updated.IntervalHours.Decimal.Equal(h) {
		t.Errorf("IntervalHours = %+v, want 250", updated.IntervalHours)
	}
	updated, _ = Update(db, task.ID, UpdateOpts{ClearIntervalHours: true})
	if updated.IntervalHours.Valid {
		t.Error("IntervalHours should be cleared")
	}

	name := "x"
	if _, err := Update(db, "missing", UpdateOpts{Name: &name}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want not found", err)
	}
}

func TestUpdate_ReactivatedOneShotIsRescheduled(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	due := time.Now().UTC().Truncate(time.Second).AddDate(0, 0, 3)
	task, _ := Create(db, CreateOpts{VesselID: vid, Name: "Survey", CadenceType: models.CadenceSpecificDate, DueDate: &due})

	if _, err := LogCompletion(db, task.ID, LogOpts{PerformedBy: "u-1"}); err != nil {
		t.Fatalf("LogCompletion: %v", err)
	}
	done, _ := Get(db, task.ID)
	if done.IsActive || done.NextDueAt != nil {
		t.Fatalf("after completion active = %v, next = %v; want inactive, nil", done.IsActive, done.NextDueAt)
	}

	nextYear := due.AddDate(1, 0, 0)
	updated, err := Update(db, task.ID, UpdateOpts{DueDate: &nextYear, IsActive: boolp(true)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.IsActive {
		t.Error("task should be active")
	}
	if updated.NextDueAt == nil || !updated.NextDueAt.Equal(nextYear) {
		t.Errorf("NextDueAt = %v, want %v", updated.NextDueAt, nextYear)
	}
	if st := Evaluate(InputFor(updated, dec("0"), time.Now())); st.State == StateNoSchedule {
		t.Errorf("State = %s, want a schedule", st.State)
	}
}

func TestUpdate_ReactivateWithoutCadenceChange(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	due := time.Now().UTC().Truncate(time.Second).AddDate(0, 1, 0)
	task, _ := Create(db, CreateOpts{VesselID: vid, Name: "Haul out", CadenceType: models.CadenceSpecificDate, DueDate: &due})
	LogCompletion(db, task.ID, LogOpts{PerformedBy: "u-1"})

	updated, err := Update(db, task.ID, UpdateOpts{IsActive: boolp(true)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.NextDueAt == nil || !updated.NextDueAt.Equal(due) {
		t.Errorf("NextDueAt = %v, want due date %v", updated.NextDueAt, due)
	}

	// Deactivating while changing the date leaves next_due_at alone.
	later := due.AddDate(0, 6, 0)
	updated, _ = Update(db, task.ID, UpdateOpts{DueDate: &later, IsActive: boolp(false)})
	if updated.NextDueAt == nil || !updated.NextDueAt.Equal(due) {
		t.Errorf("NextDueAt after deactivating = %v, want unchanged %v", updated.NextDueAt, due)
	}
}

func TestList_OrderAndReorder(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	a, _ := Create(db, CreateOpts{VesselID: vid, Name: "a", CadenceType: models.CadenceInterval, IntervalDays: intp(1)})
	b, _ := Create(db, CreateOpts{VesselID: vid, Name: "b", CadenceType: models.CadenceInterval, IntervalDays: intp(1)})

	if err := Reorder(db, vid, []string{b.ID, a.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	tasks, _ := List(db, vid)
	if len(tasks) != 2 || tasks[0].ID != b.ID {
		t.Errorf("order = %v, want b first", tasks)
	}

	other := seedVessel(t, db)
	c, _ := Create(db, CreateOpts{VesselID: other, Name: "c", CadenceType: models.CadenceInterval, IntervalDays: intp(1)})
	if err := Reorder(db, vid, []string{a.ID, c.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("foreign task err = %v, want validation", err)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	vid := seedVessel(t, db)
	task, _ := Create(db, CreateOpts{VesselID: vid, Name: "Zincs", CadenceType: models.CadenceInterval, IntervalDays: intp(180)})
	if _, err := LogCompletion(db, task.ID, LogOpts{}); err != nil {
		t.Fatalf("LogCompletion: %v", err)
	}

	if err := Delete(db, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	logs, _ := ListLogs(db, task.ID)
	if len(logs) != 0 {
		t.Errorf("logs left = %d, want 0", len(logs))
	}
	if err := Delete(db, task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}
}
