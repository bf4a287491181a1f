package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/bosunhq/bosun/internal/db"
	"github.com/bosunhq/bosun/internal/inventory"
	"github.com/bosunhq/bosun/internal/maintenance"
	"github.com/bosunhq/bosun/internal/models"
	"github.com/bosunhq/bosun/internal/vessel"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	return gdb
}

func seedVessel(t *testing.T, gdb *gorm.DB, org, name string) string {
	t.Helper()
	v, err := vessel.Create(gdb, vessel.CreateOpts{OrgID: org, Name: name})
	if err != nil {
		t.Fatalf("create vessel: %v", err)
	}
	return v.ID
}

func intp(v int) *int { return &v }

// seedTrouble gives a vessel one overdue critical task and one critical
// item short by two.
func seedTrouble(t *testing.T, gdb *gorm.DB, vesselID string, now time.Time) {
	t.Helper()
	past := now.Add(-72 * time.Hour)
	if _, err := maintenance.Create(gdb, maintenance.CreateOpts{
		VesselID:     vesselID,
		Name:         "Replace impeller",
		CadenceType:  models.CadenceInterval,
		IntervalDays: intp(90),
		NextDueAt:    &past,
		Critical:     true,
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	qty := decimal.NewFromInt(2)
	if _, err := inventory.Create(gdb, inventory.CreateOpts{
		VesselID:           vesselID,
		ItemName:           "Flares",
		RequiredQuantity:   intp(4),
		Critical:           true,
		AutoConsumeEnabled: true,
		CurrentQuantity:    &qty,
	}); err != nil {
		t.Fatalf("create requirement: %v", err)
	}
}

func TestBuildDigest_NothingToReport(t *testing.T) {
	gdb := testDB(t)
	seedVessel(t, gdb, "org-1", "Osprey")

	d, err := BuildDigest(gdb, "", time.Now())
	if err != nil {
		t.Fatalf("BuildDigest: %v", err)
	}
	if d != nil {
		t.Errorf("digest = %+v, want nil", d)
	}
}

func TestBuildDigest_ReportsOverdueAndCritical(t *testing.T) {
	gdb := testDB(t)
	now := time.Now()
	quiet := seedVessel(t, gdb, "org-1", "Albatross")
	busy := seedVessel(t, gdb, "org-1", "Osprey")
	seedTrouble(t, gdb, busy, now)

	d, err := BuildDigest(gdb, "", now)
	if err != nil {
		t.Fatalf("BuildDigest: %v", err)
	}
	if d == nil || len(d.Vessels) != 1 {
		t.Fatalf("digest = %+v, want one vessel", d)
	}
	vd := d.Vessels[0]
	if vd.VesselID != busy || vd.VesselID == quiet {
		t.Errorf("vessel = %s, want %s", vd.VesselID, busy)
	}
	if len(vd.Overdue) != 1 || vd.Overdue[0].Name != "Replace impeller" {
		t.Errorf("overdue = %+v", vd.Overdue)
	}
	if len(vd.CriticalMissing) != 1 || !vd.CriticalMissing[0].Missing.Equal(decimal.NewFromInt(2)) {
		t.Errorf("critical missing = %+v", vd.CriticalMissing)
	}
}

func TestBuildDigest_OrgFilterAndArchived(t *testing.T) {
	gdb := testDB(t)
	now := time.Now()
	mine := seedVessel(t, gdb, "org-1", "Osprey")
	theirs := seedVessel(t, gdb, "org-2", "Petrel")
	seedTrouble(t, gdb, mine, now)
	seedTrouble(t, gdb, theirs, now)

	d, err := BuildDigest(gdb, "org-2", now)
	if err != nil {
		t.Fatalf("BuildDigest: %v", err)
	}
	if d == nil || len(d.Vessels) != 1 || d.Vessels[0].VesselID != theirs {
		t.Fatalf("digest = %+v, want only org-2 vessel", d)
	}

	if err := vessel.Archive(gdb, "org-2", theirs); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	d, err = BuildDigest(gdb, "org-2", now)
	if err != nil {
		t.Fatalf("BuildDigest: %v", err)
	}
	if d != nil {
		t.Errorf("archived vessel still reported: %+v", d)
	}
}

func TestFormatDigest(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	over := decimal.NewFromInt(-12)
	d := &Digest{
		GeneratedAt: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC),
		Vessels: []VesselDigest{
			{
				VesselName: "Osprey",
				Overdue:    []TaskLine{{Name: "Oil change", NextDueAt: &due, HoursRemaining: &over}},
				DueSoon:    2,
			},
			{
				VesselName: "Petrel",
				CriticalMissing: []ItemLine{{
					ItemName: "Flares", Required: 4,
					Current: decimal.NewFromInt(1), Missing: decimal.NewFromInt(3),
				}},
			},
		},
	}

	msg := FormatDigest(d)
	if !strings.Contains(msg.Text, "2026-03-10") || !strings.Contains(msg.Text, "2 vessel") {
		t.Errorf("text = %q", msg.Text)
	}
	if len(msg.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(msg.Events))
	}

	osprey := msg.Events[0]
	if osprey.Severity != "warning" || osprey.Color != ColorWarning {
		t.Errorf("osprey severity = %s/%s, want warning", osprey.Severity, osprey.Color)
	}
	for _, want := range []string{"Oil change", "due 2026-03-01", "12 engine hours over"} {
		if !strings.Contains(osprey.Body, want) {
			t.Errorf("osprey body %q missing %q", osprey.Body, want)
		}
	}

	petrel := msg.Events[1]
	if petrel.Severity != "error" || petrel.Color != ColorError {
		t.Errorf("petrel severity = %s/%s, want error", petrel.Severity, petrel.Color)
	}
	if !strings.Contains(petrel.Body, "Flares (1 of 4 on board, short 3)") {
		t.Errorf("petrel body = %q", petrel.Body)
	}
}

func TestSeverityColor(t *testing.T) {
	tests := map[string]string{
		"success": ColorSuccess,
		"warning": ColorWarning,
		"error":   ColorError,
		"info":    ColorInfo,
		"other":   ColorInfo,
	}
	for sev, want := range tests {
		if got := severityColor(sev); got != want {
			t.Errorf("severityColor(%q) = %q, want %q", sev, got, want)
		}
	}
}
