package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/bosunhq/bosun/internal/models"
)

func TestDBInitCmd_MissingConfig(t *testing.T) {
	_, err := run(t, "db", "init", "--config", "/nonexistent/bosun.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestDBInitCmd_InvalidConfig(t *testing.T) {
	env := newTestEnv(t, "")
	// Overwrite with a config that has no jwt secret.
	if err := os.WriteFile(env.cfgPath, []byte("database:\n  driver: sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "db", "init", "-c", env.cfgPath)
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("err = %v, want jwt_secret validation error", err)
	}
}

func TestDBInitCmd_SQLite(t *testing.T) {
	env := newTestEnv(t, "")
	out, err := run(t, "db", "init", "-c", env.cfgPath)
	if err != nil {
		t.Fatalf("db init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Migrated") || !strings.Contains(out, "initialized successfully") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(env.dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	gdb := env.open(t)
	if !gdb.Migrator().HasTable(&models.MaintenanceTask{}) {
		t.Error("maintenance_tasks table missing after init")
	}
}

func TestDBResetCmd_AbortsWithoutConfirmation(t *testing.T) {
	env := newTestEnv(t, "")
	env.initDB(t)
	gdb := env.open(t)
	gdb.Create(&models.Vessel{OrgID: "org-1", Name: "Kestrel"})
	closeDB(gdb)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader("no\n"))
	cmd.SetArgs([]string{"db", "reset", "-c", env.cfgPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted.") {
		t.Errorf("expected Aborted., got: %s", buf.String())
	}

	var n int64
	env.open(t).Model(&models.Vessel{}).Count(&n)
	if n != 1 {
		t.Errorf("vessels = %d, want 1 after an aborted reset", n)
	}
}

func TestDBResetCmd_Yes(t *testing.T) {
	env := newTestEnv(t, "")
	env.initDB(t)
	gdb := env.open(t)
	gdb.Create(&models.Vessel{OrgID: "org-1", Name: "Kestrel"})
	closeDB(gdb)

	out, err := run(t, "db", "reset", "-c", env.cfgPath, "--yes")
	if err != nil {
		t.Fatalf("db reset: %v\n%s", err, out)
	}
	if !strings.Contains(out, "reset successfully") {
		t.Errorf("unexpected output: %s", out)
	}

	var n int64
	if err := env.open(t).Model(&models.Vessel{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("vessels = %d, want 0 after reset", n)
	}
}
