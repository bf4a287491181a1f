package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bosunhq/bosun/internal/db"
	"gorm.io/gorm"
)

// testEnv is a config file pointing at a private SQLite database.
type testEnv struct {
	cfgPath string
	dbPath  string
}

func newTestEnv(t *testing.T, extra string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		cfgPath: filepath.Join(dir, "bosun.yaml"),
		dbPath:  filepath.Join(dir, "bosun.db"),
	}
	cfg := "database:\n  driver: sqlite\n  path: " + env.dbPath + "\n" +
		"auth:\n  jwt_secret: test-secret\n" +
		"log:\n  level: error\n" + extra
	if err := os.WriteFile(env.cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

// initDB migrates the env's database through the CLI.
func (e testEnv) initDB(t *testing.T) {
	t.Helper()
	if out, err := run(t, "db", "init", "-c", e.cfgPath); err != nil {
		t.Fatalf("db init: %v\n%s", err, out)
	}
}

// open connects to the env's database for seeding and assertions.
func (e testEnv) open(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.ConnectSQLite(e.dbPath)
	if err != nil {
		t.Fatalf("open %s: %v", e.dbPath, err)
	}
	t.Cleanup(func() { closeDB(gdb) })
	return gdb
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "bosun dev") {
		t.Errorf("expected output to contain 'bosun dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	for _, want := range []string{"bosun 1.0.0", "commit: abc123", "built: 2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"db", "serve", "vessel", "trip", "import", "digest", "token", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing subcommand %q:\n%s", sub, out)
		}
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"version"})
	if code := execute(cmd); code != 0 {
		t.Errorf("execute(version) = %d, want 0", code)
	}

	cmd = newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"no-such-command"})
	if code := execute(cmd); code != 1 {
		t.Errorf("execute(unknown) = %d, want 1", code)
	}
}

func TestConfigFlagDefault(t *testing.T) {
	out, err := run(t, "vessel", "list", "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if !strings.Contains(out, "--config") || !strings.Contains(out, defaultConfigPath) {
		t.Errorf("expected --config flag defaulting to %s, got: %s", defaultConfigPath, out)
	}
}
