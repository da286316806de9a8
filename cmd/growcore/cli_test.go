package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"growcore/pkg/domain"
)

// runCLI executes a fresh command tree against the configured environment and
// returns the combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("growcore %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// setTestEnv points every variable the bootstrap exports at a temporary
// directory, so command runs are isolated and the environment is restored
// after the test.
func setTestEnv(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GROWCORE_STORAGE_DRIVER", driver)
	t.Setenv("GROWCORE_DATA_DIR", dir)
	t.Setenv("GROWCORE_SQLITE_PATH", filepath.Join(dir, "grow.db"))
	t.Setenv("GROWCORE_ARCHIVE_DRIVER", "fs")
	t.Setenv("GROWCORE_ARCHIVE_DIR", filepath.Join(dir, "archive"))
	t.Setenv("GROWCORE_ARCHIVE_S3_PATH_STYLE", "false")
	return dir
}

func TestCLISchemeLifecycle(t *testing.T) {
	setTestEnv(t, "sqlite")

	out := mustRunCLI(t, "scheme", "list")
	if !strings.Contains(out, "* substrate") {
		t.Fatalf("expected active substrate in listing, got:\n%s", out)
	}

	mustRunCLI(t, "scheme", "create", "coco")
	out = mustRunCLI(t, "scheme", "activate", "coco")
	if !strings.Contains(out, "active scheme is now coco") {
		t.Errorf("activate output: %q", out)
	}

	out = mustRunCLI(t, "scheme", "rename", "coco", "coco-pro")
	if !strings.Contains(out, "renamed scheme coco to coco-pro") {
		t.Errorf("rename output: %q", out)
	}
	out = mustRunCLI(t, "scheme", "list")
	if !strings.Contains(out, "* coco-pro") {
		t.Errorf("active pointer did not follow rename:\n%s", out)
	}

	out = mustRunCLI(t, "scheme", "delete", "coco-pro")
	if !strings.Contains(out, "(active: substrate)") {
		t.Errorf("delete should repoint active to substrate, got: %q", out)
	}

	if _, err := runCLI(t, "scheme", "create", "substrate"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate create: got %v", err)
	}
	if _, err := runCLI(t, "scheme", "delete", "substrate"); !errors.Is(err, domain.ErrLastScheme) {
		t.Errorf("deleting the last scheme: got %v", err)
	}
}

func TestCLIFertilizerAndResolve(t *testing.T) {
	setTestEnv(t, "sqlite")

	mustRunCLI(t, "scheme", "create", "trial")
	mustRunCLI(t, "scheme", "activate", "trial")
	mustRunCLI(t, "fertilizer", "set", "Bloom A", "1:2, 2:2, 3:4", "--factor", "430")
	mustRunCLI(t, "curve", "set", "1:0.8, 2:1.0, 4:1.4")

	out := mustRunCLI(t, "resolve", "--week", "5", "--litres", "2")
	if !strings.Contains(out, "scheme trial, week 5, 2.0 L") {
		t.Errorf("resolve header: %q", out)
	}
	if !strings.Contains(out, "8.0 ml") {
		t.Errorf("week past the schedule end should keep the last dosage:\n%s", out)
	}
	if !strings.Contains(out, "target EC 1400 µS/cm") {
		t.Errorf("week past the curve end should keep the last target:\n%s", out)
	}

	out = mustRunCLI(t, "resolve", "--week", "0", "--litres", "2")
	if !strings.Contains(out, "4.0 ml") || !strings.Contains(out, "target EC 800 µS/cm") {
		t.Errorf("week before the start should resolve to week 1:\n%s", out)
	}

	out = mustRunCLI(t, "resolve", "--week", "3", "--litres", "1")
	if !strings.Contains(out, "4.0 ml") {
		t.Errorf("schedule week 3 dose:\n%s", out)
	}
	if !strings.Contains(out, "target EC 0 µS/cm") {
		t.Errorf("curve gap at week 3 should resolve to zero target:\n%s", out)
	}

	if _, err := runCLI(t, "fertilizer", "set", "Bad", "1:2, nope"); err == nil || !strings.Contains(err.Error(), "malformed schedule entry") {
		t.Errorf("malformed schedule: got %v", err)
	}

	mustRunCLI(t, "fertilizer", "delete", "Bloom A")
	out = mustRunCLI(t, "scheme", "show")
	if strings.Contains(out, "Bloom A") {
		t.Errorf("deleted fertilizer still shown:\n%s", out)
	}
}

func TestCLIPlantLifecycle(t *testing.T) {
	setTestEnv(t, "sqlite")
	now := time.Now().UTC()
	germination := domain.FormatDate(now.AddDate(0, 0, -49))
	flowering := domain.FormatDate(now.AddDate(0, 0, -7))

	out := mustRunCLI(t, "plant", "add", "Aurora", germination,
		"--genetics", "Northern Lights", "--notes", "window sill")
	if !strings.Contains(out, "added plant Aurora") {
		t.Errorf("add output: %q", out)
	}

	out = mustRunCLI(t, "plant", "list")
	if !strings.Contains(out, "week 8 vegetative") {
		t.Errorf("expected week 8 vegetative:\n%s", out)
	}

	out = mustRunCLI(t, "plant", "flower", "Aurora", flowering)
	if !strings.Contains(out, "flowers since "+flowering) {
		t.Errorf("flower output: %q", out)
	}
	out = mustRunCLI(t, "plant", "show", "Aurora")
	if !strings.Contains(out, "week 2, flowering") {
		t.Errorf("flowering status:\n%s", out)
	}
	if !strings.Contains(out, "Northern Lights") {
		t.Errorf("genetics missing:\n%s", out)
	}

	mustRunCLI(t, "plant", "note", "Aurora", "moved to tent")
	out = mustRunCLI(t, "plant", "show", "Aurora")
	if !strings.Contains(out, "moved to tent") {
		t.Errorf("notes not updated:\n%s", out)
	}

	out = mustRunCLI(t, "plant", "flower", "Aurora", "--clear")
	if !strings.Contains(out, "cleared flowering start") {
		t.Errorf("clear output: %q", out)
	}

	future := domain.FormatDate(now.AddDate(0, 0, 14))
	if _, err := runCLI(t, "plant", "add", "Bella", future); err == nil || !strings.Contains(err.Error(), "in the future") {
		t.Errorf("future germination: got %v", err)
	}
	if _, err := runCLI(t, "plant", "flower", "Aurora"); err == nil {
		t.Error("flower without date or --clear should fail")
	}

	mustRunCLI(t, "plant", "delete", "Aurora")
	var notFound domain.ErrNotFound
	if _, err := runCLI(t, "plant", "show", "Aurora"); !errors.As(err, &notFound) {
		t.Errorf("show after delete: got %v", err)
	}
}

func TestCLIEcHelper(t *testing.T) {
	setTestEnv(t, "sqlite")

	out := mustRunCLI(t, "ec", "400", "--target", "1200", "--litres", "5")
	if !strings.Contains(out, "current 400 µS/cm, target 1200 µS/cm, 5.0 L") {
		t.Errorf("ec header: %q", out)
	}
	if !strings.Contains(out, "factor 478: 8.4 ml") {
		t.Errorf("growth preset suggestion:\n%s", out)
	}
	if !strings.Contains(out, "factor 430: 9.3 ml") {
		t.Errorf("bloom preset suggestion:\n%s", out)
	}

	out = mustRunCLI(t, "status")
	if strings.Contains(out, "ec helper last used: never") {
		t.Errorf("helper usage not recorded:\n%s", out)
	}

	out = mustRunCLI(t, "ec", "1500", "--target", "1200")
	if !strings.Contains(out, "0.0 ml") {
		t.Errorf("at or above target needs 0 ml:\n%s", out)
	}

	out = mustRunCLI(t, "ec", "400", "--week", "1")
	if !strings.Contains(out, "target 400 µS/cm") {
		t.Errorf("week 1 of the starter curve is 0.4 mS/cm:\n%s", out)
	}

	out = mustRunCLI(t, "ec", "400", "--target", "1200", "--factor", "0")
	if !strings.Contains(out, "factor 0 not usable") {
		t.Errorf("non-positive factor row:\n%s", out)
	}

	out = mustRunCLI(t, "ec", "factor", "growth", "500")
	if !strings.Contains(out, "ec factor presets:") || !strings.Contains(out, "growth       500") {
		t.Errorf("ec factor output:\n%s", out)
	}
	out = mustRunCLI(t, "ec", "400", "--target", "1200", "--litres", "5")
	if !strings.Contains(out, "factor 500: 8.0 ml") {
		t.Errorf("updated growth preset suggestion:\n%s", out)
	}
	if _, err := runCLI(t, "ec", "factor", "growth", "abc"); err == nil {
		t.Error("ec factor with a non-numeric value should fail")
	}

	if _, err := runCLI(t, "ec", "400"); err == nil {
		t.Error("ec without --target or --week should fail")
	}
	if _, err := runCLI(t, "ec", "400", "--target", "1200", "--week", "3"); err == nil {
		t.Error("ec with both --target and --week should fail")
	}
	if _, err := runCLI(t, "ec", "abc", "--target", "1200"); err == nil {
		t.Error("ec with a non-numeric current value should fail")
	}
}

func TestCLIBackup(t *testing.T) {
	setTestEnv(t, "sqlite")

	out := mustRunCLI(t, "backup", "create")
	if !strings.Contains(out, "stored backups/") {
		t.Errorf("backup create output: %q", out)
	}
	if !strings.Contains(out, "1 schemes") || !strings.Contains(out, "0 plants") {
		t.Errorf("backup metadata counts: %q", out)
	}

	out = mustRunCLI(t, "backup", "list")
	if !strings.Contains(out, "backups/") || !strings.Contains(out, ".json") {
		t.Errorf("backup list output: %q", out)
	}
}

func TestCLIInitFileDriver(t *testing.T) {
	dir := setTestEnv(t, "file")

	out := mustRunCLI(t, "init")
	if !strings.Contains(out, "initialized data directory") {
		t.Errorf("init output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "fertilizer_config.json")); err != nil {
		t.Fatalf("scheme config not written: %v", err)
	}
	if _, err := runCLI(t, "init"); err == nil {
		t.Error("init should refuse to overwrite an existing scheme config")
	}

	out = mustRunCLI(t, "scheme", "list")
	if !strings.Contains(out, "* substrate") {
		t.Errorf("bootstrapped directory listing:\n%s", out)
	}
	out = mustRunCLI(t, "status")
	if !strings.Contains(out, "file") || !strings.Contains(out, "active scheme:       substrate") {
		t.Errorf("status output:\n%s", out)
	}
}

func TestCLIConfigPrecedence(t *testing.T) {
	dir := setTestEnv(t, "file")

	// The file driver refuses an uninitialized directory, so a passing
	// listing proves the --storage flag overrode the environment.
	if _, err := runCLI(t, "scheme", "list"); err == nil {
		t.Fatal("file driver should fail before init")
	}
	out := mustRunCLI(t, "scheme", "list", "--storage", "sqlite")
	if !strings.Contains(out, "* substrate") {
		t.Errorf("flag precedence listing:\n%s", out)
	}

	if _, err := runCLI(t, "--config", filepath.Join(dir, "missing.yaml"), "scheme", "list"); err == nil {
		t.Error("explicit missing config file should fail")
	}

	// With neither flags nor environment set the config file decides.
	cfgPath := filepath.Join(dir, "growcore.yaml")
	yaml := fmt.Sprintf("storage:\n  driver: sqlite\n  sqlite_path: %s\n", filepath.Join(dir, "cfg.db"))
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	os.Unsetenv("GROWCORE_STORAGE_DRIVER")
	os.Unsetenv("GROWCORE_SQLITE_PATH")
	out = mustRunCLI(t, "--config", cfgPath, "scheme", "list")
	if !strings.Contains(out, "* substrate") {
		t.Errorf("config file driven listing:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "cfg.db")); err != nil {
		t.Errorf("sqlite path from config file not used: %v", err)
	}
}

func TestCLIResolveValidation(t *testing.T) {
	setTestEnv(t, "sqlite")

	if _, err := runCLI(t, "resolve"); err == nil {
		t.Error("resolve without --week or --plant should fail")
	}
	if _, err := runCLI(t, "resolve", "--week", "2", "--plant", "Aurora"); err == nil {
		t.Error("resolve with both --week and --plant should fail")
	}
	if _, err := runCLI(t, "resolve", "--week", "2", "--litres=-1"); err == nil || !strings.Contains(err.Error(), "litres must be positive") {
		t.Errorf("negative litres: got %v", err)
	}
}
