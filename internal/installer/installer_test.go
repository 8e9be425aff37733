package installer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/config"
	"github.com/joulelab/jouleup/internal/exec"
	"github.com/joulelab/jouleup/internal/installer"
	"github.com/joulelab/jouleup/pkg/logger"
)

// stubRunner answers --version queries and succeeds on everything else.
type stubRunner struct {
	versionOutput string
	failVersion   bool
}

func (s *stubRunner) Run(_ context.Context, _ string, args ...string) *exec.CommandResult {
	if len(args) > 0 && args[0] == "--version" {
		if s.failVersion {
			return &exec.CommandResult{ExitCode: 1}
		}

		return &exec.CommandResult{Stdout: s.versionOutput}
	}

	return &exec.CommandResult{}
}

func (s *stubRunner) RunInteractive(
	_ context.Context,
	_ string,
	_ ...string,
) *exec.CommandResult {
	return &exec.CommandResult{}
}

// fakeUI answers confirmations with a fixed value and records each ask.
type fakeUI struct {
	answer bool
	asked  []string
}

func (f *fakeUI) Confirm(title, _ string, _ bool) (bool, error) {
	f.asked = append(f.asked, title)

	return f.answer, nil
}

func (f *fakeUI) IsInteractive() bool { return true }

type fakeTools struct{}

func (fakeTools) IsAvailable(string) bool { return false }
func (fakeTools) RequireTool(string) error {
	return errors.New("unavailable")
}

func newSettings(installDir string) config.Settings {
	return config.Settings{
		InstallDir:  installDir,
		BinaryName:  "joule-profiler",
		GitHubOwner: "joulelab",
		GitHubRepo:  "joule-profiler",
		Timeout:     config.DefaultTimeout,
	}
}

func writeBinary(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
}

func newInstaller(
	t *testing.T,
	settings config.Settings,
	ui *fakeUI,
) (*installer.Installer, *bytes.Buffer) {
	t.Helper()

	inst := installer.New(
		settings,
		ui,
		&stubRunner{versionOutput: "joule-profiler 1.2.0"},
		fakeTools{},
		logger.NewNoOpLogger(),
	)

	var out bytes.Buffer
	inst.SetOutput(&out)

	return inst, &out
}

func TestInstallFresh(t *testing.T) {
	installDir := filepath.Join(t.TempDir(), "bin")
	t.Setenv("PATH", installDir) // dir doesn't exist yet, so nothing pre-installed

	src := filepath.Join(t.TempDir(), "staged")
	writeBinary(t, src, "payload")

	ui := &fakeUI{}
	inst, out := newInstaller(t, newSettings(installDir), ui)

	if err := inst.Install(context.Background(), src, "v1.2.0"); err != nil {
		t.Fatalf("Install: %v", err)
	}

	dst := filepath.Join(installDir, "joule-profiler")

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "payload" {
		t.Errorf("installed content = %q", got)
	}

	if len(ui.asked) != 0 {
		t.Errorf("fresh install asked %d confirmations, want 0", len(ui.asked))
	}

	if !strings.Contains(out.String(), "Installed joule-profiler v1.2.0") {
		t.Errorf("output %q lacks install message", out.String())
	}
}

func TestInstallFailsWhenDirNotOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir()) // install dir deliberately absent

	installDir := filepath.Join(t.TempDir(), "bin")
	src := filepath.Join(t.TempDir(), "staged")
	writeBinary(t, src, "payload")

	inst, _ := newInstaller(t, newSettings(installDir), &fakeUI{})

	err := inst.Install(context.Background(), src, "v1.2.0")
	if !errors.Is(err, installer.ErrInstallationFailed) {
		t.Fatalf("error = %v, want ErrInstallationFailed", err)
	}

	// placed but unusable: the diagnostic must point at PATH
	if !strings.Contains(err.Error(), "PATH") {
		t.Errorf("error %q lacks PATH guidance", err)
	}
}

func TestInstallOverwriteDeclined(t *testing.T) {
	installDir := t.TempDir()
	t.Setenv("PATH", installDir)

	existing := filepath.Join(installDir, "joule-profiler")
	writeBinary(t, existing, "old")

	src := filepath.Join(t.TempDir(), "staged")
	writeBinary(t, src, "new")

	ui := &fakeUI{answer: false}
	inst, _ := newInstaller(t, newSettings(installDir), ui)

	err := inst.Install(context.Background(), src, "v1.2.0")
	if !errors.Is(err, installer.ErrDeclined) {
		t.Fatalf("error = %v, want ErrDeclined", err)
	}

	got, _ := os.ReadFile(existing)
	if string(got) != "old" {
		t.Errorf("declined install mutated the binary: %q", got)
	}
}

func TestInstallOverwriteAssumeYes(t *testing.T) {
	installDir := t.TempDir()
	t.Setenv("PATH", installDir)

	existing := filepath.Join(installDir, "joule-profiler")
	writeBinary(t, existing, "old")

	src := filepath.Join(t.TempDir(), "staged")
	writeBinary(t, src, "new")

	settings := newSettings(installDir)
	settings.AssumeYes = true

	ui := &fakeUI{}
	inst, _ := newInstaller(t, settings, ui)

	if err := inst.Install(context.Background(), src, "v1.2.0"); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if len(ui.asked) != 0 {
		t.Errorf("assume_yes asked %d confirmations, want 0", len(ui.asked))
	}

	got, _ := os.ReadFile(existing)
	if string(got) != "new" {
		t.Errorf("content = %q, want new", got)
	}
}

func TestInstallUninstallRoundTrip(t *testing.T) {
	installDir := filepath.Join(t.TempDir(), "bin")
	t.Setenv("PATH", installDir)

	src := filepath.Join(t.TempDir(), "staged")
	writeBinary(t, src, "payload")

	settings := newSettings(installDir)
	settings.AssumeYes = true

	inst, _ := newInstaller(t, settings, &fakeUI{})

	if err := inst.Install(context.Background(), src, "v1.2.0"); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if err := inst.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if _, err := os.Stat(filepath.Join(installDir, "joule-profiler")); !os.IsNotExist(err) {
		t.Error("binary still present after uninstall")
	}

	// a second removal has nothing left to act on
	err := inst.Uninstall(context.Background())
	if !errors.Is(err, installer.ErrNotInstalled) {
		t.Errorf("second uninstall error = %v, want ErrNotInstalled", err)
	}
}

func TestUninstallCanonical(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	installDir := t.TempDir()
	path := filepath.Join(installDir, "joule-profiler")
	writeBinary(t, path, "payload")

	settings := newSettings(installDir)
	settings.AssumeYes = true

	inst, out := newInstaller(t, settings, &fakeUI{})

	if err := inst.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("binary still present after uninstall")
	}

	if !strings.Contains(out.String(), "Removed joule-profiler (1.2.0)") {
		t.Errorf("output %q lacks removal message with version", out.String())
	}
}

func TestUninstallPathFallback(t *testing.T) {
	otherDir := t.TempDir()
	t.Setenv("PATH", otherDir)

	stray := filepath.Join(otherDir, "joule-profiler")
	writeBinary(t, stray, "payload")

	settings := newSettings(t.TempDir()) // canonical dir is empty
	settings.AssumeYes = true

	inst, out := newInstaller(t, settings, &fakeUI{})

	if err := inst.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Error("stray binary still present after uninstall")
	}

	if !strings.Contains(out.String(), "instead") {
		t.Errorf("output %q lacks divergence report", out.String())
	}
}

func TestUninstallNotInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	inst, _ := newInstaller(t, newSettings(t.TempDir()), &fakeUI{})

	err := inst.Uninstall(context.Background())
	if !errors.Is(err, installer.ErrNotInstalled) {
		t.Errorf("error = %v, want ErrNotInstalled", err)
	}
}

func TestUninstallDeclined(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	installDir := t.TempDir()
	path := filepath.Join(installDir, "joule-profiler")
	writeBinary(t, path, "payload")

	ui := &fakeUI{answer: false}
	inst, _ := newInstaller(t, newSettings(installDir), ui)

	err := inst.Uninstall(context.Background())
	if !errors.Is(err, installer.ErrDeclined) {
		t.Fatalf("error = %v, want ErrDeclined", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("declined uninstall removed the binary")
	}
}

func TestDetectAtUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joule-profiler")
	writeBinary(t, path, "payload")

	found := installer.DetectAt(
		context.Background(),
		&stubRunner{failVersion: true},
		path,
	)
	if found == nil {
		t.Fatal("expected detection")
	}

	if found.Version != installer.UnknownVersion {
		t.Errorf("version = %q, want %q", found.Version, installer.UnknownVersion)
	}
}

func TestDetectAtMissing(t *testing.T) {
	found := installer.DetectAt(
		context.Background(),
		&stubRunner{},
		filepath.Join(t.TempDir(), "absent"),
	)
	if found != nil {
		t.Errorf("expected nil for missing path, got %+v", found)
	}
}
