package installer

import (
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"

	"github.com/joulelab/jouleup/internal/exec"
)

// UnknownVersion is shown when an installed binary will not report a version.
const UnknownVersion = "unknown"

// Installation describes a binary discovered on disk.
type Installation struct {
	// Path is the absolute location of the binary.
	Path string

	// Version is the binary's self-reported version, or UnknownVersion.
	Version string
}

// DetectOnPath scans PATH for the named binary and queries its version.
// Returns nil when nothing is found; detection never fails an operation.
func DetectOnPath(ctx context.Context, runner exec.CommandRunner, binaryName string) *Installation {
	path, err := osexec.LookPath(binaryName)
	if err != nil {
		return nil
	}

	if abs, absErr := filepath.Abs(path); absErr == nil {
		path = abs
	}

	return &Installation{
		Path:    path,
		Version: queryVersion(ctx, runner, path),
	}
}

// DetectAt reports the installation at an exact path, or nil.
func DetectAt(ctx context.Context, runner exec.CommandRunner, path string) *Installation {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}

	return &Installation{
		Path:    path,
		Version: queryVersion(ctx, runner, path),
	}
}

// queryVersion asks the binary for its version. Best effort: any failure
// degrades to UnknownVersion rather than blocking the caller.
func queryVersion(ctx context.Context, runner exec.CommandRunner, path string) string {
	result := runner.Run(ctx, path, "--version")
	if result.Failed() {
		return UnknownVersion
	}

	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		return UnknownVersion
	}

	// typical output: "joule-profiler 1.2.0"
	fields := strings.Fields(out)

	return fields[len(fields)-1]
}
