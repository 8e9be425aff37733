// Package platform probes the host environment for installability.
package platform

import (
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
)

// ErrUnsupportedPlatform is returned when the host OS or architecture has
// no published release artifact.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

const (
	// SupportedOS is the only operating system with published artifacts.
	SupportedOS = "linux"

	// RAPLPathEnv overrides where the profiler reads Intel RAPL counters.
	RAPLPathEnv = "JOULE_PROFILER_RAPL_PATH"

	// DefaultRAPLPath is the powercap sysfs root the profiler reads by default.
	DefaultRAPLPath = "/sys/devices/virtual/powercap/intel-rapl"
)

// archTriples maps Go architecture names to release artifact target triples.
// Only architectures with published artifacts appear here.
var archTriples = map[string]string{
	"amd64": "x86_64-unknown-linux-gnu",
}

// Target identifies the host for artifact selection.
type Target struct {
	OS     string
	Arch   string
	Triple string
}

// Probe validates the given OS and architecture against the artifact
// allow-list. It performs no network or filesystem access, so unsupported
// hosts are rejected before anything else runs.
func Probe(goos, goarch string) (Target, error) {
	if goos != SupportedOS {
		return Target{}, errors.Wrapf(
			ErrUnsupportedPlatform,
			"operating system %q (only %s is supported)",
			goos, SupportedOS,
		)
	}

	triple, ok := archTriples[goarch]
	if !ok {
		return Target{}, errors.Wrapf(
			ErrUnsupportedPlatform,
			"architecture %q (supported: amd64/x86_64)",
			goarch,
		)
	}

	return Target{
		OS:     goos,
		Arch:   goarch,
		Triple: triple,
	}, nil
}

// ProbeHost probes the platform jouleup is running on.
func ProbeHost() (Target, error) {
	return Probe(runtime.GOOS, runtime.GOARCH)
}

// RAPLPath returns the powercap path the profiler will read, honoring the
// environment override.
func RAPLPath() string {
	if path := os.Getenv(RAPLPathEnv); path != "" {
		return path
	}

	return DefaultRAPLPath
}

// CheckRAPL reports whether the RAPL powercap interface is present at the
// given path. Absence is a warning, not an error: the interface may appear
// after a module load, and the profiler accepts an override path at runtime.
func CheckRAPL(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}
