// Package version reports the build of the running binary.
package version

import (
	"errors"
	"runtime/debug"
)

// ErrNoBuildInfo is returned when the binary was built without module support.
var ErrNoBuildInfo = errors.New("build information is not available")

// BuildInfo returns the build information
func BuildInfo() (*debug.BuildInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return nil, ErrNoBuildInfo
	}

	return bi, nil
}

// Module returns the main module as path@version, or an empty string when the
// binary carries no build information.
func Module() string {
	bi, err := BuildInfo()
	if err != nil {
		return ""
	}

	return bi.Main.Path + "@" + bi.Main.Version
}
