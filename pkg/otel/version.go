// SPDX-License-Identifier: Apache-2.0

package otel

import (
	"runtime/debug"
	"sync"
)

const (
	unknownVersion     = "unknown"
	developmentVersion = "development"
)

var buildVersion = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknownVersion
	}
	return versionFromBuildInfo(info)
})

// serviceVersion returns the configured version, falling back to the version
// recorded in the binary build info for development builds.
func serviceVersion(configured string) string {
	if configured != "" && configured != developmentVersion {
		return configured
	}
	return buildVersion()
}

// versionFromBuildInfo prefers the main module version and falls back to the
// vcs revision, which is only recorded when building the cmd package.
func versionFromBuildInfo(info *debug.BuildInfo) string {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	revision, modified := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	switch {
	case revision == "":
		return unknownVersion
	case modified:
		return revision + "-dirty"
	default:
		return revision
	}
}
