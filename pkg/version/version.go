package version

import (
	"fmt"
	"runtime"
)

// Version information - using semantic versioning
const (
	Major      = 1
	Minor      = 3
	Patch      = 0
	PreRelease = "" // e.g., "alpha", "beta", "rc1"
)

// SDKName identifies this SDK in version headers and build info
const SDKName = "Storefront SDK"

// Version returns the semantic version string
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)

	if PreRelease != "" {
		version += "-" + PreRelease
	}

	return version
}

// BuildInfo contains build information
type BuildInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	SDKName   string `json:"sdk_name"`
}

// GetBuildInfo returns complete build information
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version(),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		SDKName:   SDKName,
	}
}

// GetFullVersionString returns a complete version string with build info
func GetFullVersionString() string {
	info := GetBuildInfo()
	return fmt.Sprintf("%s v%s (go: %s, platform: %s)", info.SDKName, info.Version, info.GoVersion, info.Platform)
}
