package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the pipeline tools
	Version = "1.0.0"

	// SampleFormatVersion is bumped whenever the sample file layout changes
	SampleFormatVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	SampleFormat string `json:"sample_format"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		SampleFormat: SampleFormatVersion,
	}
}

// GetFullVersionString returns a one-line version banner for a tool
func GetFullVersionString(tool string) string {
	info := GetVersionInfo()
	return fmt.Sprintf("loanrisk %s v%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		tool, info.Version, info.BuildTime, info.GitCommit, info.GoVersion, info.OS, info.Architecture)
}
