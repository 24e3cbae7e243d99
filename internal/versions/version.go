// Package versions holds build metadata and version comparison helpers.
package versions

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/edap/edap-server/internal/versions.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// DataVersion is stamped into every stored profile as generated_with. Bump it
// whenever the snapshot layout changes; profiles written by an older layout are
// replaced on their next sync without emitting change events.
const DataVersion = "2.0.0"

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
	DataVersion string `json:"data_version"`
}

// GetVersionInfo returns the build metadata of the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:     Version,
		Commit:      Commit,
		BuildDate:   BuildDate,
		GoVersion:   runtime.Version(),
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		DataVersion: DataVersion,
	}
}

// IsOutdated reports whether data stamped with generatedWith predates the
// current DataVersion. Unstamped data counts as outdated.
func IsOutdated(generatedWith string) bool {
	if generatedWith == "" {
		return true
	}
	return IsNewerVersion(DataVersion, generatedWith)
}
