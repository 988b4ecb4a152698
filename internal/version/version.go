package version

import (
	"runtime"
	"runtime/debug"
)

var version = "dev"

// RawVersion returns the version string without dependency details.
func RawVersion() string {
	return version
}

// Version returns the current version string
func Version() string {
	if v := ProtocolVersion(); v != "" {
		return version + " (go.lsp.dev/protocol " + v + ")"
	}
	return version
}

// ProtocolVersion returns the linked LSP protocol module version from build info.
func ProtocolVersion() string {
	return depVersion("go.lsp.dev/protocol")
}

// Info is the machine-readable form printed by "twlint version --json".
type Info struct {
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	GoVersion       string `json:"goVersion"`
	Platform        string `json:"platform"`
}

// GetInfo collects version details of the running binary.
func GetInfo() Info {
	return Info{
		Version:         version,
		ProtocolVersion: ProtocolVersion(),
		GoVersion:       runtime.Version(),
		Platform:        runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func depVersion(path string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == path {
			return dep.Version
		}
	}
	return ""
}
