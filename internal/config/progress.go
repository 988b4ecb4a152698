package config

import "github.com/gkampitakis/ciinfo"

// Values of the progress key.
const (
	ProgressAuto = "auto"
	ProgressOn   = "on"
	ProgressOff  = "off"
)

// ProgressEnabled decides whether the progress line is drawn. Under auto it
// needs a terminal and is suppressed in CI, where logs are not redrawn.
func ProgressEnabled(mode string, terminal bool) bool {
	switch mode {
	case ProgressOn:
		return true
	case ProgressOff:
		return false
	default:
		return terminal && !ciinfo.IsCI
	}
}

// CIName names the CI provider the run was detected in, or "".
func CIName() string {
	if ciinfo.IsCI {
		return ciinfo.Name
	}
	return ""
}
