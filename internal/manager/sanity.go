package manager

import (
	"os"
	"os/exec"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	WorkerFound    bool   `json:"worker_found"`
	WorkerPath     string `json:"worker_path,omitempty"`
	TelemetryFound bool   `json:"telemetry_found"`
	Error          string `json:"error,omitempty"`
}

// availabler is implemented by collectors that can tell whether their tool
// is installed.
type availabler interface {
	Available() bool
}

// SanityCheck validates that required external binaries are available.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	var r SanityReport
	if a, ok := m.telemetry.(availabler); ok {
		r.TelemetryFound = a.Available()
	}
	bin := m.workerBin
	if bin == "" {
		r.Error = "worker binary not configured"
		return r
	}
	if p, err := exec.LookPath(bin); err == nil {
		bin = p
	}
	r.WorkerPath = bin
	fi, err := os.Stat(bin)
	switch {
	case err != nil:
		r.Error = err.Error()
	case fi.IsDir():
		r.Error = "worker path is a directory"
	default:
		r.WorkerFound = true
	}
	return r
}
