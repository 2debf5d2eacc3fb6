// Package ipc implements the single-instance control socket for a running
// casl process.
package ipc

// Control socket commands.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
)

// Request is one newline-delimited control message.
type Request struct {
	Command string `json:"command"`
}

// Response answers one Request.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Stats   *Stats `json:"stats,omitempty"`
}

// Stats is the pipeline snapshot reported by status.
type Stats struct {
	Device       string `json:"device,omitempty"`
	UptimeMS     int64  `json:"uptime_ms"`
	Windows      int64  `json:"windows"`
	DecodeErrors int64  `json:"decode_errors"`
	Phrases      int64  `json:"phrases"`
	Dispatches   int64  `json:"dispatches"`
}
