package client

import "time"

// ClientRequest registers a client identity with the bridge.
type ClientRequest struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"` // "shell" (default) or "compat"
	PID  int    `json:"pid"`
}

// WindowRequest opens a toplevel owned by a registered client.
type WindowRequest struct {
	ID     string `json:"id"`
	Client string `json:"client"`
	Title  string `json:"title,omitempty"`
	Class  string `json:"class,omitempty"`
	Mapped bool   `json:"mapped"`
}

// WindowPatch updates a toplevel; nil fields are left alone.
type WindowPatch struct {
	Title  *string `json:"title,omitempty"`
	Class  *string `json:"class,omitempty"`
	Mapped *bool   `json:"mapped,omitempty"`
}

// WindowInfo is the state of a single toplevel.
type WindowInfo struct {
	ID            string  `json:"id"`
	Client        string  `json:"client,omitempty"`
	Title         string  `json:"title"`
	Class         string  `json:"class"`
	Mapped        bool    `json:"mapped"`
	NotResponding bool    `json:"not_responding"`
	Tint          float32 `json:"tint"`
}

// Record is the liveness state the watchdog keeps per client.
type Record struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	PID              int    `json:"pid"`
	MissedResponses  int    `json:"missed_responses"`
	WasNotResponding bool   `json:"was_not_responding"`
	DialogSaidWait   bool   `json:"dialog_said_wait"`
	NotResponding    bool   `json:"not_responding"`
	PromptRunning    bool   `json:"prompt_running"`
	Defunct          bool   `json:"defunct"`
}

// Status is the daemon summary.
type Status struct {
	Active        bool     `json:"active"`
	PromptEnabled bool     `json:"prompt_enabled"`
	Threshold     int      `json:"threshold"`
	Clients       int      `json:"clients"`
	Windows       int      `json:"windows"`
	Records       []Record `json:"records"`
}

// Event is one server-sent notification. Data is the pid for anr and
// anrrecovered, the client id for ping.
type Event struct {
	Type       string
	Data       string
	ReceivedAt time.Time
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
