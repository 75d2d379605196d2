// Package ipc carries local control commands from the voiceprompt CLI to the running
// serve process over a unix socket. Each connection is one newline-delimited JSON request
// followed by one response.
package ipc

// Request is one control command. Value is a number or string depending on Command.
type Request struct {
	Command string `json:"command"`
	Value   any    `json:"value,omitempty"`
}

// Response reports the outcome and the playback position after the command.
type Response struct {
	OK       bool    `json:"ok"`
	State    string  `json:"state,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Speed    int     `json:"speed,omitempty"`
	Position string  `json:"position,omitempty"`
	Progress float64 `json:"progress"`
	Reading  string  `json:"reading,omitempty"`
	Message  string  `json:"message,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// CommandStatus is the read-only probe command every server must answer.
const CommandStatus = "status"
