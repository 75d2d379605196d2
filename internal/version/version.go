// Package version holds build metadata injected with -ldflags.
package version

import "runtime"

const Name = "voiceprompt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return Name + " " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}
