//go:build windows

package exec

import "github.com/homiodev/homio-hquery/internal/query"

const (
	shellName = "cmd.exe"
	shellFlag = "/C"
)

// Platform returns the platform whose templates this build executes.
func Platform() query.Platform {
	return query.PlatformWindows
}
