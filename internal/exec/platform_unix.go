//go:build !windows

package exec

import "github.com/homiodev/homio-hquery/internal/query"

const (
	shellName = "/bin/sh"
	shellFlag = "-c"
)

// Platform returns the platform whose templates this build executes.
func Platform() query.Platform {
	return query.PlatformUnix
}
