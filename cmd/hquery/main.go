// Command hquery runs declarative system queries.
package main

import (
	"os"

	"github.com/homiodev/homio-hquery/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
