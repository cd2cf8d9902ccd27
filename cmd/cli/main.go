package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/picogrid/fragment-simulations/cmd/cli/cmd"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	os.Exit(exitStatus(cmd.Execute(), os.Stderr))
}

// exitStatus prints err to w and returns 1, or returns 0 for a nil err.
// The status does not depend on whether the write succeeds.
func exitStatus(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
