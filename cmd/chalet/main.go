// Command chalet is the core build orchestrator's entry point.
package main

import (
	"os"

	"github.com/chalet-org/chalet/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
