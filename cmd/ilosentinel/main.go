// Command ilosentinel discovers, registers, and tracks HPE iLO baseboard
// management controllers on a configured address range.
package main

import (
	"fmt"
	"os"

	"github.com/ilofleet/sentinel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
