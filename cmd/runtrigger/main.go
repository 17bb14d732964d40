// Command runtrigger exercises the trigger pipeline end to end without
// an HTTP layer: it wires the Postgres, MinIO, resty, OpenTelemetry, and
// Redis adapters into engine/trigger.Service and exposes TriggerTask
// through a Cobra CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
