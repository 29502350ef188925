// Command tangleopt parses phylogenetic-tree/map inputs into instance
// records and solves them for minimum leader-line crossings.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tanglegram/tangleopt/cmd/tangleopt/cmd"
	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
	"github.com/tanglegram/tangleopt/pkg/telemetry"
)

func main() {
	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry init failed: %v\n", err)
		shutdown = func(context.Context) error { return nil }
	}

	err = cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	shutdown(ctx)
	os.Exit(apperrors.ExitCode(err))
}
