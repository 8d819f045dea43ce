// Command rtsvc builds and exercises secure monitor runtime service
// catalogs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/rtsvc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
