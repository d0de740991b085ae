// Command server runs the wotcsync sync engine: scheduled and webhook-driven
// integration syncs, state portal submissions, the operator REST API and the
// gRPC health endpoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/wotcsync/internal/server"
	"github.com/dmitrijs2005/wotcsync/internal/server/config"
)

var version = "dev"

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wotcsync %s: %v\n", version, err)
		os.Exit(1)
	}

	app.Run(context.Background())
}
