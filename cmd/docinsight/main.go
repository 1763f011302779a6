package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/docinsight-backend/internal/cli"
	"github.com/yungbote/docinsight-backend/internal/platform/shutdown"
)

var version = "dev"

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
