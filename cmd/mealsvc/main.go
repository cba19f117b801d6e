// Command mealsvc serves meal records over a read-only JSON API.
//
//	@title       Meal API
//	@version     1.0
//	@description Read-only HTTP API serving meal records from an entity store.
//	@BasePath    /
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tbourn/go-meal-backend/internal/cli"
)

// version is set at build time: -ldflags "-X main.version=v1.0.0".
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "mealsvc:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
