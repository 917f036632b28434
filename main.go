package main

import (
	"context"
	"os"

	"blogfront/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var exit = os.Exit

func main() {
	exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	root := service.NewRootCommand(version)
	root.SetArgs(args)
	return service.Execute(context.Background(), root)
}
