// Package main is the entrypoint for the migrate CLI.
//
//	migrate              apply pending migrations
//	migrate status       list applied and pending migrations
//	migrate rollback [N] forget the last N applied migrations
//	migrate create NAME  create the next migration file
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ksred/fullstack-boilerplate/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.New().Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
