// Package main runs the application control plane: the authoritative record
// of tenant apps and the write path keeping them consistent with their
// processes, droplets and bindings.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/nimbus-paas/control_plane/internal/app/runtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := runtime.NewApplication(ctx)
	if err != nil {
		log.Fatalf("failed to start control plane: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("control plane terminated: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
}
