package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/duplex"
)

// An echo peer: accepts one connection and sends every message back.
func main() {
	duplex.SetVerbose(os.Getenv("DUPLEX_VERBOSE") != "")

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := duplex.ListenOn(ctx, "127.0.0.1:12345")
	if err != nil {
		slog.Error("failed to accept peer", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")
		d.Stop(nil)
	}()

	for {
		msg, err := d.Receive(duplex.NoTimeout)
		if err != nil {
			slog.Error("receive error", "error", err)
			break
		}
		if len(msg) == 0 {
			break
		}

		if err := d.Send(msg); err != nil {
			slog.Warn("echo dropped", "error", err)
		}
	}

	if err := d.Close(); err != nil {
		slog.Error("connection error", "error", err)
	}
}
