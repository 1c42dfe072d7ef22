package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zereker/duplex"
)

func serveCmd() *cobra.Command {
	var (
		addr string
		echo bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Wait for one peer and print its messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, duplex.DefaultListenAddr)
			if err != nil {
				return err
			}
			opts, err := connectionOptions(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("[SERVER] Listening on %s...\n", cfg.Addr)
			d, err := duplex.ListenOn(ctx, cfg.Addr, opts...)
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				d.Stop(nil)
			}()

			return serve(d, echo)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", duplex.DefaultListenAddr, "address to listen on")
	cmd.Flags().BoolVar(&echo, "echo", false, "send every message back to the peer")

	return cmd
}

// serve prints messages until the peer goes away, then closes ch.
func serve(ch duplex.Channel, echo bool) error {
	for {
		msg, err := ch.Receive(duplex.NoTimeout)
		if errors.Is(err, duplex.ErrPeerDisconnected) {
			break
		}
		if err != nil {
			return err
		}
		if len(msg) == 0 {
			fmt.Println("[SERVER] No message received.")
			break
		}

		fmt.Printf(">>> %s\n", msg)
		if echo {
			err := ch.Send(msg)
			if errors.Is(err, duplex.ErrPeerDisconnected) || errors.Is(err, duplex.ErrClosed) {
				fmt.Println("[SERVER] Peer left before the echo.")
				break
			}
			if err != nil {
				return err
			}
		}
	}

	fmt.Println("[SERVER] Closing.")
	if err := ch.Close(); err != nil && !errors.Is(err, duplex.ErrPeerDisconnected) {
		return err
	}
	return nil
}
