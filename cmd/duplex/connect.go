package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zereker/duplex"
)

func connectCmd() *cobra.Command {
	var (
		addr     string
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a peer, send greetings and print replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, duplex.DefaultConnectAddr)
			if err != nil {
				return err
			}
			opts, err := connectionOptions(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			d, err := duplex.ConnectTo(ctx, cfg.Addr, opts...)
			if err != nil {
				return err
			}

			return greet(d, count, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", duplex.DefaultConnectAddr, "address to connect to")
	cmd.Flags().IntVarP(&count, "count", "n", 8, "number of messages to send")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "how long to wait for a reply between messages")

	return cmd
}

// greet sends count numbered messages, printing whatever comes back in
// between, then closes ch.
func greet(ch duplex.Channel, count int, interval time.Duration) error {
	if err := ch.Send([]byte("Just connected to you client !")); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		msg, err := ch.Receive(interval)
		switch {
		case errors.Is(err, duplex.ErrQueueEmpty):
		case err != nil:
			return err
		case len(msg) > 0:
			fmt.Printf("[CLIENT] Received: %s\n", msg)
		}

		out := fmt.Sprintf("Hello %d from client.", i)
		if err := ch.Send([]byte(out)); err != nil {
			return err
		}
		fmt.Println("[CLIENT] Sent: ", out)
	}

	// One last wait lets the loop flush the final message and catch a reply.
	if msg, err := ch.Receive(interval); err == nil && len(msg) > 0 {
		fmt.Printf("[CLIENT] Received: %s\n", msg)
	}

	fmt.Println("[CLIENT] Closing...")
	return ch.Close()
}
