package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/morezero/runtime-ipc/pkg/client"
	"github.com/morezero/runtime-ipc/pkg/commsutil"
	"github.com/morezero/runtime-ipc/pkg/routing"
	"github.com/morezero/runtime-ipc/pkg/transport/commstransport"
)

type sendFlags struct {
	sync      bool
	async     bool
	hello     bool
	routingID int
}

func newSendCmd() *cobra.Command {
	var f sendFlags

	cmd := &cobra.Command{
		Use:   "send <type> <value>",
		Short: "Send one IPC message to the host as a renderer would",
		Long: `Send one IPC message to the host.

Without flags the message is fire-and-forget. --sync blocks for the reply;
--async registers a pending call and waits up to SYNC_TIMEOUT for the reply
to arrive on the inbox. --hello performs the protocol handshake first and
aborts if the host rejects this client's version.`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if f.sync && f.async {
				return errors.New("--sync and --async are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, f, args[0], args[1])
		},
	}
	cmd.Flags().BoolVar(&f.sync, "sync", false, "block until the host replies")
	cmd.Flags().BoolVar(&f.async, "async", false, "send with a call id and wait for the correlated reply")
	cmd.Flags().BoolVar(&f.hello, "hello", false, "handshake with the host before sending")
	cmd.Flags().IntVar(&f.routingID, "routing-id", 0, "routing id to send under (default ROUTING_ID)")
	return cmd
}

func runSend(cmd *cobra.Command, f sendFlags, msgType, value string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForClient(); err != nil {
		return err
	}
	routingID := cfg.RoutingID
	if cmd.Flags().Changed("routing-id") {
		routingID = f.routingID
	}

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.Process)
	if err != nil {
		return err
	}
	defer nc.Close()

	tr, err := commstransport.New(nc, commstransport.Config{
		Prefix:      cfg.SubjectPrefix,
		Process:     cfg.Process,
		SyncTimeout: cfg.SyncTimeout,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	c, err := client.New(client.NewParams{Transport: tr})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ec := routing.NewSlotsWithRoutingID(routingID)
	out := cmd.OutOrStdout()

	if f.hello {
		if err := handshake(ctx, c, ec, cfg.Process, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	switch {
	case f.sync:
		reply := c.SendSync(ctx, ec, msgType, value)
		if reply == "" {
			return fmt.Errorf("no reply (see log)")
		}
		fmt.Fprintln(out, reply)

	case f.async:
		if err := tr.Listen(c.Deliver); err != nil {
			return err
		}
		type result struct{ msgType, value string }
		got := make(chan result, 1)
		callID := c.SendAsyncFunc(ctx, ec, msgType, value, func(t, v string) error {
			got <- result{t, v}
			return nil
		})
		if callID == "" {
			return fmt.Errorf("send failed (see log)")
		}
		select {
		case r := <-got:
			fmt.Fprintf(out, "%s %s\n", r.msgType, r.value)
		case <-time.After(cfg.SyncTimeout):
			return fmt.Errorf("no reply for call %s within %s", callID, cfg.SyncTimeout)
		}

	default:
		c.Send(ctx, ec, msgType, value)
		if err := nc.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", c.Stats())
	return nil
}

// handshake runs the hello exchange and reports the negotiated version on w.
func handshake(ctx context.Context, c *client.Client, ec routing.Context, name string, w io.Writer) error {
	reply, err := c.Hello(ctx, ec, name)
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	fmt.Fprintf(w, "host protocol %s, routing id %d\n", reply.ProtocolVersion, reply.RoutingID)
	return nil
}
