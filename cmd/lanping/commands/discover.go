package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgecli/lanping"
	"github.com/edgecli/lanping/internal/registry"
	"github.com/edgecli/lanping/internal/ui"
)

const defaultWait = 2 * time.Second

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Broadcast a discovery request and list the peers that answer",
	Long: `Broadcast a discovery request and print every peer that answers within
the timeout. With --filter only peers whose role is listed answer; peers
without a role always answer.`,
	Example: `  lanping discover
  lanping discover --filter printer,scanner --timeout 5s
  lanping discover --source-port 3025`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetStringSlice("filter")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		sourcePort, _ := cmd.Flags().GetInt("source-port")

		cfg, node, err := setup(cmd)
		if err != nil {
			return err
		}
		defer node.Close()

		peers, err := registry.NewRegistry(registry.DefaultSize, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		spinner := ui.NewSpinner("Waiting for replies...")
		spinner.Start()
		err = discoverPeers(ctx, node, localOptions(cfg, sourcePort), lanping.BroadcastOptions{
			Filter: filter,
			Port:   targetPort(cfg),
		}, timeout, peers)
		spinner.Stop()
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), ui.RenderPeerTable(peers.List(), time.Now()))
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringSlice("filter", nil, "Only ask peers with these roles")
	discoverCmd.Flags().Duration("timeout", defaultWait, "How long to collect replies")
	discoverCmd.Flags().Int("source-port", 0, "Local port to send from (default: the discovery port)")
}

// discoverPeers configures node, broadcasts req and records every pong into
// peers until timeout elapses or ctx is cancelled.
func discoverPeers(ctx context.Context, node *lanping.Node, opts lanping.Options, req lanping.BroadcastOptions, timeout time.Duration, peers *registry.Registry) error {
	node.OnNode(func(msg *lanping.Message, from lanping.Addr) {
		if msg.Type == lanping.TypePong {
			peers.Upsert(*msg.Node, from)
		}
	})

	if err := node.Configure(opts); err != nil {
		return err
	}
	if err := node.Broadcast(req); err != nil {
		return fmt.Errorf("failed to broadcast: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return nil
}
