package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgecli/lanping"
	"github.com/edgecli/lanping/internal/ui"
)

var errNoReply = errors.New("no reply")

var pingCmd = &cobra.Command{
	Use:   "ping <address>",
	Short: "Probe one peer and wait for its reply",
	Long: `Send a ping to a single peer and print its identity and the round trip
time. The address is a host or host:port; without a port the discovery port
is used.`,
	Example: `  lanping ping 192.168.1.20
  lanping ping 192.168.1.20:4000 --timeout 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		sourcePort, _ := cmd.Flags().GetInt("source-port")

		cfg, node, err := setup(cmd)
		if err != nil {
			return err
		}
		defer node.Close()

		target, err := parseTarget(args[0], targetPort(cfg))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		spinner := ui.NewSpinner(fmt.Sprintf("Pinging %s...", target))
		spinner.Start()
		reply, err := pingPeer(ctx, node, localOptions(cfg, sourcePort), target, timeout)
		spinner.Stop()
		if err != nil {
			return fmt.Errorf("ping %s: %w", target, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s from %s in %s\n",
			ui.RenderSuccess("pong"), reply.identity.Label(), reply.from, reply.rtt.Round(time.Microsecond))
		return nil
	},
}

func init() {
	pingCmd.Flags().Duration("timeout", defaultWait, "How long to wait for the reply")
	pingCmd.Flags().Int("source-port", 0, "Local port to send from (default: the discovery port)")
}

type pingReply struct {
	identity lanping.Identity
	from     lanping.Addr
	rtt      time.Duration
}

// pingPeer configures node, pings target and waits for the first pong.
func pingPeer(ctx context.Context, node *lanping.Node, opts lanping.Options, target lanping.Addr, timeout time.Duration) (pingReply, error) {
	replies := make(chan pingReply, 1)
	node.OnNode(func(msg *lanping.Message, from lanping.Addr) {
		if msg.Type != lanping.TypePong {
			return
		}
		select {
		case replies <- pingReply{identity: *msg.Node, from: from}:
		default:
		}
	})

	if err := node.Configure(opts); err != nil {
		return pingReply{}, err
	}

	start := time.Now()
	if err := node.Ping(lanping.PingOptions{Address: target.IP, Port: target.Port}); err != nil {
		return pingReply{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-replies:
		r.rtt = time.Since(start)
		return r, nil
	case <-timer.C:
		return pingReply{}, errNoReply
	case <-ctx.Done():
		return pingReply{}, ctx.Err()
	}
}
