package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgecli/lanping"
	"github.com/edgecli/lanping/internal/discovery"
	"github.com/edgecli/lanping/internal/ui"
)

var sendCmd = &cobra.Command{
	Use:   "send <type> [address]",
	Short: "Send a custom event to one peer or to the broadcast address",
	Long: `Send an application-defined event. Peers that registered a handler for
the type (for example with "lanping listen --on <type>") receive it. Without
an address the event is broadcast.`,
	Example: `  lanping send chat --data '"hello"'
  lanping send job 192.168.1.20 --data '{"id": 7}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")
		sourcePort, _ := cmd.Flags().GetInt("source-port")

		cfg, node, err := setup(cmd)
		if err != nil {
			return err
		}
		defer node.Close()

		address := ""
		if len(args) == 2 {
			address = args[1]
		}
		msg, err := buildEvent(args[0], address, targetPort(cfg), data)
		if err != nil {
			return err
		}

		if err := sendEvent(node, localOptions(cfg, sourcePort), msg); err != nil {
			return err
		}

		to := msg.Address
		if to == "" {
			to = "broadcast"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %s\n", ui.RenderSuccess("sent"), msg.Type, to)
		return nil
	},
}

func init() {
	sendCmd.Flags().String("data", "", "JSON payload")
	sendCmd.Flags().Int("source-port", 0, "Local port to send from (default: the discovery port)")
}

// buildEvent validates the command arguments and assembles the message.
// An empty address leaves the node's broadcast address in effect.
func buildEvent(eventType, address string, defaultPort int, data string) (*lanping.Message, error) {
	if eventType == "" {
		return nil, lanping.ErrMissingType
	}
	if discovery.IsBuiltin(eventType) {
		return nil, fmt.Errorf("%w: %q is reserved, use ping or discover", lanping.ErrInvalidArgument, eventType)
	}

	msg := &lanping.Message{Type: eventType, Port: defaultPort}
	if address != "" {
		target, err := parseTarget(address, defaultPort)
		if err != nil {
			return nil, err
		}
		msg.Address = target.IP
		msg.Port = target.Port
	}
	if data != "" {
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("%w: --data is not valid JSON", lanping.ErrInvalidArgument)
		}
		msg.Data = json.RawMessage(data)
	}
	return msg, nil
}

func sendEvent(node *lanping.Node, opts lanping.Options, msg *lanping.Message) error {
	if err := node.Configure(opts); err != nil {
		return err
	}

	var sendErr error
	if err := node.Send(msg, func(err error) { sendErr = err }); err != nil {
		return err
	}
	if sendErr != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, sendErr)
	}
	return nil
}
