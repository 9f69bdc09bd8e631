package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// debugCmd is the parent command for debug subcommands
var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug and diagnostic commands",
	Long:  `Commands for debugging and diagnosing issues with lanping.`,
}

// debugFlagsCmd prints the resolved settings
var debugFlagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Print resolved settings for debugging",
	Long: `Print the settings a command would run with after merging the config
file, LANPING_* environment variables and flags.

This is useful to verify which source a port or role comes from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		configPath, _ := cmd.Flags().GetString("config")

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Resolved Settings:")
		fmt.Fprintf(out, "  --config:    %q\n", configPath)
		fmt.Fprintf(out, "  id:          %q\n", cfg.ID)
		fmt.Fprintf(out, "  role:        %q\n", cfg.Role)
		fmt.Fprintf(out, "  name:        %q\n", cfg.Name)
		fmt.Fprintf(out, "  port:        %d\n", cfg.Port)
		fmt.Fprintf(out, "  broadcast:   %q\n", cfg.BroadcastAddress)
		fmt.Fprintf(out, "  bind:        %q\n", cfg.BindHost)
		fmt.Fprintf(out, "  metrics:     %q\n", cfg.MetricsAddr)
		fmt.Fprintf(out, "  verbose:     %v\n", cfg.Verbose)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugFlagsCmd)
}
