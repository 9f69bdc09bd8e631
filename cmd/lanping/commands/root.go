package commands

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/edgecli/lanping"
	"github.com/edgecli/lanping/internal/config"
	"github.com/edgecli/lanping/internal/deviceid"
	"github.com/edgecli/lanping/internal/transport"
	"github.com/edgecli/lanping/internal/ui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

var rootCmd = &cobra.Command{
	Use:   "lanping",
	Short: "lanping - discover and message peers on the local network",
	Long: `lanping finds other nodes on the local network with UDP broadcast,
probes them directly with ping and exchanges custom events with them.

Settings come from ~/.lanping/config.json, LANPING_* environment variables
(also read from a .env file) and the flags below, in increasing precedence.

Use "lanping [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		noColor, _ := cmd.Flags().GetBool("no-color")
		ui.SetNoColor(noColor)
	},
}

// Execute runs the root command
func Execute() error {
	// A missing .env file is the common case.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(debugCmd)
}

// addGlobalFlags defines the flags every command accepts
func addGlobalFlags(flags *pflag.FlagSet) {
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("config", "", "Config file (default: ~/.lanping/config.json)")
	flags.Int("port", 0, fmt.Sprintf("UDP port (default %d)", lanping.DefaultPort))
	flags.String("broadcast", "", fmt.Sprintf("Broadcast address (default %s)", lanping.DefaultBroadcastAddress))
	flags.String("role", "", "Role announced to peers")
	flags.String("name", "", "Human-readable node name")
	flags.String("bind", "", "Local address to bind (default: all interfaces)")
	flags.Bool("no-color", false, "Disable colored output")
}

// versionCmd shows version info
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "lanping\n")
		fmt.Fprintf(out, "  Version:  %s\n", Version)
		fmt.Fprintf(out, "  Commit:   %s\n", Commit)
		fmt.Fprintf(out, "  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// resolveConfig merges the config file, environment and flags
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("broadcast") {
		cfg.BroadcastAddress, _ = flags.GetString("broadcast")
	}
	if flags.Changed("role") {
		cfg.Role, _ = flags.GetString("role")
	}
	if flags.Changed("name") {
		cfg.Name, _ = flags.GetString("name")
	}
	if flags.Changed("bind") {
		cfg.BindHost, _ = flags.GetString("bind")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newNode creates an unconfigured node for cfg. The id comes from the
// config, or from the persisted device id.
func newNode(cfg *config.Config, logger *slog.Logger, extra ...lanping.Option) (*lanping.Node, error) {
	id := cfg.ID
	if id == "" {
		var err error
		id, err = deviceid.GetOrCreate()
		if err != nil {
			return nil, err
		}
	}

	opts := []lanping.Option{
		lanping.WithID(id),
		lanping.WithLogger(logger),
		lanping.WithBindHost(cfg.BindHost),
	}
	return lanping.New(append(opts, extra...)...)
}

func nodeOptions(cfg *config.Config) lanping.Options {
	return lanping.Options{
		Port:             cfg.Port,
		BroadcastAddress: cfg.BroadcastAddress,
		Role:             cfg.Role,
		Name:             cfg.Name,
	}
}

// targetPort is the port peers listen on
func targetPort(cfg *config.Config) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return lanping.DefaultPort
}

// localOptions returns the node options for a short-lived command. A
// non-zero sourcePort binds there instead of the shared discovery port, so
// the command can run next to a listening node on the same host.
func localOptions(cfg *config.Config, sourcePort int) lanping.Options {
	opts := nodeOptions(cfg)
	if sourcePort != 0 {
		opts.Port = sourcePort
	}
	return opts
}

// parseTarget accepts "host" or "host:port"
func parseTarget(s string, defaultPort int) (lanping.Addr, error) {
	if s == "" {
		return lanping.Addr{}, lanping.ErrMissingAddress
	}
	if _, _, err := net.SplitHostPort(s); err == nil {
		return transport.ParseAddr(s)
	}
	return lanping.Addr{IP: s, Port: defaultPort}, nil
}

// setup resolves the config and creates the node a command runs with
func setup(cmd *cobra.Command, extra ...lanping.Option) (*config.Config, *lanping.Node, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	node, err := newNode(cfg, newLogger(os.Stderr, cfg.Verbose), extra...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, node, nil
}
