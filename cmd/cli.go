package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"wsconsole/pkg/build"
)

// Commands selected by ParseArgs.
const (
	CommandListen = "listen"
	CommandSend   = "send"
)

// Options holds what the command line asked for. Zero values mean "use the
// config file".
type Options struct {
	Command    string
	ConfigPath string
	LogLevel   string
	Verbose    bool

	// listen
	Addr  string
	Path  string
	Relay bool

	// send
	URL       string
	Messages  []string
	DryRun    bool
	Force     bool // Bypass the mode gate, same as enable_in_production.
	WaitForID time.Duration
	ReadStdin bool
}

func ParseArgs() (*Options, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Forward console logs to a remote debug listener",
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Listen command
	listenCmd := &cobra.Command{
		Use:   CommandListen,
		Short: "Run a debug listener and print what clients send",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandListen
		},
	}
	listenCmd.Flags().StringVarP(&options.Addr, "addr", "a", "",
		"Address to bind (host:port). Defaults to listener.addr from the config")
	listenCmd.Flags().StringVarP(&options.Path, "path", "p", "",
		"HTTP path accepting WebSocket upgrades")
	listenCmd.Flags().BoolVar(&options.Relay, "relay", false,
		"Send each stdin line to every connected client as a notice")
	rootCmd.AddCommand(listenCmd)

	// Send command
	sendCmd := &cobra.Command{
		Use:   CommandSend + " [message...]",
		Short: "Connect to a listener and forward messages, or stdin lines, as log records",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandSend
			options.Messages = args
			options.ReadStdin = len(args) == 0
		},
	}
	sendCmd.Flags().StringVarP(&options.URL, "url", "u", "",
		"Debug listener URL (ws:// or wss://)")
	sendCmd.Flags().BoolVar(&options.DryRun, "dry-run", false,
		"Log frames locally instead of connecting")
	sendCmd.Flags().BoolVarP(&options.Force, "force", "f", false,
		"Send even when not running in development mode")
	sendCmd.Flags().DurationVar(&options.WaitForID, "wait", 2*time.Second,
		"How long to wait for the listener to assign a client id")
	rootCmd.AddCommand(sendCmd)

	// Global configuration
	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "",
		"Path to a YAML config file. Default is ./wsconsole.yaml if present")
	rootCmd.PersistentFlags().StringVarP(&options.LogLevel, "log-level", "l", "",
		"Local log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}
