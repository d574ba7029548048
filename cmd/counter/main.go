package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/counter/internal/config"
	"github.com/vango-dev/counter/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	// cfg and logger are set by PersistentPreRunE.
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		errors.Fprint(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "counter",
		Short: "A persistent counter with a live web view",
		Long: `counter keeps a single integer in a store, persists it to a
durable medium and serves it as a live web page.

State commands (increment, decrement, reset, show, clear) load the
persisted value, apply the action, write it back and print the view:

  counter increment
  counter show

The serve command starts the web server with the live view, the
devtools inspector hub and Prometheus metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: counter.json or $"+config.EnvConfig+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(opts),
		actionCmd(opts, "increment", "Add one to the counter"),
		actionCmd(opts, "decrement", "Subtract one from the counter"),
		actionCmd(opts, "reset", "Set the counter back to zero"),
		showCmd(opts),
		clearCmd(opts),
		versionCmd(),
	)

	return rootCmd
}

// load resolves the configuration, applies flag overrides and installs
// the logger as the slog default.
func (o *rootOptions) load(logOut io.Writer) error {
	cfg, err := config.Resolve(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger(logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	o.cfg = cfg
	o.logger = logger
	return nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
