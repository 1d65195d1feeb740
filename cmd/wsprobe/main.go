package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/wsprobe/internal/logger"
	"github.com/PentesterFlow/wsprobe/internal/session"
	"github.com/PentesterFlow/wsprobe/internal/shutdown"
	"github.com/PentesterFlow/wsprobe/pkg/probe"
)

var version = "1.0.0"

// errProbeFailed ends the process with ExitFailure; the ERROR line has
// already been printed.
var errProbeFailed = errors.New("probe failed")

// cliOptions holds the parsed command line flags.
type cliOptions struct {
	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Probe flags
	trace            bool
	format           string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	insecure         bool
	proxy            string
	record           string

	// History flags
	db string
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return probe.ExitOK
	case errors.Is(err, errProbeFailed):
		return probe.ExitFailure
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return probe.ExitConfigError
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "wsprobe [endpoint]",
		Short: "wsprobe - WebSocket backend probe",
		Long: `wsprobe - Connect to a WebSocket backend and print everything it sends.

Opens one connection, prints the connection status, then prints every message
received until the connection fails or the process is interrupted. Nothing is
ever sent and the connection is never retried.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, args, opts)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show recorded probe runs",
		Long:  "List the runs recorded with --record, or replay the messages of one run.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Debug mode")

	// Probe flags
	rootCmd.Flags().BoolVar(&opts.trace, "trace", false, "Log handshake and frame details")
	rootCmd.Flags().StringVar(&opts.format, "format", "text", "Status line format (text, json)")
	rootCmd.Flags().DurationVar(&opts.handshakeTimeout, "handshake-timeout", 0, "Handshake timeout (0 waits indefinitely)")
	rootCmd.Flags().DurationVar(&opts.readTimeout, "read-timeout", 0, "Per-read timeout (0 waits indefinitely)")
	rootCmd.Flags().BoolVar(&opts.insecure, "insecure", false, "Skip TLS certificate verification")
	rootCmd.Flags().StringVar(&opts.proxy, "proxy", "", "Proxy URL (http, https, socks5)")
	rootCmd.Flags().StringVar(&opts.record, "record", "", "Record the run into this session database")

	// History flags
	historyCmd.Flags().StringVar(&opts.db, "db", "", "Session database")
	historyCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(historyCmd)

	return rootCmd
}

// buildConfig merges the config file, the endpoint argument and the flags.
// Flags take precedence over the file.
func buildConfig(cmd *cobra.Command, args []string, opts *cliOptions) (*probe.Config, error) {
	config := probe.DefaultConfig()

	if opts.configFile != "" {
		fileConfig, err := probe.LoadFromFile(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	if len(args) == 1 {
		config.Endpoint = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("trace") {
		config.Trace = opts.trace
	}
	if flags.Changed("format") {
		config.Output.Format = opts.format
	}
	if flags.Changed("handshake-timeout") {
		config.HandshakeTimeout = opts.handshakeTimeout
	}
	if flags.Changed("read-timeout") {
		config.ReadTimeout = opts.readTimeout
	}
	if flags.Changed("insecure") {
		config.Insecure = opts.insecure
	}
	if flags.Changed("proxy") {
		config.Proxy = opts.proxy
	}
	if flags.Changed("record") {
		config.Record = opts.record
	}
	if opts.verbose {
		config.Verbose = true
	}
	if opts.debug {
		config.Debug = true
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func newLogger(cmd *cobra.Command, config *probe.Config) *logger.Logger {
	logLevel := logger.WarnLevel
	if config.Debug || config.Trace {
		logLevel = logger.DebugLevel
	} else if config.Verbose {
		logLevel = logger.InfoLevel
	}
	return logger.New(logger.Config{
		Level:     logLevel,
		Pretty:    true,
		Output:    cmd.ErrOrStderr(),
		Component: "wsprobe",
	})
}

func runProbe(cmd *cobra.Command, args []string, opts *cliOptions) error {
	config, err := buildConfig(cmd, args, opts)
	if err != nil {
		return err
	}

	log := newLogger(cmd, config)
	logger.SetGlobal(log)

	handler := shutdown.New(shutdown.Config{
		Parent: cmd.Context(),
		OnShutdownStart: func(sig os.Signal) {
			if sig != nil {
				log.Infof("Received %s, stopping...", sig)
			}
		},
		OnShutdownDone: func(elapsed time.Duration, errs []error) {
			for _, err := range errs {
				log.WithError(err).Warn("Cleanup failed")
			}
		},
	})
	defer handler.Shutdown()

	probeOpts := []probe.Option{
		probe.WithConfig(config),
		probe.WithOutput(cmd.OutOrStdout()),
		probe.WithLogger(log.WithComponent("probe")),
	}

	if config.Record != "" {
		store, err := session.NewBoltStore(config.Record)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		handler.RegisterCloser("session store", store)
		probeOpts = append(probeOpts, probe.WithRecorder(store))
	}

	p, err := probe.New(probeOpts...)
	if err != nil {
		return fmt.Errorf("failed to create probe: %w", err)
	}

	// Cleanup runs only after the run has unwound.
	runDone := make(chan struct{})
	handler.Register("probe", func(ctx context.Context) error {
		select {
		case <-runDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	handler.ListenAndShutdown()

	result := p.Run(handler.Context())
	close(runDone)

	log.StatsEvent(p.MetricsSnapshot().Summary())
	if result.SessionID != "" {
		log.Infof("Recorded session %s", result.SessionID)
	}

	handler.Shutdown()
	<-handler.Done()

	if result.Failed() {
		return errProbeFailed
	}
	return nil
}
