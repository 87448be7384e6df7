package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kndndrj/sailcheck/adapters"
	"github.com/kndndrj/sailcheck/config"
	"github.com/kndndrj/sailcheck/logging"
	"github.com/kndndrj/sailcheck/smoke"
)

const defaultConfigPath = "sailcheck.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	cfg := config.Default()

	rootCmd := newRootCmd(cfg, stdout, stderr, lookupEnv)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var smokeErr *smoke.Error
	if errors.As(err, &smokeErr) {
		// already reported on stdout
		if cfg.ExitZero {
			return 0
		}
		return smokeErr.ExitCode()
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func newRootCmd(cfg *config.Config, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) *cobra.Command {
	var (
		configPath string
		logger     *logging.ZapLogger
	)

	rootCmd := &cobra.Command{
		Use:   "sailcheck",
		Short: "Check that a Sail (spark connect) server is reachable and can run queries",
		Long: `sailcheck connects to a Sail or spark connect server, prints the server
version, runs range(5) with the id column renamed to number and prints the rows.

The endpoint is taken from --remote, $SAIL_REMOTE, $SPARK_REMOTE, the remote key
of the config file, or defaults to ` + config.DefaultRemote + `.

Exit status is 0 on success and otherwise depends on the failure:
1 unknown, 2 connection, 3 protocol, 4 server execution, 5 authentication.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded

			cfg.ApplyEnv(lookupEnv)
			if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger = logging.New(stderr, cfg.Verbose)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cfg, stdout, logger)
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the yaml config file")
	cfg.RegisterFlags(rootCmd.Flags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "adapters",
		Short: "List the supported adapter types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, typ := range new(adapters.Mux).Types() {
				fmt.Fprintln(cmd.OutOrStdout(), typ)
			}
		},
	})

	return rootCmd
}

func runCheck(ctx context.Context, cfg *config.Config, stdout io.Writer, logger logging.Logger) error {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	retryDelay, err := cfg.RetryDelayDuration()
	if err != nil {
		return err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := []smoke.Option{
		smoke.WithRemote(cfg.Remote),
		smoke.WithType(cfg.Type),
		smoke.WithRange(cfg.Rows, cfg.Column),
		smoke.WithOutput(cfg.Output),
		smoke.WithAttempts(cfg.Attempts, retryDelay),
		smoke.WithLogger(logger),
	}
	if cfg.SQL != "" {
		opts = append(opts, smoke.WithSQL(cfg.SQL))
	}

	report, err := smoke.NewRunner(stdout, opts...).Run(ctx)
	if err != nil {
		return err
	}

	logger.Debugf("connected in %s, query took %s", report.ConnectTime, report.QueryTime)
	return nil
}
