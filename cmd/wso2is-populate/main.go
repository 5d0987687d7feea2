package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tendant/wso2is-populate/pkg/config"
	"github.com/tendant/wso2is-populate/pkg/populate"
	"github.com/tendant/wso2is-populate/pkg/users"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type options struct {
	envFile   string
	usersFile string
}

// load reads the configuration and the users file. --users-file wins over
// USERS_FILE.
func (o *options) load() (config.Config, []users.User, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.usersFile != "" {
		cfg.UsersFile = o.usersFile
	}
	list, err := users.Load(cfg.UsersFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load users from %s: %w", cfg.UsersFile, err)
	}
	return cfg, list, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
	slog.SetDefault(logger)
	return logger
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	populateCmd := &cobra.Command{
		Use:   "populate",
		Short: "Configure the OAuth application and import users and roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPopulate(cmd.Context(), opts, stdout)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the users file without contacting the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, list, err := opts.load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK: host %s, application %s, %d users (%s)\n",
				cfg.Host, cfg.Application.Name, len(list), cfg.UsersFile)
			return nil
		},
	}

	rootCmd := &cobra.Command{
		Use:           "wso2is-populate",
		Short:         "Provision a WSO2 Identity Server for the portal",
		Long:          "Reconciles the portal's OAuth2 service provider and imports its users and roles into a WSO2 Identity Server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          populateCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.GetEnvOrDefault("ENV_FILE", ".env"), "dotenv file read before the environment")
	rootCmd.PersistentFlags().StringVar(&opts.usersFile, "users-file", "", "users file (YAML or JSON), overrides USERS_FILE")

	rootCmd.AddCommand(populateCmd, validateCmd)
	return rootCmd
}

func runPopulate(ctx context.Context, opts *options, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, list, err := opts.load()
	if err != nil {
		return err
	}
	logger := newLogger(stdout, cfg.SlogLevel())

	result, err := populate.Run(ctx, cfg, list, logger)
	populate.PrintResult(stdout, result)
	populate.LogSummary(logger, result)
	if err != nil {
		logger.Error("populate failed", "err", err)
		return err
	}
	return nil
}
