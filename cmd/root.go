package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gigcal/config"
	"gigcal/database"
	"gigcal/services/availability"
	"gigcal/utils"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

// serviceFactory opens the engine against a store; the returned func releases it.
type serviceFactory func(ctx context.Context) (availability.AvailabilityService, func(), error)

// openConfiguredService builds the engine from the same configuration the server uses.
func openConfiguredService(ctx context.Context) (availability.AvailabilityService, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.Env, "warn")
	if err != nil {
		return nil, nil, err
	}
	backend, err := database.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := availability.NewAvailabilityService(backend.Store, availability.SettingsFromConfig(cfg), logger)
	return svc, func() {
		backend.Close()
		_ = logger.Sync()
	}, nil
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(openConfiguredService)
}

func newRootCmd(open serviceFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "gigcalctl",
		Short:         "Operate the availability calendar: inspect, block and release dates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newStatusCmd(open))
	root.AddCommand(newBlockCmd(open))
	root.AddCommand(newReleaseCmd(open))
	root.AddCommand(newReapCmd(open))
	root.AddCommand(newTokenCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		zap.L().Debug("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gigcalctl %s (%s)\n", Version, CommitSHA)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withService runs fn against a freshly opened engine.
func withService(cmd *cobra.Command, open serviceFactory, fn func(ctx context.Context, svc availability.AvailabilityService) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, svc)
}
