package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gigcal/models"
	"gigcal/services/availability"
)

func newStatusCmd(open serviceFactory) *cobra.Command {
	var from, to string

	c := &cobra.Command{
		Use:   "status [DATE]",
		Short: "Show the effective status of one date, or of every date in --from..--to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && (from == "" || to == "") {
				return errors.New("give a DATE or both --from and --to")
			}
			return withService(cmd, open, func(ctx context.Context, svc availability.AvailabilityService) error {
				if len(args) == 1 {
					day, err := svc.EffectiveStatus(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, day)
				}
				days, err := svc.RangeStatus(ctx, from, to)
				if err != nil {
					return err
				}
				return printJSON(cmd, models.RangeResponse{Days: days})
			})
		},
	}

	c.Flags().StringVar(&from, "from", "", "first date of the range (YYYY-MM-DD)")
	c.Flags().StringVar(&to, "to", "", "last date of the range (YYYY-MM-DD)")
	return c
}

func newBlockCmd(open serviceFactory) *cobra.Command {
	var note string

	c := &cobra.Command{
		Use:   "block DATE",
		Short: "Mark a date busy regardless of its current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc availability.AvailabilityService) error {
				if err := svc.Confirm(ctx, args[0], "", note); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s blocked\n", args[0])
				return nil
			})
		},
	}

	c.Flags().StringVar(&note, "note", "", "reason shown to admins")
	return c
}

func newReleaseCmd(open serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "release DATE",
		Short: "Free a date, dropping any hold or booking on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc availability.AvailabilityService) error {
				if err := svc.Release(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s released\n", args[0])
				return nil
			})
		},
	}
}

func newReapCmd(open serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete every hold whose expiry has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc availability.AvailabilityService) error {
				n, err := svc.ReapExpiredHolds(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired holds\n", n)
				return nil
			})
		},
	}
}
