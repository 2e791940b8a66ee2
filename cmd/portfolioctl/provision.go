package main

import (
	"context"
	"fmt"

	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the feedback table if it is missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return withStore(ctx, func(client store.RecordClient) error {
			created, err := feedback.NewProvisioner(client).Ensure(ctx)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Feedback table created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Feedback table already present")
			}
			return nil
		})
	},
}
