package main

import (
	"context"
	"errors"
	"strings"

	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "List or add feedback entries",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feedback, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		return withStore(ctx, func(client store.RecordClient) error {
			rows, err := feedback.NewService(client).List(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			printFeedbackTable(cmd.OutOrStdout(), rows)
			return nil
		})
	},
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a feedback entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		message, _ := cmd.Flags().GetString("message")
		rating, _ := cmd.Flags().GetInt("rating")

		name = strings.TrimSpace(name)
		message = strings.TrimSpace(message)
		if name == "" || message == "" {
			return errors.New(feedback.MsgRequiredFields)
		}

		ctx := context.Background()
		return withStore(ctx, func(client store.RecordClient) error {
			row, err := feedback.NewService(client).Submit(ctx, types.FeedbackCreate{
				Name:    name,
				Message: message,
				Rating:  rating,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), row)
			}
			printFeedback(cmd.OutOrStdout(), row)
			return nil
		})
	},
}

func init() {
	feedbackAddCmd.Flags().String("name", "", "your name")
	feedbackAddCmd.Flags().String("message", "", "feedback message")
	feedbackAddCmd.Flags().Int("rating", types.DefaultFeedbackRating, "rating from 1 to 5")

	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackAddCmd)
}
