package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newPredictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Submit and track property prediction batches",
	}
	cmd.AddCommand(
		newPredictSubmitCommand(),
		newPredictStatusCommand(),
		newPredictCancelCommand(),
		newPredictRetryCommand(),
	)
	return cmd
}

func newPredictSubmitCommand() *cobra.Command {
	var (
		propertiesCSV string
		modelName     string
		modelVersion  string
		createdBy     string
	)
	cmd := &cobra.Command{
		Use:   "submit <molecule-id>...",
		Short: "Submit one or more molecules for property prediction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				var properties []string
				if propertiesCSV != "" {
					properties = strings.Split(propertiesCSV, ",")
				}
				batch, err := app.services.Prediction.Submit(ctx, args, properties, modelName, modelVersion, createdBy)
				if err != nil {
					return err
				}
				return printJSON(batch)
			})
		},
	}
	cmd.Flags().StringVar(&propertiesCSV, "properties", "", "comma-separated property names; empty uses the default predictable set")
	cmd.Flags().StringVar(&modelName, "model", "", "upstream model name")
	cmd.Flags().StringVar(&modelVersion, "model-version", "", "upstream model version")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "id of the user submitting the batch")
	return cmd
}

func newPredictStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Fetch a prediction batch's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				batch, err := app.services.Prediction.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(batch)
			})
		},
	}
}

func newPredictCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <batch-id>",
		Short: "Cancel a prediction batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				return app.services.Prediction.Cancel(ctx, args[0])
			})
		},
	}
}

func newPredictRetryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <batch-id>",
		Short: "Retry a failed prediction batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				return app.services.Prediction.RetryFailed(ctx, args[0])
			})
		},
	}
}
