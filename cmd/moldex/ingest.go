package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func newIngestCommand() *cobra.Command {
	var (
		createdBy string
		enrich    bool
		async     bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <csv-file>",
		Short: "Accept a CSV upload, map its columns, and commit its rows as molecules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *appContext) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}

				job, err := app.services.Ingestion.Accept(ctx, args[0], data, createdBy, enrich)
				if err != nil {
					return err
				}

				preview, err := app.services.Ingestion.Preview(ctx, job.ID, app.cfg.Ingestion.PreviewRowCount)
				if err != nil {
					return err
				}
				if err := app.services.Ingestion.ValidateMapping(ctx, job.ID, preview.Suggestion); err != nil {
					return err
				}

				if async {
					if err := app.services.Ingestion.EnqueueRun(ctx, app.services.Runtime, job.ID); err != nil {
						return err
					}
					return printJSON(map[string]string{"job_id": job.ID, "status": "queued"})
				}

				if err := app.services.Ingestion.Run(ctx, job.ID, app.services.Enrichment); err != nil {
					return err
				}
				return printJSON(map[string]string{"job_id": job.ID, "status": "completed"})
			})
		},
	}
	cmd.Flags().StringVar(&createdBy, "created-by", "", "id of the user performing the import")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "submit newly created molecules for prediction after commit")
	cmd.Flags().BoolVar(&async, "async", false, "enqueue the run on the Task Runtime instead of blocking")
	return cmd
}
