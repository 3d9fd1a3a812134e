package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/responsa-ai/responsa/internal/app"
	"github.com/responsa-ai/responsa/internal/common"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents into the index",
	Long: `Extract text from the given files, chunk and embed it, and write the
result to the vector index. Supported formats: PDF, DOCX, email (.eml)
and plain text. Unchanged documents that are already indexed are
skipped unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Re-ingest even if the document is unchanged")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common.PrintBanner(common.GetVersion())

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	failed := 0
	for _, path := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		doc, err := application.IngestService.IngestFile(ctx, path, ingestForce)
		if err != nil {
			logger.Error().Str("path", path).Err(err).Msg("Ingestion failed")
			failed++
			continue
		}
		fmt.Printf("%-32s %s (%s)\n", doc.ID, doc.Name, doc.Status)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(args))
	}
	return nil
}
