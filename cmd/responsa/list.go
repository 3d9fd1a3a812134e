package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/responsa-ai/responsa/internal/app"
	"github.com/responsa-ai/responsa/internal/interfaces"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending or ready)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	docs, err := application.StorageManager.DocumentStorage().ListDocuments(&interfaces.ListOptions{
		Status: listStatus,
	})
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	fmt.Printf("%-32s %-8s %-8s %s\n", "ID", "FORMAT", "STATUS", "NAME")
	for _, doc := range docs {
		fmt.Printf("%-32s %-8s %-8s %s\n", doc.ID, doc.Format, doc.Status, doc.Name)
	}
	return nil
}
