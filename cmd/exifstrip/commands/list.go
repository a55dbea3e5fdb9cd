package commands

import (
	"fmt"

	"github.com/gel-ops/exifstrip/internal/config"
	"github.com/gel-ops/exifstrip/pkg/errors"
	"github.com/gel-ops/exifstrip/pkg/journal"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed objects and their outcomes",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	// Ensure journal directory exists
	if err := ensureDirectories(cfg.JournalPath, "", ""); err != nil {
		return err
	}

	repo, err := journal.NewRepository(cfg.JournalPath)
	if err != nil {
		return errors.Wrap(err, "journal init failed")
	}
	defer repo.Close()

	records, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(records) == 0 {
		fmt.Println("No processed objects found")
		return nil
	}

	fmt.Printf("%-40s %-12s %-12s %s\n", "OBJECT KEY", "STATUS", "SIZE", "REASON")
	fmt.Println("------------------------------------------------------------------------------------------------")

	for _, rec := range records {
		reason := rec.Reason
		if reason == "" {
			reason = "-"
		}
		size := "-"
		if rec.SizeBytes > 0 {
			size = fmt.Sprintf("%d", rec.SizeBytes)
		}

		fmt.Printf("%-40s %-12s %-12s %s\n", rec.ObjectKey, rec.Status, size, reason)
	}

	return nil
}
