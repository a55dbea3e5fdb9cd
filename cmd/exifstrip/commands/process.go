package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gel-ops/exifstrip/internal/config"
	"github.com/gel-ops/exifstrip/pkg/errors"
	"github.com/gel-ops/exifstrip/pkg/journal"
	"github.com/gel-ops/exifstrip/pkg/params"
	"github.com/gel-ops/exifstrip/pkg/pipeline"
	"github.com/gel-ops/exifstrip/pkg/security"
	"github.com/gel-ops/exifstrip/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var processCmd = &cobra.Command{
	Use:   "process <events-file>",
	Short: "Process a batch of S3 upload events through the strip pipeline",
	Long:  `Reads an S3-notification batch from the given JSON file (or stdin with "-"), runs each record through the validation-and-transform pipeline, and prints the batch result.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.JournalPath, cfg.FSMDBPath, cfg.ScratchDir); err != nil {
		return err
	}

	events, err := readEvents(args[0])
	if err != nil {
		return err
	}

	repo, err := journal.NewRepository(cfg.JournalPath)
	if err != nil {
		return errors.Wrap(err, "journal init failed")
	}
	defer repo.Close()

	store, err := storage.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return errors.Wrap(err, "S3 client failed")
	}

	paramSource, err := params.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return errors.Wrap(err, "SSM client failed")
	}

	cache := pipeline.NewConfigCache(paramSource, store, cfg.ParameterPrefix, cfg.CacheTTL)
	validator := security.NewValidator(cfg.MaxKeyLength)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := pipeline.NewMachine(store, repo, validator, cfg.ScratchDir)
	if err := machine.Register(ctx, manager); err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	coordinator := pipeline.NewCoordinator(cache, machine)
	result := coordinator.Run(ctx, events)

	slog.Info("batch_complete",
		"status", result.Status,
		"processed", result.Processed,
		"total", result.Total,
		"failed", result.Failed,
	)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal batch result")
	}
	fmt.Println(string(out))

	if result.Status == pipeline.StatusError {
		return fmt.Errorf("batch finished with status %s", result.Status)
	}
	return nil
}

func readEvents(path string) ([]pipeline.FileEvent, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open events file")
		}
		defer f.Close()
		r = f
	}

	events, err := pipeline.DecodeEvents(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode events")
	}
	return events, nil
}
