package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/autoimport/internal/core"
	"github.com/spf13/cobra"
)

func newLoadCmd(a *app) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Import a CSV file",
		Long: `Import one CSV file into the configured collection.

The file is read whole, parsed with its first row as the header, and written
in batches. Each batch commits on its own: if a batch fails, earlier batches
stay in the store and the command reports how many records were kept. The
source file is never modified or removed.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Records per batch (default IMPORT_BATCH_SIZE)")

	cmd.RunE = a.closeOnError(func(cmd *cobra.Command, args []string) error {
		res, err := a.service.Import(cmd.Context(), core.ImportRequest{
			Path:       args[0],
			BatchSize:  batchSize,
			OnProgress: logProgress,
		})
		if err != nil {
			if res.Committed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Import failed after %d of %d records were saved\n", res.Committed, res.Parsed)
			}
			return fmt.Errorf("import %s: %s", args[0], core.FormatUserError(err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s (import %s)\n",
			res.Committed, a.service.Collection(), res.ImportID)
		return nil
	})
	return cmd
}

// logProgress reports each committed batch.
func logProgress(p core.ImportProgress) {
	if p.Phase != core.PhaseWriting || p.Committed == 0 {
		return
	}
	slog.Info(fmt.Sprintf("Imported %d/%d records...", p.Committed, p.Parsed),
		"import_id", p.ImportID,
		"batches", p.Batches,
	)
}

func newCountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of documents in the collection",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.closeOnError(func(cmd *cobra.Command, args []string) error {
		n, err := a.service.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
	return cmd
}

var errPurgeNotConfirmed = errors.New("refusing to purge without --yes")

func newPurgeCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every document in the collection",
		Long: `Delete every document in the configured collection.

Deletes run in batches. If one fails, the documents already removed stay
removed and the command reports how many that was.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the purge")

	cmd.RunE = a.closeOnError(func(cmd *cobra.Command, args []string) error {
		if !yes {
			return errPurgeNotConfirmed
		}

		n, err := a.service.DeleteAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("purge %s after %d deleted: %w", a.service.Collection(), n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d documents from %s\n", n, a.service.Collection())
		return nil
	})
	return cmd
}
