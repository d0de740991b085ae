package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/dmitrijs2005/wotcsync/internal/filex"
	"github.com/spf13/cobra"
)

// previewCmd encodes a JSON array of records exactly as a submission would,
// without contacting the portal.
func (a *app) previewCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "preview <jurisdiction> <records.json>",
		Short: "Encode records with a jurisdiction layout and show the first lines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var recs []codec.SubmissionRecord
			if err := json.Unmarshal(data, &recs); err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			batch, err := reg.EncodeBatch(recs, args[0])
			if err != nil {
				return err
			}

			p := batch.Preview()
			for _, line := range p.Lines {
				fmt.Fprintln(a.out, line)
			}
			fmt.Fprintf(a.out, "-- %d records, %d lines\n", batch.RecordCount(), p.TotalLines)

			if outDir == "" {
				return nil
			}
			dir, err := filex.EnsureSubdDir(outDir)
			if err != nil {
				return err
			}
			_, name := batch.Layout.RemoteLocation(a.clock.Now())
			path, err := filex.WriteFile(dir, name, []byte(batch.Content()))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "-- written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "also write the full file into this directory")
	return cmd
}
