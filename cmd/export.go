package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full catalog as playlist JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.catalog.GetAll(cmd.Context())
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode catalog: %w", err)
		}
		if exportOut != "" && exportOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d entries to %s\n", data.EntryCount(), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "playlist_export.json", "output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}
