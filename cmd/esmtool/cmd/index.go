/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/catalog"
	"github.com/ssargent/esmkit/pkg/esm"
)

func openCatalog(a *app) (*catalog.Catalog, error) {
	cat, err := getContainer().GetCatalogOpener().OpenCatalog(a.catalogDir())
	if err != nil {
		return nil, err
	}
	a.log.Debugf("opened catalog in %s", a.catalogDir())
	return cat, nil
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <file>...",
		Short: "Add data files to the record catalog",
		Long: `Decode each file and store its records in the catalog under the data
directory. Re-indexing a file replaces its previous entries.

Example:
  esmtool index --data-dir ./data Data/Skyrim.esm Data/Update.esm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			cat, err := openCatalog(a)
			if err != nil {
				return err
			}
			defer cat.Close()

			for _, path := range args {
				f, _, err := esm.ReadFile(path, a.walkerOptions(path)...)
				if err != nil {
					return err
				}
				res, err := cat.Import(path, f)
				if err != nil {
					return err
				}
				a.log.Infof("run %s: %d records from %s", res.Run.ID, res.Run.Records, res.Run.File)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records indexed, %d without ID skipped\n",
					res.Run.File, res.Run.Records, res.Run.Skipped)
			}
			return nil
		},
	}
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <id>",
		Short: "Find catalogued records by ID",
		Long: `Look up an editor ID (case-insensitive) across every indexed file.

Example:
  esmtool find GameHour`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			cat, err := openCatalog(a)
			if err != nil {
				return err
			}
			defer cat.Close()

			entries, err := cat.Find(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("%q: %w", args[0], catalog.ErrNotFound)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tTAG\tID\tFORMID\tSIZE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%08X\t%d\n", e.File, e.Tag, e.ID, e.FormID, e.Size)
			}
			return tw.Flush()
		},
	}
}
