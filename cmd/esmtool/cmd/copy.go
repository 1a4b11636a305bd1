/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/records"
)

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <in> <out>",
		Short: "Rewrite a data file through the decoder",
		Long: `Decode every record of <in> and write it back to <out>. Unchanged
files come out byte for byte identical. <out> is written through a
temporary file and only replaced once complete.

Example:
  esmtool copy Skyrim.esm /tmp/Skyrim.esm`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			f, stats, err := esm.ReadFile(args[0], a.walkerOptions("")...)
			if err != nil {
				return err
			}
			if err := f.WriteFile(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d records in %d groups to %s\n", stats.Records, stats.Groups, args[1])
			return nil
		},
	}
}

func newCleanCmd() *cobra.Command {
	cleanCmd := &cobra.Command{
		Use:   "clean <in> <out>",
		Short: "Remove records by tag or deletion flag",
		Long: `Copy <in> to <out> without the records of the given tags and, with
--deleted, without deleted records (flagged, or carrying a DELE marker).
Groups left empty are dropped and the header's record count is updated.

Examples:
  esmtool clean Mod.esp Mod.clean.esp --deleted
  esmtool clean Mod.esp Mod.clean.esp --tag SOUN --tag DOOR`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			tagValues, _ := cmd.Flags().GetStringSlice("tag")
			deleted, _ := cmd.Flags().GetBool("deleted")
			if len(tagValues) == 0 && !deleted {
				return fmt.Errorf("nothing to clean: pass --tag or --deleted")
			}
			tags, err := parseTags(tagValues)
			if err != nil {
				return err
			}

			f, _, err := esm.ReadFile(args[0], a.walkerOptions("")...)
			if err != nil {
				return err
			}
			removed := f.Remove(func(rec records.Record) bool {
				if tags[rec.Tag()] {
					return true
				}
				if !deleted {
					return false
				}
				if m, ok := rec.(interface{ Deleted() bool }); ok && m.Deleted() {
					return true
				}
				return rec.Envelope().IsDeleted()
			})
			f.UpdateHeaderCounts()
			a.log.Debugf("header record count is now %d", f.Header.RecordCount())
			if err := f.WriteFile(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records, wrote %s\n", removed, args[1])
			return nil
		},
	}
	cleanCmd.Flags().StringSliceP("tag", "t", nil, "Remove records with this tag (repeatable)")
	cleanCmd.Flags().Bool("deleted", false, "Remove records flagged as deleted")
	return cleanCmd
}
