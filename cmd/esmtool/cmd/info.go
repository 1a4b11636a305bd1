/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/esm"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show a data file's header and record counts",
		Long: `Show the header of a data file, its masters and how many records of
each tag it holds.

Example:
  esmtool info Data/Skyrim.esm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			f, stats, err := esm.ReadFile(args[0], a.walkerOptions(args[0])...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			hdr := f.Header
			fmt.Fprintf(out, "File:      %s\n", args[0])
			fmt.Fprintf(out, "Variant:   %s\n", f.Variant)
			fmt.Fprintf(out, "Master:    %t\n", hdr.IsMasterFile())
			fmt.Fprintf(out, "Localized: %t\n", hdr.IsLocalized())
			fmt.Fprintf(out, "Flags:     0x%08X\n", hdr.Envelope().Flags)
			fmt.Fprintf(out, "Records:   %d (header says %d)\n", stats.Records, hdr.RecordCount())
			fmt.Fprintf(out, "Groups:    %d\n", stats.Groups)

			masters := hdr.MasterFiles()
			fmt.Fprintf(out, "Masters:   %d\n", len(masters))
			for _, m := range masters {
				fmt.Fprintf(out, "  %s\n", m)
			}

			counts := make(map[string]int)
			for _, rec := range f.Records() {
				counts[rec.Tag().String()]++
			}
			tags := make([]string, 0, len(counts))
			for t := range counts {
				tags = append(tags, t)
			}
			sort.Strings(tags)
			fmt.Fprintln(out, "Tags:")
			for _, t := range tags {
				fmt.Fprintf(out, "  %-4s  %d\n", t, counts[t])
			}
			return nil
		},
	}
}
