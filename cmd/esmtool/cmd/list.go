/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/records"
)

// parseTags converts --tag values into a set.
func parseTags(values []string) (map[codec.Tag]bool, error) {
	tags := make(map[codec.Tag]bool, len(values))
	for _, v := range values {
		t, err := codec.ParseTag(v)
		if err != nil {
			return nil, err
		}
		tags[t] = true
	}
	return tags, nil
}

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the records of a data file",
		Long: `List every record of a data file in file order with its tag, ID,
size on disk and flags.

Examples:
  esmtool list Morrowind.esm
  esmtool list Skyrim.esm --tag GLOB --tag KYWD`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			tagValues, _ := cmd.Flags().GetStringSlice("tag")
			tags, err := parseTags(tagValues)
			if err != nil {
				return err
			}

			opts := a.walkerOptions(args[0])
			if len(tags) > 0 {
				// groups of other tags are seeked past
				opts = append(opts,
					esm.WithNeedGroup(func(h esm.GroupHeader) bool {
						return h.Type != esm.GroupTop || tags[h.LabelTag()]
					}),
					esm.WithKeepSkipped(false),
				)
			}
			f, _, err := esm.ReadFile(args[0], opts...)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tID\tSIZE\tFLAGS")
			for _, rec := range f.Records() {
				if len(tags) > 0 && !tags[rec.Tag()] {
					continue
				}
				size, err := records.TotalWrittenSize(rec)
				if err != nil {
					return fmt.Errorf("failed to size %s %q: %w", rec.Tag(), rec.ID(), err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t0x%08X\n", rec.Tag(), rec.ID(), size, rec.Envelope().Flags)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringSliceP("tag", "t", nil, "Only list records with this tag (repeatable)")
	return listCmd
}
