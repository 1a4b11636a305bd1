/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/loadorder"
)

func newResolveCmd() *cobra.Command {
	resolveCmd := &cobra.Command{
		Use:   "resolve <file>...",
		Short: "Compute a load order from file headers",
		Long: `Read the header of every file and print an order in which each file
follows all of its masters. Ties keep the command line order.

Examples:
  esmtool resolve Data/*.esm Data/*.esp
  esmtool resolve --masters-first Mod.esp Update.esm Skyrim.esm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			elems, err := loadorder.FromFiles(args, a.walkerOptions("")...)
			if err != nil {
				return err
			}

			var opts []loadorder.Option
			if mastersFirst, _ := cmd.Flags().GetBool("masters-first"); mastersFirst {
				opts = append(opts, loadorder.SortMastersFirst())
			}
			order, err := loadorder.Resolve(elems, opts...)
			if err != nil {
				return err
			}
			for i, name := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", i, name)
			}
			return nil
		},
	}
	resolveCmd.Flags().Bool("masters-first", false, "Load master files before plugins whenever possible")
	return resolveCmd
}
