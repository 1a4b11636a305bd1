/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/records"
	"github.com/ssargent/esmkit/pkg/store"
)

const shellHelp = `Commands:
  tags                  list tags and record counts
  count [tag]           number of records, overall or for one tag
  has <id>              tags holding a record with this ID
  get <tag> <id>        print a record as JSON
  remove <tag> <id>     remove a record
  save <file>           write the remaining records to a new file
  help                  show this help
  quit                  leave the shell`

var errQuit = errors.New("quit")

// shell is an interactive view over the records of one file. Records
// without an ID are not kept.
type shell struct {
	out     io.Writer
	variant codec.Variant
	header  records.FileHeader
	set     *store.Set
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <file>",
		Short: "Browse and edit the records of a file interactively",
		Long: `Load a data file into per-tag record stores and read commands from
standard input. Arguments may be quoted like in a POSIX shell.

Example:
  esmtool shell Morrowind.esm
  > get GMST "sMagicSkillFail"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			hdr, err := esm.PeekHeader(args[0], a.walkerOptions("")...)
			if err != nil {
				return err
			}
			reg := esm.NewWalker().Registry(hdr.Variant)
			set := store.NewAutoSet(reg)
			opts := append(a.walkerOptions(args[0]), esm.WithSink(set))
			f, stats, err := esm.ReadFile(args[0], opts...)
			if err != nil {
				return err
			}
			a.log.Debugf("kept %d of %d records", set.Len(), stats.Records)

			sh := &shell{out: cmd.OutOrStdout(), variant: f.Variant, header: f.Header, set: set}
			fmt.Fprintf(sh.out, "%s: %d records in %d tags. Type help for commands.\n", args[0], set.Len(), len(set.Tags()))
			return sh.run(cmd.InOrStdin())
		},
	}
}

func (sh *shell) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}
		words, err := shellquote.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
			continue
		}
		if len(words) == 0 {
			continue
		}
		err = sh.exec(words[0], words[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

func (sh *shell) exec(name string, args []string) error {
	want := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}

	switch strings.ToLower(name) {
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
	case "quit", "exit":
		return errQuit
	case "tags":
		counts := sh.set.Counts()
		for _, t := range sh.set.Tags() {
			fmt.Fprintf(sh.out, "%s  %d\n", t, counts[t])
		}
	case "count":
		if len(args) == 0 {
			fmt.Fprintln(sh.out, sh.set.Len())
			return nil
		}
		c, err := sh.collection(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, c.Len())
	case "has":
		if err := want(1, "has <id>"); err != nil {
			return err
		}
		tags := sh.set.Find(args[0])
		if len(tags) == 0 {
			fmt.Fprintln(sh.out, "no")
			return nil
		}
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.String()
		}
		fmt.Fprintf(sh.out, "yes: %s\n", strings.Join(names, ", "))
	case "get":
		if err := want(2, "get <tag> <id>"); err != nil {
			return err
		}
		rec, err := sh.record(args[0], args[1])
		if err != nil {
			return err
		}
		if g, ok := rec.(*records.Generic); ok {
			fmt.Fprintf(sh.out, "%s %q (%d bytes, flags 0x%08X)\n%s", g.Tag(), g.ID(), g.Size(), g.Envelope().Flags, hex.Dump(g.Data()))
			return nil
		}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%s %q\n%s\n", rec.Tag(), rec.ID(), data)
	case "remove", "rm":
		if err := want(2, "remove <tag> <id>"); err != nil {
			return err
		}
		c, err := sh.collection(args[0])
		if err != nil {
			return err
		}
		if !c.RemoveRecord(args[1]) {
			return &store.NotFoundError{ID: args[1]}
		}
		fmt.Fprintln(sh.out, "removed")
	case "save":
		if err := want(1, "save <file>"); err != nil {
			return err
		}
		if err := sh.save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "wrote %d records to %s\n", sh.set.Len(), args[0])
	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
	return nil
}

func (sh *shell) collection(tag string) (store.Collection, error) {
	t, err := codec.ParseTag(strings.ToUpper(tag))
	if err != nil {
		return nil, err
	}
	c, ok := sh.set.Store(t)
	if !ok {
		return nil, fmt.Errorf("no %s records", t)
	}
	return c, nil
}

func (sh *shell) record(tag, id string) (records.Record, error) {
	c, err := sh.collection(tag)
	if err != nil {
		return nil, err
	}
	st, ok := c.(*store.Store[records.Record])
	if !ok {
		return nil, fmt.Errorf("%s store does not hold generic records", tag)
	}
	return st.GetRecord(id)
}

// save writes the header and the stored records, grouped per tag for
// hierarchical files.
func (sh *shell) save(path string) error {
	if sh.variant.Hierarchical() {
		f := esm.NewFile(sh.variant, sh.header)
		for _, t := range sh.set.Tags() {
			c, _ := sh.set.Store(t)
			st, ok := c.(*store.Store[records.Record])
			if !ok {
				continue
			}
			g := &esm.Group{Header: esm.GroupHeader{Label: uint32(t), Type: esm.GroupTop}}
			for _, rec := range st.All() {
				g.Entries = append(g.Entries, rec)
			}
			if len(g.Entries) > 0 {
				f.Entries = append(f.Entries, g)
			}
		}
		f.UpdateHeaderCounts()
		return f.WriteFile(path)
	}

	fw, err := codec.CreateFile(path, sh.variant, codec.WithCompressor(codec.ZlibCodec{}))
	if err != nil {
		return err
	}
	defer fw.Close()

	sh.header.SetRecordCount(sh.set.Len())
	if err := sh.header.Save(fw.Writer); err != nil {
		return err
	}
	if err := sh.set.SaveAllToStream(fw.Writer); err != nil {
		return err
	}
	return fw.Commit()
}
