package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/distr1/xfbin/xfbin"
)

const listHelp = `xfbin list [-flags] <file.xfbin>

List every chunk in a container, one line per chunk: page index, chunk
type, file path, chunk name, version, and payload size (or a clump/entry
summary for Anm chunks).

Example:
  % xfbin list character.xfbin
`

func list(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("list", flag.ExitOnError)
	fset.Usage = usage(fset, listHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		fset.Usage()
		os.Exit(2)
	}

	doc, err := readDocument(fset.Arg(0))
	if err != nil {
		return err
	}

	for pi, page := range doc.Pages {
		for ci, c := range page.Chunks {
			fmt.Printf("page %d chunk %d\ttype=%s\tpath=%s\tname=%s\tversion=%d\t%s\n",
				pi, ci, c.Info.ChunkType, c.Info.FilePath, c.Info.ChunkName, c.Version, chunkSummary(c))
		}
	}
	return nil
}

func chunkSummary(c xfbin.Chunk) string {
	switch {
	case c.Anm != nil:
		entries := 0
		for _, cl := range c.Anm.Clumps {
			entries += countEntries(cl.RootEntries)
		}
		entries += countEntries(c.Anm.Other)
		return fmt.Sprintf("anm clumps=%d entries=%d", len(c.Anm.Clumps), entries)
	case c.Binary != nil:
		return fmt.Sprintf("binary bytes=%d", len(c.Binary.Payload))
	case c.Unknown != nil:
		return fmt.Sprintf("unknown bytes=%d", len(c.Unknown.Payload))
	default:
		return "empty"
	}
}

func countEntries(entries []*xfbin.AnmEntry) int {
	n := len(entries)
	for _, e := range entries {
		n += countEntries(e.Children)
	}
	return n
}
