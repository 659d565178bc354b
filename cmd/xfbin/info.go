package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/distr1/xfbin/xfbin"
)

const infoHelp = `xfbin info [-flags] <file.xfbin>

Print the container's format version, page count, and a chunk-type
histogram. For a per-chunk listing, use xfbin list.

Example:
  % xfbin info character.xfbin
`

func info(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("info", flag.ExitOnError)
	fset.Usage = usage(fset, infoHelp)
	fset.Parse(args)

	if fset.NArg() != 1 {
		fset.Usage()
		os.Exit(2)
	}

	doc, err := readDocument(fset.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("version: %d\n", doc.Version)
	fmt.Printf("pages: %d\n", len(doc.Pages))

	counts := make(map[string]int)
	totalChunks := 0
	for _, page := range doc.Pages {
		for _, c := range page.Chunks {
			counts[c.Info.ChunkType]++
			totalChunks++
		}
	}
	fmt.Printf("chunks: %d\n", totalChunks)

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %s: %d\n", t, counts[t])
	}
	return nil
}
