package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/xfbin"
)

const unpackHelp = `xfbin unpack [-flags] <file.xfbin> <outdir>
       xfbin unpack [-flags] -batch <indir> <outdir>

Export every Binary and Unknown chunk payload in a container to its own
file under outdir, plus a manifest.json recording enough struct_info to
repack the container later. Anm chunks are not exported; edit those
through the xfbin package directly.

With -batch, indir is scanned for *.xfbin files and each one is unpacked
concurrently into its own subdirectory of outdir, named after the input
file. RLIMIT_NOFILE is bumped first, since all containers are unpacked at
the same time and their workers open files concurrently.

Example:
  % xfbin unpack character.xfbin character.xfbin.d
  % xfbin unpack -batch chars/ unpacked/
`

func unpack(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("unpack", flag.ExitOnError)
	force := fset.Bool("force", false, "overwrite outdir if it already exists")
	batch := fset.Bool("batch", false, "treat the first argument as a directory of .xfbin files")
	fset.Usage = usage(fset, unpackHelp)
	fset.Parse(args)

	if fset.NArg() != 2 {
		fset.Usage()
		os.Exit(2)
	}
	src, outdir := fset.Arg(0), fset.Arg(1)

	if *batch {
		return unpackBatch(ctx, src, outdir, *force)
	}
	return unpackOne(src, outdir, *force)
}

func unpackBatch(ctx context.Context, indir, outdir string, force bool) error {
	if err := bumpRlimitNOFILE(); err != nil {
		return xerrors.Errorf("raising RLIMIT_NOFILE for batch unpack: %w", err)
	}
	entries, err := os.ReadDir(indir)
	if err != nil {
		return xerrors.Errorf("reading %s: %w", indir, err)
	}
	eg, _ := errgroup.WithContext(ctx)
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xfbin") {
			continue
		}
		name := e.Name()
		n++
		eg.Go(func() error {
			src := filepath.Join(indir, name)
			dst := filepath.Join(outdir, strings.TrimSuffix(name, ".xfbin")+".xfbin.d")
			return unpackOne(src, dst, force)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	fmt.Printf("unpacked %d container(s) from %s\n", n, indir)
	return nil
}

func unpackOne(src, outdir string, force bool) error {
	doc, err := readDocument(src)
	if err != nil {
		return err
	}

	if _, err := os.Stat(outdir); err == nil && !force {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return xerrors.Errorf("%s already exists (use -force or confirm interactively)", outdir)
		}
		fmt.Fprintf(os.Stderr, "%s already exists. Overwrite? [y/N] ", outdir)
		var reply string
		fmt.Scanln(&reply)
		if reply != "y" && reply != "Y" {
			return xerrors.Errorf("not overwriting %s", outdir)
		}
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return xerrors.Errorf("creating %s: %w", outdir, err)
	}

	m := &manifest{Source: filepath.Base(src), Version: doc.Version}
	for pi, page := range doc.Pages {
		for ci, c := range page.Chunks {
			var kind, payload string
			var data []byte
			switch {
			case c.Binary != nil:
				kind, data = "binary", c.Binary.Payload
			case c.Unknown != nil:
				kind, data = "unknown", c.Unknown.Payload
			default:
				continue
			}
			payload = fmt.Sprintf("%04d_%03d_%s.bin", pi, ci, sanitizeName(c.Info.ChunkName))
			if err := os.WriteFile(filepath.Join(outdir, payload), data, 0644); err != nil {
				return xerrors.Errorf("writing %s: %w", payload, err)
			}
			m.Entries = append(m.Entries, manifestEntry{
				PageIndex:      pi,
				ChunkIndex:     ci,
				Kind:           kind,
				BinaryType:     c.Info.ChunkType,
				BinaryFileName: payload,
				StructInfo: manifestStruct{
					ChunkType: c.Info.ChunkType,
					FilePath:  c.Info.FilePath,
					ChunkName: c.Info.ChunkName,
				},
				Version: c.Version,
			})
		}
	}

	if err := writeManifest(filepath.Join(outdir, "manifest.json"), m); err != nil {
		return err
	}
	fmt.Printf("unpacked %d payload(s) to %s\n", len(m.Entries), outdir)
	return nil
}

func sanitizeName(name string) string {
	if name == "" {
		return "chunk"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
