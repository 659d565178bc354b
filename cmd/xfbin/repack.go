package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/xfbin"
)

const repackHelp = `xfbin repack [-flags] <indir> <original.xfbin> <output.xfbin>

Rebuild a container from a directory previously produced by xfbin unpack,
splicing any edited payload files back into their original page/chunk
slot. Chunks that were not exported by unpack (Anm, Null, Page, Index)
are carried over from original.xfbin unchanged.

Example:
  % xfbin repack character.xfbin.d character.xfbin character.new.xfbin
`

func repack(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("repack", flag.ExitOnError)
	fset.Usage = usage(fset, repackHelp)
	fset.Parse(args)

	if fset.NArg() != 3 {
		fset.Usage()
		os.Exit(2)
	}
	indir, original, output := fset.Arg(0), fset.Arg(1), fset.Arg(2)

	m, err := readManifest(filepath.Join(indir, "manifest.json"))
	if err != nil {
		return err
	}

	doc, err := readDocument(original)
	if err != nil {
		return err
	}
	if doc.Version != m.Version {
		return xerrors.Errorf("original.xfbin version %d does not match manifest version %d", doc.Version, m.Version)
	}

	for _, e := range m.Entries {
		if e.PageIndex < 0 || e.PageIndex >= len(doc.Pages) {
			return xerrors.Errorf("manifest entry references page %d, container has %d pages", e.PageIndex, len(doc.Pages))
		}
		page := doc.Pages[e.PageIndex]
		if e.ChunkIndex < 0 || e.ChunkIndex >= len(page.Chunks) {
			return xerrors.Errorf("manifest entry references chunk %d, page %d has %d chunks", e.ChunkIndex, e.PageIndex, len(page.Chunks))
		}
		data, err := os.ReadFile(filepath.Join(indir, e.BinaryFileName))
		if err != nil {
			return xerrors.Errorf("reading %s: %w", e.BinaryFileName, err)
		}
		c := &page.Chunks[e.ChunkIndex]
		switch e.Kind {
		case "binary":
			if c.Binary == nil {
				return xerrors.Errorf("chunk page %d/%d is no longer a binary chunk", e.PageIndex, e.ChunkIndex)
			}
			c.Binary.Payload = data
		case "unknown":
			if c.Unknown == nil {
				return xerrors.Errorf("chunk page %d/%d is no longer an unknown chunk", e.PageIndex, e.ChunkIndex)
			}
			c.Unknown.Payload = data
		default:
			return xerrors.Errorf("manifest entry has unknown kind %q", e.Kind)
		}
	}

	out, err := xfbin.Write(doc)
	if err != nil {
		return xerrors.Errorf("encoding %s: %w", output, err)
	}

	lock, err := os.OpenFile(output+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err == nil {
		defer lock.Close()
		if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
			return xerrors.Errorf("locking %s: %w", output, err)
		}
		defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)
	}

	t, err := renameio.TempFile("", output)
	if err != nil {
		return xerrors.Errorf("creating temp file for %s: %w", output, err)
	}
	defer t.Cleanup()
	if _, err := t.Write(out); err != nil {
		return xerrors.Errorf("writing %s: %w", output, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("replacing %s: %w", output, err)
	}

	fmt.Printf("repacked %d payload(s) into %s\n", len(m.Entries), output)
	return nil
}
