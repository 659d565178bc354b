package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cavaliercoder/go-cpio"
	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/xfbin"
)

const bundleHelp = `xfbin bundle [-flags] <file.xfbin> <output.cpio.gz>

Pack every Binary and Unknown chunk payload in a container into a single
gzip-compressed cpio archive, named payload/<page>_<chunk>.bin, plus a
struct_info.json member carrying the same manifest metadata as unpack.
Useful for shipping a container's extracted payloads as one file.

Example:
  % xfbin bundle character.xfbin character.payloads.cpio.gz
`

func bundle(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("bundle", flag.ExitOnError)
	fset.Usage = usage(fset, bundleHelp)
	fset.Parse(args)

	if fset.NArg() != 2 {
		fset.Usage()
		os.Exit(2)
	}
	src, output := fset.Arg(0), fset.Arg(1)

	doc, err := readDocument(src)
	if err != nil {
		return err
	}

	start := time.Now()
	var buf bytes.Buffer
	wr := cpio.NewWriter(&buf)

	m := &manifest{Source: src, Version: doc.Version}
	for pi, page := range doc.Pages {
		for ci, c := range page.Chunks {
			var data []byte
			var kind string
			switch {
			case c.Binary != nil:
				kind, data = "binary", c.Binary.Payload
			case c.Unknown != nil:
				kind, data = "unknown", c.Unknown.Payload
			default:
				continue
			}
			name := fmt.Sprintf("payload/%04d_%03d.bin", pi, ci)
			if err := wr.WriteHeader(&cpio.Header{
				Name: name,
				Mode: cpio.FileMode(0644),
				Size: int64(len(data)),
			}); err != nil {
				return xerrors.Errorf("writing cpio header for %s: %w", name, err)
			}
			if _, err := wr.Write(data); err != nil {
				return xerrors.Errorf("writing %s: %w", name, err)
			}
			m.Entries = append(m.Entries, manifestEntry{
				PageIndex:      pi,
				ChunkIndex:     ci,
				Kind:           kind,
				BinaryType:     c.Info.ChunkType,
				BinaryFileName: name,
				StructInfo: manifestStruct{
					ChunkType: c.Info.ChunkType,
					FilePath:  c.Info.FilePath,
					ChunkName: c.Info.ChunkName,
				},
				Version: c.Version,
			})
		}
	}

	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return xerrors.Errorf("encoding struct_info.json: %w", err)
	}
	if err := wr.WriteHeader(&cpio.Header{
		Name: "struct_info.json",
		Mode: cpio.FileMode(0644),
		Size: int64(len(mb)),
	}); err != nil {
		return xerrors.Errorf("writing cpio header for struct_info.json: %w", err)
	}
	if _, err := wr.Write(mb); err != nil {
		return xerrors.Errorf("writing struct_info.json: %w", err)
	}

	if err := wr.Close(); err != nil {
		return xerrors.Errorf("closing cpio writer: %w", err)
	}

	out, err := renameio.TempFile("", output)
	if err != nil {
		return xerrors.Errorf("creating temp file for %s: %w", output, err)
	}
	defer out.Cleanup()
	zw := pgzip.NewWriter(out)
	if _, err := io.Copy(zw, &buf); err != nil {
		return xerrors.Errorf("compressing %s: %w", output, err)
	}
	if err := zw.Close(); err != nil {
		return xerrors.Errorf("closing gzip writer: %w", err)
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("replacing %s: %w", output, err)
	}

	fmt.Printf("bundled %d payload(s) into %s in %v\n", len(m.Entries), output, time.Since(start))
	return nil
}
