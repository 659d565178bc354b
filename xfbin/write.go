package xfbin

import (
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/internal/anmcodec"
	"github.com/distr1/xfbin/internal/anmgraph"
	"github.com/distr1/xfbin/internal/bitcodec"
	"github.com/distr1/xfbin/internal/pageassembler"
	"github.com/distr1/xfbin/internal/structinfo"
	"github.com/distr1/xfbin/internal/xfbinfile"
)

// Write serializes doc back to an XFBIN container.
func Write(doc *Document) ([]byte, error) {
	asm := structinfo.NewFileAssembler()
	var allFrames []xfbinfile.Frame
	maxPageBytes := 0

	for pi, page := range doc.Pages {
		builder, err := newPageBuilder(page)
		if err != nil {
			return nil, xerrors.Errorf("page %d: %w", pi, err)
		}
		for ci, c := range page.Chunks {
			payload, err := encodeChunkPayload(c, builder.Writer())
			if err != nil {
				return nil, xerrors.Errorf("page %d, chunk %d: %w", pi, ci, err)
			}
			builder.AddChunk(c.Info, c.Version, payload)
		}

		frames, pageInfos, pageRefs, err := builder.Finish()
		if err != nil {
			return nil, xerrors.Errorf("page %d: finishing: %w", pi, err)
		}
		asm.AddPage(pageInfos, pageRefs)
		allFrames = append(allFrames, frames...)

		pageBytes := 0
		for _, f := range frames {
			pageBytes += frameByteLen(f)
		}
		if pageBytes > maxPageBytes {
			maxPageBytes = pageBytes
		}
	}

	chunkTypes, filePaths, chunkNames, chunkMaps, chunkReferences, chunkMapIndices := asm.Finish()
	idx := xfbinfile.Index{
		MinPageSize:     uint32(maxPageBytes),
		Version:         doc.Version,
		Unknown:         doc.IndexUnknown,
		ChunkTypes:      chunkTypes,
		FilePaths:       filePaths,
		ChunkNames:      chunkNames,
		ChunkMaps:       chunkMaps,
		ChunkReferences: chunkReferences,
		ChunkMapIndices: chunkMapIndices,
	}

	w := bitcodec.NewWriter()
	if err := xfbinfile.WriteHeader(w, xfbinfile.Header{Version: doc.Version}); err != nil {
		return nil, xerrors.Errorf("writing header: %w", err)
	}
	if err := xfbinfile.WriteIndex(w, idx); err != nil {
		return nil, xerrors.Errorf("writing index: %w", err)
	}
	for i, f := range allFrames {
		if err := xfbinfile.WriteFrame(w, f); err != nil {
			return nil, xerrors.Errorf("writing chunk frame %d: %w", i, err)
		}
	}
	return w.Finish()
}

func frameByteLen(f xfbinfile.Frame) int {
	return 4 + 4 + 2 + 2 + len(f.Payload) // size, map_index, version, padding, payload
}

func newPageBuilder(page Page) (*pageassembler.PageBuilder, error) {
	hasUnknown := false
	for _, c := range page.Chunks {
		if c.Unknown != nil {
			hasUnknown = true
			break
		}
	}
	if hasUnknown && page.rawInfos != nil {
		return pageassembler.NewPageBuilderFromWriter(structinfo.NewVerbatimPageWriter(page.rawInfos, page.rawRefs)), nil
	}
	return pageassembler.NewPageBuilder(), nil
}

func encodeChunkPayload(c Chunk, pw *structinfo.PageWriter) ([]byte, error) {
	switch {
	case c.Anm != nil:
		return encodeAnm(c.Anm, pw)
	case c.Binary != nil:
		return c.Binary.Payload, nil
	case c.Unknown != nil:
		return c.Unknown.Payload, nil
	default:
		return nil, xerrors.Errorf("chunk %+v has no payload variant set", c.Info)
	}
}

func encodeAnm(a *Anm, pw *structinfo.PageWriter) ([]byte, error) {
	seq := &anmgraph.EntrySeq{}

	clumps := make([]*anmgraph.Clump, len(a.Clumps))
	for i, c := range a.Clumps {
		roots := make([]*anmgraph.Entry, len(c.RootEntries))
		for j, e := range c.RootEntries {
			ge, err := fromPublicEntry(e, seq)
			if err != nil {
				return nil, xerrors.Errorf("clump[%d].root_entries[%d]: %w", i, j, err)
			}
			roots[j] = ge
		}
		clumps[i] = &anmgraph.Clump{
			Ref:              c.Ref,
			BoneMaterialRefs: c.BoneMaterialRefs,
			ModelRefs:        c.ModelRefs,
			RootEntries:      roots,
		}
	}

	other := make([]*anmgraph.Entry, len(a.Other))
	for i, e := range a.Other {
		ge, err := fromPublicEntry(e, seq)
		if err != nil {
			return nil, xerrors.Errorf("other[%d]: %w", i, err)
		}
		other[i] = ge
	}

	rawClumps, otherIdx := anmgraph.ResolveRefs(clumps, other, pw)
	entries, coordParents := anmgraph.Flatten(clumps, other)

	raw := &anmcodec.Raw{
		FrameCount:             a.FrameCount,
		FrameSize:              a.FrameSize,
		Unk:                    a.Unk,
		Clumps:                 rawClumps,
		OtherEntryChunkIndices: otherIdx,
		CoordParents:           coordParents,
		Entries:                entries,
	}
	return anmcodec.Encode(raw)
}

func fromPublicEntry(e *AnmEntry, seq *anmgraph.EntrySeq) (*anmgraph.Entry, error) {
	curves := make([]anmcodec.Curve, len(e.Curves))
	for i, c := range e.Curves {
		curves[i] = anmcodec.Curve{
			Header: anmcodec.CurveHeader{
				CurveIndex: c.Index,
				Format:     c.Format,
				FrameCount: uint16(c.Keyframes.Len()),
				UnkFlags:   c.UnkFlags,
			},
			Keyframes: c.Keyframes,
		}
	}

	ge := seq.NewEntry(e.Coord, e.Format, curves)
	ge.InfoIsReference = e.InfoIsReference
	ge.Ref = e.Ref
	ge.Info = e.Info

	children := make([]*anmgraph.Entry, len(e.Children))
	for i, c := range e.Children {
		gc, err := fromPublicEntry(c, seq)
		if err != nil {
			return nil, xerrors.Errorf("children[%d]: %w", i, err)
		}
		children[i] = gc
	}
	ge.Children = children
	return ge, nil
}
