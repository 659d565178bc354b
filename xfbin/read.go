package xfbin

import (
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/internal/anmcodec"
	"github.com/distr1/xfbin/internal/anmgraph"
	"github.com/distr1/xfbin/internal/bitcodec"
	"github.com/distr1/xfbin/internal/chunkdispatch"
	"github.com/distr1/xfbin/internal/pageassembler"
	"github.com/distr1/xfbin/internal/structinfo"
	"github.com/distr1/xfbin/internal/xfbinfile"
)

// Read parses a complete XFBIN container from data.
func Read(data []byte) (*Document, error) {
	r := bitcodec.NewReader(data)

	hdr, err := xfbinfile.ReadHeader(r)
	if err != nil {
		return nil, xerrors.Errorf("reading header: %w", err)
	}
	idx, err := xfbinfile.ReadIndex(r)
	if err != nil {
		return nil, xerrors.Errorf("reading index: %w", err)
	}
	frames, err := xfbinfile.ReadFrames(r)
	if err != nil {
		return nil, xerrors.Errorf("reading chunk frames: %w", err)
	}

	pools, err := structinfo.NewPools(idx)
	if err != nil {
		return nil, xerrors.Errorf("resolving struct info pools: %w", err)
	}
	pages, err := pageassembler.ReadPages(frames, pools)
	if err != nil {
		return nil, xerrors.Errorf("splitting pages: %w", err)
	}

	doc := &Document{Version: hdr.Version, IndexUnknown: idx.Unknown}
	for pi, pg := range pages {
		page := Page{}
		hasUnknown := false
		for ci, c := range pg.Chunks {
			chunk, isUnknown, err := decodeChunk(c, pools)
			if err != nil {
				return nil, xerrors.Errorf("page %d, chunk %d: %w", pi, ci, err)
			}
			page.Chunks = append(page.Chunks, chunk)
			hasUnknown = hasUnknown || isUnknown
		}
		if hasUnknown {
			rawInfos, err := pools.InfosInRange(pg.InfoCursor, pg.InfoCount)
			if err != nil {
				return nil, xerrors.Errorf("page %d: recovering raw struct_info table: %w", pi, err)
			}
			rawRefs, err := pools.ReferencesInRange(pg.RefCursor, pg.RefCount)
			if err != nil {
				return nil, xerrors.Errorf("page %d: recovering raw struct_reference table: %w", pi, err)
			}
			page.rawInfos = rawInfos
			page.rawRefs = rawRefs
		}
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

func decodeChunk(c pageassembler.Chunk, pools *structinfo.Pools) (Chunk, bool, error) {
	chunk := Chunk{Info: c.Info, Version: c.Version}

	switch chunkdispatch.Resolve(c.Info.ChunkType) {
	case chunkdispatch.KindAnm:
		raw, err := anmcodec.Decode(c.Payload)
		if err != nil {
			return Chunk{}, false, xerrors.Errorf("decoding anm payload: %w", err)
		}
		clumps, other, err := anmgraph.Build(raw, pools, c.PageInfoCursor, c.PageRefCursor)
		if err != nil {
			return Chunk{}, false, xerrors.Errorf("rebuilding anm graph: %w", err)
		}
		chunk.Anm = &Anm{
			FrameCount: raw.FrameCount,
			FrameSize:  raw.FrameSize,
			Unk:        raw.Unk,
			Clumps:     toPublicClumps(clumps),
			Other:      toPublicEntries(other),
		}
		return chunk, false, nil

	case chunkdispatch.KindBinary:
		chunk.Binary = &Binary{Payload: c.Payload}
		return chunk, false, nil

	default: // chunkdispatch.KindUnknown
		chunk.Unknown = &Unknown{TypeString: c.Info.ChunkType, Payload: c.Payload}
		return chunk, true, nil
	}
}

func toPublicClumps(clumps []*anmgraph.Clump) []*AnmClump {
	out := make([]*AnmClump, len(clumps))
	for i, c := range clumps {
		out[i] = &AnmClump{
			Ref:              c.Ref,
			BoneMaterialRefs: c.BoneMaterialRefs,
			ModelRefs:        c.ModelRefs,
			RootEntries:      toPublicEntries(c.RootEntries),
		}
	}
	return out
}

func toPublicEntries(entries []*anmgraph.Entry) []*AnmEntry {
	out := make([]*AnmEntry, len(entries))
	for i, e := range entries {
		out[i] = toPublicEntry(e)
	}
	return out
}

func toPublicEntry(e *anmgraph.Entry) *AnmEntry {
	curves := make([]Curve, len(e.Curves))
	for i, c := range e.Curves {
		curves[i] = Curve{
			Index:     c.Header.CurveIndex,
			Format:    c.Header.Format,
			UnkFlags:  c.Header.UnkFlags,
			Keyframes: c.Keyframes,
			Channel:   c.Channel,
			Interp:    c.Interp,
		}
	}
	return &AnmEntry{
		Coord:           e.Coord,
		InfoIsReference: e.InfoIsReference,
		Ref:             e.Ref,
		Info:            e.Info,
		Format:          e.Format,
		Curves:          curves,
		Children:        toPublicEntries(e.Children),
	}
}
