// Package anmcodec decodes and encodes the wire layout of an Anm chunk's
// payload: clumps, the flat coord parent/child edge list, and flat entries
// with their curve headers and curve payloads. Tree reconstruction from the
// flat edge list is internal/anmgraph's job; this package only speaks the
// flat wire shape.
package anmcodec

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/internal/bitcodec"
	"github.com/distr1/xfbin/internal/curvecodec"
	"github.com/distr1/xfbin/internal/xfbinfile"
)

// ErrUnsupportedFeature is returned for non-empty unk_entry_chunk_indices.
// It is the same sentinel xfbinfile uses for an encrypted container, since
// both name the one "deliberately unimplemented feature" error in the
// taxonomy (spec.md §7).
var ErrUnsupportedFeature = xfbinfile.ErrUnsupportedFeature

// ClumpCoordIndex identifies an entry's position: which clump it belongs
// to (or -1 for an "other" entry not attached to any clump) and its slot
// within that clump's coordinate space.
type ClumpCoordIndex struct {
	Clump int16
	Entry uint16
}

// OtherClump is the sentinel clump index for entries not attached to any
// declared clump.
const OtherClump int16 = -1

// ParentChild is one coord-parent edge.
type ParentChild struct {
	Parent ClumpCoordIndex
	Child  ClumpCoordIndex
}

// Clump is the wire form of a clump: a reference index plus its ordered
// bone/material and model index lists.
type Clump struct {
	ClumpRefIndex uint32
	BMIndices     []uint32
	ModelIndices  []uint32
}

// CurveHeader is one CurveHeader record.
type CurveHeader struct {
	CurveIndex uint16
	Format     curvecodec.Format
	FrameCount uint16
	UnkFlags   uint16
}

// Curve pairs a decoded header with its keyframes. Channel and Interp are
// not wire fields: they are derived from the owning entry's EntryFormat
// and the header's CurveIndex/Format respectively, and left zero-valued
// by Decode — anmgraph.Build fills them in once it knows the entry's
// format, the one place both pieces of context are available together.
type Curve struct {
	Header    CurveHeader
	Keyframes curvecodec.Keyframes

	Channel curvecodec.Channel
	Interp  curvecodec.Interp
}

// Entry is the flat wire form of an Anm entry.
type Entry struct {
	Coord  ClumpCoordIndex
	Format curvecodec.EntryFormat
	Curves []Curve
}

// Raw is the fully decoded, still-flat Anm payload.
type Raw struct {
	FrameCount uint32
	FrameSize  uint32
	Unk        uint16 // passthrough field paired with entry_count on the wire

	Clumps                 []Clump
	OtherEntryChunkIndices []uint32
	CoordParents           []ParentChild
	Entries                []Entry
}

// Decode parses an Anm chunk payload. unk_entry_chunk_indices is read and
// validated empty; a non-empty list surfaces ErrUnsupportedFeature.
func Decode(payload []byte) (*Raw, error) {
	r := bitcodec.NewReader(payload)

	frameCount, err := r.U32()
	if err != nil {
		return nil, xerrors.Errorf("reading frame_count: %w", err)
	}
	frameSize, err := r.U32()
	if err != nil {
		return nil, xerrors.Errorf("reading frame_size: %w", err)
	}
	entryCount, err := r.U16()
	if err != nil {
		return nil, xerrors.Errorf("reading entry_count: %w", err)
	}
	unk, err := r.U16()
	if err != nil {
		return nil, xerrors.Errorf("reading unk: %w", err)
	}
	clumpCount, err := r.U16()
	if err != nil {
		return nil, xerrors.Errorf("reading clump_count: %w", err)
	}
	otherEntryCount, err := r.U16()
	if err != nil {
		return nil, xerrors.Errorf("reading other_entry_count: %w", err)
	}
	unkEntryCount, err := r.U16()
	if err != nil {
		return nil, xerrors.Errorf("reading unk_entry_count: %w", err)
	}
	coordCount, err := r.U16()
	if err != nil {
		return nil, xerrors.Errorf("reading coord_count: %w", err)
	}

	clumps := make([]Clump, clumpCount)
	for i := range clumps {
		refIdx, err := r.U32()
		if err != nil {
			return nil, xerrors.Errorf("reading clump[%d].clump_ref_index: %w", i, err)
		}
		bmCount, err := r.U16()
		if err != nil {
			return nil, xerrors.Errorf("reading clump[%d].bm_count: %w", i, err)
		}
		modelCount, err := r.U16()
		if err != nil {
			return nil, xerrors.Errorf("reading clump[%d].model_count: %w", i, err)
		}
		bmIndices := make([]uint32, bmCount)
		for j := range bmIndices {
			v, err := r.U32()
			if err != nil {
				return nil, xerrors.Errorf("reading clump[%d].bm_indices[%d]: %w", i, j, err)
			}
			bmIndices[j] = v
		}
		modelIndices := make([]uint32, modelCount)
		for j := range modelIndices {
			v, err := r.U32()
			if err != nil {
				return nil, xerrors.Errorf("reading clump[%d].model_indices[%d]: %w", i, j, err)
			}
			modelIndices[j] = v
		}
		clumps[i] = Clump{ClumpRefIndex: refIdx, BMIndices: bmIndices, ModelIndices: modelIndices}
	}

	otherEntryChunkIndices := make([]uint32, otherEntryCount)
	for i := range otherEntryChunkIndices {
		v, err := r.U32()
		if err != nil {
			return nil, xerrors.Errorf("reading other_entry_chunk_indices[%d]: %w", i, err)
		}
		otherEntryChunkIndices[i] = v
	}

	unkEntryChunkIndices := make([]uint32, unkEntryCount)
	for i := range unkEntryChunkIndices {
		v, err := r.U32()
		if err != nil {
			return nil, xerrors.Errorf("reading unk_entry_chunk_indices[%d]: %w", i, err)
		}
		unkEntryChunkIndices[i] = v
	}
	if len(unkEntryChunkIndices) > 0 {
		return nil, xerrors.Errorf("%d unk_entry_chunk_indices present: %w", len(unkEntryChunkIndices), ErrUnsupportedFeature)
	}

	coordParents := make([]ParentChild, coordCount)
	for i := range coordParents {
		parent, err := readCoord(r)
		if err != nil {
			return nil, xerrors.Errorf("reading coord_parents[%d].parent: %w", i, err)
		}
		child, err := readCoord(r)
		if err != nil {
			return nil, xerrors.Errorf("reading coord_parents[%d].child: %w", i, err)
		}
		coordParents[i] = ParentChild{Parent: parent, Child: child}
	}

	entries := make([]Entry, entryCount)
	type headerSet struct {
		coord   ClumpCoordIndex
		format  curvecodec.EntryFormat
		headers []CurveHeader
	}
	headerSets := make([]headerSet, entryCount)
	for i := range headerSets {
		coord, err := readCoord(r)
		if err != nil {
			return nil, xerrors.Errorf("reading entry[%d].coord: %w", i, err)
		}
		formatTag, err := r.U16()
		if err != nil {
			return nil, xerrors.Errorf("reading entry[%d].entry_format_tag: %w", i, err)
		}
		curveCount, err := r.U16()
		if err != nil {
			return nil, xerrors.Errorf("reading entry[%d].curve_count: %w", i, err)
		}
		headers := make([]CurveHeader, curveCount)
		for j := range headers {
			curveIdx, err := r.U16()
			if err != nil {
				return nil, xerrors.Errorf("reading entry[%d].curve_header[%d].curve_index: %w", i, j, err)
			}
			formatVal, err := r.U16()
			if err != nil {
				return nil, xerrors.Errorf("reading entry[%d].curve_header[%d].format_tag: %w", i, j, err)
			}
			frameCnt, err := r.U16()
			if err != nil {
				return nil, xerrors.Errorf("reading entry[%d].curve_header[%d].frame_count: %w", i, j, err)
			}
			unkFlags, err := r.U16()
			if err != nil {
				return nil, xerrors.Errorf("reading entry[%d].curve_header[%d].unk_flags: %w", i, j, err)
			}
			headers[j] = CurveHeader{CurveIndex: curveIdx, Format: curvecodec.Format(formatVal), FrameCount: frameCnt, UnkFlags: unkFlags}
		}
		// Curve payloads for this entry are read immediately after its
		// headers, in header order, before the next entry's coord begins.
		curves := make([]Curve, len(headers))
		for j, h := range headers {
			size, err := curvecodec.PayloadSize(h.Format, int(h.FrameCount))
			if err != nil {
				return nil, xerrors.Errorf("entry[%d].curve[%d]: %w", i, j, err)
			}
			payload, err := r.Bytes(size)
			if err != nil {
				return nil, xerrors.Errorf("reading entry[%d].curve[%d] payload (%d bytes): %w", i, j, size, err)
			}
			kf, err := curvecodec.Decode(h.Format, int(h.FrameCount), payload)
			if err != nil {
				return nil, xerrors.Errorf("decoding entry[%d].curve[%d]: %w", i, j, err)
			}
			curves[j] = Curve{Header: h, Keyframes: kf}
		}
		entries[i] = Entry{Coord: coord, Format: curvecodec.EntryFormat(formatTag), Curves: curves}
	}

	return &Raw{
		FrameCount:             frameCount,
		FrameSize:              frameSize,
		Unk:                    unk,
		Clumps:                 clumps,
		OtherEntryChunkIndices: otherEntryChunkIndices,
		CoordParents:           coordParents,
		Entries:                entries,
	}, nil
}

func readCoord(r *bitcodec.Reader) (ClumpCoordIndex, error) {
	clump, err := r.I16()
	if err != nil {
		return ClumpCoordIndex{}, err
	}
	entry, err := r.U16()
	if err != nil {
		return ClumpCoordIndex{}, err
	}
	return ClumpCoordIndex{Clump: clump, Entry: entry}, nil
}

func writeCoord(w *bitcodec.Writer, c ClumpCoordIndex) error {
	if err := w.I16(c.Clump); err != nil {
		return err
	}
	return w.U16(c.Entry)
}

// Encode emits raw back out to an Anm chunk payload. Curve payload
// encoding for independent entries is parallelized with errgroup; results
// land in a slice pre-sized by entry index, so output bytes are identical
// regardless of goroutine completion order.
func Encode(raw *Raw) ([]byte, error) {
	encodedCurves := make([][][]byte, len(raw.Entries))
	g, _ := errgroup.WithContext(context.Background())
	for i := range raw.Entries {
		i := i
		g.Go(func() error {
			entry := raw.Entries[i]
			out := make([][]byte, len(entry.Curves))
			for j, c := range entry.Curves {
				body, err := curvecodec.Encode(c.Header.Format, c.Keyframes)
				if err != nil {
					return xerrors.Errorf("encoding entry[%d].curve[%d]: %w", i, j, err)
				}
				out[j] = body
			}
			encodedCurves[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w := bitcodec.NewWriter()
	if err := w.U32(raw.FrameCount); err != nil {
		return nil, err
	}
	if err := w.U32(raw.FrameSize); err != nil {
		return nil, err
	}
	if err := w.U16(uint16(len(raw.Entries))); err != nil {
		return nil, err
	}
	if err := w.U16(raw.Unk); err != nil {
		return nil, err
	}
	if err := w.U16(uint16(len(raw.Clumps))); err != nil {
		return nil, err
	}
	if err := w.U16(uint16(len(raw.OtherEntryChunkIndices))); err != nil {
		return nil, err
	}
	if err := w.U16(0); err != nil { // unk_entry_count, always empty
		return nil, err
	}
	if err := w.U16(uint16(len(raw.CoordParents))); err != nil {
		return nil, err
	}

	for i, c := range raw.Clumps {
		if err := w.U32(c.ClumpRefIndex); err != nil {
			return nil, xerrors.Errorf("writing clump[%d]: %w", i, err)
		}
		if err := w.U16(uint16(len(c.BMIndices))); err != nil {
			return nil, err
		}
		if err := w.U16(uint16(len(c.ModelIndices))); err != nil {
			return nil, err
		}
		for _, v := range c.BMIndices {
			if err := w.U32(v); err != nil {
				return nil, err
			}
		}
		for _, v := range c.ModelIndices {
			if err := w.U32(v); err != nil {
				return nil, err
			}
		}
	}
	for _, v := range raw.OtherEntryChunkIndices {
		if err := w.U32(v); err != nil {
			return nil, err
		}
	}
	// unk_entry_chunk_indices: always zero entries, nothing to write.
	for i, pc := range raw.CoordParents {
		if err := writeCoord(w, pc.Parent); err != nil {
			return nil, xerrors.Errorf("writing coord_parents[%d].parent: %w", i, err)
		}
		if err := writeCoord(w, pc.Child); err != nil {
			return nil, xerrors.Errorf("writing coord_parents[%d].child: %w", i, err)
		}
	}
	for i, e := range raw.Entries {
		if err := writeCoord(w, e.Coord); err != nil {
			return nil, xerrors.Errorf("writing entry[%d].coord: %w", i, err)
		}
		if err := w.U16(uint16(e.Format)); err != nil {
			return nil, err
		}
		if err := w.U16(uint16(len(e.Curves))); err != nil {
			return nil, err
		}
		for j, c := range e.Curves {
			if err := w.U16(c.Header.CurveIndex); err != nil {
				return nil, xerrors.Errorf("writing entry[%d].curve_header[%d]: %w", i, j, err)
			}
			if err := w.U16(uint16(c.Header.Format)); err != nil {
				return nil, err
			}
			if err := w.U16(c.Header.FrameCount); err != nil {
				return nil, err
			}
			if err := w.U16(c.Header.UnkFlags); err != nil {
				return nil, err
			}
		}
		for j, body := range encodedCurves[i] {
			if err := w.Bytes(body); err != nil {
				return nil, xerrors.Errorf("writing entry[%d].curve[%d] payload: %w", i, j, err)
			}
		}
	}

	return w.Finish()
}
