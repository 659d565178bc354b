// Package pageassembler splits a file's flat ChunkFrame stream into pages
// on read, and assembles pages back into a flat frame stream — with
// correct per-page StructInfo/StructReference accounting — on write (§4.7).
package pageassembler

import (
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/internal/bitcodec"
	"github.com/distr1/xfbin/internal/chunkdispatch"
	"github.com/distr1/xfbin/internal/nucc"
	"github.com/distr1/xfbin/internal/structinfo"
	"github.com/distr1/xfbin/internal/xfbinfile"
)

// ErrCountMismatch is returned when a Page chunk's payload cannot be parsed
// or its counts disagree with the data actually present. It is the same
// sentinel xfbinfile uses for its own count checks.
var ErrCountMismatch = xfbinfile.ErrCountMismatch

// Chunk is one payload-bearing frame read from a page, labeled with its
// resolved StructInfo and the page-relative cursor positions needed to
// resolve any further indices (e.g. an Anm chunk's clump/reference
// indices) that the chunk's own payload carries.
type Chunk struct {
	Info           structinfo.Info
	Version        uint16
	Payload        []byte
	PageInfoCursor int
	PageRefCursor  int
}

// Page is one logical page's ordered, payload-bearing chunks (Null, Page,
// and Index frames are not represented here — they are structural).
// InfoCursor/RefCursor/InfoCount/RefCount describe the page's own slice of
// the file-level Info/Reference arrays, letting a caller recover the
// page's raw StructInfo/StructReference table verbatim — needed when the
// page holds an Unknown chunk whose opaque payload may itself carry
// indices into that exact table (§3).
type Page struct {
	Chunks    []Chunk
	InfoCursor, InfoCount int
	RefCursor, RefCount   int
}

// ReadPages groups frames into pages, skipping Null and Index frames and
// committing a page at each Page frame using its declared
// (map_index_count, reference_count).
func ReadPages(frames []xfbinfile.Frame, pools *structinfo.Pools) ([]Page, error) {
	var pages []Page
	infoCursor, refCursor := 0, 0
	cur := Page{InfoCursor: infoCursor, RefCursor: refCursor}

	for i, f := range frames {
		info, err := pools.FrameInfo(infoCursor, f.ChunkMapIndex)
		if err != nil {
			return nil, xerrors.Errorf("frame[%d]: %w", i, err)
		}

		switch chunkdispatch.Resolve(info.ChunkType) {
		case chunkdispatch.KindNull, chunkdispatch.KindIndex:
			continue
		case chunkdispatch.KindPage:
			r := bitcodec.NewReader(f.Payload)
			mapCount, err := r.U32()
			if err != nil {
				return nil, xerrors.Errorf("frame[%d]: reading page map_index_count: %w", i, err)
			}
			refCount, err := r.U32()
			if err != nil {
				return nil, xerrors.Errorf("frame[%d]: reading page reference_count: %w", i, err)
			}
			cur.InfoCount = int(mapCount)
			cur.RefCount = int(refCount)
			pages = append(pages, cur)
			infoCursor += int(mapCount)
			refCursor += int(refCount)
			cur = Page{InfoCursor: infoCursor, RefCursor: refCursor}
		default:
			cur.Chunks = append(cur.Chunks, Chunk{
				Info:           info,
				Version:        f.Version,
				Payload:        f.Payload,
				PageInfoCursor: infoCursor,
				PageRefCursor:  refCursor,
			})
		}
	}
	if len(cur.Chunks) > 0 {
		return nil, xerrors.Errorf("%d chunks after the last page frame, file truncated: %w", len(cur.Chunks), ErrCountMismatch)
	}
	return pages, nil
}

// PageBuilder accumulates one page's frames and its per-page StructInfo/
// StructReference pool while it is being written. Every StructInfo- or
// StructReference-valued field a page's chunks carry — including an Anm
// chunk's clump/bone-material/model/other-entry indices — must be
// resolved against the same PageBuilder's Writer so all indices share one
// page-local numbering space, per the source's page-scoped repack_struct
// (§4.7, §4.8).
type PageBuilder struct {
	w      *structinfo.PageWriter
	frames []xfbinfile.Frame
}

// frameVersion is used for the synthetic Null and Page frames that bound
// every page; the source leaves these at their chunk-struct default.
const frameVersion = 0

// NewPageBuilder starts a page, reserving the synthetic Null, Page, and
// Index StructInfos first (in that order) and emitting the page's leading
// Null frame.
func NewPageBuilder() *PageBuilder {
	pb := &PageBuilder{w: structinfo.NewPageWriter()}
	nullIdx := pb.w.InternInfo(nucc.SyntheticNull)
	pb.w.InternInfo(nucc.SyntheticPage)
	pb.w.InternInfo(nucc.SyntheticIndex)
	pb.frames = append(pb.frames, xfbinfile.Frame{ChunkMapIndex: uint32(nullIdx), Version: frameVersion})
	return pb
}

// NewPageBuilderFromWriter starts a page reusing an already-populated
// PageWriter — used to re-emit a page verbatim (see
// structinfo.NewVerbatimPageWriter) when the page holds an Unknown chunk.
// w must already have the synthetic Null/Page/Index Infos interned.
func NewPageBuilderFromWriter(w *structinfo.PageWriter) *PageBuilder {
	pb := &PageBuilder{w: w}
	nullIdx := pb.w.InternInfo(nucc.SyntheticNull)
	pb.frames = append(pb.frames, xfbinfile.Frame{ChunkMapIndex: uint32(nullIdx), Version: frameVersion})
	return pb
}

// Writer exposes the page's StructInfo/StructReference interner so a
// chunk's payload encoder can resolve its own index-valued fields before
// calling AddChunk.
func (pb *PageBuilder) Writer() *structinfo.PageWriter { return pb.w }

// AddChunk interns info into the page and appends its chunk frame.
func (pb *PageBuilder) AddChunk(info structinfo.Info, version uint16, payload []byte) {
	idx := pb.w.InternInfo(info)
	pb.frames = append(pb.frames, xfbinfile.Frame{ChunkMapIndex: uint32(idx), Version: version, Payload: payload})
}

// Finish emits the page's closing Page frame (whose counts are the page's
// final map_index_count and reference_count) and returns the complete
// frame list plus the page's local Info/Reference pools, ready to be
// merged into the file by a structinfo.FileAssembler.
func (pb *PageBuilder) Finish() ([]xfbinfile.Frame, []structinfo.Info, []structinfo.Reference, error) {
	pageIdx := pb.w.InternInfo(nucc.SyntheticPage)

	body := bitcodec.NewWriter()
	if err := body.U32(uint32(pb.w.InfoCount())); err != nil {
		return nil, nil, nil, err
	}
	if err := body.U32(uint32(pb.w.ReferenceCount())); err != nil {
		return nil, nil, nil, err
	}
	payload, err := body.Finish()
	if err != nil {
		return nil, nil, nil, err
	}
	pb.frames = append(pb.frames, xfbinfile.Frame{ChunkMapIndex: uint32(pageIdx), Version: frameVersion, Payload: payload})

	return pb.frames, pb.w.Infos(), pb.w.References(), nil
}
