// Package structinfo resolves StructInfo and StructReference values to and
// from the container's interned string pools, chunk-map table, and
// reference table — in both directions. On read, indices inside an Anm
// payload (clump/bone-material/model/other-entry references) are relative
// to the current page's position in the file-level arrays; on write, every
// chunk in a page interns into a page-local pool that is only merged into
// the file-level pools once the page is complete (§4.7, §4.8).
package structinfo

import (
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/internal/xfbinfile"
)

// ErrCountMismatch is returned when an index or count read from the
// container disagrees with the data actually present. It is the same
// sentinel xfbinfile uses for its own count checks.
var ErrCountMismatch = xfbinfile.ErrCountMismatch

// Info is a resolved (chunk_type, file_path, chunk_name) identity triple.
type Info struct {
	ChunkType string
	FilePath  string
	ChunkName string
}

// Reference is a named back-reference to an Info.
type Reference struct {
	Name   string
	Target Info
}

// Interner assigns stable, insertion-ordered indices to values of a
// comparable type.
type Interner[K comparable] struct {
	order []K
	index map[K]int
}

// NewInterner creates an empty Interner.
func NewInterner[K comparable]() *Interner[K] {
	return &Interner[K]{index: make(map[K]int)}
}

// Intern returns the stable index for k, assigning a new one (at the end of
// insertion order) the first time k is seen.
func (in *Interner[K]) Intern(k K) int {
	if idx, ok := in.index[k]; ok {
		return idx
	}
	idx := len(in.order)
	in.order = append(in.order, k)
	in.index[k] = idx
	return idx
}

// IndexOf reports the index previously assigned to k, if any.
func (in *Interner[K]) IndexOf(k K) (int, bool) {
	idx, ok := in.index[k]
	return idx, ok
}

// Len returns the number of distinct keys interned so far.
func (in *Interner[K]) Len() int { return len(in.order) }

// Keys returns the interned keys in insertion order.
func (in *Interner[K]) Keys() []K { return slices.Clone(in.order) }

// Pools is the fully-resolved, read-side view of an XfbinIndex: every
// chunk-map row and chunk-map-indices slot resolved to an Info, and every
// chunk-reference row resolved to a Reference.
type Pools struct {
	// infos[i] is the Info for chunk_maps[i].
	infos []Info
	// flat[i] is infos[chunk_map_indices[i]] — one entry per logical chunk
	// position across the whole file, in wire order.
	flat []Info
	// references[i] is the Reference for chunk_references[i], a flat,
	// file-level, page-ordered (but not page-deduped) array.
	references []Reference
}

// NewPools resolves every table in idx.
func NewPools(idx xfbinfile.Index) (*Pools, error) {
	infos := make([]Info, len(idx.ChunkMaps))
	for i, m := range idx.ChunkMaps {
		typ, err := str(idx.ChunkTypes, m[0])
		if err != nil {
			return nil, xerrors.Errorf("chunk_maps[%d].type_idx: %w", i, err)
		}
		path, err := str(idx.FilePaths, m[1])
		if err != nil {
			return nil, xerrors.Errorf("chunk_maps[%d].path_idx: %w", i, err)
		}
		name, err := str(idx.ChunkNames, m[2])
		if err != nil {
			return nil, xerrors.Errorf("chunk_maps[%d].name_idx: %w", i, err)
		}
		infos[i] = Info{ChunkType: typ, FilePath: path, ChunkName: name}
	}

	flat := make([]Info, len(idx.ChunkMapIndices))
	for i, mapIdx := range idx.ChunkMapIndices {
		if int(mapIdx) >= len(infos) {
			return nil, xerrors.Errorf("chunk_map_indices[%d]=%d out of range (%d maps): %w", i, mapIdx, len(infos), ErrCountMismatch)
		}
		flat[i] = infos[mapIdx]
	}

	references := make([]Reference, len(idx.ChunkReferences))
	for i, row := range idx.ChunkReferences {
		name, err := str(idx.ChunkNames, row[0])
		if err != nil {
			return nil, xerrors.Errorf("chunk_references[%d].name_idx: %w", i, err)
		}
		if int(row[1]) >= len(infos) {
			return nil, xerrors.Errorf("chunk_references[%d].map_idx=%d out of range: %w", i, row[1], ErrCountMismatch)
		}
		references[i] = Reference{Name: name, Target: infos[row[1]]}
	}

	return &Pools{infos: infos, flat: flat, references: references}, nil
}

func str(pool []string, idx uint32) (string, error) {
	if int(idx) >= len(pool) {
		return "", xerrors.Errorf("string index %d out of range (%d strings): %w", idx, len(pool), ErrCountMismatch)
	}
	return pool[idx], nil
}

// FrameInfo resolves a ChunkFrame's StructInfo: pageInfoCursor is the
// number of logical chunk positions contributed by all prior pages, and
// chunkMapIndex is the frame's wire-level, page-local map index.
func (p *Pools) FrameInfo(pageInfoCursor int, chunkMapIndex uint32) (Info, error) {
	return p.InfoAt(pageInfoCursor, chunkMapIndex)
}

// InfoAt resolves a page-relative Info index (used for Anm's
// other_entry_chunk_indices, which are relative to the current page).
func (p *Pools) InfoAt(pageInfoCursor int, localIdx uint32) (Info, error) {
	i := pageInfoCursor + int(localIdx)
	if i < 0 || i >= len(p.flat) {
		return Info{}, xerrors.Errorf("info index %d (cursor %d + local %d) out of range (%d): %w", i, pageInfoCursor, localIdx, len(p.flat), ErrCountMismatch)
	}
	return p.flat[i], nil
}

// ReferenceAt resolves a page-relative Reference index (used for Anm's
// clump_ref_index, bm_indices, model_indices).
func (p *Pools) ReferenceAt(pageRefCursor int, localIdx uint32) (Reference, error) {
	i := pageRefCursor + int(localIdx)
	if i < 0 || i >= len(p.references) {
		return Reference{}, xerrors.Errorf("reference index %d (cursor %d + local %d) out of range (%d): %w", i, pageRefCursor, localIdx, len(p.references), ErrCountMismatch)
	}
	return p.references[i], nil
}

// InfosInRange returns the Infos contributed by a page spanning
// [cursor, cursor+count) in the file-level flat array, for callers that
// need a page's raw StructInfo table verbatim (§3's Unknown-chunk case).
func (p *Pools) InfosInRange(cursor, count int) ([]Info, error) {
	if cursor < 0 || count < 0 || cursor+count > len(p.flat) {
		return nil, xerrors.Errorf("info range [%d,%d) out of bounds (%d): %w", cursor, cursor+count, len(p.flat), ErrCountMismatch)
	}
	return slices.Clone(p.flat[cursor : cursor+count]), nil
}

// ReferencesInRange returns the References contributed by a page spanning
// [cursor, cursor+count) in the file-level flat array.
func (p *Pools) ReferencesInRange(cursor, count int) ([]Reference, error) {
	if cursor < 0 || count < 0 || cursor+count > len(p.references) {
		return nil, xerrors.Errorf("reference range [%d,%d) out of bounds (%d): %w", cursor, cursor+count, len(p.references), ErrCountMismatch)
	}
	return slices.Clone(p.references[cursor : cursor+count]), nil
}

// PageWriter assigns page-local, insertion-ordered indices to the Infos and
// References a single page's chunks intern. It is reset per page; Null,
// Page, and Index's synthetic Infos must be reserved first via InternInfo
// before any real chunk is processed.
type PageWriter struct {
	infos *Interner[Info]
	refs  *Interner[Reference]
}

// NewPageWriter creates an empty PageWriter.
func NewPageWriter() *PageWriter {
	return &PageWriter{infos: NewInterner[Info](), refs: NewInterner[Reference]()}
}

// NewVerbatimPageWriter seeds a PageWriter with a page's exact original
// Info/Reference order, for a page being re-written unchanged because it
// holds an Unknown chunk whose opaque payload may itself index into that
// table (§3). Subsequent InternInfo/InternReference calls for values
// already in infos/refs return their original index; values not present
// are appended after them.
func NewVerbatimPageWriter(infos []Info, refs []Reference) *PageWriter {
	w := NewPageWriter()
	for _, info := range infos {
		w.InternInfo(info)
	}
	for _, ref := range refs {
		w.InternReference(ref)
	}
	return w
}

// InternInfo assigns (or returns the existing) page-local index for info.
func (w *PageWriter) InternInfo(info Info) int { return w.infos.Intern(info) }

// InternReference assigns (or returns the existing) page-local index for ref.
func (w *PageWriter) InternReference(ref Reference) int { return w.refs.Intern(ref) }

// Infos returns the page's interned Infos in insertion order.
func (w *PageWriter) Infos() []Info { return w.infos.Keys() }

// References returns the page's interned References in insertion order.
func (w *PageWriter) References() []Reference { return w.refs.Keys() }

// InfoCount is the page's map_index_count.
func (w *PageWriter) InfoCount() int { return w.infos.Len() }

// ReferenceCount is the page's reference_count.
func (w *PageWriter) ReferenceCount() int { return w.refs.Len() }

// FileAssembler merges successive pages' local Info/Reference pools into
// the file-level tables, preserving the source's "references resolved
// before the map table is finalized" ordering quirk (§4.8, §9): each
// page's Infos are interned into the global Info pool immediately as the
// page is added, but the global string pools and chunk_references table
// are only built at Finish, in two passes — references first (which may
// still grow the global Info pool for targets no chunk used directly),
// then chunk_maps.
type FileAssembler struct {
	infos           *Interner[Info]
	chunkMapIndices []uint32
	flatRefs        []Reference
}

// NewFileAssembler creates an empty FileAssembler.
func NewFileAssembler() *FileAssembler {
	return &FileAssembler{infos: NewInterner[Info]()}
}

// AddPage merges one page's local Info list (in local insertion order) and
// Reference list (unresolved, in local insertion order) into the file.
func (f *FileAssembler) AddPage(pageInfos []Info, pageRefs []Reference) {
	for _, info := range pageInfos {
		f.chunkMapIndices = append(f.chunkMapIndices, uint32(f.infos.Intern(info)))
	}
	f.flatRefs = append(f.flatRefs, pageRefs...)
}

// Finish produces the final index tables.
func (f *FileAssembler) Finish() (chunkTypes, filePaths, chunkNames []string, chunkMaps [][3]uint32, chunkReferences [][2]uint32, chunkMapIndices []uint32) {
	names := NewInterner[string]()

	chunkReferences = make([][2]uint32, len(f.flatRefs))
	for i, ref := range f.flatRefs {
		nameIdx := names.Intern(ref.Name)
		mapIdx := f.infos.Intern(ref.Target)
		chunkReferences[i] = [2]uint32{uint32(nameIdx), uint32(mapIdx)}
	}

	types := NewInterner[string]()
	paths := NewInterner[string]()
	infoKeys := f.infos.Keys()
	chunkMaps = make([][3]uint32, len(infoKeys))
	for i, info := range infoKeys {
		t := types.Intern(info.ChunkType)
		p := paths.Intern(info.FilePath)
		n := names.Intern(info.ChunkName)
		chunkMaps[i] = [3]uint32{uint32(t), uint32(p), uint32(n)}
	}

	return types.Keys(), paths.Keys(), names.Keys(), chunkMaps, chunkReferences, f.chunkMapIndices
}
