// Package anmgraph rebuilds the per-clump entry trees from an Anm chunk's
// flat entries and coord parent/child edge list, and flattens trees back
// to that same flat shape on write.
package anmgraph

import (
	"sort"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/distr1/xfbin/internal/anmcodec"
	"github.com/distr1/xfbin/internal/curvecodec"
	"github.com/distr1/xfbin/internal/structinfo"
)

// ErrMalformedGraph is returned for a duplicate coord, a dangling
// parent/child edge, a cycle, or a coord index outside [0, clump_count)
// and not the -1 "other" sentinel.
var ErrMalformedGraph = xerrors.New("anmgraph: malformed graph")

// Entry is one node of a rebuilt entry tree.
type Entry struct {
	Coord anmcodec.ClumpCoordIndex

	InfoIsReference bool
	Ref             structinfo.Reference // set when InfoIsReference
	Info            structinfo.Info      // set otherwise (always true for "other" entries)

	Format   curvecodec.EntryFormat
	Curves   []anmcodec.Curve
	Children []*Entry

	originalOrder int
}

// Clump is a clump after graph reconstruction.
type Clump struct {
	Ref              structinfo.Reference
	BoneMaterialRefs []structinfo.Reference
	ModelRefs        []structinfo.Reference
	RootEntries      []*Entry
}

// resolveCurveChannels derives each curve's channel (via entry_format's
// fixed channel list, indexed by CurveHeader.CurveIndex) and interpolation
// type (via its format), and validates channel/keyframes compatibility —
// mirroring the original's From<ChunkEntry> for Entry, which builds each
// Curve through CurveChunkConverter(channels[header.curve_index], header,
// chunk) and lets Curve::new's set_keyframes call reject a mismatch.
func resolveCurveChannels(format curvecodec.EntryFormat, curves []anmcodec.Curve) ([]anmcodec.Curve, error) {
	if len(curves) == 0 {
		return curves, nil
	}
	channels, err := curvecodec.ChannelsFor(format)
	if err != nil {
		return nil, err
	}
	out := make([]anmcodec.Curve, len(curves))
	for i, c := range curves {
		if int(c.Header.CurveIndex) >= len(channels) {
			return nil, xerrors.Errorf("curve_index %d out of range for entry_format %v (channel list has %d entries): %w", c.Header.CurveIndex, format, len(channels), ErrMalformedGraph)
		}
		channel := channels[c.Header.CurveIndex]
		interp, err := c.Header.Format.Interpolation()
		if err != nil {
			return nil, err
		}
		if err := curvecodec.Validate(channel, c.Keyframes); err != nil {
			return nil, err
		}
		c.Channel = channel
		c.Interp = interp
		out[i] = c
	}
	return out, nil
}

// Build reconstructs every clump's entry tree plus the trailing synthetic
// "other" clump's entries, from raw's flat entries and coord_parents edges.
// pools resolves the index-valued fields in raw against the file's
// StructInfo/StructReference pools; clump_ref_index, bm_indices, and
// model_indices are relative to the reference table's position at the
// start of the Anm chunk's page (pageRefCursor), and
// other_entry_chunk_indices is relative to the Info table's position at
// the start of the same page (pageInfoCursor) — see §4.5, §4.7.
func Build(raw *anmcodec.Raw, pools *structinfo.Pools, pageInfoCursor, pageRefCursor int) (clumps []*Clump, other []*Entry, err error) {
	entries := make(map[anmcodec.ClumpCoordIndex]*Entry, len(raw.Entries))
	for i, e := range raw.Entries {
		if _, dup := entries[e.Coord]; dup {
			return nil, nil, xerrors.Errorf("duplicate entry coord %+v: %w", e.Coord, ErrMalformedGraph)
		}
		curves, err := resolveCurveChannels(e.Format, e.Curves)
		if err != nil {
			return nil, nil, xerrors.Errorf("entry %+v: %w", e.Coord, err)
		}
		entries[e.Coord] = &Entry{
			Coord:         e.Coord,
			Format:        e.Format,
			Curves:        curves,
			originalOrder: i,
		}
	}
	nextOrder := len(raw.Entries)

	parentsByClump := make([]map[anmcodec.ClumpCoordIndex][]anmcodec.ClumpCoordIndex, len(raw.Clumps))
	for i := range parentsByClump {
		parentsByClump[i] = make(map[anmcodec.ClumpCoordIndex][]anmcodec.ClumpCoordIndex)
	}
	for _, pc := range raw.CoordParents {
		ci := pc.Parent.Clump
		if ci < 0 || int(ci) >= len(raw.Clumps) {
			return nil, nil, xerrors.Errorf("coord_parents parent clump %d out of range: %w", ci, ErrMalformedGraph)
		}
		parentsByClump[ci][pc.Parent] = append(parentsByClump[ci][pc.Parent], pc.Child)
	}

	clumps = make([]*Clump, len(raw.Clumps))
	for ci, rc := range raw.Clumps {
		clumpRef, err := pools.ReferenceAt(pageRefCursor, rc.ClumpRefIndex)
		if err != nil {
			return nil, nil, xerrors.Errorf("clump[%d].clump_ref_index: %w", ci, err)
		}
		bmRefs := make([]structinfo.Reference, len(rc.BMIndices))
		for j, idx := range rc.BMIndices {
			ref, err := pools.ReferenceAt(pageRefCursor, idx)
			if err != nil {
				return nil, nil, xerrors.Errorf("clump[%d].bm_indices[%d]: %w", ci, j, err)
			}
			bmRefs[j] = ref
		}
		modelRefs := make([]structinfo.Reference, len(rc.ModelIndices))
		for j, idx := range rc.ModelIndices {
			ref, err := pools.ReferenceAt(pageRefCursor, idx)
			if err != nil {
				return nil, nil, xerrors.Errorf("clump[%d].model_indices[%d]: %w", ci, j, err)
			}
			modelRefs[j] = ref
		}

		processed := make(map[anmcodec.ClumpCoordIndex]bool)
		var attach func(coord anmcodec.ClumpCoordIndex, ref structinfo.Reference) error
		attach = func(coord anmcodec.ClumpCoordIndex, ref structinfo.Reference) error {
			if processed[coord] {
				return nil
			}
			var kids []*Entry
			for _, childCoord := range parentsByClump[ci][coord] {
				if int(childCoord.Entry) >= len(bmRefs) {
					return xerrors.Errorf("coord_parents child %+v slot out of bm range: %w", childCoord, ErrMalformedGraph)
				}
				if err := attach(childCoord, bmRefs[childCoord.Entry]); err != nil {
					return err
				}
				kid, ok := entries[childCoord]
				if !ok {
					return xerrors.Errorf("coord_parents child %+v already consumed or missing: %w", childCoord, ErrMalformedGraph)
				}
				delete(entries, childCoord)
				kids = append(kids, kid)
			}
			e, ok := entries[coord]
			if !ok {
				e = &Entry{Coord: coord, Format: curvecodec.EntryFormatCoord, originalOrder: nextOrder}
				nextOrder++
				entries[coord] = e
			}
			e.InfoIsReference = true
			e.Ref = ref
			e.Children = kids
			processed[coord] = true
			return nil
		}

		for slot, ref := range bmRefs {
			coord := anmcodec.ClumpCoordIndex{Clump: int16(ci), Entry: uint16(slot)}
			if err := attach(coord, ref); err != nil {
				return nil, nil, err
			}
		}

		var leftoverCoords []anmcodec.ClumpCoordIndex
		for coord := range entries {
			if coord.Clump == int16(ci) {
				leftoverCoords = append(leftoverCoords, coord)
			}
		}
		sort.Slice(leftoverCoords, func(a, b int) bool { return leftoverCoords[a].Entry < leftoverCoords[b].Entry })

		var roots []*Entry
		for _, coord := range leftoverCoords {
			roots = append(roots, entries[coord])
			delete(entries, coord)
		}

		clumps[ci] = &Clump{Ref: clumpRef, BoneMaterialRefs: bmRefs, ModelRefs: modelRefs, RootEntries: roots}
	}

	if len(raw.OtherEntryChunkIndices) > 0 {
		for i, infoIdx := range raw.OtherEntryChunkIndices {
			coord := anmcodec.ClumpCoordIndex{Clump: anmcodec.OtherClump, Entry: uint16(i)}
			e, ok := entries[coord]
			if !ok {
				return nil, nil, xerrors.Errorf("no entry for other-entry coord %+v: %w", coord, ErrMalformedGraph)
			}
			info, err := pools.InfoAt(pageInfoCursor, infoIdx)
			if err != nil {
				return nil, nil, xerrors.Errorf("other_entry_chunk_indices[%d]: %w", i, err)
			}
			e.InfoIsReference = false
			e.Info = info
			delete(entries, coord)
			other = append(other, e)
		}
	}

	if len(entries) > 0 {
		return nil, nil, xerrors.Errorf("%d entries unclaimed by any clump or other list: %w", len(entries), ErrMalformedGraph)
	}

	return clumps, other, nil
}

// Flatten walks every clump's tree plus the "other" entries back into the
// flat wire shape: an entries list and a coord_parents edge list. Both are
// ordered by each node's originally-read position so that re-encoding a
// Document that was produced by Build reproduces the original file's
// ordering bit-for-bit; entries synthesized during Build (declared bm
// slots with no corresponding flat entry) sort after all originally-present
// entries.
func Flatten(clumps []*Clump, other []*Entry) (entries []anmcodec.Entry, coordParents []anmcodec.ParentChild) {
	type ordered struct {
		order int
		entry anmcodec.Entry
	}
	var flatEntries []ordered
	type edge struct {
		order int
		pc    anmcodec.ParentChild
	}
	var edges []edge

	var walk func(n *Entry)
	walk = func(n *Entry) {
		flatEntries = append(flatEntries, ordered{order: n.originalOrder, entry: anmcodec.Entry{
			Coord:  n.Coord,
			Format: n.Format,
			Curves: n.Curves,
		}})
		for _, c := range n.Children {
			edges = append(edges, edge{order: c.originalOrder, pc: anmcodec.ParentChild{Parent: n.Coord, Child: c.Coord}})
			walk(c)
		}
	}

	for _, c := range clumps {
		for _, root := range c.RootEntries {
			walk(root)
		}
	}
	for _, o := range other {
		walk(o)
	}

	sort.Slice(flatEntries, func(i, j int) bool { return flatEntries[i].order < flatEntries[j].order })
	sort.Slice(edges, func(i, j int) bool { return edges[i].order < edges[j].order })

	entries = make([]anmcodec.Entry, len(flatEntries))
	for i, o := range flatEntries {
		entries[i] = o.entry
	}
	coordParents = make([]anmcodec.ParentChild, len(edges))
	for i, e := range edges {
		coordParents[i] = e.pc
	}
	return entries, coordParents
}

// OtherEntryInfos returns the "other" clump's StructInfos in entry-slot
// order, for writing back other_entry_chunk_indices.
func OtherEntryInfos(other []*Entry) []structinfo.Info {
	infos := make([]structinfo.Info, len(other))
	sorted := slices.Clone(other)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Coord.Entry < sorted[j].Coord.Entry })
	for i, e := range sorted {
		infos[i] = e.Info
	}
	return infos
}

// EntrySeq assigns deterministic originalOrder values to Entries built by a
// caller constructing a graph from scratch (as opposed to one reconstructed
// by Build from a decoded file): each call to NewEntry gets the next
// sequence number, so Flatten produces the same entries/coord_parents
// ordering a freshly-authored Document would have if it had instead been
// read from a file written in depth-first traversal order.
type EntrySeq struct{ next int }

// NewEntry constructs an Entry with the next sequence number.
func (s *EntrySeq) NewEntry(coord anmcodec.ClumpCoordIndex, format curvecodec.EntryFormat, curves []anmcodec.Curve) *Entry {
	e := &Entry{Coord: coord, Format: format, Curves: curves, originalOrder: s.next}
	s.next++
	return e
}

// ResolveRefs interns every clump's reference fields and the "other" list's
// Infos into pw, producing the wire-level index fields for an
// anmcodec.Raw. pw must be the same PageWriter the chunk's own StructInfo
// is (or will be) interned into, since these indices are page-relative.
func ResolveRefs(clumps []*Clump, other []*Entry, pw *structinfo.PageWriter) (rawClumps []anmcodec.Clump, otherEntryChunkIndices []uint32) {
	rawClumps = make([]anmcodec.Clump, len(clumps))
	for i, c := range clumps {
		clumpRefIdx := uint32(pw.InternReference(c.Ref))
		bm := make([]uint32, len(c.BoneMaterialRefs))
		for j, ref := range c.BoneMaterialRefs {
			bm[j] = uint32(pw.InternReference(ref))
		}
		models := make([]uint32, len(c.ModelRefs))
		for j, ref := range c.ModelRefs {
			models[j] = uint32(pw.InternReference(ref))
		}
		rawClumps[i] = anmcodec.Clump{
			ClumpRefIndex: clumpRefIdx,
			BMIndices:     bm,
			ModelIndices:  models,
		}
	}

	sorted := slices.Clone(other)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Coord.Entry < sorted[j].Coord.Entry })
	otherEntryChunkIndices = make([]uint32, len(sorted))
	for i, e := range sorted {
		otherEntryChunkIndices[i] = uint32(pw.InternInfo(e.Info))
	}
	return rawClumps, otherEntryChunkIndices
}
