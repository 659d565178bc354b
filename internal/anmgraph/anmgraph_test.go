package anmgraph

import (
	"errors"
	"testing"

	"github.com/distr1/xfbin/internal/anmcodec"
	"github.com/distr1/xfbin/internal/curvecodec"
	"github.com/distr1/xfbin/internal/structinfo"
	"github.com/distr1/xfbin/internal/xfbinfile"
)

func testPools(t *testing.T) *structinfo.Pools {
	t.Helper()
	idx := xfbinfile.Index{
		ChunkTypes: []string{"nuccChunkNull", "nuccChunkBinary"},
		FilePaths:  []string{""},
		ChunkNames: []string{"", "otherinfo", "clumpref", "bm1", "bm2"},
		ChunkMaps: [][3]uint32{
			{1, 0, 1},
		},
		ChunkMapIndices: []uint32{0},
		ChunkReferences: [][2]uint32{
			{2, 0},
			{3, 0},
			{4, 0},
		},
	}
	pools, err := structinfo.NewPools(idx)
	if err != nil {
		t.Fatal(err)
	}
	return pools
}

func sampleGraphRaw() *anmcodec.Raw {
	return &anmcodec.Raw{
		Clumps: []anmcodec.Clump{
			{ClumpRefIndex: 0, BMIndices: []uint32{1, 2}},
		},
		OtherEntryChunkIndices: []uint32{0},
		CoordParents: []anmcodec.ParentChild{
			{Parent: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}, Child: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}},
		},
		Entries: []anmcodec.Entry{
			{Coord: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}, Format: curvecodec.EntryFormatCoord},
			{Coord: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}, Format: curvecodec.EntryFormatCoord},
			{Coord: anmcodec.ClumpCoordIndex{Clump: anmcodec.OtherClump, Entry: 0}, Format: curvecodec.EntryFormatMaterial},
		},
	}
}

func TestBuildReconstructsTree(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()

	clumps, other, err := Build(raw, pools, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(clumps) != 1 {
		t.Fatalf("len(clumps) = %d, want 1", len(clumps))
	}
	c := clumps[0]
	if c.Ref.Name != "clumpref" {
		t.Errorf("clump.Ref.Name = %q, want clumpref", c.Ref.Name)
	}
	if len(c.BoneMaterialRefs) != 2 || c.BoneMaterialRefs[0].Name != "bm1" || c.BoneMaterialRefs[1].Name != "bm2" {
		t.Fatalf("BoneMaterialRefs = %+v, want [bm1 bm2]", c.BoneMaterialRefs)
	}
	if len(c.RootEntries) != 1 {
		t.Fatalf("RootEntries = %+v, want 1 root", c.RootEntries)
	}
	root := c.RootEntries[0]
	if root.Coord != (anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}) {
		t.Errorf("root.Coord = %+v, want {0 0}", root.Coord)
	}
	if len(root.Children) != 1 || root.Children[0].Coord != (anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}) {
		t.Fatalf("root.Children = %+v, want one child at {0 1}", root.Children)
	}

	if len(other) != 1 {
		t.Fatalf("len(other) = %d, want 1", len(other))
	}
	if other[0].InfoIsReference {
		t.Error("other[0].InfoIsReference = true, want false (other entries carry Info, not Ref)")
	}
	if other[0].Info.ChunkName != "otherinfo" {
		t.Errorf("other[0].Info.ChunkName = %q, want otherinfo", other[0].Info.ChunkName)
	}
}

func TestBuildResolvesCurveChannelAndInterp(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()
	raw.Entries[0].Curves = []anmcodec.Curve{
		{
			Header:    anmcodec.CurveHeader{CurveIndex: 0, Format: curvecodec.FormatVector3Linear, FrameCount: 0},
			Keyframes: curvecodec.Vector3Linear{},
		},
	}

	clumps, _, err := Build(raw, pools, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	curve := clumps[0].RootEntries[0].Curves[0]
	if curve.Channel != curvecodec.ChannelLocation {
		t.Errorf("Channel = %v, want ChannelLocation (curve_index 0 in EntryFormatCoord)", curve.Channel)
	}
	if curve.Interp != curvecodec.InterpLinear {
		t.Errorf("Interp = %v, want InterpLinear (FormatVector3Linear)", curve.Interp)
	}
}

func TestBuildRejectsCurveIndexOutOfRange(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()
	// EntryFormatCoord's channel list has 4 entries (indices 0..3); 4 is out of range.
	raw.Entries[0].Curves = []anmcodec.Curve{
		{Header: anmcodec.CurveHeader{CurveIndex: 4, Format: curvecodec.FormatVector3Linear}, Keyframes: curvecodec.Vector3Linear{}},
	}

	if _, _, err := Build(raw, pools, 0, 0); !errors.Is(err, ErrMalformedGraph) {
		t.Fatalf("Build() with out-of-range curve_index: err = %v, want ErrMalformedGraph", err)
	}
}

func TestBuildRejectsIncompatibleChannelKeyframes(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()
	// curve_index 3 in EntryFormatCoord is ChannelOpacity, which only accepts
	// Float/FloatLinear/Opacity keyframes — Vector3Linear is incompatible.
	raw.Entries[0].Curves = []anmcodec.Curve{
		{Header: anmcodec.CurveHeader{CurveIndex: 3, Format: curvecodec.FormatVector3Linear}, Keyframes: curvecodec.Vector3Linear{}},
	}

	if _, _, err := Build(raw, pools, 0, 0); !errors.Is(err, curvecodec.ErrInvalidKeyframes) {
		t.Fatalf("Build() with incompatible channel/keyframes: err = %v, want ErrInvalidKeyframes", err)
	}
}

func TestBuildRejectsUnclaimedEntry(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()
	// Add an entry under clump index 1: only clump 0 is declared, and the
	// entry is not in the other-entry list, so nothing claims it.
	raw.Entries = append(raw.Entries, anmcodec.Entry{Coord: anmcodec.ClumpCoordIndex{Clump: 1, Entry: 0}})

	if _, _, err := Build(raw, pools, 0, 0); !errors.Is(err, ErrMalformedGraph) {
		t.Fatalf("Build() with unclaimed entry: err = %v, want ErrMalformedGraph", err)
	}
}

func TestBuildRejectsDuplicateCoord(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()
	raw.Entries = append(raw.Entries, anmcodec.Entry{Coord: raw.Entries[0].Coord})

	if _, _, err := Build(raw, pools, 0, 0); !errors.Is(err, ErrMalformedGraph) {
		t.Fatalf("Build() with duplicate coord: err = %v, want ErrMalformedGraph", err)
	}
}

// TestBuildThreeGenerationChain mirrors a three-entry parent/child chain
// inside one clump, (0,0) -> (0,1) -> (0,2): clump 0's roots must be [entry(0,0)], whose
// child is entry(0,1), whose own child is entry(0,2).
func TestBuildThreeGenerationChain(t *testing.T) {
	pools := testPools(t)
	raw := &anmcodec.Raw{
		Clumps: []anmcodec.Clump{
			// bm_count=3 (§8 scenario 5), giving valid bm slots 0..2 for
			// the three-deep parent/child chain below.
			{ClumpRefIndex: 0, BMIndices: []uint32{0, 1, 2}},
		},
		CoordParents: []anmcodec.ParentChild{
			{Parent: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}, Child: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}},
			{Parent: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}, Child: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 2}},
		},
		Entries: []anmcodec.Entry{
			{Coord: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}, Format: curvecodec.EntryFormatCoord},
			{Coord: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}, Format: curvecodec.EntryFormatCoord},
			{Coord: anmcodec.ClumpCoordIndex{Clump: 0, Entry: 2}, Format: curvecodec.EntryFormatCoord},
		},
	}

	clumps, _, err := Build(raw, pools, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(clumps) != 1 || len(clumps[0].RootEntries) != 1 {
		t.Fatalf("clumps = %+v, want one clump with one root", clumps)
	}
	root := clumps[0].RootEntries[0]
	if root.Coord != (anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}) {
		t.Fatalf("root.Coord = %+v, want {0 0}", root.Coord)
	}
	if len(root.Children) != 1 || root.Children[0].Coord != (anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}) {
		t.Fatalf("root.Children = %+v, want one child at {0 1}", root.Children)
	}
	child := root.Children[0]
	if len(child.Children) != 1 || child.Children[0].Coord != (anmcodec.ClumpCoordIndex{Clump: 0, Entry: 2}) {
		t.Fatalf("child.Children = %+v, want one grandchild at {0 2}", child.Children)
	}
}

func TestFlattenReproducesOriginalOrder(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()

	clumps, other, err := Build(raw, pools, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	entries, coordParents := Flatten(clumps, other)

	if len(entries) != len(raw.Entries) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(raw.Entries))
	}
	for i, e := range entries {
		if e.Coord != raw.Entries[i].Coord {
			t.Errorf("entries[%d].Coord = %+v, want %+v (original order not preserved)", i, e.Coord, raw.Entries[i].Coord)
		}
	}
	if len(coordParents) != 1 || coordParents[0] != raw.CoordParents[0] {
		t.Errorf("coordParents = %+v, want %+v", coordParents, raw.CoordParents)
	}
}

func TestEntrySeqAssignsIncreasingOrder(t *testing.T) {
	seq := &EntrySeq{}
	a := seq.NewEntry(anmcodec.ClumpCoordIndex{Clump: 0, Entry: 0}, curvecodec.EntryFormatCoord, nil)
	b := seq.NewEntry(anmcodec.ClumpCoordIndex{Clump: 0, Entry: 1}, curvecodec.EntryFormatCoord, nil)
	a.Children = []*Entry{b}

	entries, _ := Flatten([]*Clump{{RootEntries: []*Entry{a}}}, nil)
	if len(entries) != 2 || entries[0].Coord.Entry != 0 || entries[1].Coord.Entry != 1 {
		t.Fatalf("Flatten() = %+v, want entries in EntrySeq allocation order", entries)
	}
}

func TestResolveRefsInternsInOrder(t *testing.T) {
	pools := testPools(t)
	raw := sampleGraphRaw()
	clumps, other, err := Build(raw, pools, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	pw := structinfo.NewPageWriter()
	rawClumps, otherIdx := ResolveRefs(clumps, other, pw)

	if len(rawClumps) != 1 {
		t.Fatalf("len(rawClumps) = %d, want 1", len(rawClumps))
	}
	if rawClumps[0].ClumpRefIndex != 0 {
		t.Errorf("ClumpRefIndex = %d, want 0 (first interned reference)", rawClumps[0].ClumpRefIndex)
	}
	if len(rawClumps[0].BMIndices) != 2 || rawClumps[0].BMIndices[0] != 1 || rawClumps[0].BMIndices[1] != 2 {
		t.Errorf("BMIndices = %v, want [1 2]", rawClumps[0].BMIndices)
	}
	if len(otherIdx) != 1 || otherIdx[0] != 0 {
		t.Errorf("otherEntryChunkIndices = %v, want [0] (first interned info)", otherIdx)
	}
}
