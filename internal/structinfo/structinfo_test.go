package structinfo

import (
	"errors"
	"testing"

	"github.com/distr1/xfbin/internal/xfbinfile"
)

func TestInterner(t *testing.T) {
	in := NewInterner[string]()
	if got := in.Intern("a"); got != 0 {
		t.Fatalf("Intern(a) = %d, want 0", got)
	}
	if got := in.Intern("b"); got != 1 {
		t.Fatalf("Intern(b) = %d, want 1", got)
	}
	if got := in.Intern("a"); got != 0 {
		t.Fatalf("Intern(a) second time = %d, want 0 (stable)", got)
	}
	if in.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", in.Len())
	}
	idx, ok := in.IndexOf("b")
	if !ok || idx != 1 {
		t.Fatalf("IndexOf(b) = %d, %v, want 1, true", idx, ok)
	}
	if _, ok := in.IndexOf("c"); ok {
		t.Fatalf("IndexOf(c) = ok, want not found")
	}
	if got := in.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Keys() = %v, want [a b]", got)
	}
}

func TestPoolsResolution(t *testing.T) {
	idx := xfbinfile.Index{
		ChunkTypes: []string{"nuccChunkNull", "nuccChunkAnm"},
		FilePaths:  []string{""},
		ChunkNames: []string{"", "char_anm"},
		ChunkMaps: [][3]uint32{
			{0, 0, 0},
			{1, 0, 1},
		},
		ChunkReferences: [][2]uint32{{1, 1}},
		ChunkMapIndices: []uint32{0, 1},
	}
	pools, err := NewPools(idx)
	if err != nil {
		t.Fatal(err)
	}

	info, err := pools.InfoAt(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if info.ChunkType != "nuccChunkAnm" || info.ChunkName != "char_anm" {
		t.Errorf("InfoAt(0,1) = %+v, want type=nuccChunkAnm name=char_anm", info)
	}

	ref, err := pools.ReferenceAt(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Name != "char_anm" || ref.Target.ChunkType != "nuccChunkAnm" {
		t.Errorf("ReferenceAt(0,0) = %+v, want name=char_anm target.type=nuccChunkAnm", ref)
	}
}

func TestPoolsOutOfRange(t *testing.T) {
	idx := xfbinfile.Index{
		ChunkTypes:      []string{"nuccChunkNull"},
		FilePaths:       []string{""},
		ChunkNames:      []string{""},
		ChunkMaps:       [][3]uint32{{0, 0, 0}},
		ChunkMapIndices: []uint32{0},
	}
	pools, err := NewPools(idx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pools.InfoAt(0, 5); !errors.Is(err, ErrCountMismatch) {
		t.Errorf("InfoAt() out of range: err = %v, want ErrCountMismatch", err)
	}
	if _, err := pools.ReferenceAt(0, 0); !errors.Is(err, ErrCountMismatch) {
		t.Errorf("ReferenceAt() out of range: err = %v, want ErrCountMismatch", err)
	}
}

func TestInfosInRangeAndVerbatimPageWriter(t *testing.T) {
	idx := xfbinfile.Index{
		ChunkTypes: []string{"nuccChunkNull", "nuccChunkBinary"},
		FilePaths:  []string{"", "chr/x.bin"},
		ChunkNames: []string{"", "payload"},
		ChunkMaps: [][3]uint32{
			{0, 0, 0},
			{1, 1, 1},
		},
		ChunkReferences: [][2]uint32{{1, 1}},
		ChunkMapIndices:  []uint32{0, 1},
	}
	pools, err := NewPools(idx)
	if err != nil {
		t.Fatal(err)
	}

	infos, err := pools.InfosInRange(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	refs, err := pools.ReferencesInRange(0, 1)
	if err != nil {
		t.Fatal(err)
	}

	pw := NewVerbatimPageWriter(infos, refs)
	for i, info := range infos {
		if got := pw.InternInfo(info); got != i {
			t.Errorf("InternInfo(infos[%d]) = %d, want %d (verbatim order preserved)", i, got, i)
		}
	}
	for i, ref := range refs {
		if got := pw.InternReference(ref); got != i {
			t.Errorf("InternReference(refs[%d]) = %d, want %d (verbatim order preserved)", i, got, i)
		}
	}

	if _, err := pools.InfosInRange(1, 5); !errors.Is(err, ErrCountMismatch) {
		t.Errorf("InfosInRange() out of bounds: err = %v, want ErrCountMismatch", err)
	}
}

func TestFileAssemblerOrderingQuirk(t *testing.T) {
	// A reference whose target was never directly used as a chunk's own
	// Info still grows the global Info pool during Finish's reference
	// pass, and must appear in chunk_maps even though no page's AddPage
	// ever listed it directly.
	fa := NewFileAssembler()
	pageInfo := Info{ChunkType: "nuccChunkBinary", FilePath: "a", ChunkName: "used"}
	onlyRefTarget := Info{ChunkType: "nuccChunkBinary", FilePath: "a", ChunkName: "referenced_only"}
	fa.AddPage([]Info{pageInfo}, []Reference{{Name: "refname", Target: onlyRefTarget}})

	types, paths, names, chunkMaps, chunkReferences, chunkMapIndices := fa.Finish()

	if len(chunkMapIndices) != 1 {
		t.Fatalf("chunkMapIndices = %v, want length 1 (only pageInfo was added via AddPage)", chunkMapIndices)
	}
	if len(chunkReferences) != 1 {
		t.Fatalf("chunkReferences = %v, want length 1", chunkReferences)
	}
	if len(chunkMaps) != 2 {
		t.Fatalf("chunkMaps length = %d, want 2 (pageInfo plus the reference-only target pulled in during Finish)", len(chunkMaps))
	}
	if len(types) != 1 || types[0] != "nuccChunkBinary" {
		t.Errorf("types = %v, want [nuccChunkBinary]", types)
	}
	if len(paths) != 1 || paths[0] != "a" {
		t.Errorf("paths = %v, want [a]", paths)
	}
	wantNames := map[string]bool{"used": true, "referenced_only": true, "refname": true}
	for _, n := range names {
		if !wantNames[n] {
			t.Errorf("unexpected name %q in chunk_names", n)
		}
	}
}

func TestPageWriterReset(t *testing.T) {
	w := NewPageWriter()
	idx := w.InternInfo(Info{ChunkType: "nuccChunkNull"})
	if idx != 0 {
		t.Fatalf("first InternInfo() = %d, want 0", idx)
	}
	if w.InfoCount() != 1 {
		t.Fatalf("InfoCount() = %d, want 1", w.InfoCount())
	}
	if w.ReferenceCount() != 0 {
		t.Fatalf("ReferenceCount() = %d, want 0", w.ReferenceCount())
	}
}
