package anmcodec

import (
	"errors"
	"testing"

	"github.com/distr1/xfbin/internal/curvecodec"
)

func sampleRaw() *Raw {
	return &Raw{
		FrameCount: 30,
		FrameSize:  1,
		Unk:        0,
		Clumps: []Clump{
			{ClumpRefIndex: 0, BMIndices: []uint32{1, 2}, ModelIndices: []uint32{3}},
		},
		OtherEntryChunkIndices: []uint32{5},
		CoordParents: []ParentChild{
			{Parent: ClumpCoordIndex{Clump: OtherClump, Entry: 0}, Child: ClumpCoordIndex{Clump: 0, Entry: 0}},
		},
		Entries: []Entry{
			{
				Coord:  ClumpCoordIndex{Clump: 0, Entry: 0},
				Format: curvecodec.EntryFormatMaterial,
				Curves: []Curve{
					{
						Header:    CurveHeader{CurveIndex: 0, Format: curvecodec.FormatFloatFixed, FrameCount: 3, UnkFlags: 0},
						Keyframes: curvecodec.Float{0.5, 1.5, 2.5},
					},
				},
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := sampleRaw()
	payload, err := Encode(raw)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(payload)
	if err != nil {
		t.Fatal(err)
	}

	if got.FrameCount != raw.FrameCount || got.FrameSize != raw.FrameSize || got.Unk != raw.Unk {
		t.Errorf("scalar fields = %+v, want frame_count/frame_size/unk of %+v", got, raw)
	}
	if len(got.Clumps) != 1 || got.Clumps[0].ClumpRefIndex != 0 || len(got.Clumps[0].BMIndices) != 2 || len(got.Clumps[0].ModelIndices) != 1 {
		t.Fatalf("Clumps = %+v, want one clump with 2 bm indices and 1 model index", got.Clumps)
	}
	if len(got.OtherEntryChunkIndices) != 1 || got.OtherEntryChunkIndices[0] != 5 {
		t.Errorf("OtherEntryChunkIndices = %v, want [5]", got.OtherEntryChunkIndices)
	}
	if len(got.CoordParents) != 1 || got.CoordParents[0].Parent.Clump != OtherClump {
		t.Errorf("CoordParents = %+v, want one edge with OtherClump parent", got.CoordParents)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("Entries = %+v, want 1 entry", got.Entries)
	}
	entry := got.Entries[0]
	if entry.Format != curvecodec.EntryFormatMaterial {
		t.Errorf("entry.Format = %v, want EntryFormatMaterial", entry.Format)
	}
	if len(entry.Curves) != 1 {
		t.Fatalf("entry.Curves = %+v, want 1 curve", entry.Curves)
	}
	floatKF, ok := entry.Curves[0].Keyframes.(curvecodec.Float)
	if !ok || len(floatKF) != 3 || floatKF[0] != 0.5 || floatKF[2] != 2.5 {
		t.Errorf("entry.Curves[0].Keyframes = %#v, want Float{0.5, 1.5, 2.5}", entry.Curves[0].Keyframes)
	}
}

func TestDecodeRejectsUnkEntryChunkIndices(t *testing.T) {
	raw := sampleRaw()
	payload, err := Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	// Encode always writes an empty unk_entry_count; splice in a non-zero
	// count at that field's fixed offset (after frame_count, frame_size,
	// entry_count, unk, clump_count, other_entry_count) to exercise the
	// reject path without hand-building a whole payload.
	const unkEntryCountOffset = 4 + 4 + 2 + 2 + 2 + 2
	payload[unkEntryCountOffset] = 0
	payload[unkEntryCountOffset+1] = 1

	if _, err := Decode(payload); !errors.Is(err, ErrUnsupportedFeature) {
		t.Fatalf("Decode() with non-empty unk_entry_chunk_indices: err = %v, want ErrUnsupportedFeature", err)
	}
}

func TestEntriesEncodeIndependentlyInOrder(t *testing.T) {
	raw := &Raw{
		FrameCount: 1,
		FrameSize:  1,
		Entries: []Entry{
			{Coord: ClumpCoordIndex{Clump: OtherClump, Entry: 0}, Format: curvecodec.EntryFormatMaterial, Curves: []Curve{
				{Header: CurveHeader{Format: curvecodec.FormatFloatFixed, FrameCount: 1}, Keyframes: curvecodec.Float{1}},
			}},
			{Coord: ClumpCoordIndex{Clump: OtherClump, Entry: 1}, Format: curvecodec.EntryFormatMaterial, Curves: []Curve{
				{Header: CurveHeader{Format: curvecodec.FormatFloatFixed, FrameCount: 1}, Keyframes: curvecodec.Float{2}},
			}},
		},
	}
	payload, err := Encode(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got.Entries))
	}
	v0 := got.Entries[0].Curves[0].Keyframes.(curvecodec.Float)[0]
	v1 := got.Entries[1].Curves[0].Keyframes.(curvecodec.Float)[0]
	if v0 != 1 || v1 != 2 {
		t.Errorf("concurrent curve encoding reordered output: entries[0]=%v entries[1]=%v, want 1, 2", v0, v1)
	}
}
