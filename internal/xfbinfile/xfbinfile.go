// Package xfbinfile implements the XFBIN container's outer wire layout: the
// 16-byte file header, the XfbinIndex table block, and ChunkFrame framing.
// It knows nothing about chunk payload semantics; callers dispatch frames
// and interpret payload bytes themselves.
package xfbinfile

import (
	"github.com/distr1/xfbin/internal/bitcodec"
	"golang.org/x/xerrors"
)

// Magic is the 4-byte file signature every container starts with.
var Magic = [4]byte{'N', 'U', 'C', 'C'}

// ErrBadMagic is returned when the first 4 bytes are not Magic.
var ErrBadMagic = xerrors.New("xfbinfile: bad magic")

// ErrUnsupportedFeature is returned for a feature the core deliberately
// does not implement, such as an encrypted container.
var ErrUnsupportedFeature = xerrors.New("xfbinfile: unsupported feature")

// ErrCountMismatch is returned when an index count disagrees with the
// payload actually present.
var ErrCountMismatch = xerrors.New("xfbinfile: count mismatch")

// Header is the 16-byte file preamble.
type Header struct {
	Version   uint16
	Encrypted bool
}

// ReadHeader consumes the magic and the 16-byte header.
func ReadHeader(r *bitcodec.Reader) (Header, error) {
	magic, err := r.Bytes(4)
	if err != nil {
		return Header{}, xerrors.Errorf("reading magic: %w", err)
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] || magic[3] != Magic[3] {
		return Header{}, xerrors.Errorf("magic %q: %w", magic, ErrBadMagic)
	}
	versionU32, err := r.U32()
	if err != nil {
		return Header{}, xerrors.Errorf("reading version: %w", err)
	}
	if err := r.Skip(1); err != nil {
		return Header{}, xerrors.Errorf("reading pad byte: %w", err)
	}
	encByte, err := r.U8()
	if err != nil {
		return Header{}, xerrors.Errorf("reading encrypted flag: %w", err)
	}
	if err := r.Skip(6); err != nil {
		return Header{}, xerrors.Errorf("reading trailing pad: %w", err)
	}
	h := Header{Version: uint16(versionU32), Encrypted: encByte != 0}
	if h.Encrypted {
		return Header{}, xerrors.Errorf("encrypted container: %w", ErrUnsupportedFeature)
	}
	return h, nil
}

// WriteHeader emits the magic and 16-byte header.
func WriteHeader(w *bitcodec.Writer, h Header) error {
	if err := w.Bytes(Magic[:]); err != nil {
		return err
	}
	if err := w.U32(uint32(h.Version)); err != nil {
		return err
	}
	if err := w.U8(0); err != nil {
		return err
	}
	enc := uint8(0)
	if h.Encrypted {
		enc = 1
	}
	if err := w.U8(enc); err != nil {
		return err
	}
	return w.Bytes(make([]byte, 6))
}

// Index is the decoded XfbinIndex table block.
type Index struct {
	MinPageSize uint32
	Version     uint16
	Unknown     uint16

	ChunkTypes []string
	FilePaths  []string
	ChunkNames []string

	// ChunkMaps[i] = (type_idx, path_idx, name_idx).
	ChunkMaps [][3]uint32
	// ChunkReferences[i] = (name_idx, map_idx).
	ChunkReferences [][2]uint32
	ChunkMapIndices []uint32
}

func readStringPool(r *bitcodec.Reader, count, byteLen uint32) ([]string, error) {
	raw, err := r.Bytes(int(byteLen))
	if err != nil {
		return nil, xerrors.Errorf("reading string pool (%d bytes): %w", byteLen, err)
	}
	pr := bitcodec.NewReader(raw)
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := pr.CString()
		if err != nil {
			return nil, xerrors.Errorf("reading string %d/%d: %w", i, count, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadIndex parses the XfbinIndex block starting at r's current position.
func ReadIndex(r *bitcodec.Reader) (Index, error) {
	if _, err := r.U32(); err != nil { // chunk_table_size, recomputed on write
		return Index{}, xerrors.Errorf("reading chunk_table_size: %w", err)
	}
	minPageSize, err := r.U32()
	if err != nil {
		return Index{}, xerrors.Errorf("reading min_page_size: %w", err)
	}
	version, err := r.U16()
	if err != nil {
		return Index{}, xerrors.Errorf("reading index version: %w", err)
	}
	unknown, err := r.U16()
	if err != nil {
		return Index{}, xerrors.Errorf("reading index unknown field: %w", err)
	}

	typeCount, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	typeBytesLen, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	pathCount, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	pathBytesLen, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	nameCount, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	nameBytesLen, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	mapCount, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	mapBytesLen, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	if mapBytesLen != mapCount*12 {
		return Index{}, xerrors.Errorf("map_bytes_len %d != map_count %d * 12: %w", mapBytesLen, mapCount, ErrCountMismatch)
	}
	mapIndexCount, err := r.U32()
	if err != nil {
		return Index{}, err
	}
	referenceCount, err := r.U32()
	if err != nil {
		return Index{}, err
	}

	chunkTypes, err := readStringPool(r, typeCount, typeBytesLen)
	if err != nil {
		return Index{}, xerrors.Errorf("reading chunk_types: %w", err)
	}
	filePaths, err := readStringPool(r, pathCount, pathBytesLen)
	if err != nil {
		return Index{}, xerrors.Errorf("reading file_paths: %w", err)
	}
	chunkNames, err := readStringPool(r, nameCount, nameBytesLen)
	if err != nil {
		return Index{}, xerrors.Errorf("reading chunk_names: %w", err)
	}
	if err := r.Align(4); err != nil {
		return Index{}, xerrors.Errorf("aligning after string pools: %w", err)
	}

	chunkMaps := make([][3]uint32, mapCount)
	for i := range chunkMaps {
		t, err := r.U32()
		if err != nil {
			return Index{}, xerrors.Errorf("reading chunk_map[%d].type_idx: %w", i, err)
		}
		p, err := r.U32()
		if err != nil {
			return Index{}, xerrors.Errorf("reading chunk_map[%d].path_idx: %w", i, err)
		}
		n, err := r.U32()
		if err != nil {
			return Index{}, xerrors.Errorf("reading chunk_map[%d].name_idx: %w", i, err)
		}
		chunkMaps[i] = [3]uint32{t, p, n}
	}

	chunkReferences := make([][2]uint32, referenceCount)
	for i := range chunkReferences {
		n, err := r.U32()
		if err != nil {
			return Index{}, xerrors.Errorf("reading chunk_reference[%d].name_idx: %w", i, err)
		}
		m, err := r.U32()
		if err != nil {
			return Index{}, xerrors.Errorf("reading chunk_reference[%d].map_idx: %w", i, err)
		}
		chunkReferences[i] = [2]uint32{n, m}
	}

	chunkMapIndices := make([]uint32, mapIndexCount)
	for i := range chunkMapIndices {
		v, err := r.U32()
		if err != nil {
			return Index{}, xerrors.Errorf("reading chunk_map_indices[%d]: %w", i, err)
		}
		chunkMapIndices[i] = v
	}

	return Index{
		MinPageSize:     minPageSize,
		Version:         version,
		Unknown:         unknown,
		ChunkTypes:      chunkTypes,
		FilePaths:       filePaths,
		ChunkNames:      chunkNames,
		ChunkMaps:       chunkMaps,
		ChunkReferences: chunkReferences,
		ChunkMapIndices: chunkMapIndices,
	}, nil
}

func encodeStringPool(strs []string) ([]byte, error) {
	w := bitcodec.NewWriter()
	for _, s := range strs {
		if err := w.CString(s); err != nil {
			return nil, err
		}
	}
	return w.Finish()
}

// WriteIndex emits idx, computing chunk_table_size per the preserved quirk:
// the reference table's byte size is not added to the total, matching the
// source's calculate_table_size().
func WriteIndex(w *bitcodec.Writer, idx Index) error {
	tableSizePos := w.Pos()
	if err := w.U32(0); err != nil { // placeholder, patched below
		return err
	}
	if err := w.U32(idx.MinPageSize); err != nil {
		return err
	}
	if err := w.U16(idx.Version); err != nil {
		return err
	}
	if err := w.U16(idx.Unknown); err != nil {
		return err
	}

	typeBytes, err := encodeStringPool(idx.ChunkTypes)
	if err != nil {
		return xerrors.Errorf("encoding chunk_types: %w", err)
	}
	pathBytes, err := encodeStringPool(idx.FilePaths)
	if err != nil {
		return xerrors.Errorf("encoding file_paths: %w", err)
	}
	nameBytes, err := encodeStringPool(idx.ChunkNames)
	if err != nil {
		return xerrors.Errorf("encoding chunk_names: %w", err)
	}

	if err := w.U32(uint32(len(idx.ChunkTypes))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(typeBytes))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(idx.FilePaths))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(pathBytes))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(idx.ChunkNames))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(nameBytes))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(idx.ChunkMaps))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(idx.ChunkMaps) * 12)); err != nil {
		return err
	}
	if err := w.U32(uint32(len(idx.ChunkMapIndices))); err != nil {
		return err
	}
	if err := w.U32(uint32(len(idx.ChunkReferences))); err != nil {
		return err
	}

	if err := w.Bytes(typeBytes); err != nil {
		return err
	}
	if err := w.Bytes(pathBytes); err != nil {
		return err
	}
	if err := w.Bytes(nameBytes); err != nil {
		return err
	}
	stringBufferSize := len(typeBytes) + len(pathBytes) + len(nameBytes)
	alignPad := bitcodec.Align(stringBufferSize, 4)
	if err := w.Align(4); err != nil {
		return err
	}

	for i, m := range idx.ChunkMaps {
		if err := w.U32(m[0]); err != nil {
			return xerrors.Errorf("writing chunk_map[%d]: %w", i, err)
		}
		if err := w.U32(m[1]); err != nil {
			return xerrors.Errorf("writing chunk_map[%d]: %w", i, err)
		}
		if err := w.U32(m[2]); err != nil {
			return xerrors.Errorf("writing chunk_map[%d]: %w", i, err)
		}
	}
	for i, ref := range idx.ChunkReferences {
		if err := w.U32(ref[0]); err != nil {
			return xerrors.Errorf("writing chunk_reference[%d]: %w", i, err)
		}
		if err := w.U32(ref[1]); err != nil {
			return xerrors.Errorf("writing chunk_reference[%d]: %w", i, err)
		}
	}
	for i, v := range idx.ChunkMapIndices {
		if err := w.U32(v); err != nil {
			return xerrors.Errorf("writing chunk_map_indices[%d]: %w", i, err)
		}
	}

	// chunk_table_size = 0x28 + string_buffer_size + align4 + 12*map_count +
	// 4*map_index_count; the reference table is deliberately not added,
	// preserving the source's calculate_table_size() quirk.
	tableSize := 0x28 + stringBufferSize + alignPad + 12*len(idx.ChunkMaps) + 4*len(idx.ChunkMapIndices)
	return w.PatchU32At(tableSizePos, uint32(tableSize))
}

// Frame is one decoded ChunkFrame envelope.
type Frame struct {
	ChunkMapIndex uint32
	Version       uint16
	Payload       []byte
}

// ReadFrames reads ChunkFrame envelopes until the next read would be
// incomplete; a short/absent trailing frame is not an error. A short read
// stops the loop and drops the partial frame; the cursor is left after
// whichever of that frame's fields were read in full.
func ReadFrames(r *bitcodec.Reader) ([]Frame, error) {
	var frames []Frame
	for {
		size, err := r.U32()
		if err != nil {
			break
		}
		mapIdx, err := r.U32()
		if err != nil {
			break
		}
		version, err := r.U16()
		if err != nil {
			break
		}
		if err := r.Skip(2); err != nil {
			break
		}
		payload, err := r.Bytes(int(size))
		if err != nil {
			break
		}
		frames = append(frames, Frame{ChunkMapIndex: mapIdx, Version: version, Payload: payload})
	}
	return frames, nil
}

// WriteFrame emits one ChunkFrame.
func WriteFrame(w *bitcodec.Writer, f Frame) error {
	if err := w.U32(uint32(len(f.Payload))); err != nil {
		return err
	}
	if err := w.U32(f.ChunkMapIndex); err != nil {
		return err
	}
	if err := w.U16(f.Version); err != nil {
		return err
	}
	if err := w.Bytes(make([]byte, 2)); err != nil {
		return err
	}
	return w.Bytes(f.Payload)
}
