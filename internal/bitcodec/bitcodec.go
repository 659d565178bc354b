// Package bitcodec provides big-endian primitive reads and writes, byte
// alignment padding, and NUL-terminated Shift-JIS (code page 932) string
// encoding for the XFBIN container format. The container and every chunk
// type it carries are big-endian; this package has no little-endian mode.
package bitcodec

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/orcaman/writerseeker"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/xerrors"
)

// ErrTruncated is wrapped into every read error caused by running out of
// input bytes mid-structure.
var ErrTruncated = xerrors.New("bitcodec: truncated input")

// ErrStringDecode is wrapped into every error caused by a NUL-terminated
// region failing to decode as Shift-JIS.
var ErrStringDecode = xerrors.New("bitcodec: string decode failed")

// Align returns the (N - position mod N) mod N padding bytes needed to
// bring position up to a multiple of n.
func Align(position, n int) int {
	if n <= 0 {
		return 0
	}
	return (n - (position % n)) % n
}

// Reader is a cursor over an in-memory byte slice. All multi-byte reads are
// big-endian. Reads past the end of the slice return an error wrapping
// ErrTruncated.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data starting at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current byte offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of bytes not yet consumed.
func (r *Reader) Len() int { return len(r.data) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, xerrors.Errorf("reading %d bytes at offset %d: %w", n, r.pos, ErrTruncated)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// Skip advances the cursor by n bytes without returning them.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// U8 reads an unsigned 8-bit integer.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// I16 reads a big-endian signed 16-bit integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// I32 reads a big-endian signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// F32 reads a big-endian IEEE-754 single-precision float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Align advances the cursor past the padding required to reach a multiple
// of n, verifying the skipped bytes exist.
func (r *Reader) Align(n int) error {
	return r.Skip(Align(r.pos, n))
}

var shiftJIS = japanese.ShiftJIS

// CString reads a NUL-terminated Shift-JIS string, consuming through (and
// past) the terminating NUL. The returned string has the NUL stripped.
func (r *Reader) CString() (string, error) {
	start := r.pos
	for {
		if r.pos >= len(r.data) {
			return "", xerrors.Errorf("reading NUL-terminated string at offset %d: %w", start, ErrTruncated)
		}
		if r.data[r.pos] == 0 {
			break
		}
		r.pos++
	}
	raw := r.data[start:r.pos]
	r.pos++ // consume the NUL

	decoded, err := shiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return "", xerrors.Errorf("decoding shift-jis string at offset %d: %w", start, ErrStringDecode)
	}
	return string(decoded), nil
}

// Writer builds a big-endian binary stream. It is backed by a
// writerseeker.WriterSeeker so that length-prefixed fields computed only
// after their body is known (the index's chunk_table_size) can be written as a placeholder and patched in place once
// the real value is known, instead of buffering twice.
type Writer struct {
	ws  *writerseeker.WriterSeeker
	end int64
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{ws: &writerseeker.WriterSeeker{}}
}

// Pos returns the number of bytes written so far (the current append
// position, regardless of any in-progress patch seek).
func (w *Writer) Pos() int64 { return w.end }

func (w *Writer) write(p []byte) error {
	n, err := w.ws.Write(p)
	w.end += int64(n)
	if err != nil {
		return xerrors.Errorf("writing %d bytes: %w", len(p), err)
	}
	return nil
}

// U8 writes an unsigned 8-bit integer.
func (w *Writer) U8(v uint8) error { return w.write([]byte{v}) }

// U16 writes a big-endian unsigned 16-bit integer.
func (w *Writer) U16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return w.write(b[:])
}

// U32 writes a big-endian unsigned 32-bit integer.
func (w *Writer) U32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return w.write(b[:])
}

// I16 writes a big-endian signed 16-bit integer.
func (w *Writer) I16(v int16) error { return w.U16(uint16(v)) }

// I32 writes a big-endian signed 32-bit integer.
func (w *Writer) I32(v int32) error { return w.U32(uint32(v)) }

// F32 writes a big-endian IEEE-754 single-precision float.
func (w *Writer) F32(v float32) error { return w.U32(math.Float32bits(v)) }

// Bytes writes raw bytes verbatim.
func (w *Writer) Bytes(b []byte) error { return w.write(b) }

// Align writes zero padding bytes until Pos() is a multiple of n.
func (w *Writer) Align(n int) error {
	pad := Align(int(w.end), n)
	if pad == 0 {
		return nil
	}
	return w.write(make([]byte, pad))
}

// CString writes s encoded as Shift-JIS followed by a terminating NUL byte.
func (w *Writer) CString(s string) error {
	encoded, err := shiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return xerrors.Errorf("encoding shift-jis string %q: %w", s, err)
	}
	if err := w.write(encoded); err != nil {
		return err
	}
	return w.U8(0)
}

// PatchU32At overwrites the big-endian uint32 at byte offset pos with v,
// then restores the write cursor to the current end of the stream so that
// subsequent writes continue to append.
func (w *Writer) PatchU32At(pos int64, v uint32) error {
	if _, err := w.ws.Seek(pos, io.SeekStart); err != nil {
		return xerrors.Errorf("seeking to patch offset %d: %w", pos, err)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	if _, err := w.ws.Write(b[:]); err != nil {
		return xerrors.Errorf("patching uint32 at offset %d: %w", pos, err)
	}
	if _, err := w.ws.Seek(w.end, io.SeekStart); err != nil {
		return xerrors.Errorf("restoring write cursor to %d: %w", w.end, err)
	}
	return nil
}

// Finish returns the full contents written so far.
func (w *Writer) Finish() ([]byte, error) {
	r, err := w.ws.BytesReader()
	if err != nil {
		return nil, xerrors.Errorf("materializing writer output: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, xerrors.Errorf("reading writer output: %w", err)
	}
	return buf.Bytes(), nil
}
