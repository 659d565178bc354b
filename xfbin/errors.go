package xfbin

import (
	"github.com/distr1/xfbin/internal/anmcodec"
	"github.com/distr1/xfbin/internal/anmgraph"
	"github.com/distr1/xfbin/internal/bitcodec"
	"github.com/distr1/xfbin/internal/curvecodec"
	"github.com/distr1/xfbin/internal/structinfo"
	"github.com/distr1/xfbin/internal/xfbinfile"
)

// Sentinel errors a caller can match with errors.Is, gathered from every
// layer of the container and Anm codecs. Wrapped context is always
// attached with xerrors.Errorf("...: %w", sentinel); the sentinel itself
// never changes identity.
var (
	// ErrTruncatedInput is returned when the input ends before a
	// structure's fixed-size fields or declared byte length are fully
	// present.
	ErrTruncatedInput = bitcodec.ErrTruncated

	// ErrBadMagic is returned when a file does not start with "NUCC".
	ErrBadMagic = xfbinfile.ErrBadMagic

	// ErrUnknownCurveFormat is returned for a CurveHeader format_tag
	// outside the known set of 22 codes.
	ErrUnknownCurveFormat = curvecodec.ErrUnknownFormat

	// ErrUnimplementedCurveFormat is returned for Vector3Bezier or
	// EulerInterpolated, which have neither a decoder nor an encoder.
	ErrUnimplementedCurveFormat = curvecodec.ErrUnimplementedFormat

	// ErrInvalidKeyframes is returned when a curve's channel and its
	// keyframes kind are incompatible.
	ErrInvalidKeyframes = curvecodec.ErrInvalidKeyframes

	// ErrMalformedGraph is returned for a duplicate entry coord, a
	// dangling or cyclic parent/child edge, or a coord index outside a
	// clump's declared range.
	ErrMalformedGraph = anmgraph.ErrMalformedGraph

	// ErrUnsupportedFeature is returned for a feature this library
	// deliberately does not implement: non-empty unk_entry_chunk_indices,
	// or an encrypted container.
	ErrUnsupportedFeature = anmcodec.ErrUnsupportedFeature

	// ErrCountMismatch is returned when a declared count or index in the
	// container disagrees with the data actually present.
	ErrCountMismatch = structinfo.ErrCountMismatch

	// ErrStringDecode is returned when a NUL-terminated region fails to
	// decode as Shift-JIS.
	ErrStringDecode = bitcodec.ErrStringDecode
)
