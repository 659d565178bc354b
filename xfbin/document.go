// Package xfbin reads and writes XFBIN container files: the big-endian
// asset-pipeline archive format used to bundle animation data, opaque
// binary blobs, and unknown chunk types behind a shared, string-interning
// index. See Read and Write for the public entry points.
package xfbin

import (
	"github.com/distr1/xfbin/internal/anmcodec"
	"github.com/distr1/xfbin/internal/curvecodec"
	"github.com/distr1/xfbin/internal/structinfo"
)

// StructInfo uniquely identifies a chunk's logical role: its type, the
// file path it was packed from, and its name. Strings are interned at
// file scope; equality is string equality.
type StructInfo = structinfo.Info

// StructReference is a named back-reference from one chunk to another.
type StructReference = structinfo.Reference

// ClumpCoordIndex identifies an entry's position within a clump's
// coordinate space, or as an "other" entry not attached to any clump
// (Clump == OtherClump).
type ClumpCoordIndex = anmcodec.ClumpCoordIndex

// OtherClump is the sentinel ClumpCoordIndex.Clump value for entries not
// attached to any declared clump.
const OtherClump = anmcodec.OtherClump

// EntryFormat selects the fixed channel list an Anm entry's curves index
// into.
type EntryFormat = curvecodec.EntryFormat

const (
	EntryFormatCoord      = curvecodec.EntryFormatCoord
	EntryFormatCamera     = curvecodec.EntryFormatCamera
	EntryFormatMaterial   = curvecodec.EntryFormatMaterial
	EntryFormatLightDirc  = curvecodec.EntryFormatLightDirc
	EntryFormatLightPoint = curvecodec.EntryFormatLightPoint
	EntryFormatAmbient    = curvecodec.EntryFormatAmbient
)

// Channel is the animation channel a curve drives.
type Channel = curvecodec.Channel

const (
	ChannelLocation = curvecodec.ChannelLocation
	ChannelRotation = curvecodec.ChannelRotation
	ChannelScale    = curvecodec.ChannelScale
	ChannelOpacity  = curvecodec.ChannelOpacity
	ChannelFov      = curvecodec.ChannelFov
	ChannelColor    = curvecodec.ChannelColor
	ChannelProperty = curvecodec.ChannelProperty
)

// CurveFormat is the on-disk curve format code.
type CurveFormat = curvecodec.Format

const (
	CurveFormatVector3Fixed                 = curvecodec.FormatVector3Fixed
	CurveFormatVector3Linear                = curvecodec.FormatVector3Linear
	CurveFormatVector3Bezier                = curvecodec.FormatVector3Bezier
	CurveFormatEulerXYZFixed                 = curvecodec.FormatEulerXYZFixed
	CurveFormatEulerInterpolated             = curvecodec.FormatEulerInterpolated
	CurveFormatQuaternionLinear              = curvecodec.FormatQuaternionLinear
	CurveFormatFloatFixed                    = curvecodec.FormatFloatFixed
	CurveFormatFloatLinear                   = curvecodec.FormatFloatLinear
	CurveFormatVector2Fixed                  = curvecodec.FormatVector2Fixed
	CurveFormatVector2Linear                 = curvecodec.FormatVector2Linear
	CurveFormatOpacityShortTable             = curvecodec.FormatOpacityShortTable
	CurveFormatScaleShortTable               = curvecodec.FormatScaleShortTable
	CurveFormatQuaternionShortTable          = curvecodec.FormatQuaternionShortTable
	CurveFormatColorRGBTable                 = curvecodec.FormatColorRGBTable
	CurveFormatVector3Table                  = curvecodec.FormatVector3Table
	CurveFormatFloatTable                    = curvecodec.FormatFloatTable
	CurveFormatQuaternionTable               = curvecodec.FormatQuaternionTable
	CurveFormatFloatTableNoInterp            = curvecodec.FormatFloatTableNoInterp
	CurveFormatVector3ShortLinear            = curvecodec.FormatVector3ShortLinear
	CurveFormatVector3TableNoInterp          = curvecodec.FormatVector3TableNoInterp
	CurveFormatQuaternionShortTableNoInterp  = curvecodec.FormatQuaternionShortTableNoInterp
	CurveFormatOpacityShortTableNoInterp     = curvecodec.FormatOpacityShortTableNoInterp
)

// Interp is the interpolation style implied by a CurveFormat.
type Interp = curvecodec.Interp

const (
	InterpNone   = curvecodec.InterpNone
	InterpLinear = curvecodec.InterpLinear
	InterpBezier = curvecodec.InterpBezier
)

// Keyframes is the tagged union of keyframe storage kinds a curve's
// payload decodes to: one of Float, FloatLinear, Vector2s, Vector2Linear,
// Vector3s, Vector3Shorts, Vector3Linear, Vector3ShortLinear, Quaternions,
// QuaternionShorts, QuaternionLinear, RGBs, Opacity, or None.
type Keyframes = curvecodec.Keyframes

type (
	None               = curvecodec.None
	Float              = curvecodec.Float
	FloatLinear        = curvecodec.FloatLinear
	FloatKey           = curvecodec.FloatKey
	Vector2            = curvecodec.Vector2
	Vector2s           = curvecodec.Vector2s
	Vector2Linear      = curvecodec.Vector2Linear
	Vector2Key         = curvecodec.Vector2Key
	Vector3            = curvecodec.Vector3
	Vector3s           = curvecodec.Vector3s
	Vector3Short       = curvecodec.Vector3Short
	Vector3Shorts      = curvecodec.Vector3Shorts
	Vector3Linear      = curvecodec.Vector3Linear
	Vector3Key         = curvecodec.Vector3Key
	Vector3ShortLinear = curvecodec.Vector3ShortLinear
	Vector3ShortKey    = curvecodec.Vector3ShortKey
	Quaternion         = curvecodec.Quaternion
	Quaternions        = curvecodec.Quaternions
	QuaternionShort    = curvecodec.QuaternionShort
	QuaternionShorts   = curvecodec.QuaternionShorts
	QuaternionLinear   = curvecodec.QuaternionLinear
	QuaternionKey      = curvecodec.QuaternionKey
	RGB                = curvecodec.RGB
	RGBs               = curvecodec.RGBs
	Opacity            = curvecodec.Opacity
)

// Document is the root of a parsed or hand-built XFBIN container.
type Document struct {
	// Version is the container's 16-bit file-format version, reused
	// verbatim as the index's own version field.
	Version uint16
	// IndexUnknown is the index table's pass-through "unknown" field.
	IndexUnknown uint16

	Pages []Page
}

// Page is an ordered sequence of typed chunks. If the page holds any
// Unknown chunk, rawInfos/rawRefs preserve that page's original
// StructInfo/StructReference table verbatim, since an opaque Unknown
// payload may itself carry indices into that exact table (§3); Write
// reuses them unchanged instead of re-deriving the table from scratch.
type Page struct {
	Chunks []Chunk

	rawInfos []StructInfo
	rawRefs  []StructReference
}

// Chunk is one tagged-union chunk. Exactly one of Anm, Binary, or Unknown
// is set.
type Chunk struct {
	Info    StructInfo
	Version uint16

	Anm     *Anm
	Binary  *Binary
	Unknown *Unknown
}

// Anm is a fully reconstructed animation chunk: its clumps' entry trees
// plus the trailing "other" entries not attached to any clump.
type Anm struct {
	FrameCount uint32
	FrameSize  uint32
	Unk        uint16

	Clumps []*AnmClump
	Other  []*AnmEntry
}

// AnmClump is one clump after graph reconstruction.
type AnmClump struct {
	Ref              StructReference
	BoneMaterialRefs []StructReference
	ModelRefs        []StructReference
	RootEntries      []*AnmEntry
}

// AnmEntry is one node of a clump's (or the "other" list's) entry tree.
// InfoIsReference distinguishes which of Ref/Info identifies the entry;
// clump-attached entries are usually identified by Ref, "other" entries
// always by Info.
type AnmEntry struct {
	Coord ClumpCoordIndex

	InfoIsReference bool
	Ref             StructReference
	Info            StructInfo

	Format   EntryFormat
	Curves   []Curve
	Children []*AnmEntry
}

// Curve is one decoded animation curve: its channel index within the
// entry's format, its on-disk format code, and its keyframes. Channel and
// Interp are not wire fields — they are derived from the owning entry's
// EntryFormat and from Format respectively, and filled in during Read.
type Curve struct {
	Index     uint16
	Format    CurveFormat
	UnkFlags  uint16
	Keyframes Keyframes

	Channel Channel
	Interp  Interp
}

// Binary is an opaque Binary chunk payload, left undecoded. Decoding its
// domain-specific contents (a model, a texture, ...) is left to the
// caller; this library only ever hands back the raw bytes.
type Binary struct {
	Payload []byte
}

// Unknown is a chunk whose type string this library does not recognize,
// preserved byte-for-byte.
type Unknown struct {
	TypeString string
	Payload    []byte
}
