// Package curvecodec implements the 22 on-disk keyframe curve format codes
// used by Anm chunks: their per-frame byte size, derived interpolation type,
// and decode/encode to a small set of in-memory keyframe shapes (every code
// except Vector3Bezier and EulerInterpolated). It also
// enforces which keyframe shapes are legal for a given animation channel.
package curvecodec

import (
	"reflect"

	"github.com/distr1/xfbin/internal/bitcodec"
	"golang.org/x/xerrors"
)

// Format is the on-disk curve format code (CurveHeader.format_tag).
type Format uint16

const (
	FormatVector3Fixed                 Format = 0x05
	FormatVector3Linear                Format = 0x06
	FormatVector3Bezier                Format = 0x07
	FormatEulerXYZFixed                Format = 0x08
	FormatEulerInterpolated            Format = 0x09
	FormatQuaternionLinear             Format = 0x0A
	FormatFloatFixed                   Format = 0x0B
	FormatFloatLinear                  Format = 0x0C
	FormatVector2Fixed                 Format = 0x0D
	FormatVector2Linear                Format = 0x0E
	FormatOpacityShortTable            Format = 0x0F
	FormatScaleShortTable              Format = 0x10
	FormatQuaternionShortTable         Format = 0x11
	FormatColorRGBTable                Format = 0x14
	FormatVector3Table                 Format = 0x15
	FormatFloatTable                   Format = 0x16
	FormatQuaternionTable              Format = 0x17
	FormatFloatTableNoInterp           Format = 0x18
	FormatVector3ShortLinear           Format = 0x19
	FormatVector3TableNoInterp         Format = 0x1A
	FormatQuaternionShortTableNoInterp Format = 0x1B
	FormatOpacityShortTableNoInterp    Format = 0x1D
)

// ErrUnknownFormat is returned for a format_tag outside the known table.
var ErrUnknownFormat = xerrors.New("curvecodec: unknown curve format")

// ErrUnimplementedFormat is returned for a recognized but unsupported
// format: Vector3Bezier and EulerInterpolated have neither a decoder nor an
// encoder.
var ErrUnimplementedFormat = xerrors.New("curvecodec: unimplemented curve format")

// ErrInvalidKeyframes is returned when a channel and keyframes kind are
// incompatible (see Validate).
var ErrInvalidKeyframes = xerrors.New("curvecodec: keyframes incompatible with channel")

// Interp is the interpolation style implied by a curve format.
type Interp uint8

const (
	InterpNone Interp = iota
	InterpLinear
	InterpBezier
)

func (i Interp) String() string {
	switch i {
	case InterpNone:
		return "None"
	case InterpLinear:
		return "Linear"
	case InterpBezier:
		return "Bezier"
	default:
		return "Unknown"
	}
}

// sizePerFrame has no entry for Vector3Bezier and EulerInterpolated, which
// have no defined per-frame byte size; SizePerFrame reports them as
// unimplemented.
var sizePerFrame = map[Format]int{
	FormatVector3Fixed:                 12,
	FormatVector3Linear:                16,
	FormatEulerXYZFixed:                12,
	FormatQuaternionLinear:             20,
	FormatFloatFixed:                   4,
	FormatFloatLinear:                  8,
	FormatVector2Fixed:                 8,
	FormatVector2Linear:                12,
	FormatOpacityShortTable:            2,
	FormatScaleShortTable:              6,
	FormatQuaternionShortTable:         8,
	FormatColorRGBTable:                3,
	FormatVector3Table:                 12,
	FormatFloatTable:                   4,
	FormatQuaternionTable:              16,
	FormatFloatTableNoInterp:           4,
	FormatVector3TableNoInterp:         12,
	FormatQuaternionShortTableNoInterp: 8,
	FormatOpacityShortTableNoInterp:    2,
	FormatVector3ShortLinear:           10, // i32 frame + 3x i16, see Decode
}

var interpOf = map[Format]Interp{
	FormatVector3Fixed:                 InterpNone,
	FormatVector3Linear:                InterpLinear,
	FormatVector3Bezier:                InterpBezier,
	FormatEulerXYZFixed:                InterpNone,
	FormatEulerInterpolated:            InterpNone,
	FormatQuaternionLinear:             InterpLinear,
	FormatFloatFixed:                   InterpNone,
	FormatFloatLinear:                  InterpLinear,
	FormatVector2Fixed:                 InterpNone,
	FormatVector2Linear:                InterpLinear,
	FormatOpacityShortTable:            InterpNone,
	FormatScaleShortTable:              InterpNone,
	FormatQuaternionShortTable:         InterpNone,
	FormatColorRGBTable:                InterpNone,
	FormatVector3Table:                 InterpNone,
	FormatFloatTable:                   InterpNone,
	FormatQuaternionTable:              InterpNone,
	FormatFloatTableNoInterp:           InterpNone,
	FormatVector3ShortLinear:           InterpLinear,
	FormatVector3TableNoInterp:         InterpNone,
	FormatQuaternionShortTableNoInterp: InterpNone,
	FormatOpacityShortTableNoInterp:    InterpNone,
}

// Valid reports whether f is one of the known format codes.
func (f Format) Valid() bool {
	_, ok := interpOf[f]
	return ok
}

// Interpolation returns the interpolation style for f.
func (f Format) Interpolation() (Interp, error) {
	v, ok := interpOf[f]
	if !ok {
		return 0, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnknownFormat)
	}
	return v, nil
}

// SizePerFrame returns the fixed per-frame byte size for f, for formats that
// have one. Vector3Bezier and EulerInterpolated have no decoder and thus no
// defined size. Vector3ShortLinear is 10 bytes (an i32 frame plus three
// i16 components).
func (f Format) SizePerFrame() (int, error) {
	switch f {
	case FormatVector3Bezier, FormatEulerInterpolated:
		return 0, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnimplementedFormat)
	}
	v, ok := sizePerFrame[f]
	if !ok {
		return 0, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnknownFormat)
	}
	return v, nil
}

// PayloadSize returns the total curve payload size for frameCount frames of
// format f, rounded up to a multiple of 4 as the container requires.
func PayloadSize(f Format, frameCount int) (int, error) {
	per, err := f.SizePerFrame()
	if err != nil {
		return 0, err
	}
	size := per * frameCount
	if rem := size % 4; rem != 0 {
		size += 4 - rem
	}
	return size, nil
}

// Channel is the animation channel a curve drives.
type Channel uint8

const (
	ChannelLocation Channel = iota
	ChannelRotation
	ChannelScale
	ChannelOpacity
	ChannelFov
	ChannelColor
	ChannelProperty
)

func (c Channel) String() string {
	switch c {
	case ChannelLocation:
		return "Location"
	case ChannelRotation:
		return "Rotation"
	case ChannelScale:
		return "Scale"
	case ChannelOpacity:
		return "Opacity"
	case ChannelFov:
		return "Fov"
	case ChannelColor:
		return "Color"
	case ChannelProperty:
		return "Property"
	default:
		return "Unknown"
	}
}

// EntryFormat is an Anm entry's entry_format_tag, which selects the fixed
// channel list its curve headers index into.
type EntryFormat uint16

const (
	EntryFormatCoord     EntryFormat = 1
	EntryFormatCamera    EntryFormat = 2
	EntryFormatMaterial  EntryFormat = 4
	EntryFormatLightDirc EntryFormat = 5
	EntryFormatLightPoint EntryFormat = 6
	EntryFormatAmbient   EntryFormat = 8
)

// ErrUnknownEntryFormat is returned for an entry_format_tag outside the
// known table.
var ErrUnknownEntryFormat = xerrors.New("curvecodec: unknown entry format")

var channelsByEntryFormat = map[EntryFormat][]Channel{
	EntryFormatCoord:  {ChannelLocation, ChannelRotation, ChannelScale, ChannelOpacity},
	EntryFormatCamera: {ChannelLocation, ChannelRotation, ChannelFov},
	EntryFormatMaterial: func() []Channel {
		cs := make([]Channel, 18)
		for i := range cs {
			cs[i] = ChannelProperty
		}
		return cs
	}(),
	EntryFormatLightDirc:  {ChannelColor, ChannelProperty, ChannelRotation},
	EntryFormatLightPoint: {ChannelColor, ChannelProperty, ChannelLocation, ChannelProperty, ChannelProperty},
	EntryFormatAmbient:    {ChannelColor, ChannelProperty},
}

// ChannelsFor returns the fixed channel list for an entry format, indexed by
// CurveHeader.curve_index.
func ChannelsFor(format EntryFormat) ([]Channel, error) {
	cs, ok := channelsByEntryFormat[format]
	if !ok {
		return nil, xerrors.Errorf("entry format %d: %w", uint16(format), ErrUnknownEntryFormat)
	}
	return cs, nil
}

// Keyframes is the tagged union of the 14 keyframe storage kinds a curve
// payload decodes to.
type Keyframes interface {
	isKeyframes()
	Len() int
}

type (
	Vector2           struct{ X, Y float32 }
	Vector3           struct{ X, Y, Z float32 }
	Vector3Short      struct{ X, Y, Z int16 }
	Quaternion        struct{ X, Y, Z, W float32 }
	QuaternionShort   struct{ X, Y, Z, W int16 }
	RGB               struct{ R, G, B uint8 }
	FloatKey          struct{ Frame int32; Value float32 }
	Vector2Key        struct{ Frame int32; Value Vector2 }
	Vector3Key        struct{ Frame int32; Value Vector3 }
	Vector3ShortKey   struct{ Frame int32; Value Vector3Short }
	QuaternionKey     struct{ Frame int32; Value Quaternion }
)

// None is the empty Keyframes variant.
type None struct{}

func (None) isKeyframes() {}
func (None) Len() int     { return 0 }

type Float []float32

func (Float) isKeyframes() {}
func (k Float) Len() int   { return len(k) }

type FloatLinear []FloatKey

func (FloatLinear) isKeyframes() {}
func (k FloatLinear) Len() int   { return len(k) }

type Vector2s []Vector2

func (Vector2s) isKeyframes() {}
func (k Vector2s) Len() int   { return len(k) }

type Vector2Linear []Vector2Key

func (Vector2Linear) isKeyframes() {}
func (k Vector2Linear) Len() int   { return len(k) }

type Vector3s []Vector3

func (Vector3s) isKeyframes() {}
func (k Vector3s) Len() int   { return len(k) }

type Vector3Shorts []Vector3Short

func (Vector3Shorts) isKeyframes() {}
func (k Vector3Shorts) Len() int   { return len(k) }

type Vector3Linear []Vector3Key

func (Vector3Linear) isKeyframes() {}
func (k Vector3Linear) Len() int   { return len(k) }

type Vector3ShortLinear []Vector3ShortKey

func (Vector3ShortLinear) isKeyframes() {}
func (k Vector3ShortLinear) Len() int   { return len(k) }

type Quaternions []Quaternion

func (Quaternions) isKeyframes() {}
func (k Quaternions) Len() int   { return len(k) }

type QuaternionShorts []QuaternionShort

func (QuaternionShorts) isKeyframes() {}
func (k QuaternionShorts) Len() int   { return len(k) }

type QuaternionLinear []QuaternionKey

func (QuaternionLinear) isKeyframes() {}
func (k QuaternionLinear) Len() int   { return len(k) }

type RGBs []RGB

func (RGBs) isKeyframes() {}
func (k RGBs) Len() int   { return len(k) }

type Opacity []int16

func (Opacity) isKeyframes() {}
func (k Opacity) Len() int   { return len(k) }

// Validate enforces the channel/keyframes compatibility table from spec §4.6.
func Validate(channel Channel, keyframes Keyframes) error {
	ok := false
	switch channel {
	case ChannelLocation, ChannelScale:
		switch keyframes.(type) {
		case Vector3s, Vector3Shorts, Vector3Linear:
			ok = true
		}
	case ChannelRotation:
		switch keyframes.(type) {
		case Vector3s, Vector3Shorts, Vector3Linear, QuaternionShorts, QuaternionLinear:
			ok = true
		}
	case ChannelOpacity:
		switch keyframes.(type) {
		case Float, FloatLinear, Opacity:
			ok = true
		}
	case ChannelFov, ChannelProperty:
		switch keyframes.(type) {
		case Float, FloatLinear:
			ok = true
		}
	case ChannelColor:
		switch keyframes.(type) {
		case RGBs:
			ok = true
		}
	}
	if !ok {
		return xerrors.Errorf("channel %s with keyframes %T: %w", channel, keyframes, ErrInvalidKeyframes)
	}
	return nil
}

// Decode reads frameCount keyframes of format f, encoded big-endian, from
// payload (already sliced to the curve's PayloadSize length).
func Decode(f Format, frameCount int, payload []byte) (Keyframes, error) {
	if !f.Valid() {
		return nil, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnknownFormat)
	}
	if f == FormatVector3Bezier || f == FormatEulerInterpolated {
		return nil, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnimplementedFormat)
	}

	r := bitcodec.NewReader(payload)
	var rerr error
	chk := func(err error) {
		if err != nil && rerr == nil {
			rerr = err
		}
	}
	readF32 := func() float32 { v, err := r.F32(); chk(err); return v }
	readI32 := func() int32 { v, err := r.I32(); chk(err); return v }
	readI16 := func() int16 { v, err := r.I16(); chk(err); return v }
	readU8 := func() uint8 { v, err := r.U8(); chk(err); return v }
	readVec2 := func() Vector2 { return Vector2{readF32(), readF32()} }
	readVec3 := func() Vector3 { return Vector3{readF32(), readF32(), readF32()} }
	readVec3s := func() Vector3Short { return Vector3Short{readI16(), readI16(), readI16()} }
	readQuat := func() Quaternion { return Quaternion{readF32(), readF32(), readF32(), readF32()} }
	readQuats := func() QuaternionShort { return QuaternionShort{readI16(), readI16(), readI16(), readI16()} }
	readRGB := func() RGB { return RGB{readU8(), readU8(), readU8()} }

	var kf Keyframes
	switch f {
	case FormatVector3Fixed, FormatVector3Table, FormatVector3TableNoInterp, FormatEulerXYZFixed:
		out := make(Vector3s, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readVec3())
		}
		kf = out
	case FormatVector3Linear:
		out := make(Vector3Linear, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			frame := readI32()
			out = append(out, Vector3Key{Frame: frame, Value: readVec3()})
		}
		kf = out
	case FormatQuaternionLinear:
		out := make(QuaternionLinear, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			frame := readI32()
			out = append(out, QuaternionKey{Frame: frame, Value: readQuat()})
		}
		kf = out
	case FormatFloatFixed, FormatFloatTable, FormatFloatTableNoInterp:
		out := make(Float, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readF32())
		}
		kf = out
	case FormatFloatLinear:
		out := make(FloatLinear, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			frame := readI32()
			out = append(out, FloatKey{Frame: frame, Value: readF32()})
		}
		kf = out
	case FormatVector2Fixed:
		out := make(Vector2s, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readVec2())
		}
		kf = out
	case FormatVector2Linear:
		out := make(Vector2Linear, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			frame := readI32()
			out = append(out, Vector2Key{Frame: frame, Value: readVec2()})
		}
		kf = out
	case FormatOpacityShortTable, FormatOpacityShortTableNoInterp:
		out := make(Opacity, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readI16())
		}
		kf = out
	case FormatScaleShortTable:
		out := make(Vector3Shorts, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readVec3s())
		}
		kf = out
	case FormatQuaternionShortTable, FormatQuaternionShortTableNoInterp:
		out := make(QuaternionShorts, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readQuats())
		}
		kf = out
	case FormatColorRGBTable:
		out := make(RGBs, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readRGB())
		}
		kf = out
	case FormatQuaternionTable:
		out := make(Quaternions, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			out = append(out, readQuat())
		}
		kf = out
	case FormatVector3ShortLinear:
		out := make(Vector3ShortLinear, 0, frameCount)
		for i := 0; i < frameCount; i++ {
			frame := readI32()
			out = append(out, Vector3ShortKey{Frame: frame, Value: readVec3s()})
		}
		kf = out
	default:
		return nil, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnknownFormat)
	}
	if rerr != nil {
		return nil, xerrors.Errorf("decoding format %#x: %w", uint16(f), rerr)
	}
	return kf, nil
}

// Encode writes keyframes back out in the wire format f, matching Decode's
// layout exactly so that formats sharing a Keyframes shape (e.g.
// Vector3Fixed/Vector3Table/EulerXYZFixed all decode to Vector3s) still
// round-trip bit-exactly, since the caller supplies the same f it decoded.
func Encode(f Format, keyframes Keyframes) ([]byte, error) {
	if f == FormatVector3Bezier || f == FormatEulerInterpolated {
		return nil, xerrors.Errorf("format %#x: %w", uint16(f), ErrUnimplementedFormat)
	}
	// keyframes must be the kind Decode produces for f.
	want, derr := Decode(f, 0, nil)
	if derr != nil {
		return nil, derr
	}
	if reflect.TypeOf(want) != reflect.TypeOf(keyframes) {
		return nil, xerrors.Errorf("encoding %T as format %#x: %w", keyframes, uint16(f), ErrInvalidKeyframes)
	}

	w := bitcodec.NewWriter()
	writeVec2 := func(v Vector2) error {
		if err := w.F32(v.X); err != nil {
			return err
		}
		return w.F32(v.Y)
	}
	writeVec3 := func(v Vector3) error {
		if err := w.F32(v.X); err != nil {
			return err
		}
		if err := w.F32(v.Y); err != nil {
			return err
		}
		return w.F32(v.Z)
	}
	writeVec3s := func(v Vector3Short) error {
		if err := w.I16(v.X); err != nil {
			return err
		}
		if err := w.I16(v.Y); err != nil {
			return err
		}
		return w.I16(v.Z)
	}
	writeQuat := func(v Quaternion) error {
		if err := w.F32(v.X); err != nil {
			return err
		}
		if err := w.F32(v.Y); err != nil {
			return err
		}
		if err := w.F32(v.Z); err != nil {
			return err
		}
		return w.F32(v.W)
	}
	writeQuats := func(v QuaternionShort) error {
		if err := w.I16(v.X); err != nil {
			return err
		}
		if err := w.I16(v.Y); err != nil {
			return err
		}
		if err := w.I16(v.Z); err != nil {
			return err
		}
		return w.I16(v.W)
	}
	writeRGB := func(v RGB) error {
		if err := w.U8(v.R); err != nil {
			return err
		}
		if err := w.U8(v.G); err != nil {
			return err
		}
		return w.U8(v.B)
	}

	var err error
	switch kf := keyframes.(type) {
	case Vector3s:
		for _, v := range kf {
			if err = writeVec3(v); err != nil {
				break
			}
		}
	case Vector3Linear:
		for _, k := range kf {
			if err = w.I32(k.Frame); err != nil {
				break
			}
			if err = writeVec3(k.Value); err != nil {
				break
			}
		}
	case QuaternionLinear:
		for _, k := range kf {
			if err = w.I32(k.Frame); err != nil {
				break
			}
			if err = writeQuat(k.Value); err != nil {
				break
			}
		}
	case Float:
		for _, v := range kf {
			if err = w.F32(v); err != nil {
				break
			}
		}
	case FloatLinear:
		for _, k := range kf {
			if err = w.I32(k.Frame); err != nil {
				break
			}
			if err = w.F32(k.Value); err != nil {
				break
			}
		}
	case Vector2s:
		for _, v := range kf {
			if err = writeVec2(v); err != nil {
				break
			}
		}
	case Vector2Linear:
		for _, k := range kf {
			if err = w.I32(k.Frame); err != nil {
				break
			}
			if err = writeVec2(k.Value); err != nil {
				break
			}
		}
	case Opacity:
		for _, v := range kf {
			if err = w.I16(v); err != nil {
				break
			}
		}
	case Vector3Shorts:
		for _, v := range kf {
			if err = writeVec3s(v); err != nil {
				break
			}
		}
	case QuaternionShorts:
		for _, v := range kf {
			if err = writeQuats(v); err != nil {
				break
			}
		}
	case RGBs:
		for _, v := range kf {
			if err = writeRGB(v); err != nil {
				break
			}
		}
	case Quaternions:
		for _, v := range kf {
			if err = writeQuat(v); err != nil {
				break
			}
		}
	case Vector3ShortLinear:
		for _, k := range kf {
			if err = w.I32(k.Frame); err != nil {
				break
			}
			if err = writeVec3s(k.Value); err != nil {
				break
			}
		}
	default:
		return nil, xerrors.Errorf("encoding %T as format %#x: %w", keyframes, uint16(f), ErrInvalidKeyframes)
	}
	if err != nil {
		return nil, xerrors.Errorf("encoding format %#x: %w", uint16(f), err)
	}

	body, err := w.Finish()
	if err != nil {
		return nil, err
	}
	if rem := len(body) % 4; rem != 0 {
		body = append(body, make([]byte, 4-rem)...)
	}
	return body, nil
}
