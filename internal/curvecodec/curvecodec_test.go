package curvecodec

import (
	"errors"
	"testing"
)

func TestValidAndInterpolation(t *testing.T) {
	for _, tt := range []struct {
		f    Format
		want Interp
	}{
		{FormatVector3Fixed, InterpNone},
		{FormatVector3Linear, InterpLinear},
		{FormatVector3Bezier, InterpBezier},
		{FormatQuaternionShortTable, InterpNone},
		{FormatVector3ShortLinear, InterpLinear},
	} {
		if !tt.f.Valid() {
			t.Errorf("Format(%#x).Valid() = false, want true", uint16(tt.f))
		}
		got, err := tt.f.Interpolation()
		if err != nil {
			t.Fatalf("Interpolation(%#x) error: %v", uint16(tt.f), err)
		}
		if got != tt.want {
			t.Errorf("Interpolation(%#x) = %v, want %v", uint16(tt.f), got, tt.want)
		}
	}

	unknown := Format(0xFF)
	if unknown.Valid() {
		t.Error("Format(0xFF).Valid() = true, want false")
	}
	if _, err := unknown.Interpolation(); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Interpolation(0xFF) err = %v, want ErrUnknownFormat", err)
	}
}

func TestSizePerFrameAndPayloadSize(t *testing.T) {
	for _, tt := range []struct {
		f    Format
		want int
	}{
		{FormatFloatFixed, 4},
		{FormatVector3Fixed, 12},
		{FormatQuaternionLinear, 20},
		{FormatColorRGBTable, 3},
		{FormatVector3ShortLinear, 10},
	} {
		got, err := tt.f.SizePerFrame()
		if err != nil {
			t.Fatalf("SizePerFrame(%#x) error: %v", uint16(tt.f), err)
		}
		if got != tt.want {
			t.Errorf("SizePerFrame(%#x) = %d, want %d", uint16(tt.f), got, tt.want)
		}
	}

	for _, unimplemented := range []Format{FormatVector3Bezier, FormatEulerInterpolated} {
		if _, err := unimplemented.SizePerFrame(); !errors.Is(err, ErrUnimplementedFormat) {
			t.Errorf("SizePerFrame(%#x) err = %v, want ErrUnimplementedFormat", uint16(unimplemented), err)
		}
	}

	// ColorRGBTable is 3 bytes/frame; 5 frames = 15 bytes, rounds up to 16.
	size, err := PayloadSize(FormatColorRGBTable, 5)
	if err != nil {
		t.Fatal(err)
	}
	if size != 16 {
		t.Errorf("PayloadSize(ColorRGBTable, 5) = %d, want 16", size)
	}

	// FloatFixed is 4 bytes/frame; already a multiple of 4, no padding.
	size, err = PayloadSize(FormatFloatFixed, 3)
	if err != nil {
		t.Fatal(err)
	}
	if size != 12 {
		t.Errorf("PayloadSize(FloatFixed, 3) = %d, want 12", size)
	}
}

func TestChannelsFor(t *testing.T) {
	cs, err := ChannelsFor(EntryFormatCoord)
	if err != nil {
		t.Fatal(err)
	}
	want := []Channel{ChannelLocation, ChannelRotation, ChannelScale, ChannelOpacity}
	if len(cs) != len(want) {
		t.Fatalf("ChannelsFor(Coord) = %v, want %v", cs, want)
	}
	for i := range want {
		if cs[i] != want[i] {
			t.Errorf("ChannelsFor(Coord)[%d] = %v, want %v", i, cs[i], want[i])
		}
	}

	material, err := ChannelsFor(EntryFormatMaterial)
	if err != nil {
		t.Fatal(err)
	}
	if len(material) != 18 {
		t.Fatalf("ChannelsFor(Material) len = %d, want 18", len(material))
	}
	for i, c := range material {
		if c != ChannelProperty {
			t.Errorf("ChannelsFor(Material)[%d] = %v, want ChannelProperty", i, c)
		}
	}

	if _, err := ChannelsFor(EntryFormat(99)); !errors.Is(err, ErrUnknownEntryFormat) {
		t.Errorf("ChannelsFor(99) err = %v, want ErrUnknownEntryFormat", err)
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		channel Channel
		kf      Keyframes
		wantErr bool
	}{
		{"location/vector3s", ChannelLocation, Vector3s{{1, 2, 3}}, false},
		{"location/float", ChannelLocation, Float{1}, true},
		{"rotation/quatshorts", ChannelRotation, QuaternionShorts{{1, 2, 3, 4}}, false},
		{"opacity/opacity", ChannelOpacity, Opacity{1}, false},
		{"opacity/vector3s", ChannelOpacity, Vector3s{{1, 2, 3}}, true},
		{"color/rgbs", ChannelColor, RGBs{{1, 2, 3}}, false},
		{"color/float", ChannelColor, Float{1}, true},
		{"fov/float", ChannelFov, Float{1}, false},
		{"property/floatlinear", ChannelProperty, FloatLinear{{Frame: 0, Value: 1}}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.channel, tt.kf)
			if tt.wantErr && !errors.Is(err, ErrInvalidKeyframes) {
				t.Errorf("Validate(%v, %T) = %v, want ErrInvalidKeyframes", tt.channel, tt.kf, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate(%v, %T) = %v, want nil", tt.channel, tt.kf, err)
			}
		})
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name       string
		f          Format
		frameCount int
		payload    []byte
	}{
		{
			"Vector3Fixed",
			FormatVector3Fixed, 1,
			[]byte{
				0x3f, 0x80, 0x00, 0x00, // 1.0
				0x40, 0x00, 0x00, 0x00, // 2.0
				0x40, 0x40, 0x00, 0x00, // 3.0
			},
		},
		{
			"FloatFixed",
			FormatFloatFixed, 2,
			[]byte{
				0x3f, 0x80, 0x00, 0x00, // 1.0
				0x40, 0x00, 0x00, 0x00, // 2.0
			},
		},
		{
			"Vector3Linear",
			FormatVector3Linear, 1,
			[]byte{
				0x00, 0x00, 0x00, 0x05, // frame 5
				0x3f, 0x80, 0x00, 0x00,
				0x40, 0x00, 0x00, 0x00,
				0x40, 0x40, 0x00, 0x00,
			},
		},
		{
			"OpacityShortTable",
			FormatOpacityShortTable, 3,
			[]byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03},
		},
		{
			"ColorRGBTable",
			FormatColorRGBTable, 2,
			[]byte{10, 20, 30, 40, 50, 60},
		},
		{
			"QuaternionShortTable",
			FormatQuaternionShortTable, 1,
			[]byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04},
		},
		{
			"Vector3ShortLinear",
			FormatVector3ShortLinear, 1,
			[]byte{
				0x00, 0x00, 0x00, 0x07, // frame 7
				0x00, 0x01, 0x00, 0x02, 0x00, 0x03,
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			kf, err := Decode(tt.f, tt.frameCount, tt.payload)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if kf.Len() != tt.frameCount {
				t.Fatalf("Len() = %d, want %d", kf.Len(), tt.frameCount)
			}

			encoded, err := Encode(tt.f, kf)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			padded, err := PayloadSize(tt.f, tt.frameCount)
			if err != nil {
				t.Fatal(err)
			}
			if len(encoded) != padded {
				t.Fatalf("len(encoded) = %d, want %d (PayloadSize)", len(encoded), padded)
			}
			if string(encoded[:len(tt.payload)]) != string(tt.payload) {
				t.Errorf("Encode(Decode(payload)) = % x, want % x", encoded[:len(tt.payload)], tt.payload)
			}
		})
	}
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	if _, err := Decode(Format(0xFF), 1, nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Decode(0xFF) err = %v, want ErrUnknownFormat", err)
	}
}

func TestDecodeRejectsUnimplementedFormats(t *testing.T) {
	for _, f := range []Format{FormatVector3Bezier, FormatEulerInterpolated} {
		if _, err := Decode(f, 1, make([]byte, 32)); !errors.Is(err, ErrUnimplementedFormat) {
			t.Errorf("Decode(%#x) err = %v, want ErrUnimplementedFormat", uint16(f), err)
		}
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	// FloatFixed needs 4 bytes per frame; give it only 2.
	if _, err := Decode(FormatFloatFixed, 1, []byte{0x00, 0x00}); err == nil {
		t.Error("Decode() with truncated payload returned nil error, want a truncation error")
	}
}

func TestEncodeRejectsMismatchedKeyframes(t *testing.T) {
	if _, err := Encode(FormatFloatFixed, RGBs{{1, 2, 3}}); !errors.Is(err, ErrInvalidKeyframes) {
		t.Errorf("Encode(FloatFixed, RGBs) err = %v, want ErrInvalidKeyframes", err)
	}
}

// TestFloatLinearOpacityCurve decodes the exact wire bytes for a
// FloatLinear curve at curve_index=3 of a Coord entry, which the fixed
// Coord channel list maps to Opacity: channel=Opacity, interp=Linear,
// keyframes=[(0,1.0),(10,2.0)].
func TestFloatLinearOpacityCurve(t *testing.T) {
	payload := []byte{
		0x00, 0x00, 0x00, 0x00, 0x3F, 0x80, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x0A, 0x40, 0x00, 0x00, 0x00,
	}
	kf, err := Decode(FormatFloatLinear, 2, payload)
	if err != nil {
		t.Fatal(err)
	}
	keys, ok := kf.(FloatLinear)
	if !ok || len(keys) != 2 {
		t.Fatalf("Decode() = %#v, want FloatLinear of length 2", kf)
	}
	if keys[0].Frame != 0 || keys[0].Value != 1.0 || keys[1].Frame != 10 || keys[1].Value != 2.0 {
		t.Errorf("keyframes = %+v, want [(0,1.0),(10,2.0)]", keys)
	}

	interp, err := FormatFloatLinear.Interpolation()
	if err != nil {
		t.Fatal(err)
	}
	if interp != InterpLinear {
		t.Errorf("Interpolation() = %v, want InterpLinear", interp)
	}

	channels, err := ChannelsFor(EntryFormatCoord)
	if err != nil {
		t.Fatal(err)
	}
	const curveIndex = 3
	if channels[curveIndex] != ChannelOpacity {
		t.Errorf("Coord channel[%d] = %v, want ChannelOpacity", curveIndex, channels[curveIndex])
	}
}

func TestInterpString(t *testing.T) {
	for _, tt := range []struct {
		i    Interp
		want string
	}{
		{InterpNone, "None"},
		{InterpLinear, "Linear"},
		{InterpBezier, "Bezier"},
		{Interp(99), "Unknown"},
	} {
		if got := tt.i.String(); got != tt.want {
			t.Errorf("Interp(%d).String() = %q, want %q", tt.i, got, tt.want)
		}
	}
}
