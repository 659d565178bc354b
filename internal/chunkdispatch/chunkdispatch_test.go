package chunkdispatch

import "testing"

func TestResolve(t *testing.T) {
	for _, tt := range []struct {
		typeString string
		want       Kind
	}{
		{TypeNull, KindNull},
		{TypePage, KindPage},
		{TypeIndex, KindIndex},
		{TypeAnm, KindAnm},
		{TypeBinary, KindBinary},
		{"nuccChunkModel", KindUnknown},
		{"", KindUnknown},
	} {
		if got := Resolve(tt.typeString); got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.typeString, got, tt.want)
		}
	}
}

func TestTypeStringRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNull, KindPage, KindIndex, KindAnm, KindBinary} {
		s := TypeString(k)
		if Resolve(s) != k {
			t.Errorf("Resolve(TypeString(%v)) = %v, want %v", k, Resolve(s), k)
		}
	}
}

func TestTypeStringPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("TypeString(KindUnknown) did not panic")
		}
	}()
	TypeString(KindUnknown)
}
