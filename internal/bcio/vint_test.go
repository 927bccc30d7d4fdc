package bcio

import "testing"

func roundTrip(t *testing.T, v int32) {
	t.Helper()
	buf, err := EncodeVint(nil, v)
	if err != nil {
		t.Fatalf("EncodeVint(%d): %v", v, err)
	}
	got, n, err := DecodeVint(buf)
	if err != nil {
		t.Fatalf("DecodeVint(%v): %v", buf, err)
	}
	if n != len(buf) {
		t.Fatalf("DecodeVint(%v) consumed %d bytes, want %d", buf, n, len(buf))
	}
	if got != v {
		t.Fatalf("round-trip(%d) = %d", v, got)
	}
}

func TestVintRoundTripSamples(t *testing.T) {
	samples := []int32{
		0, 1, 0x7F, 0x80, 0x1FFF, 0x2000, 0x2001, 0x1FFFFFF, 0x1FFFFFFF,
		-1, -0x1FFF, -0x2000, -0x2001, -0x1FFFFFFF,
	}
	for _, v := range samples {
		roundTrip(t, v)
	}
}

func TestVintByteFormSelection(t *testing.T) {
	cases := []struct {
		v       int32
		wantLen int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x1FFF, 2},
		{0x2000, 4},
		{-1, 2},
		{-0x1FFF, 2},
		{-0x2000, 4}, // see EncodeVint's doc comment on the symmetric-threshold correction
	}
	for _, c := range cases {
		buf, err := EncodeVint(nil, c.v)
		if err != nil {
			t.Fatalf("EncodeVint(%d): %v", c.v, err)
		}
		if len(buf) != c.wantLen {
			t.Fatalf("EncodeVint(%d) used %d bytes, want %d", c.v, len(buf), c.wantLen)
		}
	}
}

func TestVintOverflowIsWriterError(t *testing.T) {
	if _, err := EncodeVint(nil, 0x20000000); err == nil {
		t.Fatal("expected writer-overflow error for magnitude 0x20000000")
	}
	if _, err := EncodeVint(nil, -0x20000000); err == nil {
		t.Fatal("expected writer-overflow error for magnitude -0x20000000")
	}
}

func TestVintBijectiveAcrossRange(t *testing.T) {
	// Exhaustively checking (-0x20000000, 0x20000000) is impractical; sample
	// densely around every form boundary instead.
	for v := int32(-300); v <= 300; v++ {
		roundTrip(t, v)
	}
	for _, base := range []int32{0x80, 0x2000, 0x20000000} {
		for d := int32(-2); d <= 2; d++ {
			if base+d < 0x20000000 && base+d > -0x20000000 {
				roundTrip(t, base+d)
				roundTrip(t, -(base + d))
			}
		}
	}
}
