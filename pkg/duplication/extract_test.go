package duplication

import (
	"bytes"
	"testing"
)

// markerFrame builds a mapped frame of w x h marker pixels with pad bytes
// after every row.
func markerFrame(w, h, pad int, rot Rotation) MappedFrame {
	tex := newMarkerTexture(&ref{}, w, h, pad)
	return MappedFrame{Data: tex.data, Pitch: tex.pitch, Width: w, Height: h, Rotation: rot}
}

// packed re-wraps an extracted buffer as a tightly packed mapped frame.
func packed(buf []byte, size Size, rot Rotation) MappedFrame {
	return MappedFrame{Data: buf, Pitch: size.Width * BytesPerPixel, Width: size.Width, Height: size.Height, Rotation: rot}
}

func TestExtractIdentity(t *testing.T) {
	for _, rot := range []Rotation{RotationIdentity, RotationUnspecified} {
		for _, pad := range []int{0, 12} {
			f := markerFrame(5, 3, pad, rot)
			buf, size, err := Extract(nil, f)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if size != (Size{Width: 5, Height: 3}) {
				t.Fatalf("size = %+v", size)
			}
			px := BytesToPixels(buf)
			for y := 0; y < 3; y++ {
				for x := 0; x < 5; x++ {
					if got := px[y*5+x]; got != marker(x, y) {
						t.Fatalf("rot=%v pad=%d (%d,%d) = %+v", rot, pad, x, y, got)
					}
				}
			}
		}
	}
}

func TestExtract180(t *testing.T) {
	f := markerFrame(4, 3, 4, Rotation180)
	buf, size, err := Extract(nil, f)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if size != (Size{Width: 4, Height: 3}) {
		t.Fatalf("size = %+v", size)
	}
	px := BytesToPixels(buf)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			if got, want := px[r*4+c], marker(3-c, 2-r); got != want {
				t.Fatalf("(r%d,c%d) = %+v, want %+v", r, c, got, want)
			}
		}
	}

	// Rotating by 180 twice restores the original.
	back, _, err := Extract(nil, packed(buf, size, Rotation180))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	orig, _, _ := Extract(nil, markerFrame(4, 3, 0, RotationIdentity))
	if !bytes.Equal(back, orig) {
		t.Fatal("180 applied twice did not restore the frame")
	}
}

func TestExtract90And270(t *testing.T) {
	const w, h = 5, 3

	buf90, size90, err := Extract(nil, markerFrame(w, h, 8, Rotation90))
	if err != nil {
		t.Fatalf("Extract 90: %v", err)
	}
	if size90 != (Size{Width: h, Height: w}) {
		t.Fatalf("90 size = %+v", size90)
	}
	px := BytesToPixels(buf90)
	for r := 0; r < w; r++ {
		for c := 0; c < h; c++ {
			if got, want := px[r*h+c], marker(r, h-1-c); got != want {
				t.Fatalf("90 (r%d,c%d) = %+v, want %+v", r, c, got, want)
			}
		}
	}

	buf270, size270, err := Extract(nil, markerFrame(w, h, 0, Rotation270))
	if err != nil {
		t.Fatalf("Extract 270: %v", err)
	}
	px = BytesToPixels(buf270)
	for r := 0; r < w; r++ {
		for c := 0; c < h; c++ {
			if got, want := px[r*h+c], marker(w-1-r, c); got != want {
				t.Fatalf("270 (r%d,c%d) = %+v, want %+v", r, c, got, want)
			}
		}
	}

	orig, _, _ := Extract(nil, markerFrame(w, h, 0, RotationIdentity))

	back, _, err := Extract(nil, packed(buf90, size90, Rotation270))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(back, orig) {
		t.Fatal("270 after 90 did not restore the frame")
	}
	back, _, err = Extract(nil, packed(buf270, size270, Rotation90))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(back, orig) {
		t.Fatal("90 after 270 did not restore the frame")
	}
}

func TestExtractReusesDestination(t *testing.T) {
	f := markerFrame(2, 2, 0, RotationIdentity)
	dst := make([]byte, 0, 64)
	buf, _, err := Extract(dst, f)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if &buf[0] != &dst[:1][0] {
		t.Fatal("expected destination buffer to be reused")
	}
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
}

func TestExtractRejectsMalformedFrames(t *testing.T) {
	good := markerFrame(3, 2, 0, RotationIdentity)
	tests := []struct {
		name string
		f    MappedFrame
	}{
		{"zero width", MappedFrame{Data: good.Data, Pitch: good.Pitch, Width: 0, Height: 2}},
		{"negative height", MappedFrame{Data: good.Data, Pitch: good.Pitch, Width: 3, Height: -1}},
		{"short pitch", MappedFrame{Data: good.Data, Pitch: 8, Width: 3, Height: 2}},
		{"short data", MappedFrame{Data: good.Data[:len(good.Data)-1], Pitch: good.Pitch, Width: 3, Height: 2, Rotation: Rotation90}},
	}
	for _, tt := range tests {
		if _, _, err := Extract(nil, tt.f); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestPixelByteViews(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	px := BytesToPixels(raw)
	if len(px) != 2 || px[1] != (BGRA8{B: 5, G: 6, R: 7, A: 8}) {
		t.Fatalf("BytesToPixels = %+v", px)
	}
	if !bytes.Equal(PixelsToBytes(px), raw) {
		t.Fatal("PixelsToBytes did not round trip")
	}
	if len(BytesToPixels(nil)) != 0 || len(PixelsToBytes(nil)) != 0 {
		t.Fatal("expected empty views")
	}
	if BytesPerPixel != 4 {
		t.Fatalf("BytesPerPixel = %d", BytesPerPixel)
	}
}
