package duplication

import "unsafe"

// BGRA8 is one captured pixel: blue, green, red and alpha, one byte each.
// The in-memory layout matches DXGI_FORMAT_B8G8R8A8_UNORM.
type BGRA8 struct {
	B, G, R, A uint8
}

// BytesPerPixel is the size of one BGRA8 pixel.
const BytesPerPixel = int(unsafe.Sizeof(BGRA8{}))

// Size is the width and height of a frame in pixels.
type Size struct {
	Width  int
	Height int
}

// Pixels returns the number of pixels in a frame of this size.
func (s Size) Pixels() int { return s.Width * s.Height }

// Bytes returns the number of bytes in a packed BGRA frame of this size.
func (s Size) Bytes() int { return s.Pixels() * BytesPerPixel }

// BytesToPixels reinterprets a packed BGRA byte buffer as pixels without
// copying. Trailing bytes that do not form a whole pixel are ignored.
func BytesToPixels(b []byte) []BGRA8 {
	n := len(b) / BytesPerPixel
	if n == 0 {
		return []BGRA8{}
	}
	return unsafe.Slice((*BGRA8)(unsafe.Pointer(&b[0])), n)
}

// PixelsToBytes reinterprets pixels as their packed bytes without copying.
func PixelsToBytes(p []BGRA8) []byte {
	if len(p) == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&p[0])), len(p)*BytesPerPixel)
}
