package duplication

import "fmt"

// MappedFrame describes a mapped staging texture. Width and Height are the
// texture's own (unrotated) dimensions; Data is laid out in that orientation
// with Pitch bytes between rows.
type MappedFrame struct {
	Data     []byte
	Pitch    int
	Width    int
	Height   int
	Rotation Rotation
}

// OutputSize returns the size of the extracted frame, which is the texture
// size with width and height swapped for quarter-turn rotations.
func (f MappedFrame) OutputSize() Size {
	if f.Rotation.Swapped() {
		return Size{Width: f.Height, Height: f.Width}
	}
	return Size{Width: f.Width, Height: f.Height}
}

func (f MappedFrame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	rowBytes := f.Width * BytesPerPixel
	if f.Pitch < rowBytes {
		return fmt.Errorf("row pitch %d smaller than row size %d", f.Pitch, rowBytes)
	}
	if need := (f.Height-1)*f.Pitch + rowBytes; len(f.Data) < need {
		return fmt.Errorf("mapped data is %d bytes, need %d", len(f.Data), need)
	}
	return nil
}

// Extract copies a mapped frame into a packed BGRA buffer in the display's
// orientation. dst is reused when it has enough capacity.
func Extract(dst []byte, f MappedFrame) ([]byte, Size, error) {
	if err := f.validate(); err != nil {
		return nil, Size{}, err
	}
	size := f.OutputSize()
	n := size.Bytes()
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	switch f.Rotation {
	case Rotation90:
		extract90(dst, f)
	case Rotation180:
		extract180(dst, f)
	case Rotation270:
		extract270(dst, f)
	default:
		extractIdentity(dst, f)
	}
	return dst, size, nil
}

func extractIdentity(dst []byte, f MappedFrame) {
	rowBytes := f.Width * BytesPerPixel
	if f.Pitch == rowBytes {
		copy(dst, f.Data[:f.Height*rowBytes])
		return
	}
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*f.Pitch : y*f.Pitch+rowBytes]
		copy(dst[y*rowBytes:(y+1)*rowBytes], src)
	}
}

// extract90 undoes a 90 degree display rotation:
// dst(row r, col c) = src(row Height-1-c, col r).
func extract90(dst []byte, f MappedFrame) {
	dw := f.Height
	for r := 0; r < f.Width; r++ {
		sx := r * BytesPerPixel
		for c := 0; c < dw; c++ {
			s := (f.Height-1-c)*f.Pitch + sx
			d := (r*dw + c) * BytesPerPixel
			copy(dst[d:d+BytesPerPixel], f.Data[s:s+BytesPerPixel])
		}
	}
}

// extract180: dst(row r, col c) = src(row Height-1-r, col Width-1-c).
func extract180(dst []byte, f MappedFrame) {
	for r := 0; r < f.Height; r++ {
		srow := (f.Height - 1 - r) * f.Pitch
		for c := 0; c < f.Width; c++ {
			s := srow + (f.Width-1-c)*BytesPerPixel
			d := (r*f.Width + c) * BytesPerPixel
			copy(dst[d:d+BytesPerPixel], f.Data[s:s+BytesPerPixel])
		}
	}
}

// extract270 undoes a 270 degree display rotation:
// dst(row r, col c) = src(row c, col Width-1-r).
func extract270(dst []byte, f MappedFrame) {
	dw := f.Height
	for r := 0; r < f.Width; r++ {
		sx := (f.Width - 1 - r) * BytesPerPixel
		for c := 0; c < dw; c++ {
			s := c*f.Pitch + sx
			d := (r*dw + c) * BytesPerPixel
			copy(dst[d:d+BytesPerPixel], f.Data[s:s+BytesPerPixel])
		}
	}
}
