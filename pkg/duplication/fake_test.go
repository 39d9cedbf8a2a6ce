package duplication

import (
	"io"
	"log/slog"
	"testing"
)

// fakeWorld is an in-memory display subsystem. Every object it hands out is
// reference tracked so tests can assert nothing leaks or is released twice.
type fakeWorld struct {
	t        *testing.T
	adapters [][]*fakeOutputSpec
	primary  uintptr

	factoryErr error
	deviceErr  error
	mapErr     error
	pitchPad   int

	refs          int
	devices       int
	acquired      int
	releasedFrame int
	stagingMade   int
}

type fakeOutputSpec struct {
	name     string
	detached bool
	monitor  uintptr
	rotation Rotation
	// Texture (unrotated) dimensions.
	texW, texH int
	dupErr     error
	// Scripted AcquireNextFrame results; nil entries deliver a frame. An
	// exhausted script delivers frames.
	script []error
}

func newFakeWorld(t *testing.T, primary uintptr, adapters ...[]*fakeOutputSpec) *fakeWorld {
	return &fakeWorld{t: t, primary: primary, adapters: adapters}
}

func (w *fakeWorld) driver() Driver       { return &fakeDriver{w: w} }
func (w *fakeWorld) windowing() Windowing { return &fakeWindowing{w: w} }

func (w *fakeWorld) newManager(timeoutMs uint32, opts ...Option) (*Manager, error) {
	opts = append([]Option{WithDriver(w.driver(), w.windowing()), WithLogger(discardLogger())}, opts...)
	return New(timeoutMs, opts...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ref is one tracked native reference.
type ref struct {
	w        *fakeWorld
	name     string
	released bool
}

func (w *fakeWorld) track(name string) *ref {
	w.refs++
	return &ref{w: w, name: name}
}

func (r *ref) Release() {
	if r.released {
		r.w.t.Errorf("%s released twice", r.name)
		return
	}
	r.released = true
	r.w.refs--
}

func (w *fakeWorld) assertNoLeaks() {
	w.t.Helper()
	if w.refs != 0 {
		w.t.Fatalf("%d native references still held", w.refs)
	}
}

type fakeWindowing struct{ w *fakeWorld }

func (f *fakeWindowing) IsPrimaryMonitor(monitor uintptr) bool {
	return monitor != 0 && monitor == f.w.primary
}

type fakeDriver struct{ w *fakeWorld }

func (d *fakeDriver) NewFactory() (Factory, error) {
	if d.w.factoryErr != nil {
		return nil, d.w.factoryErr
	}
	return &fakeFactory{ref: d.w.track("factory"), w: d.w}, nil
}

type fakeFactory struct {
	*ref
	w *fakeWorld
}

func (f *fakeFactory) EnumAdapter(i int) (Adapter, error) {
	if i >= len(f.w.adapters) {
		return nil, HRNotFound
	}
	return &fakeAdapter{ref: f.w.track("adapter"), w: f.w, outputs: f.w.adapters[i]}, nil
}

type fakeAdapter struct {
	*ref
	w       *fakeWorld
	outputs []*fakeOutputSpec
}

func (a *fakeAdapter) EnumOutput(i int) (Output, error) {
	if i >= len(a.outputs) {
		return nil, HRNotFound
	}
	return &fakeOutput{ref: a.w.track("output"), w: a.w, spec: a.outputs[i]}, nil
}

func (a *fakeAdapter) CreateDevice() (Device, DeviceContext, error) {
	if a.w.deviceErr != nil {
		return nil, nil, a.w.deviceErr
	}
	a.w.devices++
	dev := &fakeDevice{ref: a.w.track("device"), w: a.w, adapterDevice: a.w.devices}
	return dev, &fakeContext{ref: a.w.track("context"), w: a.w}, nil
}

type fakeOutput struct {
	*ref
	w    *fakeWorld
	spec *fakeOutputSpec
}

func (o *fakeOutput) Desc() (OutputDesc, error) {
	w, h := o.spec.texW, o.spec.texH
	if o.spec.rotation.Swapped() {
		w, h = h, w
	}
	return OutputDesc{
		DeviceName:         o.spec.name,
		DesktopCoordinates: Rect{Right: int32(w), Bottom: int32(h)},
		AttachedToDesktop:  !o.spec.detached,
		Rotation:           o.spec.rotation,
		Monitor:            o.spec.monitor,
	}, nil
}

func (o *fakeOutput) DuplicateOutput(dev Device) (Duplication, Device, error) {
	if o.spec.dupErr != nil {
		return nil, nil, o.spec.dupErr
	}
	d := dev.(*fakeDevice)
	next := &fakeDevice{ref: o.w.track("device"), w: o.w, adapterDevice: d.adapterDevice, generation: d.generation + 1}
	return &fakeDuplication{ref: o.w.track("duplication"), w: o.w, spec: o.spec}, next, nil
}

type fakeDevice struct {
	*ref
	w             *fakeWorld
	adapterDevice int
	generation    int
	textures      int
}

func (d *fakeDevice) CreateTexture2D(desc TextureDesc) (Texture, error) {
	if desc.Usage != UsageStaging || desc.CPUAccessFlags != CPUAccessRead || desc.BindFlags != 0 {
		d.w.t.Errorf("staging texture created with desc %+v", desc)
	}
	d.textures++
	d.w.stagingMade++
	pitch := int(desc.Width)*BytesPerPixel + d.w.pitchPad
	return &fakeTexture{
		ref:   d.w.track("staging"),
		desc:  desc,
		pitch: pitch,
		data:  make([]byte, pitch*int(desc.Height)),
	}, nil
}

type fakeContext struct {
	*ref
	w *fakeWorld
}

func (c *fakeContext) CopyResource(dst, src Texture) {
	d, s := dst.(*fakeTexture), src.(*fakeTexture)
	rowBytes := int(s.desc.Width) * BytesPerPixel
	for y := 0; y < int(s.desc.Height); y++ {
		copy(d.data[y*d.pitch:y*d.pitch+rowBytes], s.data[y*s.pitch:y*s.pitch+rowBytes])
	}
}

func (c *fakeContext) Map(tex Texture) (MappedSurface, error) {
	if c.w.mapErr != nil {
		return MappedSurface{}, c.w.mapErr
	}
	t := tex.(*fakeTexture)
	t.mapped = true
	return MappedSurface{Data: t.data, RowPitch: t.pitch}, nil
}

func (c *fakeContext) Unmap(tex Texture) {
	tex.(*fakeTexture).mapped = false
}

type fakeDuplication struct {
	*ref
	w    *fakeWorld
	spec *fakeOutputSpec
}

func (d *fakeDuplication) AcquireNextFrame(uint32) (Texture, error) {
	if len(d.spec.script) > 0 {
		err := d.spec.script[0]
		d.spec.script = d.spec.script[1:]
		if err != nil {
			return nil, err
		}
	}
	d.w.acquired++
	return newMarkerTexture(d.w.track("frame"), d.spec.texW, d.spec.texH, 8), nil
}

func (d *fakeDuplication) ReleaseFrame() error {
	d.w.releasedFrame++
	return nil
}

type fakeTexture struct {
	*ref
	desc   TextureDesc
	pitch  int
	data   []byte
	mapped bool
}

func (t *fakeTexture) Desc() TextureDesc { return t.desc }
func (t *fakeTexture) SetEvictionPriority(uint32) {}

// newMarkerTexture builds a w x h frame texture whose pixel (x, y) is
// marker(x, y), with pad bytes of garbage after every row.
func newMarkerTexture(r *ref, w, h, pad int) *fakeTexture {
	pitch := w*BytesPerPixel + pad
	data := make([]byte, pitch*h)
	for i := range data {
		data[i] = 0xEE
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := marker(x, y)
			copy(data[y*pitch+x*BytesPerPixel:], []byte{p.B, p.G, p.R, p.A})
		}
	}
	return &fakeTexture{
		ref:   r,
		desc:  TextureDesc{Width: uint32(w), Height: uint32(h), Format: FormatB8G8R8A8, MipLevels: 1, ArraySize: 1, SampleCount: 1},
		pitch: pitch,
		data:  data,
	}
}

func marker(x, y int) BGRA8 {
	return BGRA8{B: uint8(x), G: uint8(y), R: uint8(x ^ y), A: 0xFF}
}
