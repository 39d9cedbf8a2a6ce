//go:build windows

package duplication

import (
	"fmt"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	modDXGI  = windows.NewLazySystemDLL("dxgi.dll")
	modD3D11 = windows.NewLazySystemDLL("d3d11.dll")

	procCreateDXGIFactory1 = modDXGI.NewProc("CreateDXGIFactory1")
	procD3D11CreateDevice  = modD3D11.NewProc("D3D11CreateDevice")
)

var (
	iidIDXGIFactory1   = ole.NewGUID("{770aae78-f26f-4dba-a829-253c83d1b387}")
	iidIDXGIOutput1    = ole.NewGUID("{00cddea8-939b-4b83-a340-a685226666cc}")
	iidIDXGIDevice1    = ole.NewGUID("{77db970f-6276-48ba-ba28-070143b4392c}")
	iidID3D11Device    = ole.NewGUID("{db6f6ddb-ac77-4e88-8253-819df9bbf140}")
	iidID3D11Texture2D = ole.NewGUID("{6f15aaf2-d208-4e89-9ab4-489535d34f9c}")
)

const (
	d3dDriverTypeUnknown         = 0
	d3d11SDKVersion              = 7
	d3d11CreateDeviceBGRASupport = 0x20
	d3d11MapRead                 = 1
)

// dxgiOutputDesc matches DXGI_OUTPUT_DESC.
type dxgiOutputDesc struct {
	DeviceName        [32]uint16
	Left              int32
	Top               int32
	Right             int32
	Bottom            int32
	AttachedToDesktop int32
	Rotation          uint32
	Monitor           uintptr
}

// dxgiOutDuplFrameInfo matches DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

// d3d11MappedSubresource matches D3D11_MAPPED_SUBRESOURCE.
type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

// TextureDesc has the same layout as D3D11_TEXTURE2D_DESC and is passed to
// the driver directly.
var _ [44]byte = [unsafe.Sizeof(TextureDesc{})]byte{}

func platformDriver() (Driver, Windowing, error) {
	if err := modDXGI.Load(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	if err := modD3D11.Load(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	return dxgiDriver{}, user32Windowing{}, nil
}

// PlatformDriver returns the display driver and windowing layer for the
// current OS.
func PlatformDriver() (Driver, Windowing, error) {
	return platformDriver()
}

type dxgiDriver struct{}

func (dxgiDriver) NewFactory() (Factory, error) {
	var f uintptr
	hr, _, _ := procCreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(iidIDXGIFactory1)),
		uintptr(unsafe.Pointer(&f)),
	)
	if HRESULT(hr).Failed() {
		return nil, fmt.Errorf("CreateDXGIFactory1: %w", HRESULT(hr))
	}
	return &dxgiFactory{comObject{ptr: f}}, nil
}

type dxgiFactory struct{ comObject }

func (f *dxgiFactory) EnumAdapter(index int) (Adapter, error) {
	var a uintptr
	if err := f.call(vtblEnumAdapters1, uintptr(index), uintptr(unsafe.Pointer(&a))); err != nil {
		return nil, err
	}
	return &dxgiAdapter{comObject{ptr: a}}, nil
}

type dxgiAdapter struct{ comObject }

func (a *dxgiAdapter) EnumOutput(index int) (Output, error) {
	var o uintptr
	if err := a.call(vtblEnumOutputs, uintptr(index), uintptr(unsafe.Pointer(&o))); err != nil {
		return nil, err
	}
	return &dxgiOutput{comObject{ptr: o}}, nil
}

func (a *dxgiAdapter) CreateDevice() (Device, DeviceContext, error) {
	var device, context uintptr
	var level uint32
	hr, _, _ := procD3D11CreateDevice.Call(
		a.ptr,
		uintptr(d3dDriverTypeUnknown), // must be UNKNOWN when an adapter is given
		0,
		uintptr(d3d11CreateDeviceBGRASupport),
		0, // default feature levels
		0,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&level)),
		uintptr(unsafe.Pointer(&context)),
	)
	if HRESULT(hr).Failed() {
		return nil, nil, fmt.Errorf("D3D11CreateDevice: %w", HRESULT(hr))
	}
	return &d3dDevice{comObject{ptr: device}}, &d3dContext{comObject{ptr: context}}, nil
}

type dxgiOutput struct{ comObject }

func (o *dxgiOutput) Desc() (OutputDesc, error) {
	var d dxgiOutputDesc
	if err := o.call(vtblOutputGetDesc, uintptr(unsafe.Pointer(&d))); err != nil {
		return OutputDesc{}, err
	}
	return OutputDesc{
		DeviceName: windows.UTF16ToString(d.DeviceName[:]),
		DesktopCoordinates: Rect{
			Left: d.Left, Top: d.Top, Right: d.Right, Bottom: d.Bottom,
		},
		AttachedToDesktop: d.AttachedToDesktop != 0,
		Rotation:          Rotation(d.Rotation),
		Monitor:           d.Monitor,
	}, nil
}

func (o *dxgiOutput) DuplicateOutput(dev Device) (Duplication, Device, error) {
	d, ok := dev.(*d3dDevice)
	if !ok {
		return nil, nil, fmt.Errorf("DuplicateOutput: unexpected device type %T", dev)
	}

	output1, err := o.queryInterface(iidIDXGIOutput1)
	if err != nil {
		return nil, nil, fmt.Errorf("QueryInterface IDXGIOutput1: %w", err)
	}
	defer output1.Release()

	dxgiDevice, err := d.queryInterface(iidIDXGIDevice1)
	if err != nil {
		return nil, nil, fmt.Errorf("QueryInterface IDXGIDevice1: %w", err)
	}
	defer dxgiDevice.Release()

	var dup uintptr
	if err := output1.call(vtblDuplicateOutput, dxgiDevice.ptr, uintptr(unsafe.Pointer(&dup))); err != nil {
		return nil, nil, err
	}

	next, err := dxgiDevice.queryInterface(iidID3D11Device)
	if err != nil {
		comObject{ptr: dup}.Release()
		return nil, nil, fmt.Errorf("QueryInterface ID3D11Device: %w", err)
	}
	return &dxgiDuplication{comObject{ptr: dup}}, &d3dDevice{next}, nil
}

type d3dDevice struct{ comObject }

func (d *d3dDevice) CreateTexture2D(desc TextureDesc) (Texture, error) {
	var tex uintptr
	if err := d.call(vtblCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&tex)),
	); err != nil {
		return nil, err
	}
	return &d3dTexture{comObject{ptr: tex}}, nil
}

type d3dContext struct{ comObject }

func texturePtr(t Texture) uintptr {
	if dt, ok := t.(*d3dTexture); ok {
		return dt.ptr
	}
	return 0
}

// CopyResource has no result; failures surface on the following Map.
func (c *d3dContext) CopyResource(dst, src Texture) {
	c.callVoid(vtblCopyResource, texturePtr(dst), texturePtr(src))
}

func (c *d3dContext) Map(tex Texture) (MappedSurface, error) {
	ptr := texturePtr(tex)
	if ptr == 0 {
		return MappedSurface{}, HRInvalidCall
	}
	var m d3d11MappedSubresource
	if err := c.call(vtblMap, ptr, 0, d3d11MapRead, 0, uintptr(unsafe.Pointer(&m))); err != nil {
		return MappedSurface{}, err
	}
	if m.PData == 0 {
		c.Unmap(tex)
		return MappedSurface{}, HRInvalidCall
	}
	height := int(tex.Desc().Height)
	return MappedSurface{
		Data:     unsafe.Slice((*byte)(unsafe.Pointer(m.PData)), int(m.RowPitch)*height),
		RowPitch: int(m.RowPitch),
	}, nil
}

func (c *d3dContext) Unmap(tex Texture) {
	c.callVoid(vtblUnmap, texturePtr(tex), 0)
}

type dxgiDuplication struct{ comObject }

func (d *dxgiDuplication) AcquireNextFrame(timeoutMs uint32) (Texture, error) {
	var info dxgiOutDuplFrameInfo
	var resource uintptr
	if err := d.call(vtblAcquireNextFrame,
		uintptr(timeoutMs),
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&resource)),
	); err != nil {
		return nil, err
	}

	res := comObject{ptr: resource}
	tex, err := res.queryInterface(iidID3D11Texture2D)
	res.Release()
	if err != nil {
		// The frame is held by the driver until released.
		d.callVoid(vtblReleaseFrame)
		return nil, fmt.Errorf("QueryInterface ID3D11Texture2D: %w", err)
	}
	return &d3dTexture{tex}, nil
}

func (d *dxgiDuplication) ReleaseFrame() error {
	return d.call(vtblReleaseFrame)
}

type d3dTexture struct{ comObject }

func (t *d3dTexture) Desc() TextureDesc {
	var desc TextureDesc
	t.callVoid(vtblTextureGetDesc, uintptr(unsafe.Pointer(&desc)))
	return desc
}

func (t *d3dTexture) SetEvictionPriority(priority uint32) {
	t.callVoid(vtblSetEvictionPriority, uintptr(priority))
}
