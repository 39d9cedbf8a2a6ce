package duplication

// The interfaces in this file are the contract this package needs from the
// display-duplication subsystem and the OS windowing layer. The Windows
// implementation talks to DXGI/D3D11; tests use in-memory fakes.
//
// Every value returned by a collaborator carries one native reference that
// the receiver must Release exactly once. Failures are reported as HRESULT
// errors so they can be classified with errors.Is.

// Driver creates DXGI factories.
type Driver interface {
	NewFactory() (Factory, error)
}

// Factory enumerates graphics adapters.
type Factory interface {
	Release()
	// EnumAdapter returns the adapter at index, or HRNotFound past the end.
	EnumAdapter(index int) (Adapter, error)
}

// Adapter is one graphics device.
type Adapter interface {
	Release()
	// EnumOutput returns the output at index, or HRNotFound past the end.
	EnumOutput(index int) (Output, error)
	// CreateDevice creates a D3D11 device and its immediate context.
	CreateDevice() (Device, DeviceContext, error)
}

// Output is one display attached to an adapter.
type Output interface {
	Release()
	Desc() (OutputDesc, error)
	// DuplicateOutput starts duplicating this output on dev. The returned
	// Device is the reference to use from now on; the driver may hand back a
	// different reference than dev. The caller keeps its reference to dev.
	DuplicateOutput(dev Device) (Duplication, Device, error)
}

// Device creates GPU resources.
type Device interface {
	Release()
	CreateTexture2D(desc TextureDesc) (Texture, error)
}

// DeviceContext issues copy and map commands.
type DeviceContext interface {
	Release()
	CopyResource(dst, src Texture)
	Map(tex Texture) (MappedSurface, error)
	Unmap(tex Texture)
}

// Duplication is a duplicated output.
type Duplication interface {
	Release()
	// AcquireNextFrame waits up to timeoutMs for a new desktop image.
	AcquireNextFrame(timeoutMs uint32) (Texture, error)
	// ReleaseFrame hands the acquired frame back to the driver.
	ReleaseFrame() error
}

// Texture is a 2D GPU resource.
type Texture interface {
	Release()
	Desc() TextureDesc
	SetEvictionPriority(priority uint32)
}

// Windowing answers questions about monitors.
type Windowing interface {
	// IsPrimaryMonitor reports whether monitor is the primary display.
	IsPrimaryMonitor(monitor uintptr) bool
}

// Rotation is DXGI_MODE_ROTATION.
type Rotation uint32

const (
	// RotationUnspecified is reported by some drivers; frames are treated
	// as unrotated.
	RotationUnspecified Rotation = 0
	// RotationIdentity means the texture is already in desktop orientation.
	RotationIdentity Rotation = 1
	// Rotation90 means the output is turned a quarter turn clockwise.
	Rotation90 Rotation = 2
	// Rotation180 means the output is upside down.
	Rotation180 Rotation = 3
	// Rotation270 means the output is turned a quarter turn counterclockwise.
	Rotation270 Rotation = 4
)

// Swapped reports whether the display is rotated a quarter turn, so its
// logical width and height are the texture's height and width.
func (r Rotation) Swapped() bool {
	return r == Rotation90 || r == Rotation270
}

func (r Rotation) String() string {
	switch r {
	case RotationUnspecified:
		return "unspecified"
	case RotationIdentity:
		return "identity"
	case Rotation90:
		return "rotate90"
	case Rotation180:
		return "rotate180"
	case Rotation270:
		return "rotate270"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r Rotation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Rect is a rectangle in virtual desktop coordinates.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int { return int(r.Right - r.Left) }

// Height returns the vertical extent of r.
func (r Rect) Height() int { return int(r.Bottom - r.Top) }

// OutputDesc mirrors DXGI_OUTPUT_DESC.
type OutputDesc struct {
	DeviceName         string
	DesktopCoordinates Rect
	AttachedToDesktop  bool
	Rotation           Rotation
	Monitor            uintptr // HMONITOR
}

// D3D11 texture description values used for the staging copy.
const (
	UsageDefault  uint32 = 0
	UsageStaging  uint32 = 3
	CPUAccessRead uint32 = 0x20000

	FormatB8G8R8A8 uint32 = 87

	// ResourcePriorityMaximum is DXGI_RESOURCE_PRIORITY_MAXIMUM.
	ResourcePriorityMaximum uint32 = 0xc8000000
)

// TextureDesc mirrors D3D11_TEXTURE2D_DESC.
type TextureDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// stagingDesc turns a frame texture description into one for a
// CPU-readable copy target.
func stagingDesc(frame TextureDesc) TextureDesc {
	d := frame
	d.Usage = UsageStaging
	d.BindFlags = 0
	d.CPUAccessFlags = CPUAccessRead
	d.MiscFlags = 0
	return d
}

// MappedSurface is a texture mapped into CPU memory. Data is only valid
// until the texture is unmapped.
type MappedSurface struct {
	Data     []byte
	RowPitch int
}
