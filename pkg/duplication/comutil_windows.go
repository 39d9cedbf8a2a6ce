//go:build windows

package duplication

import (
	"errors"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

// comObject is a raw COM interface pointer. Calls go straight through the
// vtable; the method indices below are fixed by the DXGI/D3D11 ABI.
type comObject struct {
	ptr uintptr
}

const (
	// IDXGIFactory1
	vtblEnumAdapters1 = 12
	// IDXGIAdapter
	vtblEnumOutputs = 7
	// IDXGIOutput / IDXGIOutput1
	vtblOutputGetDesc   = 7
	vtblDuplicateOutput = 22
	// IDXGIOutputDuplication
	vtblAcquireNextFrame = 8
	vtblReleaseFrame     = 14
	// ID3D11Device
	vtblCreateTexture2D = 5
	// ID3D11DeviceContext
	vtblMap          = 14
	vtblUnmap        = 15
	vtblCopyResource = 47
	// ID3D11Resource / ID3D11Texture2D
	vtblSetEvictionPriority = 8
	vtblTextureGetDesc      = 10
)

func (o comObject) unknown() *ole.IUnknown {
	return (*ole.IUnknown)(unsafe.Pointer(o.ptr))
}

// Release drops the interface reference.
func (o comObject) Release() {
	if o.ptr != 0 {
		o.unknown().Release()
	}
}

func (o comObject) vtblFn(idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(o.ptr))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// call invokes an HRESULT-returning vtable method.
func (o comObject) call(idx int, args ...uintptr) error {
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, o.ptr)
	all = append(all, args...)
	hr, _, _ := syscall.SyscallN(o.vtblFn(idx), all...)
	if HRESULT(hr).Failed() {
		return HRESULT(hr)
	}
	return nil
}

// callVoid invokes a vtable method with no return value.
func (o comObject) callVoid(idx int, args ...uintptr) {
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, o.ptr)
	all = append(all, args...)
	syscall.SyscallN(o.vtblFn(idx), all...)
}

// queryInterface returns a new reference to the iid interface of o.
func (o comObject) queryInterface(iid *ole.GUID) (comObject, error) {
	disp, err := o.unknown().QueryInterface(iid)
	if err != nil {
		return comObject{}, hresultOf(err)
	}
	return comObject{ptr: uintptr(unsafe.Pointer(disp))}, nil
}

func hresultOf(err error) error {
	var oe *ole.OleError
	if errors.As(err, &oe) {
		return HRESULT(oe.Code())
	}
	return err
}
