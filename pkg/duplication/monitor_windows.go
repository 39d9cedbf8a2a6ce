//go:build windows

package duplication

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32           = windows.NewLazySystemDLL("user32.dll")
	procGetMonitorInfoW = modUser32.NewProc("GetMonitorInfoW")
)

const monitorInfoFPrimary = 0x1

// monitorInfo matches MONITORINFO.
type monitorInfo struct {
	CbSize    uint32
	RcMonitor windows.Rect
	RcWork    windows.Rect
	DwFlags   uint32
}

type user32Windowing struct{}

func (user32Windowing) IsPrimaryMonitor(monitor uintptr) bool {
	if monitor == 0 {
		return false
	}
	var mi monitorInfo
	mi.CbSize = uint32(unsafe.Sizeof(mi))
	ret, _, _ := procGetMonitorInfoW.Call(monitor, uintptr(unsafe.Pointer(&mi)))
	if ret == 0 {
		return false
	}
	return mi.DwFlags&monitorInfoFPrimary != 0
}
