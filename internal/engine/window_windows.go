//go:build windows

package engine

import (
	"syscall"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

const (
	dwmwaBorderColor  = 34
	dwmwaCaptionColor = 35
)

// decorateWindow paints the title bar and border with the scene clear color
// so the frame blends into the canvas.
func decorateWindow(window *glfw.Window, clear [4]float32) {
	hwnd := window.GetWin32Window()
	if hwnd == nil {
		return
	}

	colorBGR := colorRef(clear)
	for _, attr := range []uintptr{dwmwaBorderColor, dwmwaCaptionColor} {
		procDwmSetWindowAttribute.Call(
			uintptr(unsafe.Pointer(hwnd)),
			attr,
			uintptr(unsafe.Pointer(&colorBGR)),
			unsafe.Sizeof(colorBGR),
		)
	}
}
