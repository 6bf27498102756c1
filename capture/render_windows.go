//go:build windows

package capture

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"ScheduledShot/focus"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	gdi32                = windows.NewLazySystemDLL("gdi32.dll")
	procPrintWindow      = user32.NewProc("PrintWindow")
	procCreateDIBSection = gdi32.NewProc("CreateDIBSection")
)

const (
	// 隠れている部分や DirectComposition の内容も描画させる
	pwRenderFullContent = 0x00000002
	dibRGBColors        = 0
)

// renderWindow は PrintWindow でウィンドウ全体をオフスクリーンのビットマップに描画します。
func renderWindow(hwnd win.HWND) (*image.RGBA, error) {
	bounds, err := focus.WindowRect(hwnd)
	if err != nil {
		return nil, err
	}
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window has no area: %v", bounds)
	}

	hDC := win.GetDC(hwnd)
	if hDC == 0 {
		return nil, fmt.Errorf("failed to get device context: %d", win.GetLastError())
	}
	defer win.ReleaseDC(hwnd, hDC)

	memDC := win.CreateCompatibleDC(hDC)
	if memDC == 0 {
		return nil, fmt.Errorf("failed to create compatible DC: %d", win.GetLastError())
	}
	defer win.DeleteDC(memDC)

	bi := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(width),
			BiHeight:      int32(-height), // 負の値でトップダウン
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}
	var bits unsafe.Pointer
	hBmp, _, _ := procCreateDIBSection.Call(
		uintptr(memDC),
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
		uintptr(unsafe.Pointer(&bits)),
		0,
		0)
	if hBmp == 0 || bits == nil {
		return nil, fmt.Errorf("failed to create DIB section: %d", win.GetLastError())
	}
	defer win.DeleteObject(win.HGDIOBJ(hBmp))

	old := win.SelectObject(memDC, win.HGDIOBJ(hBmp))
	if old == 0 {
		return nil, fmt.Errorf("failed to select bitmap: %d", win.GetLastError())
	}
	defer win.SelectObject(memDC, old)

	r, _, _ := procPrintWindow.Call(uintptr(hwnd), uintptr(memDC), pwRenderFullContent)
	if r == 0 {
		return nil, fmt.Errorf("PrintWindow failed: %d", win.GetLastError())
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	src := unsafe.Slice((*byte)(bits), width*height*4)
	// BGRA から RGBA へ
	for i := 0; i < len(src); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = src[i+2], src[i+1], src[i], 255
	}
	return img, nil
}
