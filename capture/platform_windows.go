//go:build windows

package capture

import (
	"image"

	"github.com/lxn/win"

	"ScheduledShot/focus"
)

// windowsPlatform は Win32 API による Platform です。
type windowsPlatform struct {
	screen
}

// NewPlatform は実行中の OS 用の Platform を返します。
func NewPlatform() Platform {
	return windowsPlatform{}
}

func (windowsPlatform) Windows() WindowSeq {
	return func(yield func(Window) bool) {
		focus.EnumVisible(func(hwnd win.HWND, title string) bool {
			return yield(Window{Handle: Handle(hwnd), Title: title})
		})
	}
}

func (windowsPlatform) ProcessName(h Handle) (string, error) {
	return focus.ProcessImageName(win.HWND(h))
}

func (windowsPlatform) Foreground() Handle {
	return Handle(focus.Foreground())
}

func (windowsPlatform) SetForeground(h Handle) bool {
	return focus.SetForeground(win.HWND(h))
}

func (windowsPlatform) IsWindow(h Handle) bool {
	return focus.IsWindow(win.HWND(h))
}

func (windowsPlatform) Placement(h Handle) (Placement, error) {
	switch {
	case focus.IsMinimized(win.HWND(h)):
		return PlacementMinimized, nil
	case focus.IsMaximized(win.HWND(h)):
		return PlacementMaximized, nil
	}
	return PlacementNormal, nil
}

func (windowsPlatform) Restore(h Handle) error {
	focus.Restore(win.HWND(h))
	return nil
}

func (windowsPlatform) JoinInput(h Handle) (func() error, error) {
	return focus.AttachInput(win.HWND(h))
}

func (windowsPlatform) Render(h Handle) (*image.RGBA, error) {
	return renderWindow(win.HWND(h))
}

func (windowsPlatform) WindowRect(h Handle) (image.Rectangle, error) {
	return focus.WindowRect(win.HWND(h))
}

func (windowsPlatform) ClientRect(h Handle) (image.Rectangle, error) {
	return focus.ClientRect(win.HWND(h))
}
