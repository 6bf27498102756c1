//go:build !windows

package capture

import "image"

// unsupported は Windows 以外で使う Platform です。画面キャプチャだけが動作します。
type unsupported struct {
	screen
}

// NewPlatform は実行中の OS 用の Platform を返します。
func NewPlatform() Platform {
	return unsupported{}
}

func (unsupported) Windows() WindowSeq { return func(func(Window) bool) {} }
func (unsupported) ProcessName(Handle) (string, error) { return "", errUnsupported }
func (unsupported) Foreground() Handle { return 0 }
func (unsupported) SetForeground(Handle) bool { return false }
func (unsupported) IsWindow(Handle) bool { return false }
func (unsupported) Placement(Handle) (Placement, error) { return PlacementNormal, errUnsupported }
func (unsupported) Restore(Handle) error { return errUnsupported }
func (unsupported) JoinInput(Handle) (func() error, error) { return nil, errUnsupported }
func (unsupported) Render(Handle) (*image.RGBA, error) { return nil, errUnsupported }
func (unsupported) WindowRect(Handle) (image.Rectangle, error) { return image.Rectangle{}, errUnsupported }
func (unsupported) ClientRect(Handle) (image.Rectangle, error) { return image.Rectangle{}, errUnsupported }
