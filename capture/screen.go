package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

var errUnsupported = errors.New("not supported on this platform")

// screen はディスプレイのキャプチャを kbinani/screenshot で行います。
type screen struct{}

// ScreenBounds は全アクティブディスプレイを合わせた矩形を返します。
func (screen) ScreenBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, errors.New("no active display")
	}
	var bounds image.Rectangle
	for i := 0; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	return bounds, nil
}

func (screen) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("capture rect: %w", err)
	}
	return img, nil
}
