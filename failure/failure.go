// Package failure はキャプチャ処理で返す失敗の種類を定義します。
package failure

import "errors"

// Kind は失敗の分類です。
type Kind string

const (
	KindNone                   Kind = ""
	KindInvalidConfiguration   Kind = "InvalidConfiguration"
	KindTargetNotFound         Kind = "TargetNotFound"
	KindFocusAcquisitionFailed Kind = "FocusAcquisitionFailed"
	KindRenderFailed           Kind = "RenderFailed"
	KindIOFailure              Kind = "IOFailure"
	KindInputFailed            Kind = "InputFailed"
	KindUnknown                Kind = "Unknown"
)

// 各種別の番兵エラー。呼び出し側は fmt.Errorf("%w: ...") で包んで返します。
var (
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrTargetNotFound         = errors.New("target window not found")
	ErrFocusAcquisitionFailed = errors.New("focus acquisition failed")
	ErrRenderFailed           = errors.New("render failed")
	ErrIOFailure              = errors.New("i/o failure")
	ErrInputFailed            = errors.New("synthetic input failed")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidConfiguration, KindInvalidConfiguration},
	{ErrTargetNotFound, KindTargetNotFound},
	{ErrFocusAcquisitionFailed, KindFocusAcquisitionFailed},
	{ErrRenderFailed, KindRenderFailed},
	{ErrIOFailure, KindIOFailure},
	{ErrInputFailed, KindInputFailed},
}

// KindOf は err を分類します。nil なら KindNone、どれにも該当しなければ KindUnknown を返します。
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
