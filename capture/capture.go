// Package capture は画面・範囲・ウィンドウのキャプチャを行います。
//
// ウィンドウキャプチャは対象が前面でなくても撮影できるよう、入力キューの結合、
// 前面化、PrintWindow による全内容の描画、クライアント領域への切り抜き、
// 元の前面ウィンドウの復元を一続きで行います。OS 依存の処理は Platform に
// 閉じ込めており、エンジン自体はどの OS でもテストできます。
package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"ScheduledShot/failure"
)

// Region はキャプチャ範囲（左上座標と幅・高さ）を表します。
type Region struct {
	X, Y, Width, Height int
}

// Rect は Region を image.Rectangle に変換します。
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Handle はトップレベルウィンドウのハンドルです。
type Handle uintptr

// Window は列挙されたトップレベルウィンドウです。Process は必要になるまで空のことがあります。
type Window struct {
	Handle  Handle
	Title   string
	Process string
}

// WindowSeq は可視トップレベルウィンドウの遅延列です。yield が false を返すと列挙を打ち切ります。
type WindowSeq func(yield func(Window) bool)

// Placement はウィンドウの表示状態です。
type Placement int

const (
	PlacementNormal Placement = iota
	PlacementMinimized
	PlacementMaximized
)

// Platform は OS 依存のプリミティブです。
type Platform interface {
	ScreenBounds() (image.Rectangle, error)
	CaptureRect(r image.Rectangle) (*image.RGBA, error)

	Windows() WindowSeq
	ProcessName(h Handle) (string, error)

	Foreground() Handle
	SetForeground(h Handle) bool
	IsWindow(h Handle) bool
	Placement(h Handle) (Placement, error)
	Restore(h Handle) error

	// JoinInput は呼び出しスレッドの入力キューを h の所有スレッドに結合し、解除関数を返します。
	JoinInput(h Handle) (release func() error, err error)

	// Render はウィンドウの全内容（隠れている部分も含む）をオフスクリーンに描画します。
	Render(h Handle) (*image.RGBA, error)
	WindowRect(h Handle) (image.Rectangle, error)
	// ClientRect はクライアント領域をスクリーン座標で返します。
	ClientRect(h Handle) (image.Rectangle, error)
}

// Options はエンジンの設定です。
type Options struct {
	FocusAttempts int
	FocusInterval time.Duration
	Sleep         func(ctx context.Context, d time.Duration) error
	Logger        *slog.Logger
}

const (
	defaultFocusAttempts = 20
	defaultFocusInterval = 50 * time.Millisecond
)

// Engine はキャプチャエンジンです。前面ウィンドウや入力キューという OS 全体の
// 状態を操作するため、キャプチャは同時に一つしか実行しません。
type Engine struct {
	p             Platform
	focusAttempts int
	focusInterval time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	logger        *slog.Logger

	mu sync.Mutex
}

// New はエンジンを作成します。
func New(p Platform, opts Options) *Engine {
	e := &Engine{
		p:             p,
		focusAttempts: opts.FocusAttempts,
		focusInterval: opts.FocusInterval,
		sleep:         opts.Sleep,
		logger:        opts.Logger,
	}
	if e.focusAttempts <= 0 {
		e.focusAttempts = defaultFocusAttempts
	}
	if e.focusInterval <= 0 {
		e.focusInterval = defaultFocusInterval
	}
	if e.sleep == nil {
		e.sleep = Sleep
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// CaptureFullscreen は全ディスプレイを合わせた範囲をキャプチャします。
func (e *Engine) CaptureFullscreen() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bounds, err := e.p.ScreenBounds()
	if err != nil {
		return nil, fmt.Errorf("%w: screen bounds: %v", failure.ErrRenderFailed, err)
	}
	return e.captureRect(bounds)
}

// CaptureRegion は指定範囲をキャプチャします。幅か高さが 0 以下なら OS を呼ばずに失敗します。
func (e *Engine) CaptureRegion(region Region) (*image.RGBA, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("%w: region %dx%d has no area", failure.ErrInvalidConfiguration, region.Width, region.Height)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.captureRect(region.Rect())
}

func (e *Engine) captureRect(r image.Rectangle) (*image.RGBA, error) {
	img, err := e.p.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("%w: capture %v: %v", failure.ErrRenderFailed, r, err)
	}
	return img, nil
}

// Sleep は ctx のキャンセルに応じる time.Sleep です。
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
