package capture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"strings"
	"sync"

	"ScheduledShot/failure"
)

// Target はキャプチャ対象ウィンドウの指定です。
type Target struct {
	// Title はウィンドウタイトルの部分文字列（大文字小文字を区別しない）。
	Title string
	// Process は所有プロセスの実行ファイル名（例: "Discord.exe"）。空なら条件にしない。
	Process string
	// StayForeground が true なら撮影後に元の前面ウィンドウへ戻さない。
	StayForeground bool
}

// PreAction は対象が前面になった後、描画の直前に実行されます。
type PreAction func(ctx context.Context) error

// FindWindow は Target に一致する最初の可視ウィンドウを返します。列挙順は OS の順です。
func (e *Engine) FindWindow(target Target) (Window, error) {
	needle := strings.ToLower(strings.TrimSpace(target.Title))
	if needle == "" {
		return Window{}, fmt.Errorf("%w: window title is empty", failure.ErrInvalidConfiguration)
	}
	for w := range e.p.Windows() {
		if !strings.Contains(strings.ToLower(w.Title), needle) {
			continue
		}
		if target.Process != "" {
			name, err := e.p.ProcessName(w.Handle)
			if err != nil || !strings.EqualFold(name, target.Process) {
				continue
			}
			w.Process = name
		}
		return w, nil
	}
	if target.Process != "" {
		return Window{}, fmt.Errorf("%w: title %q process %q", failure.ErrTargetNotFound, target.Title, target.Process)
	}
	return Window{}, fmt.Errorf("%w: title %q", failure.ErrTargetNotFound, target.Title)
}

// ListWindows はタイトルを持つ可視ウィンドウを所有プロセス名付きで返します。
func (e *Engine) ListWindows() []Window {
	var list []Window
	for w := range e.p.Windows() {
		if w.Title == "" {
			continue
		}
		if name, err := e.p.ProcessName(w.Handle); err == nil {
			w.Process = name
		}
		list = append(list, w)
	}
	return list
}

// CaptureWindow は対象ウィンドウを前面にして描画し、クライアント領域を返します。
// 成功・失敗にかかわらず、元の前面ウィンドウの復元と入力キューの結合解除を行います。
func (e *Engine) CaptureWindow(ctx context.Context, target Target, pre PreAction) (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, err := e.FindWindow(target)
	if err != nil {
		return nil, err
	}
	log := e.logger.With("window", w.Title, "handle", uintptr(w.Handle))

	// 入力キューの結合はスレッド単位なので、解除まで同じ OS スレッドに留まる。
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prev := e.p.Foreground()

	guard := e.joinInput(w.Handle)
	defer guard.Release()
	if !target.StayForeground {
		defer e.restoreForeground(prev, w.Handle)
	}

	if pl, err := e.p.Placement(w.Handle); err != nil {
		log.Warn("ウィンドウ状態を取得できませんでした", "error", err)
	} else if pl == PlacementMinimized {
		if err := e.p.Restore(w.Handle); err != nil {
			log.Warn("最小化されたウィンドウを元に戻せませんでした", "error", err)
		}
	}

	if err := e.acquireFocus(ctx, w.Handle); err != nil {
		return nil, err
	}

	if pre != nil {
		if err := pre(ctx); err != nil {
			return nil, fmt.Errorf("%w: pre-capture action: %v", failure.ErrInputFailed, err)
		}
		if e.p.Foreground() != w.Handle {
			return nil, fmt.Errorf("%w: focus lost during pre-capture action", failure.ErrFocusAcquisitionFailed)
		}
	}

	buf, err := e.p.Render(w.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrRenderFailed, err)
	}

	wr, err := e.p.WindowRect(w.Handle)
	if err != nil {
		log.Warn("ウィンドウ矩形を取得できませんでした。切り抜かずに返します", "error", err)
		return buf, nil
	}
	cr, err := e.p.ClientRect(w.Handle)
	if err != nil {
		log.Warn("クライアント領域を取得できませんでした。切り抜かずに返します", "error", err)
		return buf, nil
	}
	box, ok := cropBox(wr, cr, buf.Bounds())
	if !ok {
		log.Debug("切り抜き範囲が空のため全体を返します", "window_rect", wr, "client_rect", cr)
		return buf, nil
	}
	return crop(buf, box), nil
}

func (e *Engine) acquireFocus(ctx context.Context, h Handle) error {
	for i := 0; i < e.focusAttempts; i++ {
		if e.p.Foreground() == h {
			return nil
		}
		e.p.SetForeground(h)
		if e.p.Foreground() == h {
			return nil
		}
		if err := e.sleep(ctx, e.focusInterval); err != nil {
			return fmt.Errorf("%w: %v", failure.ErrFocusAcquisitionFailed, err)
		}
	}
	return fmt.Errorf("%w: window did not become foreground after %d attempts", failure.ErrFocusAcquisitionFailed, e.focusAttempts)
}

// restoreOutcome は前面ウィンドウ復元の結果です。失敗してもエラーにはしません。
type restoreOutcome int

const (
	restoreSkipped restoreOutcome = iota
	restoreDone
	restoreGone
	restoreRefused
)

func (e *Engine) restoreForeground(prev, target Handle) restoreOutcome {
	switch {
	case prev == 0 || prev == target:
		return restoreSkipped
	case !e.p.IsWindow(prev):
		e.logger.Debug("元の前面ウィンドウは既に存在しません", "handle", uintptr(prev))
		return restoreGone
	case !e.p.SetForeground(prev):
		e.logger.Warn("元の前面ウィンドウに戻せませんでした", "handle", uintptr(prev))
		return restoreRefused
	}
	return restoreDone
}

// inputGuard は入力キューの結合を表します。Release は何度呼んでも一度だけ解除します。
type inputGuard struct {
	once    sync.Once
	release func() error
	e       *Engine
}

func (e *Engine) joinInput(h Handle) *inputGuard {
	release, err := e.p.JoinInput(h)
	if err != nil {
		// 同一スレッドの場合などは結合できない。前面化の成否で判断する。
		e.logger.Debug("入力キューを結合できませんでした", "error", err)
		release = nil
	}
	return &inputGuard{release: release, e: e}
}

func (g *inputGuard) Release() {
	g.once.Do(func() {
		if g.release == nil {
			return
		}
		if err := g.release(); err != nil {
			g.e.logger.Error("入力キューの結合を解除できませんでした", "error", err)
		}
	})
}

// cropBox はウィンドウ矩形とクライアント矩形（どちらもスクリーン座標）から、
// バッファ上の切り抜き範囲を求めます。範囲が空なら false を返します。
func cropBox(window, client, buffer image.Rectangle) (image.Rectangle, bool) {
	box := client.Sub(window.Min).Intersect(buffer)
	if box.Min.X >= box.Max.X || box.Min.Y >= box.Max.Y {
		return image.Rectangle{}, false
	}
	return box, true
}

// crop は box の内容を原点 (0,0) の新しい画像にコピーします。
func crop(src *image.RGBA, box image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(dst, dst.Bounds(), src, box.Min, draw.Src)
	return dst
}
