// Package shot はキャプチャ要求を1回の撮影と保存にまとめます。
//
// スケジューラから呼ばれる Action と、コマンドラインからの即時撮影は
// どちらもここを通ります。
package shot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ScheduledShot/capture"
	"ScheduledShot/failure"
	"ScheduledShot/keyboard"
	"ScheduledShot/output"
	"ScheduledShot/schedule"
)

// Mode は撮影方法です。
type Mode string

const (
	ModeFullscreen Mode = "fullscreen"
	ModeRegion     Mode = "region"
	ModeWindow     Mode = "window"
)

// MissingWindow は対象ウィンドウが見つからないときの扱いです。
type MissingWindow string

const (
	MissingWindowFail       MissingWindow = "fail"
	MissingWindowFullscreen MissingWindow = "fullscreen"
)

// ParseMissingWindow は設定値を MissingWindow に変換します。空なら fail です。
func ParseMissingWindow(s string) (MissingWindow, error) {
	switch m := MissingWindow(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MissingWindowFail, nil
	case MissingWindowFail, MissingWindowFullscreen:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown missing_window policy %q", failure.ErrInvalidConfiguration, s)
}

// Hotkey は撮影直前に送る 修飾キー＋数字 の指定です。
type Hotkey struct {
	Enabled  bool
	Modifier keyboard.Key
	Digit    int
	// Settle はキー送信後、描画までに待つ時間です。
	Settle time.Duration
}

// Request は1回のキャプチャ要求です。
type Request struct {
	Mode          Mode
	Region        capture.Region
	Target        capture.Target
	Hotkey        Hotkey
	MissingWindow MissingWindow
	Output        output.Options
}

// Validate は OS を呼ぶ前に確認できる設定の誤りを返します。
func (r Request) Validate() error {
	switch r.Mode {
	case ModeFullscreen:
	case ModeRegion:
		if r.Region.Width <= 0 || r.Region.Height <= 0 {
			return fmt.Errorf("%w: region %dx%d has no area", failure.ErrInvalidConfiguration, r.Region.Width, r.Region.Height)
		}
	case ModeWindow:
		if strings.TrimSpace(r.Target.Title) == "" {
			return fmt.Errorf("%w: window title is empty", failure.ErrInvalidConfiguration)
		}
		if r.Hotkey.Enabled {
			if _, err := keyboard.DigitKey(r.Hotkey.Digit); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown capture mode %q", failure.ErrInvalidConfiguration, r.Mode)
	}
	if _, err := ParseMissingWindow(string(r.MissingWindow)); err != nil {
		return err
	}
	if r.Output.Dir == "" {
		return fmt.Errorf("%w: output directory is empty", failure.ErrInvalidConfiguration)
	}
	return nil
}

// Result は1回のキャプチャの結果です。Err が nil なら Path に保存されています。
type Result struct {
	ID     string
	Path   string
	Digest string
	At     time.Time
	Err    error
	Kind   failure.Kind
}

// OK は成功したかどうかを返します。
func (r Result) OK() bool { return r.Err == nil }

// Options は Service の設定です。
type Options struct {
	// Keys は修飾キーごとの Injector を返します。nil なら SendInput を使います。
	Keys   func(modifier keyboard.Key) *keyboard.Injector
	NewID  func() string
	Logger *slog.Logger
}

// Service はキャプチャエンジンと保存処理をつなぎます。
type Service struct {
	engine    *capture.Engine
	finalizer *output.Finalizer
	keys      func(modifier keyboard.Key) *keyboard.Injector
	newID     func() string
	logger    *slog.Logger
}

// New は Service を作成します。
func New(engine *capture.Engine, finalizer *output.Finalizer, opts Options) *Service {
	s := &Service{engine: engine, finalizer: finalizer, keys: opts.Keys, newID: opts.NewID, logger: opts.Logger}
	if s.keys == nil {
		s.keys = keyboard.New
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Capture は要求どおりに撮影して保存します。失敗は Result.Err と Result.Kind で返します。
func (s *Service) Capture(ctx context.Context, req Request) Result {
	res := Result{ID: s.newID()}
	log := s.logger.With("id", res.ID, "mode", string(req.Mode))

	err := req.Validate()
	var img *image.RGBA
	if err == nil {
		img, err = s.grab(ctx, req, log)
	}
	if err == nil {
		var saved output.Saved
		saved, err = s.finalizer.Finalize(img, req.Output)
		res.Path, res.Digest, res.At = saved.Path, saved.Digest, saved.At
	}
	if err != nil {
		res.Err = err
		res.Kind = failure.KindOf(err)
		log.Error("キャプチャに失敗しました", "kind", string(res.Kind), "error", err)
		return res
	}
	log.Info("キャプチャが完了しました", "path", res.Path, "digest", res.Digest)
	return res
}

func (s *Service) grab(ctx context.Context, req Request, log *slog.Logger) (*image.RGBA, error) {
	switch req.Mode {
	case ModeRegion:
		return s.engine.CaptureRegion(req.Region)
	case ModeWindow:
		img, err := s.engine.CaptureWindow(ctx, req.Target, s.preAction(req.Hotkey))
		if errors.Is(err, failure.ErrTargetNotFound) && req.MissingWindow == MissingWindowFullscreen {
			log.Warn("対象ウィンドウが見つからないため全画面を撮影します", "window", req.Target.Title)
			return s.engine.CaptureFullscreen()
		}
		return img, err
	}
	return s.engine.CaptureFullscreen()
}

func (s *Service) preAction(h Hotkey) capture.PreAction {
	if !h.Enabled {
		return nil
	}
	return s.keys(h.Modifier).PreAction(h.Digit, h.Settle)
}

// Scheduled はスケジューラから呼ばれる Action です。要求は Update で差し替えられます。
type Scheduled struct {
	svc *Service
	req atomic.Pointer[Request]
}

// Scheduled は req で撮影する schedule.Action を返します。
func (s *Service) Scheduled(req Request) *Scheduled {
	sc := &Scheduled{svc: s}
	sc.Update(req)
	return sc
}

// Update は次回以降の発火で使う要求を差し替えます。
func (sc *Scheduled) Update(req Request) {
	sc.req.Store(&req)
}

// Fire は schedule.Action の実装です。
func (sc *Scheduled) Fire(ctx context.Context, index int, rule schedule.Rule, _ time.Time) error {
	res := sc.svc.Capture(ctx, *sc.req.Load())
	if res.Err != nil {
		return fmt.Errorf("rule %d (%s): %w", index, rule, res.Err)
	}
	return nil
}

var _ schedule.Action = (*Scheduled)(nil)
