package shot

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScheduledShot/capture"
	"ScheduledShot/failure"
	"ScheduledShot/keyboard"
	"ScheduledShot/logging"
	"ScheduledShot/output"
	"ScheduledShot/schedule"
)

const (
	hUser capture.Handle = 11
	hApp  capture.Handle = 22
)

// desktop は1つのアプリウィンドウだけがある Platform です。
type desktop struct {
	mu      sync.Mutex
	windows []capture.Window
	fg      capture.Handle
	events  []string
}

func (d *desktop) record(ev string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *desktop) log() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *desktop) ScreenBounds() (image.Rectangle, error) { return image.Rect(0, 0, 64, 48), nil }

func (d *desktop) CaptureRect(r image.Rectangle) (*image.RGBA, error) {
	d.record(fmt.Sprintf("screen %dx%d", r.Dx(), r.Dy()))
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}

func (d *desktop) Windows() capture.WindowSeq {
	return func(yield func(capture.Window) bool) {
		for _, w := range d.windows {
			if !yield(w) {
				return
			}
		}
	}
}

func (d *desktop) ProcessName(capture.Handle) (string, error) { return "App.exe", nil }
func (d *desktop) Foreground() capture.Handle { return d.fg }

func (d *desktop) SetForeground(h capture.Handle) bool {
	d.record(fmt.Sprintf("foreground %d", h))
	d.fg = h
	return true
}

func (d *desktop) IsWindow(capture.Handle) bool { return true }

func (d *desktop) Placement(capture.Handle) (capture.Placement, error) {
	return capture.PlacementNormal, nil
}

func (d *desktop) Restore(capture.Handle) error { return nil }

func (d *desktop) JoinInput(capture.Handle) (func() error, error) {
	d.record("join")
	return func() error { d.record("release"); return nil }, nil
}

func (d *desktop) Render(capture.Handle) (*image.RGBA, error) {
	d.record("render")
	return image.NewRGBA(image.Rect(0, 0, 40, 30)), nil
}

func (d *desktop) WindowRect(capture.Handle) (image.Rectangle, error) {
	return image.Rect(100, 100, 140, 130), nil
}

func (d *desktop) ClientRect(capture.Handle) (image.Rectangle, error) {
	return image.Rect(102, 110, 138, 128), nil
}

type fixture struct {
	desk *desktop
	svc  *Service
	dir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	desk := &desktop{
		windows: []capture.Window{{Handle: hApp, Title: "Report - App"}},
		fg:      hUser,
	}
	quiet := logging.Discard()
	engine := capture.New(desk, capture.Options{
		Sleep:  func(context.Context, time.Duration) error { return nil },
		Logger: quiet,
	})
	fin := output.NewFinalizer(output.FinalizerOptions{
		Clock:  func() time.Time { return time.Date(2025, 1, 6, 9, 0, 0, 0, time.Local) },
		Logger: quiet,
	})
	keys := func(mod keyboard.Key) *keyboard.Injector {
		return keyboard.NewWithSender(func(k keyboard.Key, down bool) error {
			desk.record(fmt.Sprintf("key %#x %v", k, down))
			return nil
		}, mod)
	}
	n := 0
	svc := New(engine, fin, Options{
		Keys:   keys,
		NewID:  func() string { n++; return fmt.Sprintf("id-%d", n) },
		Logger: quiet,
	})
	return &fixture{desk: desk, svc: svc, dir: t.TempDir()}
}

func (f *fixture) request(mode Mode) Request {
	return Request{
		Mode:   mode,
		Region: capture.Region{X: 1, Y: 2, Width: 30, Height: 20},
		Target: capture.Target{Title: "report"},
		Output: output.Options{Dir: f.dir, Prefix: "shot"},
	}
}

func TestCaptureFullscreen(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Capture(context.Background(), f.request(ModeFullscreen))

	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, "id-1", res.ID)
	assert.Equal(t, failure.KindNone, res.Kind)
	assert.FileExists(t, res.Path)
	assert.Len(t, res.Digest, 64)
	assert.Equal(t, []string{"screen 64x48"}, f.desk.log())
}

func TestCaptureRegionRejectedBeforePlatform(t *testing.T) {
	f := newFixture(t)
	req := f.request(ModeRegion)
	req.Region.Height = 0

	res := f.svc.Capture(context.Background(), req)
	assert.Equal(t, failure.KindInvalidConfiguration, res.Kind)
	assert.Empty(t, f.desk.log())
	assert.Empty(t, res.Path)
}

func TestCaptureWindowCropsClientArea(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Capture(context.Background(), f.request(ModeWindow))
	require.NoError(t, res.Err)

	file, err := os.Open(res.Path)
	require.NoError(t, err)
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 36, cfg.Width)
	assert.Equal(t, 18, cfg.Height)
}

func TestHotkeyCompletesBeforeRender(t *testing.T) {
	f := newFixture(t)
	req := f.request(ModeWindow)
	req.Hotkey = Hotkey{Enabled: true, Modifier: keyboard.KeyAlt, Digit: 2}

	res := f.svc.Capture(context.Background(), req)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{
		"join",
		"foreground 22",
		"key 0xa4 true",
		"key 0x32 true",
		"key 0x32 false",
		"key 0xa4 false",
		"render",
		"foreground 11",
		"release",
	}, f.desk.log())
}

func TestHotkeyDigitValidated(t *testing.T) {
	f := newFixture(t)
	req := f.request(ModeWindow)
	req.Hotkey = Hotkey{Enabled: true, Digit: 12}

	res := f.svc.Capture(context.Background(), req)
	assert.Equal(t, failure.KindInvalidConfiguration, res.Kind)
	assert.Empty(t, f.desk.log())
}

func TestMissingWindowPolicy(t *testing.T) {
	f := newFixture(t)
	req := f.request(ModeWindow)
	req.Target.Title = "Spreadsheet"

	res := f.svc.Capture(context.Background(), req)
	assert.Equal(t, failure.KindTargetNotFound, res.Kind)
	assert.Empty(t, f.desk.log())

	req.MissingWindow = MissingWindowFullscreen
	res = f.svc.Capture(context.Background(), req)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"screen 64x48"}, f.desk.log())
}

func TestRequestValidate(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(*Request){
		"unknown mode":   func(r *Request) { r.Mode = "webcam" },
		"empty title":    func(r *Request) { r.Mode = ModeWindow; r.Target.Title = " " },
		"no dir":         func(r *Request) { r.Output.Dir = "" },
		"bad policy":     func(r *Request) { r.MissingWindow = "retry" },
		"negative width": func(r *Request) { r.Mode = ModeRegion; r.Region.Width = -5 },
	}
	for name, mutate := range cases {
		req := f.request(ModeFullscreen)
		mutate(&req)
		assert.ErrorIs(t, req.Validate(), failure.ErrInvalidConfiguration, name)
	}
	assert.NoError(t, f.request(ModeWindow).Validate())
}

func TestParseMissingWindow(t *testing.T) {
	m, err := ParseMissingWindow("")
	require.NoError(t, err)
	assert.Equal(t, MissingWindowFail, m)

	m, err = ParseMissingWindow("FullScreen")
	require.NoError(t, err)
	assert.Equal(t, MissingWindowFullscreen, m)

	_, err = ParseMissingWindow("ignore")
	assert.ErrorIs(t, err, failure.ErrInvalidConfiguration)
}

func TestScheduledFire(t *testing.T) {
	f := newFixture(t)
	req := f.request(ModeWindow)
	req.Target.Title = "missing"
	action := f.svc.Scheduled(req)
	rule := schedule.NewRule(9, 0, time.Monday)
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.Local)

	err := action.Fire(context.Background(), 0, rule, now)
	assert.ErrorIs(t, err, failure.ErrTargetNotFound)

	action.Update(f.request(ModeFullscreen))
	require.NoError(t, action.Fire(context.Background(), 0, rule, now))
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
