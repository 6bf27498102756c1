// Package config は設定ファイル（YAML または JSON）を読み込みます。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ScheduledShot/capture"
	"ScheduledShot/failure"
	"ScheduledShot/keyboard"
	"ScheduledShot/output"
	"ScheduledShot/schedule"
	"ScheduledShot/shot"
)

const (
	appDir         = "ScheduledShot"
	configFileName = "settings.yaml"
	picturesFolder = "ScheduledShot_Screenshots"
)

// 撮影対象の種類
const (
	CaptureScreenshot = "screenshot"
	CaptureProgram    = "program"
)

// 画面撮影の範囲
const (
	ScreenshotFullscreen = "fullscreen"
	ScreenshotCustom     = "custom"
)

// Area は custom_area です。
type Area struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// WindowOptions はウィンドウ撮影時の動作です。
type WindowOptions struct {
	StayForeground bool    `yaml:"stay_foreground" json:"stay_foreground"`
	UseHotkey      bool    `yaml:"use_hotkey" json:"use_hotkey"`
	HotkeyNumber   int     `yaml:"hotkey_number" json:"hotkey_number"`
	HotkeyModifier string  `yaml:"hotkey_modifier" json:"hotkey_modifier"`
	SettleSeconds  float64 `yaml:"settle_seconds" json:"settle_seconds"`
}

// Font はタイムスタンプのフォントです。
type Font struct {
	Path string  `yaml:"path" json:"path"`
	Size float64 `yaml:"size" json:"size"`
}

// Log はログ出力の設定です。
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Settings は設定ファイル全体です。
type Settings struct {
	SavePath          string           `yaml:"save_path" json:"save_path"`
	CaptureType       string           `yaml:"capture_type" json:"capture_type"`
	ScreenshotMode    string           `yaml:"screenshot_mode" json:"screenshot_mode"`
	CustomArea        Area             `yaml:"custom_area" json:"custom_area"`
	Schedules         []schedule.Entry `yaml:"schedules" json:"schedules"`
	IncludeTimestamp  bool             `yaml:"include_timestamp" json:"include_timestamp"`
	TimestampPosition string           `yaml:"timestamp_position" json:"timestamp_position"`
	TargetWindow      string           `yaml:"target_window" json:"target_window"`
	TargetProcess     string           `yaml:"target_process" json:"target_process"`
	FilenamePrefix    string           `yaml:"filename_prefix" json:"filename_prefix"`
	IncludeSeconds    bool             `yaml:"include_seconds" json:"include_seconds"`
	MissingWindow     string           `yaml:"missing_window" json:"missing_window"`
	WindowOptions     WindowOptions    `yaml:"window_options" json:"window_options"`
	// LegacyWindowOptions は旧バージョンの設定ファイルのキーです。window_options が既定値のままなら使います。
	LegacyWindowOptions *WindowOptions `yaml:"discord_settings,omitempty" json:"discord_settings,omitempty"`
	Font                Font           `yaml:"font" json:"font"`
	PollIntervalSeconds int            `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`
	Log                 Log            `yaml:"log" json:"log"`
}

// DefaultSavePath はピクチャフォルダ配下の保存先を返します。
func DefaultSavePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return picturesFolder
	}
	return filepath.Join(home, "Pictures", picturesFolder)
}

// DefaultPath はユーザー設定フォルダ配下の設定ファイルのパスを返します。
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(dir, appDir, configFileName)
}

func defaultWindowOptions() WindowOptions {
	return WindowOptions{HotkeyNumber: 1, HotkeyModifier: "Ctrl", SettleSeconds: 1}
}

// Default は既定の設定を返します。
func Default() *Settings {
	return &Settings{
		SavePath:            DefaultSavePath(),
		CaptureType:         CaptureScreenshot,
		ScreenshotMode:      ScreenshotFullscreen,
		CustomArea:          Area{Width: 100, Height: 100},
		Schedules:           []schedule.Entry{},
		IncludeTimestamp:    true,
		TimestampPosition:   string(output.TopLeft),
		FilenamePrefix:      "screenshot",
		IncludeSeconds:      true,
		MissingWindow:       string(shot.MissingWindowFail),
		WindowOptions:       defaultWindowOptions(),
		Font:                Font{Path: output.DefaultFontPath(), Size: 14},
		PollIntervalSeconds: int(schedule.DefaultInterval / time.Second),
		Log:                 Log{Level: "info", Format: "text"},
	}
}

// Load は設定ファイルを読み込みます。ファイルがなければ既定の設定を返します。
// 拡張子で YAML と JSON を判別し、どちらでもなければ YAML、次に JSON を試します。
func Load(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
				return nil, fmt.Errorf("parse config (tried YAML and JSON): YAML error: %w, JSON error: %v", err, jsonErr)
			}
		}
	}

	if cfg.LegacyWindowOptions != nil && cfg.WindowOptions == defaultWindowOptions() {
		cfg.WindowOptions = *cfg.LegacyWindowOptions
		if cfg.WindowOptions.SettleSeconds == 0 {
			cfg.WindowOptions.SettleSeconds = defaultWindowOptions().SettleSeconds
		}
	}
	cfg.LegacyWindowOptions = nil
	return cfg, nil
}

// Save は設定をファイルに保存します。拡張子が .json なら JSON、それ以外は YAML です。
func Save(cfg *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var data []byte
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON config: %w", err)
		}
	} else {
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal YAML config: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// RuleSet はスケジュール規則を返します。不完全な規則も位置を保ったまま含めます。
func (s *Settings) RuleSet() schedule.RuleSet {
	return schedule.ParseRuleSet(s.Schedules)
}

// PollInterval はティック間隔を返します。
func (s *Settings) PollInterval() time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return schedule.DefaultInterval
	}
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// Request は設定から撮影要求を組み立てます。
func (s *Settings) Request() (shot.Request, error) {
	corner, err := output.ParseCorner(s.TimestampPosition)
	if err != nil {
		return shot.Request{}, err
	}
	missing, err := shot.ParseMissingWindow(s.MissingWindow)
	if err != nil {
		return shot.Request{}, err
	}

	req := shot.Request{
		MissingWindow: missing,
		Output: output.Options{
			Dir:            s.SavePath,
			Prefix:         s.FilenamePrefix,
			Timestamp:      s.IncludeTimestamp,
			Corner:         corner,
			IncludeSeconds: s.IncludeSeconds,
		},
	}

	switch strings.ToLower(s.CaptureType) {
	case "", CaptureScreenshot:
		switch strings.ToLower(s.ScreenshotMode) {
		case "", ScreenshotFullscreen:
			req.Mode = shot.ModeFullscreen
		case ScreenshotCustom:
			req.Mode = shot.ModeRegion
			req.Region = capture.Region{X: s.CustomArea.X, Y: s.CustomArea.Y, Width: s.CustomArea.Width, Height: s.CustomArea.Height}
		default:
			return shot.Request{}, fmt.Errorf("%w: unknown screenshot_mode %q", failure.ErrInvalidConfiguration, s.ScreenshotMode)
		}
	case CaptureProgram:
		req.Mode = shot.ModeWindow
		req.Target = capture.Target{
			Title:          s.TargetWindow,
			Process:        s.TargetProcess,
			StayForeground: s.WindowOptions.StayForeground,
		}
		if s.WindowOptions.UseHotkey {
			mod, err := keyboard.ParseModifier(s.WindowOptions.HotkeyModifier)
			if err != nil {
				return shot.Request{}, err
			}
			req.Hotkey = shot.Hotkey{
				Enabled:  true,
				Modifier: mod,
				Digit:    s.WindowOptions.HotkeyNumber,
				Settle:   time.Duration(s.WindowOptions.SettleSeconds * float64(time.Second)),
			}
		}
	default:
		return shot.Request{}, fmt.Errorf("%w: unknown capture_type %q", failure.ErrInvalidConfiguration, s.CaptureType)
	}

	if err := req.Validate(); err != nil {
		return shot.Request{}, err
	}
	return req, nil
}
