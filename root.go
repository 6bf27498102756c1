package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ScheduledShot/capture"
	"ScheduledShot/config"
	"ScheduledShot/logging"
	"ScheduledShot/output"
	"ScheduledShot/shot"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "scheduledshot",
	Short: "決まった時刻に画面やウィンドウを撮影します",
	Long: `scheduledshot は設定した曜日・時刻に全画面、指定範囲、または指定した
アプリのウィンドウ（前面でなくても可）を撮影し、タイムスタンプ付きの PNG で保存します。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "設定ファイル（YAML または JSON）のパス")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル（debug, info, warn, error）。設定ファイルより優先")
}

// Execute はコマンドを実行し、エラーなら標準エラー出力に表示して終了コード 1 で終了します。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}

// app は各コマンドが共有する部品です。
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	engine   *capture.Engine
	service  *shot.Service
}

func newApp() (*app, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルを読み込めませんでした: %w", err)
	}
	level := settings.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(logging.Options{Level: level, Format: settings.Log.Format})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	engine := capture.New(capture.NewPlatform(), capture.Options{Logger: logger})
	finalizer := output.NewFinalizer(output.FinalizerOptions{
		FontPath: settings.Font.Path,
		FontSize: settings.Font.Size,
		Logger:   logger,
	})
	return &app{
		settings: settings,
		logger:   logger,
		engine:   engine,
		service:  shot.New(engine, finalizer, shot.Options{Logger: logger}),
	}, nil
}
