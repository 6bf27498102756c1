package config

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// DefaultWatchInterval は設定ファイルの更新を確認する間隔の既定値です。
const DefaultWatchInterval = 5 * time.Second

// Watch は path の更新時刻を interval ごとに確認し、変わっていれば読み直して onChange に渡します。
// 読み込みに失敗した場合は警告を出し、前の設定のまま続けます。ctx が終了するまで戻りません。
func Watch(ctx context.Context, path string, interval time.Duration, logger *slog.Logger, onChange func(*Settings)) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	last := modTime(path)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		mt := modTime(path)
		if mt.Equal(last) {
			continue
		}
		last = mt
		cfg, err := Load(path)
		if err != nil {
			logger.Warn("設定ファイルを読み込めませんでした。前の設定で続けます", "path", path, "error", err)
			continue
		}
		logger.Info("設定ファイルの変更を検出しました", "path", path)
		onChange(cfg)
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
