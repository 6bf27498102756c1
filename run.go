package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ScheduledShot/config"
	"ScheduledShot/schedule"
)

var watchConfig bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "スケジュールに従って撮影を続けます（Ctrl+C で停止）",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		req, err := a.settings.Request()
		if err != nil {
			return err
		}

		action := a.service.Scheduled(req)
		sched, err := schedule.NewEngine(action, schedule.Options{
			Interval: a.settings.PollInterval(),
			Logger:   a.logger,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched.Start(ctx, a.settings.RuleSet())
		if watchConfig {
			go config.Watch(ctx, configPath, config.DefaultWatchInterval, a.logger, func(s *config.Settings) {
				req, err := s.Request()
				if err != nil {
					a.logger.Warn("新しい設定は使えません。前の設定で続けます", "error", err)
					return
				}
				if s.PollInterval() != a.settings.PollInterval() {
					a.logger.Warn("poll_interval_seconds の変更は再起動後に反映されます")
				}
				action.Update(req)
				sched.Reload(s.RuleSet())
			})
		}

		<-ctx.Done()
		a.logger.Info("停止しています")
		sched.Stop()
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&watchConfig, "watch", true, "設定ファイルの変更を検出して規則を読み直す")
	rootCmd.AddCommand(runCmd)
}
