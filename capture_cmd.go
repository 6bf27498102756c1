package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ScheduledShot/ui"
)

var notify bool

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "設定どおりに今すぐ1枚撮影します",
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
		res := a.service.Capture(cmd.Context(), req)
		if notify {
			ui.Notify(res)
		}
		if res.Err != nil {
			return res.Err
		}
		fmt.Println(res.Path)
		return nil
	},
}

func init() {
	captureCmd.Flags().BoolVar(&notify, "notify", false, "結果をメッセージボックスで表示する")
	rootCmd.AddCommand(captureCmd)
}
