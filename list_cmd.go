package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "撮影対象にできるウィンドウを一覧表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Handle", "Process", "Title"})
		for _, w := range a.engine.ListWindows() {
			t.AppendRow(table.Row{fmt.Sprintf("%#x", uintptr(w.Handle)), w.Process, w.Title})
		}
		fmt.Println(t.Render())
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "設定ファイルのスケジュール規則を表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Time", "Days", "Enabled", "Status"})
		for i, r := range a.settings.RuleSet().Rules() {
			status := "OK"
			if err := r.Validate(); err != nil {
				status = err.Error()
			}
			t.AppendRow(table.Row{i, fmt.Sprintf("%02d:%02d", r.Hour, r.Minute), r.Days.String(), r.Enabled, status})
		}
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(windowsCmd, rulesCmd)
}
