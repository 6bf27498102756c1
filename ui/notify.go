// Package ui は撮影結果をメッセージボックスで知らせます。
package ui

import (
	"fmt"

	"ScheduledShot/shot"
)

// message は結果をタイトルと本文にします。
func message(res shot.Result) (title, body string) {
	if res.OK() {
		return "撮影完了", fmt.Sprintf("スクリーンショットを保存しました。\n%s", res.Path)
	}
	return "撮影失敗", fmt.Sprintf("スクリーンショットを撮影できませんでした（%s）。\n%v", res.Kind, res.Err)
}

// Notify は撮影結果を表示します。
func Notify(res shot.Result) {
	title, body := message(res)
	if res.OK() {
		ShowInfo(title, body)
		return
	}
	ShowError(title, body)
}
