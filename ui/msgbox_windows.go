//go:build windows

package ui

import "github.com/lxn/walk"

// ShowInfo は情報メッセージをメッセージボックスで表示します。
func ShowInfo(title, msg string) {
	walk.MsgBox(nil, title, msg, walk.MsgBoxOK|walk.MsgBoxIconInformation)
}

// ShowError はエラーメッセージをメッセージボックスで表示します。
func ShowError(title, msg string) {
	walk.MsgBox(nil, title, msg, walk.MsgBoxOK|walk.MsgBoxIconError)
}
