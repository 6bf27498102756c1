//go:build !windows

package ui

import (
	"fmt"
	"os"
)

// ShowInfo はメッセージボックスの代わりに標準出力へ表示します。
func ShowInfo(title, msg string) {
	fmt.Printf("[%s] %s\n", title, msg)
}

// ShowError はメッセージボックスの代わりに標準エラー出力へ表示します。
func ShowError(title, msg string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", title, msg)
}
