//go:build windows

package keyboard

import (
	"github.com/dacapoday/sendinput"
)

var modifierCodes = map[Key]sendinput.KeyCode{
	KeyShift:   sendinput.KEY_LSHIFT,
	KeyControl: sendinput.KEY_LCONTROL,
	KeyAlt:     sendinput.KEY_LMENU,
	KeyWin:     sendinput.KEY_LWIN,
}

var digitCodes = [10]sendinput.KeyCode{
	sendinput.KEY_0, sendinput.KEY_1, sendinput.KEY_2, sendinput.KEY_3, sendinput.KEY_4,
	sendinput.KEY_5, sendinput.KEY_6, sendinput.KEY_7, sendinput.KEY_8, sendinput.KEY_9,
}

// keyCode は Key を sendinput のキーコードに変換します。
func keyCode(k Key) sendinput.KeyCode {
	if c, ok := modifierCodes[k]; ok {
		return c
	}
	if k >= '0' && k <= '9' {
		return digitCodes[k-'0']
	}
	return sendinput.KeyCode(k)
}

// sendKey は SendInput でキーを1つ送信します（古い keybd_event は使わない）。
func sendKey(k Key, down bool) error {
	return sendinput.SendKeyboardInput(keyCode(k), down)
}
