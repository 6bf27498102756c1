// Package keyboard は修飾キー＋数字キーの合成入力を送信します。
package keyboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ScheduledShot/capture"
	"ScheduledShot/failure"
)

// Key は仮想キーコードです。
type Key uint16

// 左側の修飾キーを使う。Windows では sendinput の KEY_L* に対応します。
const (
	KeyShift   Key = 0xA0 // VK_LSHIFT
	KeyControl Key = 0xA2 // VK_LCONTROL
	KeyAlt     Key = 0xA4 // VK_LMENU
	KeyWin     Key = 0x5B // VK_LWIN
)

// DefaultSettle は修飾キーを押してから数字キーを押すまでの待機時間です。
const DefaultSettle = 50 * time.Millisecond

// Sender はキーを1つ押す（down=true）または離します。
type Sender func(k Key, down bool) error

// Injector は SendInput による合成キー入力を行います。
type Injector struct {
	send     Sender
	sleep    func(ctx context.Context, d time.Duration) error
	modifier Key
	settle   time.Duration
}

// New は OS の SendInput を使う Injector を返します。
func New(modifier Key) *Injector {
	return NewWithSender(sendKey, modifier)
}

// NewWithSender は任意の Sender を使う Injector を返します。
func NewWithSender(send Sender, modifier Key) *Injector {
	if modifier == 0 {
		modifier = KeyControl
	}
	return &Injector{send: send, sleep: capture.Sleep, modifier: modifier, settle: DefaultSettle}
}

// ParseModifier は "Ctrl" "Alt" "Shift" "Win" を修飾キーに変換します。空なら Ctrl です。
func ParseModifier(name string) (Key, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "CTRL", "CONTROL":
		return KeyControl, nil
	case "ALT":
		return KeyAlt, nil
	case "SHIFT":
		return KeyShift, nil
	case "WIN":
		return KeyWin, nil
	}
	return 0, fmt.Errorf("%w: unknown modifier %q", failure.ErrInvalidConfiguration, name)
}

// DigitKey は 0〜9 の数字を仮想キーコードに変換します。
func DigitKey(digit int) (Key, error) {
	if digit < 0 || digit > 9 {
		return 0, fmt.Errorf("%w: hotkey digit %d is not 0-9", failure.ErrInvalidConfiguration, digit)
	}
	return Key('0' + digit), nil
}

// PressModifierDigit は 修飾キー押下 → 待機 → 数字キー押下 → 数字キー解放 → 修飾キー解放 を送信します。
// 途中で失敗しても押下済みのキーは離します。
func (in *Injector) PressModifierDigit(ctx context.Context, digit int) error {
	key, err := DigitKey(digit)
	if err != nil {
		return err
	}
	if err := in.send(in.modifier, true); err != nil {
		return fmt.Errorf("%w: modifier down: %v", failure.ErrInputFailed, err)
	}
	defer in.send(in.modifier, false)

	if err := in.sleep(ctx, in.settle); err != nil {
		return err
	}
	if err := in.send(key, true); err != nil {
		return fmt.Errorf("%w: digit down: %v", failure.ErrInputFailed, err)
	}
	if err := in.send(key, false); err != nil {
		return fmt.Errorf("%w: digit up: %v", failure.ErrInputFailed, err)
	}
	return nil
}

// PreAction はキャプチャ直前に実行する関数を返します。
// キー送信後、対象アプリの表示が切り替わるまで settle だけ待ちます。
func (in *Injector) PreAction(digit int, settle time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := in.PressModifierDigit(ctx, digit); err != nil {
			return err
		}
		return in.sleep(ctx, settle)
	}
}
