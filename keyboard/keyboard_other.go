//go:build !windows

package keyboard

import "errors"

func sendKey(Key, bool) error {
	return errors.New("synthetic keyboard input is only supported on Windows")
}
