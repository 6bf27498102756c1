//go:build windows

package focus

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows       = user32.NewProc("EnumWindows")
	procGetWindowTextW    = user32.NewProc("GetWindowTextW")
	procIsWindow          = user32.NewProc("IsWindow")
	procIsZoomed          = user32.NewProc("IsZoomed")
	procAttachThreadInput = user32.NewProc("AttachThreadInput")
)

// ErrSameThread は対象ウィンドウが呼び出しスレッド自身のものである場合に返します。
var ErrSameThread = errors.New("window belongs to the calling thread")

// enumCallbacks は列挙中の yield を識別子で引く表です。lParam にはポインタではなく識別子を渡す。
var (
	enumMu        sync.Mutex
	enumNext      uintptr
	enumCallbacks = map[uintptr]func(hwnd win.HWND, title string) bool{}
)

// コールバックは作成数に上限があるため、一度だけ作って使い回す。
var enumProc = syscall.NewCallback(func(hwnd win.HWND, lParam uintptr) uintptr {
	enumMu.Lock()
	yield := enumCallbacks[lParam]
	enumMu.Unlock()
	if yield == nil {
		return 0
	}
	if !win.IsWindowVisible(hwnd) {
		return 1 // 続行
	}
	if !yield(hwnd, windowText(hwnd)) {
		return 0 // 列挙中止
	}
	return 1
})

// EnumVisible は表示されているトップレベルウィンドウを Z オーダー順に yield に渡します。
// yield が false を返すと列挙を中止します。
func EnumVisible(yield func(hwnd win.HWND, title string) bool) {
	enumMu.Lock()
	enumNext++
	id := enumNext
	enumCallbacks[id] = yield
	enumMu.Unlock()
	defer func() {
		enumMu.Lock()
		delete(enumCallbacks, id)
		enumMu.Unlock()
	}()

	_, _, _ = procEnumWindows.Call(enumProc, id)
}

func windowText(hwnd win.HWND) string {
	buf := make([]uint16, 512)
	r0, _, _ := procGetWindowTextW.Call(
		uintptr(hwnd),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)))
	n := int(r0)
	if n <= 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:n])
}

// ProcessImageName はウィンドウを所有するプロセスの実行ファイル名（例: "Discord.exe"）を返します。
func ProcessImageName(hwnd win.HWND) (string, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return "", fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName(%d): %w", pid, err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}

// Foreground は現在の前面ウィンドウを返します。
func Foreground() win.HWND {
	return win.GetForegroundWindow()
}

// SetForeground はウィンドウの前面化を要求します。
func SetForeground(hwnd win.HWND) bool {
	return win.SetForegroundWindow(hwnd)
}

// IsWindow はハンドルが既存のウィンドウを指しているか返します。
func IsWindow(hwnd win.HWND) bool {
	r, _, _ := procIsWindow.Call(uintptr(hwnd))
	return r != 0
}

func IsMinimized(hwnd win.HWND) bool {
	return win.IsIconic(hwnd)
}

func IsMaximized(hwnd win.HWND) bool {
	r, _, _ := procIsZoomed.Call(uintptr(hwnd))
	return r != 0
}

// Restore は最小化されたウィンドウを直前の状態に戻します。
func Restore(hwnd win.HWND) {
	win.ShowWindow(hwnd, win.SW_RESTORE)
}

// AttachInput は呼び出しスレッドの入力キューを hwnd の所有スレッドに結合し、解除関数を返します。
// 結合と解除は同じ OS スレッドから呼ぶ必要があります。
func AttachInput(hwnd win.HWND) (func() error, error) {
	target, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), nil)
	if err != nil {
		return nil, fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	self := windows.GetCurrentThreadId()
	if target == self {
		return nil, ErrSameThread
	}
	if err := attachThreadInput(self, target, true); err != nil {
		return nil, err
	}
	return func() error {
		return attachThreadInput(self, target, false)
	}, nil
}

func attachThreadInput(from, to uint32, attach bool) error {
	var flag uintptr
	if attach {
		flag = 1
	}
	r, _, e := procAttachThreadInput.Call(uintptr(from), uintptr(to), flag)
	if r == 0 {
		return fmt.Errorf("AttachThreadInput(%d, %d, %v): %w", from, to, attach, e)
	}
	return nil
}

// WindowRect はウィンドウ全体の矩形をスクリーン座標で返します。
func WindowRect(hwnd win.HWND) (image.Rectangle, error) {
	var r win.RECT
	if !win.GetWindowRect(hwnd, &r) {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect: %d", win.GetLastError())
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

// ClientRect はクライアント領域をスクリーン座標で返します。
func ClientRect(hwnd win.HWND) (image.Rectangle, error) {
	var r win.RECT
	if !win.GetClientRect(hwnd, &r) {
		return image.Rectangle{}, fmt.Errorf("GetClientRect: %d", win.GetLastError())
	}
	origin := win.POINT{X: r.Left, Y: r.Top}
	if !win.ClientToScreen(hwnd, &origin) {
		return image.Rectangle{}, fmt.Errorf("ClientToScreen: %d", win.GetLastError())
	}
	return image.Rect(int(origin.X), int(origin.Y), int(origin.X+r.Right-r.Left), int(origin.Y+r.Bottom-r.Top)), nil
}
