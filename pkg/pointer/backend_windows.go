//go:build windows

package pointer

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputMouse = 0

	mouseEventfMove     = 0x0001
	mouseEventfLeftDown = 0x0002
	mouseEventfLeftUp   = 0x0004
	mouseEventfAbsolute = 0x8000

	smCXScreen = 0
	smCYScreen = 1
)

type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type winInput struct {
	Type uint32
	_    uint32 // 8-byte alignment of the union on amd64
	Mi   mouseInput
}

// windowsBackend injects absolute pointer events through SendInput.
type windowsBackend struct {
	user32           *windows.LazyDLL
	sendInput        *windows.LazyProc
	getSystemMetrics *windows.LazyProc
}

func newPlatformBackend() (Backend, error) {
	user32 := windows.NewLazySystemDLL("user32.dll")
	sendInput := user32.NewProc("SendInput")
	if err := sendInput.Find(); err != nil {
		return nil, err
	}
	return &windowsBackend{
		user32:           user32,
		sendInput:        sendInput,
		getSystemMetrics: user32.NewProc("GetSystemMetrics"),
	}, nil
}

func (w *windowsBackend) Name() string { return "windows-sendinput" }

// normalize converts device pixels to the 0..65535 absolute coordinate
// space SendInput expects.
func (w *windowsBackend) normalize(x, y int) (int32, int32) {
	cw, _, _ := w.getSystemMetrics.Call(uintptr(smCXScreen))
	ch, _, _ := w.getSystemMetrics.Call(uintptr(smCYScreen))
	width := int(cw) - 1
	height := int(ch) - 1
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	nx := x * 65535 / width
	ny := y * 65535 / height
	return int32(clampInt(nx, 0, 65535)), int32(clampInt(ny, 0, 65535))
}

func (w *windowsBackend) send(flags uint32, x, y int) error {
	nx, ny := w.normalize(x, y)
	in := winInput{
		Type: inputMouse,
		Mi: mouseInput{
			Dx:    nx,
			Dy:    ny,
			Flags: flags,
		},
	}
	sent, _, err := w.sendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if sent != 1 {
		if err != nil && !errors.Is(err, windows.ERROR_SUCCESS) {
			return err
		}
		return errors.New("SendInput rejected the event")
	}
	return nil
}

func (w *windowsBackend) Move(x, y int) error {
	return w.send(mouseEventfMove|mouseEventfAbsolute, x, y)
}

func (w *windowsBackend) Press(x, y int) error {
	return w.send(mouseEventfMove|mouseEventfAbsolute|mouseEventfLeftDown, x, y)
}

func (w *windowsBackend) Release(x, y int) error {
	return w.send(mouseEventfMove|mouseEventfAbsolute|mouseEventfLeftUp, x, y)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
