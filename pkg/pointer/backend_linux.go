//go:build linux

package pointer

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux input constants (linux/input-event-codes.h, linux/uinput.h).
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00
	btnLeft   = 0x110
	absX      = 0x00
	absY      = 0x01

	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	// Virtual axis range; the compositor maps it onto the screen.
	absRange = 0xFFFF
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FFEffectsMax uint32
	AbsMax       [64]int32
	AbsMin       [64]int32
	AbsFuzz      [64]int32
	AbsFlat      [64]int32
}

// inputEvent mirrors struct input_event on 64-bit kernels.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// linuxBackend drives a virtual absolute pointing device created
// through /dev/uinput. Absolute positioning works on both X11 and
// Wayland because the events come from a real (virtual) input device.
type linuxBackend struct {
	fd int

	mu      sync.Mutex
	screenW int
	screenH int
}

func newPlatformBackend() (Backend, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w (add user to the input group?)", err)
	}

	b := &linuxBackend{fd: fd, screenW: 1920, screenH: 1080}
	if err := b.setup(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return b, nil
}

func (b *linuxBackend) setup() error {
	for _, ev := range []int{evKey, evAbs, evSyn} {
		if err := unix.IoctlSetInt(b.fd, uiSetEvBit, ev); err != nil {
			return fmt.Errorf("uinput UI_SET_EVBIT: %w", err)
		}
	}
	if err := unix.IoctlSetInt(b.fd, uiSetKeyBit, btnLeft); err != nil {
		return fmt.Errorf("uinput UI_SET_KEYBIT: %w", err)
	}
	for _, axis := range []int{absX, absY} {
		if err := unix.IoctlSetInt(b.fd, uiSetAbsBit, axis); err != nil {
			return fmt.Errorf("uinput UI_SET_ABSBIT: %w", err)
		}
	}

	dev := uinputUserDev{
		ID: inputID{Bustype: 0x03, Vendor: 0x1d6b, Product: 0x0104, Version: 1},
	}
	copy(dev.Name[:], "refurboard-pointer")
	dev.AbsMax[absX] = absRange
	dev.AbsMax[absY] = absRange

	buf := (*[unsafe.Sizeof(dev)]byte)(unsafe.Pointer(&dev))[:]
	if _, err := unix.Write(b.fd, buf); err != nil {
		return fmt.Errorf("uinput device setup: %w", err)
	}
	if err := unix.IoctlSetInt(b.fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput UI_DEV_CREATE: %w", err)
	}
	return nil
}

func (b *linuxBackend) Name() string { return "linux-uinput" }

// SetScreenSize updates the pixel-to-axis scaling.
func (b *linuxBackend) SetScreenSize(w, h int) {
	b.mu.Lock()
	if w > 0 {
		b.screenW = w
	}
	if h > 0 {
		b.screenH = h
	}
	b.mu.Unlock()
}

func (b *linuxBackend) emit(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(ev)]byte)(unsafe.Pointer(&ev))[:]
	_, err := unix.Write(b.fd, buf)
	return err
}

func (b *linuxBackend) moveAbs(x, y int) error {
	b.mu.Lock()
	w, h := b.screenW, b.screenH
	b.mu.Unlock()

	ax := int32(clampInt(x*absRange/maxInt(w-1, 1), 0, absRange))
	ay := int32(clampInt(y*absRange/maxInt(h-1, 1), 0, absRange))
	if err := b.emit(evAbs, absX, ax); err != nil {
		return err
	}
	if err := b.emit(evAbs, absY, ay); err != nil {
		return err
	}
	return b.emit(evSyn, synReport, 0)
}

func (b *linuxBackend) Move(x, y int) error {
	return b.moveAbs(x, y)
}

func (b *linuxBackend) Press(x, y int) error {
	if err := b.moveAbs(x, y); err != nil {
		return err
	}
	if err := b.emit(evKey, btnLeft, 1); err != nil {
		return err
	}
	return b.emit(evSyn, synReport, 0)
}

func (b *linuxBackend) Release(x, y int) error {
	if err := b.moveAbs(x, y); err != nil {
		return err
	}
	if err := b.emit(evKey, btnLeft, 0); err != nil {
		return err
	}
	return b.emit(evSyn, synReport, 0)
}

// Close destroys the virtual device.
func (b *linuxBackend) Close() error {
	unix.IoctlSetInt(b.fd, uiDevDestroy, 0)
	return unix.Close(b.fd)
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
