//go:build !linux && !windows

package pointer

import "errors"

// No native injection path on this platform; the driver falls back to
// the generic backend.
func newPlatformBackend() (Backend, error) {
	return nil, errors.New("no native pointer backend for this platform")
}
