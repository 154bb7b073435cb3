// Package camera supplies the latest frame from a local capture device
// or a remote ingest stream. Grabbing runs in the background; consumers
// only ever see the most recent frame (older frames are dropped on
// purpose to bound memory and latency).
package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Source is the frame-supply contract the tracking and calibration
// workers consume. LatestFrame never blocks; ok is false until a first
// frame has arrived. The returned Mat is a copy the caller must Close.
type Source interface {
	LatestFrame() (gocv.Mat, bool)
}

// Descriptor identifies one openable capture device.
type Descriptor struct {
	DeviceID int    `json:"device_id"`
	Label    string `json:"label"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// EnumerateDevices probes the first maxDevices capture indices and
// reports the ones that open. An empty result means no camera is
// reachable; that is a recoverable condition, not an error.
func EnumerateDevices(maxDevices int) []Descriptor {
	var devices []Descriptor
	for id := 0; id < maxDevices; id++ {
		vc, err := gocv.OpenVideoCapture(id)
		if err != nil {
			continue
		}
		if !vc.IsOpened() {
			vc.Close()
			continue
		}
		devices = append(devices, Descriptor{
			DeviceID: id,
			Label:    fmt.Sprintf("Camera %d", id),
			Width:    int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height:   int(vc.Get(gocv.VideoCaptureFrameHeight)),
		})
		vc.Close()
	}
	return devices
}
