// Package calibration runs the guided 4-corner procedure that produces
// the camera→screen homography and the learned detection thresholds.
package calibration

// TargetOffset insets the corner targets from the screen edge so the
// full marker stays visible on projectors that overscan slightly.
const TargetOffset = 0.035

// Target is one on-screen calibration goal, in normalized screen
// coordinates.
type Target struct {
	Name string
	X, Y float64
}

// TargetOrder is the fixed corner sequence. The top-left target going
// first is load-bearing: camera orientation detection keys off it.
var TargetOrder = [4]Target{
	{Name: "top_left", X: TargetOffset, Y: TargetOffset},
	{Name: "top_right", X: 1 - TargetOffset, Y: TargetOffset},
	{Name: "bottom_right", X: 1 - TargetOffset, Y: 1 - TargetOffset},
	{Name: "bottom_left", X: TargetOffset, Y: 1 - TargetOffset},
}

// ScreenBounds describes the display the overlay covers. In mirrored
// mode the origin is always (0,0).
type ScreenBounds struct {
	Width   int
	Height  int
	OriginX int
	OriginY int
}
