package geometry

// DetectOrientation infers the camera's physical rotation (0, 90, 180 or
// 270 degrees clockwise) from where the screen's top-left calibration
// target landed in the camera frame. With an unrotated camera the
// top-left target appears in the frame's upper-left quadrant; each 90°
// of rotation moves it one quadrant around.
func DetectOrientation(topLeft [2]float64, frameW, frameH int) int {
	cx := float64(frameW) / 2
	cy := float64(frameH) / 2
	if cx <= 0 || cy <= 0 {
		return 0
	}

	left := topLeft[0] < cx
	top := topLeft[1] < cy
	switch {
	case left && top:
		return 0
	case !left && top:
		return 90
	case !left && !top:
		return 180
	default:
		return 270
	}
}
