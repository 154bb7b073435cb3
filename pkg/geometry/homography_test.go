package geometry

import (
	"errors"
	"math"
	"testing"
)

var (
	cameraQuad = [4][2]float64{{80, 60}, {560, 70}, {550, 410}, {90, 400}}
	screenQuad = [4][2]float64{{0, 0}, {1920, 0}, {1920, 1080}, {0, 1080}}
)

func TestNewHomography_ExactAtCorners(t *testing.T) {
	h, err := NewHomography(cameraQuad, screenQuad)
	if err != nil {
		t.Fatalf("NewHomography: %v", err)
	}

	for i := range cameraQuad {
		x, y := h.Apply(cameraQuad[i][0], cameraQuad[i][1])
		if math.Abs(x-screenQuad[i][0]) > 1e-6 || math.Abs(y-screenQuad[i][1]) > 1e-6 {
			t.Errorf("corner %d: (%v, %v), want (%v, %v)",
				i, x, y, screenQuad[i][0], screenQuad[i][1])
		}
	}

	if e := h.ReprojectionError(cameraQuad, screenQuad); e > 1e-6 {
		t.Errorf("reprojection error %v for an exact solve", e)
	}
}

func TestNewHomography_PureScale(t *testing.T) {
	src := [4][2]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	dst := [4][2]float64{{0, 0}, {1000, 0}, {1000, 500}, {0, 500}}
	h, err := NewHomography(src, dst)
	if err != nil {
		t.Fatalf("NewHomography: %v", err)
	}

	// An affine mapping scales interior points linearly.
	x, y := h.Apply(50, 50)
	if math.Abs(x-500) > 1e-6 || math.Abs(y-250) > 1e-6 {
		t.Errorf("center mapped to (%v, %v), want (500, 250)", x, y)
	}
}

func TestNewHomography_Degenerate(t *testing.T) {
	// Collinear camera points cannot determine a projective transform.
	src := [4][2]float64{{0, 0}, {10, 10}, {20, 20}, {30, 30}}
	if _, err := NewHomography(src, screenQuad); !errors.Is(err, ErrDegenerate) {
		t.Errorf("collinear input: err = %v, want ErrDegenerate", err)
	}
}

func TestProjectNormalized_Clamps(t *testing.T) {
	h, err := NewHomography(cameraQuad, screenQuad)
	if err != nil {
		t.Fatalf("NewHomography: %v", err)
	}

	// A camera point far outside the calibration quad maps outside the
	// screen; normalized output must stay in [0,1].
	nx, ny := h.ProjectNormalized(-500, -500, 1920, 1080)
	if nx < 0 || nx > 1 || ny < 0 || ny > 1 {
		t.Errorf("normalized point escaped [0,1]: (%v, %v)", nx, ny)
	}
}

func TestDetectOrientation(t *testing.T) {
	const w, h = 1280, 720
	cases := []struct {
		name    string
		topLeft [2]float64
		want    int
	}{
		{"upright", [2]float64{100, 100}, 0},
		{"quarter turn", [2]float64{1200, 100}, 90},
		{"upside down", [2]float64{1200, 600}, 180},
		{"three quarters", [2]float64{100, 600}, 270},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectOrientation(tc.topLeft, w, h); got != tc.want {
				t.Errorf("DetectOrientation(%v) = %d, want %d", tc.topLeft, got, tc.want)
			}
		})
	}
}
