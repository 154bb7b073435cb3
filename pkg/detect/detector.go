package detect

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Params bound the contour sizes the detector will accept.
type Params struct {
	MinArea float64
	MaxArea float64
}

// DefaultParams matches a small IR pen LED seen by a 720p webcam.
func DefaultParams() Params {
	return Params{MinArea: 5, MaxArea: 500}
}

// Detector extracts bright compact blobs from frames. It is stateless;
// each call is a pure function of the frame and the params.
type Detector struct {
	params Params
}

// NewDetector creates a blob detector with the given area bounds.
func NewDetector(params Params) *Detector {
	return &Detector{params: params}
}

// Params returns the detector's current area bounds.
func (d *Detector) Params() Params {
	return d.params
}

// SetParams replaces the area bounds.
func (d *Detector) SetParams(p Params) {
	d.params = p
}

// FindBlobs locates candidate pen blobs in one BGR or grayscale frame,
// sorted best-first by the shared intensity/area weighting.
//
// Binarization uses an Otsu threshold rather than a fixed cutoff so the
// detector adapts to ambient lighting.
func (d *Detector) FindBlobs(frame gocv.Mat) []Blob {
	if frame.Empty() {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(blurred, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	var blobs []Blob
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area < d.params.MinArea || area > d.params.MaxArea {
			continue
		}

		mask := gocv.Zeros(gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
		gocv.DrawContours(&mask, contours, i, white, -1)
		m := gocv.Moments(mask, true)
		if m["m00"] == 0 {
			// Degenerate geometry, skip silently
			mask.Close()
			continue
		}
		cx := m["m10"] / m["m00"]
		cy := m["m01"] / m["m00"]
		intensity := gray.MeanWithMask(mask).Val1
		mask.Close()

		confidence := (intensity/255.0)*intensityWeight + (area/d.params.MaxArea)*areaWeight
		if confidence > 1 {
			confidence = 1
		}
		blobs = append(blobs, Blob{
			X:          cx,
			Y:          cy,
			Area:       area,
			Intensity:  intensity,
			Confidence: confidence,
		})
	}

	SortByScore(blobs)
	return blobs
}
