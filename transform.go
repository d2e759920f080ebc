package framebridge

import "math"

// Clamp bounds for per-camera correction parameters.
const (
	minCorrectionScale     = 0.1
	maxCorrectionScale     = 8.0
	minCorrectionTranslate = -5.0
	maxCorrectionTranslate = 5.0
)

// CorrectionParams describes the per-camera mounting correction applied on
// top of the device base rotation. Translate values are fractions of the
// viewport size, not pixels. The zero value is a disabled correction.
type CorrectionParams struct {
	// Enabled gates the whole correction. When false the rotation, scale
	// and translate fields are ignored.
	Enabled bool

	// RotationDegrees is an arbitrary angle, conceptually in [0, 360).
	RotationDegrees float64

	// ScaleX and ScaleY are clamped to [0.1, 8.0] before use.
	ScaleX, ScaleY float64

	// TranslateX and TranslateY are fractions of the viewport width and
	// height, clamped to [-5.0, 5.0] before use.
	TranslateX, TranslateY float64
}

// Clamped returns a copy with scale and translate bounded to their valid
// ranges. Clamping is idempotent: Clamped().Clamped() == Clamped().
func (p CorrectionParams) Clamped() CorrectionParams {
	p.ScaleX = clamp(p.ScaleX, minCorrectionScale, maxCorrectionScale)
	p.ScaleY = clamp(p.ScaleY, minCorrectionScale, maxCorrectionScale)
	p.TranslateX = clamp(p.TranslateX, minCorrectionTranslate, maxCorrectionTranslate)
	p.TranslateY = clamp(p.TranslateY, minCorrectionTranslate, maxCorrectionTranslate)
	return p
}

// TransformRequest carries the inputs of one preview transform computation.
type TransformRequest struct {
	// ViewportWidth and ViewportHeight are the preview viewport size in
	// pixels. Both must be positive or no transform is produced.
	ViewportWidth, ViewportHeight int

	// SourceWidth and SourceHeight are the camera frame size in pixels.
	// Zero means unknown; the center-crop fill step is skipped.
	SourceWidth, SourceHeight int

	// BaseRotationDegrees is the device rotation, in practice one of
	// 0, 90, 180 or 270 but any angle is accepted.
	BaseRotationDegrees float64

	Correction CorrectionParams
}

// ComputePreviewTransform computes the affine matrix that maps a camera
// frame onto the preview viewport. The second return value is false when
// the viewport size is not positive; the caller skips applying a matrix
// in that case.
//
// The composition order, each step about the viewport center:
// center-crop fill, base rotation (with axis-swap compensation for
// 90-degree-class rotations), correction scale, correction rotation with
// bounding-box fill compensation, correction translate in pixels.
func ComputePreviewTransform(req TransformRequest) (Matrix, bool) {
	if req.ViewportWidth <= 0 || req.ViewportHeight <= 0 {
		return Matrix{}, false
	}

	vw := float64(req.ViewportWidth)
	vh := float64(req.ViewportHeight)
	cx := vw / 2
	cy := vh / 2

	corr := req.Correction.Clamped()
	corrRotation := 0.0
	if corr.Enabled {
		corrRotation = corr.RotationDegrees
	}

	// The effective source orientation depends on the total rotation the
	// frame undergoes, not the base rotation alone.
	total := normalizeDegrees(req.BaseRotationDegrees + corrRotation)
	portraitLike := IsCloserToPortrait(total)

	m := Identity()

	// Center-crop fill: scale about the center so the frame covers the
	// viewport, cropping the overflow. Never letterboxes.
	if req.SourceWidth > 0 && req.SourceHeight > 0 {
		srcW := float64(req.SourceWidth)
		srcH := float64(req.SourceHeight)
		if portraitLike {
			srcW, srcH = srcH, srcW
		}
		srcAspect := srcW / srcH
		viewAspect := vw / vh
		fillX, fillY := 1.0, 1.0
		if srcAspect > viewAspect {
			fillX = srcAspect / viewAspect
		} else {
			fillY = viewAspect / srcAspect
		}
		m = ScaleAbout(fillX, fillY, cx, cy).Multiply(m)
	}

	// Base rotation. A 90-degree-class rotation swaps the viewport axes,
	// so a (1/aspect, aspect) scale restores the fill. The scale composes
	// under the rotation: the rotation carries its axes onto the swapped
	// viewport axes, which is what makes the rotated frame cover the
	// viewport again.
	if req.BaseRotationDegrees != 0 {
		base := normalizeDegrees(req.BaseRotationDegrees)
		if base == 90 || base == 270 {
			aspect := vw / vh
			m = ScaleAbout(1/aspect, aspect, cx, cy).Multiply(m)
		}
		m = RotateAbout(req.BaseRotationDegrees*math.Pi/180, cx, cy).Multiply(m)
	}

	if corr.Enabled {
		m = ScaleAbout(corr.ScaleX, corr.ScaleY, cx, cy).Multiply(m)

		// Arbitrary-angle correction rotation. After rotating by theta,
		// the bounding box of a vw x vh rectangle grows to
		// vw*|cos|+vh*|sin| by vw*|sin|+vh*|cos|; scaling by those
		// factors (relative to the viewport) keeps it fully covered.
		if corrRotation != 0 {
			rad := corrRotation * math.Pi / 180
			m = RotateAbout(rad, cx, cy).Multiply(m)
			absCos := math.Abs(math.Cos(rad))
			absSin := math.Abs(math.Sin(rad))
			compensateX := absCos + (vh/vw)*absSin
			compensateY := (vw/vh)*absSin + absCos
			m = ScaleAbout(compensateX, compensateY, cx, cy).Multiply(m)
		}

		// Translate last so the pixel offset is unaffected by the
		// scale and rotation pivots above.
		m = Translate(corr.TranslateX*vw, corr.TranslateY*vh).Multiply(m)
	}

	return m, true
}

// IsCloserToPortrait reports whether a frame rotated by the given total
// angle is closer to portrait orientation than landscape, meaning the
// source width and height should be swapped for aspect computations.
// The portrait window is [45, 135) modulo 180: exactly 45 counts as
// portrait-like, exactly 135 does not.
func IsCloserToPortrait(degrees float64) bool {
	mod180 := math.Mod(normalizeDegrees(degrees), 180)
	return mod180 >= 45 && mod180 < 135
}

// normalizeDegrees maps an angle to [0, 360).
func normalizeDegrees(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CorrectionProvider supplies correction parameters per camera. It is the
// boundary to the configuration store, which this package does not own.
type CorrectionProvider interface {
	Correction(cameraID string) CorrectionParams
}

// PreviewSizer reports the current preview frame size of a camera.
// ok is false when the size is not yet known.
type PreviewSizer interface {
	PreviewSize(cameraID string) (width, height int, ok bool)
}

// PreviewTransform computes the preview matrix for one camera by pulling
// its correction parameters and frame size from the given collaborators.
// Convenience wrapper over [ComputePreviewTransform].
func PreviewTransform(provider CorrectionProvider, sizer PreviewSizer, cameraID string, viewportW, viewportH int, baseRotationDegrees float64) (Matrix, bool) {
	req := TransformRequest{
		ViewportWidth:       viewportW,
		ViewportHeight:      viewportH,
		BaseRotationDegrees: baseRotationDegrees,
	}
	if provider != nil {
		req.Correction = provider.Correction(cameraID)
	}
	if sizer != nil {
		if w, h, ok := sizer.PreviewSize(cameraID); ok {
			req.SourceWidth = w
			req.SourceHeight = h
		}
	}
	return ComputePreviewTransform(req)
}
