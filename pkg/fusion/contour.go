package fusion

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"phantomfuse/pkg/interpolation"
	"phantomfuse/pkg/segmentation"
)

// matchContours adapts the patient sub-volume's in-plane body outline to
// the reference grid's outline near the axial boundaries of the overlap.
//
// It measures the body width of both volumes along X and Y over a handful
// of slices at each axial boundary. If any boundary width ratio deviates
// from 1 beyond the tolerance, every slice gets an anisotropic in-plane
// scale: the two boundary ratios linearly interpolated along Z, attenuated
// toward 1 over a fade zone at each boundary so the interior keeps the
// patient's native geometry. Returns the (possibly) rescaled organ IDs.
func (e *Engine) matchContours(ctIDs, phantomIDs []int16, nx, ny, nz int) ([]int16, bool) {
	if nz < 4 {
		return ctIDs, false
	}

	ctWX := make([]float64, nz)
	ctWY := make([]float64, nz)
	phWX := make([]float64, nz)
	phWY := make([]float64, nz)

	ctMask := make([]bool, nx*ny)
	phMask := make([]bool, nx*ny)
	for k := 0; k < nz; k++ {
		off := k * nx * ny
		for i := 0; i < nx*ny; i++ {
			ctMask[i] = ctIDs[off+i] > 0
			phMask[i] = phantomIDs[off+i] > 0
		}
		ctWX[k], ctWY[k] = segmentation.BodyWidth(ctMask, nx, ny)
		phWX[k], phWY[k] = segmentation.BodyWidth(phMask, nx, ny)
	}

	bs := e.cfg.Contour.BoundarySlices
	if bs > nz/4 {
		bs = nz / 4
	}
	if bs < 1 {
		bs = 1
	}

	minW := e.cfg.Contour.MinBodyWidth
	avgRatio := func(ctW, phW []float64, from, to int) float64 {
		var samples []float64
		for k := from; k < to; k++ {
			if ctW[k] > minW && phW[k] > minW {
				samples = append(samples, phW[k]/ctW[k])
			}
		}
		if len(samples) == 0 {
			return 1.0
		}
		return stat.Mean(samples, nil)
	}

	sxBot := avgRatio(ctWX, phWX, 0, bs)
	syBot := avgRatio(ctWY, phWY, 0, bs)
	sxTop := avgRatio(ctWX, phWX, nz-bs, nz)
	syTop := avgRatio(ctWY, phWY, nz-bs, nz)

	tol := e.cfg.Contour.RatioTolerance
	if math.Abs(sxBot-1) < tol && math.Abs(sxTop-1) < tol &&
		math.Abs(syBot-1) < tol && math.Abs(syTop-1) < tol {
		return ctIDs, false
	}

	logrus.WithFields(logrus.Fields{
		"bottom": []float64{sxBot, syBot},
		"top":    []float64{sxTop, syTop},
		"slices": nz,
	}).Info("contour mismatch above tolerance, applying per-slice scaling")

	fadeZone := math.Max(float64(nz)*e.cfg.Contour.EdgeFadeFraction, 1)
	out := append([]int16(nil), ctIDs...)

	forEachSlice(nz, e.cfg.Fusion.Workers, func(k int) {
		t := float64(k) / float64(nz-1)
		dist := float64(k)
		if d := float64(nz - 1 - k); d < dist {
			dist = d
		}
		// Boundary slices get the full correction; it fades linearly to
		// zero over the fade zone so the interior is untouched.
		w := math.Max(0, 1.0-dist/fadeZone)

		sx := 1.0 + w*((sxBot*(1-t)+sxTop*t)-1.0)
		sy := 1.0 + w*((syBot*(1-t)+syTop*t)-1.0)
		if math.Abs(sx-1) < 0.02 && math.Abs(sy-1) < 0.02 {
			return
		}

		off := k * nx * ny
		scaled, snx, sny := interpolation.RescaleSliceNearest(ctIDs[off:off+nx*ny], nx, ny, sx, sy)

		// Re-center and crop or pad back to the original in-plane extent.
		srcX0 := max(0, (snx-nx)/2)
		srcY0 := max(0, (sny-ny)/2)
		dstX0 := max(0, (nx-snx)/2)
		dstY0 := max(0, (ny-sny)/2)
		cw := min(snx-srcX0, nx-dstX0)
		ch := min(sny-srcY0, ny-dstY0)

		slice := out[off : off+nx*ny]
		for i := range slice {
			slice[i] = 0
		}
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				slice[(dstY0+y)*nx+dstX0+x] = scaled[(srcY0+y)*snx+srcX0+x]
			}
		}
	})

	return out, true
}
