package fusion

import "math"

// Sigmoid is the numerically stable logistic function.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// transition is one logistic transition band, in voxel units.
//
// weight(d) crosses 0.5 exactly at half the band width and reaches ~0.05
// and ~0.95 at the band's edges; beyond the band it saturates toward 1.
type transition struct {
	half float64
	k    float64
}

// newTransition builds a band of the given width in voxels. The steepness
// 6/width makes the logistic span ~5%..95% across [0, width].
func newTransition(widthVox float64) transition {
	return transition{
		half: widthVox / 2.0,
		k:    6.0 / math.Max(widthVox, 1.0),
	}
}

// weight evaluates the band at a distance from the boundary.
func (t transition) weight(dist float64) float64 {
	return Sigmoid((dist - t.half) * t.k)
}

// axialWeights returns the per-slice axial blend weight: a logistic
// function of the distance to the nearest axial boundary of the overlap
// region. Slices farther than the transition width from both boundaries
// get weight ~1.
func axialWeights(nz int, widthVox float64) []float64 {
	t := newTransition(widthVox)
	w := make([]float64, nz)
	for k := 0; k < nz; k++ {
		dist := float64(k)
		if d := float64(nz - 1 - k); d < dist {
			dist = d
		}
		w[k] = t.weight(dist)
	}
	return w
}
