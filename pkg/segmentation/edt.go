package segmentation

import "math"

// unreachable is the per-site penalty for body elements before the
// transform runs. A large finite value rather than a true infinity keeps
// the parabola-intersection arithmetic of the lower-envelope scan well
// defined when a body run starts at the mask border; squared distances at
// this magnitude mean "no background reachable" and are reported as +Inf.
const unreachable = 1e20

// DistanceTransform2D computes the exact Euclidean distance transform of a
// 2D mask: for every true (body) element, the distance in voxels to the
// nearest false (background) element; false elements get 0. Uses the
// two-pass lower-envelope algorithm of Felzenszwalb and Huttenlocher,
// which is exact and runs in linear time per axis.
//
// If the mask has no background at all the distances are +Inf, which the
// callers' logistic weighting maps to 1.
func DistanceTransform2D(mask []bool, nx, ny int) []float64 {
	d := make([]float64, nx*ny)
	for i, m := range mask {
		if m {
			d[i] = unreachable
		}
	}

	// Pass 1: squared distances along rows.
	row := make([]float64, nx)
	for y := 0; y < ny; y++ {
		copy(row, d[y*nx:(y+1)*nx])
		dt1d(row, d[y*nx:(y+1)*nx])
	}

	// Pass 2: columns, then take the square root.
	col := make([]float64, ny)
	out := make([]float64, ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			col[y] = d[y*nx+x]
		}
		dt1d(col, out)
		for y := 0; y < ny; y++ {
			if out[y] >= unreachable/2 {
				d[y*nx+x] = math.Inf(1)
			} else {
				d[y*nx+x] = math.Sqrt(out[y])
			}
		}
	}
	return d
}

// dt1d computes the 1D squared-distance transform of sampled function f
// into dst (both length n). f is consumed as the per-site penalty.
func dt1d(f, dst []float64) {
	n := len(f)
	if n == 0 {
		return
	}
	v := make([]int, n)
	z := make([]float64, n+1)

	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for k > 0 && s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		dst[q] = dq*dq + f[v[k]]
	}
}

// intersect returns the abscissa where the parabolas rooted at q and p
// cross. Finite penalties everywhere keep this plain arithmetic.
func intersect(f []float64, q, p int) float64 {
	return ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
}
