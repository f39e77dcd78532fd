// Package segmentation provides the voxel-classification primitives used
// during fusion: intensity thresholding with flood-fill air partitioning,
// an exact 2D Euclidean distance transform, and per-slice body-width
// measurement.
package segmentation

// ClassMap holds the organ IDs the classifier assigns to each tissue
// class. Exterior air is always 0.
type ClassMap struct {
	InteriorAir int16
	SoftTissue  int16
	Bone        int16
}

// Classify converts raw CT intensities into organ IDs.
//
// Air (below airHU) is split by connectivity: components touching any face
// of the volume's bounding box are exterior and stay 0, everything else is
// interior air (lung cavities and similar). Thresholding alone would label
// internal air pockets as "no tissue" and punch holes through the body,
// so the flood fill is a correctness requirement, not an optimization.
func Classify(data []float64, nx, ny, nz int, airHU, boneHU float64, classes ClassMap) []int16 {
	isAir := make([]bool, len(data))
	for i, v := range data {
		isAir[i] = v < airHU
	}
	exterior := ExteriorAir(isAir, nx, ny, nz)

	out := make([]int16, len(data))
	for i, v := range data {
		switch {
		case isAir[i] && exterior[i]:
			// exterior stays 0
		case isAir[i]:
			out[i] = classes.InteriorAir
		case v < boneHU:
			out[i] = classes.SoftTissue
		default:
			out[i] = classes.Bone
		}
	}
	return out
}

// ExteriorAir returns the subset of air voxels reachable from any face of
// the bounding box through 6-connected air paths. The remaining air voxels
// form the interior-air set; every air voxel lands in exactly one of the
// two.
func ExteriorAir(isAir []bool, nx, ny, nz int) []bool {
	exterior := make([]bool, len(isAir))
	queue := make([]int, 0, nx*ny)

	push := func(x, y, z int) {
		idx := z*nx*ny + y*nx + x
		if isAir[idx] && !exterior[idx] {
			exterior[idx] = true
			queue = append(queue, idx)
		}
	}

	// Seed from all six faces.
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			push(0, y, z)
			push(nx-1, y, z)
		}
	}
	for z := 0; z < nz; z++ {
		for x := 0; x < nx; x++ {
			push(x, 0, z)
			push(x, ny-1, z)
		}
	}
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			push(x, y, 0)
			push(x, y, nz-1)
		}
	}

	// Iterative BFS keeps the traversal order, and therefore the result,
	// deterministic.
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		z := idx / (nx * ny)
		rem := idx % (nx * ny)
		y := rem / nx
		x := rem % nx

		if x > 0 {
			push(x-1, y, z)
		}
		if x < nx-1 {
			push(x+1, y, z)
		}
		if y > 0 {
			push(x, y-1, z)
		}
		if y < ny-1 {
			push(x, y+1, z)
		}
		if z > 0 {
			push(x, y, z-1)
		}
		if z < nz-1 {
			push(x, y, z+1)
		}
	}
	return exterior
}
