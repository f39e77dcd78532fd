package mcnp

import "phantomfuse/internal/models"

// Downsample reduces a grid by an integer factor per axis using
// block-corner selection: each output voxel takes the value at its block's
// (0,0,0) corner. Organ IDs are categorical, so averaging would invent
// tissues that are not there; the corner pick is a fast nearest-neighbor
// stand-in for the block mode. Trailing voxels that do not fill a whole
// block are trimmed, but never below one voxel per axis, so a grid
// smaller than the factor still yields an encodable lattice.
func Downsample(g *models.VoxelGrid, factor int) *models.VoxelGrid {
	if factor <= 1 {
		return g.Clone()
	}
	nx := max(g.NX/factor, 1)
	ny := max(g.NY/factor, 1)
	nz := max(g.NZ/factor, 1)

	out := models.NewVoxelGrid(nx, ny, nz, g.Spacing)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				out.Set(x, y, z, g.At(x*factor, y*factor, z*factor))
			}
		}
	}
	return out
}
