// Package interpolation implements the volume resampling used by the
// fusion pipeline: trilinear interpolation for continuous CT intensities
// and nearest-neighbor selection for categorical organ-ID grids.
package interpolation

import (
	"math"

	"phantomfuse/internal/models"
)

// outputDim maps an input dimension through a scale factor, never
// collapsing below one voxel.
func outputDim(n int, factor float64) int {
	out := int(math.Round(float64(n) * factor))
	if out < 1 {
		out = 1
	}
	return out
}

// srcCoord maps an output index onto the input axis with the endpoints
// aligned, so the first and last samples of both axes coincide.
func srcCoord(i, nOut, nIn int) float64 {
	if nOut <= 1 || nIn <= 1 {
		return 0
	}
	return float64(i) * float64(nIn-1) / float64(nOut-1)
}

// ResampleTrilinear resamples a volume to the target voxel spacing using
// linear interpolation along each axis. The volume keeps its own local
// coordinate frame; only the sampling density changes.
func ResampleTrilinear(v *models.Volume, target models.Spacing) *models.Volume {
	fx := v.Spacing.X / target.X
	fy := v.Spacing.Y / target.Y
	fz := v.Spacing.Z / target.Z

	nx := outputDim(v.NX, fx)
	ny := outputDim(v.NY, fy)
	nz := outputDim(v.NZ, fz)

	out := models.NewVolume(nx, ny, nz, target)

	for z := 0; z < nz; z++ {
		sz := srcCoord(z, nz, v.NZ)
		z0 := int(sz)
		z1 := z0 + 1
		if z1 >= v.NZ {
			z1 = v.NZ - 1
		}
		tz := sz - float64(z0)

		for y := 0; y < ny; y++ {
			sy := srcCoord(y, ny, v.NY)
			y0 := int(sy)
			y1 := y0 + 1
			if y1 >= v.NY {
				y1 = v.NY - 1
			}
			ty := sy - float64(y0)

			for x := 0; x < nx; x++ {
				sx := srcCoord(x, nx, v.NX)
				x0 := int(sx)
				x1 := x0 + 1
				if x1 >= v.NX {
					x1 = v.NX - 1
				}
				tx := sx - float64(x0)

				// Interpolate along X on the four edges, then Y, then Z.
				c00 := lerp(v.At(x0, y0, z0), v.At(x1, y0, z0), tx)
				c10 := lerp(v.At(x0, y1, z0), v.At(x1, y1, z0), tx)
				c01 := lerp(v.At(x0, y0, z1), v.At(x1, y0, z1), tx)
				c11 := lerp(v.At(x0, y1, z1), v.At(x1, y1, z1), tx)

				c0 := lerp(c00, c10, ty)
				c1 := lerp(c01, c11, ty)

				out.Set(x, y, z, lerp(c0, c1, tz))
			}
		}
	}
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ResampleNearestGrid rescales an organ-ID grid by per-axis factors using
// nearest-neighbor selection. Averaging would invent organ IDs, so each
// output voxel takes the value of the closest input voxel. Spacing is
// preserved.
func ResampleNearestGrid(g *models.VoxelGrid, factors [3]float64) *models.VoxelGrid {
	nx := outputDim(g.NX, factors[0])
	ny := outputDim(g.NY, factors[1])
	nz := outputDim(g.NZ, factors[2])

	out := models.NewVoxelGrid(nx, ny, nz, g.Spacing)

	for z := 0; z < nz; z++ {
		sz := nearestIndex(z, nz, g.NZ)
		for y := 0; y < ny; y++ {
			sy := nearestIndex(y, ny, g.NY)
			for x := 0; x < nx; x++ {
				sx := nearestIndex(x, nx, g.NX)
				out.Set(x, y, z, g.At(sx, sy, sz))
			}
		}
	}
	return out
}

func nearestIndex(i, nOut, nIn int) int {
	s := int(math.Round(srcCoord(i, nOut, nIn)))
	if s < 0 {
		s = 0
	}
	if s >= nIn {
		s = nIn - 1
	}
	return s
}

// RescaleSliceNearest rescales a single in-plane slice of organ IDs by
// independent X and Y factors, returning the new slice and its dimensions.
// Used by contour matching, where each axial slice gets its own factors.
func RescaleSliceNearest(src []int16, nx, ny int, sx, sy float64) ([]int16, int, int) {
	onx := outputDim(nx, sx)
	ony := outputDim(ny, sy)
	out := make([]int16, onx*ony)
	for y := 0; y < ony; y++ {
		syi := nearestIndex(y, ony, ny)
		for x := 0; x < onx; x++ {
			sxi := nearestIndex(x, onx, nx)
			out[y*onx+x] = src[syi*nx+sxi]
		}
	}
	return out, onx, ony
}
