package interpolation

import (
	"math"
	"testing"

	"phantomfuse/internal/models"
)

// TestResampleTrilinearIdentity verifies that resampling to the same
// spacing reproduces the input values exactly.
func TestResampleTrilinearIdentity(t *testing.T) {
	spacing := models.Spacing{X: 1, Y: 1, Z: 1}
	v := models.NewVolume(4, 3, 2, spacing)
	for i := range v.Data {
		v.Data[i] = float64(i) * 1.5
	}

	out := ResampleTrilinear(v, spacing)

	if out.NX != 4 || out.NY != 3 || out.NZ != 2 {
		t.Fatalf("Expected shape 4x3x2, got %dx%dx%d", out.NX, out.NY, out.NZ)
	}
	for i := range v.Data {
		if math.Abs(out.Data[i]-v.Data[i]) > 1e-12 {
			t.Errorf("Voxel %d: expected %f, got %f", i, v.Data[i], out.Data[i])
		}
	}
}

// TestResampleTrilinearUpsampleLine verifies linear interpolation on a 1D
// ramp: doubling the sampling density along X must land midpoints exactly
// between neighbors.
func TestResampleTrilinearUpsampleLine(t *testing.T) {
	v := models.NewVolume(3, 1, 1, models.Spacing{X: 2, Y: 1, Z: 1})
	v.Data = []float64{0, 10, 20}

	// Halving the spacing doubles the sampling density.
	out := ResampleTrilinear(v, models.Spacing{X: 1, Y: 1, Z: 1})

	if out.NX != 6 {
		t.Fatalf("Expected 6 samples, got %d", out.NX)
	}
	// Endpoints must be preserved exactly.
	if out.Data[0] != 0 {
		t.Errorf("Expected first sample 0, got %f", out.Data[0])
	}
	if math.Abs(out.Data[5]-20) > 1e-12 {
		t.Errorf("Expected last sample 20, got %f", out.Data[5])
	}
	// Interior samples of a linear ramp stay on the ramp.
	for i := 1; i < 5; i++ {
		expected := 20.0 * float64(i) / 5.0
		if math.Abs(out.Data[i]-expected) > 1e-9 {
			t.Errorf("Sample %d: expected %f, got %f", i, expected, out.Data[i])
		}
	}
}

// TestResampleNearestGridPreservesIDs verifies that nearest-neighbor grid
// resampling never invents organ IDs and preserves the spacing.
func TestResampleNearestGridPreservesIDs(t *testing.T) {
	g := models.NewVoxelGrid(4, 4, 4, models.Spacing{X: 2, Y: 2, Z: 8})
	allowed := map[int16]bool{0: true, 46: true, 107: true}
	for i := range g.Data {
		switch i % 3 {
		case 0:
			g.Data[i] = 0
		case 1:
			g.Data[i] = 46
		default:
			g.Data[i] = 107
		}
	}

	out := ResampleNearestGrid(g, [3]float64{1.5, 1.5, 0.75})

	if out.NX != 6 || out.NY != 6 || out.NZ != 3 {
		t.Fatalf("Expected shape 6x6x3, got %dx%dx%d", out.NX, out.NY, out.NZ)
	}
	if out.Spacing != g.Spacing {
		t.Errorf("Expected spacing unchanged, got %+v", out.Spacing)
	}
	for i, v := range out.Data {
		if !allowed[v] {
			t.Errorf("Voxel %d: unexpected organ ID %d", i, v)
		}
	}
}

// TestOutputDimNeverCollapses verifies the one-voxel floor.
func TestOutputDimNeverCollapses(t *testing.T) {
	if got := outputDim(10, 0.01); got != 1 {
		t.Errorf("Expected floor of 1 voxel, got %d", got)
	}
	if got := outputDim(10, 2.0); got != 20 {
		t.Errorf("Expected 20 voxels, got %d", got)
	}
}

// TestRescaleSliceNearest verifies in-plane rescaling on a slice with a
// centered square: doubling both factors doubles the square's extent.
func TestRescaleSliceNearest(t *testing.T) {
	nx, ny := 8, 8
	src := make([]int16, nx*ny)
	for y := 3; y < 5; y++ {
		for x := 3; x < 5; x++ {
			src[y*nx+x] = 107
		}
	}

	out, onx, ony := RescaleSliceNearest(src, nx, ny, 2.0, 2.0)
	if onx != 16 || ony != 16 {
		t.Fatalf("Expected 16x16 output, got %dx%d", onx, ony)
	}

	count := 0
	for _, v := range out {
		if v == 107 {
			count++
		} else if v != 0 {
			t.Fatalf("Unexpected organ ID %d in rescaled slice", v)
		}
	}
	// 2x2 body at factor 2 per axis covers roughly 4x the area; nearest
	// sampling rounds the boundary so allow one voxel of slack per edge.
	if count < 9 || count > 25 {
		t.Errorf("Expected roughly 16 body voxels after 2x rescale, got %d", count)
	}
}
