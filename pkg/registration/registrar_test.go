package registration

import (
	"testing"

	"phantomfuse/internal/models"
)

// makeCT builds a volume with the given fractions of bone and air voxels;
// the rest is soft tissue.
func makeCT(nx, ny, nz int, boneFrac, airFrac float64) *models.Volume {
	v := models.NewVolume(nx, ny, nz, models.Spacing{X: 1, Y: 1, Z: 1})
	n := v.Len()
	boneN := int(boneFrac * float64(n))
	airN := int(airFrac * float64(n))
	for i := 0; i < n; i++ {
		switch {
		case i < boneN:
			v.Data[i] = 500
		case i < boneN+airN:
			v.Data[i] = -800
		default:
			v.Data[i] = 40
		}
	}
	return v
}

// TestDetectRegion walks the classifier's decision table.
func TestDetectRegion(t *testing.T) {
	cases := []struct {
		name     string
		nz       int
		boneFrac float64
		airFrac  float64
		expected string
	}{
		{"short scan, bony", 30, 0.25, 0.05, RegionBrain},
		{"short scan, airy", 30, 0.05, 0.40, RegionChest},
		{"short scan, neither", 30, 0.05, 0.05, RegionAbdomen},
		{"medium scan, airy", 100, 0.05, 0.30, RegionChest},
		{"medium scan, dense", 100, 0.05, 0.05, RegionAbdomen},
		{"long scan", 200, 0.05, 0.05, RegionWholeBody},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ct := makeCT(32, 32, c.nz, c.boneFrac, c.airFrac)
			if got := DetectRegion(ct); got != c.expected {
				t.Errorf("Expected region %s, got %s", c.expected, got)
			}
		})
	}
}

// TestRegisterKnownRegion verifies placement for an explicitly requested
// region.
func TestRegisterKnownRegion(t *testing.T) {
	ct := makeCT(32, 32, 30, 0.05, 0.05)
	ct.Spacing = models.Spacing{X: 1.0, Y: 1.0, Z: 2.0}
	ref := models.NewVoxelGrid(254, 127, 222, models.Spacing{X: 2.137, Y: 2.137, Z: 8.0})

	tr := Register(ct, ref, RegionBrain)

	if tr.Region != RegionBrain {
		t.Errorf("Expected region brain, got %s", tr.Region)
	}
	if tr.AutoDetected {
		t.Error("Expected AutoDetected false for an explicit region")
	}

	// Brain occupies the top of the axial range: [0.75, 0.95] of 222.
	if tr.ZStart != 166 || tr.ZEnd != 210 {
		t.Errorf("Expected axial slab [166,210], got [%d,%d]", tr.ZStart, tr.ZEnd)
	}
	if tr.TargetCenter[0] != 127 || tr.TargetCenter[1] != 63 {
		t.Errorf("Expected in-plane center (127,63), got (%f,%f)", tr.TargetCenter[0], tr.TargetCenter[1])
	}
	if tr.TargetCenter[2] != 188 {
		t.Errorf("Expected axial center 188, got %f", tr.TargetCenter[2])
	}

	// Scale is the spacing ratio per axis.
	if tr.Scale[2] != 2.0/8.0 {
		t.Errorf("Expected Z scale 0.25, got %f", tr.Scale[2])
	}
}

// TestRegisterUnknownRegionFallsBack verifies the whole-body fallback for
// unrecognized tags.
func TestRegisterUnknownRegionFallsBack(t *testing.T) {
	ct := makeCT(16, 16, 16, 0.05, 0.05)
	ref := models.NewVoxelGrid(100, 100, 100, models.Spacing{X: 1, Y: 1, Z: 1})

	tr := Register(ct, ref, "elbow")

	if tr.Region != RegionWholeBody {
		t.Errorf("Expected whole-body fallback, got %s", tr.Region)
	}
	if tr.ZStart != 10 || tr.ZEnd != 90 {
		t.Errorf("Expected axial slab [10,90], got [%d,%d]", tr.ZStart, tr.ZEnd)
	}
}

// TestRegisterAutoDetect verifies that an empty region tag routes through
// the classifier and records it.
func TestRegisterAutoDetect(t *testing.T) {
	ct := makeCT(32, 32, 200, 0.05, 0.05)
	ref := models.NewVoxelGrid(100, 100, 100, models.Spacing{X: 1, Y: 1, Z: 1})

	tr := Register(ct, ref, "")

	if !tr.AutoDetected {
		t.Error("Expected AutoDetected true for an empty region tag")
	}
	if tr.Region != RegionWholeBody {
		t.Errorf("Expected detected whole-body region for a long scan, got %s", tr.Region)
	}
}

// TestRegionOffsets verifies that offset regions shift the target center.
func TestRegionOffsets(t *testing.T) {
	ct := makeCT(16, 16, 16, 0.05, 0.05)
	ref := models.NewVoxelGrid(200, 100, 100, models.Spacing{X: 1, Y: 1, Z: 1})

	liver := Register(ct, ref, RegionLiver)
	if liver.TargetCenter[0] != 100+0.05*200 {
		t.Errorf("Expected liver X center shifted by +0.05 of extent, got %f", liver.TargetCenter[0])
	}

	naso := Register(ct, ref, RegionNasopharynx)
	if naso.TargetCenter[1] != 50-0.1*100 {
		t.Errorf("Expected nasopharynx Y center shifted by -0.1 of extent, got %f", naso.TargetCenter[1])
	}
}
