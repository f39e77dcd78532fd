// Package registration classifies a patient CT volume's anatomical region
// and computes the rigid placement (translation plus per-axis scale) that
// locates it inside the reference phantom grid.
package registration

import (
	"github.com/sirupsen/logrus"

	"phantomfuse/internal/models"
)

// Region tags recognized by the registrar.
const (
	RegionBrain       = "brain"
	RegionNasopharynx = "nasopharynx"
	RegionChest       = "chest"
	RegionAbdomen     = "abdomen"
	RegionLiver       = "liver"
	RegionPelvis      = "pelvis"
	RegionLegs        = "legs"
	RegionWholeBody   = "wholebody"
)

// Intensity thresholds for the two region-detection features.
const (
	boneHU = 200
	airHU  = -500
)

// regionParams places a region inside the reference grid: a normalized
// axial range and a center offset, both as fractions of the grid extent.
// Precomputed from anatomical atlases.
type regionParams struct {
	zLo, zHi    float64
	offset      [3]float64
	description string
}

var regionTable = map[string]regionParams{
	RegionBrain:       {0.75, 0.95, [3]float64{0, 0, 0}, "Head/Brain"},
	RegionNasopharynx: {0.70, 0.80, [3]float64{0, -0.1, 0}, "Nasopharynx"},
	RegionChest:       {0.50, 0.70, [3]float64{0, 0, 0}, "Chest"},
	RegionAbdomen:     {0.40, 0.60, [3]float64{0, 0, 0}, "Abdomen"},
	RegionLiver:       {0.45, 0.60, [3]float64{0.05, 0, 0}, "Liver"},
	RegionPelvis:      {0.25, 0.45, [3]float64{0, 0, 0}, "Pelvis"},
	RegionLegs:        {0.00, 0.30, [3]float64{0, 0, 0}, "Legs"},
	RegionWholeBody:   {0.10, 0.90, [3]float64{0, 0, 0}, "Whole body"},
}

// Describe returns the human-readable description of a region tag.
func Describe(region string) string {
	if rp, ok := regionTable[region]; ok {
		return rp.description
	}
	return region
}

// DetectRegion classifies a CT volume's anatomical region from two scalar
// features (the fraction of voxels above the bone threshold and the
// fraction below the air threshold) combined with the axial slice count.
func DetectRegion(ct *models.Volume) string {
	total := float64(ct.Len())
	var bone, air float64
	for _, v := range ct.Data {
		if v > boneHU {
			bone++
		}
		if v < airHU {
			air++
		}
	}
	boneRatio := bone / total
	airRatio := air / total

	var region string
	switch {
	case ct.NZ < 50:
		switch {
		case boneRatio > 0.15:
			region = RegionBrain
		case airRatio > 0.3:
			region = RegionChest
		default:
			region = RegionAbdomen
		}
	case ct.NZ < 150:
		if airRatio > 0.2 {
			region = RegionChest
		} else {
			region = RegionAbdomen
		}
	default:
		region = RegionWholeBody
	}

	logrus.WithFields(logrus.Fields{
		"slices":    ct.NZ,
		"boneRatio": boneRatio,
		"airRatio":  airRatio,
		"region":    region,
	}).Info("anatomical region detected")
	return region
}

// Register computes the rigid placement of a CT volume inside the
// reference grid. An empty region tag triggers auto-detection; an unknown
// tag falls back to the whole-body range with a logged warning. Register
// never fails.
func Register(ct *models.Volume, ref *models.VoxelGrid, region string) models.RegistrationTransform {
	autoDetected := region == ""
	if autoDetected {
		region = DetectRegion(ct)
	}

	rp, ok := regionTable[region]
	if !ok {
		logrus.WithField("region", region).
			Warn("unknown anatomical region, falling back to whole-body range")
		region = RegionWholeBody
		rp = regionTable[RegionWholeBody]
	}

	zStart := int(float64(ref.NZ) * rp.zLo)
	zEnd := int(float64(ref.NZ) * rp.zHi)

	targetCenter := [3]float64{
		float64(ref.NX/2) + rp.offset[0]*float64(ref.NX),
		float64(ref.NY/2) + rp.offset[1]*float64(ref.NY),
		float64((zStart+zEnd)/2) + rp.offset[2]*float64(ref.NZ),
	}

	scale := [3]float64{
		ct.Spacing.X / ref.Spacing.X,
		ct.Spacing.Y / ref.Spacing.Y,
		ct.Spacing.Z / ref.Spacing.Z,
	}

	tr := models.RegistrationTransform{
		TargetCenter: targetCenter,
		Scale:        scale,
		Region:       region,
		ZStart:       zStart,
		ZEnd:         zEnd,
		AutoDetected: autoDetected,
	}

	logrus.WithFields(logrus.Fields{
		"region": region,
		"zStart": zStart,
		"zEnd":   zEnd,
		"scale":  scale,
	}).Info("registration computed")
	return tr
}
