package phantom

import (
	"math"

	"github.com/sirupsen/logrus"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/interpolation"
)

// Scaler rescales a reference phantom to an individual patient's build.
// Height drives the axial (Z) factor; weight and BMI drive the in-plane
// (XY) cross-section factor.
type Scaler struct {
	Type  string
	Model Model
}

// ScaleFactors holds the per-axis factors plus the ratios they came from.
type ScaleFactors struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Volume      float64 `json:"volume"`
	HeightRatio float64 `json:"heightRatio"`
	WeightRatio float64 `json:"weightRatio"`
	BMIRatio    float64 `json:"bmiRatio"`
}

// NewScaler creates a scaler for a phantom type.
func NewScaler(phantomType string) (*Scaler, error) {
	m, err := ModelFor(phantomType)
	if err != nil {
		return nil, err
	}
	return &Scaler{Type: phantomType, Model: m}, nil
}

// Factors computes scaling factors for a patient.
//
// The cross-section scales with weight^(2/3) refined by BMI^0.3, and the
// in-plane factor is the square root of that area ratio so X and Y share
// it equally.
func (s *Scaler) Factors(heightCm, weightKg float64) ScaleFactors {
	heightRatio := heightCm / s.Model.Height
	weightRatio := weightKg / s.Model.Weight

	patientBMI := weightKg / math.Pow(heightCm/100, 2)
	refBMI := s.Model.Weight / math.Pow(s.Model.Height/100, 2)
	bmiRatio := patientBMI / refBMI

	crossSection := math.Pow(weightRatio, 2.0/3.0) * math.Pow(bmiRatio, 0.3)
	xy := math.Sqrt(crossSection)

	return ScaleFactors{
		X:           xy,
		Y:           xy,
		Z:           heightRatio,
		Volume:      xy * xy * heightRatio,
		HeightRatio: heightRatio,
		WeightRatio: weightRatio,
		BMIRatio:    bmiRatio,
	}
}

// ScaleGrid resamples the organ grid by the given factors using
// nearest-neighbor selection (organ IDs are categorical). Voxel spacing is
// unchanged: the size change is carried entirely by the voxel count, so
// the physical extent scales once.
func (s *Scaler) ScaleGrid(grid *models.VoxelGrid, f ScaleFactors) *models.VoxelGrid {
	scaled := interpolation.ResampleNearestGrid(grid, [3]float64{f.X, f.Y, f.Z})
	logrus.WithFields(logrus.Fields{
		"phantom": s.Type,
		"factors": []float64{f.X, f.Y, f.Z},
		"from":    []int{grid.NX, grid.NY, grid.NZ},
		"to":      []int{scaled.NX, scaled.NY, scaled.NZ},
	}).Info("phantom scaled to patient build")
	return scaled
}
