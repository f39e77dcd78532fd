// Package fusion blends a registered patient CT volume into a reference
// voxel phantom. The patient volume is resampled to the phantom's voxel
// spacing, classified into tissue classes with flood-fill air
// partitioning, optionally contour-matched to the phantom's body outline,
// and merged under a sigmoid-weighted replacement rule so no hard material
// boundary appears where the CT field of view ends.
package fusion

import (
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/config"
	"phantomfuse/pkg/interpolation"
	"phantomfuse/pkg/phantom"
	"phantomfuse/pkg/segmentation"
)

// Engine performs CT/phantom fusion. It is stateless between calls; the
// same inputs always produce the same output.
type Engine struct {
	cfg *config.Config
}

// NewEngine creates a fusion engine with the provided configuration.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Report summarizes one fusion run.
type Report struct {
	// Region is the anatomical region tag the placement came from.
	Region string `json:"region"`

	// Skipped is set when the overlap was degenerate and fusion became a
	// no-op.
	Skipped bool `json:"skipped"`

	// OverlapVoxels is the size of the CT/phantom overlap region.
	OverlapVoxels int `json:"overlapVoxels"`

	// ReplacedVoxels counts reference voxels overwritten by CT-derived
	// classifications.
	ReplacedVoxels int `json:"replacedVoxels"`

	// MeanReplacedWeight is the average blend weight of replaced voxels.
	MeanReplacedWeight float64 `json:"meanReplacedWeight"`

	// ContourScaled is set when contour matching changed the CT outline.
	ContourScaled bool `json:"contourScaled"`
}

// Fuse blends the patient volume into the reference grid under the given
// placement. The inputs are never modified; the returned grid is a new
// allocation. Voxels outside the computed overlap bounding box always keep
// the reference grid's values.
//
// A reference voxel is replaced only when all three conditions hold: the
// patient voxel is body tissue, the combined blend weight exceeds 0.5, and
// the reference voxel itself is non-exterior. The last condition prevents
// the patient volume from growing the body outside the reference
// silhouette.
func (e *Engine) Fuse(ct *models.Volume, ref *models.VoxelGrid, tr models.RegistrationTransform) (*models.VoxelGrid, Report) {
	result := ref.Clone()
	report := Report{Region: tr.Region}

	// Resample the CT to the phantom's voxel spacing.
	res := interpolation.ResampleTrilinear(ct, ref.Spacing)

	// Place the resampled volume so its center lands on the registration
	// target, clamping both sides to the grids' bounds. Asymmetric
	// clipping is legal: the CT may stick out of the phantom on some
	// sides.
	ctShape := [3]int{res.NX, res.NY, res.NZ}
	refShape := [3]int{ref.NX, ref.NY, ref.NZ}
	var start, end, ctStart [3]int
	for i := 0; i < 3; i++ {
		translation := int(tr.TargetCenter[i]) - ctShape[i]/2
		start[i] = max(0, translation)
		end[i] = min(refShape[i], translation+ctShape[i])
		ctStart[i] = max(0, -translation)
	}

	onx, ony, onz := end[0]-start[0], end[1]-start[1], end[2]-start[2]
	if onx <= 0 || ony <= 0 || onz <= 0 || onx*ony*onz < e.cfg.Fusion.MinOverlapVoxels {
		logrus.WithFields(logrus.Fields{
			"region":   tr.Region,
			"ctShape":  ctShape,
			"refShape": refShape,
			"overlap":  []int{onx, ony, onz},
			"minimum":  e.cfg.Fusion.MinOverlapVoxels,
		}).Warn("degenerate CT/phantom overlap, skipping fusion")
		report.Skipped = true
		return result, report
	}
	report.OverlapVoxels = onx * ony * onz

	// Extract the CT sub-volume that falls inside the phantom, and the
	// phantom organ IDs it overlaps.
	sub := make([]float64, onx*ony*onz)
	phantomIDs := make([]int16, onx*ony*onz)
	for k := 0; k < onz; k++ {
		for j := 0; j < ony; j++ {
			for i := 0; i < onx; i++ {
				idx := k*onx*ony + j*onx + i
				sub[idx] = res.At(ctStart[0]+i, ctStart[1]+j, ctStart[2]+k)
				phantomIDs[idx] = ref.At(start[0]+i, start[1]+j, start[2]+k)
			}
		}
	}

	// Classify intensities into organ IDs; exterior air stays 0.
	ctIDs := segmentation.Classify(sub, onx, ony, onz,
		e.cfg.Fusion.AirThresholdHU, e.cfg.Fusion.BoneThresholdHU,
		segmentation.ClassMap{
			InteriorAir: phantom.LungOrganID,
			SoftTissue:  phantom.SoftTissueOrganID,
			Bone:        phantom.BoneOrganID,
		})

	if e.cfg.Contour.Enabled {
		ctIDs, report.ContourScaled = e.matchContours(ctIDs, phantomIDs, onx, ony, onz)
	}

	weights := e.weightField(ctIDs, onx, ony, onz, ref.Spacing)

	// Replacement pass.
	var replacedWeights []float64
	for k := 0; k < onz; k++ {
		for j := 0; j < ony; j++ {
			for i := 0; i < onx; i++ {
				idx := k*onx*ony + j*onx + i
				if ctIDs[idx] <= 0 || weights[idx] <= 0.5 {
					continue
				}
				rx, ry, rz := start[0]+i, start[1]+j, start[2]+k
				if result.At(rx, ry, rz) <= 0 {
					continue
				}
				result.Set(rx, ry, rz, ctIDs[idx])
				replacedWeights = append(replacedWeights, weights[idx])
			}
		}
	}
	report.ReplacedVoxels = len(replacedWeights)
	if len(replacedWeights) > 0 {
		report.MeanReplacedWeight = stat.Mean(replacedWeights, nil)
	}

	logrus.WithFields(logrus.Fields{
		"region":     tr.Region,
		"overlap":    []int{onx, ony, onz},
		"replaced":   report.ReplacedVoxels,
		"meanWeight": report.MeanReplacedWeight,
		"contour":    report.ContourScaled,
	}).Info("fusion complete")
	return result, report
}

// weightField builds the combined sigmoid blend weights for the overlap
// region: a per-slice axial logistic of the distance to the nearest axial
// boundary, multiplied by an in-plane logistic of the Euclidean distance
// from each body voxel to the slice's body contour. Slices are independent
// and processed on a bounded worker pool.
func (e *Engine) weightField(ctIDs []int16, nx, ny, nz int, spacing models.Spacing) []float64 {
	zWidthVox := e.cfg.Fusion.TransitionZCm * 10.0 / spacing.Z
	xyWidthVox := e.cfg.Fusion.TransitionXYCm * 10.0 / spacing.X

	zw := axialWeights(nz, zWidthVox)
	xy := newTransition(xyWidthVox)

	weights := make([]float64, nx*ny*nz)
	forEachSlice(nz, e.cfg.Fusion.Workers, func(k int) {
		off := k * nx * ny
		mask := make([]bool, nx*ny)
		any := false
		for i := 0; i < nx*ny; i++ {
			if ctIDs[off+i] > 0 {
				mask[i] = true
				any = true
			}
		}
		if !any {
			return
		}
		dist := segmentation.DistanceTransform2D(mask, nx, ny)
		for i := 0; i < nx*ny; i++ {
			weights[off+i] = zw[k] * xy.weight(dist[i])
		}
	})
	return weights
}

// forEachSlice runs fn for every slice index, fanning out across at most
// `workers` goroutines. Each fn call writes only its own slice, so no
// synchronization beyond the final wait is needed; results land in axial
// order by construction.
func forEachSlice(n, workers int, fn func(k int)) {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for k := 0; k < n; k++ {
			fn(k)
		}
		return
	}

	var wg sync.WaitGroup
	indices := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range indices {
				fn(k)
			}
		}()
	}
	for k := 0; k < n; k++ {
		indices <- k
	}
	close(indices)
	wg.Wait()
}
