// Package pipeline sequences the whole-body phantom construction: patient
// volume loading, reference phantom loading (with fallback), optional
// patient-build scaling, registration, fusion, geometry encoding and
// artifact persistence. Stages run strictly one after another; each stage
// consumes a complete input and produces a complete output.
package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/config"
	"phantomfuse/pkg/fusion"
	"phantomfuse/pkg/materials"
	"phantomfuse/pkg/mcnp"
	"phantomfuse/pkg/phantom"
	"phantomfuse/pkg/registration"
)

// Params holds the pipeline inputs.
type Params struct {
	// CTPath is the patient volume file: raw little-endian float32
	// intensities in X-fastest order. Any loader producing an array plus
	// spacing works; this raw reader is the built-in one.
	CTPath string

	// CTDims are the patient volume dimensions (X, Y, Z).
	CTDims [3]int

	// CTSpacing is the patient voxel spacing in mm.
	CTSpacing models.Spacing

	// PhantomDir is the reference phantom data directory.
	PhantomDir string

	// PhantomType selects the reference phantom ("AM" or "AF").
	PhantomType string

	// Region optionally forces the anatomical region instead of
	// auto-detection.
	Region string

	// PatientHeight (cm) and PatientWeight (kg) enable whole-phantom
	// scaling when both are positive.
	PatientHeight float64
	PatientWeight float64

	// OutputDir receives the geometry document and sidecar artifacts.
	OutputDir string
}

// Result names the produced artifacts.
type Result struct {
	GeometryPath string
	FusedPath    string
	MetadataPath string
	Fusion       fusion.Report
	Encoding     mcnp.Summary
}

// Pipeline drives one end-to-end run.
type Pipeline struct {
	params *Params
	cfg    *config.Config
}

// New creates a pipeline with the given inputs and configuration.
func New(params *Params, cfg *config.Config) *Pipeline {
	return &Pipeline{params: params, cfg: cfg}
}

// Run executes all stages and returns the artifact paths.
func (p *Pipeline) Run() (*Result, error) {
	if err := os.MkdirAll(p.params.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Step 1: Load the patient volume.
	fmt.Println("Step 1: Loading patient CT volume...")
	ct, err := LoadRawVolume(p.params.CTPath, p.params.CTDims, p.params.CTSpacing)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient volume: %w", err)
	}
	fmt.Printf("Loaded CT volume %dx%dx%d, spacing %.3fx%.3fx%.3f mm\n",
		ct.NX, ct.NY, ct.NZ, ct.Spacing.X, ct.Spacing.Y, ct.Spacing.Z)

	// Step 2: Load the reference phantom; missing data falls back to a
	// uniform soft-tissue grid.
	fmt.Println("Step 2: Loading reference phantom...")
	ref := phantom.LoadOrFallback(p.params.PhantomDir, p.params.PhantomType)
	table := materials.Build(ref.Organs, ref.Media)
	grid := ref.Grid
	fmt.Printf("Reference phantom %s: %dx%dx%d voxels\n", ref.Type, grid.NX, grid.NY, grid.NZ)

	// Step 3: Scale the phantom to the patient's build when height and
	// weight are known.
	var factors *phantom.ScaleFactors
	if p.params.PatientHeight > 0 && p.params.PatientWeight > 0 {
		fmt.Println("Step 3: Scaling phantom to patient build...")
		scaler, err := phantom.NewScaler(ref.Type)
		if err != nil {
			return nil, err
		}
		f := scaler.Factors(p.params.PatientHeight, p.params.PatientWeight)
		grid = scaler.ScaleGrid(grid, f)
		factors = &f
	} else {
		fmt.Println("Step 3: No patient height/weight, using reference build")
	}

	// Step 4: Register the CT inside the phantom grid.
	fmt.Println("Step 4: Registering CT to phantom...")
	tr := registration.Register(ct, grid, p.params.Region)

	// Step 5: Fuse.
	fmt.Println("Step 5: Fusing CT into phantom...")
	engine := fusion.NewEngine(p.cfg)
	fused, report := engine.Fuse(ct, grid, tr)

	// Step 6: Persist the fused grid.
	result := &Result{Fusion: report}
	if p.cfg.Output.SaveIntermediary {
		fmt.Println("Step 6: Saving fused phantom...")
		result.FusedPath = filepath.Join(p.params.OutputDir, "fused_phantom.dat")
		if err := phantom.SaveVoxelData(result.FusedPath, fused); err != nil {
			return nil, fmt.Errorf("failed to save fused phantom: %w", err)
		}
	}

	// Step 7: Encode the geometry document.
	fmt.Println("Step 7: Encoding MCNP geometry...")
	result.GeometryPath = filepath.Join(p.params.OutputDir, "wholebody_mcnp.inp")
	out, err := os.Create(result.GeometryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create geometry file: %w", err)
	}
	encoder := mcnp.NewEncoder(p.cfg)
	summary, err := encoder.Encode(fused, table, tr, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}
	result.Encoding = summary

	// Step 8: Metadata sidecar.
	fmt.Println("Step 8: Writing metadata sidecar...")
	meta := Metadata{
		Version:       metadataVersion,
		CTPath:        p.params.CTPath,
		CTShape:       [3]int{ct.NX, ct.NY, ct.NZ},
		CTSpacingMM:   [3]float64{ct.Spacing.X, ct.Spacing.Y, ct.Spacing.Z},
		PhantomType:   ref.Type,
		PhantomShape:  [3]int{grid.NX, grid.NY, grid.NZ},
		FusedShape:    [3]int{fused.NX, fused.NY, fused.NZ},
		VoxelSizeMM:   [3]float64{grid.Spacing.X, grid.Spacing.Y, grid.Spacing.Z},
		Registration:  tr,
		Fusion:        report,
		Encoding:      summary,
		PatientHeight: p.params.PatientHeight,
		PatientWeight: p.params.PatientWeight,
		ScaleFactors:  factors,
	}
	result.MetadataPath = filepath.Join(p.params.OutputDir, "fusion_metadata.json")
	if err := WriteMetadata(result.MetadataPath, &meta); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	return result, nil
}

// LoadRawVolume reads a raw little-endian float32 volume with the given
// dimensions and spacing. Values are stored X fastest, Y middle, Z slowest.
func LoadRawVolume(path string, dims [3]int, spacing models.Spacing) (*models.Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	nx, ny, nz := dims[0], dims[1], dims[2]
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %v", dims)
	}
	expected := nx * ny * nz * 4
	if len(data) < expected {
		return nil, fmt.Errorf("volume file short: expected %d bytes, got %d", expected, len(data))
	}

	vol := models.NewVolume(nx, ny, nz, spacing)
	for i := range vol.Data {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		vol.Data[i] = float64(math.Float32frombits(bits))
	}
	return vol, nil
}
