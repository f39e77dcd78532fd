package phantom

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"phantomfuse/internal/models"
)

// Data bundles everything loaded for one reference phantom.
type Data struct {
	Type   string
	Model  Model
	Grid   *models.VoxelGrid
	Organs []OrganRecord
	Media  []MediumRecord
}

// LoadVoxelData reads a raw phantom voxel file: whitespace-separated organ
// IDs listed slice (Z) outermost, row (Y) middle, column (X) innermost.
// That is exactly the flat storage order of VoxelGrid, so values are read
// sequentially. It is an error for the file to hold fewer values than the
// model's grid size; extra trailing values are ignored.
func LoadVoxelData(path string, m Model) (*models.VoxelGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grid := models.NewVoxelGrid(m.Columns, m.Rows, m.Slices, m.Spacing)
	expected := grid.Len()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	idx := 0
	for idx < expected && scanner.Scan() {
		v, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("voxel %d: %w", idx, err)
		}
		grid.Data[idx] = int16(v)
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if idx < expected {
		return nil, fmt.Errorf("voxel data short: expected %d values, got %d", expected, idx)
	}
	return grid, nil
}

// SaveVoxelData writes a grid back out in the raw phantom text format,
// one slice row per line. Used to persist the fused grid as an
// intermediate artifact.
func SaveVoxelData(path string, grid *models.VoxelGrid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for z := 0; z < grid.NZ; z++ {
		for y := 0; y < grid.NY; y++ {
			for x := 0; x < grid.NX; x++ {
				if x > 0 {
					w.WriteByte(' ')
				}
				w.WriteString(strconv.Itoa(int(grid.At(x, y, z))))
			}
			w.WriteByte('\n')
		}
	}
	return w.Flush()
}

// Load reads the voxel data and the organ/media definitions for a phantom
// type from a data directory. The voxel file is searched in the layouts
// the reference data ships in: <dir>/<type>/<type>.dat,
// <dir>/phantom_data/<type>/<type>.dat and <dir>/<type>.dat.
func Load(dir, phantomType string) (*Data, error) {
	m, err := ModelFor(phantomType)
	if err != nil {
		return nil, err
	}

	candidates := []string{
		filepath.Join(dir, phantomType, phantomType+".dat"),
		filepath.Join(dir, "phantom_data", phantomType, phantomType+".dat"),
		filepath.Join(dir, phantomType+".dat"),
	}
	var voxelPath string
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			voxelPath = c
			break
		}
	}
	if voxelPath == "" {
		return nil, fmt.Errorf("phantom voxel data %s.dat not found under %s", phantomType, dir)
	}

	grid, err := LoadVoxelData(voxelPath, m)
	if err != nil {
		return nil, fmt.Errorf("failed to load voxel data: %w", err)
	}

	defDir := filepath.Dir(voxelPath)
	organsFile, err := os.Open(filepath.Join(defDir, phantomType+"_organs.dat"))
	if err != nil {
		return nil, fmt.Errorf("organs file: %w", err)
	}
	defer organsFile.Close()
	organs, err := ParseOrgans(organsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse organs file: %w", err)
	}

	mediaFile, err := os.Open(filepath.Join(defDir, phantomType+"_media.dat"))
	if err != nil {
		return nil, fmt.Errorf("media file: %w", err)
	}
	defer mediaFile.Close()
	media, err := ParseMedia(mediaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse media file: %w", err)
	}

	return &Data{Type: phantomType, Model: m, Grid: grid, Organs: organs, Media: media}, nil
}

// LoadOrFallback tries Load and, if any reference data is missing,
// substitutes a uniform single-tissue fallback phantom with a logged
// warning. Missing reference data is never fatal.
func LoadOrFallback(dir, phantomType string) *Data {
	d, err := Load(dir, phantomType)
	if err == nil {
		return d
	}

	m, merr := ModelFor(phantomType)
	if merr != nil {
		phantomType = "AM"
		m = Models["AM"]
	}
	logrus.WithFields(logrus.Fields{
		"dir":     dir,
		"phantom": phantomType,
		"shape":   fmt.Sprintf("%dx%dx%d", m.Columns, m.Rows, m.Slices),
	}).Warnf("reference phantom data unavailable (%v), using uniform soft-tissue fallback", err)

	return &Data{
		Type:   phantomType,
		Model:  m,
		Grid:   FallbackGrid(m),
		Organs: fallbackOrgans,
		Media:  fallbackMedia,
	}
}

// FallbackGrid builds a uniform soft-tissue block phantom. The body block
// insets mirror the silhouette proportions of the reference male phantom.
func FallbackGrid(m Model) *models.VoxelGrid {
	grid := models.NewVoxelGrid(m.Columns, m.Rows, m.Slices, m.Spacing)
	x0, x1 := int(0.118*float64(m.Columns)), int(0.882*float64(m.Columns))
	y0, y1 := int(0.079*float64(m.Rows)), int(0.921*float64(m.Rows))
	z0, z1 := int(0.023*float64(m.Slices)), int(0.977*float64(m.Slices))
	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				grid.Set(x, y, z, SoftTissueOrganID)
			}
		}
	}
	return grid
}

// Organ IDs the CT classifier and the fallback phantom emit.
const (
	LungOrganID       = 81
	SoftTissueOrganID = 107
	BoneOrganID       = 46
)

// Minimal organ/media records used when the definition files are absent.
// Densities and compositions are the standard ICRP values for lung, soft
// tissue and cortical bone.
var fallbackOrgans = []OrganRecord{
	{ID: BoneOrganID, Name: "Cortical bone", Tissue: 20, Density: 1.92},
	{ID: LungOrganID, Name: "Lung tissue", Tissue: 33, Density: 0.382},
	{ID: SoftTissueOrganID, Name: "Soft tissue", Tissue: 29, Density: 1.03},
}

var fallbackMedia = []MediumRecord{
	{Tissue: 20, Name: "Mineral bone", Fractions: map[int]float64{
		1: 0.036, 6: 0.159, 7: 0.042, 8: 0.448, 11: 0.003,
		12: 0.002, 15: 0.094, 16: 0.003, 20: 0.213,
	}},
	{Tissue: 29, Name: "Soft tissue", Fractions: map[int]float64{
		1: 0.105, 6: 0.256, 7: 0.027, 8: 0.602, 11: 0.001,
		15: 0.002, 16: 0.003, 17: 0.002, 19: 0.002,
	}},
	{Tissue: 33, Name: "Lung tissue", Fractions: map[int]float64{
		1: 0.103, 6: 0.105, 7: 0.031, 8: 0.749, 11: 0.002,
		15: 0.002, 16: 0.003, 17: 0.003, 19: 0.002,
	}},
}
