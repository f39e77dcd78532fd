// Package mcnp serializes a fused voxel grid into an MCNP5 input document:
// cell cards, surface cards, a voxel lattice fill array and data cards
// (materials, source, tallies, run controls). Lattice fill lines are
// wrapped to the transport code's column budget, breaking only at
// whitespace.
package mcnp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/config"
	"phantomfuse/pkg/materials"
	"phantomfuse/pkg/registration"
)

const (
	// lineLimit is the hard column budget for lattice fill lines.
	lineLimit = 78

	// fillIndent prefixes every fill-array line.
	fillIndent = "      "

	// exteriorUniverse is the universe number for voxels with no material.
	exteriorUniverse = 100
)

// Encoder turns fused grids into MCNP input documents.
type Encoder struct {
	cfg *config.Config
}

// NewEncoder creates an encoder with the provided configuration.
func NewEncoder(cfg *config.Config) *Encoder {
	return &Encoder{cfg: cfg}
}

// Summary describes an encoded document for the metadata sidecar.
type Summary struct {
	// NX, NY, NZ are the downsampled lattice dimensions.
	NX int `json:"nx"`
	NY int `json:"ny"`
	NZ int `json:"nz"`

	// VoxelCm is the physical size of one lattice voxel in cm.
	VoxelCm [3]float64 `json:"voxelCm"`

	// ExtentCm is the physical size of the whole lattice in cm.
	ExtentCm [3]float64 `json:"extentCm"`

	// Materials lists the material IDs used, sorted ascending.
	Materials []int `json:"materials"`

	// FillCount is the number of fill-array entries written.
	FillCount int `json:"fillCount"`
}

// Encode downsamples the fused grid, maps organ IDs to materials and
// writes the complete input document. Encoding never aborts on an empty
// material set: a degenerate phantom still produces a minimal valid
// document with only the exterior universe, and a warning is logged.
func (e *Encoder) Encode(grid *models.VoxelGrid, table *materials.Table, tr models.RegistrationTransform, out io.Writer) (Summary, error) {
	factor := e.cfg.Encoder.DownsampleFactor
	if factor < 1 {
		factor = 1
	}
	ds := Downsample(grid, factor)
	nx, ny, nz := ds.NX, ds.NY, ds.NZ

	// Map every voxel to its material; remember organ IDs that have no
	// table entry, which are expected labeling noise at grid boundaries.
	matVol := make([]int, ds.Len())
	unknownOrgans := 0
	for i, organ := range ds.Data {
		m := table.MaterialIDFor(int(organ))
		if m == 0 && organ > 0 {
			unknownOrgans++
		}
		matVol[i] = m
	}
	if unknownOrgans > 0 {
		logrus.WithFields(logrus.Fields{
			"voxels": unknownOrgans,
			"grid":   []int{nx, ny, nz},
		}).Warn("organ IDs without material table entry treated as exterior")
	}

	used := table.UsedMaterials(ds)
	if len(used) == 0 {
		logrus.WithField("grid", []int{nx, ny, nz}).
			Warn("no materials present, emitting exterior-only geometry")
	}

	// Physical dimensions in cm (MCNP units). The downsample factor is
	// folded into the voxel size so the lattice spans the same extent as
	// the input grid.
	dx := ds.Spacing.X * float64(factor) / 10.0
	dy := ds.Spacing.Y * float64(factor) / 10.0
	dz := ds.Spacing.Z * float64(factor) / 10.0
	xMax := float64(nx) * dx
	yMax := float64(ny) * dy
	zMax := float64(nz) * dz

	// Source position: centered in-plane, at the registration's axial
	// midpoint converted to cm in the pre-downsample grid.
	zMidVox := (tr.ZStart + tr.ZEnd) / 2
	xSrc := xMax / 2.0
	ySrc := yMax / 2.0
	zSrc := float64(zMidVox) * grid.Spacing.Z / 10.0

	w := bufio.NewWriter(out)

	// ---- Title and comment banner ----
	fmt.Fprintf(w, "BNCT Whole-body Voxel Phantom\n")
	fmt.Fprintf(w, "c ================================================\n")
	fmt.Fprintf(w, "c  Multi-material voxel lattice geometry\n")
	fmt.Fprintf(w, "c  Region: %s\n", registration.Describe(tr.Region))
	fmt.Fprintf(w, "c  Phantom grid: %dx%dx%d voxels\n", nx, ny, nz)
	fmt.Fprintf(w, "c  Voxel size: %.4fx%.4fx%.4f cm\n", dx, dy, dz)
	fmt.Fprintf(w, "c  Physical size: %.2fx%.2fx%.2f cm\n", xMax, yMax, zMax)
	fmt.Fprintf(w, "c  Materials: %v\n", used)
	fmt.Fprintf(w, "c ================================================\n")

	// ---- Cell cards ----
	fmt.Fprintf(w, "c --- Cell Cards ---\n")
	for _, matID := range used {
		fmt.Fprintf(w, "%d %d -%.4f -10  u=%d  imp:n=1  $ %s\n",
			matID, matID, table.MaterialDensity(matID), matID, table.MaterialName(matID))
	}
	fmt.Fprintf(w, "%d 0  -10  u=%d  imp:n=0  $ External air\n", exteriorUniverse, exteriorUniverse)

	fmt.Fprintf(w, "c\nc  Lattice cell\n")
	fmt.Fprintf(w, "200 0  -10  lat=1  u=200  imp:n=1\n")
	fmt.Fprintf(w, "%sfill=0:%d  0:%d  0:%d\n", fillIndent, nx-1, ny-1, nz-1)

	// Fill array: Z outermost, Y middle, X innermost, the same order the
	// raw voxel data was read in. One logical line per (z, y) row, wrapped
	// to the column budget.
	fillCount := 0
	var sb strings.Builder
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			sb.Reset()
			sb.WriteString(fillIndent)
			for i := 0; i < nx; i++ {
				if i > 0 {
					sb.WriteByte(' ')
				}
				u := matVol[k*nx*ny+j*nx+i]
				if u == 0 {
					u = exteriorUniverse
				}
				sb.WriteString(strconv.Itoa(u))
			}
			writeWrapped(w, sb.String())
			fillCount += nx
		}
	}

	fmt.Fprintf(w, "c\nc  Container\n")
	fmt.Fprintf(w, "300 0  -20  fill=200  imp:n=1  $ Phantom container\n")
	fmt.Fprintf(w, "999 0   20  imp:n=0  $ Outside world\n")
	fmt.Fprintf(w, "\n")

	// ---- Surface cards ----
	fmt.Fprintf(w, "c --- Surface Cards ---\n")
	fmt.Fprintf(w, "10 RPP 0 %.6f  0 %.6f  0 %.6f\n", dx, dy, dz)
	fmt.Fprintf(w, "20 RPP 0 %.4f  0 %.4f  0 %.4f\n", xMax, yMax, zMax)
	fmt.Fprintf(w, "\n")

	// ---- Data cards ----
	fmt.Fprintf(w, "c --- Data Cards ---\n")
	fmt.Fprintf(w, "mode n\n")
	fmt.Fprintf(w, "c\n")

	fmt.Fprintf(w, "c  BNCT epithermal neutron source\n")
	fmt.Fprintf(w, "sdef pos=%.3f %.3f %.3f axs=0 0 -1 ext=0 rad=d1 erg=0.025e-3 par=1\n",
		xSrc, ySrc, zSrc)
	fmt.Fprintf(w, "si1 0 5\n")
	fmt.Fprintf(w, "sp1 -21 1\n")
	fmt.Fprintf(w, "c\n")

	if err := table.WriteMaterialCards(w, used); err != nil {
		return Summary{}, err
	}

	fmt.Fprintf(w, "c  Mesh Tally - whole body dose distribution\n")
	fmt.Fprintf(w, "FMESH14:n GEOM=xyz\n")
	fmt.Fprintf(w, "%sORIGIN=0 0 0\n", fillIndent)
	fmt.Fprintf(w, "%sIMESH=%.4f  IINTS=%d\n", fillIndent, xMax, nx)
	fmt.Fprintf(w, "%sJMESH=%.4f  JINTS=%d\n", fillIndent, yMax, ny)
	fmt.Fprintf(w, "%sKMESH=%.4f  KINTS=%d\n", fillIndent, zMax, nz)
	fmt.Fprintf(w, "c\n")

	fmt.Fprintf(w, "f4:n 300\n")
	fmt.Fprintf(w, "c\n")

	fmt.Fprintf(w, "c  Run parameters\n")
	fmt.Fprintf(w, "nps %d\n", e.cfg.Encoder.Particles)
	fmt.Fprintf(w, "print\n")

	if err := w.Flush(); err != nil {
		return Summary{}, err
	}

	return Summary{
		NX: nx, NY: ny, NZ: nz,
		VoxelCm:   [3]float64{dx, dy, dz},
		ExtentCm:  [3]float64{xMax, yMax, zMax},
		Materials: used,
		FillCount: fillCount,
	}, nil
}

// writeWrapped emits a logical line, splitting it into physical lines that
// never exceed the column budget. Splits happen at the last whitespace
// before the limit; when a token itself is longer than the budget there is
// no whitespace to split at, and the line is force-broken at the limit.
// Continuation lines re-use the fill indent.
func writeWrapped(w *bufio.Writer, line string) {
	for len(line) > lineLimit {
		cut := strings.LastIndexByte(line[:lineLimit], ' ')
		if cut <= len(fillIndent) {
			cut = lineLimit
		}
		w.WriteString(line[:cut])
		w.WriteByte('\n')
		line = fillIndent + strings.TrimLeft(line[cut:], " ")
	}
	w.WriteString(line)
	w.WriteByte('\n')
}
