// Package materials maps organ IDs to transport-code material definitions:
// material number, density and elemental composition. The table is built
// once from reference composition data and is read-only afterward, so it
// can be shared freely across pipeline stages.
package materials

import (
	"fmt"
	"sort"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/phantom"
)

// Composition maps element atomic number to mass fraction in [0,1].
type Composition map[int]float64

const (
	// TumorMaterialID is the reserved material number for boron-loaded
	// tumor tissue.
	TumorMaterialID = 900

	// TumorOrganID is the reserved organ ID that maps to the tumor
	// material.
	TumorOrganID = 999

	// softTissueMedium is the tissue number the tumor composition is
	// derived from.
	softTissueMedium = 29

	// boronMassFraction is the B-10 loading substituted into the tumor
	// composition (~60 ppm).
	boronMassFraction = 0.00006

	// boronZ is boron's atomic number.
	boronZ = 5
)

// Table is the immutable organ-to-material lookup structure.
type Table struct {
	organToMaterial map[int]int
	organToDensity  map[int]float64
	materialDensity map[int]float64
	materialName    map[int]string
	compositions    map[int]Composition
}

// Build constructs a table from parsed organ and media records. The
// synthetic tumor entry is derived from the soft-tissue composition:
// the boron fraction is taken out of carbon and inserted under boron's
// atomic number, so the mass-fraction total is preserved without any
// renormalization pass.
func Build(organs []phantom.OrganRecord, media []phantom.MediumRecord) *Table {
	t := &Table{
		organToMaterial: make(map[int]int),
		organToDensity:  make(map[int]float64),
		materialDensity: make(map[int]float64),
		materialName:    make(map[int]string),
		compositions:    make(map[int]Composition),
	}

	for _, o := range organs {
		t.organToMaterial[o.ID] = o.Tissue
		t.organToDensity[o.ID] = o.Density
		// Material density comes from the first organ that uses it.
		if _, ok := t.materialDensity[o.Tissue]; !ok {
			t.materialDensity[o.Tissue] = o.Density
		}
	}

	for _, m := range media {
		comp := make(Composition, len(m.Fractions))
		for z, f := range m.Fractions {
			comp[z] = f
		}
		t.compositions[m.Tissue] = comp
		t.materialName[m.Tissue] = m.Name
	}

	t.buildTumorEntry()
	return t
}

func (t *Table) buildTumorEntry() {
	base, ok := t.compositions[softTissueMedium]
	if !ok {
		return
	}
	tumor := make(Composition, len(base)+1)
	for z, f := range base {
		tumor[z] = f
	}
	if c, ok := tumor[6]; ok {
		c -= boronMassFraction
		if c < 0 {
			c = 0
		}
		tumor[6] = c
	}
	tumor[boronZ] = boronMassFraction

	t.compositions[TumorMaterialID] = tumor
	t.materialName[TumorMaterialID] = "Tumor Tissue (B-10 loaded)"
	t.materialDensity[TumorMaterialID] = 1.04
}

// MaterialIDFor maps an organ ID to its material number. Organ IDs at or
// below zero and IDs with no table entry return 0 (exterior); unknown IDs
// occur legitimately at grid boundaries and are not an error.
func (t *Table) MaterialIDFor(organID int) int {
	if organID <= 0 {
		return 0
	}
	if organID == TumorOrganID {
		return TumorMaterialID
	}
	return t.organToMaterial[organID]
}

// DensityFor returns the density in g/cm3 for an organ ID, 0 for exterior
// or unknown IDs.
func (t *Table) DensityFor(organID int) float64 {
	if organID <= 0 {
		return 0
	}
	if organID == TumorOrganID {
		return t.materialDensity[TumorMaterialID]
	}
	return t.organToDensity[organID]
}

// MaterialDensity returns the density for a material number.
func (t *Table) MaterialDensity(materialID int) float64 {
	return t.materialDensity[materialID]
}

// MaterialName returns the tissue name for a material number.
func (t *Table) MaterialName(materialID int) string {
	if n, ok := t.materialName[materialID]; ok {
		return n
	}
	return fmt.Sprintf("Tissue %d", materialID)
}

// CompositionFor returns the elemental composition for a material number,
// or an empty composition for unknown materials.
func (t *Table) CompositionFor(materialID int) Composition {
	return t.compositions[materialID]
}

// HasMaterial reports whether a material number has a composition entry.
func (t *Table) HasMaterial(materialID int) bool {
	_, ok := t.compositions[materialID]
	return ok
}

// UsedMaterials returns the sorted set of non-zero material numbers
// present in a grid after organ-to-material mapping.
func (t *Table) UsedMaterials(grid *models.VoxelGrid) []int {
	seen := make(map[int]bool)
	for _, organ := range grid.Data {
		m := t.MaterialIDFor(int(organ))
		if m > 0 {
			seen[m] = true
		}
	}
	out := make([]int, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}
