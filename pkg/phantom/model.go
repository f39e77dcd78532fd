// Package phantom loads ICRP-110 reference voxel phantoms: the raw organ-ID
// voxel data, the fixed-column organ and media definition files, and a
// uniform fallback grid used when the reference data is absent. It also
// provides patient-specific whole-phantom scaling from height and weight.
package phantom

import (
	"fmt"

	"phantomfuse/internal/models"
)

// Model describes one of the two ICRP-110 adult reference phantoms.
type Model struct {
	// Columns, Rows, Slices are the grid dimensions (X, Y, Z).
	Columns, Rows, Slices int

	// Spacing is the voxel size in mm.
	Spacing models.Spacing

	// Height (cm) and Weight (kg) of the reference individual.
	Height float64
	Weight float64
}

// Models holds the published dimensions of the adult male (AM) and adult
// female (AF) reference phantoms.
var Models = map[string]Model{
	"AM": {
		Columns: 254, Rows: 127, Slices: 222,
		Spacing: models.Spacing{X: 2.137, Y: 2.137, Z: 8.0},
		Height:  176, Weight: 73,
	},
	"AF": {
		Columns: 299, Rows: 137, Slices: 348,
		Spacing: models.Spacing{X: 1.775, Y: 1.775, Z: 4.84},
		Height:  163, Weight: 60,
	},
}

// ModelFor returns the phantom model for a type tag ("AM" or "AF").
func ModelFor(phantomType string) (Model, error) {
	m, ok := Models[phantomType]
	if !ok {
		return Model{}, fmt.Errorf("unknown phantom type %q, supported: AM, AF", phantomType)
	}
	return m, nil
}
