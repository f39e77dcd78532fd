package materials

import (
	"fmt"
	"io"
	"sort"
)

// zaidMap translates element atomic numbers to ENDF/B-VI isotope codes.
// Fe maps to Fe-56 (91.7% of natural iron) because the natural-abundance
// entry is missing from some MCNP5 cross-section directories.
var zaidMap = map[int]string{
	1:  "1001.66c",
	6:  "6000.66c",
	7:  "7014.66c",
	8:  "8016.66c",
	11: "11023.66c",
	12: "12000.66c",
	15: "15031.66c",
	16: "16032.66c",
	17: "17000.66c",
	19: "19000.66c",
	20: "20000.66c",
	26: "26056.66c",
	53: "53127.66c",
}

// boronZAID is the B-10 isotope code used by the tumor material.
const boronZAID = "5010.66c"

// WriteMaterialCards emits one MCNP material card per used material, with
// each element's mass fraction written as a negative number (the
// transport-code convention for mass-fraction-normalized mixtures).
// Elements with no isotope code are skipped.
func (t *Table) WriteMaterialCards(w io.Writer, used []int) error {
	if _, err := fmt.Fprintf(w, "c\nc  Material definitions from reference phantom composition data\nc  Nuclear data: ENDF/B-VI (.66c)\nc\n"); err != nil {
		return err
	}

	sorted := append([]int(nil), used...)
	sort.Ints(sorted)

	for _, matID := range sorted {
		comp, ok := t.compositions[matID]
		if matID == 0 || !ok {
			continue
		}
		density := t.materialDensity[matID]

		if _, err := fmt.Fprintf(w, "c  M%d: %s, rho=%.3f g/cm3\nm%d\n",
			matID, t.MaterialName(matID), density, matID); err != nil {
			return err
		}

		elements := make([]int, 0, len(comp))
		for z := range comp {
			elements = append(elements, z)
		}
		sort.Ints(elements)

		for _, z := range elements {
			frac := comp[z]
			if frac <= 0 {
				continue
			}
			zaid := zaidMap[z]
			if z == boronZ {
				zaid = boronZAID
			}
			if zaid == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "     %s  %.6f\n", zaid, -frac); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, "c\n"); err != nil {
			return err
		}
	}
	return nil
}
