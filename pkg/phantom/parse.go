package phantom

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// OrganRecord is one row of an organs definition file: an organ ID mapped
// to the tissue (material) number it is made of, its density and its name.
type OrganRecord struct {
	ID      int
	Name    string
	Tissue  int
	Density float64
}

// MediumRecord is one row of a media definition file: a tissue number with
// its elemental composition as mass fractions keyed by atomic number.
type MediumRecord struct {
	Tissue    int
	Name      string
	Fractions map[int]float64
}

// ElementOrder lists the atomic numbers of the 13 elements a media file
// tabulates, in column order: H C N O Na Mg P S Cl K Ca Fe I.
var ElementOrder = []int{1, 6, 7, 8, 11, 12, 15, 16, 17, 19, 20, 26, 53}

// Data rows carry a leading integer, a name that may contain single
// spaces, then number columns separated by runs of whitespace.
var (
	organLine = regexp.MustCompile(`^\s*(\d+)\s+(.+?)\s{2,}(\d+)\s+([\d.]+)\s*$`)
	mediaLine = regexp.MustCompile(`^\s*(\d+)\s+(.+?)\s{2,}([\d.]+(?:\s+[\d.]+)*)\s*$`)
)

// ParseOrgans reads a fixed-column organs definition file. Header and
// separator lines that do not match the row grammar are skipped.
func ParseOrgans(r io.Reader) ([]OrganRecord, error) {
	var out []OrganRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := organLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		tissue, _ := strconv.Atoi(m[3])
		density, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			continue
		}
		out = append(out, OrganRecord{
			ID:      id,
			Name:    strings.TrimSpace(m[2]),
			Tissue:  tissue,
			Density: density,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseMedia reads a fixed-column media definition file. Percentages are
// converted to mass fractions in [0,1]; zero fractions are dropped. Rows
// whose value count does not match ElementOrder are skipped (headers,
// footnotes).
func ParseMedia(r io.Reader) ([]MediumRecord, error) {
	var out []MediumRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := mediaLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		fields := strings.Fields(m[3])
		if len(fields) != len(ElementOrder) {
			continue
		}
		values := make([]float64, 0, len(fields))
		ok := true
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				ok = false
				break
			}
			values = append(values, v)
		}
		if !ok {
			continue
		}
		tissue, _ := strconv.Atoi(m[1])
		fractions := make(map[int]float64)
		for i, z := range ElementOrder {
			frac := values[i] / 100.0
			if frac > 0 {
				fractions[z] = frac
			}
		}
		out = append(out, MediumRecord{
			Tissue:    tissue,
			Name:      strings.TrimSpace(m[2]),
			Fractions: fractions,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
