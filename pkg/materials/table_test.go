package materials

import (
	"math"
	"strings"
	"testing"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/phantom"
)

func testTable() *Table {
	organs := []phantom.OrganRecord{
		{ID: 46, Name: "Cortical bone", Tissue: 20, Density: 1.92},
		{ID: 81, Name: "Lung tissue", Tissue: 33, Density: 0.382},
		{ID: 107, Name: "Soft tissue", Tissue: 29, Density: 1.03},
	}
	media := []phantom.MediumRecord{
		{Tissue: 20, Name: "Mineral bone", Fractions: map[int]float64{
			1: 0.036, 6: 0.159, 7: 0.042, 8: 0.448, 20: 0.213,
		}},
		{Tissue: 29, Name: "Soft tissue", Fractions: map[int]float64{
			1: 0.105, 6: 0.256, 7: 0.027, 8: 0.602,
		}},
		{Tissue: 33, Name: "Lung tissue", Fractions: map[int]float64{
			1: 0.103, 6: 0.105, 7: 0.031, 8: 0.749,
		}},
	}
	return Build(organs, media)
}

// TestMaterialIDMapping verifies the organ-to-material lookup including
// the exterior and tumor special cases.
func TestMaterialIDMapping(t *testing.T) {
	table := testTable()

	cases := []struct {
		name     string
		organ    int
		expected int
	}{
		{"bone organ", 46, 20},
		{"lung organ", 81, 33},
		{"soft tissue organ", 107, 29},
		{"tumor organ", TumorOrganID, TumorMaterialID},
		{"exterior", 0, 0},
		{"negative ID", -3, 0},
		{"unknown organ", 555, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := table.MaterialIDFor(c.organ); got != c.expected {
				t.Errorf("Expected material %d for organ %d, got %d", c.expected, c.organ, got)
			}
		})
	}
}

// TestTumorComposition verifies the boron substitution: the B-10 fraction
// comes out of carbon and the total is left 6e-5 short on purpose.
func TestTumorComposition(t *testing.T) {
	table := testTable()

	tumor := table.CompositionFor(TumorMaterialID)
	if tumor == nil {
		t.Fatal("Expected a tumor composition entry")
	}

	base := table.CompositionFor(29)
	expectedCarbon := base[6] - boronMassFraction
	if math.Abs(tumor[6]-expectedCarbon) > 1e-12 {
		t.Errorf("Expected carbon %f after boron substitution, got %f", expectedCarbon, tumor[6])
	}
	if math.Abs(tumor[boronZ]-boronMassFraction) > 1e-12 {
		t.Errorf("Expected boron fraction %f, got %f", boronMassFraction, tumor[boronZ])
	}

	var baseSum, tumorSum float64
	for _, f := range base {
		baseSum += f
	}
	for _, f := range tumor {
		tumorSum += f
	}
	if math.Abs(tumorSum-baseSum) > 1e-12 {
		t.Errorf("Expected tumor total to match soft-tissue total %f, got %f", baseSum, tumorSum)
	}

	if got := table.MaterialDensity(TumorMaterialID); got != 1.04 {
		t.Errorf("Expected tumor density 1.04, got %f", got)
	}
}

// TestUsedMaterials verifies collection and ordering of the material set
// actually present in a grid.
func TestUsedMaterials(t *testing.T) {
	table := testTable()

	g := models.NewVoxelGrid(4, 4, 4, models.Spacing{X: 1, Y: 1, Z: 1})
	g.Data[0] = 107
	g.Data[1] = 46
	g.Data[2] = 46
	g.Data[3] = int16(TumorOrganID)
	g.Data[4] = 555 // unknown organ, must not contribute

	used := table.UsedMaterials(g)

	expected := []int{20, 29, TumorMaterialID}
	if len(used) != len(expected) {
		t.Fatalf("Expected %d materials, got %v", len(expected), used)
	}
	for i := range expected {
		if used[i] != expected[i] {
			t.Errorf("Position %d: expected material %d, got %d", i, expected[i], used[i])
		}
	}
}

// TestWriteMaterialCards verifies the card text: negative mass fractions,
// B-10 isotope code on the tumor material, one m-card per used material.
func TestWriteMaterialCards(t *testing.T) {
	table := testTable()

	var sb strings.Builder
	err := table.WriteMaterialCards(&sb, []int{29, TumorMaterialID})
	if err != nil {
		t.Fatalf("WriteMaterialCards failed: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "m29\n") {
		t.Error("Expected an m29 card")
	}
	if !strings.Contains(out, "m900\n") {
		t.Error("Expected an m900 tumor card")
	}
	if !strings.Contains(out, "5010.66c") {
		t.Error("Expected the B-10 isotope code in the tumor card")
	}
	if !strings.Contains(out, "1001.66c  -0.105000") {
		t.Error("Expected hydrogen with a negative mass fraction")
	}
	if strings.Contains(out, "m20") {
		t.Error("Expected only the requested materials, found m20")
	}
}
