package pipeline

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/config"
)

// writeRawVolume persists a float32 volume in the raw on-disk format.
func writeRawVolume(t *testing.T, path string, dims [3]int, value float32) {
	t.Helper()
	n := dims[0] * dims[1] * dims[2]
	buf := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(value))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
}

// TestLoadRawVolume verifies the raw reader including the size guard.
func TestLoadRawVolume(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ct.raw")
	writeRawVolume(t, path, [3]int{4, 3, 2}, 42.5)

	spacing := models.Spacing{X: 1, Y: 1, Z: 2}
	vol, err := LoadRawVolume(path, [3]int{4, 3, 2}, spacing)
	if err != nil {
		t.Fatalf("LoadRawVolume failed: %v", err)
	}
	if vol.NX != 4 || vol.NY != 3 || vol.NZ != 2 {
		t.Fatalf("Expected 4x3x2 volume, got %dx%dx%d", vol.NX, vol.NY, vol.NZ)
	}
	for i, v := range vol.Data {
		if v != 42.5 {
			t.Fatalf("Voxel %d: expected 42.5, got %f", i, v)
		}
	}

	// Declaring more voxels than the file holds must fail.
	if _, err := LoadRawVolume(path, [3]int{4, 3, 3}, spacing); err == nil {
		t.Error("Expected an error for a short volume file, got nil")
	}
}

// TestRunEndToEnd exercises the whole pipeline against the fallback
// phantom and checks every artifact it promises.
func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end pipeline run")
	}

	dir := t.TempDir()
	ctPath := filepath.Join(dir, "ct.raw")
	dims := [3]int{24, 24, 24}
	writeRawVolume(t, ctPath, dims, 40) // uniform soft tissue

	cfg := config.DefaultConfig()
	cfg.Output.SaveIntermediary = false
	cfg.Fusion.Workers = 2

	params := &Params{
		CTPath:      ctPath,
		CTDims:      dims,
		CTSpacing:   models.Spacing{X: 2.137, Y: 2.137, Z: 8.0},
		PhantomDir:  filepath.Join(dir, "missing"), // forces the fallback phantom
		PhantomType: "AM",
		Region:      "abdomen",
		OutputDir:   filepath.Join(dir, "out"),
	}

	result, err := New(params, cfg).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.FusedPath != "" {
		t.Error("Expected no fused artifact with SaveIntermediary disabled")
	}
	if _, err := os.Stat(result.GeometryPath); err != nil {
		t.Errorf("Expected geometry document at %s: %v", result.GeometryPath, err)
	}

	data, err := os.ReadFile(result.MetadataPath)
	if err != nil {
		t.Fatalf("Expected metadata sidecar: %v", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("Metadata is not valid JSON: %v", err)
	}

	if meta.PhantomType != "AM" {
		t.Errorf("Expected phantom type AM, got %s", meta.PhantomType)
	}
	if meta.CTShape != dims {
		t.Errorf("Expected CT shape %v, got %v", dims, meta.CTShape)
	}
	if meta.Registration.Region != "abdomen" {
		t.Errorf("Expected region abdomen, got %s", meta.Registration.Region)
	}
	if meta.Fusion.Skipped {
		t.Error("Expected fusion to run against the fallback phantom")
	}
	if meta.Encoding.NX <= 0 || meta.Encoding.FillCount <= 0 {
		t.Errorf("Expected a non-empty encoding summary, got %+v", meta.Encoding)
	}
	if meta.ScaleFactors != nil {
		t.Error("Expected no scale factors without height/weight")
	}
}

// TestRunWithScaling verifies that providing height and weight records the
// scale factors in the sidecar.
func TestRunWithScaling(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end pipeline run")
	}

	dir := t.TempDir()
	ctPath := filepath.Join(dir, "ct.raw")
	dims := [3]int{16, 16, 16}
	writeRawVolume(t, ctPath, dims, 40)

	cfg := config.DefaultConfig()
	cfg.Output.SaveIntermediary = false
	cfg.Fusion.Workers = 2

	params := &Params{
		CTPath:        ctPath,
		CTDims:        dims,
		CTSpacing:     models.Spacing{X: 2.137, Y: 2.137, Z: 8.0},
		PhantomDir:    filepath.Join(dir, "missing"),
		PhantomType:   "AM",
		Region:        "chest",
		PatientHeight: 180,
		PatientWeight: 80,
		OutputDir:     filepath.Join(dir, "out"),
	}

	result, err := New(params, cfg).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(result.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatal(err)
	}

	if meta.ScaleFactors == nil {
		t.Fatal("Expected scale factors in the sidecar")
	}
	if meta.ScaleFactors.Z <= 1.0 {
		t.Errorf("Expected Z factor above 1 for a taller patient, got %f", meta.ScaleFactors.Z)
	}
	if meta.PhantomShape[2] <= 222 {
		t.Errorf("Expected scaled phantom with more than 222 slices, got %d", meta.PhantomShape[2])
	}
}
