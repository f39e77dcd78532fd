package pipeline

import (
	"encoding/json"
	"os"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/fusion"
	"phantomfuse/pkg/mcnp"
	"phantomfuse/pkg/phantom"
)

const metadataVersion = "1.0.0"

// Metadata is the JSON sidecar written next to the geometry document. It
// records everything needed to reproduce or audit a run: input shapes and
// spacings, the registration placement, the fusion report and the encoding
// summary.
type Metadata struct {
	Version       string                       `json:"version"`
	CTPath        string                       `json:"ctPath"`
	CTShape       [3]int                       `json:"ctShape"`
	CTSpacingMM   [3]float64                   `json:"ctSpacingMm"`
	PhantomType   string                       `json:"phantomType"`
	PhantomShape  [3]int                       `json:"phantomShape"`
	FusedShape    [3]int                       `json:"fusedShape"`
	VoxelSizeMM   [3]float64                   `json:"voxelSizeMm"`
	Registration  models.RegistrationTransform `json:"registration"`
	Fusion        fusion.Report                `json:"fusion"`
	Encoding      mcnp.Summary                 `json:"encoding"`
	PatientHeight float64                      `json:"patientHeightCm,omitempty"`
	PatientWeight float64                      `json:"patientWeightKg,omitempty"`
	ScaleFactors  *phantom.ScaleFactors        `json:"scaleFactors,omitempty"`
}

// WriteMetadata serializes the sidecar as indented JSON.
func WriteMetadata(path string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
