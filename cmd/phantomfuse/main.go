package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"phantomfuse/internal/models"
	"phantomfuse/pkg/config"
	"phantomfuse/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	ctPath := flag.String("ct", "", "Patient CT volume (raw little-endian float32)")
	dims := flag.String("dims", "", "CT dimensions as NX,NY,NZ")
	spacing := flag.String("spacing", "1.0,1.0,1.0", "CT voxel spacing in mm as SX,SY,SZ")
	outputDir := flag.String("output", "output", "Output directory")
	phantomDir := flag.String("phantom-dir", "phantom_data", "Reference phantom data directory")
	phantomType := flag.String("phantom", "AM", "Reference phantom type (AM or AF)")
	region := flag.String("region", "", "Anatomical region (empty = auto-detect)")
	height := flag.Float64("height", 0, "Patient height in cm (enables scaling with -weight)")
	weight := flag.Float64("weight", 0, "Patient weight in kg (enables scaling with -height)")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	// Validate inputs
	if *ctPath == "" || *dims == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctDims, err := parseInts3(*dims)
	if err != nil {
		log.Fatalf("Invalid -dims: %v", err)
	}
	ctSpacing, err := parseFloats3(*spacing)
	if err != nil {
		log.Fatalf("Invalid -spacing: %v", err)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if cfg.Output.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	fmt.Println("================================")
	fmt.Println("PATIENT-SPECIFIC WHOLE-BODY VOXEL PHANTOM BUILDER")
	fmt.Println("CT/reference-phantom fusion with MCNP lattice output")
	fmt.Println("================================")

	params := &pipeline.Params{
		CTPath:        *ctPath,
		CTDims:        ctDims,
		CTSpacing:     models.Spacing{X: ctSpacing[0], Y: ctSpacing[1], Z: ctSpacing[2]},
		PhantomDir:    *phantomDir,
		PhantomType:   strings.ToUpper(*phantomType),
		Region:        *region,
		PatientHeight: *height,
		PatientWeight: *weight,
		OutputDir:     *outputDir,
	}

	fmt.Println("Starting phantom construction pipeline...")
	startTime := time.Now()
	result, err := pipeline.New(params, cfg).Run()
	if err != nil {
		log.Fatalf("Phantom construction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nPhantom construction completed in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Geometry document saved to: %s\n", result.GeometryPath)
	if result.FusedPath != "" {
		fmt.Printf("Fused phantom saved to: %s\n", result.FusedPath)
	}
	fmt.Printf("Metadata saved to: %s\n\n", result.MetadataPath)

	fmt.Printf("Fusion summary:\n")
	fmt.Printf("===============\n")
	fmt.Printf("Region: %s\n", result.Fusion.Region)
	fmt.Printf("Overlap voxels: %d\n", result.Fusion.OverlapVoxels)
	fmt.Printf("Replaced voxels: %d\n", result.Fusion.ReplacedVoxels)
	fmt.Printf("Mean blend weight: %.3f\n", result.Fusion.MeanReplacedWeight)
	fmt.Printf("Contour scaling applied: %v\n", result.Fusion.ContourScaled)
	fmt.Printf("Lattice: %dx%dx%d voxels, %d materials\n",
		result.Encoding.NX, result.Encoding.NY, result.Encoding.NZ,
		len(result.Encoding.Materials))
}

func parseInts3(s string) ([3]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("expected 3 comma-separated values, got %q", s)
	}
	var out [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return [3]int{}, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats3(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("expected 3 comma-separated values, got %q", s)
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, err
		}
		out[i] = v
	}
	return out, nil
}
