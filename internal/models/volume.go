package models

// Spacing is the physical size of a voxel along each axis in mm.
type Spacing struct {
	X, Y, Z float64
}

// VoxelGrid is a dense 3D array of organ/tissue IDs.
//
// Data is stored flat with X varying fastest, then Y, then Z. This is the
// same order the raw phantom data files list their values in (slice
// outermost, row middle, column innermost), so a grid can be filled by a
// single sequential read.
//
// ID 0 always means "no tissue / exterior air". Every other ID is expected
// to resolve through a materials table; IDs that do not are treated as
// exterior at encode time.
type VoxelGrid struct {
	// Data holds one organ ID per voxel.
	Data []int16

	// NX, NY, NZ are the grid dimensions in voxels.
	NX, NY, NZ int

	// Spacing is the physical voxel size in mm.
	Spacing Spacing
}

// NewVoxelGrid allocates a zeroed grid with the given shape and spacing.
func NewVoxelGrid(nx, ny, nz int, spacing Spacing) *VoxelGrid {
	return &VoxelGrid{
		Data:    make([]int16, nx*ny*nz),
		NX:      nx,
		NY:      ny,
		NZ:      nz,
		Spacing: spacing,
	}
}

// Idx returns the flat index of voxel (x, y, z).
func (g *VoxelGrid) Idx(x, y, z int) int {
	return z*g.NX*g.NY + y*g.NX + x
}

// At returns the organ ID at (x, y, z).
func (g *VoxelGrid) At(x, y, z int) int16 {
	return g.Data[g.Idx(x, y, z)]
}

// Set stores an organ ID at (x, y, z).
func (g *VoxelGrid) Set(x, y, z int, v int16) {
	g.Data[g.Idx(x, y, z)] = v
}

// Len returns the total voxel count.
func (g *VoxelGrid) Len() int {
	return g.NX * g.NY * g.NZ
}

// Clone returns a deep copy of the grid.
func (g *VoxelGrid) Clone() *VoxelGrid {
	out := NewVoxelGrid(g.NX, g.NY, g.NZ, g.Spacing)
	copy(out.Data, g.Data)
	return out
}

// CountNonZero returns the number of voxels with a non-zero organ ID.
func (g *VoxelGrid) CountNonZero() int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Volume is a dense 3D array of signed intensity values (radiological
// density units for CT input). Layout matches VoxelGrid: X fastest.
type Volume struct {
	Data []float64

	NX, NY, NZ int

	Spacing Spacing
}

// NewVolume allocates a zeroed volume with the given shape and spacing.
func NewVolume(nx, ny, nz int, spacing Spacing) *Volume {
	return &Volume{
		Data:    make([]float64, nx*ny*nz),
		NX:      nx,
		NY:      ny,
		NZ:      nz,
		Spacing: spacing,
	}
}

// Idx returns the flat index of voxel (x, y, z).
func (v *Volume) Idx(x, y, z int) int {
	return z*v.NX*v.NY + y*v.NX + x
}

// At returns the intensity at (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Idx(x, y, z)]
}

// Set stores an intensity at (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) {
	v.Data[v.Idx(x, y, z)] = val
}

// Len returns the total voxel count.
func (v *Volume) Len() int {
	return v.NX * v.NY * v.NZ
}

// RegistrationTransform is the rigid placement of a patient volume inside
// the reference grid, produced by the registrar and consumed exactly once
// by the fusion engine.
type RegistrationTransform struct {
	// TargetCenter is where the patient volume's center lands, in
	// reference-grid index space.
	TargetCenter [3]float64 `json:"targetCenter"`

	// Scale is the per-axis ratio of patient voxel spacing to reference
	// voxel spacing.
	Scale [3]float64 `json:"scale"`

	// Region is the anatomical region tag the placement was derived from.
	Region string `json:"region"`

	// ZStart and ZEnd bound the axial slab of the reference grid the
	// region occupies.
	ZStart int `json:"zStart"`
	ZEnd   int `json:"zEnd"`

	// AutoDetected records whether the region came from the classifier
	// rather than a caller-supplied hint.
	AutoDetected bool `json:"autoDetected"`
}
