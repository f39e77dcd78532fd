package segmentation

// BodyWidth measures the in-plane extent of the true region of a 2D mask
// along both axes: (max index − min index + 1) per axis, or 0 for an
// empty slice. Contour matching compares these widths between the patient
// sub-volume and the reference grid at the axial boundaries.
func BodyWidth(mask []bool, nx, ny int) (wx, wy float64) {
	minX, maxX := nx, -1
	minY, maxY := ny, -1
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			if !mask[y*nx+x] {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return 0, 0
	}
	return float64(maxX - minX + 1), float64(maxY - minY + 1)
}
