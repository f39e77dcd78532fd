package fusion

import (
	"math"
	"testing"
)

// TestSigmoidMidpointAndSymmetry verifies the logistic's fixed points.
func TestSigmoidMidpointAndSymmetry(t *testing.T) {
	if got := Sigmoid(0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected Sigmoid(0)=0.5, got %f", got)
	}
	for _, x := range []float64{0.1, 1, 3, 10, 100} {
		sum := Sigmoid(x) + Sigmoid(-x)
		if math.Abs(sum-1.0) > 1e-12 {
			t.Errorf("Expected Sigmoid(%f)+Sigmoid(-%f)=1, got %f", x, x, sum)
		}
	}
	// Extreme arguments must saturate without overflow or NaN.
	if got := Sigmoid(1000); got != 1.0 {
		t.Errorf("Expected saturation to 1 at large argument, got %f", got)
	}
	if got := Sigmoid(-1000); got != 0.0 {
		t.Errorf("Expected saturation to 0 at large negative argument, got %f", got)
	}
}

// TestTransitionBand verifies the transition band's shape: weight 0.5 at
// half the band width, monotonic increase, near-saturation at the edges.
func TestTransitionBand(t *testing.T) {
	width := 20.0
	tr := newTransition(width)

	if got := tr.weight(width / 2); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("Expected weight 0.5 at band midpoint, got %f", got)
	}

	prev := -1.0
	for d := 0.0; d <= width*2; d += 0.5 {
		w := tr.weight(d)
		if w <= prev {
			t.Fatalf("Expected strictly increasing weights, got %f after %f at distance %f", w, prev, d)
		}
		prev = w
	}

	if got := tr.weight(0); got > 0.06 {
		t.Errorf("Expected near-zero weight at the boundary, got %f", got)
	}
	if got := tr.weight(width); got < 0.94 {
		t.Errorf("Expected near-one weight past the band, got %f", got)
	}
	// Infinite distance (no background in the slice) must give exactly 1.
	if got := tr.weight(math.Inf(1)); got != 1.0 {
		t.Errorf("Expected weight 1 at infinite distance, got %f", got)
	}
}

// TestAxialWeights verifies the per-slice axial profile: symmetric about
// the middle, lowest at the boundaries, saturated in the interior.
func TestAxialWeights(t *testing.T) {
	nz := 100
	w := axialWeights(nz, 20.0)

	if len(w) != nz {
		t.Fatalf("Expected %d weights, got %d", nz, len(w))
	}
	for k := 0; k < nz/2; k++ {
		if math.Abs(w[k]-w[nz-1-k]) > 1e-12 {
			t.Errorf("Slice %d: expected symmetric profile, got %f vs %f", k, w[k], w[nz-1-k])
		}
	}
	if w[0] >= w[nz/2] {
		t.Errorf("Expected boundary weight below interior weight, got %f >= %f", w[0], w[nz/2])
	}
	if w[nz/2] < 0.99 {
		t.Errorf("Expected interior saturation, got %f", w[nz/2])
	}
}
