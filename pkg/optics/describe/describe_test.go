package describe

import (
	"math"
	"testing"

	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

func constIndex(n float64) material.Spec {
	return material.Spec{Real: material.RealSpec{Kind: material.RealConstant, Constant: n}}
}

func planoConvexModel(t *testing.T) *system.SequentialModel {
	t.Helper()
	air := constIndex(1.0)
	nbk7 := constIndex(1.515)
	gaps := []system.GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 5.3, Index: nbk7},
		{Thickness: 46.6, Index: air},
	}
	surfaces := []system.SurfaceSpec{
		{Kind: system.SurfaceObject},
		{Kind: system.SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: 25.8, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: math.Inf(1), Interaction: system.Refracting},
		{Kind: system.SurfaceImage},
	}
	m, err := system.BuildSequentialModel(system.ApertureSpec{EntrancePupilSemiDiameter: 12.5}, nil, gaps, surfaces, nil)
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}
	return m
}

func TestDescribePlanoConvexLens(t *testing.T) {
	m := planoConvexModel(t)

	snap, err := Describe(m, constIndex(1.0), false)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	if len(snap.Surfaces) != 4 {
		t.Fatalf("len(Surfaces) = %d, want 4", len(snap.Surfaces))
	}
	if snap.Surfaces[0].Kind != "object" || snap.Surfaces[3].Kind != "image" {
		t.Errorf("Surfaces = %+v, want object..image", snap.Surfaces)
	}

	if len(snap.Components) != 1 {
		t.Fatalf("len(Components) = %d, want 1 element", len(snap.Components))
	}
	if snap.Components[0].Kind != "element" {
		t.Errorf("Components[0].Kind = %q, want element", snap.Components[0].Kind)
	}

	// A rotationally symmetric system with no wavelengths collapses to the
	// single wavelength-independent Y-axis sub-model.
	if len(snap.SubModels) != 1 {
		t.Fatalf("len(SubModels) = %d, want 1", len(snap.SubModels))
	}
	for _, sm := range snap.SubModels {
		if sm.Cardinals == nil {
			t.Errorf("sub-model %+v: Cardinals is nil, want a focal system", sm)
		}
	}
}

// TestDescribeEmptySystem snapshots the degenerate object-then-image
// system: no components, but the paraxial summary is still produced.
func TestDescribeEmptySystem(t *testing.T) {
	gaps := []system.GapSpec{{Thickness: 100.0, Index: constIndex(1.0)}}
	surfaces := []system.SurfaceSpec{{Kind: system.SurfaceObject}, {Kind: system.SurfaceImage}}
	m, err := system.BuildSequentialModel(system.ApertureSpec{EntrancePupilSemiDiameter: 1.0}, nil, gaps, surfaces, nil)
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}

	snap, err := Describe(m, constIndex(1.0), false)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(snap.Components) != 0 {
		t.Errorf("len(Components) = %d, want 0", len(snap.Components))
	}
	if len(snap.Surfaces) != 2 {
		t.Errorf("len(Surfaces) = %d, want 2", len(snap.Surfaces))
	}
}

// TestDescribePetzvalLens checks that the snapshot tags the Petzval lens's
// hard stop both as the fourth surface's kind and as every sub-model's
// aperture stop.
func TestDescribePetzvalLens(t *testing.T) {
	air := constIndex(1.0)
	gaps := []system.GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 13.0, Index: constIndex(1.5168)},
		{Thickness: 4.0, Index: constIndex(1.6645)},
		{Thickness: 40.0, Index: air},
		{Thickness: 40.0, Index: air},
		{Thickness: 12.0, Index: constIndex(1.6074)},
		{Thickness: 3.0, Index: constIndex(1.6727)},
		{Thickness: 46.82210, Index: air},
		{Thickness: 2.0, Index: constIndex(1.6727)},
		{Thickness: 1.87179, Index: air},
	}
	surfaces := []system.SurfaceSpec{
		{Kind: system.SurfaceObject},
		{Kind: system.SurfaceConic, SemiDiameter: 28.478, RadiusOfCurvature: 99.56266, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 26.276, RadiusOfCurvature: -86.84002, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 21.02, RadiusOfCurvature: -1187.63858, Interaction: system.Refracting},
		{Kind: system.SurfaceStop, SemiDiameter: 16.631},
		{Kind: system.SurfaceConic, SemiDiameter: 20.543, RadiusOfCurvature: 57.47491, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 20.074, RadiusOfCurvature: -54.61685, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 20.074, RadiusOfCurvature: -614.68633, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 17.297, RadiusOfCurvature: -38.17110, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 18.94, RadiusOfCurvature: math.Inf(1), Interaction: system.Refracting},
		{Kind: system.SurfaceImage},
	}
	m, err := system.BuildSequentialModel(system.ApertureSpec{EntrancePupilSemiDiameter: 16.631}, nil, gaps, surfaces, []float64{0.567})
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}

	snap, err := Describe(m, air, false)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	if got := snap.Surfaces[4].Kind; got != "stop" {
		t.Errorf("Surfaces[4].Kind = %q, want stop", got)
	}
	for _, sm := range snap.SubModels {
		if sm.ApertureStop != 4 {
			t.Errorf("sub-model %s/%d: ApertureStop = %d, want 4", sm.Axis, sm.WavelengthIndex, sm.ApertureStop)
		}
	}
}
