package components

import (
	"math"
	"testing"

	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

func constIndex(n float64) material.Spec {
	return material.Spec{Real: material.RealSpec{Kind: material.RealConstant, Constant: n}}
}

var air = constIndex(1.0)
var nbk7 = constIndex(1.515)

func build(t *testing.T, gaps []system.GapSpec, surfaces []system.SurfaceSpec) *system.SequentialModel {
	t.Helper()
	m, err := system.BuildSequentialModel(system.ApertureSpec{EntrancePupilSemiDiameter: 12.5}, nil, gaps, surfaces, []float64{0.567})
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}
	return m
}

func TestViewEmptySystem(t *testing.T) {
	gaps := []system.GapSpec{{Thickness: 1.0, Index: air}}
	surfaces := []system.SurfaceSpec{{Kind: system.SurfaceObject}, {Kind: system.SurfaceImage}}
	m := build(t, gaps, surfaces)

	got, err := View(m, air)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(View()) = %d, want 0", len(got))
	}
}

func TestViewPlanoConvexLens(t *testing.T) {
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
	m := build(t, gaps, surfaces)

	got, err := View(m, air)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(View()) = %d, want 1", len(got))
	}
	if got[0].Kind != Element || got[0].Surf0 != 1 || got[0].Surf1 != 2 {
		t.Errorf("View()[0] = %+v, want Element{1,2}", got[0])
	}
}

func TestViewSillySingleSurfaceAndStop(t *testing.T) {
	gaps := []system.GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 10.0, Index: nbk7},
		{Thickness: 10.0, Index: air},
	}
	surfaces := []system.SurfaceSpec{
		{Kind: system.SurfaceObject},
		{Kind: system.SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: 25.8, Interaction: system.Refracting},
		{Kind: system.SurfaceStop, SemiDiameter: 12.5},
		{Kind: system.SurfaceImage},
	}
	m := build(t, gaps, surfaces)

	got, err := View(m, air)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(got) != 1 || got[0].Kind != Stop || got[0].SurfIdx != 2 {
		t.Errorf("View() = %+v, want [Stop{2}]", got)
	}
}

func TestViewSillyUnpairedSurface(t *testing.T) {
	gaps := []system.GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 5.3, Index: nbk7},
		{Thickness: 46.6, Index: air},
		{Thickness: 20.0, Index: nbk7},
	}
	surfaces := []system.SurfaceSpec{
		{Kind: system.SurfaceObject},
		{Kind: system.SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: 25.8, Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: math.Inf(1), Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: 25.8, Interaction: system.Refracting},
		{Kind: system.SurfaceImage},
	}
	m := build(t, gaps, surfaces)

	got, err := View(m, air)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(View()) = %d, want 2", len(got))
	}

	var hasElement, hasUnpaired bool
	for _, c := range got {
		if c.Kind == Element && c.Surf0 == 1 && c.Surf1 == 2 {
			hasElement = true
		}
		if c.Kind == UnpairedSurface && c.SurfIdx == 3 {
			hasUnpaired = true
		}
	}
	if !hasElement || !hasUnpaired {
		t.Errorf("View() = %+v, want Element{1,2} and UnpairedSurface{3}", got)
	}
}

func TestViewWollastonLandscapeLens(t *testing.T) {
	gaps := []system.GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 5.0, Index: air},
		{Thickness: 5.0, Index: nbk7},
		{Thickness: 47.974, Index: air},
	}
	surfaces := []system.SurfaceSpec{
		{Kind: system.SurfaceObject},
		{Kind: system.SurfaceStop, SemiDiameter: 5.0},
		{Kind: system.SurfaceConic, SemiDiameter: 6.882, RadiusOfCurvature: math.Inf(1), Interaction: system.Refracting},
		{Kind: system.SurfaceConic, SemiDiameter: 7.367, RadiusOfCurvature: -25.84, Interaction: system.Refracting},
		{Kind: system.SurfaceImage},
	}
	m := build(t, gaps, surfaces)

	got, err := View(m, air)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(View()) = %d, want 2", len(got))
	}

	var hasStop, hasElement bool
	for _, c := range got {
		if c.Kind == Stop && c.SurfIdx == 1 {
			hasStop = true
		}
		if c.Kind == Element && c.Surf0 == 2 && c.Surf1 == 3 {
			hasElement = true
		}
	}
	if !hasStop || !hasElement {
		t.Errorf("View() = %+v, want Stop{1} and Element{2,3}", got)
	}
}
