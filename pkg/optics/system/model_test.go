package system

import (
	"math"
	"testing"

	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
)

func constIndex(n float64) material.Spec {
	return material.Spec{Real: material.RealSpec{Kind: material.RealConstant, Constant: n}}
}

// concaveMirrorSpecs builds the f = +100mm concave mirror with an object at
// infinity, grounded on examples::concave_mirror::sequential_model.
func concaveMirrorSpecs() ([]GapSpec, []SurfaceSpec) {
	air := constIndex(1.0)

	gaps := []GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 100.0, Index: air},
	}
	surfaces := []SurfaceSpec{
		{Kind: SurfaceObject},
		{Kind: SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: -200.0, Interaction: Reflecting},
		{Kind: SurfaceImage},
	}
	return gaps, surfaces
}

// convexPlanoLensSpecs builds the plano-convex singlet, grounded on
// examples::convexplano_lens::sequential_model.
func convexPlanoLensSpecs() ([]GapSpec, []SurfaceSpec) {
	air := constIndex(1.0)
	nbk7 := constIndex(1.515)

	gaps := []GapSpec{
		{Thickness: math.Inf(1), Index: air},
		{Thickness: 5.3, Index: nbk7},
		{Thickness: 46.6, Index: air},
	}
	surfaces := []SurfaceSpec{
		{Kind: SurfaceObject},
		{Kind: SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: 25.8, Interaction: Refracting},
		{Kind: SurfaceConic, SemiDiameter: 12.5, RadiusOfCurvature: math.Inf(1), Interaction: Refracting},
		{Kind: SurfaceImage},
	}
	return gaps, surfaces
}

func TestBuildSequentialModelConcaveMirror(t *testing.T) {
	gaps, surfaces := concaveMirrorSpecs()
	aperture := ApertureSpec{EntrancePupilSemiDiameter: 12.5}
	fields := []FieldSpec{{Kind: FieldAngle, Value: 5.0}}

	m, err := BuildSequentialModel(aperture, fields, gaps, surfaces, []float64{0.5876})
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}

	if len(m.Surfaces) != 3 {
		t.Fatalf("len(Surfaces) = %d, want 3", len(m.Surfaces))
	}
	if m.Surfaces[0].Pos.Z != math.Inf(-1) {
		t.Errorf("object surface Z = %v, want -Inf", m.Surfaces[0].Pos.Z)
	}
	if m.Surfaces[1].Pos.Z != 0 {
		t.Errorf("mirror surface Z = %v, want 0", m.Surfaces[1].Pos.Z)
	}
	if m.Surfaces[2].Pos.Z != -100 {
		t.Errorf("image surface Z = %v, want -100", m.Surfaces[2].Pos.Z)
	}

	id := SubModelID{WavelengthIndex: 0, HasWavelength: true, Axis: AxisY}
	sub, ok := m.Submodels[id]
	if !ok {
		t.Fatalf("submodel %+v not found", id)
	}
	if !math.IsInf(sub[0].Thickness, 1) {
		t.Errorf("gap 0 thickness = %v, want +Inf", sub[0].Thickness)
	}
	// This is the central correctness property of the realization step: the
	// gap after a fold must come out negative, not the raw spec value of 100.
	if sub[1].Thickness != -100 {
		t.Errorf("gap 1 thickness = %v, want -100 (signed, post-fold)", sub[1].Thickness)
	}
}

func TestBuildSequentialModelConvexPlanoLens(t *testing.T) {
	gaps, surfaces := convexPlanoLensSpecs()
	aperture := ApertureSpec{EntrancePupilSemiDiameter: 12.5}
	fields := []FieldSpec{{Kind: FieldAngle, Value: 0.0}, {Kind: FieldAngle, Value: 5.0}}

	m, err := BuildSequentialModel(aperture, fields, gaps, surfaces, []float64{0.567})
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}

	wantZ := []float64{math.Inf(-1), 0, 5.3, 51.9}
	for i, want := range wantZ {
		if m.Surfaces[i].Pos.Z != want {
			t.Errorf("Surfaces[%d].Pos.Z = %v, want %v", i, m.Surfaces[i].Pos.Z, want)
		}
	}

	id := SubModelID{WavelengthIndex: 0, HasWavelength: true, Axis: AxisY}
	sub := m.Submodels[id]
	if sub[1].Thickness != 5.3 {
		t.Errorf("gap 1 thickness = %v, want 5.3", sub[1].Thickness)
	}
	if sub[2].Thickness != 46.6 {
		t.Errorf("gap 2 thickness = %v, want 46.6", sub[2].Thickness)
	}
	if sub[1].Index.N != 1.515 {
		t.Errorf("gap 1 index N = %v, want 1.515", sub[1].Index.N)
	}
}

func TestBuildSequentialModelRejectsWrongEndpoints(t *testing.T) {
	gaps, surfaces := convexPlanoLensSpecs()
	surfaces[0].Kind = SurfaceConic // no longer starts with Object
	aperture := ApertureSpec{EntrancePupilSemiDiameter: 12.5}

	if _, err := BuildSequentialModel(aperture, nil, gaps, surfaces, []float64{0.567}); err == nil {
		t.Errorf("BuildSequentialModel() with no Object surface should error")
	}
}

func TestBuildSequentialModelRejectsInfiniteInteriorGap(t *testing.T) {
	gaps, surfaces := convexPlanoLensSpecs()
	gaps[1].Thickness = math.Inf(1)
	aperture := ApertureSpec{EntrancePupilSemiDiameter: 12.5}

	if _, err := BuildSequentialModel(aperture, nil, gaps, surfaces, []float64{0.567}); err == nil {
		t.Errorf("BuildSequentialModel() with an infinite interior gap should error")
	}
}

func TestBuildSequentialModelRequiresWavelengthForDispersiveIndex(t *testing.T) {
	gaps, surfaces := convexPlanoLensSpecs()
	gaps[1].Index = material.Spec{Real: material.RealSpec{
		Kind: material.RealFormula1, WavelengthRangeU: [2]float64{0.3, 0.9}, C: []float64{0, 0.5, 0.1},
	}}
	aperture := ApertureSpec{EntrancePupilSemiDiameter: 12.5}

	if _, err := BuildSequentialModel(aperture, nil, gaps, surfaces, nil); err == nil {
		t.Errorf("BuildSequentialModel() with a dispersive gap and no wavelengths should error")
	}
}

func TestForwardStepsMirrorReverseSteps(t *testing.T) {
	gaps, surfaces := convexPlanoLensSpecs()
	aperture := ApertureSpec{EntrancePupilSemiDiameter: 12.5}
	m, err := BuildSequentialModel(aperture, nil, gaps, surfaces, []float64{0.567})
	if err != nil {
		t.Fatalf("BuildSequentialModel() error = %v", err)
	}
	id := SubModelID{WavelengthIndex: 0, HasWavelength: true, Axis: AxisY}
	sub := m.Submodels[id]

	fwd := ForwardSteps(sub, m.Surfaces)
	if len(fwd) != len(sub) {
		t.Fatalf("len(ForwardSteps) = %d, want %d", len(fwd), len(sub))
	}
	if fwd[len(fwd)-1].Gap1 != nil {
		t.Errorf("last forward step should have a nil Gap1 (image-space end)")
	}

	rev := ReverseSteps(sub, m.Surfaces)
	if len(rev) != len(sub)-1 {
		t.Fatalf("len(ReverseSteps) = %d, want %d", len(rev), len(sub)-1)
	}
	// The reverse walk starts at the last optical surface (one before the
	// image surface, i.e. the second-to-last forward step's surface).
	if rev[0].Surface.Pos.Z != fwd[len(fwd)-2].Surface.Pos.Z {
		t.Errorf("ReverseSteps() should start at the last optical surface")
	}
	if rev[len(rev)-1].Surface.Pos.Z != fwd[0].Surface.Pos.Z {
		t.Errorf("ReverseSteps() should end at the first optical surface")
	}
	if rev[len(rev)-1].Gap1 == nil {
		t.Errorf("last reverse step should still carry the object-space gap as Gap1")
	}
}
