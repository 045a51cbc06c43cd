package system

import (
	"fmt"
	"math"

	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
)

// Axis is a transverse direction a sub-model's paraxial quantities are
// computed against.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisX {
		return "X"
	}
	return "Y"
}

// Interaction is what a conic surface does to a ray that intersects it.
type Interaction int

const (
	Refracting Interaction = iota
	Reflecting
	NoOp
)

// SurfaceKind identifies which closed surface variant a SurfaceSpec carries.
type SurfaceKind int

const (
	SurfaceObject SurfaceKind = iota
	SurfaceImage
	SurfaceProbe
	SurfaceStop
	SurfaceConic
)

// SurfaceSpec is one of Object, Image, Probe, Stop{semi_diameter}, or
// Conic{semi_diameter, radius_of_curvature, conic_constant, interaction}.
type SurfaceSpec struct {
	Kind              SurfaceKind
	SemiDiameter      float64
	RadiusOfCurvature float64 // Conic only; +Inf for a flat surface
	ConicConstant     float64 // Conic only
	Interaction       Interaction
}

// GapSpec is the medium and axial distance between two consecutive
// surfaces. Thickness may be +Inf only for the object-space gap (gap 0).
type GapSpec struct {
	Thickness float64
	Index     material.Spec
}

// ApertureSpec describes the system's aperture. The only variant carried by
// the core is an entrance-pupil semi-diameter.
type ApertureSpec struct {
	EntrancePupilSemiDiameter float64
}

// PupilSamplingKind identifies which pupil sampling rule a FieldSpec uses.
type PupilSamplingKind int

const (
	SquareGrid PupilSamplingKind = iota
	ChiefAndMarginal
)

// PupilSampling describes how rays are sampled across the entrance pupil for
// a given field point.
type PupilSampling struct {
	Kind    PupilSamplingKind
	Spacing float64 // SquareGrid only; normalized to [0, 1]
}

// FieldKind identifies whether a FieldSpec is specified by angle or by
// object height.
type FieldKind int

const (
	FieldAngle FieldKind = iota
	FieldObjectHeight
)

// FieldSpec is a single field point: either an angle in degrees from the
// optical axis, or an object height, plus a pupil-sampling rule.
type FieldSpec struct {
	Kind     FieldKind
	Value    float64
	Sampling PupilSampling
}

// Validate checks a field spec's invariants: the angle must lie in
// [-90, 90], and the grid spacing (when used) must lie in [0, 1]; neither
// may be NaN.
func (f FieldSpec) Validate() error {
	if math.IsNaN(f.Value) {
		return fmt.Errorf("field spec: value is NaN")
	}
	if f.Kind == FieldAngle && (f.Value < -90 || f.Value > 90) {
		return fmt.Errorf("field spec: angle %g degrees is outside [-90, 90]", f.Value)
	}
	if f.Sampling.Kind == SquareGrid {
		if math.IsNaN(f.Sampling.Spacing) {
			return fmt.Errorf("field spec: pupil grid spacing is NaN")
		}
		if f.Sampling.Spacing < 0 || f.Sampling.Spacing > 1 {
			return fmt.Errorf("field spec: pupil grid spacing %g is outside [0, 1]", f.Sampling.Spacing)
		}
	}
	return nil
}

// IsReflecting reports whether the surface flips the cursor's direction.
func (s SurfaceSpec) IsReflecting() bool {
	return s.Kind == SurfaceConic && s.Interaction == Reflecting
}
