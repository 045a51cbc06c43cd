// Package system builds the sequential model: the cursor-realized surface
// list plus, per (wavelength, axis) sub-model, the realized gap list used by
// the paraxial and ray-trace views.
package system

import (
	"fmt"
	"math"

	"github.com/kmdouglass/cherrytrace/pkg/optics/geom"
	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
)

// RealizedSurface is a surface spec positioned in the global frame by the
// cursor algorithm.
type RealizedSurface struct {
	Spec SurfaceSpec
	Pos  geom.Vec3
	Rot  geom.Mat3 // always identity in the current core; no tilt/decenter support
}

// Gap is a realized, per-sub-model gap: a signed axial thickness and a
// complex refractive index evaluated at the sub-model's wavelength.
//
// Thickness is the signed z-displacement the cursor actually traversed
// between the two surfaces this gap connects, not the raw (always-positive)
// spec thickness. The cursor inverts its forward direction at every
// reflecting surface, so a gap immediately following a fold is realized
// with a negative thickness; using the raw spec thickness there silently
// breaks every downstream paraxial matrix (see the concave-mirror seed case
// in the test suite for the regression this guards against).
type Gap struct {
	Thickness float64
	Index     material.RefractiveIndex
}

// SubModelID identifies a (wavelength, axis) sub-model. HasWavelength is
// false for the wavelength-independent case: every gap's index spec is
// Constant and no wavelengths were supplied.
type SubModelID struct {
	WavelengthIndex int
	HasWavelength   bool
	Axis            Axis
}

// String renders a sub-model key as "wN-axis", or "none-axis" for the
// wavelength-independent case.
func (id SubModelID) String() string {
	if !id.HasWavelength {
		return fmt.Sprintf("none-%s", id.Axis)
	}
	return fmt.Sprintf("w%d-%s", id.WavelengthIndex, id.Axis)
}

// MarshalText lets SubModelID serve as a JSON object key: encoding/json only
// accepts map keys that are strings, integers, or implement TextMarshaler,
// and a sub-model key is neither of the first two.
func (id SubModelID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// SequentialModel is the realized, immutable optical system: an ordered
// surface list shared by every sub-model, plus a gap list per sub-model.
type SequentialModel struct {
	Surfaces    []RealizedSurface
	Submodels   map[SubModelID][]Gap
	Wavelengths []float64
}

// IsRotationallySymmetric reports whether the model is rotationally
// symmetric, i.e. whether none of its surface kinds break rotational
// symmetry. Toric surfaces would break it; none are in
// scope, so this always returns true. The predicate is kept in this shape
// (rather than inlined as a literal `true`) so a future toric addition can
// flip it without restructuring its callers.
func (m *SequentialModel) IsRotationallySymmetric() bool {
	return true
}

// Step is one (gap, surface, gap?) triple from a forward or reverse
// traversal of a sub-model. Gap1 is nil only on the last step of a forward
// traversal (image space); every reverse step has one, the last being the
// object-space gap.
type Step struct {
	Gap0    Gap
	Surface RealizedSurface
	Gap1    *Gap
}

// BuildSequentialModel validates the specs, realizes the surface list via
// the cursor algorithm, enumerates sub-model keys, and realizes each
// sub-model's gap list.
func BuildSequentialModel(
	aperture ApertureSpec,
	fields []FieldSpec,
	gapSpecs []GapSpec,
	surfaceSpecs []SurfaceSpec,
	wavelengths []float64,
) (*SequentialModel, error) {
	if err := validateSpecs(aperture, fields, gapSpecs, surfaceSpecs, wavelengths); err != nil {
		return nil, err
	}

	surfaces := realizeSurfaces(gapSpecs, surfaceSpecs)

	ids := calcSubModelIDs(wavelengths, true)

	submodels := make(map[SubModelID][]Gap, len(ids))
	for _, id := range ids {
		gaps, err := realizeGaps(gapSpecs, surfaces, wavelengths, id)
		if err != nil {
			return nil, err
		}
		submodels[id] = gaps
	}

	return &SequentialModel{Surfaces: surfaces, Submodels: submodels, Wavelengths: wavelengths}, nil
}

func validateSpecs(aperture ApertureSpec, fields []FieldSpec, gapSpecs []GapSpec, surfaceSpecs []SurfaceSpec, wavelengths []float64) error {
	if len(surfaceSpecs) < 2 {
		return fmt.Errorf("sequential model: need at least two surfaces (object and image), got %d", len(surfaceSpecs))
	}
	if surfaceSpecs[0].Kind != SurfaceObject {
		return fmt.Errorf("sequential model: first surface must be Object")
	}
	if surfaceSpecs[len(surfaceSpecs)-1].Kind != SurfaceImage {
		return fmt.Errorf("sequential model: last surface must be Image")
	}

	objectCount, imageCount := 0, 0
	for _, s := range surfaceSpecs {
		switch s.Kind {
		case SurfaceObject:
			objectCount++
		case SurfaceImage:
			imageCount++
		}
	}
	if objectCount != 1 {
		return fmt.Errorf("sequential model: expected exactly one Object surface, got %d", objectCount)
	}
	if imageCount != 1 {
		return fmt.Errorf("sequential model: expected exactly one Image surface, got %d", imageCount)
	}

	if len(gapSpecs) != len(surfaceSpecs)-1 {
		return fmt.Errorf("sequential model: gap count %d must equal surface count - 1 (%d)", len(gapSpecs), len(surfaceSpecs)-1)
	}

	for i, g := range gapSpecs {
		if i == 0 {
			continue // object-space gap may be infinite
		}
		if math.IsInf(g.Thickness, 0) {
			return fmt.Errorf("sequential model: interior gap %d must have finite thickness", i)
		}
	}

	if len(wavelengths) == 0 {
		for i, g := range gapSpecs {
			if g.Index.DependsOnWavelength() {
				return fmt.Errorf("sequential model: gap %d's index depends on wavelength but none were supplied", i)
			}
		}
	}

	if aperture.EntrancePupilSemiDiameter <= 0 || math.IsNaN(aperture.EntrancePupilSemiDiameter) {
		return fmt.Errorf("sequential model: entrance-pupil semi-diameter must be positive, got %g", aperture.EntrancePupilSemiDiameter)
	}

	for i, f := range fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("sequential model: field %d: %w", i, err)
		}
	}

	return nil
}

// realizeSurfaces places every surface via the cursor walk. Each gap's
// realized, signed axial thickness is derived from the resulting global
// positions afterwards, by realizedThickness.
func realizeSurfaces(gapSpecs []GapSpec, surfaceSpecs []SurfaceSpec) []RealizedSurface {
	n := len(surfaceSpecs)
	surfaces := make([]RealizedSurface, n)

	cursor := NewCursor(-gapSpecs[0].Thickness)
	for i := 0; i < n-1; i++ {
		surfaces[i] = RealizedSurface{Spec: surfaceSpecs[i], Pos: cursor.Pos(), Rot: geom.Identity3()}
		if surfaceSpecs[i].IsReflecting() {
			cursor.Invert()
		}
		cursor.Advance(gapSpecs[i].Thickness)
	}
	surfaces[n-1] = RealizedSurface{Spec: surfaceSpecs[n-1], Pos: cursor.Pos(), Rot: geom.Identity3()}

	return surfaces
}

// realizedThickness returns the signed axial thickness of gap i, derived
// from the realized surface positions rather than the raw spec value. See
// the Gap doc comment for why this matters.
func realizedThickness(gapSpecs []GapSpec, surfaces []RealizedSurface, i int) float64 {
	if i == 0 && math.IsInf(gapSpecs[0].Thickness, 1) {
		return math.Inf(1)
	}
	return surfaces[i+1].Pos.Z - surfaces[i].Pos.Z
}

func calcSubModelIDs(wavelengths []float64, symmetric bool) []SubModelID {
	axes := []Axis{AxisY}
	if !symmetric {
		axes = []Axis{AxisX, AxisY}
	}

	if len(wavelengths) == 0 {
		ids := make([]SubModelID, len(axes))
		for i, a := range axes {
			ids[i] = SubModelID{Axis: a}
		}
		return ids
	}

	ids := make([]SubModelID, 0, len(wavelengths)*len(axes))
	for wi := range wavelengths {
		for _, a := range axes {
			ids = append(ids, SubModelID{WavelengthIndex: wi, HasWavelength: true, Axis: a})
		}
	}
	return ids
}

func realizeGaps(gapSpecs []GapSpec, surfaces []RealizedSurface, wavelengths []float64, id SubModelID) ([]Gap, error) {
	var wavelength *float64
	if id.HasWavelength {
		w := wavelengths[id.WavelengthIndex]
		wavelength = &w
	}

	gaps := make([]Gap, len(gapSpecs))
	for i, g := range gapSpecs {
		idx, err := material.TryEvaluate(g.Index, wavelength)
		if err != nil {
			return nil, fmt.Errorf("sequential model: gap %d: %w", i, err)
		}
		gaps[i] = Gap{Thickness: realizedThickness(gapSpecs, surfaces, i), Index: idx}
	}
	return gaps, nil
}

// ForwardSteps returns the (gap, surface, gap?) triples for i in
// 0..len(gaps)-1, surface i+1 paired with the gap before it (gaps[i]) and
// the gap after it (gaps[i+1], absent on the final, image-space step).
func ForwardSteps(gaps []Gap, surfaces []RealizedSurface) []Step {
	n := len(gaps)
	steps := make([]Step, n)
	for i := 0; i < n; i++ {
		var gap1 *Gap
		if i+1 < n {
			g := gaps[i+1]
			gap1 = &g
		}
		steps[i] = Step{Gap0: gaps[i], Surface: surfaces[i+1], Gap1: gap1}
	}
	return steps
}

// ReverseSteps walks a sub-model from the image side back to the object
// side. It starts at the last interior gap and ends at the object-space gap,
// and it never visits the image surface itself: a ray entering the system
// from image space is already assumed to start there. Unlike ForwardSteps,
// Gap1 is always present, since the object-space gap (possibly infinite) is
// always available as the trailing gap of the last reverse step.
//
// n is the gap count. The i-th reverse step (0-indexed) corresponds to
// forward index n-1-i: Gap0 is gaps[n-1-i], Surface is surfaces[n-1-i], and
// Gap1 is gaps[n-2-i]. This produces n-1 steps, one fewer than
// ForwardSteps, because the reverse walk starts already "at" the last
// optical surface rather than propagating in from the image plane.
func ReverseSteps(gaps []Gap, surfaces []RealizedSurface) []Step {
	n := len(gaps)
	steps := make([]Step, 0, n-1)
	for fi := n - 1; fi >= 1; fi-- {
		gap1 := gaps[fi-1]
		steps = append(steps, Step{Gap0: gaps[fi], Surface: surfaces[fi], Gap1: &gap1})
	}
	return steps
}
