package raytrace

import (
	"fmt"
	"math"

	"github.com/kmdouglass/cherrytrace/pkg/optics/geom"
	"github.com/kmdouglass/cherrytrace/pkg/optics/paraxial"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

// LaunchField builds the ray bundle for a single field point against one
// sub-model: the axial launch point and transverse offset first, then one
// ray per pupil sample, all sharing the field's direction cosines.
// samplingOverride, when non-nil, replaces the field's own pupil-sampling
// rule.
//
// The FieldObjectHeight branch derives an effective angle from the object
// height and the launch-to-pupil distance, the same "aim the field
// direction through the pupil center" construction the FieldAngle branch
// uses with a declared angle.
func LaunchField(aperture system.ApertureSpec, field system.FieldSpec, gaps []system.Gap, surfaces []system.RealizedSurface, entrancePupilLocation float64, samplingOverride *system.PupilSampling) ([]Ray, error) {
	if len(surfaces) < 2 {
		return nil, fmt.Errorf("raytrace: launch: need at least object and image surfaces")
	}

	zObj := surfaces[0].Pos.Z
	zSurf1 := surfaces[1].Pos.Z
	zPupil := zSurf1 + entrancePupilLocation
	objAtInf := math.IsInf(gaps[0].Thickness, 1)

	z0 := axialLaunchPoint(zObj, zSurf1, zPupil, objAtInf)

	// An infinite entrance-pupil location means object space is telecentric:
	// the chief ray is already parallel to the axis there, so no transverse
	// offset is needed (and zPupil - z0 is itself infinite).
	dz := 0.0
	if !math.IsInf(entrancePupilLocation, 0) {
		dz = zPupil - z0
	}

	phi, err := fieldAngleRadians(field, gaps[0].Thickness, dz)
	if err != nil {
		return nil, fmt.Errorf("raytrace: launch: %w", err)
	}

	dy := -dz * math.Tan(phi)

	sampling := field.Sampling
	if samplingOverride != nil {
		sampling = *samplingOverride
	}

	samples := pupilSamples(aperture.EntrancePupilSemiDiameter, sampling, z0, dy)

	theta := math.Pi / 2
	dir := geom.NewVec3(math.Sin(phi)*math.Cos(theta), math.Sin(phi)*math.Sin(theta), math.Cos(phi))

	rays := make([]Ray, len(samples))
	for i, pos := range samples {
		ray, err := NewRay(pos, dir)
		if err != nil {
			return nil, fmt.Errorf("raytrace: launch: sample %d: %w", i, err)
		}
		rays[i] = ray
	}
	return rays, nil
}

// axialLaunchPoint implements the object-at-infinity launch-point rule: rays
// start one unit in front of whichever of surface 1 or the entrance pupil is
// closer to object space, or at the object plane itself for a finite
// conjugate. A tie (surface 1 exactly at the pupil) takes the surface-1
// branch; it has no effect on a finite-conjugate system, where z0 is
// always the object plane.
func axialLaunchPoint(zObj, zSurf1, zPupil float64, objAtInf bool) float64 {
	switch {
	case objAtInf && zSurf1 <= zPupil:
		return zSurf1 - 1
	case objAtInf:
		return zPupil - 1
	default:
		return zObj
	}
}

// fieldAngleRadians returns the field direction's angle from the optical
// axis, in radians. For FieldAngle this is just the declared angle. For
// FieldObjectHeight there is no declared angle at all, so one is derived from
// the similar triangle formed by the object height and the distance from the
// launch point to the pupil — the same "aim through the pupil center"
// reasoning paraxial.ChiefRay's FieldObjectHeight branch uses.
func fieldAngleRadians(field system.FieldSpec, objGapThickness, launchToPupil float64) (float64, error) {
	switch field.Kind {
	case system.FieldAngle:
		return field.Value * math.Pi / 180, nil
	case system.FieldObjectHeight:
		if launchToPupil == 0 {
			return 0, fmt.Errorf("object height field: launch point coincides with the pupil")
		}
		return math.Atan2(-field.Value, launchToPupil), nil
	default:
		return 0, fmt.Errorf("unknown field kind %v", field.Kind)
	}
}

// pupilSamples returns the launch positions, at z0, for one field's pupil
// samples: the square grid or chief-and-marginal pattern centered on the
// pupil axis, each shifted by (dx=0, dy) so that the bundle's center ray
// reaches the pupil's center.
func pupilSamples(pupilSemiDiameter float64, sampling system.PupilSampling, z0, dy float64) []geom.Vec3 {
	switch sampling.Kind {
	case system.ChiefAndMarginal:
		return []geom.Vec3{
			{X: 0, Y: dy, Z: z0},
			{X: 0, Y: pupilSemiDiameter + dy, Z: z0},
			{X: 0, Y: -pupilSemiDiameter + dy, Z: z0},
		}
	default: // SquareGrid
		spacing := pupilSemiDiameter * sampling.Spacing
		return geom.SqGridInCirc(pupilSemiDiameter, spacing, z0, 0, dy)
	}
}

// SubModelResults holds one field's traced samples per sub-model, in field
// order; within a field, results are in pupil-sample order.
type SubModelResults [][][]TraceCell

// RayTrace3D is the library's 3D ray-tracing entry point: for every
// sub-model, it launches each field's pupil-sample bundle (using that
// sub-model's entrance pupil location from the paraxial view) and traces
// every ray through the sub-model's surfaces. samplingOverride, when
// non-nil, replaces every field's own pupil-sampling rule.
func RayTrace3D(aperture system.ApertureSpec, fields []system.FieldSpec, model *system.SequentialModel, pview *paraxial.View, samplingOverride *system.PupilSampling, maxIter, workers int) (map[system.SubModelID]SubModelResults, error) {
	out := make(map[system.SubModelID]SubModelResults, len(model.Submodels))

	for id, gaps := range model.Submodels {
		sv, ok := pview.SubViews[id]
		if !ok {
			return nil, fmt.Errorf("raytrace: no paraxial sub-view for sub-model %+v", id)
		}

		pupil, err := sv.EntrancePupil()
		if err != nil {
			return nil, fmt.Errorf("raytrace: sub-model %+v: %w", id, err)
		}

		results := make(SubModelResults, len(fields))
		for fi, field := range fields {
			rays, err := LaunchField(aperture, field, gaps, model.Surfaces, pupil.Location, samplingOverride)
			if err != nil {
				return nil, fmt.Errorf("raytrace: sub-model %+v field %d: %w", id, fi, err)
			}
			results[fi] = TraceBundle(rays, gaps, model.Surfaces, maxIter, workers)
		}
		out[id] = results
	}

	return out, nil
}
