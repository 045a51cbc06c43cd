// Package describe flattens a built model and its views into a
// JSON-serializable snapshot, the shape both the CLI and the inspection
// server print or serve rather than walking the model's own types.
package describe

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/kmdouglass/cherrytrace/pkg/optics/components"
	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/paraxial"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

// Num is a float that survives JSON encoding when non-finite: infinities
// and NaN become the strings "inf", "-inf" and "nan" ("inf" is also how the
// prescription format writes an infinite value). encoding/json otherwise refuses to marshal them,
// and flat surfaces legitimately carry an infinite radius of curvature.
type Num float64

func (n Num) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsInf(f, 1):
		return json.Marshal("inf")
	case math.IsInf(f, -1):
		return json.Marshal("-inf")
	case math.IsNaN(f):
		return json.Marshal("nan")
	default:
		return json.Marshal(f)
	}
}

// Surface is the flattened, JSON-friendly form of a system.RealizedSurface.
// Pos is the surface's global position; 3-vectors serialize as length-3
// arrays.
type Surface struct {
	Index             int    `json:"index"`
	Kind              string `json:"kind"`
	Pos               [3]Num `json:"pos"`
	SemiDiameter      Num    `json:"semiDiameter,omitempty"`
	RadiusOfCurvature Num    `json:"radiusOfCurvature,omitempty"`
}

// Pupil is the JSON-friendly form of a paraxial.Pupil. A telecentric object
// space reports an infinite location and a NaN semi-diameter, which is why
// the fields are Nums rather than plain floats.
type Pupil struct {
	Location     Num `json:"location"`
	SemiDiameter Num `json:"semiDiameter"`
}

// Cardinals is the JSON-friendly form of a paraxial.Cardinals.
type Cardinals struct {
	EffectiveFocalLength Num `json:"effectiveFocalLength"`
	BackFocalDistance    Num `json:"backFocalDistance"`
	FrontFocalDistance   Num `json:"frontFocalDistance"`
	BackPrincipalPlane   Num `json:"backPrincipalPlane"`
	FrontPrincipalPlane  Num `json:"frontPrincipalPlane"`
}

// Component is the flattened form of a components.Component.
type Component struct {
	Kind    string `json:"kind"`
	Surf0   int    `json:"surf0,omitempty"`
	Surf1   int    `json:"surf1,omitempty"`
	SurfIdx int    `json:"surfIdx,omitempty"`
}

// SubModel is the paraxial summary of one (wavelength, axis) sub-model.
type SubModel struct {
	WavelengthIndex int        `json:"wavelengthIndex"`
	HasWavelength   bool       `json:"hasWavelength"`
	Axis            string     `json:"axis"`
	ApertureStop    int        `json:"apertureStop"`
	EntrancePupil   Pupil      `json:"entrancePupil"`
	ExitPupil       Pupil      `json:"exitPupil"`
	Cardinals       *Cardinals `json:"cardinals,omitempty"`
}

func describePupil(p paraxial.Pupil) Pupil {
	return Pupil{Location: Num(p.Location), SemiDiameter: Num(p.SemiDiameter)}
}

func describeCardinals(c paraxial.Cardinals) *Cardinals {
	return &Cardinals{
		EffectiveFocalLength: Num(c.EffectiveFocalLength),
		BackFocalDistance:    Num(c.BackFocalDistance),
		FrontFocalDistance:   Num(c.FrontFocalDistance),
		BackPrincipalPlane:   Num(c.BackPrincipalPlane),
		FrontPrincipalPlane:  Num(c.FrontPrincipalPlane),
	}
}

// System is the full JSON-serializable snapshot of a built model.
type System struct {
	Surfaces   []Surface   `json:"surfaces"`
	Components []Component `json:"components"`
	SubModels  []SubModel  `json:"subModels"`
}

func surfaceKindName(k system.SurfaceKind) string {
	switch k {
	case system.SurfaceObject:
		return "object"
	case system.SurfaceImage:
		return "image"
	case system.SurfaceProbe:
		return "probe"
	case system.SurfaceStop:
		return "stop"
	case system.SurfaceConic:
		return "conic"
	default:
		return "unknown"
	}
}

func componentKindName(k components.ComponentKind) string {
	switch k {
	case components.Element:
		return "element"
	case components.Stop:
		return "stop"
	case components.UnpairedSurface:
		return "unpairedSurface"
	default:
		return "unknown"
	}
}

func describeSurfaces(model *system.SequentialModel) []Surface {
	return lo.Map(model.Surfaces, func(s system.RealizedSurface, i int) Surface {
		return Surface{
			Index:             i,
			Kind:              surfaceKindName(s.Spec.Kind),
			Pos:               [3]Num{Num(s.Pos.X), Num(s.Pos.Y), Num(s.Pos.Z)},
			SemiDiameter:      Num(s.Spec.SemiDiameter),
			RadiusOfCurvature: Num(s.Spec.RadiusOfCurvature),
		}
	})
}

func describeComponents(cs []components.Component) []Component {
	return lo.Map(cs, func(c components.Component, _ int) Component {
		return Component{
			Kind:    componentKindName(c.Kind),
			Surf0:   c.Surf0,
			Surf1:   c.Surf1,
			SurfIdx: c.SurfIdx,
		}
	})
}

// sortedSubModelIDs orders a view's sub-models for deterministic output:
// by wavelength index, then axis.
func sortedSubModelIDs(view *paraxial.View) []system.SubModelID {
	ids := lo.Keys(view.SubViews)
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].WavelengthIndex != ids[j].WavelengthIndex {
			return ids[i].WavelengthIndex < ids[j].WavelengthIndex
		}
		return ids[i].Axis < ids[j].Axis
	})
	return ids
}

func describeSubModels(view *paraxial.View) ([]SubModel, error) {
	ids := sortedSubModelIDs(view)

	out := make([]SubModel, 0, len(ids))
	for _, id := range ids {
		sv := view.SubViews[id]

		entrance, err := sv.EntrancePupil()
		if err != nil {
			return nil, fmt.Errorf("describe: sub-model %+v: entrance pupil: %w", id, err)
		}
		exit, err := sv.ExitPupil()
		if err != nil {
			return nil, fmt.Errorf("describe: sub-model %+v: exit pupil: %w", id, err)
		}

		sm := SubModel{
			WavelengthIndex: id.WavelengthIndex,
			HasWavelength:   id.HasWavelength,
			Axis:            id.Axis.String(),
			ApertureStop:    sv.ApertureStop(),
			EntrancePupil:   describePupil(entrance),
			ExitPupil:       describePupil(exit),
		}

		if cardinals, err := sv.Cardinals(); err == nil {
			sm.Cardinals = describeCardinals(cardinals)
		}

		out = append(out, sm)
	}
	return out, nil
}

// Describe builds a snapshot of a built model: its flattened surface list,
// its grouped components, and a per-sub-model paraxial summary.
func Describe(model *system.SequentialModel, background material.Spec, objSpaceTelecentric bool) (*System, error) {
	cs, err := components.View(model, background)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}

	view, err := paraxial.NewView(model, objSpaceTelecentric)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}

	subModels, err := describeSubModels(view)
	if err != nil {
		return nil, err
	}

	return &System{
		Surfaces:   describeSurfaces(model),
		Components: describeComponents(cs),
		SubModels:  subModels,
	}, nil
}
