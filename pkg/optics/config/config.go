// Package config loads a lens prescription from a JSON5 document on disk
// and turns it into the specs BuildSequentialModel expects.
package config

import (
	"fmt"
	"math"
	"os"

	json "github.com/KevinWang15/go-json5"

	"github.com/kmdouglass/cherrytrace/internal/validate"
	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

// Prescription is the on-disk JSON5 shape of a lens description: an
// aperture, a list of field points, a wavelength set, and the gap/surface
// list in object-to-image order.
type Prescription struct {
	Aperture            ApertureSpec  `json:"aperture"`
	Fields              []FieldSpec   `json:"fields"`
	Wavelengths         []float64     `json:"wavelengths"`
	Gaps                []GapSpec     `json:"gaps"`
	Surfaces            []SurfaceSpec `json:"surfaces"`
	ObjSpaceTelecentric bool          `json:"objSpaceTelecentric"`
}

// ApertureSpec is the JSON5 shape of system.ApertureSpec.
type ApertureSpec struct {
	EntrancePupilSemiDiameter float64 `json:"entrancePupilSemiDiameter"`
}

// FieldSpec is the JSON5 shape of system.FieldSpec. Kind is "angle" or
// "objectHeight". Sampling is optional and defaults to chief-and-marginal
// sampling when omitted.
type FieldSpec struct {
	Kind     string         `json:"kind"`
	Value    float64        `json:"value"`
	Sampling *PupilSampling `json:"sampling"`
}

// PupilSampling is the JSON5 shape of system.PupilSampling. Kind is
// "squareGrid" (with a normalized Spacing in [0, 1]) or "chiefAndMarginal".
type PupilSampling struct {
	Kind    string  `json:"kind"`
	Spacing float64 `json:"spacing"`
}

// RefractiveIndexSpec is the JSON5 shape of material.Spec. Kind selects the
// real-part formula; Kind "constant" only needs Constant. Dispersive
// formulas supply WavelengthRange and C.
type RefractiveIndexSpec struct {
	Kind            string     `json:"kind"`
	Constant        float64    `json:"constant"`
	WavelengthRange [2]float64 `json:"wavelengthRange"`
	C               []float64  `json:"c"`
	K               float64    `json:"k"`
}

// GapSpec is the JSON5 shape of system.GapSpec. Thickness may be the string
// "inf" for the object-space gap.
type GapSpec struct {
	Thickness interface{}         `json:"thickness"`
	Index     RefractiveIndexSpec `json:"index"`
}

// SurfaceSpec is the JSON5 shape of system.SurfaceSpec. Kind is one of
// "object", "image", "probe", "stop", or "conic". RadiusOfCurvature may be
// the string "inf" for a flat conic surface.
type SurfaceSpec struct {
	Kind              string      `json:"kind"`
	SemiDiameter      float64     `json:"semiDiameter"`
	RadiusOfCurvature interface{} `json:"radiusOfCurvature"`
	ConicConstant     float64     `json:"conicConstant"`
	Interaction       string      `json:"interaction"`
}

// Load reads and parses a JSON5 prescription file.
func Load(path string) (*Prescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var p Prescription
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &p, nil
}

// Specs converts a parsed prescription into the specs BuildSequentialModel
// consumes.
func (p *Prescription) Specs() (system.ApertureSpec, []system.FieldSpec, []system.GapSpec, []system.SurfaceSpec, error) {
	aperture := system.ApertureSpec{EntrancePupilSemiDiameter: p.Aperture.EntrancePupilSemiDiameter}

	fields := make([]system.FieldSpec, len(p.Fields))
	for i, f := range p.Fields {
		kind, err := fieldKind(f.Kind)
		if err != nil {
			return system.ApertureSpec{}, nil, nil, nil, fmt.Errorf("config: field %d: %w", i, err)
		}
		if kind == system.FieldAngle {
			if err := validate.Range(&angleRange{AngleDegrees: f.Value}); err != nil {
				return system.ApertureSpec{}, nil, nil, nil, fmt.Errorf("config: field %d: %w", i, err)
			}
		}
		sampling, err := f.Sampling.toSpec()
		if err != nil {
			return system.ApertureSpec{}, nil, nil, nil, fmt.Errorf("config: field %d: %w", i, err)
		}
		fields[i] = system.FieldSpec{Kind: kind, Value: f.Value, Sampling: sampling}
	}

	gaps := make([]system.GapSpec, len(p.Gaps))
	for i, g := range p.Gaps {
		thickness, err := numberOrInf(g.Thickness)
		if err != nil {
			return system.ApertureSpec{}, nil, nil, nil, fmt.Errorf("config: gap %d thickness: %w", i, err)
		}
		idx, err := g.Index.toSpec()
		if err != nil {
			return system.ApertureSpec{}, nil, nil, nil, fmt.Errorf("config: gap %d index: %w", i, err)
		}
		gaps[i] = system.GapSpec{Thickness: thickness, Index: idx}
	}

	surfaces := make([]system.SurfaceSpec, len(p.Surfaces))
	for i, s := range p.Surfaces {
		surf, err := s.toSpec()
		if err != nil {
			return system.ApertureSpec{}, nil, nil, nil, fmt.Errorf("config: surface %d: %w", i, err)
		}
		surfaces[i] = surf
	}

	return aperture, fields, gaps, surfaces, nil
}

// angleRange is a throwaway struct carrying the field-angle bounds, checked
// through internal/validate instead of a hand-written comparison.
type angleRange struct {
	AngleDegrees float64 `stag:"min=-90,max=90"`
}

// toSpec converts a JSON5 sampling rule to system.PupilSampling, defaulting
// to chief-and-marginal sampling when the field omits it entirely.
func (s *PupilSampling) toSpec() (system.PupilSampling, error) {
	if s == nil || s.Kind == "" || s.Kind == "chiefAndMarginal" {
		return system.PupilSampling{Kind: system.ChiefAndMarginal}, nil
	}
	if s.Kind == "squareGrid" {
		return system.PupilSampling{Kind: system.SquareGrid, Spacing: s.Spacing}, nil
	}
	return system.PupilSampling{}, fmt.Errorf("unknown pupil sampling kind %q", s.Kind)
}

func fieldKind(kind string) (system.FieldKind, error) {
	switch kind {
	case "angle":
		return system.FieldAngle, nil
	case "objectHeight":
		return system.FieldObjectHeight, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", kind)
	}
}

func numberOrInf(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		if t == "inf" || t == "+inf" || t == "Infinity" {
			return math.Inf(1), nil
		}
		return 0, fmt.Errorf("unrecognized distance string %q", t)
	case nil:
		return 0, fmt.Errorf("distance is required")
	default:
		return 0, fmt.Errorf("unsupported distance value %v", v)
	}
}

var realFormulaKinds = map[string]material.RealKind{
	"constant": material.RealConstant,
	"formula1": material.RealFormula1,
	"formula2": material.RealFormula2,
	"formula3": material.RealFormula3,
	"formula4": material.RealFormula4,
	"formula5": material.RealFormula5,
	"formula6": material.RealFormula6,
	"formula7": material.RealFormula7,
	"formula8": material.RealFormula8,
	"formula9": material.RealFormula9,
}

func (r RefractiveIndexSpec) toSpec() (material.Spec, error) {
	kindName := r.Kind
	if kindName == "" {
		kindName = "constant"
	}
	kind, ok := realFormulaKinds[kindName]
	if !ok {
		return material.Spec{}, fmt.Errorf("unknown refractive-index kind %q", r.Kind)
	}

	real := material.RealSpec{Kind: kind, Constant: r.Constant, C: r.C}
	if kind != material.RealConstant {
		real.WavelengthRangeU = r.WavelengthRange
	}

	spec := material.Spec{Real: real}
	if r.K != 0 {
		spec.Imag = material.ImagSpec{Kind: material.ImagConstant, Constant: r.K}
	}
	return spec, nil
}

func (s SurfaceSpec) toSpec() (system.SurfaceSpec, error) {
	kind, ok := map[string]system.SurfaceKind{
		"object": system.SurfaceObject,
		"image":  system.SurfaceImage,
		"probe":  system.SurfaceProbe,
		"stop":   system.SurfaceStop,
		"conic":  system.SurfaceConic,
	}[s.Kind]
	if !ok {
		return system.SurfaceSpec{}, fmt.Errorf("unknown surface kind %q", s.Kind)
	}

	out := system.SurfaceSpec{Kind: kind, SemiDiameter: s.SemiDiameter, ConicConstant: s.ConicConstant}

	if kind == system.SurfaceConic {
		roc, err := numberOrInf(s.RadiusOfCurvature)
		if err != nil {
			return system.SurfaceSpec{}, fmt.Errorf("radius of curvature: %w", err)
		}
		out.RadiusOfCurvature = roc

		switch s.Interaction {
		case "refracting", "":
			out.Interaction = system.Refracting
		case "reflecting":
			out.Interaction = system.Reflecting
		case "noop":
			out.Interaction = system.NoOp
		default:
			return system.SurfaceSpec{}, fmt.Errorf("unknown interaction %q", s.Interaction)
		}
	}

	return out, nil
}
