// Package material evaluates a medium's complex refractive index n + iκ from
// a dispersion spec and a wavelength.
package material

import (
	"fmt"
	"math"
)

// RefractiveIndex is a complex index of refraction at a single wavelength.
type RefractiveIndex struct {
	N float64
	K float64
}

// RealKind identifies which real-part formula a RealSpec carries.
type RealKind int

const (
	RealConstant RealKind = iota
	RealFormula1
	RealFormula2
	RealFormula3
	RealFormula4
	RealFormula5
	RealFormula6
	RealFormula7
	RealFormula8
	RealFormula9
)

// RealSpec is the real-part variant of a refractive-index spec: either a
// constant or one of the nine analytic dispersion formulas, each with its
// own declared wavelength range and coefficient list.
type RealSpec struct {
	Kind             RealKind
	Constant         float64
	WavelengthRangeU [2]float64 // [min, max] in micrometers; unused for RealConstant
	C                []float64
}

// ImagKind identifies which imaginary-part variant an ImagSpec carries.
type ImagKind int

const (
	ImagAbsent ImagKind = iota
	ImagConstant
)

// ImagSpec is the imaginary-part (extinction coefficient) variant of a
// refractive-index spec.
type ImagSpec struct {
	Kind     ImagKind
	Constant float64
}

// Spec is a complete refractive-index specification: a real part and an
// optional imaginary part.
type Spec struct {
	Real RealSpec
	Imag ImagSpec
}

// DependsOnWavelength reports whether evaluating the spec requires a
// wavelength.
func (s Spec) DependsOnWavelength() bool {
	return s.Real.Kind != RealConstant
}

// TryEvaluate evaluates a refractive-index spec at an optional wavelength
// (in micrometers). It returns an error if the spec depends on wavelength
// but none was supplied, or if the supplied wavelength falls outside the
// formula's declared range.
func TryEvaluate(spec Spec, wavelength *float64) (RefractiveIndex, error) {
	if wavelength == nil && spec.DependsOnWavelength() {
		return RefractiveIndex{}, fmt.Errorf("refractive index: a wavelength is required for a non-constant real spec")
	}

	var lambda float64
	if wavelength != nil {
		lambda = *wavelength
	}

	n, err := evaluateReal(spec.Real, lambda)
	if err != nil {
		return RefractiveIndex{}, err
	}

	var k float64
	switch spec.Imag.Kind {
	case ImagAbsent:
		k = 0
	case ImagConstant:
		k = spec.Imag.Constant
	default:
		return RefractiveIndex{}, fmt.Errorf("refractive index: unsupported imaginary spec kind %v", spec.Imag.Kind)
	}

	return RefractiveIndex{N: n, K: k}, nil
}

func checkRange(rng [2]float64, lambda float64) error {
	if lambda < rng[0] || lambda > rng[1] {
		return fmt.Errorf("refractive index: wavelength %g is outside the declared range [%g, %g]", lambda, rng[0], rng[1])
	}
	return nil
}

// evaluateReal dispatches to the formula named by spec.Kind. Loop bounds and
// step patterns follow refractiveindex.info's formula catalog exactly
// (including F4's "first three groups of four, then flat terms" split and
// F7's sum over odd coefficient indices only); its published test vectors are the oracle for
// this code.
func evaluateReal(spec RealSpec, lambda float64) (float64, error) {
	c := spec.C

	switch spec.Kind {
	case RealConstant:
		return spec.Constant, nil

	case RealFormula1: // Sellmeier
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 1; i < len(c); i += 2 {
			sum += c[i] * lambda * lambda / (lambda*lambda - c[i+1]*c[i+1])
		}
		return math.Sqrt(1.0 + c[0] + sum), nil

	case RealFormula2: // Sellmeier-2
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 1; i < len(c); i += 2 {
			sum += c[i] * lambda * lambda / (lambda*lambda - c[i+1])
		}
		return math.Sqrt(1.0 + c[0] + sum), nil

	case RealFormula3: // Polynomial
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 1; i < len(c); i += 2 {
			sum += c[i] * math.Pow(lambda, c[i+1])
		}
		return math.Sqrt(c[0] + sum), nil

	case RealFormula4: // RefractiveIndex.INFO extended
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 1; i < len(c); i += 4 {
			if i <= 9 {
				sum += c[i] * math.Pow(lambda, c[i+1]) / (lambda*lambda - math.Pow(c[i+2], c[i+3]))
			} else {
				sum += c[i] * math.Pow(lambda, c[i+1])
			}
		}
		return math.Sqrt(c[0] + sum), nil

	case RealFormula5: // Cauchy
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 1; i < len(c); i += 2 {
			sum += c[i] * math.Pow(lambda, c[i+1])
		}
		return c[0] + sum, nil

	case RealFormula6: // Gases
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 1; i < len(c); i += 2 {
			sum += c[i] / (c[i+1] - math.Pow(lambda, -2))
		}
		return 1.0 + c[0] + sum, nil

	case RealFormula7: // Herzberger
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		sum := 0.0
		for i := 3; i < len(c); i += 2 {
			sum += c[i] * math.Pow(lambda, float64(i-1))
		}
		return c[0] + c[1]/(lambda*lambda-0.028) + c[2]/math.Pow(lambda*lambda-0.028, 2) + sum, nil

	case RealFormula8: // Retro
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		s := c[0] + c[1]*lambda*lambda/(lambda*lambda-c[2]) + c[3]*lambda*lambda
		return math.Sqrt((2.0*s + 1.0) / (1.0 - s)), nil

	case RealFormula9: // Exotic
		if err := checkRange(spec.WavelengthRangeU, lambda); err != nil {
			return 0, err
		}
		return math.Sqrt(c[0] + c[1]/(lambda*lambda-c[2]) + c[3]*(lambda-c[4])/(math.Pow(lambda-c[4], 2)+c[5])), nil

	default:
		return 0, fmt.Errorf("refractive index: unsupported real spec kind %v (tabulated data is not implemented)", spec.Kind)
	}
}
