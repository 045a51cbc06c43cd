// Package components groups a sequential model's surfaces into the lenses,
// mirrors, and stops a user actually thinks about, instead of the flat
// surface-by-surface list the sequential model stores.
package components

import (
	"fmt"
	"math"

	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

const tol = 1e-6

// ComponentKind identifies which closed component variant a Component carries.
type ComponentKind int

const (
	Element ComponentKind = iota
	Stop
	UnpairedSurface
)

// Component is a part of an optical system that interacts with light rays:
// either a pair of surfaces forming a lens or mirror element, a hard stop, or
// a single surface that could not be paired with a neighbor.
type Component struct {
	Kind ComponentKind

	// Element only.
	Surf0, Surf1 int

	// Stop and UnpairedSurface only.
	SurfIdx int
}

// View groups a sequential model's interior surfaces into components. Only
// one sub-model's gaps are consulted, since wavelength and axis don't affect
// which surfaces are optically joined.
func View(model *system.SequentialModel, background material.Spec) ([]Component, error) {
	var components []Component

	surfaces := model.Surfaces
	maxIdx := len(surfaces) - 1
	if maxIdx < 2 {
		return components, nil
	}

	var gaps []system.Gap
	for _, g := range model.Submodels {
		gaps = g
		break
	}
	if gaps == nil {
		return nil, fmt.Errorf("components: sequential model has no submodels")
	}

	backgroundIndex, err := material.TryEvaluate(background, nil)
	if err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}

	paired := make(map[int]bool)

	for i := 1; i < maxIdx; i++ {
		if surfaces[i].Spec.Kind == system.SurfaceStop {
			components = append(components, Component{Kind: Stop, SurfIdx: i})
			continue
		}

		if surfaces[i+1].Spec.Kind == system.SurfaceStop {
			continue
		}

		if sameMedium(gaps[i].Index, backgroundIndex) {
			continue
		}

		if surfaces[i+1].Spec.Kind == system.SurfaceImage {
			if !paired[i] {
				components = append(components, Component{Kind: UnpairedSurface, SurfIdx: i})
			}
			continue
		}

		components = append(components, Component{Kind: Element, Surf0: i, Surf1: i + 1})
		paired[i] = true
		paired[i+1] = true
	}

	return components, nil
}

func sameMedium(a, b material.RefractiveIndex) bool {
	return math.Abs(a.N-b.N) < tol && math.Abs(a.K-b.K) < tol
}
