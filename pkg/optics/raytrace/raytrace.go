// Package raytrace traces real (non-paraxial) rays through a sequential
// model: Newton-Raphson surface intersection, Snell's-law refraction and
// mirror reflection, and vignetting against each surface's semi-diameter.
package raytrace

import (
	"fmt"
	"math"

	"github.com/alitto/pond"

	"github.com/kmdouglass/cherrytrace/pkg/optics/geom"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

// tol is the Newton-Raphson convergence tolerance, expressed relative to
// the step size s itself rather than as an absolute distance.
const tol = 1e-14

// Ray is a real 3D ray: a position and a unit direction.
type Ray struct {
	Pos geom.Vec3
	Dir geom.Vec3
}

// NewRay builds a ray, rejecting a non-unit direction.
func NewRay(pos, dir geom.Vec3) (Ray, error) {
	if !dir.IsUnit(1e-9) {
		return Ray{}, fmt.Errorf("raytrace: ray direction must be a unit vector, got %v (length %v)", dir, dir.Length())
	}
	return Ray{Pos: pos, Dir: dir}, nil
}

// At returns the point at distance s along the ray.
func (r Ray) At(s float64) geom.Vec3 {
	return r.Pos.Add(r.Dir.Scale(s))
}

// transform maps a ray from the global frame into a surface's local frame.
func (r Ray) transform(surf system.RealizedSurface) Ray {
	rotT := surf.Rot.Transpose()
	return Ray{
		Pos: rotT.Apply(r.Pos.Sub(surf.Pos)),
		Dir: rotT.Apply(r.Dir),
	}
}

// inverseTransform maps a ray from a surface's local frame back into the
// global frame.
func (r Ray) inverseTransform(surf system.RealizedSurface) Ray {
	return Ray{
		Pos: surf.Rot.Apply(r.Pos).Add(surf.Pos),
		Dir: surf.Rot.Apply(r.Dir),
	}
}

// sagNorm returns a conic surface's sag and unit normal at a point already
// expressed in the surface's local frame. Non-conic surfaces (object,
// image, probe, stop) are flat by construction.
func sagNorm(surf system.SurfaceSpec, pos geom.Vec3) (float64, geom.Vec3) {
	if surf.Kind != system.SurfaceConic || math.IsInf(surf.RadiusOfCurvature, 0) {
		return 0, geom.Vec3{Z: 1}
	}

	roc := surf.RadiusOfCurvature
	k := surf.ConicConstant

	r := math.Hypot(pos.X, pos.Y)
	theta := math.Atan2(pos.Y, pos.X)

	a := r * r / roc
	sag := a / (1 + math.Sqrt(1-(1+k)*a/roc))

	denom := math.Sqrt(roc*roc*roc*roc - (1+k)*(r*roc)*(r*roc))
	dfdx := -r * roc * math.Cos(theta) / denom
	dfdy := -r * roc * math.Sin(theta) / denom
	norm := geom.Vec3{X: dfdx, Y: dfdy, Z: 1}.Normalize()

	return sag, norm
}

// Intersect finds, by Newton-Raphson iteration, the point at which ray
// (already in the surface's local frame) meets the surface, and the
// surface's unit normal there. maxIter bounds the iteration count; a ray
// that does not converge in that many steps is an error rather than an
// infinite loop.
func Intersect(ray Ray, surf system.SurfaceSpec, maxIter int) (geom.Vec3, geom.Vec3, error) {
	s := -ray.Pos.Z / ray.Dir.Z
	s1 := 0.0

	var p geom.Vec3
	var norm geom.Vec3
	for i := 0; i < maxIter; i++ {
		p = ray.At(s)
		sag, n := sagNorm(surf, p)
		norm = n
		s -= (p.Z - sag) / norm.Dot(ray.Dir)

		if math.Abs(s-s1)/math.Max(math.Abs(s), math.Abs(s1)) < tol {
			p = ray.At(s)
			_, norm = sagNorm(surf, p)
			return p, norm, nil
		}
		s1 = s
	}
	return geom.Vec3{}, geom.Vec3{}, fmt.Errorf("raytrace: intersection did not converge in %d iterations", maxIter)
}

// redirect returns the ray direction after interacting with a surface,
// given the incoming direction, the surface normal, and the refractive
// indices on either side.
//
// A reflecting surface uses the standard mirror formula d - 2(d·n)n and
// ignores n0 and n1; a refracting conic uses the vector form of Snell's law;
// any other surface (a non-conic, or a conic with a NoOp interaction) leaves
// the direction unchanged. Substituting n1 = -n0 into the Snell form would
// give the negated mirror direction, so the mirror formula is spelled out.
func redirect(dir, norm geom.Vec3, surf system.SurfaceSpec, n0, n1 float64) geom.Vec3 {
	if surf.IsReflecting() {
		cosTheta := dir.Dot(norm)
		return dir.Sub(norm.Scale(2 * cosTheta))
	}
	if surf.Kind != system.SurfaceConic || surf.Interaction == system.NoOp {
		return dir
	}

	mu := n0 / n1
	cosTheta1 := dir.Dot(norm)
	term1 := norm.Scale(math.Sqrt(1 - mu*mu*(1-cosTheta1*cosTheta1)))
	term2 := dir.Sub(norm.Scale(cosTheta1)).Scale(mu)
	return term1.Add(term2)
}

// Termination identifies why a traced ray stopped producing further hits.
type Termination int

const (
	// Survived means the ray interacted with the surface and continued.
	Survived Termination = iota
	// Vignetted means the ray missed the surface's clear aperture. The
	// intersection is still recorded so a trailing segment can be drawn.
	Vignetted
	// Errored means Newton-Raphson failed to converge at the surface.
	Errored
	// Terminated is the sentinel recorded at every surface after the one
	// where the ray stopped; it preserves the one-cell-per-surface shape
	// of a trace without inventing ray states past the stopping point.
	Terminated
)

// TraceCell is the per-ray outcome of a single surface interaction: its
// position and direction in the global frame, which surface produced it,
// and how (or whether) the ray's path ended there.
type TraceCell struct {
	SurfaceIndex int
	Pos          geom.Vec3
	Dir          geom.Vec3
	Termination  Termination
	Err          error
}

// TraceRay walks a single ray forward through a sub-model's surfaces,
// transforming into and out of each surface's local frame, intersecting,
// vignetting against the semi-diameter, and redirecting. It returns exactly
// one TraceCell per surface: cell 0 holds the launch state, and every
// surface past a vignetting or convergence failure records the Terminated
// sentinel so result rows stay aligned across rays.
func TraceRay(ray Ray, gaps []system.Gap, surfaces []system.RealizedSurface, maxIter int) []TraceCell {
	steps := system.ForwardSteps(gaps, surfaces)
	cells := make([]TraceCell, 0, len(steps)+1)
	cells = append(cells, TraceCell{SurfaceIndex: 0, Pos: ray.Pos, Dir: ray.Dir, Termination: Survived})

	current := ray
	stopped := false
	for i, step := range steps {
		if stopped {
			cells = append(cells, TraceCell{SurfaceIndex: i + 1, Termination: Terminated})
			continue
		}

		local := current.transform(step.Surface)

		p, norm, err := Intersect(local, step.Surface.Spec, maxIter)
		if err != nil {
			cells = append(cells, TraceCell{SurfaceIndex: i + 1, Termination: Errored, Err: err})
			stopped = true
			continue
		}

		if r := math.Hypot(p.X, p.Y); step.Surface.Spec.SemiDiameter > 0 && r > step.Surface.Spec.SemiDiameter {
			global := Ray{Pos: p, Dir: local.Dir}.inverseTransform(step.Surface)
			cells = append(cells, TraceCell{SurfaceIndex: i + 1, Pos: global.Pos, Dir: global.Dir, Termination: Vignetted})
			stopped = true
			continue
		}

		n0 := step.Gap0.Index.N
		n1 := n0
		if step.Surface.Spec.IsReflecting() {
			n1 = -n0
		} else if step.Gap1 != nil {
			n1 = step.Gap1.Index.N
		}
		newDir := redirect(local.Dir, norm, step.Surface.Spec, n0, n1)

		global := Ray{Pos: p, Dir: newDir}.inverseTransform(step.Surface)
		cells = append(cells, TraceCell{SurfaceIndex: i + 1, Pos: global.Pos, Dir: global.Dir, Termination: Survived})
		current = global
	}

	return cells
}

// TraceBundle traces many rays concurrently using a bounded worker pool,
// preserving the input order in the returned slice.
func TraceBundle(rays []Ray, gaps []system.Gap, surfaces []system.RealizedSurface, maxIter, workers int) [][]TraceCell {
	results := make([][]TraceCell, len(rays))

	pool := pond.New(workers, len(rays))
	defer pool.StopAndWait()

	for i, ray := range rays {
		i, ray := i, ray
		pool.Submit(func() {
			results[i] = TraceRay(ray, gaps, surfaces, maxIter)
		})
	}

	return results
}
