package layout

import "math"

// Settings tune ForceAtlas2
type Settings struct {
	Gravity             float64
	ScalingRatio        float64
	SlowDown            float64
	StrongGravity       bool
	LinLog              bool
	EdgeWeightInfluence float64
	MaxDisplacement     float64
}

// DefaultSettings mirrors the usual ForceAtlas2 defaults
func DefaultSettings() Settings {
	return Settings{
		Gravity:             1,
		ScalingRatio:        1,
		SlowDown:            1,
		EdgeWeightInfluence: 1,
		MaxDisplacement:     10,
	}
}

// ForceAtlas2 is the continuous force-directed layout. Each Step runs one
// iteration: repulsion between every node pair, attraction along edges,
// gravity towards the origin and an adaptive per-node speed.
type ForceAtlas2 struct {
	settings Settings
}

// NewForceAtlas2 creates the layout; zero values fall back to defaults
func NewForceAtlas2(settings Settings) *ForceAtlas2 {
	def := DefaultSettings()
	if settings.ScalingRatio <= 0 {
		settings.ScalingRatio = def.ScalingRatio
	}
	if settings.SlowDown <= 0 {
		settings.SlowDown = def.SlowDown
	}
	if settings.MaxDisplacement <= 0 {
		settings.MaxDisplacement = def.MaxDisplacement
	}
	return &ForceAtlas2{settings: settings}
}

// Step runs one iteration in place
func (fa *ForceAtlas2) Step(g *Graph) {
	n := g.Len()
	if n == 0 {
		return
	}
	s := fa.settings
	dx := make([]float64, n)
	dy := make([]float64, n)

	// repulsion
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			xd := g.x[i] - g.x[j]
			yd := g.y[i] - g.y[j]
			d2 := xd*xd + yd*yd
			if d2 == 0 {
				// coincident nodes are pushed apart along a fixed diagonal
				xd, yd, d2 = 0.01, 0.01, 0.0002
			}
			f := s.ScalingRatio * g.mass[i] * g.mass[j] / d2
			dx[i] += xd * f
			dy[i] += yd * f
			dx[j] -= xd * f
			dy[j] -= yd * f
		}
	}

	// gravity
	for i := 0; i < n; i++ {
		d := math.Hypot(g.x[i], g.y[i])
		if d == 0 {
			continue
		}
		var f float64
		if s.StrongGravity {
			f = s.ScalingRatio * g.mass[i] * s.Gravity
		} else {
			f = s.ScalingRatio * g.mass[i] * s.Gravity / d
		}
		dx[i] -= g.x[i] * f
		dy[i] -= g.y[i] * f
	}

	// attraction
	for _, l := range g.links {
		if l.source == l.target {
			continue
		}
		w := 1.0
		if s.EdgeWeightInfluence != 0 {
			w = math.Pow(math.Abs(l.weight), s.EdgeWeightInfluence)
		}
		xd := g.x[l.source] - g.x[l.target]
		yd := g.y[l.source] - g.y[l.target]
		f := -w
		if s.LinLog {
			d := math.Hypot(xd, yd)
			if d == 0 {
				continue
			}
			f = -w * math.Log(1+d) / d
		}
		dx[l.source] += xd * f
		dy[l.source] += yd * f
		dx[l.target] -= xd * f
		dy[l.target] -= yd * f
	}

	// apply
	for i := 0; i < n; i++ {
		force := math.Hypot(dx[i], dy[i])
		if force == 0 || math.IsNaN(force) || math.IsInf(force, 0) {
			continue
		}
		swinging := g.mass[i] * force
		traction := force / 2
		speed := 0.1 * math.Log(1+traction) / (1 + math.Sqrt(swinging))
		mx := dx[i] * speed / s.SlowDown
		my := dy[i] * speed / s.SlowDown
		if step := math.Hypot(mx, my); step > s.MaxDisplacement {
			mx *= s.MaxDisplacement / step
			my *= s.MaxDisplacement / step
		}
		g.x[i] += mx
		g.y[i] += my
	}
}
