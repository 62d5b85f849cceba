package layout

import "math"

// Circular places nodes evenly on a circle in document order
func Circular(g *Graph, centerX, centerY, radius float64) {
	n := g.Len()
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		g.x[i] = centerX + radius*math.Cos(theta)
		g.y[i] = centerY + radius*math.Sin(theta)
	}
}
