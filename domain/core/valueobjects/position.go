package valueobjects

import (
	"math"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Position is an immutable 2D canvas coordinate
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position, rejecting non-finite coordinates
func NewPosition(x, y float64) (Position, error) {
	if !isFinite(x) || !isFinite(y) {
		return Position{}, pkgerrors.NewValidationError("position coordinates must be finite numbers")
	}
	return Position{x: x, y: y}, nil
}

// RandomPosition places a point uniformly in the unit square using rnd,
// which must return values in [0,1).
func RandomPosition(rnd func() float64) Position {
	return Position{x: rnd(), y: rnd()}
}

// X returns the horizontal coordinate
func (p Position) X() float64 { return p.x }

// Y returns the vertical coordinate
func (p Position) Y() float64 { return p.y }

// Translate returns the position moved by (dx, dy)
func (p Position) Translate(dx, dy float64) Position {
	return Position{x: p.x + dx, y: p.y + dy}
}

// DistanceTo returns the Euclidean distance to other
func (p Position) DistanceTo(other Position) float64 {
	return math.Hypot(p.x-other.x, p.y-other.y)
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	return p.x == other.x && p.y == other.y
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
