package layout

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
)

func buildDocument(t *testing.T, coords map[string][2]float64, order []string, edges [][2]string) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument(aggregates.DefaultOptions(), nil)
	for _, key := range order {
		pos, err := valueobjects.NewPosition(coords[key][0], coords[key][1])
		require.NoError(t, err)
		require.NoError(t, doc.AddNode(key, entities.NodeAttributes{
			Shape:    entities.ShapeCircle,
			Variant:  entities.VariantPlain,
			Size:     16,
			Position: pos,
		}))
	}
	for _, e := range edges {
		_, err := doc.AddEdge("", e[0], e[1], nil, false)
		require.NoError(t, err)
	}
	doc.DrainEvents()
	return doc
}

func distance(t *testing.T, g *Graph, a, b string) float64 {
	t.Helper()
	pa, ok := g.Position(a)
	require.True(t, ok)
	pb, ok := g.Position(b)
	require.True(t, ok)
	return pa.DistanceTo(pb)
}

func TestSnapshot(t *testing.T) {
	doc := buildDocument(t,
		map[string][2]float64{"a": {1, 2}, "b": {3, 4}},
		[]string{"a", "b"},
		[][2]string{{"a", "b"}},
	)

	g := Snapshot(doc)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []float64{2, 2}, g.mass)

	pos, ok := g.Position("b")
	require.True(t, ok)
	assert.Equal(t, 3.0, pos.X())
	assert.Equal(t, 4.0, pos.Y())

	_, ok = g.Position("missing")
	assert.False(t, ok)
	assert.Len(t, g.Positions(), 2)
}

func TestCircular(t *testing.T) {
	doc := buildDocument(t,
		map[string][2]float64{"a": {0, 0}, "b": {0, 0}, "c": {0, 0}, "d": {0, 0}},
		[]string{"a", "b", "c", "d"}, nil,
	)
	g := Snapshot(doc)
	Circular(g, 0.5, 0.5, 0.5)

	center, _ := valueobjects.NewPosition(0.5, 0.5)
	for key, pos := range g.Positions() {
		assert.InDelta(t, 0.5, pos.DistanceTo(center), 1e-9, key)
	}

	a, _ := g.Position("a")
	assert.InDelta(t, 1.0, a.X(), 1e-9)
	assert.InDelta(t, 0.5, a.Y(), 1e-9)
	c, _ := g.Position("c")
	assert.InDelta(t, 0.0, c.X(), 1e-9)
}

func TestCircular_Empty(t *testing.T) {
	g := Snapshot(aggregates.NewDocument(aggregates.DefaultOptions(), nil))
	assert.NotPanics(t, func() { Circular(g, 0, 0, 1) })
}

func TestForceAtlas2_ConnectedNodesAttract(t *testing.T) {
	doc := buildDocument(t,
		map[string][2]float64{"a": {-50, 0}, "b": {50, 0}},
		[]string{"a", "b"},
		[][2]string{{"a", "b"}},
	)
	g := Snapshot(doc)
	before := distance(t, g, "a", "b")

	fa := NewForceAtlas2(DefaultSettings())
	for i := 0; i < 50; i++ {
		fa.Step(g)
	}
	assert.Less(t, distance(t, g, "a", "b"), before)
}

func TestForceAtlas2_CoincidentNodesSeparate(t *testing.T) {
	doc := buildDocument(t,
		map[string][2]float64{"a": {0.3, 0.3}, "b": {0.3, 0.3}},
		[]string{"a", "b"}, nil,
	)
	g := Snapshot(doc)

	NewForceAtlas2(Settings{}).Step(g)
	assert.Greater(t, distance(t, g, "a", "b"), 0.0)

	for _, pos := range g.Positions() {
		assert.False(t, math.IsNaN(pos.X()))
		assert.False(t, math.IsNaN(pos.Y()))
	}
}

func TestForceAtlas2_DisplacementIsCapped(t *testing.T) {
	doc := buildDocument(t,
		map[string][2]float64{"a": {-1e6, 0}, "b": {1e6, 0}},
		[]string{"a", "b"},
		[][2]string{{"a", "b"}},
	)
	g := Snapshot(doc)
	before, _ := g.Position("a")

	NewForceAtlas2(Settings{MaxDisplacement: 5}).Step(g)
	after, _ := g.Position("a")
	assert.LessOrEqual(t, before.DistanceTo(after), 5.0+1e-9)
}

func TestRunner_TicksUntilStopped(t *testing.T) {
	var count atomic.Int64
	r := StartRunner(time.Millisecond, func() bool {
		count.Add(1)
		return true
	}, nil)

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, r.Alive())

	r.Stop()
	r.Stop()
	r.Wait()
	assert.False(t, r.Alive())

	stopped := count.Load()
	assert.Never(t, func() bool { return count.Load() != stopped }, 20*time.Millisecond, 2*time.Millisecond)
	assert.Equal(t, stopped, r.Ticks())
}

func TestRunner_TickCanEndRun(t *testing.T) {
	var count atomic.Int64
	r := StartRunner(time.Millisecond, func() bool {
		return count.Add(1) < 2
	}, nil)

	r.Wait()
	assert.False(t, r.Alive())
	assert.Equal(t, int64(2), count.Load())
	assert.Equal(t, int64(1), r.Ticks())
}

func TestRunner_RecoversPanics(t *testing.T) {
	r := StartRunner(time.Millisecond, func() bool { panic("boom") }, nil)
	r.Wait()
	assert.False(t, r.Alive())
}
