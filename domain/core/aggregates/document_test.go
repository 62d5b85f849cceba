package aggregates

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

func testNormalizer() *entities.Normalizer {
	return entities.NewNormalizer(nil, func() float64 { return 0.5 })
}

func nodeAttrs(raw map[string]interface{}) entities.NodeAttributes {
	return testNormalizer().Normalize(valueobjects.NewAttributes(raw))
}

func newTestDocument(t *testing.T, keys ...string) *Document {
	t.Helper()
	doc := NewDocument(DefaultOptions(), nil)
	for _, k := range keys {
		require.NoError(t, doc.AddNode(k, nodeAttrs(nil)))
	}
	return doc
}

func TestDocument_AddNode(t *testing.T) {
	doc := newTestDocument(t, "a")

	err := doc.AddNode("a", nodeAttrs(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, 1, doc.Order())

	assert.Error(t, doc.AddNode("", nodeAttrs(nil)))
}

func TestDocument_AddEdge(t *testing.T) {
	tests := []struct {
		name       string
		options    Options
		key        string
		source     string
		target     string
		undirected bool
		wantErr    error
	}{
		{name: "directed edge", options: DefaultOptions(), key: "e1", source: "a", target: "b"},
		{name: "generated key", options: DefaultOptions(), source: "a", target: "b"},
		{name: "missing target", options: DefaultOptions(), source: "a", target: "zz", wantErr: ErrMissingEndpoint},
		{name: "duplicate key", options: DefaultOptions(), key: "existing", source: "a", target: "b", wantErr: ErrDuplicateKey},
		{
			name:    "self loop forbidden",
			options: Options{Type: GraphMixed, Multi: true, AllowSelfLoops: false},
			source:  "a", target: "a",
			wantErr: ErrEdgeNotAllowed,
		},
		{
			name:    "parallel edge forbidden",
			options: Options{Type: GraphMixed, Multi: false, AllowSelfLoops: true},
			source:  "a", target: "b",
			wantErr: ErrEdgeNotAllowed,
		},
		{
			name:       "undirected edge in directed graph",
			options:    Options{Type: GraphDirected, Multi: true, AllowSelfLoops: true},
			source:     "a",
			target:     "b",
			undirected: true,
			wantErr:    ErrEdgeNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(tt.options, nil)
			require.NoError(t, doc.AddNode("a", nodeAttrs(nil)))
			require.NoError(t, doc.AddNode("b", nodeAttrs(nil)))
			_, err := doc.AddEdge("existing", "a", "b", nil, false)
			require.NoError(t, err)

			key, err := doc.AddEdge(tt.key, tt.source, tt.target, nil, tt.undirected)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, 1, doc.Size())
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, key)
			assert.True(t, doc.HasEdge(key))
			if tt.key == "" {
				assert.Contains(t, key, "edge:")
			}
		})
	}
}

func TestDocument_DropNodeCascades(t *testing.T) {
	doc := newTestDocument(t, "a", "b", "c")
	_, err := doc.AddEdge("ab", "a", "b", nil, false)
	require.NoError(t, err)
	_, err = doc.AddEdge("bc", "b", "c", nil, true)
	require.NoError(t, err)
	_, err = doc.AddEdge("ca", "c", "a", nil, false)
	require.NoError(t, err)
	doc.DrainEvents()

	require.NoError(t, doc.DropNode("b"))

	assert.Equal(t, []string{"a", "c"}, doc.Nodes())
	assert.Equal(t, []string{"ca"}, doc.Edges())
	doc.ForEachEdge(func(e *entities.Edge) {
		assert.True(t, doc.HasNode(e.Source()))
		assert.True(t, doc.HasNode(e.Target()))
	})

	var types []string
	for _, ev := range doc.DrainEvents() {
		types = append(types, ev.GetEventType())
	}
	assert.Equal(t, []string{events.TypeEdgeDropped, events.TypeEdgeDropped, events.TypeNodeDropped}, types)

	err = doc.DropNode("b")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.True(t, errors.Is(doc.DropEdge("ab"), ErrEdgeNotFound))
}

func TestDocument_Degree(t *testing.T) {
	doc := newTestDocument(t, "a", "b")
	_, err := doc.AddEdge("", "a", "b", nil, false)
	require.NoError(t, err)
	_, err = doc.AddEdge("", "a", "a", nil, false)
	require.NoError(t, err)

	deg, err := doc.Degree("a")
	require.NoError(t, err)
	assert.Equal(t, 3, deg)

	deg, err = doc.Degree("b")
	require.NoError(t, err)
	assert.Equal(t, 1, deg)

	_, err = doc.Degree("nope")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestDocument_InsertionOrderSurvivesChurn(t *testing.T) {
	doc := NewDocument(DefaultOptions(), nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, doc.AddNode(string(rune('A'+i%26))+string(rune('0'+i/26)), nodeAttrs(nil)))
	}
	keys := doc.Nodes()
	for _, k := range keys[:80] {
		require.NoError(t, doc.DropNode(k))
	}
	require.NoError(t, doc.AddNode(keys[0], nodeAttrs(nil)))

	want := append(append([]string{}, keys[80:]...), keys[0])
	assert.Equal(t, want, doc.Nodes())
}

func TestDocument_ReplaceAttributesAreCopies(t *testing.T) {
	doc := newTestDocument(t, "a")
	attrs, err := doc.NodeAttributes("a")
	require.NoError(t, err)

	attrs.Extra["team"] = valueobjects.StringValue("core")
	current, _ := doc.NodeAttributes("a")
	assert.False(t, current.Extra.Has("team"))

	require.NoError(t, doc.ReplaceNodeAttributes("a", attrs))
	current, _ = doc.NodeAttributes("a")
	assert.True(t, current.Extra.Has("team"))
}

func TestDocument_AssignPositions(t *testing.T) {
	doc := newTestDocument(t, "a", "b")
	doc.DrainEvents()

	p, err := valueobjects.NewPosition(10, 20)
	require.NoError(t, err)
	moved := doc.AssignPositions(map[string]valueobjects.Position{"a": p, "ghost": p})
	assert.Equal(t, 1, moved)

	n, err := doc.Node("a")
	require.NoError(t, err)
	assert.True(t, n.Position().Equals(p))

	evs := doc.DrainEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypePositionsUpdated, evs[0].GetEventType())
	assert.False(t, events.IsStructural(evs[0]))
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc := NewDocument(DefaultOptions(), nil)
	doc.SetAttribute("owner", valueobjects.StringValue("platform"))
	require.NoError(t, doc.AddNode("alice", nodeAttrs(map[string]interface{}{
		"kind":  "person",
		"label": "Alice",
		"tags":  []string{"oncall", "sre"},
		"ui":    map[string]interface{}{"presence": "away"},
	})))
	require.NoError(t, doc.AddNode("core", nodeAttrs(map[string]interface{}{"kind": "team", "size": 40})))
	_, err := doc.AddEdge("m1", "alice", "core", valueobjects.NewAttributes(map[string]interface{}{
		"relationship_type": "member_of",
		"weight":            2,
	}), false)
	require.NoError(t, err)
	_, err = doc.AddEdge("peer", "core", "alice", nil, true)
	require.NoError(t, err)

	data, err := doc.ToJSON()
	require.NoError(t, err)

	restored, report, err := FromJSON(data, testNormalizer(), nil)
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Nodes: 2, Edges: 2}, report)

	assert.Equal(t, doc.Nodes(), restored.Nodes())
	assert.Equal(t, doc.Edges(), restored.Edges())
	assert.True(t, doc.Attributes().Equal(restored.Attributes()))
	assert.Equal(t, doc.Options(), restored.Options())

	for _, key := range doc.Nodes() {
		want, _ := doc.NodeAttributes(key)
		got, _ := restored.NodeAttributes(key)
		assert.True(t, want.Equal(got), "node %s", key)
	}
	for _, key := range doc.Edges() {
		want, _ := doc.Edge(key)
		got, _ := restored.Edge(key)
		assert.Equal(t, want.Source(), got.Source())
		assert.Equal(t, want.Target(), got.Target())
		assert.Equal(t, want.IsUndirected(), got.IsUndirected())
		assert.True(t, want.Attributes().Equal(got.Attributes()))
	}

	again, err := restored.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestDocument_JSONRoundTripKeepsNullListElements(t *testing.T) {
	input := `{"nodes":[{"key":"a","attributes":{"x":1,"y":2,"tags":["ops",null,"dev"]}}]}`

	doc, _, err := FromJSON([]byte(input), testNormalizer(), nil)
	require.NoError(t, err)
	data, err := doc.ToJSON()
	require.NoError(t, err)

	var out struct {
		Nodes []struct {
			Attributes map[string]json.RawMessage `json:"attributes"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Nodes, 1)
	assert.JSONEq(t, `["ops",null,"dev"]`, string(out.Nodes[0].Attributes["tags"]))

	attrs, _ := doc.NodeAttributes("a")
	tags, ok := attrs.Lookup("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"ops", "dev"}, tags.Strings())
}

func TestFromJSON_DropsInvalidEntries(t *testing.T) {
	input := `{
		"nodes": [{"key": "a"}, {"attributes": {"kind": "team"}}, {"key": "a"}, {"key": 7}],
		"edges": [
			{"source": "a", "target": "missing"},
			{"source": "a"},
			{"key": "ok", "source": "a", "target": "7"}
		]
	}`

	doc, report, err := FromJSON([]byte(input), testNormalizer(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "7"}, doc.Nodes())
	assert.Equal(t, []string{"ok"}, doc.Edges())
	assert.Equal(t, 2, report.Nodes)
	assert.Equal(t, 1, report.DroppedNodes)
	assert.Equal(t, 1, report.DroppedEdges)
	assert.Equal(t, DefaultOptions(), doc.Options())
	assert.Empty(t, doc.DrainEvents())
}

func TestFromJSON_EdgeToMissingNode(t *testing.T) {
	doc, _, err := FromJSON([]byte(`{"nodes":[{"key":"a"}],"edges":[{"source":"a","target":"missing"}]}`), testNormalizer(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Order())
	assert.Equal(t, 0, doc.Size())
}

func TestParseSerializedGraph_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Options
	}{
		{name: "empty object", input: `{}`, want: DefaultOptions()},
		{name: "not an object", input: `[1,2]`, want: DefaultOptions()},
		{name: "bad options", input: `{"options": "nope"}`, want: DefaultOptions()},
		{
			name:  "explicit options",
			input: `{"options": {"type": "directed", "multi": false, "allowSelfLoops": 0}}`,
			want:  Options{Type: GraphDirected, Multi: false, AllowSelfLoops: false},
		},
		{
			name:  "unknown type",
			input: `{"options": {"type": "hyper"}}`,
			want:  DefaultOptions(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseSerializedGraph([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Options)
			assert.NotNil(t, g.Attributes)
			assert.Empty(t, g.Nodes)
		})
	}

	_, err := ParseSerializedGraph([]byte(`{"nodes": [`))
	assert.Error(t, err)
}

func TestDocument_ExportEncodesOptions(t *testing.T) {
	doc := newTestDocument(t)
	data, err := doc.ToJSON()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]interface{}{"type": "mixed", "multi": true, "allowSelfLoops": true}, raw["options"])
	assert.Equal(t, map[string]interface{}{"name": "Untitled Graph"}, raw["attributes"])
}
