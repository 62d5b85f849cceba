package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
)

const graphFixture = `{
  "nodes": [
    {"key": "a", "attributes": {"label": "Alice", "type": "person", "team": "core"}},
    {"key": "b", "attributes": {"label": "Bob", "kind": "person", "team": "edge"}},
    {"key": "c", "attributes": {"label": "Ops", "kind": "team", "team": "core"}},
    {"key": "a", "attributes": {"label": "Duplicate"}},
    {"attributes": {"label": "No key"}}
  ],
  "edges": [
    {"key": "ab", "source": "a", "target": "b"},
    {"key": "ax", "source": "a", "target": "missing"}
  ]
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNormalize(t *testing.T) {
	path := writeFixture(t, graphFixture)

	out, err := run(t, "normalize", path)
	require.NoError(t, err)

	var g aggregates.SerializedGraph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	require.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 1)

	alice := g.Nodes[0]
	assert.Equal(t, "a", alice.Key)
	kind, _ := alice.Attributes["kind"].AsString()
	assert.Equal(t, "person", kind)
	assert.False(t, alice.Attributes.Has("type"))
	assert.True(t, alice.Attributes.Has("size"))
}

func TestNormalize_ToFile(t *testing.T) {
	path := writeFixture(t, graphFixture)
	target := filepath.Join(t.TempDir(), "out", "clean.json")

	out, err := run(t, "normalize", path, "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	g, err := aggregates.ParseSerializedGraph(data)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
}

func TestFacets_JSON(t *testing.T) {
	path := writeFixture(t, graphFixture)

	out, err := run(t, "facets", "--json", path)
	require.NoError(t, err)

	var groups []filters.FacetGroup
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	byKey := make(map[string]filters.FacetGroup, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g
	}
	require.Contains(t, byKey, "team")
	require.Contains(t, byKey, "kind")
	assert.Equal(t, []filters.FacetOption{
		{Value: "core", CountAll: 2, CountWithOtherFilters: 2},
		{Value: "edge", CountAll: 1, CountWithOtherFilters: 1},
	}, byKey["team"].Values)
}

func TestFacets_Table(t *testing.T) {
	path := writeFixture(t, graphFixture)

	out, err := run(t, "facets", path)
	require.NoError(t, err)
	assert.Contains(t, out, "FACET")
	assert.Contains(t, out, "team")
	assert.Contains(t, out, "core")
}

func TestValidate(t *testing.T) {
	path := writeFixture(t, graphFixture)

	out, err := run(t, "validate", path)
	require.NoError(t, err)

	var result validation
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Nodes)
	assert.Equal(t, 1, result.Edges)
	assert.Equal(t, 2, result.DroppedNodes)
	assert.Equal(t, 1, result.DroppedEdges)

	_, err = run(t, "validate", "--strict", path)
	assert.Error(t, err)
}

func TestValidate_Clean(t *testing.T) {
	path := writeFixture(t, `{"nodes":[{"key":"a"},{"key":"b"}],"edges":[{"source":"a","target":"b"}]}`)

	_, err := run(t, "validate", "--strict", path)
	assert.NoError(t, err)
}

func TestValidate_InvalidJSON(t *testing.T) {
	path := writeFixture(t, `{"nodes": [`)

	_, err := run(t, "validate", path)
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := run(t, "normalize", filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
