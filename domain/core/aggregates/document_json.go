package aggregates

import (
	"bytes"
	"encoding/json"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// SerializedNode is the exchange form of a node
type SerializedNode struct {
	Key        string                  `json:"key"`
	Attributes valueobjects.Attributes `json:"attributes"`
}

// SerializedEdge is the exchange form of an edge
type SerializedEdge struct {
	Key        string                  `json:"key,omitempty"`
	Source     string                  `json:"source"`
	Target     string                  `json:"target"`
	Attributes valueobjects.Attributes `json:"attributes"`
	Undirected bool                    `json:"undirected"`
}

// SerializedGraph is the exchange form of a whole document
type SerializedGraph struct {
	Attributes valueobjects.Attributes `json:"attributes"`
	Options    Options                 `json:"options"`
	Nodes      []SerializedNode        `json:"nodes"`
	Edges      []SerializedEdge        `json:"edges"`
}

// ImportReport summarizes what an import kept and dropped
type ImportReport struct {
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	DroppedNodes int `json:"dropped_nodes"`
	DroppedEdges int `json:"dropped_edges"`
}

// Export serializes the document. The result shares no memory with it.
func (d *Document) Export() SerializedGraph {
	out := SerializedGraph{
		Attributes: d.attributes.Clone(),
		Options:    d.options,
		Nodes:      make([]SerializedNode, 0, d.nodes.len()),
		Edges:      make([]SerializedEdge, 0, d.edges.len()),
	}
	d.ForEachNode(func(n *entities.Node) {
		out.Nodes = append(out.Nodes, SerializedNode{Key: n.Key(), Attributes: n.Attributes().Flatten()})
	})
	d.ForEachEdge(func(e *entities.Edge) {
		out.Edges = append(out.Edges, SerializedEdge{
			Key:        e.Key(),
			Source:     e.Source(),
			Target:     e.Target(),
			Attributes: e.Attributes(),
			Undirected: e.IsUndirected(),
		})
	})
	return out
}

// ToJSON encodes the document in the exchange format
func (d *Document) ToJSON() ([]byte, error) {
	return json.Marshal(d.Export())
}

// Import builds a document from a serialized graph. Every node passes
// through the normalizer; nodes with duplicate keys and edges that
// reference missing endpoints or break the graph options are dropped.
func Import(g SerializedGraph, normalizer *entities.Normalizer, cfg *config.DomainConfig) (*Document, ImportReport) {
	if normalizer == nil {
		normalizer = entities.NewNormalizer(cfg, nil)
	}
	doc := NewDocument(g.Options, cfg)
	if g.Attributes != nil {
		doc.attributes = g.Attributes.Clone()
	}

	var report ImportReport
	for _, n := range g.Nodes {
		if n.Key == "" {
			report.DroppedNodes++
			continue
		}
		if err := doc.AddNode(n.Key, normalizer.Normalize(n.Attributes)); err != nil {
			report.DroppedNodes++
			continue
		}
		report.Nodes++
	}
	for _, e := range g.Edges {
		if _, err := doc.AddEdge(e.Key, e.Source, e.Target, e.Attributes, e.Undirected); err != nil {
			report.DroppedEdges++
			continue
		}
		report.Edges++
	}

	doc.MarkEventsAsCommitted()
	return doc, report
}

// FromJSON parses and imports a document leniently
func FromJSON(data []byte, normalizer *entities.Normalizer, cfg *config.DomainConfig) (*Document, ImportReport, error) {
	g, err := ParseSerializedGraph(data)
	if err != nil {
		return nil, ImportReport{}, err
	}
	doc, report := Import(g, normalizer, cfg)
	return doc, report, nil
}

// ParseSerializedGraph decodes the exchange format, substituting safe
// defaults for missing or malformed fields. It only fails on invalid JSON.
func ParseSerializedGraph(data []byte) (SerializedGraph, error) {
	if !json.Valid(data) {
		return SerializedGraph{}, pkgerrors.NewValidationError("graph document is not valid JSON")
	}

	out := SerializedGraph{
		Attributes: valueobjects.Attributes{},
		Options:    DefaultOptions(),
		Nodes:      []SerializedNode{},
		Edges:      []SerializedEdge{},
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return out, nil
	}

	out.Attributes = parseAttributes(root["attributes"])
	out.Options = parseOptions(root["options"])

	for _, raw := range parseArray(root["nodes"]) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		key := scalarString(obj["key"])
		if key == "" {
			continue
		}
		out.Nodes = append(out.Nodes, SerializedNode{Key: key, Attributes: parseAttributes(obj["attributes"])})
	}

	for _, raw := range parseArray(root["edges"]) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		edge := SerializedEdge{
			Key:        scalarString(obj["key"]),
			Source:     scalarString(obj["source"]),
			Target:     scalarString(obj["target"]),
			Attributes: parseAttributes(obj["attributes"]),
			Undirected: truthy(obj["undirected"], false),
		}
		if edge.Source == "" || edge.Target == "" {
			continue
		}
		out.Edges = append(out.Edges, edge)
	}

	return out, nil
}

func parseAttributes(raw json.RawMessage) valueobjects.Attributes {
	attrs := valueobjects.Attributes{}
	if len(raw) == 0 {
		return attrs
	}
	if err := json.Unmarshal(raw, &attrs); err != nil || attrs == nil {
		return valueobjects.Attributes{}
	}
	return attrs
}

func parseOptions(raw json.RawMessage) Options {
	opts := DefaultOptions()
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return opts
	}
	switch GraphType(scalarString(obj["type"])) {
	case GraphDirected:
		opts.Type = GraphDirected
	case GraphUndirected:
		opts.Type = GraphUndirected
	}
	opts.Multi = truthy(obj["multi"], true)
	opts.AllowSelfLoops = truthy(obj["allowSelfLoops"], true)
	return opts
}

func parseArray(raw json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// scalarString stringifies JSON strings, numbers and booleans
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var v valueobjects.Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return ""
	}
	switch v.Kind() {
	case valueobjects.KindString, valueobjects.KindNumber, valueobjects.KindBool:
		return v.String()
	}
	return ""
}

// truthy reads a loosely typed flag; missing or null yields def
func truthy(raw json.RawMessage, def bool) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return def
	}
	var v valueobjects.Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return def
	}
	switch v.Kind() {
	case valueobjects.KindNull:
		return def
	case valueobjects.KindBool:
		b, _ := v.AsBool()
		return b
	case valueobjects.KindNumber:
		n, _ := v.AsNumber()
		return n != 0
	case valueobjects.KindString:
		s, _ := v.AsString()
		return s != ""
	default:
		return true
	}
}
