package render

import (
	"encoding/json"
	"math"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
)

// Colors used when the ui block leaves a setting out
const (
	defaultRingColor   = "#10b981"
	defaultHeaderColor = "#4f46e5"
	defaultTextColor   = "#fff"
	defaultAccentColor = "#10b981"
	presenceOnline     = "#10b981"
	presenceAway       = "#f59e0b"
	presenceOffline    = "#9ca3af"

	defaultRingProgress   = 0.7
	defaultAccentProgress = 0.6
)

// Decoration holds the render hints computed for one node. Only the block
// that belongs to the node's variant is set.
type Decoration struct {
	Variant  string    `json:"variant"`
	Base     string    `json:"base"`
	Ring     *Ring     `json:"ring,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	Presence *Presence `json:"presence,omitempty"`
	Header   *Header   `json:"header,omitempty"`
	Accent   *Accent   `json:"accent,omitempty"`
	Tag      *Tag      `json:"tag,omitempty"`
	IconText string    `json:"iconText,omitempty"`
	Badges   []Badge   `json:"badges,omitempty"`
}

// Ring is a progress arc around a circle
type Ring struct {
	Progress float64 `json:"progress"`
	Color    string  `json:"color"`
}

// Segment is one arc of a KPI ring
type Segment struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Presence is the status dot on a person node
type Presence struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

// Header is the title band of a square card
type Header struct {
	Text      string `json:"text"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
}

// Accent is the left stripe and progress bar of a square card
type Accent struct {
	Color    string  `json:"color"`
	Progress float64 `json:"progress"`
}

// Tag is the corner label of a square card
type Tag struct {
	Text      string `json:"text"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
}

// Badge is a small marker at a compass position (N, NE, E, ...)
type Badge struct {
	Pos   string `json:"pos"`
	Text  string `json:"text,omitempty"`
	Color string `json:"color"`
}

// uiBlock is the optional "ui" attribute carried by a node
type uiBlock struct {
	Ring *struct {
		Progress *float64  `json:"progress"`
		Color    string    `json:"color"`
		Segments []Segment `json:"segments"`
	} `json:"ring"`
	Progress *float64 `json:"progress"`
	IconText string   `json:"iconText"`
	Badges   []Badge  `json:"badges"`
	Presence string   `json:"presence"`
	Header   *struct {
		Color     string `json:"color"`
		TextColor string `json:"textColor"`
	} `json:"header"`
	Accent *struct {
		LeftColor string `json:"leftColor"`
	} `json:"accent"`
	Tag *Tag `json:"tag"`
}

// readUI decodes the node's ui block; a missing or malformed block is empty
func readUI(node *entities.Node) uiBlock {
	var ui uiBlock
	v, ok := node.Lookup("ui")
	if !ok {
		return ui
	}
	raw, ok := v.Raw()
	if !ok {
		return ui
	}
	_ = json.Unmarshal(raw, &ui)
	return ui
}

// Decorator computes the decoration block for a node
type Decorator func(node *entities.Node, d *Decoration)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func decorateNone(*entities.Node, *Decoration) {}

func decorateStatusRing(node *entities.Node, d *Decoration) {
	ui := readUI(node)
	ring := &Ring{Progress: defaultRingProgress, Color: defaultRingColor}
	switch {
	case ui.Ring != nil && ui.Ring.Progress != nil:
		ring.Progress = *ui.Ring.Progress
	case ui.Progress != nil:
		ring.Progress = *ui.Progress
	}
	ring.Progress = clamp01(ring.Progress)
	if ui.Ring != nil && ui.Ring.Color != "" {
		ring.Color = ui.Ring.Color
	}
	d.Ring = ring
	d.IconText = ui.IconText
	d.Badges = ui.Badges
}

func decorateKpiSegments(node *entities.Node, d *Decoration) {
	ui := readUI(node)
	segs := []Segment{
		{Value: 0.4, Color: "#f59e0b"},
		{Value: 0.2, Color: "#ef4444"},
		{Value: 0.3, Color: "#10b981"},
	}
	if ui.Ring != nil && len(ui.Ring.Segments) > 0 {
		segs = make([]Segment, len(ui.Ring.Segments))
		for i, s := range ui.Ring.Segments {
			segs[i] = Segment{Value: clamp01(s.Value), Color: s.Color}
		}
	}
	d.Segments = segs
}

func decoratePerson(node *entities.Node, d *Decoration) {
	ui := readUI(node)
	p := &Presence{Status: ui.Presence, Color: presenceOnline}
	switch ui.Presence {
	case "offline":
		p.Color = presenceOffline
	case "away":
		p.Color = presenceAway
	default:
		if p.Status == "" {
			p.Status = "online"
		}
	}
	d.Presence = p
}

func decorateHeader(node *entities.Node, d *Decoration) {
	ui := readUI(node)
	h := &Header{Text: node.Label(), Color: defaultHeaderColor, TextColor: defaultTextColor}
	if ui.Header != nil {
		if ui.Header.Color != "" {
			h.Color = ui.Header.Color
		}
		if ui.Header.TextColor != "" {
			h.TextColor = ui.Header.TextColor
		}
	}
	d.Header = h
}

func decorateAccentProgress(node *entities.Node, d *Decoration) {
	ui := readUI(node)
	a := &Accent{Color: defaultAccentColor, Progress: defaultAccentProgress}
	if ui.Accent != nil && ui.Accent.LeftColor != "" {
		a.Color = ui.Accent.LeftColor
	}
	if ui.Progress != nil {
		a.Progress = *ui.Progress
	}
	a.Progress = clamp01(a.Progress)
	d.Accent = a
}

func decorateCornerTag(node *entities.Node, d *Decoration) {
	ui := readUI(node)
	tag := &Tag{Text: "TAG", Color: "#f59e0b", TextColor: defaultTextColor}
	if ui.Tag != nil {
		tag = &Tag{Text: ui.Tag.Text, Color: ui.Tag.Color, TextColor: ui.Tag.TextColor}
		if tag.TextColor == "" {
			tag.TextColor = defaultTextColor
		}
	}
	d.Tag = tag
}
