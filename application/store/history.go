package store

import "github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"

// History is a bounded linear undo/redo history of full document snapshots
type History struct {
	max  int
	undo []aggregates.SerializedGraph
	redo []aggregates.SerializedGraph
}

// NewHistory creates a history keeping at most max undo entries
func NewHistory(max int) *History {
	if max <= 0 {
		max = 1
	}
	return &History{max: max}
}

// Push records a pre-mutation snapshot. The oldest entry is evicted once
// the cap is reached and the redo stack is invalidated.
func (h *History) Push(snapshot aggregates.SerializedGraph) {
	h.undo = append(h.undo, snapshot)
	if over := len(h.undo) - h.max; over > 0 {
		h.undo = append(h.undo[:0:0], h.undo[over:]...)
	}
	h.redo = nil
}

// Undo pops the latest snapshot and stashes current for redo
func (h *History) Undo(current aggregates.SerializedGraph) (aggregates.SerializedGraph, bool) {
	if len(h.undo) == 0 {
		return aggregates.SerializedGraph{}, false
	}
	last := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return last, true
}

// Redo pops the latest undone snapshot and stashes current for undo
func (h *History) Redo(current aggregates.SerializedGraph) (aggregates.SerializedGraph, bool) {
	if len(h.redo) == 0 {
		return aggregates.SerializedGraph{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	return next, true
}

// Depths returns the undo and redo stack sizes
func (h *History) Depths() (int, int) { return len(h.undo), len(h.redo) }

// Clear drops both stacks
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
