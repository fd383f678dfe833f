// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package table

// SelectVerb describes how a selection update is applied to the existing set.
type SelectVerb string

const (
	// SelectSet replaces the selection with exactly the given ids.
	SelectSet SelectVerb = "set"
	// SelectAdd unions the given ids into the selection.
	SelectAdd SelectVerb = "add"
)

// SelectionUpdate is the mutation produced by a click gesture. The ids are
// row identifiers (full paths for the file tree); ids unknown to the consumer
// are silently ignored.
type SelectionUpdate struct {
	Verb SelectVerb `json:"verb"`
	IDs  []string   `json:"ids"`
}

// Modifiers are the keyboard modifiers active during a pointer click.
type Modifiers struct {
	Shift bool `json:"shift"`
	Ctrl  bool `json:"ctrl"`
}

// NoAnchor marks the absence of a prior plain click. Range gestures degrade
// to single-row updates until a plain click establishes an anchor.
const NoAnchor = -1

// ResolveClick maps a pointer click onto a selection mutation.
//
// Gesture table:
//   - ctrl+shift with anchor: inclusive range anchor..clicked, SelectAdd
//   - shift with anchor:      inclusive range anchor..clicked, SelectSet
//   - ctrl:                   single row, SelectAdd
//   - plain:                  single row, SelectSet, anchor moves to clicked
//
// Only a plain click moves the anchor. Without an anchor, shift and
// ctrl+shift degrade to single-row Set and Add respectively. Double clicks
// are a separate activation gesture and must not be routed here.
func ResolveClick(clicked, anchor int, mods Modifiers, rowID func(int) string) (SelectionUpdate, int) {
	if mods.Shift && anchor != NoAnchor {
		lo, hi := anchor, clicked
		if lo > hi {
			lo, hi = hi, lo
		}
		ids := make([]string, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			ids = append(ids, rowID(i))
		}
		verb := SelectSet
		if mods.Ctrl {
			verb = SelectAdd
		}
		return SelectionUpdate{Verb: verb, IDs: ids}, anchor
	}

	if mods.Ctrl {
		return SelectionUpdate{Verb: SelectAdd, IDs: []string{rowID(clicked)}}, anchor
	}

	if mods.Shift {
		// Shift without an anchor degrades to a plain set but does not
		// establish one.
		return SelectionUpdate{Verb: SelectSet, IDs: []string{rowID(clicked)}}, anchor
	}

	return SelectionUpdate{Verb: SelectSet, IDs: []string{rowID(clicked)}}, clicked
}
