// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

// Priority is the download priority band of a single file.
type Priority string

const (
	PrioritySkip   Priority = "skip"
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// WantState is the tri-state download inclusion status. Leaves are only ever
// Wanted or Unwanted; WantMixed appears on directories whose descendant
// leaves disagree.
type WantState string

const (
	Wanted    WantState = "wanted"
	Unwanted  WantState = "unwanted"
	WantMixed WantState = "mixed"
)

// Node is a single entry in the file tree, either a leaf (file) or a
// directory. Directories own their children; there is no parent
// back-reference, ancestry is derived from path prefixes.
//
// Size, Done, Priority, Want and Index are server-derived on leaves. On
// directories Size, Done, Want and WantUpdating are aggregates recomputed
// bottom-up after every reconciliation or want mutation. Selected, Expanded
// and WantUpdating (on leaves) are client-only and survive refreshes.
type Node struct {
	Path  string `json:"path"` // '/'-delimited, unique key
	Name  string `json:"name"`
	Level int    `json:"level"` // root children = 0
	Dir   bool   `json:"isDir"`
	Size  int64  `json:"size"`
	Done  int64  `json:"done"`
	Index int    `json:"-"` // server file index, leaves only

	Priority     Priority  `json:"priority,omitempty"`
	Want         WantState `json:"want"`
	WantUpdating bool      `json:"wantUpdating,omitempty"`

	Selected bool    `json:"selected,omitempty"`
	Expanded bool    `json:"expanded,omitempty"`
	Children []*Node `json:"-"`
}

// Percent reports completion as 0-100.
func (n *Node) Percent() float64 {
	if n.Size <= 0 {
		return 100
	}
	return float64(n.Done) / float64(n.Size) * 100
}

// RowID implements table.Row.
func (n *Node) RowID() string { return n.Path }

// FilterValue implements table.Row; rows filter by file name.
func (n *Node) FilterValue() string { return n.Name }

// FileEntry is one record of a flat snapshot delivered by the data source.
// A snapshot is a complete replacement, not a patch.
type FileEntry struct {
	Path     string    `json:"path"`
	Index    int       `json:"index"`
	Size     int64     `json:"size"`
	Done     int64     `json:"done"`
	Priority Priority  `json:"priority,omitempty"`
	Want     WantState `json:"want,omitempty"`
}

// normalized applies the deterministic defaults for absent optional fields.
func (e FileEntry) normalized() FileEntry {
	if e.Priority == "" {
		e.Priority = PriorityNormal
	}
	if e.Want == "" {
		e.Want = Wanted
	}
	return e
}
