// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package table

// SortDirection is the direction of the active sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Column describes one table column. Comparator and Render are optional;
// rows sort by their id (full path for the file tree) and render their id
// when unset.
type Column struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	DefaultWidth  int    `json:"defaultWidth"`
	MinWidth      int    `json:"minWidth"`
	MaxWidth      int    `json:"maxWidth"`
	DefaultHidden bool   `json:"defaultHidden,omitempty"`

	Comparator func(a, b Row) int `json:"-"`
	Render     func(Row) string   `json:"-"`
}

// ColumnState is the per-table layout state: visibility, widths and sort.
// It is owned by the table engine and persisted by an external store; the
// engine never performs I/O itself.
type ColumnState struct {
	Visibility    map[string]bool `json:"visibility"`
	Widths        map[string]int  `json:"widths"`
	SortColumn    string          `json:"sortColumn,omitempty"`
	SortDirection SortDirection   `json:"sortDirection,omitempty"`
}

// DefaultColumnState seeds state from the column descriptors.
func DefaultColumnState(columns []Column) ColumnState {
	state := ColumnState{
		Visibility: make(map[string]bool, len(columns)),
		Widths:     make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		state.Visibility[col.ID] = !col.DefaultHidden
		state.Widths[col.ID] = col.DefaultWidth
	}
	return state
}

// Clone returns a deep copy so stored state never aliases live engine maps.
func (s ColumnState) Clone() ColumnState {
	out := ColumnState{
		Visibility:    make(map[string]bool, len(s.Visibility)),
		Widths:        make(map[string]int, len(s.Widths)),
		SortColumn:    s.SortColumn,
		SortDirection: s.SortDirection,
	}
	for k, v := range s.Visibility {
		out.Visibility[k] = v
	}
	for k, v := range s.Widths {
		out.Widths[k] = v
	}
	return out
}
