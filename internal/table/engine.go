// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package table

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Row is the minimal contract the engine needs from a row. RowID must be
// stable across refreshes (the file tree uses full paths); FilterValue is
// the text matched by the filter query.
type Row interface {
	RowID() string
	FilterValue() string
}

const (
	defaultRowHeight = 28
	defaultOverscan  = 8
)

// Engine virtualizes an ordered row sequence. It holds no scroll position
// of its own; the caller passes the viewport on every Window call, so column
// mutations can never reset scrolling. Rows are referenced by pointer
// identity, unchanged rows keep their identity across SetRows.
type Engine struct {
	columns []Column
	state   ColumnState
	onState func(ColumnState)

	rows   []Row
	view   []Row
	filter string

	rowHeight int
	overscan  int
}

// Window is the materialized slice of the viewport. Rows outside the range
// exist only as TopPad / TotalHeight spacing so the scrollbar stays correct.
type Window struct {
	Start       int   `json:"start"`
	End         int   `json:"end"` // exclusive
	TopPad      int   `json:"topPad"`
	TotalHeight int   `json:"totalHeight"`
	Rows        []Row `json:"rows"`
}

func NewEngine(columns []Column, state ColumnState) *Engine {
	if state.Visibility == nil || state.Widths == nil {
		state = DefaultColumnState(columns)
	}
	return &Engine{
		columns:   columns,
		state:     state,
		rowHeight: defaultRowHeight,
		overscan:  defaultOverscan,
	}
}

// OnStateChange registers the persistence hook invoked after every column
// state mutation.
func (e *Engine) OnStateChange(fn func(ColumnState)) {
	e.onState = fn
}

// SetRows replaces the row sequence and re-derives the filtered, sorted view.
func (e *Engine) SetRows(rows []Row) {
	e.rows = rows
	e.rebuild()
}

// SetFilter narrows the view to rows fuzzy-matching the query. An empty
// query restores the full sequence.
func (e *Engine) SetFilter(query string) {
	e.filter = strings.TrimSpace(query)
	e.rebuild()
}

// SetSort sorts by the given column, toggling direction when the column is
// already active. An empty column id clears sorting.
func (e *Engine) SetSort(columnID string) {
	if e.state.SortColumn == columnID && columnID != "" {
		if e.state.SortDirection == SortAsc {
			e.state.SortDirection = SortDesc
		} else {
			e.state.SortDirection = SortAsc
		}
	} else {
		e.state.SortColumn = columnID
		e.state.SortDirection = SortAsc
	}
	e.rebuild()
	e.notify()
}

// SetColumnWidth clamps the width to the column's min/max bounds. The view
// is untouched, resizing never re-sorts or re-materializes rows.
func (e *Engine) SetColumnWidth(columnID string, px int) {
	col, ok := e.column(columnID)
	if !ok {
		return
	}
	if col.MinWidth > 0 && px < col.MinWidth {
		px = col.MinWidth
	}
	if col.MaxWidth > 0 && px > col.MaxWidth {
		px = col.MaxWidth
	}
	e.state.Widths[columnID] = px
	e.notify()
}

func (e *Engine) SetColumnVisible(columnID string, visible bool) {
	if _, ok := e.column(columnID); !ok {
		return
	}
	e.state.Visibility[columnID] = visible
	e.notify()
}

func (e *Engine) Columns() []Column {
	return e.columns
}

func (e *Engine) State() ColumnState {
	return e.state.Clone()
}

// Len reports the current view length after filtering.
func (e *Engine) Len() int {
	return len(e.view)
}

func (e *Engine) TotalHeight() int {
	return len(e.view) * e.rowHeight
}

// RowID returns the id of the view row at index i, for use with
// ResolveClick.
func (e *Engine) RowID(i int) string {
	if i < 0 || i >= len(e.view) {
		return ""
	}
	return e.view[i].RowID()
}

// Window computes the index range intersecting the viewport plus overscan
// on both sides. Row height is uniform and estimated.
func (e *Engine) Window(scrollTop, viewportHeight int) Window {
	total := len(e.view)
	if total == 0 || viewportHeight <= 0 {
		return Window{TotalHeight: e.TotalHeight()}
	}
	if scrollTop < 0 {
		scrollTop = 0
	}

	start := scrollTop/e.rowHeight - e.overscan
	if start < 0 {
		start = 0
	}
	end := (scrollTop+viewportHeight)/e.rowHeight + 1 + e.overscan
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	return Window{
		Start:       start,
		End:         end,
		TopPad:      start * e.rowHeight,
		TotalHeight: e.TotalHeight(),
		Rows:        e.view[start:end],
	}
}

// Cells renders the visible columns for one row, keyed by column id.
func (e *Engine) Cells(row Row) map[string]string {
	cells := make(map[string]string, len(e.columns))
	for _, col := range e.columns {
		if !e.state.Visibility[col.ID] {
			continue
		}
		if col.Render != nil {
			cells[col.ID] = col.Render(row)
		} else {
			cells[col.ID] = row.RowID()
		}
	}
	return cells
}

func (e *Engine) column(id string) (Column, bool) {
	for _, col := range e.columns {
		if col.ID == id {
			return col, true
		}
	}
	return Column{}, false
}

func (e *Engine) notify() {
	if e.onState != nil {
		e.onState(e.state.Clone())
	}
}

func (e *Engine) rebuild() {
	view := e.rows
	if e.filter != "" {
		view = make([]Row, 0, len(e.rows))
		for _, row := range e.rows {
			if fuzzy.MatchFold(e.filter, row.FilterValue()) {
				view = append(view, row)
			}
		}
	} else {
		view = append([]Row(nil), e.rows...)
	}

	if e.state.SortColumn != "" {
		cmp := e.comparator()
		desc := e.state.SortDirection == SortDesc
		sort.SliceStable(view, func(i, j int) bool {
			c := cmp(view[i], view[j])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	e.view = view
}

// comparator resolves the active column's comparator. The fallback compares
// full row ids lexicographically; directories and files at the same level
// interleave by path string, they are deliberately not grouped.
func (e *Engine) comparator() func(a, b Row) int {
	if col, ok := e.column(e.state.SortColumn); ok && col.Comparator != nil {
		return col.Comparator
	}
	return func(a, b Row) int {
		return strings.Compare(a.RowID(), b.RowID())
	}
}
