// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/quiver-ui/quiver/internal/table"
)

// TableID keys the file tree's persisted column state.
const TableID = "filetree"

// TableColumns returns the column descriptors for the torrent file table.
// The name column comparator compares full paths; a directory and a file at
// the same level sort purely by path string.
func TableColumns() []table.Column {
	return []table.Column{
		{
			ID:           "name",
			Label:        "Name",
			DefaultWidth: 420,
			MinWidth:     160,
			Comparator: func(a, b table.Row) int {
				return strings.Compare(a.RowID(), b.RowID())
			},
			Render: func(r table.Row) string {
				return node(r).Name
			},
		},
		{
			ID:           "size",
			Label:        "Size",
			DefaultWidth: 100,
			MinWidth:     70,
			MaxWidth:     160,
			Comparator: func(a, b table.Row) int {
				return compareInt64(node(a).Size, node(b).Size)
			},
			Render: func(r table.Row) string {
				return humanize.IBytes(uint64(node(r).Size))
			},
		},
		{
			ID:           "done",
			Label:        "Done",
			DefaultWidth: 100,
			MinWidth:     70,
			MaxWidth:     160,
			Comparator: func(a, b table.Row) int {
				return compareInt64(node(a).Done, node(b).Done)
			},
			Render: func(r table.Row) string {
				return humanize.IBytes(uint64(node(r).Done))
			},
		},
		{
			ID:           "percent",
			Label:        "Progress",
			DefaultWidth: 90,
			MinWidth:     60,
			MaxWidth:     120,
			Comparator: func(a, b table.Row) int {
				pa, pb := node(a).Percent(), node(b).Percent()
				switch {
				case pa < pb:
					return -1
				case pa > pb:
					return 1
				}
				return 0
			},
			Render: func(r table.Row) string {
				return fmt.Sprintf("%.1f%%", node(r).Percent())
			},
		},
		{
			ID:           "priority",
			Label:        "Priority",
			DefaultWidth: 90,
			MinWidth:     60,
			MaxWidth:     120,
			Comparator: func(a, b table.Row) int {
				return priorityRank(node(a).Priority) - priorityRank(node(b).Priority)
			},
			Render: func(r table.Row) string {
				return string(node(r).Priority)
			},
		},
		{
			ID:            "want",
			Label:         "Wanted",
			DefaultWidth:  80,
			MinWidth:      60,
			MaxWidth:      100,
			DefaultHidden: true,
			Render: func(r table.Row) string {
				n := node(r)
				if n.WantUpdating {
					return string(n.Want) + " (updating)"
				}
				return string(n.Want)
			},
		},
	}
}

func node(r table.Row) *Node {
	return r.(*Node)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func priorityRank(p Priority) int {
	switch p {
	case PrioritySkip:
		return 0
	case PriorityLow:
		return 1
	case PriorityNormal:
		return 2
	case PriorityHigh:
		return 3
	}
	return 2
}
