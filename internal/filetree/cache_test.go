// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-ui/quiver/internal/table"
)

func testSnapshot() []FileEntry {
	return []FileEntry{
		{Path: "a/b/f1.txt", Index: 0, Size: 10, Done: 5, Priority: PriorityNormal, Want: Wanted},
		{Path: "a/b/f2.txt", Index: 1, Size: 30, Done: 30, Priority: PriorityNormal, Want: Unwanted},
		{Path: "a/g.txt", Index: 2, Size: 60, Done: 0, Priority: PriorityHigh, Want: Wanted},
		{Path: "top.txt", Index: 3, Size: 100, Done: 100, Priority: PriorityNormal, Want: Wanted},
	}
}

func paths(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Path)
	}
	return out
}

func TestReconcileBuildsTree(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	a := c.Node("a")
	require.NotNil(t, a)
	assert.True(t, a.Dir)
	assert.Equal(t, 0, a.Level)
	assert.Equal(t, int64(100), a.Size)
	assert.Equal(t, int64(35), a.Done)
	assert.Equal(t, WantMixed, a.Want)

	b := c.Node("a/b")
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Level)
	assert.Equal(t, int64(40), b.Size)
	assert.Equal(t, int64(35), b.Done)
	assert.Equal(t, WantMixed, b.Want)

	f1 := c.Node("a/b/f1.txt")
	require.NotNil(t, f1)
	assert.False(t, f1.Dir)
	assert.Equal(t, 2, f1.Level)
	assert.Equal(t, "f1.txt", f1.Name)
	assert.InDelta(t, 50.0, f1.Percent(), 0.001)

	// Collapsed by default, only root children are visible.
	assert.Equal(t, []string{"a", "top.txt"}, paths(c.Flatten()))
}

func TestReconcileDefaultsOptionalFields(t *testing.T) {
	c := NewCache()
	c.Reconcile([]FileEntry{{Path: "f.bin", Size: 1}})

	n := c.Node("f.bin")
	require.NotNil(t, n)
	assert.Equal(t, PriorityNormal, n.Priority)
	assert.Equal(t, Wanted, n.Want)
}

func TestReconcileIdempotent(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.SetExpanded("a", true)
	c.SetExpanded("a/b", true)
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a/b/f1.txt"}})

	before := paths(c.Flatten())
	selectedBefore := c.Selected()
	count := c.Len()

	c.Reconcile(testSnapshot())

	assert.Equal(t, before, paths(c.Flatten()))
	assert.Equal(t, selectedBefore, c.Selected())
	assert.Equal(t, count, c.Len())
}

func TestReconcilePreservesClientState(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.SetExpanded("a", true)
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a/g.txt"}})

	// Same paths, new sizes.
	next := testSnapshot()
	next[2].Size = 600
	next[2].Done = 300
	c.Reconcile(next)

	a := c.Node("a")
	require.NotNil(t, a)
	assert.True(t, a.Expanded)
	assert.Equal(t, int64(640), a.Size)

	g := c.Node("a/g.txt")
	require.NotNil(t, g)
	assert.True(t, g.Selected)
	assert.Equal(t, []string{"a/g.txt"}, c.Selected())
}

func TestReconcilePrunesRemovedPaths(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a/b/f2.txt"}})

	// f2 disappears along with its record.
	next := []FileEntry{
		{Path: "a/b/f1.txt", Size: 10, Done: 5},
		{Path: "top.txt", Size: 100, Done: 100},
	}
	c.Reconcile(next)

	assert.Nil(t, c.Node("a/b/f2.txt"))
	assert.Nil(t, c.Node("a/g.txt"))
	assert.Empty(t, c.Selected())
	assert.Equal(t, int64(10), c.Node("a").Size)

	// The same path reused for an unrelated new file must not come back
	// selected.
	c.Reconcile(testSnapshot())
	f2 := c.Node("a/b/f2.txt")
	require.NotNil(t, f2)
	assert.False(t, f2.Selected)
	assert.Empty(t, c.Selected())
}

func TestReconcileDropsEmptyDirectoryChains(t *testing.T) {
	c := NewCache()
	c.Reconcile([]FileEntry{
		{Path: "x/y/z/deep.txt", Size: 1},
		{Path: "keep.txt", Size: 1},
	})
	require.NotNil(t, c.Node("x/y/z"))

	c.Reconcile([]FileEntry{{Path: "keep.txt", Size: 1}})
	assert.Nil(t, c.Node("x"))
	assert.Nil(t, c.Node("x/y"))
	assert.Nil(t, c.Node("x/y/z"))
	assert.Equal(t, []string{"keep.txt"}, paths(c.Flatten()))
}

func TestReconcileLeafToDirectoryDropsSelection(t *testing.T) {
	c := NewCache()
	c.Reconcile([]FileEntry{{Path: "a", Size: 1}})
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a"}})
	require.Equal(t, []string{"a"}, c.Selected())

	// The torrent now carries a directory where the leaf used to sit.
	c.Reconcile([]FileEntry{{Path: "a/b.txt", Size: 2}})

	n := c.Node("a")
	require.NotNil(t, n)
	require.True(t, n.Dir)
	assert.False(t, n.Selected)
	assert.Empty(t, c.Selected())
}

func TestDirectoryWantAggregation(t *testing.T) {
	tests := []struct {
		name     string
		want1    WantState
		want2    WantState
		expected WantState
	}{
		{name: "all_wanted", want1: Wanted, want2: Wanted, expected: Wanted},
		{name: "all_unwanted", want1: Unwanted, want2: Unwanted, expected: Unwanted},
		{name: "mixed", want1: Wanted, want2: Unwanted, expected: WantMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache()
			c.Reconcile([]FileEntry{
				{Path: "d/one", Size: 1, Want: tt.want1},
				{Path: "d/two", Size: 1, Want: tt.want2},
			})
			require.NotNil(t, c.Node("d"))
			assert.Equal(t, tt.expected, c.Node("d").Want)
		})
	}
}

func TestFlattenRespectsExpansion(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.SetExpanded("a", true)
	c.SetExpanded("a/b", true)

	expanded := c.Flatten()
	assert.Equal(t, []string{"a", "a/b", "a/b/f1.txt", "a/b/f2.txt", "a/g.txt", "top.txt"}, paths(expanded))

	// Collapsing a/b removes exactly its two descendants; siblings stay.
	c.SetExpanded("a/b", false)
	collapsed := c.Flatten()
	assert.Equal(t, []string{"a", "a/b", "a/g.txt", "top.txt"}, paths(collapsed))
	assert.Equal(t, len(expanded)-2, len(collapsed))
}

func TestSetExpandedNoops(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	c.SetExpanded("top.txt", true) // leaf
	c.SetExpanded("missing", true) // unknown

	assert.Equal(t, []string{"a", "top.txt"}, paths(c.Flatten()))
}

func TestSetWantedLeaf(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	c.SetWanted("a/b/f1.txt", false, true)

	f1 := c.Node("a/b/f1.txt")
	assert.Equal(t, Unwanted, f1.Want)
	assert.True(t, f1.WantUpdating)

	// Both files in a/b are now unwanted; the pending flag bubbles up.
	b := c.Node("a/b")
	assert.Equal(t, Unwanted, b.Want)
	assert.True(t, b.WantUpdating)
	assert.Equal(t, WantMixed, c.Node("a").Want)
	assert.True(t, c.Node("a").WantUpdating)
}

func TestSetWantedDirectoryPropagates(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	c.SetWanted("a", false, true)

	for _, path := range []string{"a/b/f1.txt", "a/b/f2.txt", "a/g.txt"} {
		n := c.Node(path)
		require.NotNil(t, n, path)
		assert.Equal(t, Unwanted, n.Want, path)
		assert.True(t, n.WantUpdating, path)
	}
	assert.Equal(t, Unwanted, c.Node("a").Want)
	assert.Equal(t, Unwanted, c.Node("a/b").Want)

	// The sibling outside the subtree is untouched.
	top := c.Node("top.txt")
	assert.Equal(t, Wanted, top.Want)
	assert.False(t, top.WantUpdating)
}

func TestSetWantedUnknownPathNoop(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	c.SetWanted("does/not/exist", false, true)

	assert.Equal(t, WantMixed, c.Node("a").Want)
	assert.False(t, c.Node("a").WantUpdating)
}

func TestReconcilePreservesUpdatingFlag(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	c.SetWanted("a/b/f1.txt", false, true)

	// A refresh arrives before the mutation confirmed; the server still
	// reports the file as wanted. The in-flight flag must survive.
	c.Reconcile(testSnapshot())

	f1 := c.Node("a/b/f1.txt")
	assert.Equal(t, Wanted, f1.Want)
	assert.True(t, f1.WantUpdating)
	assert.True(t, c.Node("a/b").WantUpdating)

	c.ClearUpdating("a/b/f1.txt")
	assert.False(t, c.Node("a/b/f1.txt").WantUpdating)
	assert.False(t, c.Node("a/b").WantUpdating)
	assert.False(t, c.Node("a").WantUpdating)
}

func TestClearUpdatingSubtree(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.SetWanted("a", false, true)

	c.ClearUpdating("a")

	for _, path := range []string{"a", "a/b", "a/b/f1.txt", "a/b/f2.txt", "a/g.txt"} {
		assert.False(t, c.Node(path).WantUpdating, path)
	}
}

func TestRenameLeaf(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a/g.txt"}})

	require.NoError(t, c.Rename("a/g.txt", "renamed.txt"))

	assert.Nil(t, c.Node("a/g.txt"))
	n := c.Node("a/renamed.txt")
	require.NotNil(t, n)
	assert.Equal(t, "renamed.txt", n.Name)
	assert.Equal(t, 1, n.Level)
	assert.Equal(t, []string{"a/renamed.txt"}, c.Selected())
}

func TestRenameDirectoryRemapsDescendants(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a/b/f1.txt"}})

	require.NoError(t, c.Rename("a/b", "c"))

	assert.Nil(t, c.Node("a/b"))
	assert.Nil(t, c.Node("a/b/f1.txt"))
	require.NotNil(t, c.Node("a/c"))
	require.NotNil(t, c.Node("a/c/f1.txt"))
	assert.Equal(t, []string{"a/c/f1.txt"}, c.Selected())
}

func TestRenameConflict(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	err := c.Rename("a/b/f1.txt", "f2.txt")
	assert.ErrorIs(t, err, ErrPathConflict)

	// Tree unchanged.
	require.NotNil(t, c.Node("a/b/f1.txt"))
	require.NotNil(t, c.Node("a/b/f2.txt"))
}

func TestRenameUnknownPathNoop(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	assert.NoError(t, c.Rename("nope/missing.txt", "other.txt"))
	assert.Nil(t, c.Node("nope/other.txt"))
}

func TestRenameInvalidName(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	assert.ErrorIs(t, c.Rename("top.txt", ""), ErrInvalidName)
	assert.ErrorIs(t, c.Rename("top.txt", "x/y"), ErrInvalidName)
}

func TestSelectVerbs(t *testing.T) {
	c := NewCache()
	c.Reconcile(testSnapshot())

	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"top.txt", "a/g.txt"}})
	assert.Equal(t, []string{"a/g.txt", "top.txt"}, c.Selected())
	assert.True(t, c.Node("top.txt").Selected)

	c.Select(table.SelectionUpdate{Verb: table.SelectAdd, IDs: []string{"a/b/f1.txt"}})
	assert.Equal(t, []string{"a/b/f1.txt", "a/g.txt", "top.txt"}, c.Selected())

	// Set replaces and clears stale flags.
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"a/b/f1.txt"}})
	assert.Equal(t, []string{"a/b/f1.txt"}, c.Selected())
	assert.False(t, c.Node("top.txt").Selected)
	assert.False(t, c.Node("a/g.txt").Selected)

	// Unknown ids are dropped, the rest of the batch still applies.
	c.Select(table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"ghost", "top.txt"}})
	assert.Equal(t, []string{"top.txt"}, c.Selected())
}
